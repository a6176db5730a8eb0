// Package assessment maps a review total onto a hiring-level tier.
package assessment

import "github.com/fatih/color"

// Level is the short machine name of a tier.
type Level string

const (
	LevelOutstanding Level = "outstanding"
	LevelExcellent   Level = "excellent"
	LevelGood        Level = "good"
	LevelFair        Level = "fair"
	LevelPoor        Level = "poor"
)

// Tier is one band of the assessment scale. A total belongs to the first
// tier whose Min it reaches.
type Tier struct {
	Level Level   `json:"level"`
	Label string  `json:"label"`
	Min   float64 `json:"min"`
}

var tiers = []Tier{
	{Level: LevelOutstanding, Label: "Outstanding - Strong Senior+ candidate", Min: 95},
	{Level: LevelExcellent, Label: "Excellent - Senior candidate", Min: 85},
	{Level: LevelGood, Label: "Good - Mid-level candidate", Min: 75},
	{Level: LevelFair, Label: "Fair - Junior candidate", Min: 65},
}

var poor = Tier{Level: LevelPoor, Label: "Does not meet requirements"}

// Classify returns the tier for total. Lower bounds are inclusive.
func Classify(total float64) Tier {
	for _, t := range tiers {
		if total >= t.Min {
			return t
		}
	}
	return poor
}

// Tiers lists every tier from highest to lowest.
func Tiers() []Tier {
	out := make([]Tier, 0, len(tiers)+1)
	out = append(out, tiers...)
	return append(out, poor)
}

// LevelOf returns the level whose label is label, or LevelPoor.
func LevelOf(label string) Level {
	for _, t := range Tiers() {
		if t.Label == label {
			return t.Level
		}
	}
	return LevelPoor
}

// Color returns the terminal color used to render a level.
func Color(l Level) *color.Color {
	switch l {
	case LevelOutstanding:
		return color.New(color.FgGreen, color.Bold)
	case LevelExcellent:
		return color.New(color.FgGreen)
	case LevelGood:
		return color.New(color.FgCyan)
	case LevelFair:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}
