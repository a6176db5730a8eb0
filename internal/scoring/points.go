package scoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Points is a score value. It serializes with exactly one decimal.
type Points float64

// Round1 rounds v half away from zero to one decimal.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// tenths converts a one-decimal value to an exact integer count of tenths.
func tenths(v float64) int64 {
	return int64(math.Round(v * 10))
}

func fromTenths(t int64) Points {
	return Points(float64(t) / 10)
}

// Float returns p as a float64.
func (p Points) Float() float64 { return float64(p) }

// String renders p with one decimal.
func (p Points) String() string {
	return strconv.FormatFloat(Round1(float64(p)), 'f', 1, 64)
}

func (p Points) MarshalJSON() ([]byte, error) {
	if math.IsNaN(float64(p)) || math.IsInf(float64(p), 0) {
		return nil, fmt.Errorf("points: invalid value %v", float64(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalJSON accepts a number or a numeric string.
func (p *Points) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*p = 0
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("points: %w", err)
	}
	*p = Points(v)
	return nil
}
