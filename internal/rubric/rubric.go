// Package rubric holds the weight tables a review is scored against.
package rubric

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultPenalty is subtracted from the total of a non-working submission.
const DefaultPenalty = 30.0

var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrUnknownItem     = errors.New("unknown item")
	ErrUnknownRubric   = errors.New("unknown rubric")
	ErrInvalidRubric   = errors.New("invalid rubric")
)

// Item is one scored line of a category.
type Item struct {
	Key   string  `yaml:"key" json:"key"`
	Label string  `yaml:"label" json:"label"`
	Max   float64 `yaml:"max" json:"max"`
	// Rule names the scoring rule; empty means the rule named after Key.
	Rule string `yaml:"rule,omitempty" json:"rule,omitempty"`
}

// RuleKey returns the scoring rule that evaluates the item.
func (i Item) RuleKey() string {
	if i.Rule != "" {
		return i.Rule
	}
	return i.Key
}

// Category groups items under a shared budget.
type Category struct {
	Key   string `yaml:"key" json:"key"`
	Label string `yaml:"label" json:"label"`
	Items []Item `yaml:"items" json:"items"`
}

// Max returns the category budget, the sum of its item maxima.
func (c Category) Max() float64 {
	var total float64
	for _, it := range c.Items {
		total += it.Max
	}
	return total
}

// Item looks up an item by key.
func (c Category) Item(key string) (Item, bool) {
	for _, it := range c.Items {
		if it.Key == key {
			return it, true
		}
	}
	return Item{}, false
}

// Rubric is an ordered set of categories plus the non-working penalty.
type Rubric struct {
	Name       string     `yaml:"name" json:"name"`
	Penalty    float64    `yaml:"penalty" json:"penalty"`
	Categories []Category `yaml:"categories" json:"categories"`
}

// Max returns the highest attainable total.
func (r *Rubric) Max() float64 {
	var total float64
	for _, c := range r.Categories {
		total += c.Max()
	}
	return total
}

// Category looks up a category by key.
func (r *Rubric) Category(key string) (Category, error) {
	for _, c := range r.Categories {
		if c.Key == key {
			return c, nil
		}
	}
	return Category{}, fmt.Errorf("%w: %q", ErrUnknownCategory, key)
}

// Item looks up an item inside a category.
func (r *Rubric) Item(category, item string) (Item, error) {
	c, err := r.Category(category)
	if err != nil {
		return Item{}, err
	}
	it, ok := c.Item(item)
	if !ok {
		return Item{}, fmt.Errorf("%w: %q in %q", ErrUnknownItem, item, category)
	}
	return it, nil
}

// RuleKeys returns the distinct rule keys the rubric needs, sorted.
func (r *Rubric) RuleKeys() []string {
	set := map[string]bool{}
	for _, c := range r.Categories {
		for _, it := range c.Items {
			set[it.RuleKey()] = true
		}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks keys are present and unique and maxima are positive.
func (r *Rubric) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRubric)
	}
	if r.Penalty < 0 {
		return fmt.Errorf("%w: penalty must not be negative", ErrInvalidRubric)
	}
	if len(r.Categories) == 0 {
		return fmt.Errorf("%w: no categories", ErrInvalidRubric)
	}
	seen := map[string]bool{}
	for _, c := range r.Categories {
		if c.Key == "" {
			return fmt.Errorf("%w: category without key", ErrInvalidRubric)
		}
		if seen[c.Key] {
			return fmt.Errorf("%w: duplicate category %q", ErrInvalidRubric, c.Key)
		}
		seen[c.Key] = true
		if len(c.Items) == 0 {
			return fmt.Errorf("%w: category %q has no items", ErrInvalidRubric, c.Key)
		}
		items := map[string]bool{}
		for _, it := range c.Items {
			if it.Key == "" {
				return fmt.Errorf("%w: item without key in %q", ErrInvalidRubric, c.Key)
			}
			if items[it.Key] {
				return fmt.Errorf("%w: duplicate item %q in %q", ErrInvalidRubric, it.Key, c.Key)
			}
			items[it.Key] = true
			if it.Max <= 0 {
				return fmt.Errorf("%w: item %q in %q must have a positive max", ErrInvalidRubric, it.Key, c.Key)
			}
		}
	}
	return nil
}

// Load reads a rubric from a YAML file. A missing penalty defaults to
// DefaultPenalty and labels default to their keys.
func Load(path string) (*Rubric, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rubric: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML rubric.
func Parse(data []byte) (*Rubric, error) {
	var raw struct {
		Name       string     `yaml:"name"`
		Penalty    *float64   `yaml:"penalty"`
		Categories []Category `yaml:"categories"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse rubric: %w", err)
	}
	r := Rubric{Name: raw.Name, Penalty: DefaultPenalty, Categories: raw.Categories}
	if raw.Penalty != nil {
		r.Penalty = *raw.Penalty
	}
	for ci := range r.Categories {
		c := &r.Categories[ci]
		if c.Label == "" {
			c.Label = c.Key
		}
		for ii := range c.Items {
			if c.Items[ii].Label == "" {
				c.Items[ii].Label = c.Items[ii].Key
			}
		}
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Marshal encodes the rubric as YAML.
func (r *Rubric) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal rubric: %w", err)
	}
	return data, nil
}

// Clone returns a deep copy.
func (r *Rubric) Clone() *Rubric {
	out := *r
	out.Categories = make([]Category, len(r.Categories))
	for i, c := range r.Categories {
		c.Items = append([]Item(nil), c.Items...)
		out.Categories[i] = c
	}
	return &out
}
