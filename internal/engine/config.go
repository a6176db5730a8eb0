package engine

import (
	"time"

	"github.com/spf13/viper"

	"github.com/sparklepop/Code-Project-Review/internal/rubric"
)

// Config holds analysis settings.
type Config struct {
	Rubric      string
	RubricFile  string
	Penalty     float64
	MaxFiles    int
	Concurrency int
	Timeout     time.Duration
}

// DefaultConfig returns the analysis config, reading from viper when available.
func DefaultConfig() Config {
	name := viper.GetString("rubric.name")
	if name == "" {
		name = rubric.NameStandard
	}

	penalty := rubric.DefaultPenalty
	if viper.IsSet("analysis.penalty") {
		penalty = viper.GetFloat64("analysis.penalty")
	}

	maxFiles := viper.GetInt("analysis.max_files")
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}

	timeout := viper.GetDuration("analysis.timeout")
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return Config{
		Rubric:      name,
		RubricFile:  viper.GetString("rubric.file"),
		Penalty:     penalty,
		MaxFiles:    maxFiles,
		Concurrency: viper.GetInt("analysis.concurrency"),
		Timeout:     timeout,
	}
}

// FromConfig resolves the configured rubric and builds an Engine for it.
func FromConfig(cfg Config, opts ...Option) (*Engine, error) {
	r, err := rubric.Resolve(cfg.Rubric, cfg.RubricFile, cfg.Penalty)
	if err != nil {
		return nil, err
	}
	opts = append([]Option{WithMaxFiles(cfg.MaxFiles), WithConcurrency(cfg.Concurrency)}, opts...)
	return New(r, opts...)
}
