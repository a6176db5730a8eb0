package review

import (
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/sparklepop/Code-Project-Review/internal/engine"
	"github.com/sparklepop/Code-Project-Review/internal/source"
)

const (
	DefaultCloneDepth    = 50
	DefaultWorkers       = 2
	DefaultQueueSize     = 32
	DefaultCleanupMaxAge = 24 * time.Hour
)

// Config holds review job configuration.
type Config struct {
	Fetch         source.Config
	Timeout       time.Duration
	Workers       int
	QueueSize     int
	CleanupMaxAge time.Duration
}

// DefaultConfig returns the default review config, reading from viper when available.
func DefaultConfig() Config {
	depth := DefaultCloneDepth
	if viper.IsSet("fetch.clone_depth") {
		depth = viper.GetInt("fetch.clone_depth")
	}

	maxFiles := viper.GetInt("analysis.max_files")
	if maxFiles <= 0 {
		maxFiles = engine.DefaultMaxFiles
	}

	timeout := viper.GetDuration("analysis.timeout")
	if timeout <= 0 {
		timeout = engine.DefaultTimeout
	}

	workers := viper.GetInt("serve.workers")
	if workers <= 0 {
		workers = DefaultWorkers
	}

	queueSize := viper.GetInt("serve.queue_size")
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	maxAge := viper.GetDuration("cleanup.max_age")
	if maxAge <= 0 {
		maxAge = DefaultCleanupMaxAge
	}

	return Config{
		Fetch: source.Config{
			Method:   viper.GetString("fetch.method"),
			Root:     ClonesDir(viper.GetString("state_dir")),
			Depth:    depth,
			Token:    viper.GetString("github.token"),
			MaxFiles: maxFiles,
		},
		Timeout:       timeout,
		Workers:       workers,
		QueueSize:     queueSize,
		CleanupMaxAge: maxAge,
	}
}

// ClonesDir is where clones live under the state directory. An empty
// state dir leaves clones in the system temp directory.
func ClonesDir(stateDir string) string {
	if stateDir == "" {
		return ""
	}
	return filepath.Join(stateDir, "clones")
}
