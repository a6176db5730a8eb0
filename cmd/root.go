package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sparklepop/Code-Project-Review/internal/engine"
	"github.com/sparklepop/Code-Project-Review/internal/logger"
	"github.com/sparklepop/Code-Project-Review/internal/output"
	"github.com/sparklepop/Code-Project-Review/internal/review"
	"github.com/sparklepop/Code-Project-Review/internal/rubric"
	"github.com/sparklepop/Code-Project-Review/internal/source"
	"github.com/sparklepop/Code-Project-Review/internal/store"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	appLog    *slog.Logger
	dataStore store.Store

	verbose bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "cpr",
	Short: "Code Project Review - score candidate take-home submissions",
	Long: `cpr reviews candidate code submissions against a weighted rubric.
It fetches a repository, runs heuristic analyzers over the source, tests,
docs and commit history, and produces per-item scores, feedback and an
overall assessment tier that reviewers can adjust afterwards.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/cpr/config.yaml)")
	rootCmd.PersistentFlags().Bool("narrate", false, "Rewrite overall comments with Claude (needs an Anthropic API key)")
	_ = viper.BindPFlag("anthropic.narrate", rootCmd.PersistentFlags().Lookup("narrate"))
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := configDirFunc()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(dir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("CPR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	dir, _ := configDirFunc()
	setDefaults(dir)

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

// setDefaults registers every config key with its default, rooted at dir.
func setDefaults(dir string) {
	viper.SetDefault("state_dir", dir)
	viper.SetDefault("db_path", filepath.Join(dir, "cpr.db"))
	viper.SetDefault("rubric.name", rubric.NameStandard)
	viper.SetDefault("rubric.file", "")
	viper.SetDefault("analysis.max_files", engine.DefaultMaxFiles)
	viper.SetDefault("analysis.timeout", engine.DefaultTimeout)
	viper.SetDefault("analysis.penalty", rubric.DefaultPenalty)
	viper.SetDefault("analysis.concurrency", 0)
	viper.SetDefault("fetch.method", source.MethodGit)
	viper.SetDefault("fetch.clone_depth", review.DefaultCloneDepth)
	viper.SetDefault("github.token", "")
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "")
	viper.SetDefault("anthropic.narrate", false)
	viper.SetDefault("serve.port", 8080)
	viper.SetDefault("serve.workers", review.DefaultWorkers)
	viper.SetDefault("serve.queue_size", review.DefaultQueueSize)
	viper.SetDefault("cleanup.max_age", review.DefaultCleanupMaxAge)
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	appLog = logger.New(os.Stderr, verbose)
	slog.SetDefault(appLog)

	// Store is opened lazily so config and version work without a db.
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	dbPath := viper.GetString("db_path")
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(rootCmd.Context()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// newEngine builds the analysis engine from config, letting cfgFn adjust
// the rubric selection first.
func newEngine(cfgFn func(*engine.Config)) (*engine.Engine, error) {
	cfg := engine.DefaultConfig()
	if cfgFn != nil {
		cfgFn(&cfg)
	}
	e, err := engine.FromConfig(cfg, engine.WithLogger(appLog))
	if err != nil {
		return nil, fmt.Errorf("build analyzer: %w", err)
	}
	return e, nil
}

// newService wires the store, engine, fetcher and optional narrator.
func newService() (*review.Service, review.Config, error) {
	cfg := review.DefaultConfig()

	s, err := getStore()
	if err != nil {
		return nil, cfg, err
	}
	e, err := newEngine(nil)
	if err != nil {
		return nil, cfg, err
	}
	f, err := source.New(cfg.Fetch)
	if err != nil {
		return nil, cfg, err
	}

	opts := []review.Option{review.WithLogger(appLog), review.WithTimeout(cfg.Timeout)}
	if n := newNarrator(); n != nil {
		opts = append(opts, review.WithNarrator(n))
	}
	return review.NewService(s, e, f, opts...), cfg, nil
}
