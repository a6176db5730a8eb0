package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sparklepop/Code-Project-Review/internal/api"
	"github.com/sparklepop/Code-Project-Review/internal/daemon"
	"github.com/sparklepop/Code-Project-Review/internal/models"
	"github.com/sparklepop/Code-Project-Review/internal/review"
	"github.com/sparklepop/Code-Project-Review/internal/store"
)

const (
	shutdownTimeout = 15 * time.Second
	stopGrace       = 10 * time.Second
	cleanupInterval = time.Hour
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the review API server",
	Long: `Run the HTTP API in the foreground. Reviews submitted for analysis are
queued and processed by background workers; stale clone directories are
swept periodically.

Use 'cpr serve start' to run it in the background instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun(cmd.Context())
	},
}

var serveStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the API server in the background",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStartRun()
	},
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStopRun()
	},
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the background API server is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStatusRun()
	},
}

func init() {
	serveCmd.PersistentFlags().IntP("port", "p", 8080, "Port to listen on")
	_ = viper.BindPFlag("serve.port", serveCmd.PersistentFlags().Lookup("port"))

	serveCmd.AddCommand(serveStartCmd)
	serveCmd.AddCommand(serveStopCmd)
	serveCmd.AddCommand(serveStatusCmd)
	rootCmd.AddCommand(serveCmd)
}

func pidFile() *daemon.PIDFile {
	return daemon.NewPIDFile(filepath.Join(viper.GetString("state_dir"), "cpr-serve.pid"))
}

func serveLogPath() string {
	return filepath.Join(viper.GetString("state_dir"), "cpr-serve.log")
}

func serveRun(ctx context.Context) error {
	svc, cfg, err := newService()
	if err != nil {
		return err
	}

	pf := pidFile()
	if err := pf.Acquire(); err != nil {
		return err
	}
	defer func() { _ = pf.Release() }()

	ctx, stop := signalContext(ctx)
	defer stop()

	if n, err := failInterrupted(ctx, svc.Store()); err != nil {
		ui.Warning("Could not check for interrupted reviews: %v", err)
	} else if n > 0 {
		ui.Warning("Marked %d interrupted review(s) as failed", n)
	}

	every := cleanupInterval
	if cfg.CleanupMaxAge < every {
		every = cfg.CleanupMaxAge
	}
	runner := review.NewRunner(svc, cfg.Workers, cfg.QueueSize, appLog).
		WithCleanup(cfg.Fetch.Root, cfg.CleanupMaxAge, every)
	runner.Start(ctx)
	defer runner.Stop()

	addr := fmt.Sprintf(":%d", viper.GetInt("serve.port"))
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewServer(svc, runner, appLog).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	ui.Success("Serving API at http://localhost%s/api/v1 (%d workers)", addr, cfg.Workers)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	ui.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// failInterrupted marks reviews left processing by a previous server as
// failed so they can be run again.
func failInterrupted(ctx context.Context, s store.Store) (int, error) {
	stuck, err := s.ListReviews(ctx, store.ReviewListFilter{Status: models.ReviewStatusProcessing})
	if err != nil {
		return 0, err
	}
	for _, r := range stuck {
		if err := s.UpdateReviewStatus(ctx, r.ID, models.ReviewStatusFailed,
			"Review failed: analysis was interrupted by a server restart."); err != nil {
			return 0, err
		}
	}
	return len(stuck), nil
}

func serveStartRun() error {
	pf := pidFile()
	if pid, ok := pf.IsRunning(); ok {
		return fmt.Errorf("%w (pid %d)", daemon.ErrAlreadyRunning, pid)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	port := viper.GetInt("serve.port")
	logPath := serveLogPath()

	if dryRun {
		ui.DryRunMsg("Would start API server on port %d (log: %s)", port, logPath)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = logFile.Close() }()

	args := []string{"serve", "--port", strconv.Itoa(port)}
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		args = append(args, "--config", cfgFile)
	}
	child := exec.Command(exe, args...)
	child.Stdout = logFile
	child.Stderr = logFile
	setDaemonAttrs(child)
	if err := child.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	pid := child.Process.Pid
	_ = child.Process.Release()

	ui.Success("Started API server (pid %d) on port %d", pid, port)
	ui.Info("Log: %s", logPath)
	return nil
}

func serveStopRun() error {
	pf := pidFile()
	if dryRun {
		if pid, ok := pf.IsRunning(); ok {
			ui.DryRunMsg("Would stop API server (pid %d)", pid)
			return nil
		}
	}

	pid, err := pf.Stop(stopGrace)
	if err != nil {
		return err
	}
	ui.Success("Stopped API server (pid %d)", pid)
	return nil
}

func serveStatusRun() error {
	pid, ok := pidFile().IsRunning()
	if !ok {
		ui.Info("API server is not running")
		return nil
	}
	ui.Success("API server running (pid %d) on port %d", pid, viper.GetInt("serve.port"))
	ui.Info("Log: %s", serveLogPath())
	return nil
}
