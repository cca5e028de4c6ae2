package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/runstream/runstream/internal/artifact"
	"github.com/runstream/runstream/internal/config"
	"github.com/runstream/runstream/internal/endpoint"
	"github.com/runstream/runstream/internal/reporter"
)

var version = "dev"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := newRootCmd().Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		slog.Error("runstream failed", "err", err)
		os.Exit(1)
	}
}

// exitError carries the wrapped command's exit code through cobra.
type exitError struct{ code int }

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func newRootCmd() *cobra.Command {
	var configPath string
	var runID string

	root := &cobra.Command{
		Use:           "runstream",
		Short:         "Stream test-run events and upload artifacts to a collector",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "runstream.yaml", "path to config file")
	root.PersistentFlags().StringVar(&runID, "run-id", "", "session identifier (default: a fresh UUID)")

	root.AddCommand(newRunCmd(&configPath, &runID))
	root.AddCommand(newUploadCmd(&configPath, &runID))
	return root
}

// newRunCmd wraps a test command: events stream around its execution and
// the artifact directory is uploaded when it exits. The child's exit code
// is preserved.
func newRunCmd(configPath, runID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run -- <command> [args...]",
		Short: "Run a command with event streaming and artifact upload",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			// Hot-reload logs only; the session keeps its starting config.
			go func() {
				_ = config.Watch(ctx, *configPath, func(updated *config.Config) {
					slog.Info("config hot-reloaded", "server_url", updated.ServerURL)
				})
			}()

			rep, err := reporter.New(cfg, *runID)
			if err != nil {
				return err
			}
			rep.Start(ctx)
			slog.Info("runstream starting",
				"run_id", rep.RunID(), "disabled", rep.Disabled(), "command", args[0])

			cwd, _ := os.Getwd()
			rep.Begin(cwd, args)

			child := exec.CommandContext(ctx, args[0], args[1:]...)
			child.Stdin = os.Stdin
			child.Stdout = os.Stdout
			child.Stderr = os.Stderr

			runErr := child.Run()
			exitCode := 0
			if runErr != nil {
				var xe *exec.ExitError
				if errors.As(runErr, &xe) {
					exitCode = xe.ExitCode()
					rep.Error(runErr.Error())
				} else {
					rep.Error(runErr.Error())
					exitCode = 1
				}
			}
			rep.End(exitCode, 0, 0)

			sum := rep.Finish(ctx)
			slog.Info("run finished",
				"exit_code", exitCode,
				"uploaded", sum.Succeeded,
				"failed_uploads", sum.Failed,
				"bytes", sum.BytesSent,
			)
			for _, f := range sum.Failures {
				slog.Warn("upload failed", "file", f.Entry.RelPath, "attempts", f.Attempts, "err", f.Err)
			}

			if exitCode != 0 {
				return &exitError{code: exitCode}
			}
			return nil
		},
	}
}

// newUploadCmd pushes a directory to the collector without streaming.
func newUploadCmd(configPath, runID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "upload [dir]",
		Short: "Upload an artifact directory one-shot",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			dir := cfg.ArtifactDir
			if len(args) == 1 {
				dir = args[0]
			}

			uploadURL := cfg.UploadURL
			if uploadURL == "" {
				uploadURL, err = endpoint.UploadURL(cfg.ServerURL)
				if err != nil {
					return err
				}
			}

			manifest, err := artifact.Scan(dir)
			if err != nil {
				return err
			}
			if len(manifest) == 0 {
				slog.Info("nothing to upload", "dir", dir)
				return nil
			}

			id := *runID
			if id == "" {
				id = "adhoc"
			}

			up := artifact.NewUploader(uploadURL, cfg.Auth.Token(), cfg.Upload)
			sum := up.UploadAll(cmd.Context(), manifest, id, cfg.Upload.Concurrency)
			if sum.Failed > 0 {
				return fmt.Errorf("%d of %d uploads failed", sum.Failed, sum.Total)
			}
			return nil
		},
	}
}
