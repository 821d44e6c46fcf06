package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cincibrainlab/autocleaneeg-task-registry/internal/config"
	"github.com/cincibrainlab/autocleaneeg-task-registry/internal/registry"
	"github.com/cincibrainlab/autocleaneeg-task-registry/internal/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "taskregistry",
		Short:         "EEG task registry service and tooling",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newServeCmd(), newValidateCmd(), newStampCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the registry HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			setupLogging(cfg.LogLevel)

			policy := config.DefaultPolicy()
			if cfg.PolicyPath != "" {
				policy, err = config.LoadPolicy(cfg.PolicyPath)
				if err != nil {
					return err
				}
			}

			srv, err := server.New(cfg, policy)
			if err != nil {
				return err
			}

			// Shut down gracefully on interrupt
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			go func() {
				sig := <-sigChan
				slog.Info("interrupt received, shutting down gracefully...", "signal", sig)
				cancel()
			}()

			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to service config")
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [root]",
		Short: "Check registry.json against the tasks directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}

			findings, err := registry.CheckLocal(cmd.Context(), root)
			if err != nil {
				return err
			}

			if len(findings) > 0 {
				for _, f := range findings {
					fmt.Fprintln(os.Stderr, f)
				}
				return fmt.Errorf("registry check failed with %d finding(s)", len(findings))
			}

			fmt.Println("registry.json matches tasks directory")
			return nil
		},
	}
}

func newStampCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stamp [root]",
		Short: "Update the registry commit field from GITHUB_SHA",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}

			sha := os.Getenv("GITHUB_SHA")
			if sha == "" {
				fmt.Fprintln(os.Stderr, "GITHUB_SHA is not set; nothing to do")
				return nil
			}

			changed, err := registry.StampCommit(root, sha)
			if err != nil {
				return err
			}

			if !changed {
				fmt.Println("registry commit already up to date")
				return nil
			}
			fmt.Printf("registry commit updated to %s\n", sha)
			return nil
		},
	}
}

func setupLogging(level string) {
	var lv slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lv = slog.LevelDebug
	case "warn":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv})))
}
