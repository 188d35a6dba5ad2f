package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zachurban/housing-policy-monitor/internal/config"
	"github.com/zachurban/housing-policy-monitor/internal/logging"
)

type app struct {
	cfg       *config.Config
	cfgPath   string
	cfgExists bool
	logger    *slog.Logger
}

// Execute runs the CLI with signal-aware cancellation.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCommand().ExecuteContext(ctx)
}

func newRootCommand() *cobra.Command {
	a := &app{}
	var configFlag string

	cmd := &cobra.Command{
		Use:           "hpm",
		Short:         "Monitor local government meetings for housing policy activity",
		Long:          "hpm discovers municipal meetings from YouTube, Granicus, and Legistar,\ntranscribes their recordings, and produces housing-policy analyses.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(configFlag)
		},
	}
	cmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to config file")

	cmd.AddCommand(
		newRunCommand(a),
		newDiscoverCommand(a),
		newStatusCommand(a),
		newShowCommand(a),
		newRunsCommand(a),
		newConfigCommand(a),
	)
	return cmd
}

func (a *app) loadConfig(path string) error {
	cfg, resolvedPath, exists, err := config.Load(path)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.cfgPath = resolvedPath
	a.cfgExists = exists

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stderr", filepath.Join(cfg.Paths.LogDir, "hpm.log")},
	})
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}
