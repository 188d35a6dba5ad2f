package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zachurban/housing-policy-monitor/internal/config"
)

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}
	cmd.AddCommand(newConfigShowCommand(a), newConfigInitCommand(a), newConfigPathCommand(a))
	return cmd
}

func newConfigShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			source := "defaults"
			if a.cfgExists {
				source = a.cfgPath
			}
			fmt.Fprintf(out, "Config:        %s\n", source)
			fmt.Fprintf(out, "Data dir:      %s\n", a.cfg.Paths.DataDir)
			fmt.Fprintf(out, "Log dir:       %s\n", a.cfg.Paths.LogDir)
			fmt.Fprintf(out, "Collection:    %s\n", a.cfg.DatabasePath())
			fmt.Fprintf(out, "Lookback:      %d days\n", a.cfg.Processing.LookbackDays)
			fmt.Fprintf(out, "Per-run cap:   %d meetings\n", a.cfg.Processing.MaxMeetingsPerRun)
			fmt.Fprintf(out, "Deepgram key:  %s\n", maskPresence(a.cfg.DeepgramAPIKey()))
			fmt.Fprintf(out, "Anthropic key: %s\n", maskPresence(a.cfg.AnthropicAPIKey()))
			fmt.Fprintf(out, "Jurisdictions: %s\n", strings.Join(a.cfg.JurisdictionNames(), ", "))
			return nil
		},
	}
}

func newConfigInitCommand(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.DefaultConfigPath()
			if err != nil {
				return err
			}
			if a.cfgExists && a.cfgPath == path && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
			}
			if err := config.CreateSample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample config to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func newConfigPathCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the resolved configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), a.cfgPath)
			return nil
		},
	}
}

func maskPresence(key string) string {
	if key == "" {
		return "(not set)"
	}
	return "(set)"
}
