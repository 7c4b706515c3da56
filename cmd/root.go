// Package cmd provides the command line interface for taskflows
/*
Copyright © 2025 The taskflows Authors

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/taskflows/taskflows/internal/config"
	"github.com/taskflows/taskflows/internal/db"
	"github.com/taskflows/taskflows/internal/log"
)

type contextKey string

// appContextKey carries the *App through the command context.
const appContextKey contextKey = "app"

// RootCommand represents the root command for the taskflows CLI.
type RootCommand struct{}

var (
	systemMode     bool
	verbose        bool
	configFilePath string
	dbPath         string
	unitDir        string
	manifestDir    string
	repositoryDir  string
)

// GetCobraCommand returns the cobra root command for the taskflows CLI.
func (c *RootCommand) GetCobraCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "taskflows",
		Short: "Taskflows compiles declarative service definitions into systemd units and manages their lifecycle.",
		Long: `Taskflows compiles declarative service definitions into systemd units and manages their lifecycle.
Services are defined in YAML manifests or imported from Docker Compose projects; taskflows writes the
service and timer units, installs them, and drives them through the service manager.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if configFilePath != "" {
				config.SetConfigFilePath(configFilePath)
			}
			cfg := config.InitConfig()

			if verbose {
				cfg.Verbose = true
			}
			logger := log.New(cfg.Verbose)

			if cfg.Verbose {
				fmt.Printf("%s using config: %s\n\n", cmd.Root().Use, viper.GetViper().ConfigFileUsed())
			}

			if systemMode {
				cfg.UserMode = false
				cfg.UnitDir = config.DefaultSystemUnitDir
				cfg.ManifestDir = config.DefaultSystemManifestDir
				cfg.RepositoryDir = config.DefaultSystemRepositoryDir
				if dbPath == "" {
					cfg.DBPath = config.DefaultSystemDBPath
				}
				config.ExpandPaths(cfg)
			}

			if unitDir != "" {
				cfg.UnitDir = unitDir
			}
			if manifestDir != "" {
				cfg.ManifestDir = manifestDir
			}
			if repositoryDir != "" {
				cfg.RepositoryDir = repositoryDir
			}
			if dbPath != "" {
				cfg.DBPath = dbPath
			}

			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0750); err != nil {
				return fmt.Errorf("creating database directory: %w", err)
			}
			if err := db.Up(cfg, logger); err != nil {
				return fmt.Errorf("initializing database: %w", err)
			}

			app, err := NewApp(logger, config.DefaultProvider())
			if err != nil {
				return err
			}

			// Missing prerequisites are reported but do not block commands;
			// the operation itself fails with the real error if it needs them.
			if err := app.Validator.All(cmd.Context(), cfg); err != nil {
				logger.Error("System requirements not met", "error", err)
			}

			cmd.SetContext(context.WithValue(cmd.Context(), appContextKey, app))
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVar(&systemMode, "system", false, "Target the system service manager instead of the per-user one")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configFilePath, "config", "", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db-path", "", "Path to the database file")
	rootCmd.PersistentFlags().StringVar(&unitDir, "unit-dir", "", "Directory unit files are written to")
	rootCmd.PersistentFlags().StringVar(&manifestDir, "manifest-dir", "", "Directory service manifests are read from")
	rootCmd.PersistentFlags().StringVar(&repositoryDir, "repository-dir", "", "Directory synced repositories are cloned into")

	rootCmd.AddCommand(
		NewCreateCommand().GetCobraCommand(),
		NewStartCommand().GetCobraCommand(),
		NewStopCommand().GetCobraCommand(),
		NewRestartCommand().GetCobraCommand(),
		NewEnableCommand().GetCobraCommand(),
		NewDisableCommand().GetCobraCommand(),
		NewRemoveCommand().GetCobraCommand(),
		NewListCommand().GetCobraCommand(),
		NewStatusCommand().GetCobraCommand(),
		NewShowCommand().GetCobraCommand(),
		NewHistoryCommand().GetCobraCommand(),
		NewLogsCommand().GetCobraCommand(),
		NewSyncCommand().GetCobraCommand(),
		NewDaemonCommand().GetCobraCommand(),
		NewUpdateCommand().GetCobraCommand(),
		NewVersionCommand().GetCobraCommand(),
	)

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := (&RootCommand{}).GetCobraCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
