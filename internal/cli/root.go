// Package cli implements the userapi command line: a cobra root that loads
// the environment and configuration, plus one subcommand per runtime.
package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-user-records/internal/config"
	"github.com/tbourn/go-user-records/internal/sysutil"
)

// defaultEnvFile is read when present; an explicit --env-file must exist.
const defaultEnvFile = ".env"

// RootOptions holds global flags and the configuration loaded before any
// command runs.
type RootOptions struct {
	EnvFile string
	Version string

	Config config.Config
}

// NewRootCommand creates the root command. Without a subcommand it runs
// the runtime selected by RUNTIME_MODE (auto-detected on Lambda).
func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{Version: version}

	cmd := &cobra.Command{
		Use:     "userapi",
		Short:   "User records API",
		Long:    "Generate, query, archive and delete user records, as an HTTP server or an AWS Lambda function.",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd.Flags().Changed("env-file"))
		},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Config.Runtime.Mode == config.ModeEvent {
				return runLambda(cmd.Context(), opts)
			}
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", defaultEnvFile, "dotenv file loaded before reading the environment")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewLambdaCommand(opts))

	return cmd
}

// load reads the dotenv file (variables already set win), then the
// configuration, and installs the global logger.
func (o *RootOptions) load(explicit bool) error {
	if err := godotenv.Load(o.EnvFile); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", o.EnvFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty)
	o.Config = cfg
	return nil
}
