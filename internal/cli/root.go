package cli

import (
	"log/slog"

	"github.com/me/msbkit/internal/config"
	"github.com/me/msbkit/internal/logging"
	"github.com/spf13/cobra"
)

var (
	flagConfig    string
	flagDB        string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string
	flagFormat    string

	cfg    config.Config
	logger *slog.Logger
)

// NewRootCmd creates the root cobra command for the msbtool CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "msbtool",
		Short: "msbtool: inspect and update the MSBs of science programs",
		Long: "msbtool summarizes, unrolls and checksums the Minimum Schedulable Blocks of a\n" +
			"science program and records observe/remove/suspend transitions.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.Load(flagConfig); err != nil {
				return err
			}
			cfg.ApplyEnv()

			flags := cmd.Flags()
			if flags.Changed("db") {
				cfg.DBPath = flagDB
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = flagLogLevel
			}
			if flags.Changed("log-format") {
				cfg.LogFormat = flagLogFormat
			}
			if flagDebug {
				cfg.Debug = true
				cfg.LogLevel = "debug"
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger = logging.NewLoggerWithWriter(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat, cmd.ErrOrStderr())
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default ~/.msbkit/config.yaml)")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "MSB-done history database (or MSBKIT_DB env)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging of iterator trees and observations")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")
	root.PersistentFlags().StringVarP(&flagFormat, "format", "f", "text", "Output format (text, yaml, json)")

	root.AddCommand(
		newSummaryCmd(),
		newUnrollCmd(),
		newChecksumCmd(),
		newTransitionCmd("observe", "Mark an MSB as observed once", transObserve),
		newTransitionCmd("unobserve", "Reverse one observation of an MSB", transUnobserve),
		newTransitionCmd("remove", "Remove an MSB from scheduling", transRemove),
		newTransitionCmd("unremove", "Restore a removed MSB", transUnremove),
		newSuspendCmd(),
		newTransitionCmd("resume", "Clear the suspension of an MSB", transResume),
		newUndoCmd(),
		newHistoryCmd(),
		newBackupCmd(),
	)

	return root
}
