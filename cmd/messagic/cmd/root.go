package cmd

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"messagic/cli"
	"messagic/config"
	"messagic/log"
)

var configuredHomeDir string

var rootCmd = &cobra.Command{
	Use:           "messagic",
	Short:         "Exchange newline-delimited messages over a byte stream.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// stdout may be the transport
		log.SetOutput(os.Stderr)
		switch cmd.CalledAs() {
		case "init", "version":
			return nil
		}
		configuredHomeDir = cli.GetHomeDir(cmd)
		if err := config.EnsureHomeDir(configuredHomeDir); err != nil {
			return errors.Wrap(err, "error ensuring home directory")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String(cli.FlagHome, config.DefaultHomeDir, "Home directory for the config file and journal.")
	rootCmd.PersistentFlags().String(cli.FlagLogLevel, "", "Overrides the configured log level.")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and applies its log level.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := cli.LoadConfig(cmd, configuredHomeDir)
	if err != nil {
		return nil, errors.Wrap(err, "error reading config file")
	}
	logLevel, err := log.NewLevel(cfg.LogLevel)
	if err != nil {
		return nil, errors.Wrap(err, "error parsing log level")
	}
	log.SetLevel(logLevel)
	return cfg, nil
}

func addTransportFlags(cmd *cobra.Command) {
	cmd.Flags().String(cli.FlagTransport, "", "Overrides the transport kind (stdio, tcp, websocket, exec).")
	cmd.Flags().String(cli.FlagAddress, "", "Overrides the transport address.")
	cmd.Flags().String(cli.FlagCommand, "", "Overrides the child process command line for the exec transport.")
	cmd.Flags().Bool(cli.FlagJournal, false, "Journals every message to the home directory's database.")
}
