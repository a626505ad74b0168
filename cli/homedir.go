package cli

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"messagic/config"
)

func GetHomeDir(cmd *cobra.Command) string {
	homeDirUnexp, err := cmd.Flags().GetString(FlagHome)
	if err != nil {
		panic(err)
	}
	return config.ExpandHomePath(homeDirUnexp)
}

func InitHomeDir(cmd *cobra.Command) (string, error) {
	homeDir := GetHomeDir(cmd)
	exists, err := config.HomeDirExists(homeDir)
	if err != nil {
		return "", err
	}
	if exists {
		return "", errors.New("home directory is already initialized")
	}
	if err := config.InitHomeDir(homeDir); err != nil {
		return "", err
	}
	return homeDir, nil
}

// LoadConfig reads the home directory's config file and applies the
// command line overrides on top of it.
func LoadConfig(cmd *cobra.Command, homeDir string) (*config.Config, error) {
	cfg, err := config.ReadConfigFile(homeDir)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	overrides := []struct {
		flag string
		dst  *string
	}{
		{FlagLogLevel, &cfg.LogLevel},
		{FlagTransport, &cfg.Transport.Kind},
		{FlagAddress, &cfg.Transport.Address},
		{FlagCommand, &cfg.Transport.Command},
	}
	for _, o := range overrides {
		if flags.Lookup(o.flag) == nil || !flags.Changed(o.flag) {
			continue
		}
		v, err := flags.GetString(o.flag)
		if err != nil {
			return nil, errors.Wrapf(err, "error reading --%s", o.flag)
		}
		*o.dst = v
	}
	if flags.Lookup(FlagJournal) != nil && flags.Changed(FlagJournal) {
		enabled, err := flags.GetBool(FlagJournal)
		if err != nil {
			return nil, errors.Wrapf(err, "error reading --%s", FlagJournal)
		}
		cfg.Journal.Enabled = enabled
	}
	return cfg, nil
}
