package config

import (
	"bytes"
	"io"
	"os"
	"path"
	"text/template"

	"github.com/pkg/errors"

	"messagic/log"
	"messagic/wire"
)

const ConfigFilename = "config.toml"

var DefaultConfig = Config{
	LogLevel: log.LevelInfo.String(),
	Limits: LimitsConfig{
		TextMaximumSize:   wire.DefaultMaximumSize,
		BinaryMaximumSize: wire.DefaultMaximumSize,
	},
	Transport: TransportConfig{
		Kind:          TransportStdio,
		Address:       "127.0.0.1:9099",
		Command:       "",
		DialTimeoutMS: 5000,
	},
	Journal: JournalConfig{
		Enabled: false,
		Path:    "",
	},
	Tuning: TuningConfig{
		RecvRateLimit: 0,
		RecvRateBurst: 0,
	},
}

const defaultConfigTemplateText = `# messagic Config File

# Sets the log level. Can be one of the following values:
# - error
# - warn
# - info
# - debug
# - trace
log_level = "{{.LogLevel}}"

# Configures the persistent message journal. Every inbound and
# outbound message is recorded when enabled.
[journal]
  enabled = {{.Journal.Enabled}}
  # Sets the journal database directory. Defaults to <home>/journal
  # when empty.
  path = "{{.Journal.Path}}"

# Configures the payload ceilings applied in both directions. Text is
# measured in characters, binary in bytes.
[limits]
  binary_maximum_size = {{.Limits.BinaryMaximumSize}}
  text_maximum_size = {{.Limits.TextMaximumSize}}

# Configures the byte stream the channel runs over.
[transport]
  # Sets the address to dial for tcp, or the URL for websocket.
  # Prefix a tcp address with "listen:" to accept one peer instead.
  address = "{{.Transport.Address}}"
  # Sets the command line of the child process for the exec transport.
  command = "{{.Transport.Command}}"
  # Sets how long to wait when dialing a remote peer.
  dial_timeout_ms = {{.Transport.DialTimeoutMS}}
  # Can be one of stdio, tcp, websocket or exec.
  kind = "{{.Transport.Kind}}"

# Configures internal tuning parameters. Unless you know what you are
# doing, these values should be left as their defaults.
[tuning]
  # Sets how many inbound frames per second are read. 0 disables the limit.
  recv_rate_burst = {{.Tuning.RecvRateBurst}}
  recv_rate_limit = {{printf "%.1f" .Tuning.RecvRateLimit}}
`

var defaultConfigTemplate *template.Template

func GenerateDefaultConfigFile() []byte {
	buf := new(bytes.Buffer)
	if err := defaultConfigTemplate.Execute(buf, DefaultConfig); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func ReadConfigFile(homeDir string) (*Config, error) {
	f, err := os.OpenFile(path.Join(homeDir, ConfigFilename), os.O_RDONLY, 0755)
	if err != nil {
		return nil, errors.Wrap(err, "error opening config file for reading")
	}
	defer f.Close()
	cfg, err := ReadConfig(f)
	if err != nil {
		return nil, errors.Wrap(err, "error reading config file")
	}
	return cfg, nil
}

func WriteDefaultConfigFile(homeDir string) error {
	f, err := os.OpenFile(path.Join(homeDir, ConfigFilename), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Wrap(err, "error opening config file for writing")
	}
	defer f.Close()
	if _, err := io.Copy(f, bytes.NewReader(GenerateDefaultConfigFile())); err != nil {
		return errors.Wrap(err, "error writing config file")
	}
	return nil
}

func init() {
	t, err := template.New("defaultConfig").Parse(defaultConfigTemplateText)
	if err != nil {
		panic(err)
	}
	defaultConfigTemplate = t
}
