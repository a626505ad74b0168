package config

import (
	"os"
	"path"

	"github.com/mitchellh/go-homedir"
)

const (
	DefaultHomeDir = "~/.messagic"
	JournalDir     = "journal"
)

const (
	TransportStdio     = "stdio"
	TransportTCP       = "tcp"
	TransportWebSocket = "websocket"
	TransportExec      = "exec"
)

func ExpandHomePath(path string) string {
	res, err := homedir.Expand(path)
	if err != nil {
		panic(err)
	}
	return res
}

// JournalPath resolves the journal directory, falling back to one inside
// the home directory.
func (c *Config) JournalPath(homePath string) string {
	if c.Journal.Path != "" {
		return ExpandHomePath(c.Journal.Path)
	}
	return path.Join(homePath, JournalDir)
}

func InitJournalDir(homePath string) error {
	return os.MkdirAll(path.Join(homePath, JournalDir), 0700)
}
