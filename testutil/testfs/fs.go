package testfs

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func NewTempDir(t *testing.T) (string, func()) {
	dir, err := ioutil.TempDir("", "messagictest_")
	require.NoError(t, err)
	return dir, func() {
		require.NoError(t, os.RemoveAll(dir))
	}
}

// WriteTempFile creates a temp file holding data and returns its path.
func WriteTempFile(t *testing.T, data []byte) (string, func()) {
	f, err := ioutil.TempFile("", "messagictest_")
	require.NoError(t, err)
	_, err = f.Write(data)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return f.Name(), func() {
		require.NoError(t, os.Remove(f.Name()))
	}
}
