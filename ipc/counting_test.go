package ipc

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountingReader(t *testing.T) {
	buf := []byte("0123456789abcdef0123456789abcdef")
	cr := NewCountingReader(bytes.NewReader(buf))
	b := make([]byte, 16)
	_, err := cr.Read(b)
	require.NoError(t, err)
	assert.EqualValues(t, buf[:16], b)
	assert.EqualValues(t, 16, cr.Count())
	cr.Reset()
	assert.EqualValues(t, 0, cr.Count())
}

func TestCountingWriter(t *testing.T) {
	var out bytes.Buffer
	bw := bufio.NewWriter(&out)
	cw := NewCountingWriter(bw)
	_, err := cw.Write([]byte("hello\n"))
	require.NoError(t, err)
	assert.EqualValues(t, 6, cw.Count())
	assert.Equal(t, 0, out.Len())

	require.NoError(t, cw.Flush())
	assert.Equal(t, "hello\n", out.String())

	require.NoError(t, NewCountingWriter(&out).Flush())
	cw.Reset()
	assert.EqualValues(t, 0, cw.Count())
}
