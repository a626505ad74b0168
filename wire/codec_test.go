package wire

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestEncodeFrame(t *testing.T) {
	tests := []struct {
		name string
		in   Message
		out  string
	}{
		{"text", Text("hello"), "hello\n"},
		{"empty text", Text(""), "\n"},
		{"binary", Binary{0x01, 0x02}, "#AQI=\n"},
		{"empty binary", Binary{}, "#\n"},
		{"error", Error("boom"), "!boom\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, EncodeFrame(&buf, tt.in))
			require.Equal(t, tt.out, buf.String())
			require.Equal(t, len(tt.out), FrameSize(tt.in))
		})
	}
}

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name string
		in   string
		out  Message
	}{
		{"text", "hello", Text("hello")},
		{"empty", "", Text("")},
		{"binary", "#AQI=", Binary{0x01, 0x02}},
		{"empty binary", "#", Binary{}},
		{"error", "!boom", Error("boom")},
		{"empty error", "!", Error("")},
		{"sigil later in line", "a#b!c", Text("a#b!c")},
		{"unicode", "zażółć", Text("zażółć")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := DecodeFrame([]byte(tt.in))
			require.NoError(t, err)
			require.True(t, tt.out.Equals(msg), "got %#v", msg)
			require.Equal(t, tt.out.Kind(), msg.Kind())
		})
	}
}

func TestDecodeFrame_InvalidBase64(t *testing.T) {
	for _, in := range []string{"#AQI", "#!!!!", "#AQI=AQI=", "#AQI=\r", "#AQ\rI=", "#\r"} {
		_, err := DecodeFrame([]byte(in))
		require.Error(t, err, in)
		require.True(t, errors.Is(err, ErrInvalidBase64), in)
	}
}

func TestDecodeFrame_DoesNotAlias(t *testing.T) {
	line := []byte("hello")
	msg, err := DecodeFrame(line)
	require.NoError(t, err)
	line[0] = 'j'
	require.Equal(t, Text("hello"), msg)
}

func TestFrameRoundTrip_Text(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	alphabet := []rune("abcXYZ 019#!\t\rąę€😀")
	for i := 0; i < 200; i++ {
		var sb strings.Builder
		n := r.Intn(300)
		for j := 0; j < n; j++ {
			sb.WriteRune(alphabet[r.Intn(len(alphabet))])
		}
		in := sb.String()
		if strings.HasPrefix(in, "#") || strings.HasPrefix(in, "!") {
			in = "x" + in
		}

		frame := AppendFrame(nil, Text(in))
		require.Equal(t, Delimiter, frame[len(frame)-1])
		msg, err := DecodeFrame(frame[:len(frame)-1])
		require.NoError(t, err)
		require.Equal(t, Text(in), msg)
	}
}

func TestFrameRoundTrip_Binary(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for _, size := range []int{0, 1, 2, 3, 4, 5, 63, 64, 65, 1000, DefaultMaximumSize} {
		in := make([]byte, size)
		r.Read(in)

		frame := AppendFrame(nil, Binary(in))
		require.Equal(t, 1, bytes.Count(frame, []byte{Delimiter}))
		msg, err := DecodeFrame(frame[:len(frame)-1])
		require.NoError(t, err)
		require.True(t, Binary(in).Equals(msg))
	}
}

func TestMessage_Equals(t *testing.T) {
	require.True(t, Text("a").Equals(Text("a")))
	require.False(t, Text("a").Equals(Error("a")))
	require.False(t, Binary("a").Equals(Text("a")))
	require.True(t, Binary(nil).Equals(Binary{}))
	require.Equal(t, "Binary", KindBinary.String())
}
