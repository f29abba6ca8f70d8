package scgenomisc

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectDataType(t *testing.T) {
	for _, v := range []struct {
		input    []byte
		expected DataType
	}{
		{[]byte{0x1f, 0x8b, 0x08, 0x00, 0x00, 0x00}, DataTypeGzip},
		{[]byte{0x50, 0x4b, 0x03, 0x04, 0x14, 0x00}, DataTypeZip},
		{[]byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}, DataTypeXZ},
		{[]byte{0x42, 0x5a, 0x68, 0x39, 0x31, 0x41}, DataTypeBZip2},
		{[]byte("cell\tA\tB\n"), DataTypeNoCompression},
		{[]byte("x"), DataTypeNoCompression},
	} {
		dt, err := DetectDataType(bufio.NewReader(bytes.NewReader(v.input)))
		require.NoError(t, err)
		assert.Equal(t, v.expected, dt, "%x", v.input)
	}

	_, err := DetectDataType(bufio.NewReader(bytes.NewReader(nil)))
	assert.Error(t, err)
}

func TestMaybeDecompressGzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := io.WriteString(zw, "cell,A,B\nc1,1,2\n")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	rc, err := MaybeDecompressReadCloser(io.NopCloser(&buf))
	require.NoError(t, err)
	defer rc.Close()

	out, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "cell,A,B\nc1,1,2\n", string(out))
}

func TestMaybeDecompressPassthrough(t *testing.T) {
	rc, err := MaybeDecompressReadCloser(io.NopCloser(strings.NewReader("plain text")))
	require.NoError(t, err)

	out, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "plain text", string(out))
	assert.NoError(t, rc.Close())
}
