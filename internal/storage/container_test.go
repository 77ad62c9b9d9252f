package storage

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmitUplenchwar2687/vmcloop/internal/errdefs"
	"github.com/SmitUplenchwar2687/vmcloop/internal/recording"
)

func TestContainer_IsGzipOfCodecBytes(t *testing.T) {
	rec := sampleRecording()
	b, err := Encode(rec)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1f, 0x8b}, b[:2])

	zr, err := gzip.NewReader(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, rec.ID.String(), zr.Name)

	var raw bytes.Buffer
	_, err = raw.ReadFrom(zr)
	require.NoError(t, err)
	want, err := recording.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, want, raw.Bytes())
}

func TestContainer_ResaveIsByteIdentical(t *testing.T) {
	first, err := Encode(sampleRecording())
	require.NoError(t, err)
	loaded, err := Decode(first)
	require.NoError(t, err)
	second, err := Encode(loaded)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestContainer_RejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("definitely not gzip"))
	assert.True(t, errdefs.IsDecode(err), "%v", err)

	b, err := Encode(sampleRecording())
	require.NoError(t, err)
	_, err = Decode(b[:len(b)/2])
	assert.True(t, errdefs.IsDecode(err), "truncated: %v", err)
}

func TestReadWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "take"+Extension)
	in := sampleRecording()
	require.NoError(t, WriteFile(path, in))

	out, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.MessageCount(), out.MessageCount())

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing"))
	assert.True(t, errdefs.IsNotFound(err))
}
