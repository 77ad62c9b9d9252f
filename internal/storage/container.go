package storage

import (
	"bytes"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"

	"github.com/SmitUplenchwar2687/vmcloop/internal/errdefs"
	"github.com/SmitUplenchwar2687/vmcloop/internal/recording"
)

// Extension is the file suffix for stored recordings.
const Extension = ".vmcrec"

// Encode compresses the recording codec output.
func Encode(rec *recording.Recording) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reverses Encode.
func Decode(b []byte) (*recording.Recording, error) {
	return Read(bytes.NewReader(b))
}

// Write streams the compressed recording to w.
func Write(w io.Writer, rec *recording.Recording) error {
	raw, err := recording.Marshal(rec)
	if err != nil {
		return err
	}
	zw := gzip.NewWriter(w)
	zw.Name = rec.ID.String()
	zw.ModTime = rec.CreatedAt
	if _, err := zw.Write(raw); err != nil {
		_ = zw.Close()
		return errors.Wrap(err, "compressing recording")
	}
	return errors.Wrap(zw.Close(), "compressing recording")
}

// Read decodes a compressed recording from r.
func Read(r io.Reader) (*recording.Recording, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, errors.Wrapf(errdefs.ErrDecode, "not a recording container: %v", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, errors.Wrapf(errdefs.ErrDecode, "decompressing recording: %v", err)
	}
	return recording.Unmarshal(raw)
}

// WriteFile saves rec at path. The file is replaced atomically.
func WriteFile(path string, rec *recording.Recording) error {
	b, err := Encode(rec)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, b)
}

// ReadFile loads a recording saved with WriteFile.
func ReadFile(path string) (*recording.Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errdefs.ErrNotFound, "recording file %s", path)
		}
		return nil, errors.Wrap(err, "opening recording file")
	}
	defer f.Close()
	return Read(f)
}

func writeFileAtomic(path string, b []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return errors.Wrap(err, "writing recording file")
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "writing recording file")
	}
	return nil
}
