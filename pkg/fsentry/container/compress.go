package container

import (
	"bytes"
	"compress/flate"
	"io"

	"github.com/pkg/errors"
)

func compress(plaintext []byte) ([]byte, error) {
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create compressor")
	}
	if _, err := fw.Write(plaintext); err != nil {
		return nil, errors.Wrap(err, "unable to compress body")
	}
	if err := fw.Close(); err != nil {
		return nil, errors.Wrap(err, "unable to flush compressor")
	}
	return buf.Bytes(), nil
}

func decompress(compressed []byte) ([]byte, error) {
	fr := flate.NewReader(bytes.NewReader(compressed))
	defer fr.Close()
	out, err := io.ReadAll(fr)
	if err != nil {
		return nil, errors.Wrap(err, "unable to decompress body")
	}
	return out, nil
}
