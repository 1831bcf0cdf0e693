package container

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/fsentry/fsentry/pkg/fsentry/ferr"
	"github.com/fsentry/fsentry/pkg/fsentry/wire"
)

// Material carries whichever keys a given Encoding needs. Encode/Decode
// only touch the fields their encoding requires.
type Material struct {
	SignPublic  *[32]byte
	SignPrivate *[64]byte
	Passphrase  []byte
}

// Encode wraps payload (already serialized by the caller) in a
// FileHeader carrying id and baggage, and a body shaped by encoding
// (spec §4.11).
func Encode(id string, encoding Encoding, baggage, payload []byte, mat Material) ([]byte, error) {
	header := FileHeader{ID: id, Version: Version, Encoding: encoding, Baggage: baggage}

	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	header.Write(w)
	if err := w.Err(); err != nil {
		return nil, errors.Wrap(err, "unable to write container header")
	}

	switch encoding {
	case EncodingNone:
		w.WriteBytes(payload)

	case EncodingCompressed:
		compressed, err := compress(payload)
		if err != nil {
			return nil, err
		}
		w.WriteBytes(compressed)

	case EncodingAsymEncryption:
		if mat.SignPrivate == nil {
			return nil, ferr.Internal("asym-encrypted container requires a private signing key")
		}
		signed := signBody(payload, mat.SignPrivate)
		w.WriteLenPrefixed(signed)
		w.WriteBytes(payload)

	case EncodingSymEncryption:
		if len(mat.Passphrase) == 0 {
			return nil, ferr.Internal("sym-encrypted container requires a passphrase")
		}
		body, err := sealBody(payload, mat.Passphrase)
		if err != nil {
			return nil, err
		}
		w.WriteLenPrefixed(body.salt)
		w.WriteBytes(body.sessionID[:])
		w.WriteLenPrefixed(body.ciphertext)

	default:
		return nil, ferr.Internal("unknown container encoding")
	}

	if err := w.Err(); err != nil {
		return nil, errors.Wrap(err, "unable to write container body")
	}
	return buf.Bytes(), nil
}

// Decode validates data's header against id and decodes its body
// according to the header's own encoding, returning the recovered
// payload bytes.
func Decode(data []byte, id string, mat Material) (FileHeader, []byte, error) {
	header, rest, err := peekHeader(data, id)
	if err != nil {
		return FileHeader{}, nil, err
	}

	r := wire.NewReader(bytes.NewReader(rest))
	switch header.Encoding {
	case EncodingNone:
		payload := rest
		return header, payload, nil

	case EncodingCompressed:
		payload, err := decompress(rest)
		if err != nil {
			return FileHeader{}, nil, err
		}
		return header, payload, nil

	case EncodingAsymEncryption:
		if mat.SignPublic == nil {
			return FileHeader{}, nil, ferr.Internal("asym-encrypted container requires a public signing key")
		}
		// The signed digest is length-prefixed, but the plaintext
		// payload that follows it is raw trailing bytes (consumed to
		// EOF on encode), so its start is computed directly rather
		// than through wire.Reader, which has no "bytes consumed so
		// far" accessor.
		if len(rest) < 4 {
			return FileHeader{}, nil, errors.New("truncated asym-encrypted container")
		}
		sigLen := binary.LittleEndian.Uint32(rest[:4])
		if uint64(len(rest)) < 4+uint64(sigLen) {
			return FileHeader{}, nil, errors.New("truncated asym-encrypted container")
		}
		signed := rest[4 : 4+sigLen]
		payload := rest[4+sigLen:]
		if err := verifyBody(payload, signed, mat.SignPublic); err != nil {
			return FileHeader{}, nil, err
		}
		return header, payload, nil

	case EncodingSymEncryption:
		salt := r.ReadLenPrefixed()
		sessionID := r.ReadBytes(16)
		ciphertext := r.ReadLenPrefixed()
		if err := r.Err(); err != nil {
			return FileHeader{}, nil, errors.Wrap(err, "unable to read encrypted body")
		}
		var body encryptedBody
		body.salt = salt
		copy(body.sessionID[:], sessionID)
		body.ciphertext = ciphertext
		payload, err := openBody(body, mat.Passphrase)
		if err != nil {
			return FileHeader{}, nil, err
		}
		return header, payload, nil

	default:
		return FileHeader{}, nil, ferr.Internal("unknown container encoding")
	}
}
