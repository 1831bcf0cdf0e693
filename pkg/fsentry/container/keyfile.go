package container

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/fsentry/fsentry/pkg/fsentry/wire"
)

// Keyfile is the on-disk shape of the site and local keyfiles spec §6
// names: a public key in the clear, and a private key encrypted under a
// passphrase-derived symmetric key. "The core never persists an
// unwrapped private key" — Unwrap only recovers Private when the caller
// supplies the right passphrase, and Write only ever persists the
// wrapped form.
type Keyfile struct {
	Public         *[32]byte
	wrappedPrivate encryptedBody
}

// NewKeyfile wraps pair's private half under passphrase, producing a
// Keyfile ready to persist.
func NewKeyfile(pair *KeyPair, passphrase []byte) (*Keyfile, error) {
	wrapped, err := sealBody(pair.Private[:], passphrase)
	if err != nil {
		return nil, err
	}
	return &Keyfile{Public: pair.Public, wrappedPrivate: wrapped}, nil
}

// Write serializes the keyfile.
func (k *Keyfile) Write(w *wire.Writer) {
	w.WriteBytes(k.Public[:])
	w.WriteLenPrefixed(k.wrappedPrivate.salt)
	w.WriteBytes(k.wrappedPrivate.sessionID[:])
	w.WriteLenPrefixed(k.wrappedPrivate.ciphertext)
}

// ReadKeyfile decodes a Keyfile's public half and wrapped private half
// without unwrapping the latter.
func ReadKeyfile(r *wire.Reader) (*Keyfile, error) {
	public := r.ReadBytes(32)
	salt := r.ReadLenPrefixed()
	sessionID := r.ReadBytes(16)
	ciphertext := r.ReadLenPrefixed()
	if err := r.Err(); err != nil {
		return nil, errors.Wrap(err, "unable to read keyfile")
	}
	var pub [32]byte
	copy(pub[:], public)
	var body encryptedBody
	body.salt = salt
	copy(body.sessionID[:], sessionID)
	body.ciphertext = ciphertext
	return &Keyfile{Public: &pub, wrappedPrivate: body}, nil
}

// Unwrap recovers the private key using passphrase, returning
// ferr.WrongPassphrase if it does not match.
func (k *Keyfile) Unwrap(passphrase []byte) (*KeyPair, error) {
	plain, err := openBody(k.wrappedPrivate, passphrase)
	if err != nil {
		return nil, err
	}
	var priv [64]byte
	copy(priv[:], plain)
	return &KeyPair{Public: k.Public, Private: &priv}, nil
}

// Reencrypt rewraps the keyfile's private half under a new passphrase,
// unwrapping it with the old one first. Used by the "change-passphrase"
// admin operation (spec §6).
func (k *Keyfile) Reencrypt(oldPassphrase, newPassphrase []byte) (*Keyfile, error) {
	pair, err := k.Unwrap(oldPassphrase)
	if err != nil {
		return nil, err
	}
	return NewKeyfile(pair, newPassphrase)
}

// Bytes serializes the keyfile to a standalone byte slice, the form it
// is written to disk in (keyfiles are not wrapped in the FileHeader
// envelope — they are their own fixed two-part format, spec §6).
func (k *Keyfile) Bytes() []byte {
	var buf bytes.Buffer
	k.Write(wire.NewWriter(&buf))
	return buf.Bytes()
}
