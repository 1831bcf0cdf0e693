package container

import (
	"crypto/rand"
	"io"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"

	"github.com/fsentry/fsentry/pkg/fsentry/ferr"
)

// scrypt cost parameters. N must be a power of two; these match the
// values golang.org/x/crypto/scrypt's own documentation recommends for
// interactive (as opposed to archival) use, appropriate for a
// passphrase entered once at the start of a CLI run.
const (
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
	keyLen  = 32
	saltLen = 16
	nonceLen = 24
)

// deriveKey stretches passphrase into a 32-byte secretbox key using
// scrypt, salted per artifact so two artifacts encrypted under the same
// passphrase don't share a key.
func deriveKey(passphrase []byte, salt []byte) (*[32]byte, error) {
	derived, err := scrypt.Key(passphrase, salt, scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return nil, errors.Wrap(err, "unable to derive key from passphrase")
	}
	var key [32]byte
	copy(key[:], derived)
	return &key, nil
}

// encryptedBody is the wire shape of a SYM_ENCRYPTION body: a salt for
// key derivation, a session nonce (the uuid.v4 session identifier
// SPEC_FULL's domain-stack wiring calls for, stretched to the
// secretbox nonce width), and the sealed ciphertext.
type encryptedBody struct {
	salt       []byte
	sessionID  uuid.UUID
	ciphertext []byte
}

func sealBody(plaintext, passphrase []byte) (encryptedBody, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return encryptedBody{}, errors.Wrap(err, "unable to generate salt")
	}
	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return encryptedBody{}, err
	}

	sessionID := uuid.New()
	var nonce [nonceLen]byte
	copy(nonce[:], sessionID[:])

	sealed := secretbox.Seal(nil, plaintext, &nonce, key)
	return encryptedBody{salt: salt, sessionID: sessionID, ciphertext: sealed}, nil
}

func openBody(body encryptedBody, passphrase []byte) ([]byte, error) {
	key, err := deriveKey(passphrase, body.salt)
	if err != nil {
		return nil, err
	}
	var nonce [nonceLen]byte
	copy(nonce[:], body.sessionID[:])

	plaintext, ok := secretbox.Open(nil, body.ciphertext, &nonce, key)
	if !ok {
		return nil, ferr.WrongPassphrase()
	}
	return plaintext, nil
}
