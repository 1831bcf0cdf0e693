package container

import (
	"crypto/rand"
	"crypto/sha256"

	"github.com/pkg/errors"
	"golang.org/x/crypto/nacl/sign"

	"github.com/fsentry/fsentry/pkg/fsentry/ferr"
)

// KeyPair is one of the two signing identities spec §6 names: the site
// keyfile and the local keyfile. Public is always present; Private is
// nil unless the passphrase-wrapped half has been unwrapped for
// signing (spec §6: "the core never persists an unwrapped private
// key").
type KeyPair struct {
	Public  *[32]byte
	Private *[64]byte
}

// GenerateKeyPair creates a new signing identity.
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := sign.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "unable to generate signing keypair")
	}
	return &KeyPair{Public: pub, Private: priv}, nil
}

// signBody produces the fixed-size signed digest of an asym-encrypted
// body: a nacl/sign-signed copy of a sha256 digest of the plaintext body
// (spec §4.11: "writes plaintext through a streaming writer that also
// feeds a hash state; on finish it appends a signature over the hash").
func signBody(plaintext []byte, priv *[64]byte) []byte {
	digest := sha256.Sum256(plaintext)
	return sign.Sign(nil, digest[:], priv)
}

// verifyBody checks a signed digest against plaintext's own hash,
// returning an error if the signature doesn't verify or the digest
// doesn't match — either case means "any byte change to the body or
// signature invalidates verification" (spec §4.11).
func verifyBody(plaintext []byte, signedDigest []byte, pub *[32]byte) error {
	opened, ok := sign.Open(nil, signedDigest, pub)
	if !ok {
		return ferr.BadSignature("")
	}
	want := sha256.Sum256(plaintext)
	if len(opened) != len(want) || string(opened) != string(want[:]) {
		return ferr.BadSignature("")
	}
	return nil
}
