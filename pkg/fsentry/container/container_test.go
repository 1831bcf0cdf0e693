package container

import (
	"bytes"
	"testing"

	"github.com/fsentry/fsentry/pkg/fsentry/wire"
)

func TestPlainRoundTrip(t *testing.T) {
	data, err := Encode(IdentifierReport, EncodingNone, nil, []byte("hello"), Material{})
	if err != nil {
		t.Fatal(err)
	}
	_, payload, err := Decode(data, IdentifierReport, Material{})
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) != "hello" {
		t.Errorf("got %q, want %q", payload, "hello")
	}
}

func TestCompressedRoundTrip(t *testing.T) {
	original := bytes.Repeat([]byte("abcdefgh"), 100)
	data, err := Encode(IdentifierDatabase, EncodingCompressed, nil, original, Material{})
	if err != nil {
		t.Fatal(err)
	}
	if len(data) >= len(original) {
		t.Error("expected the compressed container to be smaller than the repetitive input")
	}
	_, payload, err := Decode(data, IdentifierDatabase, Material{})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(payload, original) {
		t.Error("decompressed payload does not match original")
	}
}

func TestSignedRoundTrip(t *testing.T) {
	pair, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	baggage := []byte("creator=test-host")
	payload := []byte("signed database content")

	data, err := Encode(IdentifierDatabase, EncodingAsymEncryption, baggage, payload, Material{SignPrivate: pair.Private})
	if err != nil {
		t.Fatal(err)
	}

	header, got, err := Decode(data, IdentifierDatabase, Material{SignPublic: pair.Public})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("recovered payload does not match original")
	}
	if !bytes.Equal(header.Baggage, baggage) {
		t.Error("recovered baggage does not match original")
	}
}

func TestSignedRoundTripRejectsTamperedBody(t *testing.T) {
	pair, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	data, err := Encode(IdentifierDatabase, EncodingAsymEncryption, nil, []byte("original"), Material{SignPrivate: pair.Private})
	if err != nil {
		t.Fatal(err)
	}

	tampered := bytes.Replace(data, []byte("original"), []byte("tamperED"), 1)
	if bytes.Equal(tampered, data) {
		t.Fatal("test setup failed to tamper the body")
	}

	if _, _, err := Decode(tampered, IdentifierDatabase, Material{SignPublic: pair.Public}); err == nil {
		t.Error("expected signature verification to fail on a tampered body")
	}
}

func TestSignedRoundTripRejectsWrongKey(t *testing.T) {
	pair, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	other, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	data, err := Encode(IdentifierReport, EncodingAsymEncryption, nil, []byte("x"), Material{SignPrivate: pair.Private})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := Decode(data, IdentifierReport, Material{SignPublic: other.Public}); err == nil {
		t.Error("expected verification to fail against the wrong public key")
	}
}

func TestEncryptedRoundTrip(t *testing.T) {
	passphrase := []byte("correct horse battery staple")
	payload := []byte("#CFGTXT\nverbosity: normal\n")

	data, err := Encode(IdentifierConfig, EncodingSymEncryption, nil, payload, Material{Passphrase: passphrase})
	if err != nil {
		t.Fatal(err)
	}
	_, got, err := Decode(data, IdentifierConfig, Material{Passphrase: passphrase})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("recovered payload does not match original")
	}

	if _, _, err := Decode(data, IdentifierConfig, Material{Passphrase: []byte("wrong passphrase")}); err == nil {
		t.Error("expected decryption to fail with the wrong passphrase")
	}
}

func TestDecodeRejectsMismatchedIdentifier(t *testing.T) {
	data, err := Encode(IdentifierDatabase, EncodingNone, nil, []byte("x"), Material{})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := Decode(data, IdentifierReport, Material{}); err == nil {
		t.Error("expected a mismatched identifier to be rejected")
	}
}

func TestKeyfileRoundTrip(t *testing.T) {
	pair, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	kf, err := NewKeyfile(pair, []byte("site passphrase"))
	if err != nil {
		t.Fatal(err)
	}

	data := kf.Bytes()
	reloaded, err := ReadKeyfile(wire.NewReader(bytes.NewReader(data)))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(reloaded.Public[:], pair.Public[:]) {
		t.Error("public key did not round-trip")
	}

	recovered, err := reloaded.Unwrap([]byte("site passphrase"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(recovered.Private[:], pair.Private[:]) {
		t.Error("private key did not round-trip under the correct passphrase")
	}

	if _, err := reloaded.Unwrap([]byte("wrong passphrase")); err == nil {
		t.Error("expected unwrap to fail with the wrong passphrase")
	}
}

func TestKeyfileReencrypt(t *testing.T) {
	pair, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	kf, err := NewKeyfile(pair, []byte("old"))
	if err != nil {
		t.Fatal(err)
	}

	rewrapped, err := kf.Reencrypt([]byte("old"), []byte("new"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rewrapped.Unwrap([]byte("old")); err == nil {
		t.Error("expected the old passphrase to no longer unwrap the reencrypted keyfile")
	}
	recovered, err := rewrapped.Unwrap([]byte("new"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(recovered.Private[:], pair.Private[:]) {
		t.Error("private key did not survive reencryption")
	}
}
