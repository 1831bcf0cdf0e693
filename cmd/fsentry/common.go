package main

import (
	"bytes"
	"os"

	"github.com/pkg/errors"

	"github.com/fsentry/fsentry/pkg/fsentry/container"
	"github.com/fsentry/fsentry/pkg/fsentry/database"
	"github.com/fsentry/fsentry/pkg/fsentry/fconame"
	"github.com/fsentry/fsentry/pkg/fsentry/ferr"
	"github.com/fsentry/fsentry/pkg/fsentry/policy"
	"github.com/fsentry/fsentry/pkg/fsentry/prompt"
	"github.com/fsentry/fsentry/pkg/fsentry/report"
	"github.com/fsentry/fsentry/pkg/fsentry/wire"
)

// Exit codes. Spec §6 describes a 1-7 bitwise-orable violation summary
// plus a generic failure code; the three bits below are the
// independent failure classes the core actually distinguishes
// (interactive, database, report/object), leaving 8 for anything this
// front end cannot classify into one of them.
const (
	exitInteractiveErrors = 1 << 0
	exitDatabaseErrors    = 1 << 1
	exitReportErrors      = 1 << 2
	exitGenericFailure    = 8
)

// loadKeyPair reads a keyfile from path and unwraps its private half
// using a passphrase obtained from source.
func loadKeyPair(path, label string, source prompt.PassphraseSource) (*container.KeyPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read %s", label)
	}
	keyfile, err := container.ReadKeyfile(wire.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse %s", label)
	}
	passphrase, err := source(label)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to obtain passphrase for %s", label)
	}
	pair, err := keyfile.Unwrap([]byte(passphrase))
	if err != nil {
		return nil, errors.Wrapf(err, "unable to unwrap %s", label)
	}
	return pair, nil
}

// loadPublicKey reads a keyfile from path and returns only its public
// half, for operations that only ever verify (never sign) an artifact
// and so need no passphrase at all.
func loadPublicKey(path, label string) (*[32]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read %s", label)
	}
	keyfile, err := container.ReadKeyfile(wire.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse %s", label)
	}
	return keyfile.Public, nil
}

// passphraseSource resolves a PassphraseSource from a passphrase flag
// value (--site-passphrase, --local-passphrase, --old-passphrase or
// --new-passphrase): a fixed value when the flag is non-empty (for
// automation, per spec §6), or terminal prompting otherwise.
func passphraseSource(fixed string) prompt.PassphraseSource {
	if fixed != "" {
		return prompt.Fixed(fixed)
	}
	return prompt.FromTerminal
}

// classifyFailure maps an error returned from a core operation to one
// of the exit-code bits, falling back to the generic failure code for
// anything the core's own taxonomy doesn't single out.
func classifyFailure(err error) int {
	var fe *ferr.Error
	if errors.As(err, &fe) {
		switch fe.Kind {
		case ferr.KindInteractive:
			return exitInteractiveErrors
		case ferr.KindEnvelope, ferr.KindCrypto, ferr.KindIO:
			return exitDatabaseErrors
		case ferr.KindSemantic:
			return exitReportErrors
		}
	}
	return exitGenericFailure
}

// encodeDatabaseArtifact serializes tree and wraps it in a signed
// container envelope under the local key, per spec §4.11/§6: the
// database is one of the two artifacts the local key signs.
func encodeDatabaseArtifact(tree *database.Tree, localPair *container.KeyPair) ([]byte, error) {
	payload := database.Serialize(tree)
	return container.Encode(container.IdentifierDatabase, container.EncodingAsymEncryption, nil, payload, container.Material{
		SignPublic:  localPair.Public,
		SignPrivate: localPair.Private,
	})
}

// decodeDatabaseArtifact reverses encodeDatabaseArtifact, validating the
// envelope's signature against the local key's public half before
// parsing the block-file body.
func decodeDatabaseArtifact(data []byte, table *fconame.Table, localPublic *[32]byte) (*database.Tree, error) {
	_, payload, err := container.Decode(data, container.IdentifierDatabase, container.Material{SignPublic: localPublic})
	if err != nil {
		return nil, err
	}
	return database.Deserialize(payload, table)
}

// encodePolicyArtifact serializes rules with the policy magic prefix and
// wraps it in a signed envelope under the site key. The payload is the
// raw 8-byte container.PolicyMagic (with no length prefix) followed by
// the policy.WriteList serialization of the parsed rule list; the
// policy source text itself is not stored.
func encodePolicyArtifact(rules *policy.RuleList, sitePair *container.KeyPair) ([]byte, error) {
	var payload bytes.Buffer
	payload.WriteString(container.PolicyMagic)
	policy.WriteList(wire.NewWriter(&payload), rules)
	return container.Encode(container.IdentifierPolicy, container.EncodingAsymEncryption, nil, payload.Bytes(), container.Material{
		SignPublic:  sitePair.Public,
		SignPrivate: sitePair.Private,
	})
}

// decodePolicyArtifact reverses encodePolicyArtifact.
func decodePolicyArtifact(data []byte, table *fconame.Table, sitePublic *[32]byte) (*policy.RuleList, error) {
	_, payload, err := container.Decode(data, container.IdentifierPolicy, container.Material{SignPublic: sitePublic})
	if err != nil {
		return nil, err
	}
	if len(payload) < len(container.PolicyMagic) || string(payload[:len(container.PolicyMagic)]) != container.PolicyMagic {
		return nil, ferr.BadMagic("policy artifact")
	}
	return policy.ReadList(wire.NewReader(bytes.NewReader(payload[len(container.PolicyMagic):])), table)
}

// encodeReportArtifact serializes rep and wraps it in a signed envelope
// under the local key (spec §4.11/§6: reports are the other artifact
// the local key signs).
func encodeReportArtifact(rep *report.Report, localPair *container.KeyPair) ([]byte, error) {
	var payload bytes.Buffer
	rep.Write(wire.NewWriter(&payload))
	return container.Encode(container.IdentifierReport, container.EncodingAsymEncryption, nil, payload.Bytes(), container.Material{
		SignPublic:  localPair.Public,
		SignPrivate: localPair.Private,
	})
}

// decodeReportArtifact reverses encodeReportArtifact.
func decodeReportArtifact(data []byte, table *fconame.Table, localPublic *[32]byte) (*report.Report, error) {
	header, payload, err := container.Decode(data, container.IdentifierReport, container.Material{SignPublic: localPublic})
	if err != nil {
		return nil, err
	}
	return report.Read(wire.NewReader(bytes.NewReader(payload)), table, header.Version)
}

