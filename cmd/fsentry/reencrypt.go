package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/fsentry/fsentry/pkg/fsentry/container"
)

var reencryptConfiguration struct {
	artifactPath  string
	identifier    string
	oldPassphrase string
	newPassphrase string
}

// reencryptCommand implements the second of the twin admin operations
// spec §6 names: re-wrapping a symmetric-encryption (EncodingSymEncryption)
// container artifact under fresh passphrase material, distinct from
// change-passphrase (which re-wraps a keyfile's asymmetric private
// half). A site or local key is never involved, since the whole point
// of EncodingSymEncryption is an artifact protected by a passphrase
// directly rather than a signing identity.
var reencryptCommand = &cobra.Command{
	Use:   "re-encrypt",
	Short: "Re-wrap a passphrase-encrypted container artifact under a new passphrase",
	RunE:  reencryptMain,
}

func init() {
	flags := reencryptCommand.Flags()
	flags.StringVar(&reencryptConfiguration.artifactPath, "artifact", "", "Path to the symmetrically encrypted artifact to re-encrypt (required)")
	flags.StringVar(&reencryptConfiguration.identifier, "identifier", container.IdentifierConfig, "Expected container identifier of the artifact")
	flags.StringVar(&reencryptConfiguration.oldPassphrase, "old-passphrase", "", "Current passphrase (prompted for if omitted)")
	flags.StringVar(&reencryptConfiguration.newPassphrase, "new-passphrase", "", "New passphrase (prompted for if omitted)")
	reencryptCommand.MarkFlagRequired("artifact")
}

func reencryptMain(command *cobra.Command, arguments []string) error {
	data, err := os.ReadFile(reencryptConfiguration.artifactPath)
	if err != nil {
		return errors.Wrap(err, "unable to read artifact")
	}

	oldSource := passphraseSource(reencryptConfiguration.oldPassphrase)
	oldPassphrase, err := oldSource("current passphrase")
	if err != nil {
		return errors.Wrap(err, "unable to obtain current passphrase")
	}

	header, payload, err := container.Decode(data, reencryptConfiguration.identifier, container.Material{
		Passphrase: []byte(oldPassphrase),
	})
	if err != nil {
		return err
	}

	newSource := passphraseSource(reencryptConfiguration.newPassphrase)
	newPassphrase, err := newSource("new passphrase")
	if err != nil {
		return errors.Wrap(err, "unable to obtain new passphrase")
	}

	reencoded, err := container.Encode(header.ID, container.EncodingSymEncryption, header.Baggage, payload, container.Material{
		Passphrase: []byte(newPassphrase),
	})
	if err != nil {
		return err
	}

	tmp := reencryptConfiguration.artifactPath + ".tmp"
	if err := os.WriteFile(tmp, reencoded, 0o600); err != nil {
		return errors.Wrap(err, "unable to write re-encrypted artifact")
	}
	return os.Rename(tmp, reencryptConfiguration.artifactPath)
}
