package main

import (
	"bytes"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/fsentry/fsentry/pkg/fsentry/container"
	"github.com/fsentry/fsentry/pkg/fsentry/wire"
)

var changePassphraseConfiguration struct {
	keyfilePath   string
	newPassphrase string
	oldPassphrase string
}

// changePassphraseCommand implements the twin admin operation spec §6
// names alongside re-encrypt: re-wrapping a keyfile's private half
// under a fresh passphrase without touching its public half or any
// artifact it has already signed.
var changePassphraseCommand = &cobra.Command{
	Use:   "change-passphrase",
	Short: "Re-wrap a keyfile's private key under a new passphrase",
	RunE:  changePassphraseMain,
}

func init() {
	flags := changePassphraseCommand.Flags()
	flags.StringVar(&changePassphraseConfiguration.keyfilePath, "keyfile", "", "Path to the keyfile to re-encrypt (required)")
	flags.StringVar(&changePassphraseConfiguration.oldPassphrase, "old-passphrase", "", "Current passphrase (prompted for if omitted)")
	flags.StringVar(&changePassphraseConfiguration.newPassphrase, "new-passphrase", "", "New passphrase (prompted for if omitted)")
	changePassphraseCommand.MarkFlagRequired("keyfile")
}

func changePassphraseMain(command *cobra.Command, arguments []string) error {
	data, err := os.ReadFile(changePassphraseConfiguration.keyfilePath)
	if err != nil {
		return errors.Wrap(err, "unable to read keyfile")
	}
	keyfile, err := container.ReadKeyfile(wire.NewReader(bytes.NewReader(data)))
	if err != nil {
		return errors.Wrap(err, "unable to parse keyfile")
	}

	oldSource := passphraseSource(changePassphraseConfiguration.oldPassphrase)
	oldPassphrase, err := oldSource("current passphrase")
	if err != nil {
		return errors.Wrap(err, "unable to obtain current passphrase")
	}
	newSource := passphraseSource(changePassphraseConfiguration.newPassphrase)
	newPassphrase, err := newSource("new passphrase")
	if err != nil {
		return errors.Wrap(err, "unable to obtain new passphrase")
	}

	rewrapped, err := keyfile.Reencrypt([]byte(oldPassphrase), []byte(newPassphrase))
	if err != nil {
		return errors.Wrap(err, "unable to re-encrypt keyfile")
	}

	tmp := changePassphraseConfiguration.keyfilePath + ".tmp"
	if err := os.WriteFile(tmp, rewrapped.Bytes(), 0o600); err != nil {
		return errors.Wrap(err, "unable to write re-encrypted keyfile")
	}
	return os.Rename(tmp, changePassphraseConfiguration.keyfilePath)
}
