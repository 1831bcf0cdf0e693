package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/fsentry/fsentry/pkg/fsentry/integrity"
	"github.com/fsentry/fsentry/pkg/fsentry/scan"
	"github.com/fsentry/fsentry/pkg/fsentry/viewer"
)

var updateDBConfiguration struct {
	acceptAll bool
}

var updateDBCommand = &cobra.Command{
	Use:   "update-db",
	Short: "Interactively accept or reject detected changes and commit them to the baseline database",
	RunE:  updateDBMain,
}

func init() {
	flags := updateDBCommand.Flags()
	flags.BoolVar(&updateDBConfiguration.acceptAll, "accept-all", false, "Commit every detected change without an interactive review")
}

func updateDBMain(command *cobra.Command, arguments []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	table := newTable()

	sitePublic, err := loadPublicKey(settings.SiteKeyPath, "site keyfile")
	if err != nil {
		return err
	}
	policyData, err := os.ReadFile(settings.PolicyPath)
	if err != nil {
		return errors.Wrap(err, "unable to read policy artifact")
	}
	rules, err := decodePolicyArtifact(policyData, table, sitePublic)
	if err != nil {
		return err
	}

	localSource := passphraseSource(globalConfiguration.localPassword)
	localPair, err := loadKeyPair(settings.LocalKeyPath, "local keyfile", localSource)
	if err != nil {
		return err
	}

	dbData, err := os.ReadFile(settings.DatabasePath)
	if err != nil {
		return errors.Wrap(err, "unable to read database file")
	}
	tree, err := decodeDatabaseArtifact(dbData, table, localPair.Public)
	if err != nil {
		return err
	}

	scanner := scan.New()
	rep := integrity.Check(tree, rules, scanner)

	var accepted = rep
	if !updateDBConfiguration.acceptAll {
		entries := viewer.BuildChecklist(rep)
		if len(entries) == 0 {
			accepted = rep
		} else {
			accepted, err = viewer.EditChecklist(entries)
			if err != nil {
				return err
			}
		}
	}

	next := integrity.Apply(tree, accepted)

	dbBytes, err := encodeDatabaseArtifact(next, localPair)
	if err != nil {
		return err
	}
	tmp := settings.DatabasePath + ".tmp"
	if err := os.WriteFile(tmp, dbBytes, 0o600); err != nil {
		return errors.Wrap(err, "unable to write updated database file")
	}
	if err := os.Rename(tmp, settings.DatabasePath); err != nil {
		return errors.Wrap(err, "unable to commit updated database file")
	}
	return nil
}
