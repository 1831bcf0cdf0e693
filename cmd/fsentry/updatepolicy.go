package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/fsentry/fsentry/pkg/fsentry/policyupdate"
	"github.com/fsentry/fsentry/pkg/fsentry/scan"
	"github.com/fsentry/fsentry/pkg/fsentry/viewer"
)

var updatePolicyConfiguration struct {
	newPolicyPath   string
	secureMode      bool
	eraseFootprints bool
}

var updatePolicyCommand = &cobra.Command{
	Use:   "update-policy",
	Short: "Reconcile a new rule set against the existing database without a full rescan",
	RunE:  updatePolicyMain,
}

func init() {
	flags := updatePolicyCommand.Flags()
	flags.StringVar(&updatePolicyConfiguration.newPolicyPath, "new-policy", "", "Path to the new policy source file (required)")
	flags.BoolVar(&updatePolicyConfiguration.secureMode, "secure", false, "Abort the whole update, leaving the database untouched, if any conflict is detected")
	flags.BoolVar(&updatePolicyConfiguration.eraseFootprints, "erase-footprints", false, "Best-effort restore of access/modification times disturbed by the targeted rescan")
	updatePolicyCommand.MarkFlagRequired("new-policy")
}

func updatePolicyMain(command *cobra.Command, arguments []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	table := newTable()

	siteSource := passphraseSource(globalConfiguration.sitePassphrase)
	sitePair, err := loadKeyPair(settings.SiteKeyPath, "site keyfile", siteSource)
	if err != nil {
		return err
	}
	policyData, err := os.ReadFile(settings.PolicyPath)
	if err != nil {
		return errors.Wrap(err, "unable to read policy artifact")
	}
	oldRules, err := decodePolicyArtifact(policyData, table, sitePair.Public)
	if err != nil {
		return err
	}

	newRules, err := LoadRuleList(updatePolicyConfiguration.newPolicyPath, table, '/')
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
	next, rep, err := policyupdate.Reconcile(tree, oldRules, newRules, scanner, policyupdate.Options{
		SecureMode:      updatePolicyConfiguration.secureMode,
		EraseFootprints: updatePolicyConfiguration.eraseFootprints,
	})
	if err != nil {
		return err
	}

	for _, conflict := range rep.Conflicts() {
		fmt.Fprintln(os.Stderr, "conflict:", viewer.RenderName(conflict.Name))
	}
	if updatePolicyConfiguration.secureMode && rep.HasConflicts() {
		return errors.New("policy update aborted: conflicts detected in secure mode")
	}

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

	newPolicyBytes, err := encodePolicyArtifact(newRules, sitePair)
	if err != nil {
		return err
	}
	if err := os.WriteFile(settings.PolicyPath, newPolicyBytes, 0o600); err != nil {
		return errors.Wrap(err, "unable to write updated policy artifact")
	}
	return nil
}
