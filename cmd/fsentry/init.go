package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/fsentry/fsentry/pkg/fsentry/config"
	"github.com/fsentry/fsentry/pkg/fsentry/container"
	"github.com/fsentry/fsentry/pkg/fsentry/database"
	"github.com/fsentry/fsentry/pkg/fsentry/integrity"
	"github.com/fsentry/fsentry/pkg/fsentry/scan"
)

var initConfiguration struct {
	policyPath string
}

var initCommand = &cobra.Command{
	Use:   "init",
	Short: "Generate site and local keyfiles, apply a policy, and write the initial database",
	RunE:  initMain,
}

func init() {
	flags := initCommand.Flags()
	flags.StringVar(&initConfiguration.policyPath, "policy", "", "Path to the policy source file (required)")
	initCommand.MarkFlagRequired("policy")
}

func initMain(command *cobra.Command, arguments []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	logger := loggerFor(settings)
	table := newTable()

	sitePair, err := container.GenerateKeyPair()
	if err != nil {
		return errors.Wrap(err, "unable to generate site keypair")
	}
	localPair, err := container.GenerateKeyPair()
	if err != nil {
		return errors.Wrap(err, "unable to generate local keypair")
	}

	siteSource := passphraseSource(globalConfiguration.sitePassphrase)
	localSource := passphraseSource(globalConfiguration.localPassword)
	sitePassphrase, err := siteSource("site keyfile")
	if err != nil {
		return errors.Wrap(err, "unable to obtain site keyfile passphrase")
	}
	localPassphrase, err := localSource("local keyfile")
	if err != nil {
		return errors.Wrap(err, "unable to obtain local keyfile passphrase")
	}

	siteKeyfile, err := container.NewKeyfile(sitePair, []byte(sitePassphrase))
	if err != nil {
		return errors.Wrap(err, "unable to wrap site keyfile")
	}
	localKeyfile, err := container.NewKeyfile(localPair, []byte(localPassphrase))
	if err != nil {
		return errors.Wrap(err, "unable to wrap local keyfile")
	}
	if err := os.WriteFile(settings.SiteKeyPath, siteKeyfile.Bytes(), 0o600); err != nil {
		return errors.Wrap(err, "unable to write site keyfile")
	}
	if err := os.WriteFile(settings.LocalKeyPath, localKeyfile.Bytes(), 0o600); err != nil {
		return errors.Wrap(err, "unable to write local keyfile")
	}

	rules, err := LoadRuleList(initConfiguration.policyPath, table, '/')
	if err != nil {
		return err
	}

	tree := database.NewTree(table)
	scanner := scan.New()
	rep := integrity.Check(tree, rules, scanner)
	tree = integrity.Apply(tree, rep)

	policyBaggage, err := encodePolicyArtifact(rules, sitePair)
	if err != nil {
		return err
	}
	if err := os.WriteFile(settings.PolicyPath, policyBaggage, 0o600); err != nil {
		return errors.Wrap(err, "unable to write policy artifact")
	}

	dbBaggage, err := encodeDatabaseArtifact(tree, localPair)
	if err != nil {
		return err
	}
	if err := os.WriteFile(settings.DatabasePath, dbBaggage, 0o600); err != nil {
		return errors.Wrap(err, "unable to write database file")
	}

	if err := config.Save(globalConfiguration.configPath, settings); err != nil {
		return errors.Wrap(err, "unable to write configuration file")
	}

	logger.Info("initialized database at ", settings.DatabasePath)
	return nil
}
