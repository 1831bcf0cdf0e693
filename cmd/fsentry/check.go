package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/fsentry/fsentry/pkg/fsentry/integrity"
	"github.com/fsentry/fsentry/pkg/fsentry/scan"
	"github.com/fsentry/fsentry/pkg/fsentry/viewer"
)

var checkConfiguration struct {
	reportOutputPath string
	noReportFile     bool
}

var checkCommand = &cobra.Command{
	Use:   "check",
	Short: "Scan the filesystem and diff it against the baseline database (the integrity-check mode)",
	RunE:  checkMain,
}

func init() {
	flags := checkCommand.Flags()
	flags.StringVar(&checkConfiguration.reportOutputPath, "report-output", "", "Path to write the signed report artifact (defaults alongside the database)")
	flags.BoolVar(&checkConfiguration.noReportFile, "no-report-file", false, "Print the report without persisting a signed report artifact")
}

func checkMain(command *cobra.Command, arguments []string) error {
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

	renderer := viewer.New(os.Stdout, viewer.FromReportingLevel(settings.ReportingLevel))
	renderer.HexHash = settings.HexHash
	if err := renderer.RenderReport(rep); err != nil {
		return errors.Wrap(err, "unable to render report")
	}

	if !checkConfiguration.noReportFile {
		path := checkConfiguration.reportOutputPath
		if path == "" {
			path = settings.DatabasePath + ".report"
		}
		reportBytes, err := encodeReportArtifact(rep, localPair)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, reportBytes, 0o600); err != nil {
			return errors.Wrap(err, "unable to write report artifact")
		}
	}

	exitCode := 0
	for _, genre := range rep.Genres() {
		for _, sr := range rep.Specs(genre) {
			if len(sr.Added()) > 0 || len(sr.Removed()) > 0 || len(sr.Changed()) > 0 {
				exitCode |= exitReportErrors
			}
			if sr.Errors().Len() > 0 {
				exitCode |= exitDatabaseErrors
			}
		}
	}
	if rep.GlobalErrors().Len() > 0 {
		exitCode |= exitDatabaseErrors
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
	return nil
}
