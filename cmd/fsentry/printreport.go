package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/fsentry/fsentry/pkg/fsentry/viewer"
)

var printReportConfiguration struct {
	reportPath string
}

var printReportCommand = &cobra.Command{
	Use:   "print-report",
	Short: "Render a signed report artifact as text",
	RunE:  printReportMain,
}

func init() {
	flags := printReportCommand.Flags()
	flags.StringVar(&printReportConfiguration.reportPath, "report", "", "Path to the signed report artifact (required)")
	printReportCommand.MarkFlagRequired("report")
}

func printReportMain(command *cobra.Command, arguments []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	table := newTable()

	localPublic, err := loadPublicKey(settings.LocalKeyPath, "local keyfile")
	if err != nil {
		return err
	}

	data, err := os.ReadFile(printReportConfiguration.reportPath)
	if err != nil {
		return errors.Wrap(err, "unable to read report artifact")
	}
	rep, err := decodeReportArtifact(data, table, localPublic)
	if err != nil {
		return err
	}

	renderer := viewer.New(os.Stdout, viewer.FromReportingLevel(settings.ReportingLevel))
	renderer.HexHash = settings.HexHash
	return renderer.RenderReport(rep)
}
