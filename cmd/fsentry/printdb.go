package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/fsentry/fsentry/pkg/fsentry/viewer"
)

var printDBConfiguration struct {
	databasePath string
}

var printDBCommand = &cobra.Command{
	Use:   "print-db",
	Short: "Render a signed database artifact as text",
	RunE:  printDBMain,
}

func init() {
	flags := printDBCommand.Flags()
	flags.StringVar(&printDBConfiguration.databasePath, "database", "", "Path to the signed database artifact (defaults to the configured database path)")
}

func printDBMain(command *cobra.Command, arguments []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	table := newTable()

	localPublic, err := loadPublicKey(settings.LocalKeyPath, "local keyfile")
	if err != nil {
		return err
	}

	path := printDBConfiguration.databasePath
	if path == "" {
		path = settings.DatabasePath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "unable to read database artifact")
	}
	tree, err := decodeDatabaseArtifact(data, table, localPublic)
	if err != nil {
		return err
	}

	renderer := viewer.New(os.Stdout, viewer.FromReportingLevel(settings.ReportingLevel))
	renderer.HexHash = settings.HexHash
	return renderer.RenderDatabase(tree, table, '/')
}
