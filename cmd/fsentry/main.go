// Command fsentry is the front end for the host-based file integrity
// monitor implemented by pkg/fsentry: a policy-driven scanner, a
// signed baseline database, a differencing report engine, a
// policy-update reconciler, and a text viewer, wrapped in the signed
// container format (spec §4.11, §6).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fsentry/fsentry/pkg/fsentry/config"
	"github.com/fsentry/fsentry/pkg/fsentry/fconame"
	"github.com/fsentry/fsentry/pkg/fsentry/logging"
)

// globalConfiguration holds the non-policy CLI globals spec §6 names,
// merged from a config.Settings file and overriding command-line flags.
var globalConfiguration struct {
	configPath     string
	siteKeyPath    string
	localKeyPath   string
	sitePassphrase string
	localPassword  string
	verbosity      string
	reportLevel    int
	hexHash        bool
	caseInsensitive bool
}

var rootCommand = &cobra.Command{
	Use:   "fsentry",
	Short: "fsentry detects and reports unauthorized changes to a filesystem against a signed baseline",
}

func init() {
	flags := rootCommand.PersistentFlags()
	flags.StringVar(&globalConfiguration.configPath, "config", "fsentry.yml", "Path to the configuration file")
	flags.StringVar(&globalConfiguration.siteKeyPath, "site-keyfile", "", "Path to the site keyfile (overrides configuration)")
	flags.StringVar(&globalConfiguration.localKeyPath, "local-keyfile", "", "Path to the local keyfile (overrides configuration)")
	flags.StringVar(&globalConfiguration.sitePassphrase, "site-passphrase", "", "Site keyfile passphrase (for automation; prompted for otherwise)")
	flags.StringVar(&globalConfiguration.localPassword, "local-passphrase", "", "Local keyfile passphrase (for automation; prompted for otherwise)")
	flags.StringVar(&globalConfiguration.verbosity, "verbosity", "", "Logging verbosity: silent, normal, or verbose (overrides configuration)")
	flags.IntVar(&globalConfiguration.reportLevel, "report-level", -1, "Report/database rendering detail, 0-4 (overrides configuration)")
	flags.BoolVar(&globalConfiguration.hexHash, "hex", false, "Render hash properties as hex instead of base64")
	flags.BoolVar(&globalConfiguration.caseInsensitive, "case-insensitive", false, "Compare path components case-insensitively")

	cobra.EnableCommandSorting = false

	rootCommand.AddCommand(
		initCommand,
		checkCommand,
		updateDBCommand,
		updatePolicyCommand,
		printReportCommand,
		printDBCommand,
		changePassphraseCommand,
		reencryptCommand,
	)
}

// loadSettings merges a config.Settings file with command-line
// overrides, matching the teacher's "load default, merge file, merge
// flags" configuration layering.
func loadSettings() (*config.Settings, error) {
	settings, err := config.Load(globalConfiguration.configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		settings = config.Default()
	}

	if globalConfiguration.siteKeyPath != "" {
		settings.SiteKeyPath = globalConfiguration.siteKeyPath
	}
	if globalConfiguration.localKeyPath != "" {
		settings.LocalKeyPath = globalConfiguration.localKeyPath
	}
	if globalConfiguration.verbosity != "" {
		switch globalConfiguration.verbosity {
		case "silent":
			settings.Verbosity = config.Silent
		case "verbose":
			settings.Verbosity = config.Verbose
		default:
			settings.Verbosity = config.Normal
		}
	}
	if globalConfiguration.reportLevel >= 0 {
		settings.ReportingLevel = globalConfiguration.reportLevel
	}
	if globalConfiguration.hexHash {
		settings.HexHash = true
	}
	return settings, nil
}

func loggerFor(settings *config.Settings) *logging.Logger {
	level, _ := logging.NameToLevel(settings.Verbosity.String())
	return logging.NewRoot(level)
}

func newTable() *fconame.Table {
	policy := fconame.CaseSensitive
	if globalConfiguration.caseInsensitive {
		policy = fconame.CaseInsensitive
	}
	return fconame.NewTable(policy, false)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitGenericFailure)
	}
}
