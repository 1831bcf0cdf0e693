// Package config holds the non-policy settings spec §6 lists as CLI
// globals, so they can be supplied by a YAML file as well as flags.
// Policy rules themselves live in pkg/fsentry/policy; this package only
// ever carries the knobs a front end needs before it can even parse a
// policy file (which keyfiles to use, how chatty to be, how to render
// output).
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Verbosity is the core's three-level chattiness switch (spec §6).
type Verbosity int

const (
	Normal Verbosity = iota
	Silent
	Verbose
)

func (v Verbosity) String() string {
	switch v {
	case Silent:
		return "silent"
	case Verbose:
		return "verbose"
	default:
		return "normal"
	}
}

// UnmarshalYAML decodes any of "silent", "normal", "verbose".
func (v *Verbosity) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	switch s {
	case "", "normal":
		*v = Normal
	case "silent":
		*v = Silent
	case "verbose":
		*v = Verbose
	default:
		return fmt.Errorf("unrecognized verbosity %q", s)
	}
	return nil
}

func (v Verbosity) MarshalYAML() (interface{}, error) {
	return v.String(), nil
}

// Settings is the global YAML configuration object, covering every
// non-policy CLI global named in spec §6.
type Settings struct {
	// Verbosity controls how chatty error/progress reporting is.
	Verbosity Verbosity `yaml:"verbosity"`
	// SiteKeyPath is the path to the site keyfile (policy/config signing).
	SiteKeyPath string `yaml:"siteKeyPath"`
	// LocalKeyPath is the path to the local keyfile (database/report signing).
	LocalKeyPath string `yaml:"localKeyPath"`
	// DatabasePath is the path to the signed database container.
	DatabasePath string `yaml:"databasePath"`
	// PolicyPath is the path to the signed policy container.
	PolicyPath string `yaml:"policyPath"`
	// ReportingLevel selects RenderReport/RenderDatabase's detail level
	// (0-4, mapped via viewer.FromReportingLevel).
	ReportingLevel int `yaml:"reportingLevel"`
	// HexHash selects hex (true) or base64 (false) rendering for hash
	// properties.
	HexHash bool `yaml:"hexHash"`
}

// Default returns the settings a freshly-initialized site uses absent
// any config file: normal verbosity, reporting level 3 (Concise), hex
// hash rendering, keyfile paths alongside the config file itself.
func Default() *Settings {
	return &Settings{
		Verbosity:      Normal,
		SiteKeyPath:    "site.key",
		LocalKeyPath:   "local.key",
		DatabasePath:   "fsentry.db",
		PolicyPath:     "fsentry.pol",
		ReportingLevel: 3,
		HexHash:        true,
	}
}

// Load reads and strictly decodes a YAML settings file at path. A
// missing file is reported via the underlying os.IsNotExist error so
// callers can fall back to Default() without treating "no config file
// yet" as a hard failure, matching the teacher's
// pkg/configuration/global.LoadConfiguration contract.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, errors.Wrap(err, "unable to read configuration file")
	}

	result := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(result); err != nil {
		return nil, errors.Wrap(err, "unable to decode configuration file")
	}
	return result, nil
}

// Save marshals settings and writes them atomically to path with
// user-only permissions, grounded on the teacher's
// filesystem.WriteFileAtomic + encoding.MarshalAndSave pair: write to a
// sibling temporary file, fix permissions, then rename into place so a
// reader never observes a partially-written settings file.
func Save(path string, settings *Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return errors.Wrap(err, "unable to marshal configuration")
	}

	dir := filepath.Dir(path)
	temp, err := os.CreateTemp(dir, ".fsentry-config-*.tmp")
	if err != nil {
		return errors.Wrap(err, "unable to create temporary configuration file")
	}
	tempPath := temp.Name()

	if _, err := temp.Write(data); err != nil {
		temp.Close()
		os.Remove(tempPath)
		return errors.Wrap(err, "unable to write temporary configuration file")
	}
	if err := temp.Close(); err != nil {
		os.Remove(tempPath)
		return errors.Wrap(err, "unable to close temporary configuration file")
	}
	if err := os.Chmod(tempPath, 0600); err != nil {
		os.Remove(tempPath)
		return errors.Wrap(err, "unable to set configuration file permissions")
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return errors.Wrap(err, "unable to install configuration file")
	}
	return nil
}
