package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadNonExistentReturnsUnderlyingNotExistError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yml"))
	require.Error(t, err)
	require.True(t, os.IsNotExist(err))
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	settings := &Settings{
		Verbosity:      Verbose,
		SiteKeyPath:    "/etc/fsentry/site.key",
		LocalKeyPath:   "/etc/fsentry/local.key",
		ReportingLevel: 4,
		HexHash:        false,
	}
	require.NoError(t, Save(path, settings))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings, loaded)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("verbosity: normal\nbogusField: true\n"), 0600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestDefaultProvidesUsableSettings(t *testing.T) {
	d := Default()
	require.Equal(t, Normal, d.Verbosity)
	require.True(t, d.HexHash)
	require.NotEmpty(t, d.SiteKeyPath)
	require.NotEmpty(t, d.LocalKeyPath)
	require.NotEmpty(t, d.DatabasePath)
	require.NotEmpty(t, d.PolicyPath)
}
