package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"LIBRARY_DATA_DIR",
	"LIBRARY_CATALOG_FILE",
	"LIBRARY_LEDGER_FILE",
	"LIBRARY_DB_FILE",
	"LIBRARY_LOG_LEVEL",
}

// clearEnv unsets every LIBRARY_* variable for the test and restores them
// afterwards, including values godotenv sets.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "books.txt", cfg.CatalogPath())
	assert.Equal(t, "People.txt", cfg.LedgerPath())
	assert.Equal(t, "library.db", cfg.DatabasePath())
}

func TestLoadMissingEnvFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadEnvFileAndEnvironment(t *testing.T) {
	clearEnv(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"LIBRARY_DATA_DIR=/srv/library\n"+
			"LIBRARY_CATALOG_FILE=catalog.txt\n"+
			"LIBRARY_LOG_LEVEL=debug\n"), 0o644))

	// The process environment wins over the file.
	t.Setenv("LIBRARY_LOG_LEVEL", "warn")

	cfg, err := Load(envFile)
	require.NoError(t, err)

	want := &Config{
		DataDir:      "/srv/library",
		CatalogFile:  "catalog.txt",
		LedgerFile:   "People.txt",
		DatabaseFile: "library.db",
		LogLevel:     "warn",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, filepath.Join("/srv/library", "catalog.txt"), cfg.CatalogPath())
}

func TestResolveKeepsAbsolutePaths(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "data"
	cfg.DatabaseFile = "/var/lib/library.db"

	assert.Equal(t, filepath.Join("data", "People.txt"), cfg.LedgerPath())
	assert.Equal(t, "/var/lib/library.db", cfg.DatabasePath())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"upper case level", func(c *Config) { c.LogLevel = "ERROR" }, false},
		{"unknown level", func(c *Config) { c.LogLevel = "chatty" }, true},
		{"empty catalog", func(c *Config) { c.CatalogFile = " " }, true},
		{"empty database", func(c *Config) { c.DatabaseFile = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "debug"
	l, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, l)
}
