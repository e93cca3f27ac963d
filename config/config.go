// Package config resolves where the catalog, ledger and account database live
// and how loudly to log.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	DataDir      string // directory the relative file names below resolve in
	CatalogFile  string
	LedgerFile   string
	DatabaseFile string
	LogLevel     string // debug, info, warn or error
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		DataDir:      ".",
		CatalogFile:  "books.txt",
		LedgerFile:   "People.txt",
		DatabaseFile: "library.db",
		LogLevel:     "info",
	}
}

// Load applies defaults, then an optional .env file, then LIBRARY_*
// environment variables. Flags are bound on top by the CLI.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := Default()
	cfg.DataDir = getEnv("LIBRARY_DATA_DIR", cfg.DataDir)
	cfg.CatalogFile = getEnv("LIBRARY_CATALOG_FILE", cfg.CatalogFile)
	cfg.LedgerFile = getEnv("LIBRARY_LEDGER_FILE", cfg.LedgerFile)
	cfg.DatabaseFile = getEnv("LIBRARY_DB_FILE", cfg.DatabaseFile)
	cfg.LogLevel = getEnv("LIBRARY_LOG_LEVEL", cfg.LogLevel)
	return cfg, nil
}

// Validate rejects empty file names and unknown log levels.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.CatalogFile) == "" || strings.TrimSpace(c.LedgerFile) == "" || strings.TrimSpace(c.DatabaseFile) == "" {
		return errors.New("catalog, ledger and database file names must not be empty")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return l, nil
}

func (c *Config) CatalogPath() string  { return c.resolve(c.CatalogFile) }
func (c *Config) LedgerPath() string   { return c.resolve(c.LedgerFile) }
func (c *Config) DatabasePath() string { return c.resolve(c.DatabaseFile) }

func (c *Config) resolve(name string) string {
	if filepath.IsAbs(name) || c.DataDir == "" {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// String returns a one-line summary for debug logging.
func (c *Config) String() string {
	return fmt.Sprintf("Config{catalog: %s, ledger: %s, db: %s, log: %s}",
		c.CatalogPath(), c.LedgerPath(), c.DatabasePath(), c.LogLevel)
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
