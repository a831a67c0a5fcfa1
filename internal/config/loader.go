package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Environment variables that override rc file values.
const (
	EnvServer = "BOXMARK_SERVER"
	EnvListen = "BOXMARK_LISTEN"
	EnvDB     = "BOXMARK_DB"
	EnvTheme  = "BOXMARK_THEME"
)

// Loader handles loading the configuration.
type Loader struct {
	Version      string // Build version, used to determine dev mode
	OverridePath string // Set at compile time if needed
	EnvFile      string // Optional dotenv file, ".env" by default
}

// NewLoader creates a new Loader.
func NewLoader(version string, overridePath string) *Loader {
	return &Loader{
		Version:      version,
		OverridePath: overridePath,
		EnvFile:      ".env",
	}
}

// Load reads the rc file, if any, and then applies the environment.
func (l *Loader) Load() (*Config, error) {
	cfg := New()
	if path := l.GetConfigPath(); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if cfg, err = Parse(f); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := l.loadEnvFile(); err != nil {
		return nil, err
	}
	ApplyEnv(cfg)
	return cfg, nil
}

// loadEnvFile loads KEY=value pairs without overriding variables that are
// already set. A missing file is not an error.
func (l *Loader) loadEnvFile() error {
	if l.EnvFile == "" {
		return nil
	}
	if err := godotenv.Load(l.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", l.EnvFile, err)
	}
	return nil
}

// ApplyEnv overrides cfg with any BOXMARK_* variables that are set.
func ApplyEnv(cfg *Config) {
	for env, dst := range map[string]*string{
		EnvServer: &cfg.Server,
		EnvListen: &cfg.Listen,
		EnvDB:     &cfg.DB,
		EnvTheme:  &cfg.Theme,
	} {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			*dst = v
		}
	}
}

// GetConfigPath returns the path to the configuration file, or empty string if not found.
func (l *Loader) GetConfigPath() string {
	if l.OverridePath != "" {
		if _, err := os.Stat(l.OverridePath); err == nil {
			return l.OverridePath
		}
	}

	// Local run directory (dev mode)
	if l.Version == "dev" {
		wd, _ := os.Getwd()
		localPath := filepath.Join(wd, ".boxmarkrc")
		if _, err := os.Stat(localPath); err == nil {
			return localPath
		}
	}

	home, _ := os.UserHomeDir()
	for _, name := range []string{"config.rc", "boxmark.rc"} {
		p := filepath.Join(home, ".config", "boxmark", name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// DefaultConfigPath is where "config save" writes when no file exists yet.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "boxmark", "config.rc")
}

// Save writes cfg to path in RC format, creating the directory.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(cfg.String()), 0o644)
}
