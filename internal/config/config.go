// Package config handles loading and managing orgdex configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the orgdex configuration.
type Config struct {
	Data   DataConfig   `toml:"data"`
	Org    OrgConfig    `toml:"org"`
	Index  IndexConfig  `toml:"index"`
	Server ServerConfig `toml:"server"`

	// Computed at load time, not read from the config file.
	HomeDir string `toml:"-"`
}

// DataConfig holds storage configuration.
type DataConfig struct {
	DataDir      string `toml:"data_dir"`
	DatabasePath string `toml:"database_path"`
}

// OrgConfig holds the org document tree configuration.
type OrgConfig struct {
	// Root is the directory document paths are stored relative to.
	Root string `toml:"root"`
	// IDLocations is the org-id locations file mapping IDs to absolute paths.
	IDLocations string `toml:"id_locations"`
	// ColumnAliases maps column names to display headers for query output.
	ColumnAliases map[string]string `toml:"column_aliases"`
}

// IndexConfig holds indexing configuration.
type IndexConfig struct {
	// Schedule is a cron expression for periodic reindexing while serving.
	// Empty disables scheduled reindexing.
	Schedule string `toml:"schedule"`
}

// ServerConfig holds HTTP API server configuration.
type ServerConfig struct {
	BindAddr string `toml:"bind_addr"` // default 127.0.0.1
	APIPort  int    `toml:"api_port"`  // default 8844
	APIKey   string `toml:"api_key"`   // empty disables auth
}

// DefaultHome returns the default orgdex home directory.
// Respects the ORGDEX_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("ORGDEX_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".orgdex"
	}
	return filepath.Join(home, ".orgdex")
}

// Load reads the configuration from the specified file. If path is empty the
// default location (<home>/config.toml) is used; homeOverride, when non-empty,
// takes precedence over ORGDEX_HOME. A missing config file is not an error:
// defaults are returned.
func Load(path, homeOverride string) (*Config, error) {
	homeDir := DefaultHome()
	if homeOverride != "" {
		homeDir = homeOverride
	}

	if path == "" {
		path = filepath.Join(homeDir, "config.toml")
	}

	cfg := &Config{
		HomeDir: homeDir,
		Data: DataConfig{
			DataDir: homeDir,
		},
		Server: ServerConfig{
			BindAddr: "127.0.0.1",
			APIPort:  8844,
		},
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Data.DataDir = expandPath(cfg.Data.DataDir)
	cfg.Data.DatabasePath = expandPath(cfg.Data.DatabasePath)
	cfg.Org.Root = expandPath(cfg.Org.Root)
	cfg.Org.IDLocations = expandPath(cfg.Org.IDLocations)

	return cfg, nil
}

// EnsureHomeDir creates the home directory if it does not exist.
func (c *Config) EnsureHomeDir() error {
	return os.MkdirAll(c.HomeDir, 0o755)
}

// DatabasePath returns the path to the SQLite database.
func (c *Config) DatabasePath() string {
	if c.Data.DatabasePath != "" {
		return c.Data.DatabasePath
	}
	return filepath.Join(c.Data.DataDir, "orgdex.db")
}

// IDLocationsPath returns the org-id locations file path, defaulting to
// .org-id-locations under the org root.
func (c *Config) IDLocationsPath() string {
	if c.Org.IDLocations != "" {
		return c.Org.IDLocations
	}
	return filepath.Join(c.Org.Root, ".org-id-locations")
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
