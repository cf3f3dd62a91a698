// Package configfile manages the .daybook workspace directory: the
// metadata.json file that pins the database location, and the config.yaml
// file holding user-editable import defaults.
package configfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DirName is the workspace directory created by `daybook init`.
const DirName = ".daybook"

// ConfigFileName holds workspace metadata that tools need before the
// database is opened.
const ConfigFileName = "metadata.json"

// YAMLFileName holds the user-editable defaults.
const YAMLFileName = "config.yaml"

// Config is the workspace metadata.
type Config struct {
	Database  string `json:"database"`
	BackupDir string `json:"backup_dir,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

// DefaultConfig returns the metadata written by init.
func DefaultConfig() *Config {
	return &Config{
		Database:  "daybook.db",
		BackupDir: "backups",
	}
}

// ConfigPath returns the metadata file path inside the workspace dir.
func ConfigPath(daybookDir string) string {
	return filepath.Join(daybookDir, ConfigFileName)
}

// Load reads the workspace metadata. A missing file returns (nil, nil) so
// callers can distinguish "no workspace" from a broken one.
func Load(daybookDir string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(daybookDir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes the workspace metadata, creating the directory if needed.
func (c *Config) Save(daybookDir string) error {
	if err := os.MkdirAll(daybookDir, 0o750); err != nil {
		return fmt.Errorf("creating workspace directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(ConfigPath(daybookDir), data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// DatabasePath resolves the configured database file inside the workspace.
func (c *Config) DatabasePath(daybookDir string) string {
	if c.Database == "" {
		return filepath.Join(daybookDir, "daybook.db")
	}
	return filepath.Join(daybookDir, c.Database)
}

// BackupPath resolves the configured backup directory inside the workspace.
func (c *Config) BackupPath(daybookDir string) string {
	dir := c.BackupDir
	if dir == "" {
		dir = "backups"
	}
	return filepath.Join(daybookDir, dir)
}

// LocalConfig is the user-editable defaults file, read directly with the
// YAML parser so comments and unusual indentation survive.
type LocalConfig struct {
	Strategy         string `yaml:"strategy"`
	PreserveIDs      *bool  `yaml:"preserve-ids"`
	UpdateReferences *bool  `yaml:"update-references"`
	CreateBackup     *bool  `yaml:"create-backup"`
	DefaultResolution string `yaml:"default-resolution"`
}

// LoadLocalConfig reads config.yaml from the workspace directory. A missing
// or unparseable file yields an empty LocalConfig, never nil.
func LoadLocalConfig(daybookDir string) *LocalConfig {
	data, err := os.ReadFile(filepath.Join(daybookDir, YAMLFileName))
	if err != nil {
		return &LocalConfig{}
	}
	var cfg LocalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return &LocalConfig{}
	}
	return &cfg
}

// FindWorkspace walks up from dir looking for a .daybook directory.
func FindWorkspace(dir string) (string, bool) {
	for {
		candidate := filepath.Join(dir, DirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
