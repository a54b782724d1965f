package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath is the environment variable for explicit config path
	EnvConfigPath = "SMISCOPE_CONFIG"
	// ConfigFileName is the default config file name
	ConfigFileName = "smiscope.yaml"
	// ConfigDirName is the config directory name under XDG
	ConfigDirName = "smiscope"
	// ProfilesDirName is the directory of profile overrides next to a config file
	ProfilesDirName = "profiles"

	installedConfigName = "config.yaml"
)

// configDirs returns the installed config locations, highest priority first:
// $XDG_CONFIG_HOME/smiscope, ~/.config/smiscope, /etc/smiscope
func configDirs() []string {
	var dirs []string
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		dirs = append(dirs, filepath.Join(xdgHome, ConfigDirName))
	}
	if home := os.Getenv("HOME"); home != "" {
		dirs = append(dirs, filepath.Join(home, ".config", ConfigDirName))
	}
	return append(dirs, filepath.Join("/etc", ConfigDirName))
}

// FindConfigPath searches for config file in priority order:
// 1. $SMISCOPE_CONFIG (explicit path)
// 2. ./smiscope.yaml (working directory)
// 3. config.yaml in each of configDirs
//
// Returns empty string if no config file found
func FindConfigPath() string {
	if path := os.Getenv(EnvConfigPath); path != "" && fileExists(path) {
		return path
	}

	if fileExists(ConfigFileName) {
		if abs, err := filepath.Abs(ConfigFileName); err == nil {
			return abs
		}
		return ConfigFileName
	}

	for _, dir := range configDirs() {
		if path := filepath.Join(dir, installedConfigName); fileExists(path) {
			return path
		}
	}
	return ""
}

// FindProfilesDir returns the profile override directory used when the
// config does not name one: profiles/ next to the config file, then
// profiles/ in each of configDirs. Returns empty string if none exists.
func FindProfilesDir(configPath string) string {
	var dirs []string
	if configPath != "" {
		dirs = append(dirs, filepath.Dir(configPath))
	}
	for _, dir := range append(dirs, configDirs()...) {
		if path := filepath.Join(dir, ProfilesDirName); dirExists(path) {
			return path
		}
	}
	return ""
}

// resolvePaths anchors relative file settings to the config file's directory
// and fills in the profiles directory
func (c *Config) resolvePaths(configPath string) {
	if c.ProfilesDir == "" {
		c.ProfilesDir = FindProfilesDir(configPath)
		return
	}
	if configPath != "" && !filepath.IsAbs(c.ProfilesDir) {
		c.ProfilesDir = filepath.Join(filepath.Dir(configPath), c.ProfilesDir)
	}
}

// DefaultConfigPath returns the preferred location for a new config file.
// Prefers XDG config home, falls back to working directory.
func DefaultConfigPath() string {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, ConfigDirName, installedConfigName)
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", ConfigDirName, installedConfigName)
	}
	return ConfigFileName
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0755)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
