// Package config provides configuration management for smiscope.
//
// The config file names the SMI-S providers to discover and the credentials
// to reach them; the database holds what discovery found and can be reset.
//
// Config file locations (priority order):
//  1. $SMISCOPE_CONFIG
//  2. ./smiscope.yaml
//  3. $XDG_CONFIG_HOME/smiscope/config.yaml
//  4. ~/.config/smiscope/config.yaml
//  5. /etc/smiscope/config.yaml
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"smiscope/internal/domain"
)

// ErrUnknownTarget is returned when a target or secret name is not configured
var ErrUnknownTarget = errors.New("unknown target")

// ProfileAuto asks discovery to detect the vendor profile from the interop namespace
const ProfileAuto = "auto"

const (
	defaultNamespace        = "root/cimv2"
	defaultInteropNamespace = "interop"
	defaultDatabasePath     = "./smiscope.db"
	defaultHTTPAddr         = ":3000"
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		// No config found - return defaults
		cfg := DefaultConfig()
		cfg.resolvePaths("")
		return cfg, "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.resolvePaths(path)
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	return &Config{
		Version:   1,
		LogLevel:  "info",
		LogFormat: "text",
		Posture:   PostureBalanced,
		Database:  DatabaseConfig{Path: defaultDatabasePath},
		HTTP:      HTTPConfig{Addr: defaultHTTPAddr},
	}
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.Posture == "" {
		c.Posture = PostureBalanced
	}
	if c.Database.Path == "" {
		c.Database.Path = defaultDatabasePath
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = defaultHTTPAddr
	}
	for i := range c.Targets {
		t := &c.Targets[i]
		if t.Namespace == "" {
			t.Namespace = defaultNamespace
		}
		if t.InteropNamespace == "" {
			t.InteropNamespace = defaultInteropNamespace
		}
		if t.Profile == "" {
			t.Profile = ProfileAuto
		}
	}
}

// Validate checks names are unique and references point at declared secrets
func (c *Config) Validate() error {
	secrets := make(map[string]bool, len(c.Secrets))
	for _, s := range c.Secrets {
		if s.ID == "" {
			return errors.New("config: secret id is required")
		}
		if secrets[s.ID] {
			return fmt.Errorf("config: duplicate secret %q", s.ID)
		}
		secrets[s.ID] = true
	}

	names := make(map[string]bool, len(c.Targets))
	for _, t := range c.Targets {
		if t.Name == "" {
			return errors.New("config: target name is required")
		}
		if names[t.Name] {
			return fmt.Errorf("config: duplicate target %q", t.Name)
		}
		names[t.Name] = true
		if t.URL == "" {
			return fmt.Errorf("config: target %s: url is required", t.Name)
		}
		if t.Secret != "" && !secrets[t.Secret] {
			return fmt.Errorf("config: target %s: undeclared secret %q", t.Name, t.Secret)
		}
		if t.Tunnel != nil {
			if t.Tunnel.Addr == "" {
				return fmt.Errorf("config: target %s: tunnel addr is required", t.Name)
			}
			if !secrets[t.Tunnel.Secret] {
				return fmt.Errorf("config: target %s: undeclared tunnel secret %q", t.Name, t.Tunnel.Secret)
			}
		}
	}
	return nil
}

// EffectiveBehavior returns behavior profile with overrides applied
func (c *Config) EffectiveBehavior() BehaviorProfile {
	base := c.Posture.GetProfile()

	if c.Behavior == nil {
		return base
	}

	if c.Behavior.QueryTimeout != nil {
		base.QueryTimeout = c.Behavior.QueryTimeout.Duration()
	}
	if c.Behavior.PollInterval != nil {
		base.PollInterval = c.Behavior.PollInterval.Duration()
	}
	if c.Behavior.MaxConcurrentQueries != nil && *c.Behavior.MaxConcurrentQueries > 0 {
		base.MaxConcurrentQueries = *c.Behavior.MaxConcurrentQueries
	}

	return base
}

// Target returns the named target
func (c *Config) Target(name string) (*TargetConfig, error) {
	for i := range c.Targets {
		if c.Targets[i].Name == name {
			return &c.Targets[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, name)
}

// EnabledTargets returns targets that take part in polling, in file order
func (c *Config) EnabledTargets() []TargetConfig {
	var out []TargetConfig
	for _, t := range c.Targets {
		if t.IsEnabled() {
			out = append(out, t)
		}
	}
	return out
}

// PollInterval returns the target's interval, falling back to the posture's
func (c *Config) PollInterval(t *TargetConfig) time.Duration {
	if t != nil && t.PollInterval != nil && t.PollInterval.Duration() > 0 {
		return t.PollInterval.Duration()
	}
	return c.EffectiveBehavior().PollInterval
}

// ResolveSecret reads the secret's values from the config, the environment
// or mounted files. An empty id resolves to nil.
func (c *Config) ResolveSecret(id string) (*domain.Secret, error) {
	if id == "" {
		return nil, nil
	}
	var sc *SecretConfig
	for i := range c.Secrets {
		if c.Secrets[i].ID == id {
			sc = &c.Secrets[i]
			break
		}
	}
	if sc == nil {
		return nil, fmt.Errorf("%w: secret %s", ErrUnknownTarget, id)
	}

	secret := &domain.Secret{
		ID:     sc.ID,
		Type:   domain.SecretType(sc.Type),
		Source: domain.SecretSourceConfig,
		Data:   map[string]string{"username": sc.Username},
	}
	if secret.Type == "" {
		secret.Type = domain.SecretTypeWBEMBasic
	}

	switch {
	case sc.Password != "":
		secret.Data["password"] = sc.Password
	case sc.PasswordEnv != "":
		secret.Data["password"] = os.Getenv(sc.PasswordEnv)
		secret.Source = domain.SecretSourceMounted
	case sc.PasswordFile != "":
		data, err := os.ReadFile(sc.PasswordFile)
		if err != nil {
			return nil, fmt.Errorf("secret %s: read password file: %w", id, err)
		}
		secret.Data["password"] = strings.TrimSpace(string(data))
		secret.Source = domain.SecretSourceMounted
	}

	if sc.PrivateKeyFile != "" {
		data, err := os.ReadFile(sc.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("secret %s: read private key: %w", id, err)
		}
		secret.Data["private_key"] = string(data)
		secret.Source = domain.SecretSourceMounted
	}
	if sc.Passphrase != "" {
		secret.Data["passphrase"] = sc.Passphrase
	}

	if err := secret.Validate(); err != nil {
		return nil, err
	}
	return secret, nil
}

// SecretSummaries resolves every declared secret into a summary without
// values. A secret that fails to resolve is listed with its error.
func (c *Config) SecretSummaries() []domain.SecretSummary {
	out := make([]domain.SecretSummary, 0, len(c.Secrets))
	for _, sc := range c.Secrets {
		secret, err := c.ResolveSecret(sc.ID)
		if err != nil {
			out = append(out, domain.SecretSummary{
				ID:       sc.ID,
				Type:     domain.SecretType(sc.Type),
				Username: sc.Username,
				Error:    err.Error(),
			})
			continue
		}
		out = append(out, secret.ToSummary())
	}
	return out
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	behavior := c.EffectiveBehavior()

	summary := fmt.Sprintf("Posture: %s\n", c.Posture)
	summary += fmt.Sprintf("Query timeout: %s, Poll: %s, Concurrency: %d\n",
		behavior.QueryTimeout, behavior.PollInterval, behavior.MaxConcurrentQueries)
	summary += fmt.Sprintf("Targets (%d enabled of %d):", len(c.EnabledTargets()), len(c.Targets))
	for _, t := range c.EnabledTargets() {
		summary += fmt.Sprintf(" %s", t.Name)
	}

	return summary
}
