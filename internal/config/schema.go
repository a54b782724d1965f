package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version     int               `yaml:"version"`
	LogLevel    string            `yaml:"log_level,omitempty"`
	LogFormat   string            `yaml:"log_format,omitempty"` // text or json
	Posture     Posture           `yaml:"posture"`
	Behavior    *BehaviorOverride `yaml:"behavior,omitempty"`
	Database    DatabaseConfig    `yaml:"database"`
	HTTP        HTTPConfig        `yaml:"http"`
	ProfilesDir string            `yaml:"profiles_dir,omitempty"` // YAML profile overrides
	Targets     []TargetConfig    `yaml:"targets,omitempty"`
	Secrets     []SecretConfig    `yaml:"secrets,omitempty"`
}

// BehaviorOverride allows overriding posture defaults
type BehaviorOverride struct {
	QueryTimeout         *Duration `yaml:"query_timeout,omitempty"`
	PollInterval         *Duration `yaml:"poll_interval,omitempty"`
	MaxConcurrentQueries *int      `yaml:"max_concurrent_queries,omitempty"`
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// HTTPConfig holds API server settings
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// TargetConfig is one SMI-S provider to discover
type TargetConfig struct {
	Name string `yaml:"name"`
	// URL of the CIM-XML endpoint, e.g. https://array-a:5989/cimom
	URL              string `yaml:"url"`
	Namespace        string `yaml:"namespace,omitempty"`
	InteropNamespace string `yaml:"interop_namespace,omitempty"`
	// Profile names a registered vendor profile; "auto" reads CIM_RegisteredProfile
	Profile            string        `yaml:"profile,omitempty"`
	Secret             string        `yaml:"secret,omitempty"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify,omitempty"`
	Tunnel             *TunnelConfig `yaml:"tunnel,omitempty"`
	PollInterval       *Duration     `yaml:"poll_interval,omitempty"`
	// Enabled defaults to true when omitted
	Enabled *bool `yaml:"enabled,omitempty"`
}

// IsEnabled reports whether the target takes part in polling
func (t *TargetConfig) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

// TunnelConfig routes WBEM traffic through an SSH bastion
type TunnelConfig struct {
	Addr           string `yaml:"addr"`
	Secret         string `yaml:"secret"`
	KnownHostsFile string `yaml:"known_hosts_file,omitempty"`
}

// SecretConfig declares credentials. Values can be inline, or read from an
// environment variable or a mounted file.
type SecretConfig struct {
	ID             string `yaml:"id"`
	Type           string `yaml:"type"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password,omitempty"`
	PasswordEnv    string `yaml:"password_env,omitempty"`
	PasswordFile   string `yaml:"password_file,omitempty"`
	PrivateKeyFile string `yaml:"private_key_file,omitempty"`
	Passphrase     string `yaml:"passphrase,omitempty"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
