package domain

import (
	"fmt"
	"sort"
)

// SecretSource indicates where a secret originated
type SecretSource string

const (
	// SecretSourceConfig indicates a secret declared inline in the config file
	SecretSourceConfig SecretSource = "config"
	// SecretSourceMounted indicates a secret read from a mounted file or environment variable
	SecretSourceMounted SecretSource = "mounted"
)

// SecretType categorizes secrets by their intended use
type SecretType string

const (
	SecretTypeWBEMBasic   SecretType = "wbem_basic"
	SecretTypeSSHKey      SecretType = "ssh_key"
	SecretTypeSSHPassword SecretType = "ssh_password"
)

// Secret holds the credentials used to reach an array's CIM server or a bastion host
type Secret struct {
	// ID is the unique identifier (e.g., "wbem.array-a", "ssh.bastion")
	ID string `json:"id"`

	// Type decides which Data keys are required
	Type SecretType `json:"type"`

	// Source indicates where the secret came from
	Source SecretSource `json:"source"`

	// Data holds the secret values: username, password, private_key, passphrase
	Data map[string]string `json:"-"`
}

// Username returns the login name stored in the secret
func (s *Secret) Username() string {
	return s.Data["username"]
}

// Validate checks that the keys required by the secret type are present
func (s *Secret) Validate() error {
	if s.Username() == "" {
		return fmt.Errorf("secret %s: username is required", s.ID)
	}
	switch s.Type {
	case SecretTypeWBEMBasic, SecretTypeSSHPassword:
		if s.Data["password"] == "" {
			return fmt.Errorf("secret %s: password is required for %s", s.ID, s.Type)
		}
	case SecretTypeSSHKey:
		if s.Data["private_key"] == "" {
			return fmt.Errorf("secret %s: private_key is required for %s", s.ID, s.Type)
		}
	default:
		return fmt.Errorf("secret %s: unsupported type %q", s.ID, s.Type)
	}
	return nil
}

// SecretSummary is a safe view of a secret (no sensitive data)
type SecretSummary struct {
	ID       string       `json:"id"`
	Type     SecretType   `json:"type"`
	Source   SecretSource `json:"source"`
	Username string       `json:"username,omitempty"`
	// DataKeys lists the keys in Data without exposing values
	DataKeys []string `json:"data_keys"`
	// Error is set when the secret could not be resolved
	Error string `json:"error,omitempty"`
}

// ToSummary creates a safe summary view of the secret
func (s *Secret) ToSummary() SecretSummary {
	keys := make([]string, 0, len(s.Data))
	for k := range s.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return SecretSummary{
		ID:       s.ID,
		Type:     s.Type,
		Source:   s.Source,
		Username: s.Username(),
		DataKeys: keys,
	}
}
