package cim

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"smiscope/internal/domain"
)

func TestSSHTunnelBuildConfig(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	block, err := ssh.MarshalPrivateKey(priv, "")
	require.NoError(t, err)
	keyPEM := string(pem.EncodeToMemory(block))

	tests := []struct {
		name    string
		secret  *domain.Secret
		wantErr string
	}{
		{
			name:   "password",
			secret: &domain.Secret{ID: "ssh.b", Type: domain.SecretTypeSSHPassword, Data: map[string]string{"username": "jump", "password": "pw"}},
		},
		{
			name:   "private key",
			secret: &domain.Secret{ID: "ssh.b", Type: domain.SecretTypeSSHKey, Data: map[string]string{"username": "jump", "private_key": keyPEM}},
		},
		{
			name:    "garbage key",
			secret:  &domain.Secret{ID: "ssh.b", Type: domain.SecretTypeSSHKey, Data: map[string]string{"username": "jump", "private_key": "nope"}},
			wantErr: "failed to parse private key",
		},
		{
			name:    "wbem secret",
			secret:  &domain.Secret{ID: "wbem.a", Type: domain.SecretTypeWBEMBasic, Data: map[string]string{"username": "admin", "password": "pw"}},
			wantErr: "unsupported secret type",
		},
		{
			name:    "missing username",
			secret:  &domain.Secret{ID: "ssh.b", Type: domain.SecretTypeSSHPassword, Data: map[string]string{"password": "pw"}},
			wantErr: "username not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tunnel, err := NewSSHTunnel("bastion", tt.secret, "", time.Second, nil)
			require.NoError(t, err)
			assert.Equal(t, "bastion:22", tunnel.addr)

			cfg, err := tunnel.buildSSHConfig()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "jump", cfg.User)
			assert.Len(t, cfg.Auth, 1)
		})
	}
}

func TestNewSSHTunnelRequiresSecret(t *testing.T) {
	_, err := NewSSHTunnel("bastion:2222", nil, "", 0, nil)
	assert.Error(t, err)
}

func TestSSHTunnelCloseWithoutSession(t *testing.T) {
	secret := &domain.Secret{ID: "ssh.b", Type: domain.SecretTypeSSHPassword, Data: map[string]string{"username": "u", "password": "p"}}
	tunnel, err := NewSSHTunnel("bastion:2222", secret, "", 0, nil)
	require.NoError(t, err)
	assert.NoError(t, tunnel.Close())
}
