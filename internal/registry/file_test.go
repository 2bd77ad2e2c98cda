package registry

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vyrodovalexey/aviotgw/internal/credentials"
	"github.com/vyrodovalexey/aviotgw/internal/util"
)

func writeRegistryFile(t *testing.T, content map[string]any) string {
	t.Helper()

	data, err := json.Marshal(content)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	return path
}

func sampleRegistryContent(t *testing.T) map[string]any {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("open sesame"), bcrypt.MinCost)
	require.NoError(t, err)

	disabled := false

	return map[string]any{
		"tenants": []map[string]any{
			{"tenant-id": "tenant-a", "tenant": map[string]any{"enabled": true}},
			{"tenant-id": "tenant-off", "tenant": map[string]any{"enabled": false}},
		},
		"devices": []map[string]any{
			{"tenant-id": "tenant-a", "device-id": "dev-1", "via": []string{"gw-dev"}},
			{"tenant-id": "tenant-a", "device-id": "dev-off", "enabled": disabled},
		},
		"credentials": []map[string]any{
			{
				"tenant-id": "tenant-a",
				"type":      credentials.TypePassword,
				"auth-id":   "gw-1",
				"device-id": "gw-dev",
				"secrets": []map[string]any{
					{"hash-function": credentials.HashFunctionBCrypt, "pwd-hash": string(hash)},
				},
			},
		},
	}
}

func loadSampleRegistry(t *testing.T) *FileRegistry {
	t.Helper()

	path := writeRegistryFile(t, sampleRegistryContent(t))
	registry, err := NewFileRegistry(path, credentials.NewBCryptEncoder(bcrypt.MinCost), nil, 10)
	require.NoError(t, err)

	return registry
}

func TestFileRegistryTenantLookup(t *testing.T) {
	registry := loadSampleRegistry(t)

	descriptor, err := registry.Get(context.Background(), "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", descriptor.TenantID)
	assert.True(t, descriptor.Enabled)

	_, err = registry.Get(context.Background(), "tenant-off")
	assert.ErrorIs(t, err, util.ErrDisabled)

	_, err = registry.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestFileRegistryRegistration(t *testing.T) {
	registry := loadSampleRegistry(t)

	info, err := registry.AssertRegistration(context.Background(), "tenant-a", "dev-1")
	require.NoError(t, err)
	assert.Equal(t, "dev-1", info.DeviceID)
	assert.Equal(t, []string{"gw-dev"}, info.Via)

	_, err = registry.AssertRegistration(context.Background(), "tenant-a", "dev-off")
	assert.ErrorIs(t, err, util.ErrDisabled)

	_, err = registry.AssertRegistration(context.Background(), "tenant-a", "ghost")
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestFileRegistryCredentials(t *testing.T) {
	registry := loadSampleRegistry(t)

	credential, err := registry.GetCredential(context.Background(), "tenant-a", credentials.TypePassword, "gw-1")
	require.NoError(t, err)
	assert.Equal(t, "gw-dev", credential.DeviceID)

	_, err = registry.GetCredential(context.Background(), "tenant-a", credentials.TypePassword, "ghost")
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestFileRegistryRejectsPolicyViolations(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), 12)
	require.NoError(t, err)

	content := sampleRegistryContent(t)
	content["credentials"] = []map[string]any{
		{
			"tenant-id": "tenant-a",
			"type":      credentials.TypePassword,
			"auth-id":   "gw-2",
			"secrets": []map[string]any{
				{"hash-function": credentials.HashFunctionBCrypt, "pwd-hash": string(hash)},
			},
		},
	}

	path := writeRegistryFile(t, content)
	// max cost 10 while the stored hash uses 12
	_, err = NewFileRegistry(path, credentials.NewBCryptEncoder(bcrypt.MinCost), nil, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gw-2")
}

func TestFileRegistryFiltersExpiredAuthorities(t *testing.T) {
	content := sampleRegistryContent(t)
	content["tenants"] = []map[string]any{
		{
			"tenant-id": "tenant-a",
			"tenant": map[string]any{
				"enabled": true,
				"trusted-ca": []map[string]any{
					{
						"subject-dn": "CN=expired",
						"not-before": time.Now().Add(-2 * time.Hour).Format(time.RFC3339),
						"not-after":  time.Now().Add(-time.Hour).Format(time.RFC3339),
					},
					{
						"subject-dn": "CN=current",
						"not-before": time.Now().Add(-time.Hour).Format(time.RFC3339),
						"not-after":  time.Now().Add(time.Hour).Format(time.RFC3339),
					},
				},
			},
		},
	}

	path := writeRegistryFile(t, content)
	registry, err := NewFileRegistry(path, credentials.NewBCryptEncoder(bcrypt.MinCost), nil, 10)
	require.NoError(t, err)

	descriptor, err := registry.Get(context.Background(), "tenant-a")
	require.NoError(t, err)
	require.Len(t, descriptor.TrustedAuthorities, 1)
	assert.Equal(t, "CN=current", descriptor.TrustedAuthorities[0].SubjectDN)
}

func TestFileRegistryMissingFile(t *testing.T) {
	_, err := NewFileRegistry(filepath.Join(t.TempDir(), "none.json"), credentials.NewBCryptEncoder(bcrypt.MinCost), nil, 10)
	assert.Error(t, err)
}
