package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/vyrodovalexey/aviotgw/internal/credentials"
	"github.com/vyrodovalexey/aviotgw/internal/observability"
	"github.com/vyrodovalexey/aviotgw/internal/tenant"
	"github.com/vyrodovalexey/aviotgw/internal/util"
)

// registryFile is the on-disk layout of the file-backed registry.
type registryFile struct {
	Tenants     []tenantEntry      `json:"tenants"`
	Devices     []deviceEntry      `json:"devices"`
	Credentials []*credentialEntry `json:"credentials"`
}

type tenantEntry struct {
	TenantID string         `json:"tenant-id"`
	Tenant   *tenant.Tenant `json:"tenant"`
}

type credentialEntry struct {
	TenantID string `json:"tenant-id"`
	credentials.PasswordCredential
}

type deviceEntry struct {
	TenantID string         `json:"tenant-id"`
	DeviceID string         `json:"device-id"`
	Enabled  *bool          `json:"enabled,omitempty"`
	Via      []string       `json:"via,omitempty"`
	Defaults map[string]any `json:"defaults,omitempty"`
}

// FileRegistry is a registry loaded from a single JSON file. It
// implements the tenant, registration and credentials client
// contracts and is meant for deployments without an external device
// registry service.
type FileRegistry struct {
	mu                sync.RWMutex
	tenants           map[string]*tenant.Tenant
	devices           map[string]deviceEntry
	credentials       map[string]*credentials.PasswordCredential
	filterAuthorities bool
	logger            observability.Logger
}

var (
	_ TenantClient       = (*FileRegistry)(nil)
	_ RegistrationClient = (*FileRegistry)(nil)
	_ CredentialsClient  = (*FileRegistry)(nil)
)

// FileRegistryOption configures a FileRegistry.
type FileRegistryOption func(*FileRegistry)

// WithFileRegistryLogger sets the logger.
func WithFileRegistryLogger(logger observability.Logger) FileRegistryOption {
	return func(r *FileRegistry) {
		r.logger = logger
	}
}

// WithAuthorityFiltering controls whether expired trust anchors are
// dropped when a tenant is resolved.
func WithAuthorityFiltering(filter bool) FileRegistryOption {
	return func(r *FileRegistry) {
		r.filterAuthorities = filter
	}
}

// NewFileRegistry loads the registry file at path. Each credential in
// the file is validated against the given hashing policy; a violating
// credential fails the load so a misconfigured registry is caught at
// startup.
func NewFileRegistry(path string, encoder credentials.PasswordEncoder, hashWhitelist []string, maxBcryptIterations int, opts ...FileRegistryOption) (*FileRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file %s: %w", path, err)
	}

	var file registryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse registry file %s: %w", path, err)
	}

	r := &FileRegistry{
		tenants:           make(map[string]*tenant.Tenant, len(file.Tenants)),
		devices:           make(map[string]deviceEntry, len(file.Devices)),
		credentials:       make(map[string]*credentials.PasswordCredential, len(file.Credentials)),
		filterAuthorities: true,
		logger:            observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(r)
	}

	for _, entry := range file.Tenants {
		if entry.TenantID == "" || entry.Tenant == nil {
			return nil, fmt.Errorf("registry tenant entry missing tenant-id or tenant")
		}
		r.tenants[entry.TenantID] = entry.Tenant
	}

	for _, entry := range file.Devices {
		if entry.TenantID == "" || entry.DeviceID == "" {
			return nil, fmt.Errorf("registry device entry missing tenant-id or device-id")
		}
		r.devices[entry.TenantID+"/"+entry.DeviceID] = entry
	}

	for _, entry := range file.Credentials {
		if entry.TenantID == "" {
			return nil, fmt.Errorf("registry credential entry missing tenant-id")
		}

		credential := &entry.PasswordCredential
		if err := credentials.Check(credential, encoder, hashWhitelist, maxBcryptIterations); err != nil {
			return nil, fmt.Errorf("credential %q violates hashing policy: %w", credential.GetAuthID(), err)
		}

		key := entry.TenantID + "/" + credential.CredentialType() + "/" + credential.GetAuthID()
		r.credentials[key] = credential
	}

	r.logger.Info("loaded registry file",
		observability.String("path", path),
		observability.Int("tenants", len(r.tenants)),
		observability.Int("devices", len(r.devices)),
		observability.Int("credentials", len(r.credentials)),
	)

	return r, nil
}

// Get implements TenantClient.
func (r *FileRegistry) Get(_ context.Context, tenantID string) (*tenant.Descriptor, error) {
	r.mu.RLock()
	source, ok := r.tenants[tenantID]
	r.mu.RUnlock()

	if !ok {
		return nil, util.ErrNotFound
	}

	descriptor, err := tenant.Convert(tenantID, source, r.filterAuthorities)
	if err != nil {
		return nil, err
	}

	if !descriptor.Enabled {
		return nil, util.ErrDisabled
	}

	return descriptor, nil
}

// AssertRegistration implements RegistrationClient.
func (r *FileRegistry) AssertRegistration(_ context.Context, tenantID, deviceID string) (*RegistrationInfo, error) {
	r.mu.RLock()
	entry, ok := r.devices[tenantID+"/"+deviceID]
	r.mu.RUnlock()

	if !ok {
		return nil, util.ErrNotFound
	}

	if entry.Enabled != nil && !*entry.Enabled {
		return nil, util.ErrDisabled
	}

	return &RegistrationInfo{
		DeviceID: entry.DeviceID,
		Via:      entry.Via,
		Defaults: entry.Defaults,
	}, nil
}

// GetCredential implements CredentialsClient.
func (r *FileRegistry) GetCredential(_ context.Context, tenantID, credentialType, authID string) (*credentials.PasswordCredential, error) {
	r.mu.RLock()
	credential, ok := r.credentials[tenantID+"/"+credentialType+"/"+authID]
	r.mu.RUnlock()

	if !ok {
		return nil, util.ErrNotFound
	}

	return credential, nil
}
