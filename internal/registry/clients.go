// Package registry provides the client contracts for tenant, device
// registration and credential lookups, together with the trust checks
// applied to identities resolved through them.
package registry

import (
	"context"

	"github.com/vyrodovalexey/aviotgw/internal/credentials"
	"github.com/vyrodovalexey/aviotgw/internal/tenant"
)

// TenantClient resolves tenant configuration. Implementations fail with
// util.ErrNotFound for unknown tenants and util.ErrDisabled for
// disabled ones.
type TenantClient interface {
	// Get resolves the runtime descriptor of the given tenant.
	Get(ctx context.Context, tenantID string) (*tenant.Descriptor, error)
}

// RegistrationInfo is the assertion returned for a registered device.
type RegistrationInfo struct {
	DeviceID string         `json:"device-id"`
	Via      []string       `json:"via,omitempty"`
	Defaults map[string]any `json:"defaults,omitempty"`
}

// RegistrationClient asserts that a device is registered and enabled
// for a tenant.
type RegistrationClient interface {
	// AssertRegistration fails with util.ErrNotFound for unknown
	// devices and util.ErrDisabled for disabled ones.
	AssertRegistration(ctx context.Context, tenantID, deviceID string) (*RegistrationInfo, error)
}

// CredentialsClient resolves credentials by type and authentication
// identifier.
type CredentialsClient interface {
	// GetCredential resolves the password credential registered for
	// the given authentication identifier within the tenant.
	GetCredential(ctx context.Context, tenantID, credentialType, authID string) (*credentials.PasswordCredential, error)
}
