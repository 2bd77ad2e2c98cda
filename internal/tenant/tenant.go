// Package tenant provides the persisted tenant record, the runtime
// tenant descriptor used for authentication and authorization
// decisions, and the conversion between the two.
package tenant

import "time"

// Tenant is the persisted tenant configuration as managed through the
// registry. Optional attributes are pointers or nil-able containers so
// an absent attribute can be told apart from an empty one.
type Tenant struct {
	Enabled                       *bool              `json:"enabled,omitempty"`
	Defaults                      map[string]any     `json:"defaults,omitempty"`
	MinimumMessageSize            *int               `json:"minimum-message-size,omitempty"`
	ResourceLimits                *ResourceLimits    `json:"resource-limits,omitempty"`
	Tracing                       *TracingConfig     `json:"tracing,omitempty"`
	Adapters                      []Adapter          `json:"adapters,omitempty"`
	Extensions                    map[string]any     `json:"ext,omitempty"`
	TrustedCertificateAuthorities []TrustedAuthority `json:"trusted-ca,omitempty"`
}

// IsEnabled returns the enabled flag, defaulting to true when unset.
func (t *Tenant) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

// ResourceLimits bounds a tenant's resource consumption.
type ResourceLimits struct {
	MaxConnections     int                 `json:"max-connections,omitempty"`
	MaxTTLSeconds      int64               `json:"max-ttl,omitempty"`
	DataVolume         *DataVolume         `json:"data-volume,omitempty"`
	ConnectionDuration *ConnectionDuration `json:"connection-duration,omitempty"`
}

// DataVolume limits a tenant's data volume over a period.
type DataVolume struct {
	MaxBytes      int64     `json:"max-bytes,omitempty"`
	EffectiveFrom time.Time `json:"effective-since,omitempty"`
	PeriodDays    int       `json:"period-days,omitempty"`
}

// ConnectionDuration limits a tenant's cumulative connection time.
type ConnectionDuration struct {
	MaxMinutes    int64     `json:"max-minutes,omitempty"`
	EffectiveFrom time.Time `json:"effective-since,omitempty"`
	PeriodDays    int       `json:"period-days,omitempty"`
}

// TracingConfig controls how requests of a tenant are traced.
type TracingConfig struct {
	SamplingMode string `json:"sampling-mode,omitempty"`
}

// Adapter is a tenant's per-protocol-adapter configuration.
type Adapter struct {
	Type               string         `json:"type"`
	Enabled            *bool          `json:"enabled,omitempty"`
	DeviceAuthRequired *bool          `json:"device-authentication-required,omitempty"`
	Ext                map[string]any `json:"ext,omitempty"`
}

// TrustedAuthority is a certificate authority record a tenant accepts
// for device TLS trust, bounded by a validity window.
type TrustedAuthority struct {
	SubjectDN    string    `json:"subject-dn,omitempty"`
	Certificate  []byte    `json:"cert,omitempty"`
	PublicKey    []byte    `json:"public-key,omitempty"`
	KeyAlgorithm string    `json:"algorithm,omitempty"`
	NotBefore    time.Time `json:"not-before"`
	NotAfter     time.Time `json:"not-after"`
}

// IsValidAt reports whether the authority's validity window contains
// the given instant. Boundaries are inclusive.
func (a *TrustedAuthority) IsValidAt(instant time.Time) bool {
	return !instant.Before(a.NotBefore) && !instant.After(a.NotAfter)
}

// Descriptor is the runtime-authoritative tenant state handed to the
// authentication layer. It is created by converting a persisted Tenant
// at read time, never mutated after construction, and discarded when
// the request ends.
type Descriptor struct {
	TenantID           string                `json:"tenant-id"`
	Enabled            bool                  `json:"enabled"`
	ResourceLimits     *ResourceLimits       `json:"resource-limits,omitempty"`
	Tracing            *TracingConfig        `json:"tracing,omitempty"`
	MinimumMessageSize *int                  `json:"minimum-message-size,omitempty"`
	Defaults           map[string]any        `json:"defaults,omitempty"`
	Adapters           []Adapter             `json:"adapters,omitempty"`
	Extensions         map[string]any        `json:"ext,omitempty"`
	TrustedAuthorities []DescriptorAuthority `json:"trusted-ca,omitempty"`
}

// DescriptorAuthority is a trusted authority as carried by the runtime
// descriptor. The descriptor only decides inclusion; it does not carry
// raw validity bounds.
type DescriptorAuthority struct {
	SubjectDN    string `json:"subject-dn,omitempty"`
	Certificate  []byte `json:"cert,omitempty"`
	PublicKey    []byte `json:"public-key,omitempty"`
	KeyAlgorithm string `json:"algorithm,omitempty"`
}
