package tenant

import (
	"fmt"
	"time"
)

// Convert transforms a persisted tenant record into the runtime
// descriptor used for authentication and authorization decisions,
// evaluating trust-anchor validity against the current wall clock.
func Convert(tenantID string, source *Tenant, filterAuthorities bool) (*Descriptor, error) {
	return ConvertAt(tenantID, source, filterAuthorities, time.Now())
}

// ConvertAt is Convert with an explicit evaluation instant.
//
// Attributes absent in the source remain absent in the descriptor.
// When filterAuthorities is true, only trusted authorities whose
// validity window contains the instant are retained; the window bounds
// are inclusive. Validity bounds are never carried into the descriptor
// regardless of filtering.
func ConvertAt(tenantID string, source *Tenant, filterAuthorities bool, instant time.Time) (*Descriptor, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant identifier is required")
	}
	if source == nil {
		return nil, fmt.Errorf("source tenant is required")
	}

	target := &Descriptor{
		TenantID:       tenantID,
		Enabled:        source.IsEnabled(),
		ResourceLimits: source.ResourceLimits,
		Tracing:        source.Tracing,
	}

	if source.MinimumMessageSize != nil {
		size := *source.MinimumMessageSize
		target.MinimumMessageSize = &size
	}
	if source.Defaults != nil {
		target.Defaults = source.Defaults
	}
	if len(source.Adapters) > 0 {
		target.Adapters = source.Adapters
	}
	if source.Extensions != nil {
		target.Extensions = source.Extensions
	}

	if source.TrustedCertificateAuthorities != nil {
		authorities := make([]DescriptorAuthority, 0, len(source.TrustedCertificateAuthorities))
		for _, ca := range source.TrustedCertificateAuthorities {
			if filterAuthorities && !ca.IsValidAt(instant) {
				continue
			}
			authorities = append(authorities, DescriptorAuthority{
				SubjectDN:    ca.SubjectDN,
				Certificate:  ca.Certificate,
				PublicKey:    ca.PublicKey,
				KeyAlgorithm: ca.KeyAlgorithm,
			})
		}
		target.TrustedAuthorities = authorities
	}

	return target, nil
}
