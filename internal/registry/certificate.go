package registry

import (
	"context"
	"crypto/x509"
	"encoding/base64"
	"fmt"

	"github.com/vyrodovalexey/aviotgw/internal/observability"
	"github.com/vyrodovalexey/aviotgw/internal/util"
)

// FieldClientCertificate is the client-context field carrying the raw
// certificate of a device to be provisioned.
const FieldClientCertificate = "client-certificate"

// ClientContext is the opaque context a client supplies alongside an
// authentication attempt, e.g. during auto-provisioning.
type ClientContext map[string]any

// Binary reads a byte-valued field from the context. String values are
// treated as base64, matching the JSON wire form of binary data.
func (c ClientContext) Binary(field string) ([]byte, error) {
	value, ok := c[field]
	if !ok || value == nil {
		return nil, nil
	}
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		decoded, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("field %s is not valid base64: %w", field, err)
		}
		return decoded, nil
	default:
		return nil, fmt.Errorf("field %s has unexpected type %T", field, value)
	}
}

// CertificateFromClientContext extracts the X.509 certificate of the
// device to be provisioned from the client context and binds it to the
// claimed authentication identifier.
//
// An absent certificate is a normal outcome and yields (nil, nil). A
// certificate that cannot be parsed, or whose subject distinguished
// name (RFC 2253 form) does not equal authID, yields a bad-request
// client error; the failure is logged with tenant and authID context
// and recorded on the active span, and never propagates as a panic.
func CertificateFromClientContext(
	ctx context.Context,
	tenantID, authID string,
	clientContext ClientContext,
) (*x509.Certificate, error) {
	if tenantID == "" || authID == "" || clientContext == nil {
		return nil, fmt.Errorf("tenantID, authID and clientContext are required")
	}

	cert, err := certificateFromContext(authID, clientContext)
	if err != nil {
		message := fmt.Sprintf(
			"error getting certificate from client context with authId [%s] for tenant [%s]",
			authID, tenantID)
		observability.L().WithContext(ctx).Error(message,
			observability.String("tenant_id", tenantID),
			observability.String("auth_id", authID),
			observability.Error(err),
		)
		observability.SpanLogError(observability.SpanFromContext(ctx), err)
		return nil, util.NewBadRequestWithCause(message, err)
	}
	return cert, nil
}

// certificateFromContext parses the certificate bytes and verifies the
// subject binding.
func certificateFromContext(authID string, clientContext ClientContext) (*x509.Certificate, error) {
	raw, err := clientContext.Binary(FieldClientCertificate)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	cert, err := x509.ParseCertificate(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	// pkix.Name.String renders the RFC 2253 distinguished name.
	subjectDN := cert.Subject.String()
	if subjectDN != authID {
		return nil, fmt.Errorf(
			"subject DN of the client certificate [%s] does not match authId [%s]",
			subjectDN, authID)
	}
	return cert, nil
}
