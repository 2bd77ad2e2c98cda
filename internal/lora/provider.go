package lora

import "fmt"

// Provider decodes the inbound message format of one LoRaWAN network
// server vendor. Implementations must be stateless and safe for
// concurrent use.
type Provider interface {
	// Name returns the provider name, used for logging and for
	// stamping outbound messages.
	Name() string

	// PathSegment returns the URL path segment the provider's
	// endpoint is registered under, without a leading slash.
	PathSegment() string

	// ExtractMessageType classifies the raw request body. Unknown
	// vendor type codes yield TypeUnknown, not an error.
	ExtractMessageType(body []byte) (MessageType, error)

	// ExtractDeviceID returns the device identifier (EUI) carried in
	// an uplink body.
	ExtractDeviceID(body []byte) (string, error)

	// ExtractPayload returns the decoded device payload of an uplink
	// body. An empty payload is valid.
	ExtractPayload(body []byte) ([]byte, error)
}

// MalformedPayloadError indicates that a vendor message could not be
// decoded against the provider's expected format.
type MalformedPayloadError struct {
	Provider string
	Detail   string
	Cause    error
}

// Error implements the error interface.
func (e *MalformedPayloadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed %s payload: %s: %v", e.Provider, e.Detail, e.Cause)
	}

	return fmt.Sprintf("malformed %s payload: %s", e.Provider, e.Detail)
}

// Unwrap returns the underlying cause.
func (e *MalformedPayloadError) Unwrap() error {
	return e.Cause
}

// newMalformed builds a MalformedPayloadError for a provider.
func newMalformed(provider, detail string, cause error) *MalformedPayloadError {
	return &MalformedPayloadError{Provider: provider, Detail: detail, Cause: cause}
}
