package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/vyrodovalexey/aviotgw/internal/credentials"
	"github.com/vyrodovalexey/aviotgw/internal/observability"
	"github.com/vyrodovalexey/aviotgw/internal/registry"
	"github.com/vyrodovalexey/aviotgw/internal/util"
)

// ErrAuthenticationFailed is returned when presented credentials do
// not match a registered identity. The message is intentionally
// uniform across failure causes.
var ErrAuthenticationFailed = util.NewUnauthorized("authentication failed")

// BasicValidator verifies HTTP Basic credentials of the form
// authID@tenantID against the credential store.
type BasicValidator struct {
	credentialsClient registry.CredentialsClient
	encoder           credentials.PasswordEncoder
	logger            observability.Logger
	now               func() time.Time
}

// BasicValidatorOption configures a BasicValidator.
type BasicValidatorOption func(*BasicValidator)

// WithBasicLogger sets the logger.
func WithBasicLogger(logger observability.Logger) BasicValidatorOption {
	return func(v *BasicValidator) {
		v.logger = logger
	}
}

// NewBasicValidator creates a validator backed by the given credential
// store.
func NewBasicValidator(client registry.CredentialsClient, encoder credentials.PasswordEncoder, opts ...BasicValidatorOption) *BasicValidator {
	v := &BasicValidator{
		credentialsClient: client,
		encoder:           encoder,
		logger:            observability.NopLogger(),
		now:               time.Now,
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Validate checks the username and password and returns the gateway
// identity they authenticate. All failures map to
// ErrAuthenticationFailed so a caller cannot probe which part was
// wrong; infrastructure errors are passed through unchanged.
func (v *BasicValidator) Validate(ctx context.Context, username, password string) (*GatewayIdentity, error) {
	authID, tenantID, ok := splitUsername(username)
	if !ok {
		return nil, ErrAuthenticationFailed
	}

	credential, err := v.credentialsClient.GetCredential(ctx, tenantID, credentials.TypePassword, authID)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) || errors.Is(err, util.ErrDisabled) {
			return nil, ErrAuthenticationFailed
		}

		return nil, err
	}

	if !credential.IsEnabled() {
		return nil, ErrAuthenticationFailed
	}

	now := v.now()
	for _, secret := range credential.GetSecrets() {
		if !secret.IsEnabled() || !secret.IsValidAt(now) {
			continue
		}

		if v.encoder.Matches(secret, password) {
			v.logger.Debug("gateway authenticated",
				observability.String("tenant_id", tenantID),
				observability.String("auth_id", authID),
			)

			return &GatewayIdentity{
				TenantID:  tenantID,
				GatewayID: credential.DeviceID,
				AuthID:    authID,
			}, nil
		}
	}

	return nil, ErrAuthenticationFailed
}

// splitUsername splits authID@tenantID. The auth ID may itself contain
// the separator, so the split happens at the last occurrence.
func splitUsername(username string) (authID, tenantID string, ok bool) {
	idx := strings.LastIndex(username, "@")
	if idx <= 0 || idx == len(username)-1 {
		return "", "", false
	}

	return username[:idx], username[idx+1:], true
}
