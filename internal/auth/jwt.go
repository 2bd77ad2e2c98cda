package auth

import (
	"context"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/vyrodovalexey/aviotgw/internal/observability"
)

// Private claim names carried by gateway tokens.
const (
	ClaimTenantID  = "tid"
	ClaimGatewayID = "did"
)

// JWTValidator verifies bearer tokens issued to gateways. Tokens are
// HMAC-signed and carry the tenant and gateway identity as private
// claims.
type JWTValidator struct {
	secret   []byte
	issuer   string
	audience string
	logger   observability.Logger
}

// JWTValidatorOption configures a JWTValidator.
type JWTValidatorOption func(*JWTValidator)

// WithIssuer requires tokens to carry the given issuer.
func WithIssuer(issuer string) JWTValidatorOption {
	return func(v *JWTValidator) {
		v.issuer = issuer
	}
}

// WithAudience requires tokens to carry the given audience.
func WithAudience(audience string) JWTValidatorOption {
	return func(v *JWTValidator) {
		v.audience = audience
	}
}

// WithJWTLogger sets the logger.
func WithJWTLogger(logger observability.Logger) JWTValidatorOption {
	return func(v *JWTValidator) {
		v.logger = logger
	}
}

// NewJWTValidator creates a validator for tokens signed with the given
// HMAC secret.
func NewJWTValidator(secret []byte, opts ...JWTValidatorOption) (*JWTValidator, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("jwt secret must not be empty")
	}

	v := &JWTValidator{
		secret: secret,
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(v)
	}

	return v, nil
}

// Validate verifies the token signature and standard claims and
// returns the gateway identity the token asserts.
func (v *JWTValidator) Validate(ctx context.Context, token string) (*GatewayIdentity, error) {
	options := []jwt.ParseOption{
		jwt.WithContext(ctx),
		jwt.WithKey(jwa.HS256, v.secret),
		jwt.WithValidate(true),
	}

	if v.issuer != "" {
		options = append(options, jwt.WithIssuer(v.issuer))
	}

	if v.audience != "" {
		options = append(options, jwt.WithAudience(v.audience))
	}

	parsed, err := jwt.Parse([]byte(token), options...)
	if err != nil {
		v.logger.Debug("token validation failed", observability.Error(err))

		return nil, ErrAuthenticationFailed
	}

	tenantID := stringClaim(parsed, ClaimTenantID)
	gatewayID := stringClaim(parsed, ClaimGatewayID)
	if tenantID == "" || gatewayID == "" {
		return nil, ErrAuthenticationFailed
	}

	return &GatewayIdentity{
		TenantID:  tenantID,
		GatewayID: gatewayID,
		AuthID:    parsed.Subject(),
	}, nil
}

func stringClaim(token jwt.Token, name string) string {
	value, ok := token.Get(name)
	if !ok {
		return ""
	}

	s, _ := value.(string)

	return s
}
