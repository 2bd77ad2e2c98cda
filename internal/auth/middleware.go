package auth

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/aviotgw/internal/observability"
	"github.com/vyrodovalexey/aviotgw/internal/util"
)

// BasicCredentialsValidator authenticates a username and password.
type BasicCredentialsValidator interface {
	Validate(ctx context.Context, username, password string) (*GatewayIdentity, error)
}

// TokenValidator authenticates a bearer token.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*GatewayIdentity, error)
}

// MiddlewareConfig holds the validators the authentication middleware
// dispatches to. A nil validator disables its scheme.
type MiddlewareConfig struct {
	Basic  BasicCredentialsValidator
	Token  TokenValidator
	Logger observability.Logger
}

// Middleware returns a gin middleware that authenticates the request
// via the Authorization header and stores the resulting identity on
// the context. Requests without a usable Authorization header, and
// requests whose credentials fail validation, are rejected with 401.
func Middleware(config MiddlewareConfig) gin.HandlerFunc {
	logger := config.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}

	return func(c *gin.Context) {
		identity, err := authenticate(c, config)
		if err != nil {
			if !util.IsClientError(err) {
				logger.Error("authentication infrastructure failure",
					observability.String("path", c.Request.URL.Path),
					observability.Error(err),
				)
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
					"error": "authentication temporarily unavailable",
				})

				return
			}

			c.Header("WWW-Authenticate", `Basic realm="aviotgw"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication failed",
			})

			return
		}

		SetIdentity(c, identity)
		c.Next()
	}
}

// authenticate dispatches the Authorization header to the configured
// validator for its scheme.
func authenticate(c *gin.Context, config MiddlewareConfig) (*GatewayIdentity, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return nil, ErrAuthenticationFailed
	}

	scheme, value, found := strings.Cut(header, " ")
	if !found {
		return nil, ErrAuthenticationFailed
	}

	ctx := c.Request.Context()

	switch {
	case strings.EqualFold(scheme, "Basic") && config.Basic != nil:
		username, password, ok := decodeBasic(value)
		if !ok {
			return nil, ErrAuthenticationFailed
		}

		return config.Basic.Validate(ctx, username, password)

	case strings.EqualFold(scheme, "Bearer") && config.Token != nil:
		return config.Token.Validate(ctx, strings.TrimSpace(value))

	default:
		return nil, ErrAuthenticationFailed
	}
}

func decodeBasic(value string) (username, password string, ok bool) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return "", "", false
	}

	username, password, ok = strings.Cut(string(decoded), ":")
	if !ok || username == "" {
		return "", "", false
	}

	return username, password, true
}
