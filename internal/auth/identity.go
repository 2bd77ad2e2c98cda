// Package auth authenticates inbound network-server requests and
// produces the gateway identity the message router acts on behalf of.
package auth

import (
	"context"

	"github.com/gin-gonic/gin"
)

// IdentityKey is the gin context key the authenticated identity is
// stored under.
const IdentityKey = "gateway-identity"

type identityContextKey struct{}

// GatewayIdentity identifies an authenticated LoRa gateway acting on
// behalf of devices within a tenant.
type GatewayIdentity struct {
	// TenantID is the tenant the gateway belongs to.
	TenantID string

	// GatewayID is the device ID of the gateway itself.
	GatewayID string

	// AuthID is the authentication identifier the gateway presented.
	AuthID string
}

// ContextWithIdentity returns a context carrying the identity.
func ContextWithIdentity(ctx context.Context, identity *GatewayIdentity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext returns the identity stored in ctx, or nil.
func IdentityFromContext(ctx context.Context) *GatewayIdentity {
	identity, _ := ctx.Value(identityContextKey{}).(*GatewayIdentity)

	return identity
}

// SetIdentity stores the identity on the gin context and the request
// context.
func SetIdentity(c *gin.Context, identity *GatewayIdentity) {
	c.Set(IdentityKey, identity)
	c.Request = c.Request.WithContext(ContextWithIdentity(c.Request.Context(), identity))
}

// GetIdentity returns the identity stored on the gin context, or nil
// if the request is unauthenticated.
func GetIdentity(c *gin.Context) *GatewayIdentity {
	value, exists := c.Get(IdentityKey)
	if !exists {
		return nil
	}

	identity, _ := value.(*GatewayIdentity)

	return identity
}
