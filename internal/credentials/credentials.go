// Package credentials provides the credential types and the policy
// checks that are enforced before a credential is trusted for
// authenticating gateways and devices.
package credentials

import (
	"time"

	"github.com/vyrodovalexey/aviotgw/internal/util"
)

// Credential type identifiers.
const (
	TypePassword = "hashed-password"
	TypeX509     = "x509-cert"
	TypePSK      = "psk"
)

// Supported password hash functions.
const (
	HashFunctionBCrypt = "bcrypt"
	HashFunctionSHA256 = "sha-256"
	HashFunctionSHA512 = "sha-512"
)

// Credential is implemented by all credential variants. CheckValidity
// verifies structural validity only; policy checks live in Check.
type Credential interface {
	// CredentialType returns the type identifier of the credential.
	CredentialType() string

	// GetAuthID returns the authentication identifier.
	GetAuthID() string

	// CheckValidity verifies that required fields are present and
	// returns a StateError if the credential is structurally invalid.
	CheckValidity() error
}

// CommonCredential holds the fields shared by all credential variants.
type CommonCredential struct {
	Type     string         `json:"type"`
	AuthID   string         `json:"auth-id"`
	DeviceID string         `json:"device-id,omitempty"`
	Enabled  *bool          `json:"enabled,omitempty"`
	Ext      map[string]any `json:"ext,omitempty"`
}

// CredentialType returns the type identifier of the credential.
func (c *CommonCredential) CredentialType() string {
	return c.Type
}

// GetAuthID returns the authentication identifier.
func (c *CommonCredential) GetAuthID() string {
	return c.AuthID
}

// IsEnabled returns the enabled flag, defaulting to true when unset.
func (c *CommonCredential) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// CheckValidity verifies that the common fields are present.
func (c *CommonCredential) CheckValidity() error {
	if c.Type == "" {
		return util.NewStateError("missing type")
	}
	if c.AuthID == "" {
		return util.NewStateError("missing auth-id")
	}
	return nil
}

// PasswordCredential is a credential holding an ordered sequence of
// password secrets.
type PasswordCredential struct {
	CommonCredential
	Secrets []*PasswordSecret `json:"secrets"`
}

// NewPasswordCredential creates a password credential for the given
// authentication identifier.
func NewPasswordCredential(authID string, secrets ...*PasswordSecret) *PasswordCredential {
	return &PasswordCredential{
		CommonCredential: CommonCredential{Type: TypePassword, AuthID: authID},
		Secrets:          secrets,
	}
}

// GetSecrets returns the ordered secrets of the credential.
func (c *PasswordCredential) GetSecrets() []*PasswordSecret {
	return c.Secrets
}

// CheckValidity verifies the credential and each of its secrets.
func (c *PasswordCredential) CheckValidity() error {
	if err := c.CommonCredential.CheckValidity(); err != nil {
		return err
	}
	if len(c.Secrets) == 0 {
		return util.NewStateError("credential has no secrets")
	}
	for _, secret := range c.Secrets {
		if err := secret.CheckValidity(); err != nil {
			return err
		}
	}
	return nil
}

// PasswordSecret is a single secret of a password credential. A secret
// is either reference-only, carrying nothing but an identifier that
// points into an external secret store, or self-contained with hash
// function, password hash and optional salt.
type PasswordSecret struct {
	ID      string `json:"id,omitempty"`
	Enabled *bool  `json:"enabled,omitempty"`

	NotBefore time.Time `json:"not-before,omitempty"`
	NotAfter  time.Time `json:"not-after,omitempty"`

	HashFunction  string `json:"hash-function,omitempty"`
	PasswordHash  string `json:"pwd-hash,omitempty"`
	Salt          string `json:"salt,omitempty"`
	PasswordPlain string `json:"pwd-plain,omitempty"`
}

// ContainsOnlySecretID reports whether the secret is reference-only,
// i.e. it carries a secret identifier and no secret material. Such
// secrets bypass hash-policy validation; the external secret store is
// authoritative for them.
func (s *PasswordSecret) ContainsOnlySecretID() bool {
	return s.ID != "" &&
		s.HashFunction == "" &&
		s.PasswordHash == "" &&
		s.Salt == "" &&
		s.PasswordPlain == ""
}

// CheckValidity verifies that the secret is structurally complete.
// Reference-only secrets are always valid; a self-contained secret must
// carry either a plaintext password awaiting encoding or a hash
// function together with the hash.
func (s *PasswordSecret) CheckValidity() error {
	if s.ContainsOnlySecretID() {
		return nil
	}
	if s.PasswordPlain != "" {
		return nil
	}
	if s.HashFunction == "" {
		return util.NewStateError("missing hash function")
	}
	if s.PasswordHash == "" {
		return util.NewStateError("missing password hash")
	}
	if !s.NotBefore.IsZero() && !s.NotAfter.IsZero() && s.NotAfter.Before(s.NotBefore) {
		return util.NewStateError("not-after must not precede not-before")
	}
	return nil
}

// IsEnabled returns the enabled flag, defaulting to true when unset.
func (s *PasswordSecret) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// IsValidAt reports whether the secret's validity window contains the
// given instant. Boundaries are inclusive; zero bounds are open.
func (s *PasswordSecret) IsValidAt(instant time.Time) bool {
	if !s.NotBefore.IsZero() && instant.Before(s.NotBefore) {
		return false
	}
	if !s.NotAfter.IsZero() && instant.After(s.NotAfter) {
		return false
	}
	return true
}

var (
	_ Credential = (*CommonCredential)(nil)
	_ Credential = (*PasswordCredential)(nil)
)
