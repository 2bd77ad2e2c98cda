package credentials

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vyrodovalexey/aviotgw/internal/util"
)

func bcryptHash(t *testing.T, password string, cost int) string {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	require.NoError(t, err)
	return string(hash)
}

func TestCheckRequiresArguments(t *testing.T) {
	encoder := NewBCryptEncoder(bcrypt.MinCost)

	assert.Error(t, Check(nil, encoder, nil, 10))
	assert.Error(t, Check(NewPasswordCredential("device1"), nil, nil, 10))
}

func TestCheckRejectsStructurallyInvalidCredential(t *testing.T) {
	encoder := NewBCryptEncoder(bcrypt.MinCost)

	err := Check(NewPasswordCredential("device1"), encoder, nil, 10)
	var se *util.StateError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Message, "no secrets")
}

func TestCheckHashAlgorithmWhitelist(t *testing.T) {
	encoder := NewBCryptEncoder(bcrypt.MinCost)
	secret := &PasswordSecret{
		HashFunction: HashFunctionSHA256,
		PasswordHash: "AQIDBAU=",
		Salt:         "c2FsdA==",
	}
	credential := NewPasswordCredential("device1", secret)

	err := Check(credential, encoder, []string{HashFunctionBCrypt}, 10)
	var se *util.StateError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Message, "Hashing algorithm is not in whitelist")

	// The same secret passes with an empty whitelist.
	assert.NoError(t, Check(credential, encoder, nil, 10))
}

func TestCheckBcryptCostLimit(t *testing.T) {
	encoder := NewBCryptEncoder(bcrypt.MinCost)

	overLimit := NewPasswordCredential("device1", &PasswordSecret{
		HashFunction: HashFunctionBCrypt,
		PasswordHash: bcryptHash(t, "secret", 11),
	})
	err := Check(overLimit, encoder, []string{HashFunctionBCrypt}, 10)
	var se *util.StateError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Message, "too many iterations")

	// The limit itself is acceptable.
	atLimit := NewPasswordCredential("device1", &PasswordSecret{
		HashFunction: HashFunctionBCrypt,
		PasswordHash: bcryptHash(t, "secret", 10),
	})
	assert.NoError(t, Check(atLimit, encoder, []string{HashFunctionBCrypt}, 10))
}

func TestCheckNormalizesPlaintextBeforePolicyChecks(t *testing.T) {
	// The encoder hashes at a cost above the limit; the plaintext secret
	// must be rejected even though it carries no algorithm metadata
	// before encoding.
	encoder := NewBCryptEncoder(11)
	credential := NewPasswordCredential("device1", &PasswordSecret{PasswordPlain: "hunter2"})

	err := Check(credential, encoder, []string{HashFunctionBCrypt}, 10)
	var se *util.StateError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Message, "too many iterations")
}

func TestCheckEncodesPlaintextSecret(t *testing.T) {
	encoder := NewBCryptEncoder(bcrypt.MinCost)
	secret := &PasswordSecret{PasswordPlain: "hunter2"}
	credential := NewPasswordCredential("device1", secret)

	require.NoError(t, Check(credential, encoder, []string{HashFunctionBCrypt}, 10))
	assert.Equal(t, HashFunctionBCrypt, secret.HashFunction)
	assert.NotEmpty(t, secret.PasswordHash)
	assert.Empty(t, secret.PasswordPlain)
	assert.True(t, encoder.Matches(secret, "hunter2"))
	assert.False(t, encoder.Matches(secret, "wrong"))
}

func TestCheckSkipsReferenceOnlySecrets(t *testing.T) {
	encoder := NewBCryptEncoder(bcrypt.MinCost)
	credential := NewPasswordCredential("device1", &PasswordSecret{ID: "external-secret-1"})

	// Reference-only secrets bypass the whitelist entirely.
	assert.NoError(t, Check(credential, encoder, []string{"argon2"}, 10))
}

func TestCheckNonPasswordCredential(t *testing.T) {
	encoder := NewBCryptEncoder(bcrypt.MinCost)
	credential := &CommonCredential{Type: TypePSK, AuthID: "device1"}

	assert.NoError(t, Check(credential, encoder, []string{HashFunctionBCrypt}, 10))
}

func TestPasswordSecretValidityWindow(t *testing.T) {
	now := time.Now()
	secret := &PasswordSecret{
		HashFunction: HashFunctionBCrypt,
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
	}
	assert.True(t, secret.IsValidAt(now))

	// Boundaries are inclusive.
	secret.NotBefore = now
	secret.NotAfter = now
	assert.True(t, secret.IsValidAt(now))

	secret.NotBefore = now.Add(time.Second)
	secret.NotAfter = time.Time{}
	assert.False(t, secret.IsValidAt(now))

	secret.NotBefore = time.Time{}
	secret.NotAfter = now.Add(-time.Second)
	assert.False(t, secret.IsValidAt(now))
}
