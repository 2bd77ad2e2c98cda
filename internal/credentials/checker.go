package credentials

import (
	"fmt"
	"slices"

	"github.com/vyrodovalexey/aviotgw/internal/util"
)

// Check validates a credential against the organization-wide password
// hashing policy before it is accepted for storage or use.
//
// The whitelist lists the hash algorithms acceptable for pre-hashed
// passwords; an empty whitelist accepts any algorithm. Secrets that
// carry only a secret identifier defer policy checks to the external
// secret store and are skipped. Normalization through the encoder runs
// before the whitelist and cost checks because the encoder may rewrite
// a plaintext secret into its hashed form, which is the only
// representation carrying algorithm metadata.
//
// Policy and invariant violations are reported as *util.StateError.
func Check(credential Credential, encoder PasswordEncoder, hashAlgorithmsWhitelist []string, maxBcryptIterations int) error {
	if credential == nil {
		return fmt.Errorf("credential is required")
	}
	if encoder == nil {
		return fmt.Errorf("password encoder is required")
	}

	if err := credential.CheckValidity(); err != nil {
		return err
	}

	pc, ok := credential.(*PasswordCredential)
	if !ok {
		return nil
	}

	for _, secret := range pc.GetSecrets() {
		if secret.ContainsOnlySecretID() {
			continue
		}
		if err := encoder.Encode(secret); err != nil {
			return err
		}
		if err := secret.CheckValidity(); err != nil {
			return err
		}
		if err := verifyHashAlgorithmIsAuthorised(secret, hashAlgorithmsWhitelist); err != nil {
			return err
		}
		if secret.HashFunction == HashFunctionBCrypt {
			if err := verifyBcryptPasswordHash(secret.PasswordHash, maxBcryptIterations); err != nil {
				return err
			}
		}
	}
	return nil
}

// verifyHashAlgorithmIsAuthorised verifies that the secret's hash
// algorithm is present in the whitelist. An empty whitelist accepts any
// algorithm.
func verifyHashAlgorithmIsAuthorised(secret *PasswordSecret, whitelist []string) error {
	if len(whitelist) == 0 {
		return nil
	}
	if secret.HashFunction == "" {
		return util.NewStateError("missing hash function")
	}
	if slices.Contains(whitelist, secret.HashFunction) {
		return nil
	}
	return util.NewStateErrorf("Hashing algorithm is not in whitelist: %s", secret.HashFunction)
}

// verifyBcryptPasswordHash verifies that a bcrypt hash does not use
// more than the configured maximum number of iterations. The limit is
// inclusive.
func verifyBcryptPasswordHash(passwordHash string, maxBcryptIterations int) error {
	cost, err := BCryptCost(passwordHash)
	if err != nil {
		return util.NewStateErrorf("invalid bcrypt password hash: %s", err)
	}
	if cost > maxBcryptIterations {
		return util.NewStateErrorf("password hash uses too many iterations, max is %d", maxBcryptIterations)
	}
	return nil
}
