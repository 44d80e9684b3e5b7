package account

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/pkg/errors"
)

// registrationTokenBytes is the amount of randomness in a registration token (256 bits).
const registrationTokenBytes = 32

// maxTokenAttempts bounds the re-draws after a registration token collision.
const maxTokenAttempts = 5

var newRegistrationToken = GenerateRegistrationToken // mockable

// GenerateRegistrationToken returns a random, URL-safe registration token.
func GenerateRegistrationToken() (string, error) {
	b := make([]byte, registrationTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "reading random bytes")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// withRegistrationToken calls create with fresh tokens until it does not fail with ErrTokenCollision.
// Uniqueness is left to the store; no lookup is done before the insert.
func withRegistrationToken(create func(token string) error) error {
	for attempt := 1; attempt <= maxTokenAttempts; attempt++ {
		token, err := newRegistrationToken()
		if err != nil {
			return err
		}
		err = create(token)
		if errors.Cause(err) != ErrTokenCollision {
			return err
		}
	}
	return errors.Errorf("no unique registration token after %d attempts", maxTokenAttempts)
}
