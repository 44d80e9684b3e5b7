package account

import (
	"encoding/base64"
	"testing"

	"github.com/pkg/errors"
)

func TestGenerateRegistrationToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := GenerateRegistrationToken()
		if err != nil {
			t.Fatalf("GenerateRegistrationToken() error = %v", err)
		}
		raw, err := base64.RawURLEncoding.DecodeString(token)
		if err != nil {
			t.Fatalf("token %q is not url-safe base64: %v", token, err)
		}
		if len(raw)*8 < 128 {
			t.Errorf("token carries %d bits, want >= 128", len(raw)*8)
		}
		if seen[token] {
			t.Fatalf("duplicate token %q", token)
		}
		seen[token] = true
	}
}

func TestWithRegistrationToken(t *testing.T) {
	defer func() { newRegistrationToken = GenerateRegistrationToken }()

	tokens := []string{"dup", "dup", "fresh"}
	var drawn int
	newRegistrationToken = func() (string, error) {
		token := tokens[drawn]
		drawn++
		return token, nil
	}

	taken := map[string]bool{"dup": true}
	var got string
	err := withRegistrationToken(func(token string) error {
		if taken[token] {
			return errors.Wrap(ErrTokenCollision, "inserting profile")
		}
		got = token
		return nil
	})
	if err != nil {
		t.Fatalf("withRegistrationToken() error = %v", err)
	}
	if got != "fresh" || drawn != 3 {
		t.Errorf("got token %q after %d draws, want %q after 3", got, drawn, "fresh")
	}

	t.Run("gives up", func(t *testing.T) {
		newRegistrationToken = func() (string, error) { return "dup", nil }
		err := withRegistrationToken(func(string) error { return ErrTokenCollision })
		if err == nil || errors.Cause(err) == ErrTokenCollision {
			t.Errorf("withRegistrationToken() error = %v, want attempts exhausted", err)
		}
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		newRegistrationToken = GenerateRegistrationToken
		var calls int
		err := withRegistrationToken(func(string) error {
			calls++
			return ErrEmailExists
		})
		if err != ErrEmailExists || calls != 1 {
			t.Errorf("err = %v after %d calls, want %v after 1", err, calls, ErrEmailExists)
		}
	})
}
