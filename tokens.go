package authentic

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"

	goerrors "github.com/goliatone/go-errors"
)

// MinPasswordLength is the minimum accepted password length
const MinPasswordLength = 6

const (
	// confirmTokenBytes is the entropy of one-time confirm/change tokens
	confirmTokenBytes = 30
	// throwawayPasswordBytes is the entropy of auto provisioned passwords
	throwawayPasswordBytes = 16
)

// local-part, @, domain with a dot and a 2+ character TLD
var emailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.\w{2,}$`)

// ValidEmail reports whether email passes format validation
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidPassword reports whether password meets the length requirement
func ValidPassword(password string) bool {
	return len(password) >= MinPasswordLength
}

// GenerateToken returns n bytes of cryptographic entropy, hex encoded
func GenerateToken(n int) (string, error) {
	if n < 1 {
		n = 1
	}

	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate random token")
	}

	return hex.EncodeToString(buf), nil
}

func randomPassword() (string, error) {
	return GenerateToken(throwawayPasswordBytes)
}
