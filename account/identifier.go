package account

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
)

const (
	suffixMin = 1000
	suffixMax = 9999

	// MaxIssueAttempts caps the collision retries of IssueUserID. A first
	// name has 9000 possible identifiers, so hitting the cap means the
	// namespace is practically full.
	MaxIssueAttempts = 1000
)

var ErrUserIDExhausted = errors.New("no free user id for this name")

// UserIDChecker reports whether an identifier is already taken.
type UserIDChecker interface {
	UserIDExists(ctx context.Context, userID string) (bool, error)
}

// Issuer hands out identifiers of the form firstname_NNNN.
type Issuer struct {
	checker UserIDChecker
	intn    func(n int) int
}

func NewIssuer(checker UserIDChecker, rnd *rand.Rand) *Issuer {
	intn := rand.Intn
	if rnd != nil {
		intn = rnd.Intn
	}
	return &Issuer{checker: checker, intn: intn}
}

// IssueUserID derives the prefix from the lowercase first word of name and
// draws random four-digit suffixes until the checker reports a free one.
func (i *Issuer) IssueUserID(ctx context.Context, name string) (string, error) {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "", &ValidationError{Field: "name", Message: "Name must contain only letters"}
	}
	prefix := strings.ToLower(fields[0])

	for attempt := 0; attempt < MaxIssueAttempts; attempt++ {
		candidate := fmt.Sprintf("%s_%d", prefix, suffixMin+i.intn(suffixMax-suffixMin+1))
		exists, err := i.checker.UserIDExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check user id %s: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", ErrUserIDExhausted
}
