package account

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const MobileLength = 10

var nameRegex = regexp.MustCompile(`^[A-Za-z ]+$`)

// ValidationError is a rejection whose message is safe to show the user.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateName accepts names made only of ASCII letters and spaces. The
// caller is expected to have trimmed surrounding whitespace.
func ValidateName(name string) error {
	if !nameRegex.MatchString(name) || strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Message: "Name must contain only letters"}
	}
	return nil
}

// ValidateMobile accepts exactly ten ASCII digits.
func ValidateMobile(mobile string) error {
	if len(mobile) != MobileLength {
		return &ValidationError{Field: "mobile", Message: "Mobile number must be 10 digits"}
	}
	for i := 0; i < len(mobile); i++ {
		if mobile[i] < '0' || mobile[i] > '9' {
			return &ValidationError{Field: "mobile", Message: "Mobile number must be 10 digits"}
		}
	}
	return nil
}

// DisplayName title-cases each word of a validated name.
func DisplayName(name string) string {
	return cases.Title(language.Und).String(name)
}
