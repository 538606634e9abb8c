package security

import (
	"fmt"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

const minPasswordLength = 8

// PasswordValidationError represents a single password policy violation.
type PasswordValidationError struct {
	Code    string
	Message string
}

// Error implements error for PasswordValidationError.
func (e *PasswordValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// PasswordValidator enforces the registration password policy. The only hard
// rule is minimum length; an additional zxcvbn strength score is computed for
// callers that want to log or surface it.
type PasswordValidator struct {
	minLength int
}

// DefaultPasswordValidator returns a validator with the stock policy.
func DefaultPasswordValidator() *PasswordValidator {
	return &PasswordValidator{minLength: minPasswordLength}
}

// Validate returns a policy violation or nil.
func (v *PasswordValidator) Validate(password string) error {
	minLength := minPasswordLength
	if v != nil && v.minLength > 0 {
		minLength = v.minLength
	}

	if len([]rune(password)) < minLength {
		return &PasswordValidationError{
			Code:    "min_length",
			Message: fmt.Sprintf("password must be at least %d characters long", minLength),
		}
	}

	return nil
}

// Score estimates password strength on the zxcvbn 0..4 scale, feeding the
// user's own identifiers in as penalty inputs.
func (v *PasswordValidator) Score(password string, userInputs ...string) int {
	result := zxcvbn.PasswordStrength(password, userInputs)
	return result.Score
}
