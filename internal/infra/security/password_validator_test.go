package security

import (
	"errors"
	"testing"
)

func TestPasswordValidatorMinLength(t *testing.T) {
	validator := DefaultPasswordValidator()

	if err := validator.Validate("pw12345678"); err != nil {
		t.Fatalf("Validate rejected a compliant password: %v", err)
	}

	err := validator.Validate("пароль7")
	if err == nil {
		t.Fatal("Validate accepted a 7 character password")
	}

	var policyErr *PasswordValidationError
	if !errors.As(err, &policyErr) {
		t.Fatalf("expected PasswordValidationError, got %T", err)
	}
	if policyErr.Code != "min_length" {
		t.Fatalf("unexpected violation code %q", policyErr.Code)
	}
}

func TestPasswordValidatorCountsRunesNotBytes(t *testing.T) {
	validator := DefaultPasswordValidator()

	// Eight Cyrillic letters are sixteen bytes but still satisfy the policy.
	if err := validator.Validate("парольОК"); err != nil {
		t.Fatalf("Validate rejected an 8 rune password: %v", err)
	}
}

func TestPasswordScorePenalizesUserInputs(t *testing.T) {
	validator := DefaultPasswordValidator()

	strong := validator.Score("correct horse battery staple")
	weak := validator.Score("alice@example.com", "alice@example.com")

	if strong < 3 {
		t.Fatalf("expected a passphrase to score at least 3, got %d", strong)
	}
	if weak >= strong {
		t.Fatalf("expected the user's own email to score below %d, got %d", strong, weak)
	}
}
