// Package validation provides custom validation rules for the application.
package validation

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/sentinel/internal/errors"
)

var (
	// secretCharsetRegex accepts the base64 and base64url alphabets.
	secretCharsetRegex = regexp.MustCompile(`^[A-Za-z0-9_\-+/=]+$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// SecretStrength validates that a secret value is long enough and uses only the
// base64/base64url alphabet.
type SecretStrength struct {
	MinLength int
}

// Validate checks the value against the configured requirements. Accepts string or []byte.
func (s SecretStrength) Validate(value interface{}) error {
	var v string
	switch typed := value.(type) {
	case string:
		v = typed
	case []byte:
		v = string(typed)
	default:
		return validation.NewError("validation_secret_type", "secret must be a string")
	}

	if len(v) < s.MinLength {
		return validation.NewError(
			"validation_secret_min_length",
			fmt.Sprintf("secret must be at least %d characters", s.MinLength),
		)
	}

	if !secretCharsetRegex.MatchString(v) {
		return validation.NewError(
			"validation_secret_charset",
			"secret must only contain base64 or base64url characters",
		)
	}

	return nil
}

// NoWhitespace validates that string doesn't contain leading/trailing whitespace.
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace.
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// PathPrefix validates that a string is an absolute URL path.
var PathPrefix = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.HasPrefix(s, "/")
	},
	validation.NewError("validation_path_prefix", "must start with '/'"),
)

// Base64 validates that a string is valid standard base64-encoded data.
var Base64 = validation.NewStringRuleWithError(
	func(s string) bool {
		_, err := base64.StdEncoding.DecodeString(s)
		return err == nil
	},
	validation.NewError("validation_base64", "must be valid base64-encoded data"),
)
