package domain

import (
	validation "github.com/jellydator/validation"

	"github.com/allisson/sentinel/internal/errors"
	customValidation "github.com/allisson/sentinel/internal/validation"
)

// minLengths holds the minimum value length per secret type.
var minLengths = map[SecretType]int{
	SigningKey:        32,
	AuditKey:          32,
	OAuthClientSecret: 24,
	EncryptionKey:     32,
}

// ValidateValue checks a secret value against its type's format rules.
func ValidateValue(secretType SecretType, value []byte) error {
	minLength, ok := minLengths[secretType]
	if !ok {
		return ErrInvalidSecretType
	}

	err := validation.Validate(string(value),
		validation.Required,
		customValidation.SecretStrength{MinLength: minLength},
	)
	if err != nil {
		return errors.Wrapf(ErrSecretValidationFailed, "%s: %s", secretType, err.Error())
	}
	return nil
}
