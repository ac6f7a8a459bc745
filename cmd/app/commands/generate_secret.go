package commands

import (
	"fmt"
	"io"
	"strings"

	secretDomain "github.com/allisson/sentinel/internal/secret/domain"
	secretService "github.com/allisson/sentinel/internal/secret/service"
)

// secretEnvVars maps each secret type to the environment variable that seeds it.
var secretEnvVars = map[secretDomain.SecretType]string{
	secretDomain.SigningKey:        "SECRET_SIGNING_KEY",
	secretDomain.AuditKey:          "SECRET_AUDIT_KEY",
	secretDomain.OAuthClientSecret: "SECRET_OAUTH_CLIENT_SECRET",
	secretDomain.EncryptionKey:     "SECRET_ENCRYPTION_KEY",
}

// parseSecretType converts a CLI argument into a secretDomain.SecretType.
// Returns an error listing the valid options if the type is unknown.
func parseSecretType(secretTypeStr string) (secretDomain.SecretType, error) {
	secretType := secretDomain.SecretType(secretTypeStr)
	if !secretType.IsValid() {
		valid := make([]string, 0, len(secretDomain.SecretTypes))
		for _, t := range secretDomain.SecretTypes {
			valid = append(valid, string(t))
		}
		return "", fmt.Errorf(
			"invalid secret type: %s (valid options: %s)",
			secretTypeStr,
			strings.Join(valid, ", "),
		)
	}
	return secretType, nil
}

// RunGenerateSecret prints a fresh random value for secretType that satisfies the
// type's strength rules. The value is not stored; it is meant to seed the matching
// environment variable before the first start.
func RunGenerateSecret(
	generator secretService.Generator,
	writer io.Writer,
	secretTypeStr string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	secretType, err := parseSecretType(secretTypeStr)
	if err != nil {
		return err
	}

	value, err := generator.Generate(secretType)
	if err != nil {
		return fmt.Errorf("failed to generate secret: %w", err)
	}

	if err := secretDomain.ValidateValue(secretType, value); err != nil {
		return fmt.Errorf("generated secret failed validation: %w", err)
	}

	envVar := secretEnvVars[secretType]
	checksum := secretDomain.Checksum(value)

	if format == "json" {
		return writeJSON(writer, map[string]any{
			"type":     string(secretType),
			"value":    string(value),
			"checksum": checksum,
			"env_var":  envVar,
		})
	}

	_, _ = fmt.Fprintf(writer, "# Secret Type: %s\n", secretType)
	_, _ = fmt.Fprintf(writer, "# Checksum: %s\n", checksum)
	_, _ = fmt.Fprintf(writer, "%s=\"%s\"\n", envVar, value)
	return nil
}
