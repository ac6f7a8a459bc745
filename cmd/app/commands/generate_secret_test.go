package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	secretDomain "github.com/allisson/sentinel/internal/secret/domain"
	secretService "github.com/allisson/sentinel/internal/secret/service"
)

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) {
	return 0, errors.New("entropy unavailable")
}

func TestRunGenerateSecret(t *testing.T) {
	t.Run("success-text", func(t *testing.T) {
		var out bytes.Buffer
		err := RunGenerateSecret(secretService.NewRandomGenerator(), &out, "signing_key", "text")
		require.NoError(t, err)
		require.Contains(t, out.String(), "# Secret Type: signing_key")
		require.Contains(t, out.String(), "SECRET_SIGNING_KEY=\"")
	})

	t.Run("success-json", func(t *testing.T) {
		var out bytes.Buffer
		err := RunGenerateSecret(secretService.NewRandomGenerator(), &out, "oauth_client_secret", "json")
		require.NoError(t, err)

		var result map[string]string
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		require.Equal(t, "oauth_client_secret", result["type"])
		require.Equal(t, "SECRET_OAUTH_CLIENT_SECRET", result["env_var"])
		require.Equal(t, secretDomain.Checksum([]byte(result["value"])), result["checksum"])
	})

	t.Run("invalid-type", func(t *testing.T) {
		err := RunGenerateSecret(secretService.NewRandomGenerator(), nil, "api_key", "text")
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid secret type: api_key")
		require.True(t, strings.Contains(err.Error(), "signing_key"))
	})

	t.Run("invalid-format", func(t *testing.T) {
		err := RunGenerateSecret(secretService.NewRandomGenerator(), nil, "signing_key", "yaml")
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid format")
	})

	t.Run("generator-failure", func(t *testing.T) {
		generator := secretService.NewGeneratorWithReader(failingReader{}, 48)
		err := RunGenerateSecret(generator, nil, "audit_key", "text")
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to generate secret")
	})
}
