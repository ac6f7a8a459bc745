package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name:    "load default configuration",
			envVars: map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "0.0.0.0", cfg.ServerHost)
				assert.Equal(t, 8080, cfg.ServerPort)
				assert.Equal(t, StorageMemory, cfg.StorageDriver)
				assert.Equal(t, "info", cfg.LogLevel)
				assert.Equal(t, 720*time.Hour, cfg.RotationInterval)
				assert.Equal(t, 24*time.Hour, cfg.RotationGracePeriod)
				assert.Equal(t, 168*time.Hour, cfg.RotationNotificationThreshold)
				assert.Equal(t, 5*time.Minute, cfg.SigningTimestampTolerance)
				assert.Equal(t, time.Minute, cfg.SigningStrictTimestampTolerance)
				assert.Equal(t, 30*time.Minute, cfg.SigningNonceWindow)
				assert.Equal(t, "strict", cfg.SigningEnforcementMode)
				assert.Equal(t, []string{"/v1/secrets", "/v1/audit-logs"}, cfg.SigningSensitivePaths)
				assert.Equal(t, 5*time.Second, cfg.AuditFlushInterval)
				assert.Equal(t, 100, cfg.AuditMaxBatchSize)
				assert.Equal(t, AuditSinkStdout, cfg.AuditSink)
				assert.True(t, cfg.RotationAutoEnabled)
			},
		},
		{
			name: "load custom signing configuration",
			envVars: map[string]string{
				"SIGNING_TIMESTAMP_TOLERANCE_MS": "120000",
				"SIGNING_NONCE_WINDOW_MS":        "600000",
				"SIGNING_ENFORCEMENT_MODE":       "warn",
				"SIGNING_SENSITIVE_PATHS":        " /admin , ,/v1/payments ",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 2*time.Minute, cfg.SigningTimestampTolerance)
				assert.Equal(t, 10*time.Minute, cfg.SigningNonceWindow)
				assert.Equal(t, "warn", cfg.SigningEnforcementMode)
				assert.Equal(t, []string{"/admin", "/v1/payments"}, cfg.SigningSensitivePaths)
			},
		},
		{
			name: "load initial secrets and rotation configuration",
			envVars: map[string]string{
				"SECRET_SIGNING_KEY":          "signing-secret-value-with-enough-length",
				"SECRET_AUDIT_KEY":            "audit-secret-value-with-enough-length-too",
				"ROTATION_INTERVAL_HOURS":     "48",
				"ROTATION_GRACE_PERIOD_HOURS": "2",
				"ROTATION_AUTO_ENABLED":       "false",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "signing-secret-value-with-enough-length", cfg.SigningKey)
				assert.Equal(t, "audit-secret-value-with-enough-length-too", cfg.AuditKey)
				assert.Equal(t, 48*time.Hour, cfg.RotationInterval)
				assert.Equal(t, 2*time.Hour, cfg.RotationGracePeriod)
				assert.False(t, cfg.RotationAutoEnabled)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg := Load()
			tt.validate(t, cfg)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		require.NoError(t, Load().Validate())
	})

	t.Run("rejects unknown enforcement mode", func(t *testing.T) {
		cfg := Load()
		cfg.SigningEnforcementMode = "lenient"
		assert.Error(t, cfg.Validate())
	})

	t.Run("requires kms key for database storage", func(t *testing.T) {
		cfg := Load()
		cfg.StorageDriver = StoragePostgres
		cfg.KMSKeyURI = ""
		assert.Error(t, cfg.Validate())

		cfg.KMSKeyURI = "base64key://"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("rejects database sink with memory storage", func(t *testing.T) {
		cfg := Load()
		cfg.AuditSink = AuditSinkDatabase
		assert.Error(t, cfg.Validate())
	})

	t.Run("nonce window must cover the timestamp tolerance", func(t *testing.T) {
		cfg := Load()
		cfg.SigningNonceWindow = time.Minute
		assert.Error(t, cfg.Validate())
	})
}

func TestConfig_GetGinMode(t *testing.T) {
	cfg := &Config{LogLevel: "debug"}
	assert.Equal(t, "debug", cfg.GetGinMode())

	cfg.LogLevel = "warn"
	assert.Equal(t, "release", cfg.GetGinMode())
}
