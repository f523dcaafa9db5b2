package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTestConfig(t *testing.T) {
	conf := NewTestConfig()

	assert.Equal(t, "TEST", conf.Env)
	assert.True(t, conf.TestMode)
	assert.True(t, conf.Debug)
	assert.NotEmpty(t, conf.SecretKey)
	assert.Equal(t, "inmem", conf.Database.Backend)
	assert.Equal(t, "inmem", conf.Storage.Backend)
	assert.Zero(t, conf.Server.AuthRateLimit)
	assert.Equal(t, 15*time.Minute, conf.Storage.PresignExpiry)
	assert.Equal(t, "noreply@localhost", conf.DefaultFromEmail.Address)
	assert.Equal(t, "localhost:5432", conf.Database.Address())
	assert.NoError(t, conf.Validate())
}

func TestLoadConfig_env(t *testing.T) {
	t.Setenv("QA_STORAGE_BUCKET", "qa-bucket")
	t.Setenv("QA_SERVER_SHUTDOWN_TIMEOUT", "12s")
	t.Setenv("QA_FRONTEND_BASE_URL", "https://lms.example.com/")
	t.Setenv("QA_DEFAULT_FROM_EMAIL", "LMS <lms@example.com>")

	conf := loadConfig("QA", newViper("QA"))

	assert.False(t, conf.Debug)
	assert.Equal(t, "qa-bucket", conf.Storage.Bucket)
	assert.Equal(t, 12*time.Second, conf.Server.ShutdownTimeout)
	assert.Equal(t, "https://lms.example.com", conf.FrontendBaseURL)
	assert.Equal(t, "LMS", conf.DefaultFromEmail.Name)
	assert.Equal(t, "lms@example.com", conf.DefaultFromEmail.Address)
}

func TestConfig_Validate(t *testing.T) {
	conf := loadConfig("PROD", newViper("PROD"))
	require.False(t, conf.Debug)
	assert.Empty(t, conf.SecretKey, "no dev key outside of DEV|TEST")

	err := conf.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")

	conf.SecretKey = "prod-secret"
	assert.NoError(t, conf.Validate())
}
