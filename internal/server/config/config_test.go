package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, c.EndpointAddr, ":8080")
	assert.Equal(t, c.DatabaseDSN, "")
	assert.Equal(t, c.SecretKey, "secretKey")
	assert.Equal(t, c.AccessTokenValidityDuration, 2*time.Hour)
	assert.Equal(t, c.RefreshTokenValidityDuration, 72*time.Hour)
	assert.Equal(t, c.AuthMode, AuthModeToken)
	assert.Equal(t, c.AdminLogin, "Admin")
	assert.Equal(t, c.AdminPassword, "Admin123")
	assert.Equal(t, c.AdminName, "Administrator")
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	c := LoadConfig()

	require.NotNil(t, c, "LoadConfig must not return nil")

	assert.Equal(t, c.EndpointAddr, ":8080")
	assert.Equal(t, c.DatabaseDSN, "")
	assert.Equal(t, c.SecretKey, "secretKey")
	assert.Equal(t, c.AccessTokenValidityDuration, 2*time.Hour)
	assert.Equal(t, c.RefreshTokenValidityDuration, 72*time.Hour)
	assert.Equal(t, c.AuthMode, AuthModeToken)
	assert.Equal(t, c.AdminLogin, "Admin")
	assert.Equal(t, c.AdminPassword, "Admin123")
	assert.Equal(t, c.AdminName, "Administrator")
}
