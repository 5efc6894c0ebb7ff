package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg, err := NewConfig("localhost:8000", "c2VjcmV0", "http://localhost:5001", []string{"http://localhost:3000"})
		assert.NoError(t, err)
		assert.Equal(t, "localhost:8000", cfg.ServerAddr)
		assert.Equal(t, []byte("secret"), cfg.SigningKey)
		assert.Equal(t, "http://localhost:5001", cfg.ExecutorURL)
		assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	})

	t.Run("empty server address", func(t *testing.T) {
		_, err := NewConfig("", "", "", nil)
		assert.Error(t, err, "expected an error for an empty server address")
	})

	t.Run("empty signing secret disables the gate", func(t *testing.T) {
		cfg, err := NewConfig("localhost:8000", "", "", nil)
		assert.NoError(t, err)
		assert.Empty(t, cfg.SigningKey, "expected no signing key when the secret is empty")
	})

	t.Run("invalid signing secret", func(t *testing.T) {
		_, err := NewConfig("localhost:8000", "not-base64!!!", "", nil)
		assert.Error(t, err, "expected an error for a secret that is not base64")
	})
}
