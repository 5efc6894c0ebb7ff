package config

import (
	"encoding/base64"
	"fmt"
	"net/url"
)

type Config struct {
	ServerAddr     string
	AllowedOrigins []string
	// SigningKey enables the signed-ticket gate on /ws and /api/execute
	// when non-empty. The room core itself never authenticates identities.
	SigningKey  []byte
	ExecutorURL string
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(base64Secret)
}

func NewConfig(serverAddr, base64Secret, executorURL string, allowedOrigins []string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}

	var signingKey []byte
	if base64Secret != "" {
		var err error
		signingKey, err = decodeSigningSecret(base64Secret)
		if err != nil {
			return nil, fmt.Errorf("decode signing secret: %w", err)
		}
	}

	if executorURL != "" {
		if _, err := url.Parse(executorURL); err != nil {
			return nil, fmt.Errorf("parse executor url: %w", err)
		}
	}

	return &Config{
		ServerAddr:     serverAddr,
		AllowedOrigins: allowedOrigins,
		SigningKey:     signingKey,
		ExecutorURL:    executorURL,
	}, nil
}
