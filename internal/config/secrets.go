package config

import (
	"fmt"
	"os"
	"strings"
)

// Secret environment variables. Each also accepts a NAME_FILE variant.
const (
	EnvRedisPassword = "TESSERA_REDIS_PASSWORD"
	EnvPostgresDSN   = "TESSERA_POSTGRES_DSN"
	EnvMQTTPassword  = "TESSERA_MQTT_PASSWORD"
	EnvStoreKey      = "TESSERA_STORE_KEY"
)

// ResolveSecret reads a secret value using the *_FILE convention.
// If envName+"_FILE" is set, reads the secret from that file path.
// Otherwise falls back to the value of envName.
// Returns an error if the file cannot be read.
func ResolveSecret(envName string) (string, error) {
	fileEnv := envName + "_FILE"
	if filePath := os.Getenv(fileEnv); filePath != "" {
		content, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("failed to read secret from %s=%s: %w", fileEnv, filePath, err)
		}
		return strings.TrimSpace(string(content)), nil
	}
	return os.Getenv(envName), nil
}

// LoadSecrets resolves every secret the server knows about.
func LoadSecrets() (Secrets, error) {
	var (
		s   Secrets
		err error
	)
	targets := []struct {
		env string
		dst *string
	}{
		{EnvRedisPassword, &s.RedisPassword},
		{EnvPostgresDSN, &s.PostgresDSN},
		{EnvMQTTPassword, &s.MQTTPassword},
		{EnvStoreKey, &s.StoreKey},
	}
	for _, t := range targets {
		if *t.dst, err = ResolveSecret(t.env); err != nil {
			return Secrets{}, err
		}
	}
	return s, nil
}
