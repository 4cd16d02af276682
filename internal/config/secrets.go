package config

import (
	"fmt"
	"os"
	"strings"
)

// Env names of the secrets SceneBridge reads. Each may instead be given as
// a file path in <NAME>_FILE.
const (
	EnvPostgresPassword = "PGPASSWORD"
	EnvMQTTPassword     = "SCENEBRIDGE_MQTT_PASSWORD"
	EnvAdminUser        = "SCENEBRIDGE_ADMIN_USER"
	EnvAdminPass        = "SCENEBRIDGE_ADMIN_PASS"
	EnvOperatorUser     = "SCENEBRIDGE_OPERATOR_USER"
	EnvOperatorPass     = "SCENEBRIDGE_OPERATOR_PASS"
)

// Secrets holds every credential used by the bridge. Empty values mean the
// secret is not set.
type Secrets struct {
	PostgresPassword string
	MQTTPassword     string
	AdminUser        string
	AdminPass        string
	OperatorUser     string
	OperatorPass     string
}

// ResolveSecret reads a secret value using the *_FILE convention.
// If envName+"_FILE" is set, the secret is read from that path and
// trimmed. Otherwise the value of envName is returned, which may be empty.
func ResolveSecret(envName string) (string, error) {
	fileEnv := envName + "_FILE"
	if filePath := os.Getenv(fileEnv); filePath != "" {
		content, err := os.ReadFile(filePath)
		if err != nil {
			// never include the content
			return "", fmt.Errorf("failed to read secret from %s=%s: %w", fileEnv, filePath, err)
		}
		return strings.TrimSpace(string(content)), nil
	}
	return os.Getenv(envName), nil
}

// LoadSecrets resolves all secrets. It stops at the first unreadable file.
func LoadSecrets() (*Secrets, error) {
	var s Secrets
	for _, f := range []struct {
		env string
		dst *string
	}{
		{EnvPostgresPassword, &s.PostgresPassword},
		{EnvMQTTPassword, &s.MQTTPassword},
		{EnvAdminUser, &s.AdminUser},
		{EnvAdminPass, &s.AdminPass},
		{EnvOperatorUser, &s.OperatorUser},
		{EnvOperatorPass, &s.OperatorPass},
	} {
		v, err := ResolveSecret(f.env)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	return &s, nil
}
