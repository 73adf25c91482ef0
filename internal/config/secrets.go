package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultSecretsPath = "/var/run/secrets/onecta"
	clientIDFile       = "client_id"
	clientSecretFile   = "client_secret"
	refreshTokenFile   = "refresh_token"
)

type secretValues struct {
	clientID     string
	clientSecret string
	refreshToken string
}

// tryLoadFromSecrets reads credentials from mounted Kubernetes secret files.
// A missing directory or file yields empty values (not an error - allows fallback to env vars).
func tryLoadFromSecrets() (secretValues, error) {
	secretsPath := os.Getenv("ONECTA_SECRETS_PATH")
	if secretsPath == "" {
		secretsPath = defaultSecretsPath
	}

	if _, err := os.Stat(secretsPath); os.IsNotExist(err) {
		return secretValues{}, nil
	}

	var s secretValues
	var err error
	if s.clientID, err = readSecret(secretsPath, clientIDFile); err != nil {
		return secretValues{}, err
	}
	if s.clientSecret, err = readSecret(secretsPath, clientSecretFile); err != nil {
		return secretValues{}, err
	}
	if s.refreshToken, err = readSecret(secretsPath, refreshTokenFile); err != nil {
		return secretValues{}, err
	}
	return s, nil
}

func readSecret(dir, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// ReadRefreshToken returns the token persisted at path, or "" when the file does not exist yet.
func ReadRefreshToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// SaveRefreshToken atomically replaces the token file.
func SaveRefreshToken(path, token string) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}
