package config

import (
	"fmt"
	"os"
	"strings"
)

// ResolveSecret reads a secret value using the *_FILE convention.
// If envName+"_FILE" is set, reads the secret from that file path.
// Otherwise falls back to the value of envName.
// Returns empty string if neither is set.
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

// ResolveSecrets resolves several secrets at once, keyed by env name.
// The first unreadable file aborts resolution.
func ResolveSecrets(envNames ...string) (map[string]string, error) {
	out := make(map[string]string, len(envNames))
	for _, name := range envNames {
		v, err := ResolveSecret(name)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}
