// internal/config/discover.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnvConfig names the environment variable that overrides config discovery.
const EnvConfig = "ARRQ_CONFIG"

// DefaultPath returns the XDG-compliant default config path.
func DefaultPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "./config.toml"
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "arrq", "config.toml")
}

// SearchPaths returns the locations Discover checks after ARRQ_CONFIG.
func SearchPaths() []string {
	return []string{"./config.toml", DefaultPath(), "/etc/arrq/config.toml"}
}

// Discover finds the config file. ARRQ_CONFIG wins when set and must exist;
// otherwise the first existing entry of SearchPaths is used.
func Discover() (string, error) {
	if envPath := os.Getenv(EnvConfig); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("%s=%s: %w", EnvConfig, envPath, err)
		}
		return envPath, nil
	}

	paths := SearchPaths()
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("config not found, checked: %s", strings.Join(paths, ", "))
}
