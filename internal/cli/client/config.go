package client

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// GlobalConfig holds the credentials persisted by `studyhall auth login`.
type GlobalConfig struct {
	APIKey string `json:"api_key"`
	APIURL string `json:"api_url"`
}

// configPathFunc is swapped out in tests.
var configPathFunc = defaultConfigPath

func defaultConfigPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(base, "studyhall", "config.json"), nil
}

// GetConfigPath returns the full path of the global config file.
func GetConfigPath() (string, error) {
	return configPathFunc()
}

// LoadGlobalConfig reads the global config. A missing file is not an
// error; it yields a nil config.
func LoadGlobalConfig() (*GlobalConfig, error) {
	path, err := configPathFunc()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg GlobalConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &cfg, nil
}

// SaveGlobalConfig persists the config with owner-only permissions,
// creating the config directory when needed.
func SaveGlobalConfig(cfg *GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	path, err := configPathFunc()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// DeleteGlobalConfig removes the global config. Removing an absent file
// succeeds, so logout is idempotent.
func DeleteGlobalConfig() error {
	path, err := configPathFunc()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete config file: %w", err)
	}
	return nil
}

// IsValidAPIKey reports whether key has the shape of a studyhall API key:
// the shl_ prefix followed by 32 bytes in hex.
func IsValidAPIKey(key string) bool {
	hexPart, ok := strings.CutPrefix(key, "shl_")
	if !ok || len(hexPart) != 64 {
		return false
	}
	_, err := hex.DecodeString(hexPart)
	return err == nil
}

// CredentialSource identifies where the CLI found its credentials.
type CredentialSource string

const (
	SourceFlag         CredentialSource = "flag"
	SourceEnvFile      CredentialSource = "env_file"
	SourceGlobalConfig CredentialSource = "global_config"
	SourceNone         CredentialSource = "none"
)

// GetCredentialSource resolves credentials, preferring flags over the
// environment over the global config. The key and URL must both come
// from the same source.
func GetCredentialSource(flagAPIKey, flagAPIURL string) (CredentialSource, string, string) {
	if flagAPIKey != "" && flagAPIURL != "" {
		return SourceFlag, flagAPIKey, flagAPIURL
	}

	if key, url := os.Getenv(envAPIKey), os.Getenv(envAPIURL); key != "" && url != "" {
		return SourceEnvFile, key, url
	}

	if cfg, err := LoadGlobalConfig(); err == nil && cfg != nil && cfg.APIKey != "" && cfg.APIURL != "" {
		return SourceGlobalConfig, cfg.APIKey, cfg.APIURL
	}

	return SourceNone, "", ""
}
