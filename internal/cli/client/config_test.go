package client

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigKey = "shl_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

// withConfigPath points the package at a config file under a temp dir and
// restores the default resolver when the test finishes.
func withConfigPath(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "studyhall", "config.json")
	orig := configPathFunc
	configPathFunc = func() (string, error) { return path, nil }
	t.Cleanup(func() { configPathFunc = orig })
	return path
}

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	t.Setenv(envAPIKey, "")
	t.Setenv(envAPIURL, "")
}

func TestGetConfigPath(t *testing.T) {
	path, err := GetConfigPath()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))
	assert.True(t, strings.HasSuffix(path, filepath.Join("studyhall", "config.json")))
}

func TestLoadGlobalConfig(t *testing.T) {
	t.Run("missing file yields nil config", func(t *testing.T) {
		withConfigPath(t)

		cfg, err := LoadGlobalConfig()
		require.NoError(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("reads stored credentials", func(t *testing.T) {
		path := withConfigPath(t)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		stored := `{"api_key":"` + testConfigKey + `","api_url":"http://localhost:8080"}`
		require.NoError(t, os.WriteFile(path, []byte(stored), 0o600))

		cfg, err := LoadGlobalConfig()
		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.Equal(t, testConfigKey, cfg.APIKey)
		assert.Equal(t, "http://localhost:8080", cfg.APIURL)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		path := withConfigPath(t)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("{invalid json}"), 0o600))

		cfg, err := LoadGlobalConfig()
		assert.Nil(t, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})
}

func TestSaveGlobalConfig(t *testing.T) {
	t.Run("creates the config directory", func(t *testing.T) {
		path := withConfigPath(t)

		err := SaveGlobalConfig(&GlobalConfig{APIKey: testConfigKey, APIURL: "http://localhost:8080"})
		require.NoError(t, err)

		assert.DirExists(t, filepath.Dir(path))
		assert.FileExists(t, path)
	})

	t.Run("writes owner-only permissions", func(t *testing.T) {
		path := withConfigPath(t)

		err := SaveGlobalConfig(&GlobalConfig{APIKey: testConfigKey, APIURL: "http://localhost:8080"})
		require.NoError(t, err)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})

	t.Run("emits valid JSON", func(t *testing.T) {
		path := withConfigPath(t)

		err := SaveGlobalConfig(&GlobalConfig{APIKey: testConfigKey, APIURL: "http://localhost:8080"})
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var cfg GlobalConfig
		require.NoError(t, json.Unmarshal(data, &cfg))
		assert.Equal(t, testConfigKey, cfg.APIKey)
		assert.Equal(t, "http://localhost:8080", cfg.APIURL)
	})

	t.Run("round-trips through load", func(t *testing.T) {
		withConfigPath(t)

		saved := &GlobalConfig{APIKey: testConfigKey, APIURL: "http://localhost:8080"}
		require.NoError(t, SaveGlobalConfig(saved))

		loaded, err := LoadGlobalConfig()
		require.NoError(t, err)
		assert.Equal(t, saved, loaded)
	})

	t.Run("rejects nil config", func(t *testing.T) {
		err := SaveGlobalConfig(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config cannot be nil")
	})
}

func TestDeleteGlobalConfig(t *testing.T) {
	t.Run("removes the stored file", func(t *testing.T) {
		path := withConfigPath(t)
		require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIKey: testConfigKey, APIURL: "http://localhost:8080"}))

		require.NoError(t, DeleteGlobalConfig())
		assert.NoFileExists(t, path)
	})

	t.Run("is idempotent", func(t *testing.T) {
		withConfigPath(t)

		require.NoError(t, DeleteGlobalConfig())
		require.NoError(t, DeleteGlobalConfig())
	})
}

func TestIsValidAPIKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want bool
	}{
		{"lowercase hex", "shl_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", true},
		{"uppercase hex", "shl_0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF", true},
		{"mixed case hex", "shl_0123456789AbCdEf0123456789AbCdEf0123456789AbCdEf0123456789AbCdEf", true},
		{"missing prefix", "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", false},
		{"wrong prefix", "abc_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", false},
		{"too short", "shl_0123456789abcdef", false},
		{"too long", "shl_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef00", false},
		{"non-hex character", "shl_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdeg", false},
		{"trailing space", "shl_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcde ", false},
		{"empty", "", false},
		{"only prefix", "shl_", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidAPIKey(tt.key))
		})
	}
}

func TestGetCredentialSource(t *testing.T) {
	flagKey := "shl_flagkey123456789abcdef0123456789abcdef0123456789abcdef0123456789"
	envKey := "shl_envkey0123456789abcdef0123456789abcdef0123456789abcdef0123456789"
	globalKey := "shl_globalkey123456789abcdef0123456789abcdef0123456789abcdef0123456789"

	t.Run("flags win over everything", func(t *testing.T) {
		t.Setenv(envAPIKey, envKey)
		t.Setenv(envAPIURL, "http://env:8080")

		source, key, url := GetCredentialSource(flagKey, "http://flag:8080")

		assert.Equal(t, SourceFlag, source)
		assert.Equal(t, flagKey, key)
		assert.Equal(t, "http://flag:8080", url)
	})

	t.Run("environment wins over global config", func(t *testing.T) {
		withConfigPath(t)
		require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIKey: globalKey, APIURL: "http://global:8080"}))
		t.Setenv(envAPIKey, envKey)
		t.Setenv(envAPIURL, "http://env:8080")

		source, key, url := GetCredentialSource("", "")

		assert.Equal(t, SourceEnvFile, source)
		assert.Equal(t, envKey, key)
		assert.Equal(t, "http://env:8080", url)
	})

	t.Run("falls back to global config", func(t *testing.T) {
		withConfigPath(t)
		clearCredentialEnv(t)
		require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIKey: globalKey, APIURL: "http://global:8080"}))

		source, key, url := GetCredentialSource("", "")

		assert.Equal(t, SourceGlobalConfig, source)
		assert.Equal(t, globalKey, key)
		assert.Equal(t, "http://global:8080", url)
	})

	t.Run("nothing configured", func(t *testing.T) {
		withConfigPath(t)
		clearCredentialEnv(t)

		source, key, url := GetCredentialSource("", "")

		assert.Equal(t, SourceNone, source)
		assert.Empty(t, key)
		assert.Empty(t, url)
	})

	t.Run("key without URL does not count", func(t *testing.T) {
		withConfigPath(t)
		t.Setenv(envAPIKey, envKey)
		t.Setenv(envAPIURL, "")

		source, key, url := GetCredentialSource("", "")

		assert.Equal(t, SourceNone, source)
		assert.Empty(t, key)
		assert.Empty(t, url)
	})
}
