package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/sheet-extractor/constants"
)

// clearEnv blanks every variable LoadConfig reads so host settings cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"SHEETX_CONFIG", "ADDR", "MAX_UPLOAD_BYTES", "APP_USERNAME", "APP_PASSWORD",
		"SESSION_SECRET", "SESSION_COOKIE", "SESSION_SECURE",
		"OPENAI_MODEL", "OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MAX_TOKENS", "OPENAI_TEMPERATURE", "OPENAI_TIMEOUT",
		"IMAGES_DIR", "SHEETS_DIR", "LEDGER_DRIVER", "LEDGER_PATH", "LEDGER_DSN", "MATERIALS_PATH",
		"FEATURE_MATERIALS", "FEATURE_PERSIST_IMAGE", "TAGS", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8501", cfg.Server.Addr)
	assert.Equal(t, int64(20<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 1500, cfg.LLM.MaxTokens)
	assert.Zero(t, cfg.LLM.Timeout)
	assert.Equal(t, "imagens", cfg.Storage.ImagesDir)
	assert.Equal(t, "planilhas", cfg.Storage.SheetsDir)
	assert.Equal(t, "metadados.json", cfg.Storage.LedgerPath)
	assert.Equal(t, "materias_primas.txt", cfg.Storage.MaterialsPath)
	assert.Equal(t, LedgerDriverJSON, cfg.Storage.LedgerDriver)
	assert.Equal(t, constants.DefaultTags, cfg.Tags)
	assert.False(t, cfg.Features.Materials)
	assert.False(t, cfg.Features.PersistImage)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ADDR", ":9000")
	t.Setenv("APP_USERNAME", "op")
	t.Setenv("APP_PASSWORD", "pw")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_TIMEOUT", "90s")
	t.Setenv("OPENAI_TEMPERATURE", "0.2")
	t.Setenv("LEDGER_DRIVER", "SQLite")
	t.Setenv("FEATURE_MATERIALS", "true")
	t.Setenv("FEATURE_PERSIST_IMAGE", "1")
	t.Setenv("TAGS", "recibo, , nota fiscal")
	t.Setenv("MAX_UPLOAD_BYTES", "not-a-number")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, int64(20<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, 90*time.Second, cfg.LLM.Timeout)
	assert.InDelta(t, 0.2, cfg.LLM.Temperature, 1e-6)
	assert.Equal(t, LedgerDriverSQLite, cfg.Storage.LedgerDriver)
	assert.True(t, cfg.Features.Materials)
	assert.True(t, cfg.Features.PersistImage)
	assert.Equal(t, []string{"recibo", "nota fiscal"}, cfg.Tags)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_YAMLFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "sheetx.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":7000"
auth:
  username: yaml-user
  password: yaml-pass
llm:
  model: gpt-4o-mini
  api_key: from-yaml
storage:
  images_dir: /data/img
features:
  materials: true
tags: [a, b]
`), 0o644))
	t.Setenv("SHEETX_CONFIG", path)
	t.Setenv("OPENAI_MODEL", "gpt-4.1")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "yaml-user", cfg.Auth.Username)
	assert.Equal(t, "gpt-4.1", cfg.LLM.Model)
	assert.Equal(t, "from-yaml", cfg.LLM.APIKey)
	assert.Equal(t, "/data/img", cfg.Storage.ImagesDir)
	assert.Equal(t, "planilhas", cfg.Storage.SheetsDir)
	assert.True(t, cfg.Features.Materials)
	assert.Equal(t, []string{"a", "b"}, cfg.Tags)
}

func TestLoadConfig_BadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))
	t.Setenv("SHEETX_CONFIG", path)

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Defaults()
		c.Auth.Username, c.Auth.Password = "op", "pw"
		c.LLM.APIKey = "sk"
		return c
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(c *Config){
		"no credentials":   func(c *Config) { c.Auth.Password = "" },
		"no api key":       func(c *Config) { c.LLM.APIKey = "" },
		"unknown driver":   func(c *Config) { c.Storage.LedgerDriver = "mongo" },
		"postgres w/o dsn": func(c *Config) { c.Storage.LedgerDriver = LedgerDriverPostgres },
		"no tags":          func(c *Config) { c.Tags = nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}
