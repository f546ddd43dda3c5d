package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cfg := NewConfig()

	assert.Equal(t, "America/New_York", cfg.Export.Timezone)
	assert.Equal(t, DefaultDataDir, cfg.Export.DataDir)
	assert.False(t, cfg.Export.StableIDs)
	assert.Equal(t, 100, cfg.Loader.BatchSize)
	assert.Equal(t, 3, cfg.Loader.MaxRetries)
	assert.Equal(t, time.Second, cfg.Loader.RetryDelay)
	assert.Equal(t, "https", cfg.Elastic.Scheme)
	assert.Equal(t, 9243, cfg.Elastic.Port)
	assert.Equal(t, DefaultLedgerPath, cfg.Ledger.Path)
	assert.Empty(t, cfg.Refresh.Schedule)

	c := cfg.Export.Classifier()
	assert.Equal(t, "pm", c.PatronPrefix)
	assert.Equal(t, "hm", c.HoldingPrefix)
	assert.Equal(t, "hm51", c.Ignored)
	assert.Equal(t, "hm50", c.DVD)
}

func TestNewConfig_Environment(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("ELASTIC_HOST", "library.es.example.com")
	t.Setenv("ELASTIC_PORT", "9200")
	t.Setenv("LOADER_BATCH_SIZE", "250")
	t.Setenv("STABLE_IDS", "true")
	t.Setenv("REFRESH_SCHEDULE", "0 3 * * *")

	cfg := NewConfig()

	assert.Equal(t, "https://library.es.example.com:9200", cfg.Elastic.Address())
	assert.Equal(t, 250, cfg.Loader.BatchSize)
	assert.True(t, cfg.Export.StableIDs)
	assert.Equal(t, "0 3 * * *", cfg.Refresh.Schedule)
}

func TestNewConfig_DotEnv(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("ELASTIC_USER=loader\nDVD_CATEGORY=hm77\n"), 0600))
	t.Setenv("ENV_FILE", envFile)
	t.Setenv("ELASTIC_USER", "")
	os.Unsetenv("ELASTIC_USER")
	os.Unsetenv("DVD_CATEGORY")
	t.Cleanup(func() {
		os.Unsetenv("ELASTIC_USER")
		os.Unsetenv("DVD_CATEGORY")
	})

	cfg := NewConfig()

	assert.Equal(t, "loader", cfg.Elastic.User)
	assert.Equal(t, "hm77", cfg.Export.DVDCategory)
}

func TestElasticAddress(t *testing.T) {
	assert.Equal(t, "http://localhost", Elastic{Scheme: "http", Host: "localhost"}.Address())
}
