package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *StructuredConfig {
	return &StructuredConfig{
		API: API{
			BaseURL: "https://api.example.org",
			Key:     "secret",
			UserID:  7,
		},
		Storage: Storage{
			DB:    DB{DSN: "refsync.db"},
			Files: Files{AttachmentsDir: "/tmp/attachments"},
		},
	}
}

func TestValidate_ReportsAllMissingFields(t *testing.T) {
	cfg := &StructuredConfig{}
	err := cfg.validate()
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrNoBaseURL)
	assert.ErrorIs(t, err, ErrNoAPIKey)
	assert.ErrorIs(t, err, ErrNoUserID)
	assert.ErrorIs(t, err, ErrNoDSN)
	assert.ErrorIs(t, err, ErrNoAttachmentsDir)
}

func TestValidate_AcceptsCompleteConfig(t *testing.T) {
	require.NoError(t, validConfig().validate())
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.applyDefaults()

	assert.Equal(t, 30*time.Second, cfg.API.RequestTimeout)
	assert.Equal(t, 15*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, 3, cfg.Sync.MaxRetries)
	assert.Equal(t, 2, cfg.Transfer.DownloadConcurrency)
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := validConfig()
	cfg.Sync.Interval = time.Hour
	cfg.Transfer.DownloadConcurrency = 8
	cfg.applyDefaults()

	assert.Equal(t, time.Hour, cfg.Sync.Interval)
	assert.Equal(t, 8, cfg.Transfer.DownloadConcurrency)
}

func TestParseEnv(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.example.org")
	t.Setenv("API_KEY", "from-env")
	t.Setenv("API_USER_ID", "42")
	t.Setenv("STORAGE_DB_DSN", "local.db")
	t.Setenv("SYNC_INTERVAL", "5m")
	t.Setenv("TRANSFER_DOWNLOAD_CONCURRENCY", "4")

	cfg := &StructuredConfig{}
	require.NoError(t, parseEnv(cfg))

	assert.Equal(t, "https://api.example.org", cfg.API.BaseURL)
	assert.Equal(t, "from-env", cfg.API.Key)
	assert.Equal(t, int64(42), cfg.API.UserID)
	assert.Equal(t, "local.db", cfg.Storage.DB.DSN)
	assert.Equal(t, 5*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, 4, cfg.Transfer.DownloadConcurrency)
}

func TestParseJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"api": {"base_url": "https://api.example.org", "key": "from-json", "user_id": 9, "request_timeout": "45s"},
		"storage": {"db": {"dsn": "json.db"}, "files": {"attachments_dir": "/data/files"}},
		"sync": {"interval": "30m", "max_retries": 5},
		"transfer": {"download_concurrency": 3}
	}`), 0o644))

	cfg, err := parseJSON(path)
	require.NoError(t, err)

	assert.Equal(t, "from-json", cfg.API.Key)
	assert.Equal(t, 45*time.Second, cfg.API.RequestTimeout)
	assert.Equal(t, "json.db", cfg.Storage.DB.DSN)
	assert.Equal(t, "/data/files", cfg.Storage.Files.AttachmentsDir)
	assert.Equal(t, 30*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, 5, cfg.Sync.MaxRetries)
	assert.Equal(t, 3, cfg.Transfer.DownloadConcurrency)
}

func TestParseJSON_MissingFile(t *testing.T) {
	_, err := parseJSON(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Duration
		fails bool
	}{
		{"string form", `"1h30m"`, 90 * time.Minute, false},
		{"numeric nanoseconds", `1000000000`, time.Second, false},
		{"garbage string", `"soon"`, 0, true},
		{"wrong type", `[1]`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := json.Unmarshal([]byte(tt.input), &d)
			if tt.fails {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, time.Duration(d))
		})
	}
}

func TestBuilder_LaterSourcesFillGaps(t *testing.T) {
	// Earlier sources win for fields they set; later sources only fill
	// what is still zero.
	first := &StructuredConfig{API: API{Key: "from-first"}}
	second := validConfig()
	second.API.Key = "from-second"

	b := newConfigBuilder()
	b.configs = append(b.configs, first, second)

	cfg, err := b.build()
	require.NoError(t, err)
	assert.Equal(t, "from-first", cfg.API.Key)
	assert.Equal(t, "https://api.example.org", cfg.API.BaseURL)
}

func TestBuilder_ValidationFailureSurfaces(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs, &StructuredConfig{API: API{Key: "only-key"}})

	_, err := b.build()
	require.ErrorIs(t, err, ErrNoBaseURL)
}
