package config

import "time"

// StructuredConfig is the top-level configuration container for refsync.
// It is populated by merging values from environment variables,
// command-line flags and an optional JSON file.
//
// Struct tags:
//   - envPrefix — prefix applied to all nested env tag lookups (caarlos0/env).
//   - env       — direct environment variable name for scalar fields.
type StructuredConfig struct {
	// API holds settings for the remote library service.
	API API `envPrefix:"API_"`

	// Storage holds settings for the local embedded store and the
	// attachment file directory.
	Storage Storage `envPrefix:"STORAGE_"`

	// Sync holds sync scheduling and retry settings.
	Sync Sync `envPrefix:"SYNC_"`

	// Transfer holds attachment transfer settings.
	Transfer Transfer `envPrefix:"TRANSFER_"`

	// JSONFilePath is the optional path to a JSON configuration file,
	// merged on top of env and flag values when non-empty.
	// Populated via the CONFIG environment variable or the -c/-config flag.
	JSONFilePath string `env:"CONFIG"`
}

// API holds the remote library service connection settings.
type API struct {
	// BaseURL is the root URL of the library API
	// (e.g. "https://api.example.org").
	// Env: API_BASE_URL
	BaseURL string `env:"BASE_URL"`

	// Key is the static API key sent with every request.
	// Env: API_KEY
	Key string `env:"KEY"`

	// UserID is the numeric identifier of the account whose personal and
	// group libraries are synchronized.
	// Env: API_USER_ID
	UserID int64 `env:"USER_ID"`

	// RequestTimeout bounds a single outbound request (e.g. "30s").
	// Env: API_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Storage groups local persistence settings.
type Storage struct {
	// DB holds the embedded database settings.
	DB DB `envPrefix:"DB_"`

	// Files holds attachment file storage settings.
	Files Files `envPrefix:"FILES_"`
}

// DB holds connection settings for the embedded SQLite database.
type DB struct {
	// DSN is the SQLite connection string, usually a file path.
	// Env: STORAGE_DB_DSN
	DSN string `env:"DSN"`
}

// Files holds file-system settings for downloaded attachments.
type Files struct {
	// AttachmentsDir is the directory where attachment files are stored.
	// Env: STORAGE_FILES_ATTACHMENTS_DIR
	AttachmentsDir string `env:"ATTACHMENTS_DIR"`
}

// Sync holds scheduling and retry settings for the sync orchestrator.
type Sync struct {
	// Interval is how often the background sync worker triggers a run.
	// Env: SYNC_INTERVAL
	Interval time.Duration `env:"INTERVAL"`

	// MaxRetries bounds retry attempts for transient network errors
	// before the unit of work is recorded as a non-fatal failure.
	// Env: SYNC_MAX_RETRIES
	MaxRetries int `env:"MAX_RETRIES"`
}

// Transfer holds attachment transfer tuning.
type Transfer struct {
	// DownloadConcurrency is the number of attachment downloads allowed
	// to run at once. Uploads are always serialized.
	// Env: TRANSFER_DOWNLOAD_CONCURRENCY
	DownloadConcurrency int `env:"DOWNLOAD_CONCURRENCY"`
}

// Get loads, merges and validates the configuration from all sources in
// priority order (later sources fill fields the earlier ones left zero):
//  1. Environment variables
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
//
// Defaults are applied after merging, before validation.
func Get() (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags().
		withJSON().
		build()
}

// applyDefaults fills optional fields that remained zero after merging.
func (c *StructuredConfig) applyDefaults() {
	if c.API.RequestTimeout <= 0 {
		c.API.RequestTimeout = 30 * time.Second
	}
	if c.Sync.Interval <= 0 {
		c.Sync.Interval = 15 * time.Minute
	}
	if c.Sync.MaxRetries <= 0 {
		c.Sync.MaxRetries = 3
	}
	if c.Transfer.DownloadConcurrency <= 0 {
		c.Transfer.DownloadConcurrency = 2
	}
}
