package config

import (
	"flag"
	"time"
)

// ParseFlags parses all configuration flags.
//
// Flags:
//
//	-api-url remote library service base URL
//	-api-key static API key
//	-user numeric user identifier
//	-d local database DSN (SQLite file path)
//	-attachments attachment storage directory
//	-sync-interval background sync interval (e.g., "15m")
//	-max-retries transient error retry bound
//	-request-timeout outbound request timeout (e.g., "30s")
//	-c/-config json file path with configs
func ParseFlags() *StructuredConfig {
	var baseURL string
	var apiKey string
	var userID int64
	var databaseDSN string
	var attachmentsDir string
	var syncInterval time.Duration
	var maxRetries int
	var requestTimeout time.Duration
	var downloadConcurrency int
	var jsonConfigPath string

	flag.StringVar(&baseURL, "api-url", "", "Remote library service base URL")
	flag.StringVar(&apiKey, "api-key", "", "API key")
	flag.Int64Var(&userID, "user", 0, "Numeric user identifier")
	flag.StringVar(&databaseDSN, "d", "", "Local database DSN")
	flag.StringVar(&attachmentsDir, "attachments", "", "Attachment storage directory")
	flag.DurationVar(&syncInterval, "sync-interval", 0, "Background sync interval (e.g., 15m)")
	flag.IntVar(&maxRetries, "max-retries", 0, "Transient error retry bound")
	flag.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s)")
	flag.IntVar(&downloadConcurrency, "download-concurrency", 0, "Concurrent attachment downloads")
	flag.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	flag.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")

	flag.Parse()

	return &StructuredConfig{
		API: API{
			BaseURL:        baseURL,
			Key:            apiKey,
			UserID:         userID,
			RequestTimeout: requestTimeout,
		},
		Storage: Storage{
			DB:    DB{DSN: databaseDSN},
			Files: Files{AttachmentsDir: attachmentsDir},
		},
		Sync: Sync{
			Interval:   syncInterval,
			MaxRetries: maxRetries,
		},
		Transfer: Transfer{
			DownloadConcurrency: downloadConcurrency,
		},
		JSONFilePath: jsonConfigPath,
	}
}
