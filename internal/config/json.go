package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// StructuredJSONConfig mirrors StructuredConfig with JSON tags and
// string-friendly duration fields for the optional config file.
type StructuredJSONConfig struct {
	API struct {
		BaseURL        string   `json:"base_url"`
		Key            string   `json:"key"`
		UserID         int64    `json:"user_id"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"api,omitempty"`

	Storage struct {
		DB struct {
			DSN string `json:"dsn"`
		} `json:"db,omitempty"`
		Files struct {
			AttachmentsDir string `json:"attachments_dir"`
		} `json:"files,omitempty"`
	} `json:"storage,omitempty"`

	Sync struct {
		Interval   Duration `json:"interval"`
		MaxRetries int      `json:"max_retries"`
	} `json:"sync,omitempty"`

	Transfer struct {
		DownloadConcurrency int `json:"download_concurrency"`
	} `json:"transfer,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		API: API{
			BaseURL:        jsonCfg.API.BaseURL,
			Key:            jsonCfg.API.Key,
			UserID:         jsonCfg.API.UserID,
			RequestTimeout: time.Duration(jsonCfg.API.RequestTimeout),
		},
		Storage: Storage{
			DB:    DB{DSN: jsonCfg.Storage.DB.DSN},
			Files: Files{AttachmentsDir: jsonCfg.Storage.Files.AttachmentsDir},
		},
		Sync: Sync{
			Interval:   time.Duration(jsonCfg.Sync.Interval),
			MaxRetries: jsonCfg.Sync.MaxRetries,
		},
		Transfer: Transfer{
			DownloadConcurrency: jsonCfg.Transfer.DownloadConcurrency,
		},
	}

	return cfg, nil
}

// Duration wraps time.Duration to support JSON unmarshaling from strings
// like "1h" or "30s" as well as plain nanosecond numbers.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		*d = Duration(parsed)
		return nil
	default:
		return errors.New("invalid duration value")
	}
}
