package config

import "errors"

// validate checks that every required field survived the merge. All
// missing fields are reported at once via errors.Join.
func (c *StructuredConfig) validate() error {
	var errs []error

	if c.API.BaseURL == "" {
		errs = append(errs, ErrNoBaseURL)
	}
	if c.API.Key == "" {
		errs = append(errs, ErrNoAPIKey)
	}
	if c.API.UserID <= 0 {
		errs = append(errs, ErrNoUserID)
	}
	if c.Storage.DB.DSN == "" {
		errs = append(errs, ErrNoDSN)
	}
	if c.Storage.Files.AttachmentsDir == "" {
		errs = append(errs, ErrNoAttachmentsDir)
	}

	return errors.Join(errs...)
}
