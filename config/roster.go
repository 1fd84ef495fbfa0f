package config

import (
	"fmt"
	"os"
)

// RosterConfig selects where technician rows come from.
type RosterConfig struct {
	// Source selects the roster backend: "sheets" or "none". With "none"
	// the service serves an empty roster and expects technicians inline in
	// each request.
	Source string `json:"source"`
	// RefreshIntervalSeconds drives the background refresh loop. Zero
	// disables periodic refresh.
	RefreshIntervalSeconds int          `json:"refresh_interval_seconds"`
	Sheets                 SheetsConfig `json:"sheets"`
}

// SheetsConfig points at the technician spreadsheet. Authentication is a
// service account key (CredentialsJSON, also read from the
// GOOGLE_CREDENTIALS_JSON environment variable) or an API key for
// link-public sheets.
type SheetsConfig struct {
	SpreadsheetID   string `json:"spreadsheet_id"`
	Range           string `json:"range"`
	CredentialsJSON string `json:"credentials_json"`
	APIKey          string `json:"api_key"`
	BaseURL         string `json:"base_url"`
	TimeoutSeconds  int    `json:"timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *RosterConfig) SetDefaults() {
	if c.Source == "" {
		c.Source = "none"
	}
	if c.RefreshIntervalSeconds == 0 {
		c.RefreshIntervalSeconds = 600
	}
	if c.Sheets.Range == "" {
		c.Sheets.Range = "Technicians!A:Z"
	}
	if c.Sheets.BaseURL == "" {
		c.Sheets.BaseURL = "https://sheets.googleapis.com"
	}
	if c.Sheets.TimeoutSeconds == 0 {
		c.Sheets.TimeoutSeconds = 10
	}
	if c.Sheets.CredentialsJSON == "" {
		c.Sheets.CredentialsJSON = os.Getenv("GOOGLE_CREDENTIALS_JSON")
	}
}

// Validate checks mandatory fields.
func (c RosterConfig) Validate() error {
	switch c.Source {
	case "none":
	case "sheets":
		if c.Sheets.SpreadsheetID == "" {
			return fmt.Errorf("sheets.spreadsheet_id is required")
		}
		if c.Sheets.CredentialsJSON == "" && c.Sheets.APIKey == "" {
			return fmt.Errorf("sheets.credentials_json or sheets.api_key is required")
		}
	default:
		return fmt.Errorf("unknown source %s", c.Source)
	}
	if c.RefreshIntervalSeconds < 0 {
		return fmt.Errorf("refresh_interval_seconds must not be negative")
	}
	return nil
}
