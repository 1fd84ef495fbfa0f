// Package sheets loads the technician roster from a Google Sheets
// spreadsheet through the values REST API.
package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cleanbear/dispatch/core/logger"
	"github.com/cleanbear/dispatch/core/model"
)

// Options configures the source.
type Options struct {
	SpreadsheetID string
	// Range in A1 notation, e.g. "Technicians!A:Z". Sheet names may be
	// Korean; the URL path is escaped accordingly.
	Range string
	// CredentialsJSON holds a Google service account key. When set it takes
	// precedence over APIKey, which only works on link-public sheets.
	CredentialsJSON string
	APIKey          string
	BaseURL         string
	Timeout         time.Duration
}

// Source implements roster.Source against the spreadsheet.
type Source struct {
	http      *http.Client
	baseURL   string
	id        string
	readRange string
	key       string
	log       logger.Logger
}

// New builds a Source. Spreadsheet ID plus either service account
// credentials or an API key are mandatory.
func New(opts Options, log logger.Logger) (*Source, error) {
	if opts.SpreadsheetID == "" {
		return nil, errors.New("sheets: spreadsheet id is empty")
	}
	if opts.CredentialsJSON == "" && opts.APIKey == "" {
		return nil, errors.New("sheets: no service account credentials or api key")
	}
	if opts.Range == "" {
		opts.Range = "Technicians!A:Z"
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://sheets.googleapis.com"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: opts.Timeout}
	key := opts.APIKey
	if opts.CredentialsJSON != "" {
		var err error
		client, err = serviceAccountClient([]byte(opts.CredentialsJSON), opts.Timeout)
		if err != nil {
			return nil, err
		}
		key = ""
	}
	return &Source{
		http:      client,
		baseURL:   strings.TrimSuffix(opts.BaseURL, "/"),
		id:        opts.SpreadsheetID,
		readRange: opts.Range,
		key:       key,
		log:       log,
	}, nil
}

type valuesResponse struct {
	Values [][]any `json:"values"`
}

// FetchTechnicians implements roster.Source. The first row is the header;
// columns are matched case-insensitively by name, so operators may reorder
// the sheet freely. Rows without an id are ignored.
func (s *Source) FetchTechnicians(ctx context.Context) ([]model.Technician, error) {
	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s",
		s.baseURL, url.PathEscape(s.id), url.PathEscape(s.readRange))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create sheets request: %w", err)
	}
	if s.key != "" {
		q := req.URL.Query()
		q.Set("key", s.key)
		req.URL.RawQuery = q.Encode()
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sheet: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("fetch sheet: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var decoded valuesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode sheet response: %w", err)
	}
	return parseRows(decoded.Values)
}

func parseRows(values [][]any) ([]model.Technician, error) {
	if len(values) < 2 {
		return nil, nil
	}
	header := make(map[string]int, len(values[0]))
	for idx, h := range values[0] {
		header[strings.ToLower(strings.TrimSpace(cell(h)))] = idx
	}
	if _, ok := header["id"]; !ok {
		return nil, errors.New("sheet header missing id column")
	}

	techs := make([]model.Technician, 0, len(values)-1)
	for _, row := range values[1:] {
		field := func(name string) string {
			idx, ok := header[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(cell(row[idx]))
		}
		id := field("id")
		if id == "" {
			continue
		}
		area := field("area")
		techs = append(techs, model.Technician{
			ID:              id,
			Name:            field("name"),
			Phone:           field("phone"),
			Home:            model.Location{Address: area, Coord: coordFrom(field("lat"), field("lng"))},
			ServiceTypes:    splitServices(field("service_types")),
			OvertimeAllowed: truthy(field("overtime_allowed"), true),
			Inactive:        !truthy(field("active"), true),
		})
	}
	return techs, nil
}

// cell renders a sheet value as text. The values API returns formatted
// strings, but unformatted reads may carry numbers.
func cell(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func coordFrom(lat, lng string) *model.Coordinate {
	if lat == "" || lng == "" {
		return nil
	}
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return nil
	}
	ln, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return nil
	}
	return &model.Coordinate{Lat: la, Lng: ln}
}

func splitServices(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '|' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// truthy mirrors the spreadsheet conventions: empty cells take the column
// default, anything outside the accepted set reads as false.
func truthy(s string, def bool) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return def
	}
	switch s {
	case "true", "1", "on", "yes", "y":
		return true
	}
	return false
}
