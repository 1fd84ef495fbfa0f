// Package kakao implements travel-time lookup and address geocoding against
// the Kakao Mobility directions API and the Kakao Local address search API.
package kakao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/cleanbear/dispatch/core/model"
)

// Options configures the client. Zero fields fall back to production
// endpoints and a 10s timeout.
type Options struct {
	APIKey            string
	BaseURL           string
	GeocodeBaseURL    string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Client performs a single attempt per call. Retries and sentinel
// degradation belong to the resilient decorator in infra/distance.
type Client struct {
	http       *http.Client
	key        string
	baseURL    string
	geocodeURL string
	limiter    *rate.Limiter
}

// New builds a Client. The API key is mandatory.
func New(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.New("kakao: api key is empty")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://apis-navi.kakaomobility.com"
	}
	if opts.GeocodeBaseURL == "" {
		opts.GeocodeBaseURL = "https://dapi.kakao.com"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 5
	}
	burst := int(opts.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		http:       &http.Client{Timeout: opts.Timeout},
		key:        opts.APIKey,
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		geocodeURL: strings.TrimSuffix(opts.GeocodeBaseURL, "/"),
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst),
	}, nil
}

type directionsResponse struct {
	Routes []struct {
		ResultCode int    `json:"result_code"`
		ResultMsg  string `json:"result_msg"`
		Summary    struct {
			Distance int `json:"distance"`
			Duration int `json:"duration"`
		} `json:"summary"`
	} `json:"routes"`
}

// TravelMinutes resolves driving time between two coordinates. The
// directions API reports duration in seconds.
func (c *Client) TravelMinutes(ctx context.Context, from, to model.Coordinate) (float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/directions", nil)
	if err != nil {
		return 0, fmt.Errorf("create directions request: %w", err)
	}
	c.authorize(req)
	q := req.URL.Query()
	q.Set("origin", coordParam(from))
	q.Set("destination", coordParam(to))
	q.Set("priority", "RECOMMEND")
	req.URL.RawQuery = q.Encode()

	var decoded directionsResponse
	if err := c.do(req, &decoded); err != nil {
		return 0, fmt.Errorf("directions %s -> %s: %w", coordParam(from), coordParam(to), err)
	}
	if len(decoded.Routes) == 0 {
		return 0, fmt.Errorf("directions %s -> %s: empty routes", coordParam(from), coordParam(to))
	}
	route := decoded.Routes[0]
	if route.ResultCode != 0 {
		return 0, fmt.Errorf("directions %s -> %s: result %d: %s",
			coordParam(from), coordParam(to), route.ResultCode, route.ResultMsg)
	}
	return float64(route.Summary.Duration) / 60.0, nil
}

type addressResponse struct {
	Documents []struct {
		X string `json:"x"`
		Y string `json:"y"`
	} `json:"documents"`
}

// Geocode resolves a Korean address through the local address search API.
// The first document wins; x is longitude, y is latitude, both strings.
func (c *Client) Geocode(ctx context.Context, address string) (model.Coordinate, error) {
	if strings.TrimSpace(address) == "" {
		return model.Coordinate{}, errors.New("geocode: empty address")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return model.Coordinate{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.geocodeURL+"/v2/local/search/address", nil)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("create geocode request: %w", err)
	}
	c.authorize(req)
	q := req.URL.Query()
	q.Set("query", address)
	q.Set("size", "1")
	req.URL.RawQuery = q.Encode()

	var decoded addressResponse
	if err := c.do(req, &decoded); err != nil {
		return model.Coordinate{}, fmt.Errorf("geocode %q: %w", address, err)
	}
	if len(decoded.Documents) == 0 {
		return model.Coordinate{}, fmt.Errorf("geocode %q: no match", address)
	}
	doc := decoded.Documents[0]
	lng, err := strconv.ParseFloat(doc.X, 64)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("geocode %q: parse x: %w", address, err)
	}
	lat, err := strconv.ParseFloat(doc.Y, 64)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("geocode %q: parse y: %w", address, err)
	}
	return model.Coordinate{Lat: lat, Lng: lng}, nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "KakaoAK "+c.key)
	req.Header.Set("Accept", "application/json")
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// coordParam renders a coordinate the way the directions API expects,
// longitude first.
func coordParam(c model.Coordinate) string {
	return strconv.FormatFloat(c.Lng, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lat, 'f', -1, 64)
}
