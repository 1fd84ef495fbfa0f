package config

import "fmt"

// MetricsConfig enables the metrics sinks. Both may be enabled at once; the
// service fans records out to every active sink.
type MetricsConfig struct {
	Prometheus PrometheusConfig `json:"prometheus"`
	Influx     InfluxConfig     `json:"influx"`
}

// PrometheusConfig exposes run/job metrics on a scrape endpoint.
type PrometheusConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

// InfluxConfig writes run/job points to InfluxDB 2.x.
type InfluxConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
	Token   string `json:"token"`
	Org     string `json:"org"`
	Bucket  string `json:"bucket"`
}

// SetDefaults applies sane defaults.
func (c *MetricsConfig) SetDefaults() {
	if c.Prometheus.Addr == "" {
		c.Prometheus.Addr = ":9091"
	}
}

// Validate checks mandatory fields.
func (c MetricsConfig) Validate() error {
	if c.Influx.Enabled {
		if c.Influx.URL == "" {
			return fmt.Errorf("influx.url is required")
		}
		if c.Influx.Org == "" || c.Influx.Bucket == "" {
			return fmt.Errorf("influx.org and influx.bucket are required")
		}
	}
	return nil
}
