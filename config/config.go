package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Rules    RulesConfig    `json:"rules"`
	Roster   RosterConfig   `json:"roster"`
	Distance DistanceConfig `json:"distance"`
	Notify   NotifyConfig   `json:"notify"`
	Metrics  MetricsConfig  `json:"metrics"`
	API      APIConfig      `json:"api"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("DISPATCH_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "dispatch_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Rules.SetDefaults()
	cfg.Roster.SetDefaults()
	cfg.Distance.SetDefaults()
	cfg.Notify.SetDefaults()
	cfg.Metrics.SetDefaults()
	cfg.API.SetDefaults()
	if err := cfg.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}
	if err := cfg.Roster.Validate(); err != nil {
		return nil, fmt.Errorf("roster: %w", err)
	}
	if err := cfg.Distance.Validate(); err != nil {
		return nil, fmt.Errorf("distance: %w", err)
	}
	if err := cfg.Notify.Validate(); err != nil {
		return nil, fmt.Errorf("notify: %w", err)
	}
	if err := cfg.Metrics.Validate(); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	if err := cfg.API.Validate(); err != nil {
		return nil, fmt.Errorf("api: %w", err)
	}
	return &cfg, nil
}
