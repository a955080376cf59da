package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Load reads and validates the application configuration. With an empty
// path the default locations are tried in order.
func Load(path string) (*AppConfig, error) {
	paths := []string{path}
	if path == "" {
		paths = []string{"config.yml", "./config/config.yml"}
	}
	var data []byte
	var err error
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)

	v := validator.New()
	if err := v.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if err := checkSources(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 16080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Transit.TimeoutMS == 0 {
		cfg.Transit.TimeoutMS = 10000
	}
	for i := range cfg.Sources {
		s := &cfg.Sources[i]
		if s.Mode != ModePagedQuery {
			continue
		}
		if s.PageSize == 0 {
			s.PageSize = 1000
		}
		if s.MaxPages == 0 {
			s.MaxPages = 10
		}
		if s.MaxRecords == 0 {
			s.MaxRecords = 5000
		}
	}
}

// checkSources enforces the cross-field rules validator tags cannot
// express.
func checkSources(cfg *AppConfig) error {
	seen := map[string]bool{}
	for _, s := range cfg.Sources {
		if seen[s.Dataset] {
			return fmt.Errorf("duplicate dataset id %q", s.Dataset)
		}
		seen[s.Dataset] = true

		switch s.Mode {
		case ModePagedQuery:
			if len(s.Tiers) == 0 {
				return fmt.Errorf("dataset %q: paged-query sources need at least one tier", s.Dataset)
			}
		case ModeSingleFeed:
			if s.Feed == "" {
				return fmt.Errorf("dataset %q: single-feed sources need a feed kind", s.Dataset)
			}
		case ModeStub:
			if s.StaticWarning == "" {
				return fmt.Errorf("dataset %q: stub sources need a static warning", s.Dataset)
			}
		}
		if s.Classifier != "" {
			if _, ok := cfg.Classifiers[s.Classifier]; !ok {
				return fmt.Errorf("dataset %q: unknown classifier %q", s.Dataset, s.Classifier)
			}
		}
	}
	return nil
}

// APIKey resolves the transit API key from the configured environment
// variable. Secrets stay out of the config file.
func (t TransitConfig) APIKey() string {
	if t.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(t.APIKeyEnv)
}
