package config

// Fetch modes for a logical dataset.
const (
	ModePagedQuery = "paged-query"
	ModeSingleFeed = "single-feed"
	ModeStub       = "stub"
)

// Feed kinds for single-feed datasets.
const (
	FeedTransit    = "transit"
	FeedAdvisories = "advisories"
)

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port int `yaml:"port" validate:"gt=0"`
}

// LoggingConfig controls the process-wide slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// RegionConfig is the region of interest used to discard cross-network
// geometry.
type RegionConfig struct {
	CenterLat float64 `yaml:"centerLat" validate:"gte=-90,lte=90"`
	CenterLon float64 `yaml:"centerLon" validate:"gte=-180,lte=180"`
	RadiusKM  float64 `yaml:"radiusKM" validate:"gte=0"`
}

// SourceTier is one fetch strategy for a dataset, tried in declaration
// order.
type SourceTier struct {
	Name   string            `yaml:"name" validate:"required"`
	URL    string            `yaml:"url" validate:"required,url"`
	Params map[string]string `yaml:"params"`
}

// SourceConfig describes one logical dataset. Immutable once loaded.
type SourceConfig struct {
	Dataset       string       `yaml:"dataset" validate:"required"`
	Mode          string       `yaml:"mode" validate:"required,oneof=paged-query single-feed stub"`
	Feed          string       `yaml:"feed" validate:"omitempty,oneof=transit advisories"`
	Tiers         []SourceTier `yaml:"tiers" validate:"dive"`
	PageSize      int          `yaml:"pageSize" validate:"gte=0"`
	MaxPages      int          `yaml:"maxPages" validate:"gte=0"`
	MaxRecords    int          `yaml:"maxRecords" validate:"gte=0"`
	Classifier    string       `yaml:"classifier"`
	StaticWarning string       `yaml:"staticWarning"`
}

// TransitConfig holds the transit-specific endpoints: the JSON:API base,
// the two fallback feeds, and the proxied advisory feed candidates.
type TransitConfig struct {
	APIBase         string   `yaml:"apiBase" validate:"omitempty,url"`
	APIKeyEnv       string   `yaml:"apiKeyEnv"`
	GTFSRTFeedURL   string   `yaml:"gtfsrtFeedURL" validate:"omitempty,url"`
	EnhancedFeedURL string   `yaml:"enhancedFeedURL" validate:"omitempty,url"`
	AdvisoryFeeds   []string `yaml:"advisoryFeeds" validate:"dive,url"`
	ProxyBase       string   `yaml:"proxyBase"`
	TimeoutMS       int      `yaml:"timeoutMS" validate:"gte=0"`
}

// AppConfig is the root configuration structure.
type AppConfig struct {
	Server      ServerConfig        `yaml:"server" validate:"required"`
	Logging     LoggingConfig       `yaml:"logging"`
	Region      RegionConfig        `yaml:"region"`
	Transit     TransitConfig       `yaml:"transit"`
	Sources     []SourceConfig      `yaml:"sources" validate:"dive"`
	Fields      map[string][]string `yaml:"fields"`
	Classifiers map[string][]string `yaml:"classifiers"`
	CachePath   string              `yaml:"cachePath"`
}

// Source returns the descriptor for a dataset id.
func (c *AppConfig) Source(datasetID string) (SourceConfig, bool) {
	for _, s := range c.Sources {
		if s.Dataset == datasetID {
			return s, true
		}
	}
	return SourceConfig{}, false
}
