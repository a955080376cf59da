package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/SparkyNY/worldmonitor/arcgis"
	"github.com/SparkyNY/worldmonitor/cache"
	"github.com/SparkyNY/worldmonitor/config"
	"github.com/SparkyNY/worldmonitor/geo"
	"github.com/SparkyNY/worldmonitor/gtfsrt"
	"github.com/SparkyNY/worldmonitor/jsonapi"
	"github.com/SparkyNY/worldmonitor/normalize"
	"github.com/SparkyNY/worldmonitor/observability"
	"github.com/SparkyNY/worldmonitor/resolver"
	"github.com/SparkyNY/worldmonitor/rss"
)

// FeatureFetcher is the paged feature-server client used by paged-query
// datasets.
type FeatureFetcher interface {
	QueryAll(ctx context.Context, endpoint string, params map[string]string, page arcgis.Page) ([]arcgis.Feature, []string, error)
}

// TransitAPI is the JSON:API client used by the transit dataset.
type TransitAPI interface {
	Vehicles(ctx context.Context, routeIDs []string) ([]jsonapi.Resource, error)
	Routes(ctx context.Context, ids []string) ([]jsonapi.Resource, error)
	Shapes(ctx context.Context, routeIDs []string) ([]jsonapi.Resource, error)
	Alerts(ctx context.Context) ([]jsonapi.Resource, error)
}

// RealtimeFeed is the GTFS-realtime fallback used when the JSON:API tier
// yields nothing.
type RealtimeFeed interface {
	VehiclePositions(ctx context.Context, url string) ([]gtfsrt.VehiclePosition, error)
	EnhancedVehiclePositions(ctx context.Context, url string) ([]gtfsrt.VehiclePosition, error)
}

// AdvisoryFeed fetches one proxied RSS feed.
type AdvisoryFeed interface {
	Fetch(ctx context.Context, feedURL string) ([]rss.Item, error)
}

// Deps bundles the collaborators a Service needs. Store is required;
// fetchers may be nil when the configuration never exercises them.
type Deps struct {
	Features   FeatureFetcher
	Transit    TransitAPI
	Realtime   RealtimeFeed
	Advisories AdvisoryFeed
	Store      cache.Store
	Clock      clockwork.Clock
	Metrics    *observability.Metrics
	Logger     *slog.Logger
}

// Service drives dataset refreshes and serves the cached read path.
type Service struct {
	cfg        *config.AppConfig
	normalizer *normalize.Normalizer
	features   FeatureFetcher
	transit    TransitAPI
	realtime   RealtimeFeed
	advisories AdvisoryFeed
	store      cache.Store
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *slog.Logger
	flights    *flightGroup
}

func NewService(cfg *config.AppConfig, deps Deps) *Service {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = observability.NewMetricsForTesting()
	}
	// Configured candidate lists override the defaults per logical field;
	// unmentioned fields keep their default candidates.
	fields := normalize.DefaultFields()
	for logical, candidates := range cfg.Fields {
		fields[logical] = candidates
	}
	return &Service{
		cfg:        cfg,
		normalizer: normalize.New(fields),
		features:   deps.Features,
		transit:    deps.Transit,
		realtime:   deps.Realtime,
		advisories: deps.Advisories,
		store:      deps.Store,
		clock:      deps.Clock,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		flights:    newFlightGroup(),
	}
}

// Refresh fetches, normalizes, and caches one dataset. Concurrent calls
// with an identical source fingerprint share a single in-flight fetch. On
// failure nothing is written and any previously cached payload remains
// authoritative.
func (s *Service) Refresh(ctx context.Context, datasetID string) (Payload, error) {
	src, ok := s.cfg.Source(datasetID)
	if !ok {
		return Payload{}, fmt.Errorf("unknown dataset %q", datasetID)
	}
	return s.flights.do(fingerprintOf(src), func() (Payload, error) {
		start := s.clock.Now()
		payload, err := s.refresh(ctx, src)
		s.observe(src, payload, err, s.clock.Since(start))
		if err != nil {
			s.logger.Error("refresh failed", "dataset", src.Dataset, "error", err)
			return Payload{}, err
		}
		data, merr := json.Marshal(payload)
		if merr != nil {
			return Payload{}, fmt.Errorf("encode payload for %s: %w", src.Dataset, merr)
		}
		if werr := s.store.Write(ctx, src.Dataset, data); werr != nil {
			s.logger.Warn("cache write failed", "dataset", src.Dataset, "error", werr)
		}
		s.logger.Info("refresh complete",
			"dataset", src.Dataset,
			"records", payload.Provenance.RecordCount,
			"warnings", len(payload.Provenance.Warnings))
		return payload, nil
	})
}

// Cached returns the last cached payload for a dataset without touching
// the network. cache.ErrMiss passes through for callers to map to 404.
func (s *Service) Cached(ctx context.Context, datasetID string) (Payload, error) {
	entry, err := s.store.Read(ctx, datasetID)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			s.metrics.CacheReads.WithLabelValues(datasetID, "miss").Inc()
		} else {
			s.metrics.CacheReads.WithLabelValues(datasetID, "error").Inc()
		}
		return Payload{}, err
	}
	var payload Payload
	if err := json.Unmarshal(entry.Data, &payload); err != nil {
		s.metrics.CacheReads.WithLabelValues(datasetID, "error").Inc()
		return Payload{}, fmt.Errorf("decode cached payload for %s: %w", datasetID, err)
	}
	s.metrics.CacheReads.WithLabelValues(datasetID, "hit").Inc()
	return payload, nil
}

func (s *Service) refresh(ctx context.Context, src config.SourceConfig) (Payload, error) {
	switch src.Mode {
	case config.ModeStub:
		return s.refreshStub(src), nil
	case config.ModePagedQuery:
		return s.refreshPaged(ctx, src)
	case config.ModeSingleFeed:
		if src.Feed == config.FeedTransit {
			return s.refreshTransit(ctx, src)
		}
		return s.refreshAdvisories(ctx, src)
	default:
		return Payload{}, fmt.Errorf("dataset %s: unsupported mode %q", src.Dataset, src.Mode)
	}
}

// refreshStub assembles an intentionally empty payload. The standing
// warning marks the dataset as configured-but-unimplemented; this is a
// cacheable success, not a failure.
func (s *Service) refreshStub(src config.SourceConfig) Payload {
	return Payload{
		Records:    []normalize.Record{},
		Provenance: s.provenance(src.Dataset, "", nil, 0, []string{src.StaticWarning}),
	}
}

func (s *Service) refreshPaged(ctx context.Context, src config.SourceConfig) (Payload, error) {
	if s.features == nil {
		return Payload{}, fmt.Errorf("dataset %s: no feature fetcher configured", src.Dataset)
	}
	vocab := s.vocabulary(src)
	page := arcgis.Page{Size: src.PageSize, MaxPages: src.MaxPages, MaxRecords: src.MaxRecords}

	anySuccess := false
	tiers := make([]resolver.Tier[normalize.Record], 0, len(src.Tiers))
	for _, t := range src.Tiers {
		tier := t
		tiers = append(tiers, resolver.Tier[normalize.Record]{
			Name: tier.Name,
			URL:  tier.URL,
			Fetch: func(ctx context.Context) ([]normalize.Record, []string, error) {
				features, warnings, err := s.features.QueryAll(ctx, tier.URL, tier.Params, page)
				if err != nil {
					return nil, warnings, err
				}
				anySuccess = true
				return s.featureRecords(features, src.Dataset, vocab), warnings, nil
			},
		})
	}
	res := resolver.Resolve(ctx, tiers)
	if len(res.Records) == 0 && !anySuccess {
		return Payload{}, fmt.Errorf("dataset %s: all source tiers failed: %s",
			src.Dataset, strings.Join(res.Warnings, "; "))
	}
	if res.Records == nil {
		res.Records = []normalize.Record{}
	}
	return Payload{
		Records:    res.Records,
		Provenance: s.provenance(src.Dataset, res.URL, tierParams(src, res.Tier), len(res.Records), res.Warnings),
	}, nil
}

// featureRecords normalizes raw features and applies the dataset's
// keyword vocabulary, if any. A record the vocabulary rejects is dropped,
// not an error.
func (s *Service) featureRecords(features []arcgis.Feature, classification string, vocab normalize.Vocabulary) []normalize.Record {
	records := make([]normalize.Record, 0, len(features))
	for _, f := range features {
		var point *geo.Point
		if f.Geometry != nil {
			p := geo.Point{Lat: f.Geometry.Y, Lon: f.Geometry.X}
			if p.Valid() {
				point = &p
			}
		}
		rec := s.normalizer.Normalize(f.Attributes, point, classification)
		if vocab != nil && !vocab.MatchesRecord(rec) {
			continue
		}
		records = append(records, rec)
	}
	return records
}

func (s *Service) vocabulary(src config.SourceConfig) normalize.Vocabulary {
	if src.Classifier == "" {
		return nil
	}
	return normalize.Vocabulary(s.cfg.Classifiers[src.Classifier])
}

func (s *Service) provenance(datasetID, sourceURL string, params map[string]string, count int, warnings []string) Provenance {
	if warnings == nil {
		warnings = []string{}
	}
	return Provenance{
		DatasetID:   datasetID,
		SourceURL:   sourceURL,
		FetchedAt:   s.clock.Now().UTC().Format(time.RFC3339),
		RecordCount: count,
		QueryParams: params,
		Warnings:    warnings,
	}
}

func (s *Service) observe(src config.SourceConfig, payload Payload, err error, elapsed time.Duration) {
	outcome := "assembled"
	switch {
	case err != nil:
		outcome = "failed"
	case src.Mode == config.ModeStub:
		outcome = "stub"
	case len(payload.Provenance.Warnings) > 0:
		outcome = "degraded"
	}
	s.metrics.Refreshes.WithLabelValues(src.Dataset, outcome).Inc()
	s.metrics.FetchSeconds.WithLabelValues(src.Dataset).Observe(elapsed.Seconds())
	if err == nil {
		s.metrics.Warnings.WithLabelValues(src.Dataset).Add(float64(len(payload.Provenance.Warnings)))
		s.metrics.Records.WithLabelValues(src.Dataset).Set(float64(payload.Provenance.RecordCount))
	}
}

func tierParams(src config.SourceConfig, tierName string) map[string]string {
	for _, t := range src.Tiers {
		if t.Name == tierName {
			return t.Params
		}
	}
	return nil
}
