package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/SparkyNY/worldmonitor/config"
	"github.com/SparkyNY/worldmonitor/enrich"
	"github.com/SparkyNY/worldmonitor/geo"
	"github.com/SparkyNY/worldmonitor/gtfsrt"
	"github.com/SparkyNY/worldmonitor/jsonapi"
	"github.com/SparkyNY/worldmonitor/normalize"
	"github.com/SparkyNY/worldmonitor/resolver"
	"github.com/SparkyNY/worldmonitor/rss"
)

// refreshTransit runs the three transit sub-fetches concurrently:
// vehicles (tiered JSON:API, then the protobuf feed, then the enhanced
// JSON feed), service alerts, and the proxied RSS advisories. Each branch
// degrades to empty plus a warning on its own; the refresh fails outright
// only when every branch comes up empty-handed.
func (s *Service) refreshTransit(ctx context.Context, src config.SourceConfig) (Payload, error) {
	var (
		wg sync.WaitGroup

		vehicles   resolver.Result[gtfsrt.VehiclePosition]
		vehiclesOK bool

		alerts        []jsonapi.Resource
		alertWarnings []string
		alertsOK      bool

		advisories   resolver.Result[rss.Item]
		advisoriesOK bool
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		vehicles = resolver.Resolve(ctx, s.vehicleTiers(&vehiclesOK))
	}()
	go func() {
		defer wg.Done()
		if s.transit == nil || s.cfg.Transit.APIBase == "" {
			alertWarnings = []string{"alerts skipped: no transit api configured"}
			return
		}
		list, err := s.transit.Alerts(ctx)
		if err != nil {
			alertWarnings = []string{fmt.Sprintf("alerts failed: %v", err)}
			return
		}
		alerts = list
		alertsOK = true
	}()
	go func() {
		defer wg.Done()
		advisories = resolver.Resolve(ctx, s.advisoryTiers(&advisoriesOK))
	}()
	wg.Wait()

	warnings := append([]string{}, vehicles.Warnings...)
	warnings = append(warnings, alertWarnings...)
	warnings = append(warnings, advisories.Warnings...)

	if !vehiclesOK && !alertsOK && !advisoriesOK {
		return Payload{}, fmt.Errorf("dataset %s: all transit sources failed: %s",
			src.Dataset, strings.Join(warnings, "; "))
	}

	records := vehicleRecords(vehicles.Records)
	records = append(records, resolver.MergeByRecency(recordTime,
		s.alertRecords(alerts), advisoryRecords(advisories.Records))...)

	lines, lineWarnings := s.routeLines(ctx, vehicles.Records)
	warnings = append(warnings, lineWarnings...)

	sourceURL := vehicles.URL
	if sourceURL == "" {
		sourceURL = s.cfg.Transit.APIBase
	}
	return Payload{
		Records:    records,
		Lines:      lines,
		Provenance: s.provenance(src.Dataset, sourceURL, nil, len(records), warnings),
	}, nil
}

// refreshAdvisories serves a standalone advisory dataset from the
// configured RSS feed candidates.
func (s *Service) refreshAdvisories(ctx context.Context, src config.SourceConfig) (Payload, error) {
	anySuccess := false
	res := resolver.Resolve(ctx, s.advisoryTiers(&anySuccess))
	if len(res.Records) == 0 && !anySuccess {
		return Payload{}, fmt.Errorf("dataset %s: all advisory feeds failed: %s",
			src.Dataset, strings.Join(res.Warnings, "; "))
	}
	records := advisoryRecords(res.Records)
	return Payload{
		Records:    records,
		Provenance: s.provenance(src.Dataset, res.URL, nil, len(records), res.Warnings),
	}, nil
}

// vehicleTiers builds the vehicle fallback chain from whatever endpoints
// are configured. anySuccess flips when any tier completes a fetch, even
// an empty one, so callers can tell exhaustion from an idle network.
func (s *Service) vehicleTiers(anySuccess *bool) []resolver.Tier[gtfsrt.VehiclePosition] {
	t := s.cfg.Transit
	var tiers []resolver.Tier[gtfsrt.VehiclePosition]
	if s.transit != nil && t.APIBase != "" {
		tiers = append(tiers, resolver.Tier[gtfsrt.VehiclePosition]{
			Name: "transit-api",
			URL:  t.APIBase,
			Fetch: func(ctx context.Context) ([]gtfsrt.VehiclePosition, []string, error) {
				resources, err := s.transit.Vehicles(ctx, nil)
				if err != nil {
					return nil, nil, err
				}
				*anySuccess = true
				return vehiclesFromResources(resources), nil, nil
			},
		})
	}
	if s.realtime != nil && t.GTFSRTFeedURL != "" {
		feedURL := t.GTFSRTFeedURL
		tiers = append(tiers, resolver.Tier[gtfsrt.VehiclePosition]{
			Name: "gtfsrt-feed",
			URL:  feedURL,
			Fetch: func(ctx context.Context) ([]gtfsrt.VehiclePosition, []string, error) {
				positions, err := s.realtime.VehiclePositions(ctx, feedURL)
				if err != nil {
					return nil, nil, err
				}
				*anySuccess = true
				return positions, nil, nil
			},
		})
	}
	if s.realtime != nil && t.EnhancedFeedURL != "" {
		feedURL := t.EnhancedFeedURL
		tiers = append(tiers, resolver.Tier[gtfsrt.VehiclePosition]{
			Name: "enhanced-feed",
			URL:  feedURL,
			Fetch: func(ctx context.Context) ([]gtfsrt.VehiclePosition, []string, error) {
				positions, err := s.realtime.EnhancedVehiclePositions(ctx, feedURL)
				if err != nil {
					return nil, nil, err
				}
				*anySuccess = true
				return positions, nil, nil
			},
		})
	}
	return tiers
}

func (s *Service) advisoryTiers(anySuccess *bool) []resolver.Tier[rss.Item] {
	if s.advisories == nil {
		return nil
	}
	tiers := make([]resolver.Tier[rss.Item], 0, len(s.cfg.Transit.AdvisoryFeeds))
	for _, u := range s.cfg.Transit.AdvisoryFeeds {
		feedURL := u
		tiers = append(tiers, resolver.Tier[rss.Item]{
			Name: feedURL,
			URL:  feedURL,
			Fetch: func(ctx context.Context) ([]rss.Item, []string, error) {
				items, err := s.advisories.Fetch(ctx, feedURL)
				if err != nil {
					return nil, nil, err
				}
				*anySuccess = true
				return items, nil, nil
			},
		})
	}
	return tiers
}

// routeLines joins observed positions with authoritative shapes and route
// display metadata. Shape or route metadata failures degrade to synthetic
// paths and default styling, never to a refresh failure.
func (s *Service) routeLines(ctx context.Context, vehicles []gtfsrt.VehiclePosition) ([]enrich.RouteLine, []string) {
	positionsByRoute := map[string][]geo.Point{}
	for _, v := range vehicles {
		if v.RouteID == "" {
			continue
		}
		p := geo.Point{Lat: v.Lat, Lon: v.Lon}
		if !p.Valid() {
			continue
		}
		positionsByRoute[v.RouteID] = append(positionsByRoute[v.RouteID], p)
	}
	if len(positionsByRoute) == 0 {
		return nil, nil
	}

	routeIDs := make([]string, 0, len(positionsByRoute))
	for id := range positionsByRoute {
		routeIDs = append(routeIDs, id)
	}
	sort.Strings(routeIDs)

	shapesByRoute := map[string][]string{}
	meta := map[string]enrich.RouteMeta{}
	var warnings []string
	if s.transit != nil && s.cfg.Transit.APIBase != "" {
		shapes, err := s.transit.Shapes(ctx, routeIDs)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("route shapes failed: %v", err))
		}
		for _, sh := range shapes {
			routeID := sh.RelatedID("route")
			poly := sh.AttrString("polyline")
			if routeID == "" || poly == "" {
				continue
			}
			shapesByRoute[routeID] = append(shapesByRoute[routeID], poly)
		}
		routes, err := s.transit.Routes(ctx, routeIDs)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("route metadata failed: %v", err))
		}
		for _, r := range routes {
			meta[r.ID] = routeMetaFor(r)
		}
	}

	builder := enrich.Builder{
		Center:   geo.Point{Lat: s.cfg.Region.CenterLat, Lon: s.cfg.Region.CenterLon},
		RadiusKM: s.cfg.Region.RadiusKM,
	}
	return builder.Lines(positionsByRoute, shapesByRoute, meta), warnings
}

// vehiclesFromResources maps JSON:API vehicle resources onto the shared
// vehicle shape. Resources without coordinates are dropped.
func vehiclesFromResources(resources []jsonapi.Resource) []gtfsrt.VehiclePosition {
	out := make([]gtfsrt.VehiclePosition, 0, len(resources))
	for _, r := range resources {
		lat, latOK := r.AttrFloat("latitude")
		lon, lonOK := r.AttrFloat("longitude")
		if !latOK || !lonOK {
			continue
		}
		v := gtfsrt.VehiclePosition{
			VehicleID: r.ID,
			Label:     r.AttrString("label"),
			RouteID:   r.RelatedID("route"),
			TripID:    r.RelatedID("trip"),
			Lat:       lat,
			Lon:       lon,
		}
		if b, ok := r.AttrFloat("bearing"); ok {
			v.Bearing = b
		}
		if ts := r.AttrString("updated_at"); ts != "" {
			if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
				v.Timestamp = parsed.Unix()
			}
		}
		out = append(out, v)
	}
	return out
}

func vehicleRecords(vehicles []gtfsrt.VehiclePosition) []normalize.Record {
	out := make([]normalize.Record, 0, len(vehicles))
	for _, v := range vehicles {
		rec := normalize.Record{
			ID:             "vehicle-" + v.VehicleID,
			Classification: "vehicle",
			Label:          v.Label,
			TypeCode:       v.RouteID,
		}
		if rec.Label == "" {
			rec.Label = v.VehicleID
		}
		if v.Timestamp > 0 {
			rec.OccurredAt = time.Unix(v.Timestamp, 0).UTC().Format(time.RFC3339)
		}
		p := geo.Point{Lat: v.Lat, Lon: v.Lon}
		if p.Valid() {
			rec.Location = &p
		}
		out = append(out, rec)
	}
	return out
}

func (s *Service) alertRecords(alerts []jsonapi.Resource) []normalize.Record {
	out := make([]normalize.Record, 0, len(alerts))
	for _, a := range alerts {
		rec := s.normalizer.Normalize(a.Attributes, nil, "alert")
		if rec.Label == "" {
			rec.Label = a.AttrString("header")
		}
		if a.ID != "" {
			rec.ID = "alert-" + a.ID
		}
		out = append(out, rec)
	}
	return out
}

func advisoryRecords(items []rss.Item) []normalize.Record {
	out := make([]normalize.Record, 0, len(items))
	for _, it := range items {
		id := it.GUID
		if id == "" {
			id = it.Link
		}
		if id == "" {
			id = it.Title
		}
		rec := normalize.Record{
			ID:             "advisory-" + id,
			Classification: "advisory",
			Label:          it.Title,
			Description:    it.Description,
		}
		if !it.PublishedAt.IsZero() {
			rec.OccurredAt = it.PublishedAt.UTC().Format(time.RFC3339)
		}
		out = append(out, rec)
	}
	return out
}

// recordTime reuses the normalizer's date coercion so alert records whose
// timestamp passed through verbatim still sort instead of being dropped to
// the undated tail.
func recordTime(rec normalize.Record) (time.Time, bool) {
	if rec.OccurredAt == "" {
		return time.Time{}, false
	}
	return normalize.CoerceDateTime(rec.OccurredAt)
}

// routeMetaFor translates route attributes into display metadata. GTFS
// route types map onto coarse mode names; unknown types fall back to
// "transit".
func routeMetaFor(r jsonapi.Resource) enrich.RouteMeta {
	label := r.AttrString("long_name")
	if label == "" {
		label = r.AttrString("short_name")
	}
	m := enrich.RouteMeta{Mode: "transit", Label: label}
	if t, ok := r.AttrFloat("type"); ok {
		m.Mode = routeMode(int(t))
	}
	if c := r.AttrString("color"); c != "" {
		m.StrokeColor = "#" + c
	}
	if c := r.AttrString("text_color"); c != "" {
		m.TextColor = "#" + c
	}
	return m
}

func routeMode(gtfsType int) string {
	switch gtfsType {
	case 0:
		return "tram"
	case 1:
		return "subway"
	case 2:
		return "rail"
	case 3:
		return "bus"
	case 4:
		return "ferry"
	default:
		return "transit"
	}
}
