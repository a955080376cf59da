package enrich

import (
	"sort"

	"github.com/SparkyNY/worldmonitor/geo"
)

// Path provenance values.
const (
	SourceAuthoritative = "authoritative-shape"
	SourceSynthetic     = "synthetic"
)

// RouteMeta is the display metadata joined onto each line.
type RouteMeta struct {
	Mode        string `json:"mode"`
	Label       string `json:"label"`
	StrokeColor string `json:"strokeColor"`
	TextColor   string `json:"textColor"`
}

// RouteLine is an ordered, render-ready path for one route. Rebuilt on
// every transit refresh; never persisted independently of the payload it
// belongs to.
type RouteLine struct {
	ID          string      `json:"id"`
	Mode        string      `json:"mode"`
	RouteID     string      `json:"routeId"`
	Label       string      `json:"label"`
	StrokeColor string      `json:"strokeColor"`
	TextColor   string      `json:"textColor"`
	Path        []geo.Point `json:"path"`
	Source      string      `json:"source"`
}

// Builder constructs route lines inside a region of interest. A zero
// RadiusKM disables the regional filter.
type Builder struct {
	Center   geo.Point
	RadiusKM float64
}

// Lines builds one line per route present in positions or shapes.
// shapesByRoute holds encoded polyline candidates per route; meta is keyed
// by route id. Output is ordered by route id for deterministic payloads.
func (b Builder) Lines(positionsByRoute map[string][]geo.Point, shapesByRoute map[string][]string, meta map[string]RouteMeta) []RouteLine {
	routeIDs := make(map[string]struct{}, len(positionsByRoute)+len(shapesByRoute))
	for id := range positionsByRoute {
		routeIDs[id] = struct{}{}
	}
	for id := range shapesByRoute {
		routeIDs[id] = struct{}{}
	}

	lines := make([]RouteLine, 0, len(routeIDs))
	for routeID := range routeIDs {
		path, source := b.pathForRoute(positionsByRoute[routeID], shapesByRoute[routeID])
		if len(path) == 0 {
			continue
		}
		line := RouteLine{
			ID:      "line-" + routeID,
			RouteID: routeID,
			Path:    path,
			Source:  source,
		}
		if m, ok := meta[routeID]; ok {
			line.Mode = m.Mode
			line.Label = m.Label
			line.StrokeColor = m.StrokeColor
			line.TextColor = m.TextColor
		}
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].RouteID < lines[j].RouteID })
	return lines
}

// pathForRoute picks the longest in-region authoritative candidate, falling
// back to a synthetic ordering of the observed positions.
func (b Builder) pathForRoute(positions []geo.Point, encodedShapes []string) ([]geo.Point, string) {
	var best []geo.Point
	for _, encoded := range encodedShapes {
		candidate := geo.DecodePolyline(encoded)
		if len(candidate) == 0 || !b.inRegion(candidate) {
			continue
		}
		// More points means a presumably more complete shape.
		if len(candidate) > len(best) {
			best = candidate
		}
	}
	if len(best) > 0 {
		return best, SourceAuthoritative
	}
	if synthetic := syntheticPath(positions); len(synthetic) > 0 {
		return synthetic, SourceSynthetic
	}
	return nil, ""
}

// inRegion reports whether a shape candidate touches the region of
// interest. Candidates entirely outside the radius are cross-network
// geometry and get discarded before path construction.
func (b Builder) inRegion(candidate []geo.Point) bool {
	if b.RadiusKM <= 0 {
		return true
	}
	for _, p := range candidate {
		if geo.WithinRadiusKM(p, b.Center, b.RadiusKM) {
			return true
		}
	}
	return false
}

// syntheticPath orders positions along the dominant axis: whichever of
// longitude or latitude has the greater spread.
func syntheticPath(positions []geo.Point) []geo.Point {
	if len(positions) < 2 {
		return nil
	}
	path := make([]geo.Point, len(positions))
	copy(path, positions)

	minLat, maxLat := path[0].Lat, path[0].Lat
	minLon, maxLon := path[0].Lon, path[0].Lon
	for _, p := range path[1:] {
		minLat = min(minLat, p.Lat)
		maxLat = max(maxLat, p.Lat)
		minLon = min(minLon, p.Lon)
		maxLon = max(maxLon, p.Lon)
	}

	if maxLon-minLon >= maxLat-minLat {
		sort.Slice(path, func(i, j int) bool { return path[i].Lon < path[j].Lon })
	} else {
		sort.Slice(path, func(i, j int) bool { return path[i].Lat < path[j].Lat })
	}
	return path
}
