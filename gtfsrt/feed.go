package gtfsrt

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// VehiclePosition is one observed vehicle from either fallback feed.
type VehiclePosition struct {
	VehicleID string
	Label     string
	TripID    string
	RouteID   string
	Lat       float64
	Lon       float64
	Bearing   float64
	Timestamp int64
}

// Client fetches and decodes the fallback feeds.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// VehiclePositions fetches a GTFS-realtime protobuf feed and extracts
// vehicle positions. Entities without a position are skipped; an entity
// decode anomaly never aborts the whole feed.
func (c *Client) VehiclePositions(ctx context.Context, url string) ([]VehiclePosition, error) {
	body, err := c.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	fm := &gtfsrtpb.FeedMessage{}
	if err := proto.Unmarshal(body, fm); err != nil {
		return nil, fmt.Errorf("decode gtfs-rt feed: %w", err)
	}

	positions := make([]VehiclePosition, 0, len(fm.Entity))
	for _, e := range fm.Entity {
		v := e.Vehicle
		if v == nil || v.Position == nil || v.Position.Latitude == nil || v.Position.Longitude == nil {
			continue
		}
		vp := VehiclePosition{
			Lat: float64(*v.Position.Latitude),
			Lon: float64(*v.Position.Longitude),
		}
		if v.Position.Bearing != nil {
			vp.Bearing = float64(*v.Position.Bearing)
		}
		if v.Vehicle != nil {
			if v.Vehicle.Id != nil {
				vp.VehicleID = *v.Vehicle.Id
			}
			if v.Vehicle.Label != nil {
				vp.Label = *v.Vehicle.Label
			}
		}
		if v.Trip != nil {
			if v.Trip.TripId != nil {
				vp.TripID = *v.Trip.TripId
			}
			if v.Trip.RouteId != nil {
				vp.RouteID = *v.Trip.RouteId
			}
		}
		if v.Timestamp != nil {
			vp.Timestamp = int64(*v.Timestamp)
		}
		positions = append(positions, vp)
	}

	c.logger.Debug("gtfs-rt feed decoded", "url", url, "entities", len(fm.Entity), "positions", len(positions))
	return positions, nil
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}
