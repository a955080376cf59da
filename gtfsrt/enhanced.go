package gtfsrt

import (
	"context"
	"encoding/json"
	"fmt"
)

// The enhanced feed is one large JSON document mirroring the GTFS-realtime
// entity list. Field names follow the protobuf JSON mapping.
type enhancedFeed struct {
	Entity []enhancedEntity `json:"entity"`
}

type enhancedEntity struct {
	ID      string           `json:"id"`
	Vehicle *enhancedVehicle `json:"vehicle"`
}

type enhancedVehicle struct {
	Trip *struct {
		TripID  string `json:"trip_id"`
		RouteID string `json:"route_id"`
	} `json:"trip"`
	Position *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Bearing   float64 `json:"bearing"`
	} `json:"position"`
	Vehicle *struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	} `json:"vehicle"`
	Timestamp int64 `json:"timestamp"`
}

// EnhancedVehiclePositions fetches the bulk enhanced JSON feed. Entities
// without a position are skipped.
func (c *Client) EnhancedVehiclePositions(ctx context.Context, url string) ([]VehiclePosition, error) {
	body, err := c.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	var feed enhancedFeed
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("decode enhanced feed: %w", err)
	}

	positions := make([]VehiclePosition, 0, len(feed.Entity))
	for _, e := range feed.Entity {
		v := e.Vehicle
		if v == nil || v.Position == nil {
			continue
		}
		vp := VehiclePosition{
			Lat:       v.Position.Latitude,
			Lon:       v.Position.Longitude,
			Bearing:   v.Position.Bearing,
			Timestamp: v.Timestamp,
		}
		if v.Vehicle != nil {
			vp.VehicleID = v.Vehicle.ID
			vp.Label = v.Vehicle.Label
		}
		if v.Trip != nil {
			vp.TripID = v.Trip.TripID
			vp.RouteID = v.Trip.RouteID
		}
		if vp.VehicleID == "" {
			vp.VehicleID = e.ID
		}
		positions = append(positions, vp)
	}

	c.logger.Debug("enhanced feed decoded", "url", url, "entities", len(feed.Entity), "positions", len(positions))
	return positions, nil
}
