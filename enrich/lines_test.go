package enrich

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SparkyNY/worldmonitor/geo"
)

// encode builds polyline fixtures; mirror of geo.DecodePolyline.
func encode(points []geo.Point) string {
	var b strings.Builder
	var prevLat, prevLon int32
	emit := func(num int32) {
		shifted := num << 1
		if num < 0 {
			shifted = ^shifted
		}
		u := uint32(shifted)
		for u >= 0x20 {
			b.WriteByte(byte((u&0x1f)|0x20) + 63)
			u >>= 5
		}
		b.WriteByte(byte(u) + 63)
	}
	for _, p := range points {
		lat := int32(p.Lat * 1e5)
		lon := int32(p.Lon * 1e5)
		emit(lat - prevLat)
		emit(lon - prevLon)
		prevLat = lat
		prevLon = lon
	}
	return b.String()
}

var boston = geo.Point{Lat: 42.3601, Lon: -71.0589}

func TestLinesAuthoritativeLongestWins(t *testing.T) {
	short := encode([]geo.Point{{Lat: 42.36, Lon: -71.06}, {Lat: 42.37, Lon: -71.07}})
	long := encode([]geo.Point{{Lat: 42.36, Lon: -71.06}, {Lat: 42.37, Lon: -71.07}, {Lat: 42.38, Lon: -71.08}})

	b := Builder{Center: boston, RadiusKM: 50}
	lines := b.Lines(nil, map[string][]string{"Red": {short, long}}, map[string]RouteMeta{
		"Red": {Mode: "subway", Label: "Red Line", StrokeColor: "DA291C", TextColor: "FFFFFF"},
	})

	require.Len(t, lines, 1)
	assert.Equal(t, "line-Red", lines[0].ID)
	assert.Equal(t, SourceAuthoritative, lines[0].Source)
	assert.Len(t, lines[0].Path, 3)
	assert.Equal(t, "Red Line", lines[0].Label)
	assert.Equal(t, "DA291C", lines[0].StrokeColor)
}

func TestLinesDiscardsOutOfRegionShapes(t *testing.T) {
	// A shape in another city entirely: discarded, leaving the vehicle
	// positions to form a synthetic path.
	remote := encode([]geo.Point{{Lat: 40.71, Lon: -74.00}, {Lat: 40.75, Lon: -73.99}})
	positions := []geo.Point{
		{Lat: 42.37, Lon: -71.10},
		{Lat: 42.35, Lon: -71.05},
		{Lat: 42.36, Lon: -71.08},
	}

	b := Builder{Center: boston, RadiusKM: 25}
	lines := b.Lines(map[string][]geo.Point{"CR-1": positions}, map[string][]string{"CR-1": {remote}}, nil)

	require.Len(t, lines, 1)
	assert.Equal(t, SourceSynthetic, lines[0].Source)
}

func TestSyntheticPathDominantAxis(t *testing.T) {
	t.Run("longitude dominant", func(t *testing.T) {
		got := syntheticPath([]geo.Point{
			{Lat: 42.36, Lon: -71.00},
			{Lat: 42.37, Lon: -71.20},
			{Lat: 42.35, Lon: -71.10},
		})
		require.Len(t, got, 3)
		assert.Equal(t, -71.20, got[0].Lon)
		assert.Equal(t, -71.10, got[1].Lon)
		assert.Equal(t, -71.00, got[2].Lon)
	})

	t.Run("latitude dominant", func(t *testing.T) {
		got := syntheticPath([]geo.Point{
			{Lat: 42.50, Lon: -71.06},
			{Lat: 42.30, Lon: -71.07},
			{Lat: 42.40, Lon: -71.05},
		})
		require.Len(t, got, 3)
		assert.Equal(t, 42.30, got[0].Lat)
		assert.Equal(t, 42.40, got[1].Lat)
		assert.Equal(t, 42.50, got[2].Lat)
	})

	t.Run("single position yields no path", func(t *testing.T) {
		assert.Nil(t, syntheticPath([]geo.Point{{Lat: 42.36, Lon: -71.06}}))
	})
}

func TestLinesDeterministicOrder(t *testing.T) {
	positions := map[string][]geo.Point{
		"Orange": {{Lat: 42.30, Lon: -71.06}, {Lat: 42.33, Lon: -71.07}},
		"Blue":   {{Lat: 42.37, Lon: -71.03}, {Lat: 42.39, Lon: -71.00}},
	}
	b := Builder{}
	lines := b.Lines(positions, nil, nil)
	require.Len(t, lines, 2)
	assert.Equal(t, "Blue", lines[0].RouteID)
	assert.Equal(t, "Orange", lines[1].RouteID)
}
