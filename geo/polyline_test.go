package geo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodePolyline is the inverse of DecodePolyline, used to build fixtures.
func encodePolyline(points []Point) string {
	var b strings.Builder
	var prevLat, prevLon int32
	for _, p := range points {
		lat := int32(p.Lat * 1e5)
		lon := int32(p.Lon * 1e5)
		encodeSigned(&b, lat-prevLat)
		encodeSigned(&b, lon-prevLon)
		prevLat = lat
		prevLon = lon
	}
	return b.String()
}

func encodeSigned(b *strings.Builder, num int32) {
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

func TestDecodePolyline(t *testing.T) {
	t.Run("reference sequence", func(t *testing.T) {
		got := DecodePolyline("_p~iF~ps|U_ulLnnqC_mqNvxq`@")
		require.Len(t, got, 3)
		assert.InDelta(t, 38.5, got[0].Lat, 1e-9)
		assert.InDelta(t, -120.2, got[0].Lon, 1e-9)
		assert.InDelta(t, 40.7, got[1].Lat, 1e-9)
		assert.InDelta(t, -120.95, got[1].Lon, 1e-9)
		assert.InDelta(t, 43.252, got[2].Lat, 1e-9)
		assert.InDelta(t, -126.453, got[2].Lon, 1e-9)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, DecodePolyline(""))
	})

	t.Run("round trip", func(t *testing.T) {
		want := []Point{
			{Lat: 42.36010, Lon: -71.05890},
			{Lat: 42.36550, Lon: -71.06230},
			{Lat: 42.37340, Lon: -71.11870},
		}
		got := DecodePolyline(encodePolyline(want))
		require.Len(t, got, len(want))
		for i := range want {
			assert.InDelta(t, want[i].Lat, got[i].Lat, 1e-5)
			assert.InDelta(t, want[i].Lon, got[i].Lon, 1e-5)
		}
	})
}

// Truncating the encoded stream at any byte position must yield a prefix of
// the fully decoded sequence, never corrupted points.
func TestDecodePolylinePrefixSafe(t *testing.T) {
	encoded := encodePolyline([]Point{
		{Lat: 38.5, Lon: -120.2},
		{Lat: 40.7, Lon: -120.95},
		{Lat: 43.252, Lon: -126.453},
		{Lat: 43.0, Lon: -126.0},
	})
	full := DecodePolyline(encoded)
	require.Len(t, full, 4)

	for cut := 0; cut <= len(encoded); cut++ {
		got := DecodePolyline(encoded[:cut])
		require.LessOrEqual(t, len(got), len(full), "cut=%d", cut)
		for i := range got {
			assert.Equal(t, full[i], got[i], "cut=%d point=%d", cut, i)
		}
	}
}

func TestDecodePolylineMalformed(t *testing.T) {
	// A byte below the encoding alphabet stops the decode; the prefix
	// decoded so far survives.
	valid := encodePolyline([]Point{{Lat: 38.5, Lon: -120.2}})
	got := DecodePolyline(valid + "\x1f~ps|U")
	require.Len(t, got, 1)
	assert.InDelta(t, 38.5, got[0].Lat, 1e-9)
}
