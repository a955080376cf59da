package geo

// DecodePolyline decodes a Google-style encoded polyline (delta-encoded
// 5-bit groups, sign bit in the LSB, 1e5 coordinate scale) into an ordered
// coordinate sequence.
//
// Decoding is prefix-safe: a malformed or truncated tail stops the decode
// and whatever prefix was successfully decoded is returned. Partially
// decoded pairs (a latitude delta without its longitude) are discarded.
func DecodePolyline(encoded string) []Point {
	var points []Point
	var lat, lon int32
	i := 0
	for i < len(encoded) {
		dLat, next, ok := decodeSigned(encoded, i)
		if !ok {
			break
		}
		dLon, next2, ok := decodeSigned(encoded, next)
		if !ok {
			break
		}
		lat += dLat
		lon += dLon
		points = append(points, Point{Lat: float64(lat) / 1e5, Lon: float64(lon) / 1e5})
		i = next2
	}
	return points
}

// decodeSigned reads one zigzag-encoded value starting at offset i.
// It returns ok=false when the chunk stream runs out or an out-of-range
// byte is encountered before the terminating group.
func decodeSigned(s string, i int) (int32, int, bool) {
	var result uint32
	var shift uint
	for {
		if i >= len(s) || shift > 30 {
			return 0, i, false
		}
		c := int(s[i]) - 63
		if c < 0 {
			return 0, i, false
		}
		i++
		result |= uint32(c&0x1f) << shift
		shift += 5
		if c < 0x20 {
			break
		}
	}
	value := int32(result >> 1)
	if result&1 != 0 {
		value = ^value
	}
	return value, i, true
}
