package geo

import (
	"fmt"

	"github.com/twpayne/go-polyline"
)

// EncodePolyline renders points in Google's encoded polyline format, which the
// mobile client feeds straight into its map layer.
func EncodePolyline(points []Coordinate) string {
	if len(points) == 0 {
		return ""
	}
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Latitude, p.Longitude}
	}
	return string(polyline.EncodeCoords(coords))
}

// DecodePolyline parses an encoded polyline back into coordinates.
func DecodePolyline(encoded string) ([]Coordinate, error) {
	if encoded == "" {
		return nil, nil
	}
	coords, rest, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode polyline: %w", err)
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("decode polyline: %d trailing bytes", len(rest))
	}
	points := make([]Coordinate, len(coords))
	for i, c := range coords {
		points[i] = Coordinate{Latitude: c[0], Longitude: c[1]}
	}
	return points, nil
}
