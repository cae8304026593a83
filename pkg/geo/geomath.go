// Package geo holds the pure geometry used for road closures and detours:
// great-circle distances, travel-time estimates, polyline interpolation and
// the Namibia bounding-box test.
package geo

import (
	"fmt"
	"math"
	"strings"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// Namibia bounding box.
const (
	MinLatitude  = -29.0
	MaxLatitude  = -16.5
	MinLongitude = 11.7
	MaxLongitude = 25.3
)

const (
	defaultSpeedKmh   = 60.0
	pointsPerKm       = 2.0
	minSegmentSteps   = 2
	distancePrecision = 100.0
)

// speedByRoadClass maps the leading letter of a road code to an average speed in km/h.
var speedByRoadClass = map[byte]float64{
	'A': 100, // trunk
	'B': 80,  // main
	'C': 60,  // district
	'D': 40,  // local
	'M': 50,  // municipal
	'T': 30,  // town
}

// Coordinate is a WGS84 point.
type Coordinate struct {
	Latitude  float64 `json:"latitude" bson:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude" yaml:"longitude"`
}

// String renders the coordinate as "lat,lon".
func (c Coordinate) String() string {
	return fmt.Sprintf("%g,%g", c.Latitude, c.Longitude)
}

// Distance returns the haversine great-circle distance between a and b in kilometres.
func Distance(a, b Coordinate) float64 {
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Latitude))*math.Cos(toRadians(b.Latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

// RouteDistance sums consecutive distances along points, rounded to two decimals.
func RouteDistance(points []Coordinate) float64 {
	if len(points) < 2 {
		return 0
	}
	total := 0.0
	for i := 0; i < len(points)-1; i++ {
		total += Distance(points[i], points[i+1])
	}
	return math.Round(total*distancePrecision) / distancePrecision
}

// EstimateTime converts a distance into an "Xh Ym" travel estimate using the
// unweighted mean speed of the roads used.
func EstimateTime(distanceKm float64, roadsUsed []string) string {
	speed := averageSpeed(roadsUsed)
	totalMinutes := int(math.Round(distanceKm / speed * 60))

	if totalMinutes < 60 {
		return fmt.Sprintf("%dm", totalMinutes)
	}
	hours := totalMinutes / 60
	minutes := totalMinutes % 60
	if minutes == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// RouteMetrics computes distance and travel time from the same inputs so the two stay consistent.
func RouteMetrics(points []Coordinate, roadsUsed []string) (float64, string) {
	distance := RouteDistance(points)
	return distance, EstimateTime(distance, roadsUsed)
}

// SpeedForRoad returns the average speed for a road code such as "B1" or "c28".
func SpeedForRoad(road string) float64 {
	road = strings.TrimSpace(road)
	if road == "" {
		return defaultSpeedKmh
	}
	if speed, ok := speedByRoadClass[strings.ToUpper(road[:1])[0]]; ok {
		return speed
	}
	return defaultSpeedKmh
}

func averageSpeed(roadsUsed []string) float64 {
	if len(roadsUsed) == 0 {
		return defaultSpeedKmh
	}
	sum := 0.0
	for _, road := range roadsUsed {
		sum += SpeedForRoad(road)
	}
	return sum / float64(len(roadsUsed))
}

// InterpolatePolyline densifies a path with linearly interpolated points at two
// points per kilometre (at least two steps per segment). The result starts and
// ends exactly on the first and last supplied points.
func InterpolatePolyline(points []Coordinate) []Coordinate {
	if len(points) < 2 {
		return append([]Coordinate(nil), points...)
	}

	polyline := make([]Coordinate, 0, len(points)*minSegmentSteps)
	for i := 0; i < len(points)-1; i++ {
		start, end := points[i], points[i+1]
		polyline = append(polyline, start)

		steps := int(math.Floor(Distance(start, end) * pointsPerKm))
		if steps < minSegmentSteps {
			steps = minSegmentSteps
		}
		for step := 1; step < steps; step++ {
			ratio := float64(step) / float64(steps)
			polyline = append(polyline, Coordinate{
				Latitude:  start.Latitude + (end.Latitude-start.Latitude)*ratio,
				Longitude: start.Longitude + (end.Longitude-start.Longitude)*ratio,
			})
		}
	}
	return append(polyline, points[len(points)-1])
}

// InBounds reports whether c lies inside Namibia's bounding box.
func InBounds(c Coordinate) bool {
	return c.Latitude >= MinLatitude && c.Latitude <= MaxLatitude &&
		c.Longitude >= MinLongitude && c.Longitude <= MaxLongitude
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
