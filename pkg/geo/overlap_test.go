package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverlapsSelf(t *testing.T) {
	route := InterpolatePolyline([]Coordinate{windhoek, okahandja})
	assert.True(t, Overlaps(route, route, 0))
	assert.True(t, Overlaps(route, route, DefaultOverlapToleranceKm))
}

func TestOverlapsZeroToleranceDisjoint(t *testing.T) {
	a := []Coordinate{windhoek}
	b := []Coordinate{{Latitude: -22.5701, Longitude: 17.08}}
	assert.False(t, Overlaps(a, b, 0))
}

func TestOverlapsWithinTolerance(t *testing.T) {
	closure := InterpolatePolyline([]Coordinate{windhoek, okahandja})
	// detour starting ~300 m east of the closure start
	detour := []Coordinate{{Latitude: -22.57, Longitude: 17.083}, swakopmund}

	assert.True(t, Overlaps(detour, closure, DefaultOverlapToleranceKm))
	assert.False(t, Overlaps(detour, closure, 0.1))
}

func TestOverlapsFarApart(t *testing.T) {
	closure := InterpolatePolyline([]Coordinate{windhoek, okahandja})
	detour := InterpolatePolyline([]Coordinate{swakopmund, {Latitude: -22.95, Longitude: 14.5}})
	assert.False(t, Overlaps(detour, closure, DefaultOverlapToleranceKm))
}

func TestOverlapsEmpty(t *testing.T) {
	assert.False(t, Overlaps(nil, []Coordinate{windhoek}, 10))
	assert.False(t, Overlaps([]Coordinate{windhoek}, nil, 10))
}

func TestClosestApproachReportsDistance(t *testing.T) {
	d, ok := ClosestApproach([]Coordinate{windhoek}, []Coordinate{windhoek}, 0.5)
	assert.True(t, ok)
	assert.Equal(t, 0.0, d)
}
