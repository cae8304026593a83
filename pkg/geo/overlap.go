package geo

// DefaultOverlapToleranceKm is the distance at which a detour point is treated
// as coinciding with the closed segment.
const DefaultOverlapToleranceKm = 0.5

// Overlaps reports whether any point of routeA lies within toleranceKm of any
// point of routeB. The pairwise sweep is quadratic; interpolated closure and
// detour polylines are tens of points long.
func Overlaps(routeA, routeB []Coordinate, toleranceKm float64) bool {
	_, ok := ClosestApproach(routeA, routeB, toleranceKm)
	return ok
}

// ClosestApproach returns the first pair distance found within toleranceKm.
// The boolean is false when no pair is close enough or either route is empty.
func ClosestApproach(routeA, routeB []Coordinate, toleranceKm float64) (float64, bool) {
	for _, a := range routeA {
		for _, b := range routeB {
			if d := Distance(a, b); d <= toleranceKm {
				return d, true
			}
		}
	}
	return 0, false
}
