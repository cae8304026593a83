package service

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/roads-authority/roadworks-api/internal/dto"
	"github.com/roads-authority/roadworks-api/internal/models"
	appErrors "github.com/roads-authority/roadworks-api/pkg/errors"
	"github.com/roads-authority/roadworks-api/pkg/geo"
)

var defaultVehicleTypes = []string{"All"}

// ClosureRouteProcessor turns raw closure and detour payloads into fully computed records.
type ClosureRouteProcessor struct {
	toleranceKm float64
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewClosureRouteProcessor constructs a processor. A non-positive tolerance falls back to 0.5 km.
func NewClosureRouteProcessor(toleranceKm float64, metrics *MetricsService, logger *zap.Logger) *ClosureRouteProcessor {
	if toleranceKm <= 0 {
		toleranceKm = geo.DefaultOverlapToleranceKm
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClosureRouteProcessor{toleranceKm: toleranceKm, metrics: metrics, logger: logger}
}

// ProcessClosure validates the closure endpoints and fills in the polyline when absent.
func (p *ClosureRouteProcessor) ProcessClosure(input dto.RoadClosureInput) (*models.RoadClosure, error) {
	var messages []string
	if !geo.InBounds(input.StartCoordinates) {
		messages = append(messages, fmt.Sprintf("Invalid start coordinates (%s) for road closure %s. Must be within Namibia bounds.", input.StartCoordinates, input.RoadCode))
	}
	if !geo.InBounds(input.EndCoordinates) {
		messages = append(messages, fmt.Sprintf("Invalid end coordinates (%s) for road closure %s. Must be within Namibia bounds.", input.EndCoordinates, input.RoadCode))
	}
	if len(messages) > 0 {
		return nil, appErrors.NewValidation(messages...)
	}

	polyline := append([]models.Coordinate(nil), input.PolylineCoordinates...)
	if len(polyline) == 0 {
		polyline = geo.InterpolatePolyline([]models.Coordinate{input.StartCoordinates, input.EndCoordinates})
	}

	return &models.RoadClosure{
		RoadCode:            input.RoadCode,
		StartTown:           input.StartTown,
		EndTown:             input.EndTown,
		StartCoordinates:    input.StartCoordinates,
		EndCoordinates:      input.EndCoordinates,
		PolylineCoordinates: polyline,
		EncodedPolyline:     geo.EncodePolyline(polyline),
	}, nil
}

// ProcessRoutes computes distance, travel time and polyline for every route, in
// input order. A single out-of-bounds waypoint rejects the whole list. Overlap
// with the closure is flagged on the route and logged, never returned as an error.
func (p *ClosureRouteProcessor) ProcessRoutes(routes []dto.AlternateRouteInput, closure *models.RoadClosure) ([]models.AlternateRoute, error) {
	var messages []string
	for _, route := range routes {
		for _, wp := range route.Waypoints {
			if !geo.InBounds(wp.Coordinates) {
				messages = append(messages, fmt.Sprintf("Invalid coordinates for waypoint %q. Must be within Namibia bounds.", wp.Name))
			}
		}
	}
	if len(messages) > 0 {
		return nil, appErrors.NewValidation(messages...)
	}

	processed := make([]models.AlternateRoute, 0, len(routes))
	for _, route := range routes {
		processed = append(processed, p.processRoute(route, closure))
	}
	return processed, nil
}

func (p *ClosureRouteProcessor) processRoute(route dto.AlternateRouteInput, closure *models.RoadClosure) models.AlternateRoute {
	points := waypointCoordinates(route.Waypoints)

	var distanceKm float64
	var estimatedTime string
	if route.DistanceKm != nil {
		distanceKm = *route.DistanceKm
	}
	if route.EstimatedTime != nil {
		estimatedTime = *route.EstimatedTime
	}
	if distanceKm <= 0 || estimatedTime == "" {
		computedDistance, computedTime := geo.RouteMetrics(points, route.RoadsUsed)
		if distanceKm <= 0 {
			distanceKm = computedDistance
		}
		if estimatedTime == "" {
			estimatedTime = computedTime
		}
	}

	polyline := append([]models.Coordinate(nil), route.PolylineCoordinates...)
	if len(polyline) == 0 {
		polyline = geo.InterpolatePolyline(points)
	}

	vehicleTypes := append([]string(nil), route.VehicleType...)
	if len(vehicleTypes) == 0 {
		vehicleTypes = append([]string(nil), defaultVehicleTypes...)
	}

	result := models.AlternateRoute{
		RouteName:           route.RouteName,
		RoadsUsed:           append([]string{}, route.RoadsUsed...),
		Waypoints:           append([]models.Waypoint{}, route.Waypoints...),
		VehicleType:         vehicleTypes,
		DistanceKm:          distanceKm,
		EstimatedTime:       estimatedTime,
		PolylineCoordinates: polyline,
		EncodedPolyline:     geo.EncodePolyline(polyline),
		IsRecommended:       route.IsRecommended != nil && *route.IsRecommended,
		Approved:            route.Approved != nil && *route.Approved,
	}

	result.OverlapsClosure = p.overlapsClosure(route.RouteName, polyline, closure)
	return result
}

// RecheckOverlaps re-evaluates the overlap flag of already processed routes
// against closure. Distance, travel time and approval are left as stored.
func (p *ClosureRouteProcessor) RecheckOverlaps(routes []models.AlternateRoute, closure *models.RoadClosure) []models.AlternateRoute {
	checked := make([]models.AlternateRoute, len(routes))
	for i, route := range routes {
		route.OverlapsClosure = p.overlapsClosure(route.RouteName, route.PolylineCoordinates, closure)
		checked[i] = route
	}
	return checked
}

func (p *ClosureRouteProcessor) overlapsClosure(routeName string, polyline []models.Coordinate, closure *models.RoadClosure) bool {
	if closure == nil || len(closure.PolylineCoordinates) == 0 || len(polyline) == 0 {
		return false
	}
	d, ok := geo.ClosestApproach(polyline, closure.PolylineCoordinates, p.toleranceKm)
	if !ok {
		return false
	}
	p.metrics.RecordRouteOverlap()
	p.logger.Warn("alternate route overlaps closed road",
		zap.String("route", routeName),
		zap.String("road_code", closure.RoadCode),
		zap.Float64("distance_km", d),
		zap.Float64("tolerance_km", p.toleranceKm),
	)
	return true
}

// OverlapWarnings lists a human-readable warning for every route flagged as overlapping its closure.
func OverlapWarnings(roadwork *models.Roadwork) []string {
	if roadwork == nil {
		return nil
	}
	var warnings []string
	for _, route := range roadwork.AlternateRoutes {
		if !route.OverlapsClosure {
			continue
		}
		road := "the closed road"
		if roadwork.RoadClosure != nil && roadwork.RoadClosure.RoadCode != "" {
			road = roadwork.RoadClosure.RoadCode
		}
		warnings = append(warnings, fmt.Sprintf("Alternate route %q overlaps with %s", route.RouteName, road))
	}
	return warnings
}

func waypointCoordinates(waypoints []models.Waypoint) []models.Coordinate {
	points := make([]models.Coordinate, len(waypoints))
	for i, wp := range waypoints {
		points[i] = wp.Coordinates
	}
	return points
}
