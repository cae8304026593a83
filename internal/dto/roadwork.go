package dto

import (
	"time"

	"github.com/roads-authority/roadworks-api/internal/models"
)

// Actor identifies the admin performing a mutation.
type Actor struct {
	UserID string
	Email  string
}

// RoadClosureInput is the raw closed-segment payload.
type RoadClosureInput struct {
	RoadCode            string              `json:"roadCode" yaml:"roadCode" validate:"required,max=50"`
	StartTown           string              `json:"startTown,omitempty" yaml:"startTown" validate:"omitempty,max=120"`
	EndTown             string              `json:"endTown,omitempty" yaml:"endTown" validate:"omitempty,max=120"`
	StartCoordinates    models.Coordinate   `json:"startCoordinates" yaml:"startCoordinates"`
	EndCoordinates      models.Coordinate   `json:"endCoordinates" yaml:"endCoordinates"`
	PolylineCoordinates []models.Coordinate `json:"polylineCoordinates,omitempty" yaml:"polylineCoordinates"`
}

// AlternateRouteInput is a raw detour as submitted by the admin console.
// Computed attributes are optional and win over computed values when present.
type AlternateRouteInput struct {
	RouteName           string              `json:"routeName" yaml:"routeName" validate:"required,max=200"`
	RoadsUsed           []string            `json:"roadsUsed" yaml:"roadsUsed"`
	Waypoints           []models.Waypoint   `json:"waypoints" yaml:"waypoints" validate:"required,min=1"`
	VehicleType         []string            `json:"vehicleType,omitempty" yaml:"vehicleType"`
	DistanceKm          *float64            `json:"distanceKm,omitempty" yaml:"distanceKm" validate:"omitempty,gte=0"`
	EstimatedTime       *string             `json:"estimatedTime,omitempty" yaml:"estimatedTime"`
	PolylineCoordinates []models.Coordinate `json:"polylineCoordinates,omitempty" yaml:"polylineCoordinates"`
	IsRecommended       *bool               `json:"isRecommended,omitempty" yaml:"isRecommended"`
	Approved            *bool               `json:"approved,omitempty" yaml:"approved"`
}

// RoadworkFields carries every writable roadwork attribute. A nil field was
// not supplied, which is different from being cleared.
type RoadworkFields struct {
	Title                *string               `json:"title,omitempty" yaml:"title" validate:"omitempty,max=200"`
	Road                 *string               `json:"road,omitempty" yaml:"road" validate:"omitempty,max=50"`
	Section              *string               `json:"section,omitempty" yaml:"section" validate:"omitempty,max=300"`
	Area                 *string               `json:"area,omitempty" yaml:"area" validate:"omitempty,max=120"`
	Region               *string               `json:"region,omitempty" yaml:"region"`
	Status               *string               `json:"status,omitempty" yaml:"status"`
	Description          *string               `json:"description,omitempty" yaml:"description"`
	StartDate            *string               `json:"startDate,omitempty" yaml:"startDate"`
	EndDate              *string               `json:"endDate,omitempty" yaml:"endDate"`
	ExpectedCompletion   *string               `json:"expectedCompletion,omitempty" yaml:"expectedCompletion"`
	CompletedAt          *string               `json:"completedAt,omitempty" yaml:"completedAt"`
	AlternativeRoute     *string               `json:"alternativeRoute,omitempty" yaml:"alternativeRoute" validate:"omitempty,max=500"`
	Coordinates          *models.Coordinate    `json:"coordinates,omitempty" yaml:"coordinates"`
	AffectedLanes        *string               `json:"affectedLanes,omitempty" yaml:"affectedLanes" validate:"omitempty,max=100"`
	Contractor           *string               `json:"contractor,omitempty" yaml:"contractor" validate:"omitempty,max=200"`
	EstimatedDuration    *string               `json:"estimatedDuration,omitempty" yaml:"estimatedDuration" validate:"omitempty,max=100"`
	ExpectedDelayMinutes *int                  `json:"expectedDelayMinutes,omitempty" yaml:"expectedDelayMinutes" validate:"omitempty,min=0"`
	TrafficControl       *string               `json:"trafficControl,omitempty" yaml:"trafficControl" validate:"omitempty,max=200"`
	Published            *bool                 `json:"published,omitempty" yaml:"published"`
	Priority             *string               `json:"priority,omitempty" yaml:"priority"`
	RoadClosure          *RoadClosureInput     `json:"roadClosure,omitempty" yaml:"roadClosure"`
	AlternateRoutes      []AlternateRouteInput `json:"alternateRoutes,omitempty" yaml:"alternateRoutes" validate:"omitempty,dive"`
}

// CreateRoadworkRequest is the payload for a new roadwork.
type CreateRoadworkRequest struct {
	RoadworkFields `yaml:",inline"`
}

// UpdateRoadworkRequest is a partial update; only supplied fields change.
type UpdateRoadworkRequest struct {
	RoadworkFields `yaml:",inline"`
}

// ListRoadworksQuery filters the admin roadwork listing.
type ListRoadworksQuery struct {
	Statuses  []string
	Road      string
	Area      string
	Region    string
	Published *bool
	Priority  string
	Search    string
	FromDate  *time.Time
	ToDate    *time.Time
	Page      int
	Limit     int
}

// RoadworkList is a page of roadworks.
type RoadworkList struct {
	Items      []models.Roadwork `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	TotalPages int               `json:"totalPages"`
	Limit      int               `json:"limit"`
}

// ClosureWithRoutes is the closure view consumed by the route map screen.
type ClosureWithRoutes struct {
	RoadClosure     models.RoadClosure      `json:"roadClosure"`
	AlternateRoutes []models.AlternateRoute `json:"alternateRoutes"`
}

// UpdateClosureRequest replaces the closure and, when supplied, the detours.
type UpdateClosureRequest struct {
	RoadClosure     *RoadClosureInput     `json:"roadClosure" binding:"required"`
	AlternateRoutes []AlternateRouteInput `json:"alternateRoutes,omitempty"`
}

// Export formats accepted by the register export.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}
