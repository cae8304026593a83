package models

import (
	"time"

	"github.com/roads-authority/roadworks-api/pkg/geo"
)

// RoadworkStatus captures the lifecycle state of a roadwork.
type RoadworkStatus string

const (
	RoadworkStatusPlanned            RoadworkStatus = "Planned"
	RoadworkStatusOngoing            RoadworkStatus = "Ongoing"
	RoadworkStatusCompleted          RoadworkStatus = "Completed"
	RoadworkStatusPlannedWorks       RoadworkStatus = "Planned Works"
	RoadworkStatusOngoingMaintenance RoadworkStatus = "Ongoing Maintenance"
	RoadworkStatusClosed             RoadworkStatus = "Closed"
	RoadworkStatusRestricted         RoadworkStatus = "Restricted"
)

// RoadworkStatuses lists every accepted status value.
var RoadworkStatuses = []RoadworkStatus{
	RoadworkStatusPlanned,
	RoadworkStatusOngoing,
	RoadworkStatusCompleted,
	RoadworkStatusPlannedWorks,
	RoadworkStatusOngoingMaintenance,
	RoadworkStatusClosed,
	RoadworkStatusRestricted,
}

// PublicRoadworkStatuses are the statuses shown to citizens in the mobile app.
var PublicRoadworkStatuses = []RoadworkStatus{
	RoadworkStatusPlanned,
	RoadworkStatusPlannedWorks,
	RoadworkStatusOngoing,
	RoadworkStatusOngoingMaintenance,
	RoadworkStatusClosed,
	RoadworkStatusRestricted,
}

// Valid reports whether s is a known status.
func (s RoadworkStatus) Valid() bool {
	for _, known := range RoadworkStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsCritical marks statuses that block or restrict traffic.
func (s RoadworkStatus) IsCritical() bool {
	return s == RoadworkStatusClosed || s == RoadworkStatusRestricted
}

// IsPlanned is true for both planned variants.
func (s RoadworkStatus) IsPlanned() bool {
	return s == RoadworkStatusPlanned || s == RoadworkStatusPlannedWorks
}

// RoadworkPriority ranks roadworks for public display. Empty means unset.
type RoadworkPriority string

const (
	RoadworkPriorityLow      RoadworkPriority = "low"
	RoadworkPriorityMedium   RoadworkPriority = "medium"
	RoadworkPriorityHigh     RoadworkPriority = "high"
	RoadworkPriorityCritical RoadworkPriority = "critical"
)

// Rank orders priorities; unset sorts last.
func (p RoadworkPriority) Rank() int {
	switch p {
	case RoadworkPriorityCritical:
		return 4
	case RoadworkPriorityHigh:
		return 3
	case RoadworkPriorityMedium:
		return 2
	case RoadworkPriorityLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether p is unset or one of the known priorities.
func (p RoadworkPriority) Valid() bool {
	return p == "" || p.Rank() > 0
}

// Coordinate is a WGS84 point.
type Coordinate = geo.Coordinate

// Waypoint is a named stop along an alternate route; order defines direction.
type Waypoint struct {
	Name        string     `json:"name" bson:"name" yaml:"name"`
	Coordinates Coordinate `json:"coordinates" bson:"coordinates" yaml:"coordinates"`
}

// RoadClosure is the closed segment owned by a roadwork.
type RoadClosure struct {
	RoadCode            string       `json:"roadCode" bson:"roadCode"`
	StartTown           string       `json:"startTown,omitempty" bson:"startTown,omitempty"`
	EndTown             string       `json:"endTown,omitempty" bson:"endTown,omitempty"`
	StartCoordinates    Coordinate   `json:"startCoordinates" bson:"startCoordinates"`
	EndCoordinates      Coordinate   `json:"endCoordinates" bson:"endCoordinates"`
	PolylineCoordinates []Coordinate `json:"polylineCoordinates" bson:"polylineCoordinates"`
	EncodedPolyline     string       `json:"encodedPolyline,omitempty" bson:"encodedPolyline,omitempty"`
}

// AlternateRoute is an admin-curated detour around a closure.
type AlternateRoute struct {
	RouteName           string       `json:"routeName" bson:"routeName"`
	RoadsUsed           []string     `json:"roadsUsed" bson:"roadsUsed"`
	Waypoints           []Waypoint   `json:"waypoints" bson:"waypoints"`
	VehicleType         []string     `json:"vehicleType" bson:"vehicleType"`
	DistanceKm          float64      `json:"distanceKm" bson:"distanceKm"`
	EstimatedTime       string       `json:"estimatedTime" bson:"estimatedTime"`
	PolylineCoordinates []Coordinate `json:"polylineCoordinates" bson:"polylineCoordinates"`
	EncodedPolyline     string       `json:"encodedPolyline,omitempty" bson:"encodedPolyline,omitempty"`
	IsRecommended       bool         `json:"isRecommended" bson:"isRecommended"`
	Approved            bool         `json:"approved" bson:"approved"`
	OverlapsClosure     bool         `json:"overlapsClosure" bson:"overlapsClosure"`
	ApprovedBy          string       `json:"approvedBy,omitempty" bson:"approvedBy,omitempty"`
	ApprovedAt          *time.Time   `json:"approvedAt,omitempty" bson:"approvedAt,omitempty"`
}

// Roadwork is the aggregate root for a public-works job on a road.
type Roadwork struct {
	ID                   string           `json:"id" bson:"_id"`
	Title                string           `json:"title" bson:"title"`
	Road                 string           `json:"road" bson:"road"`
	Section              string           `json:"section" bson:"section"`
	Area                 string           `json:"area,omitempty" bson:"area,omitempty"`
	Region               string           `json:"region" bson:"region"`
	Status               RoadworkStatus   `json:"status" bson:"status"`
	Description          string           `json:"description,omitempty" bson:"description,omitempty"`
	StartDate            *time.Time       `json:"startDate,omitempty" bson:"startDate,omitempty"`
	EndDate              *time.Time       `json:"endDate,omitempty" bson:"endDate,omitempty"`
	ExpectedCompletion   *time.Time       `json:"expectedCompletion,omitempty" bson:"expectedCompletion,omitempty"`
	CompletedAt          *time.Time       `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	AlternativeRoute     string           `json:"alternativeRoute,omitempty" bson:"alternativeRoute,omitempty"`
	Coordinates          *Coordinate      `json:"coordinates,omitempty" bson:"coordinates,omitempty"`
	AffectedLanes        string           `json:"affectedLanes,omitempty" bson:"affectedLanes,omitempty"`
	Contractor           string           `json:"contractor,omitempty" bson:"contractor,omitempty"`
	EstimatedDuration    string           `json:"estimatedDuration,omitempty" bson:"estimatedDuration,omitempty"`
	ExpectedDelayMinutes *int             `json:"expectedDelayMinutes,omitempty" bson:"expectedDelayMinutes,omitempty"`
	TrafficControl       string           `json:"trafficControl,omitempty" bson:"trafficControl,omitempty"`
	Published            bool             `json:"published" bson:"published"`
	Priority             RoadworkPriority `json:"priority,omitempty" bson:"priority,omitempty"`
	RoadClosure          *RoadClosure     `json:"roadClosure,omitempty" bson:"roadClosure,omitempty"`
	AlternateRoutes      []AlternateRoute `json:"alternateRoutes" bson:"alternateRoutes"`
	ChangeHistory        ChangeHistory    `json:"changeHistory" bson:"changeHistory"`
	CreatedBy            string           `json:"createdBy,omitempty" bson:"createdBy,omitempty"`
	CreatedByEmail       string           `json:"createdByEmail,omitempty" bson:"createdByEmail,omitempty"`
	UpdatedBy            string           `json:"updatedBy,omitempty" bson:"updatedBy,omitempty"`
	UpdatedByEmail       string           `json:"updatedByEmail,omitempty" bson:"updatedByEmail,omitempty"`
	CreatedAt            time.Time        `json:"createdAt" bson:"createdAt"`
	UpdatedAt            time.Time        `json:"updatedAt" bson:"updatedAt"`
}

// RoadworkFilter narrows repository queries. Zero values are ignored.
type RoadworkFilter struct {
	Statuses  []RoadworkStatus
	Road      string
	Area      string
	Region    string
	Published *bool
	Priority  RoadworkPriority
	Search    string
	FromDate  *time.Time
	ToDate    *time.Time
}

// RoadworkSortField names a sortable roadwork attribute.
type RoadworkSortField string

const (
	RoadworkSortPriority  RoadworkSortField = "priority"
	RoadworkSortStartDate RoadworkSortField = "startDate"
	RoadworkSortCreatedAt RoadworkSortField = "createdAt"
)

// RoadworkSort is one ordering key; Desc flips the direction.
type RoadworkSort struct {
	Field RoadworkSortField
	Desc  bool
}
