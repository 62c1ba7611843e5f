package model

import "time"

// Core layout types. Relations between entities are expressed as ids, never
// as embedded object graphs.

// ID identifies every entity in the layout.
type ID string

func (id ID) String() string { return string(id) }

// AnyCarType is the accepted-car-type marker that admits every car type.
const AnyCarType = "*"

type LocationType string

const (
	LocationOnLayout   LocationType = "ON_LAYOUT"
	LocationOffLayout  LocationType = "OFF_LAYOUT"
	LocationFiddleYard LocationType = "FIDDLE_YARD"
)

type IndustryType string

const (
	IndustryYard      IndustryType = "YARD"
	IndustryFreight   IndustryType = "FREIGHT"
	IndustryPassenger IndustryType = "PASSENGER"
)

type Location struct {
	ID           ID           `json:"id" yaml:"id"`
	StationName  string       `json:"stationName" yaml:"stationName"`
	Block        string       `json:"block,omitempty" yaml:"block"`
	LocationType LocationType `json:"locationType" yaml:"locationType"`
	Description  string       `json:"description,omitempty" yaml:"description"`
}

type Industry struct {
	ID           ID           `json:"id" yaml:"id"`
	Name         string       `json:"name" yaml:"name"`
	IndustryType IndustryType `json:"industryType" yaml:"industryType"`
	LocationID   ID           `json:"locationId" yaml:"locationId"`
	Tracks       []Track      `json:"tracks" yaml:"tracks"`
	Description  string       `json:"description,omitempty" yaml:"description"`
	Version      int64        `json:"version" yaml:"-"`
}

// IsYard reports whether the industry may serve as a train route endpoint.
func (i Industry) IsYard() bool { return i.IndustryType == IndustryYard }

type Track struct {
	ID               ID       `json:"id" yaml:"id"`
	Name             string   `json:"name" yaml:"name"`
	Length           int      `json:"length" yaml:"length"`
	MaxCars          int      `json:"maxCars" yaml:"maxCars"`
	AcceptedCarTypes []string `json:"acceptedCarTypes" yaml:"acceptedCarTypes"`
	PlacedCars       []ID     `json:"placedCars" yaml:"placedCars"`
}

// TrackRef points at a track inside an industry.
type TrackRef struct {
	IndustryID ID `json:"industryId" yaml:"industryId" validate:"required"`
	TrackID    ID `json:"trackId" yaml:"trackId" validate:"required"`
}

func (r TrackRef) IsZero() bool { return r.IndustryID == "" && r.TrackID == "" }

type RollingStock struct {
	ID              ID        `json:"id" yaml:"id"`
	RoadName        string    `json:"roadName" yaml:"roadName"`
	RoadNumber      string    `json:"roadNumber" yaml:"roadNumber"`
	AARType         string    `json:"aarType" yaml:"aarType"`
	Description     string    `json:"description,omitempty" yaml:"description"`
	Color           string    `json:"color,omitempty" yaml:"color"`
	Note            string    `json:"note,omitempty" yaml:"note"`
	HomeYard        ID        `json:"homeYard,omitempty" yaml:"homeYard"`
	CurrentLocation *TrackRef `json:"currentLocation,omitempty" yaml:"-"`
	// Destination is the car's next assigned destination, if any.
	Destination *TrackRef `json:"destination,omitempty" yaml:"destination"`
	Version     int64     `json:"version" yaml:"-"`
}

// ReportingMarks returns the road name and number, e.g. "ATSF 1234".
func (c RollingStock) ReportingMarks() string {
	if c.RoadNumber == "" {
		return c.RoadName
	}
	return c.RoadName + " " + c.RoadNumber
}

type TrainRoute struct {
	ID                ID     `json:"id" yaml:"id"`
	Name              string `json:"name" yaml:"name"`
	RouteType         string `json:"routeType,omitempty" yaml:"routeType"`
	OriginatingYardID ID     `json:"originatingYardId" yaml:"originatingYardId"`
	TerminatingYardID ID     `json:"terminatingYardId" yaml:"terminatingYardId"`
	Stations          []ID   `json:"stations" yaml:"stations"`
}

type SwitchlistStatus string

const (
	StatusCreated    SwitchlistStatus = "CREATED"
	StatusInProgress SwitchlistStatus = "IN_PROGRESS"
	StatusCompleted  SwitchlistStatus = "COMPLETED"
)

var statusRank = map[SwitchlistStatus]int{
	StatusCreated:    1,
	StatusInProgress: 2,
	StatusCompleted:  3,
}

func (s SwitchlistStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Precedes reports whether to comes strictly after s in the lifecycle.
func (s SwitchlistStatus) Precedes(to SwitchlistStatus) bool {
	return s.Valid() && to.Valid() && statusRank[to] > statusRank[s]
}

type OperationStatus string

const (
	OperationPending  OperationStatus = "PENDING"
	OperationExecuted OperationStatus = "EXECUTED"
	OperationFailed   OperationStatus = "FAILED"
)

// Operation is one planned car movement tied to a route stop.
type Operation struct {
	CarID         ID              `json:"carId"`
	Source        TrackRef        `json:"source"`
	Destination   TrackRef        `json:"destination"`
	StationOrder  int             `json:"stationOrder"`
	Status        OperationStatus `json:"status"`
	FailureReason string          `json:"failureReason,omitempty"`
	ExecutedAt    *time.Time      `json:"executedAt,omitempty"`
}

// SkippedCar records a yard car the planner could not schedule.
type SkippedCar struct {
	CarID  ID     `json:"carId"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

type Switchlist struct {
	ID           ID               `json:"id"`
	TrainRouteID ID               `json:"trainRouteId"`
	Name         string           `json:"name"`
	Status       SwitchlistStatus `json:"status"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
	Operations   []Operation      `json:"operations"`
	Skipped      []SkippedCar     `json:"skipped"`
	Version      int64            `json:"version"`
}

// Layout is a full snapshot of the placement-relevant collections.
type Layout struct {
	Locations    []Location     `json:"locations" yaml:"locations"`
	Industries   []Industry     `json:"industries" yaml:"industries"`
	RollingStock []RollingStock `json:"rollingStock" yaml:"rollingStock"`
	TrainRoutes  []TrainRoute   `json:"trainRoutes" yaml:"trainRoutes"`
}
