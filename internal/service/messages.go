package service

import "github.com/signalsfoundry/airspace-deconfliction/model"

// Empty is returned by RPCs with no payload.
type Empty struct{}

type RegisterMissionRequest struct {
	Mission model.MissionDefinition `json:"mission"`
}

type MissionRequest struct {
	MissionID string `json:"mission_id"`
}

type MissionResponse struct {
	Mission      model.MissionDefinition `json:"mission"`
	PathLength   float64                 `json:"path_length"`
	ImpliedSpeed float64                 `json:"implied_speed"`
}

type ListMissionsRequest struct{}

type ListMissionsResponse struct {
	Missions []model.MissionDefinition `json:"missions"`
	// Version is the registry version the list was read at.
	Version uint64 `json:"version"`
}

// VerifyMissionRequest checks a primary mission against inline missions and,
// with UseRegistry, every registered mission. The primary is given either
// inline or by registered id. Unset overrides use the server configuration.
type VerifyMissionRequest struct {
	Primary        *model.MissionDefinition  `json:"primary,omitempty"`
	PrimaryID      string                    `json:"primary_id,omitempty"`
	Others         []model.MissionDefinition `json:"others,omitempty"`
	UseRegistry    bool                      `json:"use_registry,omitempty"`
	ExcludeIDs     []string                  `json:"exclude_ids,omitempty"`
	SafetyBuffer   *float64                  `json:"safety_buffer,omitempty"`
	TimeResolution *float64                  `json:"time_resolution,omitempty"`
}

type GroupSummary struct {
	OtherID string `json:"other_id"`
	Count   int    `json:"count"`
}

type VerifyMissionResponse struct {
	PrimaryID string                 `json:"primary_id"`
	Status    string                 `json:"status"`
	IsSafe    bool                   `json:"is_safe"`
	Samples   int                    `json:"samples"`
	Conflicts []model.ConflictRecord `json:"conflicts"`
	Groups    []GroupSummary         `json:"groups"`
	Summary   string                 `json:"summary"`
	Cached    bool                   `json:"cached,omitempty"`
}

// PositionRequest names a registered mission or carries one inline.
type PositionRequest struct {
	MissionID string                   `json:"mission_id,omitempty"`
	Mission   *model.MissionDefinition `json:"mission,omitempty"`
	Time      float64                  `json:"time"`
}

type PositionResponse struct {
	Airborne bool            `json:"airborne"`
	Position *model.Waypoint `json:"position,omitempty"`
}

type ApproachRequest struct {
	PrimaryID string                   `json:"primary_id,omitempty"`
	Primary   *model.MissionDefinition `json:"primary,omitempty"`
	OtherID   string                   `json:"other_id,omitempty"`
	Other     *model.MissionDefinition `json:"other,omitempty"`
}

type ApproachResponse struct {
	Overlap   bool            `json:"overlap"`
	Time      float64         `json:"time"`
	Distance  float64         `json:"distance"`
	PositionA *model.Waypoint `json:"position_a,omitempty"`
	PositionB *model.Waypoint `json:"position_b,omitempty"`
}
