package service

import (
	"fmt"
	"math"
	"strings"

	"github.com/signalsfoundry/airspace-deconfliction/model"
)

// ValidateVerifyRequest checks the shape of a verification request. Mission
// contents are validated when they are converted.
func ValidateVerifyRequest(req *VerifyMissionRequest) error {
	if req == nil {
		return fmt.Errorf("%w: request is required", ErrInvalidRequest)
	}
	if err := exactlyOne("primary", req.Primary, req.PrimaryID); err != nil {
		return err
	}
	if req.SafetyBuffer != nil && !isFinite(*req.SafetyBuffer) {
		return fmt.Errorf("%w: safety_buffer must be finite", ErrInvalidRequest)
	}
	if req.TimeResolution != nil && (!isFinite(*req.TimeResolution) || *req.TimeResolution <= 0) {
		return fmt.Errorf("%w: time_resolution must be positive", ErrInvalidRequest)
	}
	return nil
}

// ValidatePositionRequest checks a PositionAt request.
func ValidatePositionRequest(req *PositionRequest) error {
	if req == nil {
		return fmt.Errorf("%w: request is required", ErrInvalidRequest)
	}
	if err := exactlyOne("mission", req.Mission, req.MissionID); err != nil {
		return err
	}
	if !isFinite(req.Time) {
		return fmt.Errorf("%w: time must be finite", ErrInvalidRequest)
	}
	return nil
}

// ValidateApproachRequest checks a ClosestApproach request.
func ValidateApproachRequest(req *ApproachRequest) error {
	if req == nil {
		return fmt.Errorf("%w: request is required", ErrInvalidRequest)
	}
	if err := exactlyOne("primary", req.Primary, req.PrimaryID); err != nil {
		return err
	}
	return exactlyOne("other", req.Other, req.OtherID)
}

// exactlyOne requires either an inline definition or a registry id for field.
func exactlyOne(field string, def *model.MissionDefinition, id string) error {
	hasID := strings.TrimSpace(id) != ""
	switch {
	case def == nil && !hasID:
		return fmt.Errorf("%w: %s or %s_id is required", ErrInvalidRequest, field, field)
	case def != nil && hasID:
		return fmt.Errorf("%w: only one of %s and %s_id may be set", ErrInvalidRequest, field, field)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
