package service

import (
	"errors"
	"math"
	"testing"

	"github.com/signalsfoundry/airspace-deconfliction/model"
)

func TestValidateVerifyRequest(t *testing.T) {
	def := &model.MissionDefinition{ID: "P"}
	neg, zero, nan := -1.0, 0.0, math.NaN()

	tests := []struct {
		name    string
		req     *VerifyMissionRequest
		wantErr bool
	}{
		{name: "nil", req: nil, wantErr: true},
		{name: "no primary", req: &VerifyMissionRequest{}, wantErr: true},
		{name: "both primaries", req: &VerifyMissionRequest{Primary: def, PrimaryID: "P"}, wantErr: true},
		{name: "blank id", req: &VerifyMissionRequest{PrimaryID: "  "}, wantErr: true},
		{name: "inline", req: &VerifyMissionRequest{Primary: def}},
		{name: "by id", req: &VerifyMissionRequest{PrimaryID: "P"}},
		{name: "negative buffer allowed", req: &VerifyMissionRequest{PrimaryID: "P", SafetyBuffer: &neg}},
		{name: "nan buffer", req: &VerifyMissionRequest{PrimaryID: "P", SafetyBuffer: &nan}, wantErr: true},
		{name: "zero resolution", req: &VerifyMissionRequest{PrimaryID: "P", TimeResolution: &zero}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateVerifyRequest(tc.req)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestValidatePositionAndApproachRequests(t *testing.T) {
	def := &model.MissionDefinition{ID: "A"}

	if err := ValidatePositionRequest(&PositionRequest{MissionID: "A", Time: math.Inf(1)}); err == nil {
		t.Fatalf("infinite time accepted")
	}
	if err := ValidatePositionRequest(&PositionRequest{Mission: def, Time: 3}); err != nil {
		t.Fatalf("inline mission rejected: %v", err)
	}
	if err := ValidateApproachRequest(&ApproachRequest{PrimaryID: "A"}); err == nil {
		t.Fatalf("missing other accepted")
	}
	if err := ValidateApproachRequest(&ApproachRequest{PrimaryID: "A", Other: def}); err != nil {
		t.Fatalf("mixed id/inline rejected: %v", err)
	}
}
