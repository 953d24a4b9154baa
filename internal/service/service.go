// Package service exposes mission registration, strategic deconfliction and
// trajectory queries over gRPC.
package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vmihailenco/msgpack/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/signalsfoundry/airspace-deconfliction/core"
	"github.com/signalsfoundry/airspace-deconfliction/internal/config"
	"github.com/signalsfoundry/airspace-deconfliction/internal/logging"
	"github.com/signalsfoundry/airspace-deconfliction/internal/observability"
	"github.com/signalsfoundry/airspace-deconfliction/internal/report"
	"github.com/signalsfoundry/airspace-deconfliction/kb"
	"github.com/signalsfoundry/airspace-deconfliction/model"
)

// Service implements DeconflictionServer on top of a mission registry.
type Service struct {
	registry *kb.KnowledgeBase
	log      logging.Logger
	metrics  *observability.VerificationCollector
	rpc      *observability.RPCCollector

	mu         sync.RWMutex
	detector   *core.Detector
	maxSamples int
	cache      *lru.Cache[uint64, core.Result]

	unsubscribe func()
}

var _ DeconflictionServer = (*Service)(nil)

// Option customises a Service.
type Option func(*Service)

// WithLogger sets the fallback logger used when a request carries none.
func WithLogger(l logging.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithVerificationCollector records detector runs and cache outcomes.
func WithVerificationCollector(c *observability.VerificationCollector) Option {
	return func(s *Service) { s.metrics = c }
}

// WithRPCCollector keeps the registered-missions gauge current.
func WithRPCCollector(c *observability.RPCCollector) Option {
	return func(s *Service) { s.rpc = c }
}

// New builds a Service over registry using cfg for detector parameters,
// sample limits and result caching.
func New(registry *kb.KnowledgeBase, cfg config.DeconflictionConfig, opts ...Option) (*Service, error) {
	if registry == nil {
		registry = kb.NewKnowledgeBase()
	}
	s := &Service{registry: registry, log: logging.Noop()}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.UpdateConfig(cfg); err != nil {
		return nil, err
	}

	s.rpc.SetRegisteredMissions(registry.Len())
	s.unsubscribe = registry.Subscribe(func(kb.Event) {
		s.rpc.SetRegisteredMissions(s.registry.Len())
	})
	return s, nil
}

// Close detaches the service from its registry.
func (s *Service) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// Registry returns the backing mission registry.
func (s *Service) Registry() *kb.KnowledgeBase { return s.registry }

// UpdateConfig swaps detector parameters and limits. In-flight verifications
// finish with the parameters they started with.
func (s *Service) UpdateConfig(cfg config.DeconflictionConfig) error {
	det, err := s.newDetector(cfg.Detector())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.detector = det
	s.maxSamples = cfg.MaxSamples
	switch {
	case cfg.CacheSize <= 0:
		s.cache = nil
	case s.cache == nil:
		s.cache, err = lru.New[uint64, core.Result](cfg.CacheSize)
		if err != nil {
			return err
		}
	default:
		s.cache.Resize(cfg.CacheSize)
	}
	return nil
}

// DetectorConfig returns the detector parameters currently in effect.
func (s *Service) DetectorConfig() core.DetectorConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.detector.Config()
}

func (s *Service) newDetector(cfg core.DetectorConfig) (*core.Detector, error) {
	return core.NewDetector(cfg, core.WithRecorder(s.metrics), core.WithLogger(s.log))
}

func (s *Service) logger(ctx context.Context) logging.Logger {
	if l := logging.LoggerFromContext(ctx); l != nil {
		return l
	}
	return s.log
}

func (s *Service) RegisterMission(ctx context.Context, req *RegisterMissionRequest) (*MissionResponse, error) {
	if req == nil {
		return nil, ToStatusError(fmt.Errorf("%w: request is required", ErrInvalidRequest))
	}
	def := req.Mission
	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	m, err := core.MissionFromDefinition(def)
	if err != nil {
		return nil, ToStatusError(err)
	}
	if err := s.registry.AddMission(m); err != nil {
		return nil, ToStatusError(err)
	}

	s.logger(ctx).Info(ctx, "mission registered",
		logging.String("mission_id", m.ID()),
		logging.Int("waypoints", m.NumWaypoints()),
		logging.Float("start_time", m.StartTime()),
		logging.Float("end_time", m.EndTime()),
	)
	return missionResponse(m), nil
}

func (s *Service) GetMission(ctx context.Context, req *MissionRequest) (*MissionResponse, error) {
	if req == nil || req.MissionID == "" {
		return nil, ToStatusError(fmt.Errorf("%w: mission_id is required", ErrInvalidRequest))
	}
	m, err := s.registry.GetMission(req.MissionID)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return missionResponse(m), nil
}

func (s *Service) ListMissions(ctx context.Context, _ *ListMissionsRequest) (*ListMissionsResponse, error) {
	missions, version := s.registry.Snapshot()
	resp := &ListMissionsResponse{Missions: make([]model.MissionDefinition, 0, len(missions)), Version: version}
	for _, m := range missions {
		resp.Missions = append(resp.Missions, m.Definition())
	}
	return resp, nil
}

func (s *Service) DeleteMission(ctx context.Context, req *MissionRequest) (*Empty, error) {
	if req == nil || req.MissionID == "" {
		return nil, ToStatusError(fmt.Errorf("%w: mission_id is required", ErrInvalidRequest))
	}
	if err := s.registry.RemoveMission(req.MissionID); err != nil {
		return nil, ToStatusError(err)
	}
	s.logger(ctx).Info(ctx, "mission removed", logging.String("mission_id", req.MissionID))
	return &Empty{}, nil
}

func (s *Service) ClearMissions(ctx context.Context, _ *Empty) (*Empty, error) {
	n := s.registry.Len()
	s.registry.Clear()
	s.logger(ctx).Info(ctx, "registry cleared", logging.Int("removed", n))
	return &Empty{}, nil
}

// VerifyMission runs the detector for the requested primary. Others are the
// inline missions followed, with UseRegistry, by registered missions in
// registration order minus the primary's id and ExcludeIDs. A cancelled or
// expired request returns a status error and never a safe verdict.
func (s *Service) VerifyMission(ctx context.Context, req *VerifyMissionRequest) (*VerifyMissionResponse, error) {
	if err := ValidateVerifyRequest(req); err != nil {
		return nil, ToStatusError(err)
	}
	log := s.logger(ctx)

	primary, err := s.resolve(req.Primary, req.PrimaryID)
	if err != nil {
		return nil, ToStatusError(fmt.Errorf("primary: %w", err))
	}
	others, err := s.othersFor(req, primary.ID())
	if err != nil {
		return nil, ToStatusError(err)
	}

	det, cache, maxSamples, err := s.detectorFor(req)
	if err != nil {
		return nil, ToStatusError(err)
	}
	cfg := det.Config()
	n, err := core.SampleCount(primary, cfg.TimeResolution)
	if err != nil {
		return nil, ToStatusError(err)
	}
	if maxSamples > 0 && n > maxSamples {
		return nil, ToStatusError(fmt.Errorf("%w: %d samples requested, limit %d", ErrTooManySamples, n, maxSamples))
	}

	var key uint64
	if cache != nil {
		key, err = cacheKey(primary, others, cfg)
		if err != nil {
			log.Warn(ctx, "verification cache key failed", logging.Err(err))
			cache = nil
		}
	}
	if cache != nil {
		if res, ok := cache.Get(key); ok {
			s.metrics.IncCacheHit()
			log.Debug(ctx, "verification served from cache", logging.String("primary_id", primary.ID()))
			resp := verifyResponse(primary.ID(), res)
			resp.Cached = true
			return resp, nil
		}
		s.metrics.IncCacheMiss()
	}

	ctx, span := StartChildSpan(ctx, "deconfliction.verify", primary.ID(),
		attribute.Int("others", len(others)),
		attribute.Int("samples", n),
		attribute.Float64("safety_buffer", cfg.SafetyBuffer),
	)
	res, err := det.Verify(ctx, primary, others)
	span.SetAttributes(
		attribute.String("status", res.Status.String()),
		attribute.Int("conflicts", len(res.Conflicts)),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		log.Warn(ctx, "verification did not complete",
			logging.String("primary_id", primary.ID()),
			logging.Int("conflicts_so_far", len(res.Conflicts)),
			logging.Err(err),
		)
		return nil, ToStatusError(err)
	}
	span.End()

	if cache != nil {
		cache.Add(key, res)
	}
	log.Info(ctx, "mission verified",
		logging.String("primary_id", primary.ID()),
		logging.String("status", res.Status.String()),
		logging.Int("others", len(others)),
		logging.Int("conflicts", len(res.Conflicts)),
	)
	return verifyResponse(primary.ID(), res), nil
}

func (s *Service) PositionAt(ctx context.Context, req *PositionRequest) (*PositionResponse, error) {
	if err := ValidatePositionRequest(req); err != nil {
		return nil, ToStatusError(err)
	}
	m, err := s.resolve(req.Mission, req.MissionID)
	if err != nil {
		return nil, ToStatusError(err)
	}
	p, ok := m.PositionAt(req.Time)
	if !ok {
		return &PositionResponse{}, nil
	}
	return &PositionResponse{Airborne: true, Position: waypoint(p)}, nil
}

func (s *Service) ClosestApproach(ctx context.Context, req *ApproachRequest) (*ApproachResponse, error) {
	if err := ValidateApproachRequest(req); err != nil {
		return nil, ToStatusError(err)
	}
	a, err := s.resolve(req.Primary, req.PrimaryID)
	if err != nil {
		return nil, ToStatusError(fmt.Errorf("primary: %w", err))
	}
	b, err := s.resolve(req.Other, req.OtherID)
	if err != nil {
		return nil, ToStatusError(fmt.Errorf("other: %w", err))
	}

	_, span := StartChildSpan(ctx, "deconfliction.closest_approach", a.ID(), attribute.String("other_id", b.ID()))
	defer span.End()

	ap, ok := core.ClosestApproach(a, b)
	if !ok {
		return &ApproachResponse{}, nil
	}
	return &ApproachResponse{
		Overlap:   true,
		Time:      ap.Time,
		Distance:  ap.Distance,
		PositionA: waypoint(ap.PositionA),
		PositionB: waypoint(ap.PositionB),
	}, nil
}

// resolve returns the inline mission when def is set, otherwise the
// registered mission with the given id.
func (s *Service) resolve(def *model.MissionDefinition, id string) (core.Mission, error) {
	if def != nil {
		return core.MissionFromDefinition(*def)
	}
	return s.registry.GetMission(id)
}

func (s *Service) othersFor(req *VerifyMissionRequest, primaryID string) ([]core.Mission, error) {
	others := make([]core.Mission, 0, len(req.Others))
	for i, def := range req.Others {
		m, err := core.MissionFromDefinition(def)
		if err != nil {
			return nil, fmt.Errorf("others[%d]: %w", i, err)
		}
		others = append(others, m)
	}
	if req.UseRegistry {
		exclude := append([]string{primaryID}, req.ExcludeIDs...)
		others = append(others, s.registry.Others(exclude...)...)
	}
	return others, nil
}

// detectorFor returns the detector for req, building a one-off detector when
// the request overrides the buffer or resolution.
func (s *Service) detectorFor(req *VerifyMissionRequest) (*core.Detector, *lru.Cache[uint64, core.Result], int, error) {
	s.mu.RLock()
	det, cache, maxSamples := s.detector, s.cache, s.maxSamples
	s.mu.RUnlock()

	if req.SafetyBuffer == nil && req.TimeResolution == nil {
		return det, cache, maxSamples, nil
	}
	cfg := det.Config()
	if req.SafetyBuffer != nil {
		cfg.SafetyBuffer = *req.SafetyBuffer
	}
	if req.TimeResolution != nil {
		cfg.TimeResolution = *req.TimeResolution
	}
	det, err := s.newDetector(cfg)
	return det, cache, maxSamples, err
}

// cacheKeyInput is the canonical form hashed for result caching.
type cacheKeyInput struct {
	Primary        model.MissionDefinition   `msgpack:"primary"`
	Others         []model.MissionDefinition `msgpack:"others"`
	SafetyBuffer   float64                   `msgpack:"safety_buffer"`
	TimeResolution float64                   `msgpack:"time_resolution"`
}

func cacheKey(primary core.Mission, others []core.Mission, cfg core.DetectorConfig) (uint64, error) {
	in := cacheKeyInput{
		Primary:        primary.Definition(),
		Others:         make([]model.MissionDefinition, 0, len(others)),
		SafetyBuffer:   cfg.SafetyBuffer,
		TimeResolution: cfg.TimeResolution,
	}
	for _, o := range others {
		in.Others = append(in.Others, o.Definition())
	}
	data, err := msgpack.Marshal(&in)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(data), nil
}

func verifyResponse(primaryID string, res core.Result) *VerifyMissionResponse {
	resp := &VerifyMissionResponse{
		PrimaryID: primaryID,
		Status:    res.Status.String(),
		IsSafe:    res.IsSafe(),
		Samples:   res.Samples,
		Conflicts: core.Records(res.Conflicts),
		Summary:   report.ResultSummary(res, report.DefaultMaxPerGroup),
	}
	for _, g := range report.Group(res.Conflicts) {
		resp.Groups = append(resp.Groups, GroupSummary{OtherID: g.OtherID, Count: len(g.Conflicts)})
	}
	return resp
}

func missionResponse(m core.Mission) *MissionResponse {
	return &MissionResponse{
		Mission:      m.Definition(),
		PathLength:   m.PathLength(),
		ImpliedSpeed: m.ImpliedSpeed(),
	}
}

func waypoint(p core.Point) *model.Waypoint {
	return &model.Waypoint{X: p.X, Y: p.Y, Z: p.Z}
}
