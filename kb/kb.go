package kb

import (
	"errors"
	"fmt"
	"sync"

	"github.com/signalsfoundry/airspace-deconfliction/core"
)

var (
	// ErrMissionExists is returned when registering an id twice.
	ErrMissionExists = errors.New("mission already exists")
	// ErrMissionNotFound is returned for unknown mission ids.
	ErrMissionNotFound = errors.New("mission not found")
	// ErrInvalidMission is returned for missions the registry cannot key.
	ErrInvalidMission = errors.New("invalid mission")
)

// EventType indicates what kind of change happened in the KB.
type EventType int

const (
	EventMissionAdded EventType = iota
	EventMissionRemoved
	EventCleared
)

func (e EventType) String() string {
	switch e {
	case EventMissionAdded:
		return "added"
	case EventMissionRemoved:
		return "removed"
	case EventCleared:
		return "cleared"
	default:
		return fmt.Sprintf("EventType(%d)", int(e))
	}
}

// Event is emitted to subscribers when the registry changes. Mission is the
// zero value for EventCleared.
type Event struct {
	Type    EventType
	Mission core.Mission
	Version uint64
}

// KnowledgeBase is an in-memory, thread-safe registry of planned missions.
// It is the mission source consulted when verifying against "all known
// flights"; listing preserves registration order.
type KnowledgeBase struct {
	mu sync.RWMutex

	missions map[string]core.Mission
	order    []string
	version  uint64

	subs   map[int]func(Event)
	nextID int
}

// NewKnowledgeBase constructs an empty KB.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		missions: make(map[string]core.Mission),
		subs:     make(map[int]func(Event)),
	}
}

// AddMission registers m under its ID.
func (kb *KnowledgeBase) AddMission(m core.Mission) error {
	if m.ID() == "" {
		return fmt.Errorf("%w: mission id is required", ErrInvalidMission)
	}
	if m.NumWaypoints() == 0 {
		return fmt.Errorf("%w: mission %q was not constructed with NewMission", ErrInvalidMission, m.ID())
	}

	kb.mu.Lock()
	if _, exists := kb.missions[m.ID()]; exists {
		kb.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrMissionExists, m.ID())
	}
	kb.missions[m.ID()] = m
	kb.order = append(kb.order, m.ID())
	kb.version++
	ev := Event{Type: EventMissionAdded, Mission: m, Version: kb.version}
	subs := kb.snapshotSubsLocked()
	kb.mu.Unlock()

	notify(subs, ev)
	return nil
}

// GetMission returns the mission with the given ID.
func (kb *KnowledgeBase) GetMission(id string) (core.Mission, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	m, ok := kb.missions[id]
	if !ok {
		return core.Mission{}, fmt.Errorf("%w: %q", ErrMissionNotFound, id)
	}
	return m, nil
}

// ListMissions returns a snapshot of all missions in registration order.
func (kb *KnowledgeBase) ListMissions() []core.Mission {
	res, _ := kb.Snapshot()
	return res
}

// Snapshot returns all missions in registration order together with the
// registry version they were read at.
func (kb *KnowledgeBase) Snapshot() ([]core.Mission, uint64) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	res := make([]core.Mission, 0, len(kb.order))
	for _, id := range kb.order {
		res = append(res, kb.missions[id])
	}
	return res, kb.version
}

// Others returns registered missions in registration order, skipping the
// given ids.
func (kb *KnowledgeBase) Others(exclude ...string) []core.Mission {
	skip := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}

	kb.mu.RLock()
	defer kb.mu.RUnlock()
	res := make([]core.Mission, 0, len(kb.order))
	for _, id := range kb.order {
		if _, ok := skip[id]; ok {
			continue
		}
		res = append(res, kb.missions[id])
	}
	return res
}

// RemoveMission deletes the mission with the given ID.
func (kb *KnowledgeBase) RemoveMission(id string) error {
	kb.mu.Lock()
	m, ok := kb.missions[id]
	if !ok {
		kb.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrMissionNotFound, id)
	}
	delete(kb.missions, id)
	for i, oid := range kb.order {
		if oid == id {
			kb.order = append(kb.order[:i], kb.order[i+1:]...)
			break
		}
	}
	kb.version++
	ev := Event{Type: EventMissionRemoved, Mission: m, Version: kb.version}
	subs := kb.snapshotSubsLocked()
	kb.mu.Unlock()

	notify(subs, ev)
	return nil
}

// Clear removes every mission.
func (kb *KnowledgeBase) Clear() {
	kb.mu.Lock()
	kb.missions = make(map[string]core.Mission)
	kb.order = nil
	kb.version++
	ev := Event{Type: EventCleared, Version: kb.version}
	subs := kb.snapshotSubsLocked()
	kb.mu.Unlock()

	notify(subs, ev)
}

// Len returns the number of registered missions.
func (kb *KnowledgeBase) Len() int {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return len(kb.missions)
}

// Subscribe registers a callback for KB events. It returns an unsubscribe function.
func (kb *KnowledgeBase) Subscribe(fn func(Event)) (unsubscribe func()) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	id := kb.nextID
	kb.nextID++
	kb.subs[id] = fn

	return func() {
		kb.mu.Lock()
		defer kb.mu.Unlock()
		delete(kb.subs, id)
	}
}

func (kb *KnowledgeBase) snapshotSubsLocked() []func(Event) {
	subs := make([]func(Event), 0, len(kb.subs))
	for i := 0; i < kb.nextID; i++ {
		if fn, ok := kb.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	return subs
}

// notify runs outside the lock so subscribers may call back into the KB.
func notify(subs []func(Event), ev Event) {
	for _, sub := range subs {
		sub(ev)
	}
}
