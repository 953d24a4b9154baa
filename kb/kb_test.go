package kb

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/signalsfoundry/airspace-deconfliction/core"
)

func newMission(t *testing.T, id string) core.Mission {
	t.Helper()
	m, err := core.NewMission(id, []core.Point{{X: 0}, {X: 100}}, 0, 10)
	if err != nil {
		t.Fatalf("NewMission(%q): %v", id, err)
	}
	return m
}

func TestAddAndGetMission(t *testing.T) {
	store := NewKnowledgeBase()
	if err := store.AddMission(newMission(t, "m1")); err != nil {
		t.Fatalf("AddMission error: %v", err)
	}
	got, err := store.GetMission("m1")
	if err != nil || got.ID() != "m1" {
		t.Fatalf("GetMission returned %v, %v", got.ID(), err)
	}
	if _, err := store.GetMission("missing"); !errors.Is(err, ErrMissionNotFound) {
		t.Fatalf("expected ErrMissionNotFound, got %v", err)
	}
}

func TestAddMissionDuplicate(t *testing.T) {
	store := NewKnowledgeBase()
	if err := store.AddMission(newMission(t, "m1")); err != nil {
		t.Fatalf("first AddMission error: %v", err)
	}
	if err := store.AddMission(newMission(t, "m1")); !errors.Is(err, ErrMissionExists) {
		t.Fatalf("expected ErrMissionExists, got %v", err)
	}
}

func TestAddMissionInvalid(t *testing.T) {
	store := NewKnowledgeBase()
	if err := store.AddMission(newMission(t, "")); !errors.Is(err, ErrInvalidMission) {
		t.Fatalf("expected ErrInvalidMission for empty id, got %v", err)
	}
	if err := store.AddMission(core.Mission{}); !errors.Is(err, ErrInvalidMission) {
		t.Fatalf("expected ErrInvalidMission for zero mission, got %v", err)
	}
}

func TestListMissionsPreservesOrder(t *testing.T) {
	store := NewKnowledgeBase()
	ids := []string{"zulu", "alpha", "mike", "bravo"}
	for _, id := range ids {
		if err := store.AddMission(newMission(t, id)); err != nil {
			t.Fatalf("AddMission error: %v", err)
		}
	}
	if err := store.RemoveMission("mike"); err != nil {
		t.Fatalf("RemoveMission error: %v", err)
	}

	want := []string{"zulu", "alpha", "bravo"}
	got := store.ListMissions()
	if len(got) != len(want) {
		t.Fatalf("ListMissions len=%d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID() != want[i] {
			t.Fatalf("ListMissions[%d]=%q, want %q", i, got[i].ID(), want[i])
		}
	}

	others := store.Others("alpha", "unknown")
	if len(others) != 2 || others[0].ID() != "zulu" || others[1].ID() != "bravo" {
		t.Fatalf("Others = %v", others)
	}
}

func TestRemoveAndClear(t *testing.T) {
	store := NewKnowledgeBase()
	for i := range 3 {
		if err := store.AddMission(newMission(t, fmt.Sprintf("m-%d", i))); err != nil {
			t.Fatalf("AddMission error: %v", err)
		}
	}
	if err := store.RemoveMission("nope"); !errors.Is(err, ErrMissionNotFound) {
		t.Fatalf("expected ErrMissionNotFound, got %v", err)
	}
	listed, v := store.Snapshot()
	if len(listed) != 3 || v != 3 {
		t.Fatalf("Snapshot = %d missions at version %d, want 3 at 3", len(listed), v)
	}
	store.Clear()
	if store.Len() != 0 || len(store.ListMissions()) != 0 {
		t.Fatalf("Clear left %d missions", store.Len())
	}
	if _, after := store.Snapshot(); after <= v {
		t.Fatalf("version did not advance on Clear")
	}
	// Ids become reusable after removal.
	if err := store.AddMission(newMission(t, "m-0")); err != nil {
		t.Fatalf("AddMission after Clear: %v", err)
	}
}

func TestSubscribe(t *testing.T) {
	store := NewKnowledgeBase()

	var mu sync.Mutex
	var got []Event
	unsubscribe := store.Subscribe(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e)
	})

	if err := store.AddMission(newMission(t, "m1")); err != nil {
		t.Fatalf("AddMission error: %v", err)
	}
	if err := store.RemoveMission("m1"); err != nil {
		t.Fatalf("RemoveMission error: %v", err)
	}
	store.Clear()
	unsubscribe()
	if err := store.AddMission(newMission(t, "m2")); err != nil {
		t.Fatalf("AddMission error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 3 {
		t.Fatalf("got %d events, want 3", len(got))
	}
	wantTypes := []EventType{EventMissionAdded, EventMissionRemoved, EventCleared}
	for i, want := range wantTypes {
		if got[i].Type != want {
			t.Fatalf("event %d type = %v, want %v", i, got[i].Type, want)
		}
	}
	if got[0].Mission.ID() != "m1" || got[2].Version != 3 {
		t.Fatalf("unexpected event payloads %+v", got)
	}
}

func TestSubscriberMayReadStore(t *testing.T) {
	store := NewKnowledgeBase()
	var seen int
	store.Subscribe(func(Event) {
		seen = store.Len()
	})
	if err := store.AddMission(newMission(t, "m1")); err != nil {
		t.Fatalf("AddMission error: %v", err)
	}
	if seen != 1 {
		t.Fatalf("subscriber saw Len=%d, want 1", seen)
	}
}

func TestConcurrentAccess(t *testing.T) {
	store := NewKnowledgeBase()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = store.GetMission("m-0")
			_ = store.ListMissions()
			_ = store.Others("m-1")
		}()
		go func() {
			defer wg.Done()
			_ = store.AddMission(newMission(t, fmt.Sprintf("m-%d", i)))
		}()
	}
	wg.Wait()
	if store.Len() != 10 {
		t.Fatalf("Len=%d, want 10", store.Len())
	}
}
