package player

import (
	"context"
	"fmt"
	"testing"
	"time"

	"hungify/pkg/music"
)

func track(id string) music.Track {
	return music.Track{ID: id, Title: "Title " + id, Artist: "Artist " + id}
}

// fakeRecommender returns a canned list and records what it was asked.
type fakeRecommender struct {
	result  []music.Track
	err     error
	calls   int
	seed    music.Track
	history []music.Track
	queue   []music.Track
	// during runs while the fetch is "in flight", before returning.
	during func()
}

func (f *fakeRecommender) Recommend(_ context.Context, current music.Track, history, queue []music.Track) ([]music.Track, error) {
	f.calls++
	f.seed = current
	f.history = history
	f.queue = queue
	if f.during != nil {
		f.during()
	}
	return f.result, f.err
}

func TestAssignDisplacesAndClearsQueue(t *testing.T) {
	s := New(nil)
	s.Assign(track("a"))
	s.Enqueue(track("b"))
	s.Enqueue(track("c"))
	s.Assign(track("d"))

	snap := s.Snapshot()
	if snap.Current == nil || snap.Current.ID != "d" {
		t.Fatalf("expected current d, got %+v", snap.Current)
	}
	if len(snap.Queue) != 0 {
		t.Errorf("expected cleared queue, got %+v", snap.Queue)
	}
	if len(snap.History) != 1 || snap.History[0].ID != "a" {
		t.Errorf("expected history [a], got %+v", snap.History)
	}
	if !snap.Playing {
		t.Error("expected playback to start on assign")
	}
}

func TestAdvanceConsumesQueueHead(t *testing.T) {
	rec := &fakeRecommender{}
	s := New(rec)
	s.Assign(track("a"))
	s.Enqueue(track("b"))
	s.Enqueue(track("c"))
	s.Advance(context.Background())

	snap := s.Snapshot()
	if snap.Current.ID != "b" {
		t.Fatalf("expected current b, got %+v", snap.Current)
	}
	if len(snap.Queue) != 1 || snap.Queue[0].ID != "c" {
		t.Errorf("expected queue [c], got %+v", snap.Queue)
	}
	if len(snap.History) != 1 || snap.History[0].ID != "a" {
		t.Errorf("expected history [a], got %+v", snap.History)
	}
	if rec.calls != 0 {
		t.Errorf("recommender consulted with a non-empty queue")
	}
}

func TestAdvanceUsesRecommender(t *testing.T) {
	rec := &fakeRecommender{result: []music.Track{track("x"), track("y"), track("z")}}
	s := New(rec)
	s.Assign(track("a"))
	s.Advance(context.Background())

	snap := s.Snapshot()
	if snap.Current.ID != "x" {
		t.Fatalf("expected current x, got %+v", snap.Current)
	}
	if len(snap.Queue) != 2 || snap.Queue[0].ID != "y" || snap.Queue[1].ID != "z" {
		t.Errorf("expected remaining candidates queued, got %+v", snap.Queue)
	}
	if len(snap.History) != 1 || snap.History[0].ID != "a" {
		t.Errorf("expected history [a], got %+v", snap.History)
	}
	if rec.seed.ID != "a" {
		t.Errorf("recommender seeded with %q", rec.seed.ID)
	}
}

// An empty recommendation must leave the state exactly as it was, history
// included.
func TestAdvanceEmptyRecommendationLeavesState(t *testing.T) {
	rec := &fakeRecommender{}
	s := New(rec)
	s.Assign(track("a"))
	s.Advance(context.Background())

	snap := s.Snapshot()
	if snap.Current.ID != "a" {
		t.Fatalf("expected current unchanged, got %+v", snap.Current)
	}
	if len(snap.History) != 0 {
		t.Errorf("history mutated despite failed advance: %+v", snap.History)
	}
}

// If the user assigns a different track while the recommendation fetch is
// in flight, the fetch results are stale and must be discarded.
func TestAdvanceDiscardsStaleRecommendation(t *testing.T) {
	rec := &fakeRecommender{result: []music.Track{track("x")}}
	s := New(rec)
	rec.during = func() { s.Assign(track("b")) }
	s.Assign(track("a"))
	s.Advance(context.Background())

	snap := s.Snapshot()
	if snap.Current.ID != "b" {
		t.Fatalf("stale recommendation applied, current %+v", snap.Current)
	}
	if len(snap.Queue) != 0 {
		t.Errorf("stale candidates queued: %+v", snap.Queue)
	}
}

func TestAdvanceWithoutCurrentIsNoop(t *testing.T) {
	rec := &fakeRecommender{result: []music.Track{track("x")}}
	s := New(rec)
	s.Advance(context.Background())
	if rec.calls != 0 {
		t.Error("recommender consulted with no current track")
	}
	if snap := s.Snapshot(); snap.Current != nil {
		t.Errorf("unexpected current %+v", snap.Current)
	}
}

func TestRetreatStepsBack(t *testing.T) {
	s := New(nil)
	s.Assign(track("a"))
	s.Assign(track("b"))
	s.Retreat(1.0, nil)

	snap := s.Snapshot()
	if snap.Current.ID != "a" {
		t.Fatalf("expected current a, got %+v", snap.Current)
	}
	if len(snap.Queue) != 1 || snap.Queue[0].ID != "b" {
		t.Errorf("expected displaced track queued, got %+v", snap.Queue)
	}
	if len(snap.History) != 0 {
		t.Errorf("expected empty history, got %+v", snap.History)
	}
}

func TestRetreatRestartsPastThreshold(t *testing.T) {
	s := New(nil)
	s.Assign(track("a"))
	s.Assign(track("b"))
	s.SetProgress(10, 200)

	var sought []float64
	s.Retreat(10.0, func(sec float64) { sought = append(sought, sec) })

	snap := s.Snapshot()
	if snap.Current.ID != "b" {
		t.Fatalf("expected current unchanged, got %+v", snap.Current)
	}
	if len(sought) != 1 || sought[0] != 0 {
		t.Errorf("expected a single seek to zero, got %v", sought)
	}
	if snap.CurrentTime != 0 {
		t.Errorf("expected position reset, got %v", snap.CurrentTime)
	}
	if len(snap.History) != 1 || snap.History[0].ID != "a" {
		t.Errorf("history changed by restart: %+v", snap.History)
	}
}

func TestRetreatEmptyHistoryRestarts(t *testing.T) {
	s := New(nil)
	s.Assign(track("a"))
	var sought []float64
	s.Retreat(1.0, func(sec float64) { sought = append(sought, sec) })
	if len(sought) != 1 || sought[0] != 0 {
		t.Errorf("expected restart seek, got %v", sought)
	}
	if snap := s.Snapshot(); snap.Current.ID != "a" {
		t.Errorf("current changed: %+v", snap.Current)
	}
}

func TestHistoryBoundAndDedup(t *testing.T) {
	s := New(nil)
	for i := 0; i < maxHistory+20; i++ {
		s.Assign(track(fmt.Sprintf("t%d", i)))
	}
	snap := s.Snapshot()
	if len(snap.History) != maxHistory {
		t.Fatalf("history length %d, want %d", len(snap.History), maxHistory)
	}
	if snap.History[0].ID != fmt.Sprintf("t%d", maxHistory+18) {
		t.Errorf("expected most recent first, got %q", snap.History[0].ID)
	}

	// Replaying an old track moves its single entry to the front.
	old := snap.History[5]
	s.Assign(old)
	s.Assign(track("fresh"))
	snap = s.Snapshot()
	seen := 0
	for _, h := range snap.History {
		if h.ID == old.ID {
			seen++
		}
	}
	if seen != 1 {
		t.Fatalf("track %q appears %d times in history", old.ID, seen)
	}
	if snap.History[0].ID != old.ID {
		t.Errorf("expected %q at history head, got %q", old.ID, snap.History[0].ID)
	}
}

// The playing track must never also sit in the queue or history.
func TestCurrentNeverDuplicatedInLists(t *testing.T) {
	s := New(nil)
	s.Assign(track("a"))
	s.Assign(track("b"))
	s.Enqueue(track("a"))
	s.Enqueue(track("c"))

	// Retreat pushes b to the queue front and makes a current; the queued
	// copy of a must disappear.
	s.Retreat(1.0, nil)
	snap := s.Snapshot()
	if snap.Current.ID != "a" {
		t.Fatalf("expected current a, got %+v", snap.Current)
	}
	for _, q := range snap.Queue {
		if q.ID == "a" {
			t.Fatalf("current duplicated in queue: %+v", snap.Queue)
		}
	}
	for _, h := range snap.History {
		if h.ID == "a" {
			t.Fatalf("current duplicated in history: %+v", snap.History)
		}
	}
}

func TestOnHistoryNotifiesSubscribers(t *testing.T) {
	s := New(nil)
	got := make(chan music.Track, 4)
	s.OnHistory(func(tr music.Track) { got <- tr })

	s.Assign(track("a"))
	s.Assign(track("b"))

	select {
	case tr := <-got:
		if tr.ID != "a" {
			t.Fatalf("expected displaced track a, got %q", tr.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber never invoked")
	}
}

func TestTogglePlay(t *testing.T) {
	s := New(nil)
	if s.TogglePlay() {
		t.Error("toggle with no track should stay stopped")
	}
	s.Assign(track("a"))
	if s.TogglePlay() {
		t.Error("assign starts playing, first toggle should pause")
	}
	if !s.TogglePlay() {
		t.Error("second toggle should resume")
	}
}

func TestSetVolumeClamps(t *testing.T) {
	s := New(nil)
	s.SetVolume(1.7)
	if v := s.Snapshot().Volume; v != 1 {
		t.Errorf("volume %v, want 1", v)
	}
	s.SetVolume(-0.2)
	if v := s.Snapshot().Volume; v != 0 {
		t.Errorf("volume %v, want 0", v)
	}
	s.SetVolume(0.35)
	if v := s.Snapshot().Volume; v != 0.35 {
		t.Errorf("volume %v, want 0.35", v)
	}
}

func TestSetProgress(t *testing.T) {
	s := New(nil)
	s.Assign(track("a"))
	s.SetProgress(42.5, 180)
	snap := s.Snapshot()
	if snap.CurrentTime != 42.5 || snap.Duration != 180 {
		t.Errorf("progress %v/%v, want 42.5/180", snap.CurrentTime, snap.Duration)
	}
}
