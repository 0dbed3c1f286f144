// Package player implements the playback state machine at the heart of the
// application: the current track, the forward queue, the backward history
// and the automatic continuation that keeps music playing when the queue
// runs dry. The Store is a single process-wide instance; HTTP handlers are
// its event sources, so all state is guarded by a mutex.
//
// History displacement is modelled as an event: subscribers registered with
// OnHistory observe displaced tracks asynchronously and playback never
// waits on them or sees their failures.
package player

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"hungify/pkg/music"
)

// maxHistory bounds the history list to the last 100 distinct tracks.
const maxHistory = 100

// restartThreshold is the playback position, in seconds, beyond which a
// "previous" request restarts the current track instead of going back one.
// This mirrors conventional media-player ergonomics.
const restartThreshold = 3.0

// Recommender supplies continuation candidates when the queue is empty at
// end-of-track. Implementations must exclude the current track, everything
// in history and everything already queued, and must never return an error
// for recoverable conditions; an empty result simply stops auto-advance.
type Recommender interface {
	Recommend(ctx context.Context, current music.Track, history, queue []music.Track) ([]music.Track, error)
}

// SeekFunc repositions the transport of the currently loaded track, in
// seconds. Handlers pass one to Retreat when the embedded player supports
// seeking.
type SeekFunc func(seconds float64)

// Snapshot is a copy of the playback state safe to serialize while the
// store keeps mutating.
type Snapshot struct {
	Current     *music.Track  `json:"current"`
	Queue       []music.Track `json:"queue"`
	History     []music.Track `json:"history"`
	Playing     bool          `json:"isPlaying"`
	Volume      float64       `json:"volume"`
	CurrentTime float64       `json:"currentTime"`
	Duration    float64       `json:"duration"`
}

// Store owns the playback state. Create one with New and share it.
type Store struct {
	mu          sync.Mutex
	current     *music.Track
	queue       []music.Track
	history     []music.Track // most recent first
	playing     bool
	volume      float64
	currentTime float64
	duration    float64

	rec         Recommender
	subscribers []func(music.Track)
}

// New returns an empty store with full volume. rec may be nil, in which
// case Advance stops when the queue is exhausted.
func New(rec Recommender) *Store {
	return &Store{rec: rec, volume: 1}
}

// OnHistory registers a subscriber invoked with every track displaced into
// history. Subscribers run on their own goroutine and must handle their own
// errors; playback correctness never depends on them.
func (s *Store) OnHistory(fn func(music.Track)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Assign makes track the current track. Any playing track is displaced into
// history and the queue is cleared: a manual selection invalidates whatever
// continuation plan was built for the previous track.
func (s *Store) Assign(track music.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.pushHistoryLocked(*s.current)
	}
	s.setCurrentLocked(track)
	s.queue = nil
}

// Enqueue appends track to the tail of the queue. No deduplication happens
// here; queue hygiene is the recommendation policy's concern.
func (s *Store) Enqueue(track music.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, track)
}

// Advance moves playback forward: the queue head if one exists, otherwise
// whatever the recommender suggests. With no current track it is a no-op.
//
// The recommendation fetch runs without the lock held, so a user can keep
// interacting while it is in flight. Results are applied only if the track
// that triggered the fetch is still current; otherwise they are discarded
// as stale. When the fetch yields nothing the state is left untouched —
// the history push commits only together with a successful transition.
func (s *Store) Advance(ctx context.Context) {
	s.mu.Lock()
	if len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = append([]music.Track(nil), s.queue[1:]...)
		if s.current != nil {
			s.pushHistoryLocked(*s.current)
		}
		s.setCurrentLocked(next)
		s.mu.Unlock()
		return
	}
	if s.current == nil || s.rec == nil {
		s.mu.Unlock()
		return
	}
	seed := *s.current
	history := append([]music.Track(nil), s.history...)
	queue := append([]music.Track(nil), s.queue...)
	s.mu.Unlock()

	candidates, err := s.rec.Recommend(ctx, seed, history, queue)
	if err != nil {
		// The policy downgrades everything recoverable to an empty
		// result; anything reaching here is unexpected.
		log.WithError(err).Warn("recommendation failed")
		return
	}
	if len(candidates) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Stale-fetch guard: if the user picked another track while the fetch
	// was in flight, its results no longer apply.
	if s.current == nil || s.current.ID != seed.ID {
		return
	}
	s.pushHistoryLocked(seed)
	s.setCurrentLocked(candidates[0])
	s.queue = append([]music.Track(nil), candidates[1:]...)
}

// Retreat moves playback backward. When more than restartThreshold seconds
// of the current track have played and a seek function is available the
// track is restarted instead; otherwise the most recent history entry
// becomes current and the displaced track is pushed onto the front of the
// queue so Advance returns to it.
func (s *Store) Retreat(position float64, seek SeekFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if position > restartThreshold && s.current != nil && seek != nil {
		seek(0)
		s.currentTime = 0
		return
	}
	if len(s.history) > 0 {
		prev := s.history[0]
		s.history = append([]music.Track(nil), s.history[1:]...)
		if s.current != nil {
			s.queue = append([]music.Track{*s.current}, s.queue...)
		}
		s.setCurrentLocked(prev)
		return
	}
	if s.current != nil && seek != nil {
		seek(0)
		s.currentTime = 0
	}
}

// TogglePlay flips the playing flag. It has no effect without a current
// track.
func (s *Store) TogglePlay() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return false
	}
	s.playing = !s.playing
	return s.playing
}

// SetVolume stores the volume, clamped to [0,1].
func (s *Store) SetVolume(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	s.volume = v
}

// SetProgress records the transport position and total duration reported by
// the embedded player.
func (s *Store) SetProgress(currentTime, duration float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentTime = currentTime
	s.duration = duration
}

// Snapshot returns a copy of the full playback state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Queue:       append([]music.Track(nil), s.queue...),
		History:     append([]music.Track(nil), s.history...),
		Playing:     s.playing,
		Volume:      s.volume,
		CurrentTime: s.currentTime,
		Duration:    s.duration,
	}
	if s.current != nil {
		cur := *s.current
		snap.Current = &cur
	}
	return snap
}

// setCurrentLocked installs track as current and resets per-track state.
// Any copy of the new current track lingering in history or the queue is
// removed so neither list ever contains the track that is playing.
func (s *Store) setCurrentLocked(track music.Track) {
	s.current = &track
	s.playing = true
	s.currentTime = 0
	keptHist := s.history[:0]
	for _, h := range s.history {
		if h.ID != track.ID {
			keptHist = append(keptHist, h)
		}
	}
	s.history = keptHist
	keptQueue := s.queue[:0]
	for _, q := range s.queue {
		if q.ID != track.ID {
			keptQueue = append(keptQueue, q)
		}
	}
	s.queue = keptQueue
}

// pushHistoryLocked prepends track to history, removing any earlier entry
// with the same id and truncating to the bound, then notifies subscribers.
func (s *Store) pushHistoryLocked(track music.Track) {
	deduped := make([]music.Track, 0, len(s.history)+1)
	deduped = append(deduped, track)
	for _, h := range s.history {
		if h.ID != track.ID {
			deduped = append(deduped, h)
		}
	}
	if len(deduped) > maxHistory {
		deduped = deduped[:maxHistory]
	}
	s.history = deduped
	for _, fn := range s.subscribers {
		go fn(track)
	}
}
