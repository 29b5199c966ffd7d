package playback

import (
	"errors"
	"sync"
	"time"

	"glimpse/internal/model"
)

// Session states.
type State int

const (
	StateLoading State = iota
	StatePlaying
	StatePaused
	StateAdvancing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateAdvancing:
		return "advancing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

const (
	// TickInterval is how often photo progress is recomputed.
	TickInterval = 100 * time.Millisecond

	// TransitionDuration is the fade-out window before switching items.
	TransitionDuration = 320 * time.Millisecond
)

// ErrNoStories is returned when a session is opened on an empty sequence.
var ErrNoStories = errors.New("playback: no stories in sequence")

// Session is the live state of one story viewer, from open to close.
//
// Every piece of deferred work (photo ticks, transition timers) is stamped
// with the generation current when it was scheduled. Leaving an index bumps
// the generation, so a timer that slips past its Stop can never mutate the
// state of a later index.
type Session struct {
	mu    sync.Mutex
	clock Clock

	stories []model.Story

	state        State
	index        int
	progress     float64
	muted        bool
	mediaVisible bool
	blocked      bool
	liked        bool
	mediaErr     []bool

	gen           uint64
	tickTimer     Timer
	advanceTimer  Timer
	startedAt     time.Time
	pausedElapsed time.Duration

	onClose func()
}

// Option configures a Session.
type Option func(*Session)

// WithClock replaces the wall clock (tests pass simulated time).
func WithClock(c Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithOnClose registers a callback invoked once when the session closes,
// whether by running past the last item, manual navigation, or Close.
func WithOnClose(fn func()) Option {
	return func(s *Session) { s.onClose = fn }
}

// NewSession opens a viewer over the given story sequence and starts
// playback at index 0.
func NewSession(stories []model.Story, opts ...Option) (*Session, error) {
	if len(stories) == 0 {
		return nil, ErrNoStories
	}

	s := &Session{
		clock:    NewClock(),
		stories:  stories,
		muted:    true, // autoplay policy: start muted
		mediaErr: make([]bool, len(stories)),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mu.Lock()
	s.enterIndex(0)
	s.mu.Unlock()
	return s, nil
}

// enterIndex sets up playback for one item. Caller holds the lock.
func (s *Session) enterIndex(i int) {
	s.cancelPending()
	s.gen++
	s.index = i
	s.progress = 0
	s.mediaVisible = true
	s.blocked = false
	s.liked = false
	s.pausedElapsed = 0

	if s.stories[i].MediaKind == model.StoryKindVideo {
		// Video progress comes from the media element; wait for it.
		s.state = StateLoading
		return
	}

	s.state = StatePlaying
	s.startedAt = s.clock.Now()
	s.scheduleTick(s.gen)
}

// cancelPending stops any outstanding timers. Caller holds the lock.
func (s *Session) cancelPending() {
	if s.tickTimer != nil {
		s.tickTimer.Stop()
		s.tickTimer = nil
	}
	if s.advanceTimer != nil {
		s.advanceTimer.Stop()
		s.advanceTimer = nil
	}
}

func (s *Session) scheduleTick(gen uint64) {
	s.tickTimer = s.clock.AfterFunc(TickInterval, func() {
		s.onTick(gen)
	})
}

// photoDuration returns the current item's play time.
func (s *Session) photoDuration() time.Duration {
	ms := s.stories[s.index].DurationMs
	if ms <= 0 {
		ms = model.DefaultPhotoDurationMs
	}
	return time.Duration(ms) * time.Millisecond
}

// onTick recomputes photo progress. Stale generations are discarded.
func (s *Session) onTick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.state != StatePlaying {
		return
	}

	elapsed := s.pausedElapsed + s.clock.Now().Sub(s.startedAt)
	duration := s.photoDuration()
	s.progress = float64(elapsed) / float64(duration) * 100
	if s.progress >= 100 {
		s.progress = 100
		s.beginTransition()
		return
	}
	s.scheduleTick(gen)
}

// beginTransition fades the current item out and switches after the
// transition window. Caller holds the lock.
func (s *Session) beginTransition() {
	s.cancelPending()
	s.gen++
	gen := s.gen
	s.state = StateAdvancing
	s.mediaVisible = false

	next := s.index + 1
	s.advanceTimer = s.clock.AfterFunc(TransitionDuration, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.gen {
			return
		}
		if next >= len(s.stories) {
			s.closeLocked()
			return
		}
		s.enterIndex(next)
	})
}

// beginTransitionTo is beginTransition toward an explicit index, used by
// manual navigation. Caller holds the lock.
func (s *Session) beginTransitionTo(target int) {
	s.cancelPending()
	s.gen++
	gen := s.gen
	s.state = StateAdvancing
	s.mediaVisible = false

	s.advanceTimer = s.clock.AfterFunc(TransitionDuration, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.gen {
			return
		}
		s.enterIndex(target)
	})
}

func (s *Session) closeLocked() {
	if s.state == StateClosed {
		return
	}
	s.cancelPending()
	s.gen++
	s.state = StateClosed
	if s.onClose != nil {
		fn := s.onClose
		s.mu.Unlock()
		fn()
		s.mu.Lock()
	}
}

// MediaReady signals that the current video is loaded. autoplayAllowed
// reports whether the platform permitted muted autoplay; when it did not,
// the session surfaces a manual play control and stays paused.
func (s *Session) MediaReady(autoplayAllowed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateLoading {
		return
	}
	if !autoplayAllowed {
		s.blocked = true
		s.state = StatePaused
		return
	}
	s.state = StatePlaying
}

// VideoProgress updates progress from the media's own playback clock.
func (s *Session) VideoProgress(currentTime, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePlaying || duration <= 0 {
		return
	}
	p := float64(currentTime) / float64(duration) * 100
	if p > 100 {
		p = 100
	}
	s.progress = p
}

// VideoEnded advances past the current video. The media's natural ended
// event drives this, not a timer.
func (s *Session) VideoEnded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePlaying {
		return
	}
	s.progress = 100
	s.beginTransition()
}

// MediaError flags the current item as failed to load. Playback is not
// advanced: the photo timer still governs, and a video that never fires
// its ended event stalls until manual navigation.
func (s *Session) MediaError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return
	}
	s.mediaErr[s.index] = true
	if s.state == StateLoading {
		s.state = StatePaused
	}
}

// Pause freezes progress. For photos the elapsed time is banked so Resume
// continues from the same point.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePlaying {
		return
	}
	if s.stories[s.index].MediaKind != model.StoryKindVideo {
		s.pausedElapsed += s.clock.Now().Sub(s.startedAt)
		if s.tickTimer != nil {
			s.tickTimer.Stop()
			s.tickTimer = nil
		}
	}
	s.state = StatePaused
}

// Resume continues playback after Pause or an autoplay block.
func (s *Session) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePaused {
		return
	}
	s.blocked = false
	s.state = StatePlaying
	if s.stories[s.index].MediaKind != model.StoryKindVideo {
		s.startedAt = s.clock.Now()
		s.scheduleTick(s.gen)
	}
}

// Next skips ahead. At the last index it closes the session instead.
func (s *Session) Next() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return
	}
	s.beginTransition()
}

// Previous steps back one item. At index 0 it is a no-op.
func (s *Session) Previous() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed || s.index == 0 {
		return
	}
	s.beginTransitionTo(s.index - 1)
}

// ToggleMute flips the mute flag without touching progress or index.
func (s *Session) ToggleMute() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = !s.muted
	return s.muted
}

// ToggleLike flips the viewer-local like affordance for the current item.
func (s *Session) ToggleLike() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liked = !s.liked
	return s.liked
}

// Close tears the session down, cancelling all pending work.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

// Snapshot is a point-in-time copy of the session's observable state.
type Snapshot struct {
	State        State
	Index        int
	Progress     float64
	Muted        bool
	MediaVisible bool
	Blocked      bool
	Liked        bool
	MediaError   bool
}

// Snapshot returns the current observable state for rendering.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		State:        s.state,
		Index:        s.index,
		Progress:     s.progress,
		Muted:        s.muted,
		MediaVisible: s.mediaVisible,
		Blocked:      s.blocked,
		Liked:        s.liked,
		MediaError:   s.mediaErr[s.index],
	}
}

// Current returns the story at the session's current index.
func (s *Session) Current() model.Story {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stories[s.index]
}

// Closed reports whether the session has ended.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateClosed
}
