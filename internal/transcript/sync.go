// Package transcript maps playback time to transcript segments and decides
// when the transcript view should follow playback.
package transcript

import "github.com/a2vstudio/a2v/internal/api"

// Segment is one timestamped unit of transcript text.
type Segment = api.TranscriptSegment

// ActiveIndex returns the index of the first segment with Start <= t <= End,
// or -1 if t falls in a gap or outside the transcript. Overlapping or unordered
// segments are tolerated; the first match wins.
func ActiveIndex(segments []Segment, t float64) int {
	for i, s := range segments {
		if s.Start <= t && t <= s.End {
			return i
		}
	}
	return -1
}

// Mode is the auto-scroll state.
type Mode int

const (
	// AutoOnIdle follows playback; no programmatic scroll is pending.
	AutoOnIdle Mode = iota
	// AutoOnInFlight follows playback; a programmatic scroll was issued and
	// its completion has not been observed yet.
	AutoOnInFlight
	// AutoOff leaves the view where the user put it.
	AutoOff
)

func (m Mode) String() string {
	switch m {
	case AutoOnIdle:
		return "on"
	case AutoOnInFlight:
		return "on (scrolling)"
	case AutoOff:
		return "off"
	default:
		return "unknown"
	}
}

// Intent asks the view to bring a segment into centered view.
type Intent struct {
	Index int
}

// Synchronizer tracks the active segment and arbitrates between automatic
// and user-driven scrolling. It is not safe for concurrent use.
type Synchronizer struct {
	segments []Segment
	mode     Mode
	active   int
	scrolled int // segment targeted by the last intent
}

// NewSynchronizer starts with auto-scroll on and no active segment.
func NewSynchronizer(segments []Segment) *Synchronizer {
	return &Synchronizer{
		segments: segments,
		mode:     AutoOnIdle,
		active:   -1,
		scrolled: -1,
	}
}

// Segments returns the transcript.
func (s *Synchronizer) Segments() []Segment { return s.segments }

// Mode returns the current auto-scroll state.
func (s *Synchronizer) Mode() Mode { return s.mode }

// AutoScroll reports whether the view follows playback.
func (s *Synchronizer) AutoScroll() bool { return s.mode != AutoOff }

// Active returns the active segment index, or -1.
func (s *Synchronizer) Active() int { return s.active }

// SetTime updates the active segment for playback time t and reports whether
// it changed.
func (s *Synchronizer) SetTime(t float64) bool {
	idx := ActiveIndex(s.segments, t)
	if idx == s.active {
		return false
	}
	s.active = idx
	return true
}

// Reconcile returns a scroll intent when auto-scroll is on and the active
// segment either changed since the last intent or is outside the viewport.
// inView reports whether a segment index is currently visible. Issuing an
// intent arms the in-flight flag; no further intent is issued until
// ScrollObserved sees its completion.
func (s *Synchronizer) Reconcile(inView func(index int) bool) (Intent, bool) {
	if s.mode != AutoOnIdle || s.active < 0 {
		return Intent{}, false
	}
	if s.active == s.scrolled && (inView == nil || inView(s.active)) {
		return Intent{}, false
	}
	return s.issue(), true
}

func (s *Synchronizer) issue() Intent {
	s.mode = AutoOnInFlight
	s.scrolled = s.active
	return Intent{Index: s.active}
}

// ScrollObserved records a scroll of the transcript view. While a
// programmatic scroll is in flight the event is its completion; otherwise
// the user moved the view and auto-scroll turns off.
func (s *Synchronizer) ScrollObserved() {
	switch s.mode {
	case AutoOnInFlight:
		s.mode = AutoOnIdle
	case AutoOnIdle:
		s.mode = AutoOff
	}
}

// Resume turns auto-scroll back on and returns an immediate intent for the
// active segment, if there is one.
func (s *Synchronizer) Resume() (Intent, bool) {
	s.mode = AutoOnIdle
	if s.active < 0 {
		s.scrolled = -1
		return Intent{}, false
	}
	return s.issue(), true
}

// Seek returns the start time of segment index for the player. The
// auto-scroll mode is unchanged.
func (s *Synchronizer) Seek(index int) (float64, bool) {
	if index < 0 || index >= len(s.segments) {
		return 0, false
	}
	return s.segments[index].Start, true
}
