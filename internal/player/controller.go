// Package player swaps the media shown to the user between playback sources
// without a hard cut: the next source is preloaded next to the one playing,
// crossfaded in, and only then promoted.
package player

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/a2vstudio/a2v/pkg/log"
)

// DefaultCrossfade is the fixed transition length.
const DefaultCrossfade = 400 * time.Millisecond

// ErrNoSource is returned by operations that need an active source.
var ErrNoSource = errors.New("no active source")

// Source is the unit swapped by the controller.
type Source struct {
	VideoURL    string
	CaptionsURL string
}

func (s Source) String() string { return s.VideoURL }

// Element is one mounted media player instance.
type Element interface {
	// Load blocks until enough data is buffered to start playback, or ctx
	// is cancelled.
	Load(ctx context.Context) error
	Play() error
	Pause() error
	Seek(seconds float64) error
	// SetLevel sets the element's presence in the mix, 0 (silent) to 1.
	SetLevel(level float64) error
	Position() (float64, error)
	// Release stops loading or playback and frees the element. It may be
	// called while Load is still running.
	Release() error
}

// Factory mounts an element for a source. It must not block on loading.
type Factory func(src Source) (Element, error)

// State is the transition state.
type State int

const (
	Stable State = iota
	Preloading
	Transitioning
)

func (s State) String() string {
	switch s {
	case Stable:
		return "stable"
	case Preloading:
		return "preloading"
	case Transitioning:
		return "transitioning"
	default:
		return "unknown"
	}
}

type slot struct {
	src    Source
	el     Element
	cancel context.CancelFunc
}

func (s *slot) release() {
	if s == nil {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	if err := s.el.Release(); err != nil {
		log.Warn("player: release %s: %v", s.src, err)
	}
}

// Pending is a source being preloaded. Load is meant to run off the UI
// thread; its result is reported back with Ready or Fail and the generation.
type Pending struct {
	Gen    uint64
	Source Source
	load   func() error
}

// Load blocks until the pending element is ready or abandoned.
func (p *Pending) Load() error { return p.load() }

// Controller owns the active/pending element pair. All methods must be called
// from one goroutine; only Pending.Load may run elsewhere.
type Controller struct {
	factory   Factory
	crossfade time.Duration

	state   State
	active  *slot
	pending *slot
	gen     uint64

	paused     bool
	promotions int
	lastErr    error
}

// New returns a controller with no active source.
func New(factory Factory, crossfade time.Duration) *Controller {
	if crossfade < 0 {
		crossfade = DefaultCrossfade
	}
	return &Controller{factory: factory, crossfade: crossfade}
}

// Request asks for src to become the active source. It returns nil when src
// is already pending, or already active; in the latter case any pending
// element is abandoned and the active one keeps playing at full level.
// Otherwise any pending element is abandoned and released, a new element is
// mounted, and the returned Pending must be loaded.
func (c *Controller) Request(ctx context.Context, src Source) (*Pending, error) {
	if c.pending != nil && c.pending.src == src {
		return nil, nil
	}
	if c.active != nil && c.active.src == src {
		c.abandonPending()
		return nil, nil
	}

	c.abandonPending()

	el, err := c.factory(src)
	if err != nil {
		c.lastErr = fmt.Errorf("mount %s: %w", src, err)
		return nil, c.lastErr
	}

	c.gen++
	loadCtx, cancel := context.WithCancel(ctx)
	c.pending = &slot{src: src, el: el, cancel: cancel}
	c.state = Preloading
	c.lastErr = nil
	log.Debug("player: preloading %s (gen %d)", src, c.gen)

	return &Pending{
		Gen:    c.gen,
		Source: src,
		load:   func() error { return el.Load(loadCtx) },
	}, nil
}

func (c *Controller) abandonPending() {
	if c.pending == nil {
		return
	}
	log.Debug("player: abandoning %s (gen %d)", c.pending.src, c.gen)
	c.pending.release()
	c.pending = nil
	if c.state == Transitioning && c.active != nil {
		c.setLevel(c.active, 1)
	}
	c.state = Stable
}

// Ready reports that generation gen has loaded. With no active source the
// pending one is promoted at once and Ready returns false. Otherwise the
// pending element starts playing silently, the state becomes Transitioning,
// and Ready returns true: the caller then drives Fade and Complete.
func (c *Controller) Ready(gen uint64) bool {
	if gen != c.gen || c.state != Preloading || c.pending == nil {
		return false
	}

	if c.active == nil {
		c.setLevel(c.pending, 1)
		c.play(c.pending)
		c.promote()
		return false
	}

	c.setLevel(c.pending, 0)
	c.play(c.pending)
	c.state = Transitioning
	return true
}

// Fade applies crossfade progress p (0..1) for generation gen.
func (c *Controller) Fade(gen uint64, p float64) {
	if gen != c.gen || c.state != Transitioning {
		return
	}
	p = max(0, min(1, p))
	c.setLevel(c.pending, p)
	c.setLevel(c.active, 1-p)
}

// Complete finishes the transition for generation gen: the old active
// element is released and the pending one becomes active. Returns whether a
// promotion happened.
func (c *Controller) Complete(gen uint64) bool {
	if gen != c.gen || c.state != Transitioning {
		return false
	}
	c.setLevel(c.pending, 1)
	old := c.active
	c.promote()
	old.release()
	return true
}

func (c *Controller) promote() {
	c.active = c.pending
	c.pending = nil
	c.state = Stable
	c.paused = false
	c.promotions++
	log.Info("player: now playing %s", c.active.src)
}

// Fail reports that generation gen could not load. The pending element is
// released and the active source keeps playing. There is no retry.
func (c *Controller) Fail(gen uint64, err error) {
	if gen != c.gen || c.pending == nil {
		return
	}
	src := c.pending.src
	c.abandonPending()
	c.lastErr = fmt.Errorf("load %s: %w", src, err)
	log.Warn("player: %v", c.lastErr)
}

// SeekTo seeks the element that is active right now, never a pending one.
func (c *Controller) SeekTo(seconds float64, autoplay bool) error {
	if c.active == nil {
		return ErrNoSource
	}
	if err := c.active.el.Seek(seconds); err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	if autoplay {
		c.play(c.active)
	}
	return nil
}

// TogglePause pauses or resumes the active element.
func (c *Controller) TogglePause() error {
	if c.active == nil {
		return ErrNoSource
	}
	if c.paused {
		c.play(c.active)
		return nil
	}
	if err := c.active.el.Pause(); err != nil {
		return fmt.Errorf("pause: %w", err)
	}
	c.paused = true
	return nil
}

// Position returns the playback time of the active element.
func (c *Controller) Position() (float64, error) {
	if c.active == nil {
		return 0, ErrNoSource
	}
	return c.active.el.Position()
}

// Progress converts time since the crossfade started into fade progress.
func (c *Controller) Progress(elapsed time.Duration) float64 {
	if c.crossfade <= 0 {
		return 1
	}
	return min(1, float64(elapsed)/float64(c.crossfade))
}

// Close releases every element.
func (c *Controller) Close() {
	c.abandonPending()
	c.active.release()
	c.active = nil
	c.state = Stable
}

func (c *Controller) State() State       { return c.state }
func (c *Controller) Generation() uint64 { return c.gen }
func (c *Controller) Promotions() int    { return c.promotions }
func (c *Controller) LastError() error   { return c.lastErr }
func (c *Controller) Paused() bool       { return c.paused }

// Active returns the active source, if any.
func (c *Controller) Active() (Source, bool) {
	if c.active == nil {
		return Source{}, false
	}
	return c.active.src, true
}

// PendingSource returns the source being preloaded or faded in, if any.
func (c *Controller) PendingSource() (Source, bool) {
	if c.pending == nil {
		return Source{}, false
	}
	return c.pending.src, true
}

func (c *Controller) play(s *slot) {
	if err := s.el.Play(); err != nil {
		log.Warn("player: play %s: %v", s.src, err)
		return
	}
	if s == c.active {
		c.paused = false
	}
}

func (c *Controller) setLevel(s *slot, level float64) {
	if s == nil {
		return
	}
	if err := s.el.SetLevel(level); err != nil {
		log.Debug("player: level %s: %v", s.src, err)
	}
}
