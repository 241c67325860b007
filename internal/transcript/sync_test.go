package transcript

import (
	"testing"

	"golang.org/x/text/language"
)

var twoSegments = []Segment{
	{ID: 1, Start: 0, End: 1, Text: "first"},
	{ID: 2, Start: 1.1, End: 2, Text: "second"},
}

func TestActiveIndex(t *testing.T) {
	tests := []struct {
		time   float64
		wantID int // 0 means no active segment
	}{
		{0.5, 1},
		{1.05, 0},
		{1.5, 2},
		{0, 1},
		{1, 1},
		{2, 2},
		{-1, 0},
		{2.5, 0},
	}
	for _, tt := range tests {
		idx := ActiveIndex(twoSegments, tt.time)
		gotID := 0
		if idx >= 0 {
			gotID = twoSegments[idx].ID
		}
		if gotID != tt.wantID {
			t.Errorf("ActiveIndex(%v) -> id %d, want %d", tt.time, gotID, tt.wantID)
		}
	}
}

func TestActiveIndexOverlapFirstWins(t *testing.T) {
	segs := []Segment{
		{ID: 1, Start: 0, End: 5},
		{ID: 2, Start: 2, End: 3},
	}
	if got := ActiveIndex(segs, 2.5); got != 0 {
		t.Errorf("overlap: got index %d, want 0", got)
	}
	if got := ActiveIndex(nil, 1); got != -1 {
		t.Errorf("empty: got %d, want -1", got)
	}
}

func allVisible(int) bool { return true }

func TestProgrammaticScrollKeepsAutoScrollOn(t *testing.T) {
	s := NewSynchronizer(twoSegments)
	s.SetTime(0.5)

	intent, ok := s.Reconcile(allVisible)
	if !ok || intent.Index != 0 {
		t.Fatalf("expected intent for index 0, got %+v ok=%v", intent, ok)
	}
	if s.Mode() != AutoOnInFlight {
		t.Fatalf("mode = %v, want in flight", s.Mode())
	}

	// Completion of our own scroll.
	s.ScrollObserved()
	if s.Mode() != AutoOnIdle {
		t.Errorf("mode = %v, want on", s.Mode())
	}
	if !s.AutoScroll() {
		t.Error("auto-scroll should stay on after programmatic scroll")
	}
}

func TestUnexpectedScrollTurnsAutoScrollOff(t *testing.T) {
	s := NewSynchronizer(twoSegments)
	s.ScrollObserved()
	if s.Mode() != AutoOff {
		t.Errorf("mode = %v, want off", s.Mode())
	}

	// Off is sticky: playback moving on issues no intents.
	s.SetTime(1.5)
	if _, ok := s.Reconcile(allVisible); ok {
		t.Error("no intent expected while auto-scroll is off")
	}
	s.ScrollObserved()
	if s.Mode() != AutoOff {
		t.Errorf("mode = %v, want off", s.Mode())
	}
}

func TestUserScrollAfterCompletionTurnsOff(t *testing.T) {
	s := NewSynchronizer(twoSegments)
	s.SetTime(0.5)
	s.Reconcile(allVisible)
	s.ScrollObserved() // ours
	s.ScrollObserved() // user's
	if s.AutoScroll() {
		t.Error("second scroll event should be attributed to the user")
	}
}

func TestReconcileOnlyWhenNeeded(t *testing.T) {
	s := NewSynchronizer(twoSegments)

	// No active segment: nothing to scroll to.
	if _, ok := s.Reconcile(allVisible); ok {
		t.Error("no intent expected without an active segment")
	}

	s.SetTime(0.5)
	s.Reconcile(allVisible)
	s.ScrollObserved()

	// Same segment, still visible.
	s.SetTime(0.7)
	if _, ok := s.Reconcile(allVisible); ok {
		t.Error("no intent expected for unchanged visible segment")
	}

	// Same segment, but scrolled out of the viewport.
	intent, ok := s.Reconcile(func(int) bool { return false })
	if !ok || intent.Index != 0 {
		t.Errorf("expected re-centering intent, got %+v ok=%v", intent, ok)
	}
	s.ScrollObserved()

	// Active segment changed.
	if !s.SetTime(1.5) {
		t.Fatal("SetTime should report a change")
	}
	intent, ok = s.Reconcile(allVisible)
	if !ok || intent.Index != 1 {
		t.Errorf("expected intent for index 1, got %+v ok=%v", intent, ok)
	}
}

func TestNoIntentWhileInFlight(t *testing.T) {
	s := NewSynchronizer(twoSegments)
	s.SetTime(0.5)
	s.Reconcile(allVisible)
	s.SetTime(1.5)
	if _, ok := s.Reconcile(allVisible); ok {
		t.Error("intent issued while a programmatic scroll is in flight")
	}
	s.ScrollObserved()
	intent, ok := s.Reconcile(allVisible)
	if !ok || intent.Index != 1 {
		t.Errorf("expected deferred intent for index 1, got %+v ok=%v", intent, ok)
	}
}

func TestResumeRecenters(t *testing.T) {
	s := NewSynchronizer(twoSegments)
	s.SetTime(1.5)
	s.ScrollObserved() // user
	if s.AutoScroll() {
		t.Fatal("precondition: auto-scroll off")
	}

	intent, ok := s.Resume()
	if !ok || intent.Index != 1 {
		t.Fatalf("Resume intent = %+v ok=%v, want index 1", intent, ok)
	}
	if s.Mode() != AutoOnInFlight {
		t.Errorf("mode = %v, want in flight", s.Mode())
	}
	s.ScrollObserved()
	if !s.AutoScroll() {
		t.Error("resume completion must not turn auto-scroll off")
	}
}

func TestResumeWithoutActiveSegment(t *testing.T) {
	s := NewSynchronizer(twoSegments)
	s.ScrollObserved()
	if _, ok := s.Resume(); ok {
		t.Error("no intent expected without an active segment")
	}
	if s.Mode() != AutoOnIdle {
		t.Errorf("mode = %v, want on", s.Mode())
	}
}

func TestSeekKeepsMode(t *testing.T) {
	s := NewSynchronizer(twoSegments)
	s.ScrollObserved()

	start, ok := s.Seek(1)
	if !ok || start != 1.1 {
		t.Errorf("Seek(1) = %v, %v; want 1.1, true", start, ok)
	}
	if s.Mode() != AutoOff {
		t.Error("seeking must not change auto-scroll")
	}
	if _, ok := s.Seek(5); ok {
		t.Error("out of range seek should fail")
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := map[float64]string{
		0:        "0:00.000",
		1.1:      "0:01.100",
		61.5:     "1:01.500",
		3599.999: "59:59.999",
		3725.25:  "1:02:05.250",
		-3:       "0:00.000",
	}
	for in, want := range tests {
		if got := FormatTimestamp(in); got != want {
			t.Errorf("FormatTimestamp(%v) = %q, want %q", in, got, want)
		}
	}
	if got := FormatRange(twoSegments[1]); got != "0:01.100 → 0:02.000" {
		t.Errorf("FormatRange = %q", got)
	}
}

func TestLanguage(t *testing.T) {
	if got := Language(nil); got != language.Und {
		t.Errorf("empty transcript: got %v, want und", got)
	}

	segs := []Segment{
		{Text: "The quick brown fox jumps over the lazy dog and keeps running through the field."},
		{Text: "This is another sentence written entirely in the English language for testing."},
		{Text: "Everything here should be detected as English without any trouble at all."},
	}
	if got := Language(segs); got.String() != "en" {
		t.Errorf("Language = %v, want en", got)
	}
}
