package api

import (
	"encoding/json"
	"testing"
	"time"
)

func TestLocatorResolve(t *testing.T) {
	loc, err := NewLocator("http://localhost:8000/api/")
	if err != nil {
		t.Fatalf("NewLocator: %v", err)
	}

	tests := []struct {
		in, want string
	}{
		{"https://cdn.example.com/v.mp4", "https://cdn.example.com/v.mp4"},
		{"http://localhost:9000/x", "http://localhost:9000/x"},
		{"/api/jobs/1/video", "http://localhost:8000/api/jobs/1/video"},
		{"jobs/1/video", "http://localhost:8000/api/jobs/1/video"},
	}
	for _, tt := range tests {
		if got := loc.Resolve(tt.in); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if got := loc.Endpoint("/health"); got != "http://localhost:8000/api/health" {
		t.Errorf("Endpoint = %q", got)
	}
}

func TestNewLocatorRejectsRelative(t *testing.T) {
	if _, err := NewLocator("/api"); err == nil {
		t.Error("expected error for relative base url")
	}
}

func TestJobStateTerminal(t *testing.T) {
	for _, s := range []JobState{StateSucceeded, StateFailed} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []JobState{StateQueued, StateRunning, ""} {
		if s.Terminal() {
			t.Errorf("%q should not be terminal", s)
		}
	}
}

func TestClampedPercent(t *testing.T) {
	tests := map[int]int{-5: 0, 0: 0, 40: 40, 100: 100, 250: 100}
	for in, want := range tests {
		if got := (JobStatus{Percent: in}).ClampedPercent(); got != want {
			t.Errorf("ClampedPercent(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestStageLabel(t *testing.T) {
	if got := StageTranscribing.Label(); got != "Transcribing audio" {
		t.Errorf("label = %q", got)
	}
	if got := Stage("uploading").Label(); got != "uploading" {
		t.Errorf("unknown stage label = %q", got)
	}
}

func TestBatchAllTerminal(t *testing.T) {
	member := func(s JobState) BatchJobStatus {
		return BatchJobStatus{Status: JobStatus{State: s}}
	}

	tests := []struct {
		name string
		jobs []BatchJobStatus
		want bool
	}{
		{"empty batch is vacuously complete", nil, true},
		{"all succeeded", []BatchJobStatus{member(StateSucceeded), member(StateSucceeded)}, true},
		{"mixed terminal", []BatchJobStatus{member(StateSucceeded), member(StateFailed)}, true},
		{"one running", []BatchJobStatus{member(StateSucceeded), member(StateRunning)}, false},
		{"one queued", []BatchJobStatus{member(StateQueued)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (BatchStatus{Jobs: tt.jobs}).AllTerminal(); got != tt.want {
				t.Errorf("AllTerminal = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBatchCounts(t *testing.T) {
	b := BatchStatus{Jobs: []BatchJobStatus{
		{Status: JobStatus{State: StateSucceeded}},
		{Status: JobStatus{State: StateFailed}},
		{Status: JobStatus{State: StateRunning}},
		{Status: JobStatus{State: StateSucceeded}},
	}}
	ok, failed := b.Counts()
	if ok != 2 || failed != 1 {
		t.Errorf("counts = %d/%d, want 2/1", ok, failed)
	}
}

func TestTimestampFormats(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{`"2025-03-04T05:06:07Z"`, time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)},
		{`"2025-03-04T05:06:07.5"`, time.Date(2025, 3, 4, 5, 6, 7, 500_000_000, time.UTC)},
		{`"2025-03-04T05:06:07+02:00"`, time.Date(2025, 3, 4, 3, 6, 7, 0, time.UTC)},
	}
	for _, tt := range tests {
		var ts Timestamp
		if err := json.Unmarshal([]byte(tt.raw), &ts); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.raw, err)
		}
		if !ts.Equal(tt.want) {
			t.Errorf("%s parsed as %v, want %v", tt.raw, ts.Time, tt.want)
		}
	}

	var ts Timestamp
	if err := json.Unmarshal([]byte(`"yesterday"`), &ts); err == nil {
		t.Error("expected error for unparseable timestamp")
	}
	if err := json.Unmarshal([]byte(`null`), &ts); err != nil || !ts.IsZero() {
		t.Errorf("null should decode to zero time, err=%v", err)
	}
}
