package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/a2vstudio/a2v/internal/api"
	"github.com/a2vstudio/a2v/internal/history"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tea "github.com/charmbracelet/bubbletea"
)

// harness runs a Model the way tea.Program does: every command in its own
// goroutine, every resulting message back through Update. Timer messages are
// dropped so the loop only advances on I/O.
type harness struct {
	t    *testing.T
	m    Model
	msgs chan tea.Msg
}

func newHarness(t *testing.T, m Model) *harness {
	h := &harness{t: t, msgs: make(chan tea.Msg, 256)}
	h.m, _ = applyUpdate(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	h.exec(h.m.Init())
	return h
}

func (h *harness) exec(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	go func() {
		switch msg := cmd().(type) {
		case nil:
		case tea.BatchMsg:
			for _, c := range msg {
				h.exec(c)
			}
		case PositionTickMsg, HealthTickMsg, ClearTransientErrorMsg, FadeTickMsg:
		default:
			h.msgs <- msg
		}
	}()
}

func (h *harness) send(msg tea.Msg) {
	updated, cmd := h.m.Update(msg)
	h.m = updated.(Model)
	h.exec(cmd)
}

// until pumps messages until cond holds.
func (h *harness) until(what string, cond func(Model) bool) {
	h.t.Helper()
	deadline := time.After(5 * time.Second)
	for !cond(h.m) {
		select {
		case msg := <-h.msgs:
			h.send(msg)
		case <-deadline:
			h.t.Fatalf("timed out waiting for %s (status %q)", what, h.m.statusText)
		}
	}
}

type statusStep struct {
	state   api.JobState
	stage   api.Stage
	percent int
}

func TestSessionSingleJobToReplay(t *testing.T) {
	steps := []statusStep{
		{api.StateQueued, api.StageSaving, 0},
		{api.StateRunning, api.StageTranscribing, 40},
		{api.StateSucceeded, api.StageDone, 100},
	}
	var statusCalls atomic.Int32

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, api.HealthResponse{Status: "healthy"})
		})
		r.Post("/convert", func(w http.ResponseWriter, r *http.Request) {
			f, _, err := r.FormFile("audio")
			if !assert.NoError(t, err) {
				http.Error(w, "no audio", http.StatusBadRequest)
				return
			}
			f.Close()
			writeJSON(w, http.StatusOK, api.ConvertResponse{
				JobID:             "job-1",
				ResourceBaseName:  "keynote",
				VideoURL:          "/api/jobs/job-1/video",
				TranscriptJSONURL: "/api/jobs/job-1/transcript/json",
				TranscriptVTTURL:  "/api/jobs/job-1/transcript/vtt",
				Processing:        "queued",
			})
		})
		r.Get("/jobs/{id}/status", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "job-1", chi.URLParam(r, "id"))
			n := int(statusCalls.Add(1)) - 1
			s := steps[min(n, len(steps)-1)]
			writeJSON(w, http.StatusOK, api.JobStatus{State: s.state, Stage: s.stage, Percent: s.percent})
		})
		r.Get("/jobs/{id}/transcript/json", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, api.TranscriptData{
				Version: "1",
				Segments: []api.TranscriptSegment{
					{ID: 0, Start: 0, End: 1, Text: "Welcome to the keynote."},
					{ID: 1, Start: 1.1, End: 2, Text: "Let us begin."},
				},
			})
		})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	client, err := api.New(srv.URL + "/api")
	require.NoError(t, err)
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	audio := filepath.Join(t.TempDir(), "keynote.mp3")
	require.NoError(t, os.WriteFile(audio, []byte("ID3 not really audio"), 0o644))

	fp := &fakePlayer{}
	h := newHarness(t, New(Options{
		Backend:        client,
		History:        store,
		Player:         fp.mount,
		PollInterval:   10 * time.Millisecond,
		HealthInterval: time.Hour,
		Upload:         &Upload{Audio: []string{audio}},
	}))
	t.Cleanup(func() { h.m.stopPolling() })

	var seen []api.JobStatus
	h.until("job to succeed and history to load", func(m Model) bool {
		if m.jobStatus != nil && (len(seen) == 0 || *m.jobStatus != seen[len(seen)-1]) {
			seen = append(seen, *m.jobStatus)
		}
		return m.jobStatus != nil && m.jobStatus.State == api.StateSucceeded &&
			m.sync != nil && len(m.entries) == 1
	})

	require.GreaterOrEqual(t, len(seen), 3)
	assert.Equal(t, api.StateQueued, seen[0].State)
	assert.Equal(t, api.StateRunning, seen[1].State)
	assert.Equal(t, api.StageTranscribing, seen[1].Stage)
	assert.Equal(t, 40, seen[1].Percent)

	assert.Equal(t, "Complete: keynote", h.m.statusText)
	assert.Equal(t, history.SourceSingle, h.m.entries[0].Source)
	assert.Equal(t, "job-1", h.m.entries[0].ID)
	assert.Len(t, h.m.sync.Segments(), 2)

	h.until("media to load", func(m Model) bool {
		_, ok := m.ctrl.Active()
		return ok
	})
	src, _ := h.m.ctrl.Active()
	assert.Equal(t, srv.URL+"/api/jobs/job-1/video", src.VideoURL)
	assert.Equal(t, srv.URL+"/api/jobs/job-1/transcript/vtt", src.CaptionsURL)

	// A new session replays the archived entry without polling.
	polled := statusCalls.Load()
	fp2 := &fakePlayer{}
	h2 := newHarness(t, New(Options{
		Backend:        client,
		History:        store,
		Player:         fp2.mount,
		PollInterval:   10 * time.Millisecond,
		HealthInterval: time.Hour,
	}))
	h2.until("history to load", func(m Model) bool { return len(m.entries) == 1 })

	h2.send(tea.KeyMsg{Type: tea.KeyEnter})
	h2.until("replay to start", func(m Model) bool {
		_, ok := m.ctrl.Active()
		return ok && m.sync != nil
	})

	assert.Equal(t, ModeReplay, h2.m.mode)
	assert.Nil(t, h2.m.jobHandle)
	assert.Empty(t, h2.m.progressLines())
	assert.Equal(t, "keynote", h2.m.playing.Title())
	assert.Equal(t, polled, statusCalls.Load(), "replay must not poll job status")
	assert.Contains(t, h2.m.View(), "Let us begin.")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
