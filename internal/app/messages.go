package app

import (
	"github.com/a2vstudio/a2v/internal/api"
	"github.com/a2vstudio/a2v/internal/history"
	"github.com/a2vstudio/a2v/internal/poller"
)

// HistoryLoadedMsg carries the history list read from SQLite.
type HistoryLoadedMsg struct {
	Entries []history.Entry
	Err     error
}

// HistorySavedMsg is sent after accepted jobs were written to history.
type HistorySavedMsg struct {
	Count int
	Err   error
}

// ConvertedMsg carries the backend's answer to a single upload.
type ConvertedMsg struct {
	Response api.ConvertResponse
	Err      error
}

// BatchConvertedMsg carries the backend's answer to a batch upload.
type BatchConvertedMsg struct {
	Response api.BatchConvertResponse
	Err      error
}

// JobUpdateMsg is one observation from a job poller. Closed is set when the
// poller's channel was already closed.
type JobUpdateMsg struct {
	Handle *poller.JobHandle
	Update poller.Update[api.JobStatus]
	Closed bool
}

// BatchUpdateMsg is one observation from a batch poller.
type BatchUpdateMsg struct {
	Handle *poller.BatchHandle
	Update poller.Update[api.BatchStatus]
	Closed bool
}

// TranscriptLoadedMsg carries the transcript for a playing entry.
type TranscriptLoadedMsg struct {
	EntryID string
	Data    api.TranscriptData
	Err     error
}

// MediaReadyMsg reports that a pending player source finished loading.
type MediaReadyMsg struct {
	Gen uint64
}

// MediaFailedMsg reports that a pending player source could not load.
type MediaFailedMsg struct {
	Gen uint64
	Err error
}

// FadeTickMsg advances a running crossfade.
type FadeTickMsg struct {
	Gen uint64
}

// PositionTickMsg triggers a playback position refresh.
type PositionTickMsg struct{}

// ScrollObservedMsg is emitted after every change of the transcript view's
// scroll offset, programmatic or not.
type ScrollObservedMsg struct{}

// HealthMsg carries the result of a health check.
type HealthMsg struct {
	Response api.HealthResponse
	Err      error
}

// HealthTickMsg triggers the next health check.
type HealthTickMsg struct{}

// DownloadedMsg reports a finished download.
type DownloadedMsg struct {
	Files []string
	Bytes int64
	Err   error
}

// ClearTransientErrorMsg clears a transient error after a timeout.
type ClearTransientErrorMsg struct{}
