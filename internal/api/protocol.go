// Package api provides the client and wire types for the conversion backend's
// HTTP API. JSON field names match the backend exactly.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// JobState is the lifecycle state reported by the backend.
type JobState string

const (
	StateQueued    JobState = "queued"
	StateRunning   JobState = "running"
	StateSucceeded JobState = "succeeded"
	StateFailed    JobState = "failed"
)

// Terminal reports whether no further transitions are expected.
func (s JobState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Stage is the processing step within a running job.
type Stage string

const (
	StageSaving       Stage = "saving"
	StageTranscribing Stage = "transcribing"
	StageRendering    Stage = "rendering"
	StagePackaging    Stage = "packaging"
	StageDone         Stage = "done"
	StageError        Stage = "error"
)

var stageLabels = map[Stage]string{
	StageSaving:       "Saving files",
	StageTranscribing: "Transcribing audio",
	StageRendering:    "Rendering video",
	StagePackaging:    "Generating files",
	StageDone:         "Complete",
	StageError:        "Error",
}

// Label returns the human label for a stage, or the raw value if unknown.
func (s Stage) Label() string {
	if l, ok := stageLabels[s]; ok {
		return l
	}
	return string(s)
}

// JobStatus is returned by GET /jobs/{id}/status.
type JobStatus struct {
	State     JobState  `json:"state"`
	Stage     Stage     `json:"stage"`
	Percent   int       `json:"percent"`
	Message   string    `json:"message"`
	UpdatedAt Timestamp `json:"updated_at"`
	Error     string    `json:"error,omitempty"`
}

// ClampedPercent bounds Percent to 0..100 for display. The server value is not modified.
func (s JobStatus) ClampedPercent() int {
	return max(0, min(100, s.Percent))
}

// Timestamp decodes the backend's ISO-8601 times. Values without a zone
// offset are UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognized format %q", raw)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// ConvertResponse is returned by POST /convert.
type ConvertResponse struct {
	JobID             string `json:"job_id"`
	ResourceBaseName  string `json:"resource_base_name"`
	VideoURL          string `json:"video_url"`
	TranscriptJSONURL string `json:"transcript_json_url"`
	TranscriptVTTURL  string `json:"transcript_vtt_url"`
	Processing        string `json:"processing"`
}

// BatchJobItem is one accepted job in a BatchConvertResponse.
type BatchJobItem struct {
	JobID                 string   `json:"job_id"`
	Filename              string   `json:"filename"`
	ResourceBaseName      string   `json:"resource_base_name"`
	Status                JobState `json:"status"`
	RenderedVideoURL      string   `json:"rendered_video_url,omitempty"`
	SubtitlesURL          string   `json:"subtitles_url,omitempty"`
	TranscriptSegmentsURL string   `json:"transcript_segments_url,omitempty"`
}

// DisplayName prefers the resource base name, then the filename, then the job id.
func (j BatchJobItem) DisplayName() string {
	switch {
	case j.ResourceBaseName != "":
		return j.ResourceBaseName
	case j.Filename != "":
		return j.Filename
	default:
		return j.JobID
	}
}

// VideoPath returns the rendered video URL, falling back to the per-job route.
func (j BatchJobItem) VideoPath() string {
	if j.RenderedVideoURL != "" {
		return j.RenderedVideoURL
	}
	return fmt.Sprintf("/api/jobs/%s/video", j.JobID)
}

// TranscriptJSONPath returns the segments URL, falling back to the per-job route.
func (j BatchJobItem) TranscriptJSONPath() string {
	if j.TranscriptSegmentsURL != "" {
		return j.TranscriptSegmentsURL
	}
	return fmt.Sprintf("/api/jobs/%s/transcript/json", j.JobID)
}

// TranscriptVTTPath returns the subtitles URL, falling back to the per-job route.
func (j BatchJobItem) TranscriptVTTPath() string {
	if j.SubtitlesURL != "" {
		return j.SubtitlesURL
	}
	return fmt.Sprintf("/api/jobs/%s/transcript/vtt", j.JobID)
}

// BatchConvertResponse is returned by POST /batch/convert.
type BatchConvertResponse struct {
	BatchID string         `json:"batch_id"`
	Jobs    []BatchJobItem `json:"jobs"`
}

// BatchJobStatus is one member of a BatchStatus.
type BatchJobStatus struct {
	JobID            string    `json:"job_id"`
	Filename         string    `json:"filename"`
	ResourceBaseName string    `json:"resource_base_name"`
	Status           JobStatus `json:"status"`
}

// BatchStatus is returned by GET /batch/{id}/status.
type BatchStatus struct {
	BatchID string           `json:"batch_id"`
	Jobs    []BatchJobStatus `json:"jobs"`
}

// AllTerminal reports whether every member is terminal. An empty batch is
// vacuously complete.
func (b BatchStatus) AllTerminal() bool {
	for _, j := range b.Jobs {
		if !j.Status.State.Terminal() {
			return false
		}
	}
	return true
}

// Counts returns the number of succeeded and failed members.
func (b BatchStatus) Counts() (succeeded, failed int) {
	for _, j := range b.Jobs {
		switch j.Status.State {
		case StateSucceeded:
			succeeded++
		case StateFailed:
			failed++
		}
	}
	return succeeded, failed
}

// TranscriptSegment is one timestamped unit of transcript text. End is inclusive.
type TranscriptSegment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// TranscriptData is the body behind transcript_json_url.
type TranscriptData struct {
	Version  string              `json:"version"`
	Segments []TranscriptSegment `json:"segments"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status          string `json:"status"`
	FFmpegAvailable *bool  `json:"ffmpeg_available,omitempty"`
}

// Healthy reports whether the backend answered with a healthy status.
func (h HealthResponse) Healthy() bool {
	return h.Status == "healthy" || h.Status == "ok"
}

// ErrorResponse is the backend's error body. Some routes only set Detail.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}
