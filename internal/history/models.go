// Package history persists the local record of submitted conversions in SQLite.
package history

import (
	"fmt"
	"time"

	"github.com/a2vstudio/a2v/internal/api"
)

// Source records how a job was submitted.
type Source string

const (
	SourceSingle Source = "single"
	SourceBatch  Source = "batch"
)

// Entry is one submitted job with its resolved resource locations. ID equals
// JobID. Entries are written when the backend accepts a job, before it is
// known whether the job will succeed.
type Entry struct {
	ID                string
	JobID             string
	ResourceBaseName  string
	VideoURL          string
	TranscriptJSONURL string
	TranscriptVTTURL  string
	CreatedAt         time.Time
	Source            Source
}

// Title is the name shown in lists.
func (e Entry) Title() string {
	if e.ResourceBaseName != "" {
		return e.ResourceBaseName
	}
	return e.JobID
}

func (e Entry) validate() error {
	if e.ID == "" {
		return fmt.Errorf("history entry: id is required")
	}
	if e.Source != SourceSingle && e.Source != SourceBatch {
		return fmt.Errorf("history entry %s: unknown source %q", e.ID, e.Source)
	}
	return nil
}

// FromConvert builds the entry for an accepted single conversion.
func FromConvert(resp api.ConvertResponse, createdAt time.Time) Entry {
	return Entry{
		ID:                resp.JobID,
		JobID:             resp.JobID,
		ResourceBaseName:  resp.ResourceBaseName,
		VideoURL:          resp.VideoURL,
		TranscriptJSONURL: resp.TranscriptJSONURL,
		TranscriptVTTURL:  resp.TranscriptVTTURL,
		CreatedAt:         createdAt,
		Source:            SourceSingle,
	}
}

// FromBatch builds one entry per accepted batch job. All entries share createdAt.
func FromBatch(resp api.BatchConvertResponse, createdAt time.Time) []Entry {
	entries := make([]Entry, 0, len(resp.Jobs))
	for _, j := range resp.Jobs {
		entries = append(entries, Entry{
			ID:                j.JobID,
			JobID:             j.JobID,
			ResourceBaseName:  j.DisplayName(),
			VideoURL:          j.VideoPath(),
			TranscriptJSONURL: j.TranscriptJSONPath(),
			TranscriptVTTURL:  j.TranscriptVTTPath(),
			CreatedAt:         createdAt,
			Source:            SourceBatch,
		})
	}
	return entries
}
