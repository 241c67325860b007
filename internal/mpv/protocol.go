// Package mpv drives an external mpv process over its JSON IPC socket. Lines
// on the socket are NDJSON: commands carry a request_id that mpv echoes in the
// matching response, and events are interleaved on every connection.
package mpv

import "encoding/json"

// Command is sent from a client to mpv.
type Command struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

// Response answers one Command.
type Response struct {
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data,omitempty"`
	RequestID int64           `json:"request_id"`
}

// OK reports whether mpv accepted the command.
func (r Response) OK() bool { return r.Error == "success" }

// Float decodes Data as a number.
func (r Response) Float() (float64, bool) {
	var v float64
	if len(r.Data) == 0 || json.Unmarshal(r.Data, &v) != nil {
		return 0, false
	}
	return v, true
}

// Event is pushed by mpv to every connected client.
type Event struct {
	Event     string          `json:"event"`
	Reason    string          `json:"reason,omitempty"`
	FileError string          `json:"file_error,omitempty"`
	Name      string          `json:"name,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Events the player waits on.
const (
	EventFileLoaded      = "file-loaded"
	EventPlaybackRestart = "playback-restart"
	EventEndFile         = "end-file"
	EventShutdown        = "shutdown"
)

// envelope tells events from responses: only events carry an "event" key.
type envelope struct {
	Event string `json:"event"`
}
