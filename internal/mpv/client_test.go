package mpv

import (
	"bufio"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
)

// startMockSocket accepts one connection, reads one command, and writes back
// the given raw lines followed by a response echoing the command's request_id.
func startMockSocket(t *testing.T, before []string, data any) (string, func()) {
	t.Helper()

	dir := t.TempDir()
	sockPath := filepath.Join(dir, "test.sock")

	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		scanner := bufio.NewScanner(conn)
		if !scanner.Scan() {
			return
		}
		var cmd Command
		if err := json.Unmarshal(scanner.Bytes(), &cmd); err != nil {
			return
		}

		for _, l := range before {
			conn.Write([]byte(l + "\n"))
		}

		raw, _ := json.Marshal(data)
		resp, _ := json.Marshal(Response{Error: "success", Data: raw, RequestID: cmd.RequestID})
		conn.Write(append(resp, '\n'))
	}()

	return sockPath, func() {
		ln.Close()
		os.Remove(sockPath)
	}
}

func TestClientSendCommandSkipsEventsAndStaleResponses(t *testing.T) {
	before := []string{
		`{"event":"playback-restart"}`,
		`{"error":"success","data":99,"request_id":42}`,
	}
	sockPath, cleanup := startMockSocket(t, before, 12.5)
	defer cleanup()

	client, err := Connect(sockPath)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	resp, err := client.SendCommand("get_property", "time-pos")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	pos, ok := resp.Float()
	if !ok || pos != 12.5 {
		t.Errorf("time-pos = %v (ok=%v), want 12.5", pos, ok)
	}
}

func TestClientSendCommandError(t *testing.T) {
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "test.sock")
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		scanner := bufio.NewScanner(conn)
		if !scanner.Scan() {
			return
		}
		var cmd Command
		json.Unmarshal(scanner.Bytes(), &cmd)
		resp, _ := json.Marshal(Response{Error: "property unavailable", RequestID: cmd.RequestID})
		conn.Write(append(resp, '\n'))
	}()

	client, err := Connect(sockPath)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	resp, err := client.SendCommand("get_property", "time-pos")
	if err == nil {
		t.Fatal("expected error for non-success response")
	}
	if resp.Error != "property unavailable" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestClientReadEventSkipsResponses(t *testing.T) {
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "test.sock")
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte(`{"error":"success","request_id":1}` + "\n"))
		conn.Write([]byte(`{"event":"end-file","reason":"error","file_error":"loading failed"}` + "\n"))
	}()

	client, err := Connect(sockPath)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	ev, err := client.ReadEvent()
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.Event != EventEndFile || ev.Reason != "error" || ev.FileError != "loading failed" {
		t.Errorf("event = %+v", ev)
	}

	if _, err := client.ReadEvent(); err == nil {
		t.Error("expected error after the server closed the connection")
	}
}

func TestClientConnectFailure(t *testing.T) {
	_, err := Connect("/nonexistent/path/mpv.sock")
	if err == nil {
		t.Error("expected error connecting to nonexistent socket")
	}
}

func TestCommandWireFormat(t *testing.T) {
	data, err := json.Marshal(Command{Command: []any{"seek", 3.5, "absolute"}, RequestID: 7})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"command":["seek",3.5,"absolute"],"request_id":7}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}
