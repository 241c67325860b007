package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"
)

const commandTimeout = 5 * time.Second

// Client talks to mpv over one Unix socket connection.
type Client struct {
	conn    net.Conn
	scanner *bufio.Scanner
	mu      sync.Mutex
	nextID  int64
}

// Connect dials the mpv IPC socket.
func Connect(socketPath string) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to mpv: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB buffer

	return &Client{conn: conn, scanner: scanner}, nil
}

// Dial retries Connect until the socket accepts or ctx is done. mpv creates
// its socket shortly after the process starts.
func Dial(ctx context.Context, socketPath string) (*Client, error) {
	for {
		c, err := Connect(socketPath)
		if err == nil {
			return c, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w (last error: %v)", ctx.Err(), err)
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// Close shuts down the connection.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// SendCommand sends one command and reads lines until the response with the
// matching request_id arrives. Events received meanwhile are dropped. A
// response other than "success" is returned as an error.
func (c *Client) SendCommand(args ...any) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	cmd := Command{Command: args, RequestID: c.nextID}
	data, err := json.Marshal(cmd)
	if err != nil {
		return Response{}, fmt.Errorf("marshal command: %w", err)
	}

	_ = c.conn.SetDeadline(time.Now().Add(commandTimeout))
	defer c.conn.SetDeadline(time.Time{})

	data = append(data, '\n')
	if _, err := c.conn.Write(data); err != nil {
		return Response{}, fmt.Errorf("write command: %w", err)
	}

	for {
		raw, err := c.readLine()
		if err != nil {
			return Response{}, fmt.Errorf("read response: %w", err)
		}

		var p envelope
		if err := json.Unmarshal(raw, &p); err != nil {
			return Response{}, fmt.Errorf("unmarshal response: %w", err)
		}
		if p.Event != "" {
			continue
		}

		var resp Response
		if err := json.Unmarshal(raw, &resp); err != nil {
			return Response{}, fmt.Errorf("unmarshal response: %w", err)
		}
		if resp.RequestID != cmd.RequestID {
			continue
		}
		if !resp.OK() {
			return resp, fmt.Errorf("mpv %v: %s", args[0], resp.Error)
		}
		return resp, nil
	}
}

// ReadEvent reads the next event line, skipping command responses. Blocks
// until data arrives.
func (c *Client) ReadEvent() (Event, error) {
	for {
		raw, err := c.readLine()
		if err != nil {
			return Event{}, fmt.Errorf("read event: %w", err)
		}

		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			return Event{}, fmt.Errorf("unmarshal event: %w", err)
		}
		if ev.Event != "" {
			return ev, nil
		}
	}
}

func (c *Client) readLine() ([]byte, error) {
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("connection closed")
	}
	return c.scanner.Bytes(), nil
}
