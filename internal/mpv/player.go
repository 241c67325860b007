package mpv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/a2vstudio/a2v/internal/player"
	"github.com/a2vstudio/a2v/pkg/log"
	"github.com/google/uuid"
)

const (
	startTimeout = 10 * time.Second
	quitGrace    = 500 * time.Millisecond
)

var errReleased = errors.New("player released")

// launcher starts whatever serves the IPC socket. stop terminates it; when
// graceful is set a quit command was already sent.
type launcher func(socket string) (stop func(graceful bool), err error)

// Player is one mpv window playing one source. It implements player.Element.
type Player struct {
	src    player.Source
	socket string
	launch launcher

	mu       sync.Mutex
	cmd      *Client
	stop     func(graceful bool)
	released bool
}

// Factory resolves binary once and returns a player.Factory that mounts one
// mpv process per source. Source URLs must already be absolute. An error
// means mpv is not installed.
func Factory(binary string) (player.Factory, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("find mpv: %w", err)
	}
	launch := processLauncher(path)
	return func(src player.Source) (player.Element, error) {
		return New(src, launch), nil
	}, nil
}

// New returns an unloaded player for src.
func New(src player.Source, launch launcher) *Player {
	return &Player{
		src:    src,
		socket: SocketPath(),
		launch: launch,
	}
}

// SocketPath returns a fresh socket path for one mpv instance.
func SocketPath() string {
	return filepath.Join(os.TempDir(), "a2v-"+uuid.NewString()[:8]+".sock")
}

func processLauncher(binary string) launcher {
	return func(socket string) (func(bool), error) {
		cmd := exec.Command(binary,
			"--idle=yes",
			"--pause=yes",
			"--keep-open=yes",
			"--force-window=yes",
			"--no-terminal",
			"--volume=0",
			"--title=a2v",
			"--input-ipc-server="+socket,
		)
		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("start mpv: %w", err)
		}

		done := make(chan struct{})
		go func() {
			_ = cmd.Wait()
			close(done)
		}()

		kill := func() {
			if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
				log.Warn("mpv: kill pid %d: %v", cmd.Process.Pid, err)
			}
			<-done
		}
		return func(graceful bool) {
			if !graceful {
				kill()
				return
			}
			go func() {
				select {
				case <-done:
				case <-time.After(quitGrace):
					kill()
				}
			}()
		}, nil
	}
}

// Load starts mpv, opens the video paused, and returns once mpv reports the
// file loaded. Captions are attached after the video.
func (p *Player) Load(ctx context.Context) error {
	p.mu.Lock()
	if p.released {
		p.mu.Unlock()
		return errReleased
	}
	stop, err := p.launch(p.socket)
	if err != nil {
		p.mu.Unlock()
		return err
	}
	p.stop = stop
	p.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()

	cmd, err := Dial(dialCtx, p.socket)
	if err != nil {
		return err
	}
	events, err := Dial(dialCtx, p.socket)
	if err != nil {
		cmd.Close()
		return err
	}
	defer events.Close()

	p.mu.Lock()
	if p.released {
		p.mu.Unlock()
		cmd.Close()
		return errReleased
	}
	p.cmd = cmd
	p.mu.Unlock()

	// Release or cancellation unblocks the event read.
	stopWatch := context.AfterFunc(ctx, func() { events.Close() })
	defer stopWatch()

	if _, err := cmd.SendCommand("disable_event", "all"); err != nil {
		log.Debug("mpv: disable events on command connection: %v", err)
	}
	if _, err := cmd.SendCommand("loadfile", p.src.VideoURL, "replace"); err != nil {
		return fmt.Errorf("loadfile: %w", err)
	}

	for {
		ev, err := events.ReadEvent()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("wait for %s: %w", p.src.VideoURL, err)
		}

		switch ev.Event {
		case EventFileLoaded:
			if p.src.CaptionsURL != "" {
				if _, err := cmd.SendCommand("sub-add", p.src.CaptionsURL, "select"); err != nil {
					log.Warn("mpv: captions %s: %v", p.src.CaptionsURL, err)
				}
			}
			return nil
		case EventEndFile:
			if ev.Reason == "error" {
				return fmt.Errorf("open %s: %s", p.src.VideoURL, ev.FileError)
			}
		case EventShutdown:
			return fmt.Errorf("mpv exited while loading %s", p.src.VideoURL)
		}
	}
}

func (p *Player) client() (*Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return nil, errReleased
	}
	if p.cmd == nil {
		return nil, fmt.Errorf("mpv not loaded")
	}
	return p.cmd, nil
}

func (p *Player) setProperty(name string, value any) error {
	c, err := p.client()
	if err != nil {
		return err
	}
	_, err = c.SendCommand("set_property", name, value)
	return err
}

func (p *Player) Play() error  { return p.setProperty("pause", false) }
func (p *Player) Pause() error { return p.setProperty("pause", true) }

// SetLevel maps level onto mpv's volume (0-100).
func (p *Player) SetLevel(level float64) error {
	return p.setProperty("volume", max(0, min(1, level))*100)
}

func (p *Player) Seek(seconds float64) error {
	c, err := p.client()
	if err != nil {
		return err
	}
	_, err = c.SendCommand("seek", seconds, "absolute")
	return err
}

// Position returns time-pos in seconds.
func (p *Player) Position() (float64, error) {
	c, err := p.client()
	if err != nil {
		return 0, err
	}
	resp, err := c.SendCommand("get_property", "time-pos")
	if err != nil {
		return 0, err
	}
	pos, ok := resp.Float()
	if !ok {
		return 0, fmt.Errorf("time-pos unavailable")
	}
	return pos, nil
}

// Release asks mpv to quit, closes the connection, and removes the socket.
func (p *Player) Release() error {
	p.mu.Lock()
	if p.released {
		p.mu.Unlock()
		return nil
	}
	p.released = true
	cmd, stop := p.cmd, p.stop
	p.cmd = nil
	p.mu.Unlock()

	graceful := false
	if cmd != nil {
		if _, err := cmd.SendCommand("quit"); err == nil {
			graceful = true
		}
		cmd.Close()
	}
	if stop != nil {
		stop(graceful)
	}
	if err := os.Remove(p.socket); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove socket: %w", err)
	}
	return nil
}
