package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/a2vstudio/a2v/internal/api"
	"github.com/a2vstudio/a2v/internal/history"
	"github.com/a2vstudio/a2v/internal/player"
	"github.com/a2vstudio/a2v/internal/poller"
	"github.com/a2vstudio/a2v/internal/transcript"
	"github.com/a2vstudio/a2v/pkg/log"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	tea "github.com/charmbracelet/bubbletea"
)

// Mode is what the session is currently showing.
type Mode int

const (
	ModeIdle Mode = iota
	ModeUploading
	ModeJob
	ModeBatch
	ModeReplay
)

// PanelFocus tracks which panel has keyboard focus.
type PanelFocus int

const (
	FocusHistory PanelFocus = iota
	FocusTranscript
)

const (
	fadeFrame             = 40 * time.Millisecond
	positionInterval      = 250 * time.Millisecond
	defaultHealthInterval = 30 * time.Second
)

// Backend is the conversion API as used by the session.
type Backend interface {
	poller.JobSource
	poller.BatchSource
	Locator() api.Locator
	Convert(ctx context.Context, audioPath, imagePath string) (api.ConvertResponse, error)
	BatchConvert(ctx context.Context, audioPaths []string, imagePath string) (api.BatchConvertResponse, error)
	Transcript(ctx context.Context, transcriptURL string) (api.TranscriptData, error)
	Health(ctx context.Context) (api.HealthResponse, error)
	Download(ctx context.Context, resourceURL, dir, fallbackName string) (string, int64, error)
}

// HistoryStore is the durable history as used by the session.
type HistoryStore interface {
	Put(ctx context.Context, e history.Entry) error
	PutAll(ctx context.Context, entries []history.Entry) error
	List(ctx context.Context) ([]history.Entry, error)
}

// Upload is a submission requested at startup.
type Upload struct {
	Audio []string
	Image string
}

// Options wires the session to its collaborators.
type Options struct {
	Backend        Backend
	History        HistoryStore
	Player         player.Factory // nil disables playback
	PollInterval   time.Duration
	HealthInterval time.Duration
	Crossfade      time.Duration
	DownloadDir    string
	Upload         *Upload
}

type healthState struct {
	checked bool
	ok      bool
	ffmpeg  *bool
	err     string
}

// Model is the root bubbletea model: the session orchestrator.
type Model struct {
	ctx     context.Context
	cancel  context.CancelFunc
	backend Backend
	store   HistoryStore
	locator api.Locator
	opts    Options

	mode       Mode
	upload     *Upload
	statusText string

	// Single job
	job       *history.Entry
	jobHandle *poller.JobHandle
	jobStatus *api.JobStatus
	pollErr   string

	// Batch
	batchID     string
	batchJobs   []history.Entry
	batchHandle *poller.BatchHandle
	batchStatus *api.BatchStatus

	// History
	entries    []history.Entry
	selected   int
	historyErr string

	// Playback
	ctrl            *player.Controller
	playing         *history.Entry
	sync            *transcript.Synchronizer
	language        string
	transcriptErr   string
	position        float64
	fadeStart       time.Time
	positionTicking bool

	// Transcript view
	transcriptScroll int
	cursor           int

	health healthState
	notice string

	// UI state
	focus  PanelFocus
	width  int
	height int

	// Errors
	errorMessage   string
	errorTransient bool
}

// New creates a Model. Nothing runs until Init.
func New(opts Options) Model {
	if opts.PollInterval <= 0 {
		opts.PollInterval = poller.DefaultInterval
	}
	if opts.HealthInterval <= 0 {
		opts.HealthInterval = defaultHealthInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := Model{
		ctx:        ctx,
		cancel:     cancel,
		backend:    opts.Backend,
		store:      opts.History,
		opts:       opts,
		upload:     opts.Upload,
		statusText: "Ready",
		focus:      FocusHistory,
	}
	if opts.Backend != nil {
		m.locator = opts.Backend.Locator()
	}
	if opts.Player != nil {
		m.ctrl = player.New(opts.Player, opts.Crossfade)
	}
	if m.upload != nil && len(m.upload.Audio) > 0 {
		m.mode = ModeUploading
		m.statusText = fmt.Sprintf("Uploading %d file(s)...", len(m.upload.Audio))
	}
	return m
}

// Init loads history, checks backend health, and submits the startup upload.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		loadHistoryCmd(m.ctx, m.store),
		healthCmd(m.ctx, m.backend),
	}
	if m.mode == ModeUploading {
		cmds = append(cmds, uploadCmd(m.ctx, m.backend, *m.upload))
	}
	return tea.Batch(cmds...)
}

// uploadCmd submits one file as a single conversion, several as a batch.
func uploadCmd(ctx context.Context, backend Backend, u Upload) tea.Cmd {
	return func() tea.Msg {
		if len(u.Audio) == 1 {
			resp, err := backend.Convert(ctx, u.Audio[0], u.Image)
			return ConvertedMsg{Response: resp, Err: err}
		}
		resp, err := backend.BatchConvert(ctx, u.Audio, u.Image)
		return BatchConvertedMsg{Response: resp, Err: err}
	}
}

// loadHistoryCmd reads the history list from SQLite.
func loadHistoryCmd(ctx context.Context, store HistoryStore) tea.Cmd {
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		entries, err := store.List(ctx)
		return HistoryLoadedMsg{Entries: entries, Err: err}
	}
}

// saveHistoryCmd writes accepted jobs, one transaction each.
func saveHistoryCmd(ctx context.Context, store HistoryStore, entries []history.Entry) tea.Cmd {
	if store == nil || len(entries) == 0 {
		return nil
	}
	return func() tea.Msg {
		var err error
		if len(entries) == 1 {
			err = store.Put(ctx, entries[0])
		} else {
			err = store.PutAll(ctx, entries)
		}
		return HistorySavedMsg{Count: len(entries), Err: err}
	}
}

// waitJobCmd reads the next observation from a job poller.
func waitJobCmd(h *poller.JobHandle) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-h.Updates()
		if !ok {
			return JobUpdateMsg{Handle: h, Closed: true}
		}
		return JobUpdateMsg{Handle: h, Update: u}
	}
}

// waitBatchCmd reads the next observation from a batch poller.
func waitBatchCmd(h *poller.BatchHandle) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-h.Updates()
		if !ok {
			return BatchUpdateMsg{Handle: h, Closed: true}
		}
		return BatchUpdateMsg{Handle: h, Update: u}
	}
}

// transcriptCmd fetches the segments for an entry.
func transcriptCmd(ctx context.Context, backend Backend, e history.Entry) tea.Cmd {
	return func() tea.Msg {
		data, err := backend.Transcript(ctx, e.TranscriptJSONURL)
		return TranscriptLoadedMsg{EntryID: e.ID, Data: data, Err: err}
	}
}

// loadMediaCmd preloads a pending player source.
func loadMediaCmd(p *player.Pending) tea.Cmd {
	return func() tea.Msg {
		if err := p.Load(); err != nil {
			return MediaFailedMsg{Gen: p.Gen, Err: err}
		}
		return MediaReadyMsg{Gen: p.Gen}
	}
}

func fadeTickCmd(gen uint64) tea.Cmd {
	return tea.Tick(fadeFrame, func(time.Time) tea.Msg {
		return FadeTickMsg{Gen: gen}
	})
}

func positionTickCmd() tea.Cmd {
	return tea.Tick(positionInterval, func(time.Time) tea.Msg {
		return PositionTickMsg{}
	})
}

func scrollObservedCmd() tea.Cmd {
	return func() tea.Msg { return ScrollObservedMsg{} }
}

// healthCmd checks the backend once.
func healthCmd(ctx context.Context, backend Backend) tea.Cmd {
	if backend == nil {
		return nil
	}
	return func() tea.Msg {
		resp, err := backend.Health(ctx)
		return HealthMsg{Response: resp, Err: err}
	}
}

func healthTickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return HealthTickMsg{}
	})
}

// downloadCmd saves an entry's video and transcripts in parallel.
func downloadCmd(ctx context.Context, backend Backend, e history.Entry, dir string) tea.Cmd {
	return func() tea.Msg {
		base := e.Title()
		files := []struct{ url, name string }{
			{e.VideoURL, base + ".mp4"},
			{e.TranscriptVTTURL, base + ".vtt"},
			{e.TranscriptJSONURL, base + ".json"},
		}

		paths := make([]string, len(files))
		sizes := make([]int64, len(files))
		g, gctx := errgroup.WithContext(ctx)
		for i, f := range files {
			if f.url == "" {
				continue
			}
			g.Go(func() error {
				path, n, err := backend.Download(gctx, f.url, dir, f.name)
				if err != nil {
					return err
				}
				paths[i], sizes[i] = path, n
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return DownloadedMsg{Err: err}
		}

		var msg DownloadedMsg
		for i, p := range paths {
			if p != "" {
				msg.Files = append(msg.Files, p)
				msg.Bytes += sizes[i]
			}
		}
		return msg
	}
}

// clearTransientErrorCmd fires after a delay to clear transient errors.
func clearTransientErrorCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return ClearTransientErrorMsg{}
	})
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.transcriptScroll = m.clampTranscriptScroll(m.transcriptScroll)
		return m, nil

	case HistoryLoadedMsg:
		if msg.Err != nil {
			log.Error("load history: %v", msg.Err)
			m.historyErr = "Could not read history: " + msg.Err.Error()
			return m, nil
		}
		m.entries = msg.Entries
		if m.selected >= len(m.entries) {
			m.selected = max(0, len(m.entries)-1)
		}
		return m, nil

	case HistorySavedMsg:
		if msg.Err != nil {
			log.Warn("save history: %v", msg.Err)
			m.historyErr = "Could not save history: " + msg.Err.Error()
		} else {
			m.historyErr = ""
		}
		// Reload even on failure: a partial batch write still stored some entries.
		return m, loadHistoryCmd(m.ctx, m.store)

	case ConvertedMsg:
		if msg.Err != nil {
			return m.uploadFailed(msg.Err), nil
		}
		entry := history.FromConvert(msg.Response, time.Now())
		m.stopPolling()
		m.resetProgress()
		m.mode = ModeJob
		m.job = &entry
		m.statusText = "Processing " + entry.Title()
		m.jobHandle = poller.StartJob(m.ctx, m.backend, entry.JobID, m.opts.PollInterval)
		log.Info("job %s accepted (%s)", entry.JobID, entry.Title())
		return m, tea.Batch(
			saveHistoryCmd(m.ctx, m.store, []history.Entry{entry}),
			waitJobCmd(m.jobHandle),
		)

	case BatchConvertedMsg:
		if msg.Err != nil {
			return m.uploadFailed(msg.Err), nil
		}
		entries := history.FromBatch(msg.Response, time.Now())
		m.stopPolling()
		m.resetProgress()
		m.mode = ModeBatch
		m.batchID = msg.Response.BatchID
		m.batchJobs = entries
		m.statusText = fmt.Sprintf("Processing batch of %d", len(entries))
		m.batchHandle = poller.StartBatch(m.ctx, m.backend, m.batchID, m.opts.PollInterval)
		log.Info("batch %s accepted with %d jobs", m.batchID, len(entries))
		return m, tea.Batch(
			saveHistoryCmd(m.ctx, m.store, entries),
			waitBatchCmd(m.batchHandle),
		)

	case JobUpdateMsg:
		if msg.Closed || msg.Handle != m.jobHandle {
			return m, nil
		}
		return m.applyJobUpdate(msg.Update)

	case BatchUpdateMsg:
		if msg.Closed || msg.Handle != m.batchHandle {
			return m, nil
		}
		return m.applyBatchUpdate(msg.Update)

	case TranscriptLoadedMsg:
		if m.playing == nil || msg.EntryID != m.playing.ID {
			return m, nil
		}
		if msg.Err != nil {
			log.Warn("transcript %s: %v", msg.EntryID, msg.Err)
			m.transcriptErr = "Transcript unavailable: " + msg.Err.Error()
			return m, nil
		}
		segments := msg.Data.Segments
		m.sync = transcript.NewSynchronizer(segments)
		m.language = ""
		if tag := transcript.Language(segments); tag != language.Und {
			m.language = tag.String()
		}
		m.transcriptScroll = 0
		m.cursor = 0
		m.sync.SetTime(m.position)
		cmd := m.reconcile()
		return m, cmd

	case MediaReadyMsg:
		if m.ctrl == nil {
			return m, nil
		}
		var cmds []tea.Cmd
		if m.ctrl.Ready(msg.Gen) {
			m.fadeStart = time.Now()
			cmds = append(cmds, fadeTickCmd(msg.Gen))
		}
		cmds = append(cmds, m.ensurePositionTicking())
		return m, tea.Batch(cmds...)

	case MediaFailedMsg:
		if m.ctrl != nil {
			m.ctrl.Fail(msg.Gen, msg.Err)
		}
		return m, nil

	case FadeTickMsg:
		if m.ctrl == nil || m.ctrl.State() != player.Transitioning || msg.Gen != m.ctrl.Generation() {
			return m, nil
		}
		p := m.ctrl.Progress(time.Since(m.fadeStart))
		m.ctrl.Fade(msg.Gen, p)
		if p >= 1 {
			m.ctrl.Complete(msg.Gen)
			return m, nil
		}
		return m, fadeTickCmd(msg.Gen)

	case PositionTickMsg:
		return m.refreshPosition()

	case ScrollObservedMsg:
		if m.sync != nil {
			m.sync.ScrollObserved()
		}
		return m, nil

	case HealthMsg:
		m.health = healthState{checked: true}
		if msg.Err != nil {
			m.health.err = msg.Err.Error()
		} else {
			m.health.ok = msg.Response.Healthy()
			m.health.ffmpeg = msg.Response.FFmpegAvailable
		}
		return m, healthTickCmd(m.opts.HealthInterval)

	case HealthTickMsg:
		return m, healthCmd(m.ctx, m.backend)

	case DownloadedMsg:
		if msg.Err != nil {
			m.notice = ""
			cmd := m.setTransientError("Download failed: " + msg.Err.Error())
			return m, cmd
		}
		dir := m.opts.DownloadDir
		if len(msg.Files) > 0 {
			dir = filepath.Dir(msg.Files[0])
		}
		m.notice = fmt.Sprintf("Saved %d file(s), %s, to %s", len(msg.Files), humanize.Bytes(uint64(msg.Bytes)), dir)
		return m, nil

	case ClearTransientErrorMsg:
		if m.errorTransient {
			m.errorMessage = ""
			m.errorTransient = false
		}
		return m, nil
	}

	return m, nil
}

func (m Model) uploadFailed(err error) Model {
	log.Error("upload: %v", err)
	m.mode = ModeIdle
	m.statusText = "Upload failed"
	m.errorMessage = err.Error()
	m.errorTransient = false
	return m
}

// applyJobUpdate renders one job observation and reacts to terminal states.
// A fetch failure keeps the last good status on screen.
func (m Model) applyJobUpdate(u poller.Update[api.JobStatus]) (tea.Model, tea.Cmd) {
	if u.Err != nil {
		log.Warn("poll job %s: %v", m.job.JobID, u.Err)
		m.pollErr = u.Err.Error()
		m.statusText = "Lost track of " + m.job.Title()
		return m, nil
	}
	snap := u.Snapshot
	m.jobStatus = &snap

	if u.Terminal {
		switch m.jobStatus.State {
		case api.StateSucceeded:
			m.statusText = "Complete: " + m.job.Title()
			log.Info("job %s succeeded", m.job.JobID)
			cmd := m.startPlayback(*m.job)
			return m, cmd
		case api.StateFailed:
			m.statusText = "Failed: " + m.job.Title()
			log.Info("job %s failed: %s", m.job.JobID, m.jobStatus.Error)
		}
		return m, nil
	}

	return m, waitJobCmd(m.jobHandle)
}

// applyBatchUpdate renders one batch observation.
func (m Model) applyBatchUpdate(u poller.Update[api.BatchStatus]) (tea.Model, tea.Cmd) {
	if u.Err != nil {
		log.Warn("poll batch %s: %v", m.batchID, u.Err)
		m.pollErr = u.Err.Error()
		m.statusText = "Lost track of batch"
		return m, nil
	}
	snap := u.Snapshot
	m.batchStatus = &snap

	if u.Terminal {
		succeeded, failed := m.batchStatus.Counts()
		total := len(m.batchStatus.Jobs)
		if total == 0 {
			m.statusText = "Batch has no jobs"
		} else {
			m.statusText = fmt.Sprintf("Batch finished: %d/%d succeeded, %d failed", succeeded, total, failed)
		}
		log.Info("batch %s finished: %d succeeded, %d failed", m.batchID, succeeded, failed)
		return m, nil
	}

	return m, waitBatchCmd(m.batchHandle)
}

// startPlayback fetches the transcript for e and asks the controller to
// switch to its media. The outgoing source keeps playing until the new one
// is ready.
func (m *Model) startPlayback(e history.Entry) tea.Cmd {
	m.playing = &e
	m.sync = nil
	m.language = ""
	m.transcriptErr = ""
	m.position = 0
	m.transcriptScroll = 0
	m.cursor = 0

	cmds := []tea.Cmd{transcriptCmd(m.ctx, m.backend, e)}
	if m.ctrl != nil {
		src := player.Source{VideoURL: m.locator.Resolve(e.VideoURL)}
		if e.TranscriptVTTURL != "" {
			src.CaptionsURL = m.locator.Resolve(e.TranscriptVTTURL)
		}
		p, err := m.ctrl.Request(m.ctx, src)
		if err != nil {
			log.Warn("play %s: %v", e.ID, err)
		} else if p != nil {
			cmds = append(cmds, loadMediaCmd(p))
		}
		cmds = append(cmds, m.ensurePositionTicking())
	}
	return tea.Batch(cmds...)
}

func (m *Model) ensurePositionTicking() tea.Cmd {
	if m.positionTicking {
		return nil
	}
	m.positionTicking = true
	return positionTickCmd()
}

// refreshPosition polls the active element and lets the synchronizer follow.
// Ticking stops when nothing is active or pending.
func (m Model) refreshPosition() (tea.Model, tea.Cmd) {
	if m.ctrl == nil {
		m.positionTicking = false
		return m, nil
	}
	if _, ok := m.ctrl.Active(); !ok {
		if _, pending := m.ctrl.PendingSource(); !pending {
			m.positionTicking = false
			return m, nil
		}
		return m, positionTickCmd()
	}

	var cmd tea.Cmd
	if pos, err := m.ctrl.Position(); err == nil {
		m.position = pos
		if m.sync != nil {
			m.sync.SetTime(pos)
			cmd = m.reconcile()
		}
	}
	return m, tea.Batch(cmd, positionTickCmd())
}

// reconcile applies the synchronizer's scroll intent, if any.
func (m *Model) reconcile() tea.Cmd {
	if m.sync == nil {
		return nil
	}
	intent, ok := m.sync.Reconcile(m.segmentInView)
	if !ok {
		return nil
	}
	return m.scrollTranscript(m.centeredOffset(intent.Index))
}

// scrollTranscript moves the transcript view for the synchronizer. The
// ScrollObservedMsg that follows completes the in-flight scroll.
func (m *Model) scrollTranscript(offset int) tea.Cmd {
	m.transcriptScroll = m.clampTranscriptScroll(offset)
	return scrollObservedCmd()
}

// userScroll moves the transcript view on a user gesture. The synchronizer
// sees it at once, so a position tick queued behind the gesture cannot
// re-center the view.
func (m *Model) userScroll(offset int) {
	m.transcriptScroll = m.clampTranscriptScroll(offset)
	if m.sync != nil {
		m.sync.ScrollObserved()
	}
}

func (m *Model) stopPolling() {
	if m.jobHandle != nil {
		m.jobHandle.Stop()
		m.jobHandle = nil
	}
	if m.batchHandle != nil {
		m.batchHandle.Stop()
		m.batchHandle = nil
	}
}

func (m *Model) resetProgress() {
	m.job = nil
	m.jobStatus = nil
	m.batchID = ""
	m.batchJobs = nil
	m.batchStatus = nil
	m.pollErr = ""
	m.errorMessage = ""
	m.errorTransient = false
}

func (m *Model) setTransientError(text string) tea.Cmd {
	m.errorMessage = text
	m.errorTransient = true
	return clearTransientErrorCmd()
}

// selectHistory replays an archived entry. No poller is involved.
func (m Model) selectHistory() (tea.Model, tea.Cmd) {
	if m.selected >= len(m.entries) {
		return m, nil
	}
	entry := m.entries[m.selected]
	m.stopPolling()
	m.resetProgress()
	m.mode = ModeReplay
	m.statusText = "Replaying " + entry.Title()
	m.focus = FocusTranscript
	cmd := m.startPlayback(entry)
	return m, cmd
}

// resetSession stops polling and playback and returns to the idle screen.
func (m Model) resetSession() Model {
	m.stopPolling()
	m.resetProgress()
	if m.ctrl != nil {
		m.ctrl.Close()
	}
	m.mode = ModeIdle
	m.playing = nil
	m.sync = nil
	m.language = ""
	m.transcriptErr = ""
	m.position = 0
	m.notice = ""
	m.focus = FocusHistory
	m.statusText = "Ready"
	return m
}

// downloadTarget is the entry the download key acts on.
func (m Model) downloadTarget() *history.Entry {
	if m.focus == FocusHistory && m.selected < len(m.entries) {
		e := m.entries[m.selected]
		return &e
	}
	if m.playing != nil {
		return m.playing
	}
	return m.job
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyQuit, KeyQuitUpper, KeyCtrlC:
		m.stopPolling()
		if m.ctrl != nil {
			m.ctrl.Close()
		}
		m.cancel()
		return m, tea.Quit

	case KeyTab:
		if m.focus == FocusHistory {
			m.focus = FocusTranscript
		} else {
			m.focus = FocusHistory
		}
		return m, nil

	case KeyJ, KeyDown:
		if m.focus == FocusHistory {
			if m.selected < len(m.entries)-1 {
				m.selected++
			}
			return m, nil
		}
		m.moveCursor(1)
		return m, nil

	case KeyK, KeyUp:
		if m.focus == FocusHistory {
			if m.selected > 0 {
				m.selected--
			}
			return m, nil
		}
		m.moveCursor(-1)
		return m, nil

	case KeyPgDown:
		if m.focus == FocusTranscript && m.sync != nil {
			m.userScroll(m.transcriptScroll + m.transcriptVisibleLines())
		}
		return m, nil

	case KeyPgUp:
		if m.focus == FocusTranscript && m.sync != nil {
			m.userScroll(m.transcriptScroll - m.transcriptVisibleLines())
		}
		return m, nil

	case KeyEnter:
		if m.focus == FocusHistory {
			return m.selectHistory()
		}
		return m.seekToCursor()

	case KeySpace:
		if m.ctrl != nil {
			if err := m.ctrl.TogglePause(); err != nil && !errors.Is(err, player.ErrNoSource) {
				cmd := m.setTransientError(err.Error())
				return m, cmd
			}
		}
		return m, nil

	case KeyFollow:
		if m.sync == nil {
			return m, nil
		}
		intent, ok := m.sync.Resume()
		if !ok {
			return m, nil
		}
		m.cursor = intent.Index
		cmd := m.scrollTranscript(m.centeredOffset(intent.Index))
		return m, cmd

	case KeyDownload:
		e := m.downloadTarget()
		if e == nil || m.backend == nil {
			return m, nil
		}
		m.notice = "Downloading " + e.Title() + "..."
		return m, downloadCmd(m.ctx, m.backend, *e, m.opts.DownloadDir)

	case KeyNewSession:
		return m.resetSession(), nil

	case KeyRefresh:
		return m, loadHistoryCmd(m.ctx, m.store)
	}

	return m, nil
}

// moveCursor moves the transcript cursor and keeps it visible. This is a
// user gesture on the list.
func (m *Model) moveCursor(delta int) {
	if m.sync == nil || len(m.sync.Segments()) == 0 {
		return
	}
	m.cursor = max(0, min(len(m.sync.Segments())-1, m.cursor+delta))
	offset := m.transcriptScroll
	visible := m.transcriptVisibleLines()
	if m.cursor < offset {
		offset = m.cursor
	} else if m.cursor >= offset+visible {
		offset = m.cursor - visible + 1
	}
	m.userScroll(offset)
}

// seekToCursor plays from the start of the segment under the cursor. The
// auto-scroll mode is left alone.
func (m Model) seekToCursor() (tea.Model, tea.Cmd) {
	if m.sync == nil || m.ctrl == nil {
		return m, nil
	}
	start, ok := m.sync.Seek(m.cursor)
	if !ok {
		return m, nil
	}
	if err := m.ctrl.SeekTo(start, true); err != nil {
		cmd := m.setTransientError("Seek failed: " + err.Error())
		return m, cmd
	}
	m.position = start
	m.sync.SetTime(start)
	cmd := m.reconcile()
	return m, cmd
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.sync == nil || msg.Action != tea.MouseActionPress {
		return m, nil
	}
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.userScroll(m.transcriptScroll - 3)
	case tea.MouseButtonWheelDown:
		m.userScroll(m.transcriptScroll + 3)
	}
	return m, nil
}

func (m *Model) segmentInView(i int) bool {
	return i >= m.transcriptScroll && i < m.transcriptScroll+m.transcriptVisibleLines()
}

func (m Model) centeredOffset(i int) int {
	return m.clampTranscriptScroll(i - m.transcriptVisibleLines()/2)
}

func (m Model) clampTranscriptScroll(offset int) int {
	n := 0
	if m.sync != nil {
		n = len(m.sync.Segments())
	}
	maxScroll := max(0, n-m.transcriptVisibleLines())
	return max(0, min(maxScroll, offset))
}
