// Command a2v uploads audio to the conversion backend, follows the jobs, and
// replays finished videos next to their synchronized transcripts.
//
// Usage:
//
//	a2v [-image cover.png] [audio ...]
//
// With no audio arguments the history of earlier conversions is shown.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/a2vstudio/a2v/internal/api"
	"github.com/a2vstudio/a2v/internal/app"
	"github.com/a2vstudio/a2v/internal/config"
	"github.com/a2vstudio/a2v/internal/history"
	"github.com/a2vstudio/a2v/internal/mpv"
	"github.com/a2vstudio/a2v/pkg/log"
	"github.com/joho/godotenv"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "a2v: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	image := flag.String("image", "", "background image for the rendered video")
	baseURL := flag.String("api", "", "conversion API base URL (overrides A2V_API_BASE_URL)")
	flag.Parse()

	// A missing .env is normal.
	_ = godotenv.Load()

	var opts []config.Option
	if *baseURL != "" {
		opts = append(opts, config.WithBaseURL(*baseURL))
	}
	cfg, err := config.NewFromEnv(opts...)
	if err != nil {
		return err
	}

	fileLogger, err := log.NewFileLogger(cfg.Log.File, log.ParseLevel(cfg.Log.Level))
	if err != nil {
		log.Discard()
	} else {
		defer fileLogger.Close()
		log.SetLogger(fileLogger.Logger)
	}

	for _, p := range append(flag.Args(), *image) {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("input: %w", err)
		}
	}

	store, err := history.Open(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	client, err := api.New(cfg.API.BaseURL)
	if err != nil {
		return err
	}

	appOpts := app.Options{
		Backend:        client,
		History:        store,
		PollInterval:   cfg.API.PollInterval,
		HealthInterval: cfg.API.HealthInterval,
		Crossfade:      cfg.Playback.Crossfade,
		DownloadDir:    cfg.Storage.DownloadDir,
	}
	if factory, err := mpv.Factory(cfg.Playback.MPVPath); err != nil {
		log.Warn("playback disabled: %v", err)
	} else {
		appOpts.Player = factory
	}
	if flag.NArg() > 0 {
		appOpts.Upload = &app.Upload{Audio: flag.Args(), Image: *image}
	}

	log.Info("a2v starting, api %s", cfg.API.BaseURL)
	p := tea.NewProgram(app.New(appOpts), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run TUI: %w", err)
	}
	return nil
}
