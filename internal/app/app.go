package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/quill/internal/category"
	"github.com/five82/quill/internal/config"
	"github.com/five82/quill/internal/editor"
	"github.com/five82/quill/internal/listing"
	"github.com/five82/quill/internal/media"
	"github.com/five82/quill/internal/session"
	"github.com/five82/quill/internal/state"
	"github.com/five82/quill/internal/storage"
	"github.com/five82/quill/internal/ui"
	"github.com/five82/quill/internal/wp"
)

// Options configure the quill application.
type Options struct {
	ConfigPath string
	LogPath    string // empty uses the config's log_path
	PollEvery  int    // seconds; zero disables background refresh
}

// Run boots the quill TUI until the user quits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.LogPath != "" {
		cfg.LogPath = opts.LogPath
	}

	logFile, err := openLog(cfg.LogPath)
	if err != nil {
		return err
	}
	defer func() { _ = logFile.Close() }()
	logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
	logger.Info("quill starting", "site", cfg.SiteURL, "api", cfg.APIBase(), "state", cfg.StatePath)

	if !cfg.HasCredentials() {
		logger.Warn("no credentials configured; token exchange will fail", "env", config.EnvUsername)
	}

	kv, err := storage.Open(cfg.StatePath)
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	sess := session.New(kv)

	client, err := wp.NewClient(cfg.APIBase(), sess,
		wp.WithBasicAuth(cfg.Username, cfg.BasicPassword()),
		wp.WithUserAgent("quill"),
	)
	if err != nil {
		return fmt.Errorf("init wordpress client: %w", err)
	}

	store := &state.Store{}
	resolver := media.NewResolver(client, cfg.PlaceholderURL, logger.With("component", "media"))
	categories := category.NewCache(client, logger.With("component", "categories"))

	sync := listing.New(listing.Options{
		API:        client,
		Session:    sess,
		Categories: categories,
		Media:      resolver,
		Store:      store,
		Logger:     logger.With("component", "listing"),
		Username:   cfg.Username,
		Password:   cfg.Password,
	})

	postEditor := editor.New(editor.Options{
		API:            client,
		Tokens:         sess,
		Media:          resolver,
		Logger:         logger.With("component", "editor"),
		MaxImageWidth:  cfg.MaxImageWidth,
		MaxImageHeight: cfg.MaxImageHeight,
	})

	if opts.PollEvery > 0 {
		StartPoller(ctx, sync, time.Duration(opts.PollEvery)*time.Second, logger.With("component", "poller"))
	}

	themeName, _ := kv.Get(ui.ThemeKey)

	uiOpts := ui.Options{
		Context:        ctx,
		Sync:           sync,
		Editor:         postEditor,
		Categories:     categories,
		Claims:         sess,
		Store:          store,
		Prefs:          kv,
		Logger:         logger.With("component", "ui"),
		ThemeName:      themeName,
		SiteURL:        cfg.SiteURL,
		Username:       cfg.Username,
		PlaceholderURL: cfg.PlaceholderURL,
		DateLocale:     cfg.DateLocale,
		LogPath:        cfg.LogPath,
	}
	err = ui.Run(uiOpts)
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		err = nil
	}
	logger.Info("quill stopped", "error", err)
	return err
}

// openLog prepares the log file. Bubble Tea owns the terminal, so nothing
// may be written to stderr while it runs.
func openLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := tea.LogToFile(path, "quill")
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}
	return f, nil
}
