// ABOUTME: Start-up wiring of the dashboard core
// ABOUTME: Builds the store registry, key-value slots and every feature service
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/harper/newtab/internal/background"
	"github.com/harper/newtab/internal/bookmarks"
	"github.com/harper/newtab/internal/charm"
	"github.com/harper/newtab/internal/config"
	"github.com/harper/newtab/internal/kv"
	"github.com/harper/newtab/internal/settings"
	"github.com/harper/newtab/internal/sls"
	"github.com/harper/newtab/internal/tasks"
	"github.com/harper/newtab/internal/thumbnail"
	"github.com/harper/newtab/internal/transfer"
)

// App holds the wired services for one process.
type App struct {
	Config      *config.Config
	Logger      *log.Logger
	Registry    *sls.Registry
	Slots       kv.Store
	Charm       *charm.Client
	Settings    *settings.Manager
	Backgrounds *background.Library
	Tiles       *bookmarks.Grid
	Tasks       *tasks.Board

	closers []func() error
}

// Option overrides a collaborator, mainly for tests.
type Option func(*options)

type options struct {
	registry *sls.Registry
	slots    kv.Store
	tree     bookmarks.Tree
}

// WithRegistry uses r instead of a file-backed registry under the data dir.
func WithRegistry(r *sls.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithSlots uses s instead of the configured key-value backend.
func WithSlots(s kv.Store) Option {
	return func(o *options) { o.slots = s }
}

// WithTree uses t instead of the configured bookmarks file.
func WithTree(t bookmarks.Tree) Option {
	return func(o *options) { o.tree = t }
}

// NewLogger returns the process logger writing to w at level.
func NewLogger(w io.Writer, level string) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{Prefix: "newtab"})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.WarnLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// Open wires every service. Close must be called when done.
func Open(ctx context.Context, cfg *config.Config, logger *log.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg, Logger: logger}

	a.Registry = o.registry
	if a.Registry == nil {
		a.Registry = sls.NewRegistry(cfg.DBDir(), sls.WithLogger(logger))
	}
	a.closers = append(a.closers, a.Registry.Close)

	slots, err := a.openSlots(o.slots)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Slots = slots

	a.Settings = settings.NewManager(slots,
		settings.WithLogger(logger),
		settings.WithCalendarLanguageCoupling(cfg.CoupleCalendarLanguage),
	)
	if _, err := a.Settings.Load(); err != nil {
		logger.Warn("settings could not be saved", "err", err)
	}

	a.Backgrounds, err = background.OpenLibrary(ctx, a.Registry, slots, cfg.BackgroundsDir(),
		background.WithLogger(logger),
		background.WithMaxUploadBytes(cfg.MaxUploadBytes),
		background.WithThumbnailer(thumbnail.New(cfg.ThumbnailScale, logger)),
	)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to open backgrounds: %w", err)
	}

	tree := o.tree
	if tree == nil {
		tree = bookmarks.NewChromeTree(cfg.BookmarksFile)
	}
	a.Tiles, err = bookmarks.OpenGrid(ctx, a.Registry, tree,
		bookmarks.WithLogger(logger),
		bookmarks.WithCapacity(func() int { return a.Settings.Snapshot().TileSize }),
	)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to open bookmark tiles: %w", err)
	}

	a.Tasks, err = tasks.OpenBoard(ctx, a.Registry, tasks.WithLogger(logger))
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to open tasks: %w", err)
	}
	if _, err := a.Tasks.MigrateLegacy(ctx, a.Registry, slots); err != nil {
		logger.Warn("legacy notes and todos were not migrated", "err", err)
	}

	return a, nil
}

func (a *App) openSlots(override kv.Store) (kv.Store, error) {
	if override != nil {
		return override, nil
	}
	switch a.Config.KVBackend {
	case config.BackendCharm:
		client, err := charm.NewClient(&charm.Config{
			Host:     a.Config.Charm.Host,
			DBName:   a.Config.Charm.DBName,
			AutoSync: a.Config.Charm.AutoSync,
			Logger:   a.Logger,
		})
		if err != nil {
			return nil, err
		}
		a.Charm = client
		a.closers = append(a.closers, client.Close)
		return client, nil
	default:
		if err := os.MkdirAll(a.Config.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		return kv.OpenFile(a.Config.SlotsFile())
	}
}

// Transfer returns the stores used by export and import.
func (a *App) Transfer() transfer.Sources {
	return transfer.Sources{
		Settings:    a.Settings,
		Backgrounds: a.Backgrounds.Store(),
		Bookmarks:   a.Tiles.Store(),
		Tasks:       a.Tasks.Store(),
		Logger:      a.Logger,
	}
}

// Close releases every connection, last opened first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
