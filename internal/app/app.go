// Package app wires configuration into a running set of stores: the local
// cache engine, the remote tables, the network monitor, the session and the
// entry and shift stores with their sync engines.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"

	"github.com/Tiliavir/fieldtime/internal/config"
	"github.com/Tiliavir/fieldtime/internal/model"
	"github.com/Tiliavir/fieldtime/internal/netstatus"
	"github.com/Tiliavir/fieldtime/internal/records"
	"github.com/Tiliavir/fieldtime/internal/remote"
	"github.com/Tiliavir/fieldtime/internal/remote/pgstore"
	"github.com/Tiliavir/fieldtime/internal/remote/postgrest"
	"github.com/Tiliavir/fieldtime/internal/session"
	"github.com/Tiliavir/fieldtime/internal/storage"
	"github.com/Tiliavir/fieldtime/internal/storage/sqlite"
)

const (
	sessionNamespace = "session"
	sessionKey       = "current"
)

// ErrNoUserID is returned by SignIn for a user without an id.
var ErrNoUserID = errors.New("user id is required")

// Options adjusts how New builds the app.
type Options struct {
	// Logger receives sync and probe logs. Nil discards them.
	Logger *log.Logger
	// Offline starts the network monitor offline so nothing reaches the
	// remote store until it reports a transition.
	Offline bool
	// Records are passed to both stores (clock and id overrides in tests).
	Records []records.Option
}

// App is the assembled application.
type App struct {
	Config  config.Config
	Users   *session.Session
	Monitor *netstatus.Monitor
	Entries *records.Entries
	Shifts  *records.Shifts

	engine     storage.Engine
	entryCache *storage.Cache[model.Entry]
	shiftCache *storage.Cache[model.Shift]
	logger     *log.Logger
	closers    []func() error
}

// New builds the app from cfg, restores the persisted session and loads the
// signed-in user's records. Call Close when done.
func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	a := &App{
		Config:  cfg,
		Users:   session.New(cfg.AdminEmail),
		Monitor: netstatus.NewMonitor(!opts.Offline),
		logger:  logger,
	}

	if err := a.openEngine(cfg.Storage); err != nil {
		return nil, err
	}
	a.entryCache = storage.NewEntryCache(a.engine)
	a.shiftCache = storage.NewShiftCache(a.engine)

	entryTable, shiftTable, err := a.openRemote(ctx, cfg.Remote)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	recOpts := append([]records.Option{records.WithLogger(logger)}, opts.Records...)
	a.Entries = records.NewEntries(a.entryCache, entryTable, a.Monitor, a.Users, recOpts...)
	a.Shifts = records.NewShifts(a.shiftCache, shiftTable, a.Monitor, a.Users, recOpts...)
	a.Users.OnChange(func(*model.User) {
		a.Entries.Reset()
		a.Shifts.Reset()
	})

	if err := a.restoreSession(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) openEngine(cfg config.StorageConfig) error {
	dir := cfg.Dir
	if dir == "" {
		base, err := storage.BaseDir()
		if err != nil {
			return err
		}
		dir = base
	}
	switch cfg.Engine {
	case config.EngineSQLite:
		eng, err := sqlite.Open(filepath.Join(dir, "fieldtime.db"))
		if err != nil {
			return fmt.Errorf("opening sqlite cache: %w", err)
		}
		a.engine = eng
		a.closers = append(a.closers, eng.Close)
	case config.EngineFile, "":
		a.engine = storage.NewFileEngine(dir)
	default:
		return fmt.Errorf("unknown storage engine %q", cfg.Engine)
	}
	return nil
}

// openRemote returns nil tables when no backend is configured. The nil
// interface values are what disables syncing.
func (a *App) openRemote(ctx context.Context, cfg config.RemoteConfig) (remote.Table[remote.EntryRow], remote.Table[remote.ShiftRow], error) {
	if !cfg.Enabled() {
		return nil, nil, nil
	}
	switch cfg.Backend {
	case config.BackendPostgREST:
		client := postgrest.NewClient(ctx, cfg.URL, cfg.APIKey, cfg.AccessToken)
		return client.Entries(), client.Shifts(), nil
	case config.BackendPostgres:
		store, err := pgstore.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, func() error { store.Close(); return nil })
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, nil, err
		}
		return store.Entries(), store.Shifts(), nil
	}
	return nil, nil, fmt.Errorf("unknown remote backend %q", cfg.Backend)
}

// SyncEnabled reports whether a remote backend is configured.
func (a *App) SyncEnabled() bool {
	return a.Entries.Engine().Enabled()
}

func (a *App) restoreSession(ctx context.Context) error {
	data, ok, err := a.engine.Get(ctx, sessionNamespace, sessionKey)
	if err != nil {
		return fmt.Errorf("reading session: %w", err)
	}
	if !ok {
		return nil
	}
	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		a.logger.Printf("ignoring unreadable session: %v", err)
		return nil
	}
	a.Users.SignIn(user)
	return a.load(ctx)
}

func (a *App) load(ctx context.Context) error {
	if err := a.Entries.Load(ctx); err != nil {
		return fmt.Errorf("loading entries: %w", err)
	}
	if err := a.Shifts.Load(ctx); err != nil {
		return fmt.Errorf("loading shifts: %w", err)
	}
	return nil
}

// SignIn makes user current, remembers it for later runs and loads that
// user's cached records. Switching from another account clears that
// account's cache first, as SignOut would.
func (a *App) SignIn(ctx context.Context, user model.User) error {
	if user.ID == "" {
		return ErrNoUserID
	}
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if prev := a.Users.Current(); prev != nil && prev.ID != user.ID {
		if err := a.clearCaches(ctx, prev.ID); err != nil {
			return err
		}
	}
	if err := a.engine.Set(ctx, sessionNamespace, sessionKey, data); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	a.Users.SignIn(user)
	return a.load(ctx)
}

// SignOut clears the current user's cached entries and shifts, empties the
// stores and forgets the session. Unsynced records are lost.
func (a *App) SignOut(ctx context.Context) error {
	if user := a.Users.Current(); user != nil {
		if err := a.clearCaches(ctx, user.ID); err != nil {
			return err
		}
	}
	if err := a.engine.Delete(ctx, sessionNamespace, sessionKey); err != nil {
		return fmt.Errorf("removing session: %w", err)
	}
	a.Users.SignOut()
	return nil
}

func (a *App) clearCaches(ctx context.Context, userID string) error {
	if err := a.entryCache.Clear(ctx, userID); err != nil {
		return fmt.Errorf("clearing entries: %w", err)
	}
	if err := a.shiftCache.Clear(ctx, userID); err != nil {
		return fmt.Errorf("clearing shifts: %w", err)
	}
	return nil
}

// Close waits for background sync passes and releases the cache engine and
// the database pool.
func (a *App) Close() error {
	if a.Entries != nil {
		a.Entries.Engine().Wait()
	}
	if a.Shifts != nil {
		a.Shifts.Engine().Wait()
	}
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
