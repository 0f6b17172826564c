// ABOUTME: Connection registry for structured local store databases
// ABOUTME: One memoized SQLite connection per logical database name, owned by start-up
package sls

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	_ "modernc.org/sqlite"
)

var (
	ErrInvalidDescriptor  = errors.New("sls: invalid descriptor")
	ErrDescriptorMismatch = errors.New("sls: database already open with a different descriptor")
	ErrVersionDowngrade   = errors.New("sls: requested schema version is older than the stored one")
	ErrMissingKey         = errors.New("sls: record has no usable primary key")
	ErrClosed             = errors.New("sls: registry closed")
)

// State is the lifecycle of one logical database connection.
type State int

const (
	Unconnected State = iota
	Connecting
	Connected
	// Failed is not cached: the next Open starts over from Unconnected.
	Failed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Failed:
		return "failed"
	default:
		return "unconnected"
	}
}

// Opener establishes the engine connection for a descriptor.
type Opener func(ctx context.Context, desc Descriptor) (*sql.DB, error)

// FileOpener stores each logical database in <dir>/<name>.db.
func FileOpener(dir string) Opener {
	return func(ctx context.Context, desc Descriptor) (*sql.DB, error) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		path := filepath.Join(dir, desc.Name+".db")
		db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)")
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return db, nil
	}
}

// MemoryOpener gives every logical database its own private in-memory engine.
func MemoryOpener() Opener {
	return func(ctx context.Context, desc Descriptor) (*sql.DB, error) {
		db, err := sql.Open("sqlite", ":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to open in-memory database: %w", err)
		}
		// every pooled connection to :memory: would be a different database
		db.SetMaxOpenConns(1)
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return db, nil
	}
}

// Registry owns the connections of every logical database in the process.
// It is created at start-up and handed to each feature area.
type Registry struct {
	open   Opener
	logger *log.Logger
	group  singleflight.Group

	mu     sync.Mutex
	conns  map[string]*Collection
	states map[string]State
	closed bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for upgrade and failure messages.
func WithLogger(l *log.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithOpener replaces the engine connection function.
func WithOpener(o Opener) Option {
	return func(r *Registry) { r.open = o }
}

// NewRegistry creates a registry whose databases live under dir.
func NewRegistry(dir string, opts ...Option) *Registry {
	return newRegistry(FileOpener(dir), opts)
}

// NewMemoryRegistry creates a registry of in-memory databases (for testing).
func NewMemoryRegistry(opts ...Option) *Registry {
	return newRegistry(MemoryOpener(), opts)
}

func newRegistry(open Opener, opts []Option) *Registry {
	r := &Registry{
		open:   open,
		logger: log.Default(),
		conns:  make(map[string]*Collection),
		states: make(map[string]State),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Open returns the collection for desc, connecting on first use.
// Concurrent first callers share a single connection attempt.
func (r *Registry) Open(ctx context.Context, desc Descriptor) (*Collection, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	c, ok := r.conns[desc.Name]
	r.mu.Unlock()
	if ok {
		return checkDescriptor(c, desc)
	}

	// The attempt is shared, so it must not die with the first caller's context.
	connectCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(desc.Name, func() (any, error) {
		r.mu.Lock()
		if c, ok := r.conns[desc.Name]; ok {
			r.mu.Unlock()
			return c, nil
		}
		r.states[desc.Name] = Connecting
		r.mu.Unlock()

		c, err := r.connect(connectCtx, desc)

		r.mu.Lock()
		defer r.mu.Unlock()
		if err != nil {
			r.states[desc.Name] = Failed
			r.logger.Warn("structured store connection failed", "db", desc.Name, "err", err)
			return nil, err
		}
		if r.closed {
			_ = c.db.Close()
			return nil, ErrClosed
		}
		r.conns[desc.Name] = c
		r.states[desc.Name] = Connected
		return c, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return checkDescriptor(res.Val.(*Collection), desc)
	}
}

func checkDescriptor(c *Collection, desc Descriptor) (*Collection, error) {
	if !c.desc.equal(desc) {
		return nil, fmt.Errorf("%w: %s", ErrDescriptorMismatch, desc.Name)
	}
	return c, nil
}

// State reports the connection state of a logical database.
func (r *Registry) State(name string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[name]
}

// Close closes every open connection. The registry cannot be reused.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	for name, c := range r.conns {
		if err := c.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
		r.states[name] = Unconnected
	}
	r.conns = make(map[string]*Collection)
	return errors.Join(errs...)
}

func (r *Registry) connect(ctx context.Context, desc Descriptor) (*Collection, error) {
	db, err := r.open(ctx, desc)
	if err != nil {
		return nil, fmt.Errorf("sls: connect %s: %w", desc.Name, err)
	}
	if err := r.upgrade(ctx, db, desc); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sls: upgrade %s: %w", desc.Name, err)
	}
	return &Collection{db: db, desc: desc}, nil
}

// upgrade runs only when desc.Version exceeds the stored version. It adds the
// collection and any missing indexes and never removes records.
func (r *Registry) upgrade(ctx context.Context, db *sql.DB, desc Descriptor) error {
	var stored int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&stored); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	switch {
	case desc.Version < stored:
		return fmt.Errorf("%w: stored %d, requested %d", ErrVersionDowngrade, stored, desc.Version)
	case desc.Version == stored:
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin upgrade: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range desc.schema() {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply %q: %w", stmt, err)
		}
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", desc.Version)); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upgrade: %w", err)
	}

	r.logger.Debug("upgraded structured store", "db", desc.Name, "from", stored, "to", desc.Version)
	return nil
}
