// ABOUTME: Charm KV backend for the dashboard's durable key-value slots
// ABOUTME: Slots live under a key namespace in a badger store that syncs to a charm server
package charm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/charm/client"
	charmkv "github.com/charmbracelet/charm/kv"
	"github.com/charmbracelet/log"
	"github.com/dgraph-io/badger/v3"

	"github.com/harper/newtab/internal/kv"
	"github.com/harper/newtab/internal/util"
)

const (
	// DefaultHost is used when neither configuration nor CHARM_HOST name a server.
	DefaultHost = "charm.2389.dev"

	// SlotPrefix namespaces dashboard slots inside the charm database.
	SlotPrefix = "slot:"

	syncBaseDelay = 500 * time.Millisecond
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("charm backend is closed")

// Config selects the charm server and database.
type Config struct {
	Host     string
	DBName   string
	AutoSync bool
	Logger   *log.Logger
}

// DefaultConfig returns the defaults, honoring CHARM_HOST.
func DefaultConfig() *Config {
	host := os.Getenv("CHARM_HOST")
	if host == "" {
		host = DefaultHost
	}
	return &Config{Host: host, DBName: "newtab", AutoSync: true}
}

// Client stores slots in charm KV. It satisfies kv.Store.
type Client struct {
	mu     sync.Mutex
	db     *charmkv.KV
	cfg    Config
	logger *log.Logger
}

var (
	_ kv.Store  = (*Client)(nil)
	_ kv.Lister = (*Client)(nil)
)

// NewClient opens the charm database and pulls remote changes when AutoSync is on.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Host != "" {
		// charm reads the server from the environment when it builds its client.
		if err := os.Setenv("CHARM_HOST", cfg.Host); err != nil {
			return nil, fmt.Errorf("failed to set CHARM_HOST: %w", err)
		}
	}

	db, err := charmkv.OpenWithDefaults(cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to open charm kv %q: %w", cfg.DBName, err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	c := &Client{db: db, cfg: *cfg, logger: logger}

	if cfg.AutoSync {
		if err := db.Sync(); err != nil {
			logger.Warn("initial charm sync failed, using local copy", "host", cfg.Host, "err", err)
		}
	}
	return c, nil
}

// slotKey maps a slot name to its charm key.
func slotKey(name string) []byte {
	return []byte(SlotPrefix + name)
}

// slotName reverses slotKey; ok is false for keys outside the namespace.
func slotName(key []byte) (string, bool) {
	s := string(key)
	if !strings.HasPrefix(s, SlotPrefix) {
		return "", false
	}
	return strings.TrimPrefix(s, SlotPrefix), true
}

// locked runs fn with the database while holding the client lock.
func (c *Client) locked(fn func(db *charmkv.KV) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return ErrClosed
	}
	return fn(c.db)
}

// pushed pushes a write when AutoSync is on. A failed push leaves the
// write in the local store for the next sync.
func (c *Client) pushed(db *charmkv.KV, name string) {
	if !c.cfg.AutoSync {
		return
	}
	if err := db.Sync(); err != nil {
		c.logger.Warn("charm sync after write failed", "slot", name, "err", err)
	}
}

// Get returns the slot value or kv.ErrNotFound.
func (c *Client) Get(name string) (string, error) {
	var value string
	err := c.locked(func(db *charmkv.KV) error {
		data, err := db.Get(slotKey(name))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound), err == nil && data == nil:
			return kv.ErrNotFound
		case err != nil:
			return fmt.Errorf("failed to read slot %s: %w", name, err)
		}
		value = string(data)
		return nil
	})
	return value, err
}

// Set writes the slot value.
func (c *Client) Set(name, value string) error {
	return c.locked(func(db *charmkv.KV) error {
		if err := db.Set(slotKey(name), []byte(value)); err != nil {
			return fmt.Errorf("failed to write slot %s: %w", name, err)
		}
		c.pushed(db, name)
		return nil
	})
}

// Delete removes the slot. Missing slots are not an error.
func (c *Client) Delete(name string) error {
	return c.locked(func(db *charmkv.KV) error {
		err := db.Delete(slotKey(name))
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to delete slot %s: %w", name, err)
		}
		c.pushed(db, name)
		return nil
	})
}

// Keys lists slot names in sorted order, skipping foreign keys.
func (c *Client) Keys() ([]string, error) {
	var names []string
	err := c.locked(func(db *charmkv.KV) error {
		raw, err := db.Keys()
		if err != nil {
			return fmt.Errorf("failed to list slots: %w", err)
		}
		names = slotNames(raw)
		return nil
	})
	return names, err
}

func slotNames(raw [][]byte) []string {
	names := make([]string, 0, len(raw))
	for _, k := range raw {
		if name, ok := slotName(k); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Sync exchanges changes with the charm server.
func (c *Client) Sync() error {
	return c.locked(func(db *charmkv.KV) error {
		if err := db.Sync(); err != nil {
			return fmt.Errorf("charm sync with %s failed: %w", c.cfg.Host, err)
		}
		return nil
	})
}

// SyncWithRetry syncs, backing off between failed attempts.
func (c *Client) SyncWithRetry(ctx context.Context, attempts int) error {
	return util.Retry(ctx, attempts, syncBaseDelay, c.Sync)
}

// Reset wipes the local copy of the database.
func (c *Client) Reset() error {
	return c.locked(func(db *charmkv.KV) error {
		return db.Reset()
	})
}

// Host is the configured charm server.
func (c *Client) Host() string { return c.cfg.Host }

// AutoSync reports whether writes are pushed immediately.
func (c *Client) AutoSync() bool { return c.cfg.AutoSync }

// Close releases the database. Further calls fail with ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// ID returns the charm account id of this machine's key.
func ID() (string, error) {
	cc, err := client.NewClientWithDefaults()
	if err != nil {
		return "", fmt.Errorf("failed to create charm client: %w", err)
	}
	return cc.ID()
}

// AuthorizedKeys lists the keys linked to the charm account.
func AuthorizedKeys() (string, error) {
	cc, err := client.NewClientWithDefaults()
	if err != nil {
		return "", fmt.Errorf("failed to create charm client: %w", err)
	}
	return cc.AuthorizedKeys()
}
