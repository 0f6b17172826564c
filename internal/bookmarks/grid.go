// ABOUTME: Bookmark tile grid stored in the bookmarks collection
// ABOUTME: Tiles reference host bookmark nodes and are ordered by position
package bookmarks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/harper/newtab/internal/idgen"
	"github.com/harper/newtab/internal/models"
	"github.com/harper/newtab/internal/settings"
	"github.com/harper/newtab/internal/sls"
)

// Descriptor declares the bookmark tiles collection.
var Descriptor = sls.Descriptor{
	Name:       "bookmarksDB",
	Collection: "bookmarks",
	Version:    1,
	PrimaryKey: "id",
	Indexes: []sls.Index{
		{Name: "position", Field: "position"},
		{Name: "bookmarkId", Field: "bookmarkId"},
	},
}

var (
	ErrGridFull     = errors.New("bookmarks: tile grid is full")
	ErrTileNotFound = errors.New("bookmarks: no such tile")
)

// Prefs are the grid preferences kept in the collection's preferences slot.
type Prefs struct {
	ShowTitles bool   `json:"showTitles" yaml:"showTitles"`
	OpenInNew  bool   `json:"openInNewTab" yaml:"openInNewTab"`
	FolderID   string `json:"folderId,omitempty" yaml:"folderId,omitempty"`
}

// DefaultPrefs is used when nothing has been saved.
func DefaultPrefs() Prefs {
	return Prefs{ShowTitles: true}
}

// TileUpdate carries the editable tile fields; nil means unchanged.
type TileUpdate struct {
	Title *string
	Color *string
	Icon  *string
}

// Grid manages the tile records.
type Grid struct {
	store    *sls.Store[models.Tile]
	tree     Tree
	capacity func() int
	logger   *log.Logger
	newID    idgen.Generator
	now      func() models.Timestamp
}

// Option configures a Grid.
type Option func(*Grid)

func WithLogger(l *log.Logger) Option {
	return func(g *Grid) { g.logger = l }
}

// WithCapacity sets the source of the maximum tile count, usually the
// tile grid size setting.
func WithCapacity(fn func() int) Option {
	return func(g *Grid) { g.capacity = fn }
}

func WithIDGenerator(gen idgen.Generator) Option {
	return func(g *Grid) { g.newID = gen }
}

func WithClock(now func() models.Timestamp) Option {
	return func(g *Grid) { g.now = now }
}

// NewGrid wraps an open tiles store.
func NewGrid(store *sls.Store[models.Tile], tree Tree, opts ...Option) *Grid {
	g := &Grid{
		store:    store,
		tree:     tree,
		capacity: func() int { return settings.Defaults().TileSize },
		logger:   log.New(io.Discard),
		newID:    idgen.Tile,
		now:      models.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// OpenGrid opens the tiles collection through r.
func OpenGrid(ctx context.Context, r *sls.Registry, tree Tree, opts ...Option) (*Grid, error) {
	store, err := sls.OpenStore[models.Tile](ctx, r, Descriptor)
	if err != nil {
		return nil, err
	}
	return NewGrid(store, tree, opts...), nil
}

// Store exposes the underlying collection for export and import.
func (g *Grid) Store() *sls.Store[models.Tile] {
	return g.store
}

// Capacity is the current maximum number of tiles.
func (g *Grid) Capacity() int {
	return g.capacity()
}

// List returns tiles ordered by position.
func (g *Grid) List(ctx context.Context) ([]models.Tile, error) {
	tiles, err := g.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	sortTiles(tiles)
	return tiles, nil
}

// Add pins a bookmark or folder to the first free grid position.
func (g *Grid) Add(ctx context.Context, bookmarkID string) (*models.Tile, error) {
	node, err := g.tree.GetSubTree(ctx, bookmarkID)
	if err != nil {
		return nil, err
	}
	if node.ID == RootID {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, bookmarkID)
	}

	tiles, err := g.List(ctx)
	if err != nil {
		return nil, err
	}
	pos, ok := firstFree(tiles, g.capacity())
	if !ok {
		return nil, fmt.Errorf("%w: %d of %d slots used", ErrGridFull, len(tiles), g.capacity())
	}

	tile := models.Tile{
		ID:         g.newID(),
		Kind:       models.TileBookmark,
		BookmarkID: node.ID,
		Title:      node.Title,
		URL:        node.URL,
		Position:   pos,
		CreatedAt:  g.now(),
	}
	if node.IsFolder() {
		tile.Kind = models.TileFolder
	}
	if _, err := g.store.Put(ctx, tile); err != nil {
		return nil, fmt.Errorf("failed to save tile: %w", err)
	}
	g.logger.Info("added tile", "id", tile.ID, "bookmark", node.ID, "position", pos)
	return &tile, nil
}

// Remove unpins a tile. Unknown ids are ignored.
func (g *Grid) Remove(ctx context.Context, id string) error {
	return g.store.Delete(ctx, id)
}

// Move places a tile at pos and renumbers the rest in one batch.
func (g *Grid) Move(ctx context.Context, id string, pos int) ([]models.Tile, error) {
	tiles, err := g.List(ctx)
	if err != nil {
		return nil, err
	}
	from := -1
	for i, t := range tiles {
		if t.ID == id {
			from = i
			break
		}
	}
	if from < 0 {
		return nil, fmt.Errorf("%w: %s", ErrTileNotFound, id)
	}

	moved := tiles[from]
	rest := append(append([]models.Tile{}, tiles[:from]...), tiles[from+1:]...)
	if pos < 0 {
		pos = 0
	}
	if pos > len(rest) {
		pos = len(rest)
	}
	ordered := make([]models.Tile, 0, len(tiles))
	ordered = append(ordered, rest[:pos]...)
	ordered = append(ordered, moved)
	ordered = append(ordered, rest[pos:]...)
	for i := range ordered {
		ordered[i].Position = i
	}

	if _, err := g.store.PutMany(ctx, ordered); err != nil {
		return nil, fmt.Errorf("failed to reorder tiles: %w", err)
	}
	return ordered, nil
}

// Update edits title, color or icon of a tile.
func (g *Grid) Update(ctx context.Context, id string, upd TileUpdate) (*models.Tile, error) {
	tile, err := g.store.GetByKey(ctx, id)
	if err != nil {
		return nil, err
	}
	if tile == nil {
		return nil, fmt.Errorf("%w: %s", ErrTileNotFound, id)
	}
	if upd.Color != nil && *upd.Color != "" {
		if err := settings.ValidateColor(*upd.Color); err != nil {
			return nil, err
		}
	}
	if upd.Title != nil {
		tile.Title = *upd.Title
	}
	if upd.Color != nil {
		tile.Color = *upd.Color
	}
	if upd.Icon != nil {
		tile.Icon = *upd.Icon
	}
	if _, err := g.store.Put(ctx, *tile); err != nil {
		return nil, fmt.Errorf("failed to save tile: %w", err)
	}
	return tile, nil
}

// Picker flattens the host tree for choosing what to pin.
func (g *Grid) Picker(ctx context.Context) ([]PickerEntry, error) {
	root, err := g.tree.GetTree(ctx)
	if err != nil {
		return nil, err
	}
	return Flatten(root), nil
}

// Prefs loads the grid preferences, defaults when none were saved.
func (g *Grid) Prefs(ctx context.Context) (Prefs, error) {
	p := DefaultPrefs()
	found, err := g.store.LoadPreferences(ctx, &p)
	if err != nil {
		g.logger.Warn("failed to load grid preferences", "err", err)
		return DefaultPrefs(), err
	}
	if !found {
		return DefaultPrefs(), nil
	}
	return p, nil
}

// SavePrefs stores the grid preferences.
func (g *Grid) SavePrefs(ctx context.Context, p Prefs) error {
	_, err := g.store.SavePreferences(ctx, p)
	return err
}

func sortTiles(tiles []models.Tile) {
	sort.SliceStable(tiles, func(i, j int) bool {
		if tiles[i].Position != tiles[j].Position {
			return tiles[i].Position < tiles[j].Position
		}
		return tiles[i].CreatedAt.Before(tiles[j].CreatedAt.Time)
	})
}

func firstFree(tiles []models.Tile, capacity int) (int, bool) {
	if len(tiles) >= capacity {
		return 0, false
	}
	used := make(map[int]bool, len(tiles))
	for _, t := range tiles {
		used[t.Position] = true
	}
	for i := 0; i < capacity; i++ {
		if !used[i] {
			return i, true
		}
	}
	return 0, false
}
