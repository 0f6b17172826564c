// ABOUTME: Bookmark tile record stored in the bookmarks collection
// ABOUTME: References a host bookmark node by id, never the node itself
package models

import "errors"

// TileKind says whether a tile opens a bookmark or a folder.
type TileKind string

const (
	TileBookmark TileKind = "bookmark"
	TileFolder   TileKind = "folder"
)

// Tile is one slot in the bookmark grid.
type Tile struct {
	ID         string    `json:"id" yaml:"id"`
	Kind       TileKind  `json:"type" yaml:"type"`
	BookmarkID string    `json:"bookmarkId" yaml:"bookmarkId"`
	Title      string    `json:"title" yaml:"title"`
	URL        string    `json:"url,omitempty" yaml:"url,omitempty"`
	Color      string    `json:"color,omitempty" yaml:"color,omitempty"`
	Icon       string    `json:"icon,omitempty" yaml:"icon,omitempty"`
	Position   int       `json:"position" yaml:"position"`
	CreatedAt  Timestamp `json:"createdAt" yaml:"createdAt"`
}

// Validate checks if the Tile has valid data
func (t *Tile) Validate() error {
	if t.ID == "" {
		return errors.New("tile ID cannot be empty")
	}
	if t.BookmarkID == "" {
		return errors.New("tile must reference a bookmark node")
	}
	if t.Kind != TileBookmark && t.Kind != TileFolder {
		return errors.New("invalid tile type")
	}
	if t.Position < 0 {
		return errors.New("position cannot be negative")
	}
	return nil
}
