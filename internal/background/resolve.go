// ABOUTME: Resolution of background references into something renderable
// ABOUTME: Only stored image ids touch storage; misses keep the current background
package background

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"github.com/harper/newtab/internal/models"
)

// RenderKind is what the presentation layer has to paint.
type RenderKind string

const (
	RenderNone     RenderKind = ""
	RenderColor    RenderKind = "color"
	RenderGradient RenderKind = "gradient"
	RenderImage    RenderKind = "image"
)

// Renderable is a resolved background.
type Renderable struct {
	Kind      RenderKind `json:"kind"`
	Value     string     `json:"value"`
	Thumbnail string     `json:"thumbnail,omitempty"`
}

// IsZero reports whether nothing has been resolved yet.
func (r Renderable) IsZero() bool {
	return r.Kind == RenderNone
}

// ImageLookup finds a stored background by id. A nil entry with a nil
// error means the id is unknown.
type ImageLookup interface {
	Lookup(ctx context.Context, id string) (*models.Background, error)
}

// Resolver turns references into renderables.
type Resolver struct {
	images ImageLookup
	logger *log.Logger
}

// NewResolver returns a resolver backed by images.
func NewResolver(images ImageLookup, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Resolver{images: images, logger: logger}
}

// Resolve returns the renderable for ref. When a stored image cannot be
// found, current is returned unchanged.
func (r *Resolver) Resolve(ctx context.Context, ref Ref, current Renderable) Renderable {
	switch v := ref.(type) {
	case Color:
		return Renderable{Kind: RenderColor, Value: string(v)}
	case Gradient:
		return Renderable{Kind: RenderGradient, Value: string(v)}
	case DirectURL:
		return Renderable{Kind: RenderImage, Value: string(v)}
	case StoredImage:
		if r.images == nil {
			r.logger.Warn("no image library to resolve background", "id", v.ID)
			return current
		}
		bg, err := r.images.Lookup(ctx, v.ID)
		if err != nil {
			r.logger.Warn("failed to look up background", "id", v.ID, "err", err)
			return current
		}
		if bg == nil {
			r.logger.Warn("background not found, keeping current", "id", v.ID)
			return current
		}
		return Renderable{Kind: RenderImage, Value: bg.URL, Thumbnail: bg.Thumbnail}
	default:
		return current
	}
}
