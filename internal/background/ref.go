// ABOUTME: Background reference union parsed from the selected-background slot
// ABOUTME: Color, gradient, stored image id or direct image URL
package background

import (
	"strings"

	"github.com/harper/newtab/internal/idgen"
)

// Ref is a parsed background reference. The concrete types are Color,
// Gradient, StoredImage and DirectURL.
type Ref interface {
	// String returns the raw form written to durable storage.
	String() string
	isRef()
}

// Color is a literal CSS color.
type Color string

// Gradient is a literal CSS linear-gradient expression.
type Gradient string

// StoredImage points at an entry of the background library.
type StoredImage struct {
	ID string
}

// DirectURL is an image that can be fetched as is.
type DirectURL string

func (c Color) String() string       { return string(c) }
func (g Gradient) String() string    { return string(g) }
func (s StoredImage) String() string { return s.ID }
func (u DirectURL) String() string   { return string(u) }

func (Color) isRef()       {}
func (Gradient) isRef()    {}
func (StoredImage) isRef() {}
func (DirectURL) isRef()   {}

const gradientPrefix = "linear-gradient"

// Parse classifies a raw stored reference. Empty input yields nil.
func Parse(raw string) Ref {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return nil
	case strings.HasPrefix(raw, "#"):
		return Color(raw)
	case strings.HasPrefix(raw, gradientPrefix):
		return Gradient(raw)
	case strings.HasPrefix(raw, idgen.BackgroundPrefix):
		return StoredImage{ID: raw}
	default:
		return DirectURL(raw)
	}
}
