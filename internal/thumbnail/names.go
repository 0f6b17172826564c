// ABOUTME: File name helpers for uploaded backgrounds and their thumbnails
// ABOUTME: Cleans names and derives the <name>_thumb<ext> convention
package thumbnail

import (
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
)

// ThumbSuffix marks generated thumbnails.
const ThumbSuffix = "_thumb"

// CleanName strips spaces and parentheses and slugifies the base name.
// The extension is kept, lowercased.
func CleanName(name string) string {
	name = filepath.Base(name)
	ext := strings.ToLower(filepath.Ext(name))
	base := strings.TrimSuffix(name, filepath.Ext(name))

	base = strings.NewReplacer(" ", "", "(", "", ")", "").Replace(base)
	base = slug.Make(base)
	if base == "" {
		base = "image"
	}
	return base + ext
}

// ThumbName returns the thumbnail file name for an image file name.
func ThumbName(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(filepath.Base(name), ext)
	return base + ThumbSuffix + thumbExt(ext)
}

// IsThumb reports whether name looks like a generated thumbnail.
func IsThumb(name string) bool {
	return strings.Contains(filepath.Base(name), ThumbSuffix)
}

// thumbExt maps source extensions to what we can encode.
func thumbExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".webp":
		return ".png"
	default:
		return ext
	}
}
