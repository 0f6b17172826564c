// ABOUTME: Background library entry stored in the backgrounds collection
// ABOUTME: Either a remote URL or an uploaded file copied into the data dir
package models

import "errors"

// BackgroundKind distinguishes how the image was added.
type BackgroundKind string

const (
	BackgroundURL    BackgroundKind = "url"
	BackgroundUpload BackgroundKind = "upload"
)

// Background is one image in the user's background library.
type Background struct {
	ID        string         `json:"id" yaml:"id"`
	URL       string         `json:"url" yaml:"url"`
	IsBlob    bool           `json:"isBlob" yaml:"isBlob"`
	Kind      BackgroundKind `json:"type" yaml:"type"`
	CreatedAt Timestamp      `json:"createdAt" yaml:"createdAt"`
	Thumbnail string         `json:"thumbnail,omitempty" yaml:"thumbnail,omitempty"`
	Name      string         `json:"name,omitempty" yaml:"name,omitempty"`
}

// Validate checks if the Background has valid data
func (b *Background) Validate() error {
	if b.ID == "" {
		return errors.New("background ID cannot be empty")
	}
	if b.URL == "" {
		return errors.New("background URL cannot be empty")
	}
	if b.Kind != BackgroundURL && b.Kind != BackgroundUpload {
		return errors.New("invalid background type")
	}
	return nil
}
