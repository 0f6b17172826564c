// ABOUTME: Background library over the backgrounds collection
// ABOUTME: Adds URL and uploaded images, tracks the selected background slot
package background

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/harper/newtab/internal/idgen"
	"github.com/harper/newtab/internal/kv"
	"github.com/harper/newtab/internal/models"
	"github.com/harper/newtab/internal/settings"
	"github.com/harper/newtab/internal/sls"
	"github.com/harper/newtab/internal/thumbnail"
)

// KeySelected is the slot holding the raw selected reference.
const KeySelected = "selectedBackground"

// DefaultMaxUploadBytes caps uploaded images.
const DefaultMaxUploadBytes int64 = 10 << 20

// Descriptor declares the backgrounds collection.
var Descriptor = sls.Descriptor{
	Name:       "backgroundsDB",
	Collection: "backgrounds",
	Version:    2,
	PrimaryKey: "id",
	Indexes: []sls.Index{
		{Name: "createdAt", Field: "createdAt"},
	},
}

var (
	ErrInvalidURL      = errors.New("background: image URL must be an absolute http or https URL")
	ErrTooLarge        = errors.New("background: image exceeds the upload size limit")
	ErrUnsupportedType = errors.New("background: file is not a png, jpeg, gif or webp image")
	ErrNotFound        = errors.New("background: no such background")
	ErrInvalidGradient = errors.New("background: gradient must look like linear-gradient(...)")
)

var imageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// Library manages stored backgrounds and the current selection.
type Library struct {
	store    *sls.Store[models.Background]
	slots    kv.Store
	dir      string
	maxBytes int64
	thumbs   *thumbnail.Generator
	resolver *Resolver
	logger   *log.Logger
	newID    idgen.Generator
	now      func() models.Timestamp
}

// Option configures a Library.
type Option func(*Library)

func WithLogger(l *log.Logger) Option {
	return func(lib *Library) { lib.logger = l }
}

func WithMaxUploadBytes(n int64) Option {
	return func(lib *Library) {
		if n > 0 {
			lib.maxBytes = n
		}
	}
}

func WithThumbnailer(g *thumbnail.Generator) Option {
	return func(lib *Library) { lib.thumbs = g }
}

func WithIDGenerator(gen idgen.Generator) Option {
	return func(lib *Library) { lib.newID = gen }
}

func WithClock(now func() models.Timestamp) Option {
	return func(lib *Library) { lib.now = now }
}

// NewLibrary wraps an open backgrounds store. Uploaded files go to dir.
func NewLibrary(store *sls.Store[models.Background], slots kv.Store, dir string, opts ...Option) *Library {
	lib := &Library{
		store:    store,
		slots:    slots,
		dir:      dir,
		maxBytes: DefaultMaxUploadBytes,
		logger:   log.New(io.Discard),
		newID:    idgen.Background,
		now:      models.Now,
	}
	for _, opt := range opts {
		opt(lib)
	}
	if lib.thumbs == nil {
		lib.thumbs = thumbnail.New(thumbnail.DefaultScale, lib.logger)
	}
	lib.resolver = NewResolver(lib, lib.logger)
	return lib
}

// OpenLibrary opens the backgrounds collection through r.
func OpenLibrary(ctx context.Context, r *sls.Registry, slots kv.Store, dir string, opts ...Option) (*Library, error) {
	store, err := sls.OpenStore[models.Background](ctx, r, Descriptor)
	if err != nil {
		return nil, err
	}
	return NewLibrary(store, slots, dir, opts...), nil
}

// Store exposes the underlying collection for export and import.
func (l *Library) Store() *sls.Store[models.Background] {
	return l.store
}

// Resolver returns the resolver backed by this library.
func (l *Library) Resolver() *Resolver {
	return l.resolver
}

// Lookup implements ImageLookup.
func (l *Library) Lookup(ctx context.Context, id string) (*models.Background, error) {
	return l.store.GetByKey(ctx, id)
}

// AddURL stores a remote image.
func (l *Library) AddURL(ctx context.Context, raw string) (*models.Background, error) {
	u, err := validateURL(raw)
	if err != nil {
		return nil, err
	}
	bg := models.Background{
		ID:        l.newID(),
		URL:       u,
		Kind:      models.BackgroundURL,
		CreatedAt: l.now(),
	}
	if _, err := l.store.Put(ctx, bg); err != nil {
		return nil, fmt.Errorf("failed to save background: %w", err)
	}
	l.logger.Info("added background", "id", bg.ID, "url", bg.URL)
	return &bg, nil
}

// AddFile copies a local image into the library and thumbnails it.
func (l *Library) AddFile(ctx context.Context, path string) (*models.Background, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrUnsupportedType, path)
	}
	if info.Size() > l.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, info.Size(), l.maxBytes)
	}
	if !thumbnail.Supported(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Base(path))
	}
	if err := sniffImage(path); err != nil {
		return nil, err
	}

	id := l.newID()
	name := thumbnail.CleanName(path)
	if _, err := os.Stat(filepath.Join(l.dir, name)); err == nil {
		name = id + "-" + name
	}
	dst := filepath.Join(l.dir, name)
	if err := copyFile(path, dst); err != nil {
		return nil, err
	}

	bg := models.Background{
		ID:        id,
		URL:       fileURL(dst),
		IsBlob:    true,
		Kind:      models.BackgroundUpload,
		CreatedAt: l.now(),
		Name:      name,
	}
	if thumb, err := l.thumbs.Create(dst, l.dir); err != nil {
		l.logger.Warn("failed to create thumbnail", "file", name, "err", err)
	} else {
		bg.Thumbnail = fileURL(thumb)
	}

	if _, err := l.store.Put(ctx, bg); err != nil {
		_ = os.Remove(dst)
		if bg.Thumbnail != "" {
			_ = os.Remove(filepath.Join(l.dir, thumbnail.ThumbName(name)))
		}
		return nil, fmt.Errorf("failed to save background: %w", err)
	}
	l.logger.Info("added background", "id", bg.ID, "file", name)
	return &bg, nil
}

// List returns every background, newest first.
func (l *Library) List(ctx context.Context) ([]models.Background, error) {
	all, err := l.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt.Time)
	})
	return all, nil
}

// Delete removes a background and its files. Unknown ids are ignored.
func (l *Library) Delete(ctx context.Context, id string) error {
	bg, err := l.store.GetByKey(ctx, id)
	if err != nil {
		return err
	}
	if err := l.store.Delete(ctx, id); err != nil {
		return err
	}
	if bg == nil {
		return nil
	}

	if bg.IsBlob && bg.Name != "" {
		for _, name := range []string{bg.Name, thumbnail.ThumbName(bg.Name)} {
			if err := os.Remove(filepath.Join(l.dir, name)); err != nil && !os.IsNotExist(err) {
				l.logger.Warn("failed to remove background file", "file", name, "err", err)
			}
		}
	}

	if sel, err := l.slots.Get(KeySelected); err == nil && sel == id {
		if err := l.slots.Delete(KeySelected); err != nil {
			return fmt.Errorf("failed to clear selection: %w", err)
		}
	}
	l.logger.Info("deleted background", "id", id)
	return nil
}

// Select validates raw and stores it as the current background. An empty
// value clears the selection.
func (l *Library) Select(ctx context.Context, raw string) (Ref, error) {
	ref := Parse(raw)
	switch v := ref.(type) {
	case nil:
		return nil, l.slots.Delete(KeySelected)
	case Color:
		if err := settings.ValidateColor(string(v)); err != nil {
			return nil, err
		}
	case Gradient:
		s := string(v)
		if !strings.HasPrefix(s, gradientPrefix+"(") || !strings.HasSuffix(s, ")") {
			return nil, ErrInvalidGradient
		}
	case StoredImage:
		bg, err := l.store.GetByKey(ctx, v.ID)
		if err != nil {
			return nil, err
		}
		if bg == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, v.ID)
		}
	case DirectURL:
		u, err := validateURL(string(v))
		if err != nil {
			return nil, err
		}
		ref = DirectURL(u)
	}
	if err := l.slots.Set(KeySelected, ref.String()); err != nil {
		return nil, fmt.Errorf("failed to save selection: %w", err)
	}
	return ref, nil
}

// Selected returns the stored reference, nil when nothing is selected.
func (l *Library) Selected() (Ref, error) {
	raw, err := l.slots.Get(KeySelected)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return Parse(raw), nil
}

// Current resolves the selected background. Any failure keeps prev.
func (l *Library) Current(ctx context.Context, prev Renderable) Renderable {
	ref, err := l.Selected()
	if err != nil {
		l.logger.Warn("failed to read selected background", "err", err)
		return prev
	}
	if ref == nil {
		return prev
	}
	return l.resolver.Resolve(ctx, ref, prev)
}

// RegenerateThumbnails rebuilds thumbnails of uploaded images and removes
// thumbnails that no entry owns. It returns how many were written.
func (l *Library) RegenerateThumbnails(ctx context.Context) (int, error) {
	all, err := l.store.GetAll(ctx)
	if err != nil {
		return 0, err
	}

	keep := make(map[string]bool)
	var updated []models.Background
	for _, bg := range all {
		if !bg.IsBlob || bg.Name == "" {
			continue
		}
		thumb, err := l.thumbs.Create(filepath.Join(l.dir, bg.Name), l.dir)
		if err != nil {
			l.logger.Warn("failed to create thumbnail", "id", bg.ID, "err", err)
			continue
		}
		keep[filepath.Base(thumb)] = true
		bg.Thumbnail = fileURL(thumb)
		updated = append(updated, bg)
	}

	if len(updated) > 0 {
		if _, err := l.store.PutMany(ctx, updated); err != nil {
			return 0, err
		}
	}
	if _, err := os.Stat(l.dir); err == nil {
		removed, err := thumbnail.SweepStale(l.dir, keep)
		if err != nil {
			return len(updated), err
		}
		if len(removed) > 0 {
			l.logger.Debug("removed stale thumbnails", "count", len(removed))
		}
	}
	return len(updated), nil
}

func validateURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return u.String(), nil
}

func sniffImage(path string) error {
	f, err := os.Open(path) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read image: %w", err)
	}
	if ct := http.DetectContentType(head[:n]); !imageTypes[ct] {
		return fmt.Errorf("%w: detected %s", ErrUnsupportedType, ct)
	}
	return nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create background dir: %w", err)
	}
	in, err := os.Open(src) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(dst), err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("failed to copy image: %w", err)
	}
	return out.Close()
}

func fileURL(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}
