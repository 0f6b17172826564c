// ABOUTME: Batch processing of an image folder
// ABOUTME: Sweeps old thumbnails, cleans names and regenerates thumbnails
package thumbnail

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Report summarizes a folder run.
type Report struct {
	Renamed  map[string]string   `json:"renamed"`
	ByFormat map[string][]string `json:"byFormat"`
	Created  []string            `json:"created"`
	Failed   map[string]string   `json:"failed"`
	Removed  []string            `json:"removed"`
}

// SweepStale removes every thumbnail in dir whose name is not in keep.
func SweepStale(dir string, keep map[string]bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	var removed []string
	for _, e := range entries {
		if e.IsDir() || !IsThumb(e.Name()) || keep[e.Name()] {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", e.Name(), err)
		}
		removed = append(removed, e.Name())
	}
	return removed, nil
}

// ProcessFolder rebuilds every thumbnail in dir. Per-file failures are
// recorded in the report and do not stop the run.
func (g *Generator) ProcessFolder(dir string) (*Report, error) {
	removed, err := SweepStale(dir, nil)
	if err != nil {
		return nil, err
	}
	rep := &Report{
		Renamed:  map[string]string{},
		ByFormat: map[string][]string{},
		Failed:   map[string]string{},
		Removed:  removed,
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	var images []string
	for _, e := range entries {
		if e.IsDir() || !Supported(e.Name()) {
			continue
		}
		name := e.Name()
		clean := CleanName(name)
		if clean != name {
			if _, err := os.Stat(filepath.Join(dir, clean)); err == nil {
				rep.Failed[name] = "cleaned name already exists: " + clean
				continue
			}
			if err := os.Rename(filepath.Join(dir, name), filepath.Join(dir, clean)); err != nil {
				rep.Failed[name] = err.Error()
				continue
			}
			rep.Renamed[name] = clean
		}
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(clean)), ".")
		rep.ByFormat[ext] = append(rep.ByFormat[ext], clean)
		images = append(images, clean)
	}
	sort.Strings(images)

	for _, name := range images {
		dst, err := g.Create(filepath.Join(dir, name), dir)
		if err != nil {
			g.Logger.Warn("failed to create thumbnail", "file", name, "err", err)
			rep.Failed[name] = err.Error()
			continue
		}
		rep.Created = append(rep.Created, filepath.Base(dst))
	}
	return rep, nil
}
