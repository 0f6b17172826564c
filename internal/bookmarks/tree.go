// ABOUTME: Read-only access to the host browser's bookmark tree
// ABOUTME: Chromium Bookmarks file reader plus an in-memory tree
package bookmarks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrNodeNotFound is returned for ids that are not in the tree.
var ErrNodeNotFound = errors.New("bookmarks: no such bookmark node")

// RootID is the id of the synthetic node holding the top-level folders.
const RootID = "0"

// Node is a bookmark or a folder. Folders have no URL.
type Node struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	URL      string  `json:"url,omitempty"`
	Children []*Node `json:"children,omitempty"`
}

// IsFolder reports whether the node is a folder.
func (n *Node) IsFolder() bool {
	return n.URL == ""
}

// Find returns the node with id in the subtree rooted at n.
func (n *Node) Find(id string) *Node {
	if n.ID == id {
		return n
	}
	for _, c := range n.Children {
		if found := c.Find(id); found != nil {
			return found
		}
	}
	return nil
}

// Tree is the host bookmark tree. It is never written to.
type Tree interface {
	GetTree(ctx context.Context) (*Node, error)
	GetSubTree(ctx context.Context, id string) (*Node, error)
}

// StaticTree serves a fixed tree.
type StaticTree struct {
	root *Node
}

// NewStaticTree wraps top-level folders under a synthetic root.
func NewStaticTree(children ...*Node) *StaticTree {
	return &StaticTree{root: &Node{ID: RootID, Children: children}}
}

func (s *StaticTree) GetTree(context.Context) (*Node, error) {
	return s.root, nil
}

func (s *StaticTree) GetSubTree(_ context.Context, id string) (*Node, error) {
	if n := s.root.Find(id); n != nil {
		return n, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
}

// ChromeTree reads a Chromium profile Bookmarks file on every call.
type ChromeTree struct {
	path string
}

// NewChromeTree returns a tree backed by the Bookmarks file at path.
func NewChromeTree(path string) *ChromeTree {
	return &ChromeTree{path: path}
}

// Path returns the Bookmarks file location.
func (c *ChromeTree) Path() string {
	return c.path
}

type chromeFile struct {
	Roots map[string]chromeNode `json:"roots"`
}

type chromeNode struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Type     string       `json:"type"`
	URL      string       `json:"url"`
	Children []chromeNode `json:"children"`
}

// chromeRoots is the order Chromium shows its top-level folders in.
var chromeRoots = []string{"bookmark_bar", "other", "synced"}

func (c *ChromeTree) GetTree(ctx context.Context) (*Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(c.path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to read bookmarks file: %w", err)
	}
	var f chromeFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse bookmarks file: %w", err)
	}

	root := &Node{ID: RootID}
	for _, name := range chromeRoots {
		if n, ok := f.Roots[name]; ok && n.ID != "" {
			root.Children = append(root.Children, n.convert())
		}
	}
	return root, nil
}

func (c *ChromeTree) GetSubTree(ctx context.Context, id string) (*Node, error) {
	root, err := c.GetTree(ctx)
	if err != nil {
		return nil, err
	}
	if n := root.Find(id); n != nil {
		return n, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
}

func (n chromeNode) convert() *Node {
	out := &Node{ID: n.ID, Title: n.Name}
	if n.Type == "url" {
		out.URL = n.URL
		return out
	}
	for _, c := range n.Children {
		out.Children = append(out.Children, c.convert())
	}
	return out
}

// PickerEntry is one row of the flattened folder/bookmark picker.
type PickerEntry struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	URL    string `json:"url,omitempty"`
	Folder bool   `json:"folder"`
	Depth  int    `json:"depth"`
}

// Flatten lists every node below root in display order.
func Flatten(root *Node) []PickerEntry {
	var out []PickerEntry
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		for _, c := range n.Children {
			out = append(out, PickerEntry{
				ID:     c.ID,
				Title:  c.Title,
				URL:    c.URL,
				Folder: c.IsFolder(),
				Depth:  depth,
			})
			walk(c, depth+1)
		}
	}
	walk(root, 0)
	return out
}
