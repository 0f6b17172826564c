// ABOUTME: Logical database descriptors for the structured local store
// ABOUTME: Name, collection, schema version, primary key field and secondary indexes
package sls

import (
	"fmt"
	"regexp"
	"strings"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Index declares a secondary index over one record field.
// Indexes only speed up lookups; correctness never depends on them.
type Index struct {
	Name   string
	Field  string
	Unique bool
}

// Descriptor identifies one durable collection.
type Descriptor struct {
	// Name is the logical database name, unique per process.
	Name string
	// Collection is the single object collection inside the database.
	Collection string
	// Version is the schema version; raising it runs the upgrade path.
	Version int
	// PrimaryKey names the record field that uniquely identifies each record.
	PrimaryKey string
	Indexes    []Index
}

// Validate checks that every identifier is usable as a SQLite name.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: empty database name", ErrInvalidDescriptor)
	}
	if strings.ContainsAny(d.Name, `/\`) || d.Name == "." || d.Name == ".." {
		return fmt.Errorf("%w: database name %q is not a plain name", ErrInvalidDescriptor, d.Name)
	}
	if !identPattern.MatchString(d.Collection) {
		return fmt.Errorf("%w: collection name %q", ErrInvalidDescriptor, d.Collection)
	}
	if d.Version < 1 {
		return fmt.Errorf("%w: schema version must be positive, got %d", ErrInvalidDescriptor, d.Version)
	}
	if !identPattern.MatchString(d.PrimaryKey) {
		return fmt.Errorf("%w: primary key field %q", ErrInvalidDescriptor, d.PrimaryKey)
	}
	seen := make(map[string]bool, len(d.Indexes))
	for _, idx := range d.Indexes {
		if !identPattern.MatchString(idx.Name) || !identPattern.MatchString(idx.Field) {
			return fmt.Errorf("%w: index %q on field %q", ErrInvalidDescriptor, idx.Name, idx.Field)
		}
		if seen[idx.Name] {
			return fmt.Errorf("%w: duplicate index %q", ErrInvalidDescriptor, idx.Name)
		}
		seen[idx.Name] = true
	}
	return nil
}

func (d Descriptor) equal(o Descriptor) bool {
	if d.Name != o.Name || d.Collection != o.Collection || d.Version != o.Version || d.PrimaryKey != o.PrimaryKey {
		return false
	}
	if len(d.Indexes) != len(o.Indexes) {
		return false
	}
	for i := range d.Indexes {
		if d.Indexes[i] != o.Indexes[i] {
			return false
		}
	}
	return true
}

// schema returns the additive statements that bring a database up to d.
// Every statement is IF NOT EXISTS; nothing is ever dropped.
func (d Descriptor) schema() []string {
	table := quoteIdent(d.Collection)
	stmts := []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    pk TEXT PRIMARY KEY,
    doc TEXT NOT NULL,
    updated_at INTEGER NOT NULL
)`, table)}

	for _, idx := range d.Indexes {
		unique := ""
		if idx.Unique {
			unique = "UNIQUE "
		}
		stmts = append(stmts, fmt.Sprintf(
			`CREATE %sINDEX IF NOT EXISTS %s ON %s (json_extract(doc, '$.%s'))`,
			unique, quoteIdent(d.Collection+"_"+idx.Name), table, idx.Field,
		))
	}
	return stmts
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
