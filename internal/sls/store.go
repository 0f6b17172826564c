// ABOUTME: Typed record store layered over a raw collection
// ABOUTME: JSON encoding of records plus the reserved single-record preferences slot
package sls

import (
	"context"
	"encoding/json"
	"fmt"
)

// PreferencesKey is the reserved primary-key value of the preferences slot.
const PreferencesKey = "userPreferences"

// Store is a collection of records of type T. T must encode to a JSON object
// that carries the collection's primary key field.
type Store[T any] struct {
	c *Collection
}

// NewStore wraps an open collection.
func NewStore[T any](c *Collection) *Store[T] {
	return &Store[T]{c: c}
}

// OpenStore opens desc through r and wraps it.
func OpenStore[T any](ctx context.Context, r *Registry, desc Descriptor) (*Store[T], error) {
	c, err := r.Open(ctx, desc)
	if err != nil {
		return nil, err
	}
	return NewStore[T](c), nil
}

// Collection exposes the untyped collection.
func (s *Store[T]) Collection() *Collection {
	return s.c
}

// Put upserts rec and returns its key.
func (s *Store[T]) Put(ctx context.Context, rec T) (string, error) {
	doc, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("sls: encode record: %w", err)
	}
	return s.c.Put(ctx, doc)
}

// PutMany upserts recs in one transaction.
func (s *Store[T]) PutMany(ctx context.Context, recs []T) ([]string, error) {
	docs := make([][]byte, 0, len(recs))
	for _, rec := range recs {
		doc, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("sls: encode record: %w", err)
		}
		docs = append(docs, doc)
	}
	return s.c.PutMany(ctx, docs)
}

// DistinctKeys counts the records a PutMany left behind; later upserts of
// a key inside one batch replace earlier ones.
func DistinctKeys(keys []string) int {
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		seen[k] = struct{}{}
	}
	return len(seen)
}

// GetAll decodes every record except the preferences slot.
func (s *Store[T]) GetAll(ctx context.Context) ([]T, error) {
	recs, err := s.c.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		if rec.Key == PreferencesKey {
			continue
		}
		var v T
		if err := json.Unmarshal(rec.Doc, &v); err != nil {
			return nil, fmt.Errorf("sls: decode %s/%s: %w", s.c.desc.Name, rec.Key, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// GetByKey returns the record stored under key, or nil when there is none.
func (s *Store[T]) GetByKey(ctx context.Context, key string) (*T, error) {
	doc, found, err := s.c.Get(ctx, key)
	if err != nil || !found {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(doc, &v); err != nil {
		return nil, fmt.Errorf("sls: decode %s/%s: %w", s.c.desc.Name, key, err)
	}
	return &v, nil
}

// Delete removes key; absent keys are ignored.
func (s *Store[T]) Delete(ctx context.Context, key string) error {
	return s.c.Delete(ctx, key)
}

// SavePreferences writes v, which must encode to a JSON object, into the
// preferences slot of this collection.
func (s *Store[T]) SavePreferences(ctx context.Context, v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("sls: encode preferences: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return "", fmt.Errorf("sls: preferences must be a JSON object")
	}
	key, _ := json.Marshal(PreferencesKey)
	fields[s.c.desc.PrimaryKey] = key

	doc, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("sls: encode preferences: %w", err)
	}
	return s.c.Put(ctx, doc)
}

// LoadPreferences decodes the preferences slot into dest. found is false when
// nothing was saved yet.
func (s *Store[T]) LoadPreferences(ctx context.Context, dest any) (found bool, err error) {
	doc, found, err := s.c.Get(ctx, PreferencesKey)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(doc, dest); err != nil {
		return false, fmt.Errorf("sls: decode preferences: %w", err)
	}
	return true, nil
}
