// ABOUTME: Raw JSON document collection backed by one SQLite table
// ABOUTME: Upsert, batch upsert, full scan, point lookup and idempotent delete
package sls

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Record is one stored document and its primary key.
type Record struct {
	Key string
	Doc json.RawMessage
}

// Collection is the durable collection of one logical database.
// It is safe for concurrent use; ordering between un-awaited calls is up to the engine.
type Collection struct {
	db   *sql.DB
	desc Descriptor
}

// Descriptor returns the descriptor the collection was opened with.
func (c *Collection) Descriptor() Descriptor {
	return c.desc
}

// Put inserts or replaces doc by its primary key and returns the key.
func (c *Collection) Put(ctx context.Context, doc []byte) (string, error) {
	key, err := c.keyOf(doc)
	if err != nil {
		return "", err
	}
	if _, err := c.db.ExecContext(ctx, c.upsertSQL(), key, string(doc), time.Now().UnixMilli()); err != nil {
		return "", fmt.Errorf("sls: put %s/%s: %w", c.desc.Name, key, err)
	}
	return key, nil
}

// PutMany upserts docs in one transaction. Either every record is written or none.
func (c *Collection) PutMany(ctx context.Context, docs [][]byte) ([]string, error) {
	keys := make([]string, 0, len(docs))
	for _, doc := range docs {
		key, err := c.keyOf(doc)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sls: begin batch on %s: %w", c.desc.Name, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, c.upsertSQL())
	if err != nil {
		return nil, fmt.Errorf("sls: prepare batch on %s: %w", c.desc.Name, err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UnixMilli()
	for i, doc := range docs {
		if _, err := stmt.ExecContext(ctx, keys[i], string(doc), now); err != nil {
			return nil, fmt.Errorf("sls: put %s/%s: %w", c.desc.Name, keys[i], err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sls: commit batch on %s: %w", c.desc.Name, err)
	}
	return keys, nil
}

// GetAll returns every record in the collection. Order is unspecified.
func (c *Collection) GetAll(ctx context.Context) ([]Record, error) {
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(`SELECT pk, doc FROM %s`, quoteIdent(c.desc.Collection)))
	if err != nil {
		return nil, fmt.Errorf("sls: scan %s: %w", c.desc.Name, err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]Record, 0)
	for rows.Next() {
		var (
			rec Record
			doc string
		)
		if err := rows.Scan(&rec.Key, &doc); err != nil {
			return nil, fmt.Errorf("sls: scan %s: %w", c.desc.Name, err)
		}
		rec.Doc = json.RawMessage(doc)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Get looks up one record. A missing key is reported through found, not an error.
func (c *Collection) Get(ctx context.Context, key string) (doc json.RawMessage, found bool, err error) {
	var raw string
	err = c.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT doc FROM %s WHERE pk = ?`, quoteIdent(c.desc.Collection)), key,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sls: get %s/%s: %w", c.desc.Name, key, err)
	}
	return json.RawMessage(raw), true, nil
}

// Delete removes key. Deleting an absent key is not an error.
func (c *Collection) Delete(ctx context.Context, key string) error {
	_, err := c.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE pk = ?`, quoteIdent(c.desc.Collection)), key)
	if err != nil {
		return fmt.Errorf("sls: delete %s/%s: %w", c.desc.Name, key, err)
	}
	return nil
}

func (c *Collection) upsertSQL() string {
	return fmt.Sprintf(`
		INSERT INTO %s (pk, doc, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(pk) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		quoteIdent(c.desc.Collection))
}

func (c *Collection) keyOf(doc []byte) (string, error) {
	return extractKey(doc, c.desc.PrimaryKey)
}

// extractKey reads the primary key field of a JSON object. Strings and
// numbers are accepted; numbers keep their literal JSON spelling.
func extractKey(doc []byte, field string) (string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err != nil {
		return "", fmt.Errorf("%w: record is not a JSON object: %v", ErrMissingKey, err)
	}
	raw, ok := fields[field]
	if !ok {
		return "", fmt.Errorf("%w: field %q absent", ErrMissingKey, field)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("%w: field %q: %v", ErrMissingKey, field, err)
	}
	switch k := v.(type) {
	case string:
		if k == "" {
			return "", fmt.Errorf("%w: field %q is empty", ErrMissingKey, field)
		}
		return k, nil
	case json.Number:
		return k.String(), nil
	default:
		return "", fmt.Errorf("%w: field %q must be a string or number", ErrMissingKey, field)
	}
}
