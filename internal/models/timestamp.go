// ABOUTME: Timestamp stored as epoch milliseconds in every collection
// ABOUTME: Accepts numbers or RFC3339 strings when decoding imported records
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Timestamp is a point in time serialized as Unix milliseconds.
type Timestamp struct {
	time.Time
}

// Now returns the current time truncated to millisecond precision.
func Now() Timestamp {
	return At(time.Now())
}

// At wraps t, dropping sub-millisecond precision so values round-trip exactly.
func At(t time.Time) Timestamp {
	return Timestamp{time.UnixMilli(t.UnixMilli()).UTC()}
}

// Millis returns the timestamp as Unix milliseconds, 0 for the zero value.
func (ts Timestamp) Millis() int64 {
	if ts.IsZero() {
		return 0
	}
	return ts.UnixMilli()
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(ts.Millis(), 10)), nil
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*ts = Timestamp{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*ts = Timestamp{}
			return nil
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			*ts = fromMillis(ms)
			return nil
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
		*ts = At(t)
		return nil
	}

	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", data, err)
	}
	*ts = fromMillis(int64(f))
	return nil
}

// MarshalYAML keeps YAML exports in the same unit as JSON.
func (ts Timestamp) MarshalYAML() (any, error) {
	return ts.Millis(), nil
}

func fromMillis(ms int64) Timestamp {
	if ms == 0 {
		return Timestamp{}
	}
	return Timestamp{time.UnixMilli(ms).UTC()}
}
