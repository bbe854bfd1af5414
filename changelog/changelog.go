// Package changelog records the values rewritten by normalization.
package changelog

import (
	"context"
)

// ChangeRecord is one rewritten tag value. New is nil when the value was not
// recognized by its normalizer.
type ChangeRecord struct {
	Original string  `json:"original"`
	New      *string `json:"new"`
}

// NewValue returns New, or "" when it is nil.
func (c ChangeRecord) NewValue() string {
	if c.New == nil {
		return ""
	}
	return *c.New
}

// Logger is an append-only sink for change records. Callers append in
// processing order from a single goroutine.
type Logger interface {
	Log(ctx context.Context, c ChangeRecord) error
}

// Memory keeps every record in a slice.
type Memory struct {
	Records []ChangeRecord
}

func (m *Memory) Log(_ context.Context, c ChangeRecord) error {
	m.Records = append(m.Records, c)
	return nil
}

// Discard drops every record.
var Discard Logger = discard{}

type discard struct{}

func (discard) Log(context.Context, ChangeRecord) error { return nil }

// Multi appends to each logger in turn and stops at the first error.
type Multi []Logger

func (m Multi) Log(ctx context.Context, c ChangeRecord) error {
	for _, l := range m {
		if err := l.Log(ctx, c); err != nil {
			return err
		}
	}
	return nil
}
