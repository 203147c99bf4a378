// Package realtime is the shared document store that every dashboard device
// observes. Collections hold JSON objects keyed by string; subscribers get the
// whole collection again after every change.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
)

// Collections used by the check-in service.
const (
	CollectionGuests      = "guests"
	CollectionTeam        = "team"
	CollectionSettings    = "settings"
	CollectionActivity    = "activity"
	CollectionCredentials = "credentials"
)

var (
	ErrNotObject  = errors.New("realtime: document value must be a JSON object")
	ErrEmptyKey   = errors.New("realtime: empty document key")
	ErrNoDocument = errors.New("realtime: document not found")
)

// Document is a single keyed value inside a collection.
type Document struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Snapshot is the full state of a collection in native (insertion) order.
type Snapshot struct {
	Collection string     `json:"collection"`
	Version    uint64     `json:"version"`
	Docs       []Document `json:"docs"`
}

// Exists mirrors the "snapshot exists" check of hosted realtime databases.
func (s Snapshot) Exists() bool { return len(s.Docs) > 0 }

// Get returns the raw value stored under key.
func (s Snapshot) Get(key string) (json.RawMessage, bool) {
	for _, d := range s.Docs {
		if d.Key == key {
			return d.Value, true
		}
	}
	return nil, false
}

// Store is the boundary every collaborator talks to.
type Store interface {
	// Subscribe calls fn with the current state before returning, then again
	// after every change to the collection. The returned func cancels it.
	// fn runs on the writer's goroutine and must not write to the store.
	Subscribe(collection string, fn func(Snapshot)) (unsubscribe func())
	WriteField(ctx context.Context, collection, key, field string, value any) error
	WriteWhole(ctx context.Context, collection string, docs []Document) error
	ReadOnce(ctx context.Context, collection string) (Snapshot, error)
	Append(ctx context.Context, collection string, value any) (string, error)
	Put(ctx context.Context, collection, key string, value any) error
	Delete(ctx context.Context, collection, key string) error
}

// Decode unmarshals every document of a snapshot into T, in order.
func Decode[T any](s Snapshot) ([]T, error) {
	out := make([]T, 0, len(s.Docs))
	for _, d := range s.Docs {
		var v T
		if err := json.Unmarshal(d.Value, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// NewDocument marshals v under key.
func NewDocument(key string, v any) (Document, error) {
	if key == "" {
		return Document{}, ErrEmptyKey
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return Document{}, err
	}
	return Document{Key: key, Value: raw}, nil
}

func toObject(v any) (map[string]any, error) {
	var raw []byte
	switch vv := v.(type) {
	case json.RawMessage:
		raw = vv
	case []byte:
		raw = vv
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, ErrNotObject
	}
	return obj, nil
}

func normalizeValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
