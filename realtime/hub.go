package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

type collection struct {
	version uint64
	keys    []string
	docs    map[string]map[string]any
}

type subscriber struct {
	mu          sync.Mutex
	fn          func(Snapshot)
	lastVersion uint64
	delivered   bool
	closed      bool
}

func (s *subscriber) deliver(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	// Late deliveries of an older version are dropped so a slow writer
	// cannot roll a subscriber back.
	if s.delivered && snap.Version < s.lastVersion {
		return
	}
	s.delivered = true
	s.lastVersion = snap.Version
	s.fn(snap)
}

// Hub is an in-process Store. It is the fan-out used by GormStore and the
// store fake used in tests.
type Hub struct {
	mu          sync.Mutex
	collections map[string]*collection
	subs        map[string]map[int]*subscriber
	nextSub     int
	newKey      func() string
}

func NewHub() *Hub {
	return &Hub{
		collections: map[string]*collection{},
		subs:        map[string]map[int]*subscriber{},
		newKey:      func() string { return uuid.NewString() },
	}
}

func (h *Hub) coll(name string) *collection {
	c, ok := h.collections[name]
	if !ok {
		c = &collection{docs: map[string]map[string]any{}}
		h.collections[name] = c
	}
	return c
}

// snapshotLocked copies a collection; h.mu must be held.
func (h *Hub) snapshotLocked(name string) Snapshot {
	c := h.coll(name)
	snap := Snapshot{Collection: name, Version: c.version, Docs: make([]Document, 0, len(c.keys))}
	for _, k := range c.keys {
		raw, err := json.Marshal(c.docs[k])
		if err != nil {
			continue
		}
		snap.Docs = append(snap.Docs, Document{Key: k, Value: raw})
	}
	return snap
}

func (h *Hub) Subscribe(name string, fn func(Snapshot)) func() {
	sub := &subscriber{fn: fn}

	h.mu.Lock()
	id := h.nextSub
	h.nextSub++
	if h.subs[name] == nil {
		h.subs[name] = map[int]*subscriber{}
	}
	h.subs[name][id] = sub
	snap := h.snapshotLocked(name)
	h.mu.Unlock()

	sub.deliver(snap)

	return func() {
		h.mu.Lock()
		delete(h.subs[name], id)
		h.mu.Unlock()
		sub.mu.Lock()
		sub.closed = true
		sub.mu.Unlock()
	}
}

// commit bumps the version and notifies subscribers outside the hub lock.
// h.mu must be held on entry and is released on return.
func (h *Hub) commit(name string) {
	c := h.coll(name)
	c.version++
	snap := h.snapshotLocked(name)
	subs := make([]*subscriber, 0, len(h.subs[name]))
	for _, s := range h.subs[name] {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		s.deliver(snap)
	}
}

func (h *Hub) WriteField(_ context.Context, name, key, field string, value any) error {
	if key == "" {
		return ErrEmptyKey
	}
	v, err := normalizeValue(value)
	if err != nil {
		return err
	}
	h.mu.Lock()
	c := h.coll(name)
	doc, ok := c.docs[key]
	if !ok {
		doc = map[string]any{}
		c.docs[key] = doc
		c.keys = append(c.keys, key)
	}
	doc[field] = v
	h.commit(name)
	return nil
}

func (h *Hub) WriteWhole(_ context.Context, name string, docs []Document) error {
	next := &collection{docs: make(map[string]map[string]any, len(docs))}
	for _, d := range docs {
		if d.Key == "" {
			return ErrEmptyKey
		}
		obj, err := toObject(d.Value)
		if err != nil {
			return err
		}
		if _, dup := next.docs[d.Key]; !dup {
			next.keys = append(next.keys, d.Key)
		}
		next.docs[d.Key] = obj
	}

	h.mu.Lock()
	next.version = h.coll(name).version
	h.collections[name] = next
	h.commit(name)
	return nil
}

func (h *Hub) ReadOnce(_ context.Context, name string) (Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshotLocked(name), nil
}

func (h *Hub) Append(ctx context.Context, name string, value any) (string, error) {
	key := h.newKey()
	if err := h.Put(ctx, name, key, value); err != nil {
		return "", err
	}
	return key, nil
}

func (h *Hub) Put(_ context.Context, name, key string, value any) error {
	if key == "" {
		return ErrEmptyKey
	}
	obj, err := toObject(value)
	if err != nil {
		return err
	}
	h.mu.Lock()
	c := h.coll(name)
	if _, ok := c.docs[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.docs[key] = obj
	h.commit(name)
	return nil
}

func (h *Hub) Delete(_ context.Context, name, key string) error {
	h.mu.Lock()
	c := h.coll(name)
	if _, ok := c.docs[key]; !ok {
		h.mu.Unlock()
		return ErrNoDocument
	}
	delete(c.docs, key)
	for i, k := range c.keys {
		if k == key {
			c.keys = append(c.keys[:i], c.keys[i+1:]...)
			break
		}
	}
	h.commit(name)
	return nil
}

// load replaces a collection without notifying; used to warm the cache.
func (h *Hub) load(name string, docs []Document) error {
	next := &collection{docs: make(map[string]map[string]any, len(docs))}
	for _, d := range docs {
		obj, err := toObject(d.Value)
		if err != nil {
			return err
		}
		if _, dup := next.docs[d.Key]; !dup {
			next.keys = append(next.keys, d.Key)
		}
		next.docs[d.Key] = obj
	}
	h.mu.Lock()
	h.collections[name] = next
	h.mu.Unlock()
	return nil
}
