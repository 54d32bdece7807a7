package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/Tiliavir/fieldtime/internal/model"
)

// Storage namespaces and keys. Entries and shifts never share a cell.
const (
	EntriesNamespace = "entries"
	EntriesKey       = "time-tracker-entries-v2"
	ShiftsNamespace  = "shifts"
	ShiftsKey        = "time-tracker-shifts-v1"
)

// ErrCorrupt is returned when the stored value is not valid JSON.
var ErrCorrupt = errors.New("corrupt cache value")

// Cache is the per-type offline cache. The whole cell holds a JSON object
// mapping user id to that user's ordered records. Older clients wrote a bare
// JSON array; that shape is still read but never written.
type Cache[T model.Record] struct {
	engine    Engine
	namespace string
	key       string

	// mu serializes read-modify-write cycles on the cell.
	mu sync.Mutex
}

// NewCache returns a cache over one engine cell.
func NewCache[T model.Record](engine Engine, namespace, key string) *Cache[T] {
	return &Cache[T]{engine: engine, namespace: namespace, key: key}
}

// NewEntryCache returns the cache for time entries.
func NewEntryCache(engine Engine) *Cache[model.Entry] {
	return NewCache[model.Entry](engine, EntriesNamespace, EntriesKey)
}

// NewShiftCache returns the cache for shifts.
func NewShiftCache(engine Engine) *Cache[model.Shift] {
	return NewCache[model.Shift](engine, ShiftsNamespace, ShiftsKey)
}

// stored is the decoded cell. At most one of legacy and users is set.
type stored struct {
	legacy json.RawMessage
	users  map[string]json.RawMessage
}

func (c *Cache[T]) read(ctx context.Context) (stored, error) {
	data, ok, err := c.engine.Get(ctx, c.namespace, c.key)
	if err != nil {
		return stored{}, err
	}
	data = bytes.TrimSpace(data)
	if !ok || len(data) == 0 {
		return stored{}, nil
	}
	if !json.Valid(data) {
		err := fmt.Errorf("%w in %s/%s", ErrCorrupt, c.namespace, c.key)
		if q, isQ := c.engine.(quarantiner); isQ {
			if backup, qErr := q.Quarantine(ctx, c.namespace, c.key); qErr == nil {
				err = fmt.Errorf("%w (backed up to %s)", err, backup)
			}
		}
		return stored{}, err
	}
	switch data[0] {
	case '[':
		return stored{legacy: data}, nil
	case '{':
		users := map[string]json.RawMessage{}
		if err := json.Unmarshal(data, &users); err != nil {
			return stored{}, fmt.Errorf("%w in %s/%s: %v", ErrCorrupt, c.namespace, c.key, err)
		}
		return stored{users: users}, nil
	}
	// Scalars carry no records.
	return stored{}, nil
}

func (c *Cache[T]) write(ctx context.Context, users map[string]json.RawMessage) error {
	data, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("storage error marshalling JSON: %w", err)
	}
	return c.engine.Set(ctx, c.namespace, c.key, data)
}

// Load returns userID's records in stored order. An absent cell yields an
// empty list. A legacy array is filtered to records owned by userID or by
// nobody; the legacy value is left untouched.
func (c *Cache[T]) Load(ctx context.Context, userID string) ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.read(ctx)
	if err != nil {
		return nil, err
	}

	out := []T{}
	switch {
	case s.legacy != nil:
		var all []T
		if err := json.Unmarshal(s.legacy, &all); err != nil {
			return nil, fmt.Errorf("%w in %s/%s: %v", ErrCorrupt, c.namespace, c.key, err)
		}
		for _, rec := range all {
			if rec.Owner() == "" || rec.Owner() == userID {
				out = append(out, rec)
			}
		}
	case s.users != nil:
		raw, ok := s.users[userID]
		if !ok || string(raw) == "null" {
			return out, nil
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("%w in %s/%s for user %s: %v", ErrCorrupt, c.namespace, c.key, userID, err)
		}
	}
	return out, nil
}

// Persist stores records as userID's list, leaving every other user's list
// as it was. Records are serialized here, so the caller keeps ownership of
// the slice. An empty userID is ignored.
func (c *Cache[T]) Persist(ctx context.Context, records []T, userID string) error {
	if userID == "" {
		return nil
	}
	if records == nil {
		records = []T{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("storage error marshalling records: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.read(ctx)
	if err != nil {
		return err
	}
	users := s.users
	if users == nil {
		users = map[string]json.RawMessage{}
	}
	if s.legacy != nil {
		if users, err = c.splitLegacy(s.legacy, userID); err != nil {
			return err
		}
	}
	users[userID] = data
	return c.write(ctx, users)
}

// splitLegacy converts a legacy array into map form, keeping the records of
// every owner other than userID. Unowned records are dropped; userID's new
// list replaces them.
func (c *Cache[T]) splitLegacy(legacy json.RawMessage, userID string) (map[string]json.RawMessage, error) {
	var all []T
	if err := json.Unmarshal(legacy, &all); err != nil {
		return nil, fmt.Errorf("%w in %s/%s: %v", ErrCorrupt, c.namespace, c.key, err)
	}
	groups := map[string][]T{}
	for _, rec := range all {
		if owner := rec.Owner(); owner != "" && owner != userID {
			groups[owner] = append(groups[owner], rec)
		}
	}
	users := make(map[string]json.RawMessage, len(groups)+1)
	for owner, recs := range groups {
		data, err := json.Marshal(recs)
		if err != nil {
			return nil, fmt.Errorf("storage error marshalling records: %w", err)
		}
		users[owner] = data
	}
	return users, nil
}

// Clear drops userID's list. Nothing is written unless the cell is in map
// form and holds the user.
func (c *Cache[T]) Clear(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.read(ctx)
	if err != nil {
		return err
	}
	if _, ok := s.users[userID]; !ok {
		return nil
	}
	delete(s.users, userID)
	return c.write(ctx, s.users)
}
