package store

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
)

// MemoryStore keeps every collection in process memory.  Data is lost on
// restart.  Safe for concurrent use.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]bson.M
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]bson.M)}
}

// sortedIDs returns the collection's ids in ascending order, which for
// ObjectIDs is insertion order.
func sortedIDs(coll map[string]bson.M) []string {
	ids := make([]string, 0, len(coll))
	for id := range coll {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *MemoryStore) Find(ctx context.Context, coll string, f Filter, opts FindOptions) ([]bson.Raw, error) {
	if err := f.validateIDs(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := m.collections[coll]
	out := []bson.Raw{}
	var skipped int64
	for _, id := range sortedIDs(docs) {
		doc := docs[id]
		if !f.Match(doc) {
			continue
		}
		if skipped < opts.Skip {
			skipped++
			continue
		}
		raw, err := bson.Marshal(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
		if opts.Limit > 0 && int64(len(out)) >= opts.Limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) FindOne(ctx context.Context, coll, id string) (bson.Raw, error) {
	if !ValidID(id) {
		return nil, ErrInvalidID
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.collections[coll][id]
	if !ok {
		return nil, ErrNoDocument
	}
	return bson.Marshal(doc)
}

func (m *MemoryStore) InsertOne(ctx context.Context, coll string, v any) (string, error) {
	doc, id, err := toDocument(v)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[coll]; !ok {
		m.collections[coll] = make(map[string]bson.M)
	}
	m.collections[coll][id] = doc
	return id, nil
}

func (m *MemoryStore) UpdateOne(ctx context.Context, coll string, f Filter, u Update) (int64, error) {
	return m.update(coll, f, u, false)
}

func (m *MemoryStore) UpdateMany(ctx context.Context, coll string, f Filter, u Update) (int64, error) {
	return m.update(coll, f, u, true)
}

func (m *MemoryStore) update(coll string, f Filter, u Update, many bool) (int64, error) {
	if err := f.validateIDs(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := m.collections[coll]
	var matched int64
	for _, id := range sortedIDs(docs) {
		doc := docs[id]
		if !f.Match(doc) {
			continue
		}
		// Work on a copy so a failing update leaves the stored doc intact.
		next, err := cloneDocument(doc)
		if err != nil {
			return matched, err
		}
		if err := u.Apply(next); err != nil {
			return matched, err
		}
		docs[id] = next
		matched++
		if !many {
			break
		}
	}
	return matched, nil
}

func (m *MemoryStore) DeleteOne(ctx context.Context, coll string, f Filter) (int64, error) {
	return m.delete(coll, f, false)
}

func (m *MemoryStore) DeleteMany(ctx context.Context, coll string, f Filter) (int64, error) {
	return m.delete(coll, f, true)
}

func (m *MemoryStore) delete(coll string, f Filter, many bool) (int64, error) {
	if err := f.validateIDs(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := m.collections[coll]
	var deleted int64
	for _, id := range sortedIDs(docs) {
		if !f.Match(docs[id]) {
			continue
		}
		delete(docs, id)
		deleted++
		if !many {
			break
		}
	}
	return deleted, nil
}

func (m *MemoryStore) Count(ctx context.Context, coll string, f Filter) (int64, error) {
	if err := f.validateIDs(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, doc := range m.collections[coll] {
		if f.Match(doc) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

func (m *MemoryStore) Close(ctx context.Context) error { return nil }
