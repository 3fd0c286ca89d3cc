package remote

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"liyu1981.xyz/sos-safety-service/pkg/common"
)

// MemoryStore keeps documents in process. It backs the docstore server in
// development and the agent when no docstore address is configured.
type MemoryStore struct {
	mu          sync.Mutex
	clock       common.Clock
	collections map[string]map[string]Document
	watchers    map[*memoryWatcher]struct{}
}

type memoryWatcher struct {
	query Query
	ch    chan []Document
}

func NewMemoryStore(clock common.Clock) *MemoryStore {
	if clock == nil {
		clock = common.RealClock{}
	}
	return &MemoryStore{
		clock:       clock,
		collections: map[string]map[string]Document{},
		watchers:    map[*memoryWatcher]struct{}{},
	}
}

func (m *MemoryStore) Add(ctx context.Context, collection string, doc Document) (string, error) {
	normalized, err := Normalize(doc)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	now := float64(m.clock.Now().UnixMilli())
	normalized[FieldID] = id
	normalized[FieldCreatedAt] = now
	normalized[FieldUpdatedAt] = now

	m.mu.Lock()
	defer m.mu.Unlock()
	m.collection(collection)[id] = normalized
	m.notifyLocked(collection)
	return id, nil
}

func (m *MemoryStore) Set(ctx context.Context, collection, id string, doc Document, merge bool) error {
	normalized, err := Normalize(doc)
	if err != nil {
		return err
	}
	now := float64(m.clock.Now().UnixMilli())

	m.mu.Lock()
	defer m.mu.Unlock()
	docs := m.collection(collection)
	existing, found := docs[id]
	switch {
	case found && merge:
		normalized = mergeDocument(existing, normalized)
	case found:
		normalized[FieldCreatedAt] = existing[FieldCreatedAt]
	default:
		normalized[FieldCreatedAt] = now
	}
	normalized[FieldID] = id
	normalized[FieldUpdatedAt] = now
	docs[id] = normalized
	m.notifyLocked(collection)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, collection, id string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, found := m.collection(collection)[id]
	if !found {
		return nil, fmt.Errorf("%w: %s/%s", ErrDocumentNotFound, collection, id)
	}
	return doc.clone(), nil
}

func (m *MemoryStore) Watch(ctx context.Context, q Query) (<-chan []Document, error) {
	w := &memoryWatcher{query: q, ch: make(chan []Document, 1)}

	m.mu.Lock()
	m.watchers[w] = struct{}{}
	offer(w.ch, m.queryLocked(q))
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.watchers, w)
		close(w.ch)
		m.mu.Unlock()
	}()
	return w.ch, nil
}

func (m *MemoryStore) collection(name string) map[string]Document {
	docs, ok := m.collections[name]
	if !ok {
		docs = map[string]Document{}
		m.collections[name] = docs
	}
	return docs
}

func (m *MemoryStore) queryLocked(q Query) []Document {
	docs := make([]Document, 0, len(m.collections[q.Collection]))
	for _, d := range m.collections[q.Collection] {
		docs = append(docs, d.clone())
	}
	return q.Apply(docs)
}

func (m *MemoryStore) notifyLocked(collection string) {
	for w := range m.watchers {
		if w.query.Collection == collection {
			offer(w.ch, m.queryLocked(w.query))
		}
	}
}
