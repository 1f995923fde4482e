package lifecycle

import (
	"context"
	"sync"
)

// MemoryEntityService is an in-memory EntityService keyed by content type
// uid. It is safe for concurrent use and intended for tests and composition
// roots without a database.
type MemoryEntityService struct {
	mu      sync.RWMutex
	records map[string][]map[string]any
}

// NewMemoryEntityService creates an empty in-memory entity service.
func NewMemoryEntityService() *MemoryEntityService {
	return &MemoryEntityService{
		records: make(map[string][]map[string]any),
	}
}

// Add stores a record under a content type uid.
func (m *MemoryEntityService) Add(uid string, record map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[uid] = append(m.records[uid], record)
}

// Remove drops all records of a uid whose id is in ids.
func (m *MemoryEntityService) Remove(uid string, ids ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.records[uid][:0]
	for _, record := range m.records[uid] {
		if !containsID(ids, record["id"]) {
			kept = append(kept, record)
		}
	}
	m.records[uid] = kept
}

// FindMany returns copies of the records matching the query.
func (m *MemoryEntityService) FindMany(ctx context.Context, uid string, q Query) ([]map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []map[string]any
	for _, record := range m.records[uid] {
		if !matches(record, q) {
			continue
		}
		out = append(out, project(record, q.Fields))
	}
	return out, nil
}

func matches(record map[string]any, q Query) bool {
	if len(q.IDs) > 0 {
		return containsID(q.IDs, record["id"])
	}
	for field, want := range q.Where {
		if record[field] != want {
			return false
		}
	}
	return true
}

func project(record map[string]any, fields []string) map[string]any {
	out := make(map[string]any, len(record))
	if len(fields) == 0 {
		for k, v := range record {
			out[k] = v
		}
		return out
	}

	if id, ok := record["id"]; ok {
		out["id"] = id
	}
	for _, field := range fields {
		if v, ok := record[field]; ok {
			out[field] = v
		}
	}
	return out
}

func containsID(ids []any, id any) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
