package schema

import (
	"fmt"
	"sync"
)

// Registry resolves schemas by UID. Implementations must be safe for
// concurrent use; the transformer and sanitizer read from the registry on
// every emission.
type Registry interface {
	// ContentType returns the schema of a content type.
	ContentType(uid string) (*Schema, error)

	// Component returns the schema of a component.
	Component(uid string) (*Schema, error)
}

// MemoryRegistry is an in-memory Registry.
type MemoryRegistry struct {
	mu           sync.RWMutex
	contentTypes map[string]*Schema
	components   map[string]*Schema
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		contentTypes: make(map[string]*Schema),
		components:   make(map[string]*Schema),
	}
}

// RegisterContentType adds or replaces a content type schema.
func (r *MemoryRegistry) RegisterContentType(s *Schema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contentTypes[s.UID] = s
}

// RegisterComponent adds or replaces a component schema.
func (r *MemoryRegistry) RegisterComponent(s *Schema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components[s.UID] = s
}

// ContentType returns the schema of a content type.
func (r *MemoryRegistry) ContentType(uid string) (*Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.contentTypes[uid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContentType, uid)
	}
	return s, nil
}

// Component returns the schema of a component.
func (r *MemoryRegistry) Component(uid string) (*Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.components[uid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownComponent, uid)
	}
	return s, nil
}
