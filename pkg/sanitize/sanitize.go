package sanitize

import (
	"fmt"

	"github.com/dmitrymomot/pushkit/pkg/ability"
	"github.com/dmitrymomot/pushkit/pkg/schema"
)

// AuthContext carries the per-room authorization state a sanitization run is
// evaluated against.
type AuthContext struct {
	// Name identifies the strategy that produced this context (e.g. "io-role").
	Name string

	// Ability is the room's freshly computed permission predicate.
	Ability *ability.Ability

	// Verify is the owning strategy's scope check bound to this room. When
	// set it takes precedence over Ability, so strategy-specific rules such
	// as full-access tokens apply to field visibility too.
	Verify func(scopes ...string) error

	// Credentials is an opaque per-room tag forwarded for audit context.
	Credentials string
}

// allows reports whether the context grants every given scope.
func (a AuthContext) allows(scopes ...string) bool {
	if a.Verify != nil {
		return a.Verify(scopes...) == nil
	}
	return a.Ability.CanAll(scopes...)
}

// Sanitizer removes fields an identity's authorization forbids.
type Sanitizer struct {
	registry schema.Registry
}

// NewSanitizer creates a sanitizer resolving related schemas through the
// given registry.
func NewSanitizer(registry schema.Registry) *Sanitizer {
	return &Sanitizer{registry: registry}
}

// Output returns a sanitized copy of data. Nil input is returned unchanged,
// lists are sanitized element-wise, and any other non-object value is
// rejected. The input is never mutated.
func (s *Sanitizer) Output(data any, sc *schema.Schema, auth AuthContext) (any, error) {
	switch v := data.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			sanitized, err := s.Output(item, sc, auth)
			if err != nil {
				return nil, err
			}
			out[i] = sanitized
		}
		return out, nil
	case []map[string]any:
		out := make([]any, len(v))
		for i, item := range v {
			sanitized, err := s.Output(item, sc, auth)
			if err != nil {
				return nil, err
			}
			out[i] = sanitized
		}
		return out, nil
	case map[string]any:
		return s.sanitizeObject(v, sc, auth)
	default:
		return nil, fmt.Errorf("%w, got %T", ErrInvalidInput, data)
	}
}

func (s *Sanitizer) sanitizeObject(record map[string]any, sc *schema.Schema, auth AuthContext) (map[string]any, error) {
	out := make(map[string]any, len(record))

	for key, value := range record {
		if key == "id" {
			out[key] = value
			continue
		}

		attr, declared := sc.Attribute(key)
		if !declared {
			out[key] = value
			continue
		}
		if attr.Private {
			continue
		}

		switch attr.Type {
		case schema.TypeRelation:
			// Populated relations are visible only when the identity could
			// read the related type itself.
			if attr.Target == "" || !auth.allows(attr.Target+".find") {
				continue
			}
			target, err := s.registry.ContentType(attr.Target)
			if err != nil {
				return nil, err
			}
			sanitized, err := s.Output(value, target, auth)
			if err != nil {
				return nil, err
			}
			out[key] = sanitized

		case schema.TypeComponent:
			component, err := s.registry.Component(attr.Component)
			if err != nil {
				return nil, err
			}
			sanitized, err := s.Output(value, component, auth)
			if err != nil {
				return nil, err
			}
			out[key] = sanitized

		case schema.TypeDynamicZone:
			sanitized, err := s.sanitizeZone(value, auth)
			if err != nil {
				return nil, err
			}
			out[key] = sanitized

		case schema.TypeMedia:
			file, err := s.registry.ContentType(schema.FileUID)
			if err != nil {
				return nil, err
			}
			sanitized, err := s.Output(value, file, auth)
			if err != nil {
				return nil, err
			}
			out[key] = sanitized

		default:
			out[key] = value
		}
	}

	return out, nil
}

func (s *Sanitizer) sanitizeZone(value any, auth AuthContext) (any, error) {
	items, ok := value.([]any)
	if !ok {
		return value, nil
	}

	out := make([]any, 0, len(items))
	for _, item := range items {
		record, ok := item.(map[string]any)
		if !ok {
			out = append(out, item)
			continue
		}
		uid, _ := record[schema.ComponentKey].(string)
		component, err := s.registry.Component(uid)
		if err != nil {
			return nil, err
		}
		sanitized, err := s.sanitizeObject(record, component, auth)
		if err != nil {
			return nil, err
		}
		out = append(out, sanitized)
	}
	return out, nil
}
