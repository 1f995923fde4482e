package schema

// AttributeType identifies how an attribute value is shaped on the wire.
type AttributeType string

const (
	// TypeScalar is a plain value passed through unchanged.
	TypeScalar AttributeType = "scalar"
	// TypeRelation references one or many entries of another content type.
	TypeRelation AttributeType = "relation"
	// TypeComponent nests a reusable component structure.
	TypeComponent AttributeType = "component"
	// TypeDynamicZone holds a list of heterogeneous component entries, each
	// carrying its own component tag.
	TypeDynamicZone AttributeType = "dynamiczone"
	// TypeMedia references uploaded files.
	TypeMedia AttributeType = "media"
)

// ComponentKey is the per-item type tag inside dynamic zone entries.
const ComponentKey = "__component"

// FileUID is the content type UID media attributes resolve against.
const FileUID = "file"

// Attribute describes a single field of a content type or component.
type Attribute struct {
	Type AttributeType

	// Target is the related content type UID. Set for relation attributes.
	Target string

	// Component is the component UID. Set for component attributes.
	Component string

	// Private marks fields that must never appear in public output.
	Private bool
}

// Schema describes one content type or component.
type Schema struct {
	// UID uniquely identifies the type (e.g. "api::article.article").
	UID string

	// SingularName is the short name used in event names (e.g. "article").
	SingularName string

	Attributes map[string]Attribute
}

// Attribute returns the named attribute. The second return value reports
// whether the schema declares it; undeclared properties are treated as
// scalars by consumers.
func (s *Schema) Attribute(name string) (Attribute, bool) {
	if s == nil {
		return Attribute{}, false
	}
	attr, ok := s.Attributes[name]
	return attr, ok
}
