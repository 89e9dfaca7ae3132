package core

// PropertyKind classifies a persistent property for flattening and diffing.
// The host registers descriptors once per entity type instead of the core
// classifying values reflectively on every access.
type PropertyKind int

const (
	// KindScalar covers numbers, booleans and other simple values.
	KindScalar PropertyKind = iota
	// KindText covers string properties, which get the looser null/blank and
	// case-insensitive equivalence rules.
	KindText
	// KindDate covers time-valued properties.
	KindDate
	// KindEnum covers enumerated constants.
	KindEnum
	// KindType covers properties holding a reference to a type.
	KindType
	// KindAssociation covers single-valued references to another persistent entity.
	KindAssociation
	// KindCollection covers collection-valued properties; these are diffed by
	// the collection tracker, never by the property detector.
	KindCollection
	// KindComponent covers embedded value objects. Not supported; the
	// detector logs and skips them.
	KindComponent
)

func (k PropertyKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindText:
		return "text"
	case KindDate:
		return "date"
	case KindEnum:
		return "enum"
	case KindType:
		return "type"
	case KindAssociation:
		return "association"
	case KindCollection:
		return "collection"
	case KindComponent:
		return "component"
	}
	return "unknown"
}

// PropertyDescriptor describes one persistent property of an entity type.
// Descriptors are supplied aligned with the state vectors passed to the
// lifecycle hooks.
type PropertyDescriptor struct {
	Name string
	Kind PropertyKind
}

// Entity is the minimal contract an audited domain object must satisfy:
// a stable unique identifier (not the database row id) and a fully
// qualified type name.
type Entity interface {
	AuditID() string
	TypeName() string
}

// Metadata resolves persistence details the core must not hardcode: the
// surrogate identifier of a persistent value that is not itself an audited
// Entity.
type Metadata interface {
	IdentifierOf(v any) (string, bool)
}

// Enum is implemented by enumerated property values so flattening can use
// the symbolic constant name rather than a display rendering.
type Enum interface {
	EnumName() string
}

// TypeRef is implemented by type-reference property values.
type TypeRef interface {
	TypeName() string
}
