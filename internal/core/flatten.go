package core

import (
	"fmt"
	"time"
)

// DateFormat is the fixed layout for flattened time values. Fractional
// seconds are omitted so two instants equal to second precision compare
// equal.
const DateFormat = "2006-01-02 15:04:05"

// Labels prefixed to flattened entity references so readers can tell a
// reference apart from a plain scalar.
const (
	UUIDLabel = "UUID:"
	IDLabel   = "ID:"
)

// Flatten converts a typed property value to its canonical string form for
// comparison and storage. nil always flattens to the empty string. An error
// means the single property should be skipped, never that the whole diff
// fails.
func Flatten(kind PropertyKind, value any, meta Metadata) (string, error) {
	if value == nil {
		return "", nil
	}
	switch kind {
	case KindText:
		s, ok := value.(string)
		if !ok {
			return "", NewAppError(ErrFlattenFailed, fmt.Sprintf("text property holds %T", value))
		}
		return s, nil
	case KindDate:
		t, ok := value.(time.Time)
		if !ok {
			return "", NewAppError(ErrFlattenFailed, fmt.Sprintf("date property holds %T", value))
		}
		return t.Format(DateFormat), nil
	case KindEnum:
		// The symbolic constant name, never a display rendering.
		e, ok := value.(Enum)
		if !ok {
			return "", NewAppError(ErrFlattenFailed, fmt.Sprintf("enum property holds %T", value))
		}
		return e.EnumName(), nil
	case KindType:
		switch v := value.(type) {
		case TypeRef:
			return v.TypeName(), nil
		case string:
			return v, nil
		}
		return "", NewAppError(ErrFlattenFailed, fmt.Sprintf("type property holds %T", value))
	case KindAssociation:
		if e, ok := value.(Entity); ok {
			return UUIDLabel + e.AuditID(), nil
		}
		if meta != nil {
			if id, ok := meta.IdentifierOf(value); ok && id != "" {
				return IDLabel + id, nil
			}
		}
		return "", NewAppError(ErrMetadataUnresolved, fmt.Sprintf("no identifier for %T", value))
	case KindScalar:
		return fmt.Sprint(value), nil
	}
	return "", NewAppError(ErrFlattenFailed, fmt.Sprintf("kind %s cannot be flattened", kind))
}

// FlattenElement flattens a collection element. Audited entities contribute
// their uuid, other persistent values their surrogate id, and non-persistent
// values (times, enums, type references, plain scalars) a type-appropriate
// form inferred from the value itself.
func FlattenElement(value any, meta Metadata) string {
	if value == nil {
		return ""
	}
	if e, ok := value.(Entity); ok {
		return UUIDLabel + e.AuditID()
	}
	if meta != nil {
		if id, ok := meta.IdentifierOf(value); ok && id != "" {
			return IDLabel + id
		}
	}
	switch v := value.(type) {
	case time.Time:
		return v.Format(DateFormat)
	case Enum:
		return v.EnumName()
	case TypeRef:
		return v.TypeName()
	}
	return fmt.Sprint(value)
}
