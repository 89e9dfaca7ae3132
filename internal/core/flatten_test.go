package core

import (
	"testing"
	"time"
)

type flatEntity struct{ uuid, typ string }

func (e *flatEntity) AuditID() string  { return e.uuid }
func (e *flatEntity) TypeName() string { return e.typ }

type flatEnum string

func (e flatEnum) EnumName() string { return string(e) }

type flatTypeRef string

func (r flatTypeRef) TypeName() string { return string(r) }

type stubMetadata map[any]string

func (m stubMetadata) IdentifierOf(v any) (string, bool) {
	id, ok := m[v]
	return id, ok
}

func TestFlattenNil(t *testing.T) {
	for _, kind := range []PropertyKind{KindScalar, KindText, KindDate, KindEnum, KindType, KindAssociation} {
		s, err := Flatten(kind, nil, nil)
		if err != nil {
			t.Fatalf("kind %s: unexpected error: %s", kind, err)
		}
		if s != "" {
			t.Errorf("kind %s: nil should flatten to empty string, got %q", kind, s)
		}
	}
}

func TestFlattenDate(t *testing.T) {
	d := time.Date(2024, 3, 15, 9, 30, 45, 123456789, time.UTC)
	s, err := Flatten(KindDate, d, nil)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if s != "2024-03-15 09:30:45" {
		t.Errorf("expected fractional seconds omitted, got %q", s)
	}
}

func TestFlattenDateSecondPrecision(t *testing.T) {
	a := time.Date(2024, 3, 15, 9, 30, 45, 1000, time.UTC)
	b := time.Date(2024, 3, 15, 9, 30, 45, 999000000, time.UTC)
	fa, _ := Flatten(KindDate, a, nil)
	fb, _ := Flatten(KindDate, b, nil)
	if fa != fb {
		t.Errorf("instants equal to second precision should flatten equal: %q vs %q", fa, fb)
	}
}

func TestFlattenEnum(t *testing.T) {
	s, err := Flatten(KindEnum, flatEnum("NUMERIC"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if s != "NUMERIC" {
		t.Errorf("expected symbolic constant name, got %q", s)
	}
}

func TestFlattenTypeRef(t *testing.T) {
	s, err := Flatten(KindType, flatTypeRef("org.example.Concept"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if s != "org.example.Concept" {
		t.Errorf("expected fully-qualified type name, got %q", s)
	}

	s, err = Flatten(KindType, "org.example.Other", nil)
	if err != nil {
		t.Fatalf("plain string type name rejected: %s", err)
	}
	if s != "org.example.Other" {
		t.Errorf("got %q", s)
	}
}

func TestFlattenAuditedReference(t *testing.T) {
	e := &flatEntity{uuid: "abc-123", typ: "org.example.Concept"}
	s, err := Flatten(KindAssociation, e, nil)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if s != "UUID:abc-123" {
		t.Errorf("expected UUID-tagged form, got %q", s)
	}
}

func TestFlattenPersistentReference(t *testing.T) {
	type row struct{ id int }
	v := &row{id: 7}
	meta := stubMetadata{v: "7"}
	s, err := Flatten(KindAssociation, v, meta)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if s != "ID:7" {
		t.Errorf("expected ID-tagged surrogate form, got %q", s)
	}
}

func TestFlattenUnresolvableReference(t *testing.T) {
	type row struct{ id int }
	_, err := Flatten(KindAssociation, &row{id: 7}, stubMetadata{})
	if err == nil {
		t.Fatal("expected metadata resolution error")
	}
}

func TestFlattenScalar(t *testing.T) {
	s, err := Flatten(KindScalar, 42, nil)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if s != "42" {
		t.Errorf("got %q", s)
	}
	s, _ = Flatten(KindScalar, true, nil)
	if s != "true" {
		t.Errorf("got %q", s)
	}
}

func TestFlattenWrongShape(t *testing.T) {
	if _, err := Flatten(KindDate, "not a time", nil); err == nil {
		t.Error("date kind holding a string should fail")
	}
	if _, err := Flatten(KindEnum, 3, nil); err == nil {
		t.Error("enum kind holding an int should fail")
	}
	if _, err := Flatten(KindCollection, []any{}, nil); err == nil {
		t.Error("collection kinds are never flattened by the detector")
	}
}

func TestFlattenElement(t *testing.T) {
	e := &flatEntity{uuid: "abc", typ: "org.example.ConceptName"}
	if s := FlattenElement(e, nil); s != "UUID:abc" {
		t.Errorf("entity element: got %q", s)
	}

	type row struct{ id int }
	v := &row{id: 9}
	if s := FlattenElement(v, stubMetadata{v: "9"}); s != "ID:9" {
		t.Errorf("persistent element: got %q", s)
	}

	if s := FlattenElement(flatEnum("CODED"), nil); s != "CODED" {
		t.Errorf("enum element: got %q", s)
	}

	d := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if s := FlattenElement(d, nil); s != "2024-01-02 03:04:05" {
		t.Errorf("date element: got %q", s)
	}

	if s := FlattenElement(17, nil); s != "17" {
		t.Errorf("scalar element: got %q", s)
	}
}
