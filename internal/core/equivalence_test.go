package core

import "testing"

func TestEqualTextNullAndBlank(t *testing.T) {
	cases := []struct {
		old, new string
		equal    bool
	}{
		{"", "", true},
		{"", "   ", true},
		{"  ", "", true},
		{"\t\n", " ", true},
		{"", "x", false},
		{"x", "", false},
	}
	for _, c := range cases {
		if got := EqualText(c.old, c.new); got != c.equal {
			t.Errorf("EqualText(%q, %q) = %v, want %v", c.old, c.new, got, c.equal)
		}
	}
}

func TestEqualTextCaseInsensitive(t *testing.T) {
	if !EqualText("test", "TEST") {
		t.Error("case-only difference should be equal")
	}
	if !EqualText("MiXeD", "mixed") {
		t.Error("case-only difference should be equal")
	}
	if EqualText("test", "toast") {
		t.Error("different text should not be equal")
	}
}

func TestEqualFlattenedNonTextIsExact(t *testing.T) {
	if EqualFlattened(KindScalar, "1", "01") {
		t.Error("scalar comparison must be exact")
	}
	if EqualFlattened(KindEnum, "NUMERIC", "numeric") {
		t.Error("enum comparison must be case sensitive")
	}
	if !EqualFlattened(KindDate, "2024-01-02 03:04:05", "2024-01-02 03:04:05") {
		t.Error("identical flattened dates should be equal")
	}
}
