package auth

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseUserIDAcrossRepresentations(t *testing.T) {
	cases := []struct {
		name  string
		value any
		want  uint
		ok    bool
	}{
		{"uint", uint(7), 7, true},
		{"int", 7, 7, true},
		{"int64", int64(7), 7, true},
		{"uint64", uint64(7), 7, true},
		{"float64 from json", float64(7), 7, true},
		{"decimal string", "7", 7, true},
		{"padded string", " 7 ", 7, true},
		{"zero", 0, 0, false},
		{"negative", -3, 0, false},
		{"fraction", 7.5, 0, false},
		{"garbage", "7a", 0, false},
		{"nil", nil, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseUserID(tc.value)
			if got != tc.want || ok != tc.ok {
				t.Fatalf("ParseUserID(%v) = %d,%v want %d,%v", tc.value, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestOwnershipComparisonIgnoresRepresentation(t *testing.T) {
	// An id that went through JSON arrives as float64; from the database as uint.
	var decoded map[string]any
	if err := json.Unmarshal([]byte(`{"id": 12}`), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	fromJSON, ok := ParseUserID(decoded["id"])
	if !ok {
		t.Fatal("expected json id to parse")
	}
	fromRoute, _ := ParseUserID("12")
	fromDB := uint(12)

	viewer := Identity{ID: fromJSON}
	if !viewer.Is(fromDB) || !viewer.Is(fromRoute) {
		t.Fatal("same id in different representations must compare equal")
	}
	if viewer.Is(13) {
		t.Fatal("different ids must not compare equal")
	}
	if Anonymous.Is(0) {
		t.Fatal("anonymous never owns anything")
	}
}

func TestRequire(t *testing.T) {
	if _, err := Require(Anonymous); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	id, err := Require(Identity{ID: 3, Name: "Luis"})
	if err != nil || id.ID != 3 {
		t.Fatalf("unexpected result %v %v", id, err)
	}
}
