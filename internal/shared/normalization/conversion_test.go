package normalization

import "testing"

func TestAsString(t *testing.T) {
	cases := []struct {
		input    any
		expected string
	}{
		{" s1 ", "s1"},
		{float64(42), "42"},
		{float64(4.5), "4.5"},
		{7, "7"},
		{nil, ""},
		{true, ""},
	}
	for _, tc := range cases {
		if got := AsString(tc.input); got != tc.expected {
			t.Fatalf("AsString(%#v) expected %q got %q", tc.input, tc.expected, got)
		}
	}
}

func TestAsInt(t *testing.T) {
	if got, ok := AsInt(float64(100)); !ok || got != 100 {
		t.Fatalf("expected 100, got %d (%v)", got, ok)
	}
	if got, ok := AsInt(" 250 "); !ok || got != 250 {
		t.Fatalf("expected numeric string to parse, got %d (%v)", got, ok)
	}
	if _, ok := AsInt("lots"); ok {
		t.Fatal("expected non numeric string to fail")
	}
	if _, ok := AsInt(nil); ok {
		t.Fatal("expected nil to fail")
	}
}

func TestItemsFromPayloadUnwrapsEnvelopes(t *testing.T) {
	bare := []any{map[string]any{"id": "s1"}}
	if got := ItemsFromPayload(bare); len(got) != 1 {
		t.Fatalf("expected bare array, got %v", got)
	}
	wrapped := map[string]any{"data": []any{map[string]any{"id": "s1"}, map[string]any{"id": "s2"}}}
	if got := ItemsFromPayload(wrapped); len(got) != 2 {
		t.Fatalf("expected data envelope, got %v", got)
	}
	items := map[string]any{"items": []any{}}
	if got := ItemsFromPayload(items); got == nil || len(got) != 0 {
		t.Fatalf("expected empty items slice, got %v", got)
	}
	if got := ItemsFromPayload(map[string]any{"error": "nope"}); got != nil {
		t.Fatalf("expected nil for unknown envelope, got %v", got)
	}
}

func TestFieldAliases(t *testing.T) {
	record := map[string]any{"_id": "abc", "Name": "Gym", "capacity": nil}

	if got := StringField(record, "id", "_id"); got != "abc" {
		t.Fatalf("expected _id alias, got %q", got)
	}
	if got := StringField(record, "name"); got != "Gym" {
		t.Fatalf("expected case-insensitive match, got %q", got)
	}
	if _, ok := Field(record, "capacity"); ok {
		t.Fatal("expected nil value to be treated as missing")
	}
	if got := FirstNonEmpty("", "  ", "x"); got != "x" {
		t.Fatalf("expected x, got %q", got)
	}
}
