package domain

import (
	"testing"
)

func TestNewSnapshotKeepsFirstDuplicate(t *testing.T) {
	snap, dups := NewSnapshot([]Shelter{
		{ID: "s1", Name: "Miami High School Shelter", Capacity: 100},
		{ID: " s2 ", Name: "Coral Gables Library", Capacity: 40},
		{ID: "s1", Name: "Duplicate", Capacity: 5},
		{ID: "", Name: "No id"},
	})

	if snap.Len() != 2 {
		t.Fatalf("expected 2 shelters, got %d", snap.Len())
	}
	if len(dups) != 1 || dups[0] != "s1" {
		t.Fatalf("expected s1 reported as duplicate, got %v", dups)
	}
	first, ok := snap.Get("s1")
	if !ok || first.Name != "Miami High School Shelter" {
		t.Fatalf("expected first s1 to win, got %#v", first)
	}
	if _, ok := snap.Get("s2"); !ok {
		t.Fatal("expected trimmed id lookup to succeed")
	}
	items := snap.Items()
	if items[0].ID != "s1" || items[1].ID != "s2" {
		t.Fatalf("expected endpoint order, got %v", items)
	}
}

func TestNewSnapshotClampsCapacity(t *testing.T) {
	snap, _ := NewSnapshot([]Shelter{{ID: "s1", Capacity: -3}})
	got, _ := snap.Get("s1")
	if got.Capacity != 0 {
		t.Fatalf("expected capacity clamp to 0, got %d", got.Capacity)
	}
}

func TestSnapshotItemsIsACopy(t *testing.T) {
	snap, _ := NewSnapshot([]Shelter{{ID: "s1", Name: "A"}})
	items := snap.Items()
	items[0].Name = "mutated"
	again, _ := snap.Get("s1")
	if again.Name != "A" {
		t.Fatalf("snapshot mutated through Items: %s", again.Name)
	}
}

func TestEmptySnapshot(t *testing.T) {
	var zero Snapshot
	if !zero.Empty() || zero.Len() != 0 {
		t.Fatal("expected zero snapshot to be empty")
	}
	if _, ok := zero.Get("s1"); ok {
		t.Fatal("expected lookup on zero snapshot to miss")
	}
}

func TestDispatchResultMessageContainsETA(t *testing.T) {
	cases := map[float64]string{
		10:  "Waymo dispatched! ETA: 10 minutes",
		7.5: "Waymo dispatched! ETA: 7.5 minutes",
		0:   "Waymo dispatched! ETA: 0 minutes",
	}
	for eta, expected := range cases {
		if got := (DispatchResult{ETAMinutes: eta}).Message(); got != expected {
			t.Fatalf("eta %v expected %q got %q", eta, expected, got)
		}
	}
}
