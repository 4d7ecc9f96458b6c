package domain

import "strings"

// Shelter is an evacuation site as listed by the shelters endpoint.
type Shelter struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Capacity int    `json:"capacity"`
}

// Snapshot is an ordered, read-only list of shelters with unique ids.
type Snapshot struct {
	items []Shelter
	index map[string]int
}

// NewSnapshot keeps the first shelter for each id and drops records without one.
// It returns the ids that were discarded as duplicates.
func NewSnapshot(shelters []Shelter) (Snapshot, []string) {
	snap := Snapshot{
		items: make([]Shelter, 0, len(shelters)),
		index: make(map[string]int, len(shelters)),
	}
	var duplicates []string
	for _, s := range shelters {
		s.ID = strings.TrimSpace(s.ID)
		if s.ID == "" {
			continue
		}
		if _, exists := snap.index[s.ID]; exists {
			duplicates = append(duplicates, s.ID)
			continue
		}
		if s.Capacity < 0 {
			s.Capacity = 0
		}
		snap.index[s.ID] = len(snap.items)
		snap.items = append(snap.items, s)
	}
	return snap, duplicates
}

func (s Snapshot) Len() int { return len(s.items) }

func (s Snapshot) Empty() bool { return len(s.items) == 0 }

// Items returns a copy of the shelters in endpoint order.
func (s Snapshot) Items() []Shelter {
	out := make([]Shelter, len(s.items))
	copy(out, s.items)
	return out
}

func (s Snapshot) Get(id string) (Shelter, bool) {
	i, ok := s.index[strings.TrimSpace(id)]
	if !ok {
		return Shelter{}, false
	}
	return s.items[i], true
}
