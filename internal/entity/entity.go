package entity

import "strings"

// Entity is a named entity recognized in text, together with the
// sentences it was seen in.
type Entity struct {
	Text      string   `json:"text"`
	Label     string   `json:"label"`
	Sentences []string `json:"sentences"`
}

// Key returns the deduplication key for an entity: lowercased text plus
// label. Two mentions that differ only in casing collapse to one entity.
func (e Entity) Key() string {
	return strings.ToLower(e.Text) + "_" + e.Label
}

// Set accumulates entities while deduplicating on (lowercased text, label).
// Sentences of duplicate mentions are unioned, keeping first-seen order.
// Insertion order of distinct entities is preserved.
type Set struct {
	order []string
	items map[string]*Entity
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{items: make(map[string]*Entity)}
}

// Add merges one entity into the set.
func (s *Set) Add(e Entity) {
	key := e.Key()
	existing, ok := s.items[key]
	if !ok {
		cp := Entity{Text: e.Text, Label: e.Label, Sentences: append([]string(nil), e.Sentences...)}
		s.items[key] = &cp
		s.order = append(s.order, key)
		return
	}
	for _, sentence := range e.Sentences {
		if !containsString(existing.Sentences, sentence) {
			existing.Sentences = append(existing.Sentences, sentence)
		}
	}
}

// AddAll merges a slice of entities into the set.
func (s *Set) AddAll(entities []Entity) {
	for _, e := range entities {
		s.Add(e)
	}
}

// Len reports the number of distinct entities.
func (s *Set) Len() int { return len(s.order) }

// Entities returns the merged entities in insertion order.
func (s *Set) Entities() []Entity {
	out := make([]Entity, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, *s.items[key])
	}
	return out
}

func containsString(list []string, target string) bool {
	for _, item := range list {
		if item == target {
			return true
		}
	}
	return false
}
