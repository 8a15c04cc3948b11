// Package idtracker detects duplicate tortilla:id values in O(1) expected
// time using a 64-bit xxHash of the id as the map key, falling back to an
// exact string compare on hash collision.
package idtracker

import (
	"github.com/cespare/xxhash/v2"

	"github.com/tacofoundation/tortilla/errs"
)

// Tracker tracks the tortilla:id values seen so far while building a
// Tortilla or validating a sample collection, and reports ErrDuplicateID
// the moment a repeat is
// observed. Each hash bucket keeps every distinct id that mapped to it, so
// a genuine xxHash64 collision between two different ids never masks a
// later real duplicate of either one.
type Tracker struct {
	seen  map[uint64][]string // xxHash64(id) -> ids sharing that hash
	count int
}

// New creates an empty Tracker sized for n expected items.
func New(n int) *Tracker {
	return &Tracker{seen: make(map[uint64][]string, n)}
}

// Add records id, returning errs.ErrDuplicateID if it has already been
// added.
func (t *Tracker) Add(id string) error {
	h := xxhash.Sum64String(id)
	for _, existing := range t.seen[h] {
		if existing == id {
			return errs.ErrDuplicateID
		}
	}
	t.seen[h] = append(t.seen[h], id)
	t.count++

	return nil
}

// Count returns how many distinct ids have been recorded.
func (t *Tracker) Count() int {
	return t.count
}
