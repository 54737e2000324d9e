package pipeline

import (
	"maps"
	"sync"
)

// ResultSet maps words to validated pronunciations. The first insert of a
// word wins; later inserts are ignored.
type ResultSet struct {
	mu sync.Mutex
	m  map[string]string
}

// NewResultSet returns an empty set.
func NewResultSet() *ResultSet {
	return &ResultSet{m: make(map[string]string)}
}

// Insert stores pron for word unless word is already present. Reports
// whether the value was stored.
func (r *ResultSet) Insert(word, pron string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[word]; ok {
		return false
	}
	r.m[word] = pron
	return true
}

// Has reports whether word has a result.
func (r *ResultSet) Has(word string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.m[word]
	return ok
}

// Len returns the number of stored results.
func (r *ResultSet) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.m)
}

// Snapshot returns a copy of the stored results.
func (r *ResultSet) Snapshot() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.m)
}

// DropReason says why a word left the pipeline without a result.
type DropReason string

const (
	// DropInvalid marks a word whose answer failed validation.
	DropInvalid DropReason = "invalid"
	// DropExhausted marks a word that ran out of retries.
	DropExhausted DropReason = "exhausted"
)

// Dropped is the ledger of words removed without a result.
type Dropped struct {
	mu sync.Mutex
	m  map[string]DropReason
}

// NewDropped returns an empty ledger.
func NewDropped() *Dropped {
	return &Dropped{m: make(map[string]DropReason)}
}

// Add records word with reason. The first reason recorded for a word wins.
func (d *Dropped) Add(word string, reason DropReason) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.m[word]; ok {
		return false
	}
	d.m[word] = reason
	return true
}

// Has reports whether word was dropped.
func (d *Dropped) Has(word string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.m[word]
	return ok
}

// Len returns the number of dropped words.
func (d *Dropped) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.m)
}

// Count returns the number of words dropped for reason.
func (d *Dropped) Count(reason DropReason) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, r := range d.m {
		if r == reason {
			n++
		}
	}
	return n
}

// Snapshot returns a copy of the ledger.
func (d *Dropped) Snapshot() map[string]DropReason {
	d.mu.Lock()
	defer d.mu.Unlock()
	return maps.Clone(d.m)
}
