package store

import (
	"errors"

	"github.com/bluepond-io/aquamon/internal/model"
)

// DefaultCapacity is the retention bound for the demo deployment: the
// newest 100 readings are kept, older ones are dropped from the front.
const DefaultCapacity = 100

// ErrPersistenceFailure is returned when a store backed by durable storage
// cannot update that storage. The in-memory state is left unchanged so the
// store never diverges from what was promised durable.
var ErrPersistenceFailure = errors.New("persistence failure")

// ReadingStore is an ordered, capacity-bounded sequence of readings.
// Insertion order is chronological order.
type ReadingStore interface {
	// Append adds a reading at the end, evicting from the front when the
	// capacity would be exceeded, and returns the reading unchanged.
	Append(r model.Reading) (model.Reading, error)

	// Latest returns the most recently appended reading. The bool is false
	// when the store is empty.
	Latest() (model.Reading, bool)

	// All returns a snapshot copy in insertion order. Mutating the returned
	// slice does not affect the store.
	All() []model.Reading

	// Size returns the current count, 0 <= size <= capacity.
	Size() int

	// Clear resets the store to empty.
	Clear() error
}

// appendBounded appends r and drops from the front until len <= capacity.
// The input slice is not modified.
func appendBounded(readings []model.Reading, r model.Reading, capacity int) []model.Reading {
	next := make([]model.Reading, 0, len(readings)+1)
	next = append(next, readings...)
	next = append(next, r)
	if len(next) > capacity {
		next = next[len(next)-capacity:]
	}
	return next
}
