// Package schedule keeps one group's events in two synchronized views: an
// ordered index by (occurrence, subject) and an identity index by subject.
// Both views store arena keys into the same entry set, so they can never
// disagree about an event's current value.
package schedule

import (
	"sort"
	"strings"
	"time"

	"github.com/pkositsyn/bdayd/internal/birthday"
)

// Schedule is not safe for concurrent use; the owning store guards it with
// the group lock.
type Schedule struct {
	entries map[uint64]birthday.Event
	byID    map[string]uint64
	order   []uint64
	nextKey uint64
}

func New() *Schedule {
	return &Schedule{
		entries: make(map[uint64]birthday.Event),
		byID:    make(map[string]uint64),
	}
}

func (s *Schedule) Len() int {
	return len(s.byID)
}

// Get returns the current event for a subject, or nil when absent.
func (s *Schedule) Get(subjectID string) *birthday.Event {
	key, ok := s.byID[subjectID]
	if !ok {
		return nil
	}
	e := s.entries[key]
	return &e
}

// Insert upserts by subject: any previous event for the same subject leaves
// both indexes before the new one enters them. Returns the replaced event,
// or nil if the subject was new.
func (s *Schedule) Insert(e birthday.Event) *birthday.Event {
	prev := s.Remove(e.SubjectID)

	key := s.nextKey
	s.nextKey++
	s.entries[key] = e
	s.byID[e.SubjectID] = key

	i := sort.Search(len(s.order), func(i int) bool {
		return !s.less(s.order[i], key)
	})
	s.order = append(s.order, 0)
	copy(s.order[i+1:], s.order[i:])
	s.order[i] = key
	return prev
}

// Remove deletes a subject from both indexes. Removing an absent subject is
// a no-op; callers distinguish the cases by the nil return.
func (s *Schedule) Remove(subjectID string) *birthday.Event {
	key, ok := s.byID[subjectID]
	if !ok {
		return nil
	}
	e := s.entries[key]
	s.dropFromOrder(key)
	delete(s.entries, key)
	delete(s.byID, subjectID)
	return &e
}

// PeekDue returns all events with occurrence at or before now, ascending,
// without mutating the schedule.
func (s *Schedule) PeekDue(now time.Time) []birthday.Event {
	cut := s.dueCut(now)
	due := make([]birthday.Event, 0, cut)
	for _, key := range s.order[:cut] {
		due = append(due, s.entries[key])
	}
	return due
}

// PopDue removes and returns the events PeekDue would return. The ordered
// index makes the due set a contiguous prefix, so the scan touches only due
// entries.
func (s *Schedule) PopDue(now time.Time) []birthday.Event {
	cut := s.dueCut(now)
	if cut == 0 {
		return nil
	}
	due := make([]birthday.Event, 0, cut)
	for _, key := range s.order[:cut] {
		e := s.entries[key]
		due = append(due, e)
		delete(s.entries, key)
		delete(s.byID, e.SubjectID)
	}
	s.order = append(s.order[:0], s.order[cut:]...)
	return due
}

// Ordered returns a point-in-time ascending snapshot of all events. The
// returned slice is independent of later mutations.
func (s *Schedule) Ordered() []birthday.Event {
	events := make([]birthday.Event, 0, len(s.order))
	for _, key := range s.order {
		events = append(events, s.entries[key])
	}
	return events
}

func (s *Schedule) dueCut(now time.Time) int {
	return sort.Search(len(s.order), func(i int) bool {
		return s.entries[s.order[i]].OccurrenceAt.After(now)
	})
}

func (s *Schedule) dropFromOrder(key uint64) {
	i := sort.Search(len(s.order), func(i int) bool {
		return !s.less(s.order[i], key)
	})
	for i < len(s.order) && s.order[i] != key {
		i++
	}
	if i == len(s.order) {
		return
	}
	s.order = append(s.order[:i], s.order[i+1:]...)
}

func (s *Schedule) less(a, b uint64) bool {
	ea, eb := s.entries[a], s.entries[b]
	if !ea.OccurrenceAt.Equal(eb.OccurrenceAt) {
		return ea.OccurrenceAt.Before(eb.OccurrenceAt)
	}
	return strings.Compare(ea.SubjectID, eb.SubjectID) < 0
}
