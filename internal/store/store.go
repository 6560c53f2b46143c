// Package store holds the in-memory authoritative state: every group's
// config and schedule, with reader/writer locking per group so that
// independent groups never contend.
package store

import (
	"sync"

	"github.com/pkositsyn/bdayd/internal/birthday"
	"github.com/pkositsyn/bdayd/internal/schedule"
)

type group struct {
	mu    sync.RWMutex
	cfg   birthday.GroupConfig
	sched *schedule.Schedule
}

type Store struct {
	mu     sync.RWMutex
	groups map[string]*group
}

func New() *Store {
	return &Store{groups: make(map[string]*group)}
}

// WithGroup runs fn under the group's write lock, creating the group on
// first use. fn may mutate both the config and the schedule.
func (s *Store) WithGroup(groupID string, fn func(cfg *birthday.GroupConfig, sched *schedule.Schedule) error) error {
	g := s.getOrCreate(groupID)
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn(&g.cfg, g.sched)
}

// ViewGroup runs fn under the group's read lock. An unknown group is not
// created: ViewGroup returns found == false and fn does not run.
func (s *Store) ViewGroup(groupID string, fn func(cfg birthday.GroupConfig, sched *schedule.Schedule) error) (bool, error) {
	s.mu.RLock()
	g, ok := s.groups[groupID]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return true, fn(g.cfg, g.sched)
}

// Contains reports whether the group has been set up or written to.
func (s *Store) Contains(groupID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.groups[groupID]
	return ok
}

// GroupIDs returns all known groups in unspecified order.
func (s *Store) GroupIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.groups))
	for id := range s.groups {
		ids = append(ids, id)
	}
	return ids
}

func (s *Store) getOrCreate(groupID string) *group {
	s.mu.RLock()
	g, ok := s.groups[groupID]
	s.mu.RUnlock()
	if ok {
		return g
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok = s.groups[groupID]; ok {
		return g
	}
	g = &group{cfg: birthday.GroupConfig{GroupID: groupID}, sched: schedule.New()}
	s.groups[groupID] = g
	return g
}
