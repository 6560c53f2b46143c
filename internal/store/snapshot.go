package store

import (
	"sort"

	"github.com/pkositsyn/bdayd/internal/birthday"
	"github.com/pkositsyn/bdayd/internal/schedule"
)

// Snapshot is the persisted shape of the store: per group its config and the
// raw event set. No index data is included; both schedule indexes rebuild
// from the events on Restore.
type Snapshot struct {
	Groups []GroupSnapshot `json:"groups"`
}

type GroupSnapshot struct {
	Config birthday.GroupConfig `json:"config"`
	Events []birthday.Event     `json:"events"`
}

// Snapshot copies the whole store. Group locks are held only while copying
// that group, so a snapshot observes each group atomically but not the store
// as a whole.
func (s *Store) Snapshot() Snapshot {
	ids := s.GroupIDs()
	sort.Strings(ids)

	snap := Snapshot{Groups: make([]GroupSnapshot, 0, len(ids))}
	for _, id := range ids {
		s.mu.RLock()
		g, ok := s.groups[id]
		s.mu.RUnlock()
		if !ok {
			continue
		}
		g.mu.RLock()
		snap.Groups = append(snap.Groups, GroupSnapshot{
			Config: g.cfg,
			Events: g.sched.Ordered(),
		})
		g.mu.RUnlock()
	}
	return snap
}

// Restore replaces the store contents with a snapshot.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups = make(map[string]*group, len(snap.Groups))
	for _, gs := range snap.Groups {
		g := &group{cfg: gs.Config, sched: schedule.New()}
		for _, e := range gs.Events {
			g.sched.Insert(e)
		}
		s.groups[gs.Config.GroupID] = g
	}
}
