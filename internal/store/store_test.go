package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkositsyn/bdayd/internal/birthday"
	"github.com/pkositsyn/bdayd/internal/schedule"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	t.Run("reads do not create groups", func(t *testing.T) {
		s := New()
		found, err := s.ViewGroup("g1", func(birthday.GroupConfig, *schedule.Schedule) error {
			t.Fatal("callback must not run for unknown group")
			return nil
		})
		require.NoError(t, err)
		require.False(t, found)
		require.False(t, s.Contains("g1"))
	})

	t.Run("writes create groups lazily", func(t *testing.T) {
		s := New()
		err := s.WithGroup("g1", func(cfg *birthday.GroupConfig, sched *schedule.Schedule) error {
			require.Equal(t, "g1", cfg.GroupID)
			sched.Insert(birthday.Event{SubjectID: "alice", OccurrenceAt: time.Unix(100, 0)})
			return nil
		})
		require.NoError(t, err)
		require.True(t, s.Contains("g1"))
		require.Equal(t, []string{"g1"}, s.GroupIDs())

		found, err := s.ViewGroup("g1", func(_ birthday.GroupConfig, sched *schedule.Schedule) error {
			require.NotNil(t, sched.Get("alice"))
			return nil
		})
		require.NoError(t, err)
		require.True(t, found)
	})

	t.Run("concurrent writers on distinct groups", func(t *testing.T) {
		s := New()
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				groupID := fmt.Sprintf("g%d", i%10)
				subjectID := fmt.Sprintf("subject%d", i)
				_ = s.WithGroup(groupID, func(_ *birthday.GroupConfig, sched *schedule.Schedule) error {
					sched.Insert(birthday.Event{SubjectID: subjectID, OccurrenceAt: time.Unix(int64(i), 0)})
					return nil
				})
			}(i)
		}
		wg.Wait()

		require.Len(t, s.GroupIDs(), 10)
		total := 0
		for _, groupID := range s.GroupIDs() {
			_, err := s.ViewGroup(groupID, func(_ birthday.GroupConfig, sched *schedule.Schedule) error {
				total += sched.Len()
				return nil
			})
			require.NoError(t, err)
		}
		require.Equal(t, 50, total)
	})
}

func TestSnapshot(t *testing.T) {
	t.Run("round trip preserves order and configs", func(t *testing.T) {
		s := New()
		require.NoError(t, s.WithGroup("g2", func(cfg *birthday.GroupConfig, sched *schedule.Schedule) error {
			cfg.Timezone = "Europe/Berlin"
			sched.Insert(birthday.Event{SubjectID: "carol", OccurrenceAt: time.Unix(300, 0).UTC()})
			return nil
		}))
		require.NoError(t, s.WithGroup("g1", func(cfg *birthday.GroupConfig, sched *schedule.Schedule) error {
			cfg.AnnounceTarget = "general"
			cfg.AnnounceGroupWide = true
			sched.Insert(birthday.Event{SubjectID: "bob", OccurrenceAt: time.Unix(200, 0).UTC()})
			sched.Insert(birthday.Event{SubjectID: "alice", OccurrenceAt: time.Unix(100, 0).UTC()})
			return nil
		}))

		snap := s.Snapshot()
		require.Len(t, snap.Groups, 2)
		require.Equal(t, "g1", snap.Groups[0].Config.GroupID)
		require.Equal(t, "g2", snap.Groups[1].Config.GroupID)

		restored := New()
		restored.Restore(snap)
		for _, groupID := range []string{"g1", "g2"} {
			var before, after []birthday.Event
			_, err := s.ViewGroup(groupID, func(_ birthday.GroupConfig, sched *schedule.Schedule) error {
				before = sched.Ordered()
				return nil
			})
			require.NoError(t, err)
			found, err := restored.ViewGroup(groupID, func(cfg birthday.GroupConfig, sched *schedule.Schedule) error {
				after = sched.Ordered()
				return nil
			})
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, before, after)
		}

		var cfg birthday.GroupConfig
		_, err := restored.ViewGroup("g1", func(c birthday.GroupConfig, _ *schedule.Schedule) error {
			cfg = c
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, "general", cfg.AnnounceTarget)
		require.True(t, cfg.AnnounceGroupWide)
	})

	t.Run("empty store snapshots cleanly", func(t *testing.T) {
		s := New()
		snap := s.Snapshot()
		require.Empty(t, snap.Groups)
		restored := New()
		restored.Restore(snap)
		require.Empty(t, restored.GroupIDs())
	})
}
