// Package scheduler drives the periodic firing of due events: drain, announce,
// reschedule, save.
package scheduler

import (
	"context"
	"time"

	"github.com/pkositsyn/bdayd/internal/birthday"
	"github.com/pkositsyn/bdayd/internal/clock"
	"github.com/pkositsyn/bdayd/internal/notify"
	"github.com/pkositsyn/bdayd/internal/persist"
	"github.com/pkositsyn/bdayd/internal/schedule"
	"github.com/pkositsyn/bdayd/internal/store"
	log "github.com/sirupsen/logrus"
)

const defaultInterval = time.Minute

type Config struct {
	// Interval between firing passes. A latency/wakeup trade-off, not a
	// correctness parameter.
	Interval time.Duration
}

type Loop struct {
	store     *store.Store
	actor     *persist.Actor
	announcer notify.Announcer
	clock     clock.Clock
	interval  time.Duration
}

func New(st *store.Store, actor *persist.Actor, announcer notify.Announcer, clk clock.Clock, interval time.Duration) *Loop {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Loop{store: st, actor: actor, announcer: announcer, clock: clk, interval: interval}
}

// Run ticks until ctx is cancelled. Cancellation is observed between ticks,
// so a tick in flight always finishes: no event is left popped but not
// rescheduled.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		l.Tick(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Tick processes one firing pass over all groups.
func (l *Loop) Tick(ctx context.Context) {
	now := l.clock.Now()
	fired := 0
	for _, groupID := range l.store.GroupIDs() {
		fired += l.fireGroup(ctx, groupID, now)
	}
	if fired == 0 {
		return
	}
	if err := l.actor.RequestSave(); err != nil {
		log.Errorf("failed to request save: %v", err)
	}
}

type firing struct {
	event       birthday.Event
	rescheduled birthday.Event
	target      string
	groupWide   bool
}

// fireGroup drains and reschedules one group's due events under its write
// lock, then announces outside the lock. Announcement errors are logged;
// rescheduling has already happened by then, so a dead transport can only
// lose a message, never the next occurrence.
func (l *Loop) fireGroup(ctx context.Context, groupID string, now time.Time) int {
	var firings []firing
	err := l.store.WithGroup(groupID, func(cfg *birthday.GroupConfig, sched *schedule.Schedule) error {
		for _, e := range sched.PopDue(now) {
			next := birthday.Event{
				SubjectID:     e.SubjectID,
				OccurrenceAt:  birthday.Advance(e.OccurrenceAt, now),
				UsesTimeOfDay: e.UsesTimeOfDay,
				NotifyTarget:  e.NotifyTarget,
			}
			sched.Insert(next)
			firings = append(firings, firing{
				event:       e,
				rescheduled: next,
				target:      cfg.AnnounceTarget,
				groupWide:   cfg.AnnounceGroupWide,
			})
		}
		return nil
	})
	if err != nil {
		log.Errorf("failed to process group %q: %v", groupID, err)
		return 0
	}

	for _, f := range firings {
		log.Debugf("firing %q in group %q, next occurrence %s",
			f.event.SubjectID, groupID, f.rescheduled.OccurrenceAt)
		announcement := notify.Announcement{
			GroupID:      groupID,
			SubjectID:    f.event.SubjectID,
			NotifyTarget: f.event.NotifyTarget,
			Target:       f.target,
			GroupWide:    f.groupWide,
			OccurredAt:   f.event.OccurrenceAt,
		}
		if err := l.announcer.Announce(ctx, announcement); err != nil {
			log.Errorf("failed to announce %q in group %q: %v", f.event.SubjectID, groupID, err)
		}
		err := l.actor.Persist(ctx, persist.Mutation{
			Kind:    persist.MutationUpsertEvent,
			GroupID: groupID,
			Event:   &f.rescheduled,
		})
		if err != nil {
			log.Errorf("failed to persist reschedule of %q in group %q: %v", f.event.SubjectID, groupID, err)
		}
	}
	return len(firings)
}
