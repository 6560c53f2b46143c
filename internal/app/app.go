package app

import (
	"context"
	"fmt"
	"time"

	"github.com/pkositsyn/bdayd/internal/birthday"
	"github.com/pkositsyn/bdayd/internal/clock"
	"github.com/pkositsyn/bdayd/internal/persist"
	"github.com/pkositsyn/bdayd/internal/schedule"
	"github.com/pkositsyn/bdayd/internal/store"
)

// App is the command facade: everything the external command layer may do
// to the scheduler goes through here. Mutations hit the in-memory store
// first, then the persistence actor.
type App struct {
	Store *store.Store
	Actor *persist.Actor
	Clock clock.Clock
}

func New(st *store.Store, actor *persist.Actor, clk clock.Clock) *App {
	return &App{Store: st, Actor: actor, Clock: clk}
}

// AddOrUpdate sets a subject's annual date, replacing any previous entry.
// The timezone argument wins over the group default; with neither set the
// call fails before touching the schedule. Returns the computed next
// occurrence.
func (a *App) AddOrUpdate(
	ctx context.Context,
	groupID, subjectID string,
	month, day int,
	tod *birthday.TimeOfDay,
	timezone, notifyTarget string,
) (time.Time, error) {
	created := !a.Store.Contains(groupID)
	var event birthday.Event
	var groupCfg birthday.GroupConfig
	err := a.Store.WithGroup(groupID, func(cfg *birthday.GroupConfig, sched *schedule.Schedule) error {
		name := timezone
		if name == "" {
			name = cfg.Timezone
		}
		if name == "" {
			return birthday.ErrNoTimezone
		}
		loc, err := time.LoadLocation(name)
		if err != nil {
			return fmt.Errorf("%q: %w", name, birthday.ErrInvalidTimezone)
		}
		next, err := birthday.NextOccurrence(month, day, tod, loc, a.Clock.Now())
		if err != nil {
			return err
		}
		event = birthday.Event{
			SubjectID:     subjectID,
			OccurrenceAt:  next,
			UsesTimeOfDay: tod != nil,
			NotifyTarget:  notifyTarget,
		}
		sched.Insert(event)
		groupCfg = *cfg
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}
	if created {
		// The group row has to land before the first birthday row: a
		// restart reconstructs events per known group, so an event whose
		// group was only created implicitly would otherwise never load back.
		err = a.Actor.Persist(ctx, persist.Mutation{
			Kind:    persist.MutationUpsertGroup,
			GroupID: groupID,
			Config:  &groupCfg,
		})
		if err != nil {
			return time.Time{}, err
		}
	}
	err = a.Actor.Persist(ctx, persist.Mutation{
		Kind:    persist.MutationUpsertEvent,
		GroupID: groupID,
		Event:   &event,
	})
	if err != nil {
		return time.Time{}, err
	}
	return event.OccurrenceAt, nil
}

// Remove deletes a subject's entry. An absent subject or group is not an
// error; the bool return tells the caller which case it was.
func (a *App) Remove(ctx context.Context, groupID, subjectID string) (bool, error) {
	if !a.Store.Contains(groupID) {
		return false, nil
	}
	var removed bool
	err := a.Store.WithGroup(groupID, func(_ *birthday.GroupConfig, sched *schedule.Schedule) error {
		removed = sched.Remove(subjectID) != nil
		return nil
	})
	if err != nil || !removed {
		return false, err
	}
	err = a.Actor.Persist(ctx, persist.Mutation{
		Kind:      persist.MutationDeleteEvent,
		GroupID:   groupID,
		SubjectID: subjectID,
	})
	return true, err
}

// Get returns the subject's current entry, or nil when the subject or the
// group is unknown.
func (a *App) Get(_ context.Context, groupID, subjectID string) (*birthday.Event, error) {
	var event *birthday.Event
	_, err := a.Store.ViewGroup(groupID, func(_ birthday.GroupConfig, sched *schedule.Schedule) error {
		event = sched.Get(subjectID)
		return nil
	})
	return event, err
}

// ListUpcoming returns up to limit entries in occurrence order plus how many
// were cut off. limit <= 0 means no limit.
func (a *App) ListUpcoming(_ context.Context, groupID string, limit int) ([]birthday.Event, int, error) {
	var events []birthday.Event
	_, err := a.Store.ViewGroup(groupID, func(_ birthday.GroupConfig, sched *schedule.Schedule) error {
		events = sched.Ordered()
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	if limit <= 0 || limit >= len(events) {
		return events, 0, nil
	}
	return events[:limit], len(events) - limit, nil
}

// DueToday lists, without firing anything, the entries whose occurrence
// falls within the current day of the group's timezone (UTC when unset).
func (a *App) DueToday(_ context.Context, groupID string) ([]birthday.Event, error) {
	var events []birthday.Event
	_, err := a.Store.ViewGroup(groupID, func(cfg birthday.GroupConfig, sched *schedule.Schedule) error {
		loc := time.UTC
		if cfg.Timezone != "" {
			if l, err := time.LoadLocation(cfg.Timezone); err == nil {
				loc = l
			}
		}
		local := a.Clock.Now().In(loc)
		endOfDay := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
		events = sched.PeekDue(endOfDay.Add(-time.Nanosecond))
		return nil
	})
	return events, err
}

// SetupGroup creates a group with explicit configuration. Setting up a
// group that already exists fails; the config commands change it afterwards.
func (a *App) SetupGroup(ctx context.Context, cfg birthday.GroupConfig) error {
	if cfg.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Timezone); err != nil {
			return fmt.Errorf("%q: %w", cfg.Timezone, birthday.ErrInvalidTimezone)
		}
	}
	if a.Store.Contains(cfg.GroupID) {
		return fmt.Errorf("group %q: %w", cfg.GroupID, birthday.ErrGroupExists)
	}
	err := a.Store.WithGroup(cfg.GroupID, func(dst *birthday.GroupConfig, _ *schedule.Schedule) error {
		*dst = cfg
		return nil
	})
	if err != nil {
		return err
	}
	return a.Actor.Persist(ctx, persist.Mutation{
		Kind:    persist.MutationUpsertGroup,
		GroupID: cfg.GroupID,
		Config:  &cfg,
	})
}

// SetTimezone changes the group default timezone.
func (a *App) SetTimezone(ctx context.Context, groupID, timezone string) error {
	if _, err := time.LoadLocation(timezone); err != nil {
		return fmt.Errorf("%q: %w", timezone, birthday.ErrInvalidTimezone)
	}
	return a.updateConfig(ctx, groupID, func(cfg *birthday.GroupConfig) {
		cfg.Timezone = timezone
	})
}

// SetAnnounceTarget changes where the group's announcements go.
func (a *App) SetAnnounceTarget(ctx context.Context, groupID, target string) error {
	return a.updateConfig(ctx, groupID, func(cfg *birthday.GroupConfig) {
		cfg.AnnounceTarget = target
	})
}

// GroupSettings returns a copy of the group's config, nil when unknown.
func (a *App) GroupSettings(_ context.Context, groupID string) (*birthday.GroupConfig, error) {
	var out *birthday.GroupConfig
	_, err := a.Store.ViewGroup(groupID, func(cfg birthday.GroupConfig, _ *schedule.Schedule) error {
		out = &cfg
		return nil
	})
	return out, err
}

func (a *App) updateConfig(ctx context.Context, groupID string, change func(*birthday.GroupConfig)) error {
	var updated birthday.GroupConfig
	err := a.Store.WithGroup(groupID, func(cfg *birthday.GroupConfig, _ *schedule.Schedule) error {
		change(cfg)
		updated = *cfg
		return nil
	})
	if err != nil {
		return err
	}
	return a.Actor.Persist(ctx, persist.Mutation{
		Kind:    persist.MutationUpsertGroup,
		GroupID: groupID,
		Config:  &updated,
	})
}
