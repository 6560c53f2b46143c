// Package persist owns the single writer in front of the backing store. All
// durable reads and writes funnel through one goroutine fed by a command
// channel; every command carries a one-shot response slot, so callers always
// get a definitive outcome and mutations land in submission order.
package persist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkositsyn/bdayd/internal/birthday"
	"github.com/pkositsyn/bdayd/internal/store"
	log "github.com/sirupsen/logrus"
)

const saveTimeout = 30 * time.Second

type command struct {
	mutation *Mutation
	done     chan error
}

type Actor struct {
	backend  Backend
	store    *store.Store
	commands chan command
	saveCh   chan struct{}
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

func NewActor(backend Backend, st *store.Store) *Actor {
	return &Actor{
		backend:  backend,
		store:    st,
		commands: make(chan command),
		saveCh:   make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Load restores the store from the backing store. Called once before Start.
func (a *Actor) Load(ctx context.Context) error {
	snap, err := a.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("load backing store: %w", err)
	}
	a.store.Restore(snap)
	return nil
}

func (a *Actor) Start() {
	go a.run()
}

// Stop shuts the actor down. Pending save requests are flushed; new
// submissions fail with ErrStoreUnavailable.
func (a *Actor) Stop() {
	a.stopOnce.Do(func() { close(a.stopCh) })
	<-a.doneCh
}

// Persist records one mutation durably. Against a synchronous backend the
// call returns only after the write landed; against a snapshot backend it
// schedules a coalesced save and returns immediately.
func (a *Actor) Persist(ctx context.Context, m Mutation) error {
	if !a.backend.Synchronous() {
		return a.RequestSave()
	}
	return a.submit(ctx, command{mutation: &m, done: make(chan error, 1)})
}

// RequestSave asks for a snapshot save without waiting for it. Bursts
// collapse: at most one save is pending while another is being written.
func (a *Actor) RequestSave() error {
	select {
	case <-a.stopCh:
		return birthday.ErrStoreUnavailable
	default:
	}
	select {
	case a.saveCh <- struct{}{}:
	default:
		// A save is already pending; it will pick this change up.
	}
	return nil
}

// SaveNow writes a snapshot and waits for the outcome. Used on shutdown so
// the final state is on disk before the backend closes.
func (a *Actor) SaveNow(ctx context.Context) error {
	return a.submit(ctx, command{done: make(chan error, 1)})
}

func (a *Actor) submit(ctx context.Context, cmd command) error {
	select {
	case a.commands <- cmd:
	case <-a.stopCh:
		return birthday.ErrStoreUnavailable
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.done:
		return err
	case <-a.doneCh:
		return birthday.ErrStoreUnavailable
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Actor) run() {
	defer close(a.doneCh)
	for {
		select {
		case <-a.stopCh:
			select {
			case <-a.saveCh:
				a.save()
			default:
			}
			return
		case cmd := <-a.commands:
			a.handle(cmd)
		case <-a.saveCh:
			a.save()
		}
	}
}

func (a *Actor) handle(cmd command) {
	var err error
	switch {
	case cmd.mutation != nil:
		err = a.apply(*cmd.mutation)
	default:
		err = a.save()
	}
	cmd.done <- err
}

func (a *Actor) apply(m Mutation) error {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := a.backend.Apply(ctx, m); err != nil {
		return fmt.Errorf("%w: %v", birthday.ErrPersistenceFailure, err)
	}
	return nil
}

// save snapshots the store and writes it out. A failed save is logged and
// reported, never fatal: memory stays authoritative and the next successful
// save carries everything changed meanwhile.
func (a *Actor) save() error {
	if a.backend.Synchronous() {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := a.backend.Save(ctx, a.store.Snapshot()); err != nil {
		log.Errorf("failed to save snapshot: %v", err)
		return fmt.Errorf("%w: %v", birthday.ErrPersistenceFailure, err)
	}
	return nil
}
