package persist

import (
	"context"

	"github.com/pkositsyn/bdayd/internal/birthday"
	"github.com/pkositsyn/bdayd/internal/store"
)

type MutationKind int

const (
	MutationUpsertEvent MutationKind = iota
	MutationDeleteEvent
	MutationUpsertGroup
)

// Mutation is one durable change. GroupID is always set; Event is set for
// event mutations, Config for group mutations, SubjectID for deletes.
type Mutation struct {
	Kind      MutationKind
	GroupID   string
	SubjectID string
	Event     *birthday.Event
	Config    *birthday.GroupConfig
}

// Backend is the durable side of the actor. A synchronous backend lands
// every mutation before the caller is told it succeeded (database mode); an
// asynchronous one ignores individual mutations and persists whole
// snapshots, coalesced (file mode).
type Backend interface {
	Load(ctx context.Context) (store.Snapshot, error)
	Save(ctx context.Context, snap store.Snapshot) error
	Apply(ctx context.Context, m Mutation) error
	Synchronous() bool
	Close(ctx context.Context) error
}
