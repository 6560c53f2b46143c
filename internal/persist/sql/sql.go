package sqlbackend

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkositsyn/bdayd/internal/birthday"
	"github.com/pkositsyn/bdayd/internal/persist"
	"github.com/pkositsyn/bdayd/internal/store"
	log "github.com/sirupsen/logrus"
)

var ErrConnectionFailed = errors.New("failed to connect")

type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
}

// Backend reaches Postgres through sqlx. It is synchronous: the actor
// reports success only after the statement landed, so a confirmed add is
// a durable add.
type Backend struct {
	host     string
	port     int
	database string
	username string
	password string
	db       *sqlx.DB
}

func New(config Config) *Backend {
	return &Backend{
		host:     config.Host,
		port:     config.Port,
		database: config.Database,
		username: config.Username,
		password: config.Password,
	}
}

func (b *Backend) Connect(ctx context.Context) error {
	db, err := sqlx.ConnectContext(
		ctx,
		"postgres",
		fmt.Sprintf(
			"sslmode=disable host=%s port=%d dbname=%s user=%s password=%s",
			b.host, b.port, b.database, b.username, b.password),
	)
	if err != nil {
		log.Errorf("failed to connect: %v", err)
		return ErrConnectionFailed
	}
	b.db = db
	return nil
}

func (b *Backend) Close(_ context.Context) error {
	if b.db == nil {
		return nil
	}
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

func (b *Backend) Synchronous() bool {
	return true
}

func (b *Backend) Load(ctx context.Context) (store.Snapshot, error) {
	var configs []birthday.GroupConfig
	err := b.db.SelectContext(
		ctx,
		&configs,
		"SELECT group_id, COALESCE(timezone, '') AS timezone, COALESCE(announce_target, '') AS announce_target, "+
			"allow_anyone_edit, announce_group_wide FROM groups ORDER BY group_id",
	)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("load groups: %w", err)
	}

	snap := store.Snapshot{Groups: make([]store.GroupSnapshot, 0, len(configs))}
	for _, cfg := range configs {
		var events []birthday.Event
		err = b.db.SelectContext(
			ctx,
			&events,
			"SELECT subject_id, occurrence_at, uses_time_of_day, notify_target "+
				"FROM birthdays WHERE group_id=$1 ORDER BY occurrence_at, subject_id",
			cfg.GroupID,
		)
		if err != nil {
			return store.Snapshot{}, fmt.Errorf("load birthdays for group %q: %w", cfg.GroupID, err)
		}
		snap.Groups = append(snap.Groups, store.GroupSnapshot{Config: cfg, Events: events})
	}
	return snap, nil
}

// Save is a no-op: every mutation already landed individually.
func (b *Backend) Save(_ context.Context, _ store.Snapshot) error {
	return nil
}

func (b *Backend) Apply(ctx context.Context, m persist.Mutation) error {
	switch m.Kind {
	case persist.MutationUpsertGroup:
		return b.upsertGroup(ctx, m)
	case persist.MutationUpsertEvent:
		return b.upsertEvent(ctx, m)
	case persist.MutationDeleteEvent:
		return b.deleteEvent(ctx, m)
	default:
		return fmt.Errorf("unknown mutation kind %d", m.Kind)
	}
}

func (b *Backend) upsertGroup(ctx context.Context, m persist.Mutation) error {
	cfg := m.Config
	_, err := b.db.ExecContext(
		ctx,
		"INSERT INTO groups(group_id, timezone, announce_target, allow_anyone_edit, announce_group_wide) "+
			"VALUES($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5) "+
			"ON CONFLICT (group_id) DO UPDATE SET timezone=NULLIF($2, ''), announce_target=NULLIF($3, ''), "+
			"allow_anyone_edit=$4, announce_group_wide=$5",
		cfg.GroupID, cfg.Timezone, cfg.AnnounceTarget, cfg.AllowAnyoneEdit, cfg.AnnounceGroupWide,
	)
	return err
}

func (b *Backend) upsertEvent(ctx context.Context, m persist.Mutation) error {
	e := m.Event
	_, err := b.db.ExecContext(
		ctx,
		"INSERT INTO birthdays(group_id, subject_id, occurrence_at, uses_time_of_day, notify_target) "+
			"VALUES($1, $2, $3, $4, $5) "+
			"ON CONFLICT (group_id, subject_id) DO UPDATE SET occurrence_at=$3, uses_time_of_day=$4, notify_target=$5",
		m.GroupID, e.SubjectID, e.OccurrenceAt.UTC(), e.UsesTimeOfDay, e.NotifyTarget,
	)
	return err
}

func (b *Backend) deleteEvent(ctx context.Context, m persist.Mutation) error {
	_, err := b.db.ExecContext(
		ctx,
		"DELETE FROM birthdays WHERE group_id=$1 AND subject_id=$2",
		m.GroupID, m.SubjectID,
	)
	return err
}
