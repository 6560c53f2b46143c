package persistbuilder

import (
	"context"
	"fmt"
	"time"

	"github.com/pkositsyn/bdayd/internal/persist"
	filebackend "github.com/pkositsyn/bdayd/internal/persist/file"
	sqlbackend "github.com/pkositsyn/bdayd/internal/persist/sql"
)

type Config struct {
	BackendType string
	File        filebackend.Config
	Database    sqlbackend.Config
}

func New(config Config) (persist.Backend, error) {
	switch config.BackendType {
	case "file":
		return filebackend.New(config.File), nil
	case "sql":
		b := sqlbackend.New(config.Database)
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err := b.Connect(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database %s %d: %w", config.Database.Host, config.Database.Port, err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown backend type %s", config.BackendType)
	}
}
