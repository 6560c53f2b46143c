package logger

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
)

type Config struct {
	Level string
}

func PrepareLogger(config Config) error {
	level, err := log.ParseLevel(config.Level)
	if err != nil {
		return fmt.Errorf("unknown log level %q: %w", config.Level, err)
	}
	log.SetFormatter(&log.TextFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(level)
	return nil
}
