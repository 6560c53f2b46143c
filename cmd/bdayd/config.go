package main

import (
	"fmt"
	"strings"

	"github.com/pkositsyn/bdayd/internal/logger"
	"github.com/pkositsyn/bdayd/internal/notify"
	"github.com/pkositsyn/bdayd/internal/persistbuilder"
	"github.com/pkositsyn/bdayd/internal/scheduler"
	internalhttp "github.com/pkositsyn/bdayd/internal/server/http"
	"github.com/spf13/viper"
)

const envConfigPrefix = "$env:"

type Config struct {
	HTTPServer internalhttp.Config
	Logger     logger.Config
	Persist    persistbuilder.Config
	Rabbit     notify.Config
	Scheduler  scheduler.Config
}

func NewConfig(configFile string) (Config, error) {
	config := Config{}
	viper.SetConfigFile(configFile)

	viper.SetDefault("httpServer.host", "127.0.0.1")
	viper.SetDefault("httpServer.port", "8005")
	viper.SetDefault("logger.level", "WARN")
	viper.SetDefault("persist.backendType", "file")
	viper.SetDefault("persist.file.path", "./data/bdayd.json")
	viper.SetDefault("rabbit.host", "127.0.0.1")
	viper.SetDefault("rabbit.port", "5672")
	viper.SetDefault("rabbit.user", "user")
	viper.SetDefault("rabbit.password", "pass")
	viper.SetDefault("rabbit.queue", "bdayd.announce")
	viper.SetDefault("scheduler.interval", "60s")

	err := viper.ReadInConfig()
	if err != nil {
		return config, fmt.Errorf("failed to read config %q: %w", configFile, err)
	}
	keys := viper.AllKeys()
	for _, key := range keys {
		env := viper.GetString(key)
		if strings.HasPrefix(env, envConfigPrefix) {
			err := viper.BindEnv(key, env[len(envConfigPrefix):])
			if err != nil {
				return Config{}, fmt.Errorf("failed to prepare config: %w", err)
			}
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return config, fmt.Errorf("unable to decode into config struct: %w", err)
	}
	return config, nil
}
