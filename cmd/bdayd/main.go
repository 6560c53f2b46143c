package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pkositsyn/bdayd/internal/app"
	"github.com/pkositsyn/bdayd/internal/clock"
	"github.com/pkositsyn/bdayd/internal/logger"
	"github.com/pkositsyn/bdayd/internal/notify"
	"github.com/pkositsyn/bdayd/internal/persist"
	"github.com/pkositsyn/bdayd/internal/persistbuilder"
	"github.com/pkositsyn/bdayd/internal/scheduler"
	internalhttp "github.com/pkositsyn/bdayd/internal/server/http"
	"github.com/pkositsyn/bdayd/internal/store"
	log "github.com/sirupsen/logrus"
)

var configFile string

func init() {
	flag.StringVar(&configFile, "config", "./configs/config.yaml", "Path to configuration file")
	log.SetFormatter(&log.TextFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.WarnLevel)
}

func main() {
	flag.Parse()

	config, err := NewConfig(configFile)
	if err != nil {
		log.Errorf("failed to start %v", err)
		return
	}
	err = logger.PrepareLogger(config.Logger)
	if err != nil {
		log.Errorf("failed to start %v", err)
		return
	}

	backend, err := persistbuilder.New(config.Persist)
	if err != nil {
		log.Errorf("failed to start %v", err)
		return
	}

	st := store.New()
	actor := persist.NewActor(backend, st)

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 15*time.Second)
	err = actor.Load(loadCtx)
	cancelLoad()
	if err != nil {
		log.Errorf("failed to load state: %v", err)
		return
	}
	actor.Start()

	rabbit := notify.NewRabbit(config.Rabbit)
	if err := rabbit.Connect(); err != nil {
		log.Errorf("failed to connect to rabbit: %v", err)
		actor.Stop()
		return
	}
	defer rabbit.Close()

	clk := clock.Real{}
	facade := app.New(st, actor, clk)
	loop := scheduler.New(st, actor, rabbit, clk, config.Scheduler.Interval)
	server := internalhttp.NewServer(config.HTTPServer, facade)

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		loop.Run(ctx)
	}()

	go func() {
		<-ctx.Done()

		stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second*3)
		defer stopCancel()

		if err := server.Stop(stopCtx); err != nil {
			log.Error("failed to stop http server: " + err.Error())
		}
	}()

	log.Info("bdayd is running...")

	if err := server.Start(ctx); err != nil {
		log.Error("failed to start http server: " + err.Error())
		cancel()
	}

	// The loop finishes its current tick before we write the final
	// snapshot and release the backing store.
	wg.Wait()

	saveCtx, saveCancel := context.WithTimeout(context.Background(), time.Second*10)
	if err := actor.SaveNow(saveCtx); err != nil {
		log.Errorf("failed to save final snapshot: %v", err)
	}
	saveCancel()
	actor.Stop()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), time.Second*3)
	defer closeCancel()
	if err := backend.Close(closeCtx); err != nil {
		log.Errorf("failed to close backing store: %v", err)
	}
}
