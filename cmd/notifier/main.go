package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkositsyn/bdayd/internal/logger"
	"github.com/pkositsyn/bdayd/internal/notify"
	log "github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

var configFile string

func init() {
	flag.StringVar(&configFile, "config", "./configs/notifier_config.yaml", "Path to configuration file")
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

	rabbit := notify.NewRabbit(config.Rabbit)
	if err := rabbit.Connect(); err != nil {
		log.Errorf("failed to connect to rabbit: %v", err)
		return
	}
	defer rabbit.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	err = rabbit.Consume(ctx, func(msg amqp.Delivery) {
		a := notify.Announcement{}
		err := json.Unmarshal(msg.Body, &a)
		if err != nil {
			log.Errorf("failed to parse bytes: %s", err)
			return
		}
		log.Printf("delivering announcement %v", a)
		fmt.Println(formatAnnouncement(a))
	})
	if err != nil {
		log.Errorf("failed to consume announcements: %v", err)
	}
}

func formatAnnouncement(a notify.Announcement) string {
	message := fmt.Sprintf("Happy birthday %s", a.SubjectID)
	if a.NotifyTarget != "" && a.NotifyTarget != a.SubjectID {
		message += fmt.Sprintf(" ||@%s||", a.NotifyTarget)
	}
	message += "!!!"
	if a.GroupWide {
		message += " @everyone"
	}
	if a.Target != "" {
		message = fmt.Sprintf("[%s] %s", a.Target, message)
	}
	return message
}
