package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
	"golang.org/x/time/rate"
)

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Queue    string
	// PublishPerSecond caps announce throughput so a catch-up burst after
	// long downtime cannot flood the chat transport. Zero means 1/s.
	PublishPerSecond float64
}

// Rabbit publishes announcements to an AMQP queue that the notifier binary
// consumes.
type Rabbit struct {
	conn       *amqp.Connection
	queue      amqp.Queue
	channel    *amqp.Channel
	connString string
	queueName  string
	limiter    *rate.Limiter
}

func NewRabbit(config Config) *Rabbit {
	perSecond := config.PublishPerSecond
	if perSecond <= 0 {
		perSecond = 1
	}
	return &Rabbit{
		connString: fmt.Sprintf(
			"amqp://%s:%s@%s:%d/",
			config.User,
			config.Password,
			config.Host,
			config.Port,
		),
		queueName: config.Queue,
		limiter:   rate.NewLimiter(rate.Limit(perSecond), 5),
	}
}

func (r *Rabbit) Connect() error {
	var err error
	r.conn, err = amqp.Dial(r.connString)
	if err != nil {
		return err
	}

	r.channel, err = r.conn.Channel()
	if err != nil {
		return err
	}
	r.queue, err = r.channel.QueueDeclare(
		r.queueName,
		false,
		true,
		false,
		false,
		nil,
	)
	return err
}

func (r *Rabbit) Close() {
	r.conn.Close()
}

func (r *Rabbit) Announce(ctx context.Context, a Announcement) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	body, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return r.channel.Publish(
		"",           // exchange
		r.queue.Name, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		})
}

type AnnouncementProcess = func(msg amqp.Delivery)

func (r *Rabbit) Consume(ctx context.Context, process AnnouncementProcess) error {
	msgs, err := r.channel.Consume(
		r.queue.Name, // queue
		"",           // consumer
		true,         // auto-ack
		false,        // exclusive
		false,        // no-local
		false,        // no-wait
		nil,          // args
	)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-msgs:
			if ok {
				process(m)
			}
		}
	}
}
