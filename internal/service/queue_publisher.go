// Package service holds collaborators that sit between handlers and the
// outside world. The activity publisher ships task events to RabbitMQ;
// it is deliberately fire-and-forget so broker trouble never surfaces to
// API clients.
package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/task-tracker/internal/queue"
)

// ActivityPublisher publishes TaskActivityEvents to the task.activity
// queue. A nil publisher or an empty URL disables publishing entirely.
type ActivityPublisher struct {
	URL string
}

// NewActivityPublisher returns a publisher for the given broker URL, or
// nil when no URL is configured so callers can skip publishing with a
// single nil check.
func NewActivityPublisher(url string) *ActivityPublisher {
	if url == "" {
		return nil
	}
	return &ActivityPublisher{URL: url}
}

// Publish sends one persistent message. Errors are logged and returned;
// callers are expected to ignore them.
func (p *ActivityPublisher) Publish(ctx context.Context, ev queue.TaskActivityEvent) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so events survive broker restarts.
	if _, err := ch.QueueDeclare(queue.ActivityQueueName, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue.ActivityQueueName, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}
