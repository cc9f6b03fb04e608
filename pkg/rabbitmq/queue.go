package rabbitmq

import (
	"context"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Queue is a handle to one durable queue: a dedicated channel plus the queue
// name it publishes to and consumes from.
type Queue struct {
	ch   *amqp.Channel
	name string
}

// Name returns the queue name.
func (q *Queue) Name() string {
	return q.name
}

// Publish sends a persistent message directly to the queue via the default
// exchange.
func (q *Queue) Publish(ctx context.Context, body []byte) error {
	return q.ch.PublishWithContext(ctx,
		"",     // exchange
		q.name, // routing key
		false,  // mandatory
		false,  // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// Consume starts a consumer goroutine processing messages strictly one at a
// time (prefetch 1, no parallelism). The handler returns true to acknowledge
// the message; false rejects it without requeue, dead-lettering it after a
// single attempt. Handler outcomes never stop the loop.
func (q *Queue) Consume(handler func([]byte) bool) error {
	if err := q.ch.Qos(1, 0, false); err != nil {
		return err
	}

	msgs, err := q.ch.Consume(
		q.name, // queue
		"",     // consumer
		false,  // autoAck
		false,  // exclusive
		false,  // noLocal
		false,  // noWait
		nil,    // args
	)
	if err != nil {
		return err
	}

	go func() {
		for d := range msgs {
			if handler(d.Body) {
				if err := d.Ack(false); err != nil {
					log.Printf("level=warn component=rabbitmq queue=%s msg=\"ack failed\" err=%v", q.name, err)
				}
			} else {
				log.Printf("level=warn component=rabbitmq queue=%s msg=\"job failed; dead-lettering without requeue\"", q.name)
				if err := d.Nack(false, false); err != nil {
					log.Printf("level=warn component=rabbitmq queue=%s msg=\"nack failed\" err=%v", q.name, err)
				}
			}
		}
	}()

	return nil
}
