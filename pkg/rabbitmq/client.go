/**
 * @description
 * This package provides a thin client for the RabbitMQ broker. It encapsulates
 * connection establishment, durable queue declaration, persistent publishing
 * and manually-acknowledged consumption. Availability policy (the permanent
 * inline-degradation flag) lives in the app layer's dispatcher, not here.
 *
 * @dependencies
 * - github.com/rabbitmq/amqp091-go: The RabbitMQ client library.
 */
package rabbitmq

import (
	"errors"
	"net/url"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Client holds a single RabbitMQ connection shared by all queues.
type Client struct {
	conn *amqp.Connection
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	// If any stray characters precede the scheme, slice from first occurrence of amqp
	idx := strings.Index(strings.ToLower(clean), "amqp")
	if idx > 0 {
		clean = clean[idx:]
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// Dial connects to the broker with a bounded dial timeout so callers do not
// hang indefinitely when the broker host is unreachable.
func Dial(amqpURL string) (*Client, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	return &Client{conn: conn}, nil
}

// NotifyClose registers a listener for connection-level failures. The channel
// receives at most one error and is closed on graceful shutdown.
func (c *Client) NotifyClose() <-chan *amqp.Error {
	return c.conn.NotifyClose(make(chan *amqp.Error, 1))
}

// OpenQueue opens a dedicated channel and declares the named durable queue on
// it. Each logical queue gets its own channel so a consumer failure on one
// does not tear down the other.
func (c *Client) OpenQueue(name string) (*Queue, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, err
	}
	if _, err := ch.QueueDeclare(
		name,  // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	); err != nil {
		ch.Close()
		return nil, err
	}
	return &Queue{ch: ch, name: name}, nil
}

// Close gracefully closes the connection (and with it, all channels).
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
