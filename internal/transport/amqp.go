// Package transport moves detection frames and annotated results over
// RabbitMQ. The engine itself does no I/O; all queuing and backpressure live
// here.
package transport

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

const (
	dialAttempts = 15
	dialBackoff  = 5 * time.Second
)

// Client wraps an AMQP connection and channel with retrying dial and durable
// queue declaration.
type Client struct {
	url  string
	log  logrus.FieldLogger
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Dial connects to the AMQP broker, retrying with backoff. The broker is
// typically still starting when the service comes up in compose, so failures
// early on are expected.
func Dial(url string, log logrus.FieldLogger) (*Client, error) {
	var lastErr error
	for attempt := 1; attempt <= dialAttempts; attempt++ {
		conn, err := amqp.Dial(url)
		if err != nil {
			lastErr = err
			log.WithError(err).Warnf("AMQP connect failed (attempt %d/%d), retrying in %s", attempt, dialAttempts, dialBackoff)
			time.Sleep(dialBackoff)
			continue
		}

		ch, err := conn.Channel()
		if err != nil {
			conn.Close()
			lastErr = err
			log.WithError(err).Warnf("AMQP channel open failed (attempt %d/%d)", attempt, dialAttempts)
			time.Sleep(dialBackoff)
			continue
		}

		log.Info("connected to AMQP broker")
		return &Client{url: url, log: log, conn: conn, ch: ch}, nil
	}

	return nil, fmt.Errorf("AMQP connect: all %d attempts failed: %w", dialAttempts, lastErr)
}

// DeclareQueue declares a durable queue.
func (c *Client) DeclareQueue(name string) error {
	q, err := c.ch.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	c.log.WithFields(logrus.Fields{
		"queue":     q.Name,
		"messages":  q.Messages,
		"consumers": q.Consumers,
	}).Info("declared AMQP queue")
	return nil
}

// Consume starts delivering messages from the queue with prefetch 1, so
// frames reach the engine strictly one at a time. Deliveries must be acked
// by the caller.
func (c *Client) Consume(queue string) (<-chan amqp.Delivery, error) {
	if err := c.ch.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("set QoS: %w", err)
	}

	deliveries, err := c.ch.Consume(
		queue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", queue, err)
	}
	return deliveries, nil
}

// Publish sends a persistent JSON message to the queue. Delivery is
// fire-and-forget; downstream retry semantics belong to the consumer.
func (c *Client) Publish(queue string, body []byte) error {
	err := c.ch.Publish(
		"",    // default exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", queue, err)
	}
	return nil
}

// Close tears down the channel and connection.
func (c *Client) Close() error {
	if c.ch != nil {
		c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
