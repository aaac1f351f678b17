// Package rabbitmq binds the outbox to a RabbitMQ topic exchange. Events are
// routed by event type, so a queue can bind to "order.*" or "#".
package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/multierr"

	"github.com/angelmondragon/fastbag-backend/pkg/config"
	"github.com/angelmondragon/fastbag-backend/pkg/logger"
	"github.com/angelmondragon/fastbag-backend/pkg/outbox"
)

const dialAttempts = 5

type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	cfg     config.RabbitMQConfig
	logg    *logger.Logger

	// channels are not safe for concurrent publishes
	mu sync.Mutex
}

// NewClient dials the broker with retries and declares the exchange.
func NewClient(ctx context.Context, cfg config.RabbitMQConfig, logg *logger.Logger) (*Client, error) {
	if cfg.Exchange == "" {
		return nil, errors.New("rabbitmq exchange is required")
	}

	var (
		conn *amqp.Connection
		err  error
	)
	for i := 0; i < dialAttempts; i++ {
		conn, err = amqp.Dial(cfg.URL)
		if err == nil {
			break
		}
		wait := time.Duration(i*i)*time.Second + time.Second
		if logg != nil {
			logg.Warn(logg.WithField(ctx, "retry_in", wait.String()), "rabbitmq dial failed")
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declaring exchange %s: %w", cfg.Exchange, err)
	}

	if logg != nil {
		logg.Info(ctx, "rabbitmq client initialized")
	}
	return &Client{conn: conn, channel: ch, cfg: cfg, logg: logg}, nil
}

// Publish implements outbox.Sink. The routing key is the event type.
func (c *Client) Publish(ctx context.Context, msg outbox.Message) error {
	headers := amqp.Table{}
	for k, v := range msg.Attributes {
		headers[k] = v
	}
	routingKey := msg.Attributes[outbox.AttrEventType]

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel.PublishWithContext(ctx, c.cfg.Exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.Attributes[outbox.AttrEventID],
		Timestamp:    time.Now().UTC(),
		Headers:      headers,
		Body:         msg.Data,
	})
}

// Receive implements outbox.Source. It declares the worker queue bound to
// every event on the exchange and consumes with manual acks.
func (c *Client) Receive(ctx context.Context, handle outbox.Handler) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("opening consumer channel: %w", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declaring queue %s: %w", c.cfg.Queue, err)
	}
	if err := ch.QueueBind(q.Name, "#", c.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("binding queue %s: %w", q.Name, err)
	}
	prefetch := c.cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("setting qos: %w", err)
	}

	deliveries, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consuming %s: %w", q.Name, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			if err := handle(ctx, toDelivery(d)); err != nil {
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func toDelivery(d amqp.Delivery) outbox.Delivery {
	attrs := make(map[string]string, len(d.Headers)+1)
	for k, v := range d.Headers {
		if s, ok := v.(string); ok {
			attrs[k] = s
		}
	}
	if _, ok := attrs[outbox.AttrEventType]; !ok && d.RoutingKey != "" {
		attrs[outbox.AttrEventType] = d.RoutingKey
	}
	return outbox.Delivery{ID: d.MessageId, Data: d.Body, Attributes: attrs}
}

// Ping reports whether the connection is still open.
func (c *Client) Ping(context.Context) error {
	if c == nil || c.conn == nil || c.conn.IsClosed() {
		return errors.New("rabbitmq connection closed")
	}
	return nil
}

func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	var err error
	if c.channel != nil {
		err = multierr.Append(err, c.channel.Close())
	}
	if c.conn != nil {
		err = multierr.Append(err, c.conn.Close())
	}
	return err
}
