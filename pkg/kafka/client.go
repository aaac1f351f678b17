// Package kafka binds the outbox to a Kafka topic via sarama. Messages are
// keyed by aggregate id so events for one order stay on one partition.
package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"go.uber.org/multierr"

	"github.com/angelmondragon/fastbag-backend/pkg/config"
	"github.com/angelmondragon/fastbag-backend/pkg/logger"
	"github.com/angelmondragon/fastbag-backend/pkg/outbox"
)

type Client struct {
	cfg      config.KafkaConfig
	client   sarama.Client
	producer sarama.SyncProducer
	logg     *logger.Logger
}

func newSaramaConfig() *sarama.Config {
	sc := sarama.NewConfig()
	sc.ClientID = "fastbag"
	sc.Producer.Return.Successes = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Idempotent = true
	sc.Net.MaxOpenRequests = 1
	sc.Consumer.Return.Errors = true
	sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	sc.Version = sarama.V2_8_0_0
	return sc
}

// NewClient connects to the configured brokers and opens a sync producer.
func NewClient(ctx context.Context, cfg config.KafkaConfig, logg *logger.Logger) (*Client, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	client, err := sarama.NewClient(cfg.Brokers, newSaramaConfig())
	if err != nil {
		return nil, fmt.Errorf("connecting to kafka: %w", err)
	}
	producer, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("creating kafka producer: %w", err)
	}
	if logg != nil {
		logg.Info(ctx, "kafka client initialized")
	}
	return &Client{cfg: cfg, client: client, producer: producer, logg: logg}, nil
}

// Publish implements outbox.Sink.
func (c *Client) Publish(_ context.Context, msg outbox.Message) error {
	_, _, err := c.producer.SendMessage(toProducerMessage(c.cfg.Topic, msg))
	return err
}

func toProducerMessage(topic string, msg outbox.Message) *sarama.ProducerMessage {
	headers := make([]sarama.RecordHeader, 0, len(msg.Attributes))
	for k, v := range msg.Attributes {
		headers = append(headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}
	key := msg.Key
	if key == "" {
		key = msg.Attributes[outbox.AttrAggregateID]
	}
	return &sarama.ProducerMessage{
		Topic:   topic,
		Key:     sarama.StringEncoder(key),
		Value:   sarama.ByteEncoder(msg.Data),
		Headers: headers,
	}
}

// Receive implements outbox.Source using a consumer group. A handler error
// leaves the offset unmarked and ends the session so the message is re-read.
func (c *Client) Receive(ctx context.Context, handle outbox.Handler) error {
	group, err := sarama.NewConsumerGroupFromClient(c.cfg.GroupID, c.client)
	if err != nil {
		return fmt.Errorf("creating consumer group: %w", err)
	}
	defer group.Close()

	go func() {
		for err := range group.Errors() {
			if c.logg != nil {
				c.logg.Error(ctx, "kafka consumer group error", err)
			}
		}
	}()

	h := &groupHandler{handle: handle}
	for {
		if err := group.Consume(ctx, []string{c.cfg.Topic}, h); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

type groupHandler struct {
	handle outbox.Handler
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-session.Context().Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.handle(session.Context(), fromConsumerMessage(msg)); err != nil {
				return fmt.Errorf("handling offset %d: %w", msg.Offset, err)
			}
			session.MarkMessage(msg, "")
		}
	}
}

func fromConsumerMessage(msg *sarama.ConsumerMessage) outbox.Delivery {
	attrs := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		if h == nil {
			continue
		}
		attrs[string(h.Key)] = string(h.Value)
	}
	return outbox.Delivery{
		ID:         fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset),
		Data:       msg.Value,
		Attributes: attrs,
	}
}

// Ping checks that at least one broker is reachable.
func (c *Client) Ping(context.Context) error {
	if c == nil || c.client == nil || c.client.Closed() {
		return errors.New("kafka client closed")
	}
	if len(c.client.Brokers()) == 0 {
		return errors.New("no kafka brokers available")
	}
	return nil
}

func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	return multierr.Combine(c.producer.Close(), c.client.Close())
}
