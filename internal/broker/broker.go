// Package broker opens the message broker selected by FASTBAG_EVENTING_BROKER.
package broker

import (
	"context"
	"fmt"

	"github.com/angelmondragon/fastbag-backend/pkg/config"
	"github.com/angelmondragon/fastbag-backend/pkg/kafka"
	"github.com/angelmondragon/fastbag-backend/pkg/logger"
	"github.com/angelmondragon/fastbag-backend/pkg/outbox"
	"github.com/angelmondragon/fastbag-backend/pkg/pubsub"
	"github.com/angelmondragon/fastbag-backend/pkg/rabbitmq"
)

// Client publishes and receives domain events.
type Client interface {
	outbox.Sink
	outbox.Source
}

// Open connects to the configured broker.
func Open(ctx context.Context, cfg *config.Config, logg *logger.Logger) (Client, error) {
	switch cfg.Eventing.BrokerName() {
	case config.BrokerPubSub:
		c, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.BrokerRabbitMQ:
		c, err := rabbitmq.NewClient(ctx, cfg.RabbitMQ, logg)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.BrokerKafka:
		c, err := kafka.NewClient(ctx, cfg.Kafka, logg)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported broker %q", cfg.Eventing.Broker)
	}
}

// Topic is the destination every domain event is routed to on the
// configured broker.
func Topic(cfg *config.Config) string {
	switch cfg.Eventing.BrokerName() {
	case config.BrokerRabbitMQ:
		return cfg.RabbitMQ.Exchange
	case config.BrokerKafka:
		return cfg.Kafka.Topic
	default:
		return cfg.PubSub.DomainTopic
	}
}
