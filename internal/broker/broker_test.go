package broker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/fastbag-backend/pkg/config"
)

func TestTopicFollowsBroker(t *testing.T) {
	cfg := &config.Config{
		PubSub:   config.PubSubConfig{DomainTopic: "fb-domain-events"},
		RabbitMQ: config.RabbitMQConfig{Exchange: "fastbag.domain"},
		Kafka:    config.KafkaConfig{Topic: "fastbag.domain-events"},
	}

	cfg.Eventing.Broker = "PubSub"
	assert.Equal(t, "fb-domain-events", Topic(cfg))
	cfg.Eventing.Broker = "rabbitmq"
	assert.Equal(t, "fastbag.domain", Topic(cfg))
	cfg.Eventing.Broker = " kafka "
	assert.Equal(t, "fastbag.domain-events", Topic(cfg))
}

func TestOpenRejectsUnknownBroker(t *testing.T) {
	cfg := &config.Config{Eventing: config.EventingConfig{Broker: "sqs"}}

	client, err := Open(context.Background(), cfg, nil)

	require.Error(t, err)
	assert.Nil(t, client)
}
