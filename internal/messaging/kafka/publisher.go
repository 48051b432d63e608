package kafka

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/amkh3780/Ticketing-Microservices/internal/messaging"
)

// Publisher writes events to Kafka. The event key hashes to a partition so
// one aggregate's events land on one partition.
type Publisher struct {
	client *Client
	writer *kafkago.Writer
}

func NewPublisher(client *Client) *Publisher {
	return &Publisher{
		client: client,
		writer: &kafkago.Writer{
			Addr:                   kafkago.TCP(client.cfg.Brokers...),
			Balancer:               &kafkago.Hash{},
			WriteTimeout:           client.cfg.WriteTimeout,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *Publisher) Publish(ctx context.Context, evt messaging.Event) error {
	err := p.writer.WriteMessages(ctx, kafkago.Message{
		Topic: evt.Topic,
		Key:   []byte(evt.Key),
		Value: evt.Payload,
	})
	if err != nil {
		p.client.reportDown(err)
		return &messaging.PublishError{Topic: evt.Topic, Err: err}
	}
	return nil
}

func (p *Publisher) Close() error { return p.writer.Close() }
