package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"docqa/internal/model"
)

// PurgePublisher queues vector-index cleanup for deleted documents.
type PurgePublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewPurgePublisher(conn *amqp.Connection, queueName string) *PurgePublisher {
	return &PurgePublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *PurgePublisher) PublishPurge(ctx context.Context, purge model.IndexPurge) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if _, err := DeclareQueue(ch, p.queueName); err != nil {
		return err
	}

	payload, err := json.Marshal(purge)
	if err != nil {
		return fmt.Errorf("marshal purge payload failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish purge failed: %w", err)
	}
	return nil
}

// DeclareQueue declares the durable queue shared by publisher and worker.
func DeclareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		name,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("declare queue %s failed: %w", name, err)
	}
	return q, nil
}
