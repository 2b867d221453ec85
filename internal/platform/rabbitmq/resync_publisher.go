package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ResyncJob asks the resync worker to rebuild one tenant's index namespace
// from the chunk table.
type ResyncJob struct {
	UserID string `json:"user_id"`
}

type ResyncPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewResyncPublisher(conn *amqp.Connection, queueName string) *ResyncPublisher {
	return &ResyncPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

// EnqueueResync is the hook the services call after a failed cascade.
func (p *ResyncPublisher) EnqueueResync(ctx context.Context, userID string) error {
	return p.Publish(ctx, ResyncJob{UserID: userID})
}

func (p *ResyncPublisher) Publish(ctx context.Context, job ResyncJob) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(p.queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare resync queue failed: %w", err)
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal resync job failed: %w", err)
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
		return fmt.Errorf("publish resync job failed: %w", err)
	}
	return nil
}
