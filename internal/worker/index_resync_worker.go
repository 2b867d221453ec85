package worker

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/Tushar2380/docuAi/internal/index"
	"github.com/Tushar2380/docuAi/internal/model"
	"github.com/Tushar2380/docuAi/internal/platform/rabbitmq"
)

// ChunkSource is the slice of chunk storage the resync path reads from.
type ChunkSource interface {
	ListByUserID(userID string) ([]model.Chunk, error)
	ListUserIDs() ([]string, error)
}

// RebuildNamespace reloads one tenant's vectors from the authoritative chunk
// rows and swaps them into the index atomically. Shared by the resync worker,
// the consistency sweep and boot-time rehydration of the memory driver.
func RebuildNamespace(ctx context.Context, chunks ChunkSource, idx index.Index, userID string) error {
	rows, err := chunks.ListByUserID(userID)
	if err != nil {
		return fmt.Errorf("load chunks failed: %w", err)
	}
	entries := make([]index.Entry, 0, len(rows))
	for i := range rows {
		vec := rows[i].EmbeddingVector()
		if len(vec) == 0 {
			continue
		}
		entries = append(entries, index.Entry{
			ChunkID: rows[i].ID,
			FileID:  rows[i].FileID,
			Vector:  vec,
		})
	}
	if err := idx.Replace(ctx, userID, entries); err != nil {
		return fmt.Errorf("replace namespace failed: %w", err)
	}
	return nil
}

// IndexResyncWorker consumes resync jobs and rebuilds the named tenant's
// index namespace. Failed rebuilds are requeued so the broker drives retries.
type IndexResyncWorker struct {
	conn      *amqp.Connection
	queueName string
	chunks    ChunkSource
	idx       index.Index
	logger    *zap.Logger

	channel *amqp.Channel
	done    chan struct{}
}

func NewIndexResyncWorker(
	conn *amqp.Connection,
	queueName string,
	chunks ChunkSource,
	idx index.Index,
	logger *zap.Logger,
) *IndexResyncWorker {
	return &IndexResyncWorker{
		conn:      conn,
		queueName: queueName,
		chunks:    chunks,
		idx:       idx,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

func (w *IndexResyncWorker) Start(ctx context.Context) error {
	ch, err := w.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	if _, err := ch.QueueDeclare(w.queueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return fmt.Errorf("declare resync queue failed: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		return fmt.Errorf("set channel qos failed: %w", err)
	}
	deliveries, err := ch.Consume(w.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("consume resync queue failed: %w", err)
	}

	w.channel = ch
	go w.loop(ctx, deliveries)
	w.logger.Info("index resync worker started", zap.String("queue", w.queueName))
	return nil
}

func (w *IndexResyncWorker) loop(ctx context.Context, deliveries <-chan amqp.Delivery) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			w.handle(ctx, d)
		}
	}
}

func (w *IndexResyncWorker) handle(ctx context.Context, d amqp.Delivery) {
	var job rabbitmq.ResyncJob
	if err := json.Unmarshal(d.Body, &job); err != nil || job.UserID == "" {
		w.logger.Error("dropping malformed resync job",
			zap.ByteString("body", d.Body), zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	if err := RebuildNamespace(ctx, w.chunks, w.idx, job.UserID); err != nil {
		w.logger.Error("index resync failed, requeueing",
			zap.String("user_id", job.UserID), zap.Error(err))
		_ = d.Nack(false, true)
		return
	}

	w.logger.Info("index namespace resynced", zap.String("user_id", job.UserID))
	_ = d.Ack(false)
}

// Close stops consumption and waits for the in-flight job to finish.
func (w *IndexResyncWorker) Close() {
	if w.channel == nil {
		return
	}
	_ = w.channel.Close()
	<-w.done
}
