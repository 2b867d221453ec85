package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Tushar2380/docuAi/internal/platform/rabbitmq"
)

// JobPublisher is the producing side of the resync queue.
type JobPublisher interface {
	Publish(ctx context.Context, job rabbitmq.ResyncJob) error
}

// Sweeper enqueues a resync job for every tenant that has chunks, repairing
// any index drift the delete path could not fix inline. Scheduled by cron.
type Sweeper struct {
	chunks ChunkSource
	pub    JobPublisher
	logger *zap.Logger
}

func NewSweeper(chunks ChunkSource, pub JobPublisher, logger *zap.Logger) *Sweeper {
	return &Sweeper{chunks: chunks, pub: pub, logger: logger}
}

// Run satisfies cron.Job.
func (s *Sweeper) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users, err := s.chunks.ListUserIDs()
	if err != nil {
		s.logger.Error("index sweep: list tenants failed", zap.Error(err))
		return
	}
	for _, userID := range users {
		if err := s.pub.Publish(ctx, rabbitmq.ResyncJob{UserID: userID}); err != nil {
			s.logger.Error("index sweep: enqueue failed",
				zap.String("user_id", userID), zap.Error(err))
		}
	}
	s.logger.Debug("index sweep enqueued", zap.Int("tenants", len(users)))
}
