package app

import (
	"context"

	"github.com/Tushar2380/docuAi/internal/model"
)

// Storage interfaces consumed by the services. The gorm repositories in
// internal/repository satisfy them; tests substitute in-memory fakes.

type FileStore interface {
	Create(file *model.File) error
	GetByID(id uint) (*model.File, error)
	ListByUserID(userID string) ([]model.File, error)
	ListByIDs(userID string, ids []uint) ([]model.File, error)
	UpdateStatus(id uint, status, failReason string, chunkCount int) error
	Delete(id uint) error
	DeleteByUserID(userID string) error
}

type ChunkStore interface {
	CreateBatch(chunks []model.Chunk) error
	ListByIDs(userID string, ids []uint) ([]model.Chunk, error)
	ListByUserID(userID string) ([]model.Chunk, error)
	DeleteByFileID(fileID uint) error
	DeleteByUserID(userID string) error
}

type SessionStore interface {
	Create(session *model.Session) error
	GetByID(id uint) (*model.Session, error)
	ListByUserID(userID string) ([]model.Session, error)
	ListIDsByUserID(userID string) ([]uint, error)
	SetTitle(id uint, title string) error
	Touch(id uint) error
	Delete(id uint) error
	DeleteByUserID(userID string) error
}

type MessageStore interface {
	Create(message *model.Message) error
	ListBySessionID(sessionID uint) ([]model.Message, error)
	ListRecentBySessionID(sessionID uint, limit int) ([]model.Message, error)
	DeleteBySessionID(sessionID uint) error
	DeleteByUserID(userID string) error
}

// HistoryCache mirrors internal/cache.HistoryCache. Nil-able: both services
// tolerate running without one.
type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID uint) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, sessionID uint, messages []model.Message) error
	DeleteHistory(ctx context.Context, sessionID uint) error
	MarkDirty(ctx context.Context, sessionID uint) error
	IsDirty(ctx context.Context, sessionID uint) (bool, error)
}

// ResyncEnqueuer schedules an asynchronous rebuild of one tenant's index
// namespace after a cascade lost its index step.
type ResyncEnqueuer interface {
	EnqueueResync(ctx context.Context, userID string) error
}

// TextExtractor is the extraction collaborator; internal/pkg/extract
// provides the real one.
type TextExtractor interface {
	Supported(filename string) bool
	Extract(filename string, data []byte) (string, error)
}
