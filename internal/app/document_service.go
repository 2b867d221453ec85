package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/Tushar2380/docuAi/internal/ai"
	"github.com/Tushar2380/docuAi/internal/config"
	"github.com/Tushar2380/docuAi/internal/index"
	"github.com/Tushar2380/docuAi/internal/model"
)

// UploadItem is one file as received from the upload form.
type UploadItem struct {
	Filename string
	Data     []byte
}

// IngestOutcome is the per-file result of a batch upload. Err is nil when the
// file reached ready.
type IngestOutcome struct {
	Filename string
	File     *model.File
	Err      error
}

// DocumentService owns the ingestion pipeline and file lifecycle: extract,
// chunk, embed, persist, index.
type DocumentService struct {
	files     FileStore
	chunks    ChunkStore
	sessions  SessionStore
	messages  MessageStore
	history   HistoryCache
	idx       index.Index
	extractor TextExtractor
	embedder  ai.Embedder
	resync    ResyncEnqueuer
	logger    *zap.Logger
	cfg       config.IngestConfig
}

func NewDocumentService(
	files FileStore,
	chunks ChunkStore,
	sessions SessionStore,
	messages MessageStore,
	history HistoryCache,
	idx index.Index,
	extractor TextExtractor,
	embedder ai.Embedder,
	resync ResyncEnqueuer,
	logger *zap.Logger,
	cfg config.IngestConfig,
) *DocumentService {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 800
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = 150
	}
	if cfg.EmbedBatch <= 0 {
		cfg.EmbedBatch = 10
	}
	if cfg.MinTextRunes <= 0 {
		cfg.MinTextRunes = 10
	}
	return &DocumentService{
		files:     files,
		chunks:    chunks,
		sessions:  sessions,
		messages:  messages,
		history:   history,
		idx:       idx,
		extractor: extractor,
		embedder:  embedder,
		resync:    resync,
		logger:    logger,
		cfg:       cfg,
	}
}

// Ingest runs one file through the full pipeline. The file record is created
// as pending and only flips to ready after its chunks are persisted and
// indexed; any failure past that point marks it failed and rolls back the
// partial chunk state so the document never answers queries half-indexed.
func (s *DocumentService) Ingest(ctx context.Context, userID string, item UploadItem) (*model.File, error) {
	if strings.TrimSpace(item.Filename) == "" {
		return nil, fmt.Errorf("%w: filename is required", ErrInvalidInput)
	}
	if !s.allowedExt(item.Filename) || !s.extractor.Supported(item.Filename) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, item.Filename)
	}
	if s.cfg.MaxFileBytes > 0 && int64(len(item.Data)) > s.cfg.MaxFileBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, len(item.Data))
	}

	text, err := s.extractor.Extract(item.Filename, item.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < s.cfg.MinTextRunes {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, item.Filename)
	}

	file := &model.File{
		UserID:   userID,
		Filename: item.Filename,
		Status:   model.FileStatusPending,
		Size:     int64(len(item.Data)),
	}
	if err := s.files.Create(file); err != nil {
		return nil, fmt.Errorf("create file record failed: %w", err)
	}

	pieces := SplitText(text, s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	vectors, err := s.embedAll(ctx, pieces)
	if err != nil {
		s.failFile(file.ID, "embedding failed")
		return nil, fmt.Errorf("%w: embed chunks: %v", ErrBackendUnavailable, err)
	}

	rows := make([]model.Chunk, len(pieces))
	for i, piece := range pieces {
		rows[i] = model.Chunk{
			FileID:   file.ID,
			UserID:   userID,
			Position: i,
			Content:  piece,
		}
		rows[i].SetEmbedding(vectors[i])
	}
	if err := s.chunks.CreateBatch(rows); err != nil {
		s.failFile(file.ID, "chunk persistence failed")
		return nil, fmt.Errorf("persist chunks failed: %w", err)
	}

	entries := make([]index.Entry, len(rows))
	for i := range rows {
		entries[i] = index.Entry{ChunkID: rows[i].ID, FileID: file.ID, Vector: vectors[i]}
	}
	if err := s.idx.Add(ctx, userID, entries); err != nil {
		s.rollbackIngest(ctx, userID, file.ID)
		s.failFile(file.ID, "index insert failed")
		return nil, fmt.Errorf("%w: %v", ErrIndexFailure, err)
	}

	// A file that cannot flip to ready must not stay searchable; undo the
	// chunk and index inserts so the stored state matches the error.
	if err := s.files.UpdateStatus(file.ID, model.FileStatusReady, "", len(rows)); err != nil {
		s.rollbackIngest(ctx, userID, file.ID)
		s.failFile(file.ID, "status update failed")
		return nil, fmt.Errorf("mark file ready failed: %w", err)
	}
	file.Status = model.FileStatusReady
	file.ChunkCount = len(rows)

	s.logger.Info("file ingested",
		zap.String("user_id", userID),
		zap.Uint("file_id", file.ID),
		zap.Int("chunks", len(rows)))
	return file, nil
}

// IngestBatch ingests each file independently; one bad file never blocks the
// rest of the upload.
func (s *DocumentService) IngestBatch(ctx context.Context, userID string, items []UploadItem) []IngestOutcome {
	outcomes := make([]IngestOutcome, 0, len(items))
	for _, item := range items {
		file, err := s.Ingest(ctx, userID, item)
		outcomes = append(outcomes, IngestOutcome{Filename: item.Filename, File: file, Err: err})
	}
	return outcomes
}

func (s *DocumentService) ListFiles(userID string) ([]model.File, error) {
	files, err := s.files.ListByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("list files failed: %w", err)
	}
	return files, nil
}

func (s *DocumentService) GetFile(userID string, id uint) (*model.File, error) {
	return s.ownedFile(userID, id)
}

// DeleteFile cascades index, chunks, then metadata. A failed index removal is
// not fatal: the tenant namespace is queued for a rebuild from storage, which
// converges to the same end state.
func (s *DocumentService) DeleteFile(ctx context.Context, userID string, id uint) error {
	file, err := s.ownedFile(userID, id)
	if err != nil {
		return err
	}

	if err := s.idx.RemoveFile(ctx, userID, file.ID); err != nil {
		s.logger.Warn("index removal failed, scheduling resync",
			zap.String("user_id", userID), zap.Uint("file_id", file.ID), zap.Error(err))
		s.enqueueResync(ctx, userID)
	}
	if err := s.chunks.DeleteByFileID(file.ID); err != nil {
		return fmt.Errorf("delete chunks failed: %w", err)
	}
	if err := s.files.Delete(file.ID); err != nil {
		return fmt.Errorf("delete file record failed: %w", err)
	}

	s.logger.Info("file deleted",
		zap.String("user_id", userID), zap.Uint("file_id", file.ID))
	return nil
}

// ClearTenant wipes everything the tenant owns: index namespace, chunks,
// files, sessions, messages and cached transcripts. Idempotent.
func (s *DocumentService) ClearTenant(ctx context.Context, userID string) error {
	if err := s.idx.Clear(ctx, userID); err != nil {
		s.logger.Warn("index clear failed, scheduling resync",
			zap.String("user_id", userID), zap.Error(err))
		s.enqueueResync(ctx, userID)
	}
	if err := s.chunks.DeleteByUserID(userID); err != nil {
		return fmt.Errorf("delete chunks failed: %w", err)
	}
	if err := s.files.DeleteByUserID(userID); err != nil {
		return fmt.Errorf("delete files failed: %w", err)
	}

	sessionIDs, err := s.sessions.ListIDsByUserID(userID)
	if err != nil {
		return fmt.Errorf("list sessions failed: %w", err)
	}
	if s.history != nil {
		for _, id := range sessionIDs {
			_ = s.history.DeleteHistory(ctx, id)
		}
	}
	if err := s.messages.DeleteByUserID(userID); err != nil {
		return fmt.Errorf("delete messages failed: %w", err)
	}
	if err := s.sessions.DeleteByUserID(userID); err != nil {
		return fmt.Errorf("delete sessions failed: %w", err)
	}

	s.logger.Info("tenant data cleared", zap.String("user_id", userID))
	return nil
}

func (s *DocumentService) ownedFile(userID string, id uint) (*model.File, error) {
	file, err := s.files.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("load file failed: %w", err)
	}
	if file == nil {
		return nil, ErrNotFound
	}
	if file.UserID != userID {
		s.logger.Warn("cross-tenant file access denied",
			zap.String("user_id", userID), zap.Uint("file_id", id))
		return nil, ErrForbidden
	}
	return file, nil
}

// allowedExt applies the configured extension allowlist on top of what the
// extractors can technically parse.
func (s *DocumentService) allowedExt(filename string) bool {
	if len(s.cfg.AllowedExts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range s.cfg.AllowedExts {
		if strings.EqualFold(allowed, ext) {
			return true
		}
	}
	return false
}

func (s *DocumentService) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.cfg.EmbedBatch {
		end := start + s.cfg.EmbedBatch
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := s.embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// rollbackIngest undoes a partially indexed file: index entries first, then
// chunk rows. A failed index removal queues a namespace rebuild instead.
func (s *DocumentService) rollbackIngest(ctx context.Context, userID string, fileID uint) {
	if err := s.idx.RemoveFile(ctx, userID, fileID); err != nil {
		s.enqueueResync(ctx, userID)
	}
	if err := s.chunks.DeleteByFileID(fileID); err != nil {
		s.logger.Error("rollback chunks failed",
			zap.Uint("file_id", fileID), zap.Error(err))
	}
}

func (s *DocumentService) failFile(id uint, reason string) {
	if err := s.files.UpdateStatus(id, model.FileStatusFailed, reason, 0); err != nil {
		s.logger.Error("mark file failed errored",
			zap.Uint("file_id", id), zap.Error(err))
	}
}

func (s *DocumentService) enqueueResync(ctx context.Context, userID string) {
	if s.resync == nil {
		s.logger.Warn("no resync queue configured, index may drift until next sweep",
			zap.String("user_id", userID))
		return
	}
	if err := s.resync.EnqueueResync(ctx, userID); err != nil {
		s.logger.Error("enqueue index resync failed",
			zap.String("user_id", userID), zap.Error(err))
	}
}
