package repository

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/Tushar2380/docuAi/internal/model"
)

type ChunkRepository struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

func (r *ChunkRepository) CreateBatch(chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := r.db.Create(&chunks).Error; err != nil {
		return fmt.Errorf("create chunks batch failed: %w", err)
	}
	return nil
}

func (r *ChunkRepository) ListByFileID(fileID uint) ([]model.Chunk, error) {
	var chunks []model.Chunk
	if err := r.db.Where("file_id = ?", fileID).Order("position ASC").Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list chunks by file failed: %w", err)
	}
	return chunks, nil
}

// ListByIDs returns chunks for the ids, scoped to one tenant.
func (r *ChunkRepository) ListByIDs(userID string, ids []uint) ([]model.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var chunks []model.Chunk
	if err := r.db.Where("user_id = ? AND id IN ?", userID, ids).Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list chunks by ids failed: %w", err)
	}
	return chunks, nil
}

// ListByUserID returns every chunk of a tenant, position order within each
// file. Used to rebuild the tenant's index namespace.
func (r *ChunkRepository) ListByUserID(userID string) ([]model.Chunk, error) {
	var chunks []model.Chunk
	if err := r.db.Where("user_id = ?", userID).Order("file_id ASC, position ASC").Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list tenant chunks failed: %w", err)
	}
	return chunks, nil
}

// ListUserIDs returns the distinct tenants that have indexed chunks.
func (r *ChunkRepository) ListUserIDs() ([]string, error) {
	var ids []string
	if err := r.db.Model(&model.Chunk{}).Distinct("user_id").Pluck("user_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list chunk tenants failed: %w", err)
	}
	return ids, nil
}

func (r *ChunkRepository) DeleteByFileID(fileID uint) error {
	if err := r.db.Where("file_id = ?", fileID).Delete(&model.Chunk{}).Error; err != nil {
		return fmt.Errorf("delete chunks by file failed: %w", err)
	}
	return nil
}

func (r *ChunkRepository) DeleteByUserID(userID string) error {
	if err := r.db.Where("user_id = ?", userID).Delete(&model.Chunk{}).Error; err != nil {
		return fmt.Errorf("delete tenant chunks failed: %w", err)
	}
	return nil
}
