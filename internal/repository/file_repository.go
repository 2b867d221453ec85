package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Tushar2380/docuAi/internal/model"
)

type FileRepository struct {
	db *gorm.DB
}

func NewFileRepository(db *gorm.DB) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) Create(file *model.File) error {
	if err := r.db.Create(file).Error; err != nil {
		return fmt.Errorf("create file failed: %w", err)
	}
	return nil
}

// GetByID returns the file regardless of owner so the caller can tell a
// missing file from a foreign one. Returns nil when absent.
func (r *FileRepository) GetByID(id uint) (*model.File, error) {
	var file model.File
	if err := r.db.First(&file, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get file failed: %w", err)
	}
	return &file, nil
}

func (r *FileRepository) ListByUserID(userID string) ([]model.File, error) {
	var files []model.File
	if err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&files).Error; err != nil {
		return nil, fmt.Errorf("list files failed: %w", err)
	}
	return files, nil
}

// ListByIDs returns the files for the given ids, scoped to one tenant.
func (r *FileRepository) ListByIDs(userID string, ids []uint) ([]model.File, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var files []model.File
	if err := r.db.Where("user_id = ? AND id IN ?", userID, ids).Find(&files).Error; err != nil {
		return nil, fmt.Errorf("list files by ids failed: %w", err)
	}
	return files, nil
}

func (r *FileRepository) UpdateStatus(id uint, status, failReason string, chunkCount int) error {
	updates := map[string]interface{}{
		"status":      status,
		"fail_reason": failReason,
		"chunk_count": chunkCount,
	}
	if err := r.db.Model(&model.File{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("update file status failed: %w", err)
	}
	return nil
}

func (r *FileRepository) Delete(id uint) error {
	if err := r.db.Delete(&model.File{}, id).Error; err != nil {
		return fmt.Errorf("delete file failed: %w", err)
	}
	return nil
}

func (r *FileRepository) DeleteByUserID(userID string) error {
	if err := r.db.Where("user_id = ?", userID).Delete(&model.File{}).Error; err != nil {
		return fmt.Errorf("delete tenant files failed: %w", err)
	}
	return nil
}
