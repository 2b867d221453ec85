package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Tushar2380/docuAi/internal/model"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(session *model.Session) error {
	if err := r.db.Create(session).Error; err != nil {
		return fmt.Errorf("create session failed: %w", err)
	}
	return nil
}

// GetByID returns the session regardless of owner so the caller can tell a
// missing session from a foreign one. Returns nil when absent.
func (r *SessionRepository) GetByID(id uint) (*model.Session, error) {
	var session model.Session
	if err := r.db.First(&session, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session failed: %w", err)
	}
	return &session, nil
}

func (r *SessionRepository) ListByUserID(userID string) ([]model.Session, error) {
	var sessions []model.Session
	if err := r.db.Where("user_id = ?", userID).Order("updated_at DESC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions failed: %w", err)
	}
	return sessions, nil
}

func (r *SessionRepository) ListIDsByUserID(userID string) ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&model.Session{}).Where("user_id = ?", userID).Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list session ids failed: %w", err)
	}
	return ids, nil
}

// SetTitle writes the derived title. Called once, when the first user
// message arrives; the title is never rewritten afterwards.
func (r *SessionRepository) SetTitle(id uint, title string) error {
	if err := r.db.Model(&model.Session{}).Where("id = ?", id).Update("title", title).Error; err != nil {
		return fmt.Errorf("set session title failed: %w", err)
	}
	return nil
}

// Touch bumps UpdatedAt so recency ordering follows message activity.
func (r *SessionRepository) Touch(id uint) error {
	if err := r.db.Model(&model.Session{}).Where("id = ?", id).Update("updated_at", time.Now()).Error; err != nil {
		return fmt.Errorf("touch session failed: %w", err)
	}
	return nil
}

func (r *SessionRepository) Delete(id uint) error {
	if err := r.db.Delete(&model.Session{}, id).Error; err != nil {
		return fmt.Errorf("delete session failed: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteByUserID(userID string) error {
	if err := r.db.Where("user_id = ?", userID).Delete(&model.Session{}).Error; err != nil {
		return fmt.Errorf("delete tenant sessions failed: %w", err)
	}
	return nil
}
