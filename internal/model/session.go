package model

import "time"

// Session is one tenant's conversation. UpdatedAt is touched on every
// message append so listings can order by recent activity.
type Session struct {
	ID        uint      `gorm:"primaryKey" json:"session_id"`
	UserID    string    `gorm:"size:64;not null;index" json:"user_id"`
	Title     string    `gorm:"size:128;not null" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
