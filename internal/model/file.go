package model

import "time"

const (
	FileStatusPending = "pending"
	FileStatusReady   = "ready"
	FileStatusFailed  = "failed"
)

// File is an uploaded document owned by exactly one tenant. Its chunks live
// in the chunk table, ordered by position.
type File struct {
	ID         uint      `gorm:"primaryKey" json:"file_id"`
	UserID     string    `gorm:"size:64;not null;index" json:"user_id"`
	Filename   string    `gorm:"size:256;not null" json:"filename"`
	Status     string    `gorm:"size:16;not null;default:pending" json:"status"`
	FailReason string    `gorm:"size:512" json:"fail_reason,omitempty"`
	ChunkCount int       `json:"chunk_count"`
	Size       int64     `json:"size"`
	CreatedAt  time.Time `json:"created_at"`
}
