package model

import (
	"encoding/json"
	"time"
)

// Chunk is one overlapping window of a file's extracted text together with
// its embedding. Embedding is stored as a JSON array of float32 for
// portability across MySQL versions.
type Chunk struct {
	ID        uint      `gorm:"primaryKey" json:"chunk_id"`
	FileID    uint      `gorm:"not null;index" json:"file_id"`
	UserID    string    `gorm:"size:64;not null;index" json:"user_id"`
	Position  int       `gorm:"not null" json:"position"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Embedding string    `gorm:"type:mediumtext" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// EmbeddingVector returns the parsed embedding slice; empty on parse error.
func (c *Chunk) EmbeddingVector() []float32 {
	if c.Embedding == "" {
		return nil
	}
	var v []float32
	_ = json.Unmarshal([]byte(c.Embedding), &v)
	return v
}

// SetEmbedding stores the embedding as JSON.
func (c *Chunk) SetEmbedding(vec []float32) {
	if len(vec) == 0 {
		c.Embedding = "[]"
		return
	}
	b, _ := json.Marshal(vec)
	c.Embedding = string(b)
}
