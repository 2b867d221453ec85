package model

import (
	"encoding/json"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one append-only entry in a session's transcript. Sources is a
// JSON array of source filenames, set on assistant messages only.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID uint      `gorm:"not null;index" json:"session_id"`
	UserID    string    `gorm:"size:64;not null;index" json:"user_id"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Sources   string    `gorm:"type:text" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// SourceList returns the parsed source filenames; empty on parse error.
func (m *Message) SourceList() []string {
	if m.Sources == "" {
		return nil
	}
	var v []string
	_ = json.Unmarshal([]byte(m.Sources), &v)
	return v
}

// SetSources stores the source filenames as JSON.
func (m *Message) SetSources(sources []string) {
	if len(sources) == 0 {
		m.Sources = "[]"
		return
	}
	b, _ := json.Marshal(sources)
	m.Sources = string(b)
}
