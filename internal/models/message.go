package models

import "time"

// Role is the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation thread. Messages are append-only and
// ordered by Timestamp (ties broken by insert order).
type Message struct {
	ID        int64     `json:"id" db:"id"`
	ThreadID  string    `json:"thread_id" db:"thread_id"`
	Role      Role      `json:"role" db:"role"`
	Content   string    `json:"content" db:"content"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}
