package models

import "time"

// ThreadSummary describes a conversation thread. Threads are not stored
// directly; they are derived from the distinct thread ids in the messages
// table, so a thread exists exactly as long as it has messages.
type ThreadSummary struct {
	ThreadID      string    `json:"thread_id"`
	LastActivity  time.Time `json:"last_activity"`
	MessageCount  int       `json:"message_count"`
	DocumentCount int       `json:"linked_document_count"`
}

// Stats aggregates system-wide counters for the stats endpoint.
type Stats struct {
	TotalMessages  int64 `json:"total_messages"`
	TotalThreads   int64 `json:"total_threads"`
	TotalDocuments int64 `json:"total_documents"`
}
