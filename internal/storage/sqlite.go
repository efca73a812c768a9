// Package storage provides the SQLite implementation of the Store interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/agrilab/agrichat/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		thread_id TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
		content TEXT NOT NULL,
		timestamp TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_thread_id ON messages(thread_id);

	CREATE TABLE IF NOT EXISTS documents (
		doc_id TEXT PRIMARY KEY,
		original_filename TEXT NOT NULL,
		file_type TEXT NOT NULL,
		file_size INTEGER,
		content_text TEXT,
		metadata TEXT,
		upload_timestamp TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS thread_documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		thread_id TEXT NOT NULL,
		doc_id TEXT NOT NULL,
		timestamp TIMESTAMP NOT NULL,
		FOREIGN KEY (doc_id) REFERENCES documents(doc_id)
	);

	CREATE INDEX IF NOT EXISTS idx_thread_documents_thread_id ON thread_documents(thread_id);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveMessage appends a message row. Timestamps come from the Go clock, so
// per-thread ordering is strict at nanosecond resolution.
func (s *SQLiteStore) SaveMessage(ctx context.Context, threadID string, role models.Role, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (thread_id, role, content, timestamp) VALUES (?, ?, ?, ?)`,
		threadID, string(role), content, time.Now(),
	)
	return err
}

// SaveDocument upserts the document row keyed by doc id.
func (s *SQLiteStore) SaveDocument(ctx context.Context, doc *models.Document) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents
		 (doc_id, original_filename, file_type, file_size, content_text, metadata, upload_timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.DocID, doc.Filename, string(doc.FileType), doc.FileSize,
		doc.ContentText, string(metadataJSON), doc.UploadedAt,
	)
	return err
}

// LinkDocument inserts an association row. No uniqueness constraint exists;
// re-linking the same pair duplicates the row.
func (s *SQLiteStore) LinkDocument(ctx context.Context, threadID, docID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO thread_documents (thread_id, doc_id, timestamp) VALUES (?, ?, ?)`,
		threadID, docID, time.Now(),
	)
	return err
}

// History returns the thread's messages ordered by timestamp, insert order
// breaking ties.
func (s *SQLiteStore) History(ctx context.Context, threadID string) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, thread_id, role, content, timestamp
		 FROM messages WHERE thread_id = ? ORDER BY timestamp ASC, id ASC`,
		threadID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		var role string
		if err := rows.Scan(&m.ID, &m.ThreadID, &role, &m.Content, &m.Timestamp); err != nil {
			return nil, err
		}
		m.Role = models.Role(role)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// ThreadDocuments returns documents joined through the association table,
// most recently linked first. Duplicate links yield duplicate entries.
func (s *SQLiteStore) ThreadDocuments(ctx context.Context, threadID string) ([]*models.DocumentInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.doc_id, d.original_filename, d.file_type, d.file_size, d.metadata, d.upload_timestamp
		 FROM documents d
		 JOIN thread_documents td ON d.doc_id = td.doc_id
		 WHERE td.thread_id = ?
		 ORDER BY td.timestamp DESC, td.id DESC`,
		threadID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocumentInfos(rows)
}

// AllDocuments returns every document, newest upload first.
func (s *SQLiteStore) AllDocuments(ctx context.Context) ([]*models.DocumentInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_id, original_filename, file_type, file_size, metadata, upload_timestamp
		 FROM documents ORDER BY upload_timestamp DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocumentInfos(rows)
}

// Document looks up a single document by id; a missing id returns (nil, nil).
func (s *SQLiteStore) Document(ctx context.Context, docID string) (*models.DocumentInfo, error) {
	var d models.DocumentInfo
	var fileType, metadataJSON string
	var fileSize sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT doc_id, original_filename, file_type, file_size, metadata, upload_timestamp
		 FROM documents WHERE doc_id = ?`,
		docID,
	).Scan(&d.DocID, &d.Filename, &fileType, &fileSize, &metadataJSON, &d.UploadedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d.FileType = models.FileType(fileType)
	d.FileSize = fileSize.Int64
	if metadataJSON != "" {
		_ = json.Unmarshal([]byte(metadataJSON), &d.Metadata)
	}
	return &d, nil
}

func scanDocumentInfos(rows *sql.Rows) ([]*models.DocumentInfo, error) {
	var docs []*models.DocumentInfo
	for rows.Next() {
		var d models.DocumentInfo
		var fileType, metadataJSON string
		var fileSize sql.NullInt64
		if err := rows.Scan(&d.DocID, &d.Filename, &fileType, &fileSize, &metadataJSON, &d.UploadedAt); err != nil {
			return nil, err
		}
		d.FileType = models.FileType(fileType)
		d.FileSize = fileSize.Int64
		if metadataJSON != "" {
			_ = json.Unmarshal([]byte(metadataJSON), &d.Metadata)
		}
		docs = append(docs, &d)
	}
	return docs, rows.Err()
}

// Threads aggregates the distinct thread ids present in the messages table.
func (s *SQLiteStore) Threads(ctx context.Context) ([]*models.ThreadSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.thread_id,
		        MAX(m.timestamp) AS last_activity,
		        COUNT(*) AS message_count,
		        (SELECT COUNT(*) FROM thread_documents td WHERE td.thread_id = m.thread_id) AS document_count
		 FROM messages m
		 GROUP BY m.thread_id
		 ORDER BY last_activity DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var threads []*models.ThreadSummary
	for rows.Next() {
		var t models.ThreadSummary
		var lastActivity string
		if err := rows.Scan(&t.ThreadID, &lastActivity, &t.MessageCount, &t.DocumentCount); err != nil {
			return nil, err
		}
		ts, err := parseTimestamp(lastActivity)
		if err != nil {
			return nil, fmt.Errorf("parse last_activity: %w", err)
		}
		t.LastActivity = ts
		threads = append(threads, &t)
	}
	return threads, rows.Err()
}

// timestampLayouts are the formats the sqlite3 driver writes time.Time values
// with, most specific first.
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

// parseTimestamp decodes a timestamp handed back as text. Aggregate
// expressions such as MAX(timestamp) lose the column's decltype, so the
// driver cannot convert them to time.Time itself.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// DeleteThread removes the thread's messages and links in one transaction and
// returns the number of message rows removed.
func (s *SQLiteStore) DeleteThread(ctx context.Context, threadID string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE thread_id = ?`, threadID)
	if err != nil {
		return 0, err
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM thread_documents WHERE thread_id = ?`, threadID); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return deleted, nil
}

// Stats returns system-wide message, thread, and document counts.
func (s *SQLiteStore) Stats(ctx context.Context) (*models.Stats, error) {
	var st models.Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&st.TotalMessages); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT thread_id) FROM messages`).Scan(&st.TotalThreads); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&st.TotalDocuments); err != nil {
		return nil, err
	}
	return &st, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
