package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tbxark/mailagent/dbutil"
)

// MailSchema mirrors the tables written by the ingestion pipeline.
const MailSchema = `
CREATE TABLE emails (
	id TEXT PRIMARY KEY,
	user_email TEXT,
	subject TEXT,
	body TEXT,
	body_preview TEXT,
	content_type TEXT,
	conversation_id TEXT,
	conversation_index TEXT,
	sent_datetime TEXT,
	received_datetime TEXT,
	importance TEXT,
	has_attachments INTEGER DEFAULT 0,
	reply_to TEXT
);
CREATE TABLE senders (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email_id TEXT NOT NULL,
	name TEXT,
	email_address TEXT
);
CREATE TABLE recipients (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email_id TEXT NOT NULL,
	name TEXT,
	email_address TEXT,
	type TEXT
);
CREATE TABLE attachments (
	id TEXT PRIMARY KEY,
	email_id TEXT NOT NULL,
	name TEXT,
	content_type TEXT,
	size INTEGER,
	bucket_url TEXT
);`

type Email struct {
	ID             string
	ConversationID string
	Subject        string
	Body           string
	ContentType    string
	Sent           *time.Time
	Importance     string
	ReplyTo        string
	SenderName     string
	SenderEmail    string
	Recipients     [][2]string
}

type AttachmentRow struct {
	ID          string
	EmailID     string
	Name        string
	ContentType string
	BucketURL   string
}

// NewMailDB creates an empty mail database under t.TempDir.
func NewMailDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := dbutil.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "mail.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(MailSchema)
	require.NoError(t, err)
	return db
}

func InsertEmail(t *testing.T, db *sql.DB, e Email) {
	t.Helper()
	var sent any
	if e.Sent != nil {
		sent = e.Sent.UTC().Format(time.RFC3339)
	}
	contentType := e.ContentType
	if contentType == "" {
		contentType = "text"
	}
	importance := e.Importance
	if importance == "" {
		importance = "normal"
	}
	_, err := db.Exec(`INSERT INTO emails (id, subject, body, body_preview, content_type, conversation_id, sent_datetime, importance, reply_to)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Subject, e.Body, "", contentType, e.ConversationID, sent, importance, e.ReplyTo)
	require.NoError(t, err)
	if e.SenderEmail != "" {
		_, err = db.Exec(`INSERT INTO senders (email_id, name, email_address) VALUES (?, ?, ?)`, e.ID, e.SenderName, e.SenderEmail)
		require.NoError(t, err)
	}
	for _, r := range e.Recipients {
		_, err = db.Exec(`INSERT INTO recipients (email_id, name, email_address, type) VALUES (?, ?, ?, 'to')`, e.ID, r[0], r[1])
		require.NoError(t, err)
	}
}

func InsertAttachment(t *testing.T, db *sql.DB, a AttachmentRow) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO attachments (id, email_id, name, content_type, size, bucket_url) VALUES (?, ?, ?, ?, 0, ?)`,
		a.ID, a.EmailID, a.Name, a.ContentType, a.BucketURL)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE emails SET has_attachments = 1 WHERE id = ?`, a.EmailID)
	require.NoError(t, err)
}

// SeedThread inserts a three email conversation "C1" with ids E1..E3.
func SeedThread(t *testing.T, db *sql.DB) {
	t.Helper()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	at := func(h int) *time.Time {
		v := base.Add(time.Duration(h) * time.Hour)
		return &v
	}
	InsertEmail(t, db, Email{
		ID: "E1", ConversationID: "C1", Subject: "Q3 budget", Body: "Please review the Q3 budget draft.",
		Sent: at(0), SenderName: "Alice", SenderEmail: "alice@example.com",
		Recipients: [][2]string{{"Bob", "bob@example.com"}},
		ReplyTo:    `[{"emailAddress": "{'name': 'Alice Reply', 'address': 'alice.reply@example.com'}"}]`,
	})
	InsertEmail(t, db, Email{
		ID: "E2", ConversationID: "C1", Subject: "RE: Q3 budget", Body: "Marketing needs 10% more.",
		Sent: at(2), SenderName: "Bob", SenderEmail: "bob@example.com",
		Recipients: [][2]string{{"Alice", "alice@example.com"}},
	})
	InsertEmail(t, db, Email{
		ID: "E3", ConversationID: "C1", Subject: "RE: Q3 budget", Body: "Approved, final numbers by Friday.",
		Sent: at(5), SenderName: "Alice", SenderEmail: "alice@example.com",
		Recipients: [][2]string{{"Bob", "bob@example.com"}, {"Carol", "carol@example.com"}},
	})
}
