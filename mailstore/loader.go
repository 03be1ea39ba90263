// Package mailstore reads emails, participants and attachments from the relational store.
package mailstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/tbxark/mailagent/dbutil"
	"github.com/tbxark/mailagent/types"
)

// QueryError wraps a failed relational query.
type QueryError struct {
	Op  string
	Key string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("mailstore %s [%s]: %v", e.Op, e.Key, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

type Loader struct {
	db *sql.DB
}

func NewLoader(db *sql.DB) *Loader {
	return &Loader{db: db}
}

// Open opens the mail database read-only.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	return dbutil.OpenSQLite(ctx, path, true)
}

const emailContextQuery = `
SELECT e.id, e.subject, e.body, e.content_type, e.sent_datetime, e.reply_to,
       s.name, s.email_address, r.name, r.email_address
FROM emails e
LEFT JOIN senders s ON s.email_id = e.id
LEFT JOIN recipients r ON r.email_id = e.id
WHERE e.id = ?
ORDER BY r.id
LIMIT 1`

// FetchEmailContext loads one email with its sender and first recipient.
// An unknown id returns nil without error.
func (l *Loader) FetchEmailContext(ctx context.Context, emailID string) (*types.EmailContext, error) {
	var ec *types.EmailContext
	err := dbutil.Conn(ctx, l.db, func(conn *sql.Conn) error {
		var (
			id                                                   string
			subject, body, contentType, sent, replyTo            sql.NullString
			senderName, senderEmail, recipientName, recipientEml sql.NullString
		)
		row := conn.QueryRowContext(ctx, emailContextQuery, emailID)
		err := row.Scan(&id, &subject, &body, &contentType, &sent, &replyTo,
			&senderName, &senderEmail, &recipientName, &recipientEml)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		text := body.String
		if looksLikeHTML(contentType.String, text) {
			text = HTMLToText(text)
		}
		rt := parseReplyTo(replyTo.String)
		if replyTo.Valid && replyTo.String != "" && rt.Address == nil {
			log.Warn().Str("email_id", emailID).Msg("unparseable reply_to, leaving it empty")
		}
		ec = &types.EmailContext{
			EmailID:        id,
			Subject:        subject.String,
			Body:           text,
			SenderName:     senderName.String,
			SenderEmail:    senderEmail.String,
			RecipientName:  recipientName.String,
			RecipientEmail: recipientEml.String,
			SentDatetime:   parseTime(sent),
			ReplyToName:    rt.Name,
			ReplyToAddress: rt.Address,
		}
		return nil
	})
	if err != nil {
		return nil, &QueryError{Op: "fetch_email_context", Key: emailID, Err: err}
	}
	if ec == nil {
		log.Warn().Str("email_id", emailID).Msg("no email found")
	}
	return ec, nil
}

// ConversationID returns the conversation id of an email, or "" when unknown.
func (l *Loader) ConversationID(ctx context.Context, emailID string) (string, error) {
	var cid sql.NullString
	err := dbutil.Conn(ctx, l.db, func(conn *sql.Conn) error {
		err := conn.QueryRowContext(ctx, `SELECT conversation_id FROM emails WHERE id = ?`, emailID).Scan(&cid)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	})
	if err != nil {
		return "", &QueryError{Op: "conversation_id", Key: emailID, Err: err}
	}
	return cid.String, nil
}

const threadQuery = `
SELECT e.id, e.conversation_id, e.conversation_index, e.subject, e.body, e.body_preview, e.content_type,
       e.importance, e.sent_datetime, e.has_attachments, s.name, s.email_address
FROM emails e
LEFT JOIN senders s ON s.email_id = e.id
WHERE e.conversation_id = ?
ORDER BY e.sent_datetime ASC NULLS LAST, e.id ASC`

// ThreadEmails returns every email of a conversation ordered by sent time, nulls last.
func (l *Loader) ThreadEmails(ctx context.Context, conversationID string) ([]types.ThreadEmail, error) {
	var emails []types.ThreadEmail
	err := dbutil.Conn(ctx, l.db, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, threadQuery, conversationID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				e                                                   types.ThreadEmail
				index, subject, body, preview, contentType, imp, ts sql.NullString
				hasAttachments                                      sql.NullBool
				senderName, senderEmail                             sql.NullString
			)
			if err := rows.Scan(&e.ID, &e.ConversationID, &index, &subject, &body, &preview, &contentType,
				&imp, &ts, &hasAttachments, &senderName, &senderEmail); err != nil {
				return errors.Wrap(err, "scan failed")
			}
			e.ConversationIndex = index.String
			e.Subject = subject.String
			e.Body = body.String
			if looksLikeHTML(contentType.String, e.Body) {
				e.Body = HTMLToText(e.Body)
			}
			e.BodyPreview = preview.String
			e.Importance = imp.String
			e.SentDatetime = parseTime(ts)
			e.HasAttachments = hasAttachments.Bool
			e.SenderName = senderName.String
			e.SenderEmail = senderEmail.String
			emails = append(emails, e)
		}
		if err := rows.Err(); err != nil {
			return errors.Wrap(err, "rows iteration error")
		}
		for i := range emails {
			names, addrs, err := recipients(ctx, conn, emails[i].ID)
			if err != nil {
				return err
			}
			emails[i].RecipientNames = names
			emails[i].RecipientEmails = addrs
		}
		return nil
	})
	if err != nil {
		return nil, &QueryError{Op: "thread_emails", Key: conversationID, Err: err}
	}
	return emails, nil
}

func recipients(ctx context.Context, conn *sql.Conn, emailID string) ([]string, []string, error) {
	rows, err := conn.QueryContext(ctx, `SELECT name, email_address FROM recipients WHERE email_id = ? ORDER BY id`, emailID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var names, addrs []string
	for rows.Next() {
		var name, addr sql.NullString
		if err := rows.Scan(&name, &addr); err != nil {
			return nil, nil, errors.Wrap(err, "scan failed")
		}
		names = append(names, name.String)
		addrs = append(addrs, addr.String)
	}
	return names, addrs, rows.Err()
}

// Attachments lists the attachments of an email.
func (l *Loader) Attachments(ctx context.Context, emailID string) ([]types.Attachment, error) {
	var out []types.Attachment
	err := dbutil.Conn(ctx, l.db, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx,
			`SELECT id, email_id, name, content_type, size, bucket_url FROM attachments WHERE email_id = ? ORDER BY name`, emailID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				a                            types.Attachment
				name, contentType, bucketURL sql.NullString
				size                         sql.NullInt64
			)
			if err := rows.Scan(&a.ID, &a.EmailID, &name, &contentType, &size, &bucketURL); err != nil {
				return errors.Wrap(err, "scan failed")
			}
			a.Name = name.String
			a.ContentType = contentType.String
			a.Size = size.Int64
			a.BucketURL = bucketURL.String
			out = append(out, a)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, &QueryError{Op: "attachments", Key: emailID, Err: err}
	}
	return out, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTime(v sql.NullString) *time.Time {
	if !v.Valid {
		return nil
	}
	s := strings.TrimSpace(v.String)
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
