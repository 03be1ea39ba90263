// Package summarizer produces cached, budgeted summaries of email threads.
package summarizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tbxark/mailagent/structured"
	"github.com/tbxark/mailagent/types"
)

var (
	ErrEmptyThread    = errors.New("thread has no emails")
	ErrNoConversation = errors.New("email has no conversation")
)

const (
	recordSummaryTool = "record_thread_summary"
	noAttachments     = "No attachment content available"
)

// ThreadSource reads threads from the relational store.
type ThreadSource interface {
	ConversationID(ctx context.Context, emailID string) (string, error)
	ThreadEmails(ctx context.Context, conversationID string) ([]types.ThreadEmail, error)
	Attachments(ctx context.Context, emailID string) ([]types.Attachment, error)
}

type AttachmentProcessor interface {
	Process(ctx context.Context, a types.Attachment) (string, error)
}

type Summarizer struct {
	source    ThreadSource
	processor AttachmentProcessor
	cache     *FileCache
	budget    *Budget
	chain     *structured.Chain[*promptInput, types.SummarySections]
	workers   int
}

type Option func(*Summarizer)

func WithAttachmentProcessor(p AttachmentProcessor) Option {
	return func(s *Summarizer) {
		s.processor = p
	}
}

func WithBudget(b *Budget) Option {
	return func(s *Summarizer) {
		s.budget = b
	}
}

func WithWorkers(n int) Option {
	return func(s *Summarizer) {
		if n > 0 {
			s.workers = n
		}
	}
}

func New(chatModel model.ToolCallingChatModel, source ThreadSource, cache *FileCache, opts ...Option) (*Summarizer, error) {
	s := &Summarizer{
		source:  source,
		cache:   cache,
		workers: 4,
	}
	for _, o := range opts {
		o(s)
	}
	if s.budget == nil {
		b, err := NewBudget(DefaultMaxTokens, DefaultReservedTokens)
		if err != nil {
			return nil, err
		}
		s.budget = b
	}
	chain, err := structured.NewChain[*promptInput, types.SummarySections](
		chatModel,
		buildPrompt,
		recordSummaryTool,
		"Record the structured summary of an email thread",
	)
	if err != nil {
		return nil, err
	}
	s.chain = chain
	return s, nil
}

// SummaryForEmail summarizes the conversation the email belongs to.
func (s *Summarizer) SummaryForEmail(ctx context.Context, emailID string, forceRefresh bool) (*types.ThreadSummary, error) {
	cid, err := s.source.ConversationID(ctx, emailID)
	if err != nil {
		return nil, err
	}
	if cid == "" {
		return nil, errors.Wrapf(ErrNoConversation, "email %s", emailID)
	}
	return s.GetOrCreateSummary(ctx, cid, forceRefresh)
}

// GetOrCreateSummary returns the cached summary of a conversation unless
// forceRefresh is set, otherwise summarizes the thread and caches the result.
func (s *Summarizer) GetOrCreateSummary(ctx context.Context, conversationID string, forceRefresh bool) (*types.ThreadSummary, error) {
	if conversationID == "" {
		return nil, ErrNoConversation
	}
	if !forceRefresh {
		cached, err := s.cache.Get(conversationID)
		if err != nil {
			log.Warn().Err(err).Str("conversation_id", conversationID).Msg("ignoring unreadable cached summary")
		} else if cached != nil {
			log.Debug().Str("conversation_id", conversationID).Msg("summary cache hit")
			return cached, nil
		}
	}

	emails, err := s.source.ThreadEmails(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if len(emails) == 0 {
		return nil, errors.Wrapf(ErrEmptyThread, "conversation %s", conversationID)
	}

	attachments := s.processAttachments(ctx, emails)
	in, err := s.prepare(emails, attachments)
	if err != nil {
		return nil, err
	}
	sections, err := s.chain.Invoke(ctx, in)
	if err != nil {
		return nil, errors.Wrap(err, "summarize thread")
	}

	summary := &types.ThreadSummary{
		ConversationID: conversationID,
		Subject:        emails[0].Subject,
		Summary:        RenderSections(sections),
		Sections:       sections,
	}
	if err := s.cache.Put(summary); err != nil {
		return nil, err
	}
	return summary, nil
}

type attachmentText struct {
	name    string
	content string
}

// processAttachments extracts every attachment with bounded parallelism.
// Failed or empty attachments are skipped; order follows the thread.
func (s *Summarizer) processAttachments(ctx context.Context, emails []types.ThreadEmail) []attachmentText {
	if s.processor == nil {
		return nil
	}
	var all []types.Attachment
	for _, e := range emails {
		if !e.HasAttachments {
			continue
		}
		atts, err := s.source.Attachments(ctx, e.ID)
		if err != nil {
			log.Error().Err(err).Str("email_id", e.ID).Msg("failed to list attachments")
			continue
		}
		all = append(all, atts...)
	}
	if len(all) == 0 {
		return nil
	}

	results := make([]string, len(all))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, a := range all {
		g.Go(func() error {
			text, err := s.processor.Process(ctx, a)
			if err != nil {
				log.Warn().Err(err).Str("attachment", a.Name).Msg("skipping attachment")
				return nil
			}
			results[i] = text
			return nil
		})
	}
	_ = g.Wait()

	var out []attachmentText
	for i, text := range results {
		if strings.TrimSpace(text) != "" {
			out = append(out, attachmentText{name: all[i].Name, content: text})
		}
	}
	return out
}

type promptInput struct {
	EmailCount        int
	TimeSpan          string
	Subject           string
	Participants      string
	ThreadContent     string
	AttachmentContent string
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "Unknown"
	}
	return t.UTC().Format(time.RFC3339)
}

func formatEmail(e types.ThreadEmail) string {
	from := "Unknown <unknown>"
	if e.SenderEmail != "" {
		from = fmt.Sprintf("%s <%s>", e.SenderName, e.SenderEmail)
	}
	to := make([]string, len(e.RecipientEmails))
	for i, addr := range e.RecipientEmails {
		name := ""
		if i < len(e.RecipientNames) {
			name = e.RecipientNames[i]
		}
		to[i] = fmt.Sprintf("%s <%s>", name, addr)
	}
	content := e.BodyPreview
	if content == "" {
		content = e.Body
	}
	return fmt.Sprintf("Timestamp: %s\nFrom: %s\nTo: %s\nSubject: %s\nImportance: %s\n\nContent:\n%s\n\n---\n",
		formatTime(e.SentDatetime), from, strings.Join(to, ", "), e.Subject, e.Importance, content)
}

func formatAttachments(atts []attachmentText) string {
	if len(atts) == 0 {
		return noAttachments
	}
	parts := make([]string, len(atts))
	for i, a := range atts {
		parts[i] = fmt.Sprintf("Attachment: %s\nContent:\n%s", a.name, a.content)
	}
	return strings.Join(parts, "\n\n")
}

// participants counts messages sent and received per address.
func participants(emails []types.ThreadEmail) string {
	type counts struct {
		name           string
		sent, received int
	}
	var order []string
	seen := map[string]*counts{}
	get := func(addr, name string) *counts {
		c, ok := seen[addr]
		if !ok {
			c = &counts{name: name}
			seen[addr] = c
			order = append(order, addr)
		}
		return c
	}
	for _, e := range emails {
		if e.SenderEmail != "" {
			get(e.SenderEmail, e.SenderName).sent++
		}
		for i, addr := range e.RecipientEmails {
			name := ""
			if i < len(e.RecipientNames) {
				name = e.RecipientNames[i]
			}
			get(addr, name).received++
		}
	}
	rows := make([][]string, 0, len(order))
	for _, addr := range order {
		c := seen[addr]
		rows = append(rows, []string{c.name, addr, fmt.Sprint(c.sent), fmt.Sprint(c.received)})
	}
	return types.MarkdownTable([]string{"Name", "Email", "Sent", "Received"}, rows)
}

func (s *Summarizer) prepare(emails []types.ThreadEmail, atts []attachmentText) (*promptInput, error) {
	threadLimit, attachmentLimit := s.budget.Limits()
	blocks := make([]string, len(emails))
	for i, e := range emails {
		blocks[i] = formatEmail(e)
	}
	thread, err := s.budget.Truncate(strings.Join(blocks, "\n"), threadLimit)
	if err != nil {
		return nil, errors.Wrap(err, "truncate thread")
	}
	attachments, err := s.budget.Truncate(formatAttachments(atts), attachmentLimit)
	if err != nil {
		return nil, errors.Wrap(err, "truncate attachments")
	}
	return &promptInput{
		EmailCount:        len(emails),
		TimeSpan:          fmt.Sprintf("%s to %s", formatTime(emails[0].SentDatetime), formatTime(emails[len(emails)-1].SentDatetime)),
		Subject:           emails[0].Subject,
		Participants:      participants(emails),
		ThreadContent:     thread,
		AttachmentContent: attachments,
	}, nil
}

const summarySystemPrompt = `You analyze email threads and their attachments.
Call the record_thread_summary tool with:
1. summary: a concise overview of the entire conversation.
2. key_points: main topics discussed and their progression.
3. decisions_and_actions: decisions made and actions required, with owners.
4. attachment_analysis: what the attachments contain and how they relate to the discussion.
5. timeline: key developments in chronological order, including attachment content.
Use only the information in the thread.`

func buildPrompt(ctx context.Context, in *promptInput) ([]*schema.Message, error) {
	user := fmt.Sprintf(`Thread Overview:
- Total Emails: %d
- Time Span: %s
- Thread Subject: %s

Participants:
%s
Email Thread:
%s

Attachment Contents:
%s`, in.EmailCount, in.TimeSpan, in.Subject, in.Participants, in.ThreadContent, in.AttachmentContent)
	return []*schema.Message{
		schema.SystemMessage(summarySystemPrompt),
		schema.UserMessage(user),
	}, nil
}

// RenderSections renders the five summary sections as markdown.
func RenderSections(s *types.SummarySections) string {
	if s == nil {
		return ""
	}
	sections := []struct {
		title string
		body  string
	}{
		{"Thread Summary", s.Summary},
		{"Key Points", s.KeyPoints},
		{"Decisions & Action Items", s.DecisionsAndActions},
		{"Attachment Analysis", s.AttachmentAnalysis},
		{"Timeline", s.Timeline},
	}
	var b strings.Builder
	for _, sec := range sections {
		body := strings.TrimSpace(sec.body)
		if body == "" {
			body = "None."
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "## %s\n\n%s", sec.title, body)
	}
	return b.String()
}
