package types

import (
	"time"

	"github.com/cloudwego/eino/schema"
)

type RagStatus string

const (
	RagStatusSuccess RagStatus = "success"
	RagStatusError   RagStatus = "error"
)

type PrimaryFocus string

const (
	FocusEmails      PrimaryFocus = "emails"
	FocusAttachments PrimaryFocus = "attachments"
	FocusBoth        PrimaryFocus = "both"
)

type SearchPriority string

const (
	PriorityRecent    SearchPriority = "recent"
	PriorityRelevance SearchPriority = "relevance"
	PriorityAll       SearchPriority = "all"
)

// EmailContext is the metadata of a single email. Only EmailID is set until the
// context loader has run.
type EmailContext struct {
	EmailID        string     `json:"email_id"`
	Subject        string     `json:"subject,omitempty"`
	Body           string     `json:"body,omitempty"`
	SenderName     string     `json:"sender_name,omitempty"`
	SenderEmail    string     `json:"sender_email,omitempty"`
	RecipientName  string     `json:"recipient_name,omitempty"`
	RecipientEmail string     `json:"recipient_email,omitempty"`
	SentDatetime   *time.Time `json:"sent_datetime,omitempty"`
	ReplyToName    *string    `json:"reply_to_name,omitempty"`
	ReplyToAddress *string    `json:"reply_to_address,omitempty"`
}

// Loaded reports whether the context carries more than the email id.
func (c *EmailContext) Loaded() bool {
	if c == nil {
		return false
	}
	return c.Subject != "" || c.Body != "" || c.SenderEmail != "" || c.RecipientEmail != "" || c.SentDatetime != nil
}

// ReplyAddress is the validated reply-to address when present, else the sender.
func (c *EmailContext) ReplyAddress() string {
	if c == nil {
		return ""
	}
	if c.ReplyToAddress != nil && *c.ReplyToAddress != "" {
		return *c.ReplyToAddress
	}
	return c.SenderEmail
}

func (c *EmailContext) ID() string {
	if c == nil {
		return ""
	}
	return c.EmailID
}

type ThreadEmail struct {
	ID                string     `json:"id"`
	ConversationID    string     `json:"conversation_id"`
	Subject           string     `json:"subject"`
	Body              string     `json:"body"`
	BodyPreview       string     `json:"body_preview"`
	Importance        string     `json:"importance"`
	SentDatetime      *time.Time `json:"sent_datetime,omitempty"`
	SenderName        string     `json:"sender_name"`
	SenderEmail       string     `json:"sender_email"`
	RecipientNames    []string   `json:"recipient_names"`
	RecipientEmails   []string   `json:"recipient_emails"`
	HasAttachments    bool       `json:"has_attachments"`
	ConversationIndex string     `json:"conversation_index,omitempty"`
}

type Attachment struct {
	ID          string `json:"id"`
	EmailID     string `json:"email_id"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	BucketURL   string `json:"bucket_url"`
}

type DocumentKind string

const (
	KindEmail      DocumentKind = "email"
	KindAttachment DocumentKind = "attachment"
	KindUnknown    DocumentKind = "unknown"
)

type VectorDocument struct {
	Embedding []float32      `json:"embedding,omitempty"`
	Text      string         `json:"text"`
	Metadata  map[string]any `json:"metadata"`
}

// DocumentKind discriminates email documents from attachment chunks by their metadata.
func (d VectorDocument) DocumentKind() DocumentKind {
	if _, ok := d.Metadata["conversation_id"]; ok {
		return KindEmail
	}
	if _, ok := d.Metadata["file_name"]; ok {
		return KindAttachment
	}
	return KindUnknown
}

type ScoredDocument struct {
	VectorDocument
	Score float32 `json:"score"`
}

type QueryAnalysis struct {
	PrimaryFocus          PrimaryFocus   `json:"primary_focus" jsonschema:"required,enum=emails,enum=attachments,enum=both,description=Which collection the query is mostly about"`
	TimeSensitive         bool           `json:"time_sensitive" jsonschema:"required,description=Whether the query implies time relevance"`
	SenderSpecific        bool           `json:"sender_specific" jsonschema:"required,description=Whether the query is about specific senders"`
	RequiresSummarization bool           `json:"requires_summarization" jsonschema:"required,description=Whether the answer needs summarization"`
	SearchPriority        SearchPriority `json:"search_priority" jsonschema:"required,enum=recent,enum=relevance,enum=all,description=How results should be prioritized"`
}

func DefaultQueryAnalysis() QueryAnalysis {
	return QueryAnalysis{
		PrimaryFocus:          FocusBoth,
		TimeSensitive:         false,
		SenderSpecific:        false,
		RequiresSummarization: true,
		SearchPriority:        PriorityRelevance,
	}
}

type RagResult struct {
	Query    string    `json:"query"`
	Response string    `json:"response,omitempty"`
	Status   RagStatus `json:"status"`
	Error    string    `json:"error,omitempty"`
}

type SummarySections struct {
	Summary             string `json:"summary" jsonschema:"required,description=Brief overview of the whole conversation"`
	KeyPoints           string `json:"key_points" jsonschema:"required,description=Main discussion points as a markdown list"`
	DecisionsAndActions string `json:"decisions_and_actions" jsonschema:"required,description=Decisions made and action items with owners as a markdown list"`
	AttachmentAnalysis  string `json:"attachment_analysis" jsonschema:"required,description=How the attachments relate to the discussion"`
	Timeline            string `json:"timeline" jsonschema:"required,description=Chronological progression of the conversation"`
}

type ThreadSummary struct {
	ConversationID string           `json:"conversation_id"`
	Subject        string           `json:"subject"`
	Summary        string           `json:"summary"`
	Sections       *SummarySections `json:"sections,omitempty"`
}

type ResponseDraft struct {
	Subject     string `json:"subject"`
	PlainText   string `json:"plain_text"`
	HTMLContent string `json:"html_content"`
	Preview     bool   `json:"preview"`
}

type ResponseOutput struct {
	SenderEmail string `json:"sender_email"`
	SenderName  string `json:"sender_name"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	PlainText   string `json:"plain_text"`
	Sent        bool   `json:"sent,omitempty"`
	SendError   string `json:"send_error,omitempty"`
}

// AgentState is threaded through every node of the controller graph.
type AgentState struct {
	Messages            []*schema.Message `json:"messages"`
	CurrentInput        string            `json:"current_input"`
	EmailContext        *EmailContext     `json:"email_context,omitempty"`
	UserEmail           string            `json:"user_email,omitempty"`
	CorrectedPrompt     string            `json:"corrected_prompt,omitempty"`
	RagStatus           RagStatus         `json:"rag_status,omitempty"`
	RagResponse         *string           `json:"rag_response,omitempty"`
	ConversationSummary *ThreadSummary    `json:"conversation_summary,omitempty"`
	ResponseOutput      *ResponseOutput   `json:"response_output,omitempty"`
}

func (s *AgentState) LastMessage() *schema.Message {
	if s == nil || len(s.Messages) == 0 {
		return nil
	}
	return s.Messages[len(s.Messages)-1]
}

func (s *AgentState) Append(msgs ...*schema.Message) {
	for _, m := range msgs {
		if m != nil {
			s.Messages = append(s.Messages, m)
		}
	}
}

// Result is the projection of AgentState returned to callers.
type Result struct {
	CurrentInput        string            `json:"current_input"`
	UserEmail           string            `json:"user_email,omitempty"`
	EmailContext        *EmailContext     `json:"email_context,omitempty"`
	CorrectedPrompt     string            `json:"corrected_prompt,omitempty"`
	RagStatus           RagStatus         `json:"rag_status,omitempty"`
	RagResponse         *string           `json:"rag_response,omitempty"`
	ConversationSummary *ThreadSummary    `json:"conversation_summary,omitempty"`
	ResponseOutput      *ResponseOutput   `json:"response_output,omitempty"`
	Messages            []*schema.Message `json:"messages,omitempty"`
}

func (s *AgentState) Project() *Result {
	return &Result{
		CurrentInput:        s.CurrentInput,
		UserEmail:           s.UserEmail,
		EmailContext:        s.EmailContext,
		CorrectedPrompt:     s.CorrectedPrompt,
		RagStatus:           s.RagStatus,
		RagResponse:         s.RagResponse,
		ConversationSummary: s.ConversationSummary,
		ResponseOutput:      s.ResponseOutput,
		Messages:            s.Messages,
	}
}

// Empty reports whether the turn ended without an actionable result.
func (r *Result) Empty() bool {
	return r.RagResponse == nil && r.ConversationSummary == nil && r.ResponseOutput == nil
}
