// Package responder drafts, validates and sends replies to emails.
package responder

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/tbxark/mailagent/types"
)

const DefaultInstruction = "For the given email, generate an appropriate response."

const responderSystemPrompt = "You are a professional email assistant."

const responsePromptTemplate = `You are helping to draft an email response.

Original Email Details:
From: %s
Sender's Full Name: %s
Subject: %s
Content: %s

Your Information (for signature):
Your Name: %s

User's Response Instructions:
%s

Please provide:
1. An appropriate subject line (formatted as 'Subject: Your Subject Here')
2. A professional email response that:
- Uses the sender's full name in the greeting (e.g., "Dear [Full Name],")
- Maintains a professional tone
- Incorporates the user's specified response details
- Keeps the response concise but complete
- Ends with exactly:

Thanks & Regards,
%s

Format your response as:
Subject: [Your subject line]

[Your email content including greeting and the exact signature format specified above]

Do not include any placeholders like [Your Name] or [Your Position].`

type Generator struct {
	chatModel   model.BaseChatModel
	sender      Sender
	renderer    *Renderer
	denylist    []string
	signature   string
	minLength   int
	temperature float32
	maxTokens   int
}

type Option func(*Generator)

func WithSender(s Sender) Option {
	return func(g *Generator) {
		g.sender = s
	}
}

func WithDenylist(terms []string) Option {
	return func(g *Generator) {
		g.denylist = terms
	}
}

// WithSignature sets the name signed under replies when the email has no recipient name.
func WithSignature(name string) Option {
	return func(g *Generator) {
		g.signature = name
	}
}

func WithMinLength(n int) Option {
	return func(g *Generator) {
		g.minLength = n
	}
}

func WithTemperature(t float32) Option {
	return func(g *Generator) {
		g.temperature = t
	}
}

func WithMaxTokens(n int) Option {
	return func(g *Generator) {
		g.maxTokens = n
	}
}

func NewGenerator(chatModel model.BaseChatModel, opts ...Option) *Generator {
	g := &Generator{
		chatModel:   chatModel,
		renderer:    NewRenderer(),
		minLength:   10,
		temperature: 0.7,
		maxTokens:   500,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func localPart(addr string) string {
	if i := strings.Index(addr, "@"); i > 0 {
		return addr[:i]
	}
	return addr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// signatureName is the name of the user replying, the original recipient.
func signatureName(ec *types.EmailContext, fallback string) string {
	return firstNonEmpty(ec.RecipientName, fallback, localPart(ec.RecipientEmail), "Your Name")
}

func buildMessages(ec *types.EmailContext, instruction, signature string) []*schema.Message {
	senderName := firstNonEmpty(ec.SenderName, localPart(ec.SenderEmail))
	me := signatureName(ec, signature)
	prompt := fmt.Sprintf(responsePromptTemplate,
		ec.SenderEmail, senderName, ec.Subject, ec.Body, me, instruction, me)
	return []*schema.Message{
		schema.SystemMessage(responderSystemPrompt),
		schema.UserMessage(prompt),
	}
}

// GeneratePreview drafts a reply. A draft that fails validation returns an error
// matching ErrInvalidDraft.
func (g *Generator) GeneratePreview(ctx context.Context, ec *types.EmailContext, instruction string) (*types.ResponseDraft, error) {
	if !ec.Loaded() {
		return nil, errors.New("email context is not loaded")
	}
	if strings.TrimSpace(instruction) == "" {
		instruction = DefaultInstruction
	}
	resp, err := g.chatModel.Generate(ctx, buildMessages(ec, instruction, g.signature),
		model.WithTemperature(g.temperature),
		model.WithMaxTokens(g.maxTokens),
	)
	if err != nil {
		return nil, errors.Wrap(err, "generate reply")
	}
	subject, body := ParseDraft(resp.Content)
	if err := Validate(subject, body, g.denylist, g.minLength); err != nil {
		log.Warn().Err(err).Str("email_id", ec.EmailID).Msg("draft rejected")
		return nil, err
	}
	htmlContent, err := g.renderer.Render(body)
	if err != nil {
		return nil, err
	}
	return &types.ResponseDraft{
		Subject:     subject,
		PlainText:   body,
		HTMLContent: htmlContent,
		Preview:     true,
	}, nil
}

// GenerateResponse drafts a reply and sends it. A send failure is reported in the
// output and never retried.
func (g *Generator) GenerateResponse(ctx context.Context, ec *types.EmailContext, instruction string) (*types.ResponseOutput, error) {
	draft, err := g.GeneratePreview(ctx, ec, instruction)
	if err != nil {
		return nil, err
	}
	draft.Preview = false
	out := Output(ec, draft)
	if g.sender == nil {
		out.SendError = "no mail sender configured"
		return out, nil
	}
	if err := g.sender.Send(ctx, Message{To: ec.ReplyAddress(), Subject: draft.Subject, HTML: draft.HTMLContent}); err != nil {
		log.Error().Err(err).Str("email_id", ec.EmailID).Msg("failed to send reply")
		out.SendError = err.Error()
		return out, nil
	}
	out.Sent = true
	return out, nil
}

// Output projects a draft onto the agent result.
func Output(ec *types.EmailContext, d *types.ResponseDraft) *types.ResponseOutput {
	return &types.ResponseOutput{
		SenderEmail: ec.SenderEmail,
		SenderName:  ec.SenderName,
		Subject:     d.Subject,
		Body:        d.HTMLContent,
		PlainText:   d.PlainText,
	}
}
