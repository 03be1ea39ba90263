// Package mcpserver exposes the mail assistant as an MCP tool.
package mcpserver

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/tbxark/mailagent/agent"
	"github.com/tbxark/mailagent/types"
)

const ProcessInputTool = "process_input"

type Processor interface {
	Process(ctx context.Context, req *agent.Request) (*types.Result, error)
}

type ProcessInputRequest struct {
	Input      string `json:"input" jsonschema:"the user's request in natural language"`
	UserEmail  string `json:"user_email,omitempty" jsonschema:"address of the mailbox owner, required for searching"`
	EmailID    string `json:"email_id,omitempty" jsonschema:"id of the email the request is about"`
	SessionKey string `json:"session_key,omitempty" jsonschema:"conversation key; defaults to user_email:email_id"`
}

type ProcessInputResponse struct {
	Answer          string `json:"answer" jsonschema:"markdown rendering of the result"`
	RagStatus       string `json:"rag_status,omitempty" jsonschema:"outcome of the mailbox search, if one ran"`
	CorrectedPrompt string `json:"corrected_prompt,omitempty" jsonschema:"search query derived from the request"`
	ConversationID  string `json:"conversation_id,omitempty" jsonschema:"conversation that was summarized"`
	Summary         string `json:"summary,omitempty" jsonschema:"markdown thread summary"`
	DraftTo         string `json:"draft_to,omitempty" jsonschema:"address the drafted reply answers"`
	DraftSubject    string `json:"draft_subject,omitempty" jsonschema:"subject of the drafted reply"`
	DraftHTML       string `json:"draft_html,omitempty" jsonschema:"sanitized HTML body of the drafted reply"`
	DraftPlainText  string `json:"draft_plain_text,omitempty" jsonschema:"plain text body of the drafted reply"`
}

type Handler struct {
	processor Processor
}

func NewHandler(p Processor) *Handler {
	return &Handler{processor: p}
}

func NewServer(h *Handler, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "mailagent", Version: version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        ProcessInputTool,
		Description: "Answer questions about a mailbox, summarize an email thread or draft a reply to an email",
	}, h.ProcessInput)

	return server
}

func (h *Handler) ProcessInput(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ProcessInputRequest,
) (*mcp.CallToolResult, ProcessInputResponse, error) {
	if strings.TrimSpace(input.Input) == "" {
		return nil, ProcessInputResponse{}, errors.New("input must not be empty")
	}
	areq := &agent.Request{
		UserInput:  input.Input,
		UserEmail:  input.UserEmail,
		SessionKey: input.SessionKey,
	}
	if input.EmailID != "" {
		areq.EmailContext = &types.EmailContext{EmailID: input.EmailID}
	}
	res, err := h.processor.Process(ctx, areq)
	if err != nil {
		log.Error().Err(err).Str("tool", ProcessInputTool).Msg("process input failed")
		return nil, ProcessInputResponse{}, errors.New(agent.FailureMessage)
	}
	return nil, toResponse(res), nil
}

func toResponse(r *types.Result) ProcessInputResponse {
	out := ProcessInputResponse{
		Answer:          agent.RenderResult(r),
		RagStatus:       string(r.RagStatus),
		CorrectedPrompt: r.CorrectedPrompt,
	}
	if s := r.ConversationSummary; s != nil {
		out.ConversationID = s.ConversationID
		out.Summary = s.Summary
	}
	if o := r.ResponseOutput; o != nil {
		out.DraftTo = o.SenderEmail
		out.DraftSubject = o.Subject
		out.DraftHTML = o.Body
		out.DraftPlainText = o.PlainText
	}
	return out
}
