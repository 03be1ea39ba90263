package agent

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/tbxark/mailagent/intent"
	"github.com/tbxark/mailagent/patch"
	"github.com/tbxark/mailagent/responder"
	"github.com/tbxark/mailagent/summarizer"
	"github.com/tbxark/mailagent/types"
)

const (
	msgNoEmailID        = "Failed to get email context: No email ID provided"
	msgNoEmailFound     = "No email found with ID: %s"
	msgContextError     = "An error occurred while fetching email context"
	msgContextFetched   = "Successfully fetched email context for ID: %s\nSubject: %s"
	msgRAGPrompt        = "Successfully generated RAG prompt: %s"
	msgNoSummaryEmailID = "Failed to summarize thread: No email ID provided"
	msgNoConversation   = "No conversation found for email ID: %s"
	msgSummaryError     = "An error occurred while summarizing the thread"
	msgNoSafeDraft      = "No safe draft available"
	msgDraftError       = "An error occurred while drafting the reply"
	msgNoUserEmail      = "user email is required for search"
)

const ragQuerySystemPrompt = `You turn requests made to an email assistant into search queries.
Rewrite the user's request as one concise search query over the user's emails and attachments.
Keep names, dates, amounts and file names. Reply with the query only, without quotes or explanation.`

const maxQueryBodyRunes = 2000

// pendingCall is the tool call the current node was routed by.
func pendingCall(state *types.AgentState) (intent.Call, string) {
	msg := state.LastMessage()
	call, ok := intent.FirstCall(msg)
	if !ok {
		return nil, ""
	}
	return call, call.CallID()
}

func (c *Controller) startNode(ctx context.Context, state *types.AgentState) (*types.AgentState, error) {
	stage := intent.StartStage()
	msg, err := c.recognizer.Recognize(ctx, &intent.Request{
		Stage:        stage,
		Input:        state.CurrentInput,
		EmailContext: state.EmailContext,
	})
	if err != nil {
		return nil, errors.Wrap(err, "start: recognize intent")
	}
	state.Append(requireContextFirst(state.EmailContext, msg))
	return state, nil
}

// requireContextFirst rewrites any call into GetEmailContext while the email
// context carries only an id.
func requireContextFirst(ec *types.EmailContext, msg *schema.Message) *schema.Message {
	if ec.ID() == "" || ec.Loaded() || msg == nil || len(msg.ToolCalls) == 0 {
		return msg
	}
	if msg.ToolCalls[0].Function.Name == string(intent.GetEmailContext) {
		return msg
	}
	log.Debug().Str("email_id", ec.EmailID).Str("tool", msg.ToolCalls[0].Function.Name).Msg("email context not loaded, fetching it first")
	args := fmt.Sprintf(`{"email_id":%q}`, ec.EmailID)
	return intent.NewCallMessage(intent.GetEmailContext, args)
}

func (c *Controller) getEmailContextNode(ctx context.Context, state *types.AgentState) (*types.AgentState, error) {
	call, callID := pendingCall(state)
	id := ""
	if gc, ok := call.(intent.GetEmailContextCall); ok {
		id = strings.TrimSpace(gc.Args.EmailID)
	}
	if id == "" {
		id = state.EmailContext.ID()
	}
	if id == "" {
		state.Append(schema.ToolMessage(msgNoEmailID, callID))
		return state, nil
	}
	loaded, err := c.deps.Loader.FetchEmailContext(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("email_id", id).Msg("fetch email context failed")
		state.Append(schema.ToolMessage(msgContextError, callID))
		return state, nil
	}
	if loaded == nil {
		state.Append(schema.ToolMessage(fmt.Sprintf(msgNoEmailFound, id), callID))
		return state, nil
	}
	merged, err := patch.Merge(state.EmailContext, loaded)
	if err != nil {
		log.Warn().Err(err).Str("email_id", id).Msg("merge email context failed, using loaded context")
		merged = loaded
	}
	state.EmailContext = merged
	state.Append(schema.ToolMessage(fmt.Sprintf(msgContextFetched, id, loaded.Subject), callID))
	return state, nil
}

func (c *Controller) decideNode(ctx context.Context, state *types.AgentState) (*types.AgentState, error) {
	msg, err := c.recognizer.Recognize(ctx, &intent.Request{
		Stage:        intent.DecideStage(),
		Input:        state.CurrentInput,
		EmailContext: state.EmailContext,
	})
	if err != nil {
		return nil, errors.Wrap(err, "decide next step: recognize intent")
	}
	state.Append(msg)
	return state, nil
}

func buildQueryMessages(state *types.AgentState) []*schema.Message {
	var b strings.Builder
	b.WriteString("User Request: ")
	b.WriteString(state.CurrentInput)
	if ec := state.EmailContext; ec.Loaded() {
		body := ec.Body
		if utf8.RuneCountInString(body) > maxQueryBodyRunes {
			body = string([]rune(body)[:maxQueryBodyRunes])
		}
		b.WriteString("\n\nEmail Subject: ")
		b.WriteString(ec.Subject)
		b.WriteString("\nEmail Body:\n")
		b.WriteString(body)
	}
	return []*schema.Message{
		schema.SystemMessage(ragQuerySystemPrompt),
		schema.UserMessage(b.String()),
	}
}

func (c *Controller) generateRAGQueryNode(ctx context.Context, state *types.AgentState) (*types.AgentState, error) {
	_, callID := pendingCall(state)
	query := state.CurrentInput
	resp, err := c.chatModel.Generate(ctx, buildQueryMessages(state), model.WithTemperature(0))
	if err != nil {
		log.Warn().Err(err).Msg("generate search query failed, using the raw request")
	} else if q := strings.Trim(strings.TrimSpace(resp.Content), `"`); q != "" {
		query = q
	}
	state.CorrectedPrompt = query
	state.Append(schema.ToolMessage(fmt.Sprintf(msgRAGPrompt, query), callID))
	return state, nil
}

func (c *Controller) ragAgentNode(ctx context.Context, state *types.AgentState) (*types.AgentState, error) {
	if strings.TrimSpace(state.UserEmail) == "" {
		log.Warn().Msg(msgNoUserEmail)
		state.RagStatus = types.RagStatusError
		return state, nil
	}
	query := state.CorrectedPrompt
	if strings.TrimSpace(query) == "" {
		query = state.CurrentInput
	}
	res := c.deps.RAG.Search(ctx, state.UserEmail, query)
	state.RagStatus = res.Status
	if res.Status == types.RagStatusSuccess {
		answer := res.Response
		state.RagResponse = &answer
		state.Append(schema.AssistantMessage(answer, nil))
	}
	return state, nil
}

func (c *Controller) summarizeThreadNode(ctx context.Context, state *types.AgentState) (*types.AgentState, error) {
	call, callID := pendingCall(state)
	id := ""
	if sc, ok := call.(intent.SummarizeEmailThreadCall); ok {
		id = strings.TrimSpace(sc.Args.EmailID)
	}
	if id == "" {
		id = state.EmailContext.ID()
	}
	if id == "" {
		state.Append(schema.ToolMessage(msgNoSummaryEmailID, callID))
		return state, nil
	}
	summary, err := c.deps.Summarizer.SummaryForEmail(ctx, id, false)
	switch {
	case errors.Is(err, summarizer.ErrNoConversation), errors.Is(err, summarizer.ErrEmptyThread):
		state.Append(schema.ToolMessage(fmt.Sprintf(msgNoConversation, id), callID))
		return state, nil
	case err != nil:
		log.Error().Err(err).Str("email_id", id).Msg("summarize thread failed")
		state.Append(schema.ToolMessage(msgSummaryError, callID))
		return state, nil
	}
	state.ConversationSummary = summary
	state.Append(schema.AssistantMessage(summary.Summary, nil))
	return state, nil
}

func (c *Controller) respondToEmailNode(ctx context.Context, state *types.AgentState) (*types.AgentState, error) {
	call, callID := pendingCall(state)
	if !state.EmailContext.Loaded() {
		log.Error().Str("email_id", state.EmailContext.ID()).Msg("respond to email called without a loaded email context")
		return state, nil
	}
	instruction := state.CurrentInput
	if rc, ok := call.(intent.RespondToEmailCall); ok && strings.TrimSpace(rc.Args.Instruction) != "" {
		instruction = rc.Args.Instruction
	}
	draft, err := c.deps.Responder.GeneratePreview(ctx, state.EmailContext, instruction)
	switch {
	case errors.Is(err, responder.ErrInvalidDraft):
		state.Append(schema.ToolMessage(msgNoSafeDraft, callID))
		return state, nil
	case err != nil:
		log.Error().Err(err).Str("email_id", state.EmailContext.EmailID).Msg("draft reply failed")
		state.Append(schema.ToolMessage(msgDraftError, callID))
		return state, nil
	}
	state.ResponseOutput = responder.Output(state.EmailContext, draft)
	state.Append(schema.AssistantMessage(draft.PlainText, nil))
	return state, nil
}
