// Package agent routes a user turn through context loading, search, thread
// summarization and reply drafting.
package agent

import (
	"context"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/tbxark/mailagent/intent"
	"github.com/tbxark/mailagent/types"
)

type ContextLoader interface {
	FetchEmailContext(ctx context.Context, emailID string) (*types.EmailContext, error)
}

type Searcher interface {
	Search(ctx context.Context, userEmail, query string) types.RagResult
}

type ThreadSummarizer interface {
	SummaryForEmail(ctx context.Context, emailID string, forceRefresh bool) (*types.ThreadSummary, error)
}

type Drafter interface {
	GeneratePreview(ctx context.Context, ec *types.EmailContext, instruction string) (*types.ResponseDraft, error)
}

// Dependencies are the collaborators the nodes delegate to.
type Dependencies struct {
	Loader     ContextLoader
	RAG        Searcher
	Summarizer ThreadSummarizer
	Responder  Drafter
}

func (d Dependencies) validate() error {
	switch {
	case d.Loader == nil:
		return errors.New("missing context loader")
	case d.RAG == nil:
		return errors.New("missing rag searcher")
	case d.Summarizer == nil:
		return errors.New("missing thread summarizer")
	case d.Responder == nil:
		return errors.New("missing responder")
	}
	return nil
}

type Request struct {
	UserInput      string              `json:"user_input"`
	UserEmail      string              `json:"user_email,omitempty"`
	EmailContext   *types.EmailContext `json:"email_context,omitempty"`
	MessageHistory []*schema.Message   `json:"message_history,omitempty"`
	SessionKey     string              `json:"session_key,omitempty"`
}

type Controller struct {
	chatModel    model.ToolCallingChatModel
	recognizer   intent.Recognizer
	deps         Dependencies
	checkpointer Checkpointer
	handlers     []callbacks.Handler
	maxSteps     int
	runnable     compose.Runnable[*types.AgentState, *types.AgentState]
}

type Option func(*Controller)

// WithRecognizer replaces the model-backed intent recognizer.
func WithRecognizer(r intent.Recognizer) Option {
	return func(c *Controller) {
		c.recognizer = r
	}
}

func WithCallbacks(handlers ...callbacks.Handler) Option {
	return func(c *Controller) {
		c.handlers = append(c.handlers, handlers...)
	}
}

func WithMaxSteps(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxSteps = n
		}
	}
}

func New(ctx context.Context, chatModel model.ToolCallingChatModel, deps Dependencies, checkpointer Checkpointer, opts ...Option) (*Controller, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if checkpointer == nil {
		return nil, errors.New("missing checkpointer")
	}
	c := &Controller{
		chatModel:    chatModel,
		recognizer:   intent.NewToolBasedRecognizer(chatModel),
		deps:         deps,
		checkpointer: checkpointer,
		handlers:     []callbacks.Handler{NewLogHandler()},
		maxSteps:     16,
	}
	for _, o := range opts {
		o(c)
	}
	runnable, err := c.buildGraph(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "compile graph")
	}
	c.runnable = runnable
	return c, nil
}

// Process runs one user turn. No-match turns return an empty result; errors
// come only from the routing model calls and the checkpoint store.
func (c *Controller) Process(ctx context.Context, req *Request) (*types.Result, error) {
	key := SessionKey(ctx, req)
	ctx = WithStateKey(ctx, key)
	logger := log.With().Str("session", key).Logger()

	history := req.MessageHistory
	if history == nil {
		cp, err := c.checkpointer.Load(ctx)
		if err != nil {
			return nil, err
		}
		if cp != nil {
			history = cp.Messages
		}
	}

	state := &types.AgentState{
		Messages:     make([]*schema.Message, 0, len(history)+4),
		CurrentInput: req.UserInput,
		EmailContext: copyEmailContext(req.EmailContext),
		UserEmail:    req.UserEmail,
	}
	state.Append(history...)
	state.Append(schema.UserMessage(req.UserInput))

	logger.Debug().Str("email_id", state.EmailContext.ID()).Int("history", len(history)).Msg("process turn")
	out, err := c.runnable.Invoke(ctx, state, compose.WithCallbacks(c.handlers...))
	if err != nil {
		logger.Error().Err(err).Msg("turn failed")
		return nil, err
	}

	result := out.Project()
	if err := c.checkpointer.Save(ctx, &Checkpoint{Messages: out.Messages, Result: result}); err != nil {
		return nil, err
	}
	if result.Empty() {
		logger.Info().Msg("turn ended without a result")
	}
	return result, nil
}

func copyEmailContext(ec *types.EmailContext) *types.EmailContext {
	if ec == nil {
		return nil
	}
	cp := *ec
	return &cp
}
