// Package app wires the mail assistant components from configuration.
package app

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	"github.com/pkg/errors"

	"github.com/tbxark/mailagent/agent"
	"github.com/tbxark/mailagent/attachment"
	"github.com/tbxark/mailagent/config"
	"github.com/tbxark/mailagent/intent"
	"github.com/tbxark/mailagent/llm"
	"github.com/tbxark/mailagent/mailstore"
	"github.com/tbxark/mailagent/objstore"
	"github.com/tbxark/mailagent/responder"
	"github.com/tbxark/mailagent/retriever"
	"github.com/tbxark/mailagent/summarizer"
	"github.com/tbxark/mailagent/vectorstore"
)

type App struct {
	Config     *config.Config
	ChatModel  model.ToolCallingChatModel
	Loader     *mailstore.Loader
	Vectors    *vectorstore.Gateway
	RAG        *retriever.RAG
	Summarizer *summarizer.Summarizer
	Responder  *responder.Generator
	Controller *agent.Controller

	closers []func() error
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}
	if err := a.build(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config
	cm, err := llm.NewChatModel(ctx, cfg.OpenAI, cfg.Timeouts.Model)
	if err != nil {
		return errors.Wrap(err, "create chat model")
	}
	a.ChatModel = cm

	db, err := mailstore.Open(ctx, cfg.Database.Path)
	if err != nil {
		return errors.Wrap(err, "open mail database")
	}
	a.closers = append(a.closers, db.Close)
	a.Loader = mailstore.NewLoader(db)

	backend, err := newVectorBackend(ctx, cfg.Vector)
	if err != nil {
		return err
	}
	a.Vectors = vectorstore.NewGateway(backend, llm.NewEmbedder(cfg.OpenAI, cfg.Embedding),
		vectorstore.WithNaming(vectorstore.Naming{AtSentinel: cfg.Vector.AtSentinel, PeriodSentinel: cfg.Vector.PeriodSentinel}),
		vectorstore.WithDimensions(cfg.Embedding.Dimensions),
	)
	a.closers = append(a.closers, a.Vectors.Close)

	classifier, err := retriever.NewClassifier(cm)
	if err != nil {
		return errors.Wrap(err, "create query classifier")
	}
	a.RAG = retriever.NewRAG(retriever.New(a.Vectors,
		retriever.WithClassifier(classifier),
		retriever.WithSearchTimeout(cfg.Timeouts.Search),
	), cm)

	store, err := newObjectStore(ctx, cfg)
	if err != nil {
		return err
	}
	processor := attachment.NewProcessor(store,
		attachment.WithScratchDir(cfg.Storage.ScratchDir),
		attachment.WithCaptioner(llm.NewCaptioner(cfg.OpenAI)),
	)
	cache, err := summarizer.NewFileCache(cfg.Summary.Dir)
	if err != nil {
		return err
	}
	budget, err := summarizer.NewBudget(cfg.Summary.MaxTokens, cfg.Summary.ReservedTokens)
	if err != nil {
		return err
	}
	a.Summarizer, err = summarizer.New(cm, a.Loader, cache,
		summarizer.WithAttachmentProcessor(processor),
		summarizer.WithBudget(budget),
		summarizer.WithWorkers(cfg.Summary.AttachmentWorker),
	)
	if err != nil {
		return errors.Wrap(err, "create summarizer")
	}

	a.Responder = responder.NewGenerator(cm, a.responderOptions()...)

	checkpointer, err := a.newCheckpointer(ctx)
	if err != nil {
		return err
	}
	var recognizer intent.Recognizer = intent.NewToolBasedRecognizer(cm)
	if cfg.Router.LocalFallback {
		recognizer = intent.NewFailbackRecognizer(recognizer, intent.NewLocalRecognizer())
	}
	a.Controller, err = agent.New(ctx, cm, agent.Dependencies{
		Loader:     a.Loader,
		RAG:        a.RAG,
		Summarizer: a.Summarizer,
		Responder:  a.Responder,
	}, checkpointer, agent.WithRecognizer(recognizer))
	if err != nil {
		return errors.Wrap(err, "create controller")
	}
	return nil
}

func (a *App) responderOptions() []responder.Option {
	r := a.Config.Response
	return []responder.Option{
		responder.WithDenylist(r.Denylist),
		responder.WithMinLength(r.MinLength),
		responder.WithTemperature(r.Temperature),
		responder.WithMaxTokens(r.MaxTokens),
		responder.WithSignature(a.Config.Mail.DefaultSenderName),
	}
}

// SendingResponder returns a generator that delivers replies through Gmail.
func (a *App) SendingResponder(ctx context.Context) (*responder.Generator, error) {
	m := a.Config.Mail
	sender, err := responder.NewGmailSender(ctx, m.OAuthClientID, m.OAuthClientSecret, m.TokenFile)
	if err != nil {
		return nil, err
	}
	return responder.NewGenerator(a.ChatModel, append(a.responderOptions(), responder.WithSender(sender))...), nil
}

func newVectorBackend(ctx context.Context, cfg config.VectorConfig) (vectorstore.Backend, error) {
	switch cfg.Backend {
	case "weaviate":
		return vectorstore.NewWeaviateBackend(vectorstore.WeaviateConfig{
			Host:   cfg.Weaviate.Host,
			Scheme: cfg.Weaviate.Scheme,
			APIKey: cfg.Weaviate.APIKey,
		})
	case "sqlite", "":
		return vectorstore.OpenSQLiteBackend(ctx, cfg.SQLitePath)
	default:
		return nil, errors.Errorf("unknown vector backend %q", cfg.Backend)
	}
}

func newObjectStore(ctx context.Context, cfg *config.Config) (objstore.Store, error) {
	router := &objstore.Router{Local: &objstore.LocalStore{Root: cfg.Storage.LocalRoot}}
	if cfg.Storage.Backend == "s3" {
		s3, err := objstore.NewS3Store(ctx, cfg.Storage.S3Region)
		if err != nil {
			return nil, err
		}
		router.S3 = s3
	}
	return objstore.WithTimeout(router, cfg.Timeouts.Fetch), nil
}

func (a *App) newCheckpointer(ctx context.Context) (agent.Checkpointer, error) {
	cfg := a.Config.Checkpoint
	trimmer := agent.KeepSystemLastNTrimmer{N: cfg.HistoryLimit}
	switch cfg.Backend {
	case "sqlite":
		cache, err := agent.OpenSQLiteCache[*agent.Checkpoint](ctx, cfg.Path)
		if err != nil {
			return nil, errors.Wrap(err, "open checkpoint store")
		}
		a.closers = append(a.closers, cache.Close)
		return agent.NewCheckpointer(cache, trimmer), nil
	case "memory", "":
		return agent.NewMemoryCheckpointer(trimmer), nil
	default:
		return nil, errors.Errorf("unknown checkpoint backend %q", cfg.Backend)
	}
}

func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
