package agent

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"

	"github.com/tbxark/mailagent/types"
)

// Checkpoint is what survives between turns of one session.
type Checkpoint struct {
	Messages  []*schema.Message `json:"messages"`
	Result    *types.Result     `json:"result,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Checkpointer loads and saves the checkpoint of the session carried by ctx.
type Checkpointer interface {
	Load(ctx context.Context) (*Checkpoint, error)
	Save(ctx context.Context, cp *Checkpoint) error
	Clear(ctx context.Context) error
}

type CacheCheckpointer struct {
	store   Store[*Checkpoint]
	trimmer Trimmer
}

func NewCheckpointer(core Cache[*Checkpoint], trimmer Trimmer) *CacheCheckpointer {
	return &CacheCheckpointer{
		store:   NewStore(core, "agent:checkpoint", StateKeyFromContext),
		trimmer: trimmer,
	}
}

func NewMemoryCheckpointer(trimmer Trimmer) *CacheCheckpointer {
	return NewCheckpointer(NewMemoryCache[*Checkpoint](), trimmer)
}

// Load returns nil when the session has no checkpoint yet.
func (c *CacheCheckpointer) Load(ctx context.Context) (*Checkpoint, error) {
	cp, ok, err := c.store.Get(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load checkpoint")
	}
	if !ok {
		return nil, nil
	}
	return cp, nil
}

func (c *CacheCheckpointer) Save(ctx context.Context, cp *Checkpoint) error {
	history := normalizeHistory(cp.Messages)
	if c.trimmer != nil {
		history = c.trimmer.Trim(history)
	}
	saved := &Checkpoint{
		Messages:  history,
		Result:    cp.Result,
		UpdatedAt: time.Now().UTC(),
	}
	if saved.Result != nil {
		r := *saved.Result
		r.Messages = nil
		saved.Result = &r
	}
	return errors.Wrap(c.store.Set(ctx, saved), "save checkpoint")
}

func (c *CacheCheckpointer) Clear(ctx context.Context) error {
	return c.store.Del(ctx)
}

var _ Checkpointer = (*CacheCheckpointer)(nil)
