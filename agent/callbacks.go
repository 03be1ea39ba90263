package agent

import (
	"context"

	"github.com/cloudwego/eino/callbacks"
	"github.com/rs/zerolog/log"
)

// NewLogHandler logs graph and node lifecycle events.
func NewLogHandler() callbacks.Handler {
	return callbacks.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
			if info != nil {
				log.Debug().Str("name", info.Name).Str("component", string(info.Component)).Msg("node start")
			}
			return ctx
		}).
		OnEndFn(func(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
			if info != nil {
				log.Debug().Str("name", info.Name).Str("component", string(info.Component)).Msg("node end")
			}
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
			ev := log.Error().Err(err)
			if info != nil {
				ev = ev.Str("name", info.Name).Str("component", string(info.Component))
			}
			ev.Msg("node error")
			return ctx
		}).
		Build()
}
