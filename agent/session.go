package agent

import (
	"context"
	"strings"
)

type stateKeyContext struct{}

// AnonymousSession is used when a turn carries neither a user nor an email id.
const AnonymousSession = "anonymous"

// WithStateKey sets the session key checkpoints are stored under.
func WithStateKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, stateKeyContext{}, key)
}

// StateKeyFromContext gets the session key from the context.
func StateKeyFromContext(ctx context.Context) (string, bool) {
	value := ctx.Value(stateKeyContext{})
	if value == nil {
		return "", false
	}
	key, ok := value.(string)
	return key, ok && key != ""
}

// SessionKey picks the checkpoint key of a turn: the explicit key of the request,
// then the key carried by ctx, then "<user_email>:<email_id>".
func SessionKey(ctx context.Context, req *Request) string {
	if k := strings.TrimSpace(req.SessionKey); k != "" {
		return k
	}
	if k, ok := StateKeyFromContext(ctx); ok {
		return k
	}
	user := strings.TrimSpace(req.UserEmail)
	id := req.EmailContext.ID()
	if user == "" && id == "" {
		return AnonymousSession
	}
	return user + ":" + id
}
