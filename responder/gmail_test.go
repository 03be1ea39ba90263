package responder

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	raw []string
}

func (f *fakeAPI) send(ctx context.Context, raw string) error {
	f.raw = append(f.raw, raw)
	return nil
}

func TestBuildRaw(t *testing.T) {
	raw, err := buildRaw(Message{To: "alice@example.com", Subject: "Re: Café plans", HTML: "<p>hi</p>"})
	require.NoError(t, err)
	decoded, err := base64.URLEncoding.DecodeString(raw)
	require.NoError(t, err)
	msg := string(decoded)
	assert.True(t, strings.HasPrefix(msg, "To: alice@example.com\r\n"))
	assert.Contains(t, msg, "Subject: =?utf-8?q?Re:_Caf=C3=A9_plans?=\r\n")
	assert.Contains(t, msg, "Content-Type: text/html")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\n<p>hi</p>"))

	_, err = buildRaw(Message{To: "a@example.com\r\nBcc: x@example.com"})
	assert.Error(t, err)
}

func TestGmailSenderSend(t *testing.T) {
	api := &fakeAPI{}
	s := &GmailSender{api: api}
	require.NoError(t, s.Send(context.Background(), Message{To: "a@example.com", Subject: "s", HTML: "b"}))
	assert.Len(t, api.raw, 1)
	assert.Error(t, s.Send(context.Background(), Message{To: " "}))
}
