package responder

import (
	"context"
	"encoding/base64"
	"mime"
	"os"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a rendered reply.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type messageSender interface {
	send(ctx context.Context, raw string) error
}

type gmailAPI struct {
	svc *gmail.Service
}

func (a gmailAPI) send(ctx context.Context, raw string) error {
	_, err := a.svc.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
	return err
}

// GmailSender sends through users.messages.send with a stored OAuth token.
type GmailSender struct {
	api messageSender
}

func NewGmailSender(ctx context.Context, clientID, clientSecret, tokenFile string) (*GmailSender, error) {
	data, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, errors.Wrap(err, "read oauth token")
	}
	tok := &oauth2.Token{}
	if err := sonic.Unmarshal(data, tok); err != nil {
		return nil, errors.Wrap(err, "decode oauth token")
	}
	cfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmail.GmailSendScope},
	}
	svc, err := gmail.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, tok)))
	if err != nil {
		return nil, errors.Wrap(err, "gmail.NewService failed")
	}
	return &GmailSender{api: gmailAPI{svc: svc}}, nil
}

func (s *GmailSender) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("missing recipient")
	}
	raw, err := buildRaw(msg)
	if err != nil {
		return err
	}
	if err := s.api.send(ctx, raw); err != nil {
		return errors.Wrap(err, "gmail send failed")
	}
	return nil
}

// buildRaw renders an RFC 2822 HTML message, base64url encoded.
func buildRaw(msg Message) (string, error) {
	if strings.ContainsAny(msg.To, "\r\n") {
		return "", errors.New("invalid recipient")
	}
	subject := strings.NewReplacer("\r", " ", "\n", " ").Replace(msg.Subject)
	var b strings.Builder
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)
	return base64.URLEncoding.EncodeToString([]byte(b.String())), nil
}
