package responder

import (
	"bytes"

	"github.com/microcosm-cc/bluemonday"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

const (
	wrapperOpen  = `<div style="font-family: Arial, sans-serif; font-size: 14px; line-height: 1.6; color: #333;">`
	wrapperClose = `</div>`
)

// Renderer turns markdown drafts into sanitized HTML.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

func (r *Renderer) Render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", errors.Wrap(err, "render markdown")
	}
	return wrapperOpen + "\n" + r.policy.Sanitize(buf.String()) + wrapperClose, nil
}
