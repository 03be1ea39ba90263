package llm

import (
	"context"
	"encoding/base64"
	"net/http"
	"os"
	"strings"

	"github.com/pkg/errors"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/tbxark/mailagent/config"
)

const captionPrompt = "Describe this image in detail, including any text, charts, tables or diagrams it contains."

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error)
}

// Captioner describes images with a vision capable model.
type Captioner struct {
	client chatClient
	model  string
}

func NewCaptioner(cfg config.OpenAIConfig) *Captioner {
	m := cfg.VisionModel
	if m == "" {
		m = cfg.Model
	}
	return &Captioner{client: newClient(cfg), model: m}
}

// Caption reads the image at path and returns its description.
func (c *Captioner) Caption(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(err, "read image")
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", errors.Errorf("not an image: %s", mime)
	}
	dataURL := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: 500,
		Messages: []goopenai.ChatCompletionMessage{{
			Role: goopenai.ChatMessageRoleUser,
			MultiContent: []goopenai.ChatMessagePart{
				{Type: goopenai.ChatMessagePartTypeText, Text: captionPrompt},
				{Type: goopenai.ChatMessagePartTypeImageURL, ImageURL: &goopenai.ChatMessageImageURL{
					URL:    dataURL,
					Detail: goopenai.ImageURLDetailAuto,
				}},
			},
		}},
	})
	if err != nil {
		return "", errors.Wrap(err, "caption image")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("caption image: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
