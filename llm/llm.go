// Package llm builds the chat model, embedder and image captioner from config.
package llm

import (
	"context"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/pkg/errors"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/tbxark/mailagent/config"
)

// NewChatModel returns the OpenAI-compatible tool calling chat model.
func NewChatModel(ctx context.Context, cfg config.OpenAIConfig, timeout time.Duration) (model.ToolCallingChatModel, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is not configured")
	}
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
		Timeout: timeout,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create chat model")
	}
	return cm, nil
}

func newClient(cfg config.OpenAIConfig) *goopenai.Client {
	c := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		c.BaseURL = cfg.BaseURL
	}
	return goopenai.NewClientWithConfig(c)
}
