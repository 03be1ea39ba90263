package intent

import (
	"context"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/schema"
)

// LocalRecognizer picks a tool from keywords without calling a model.
type LocalRecognizer struct {
	SummaryKeywords []string
	ReplyKeywords   []string
}

func NewLocalRecognizer() *LocalRecognizer {
	return &LocalRecognizer{
		SummaryKeywords: []string{"summarize", "summarise", "summary", "recap", "tl;dr"},
		ReplyKeywords:   []string{"reply", "respond", "response", "answer this", "write back", "draft"},
	}
}

func (p *LocalRecognizer) Recognize(ctx context.Context, req *Request) (*schema.Message, error) {
	normalized := strings.ToLower(strings.TrimSpace(req.Input))
	id := req.EmailContext.ID()
	loaded := req.EmailContext.Loaded()

	candidates := make([]Call, 0, 2)
	switch {
	case id != "" && !loaded:
		candidates = append(candidates, GetEmailContextCall{Args: GetEmailContextArgs{EmailID: id}})
	case id != "" && containsAny(normalized, p.SummaryKeywords):
		candidates = append(candidates, SummarizeEmailThreadCall{Args: SummarizeEmailThreadArgs{EmailID: id}})
	case id != "" && containsAny(normalized, p.ReplyKeywords):
		candidates = append(candidates, RespondToEmailCall{Args: RespondToEmailArgs{Instruction: req.Input}})
	}
	candidates = append(candidates, GeneratePromptForRAGCall{})

	for _, c := range candidates {
		if !req.Stage.Allows(c.Intent()) {
			continue
		}
		args, err := encodeArgs(c)
		if err != nil {
			return nil, err
		}
		return NewCallMessage(c.Intent(), args), nil
	}
	return schema.AssistantMessage("", nil), nil
}

func encodeArgs(c Call) (string, error) {
	switch v := c.(type) {
	case GetEmailContextCall:
		return sonic.MarshalString(v.Args)
	case GeneratePromptForRAGCall:
		return sonic.MarshalString(v.Args)
	case SummarizeEmailThreadCall:
		return sonic.MarshalString(v.Args)
	case RespondToEmailCall:
		return sonic.MarshalString(v.Args)
	}
	return "{}", nil
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

type FailbackRecognizer struct {
	recognizers []Recognizer
}

func NewFailbackRecognizer(recognizers ...Recognizer) *FailbackRecognizer {
	return &FailbackRecognizer{recognizers: recognizers}
}

func (p *FailbackRecognizer) Recognize(ctx context.Context, req *Request) (*schema.Message, error) {
	var lastErr error
	for _, r := range p.recognizers {
		msg, err := r.Recognize(ctx, req)
		if err == nil {
			return msg, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
