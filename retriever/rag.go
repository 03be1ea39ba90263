package retriever

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/tbxark/mailagent/types"
)

// NoRelevantInformation is returned when nothing in the mailbox matches the question.
const NoRelevantInformation = "I couldn't find any relevant information in your emails or attachments for this question."

const ragSystemPrompt = `You are an intelligent email assistant with access to emails and their attachments.
Analyze the provided context carefully and provide a helpful, well-structured response.

Guidelines:
1. Answer only from the context. Never use outside knowledge.
2. If dates are mentioned in emails, include them in your response.
3. If the question is about specific senders, highlight their contributions.
4. If multiple emails discuss the same topic, synthesize the information.
5. If attachments are relevant, explain their connection to the question.
6. If information is missing or unclear, state explicitly what is not available.
7. If the context is empty or not relevant to the question, reply exactly: "` + NoRelevantInformation + `"`

type RAG struct {
	retriever *Retriever
	chatModel model.BaseChatModel
}

func NewRAG(retriever *Retriever, chatModel model.BaseChatModel) *RAG {
	return &RAG{retriever: retriever, chatModel: chatModel}
}

func buildRAGMessages(contextText, question string) []*schema.Message {
	return []*schema.Message{
		schema.SystemMessage(ragSystemPrompt),
		schema.UserMessage("Context:\n" + contextText + "\n\nQuestion:\n" + question),
	}
}

// Search retrieves context and answers the query. Failures are reported in the result.
func (r *RAG) Search(ctx context.Context, userEmail, query string) types.RagResult {
	result := types.RagResult{Query: query}
	answer, err := r.answer(ctx, userEmail, query)
	if err != nil {
		log.Error().Err(err).Str("user", userEmail).Msg("rag search failed")
		result.Status = types.RagStatusError
		result.Error = err.Error()
		return result
	}
	result.Status = types.RagStatusSuccess
	result.Response = answer
	return result
}

func (r *RAG) answer(ctx context.Context, userEmail, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", errors.New("empty query")
	}
	contextText, err := r.retriever.Retrieve(ctx, userEmail, query)
	if err != nil {
		return "", errors.Wrap(err, "retrieve context")
	}
	if strings.TrimSpace(contextText) == "" {
		return NoRelevantInformation, nil
	}
	resp, err := r.chatModel.Generate(ctx, buildRAGMessages(contextText, query), model.WithTemperature(0))
	if err != nil {
		return "", errors.Wrap(err, "generate answer")
	}
	return strings.TrimSpace(resp.Content), nil
}
