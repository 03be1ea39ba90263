package retriever

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/eino-contrib/jsonschema"
	"github.com/rs/zerolog/log"

	"github.com/tbxark/mailagent/structured"
	"github.com/tbxark/mailagent/types"
)

const analyzeQueryTool = "analyze_query"

const classifierSystemPrompt = `Analyze the following email search query and determine its characteristics.
Call the analyze_query tool with:
1. primary_focus: "emails", "attachments" or "both"
2. time_sensitive: does the query imply time relevance?
3. sender_specific: is the query about specific senders?
4. requires_summarization: does the answer need summarization?
5. search_priority: "recent", "relevance" or "all"

The arguments must follow this JSON schema:
%s`

// Classifier decides which collection a query is mostly about.
type Classifier struct {
	chain *structured.Chain[string, types.QueryAnalysis]
}

func NewClassifier(chatModel model.ToolCallingChatModel) (*Classifier, error) {
	schemaJSON, err := queryAnalysisSchema()
	if err != nil {
		return nil, err
	}
	chain, err := structured.NewChain[string, types.QueryAnalysis](
		chatModel,
		func(ctx context.Context, query string) ([]*schema.Message, error) {
			return []*schema.Message{
				schema.SystemMessage(fmt.Sprintf(classifierSystemPrompt, schemaJSON)),
				schema.UserMessage("Query: " + query),
			}, nil
		},
		analyzeQueryTool,
		"Record the characteristics of an email search query",
		structured.WithModelOptions(model.WithTemperature(0)),
	)
	if err != nil {
		return nil, err
	}
	return &Classifier{chain: chain}, nil
}

func queryAnalysisSchema() (string, error) {
	s := jsonschema.Reflect(&types.QueryAnalysis{})
	s.Title = "QueryAnalysis"
	raw, err := sonic.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON schema: %w", err)
	}
	return string(raw), nil
}

// Classify never fails: any model or decode error yields the default analysis.
func (c *Classifier) Classify(ctx context.Context, query string) types.QueryAnalysis {
	out, err := c.chain.Invoke(ctx, query)
	if err != nil {
		log.Warn().Err(err).Msg("query analysis failed, using defaults")
		return types.DefaultQueryAnalysis()
	}
	if !validAnalysis(out) {
		log.Warn().Str("primary_focus", string(out.PrimaryFocus)).
			Str("search_priority", string(out.SearchPriority)).
			Msg("query analysis out of range, using defaults")
		return types.DefaultQueryAnalysis()
	}
	return *out
}

func validAnalysis(a *types.QueryAnalysis) bool {
	switch a.PrimaryFocus {
	case types.FocusEmails, types.FocusAttachments, types.FocusBoth:
	default:
		return false
	}
	switch a.SearchPriority {
	case types.PriorityRecent, types.PriorityRelevance, types.PriorityAll:
	default:
		return false
	}
	return true
}
