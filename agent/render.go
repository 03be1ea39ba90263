package agent

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/tbxark/mailagent/types"
)

// FailureMessage is shown to callers when a turn errors.
const FailureMessage = "The assistant could not complete this request."

const noActionMessage = "I couldn't determine an action for that request."

// RenderResult formats a turn result as markdown for people.
func RenderResult(r *types.Result) string {
	if r == nil {
		return FailureMessage
	}
	var sections []string
	if r.RagResponse != nil {
		sections = append(sections, *r.RagResponse)
	} else if r.RagStatus == types.RagStatusError {
		sections = append(sections, "Search failed. Make sure a user email is set.")
	}
	if s := r.ConversationSummary; s != nil {
		sections = append(sections, fmt.Sprintf("# %s\n\n%s", s.Subject, s.Summary))
	}
	if o := r.ResponseOutput; o != nil {
		draft := fmt.Sprintf("**To:** %s\n\n**Subject:** %s\n\n%s", o.SenderEmail, o.Subject, o.PlainText)
		if o.SendError != "" {
			draft += "\n\n_Sending failed: " + o.SendError + "_"
		}
		sections = append(sections, draft)
	}
	if len(sections) == 0 {
		if last := lastToolNote(r); last != "" {
			return last
		}
		return noActionMessage
	}
	return strings.Join(sections, "\n\n---\n\n")
}

func lastToolNote(r *types.Result) string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		m := r.Messages[i]
		if m == nil {
			continue
		}
		if m.Role == schema.User {
			return ""
		}
		if m.Role == schema.Tool && m.Content != "" {
			return m.Content
		}
	}
	return ""
}
