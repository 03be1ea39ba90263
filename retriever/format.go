package retriever

import (
	"fmt"
	"strings"

	"github.com/tbxark/mailagent/types"
)

func metaString(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return "N/A"
	}
	switch t := v.(type) {
	case string:
		if t == "" {
			return "N/A"
		}
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// FormatDocument renders one retrieved document. Documents of unknown kind render empty.
func FormatDocument(d types.VectorDocument) string {
	m := d.Metadata
	switch d.DocumentKind() {
	case types.KindEmail:
		return fmt.Sprintf("Email:\nUser: %s\nID: %s\nConversation ID: %s\nConversation Index: %s\nMessage Type: %s\nContent: %s\n",
			metaString(m, "user_email"), metaString(m, "id"), metaString(m, "conversation_id"),
			metaString(m, "conversation_index"), metaString(m, "message_type"), d.Text)
	case types.KindAttachment:
		return fmt.Sprintf("Attachment:\nUser: %s\nID: %s\nFile: %s\nType: %s\nContent: %s\n",
			metaString(m, "user_id"), metaString(m, "email_id"), metaString(m, "file_name"),
			metaString(m, "file_type"), d.Text)
	default:
		return ""
	}
}

// FormatDocuments joins formatted documents with a blank line, in input order.
func FormatDocuments(docs []types.ScoredDocument) string {
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		if s := FormatDocument(d.VectorDocument); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}
