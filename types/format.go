package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
)

// MarkdownTable renders rows as a markdown table. Short rows are padded to the header width.
func MarkdownTable(header []string, rows [][]string) string {
	var buf strings.Builder
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	h := make([]any, len(header))
	for i, v := range header {
		h[i] = v
	}
	table.Header(h...)
	for _, row := range rows {
		cells := make([]any, len(header))
		for i := range cells {
			cells[i] = ""
			if i < len(row) {
				cells[i] = row[i]
			}
		}
		_ = table.Append(cells...)
	}
	_ = table.Render()
	return buf.String()
}

func formatEmailContextTable(ec *EmailContext) string {
	rows := [][]string{
		{"email_id", ec.EmailID},
	}
	if ec.Subject != "" {
		rows = append(rows, []string{"subject", ec.Subject})
	}
	if ec.SenderEmail != "" {
		rows = append(rows, []string{"sender", fmt.Sprintf("%s <%s>", ec.SenderName, ec.SenderEmail)})
	}
	if ec.RecipientEmail != "" {
		rows = append(rows, []string{"recipient", fmt.Sprintf("%s <%s>", ec.RecipientName, ec.RecipientEmail)})
	}
	if ec.SentDatetime != nil {
		rows = append(rows, []string{"sent", ec.SentDatetime.Format(time.RFC3339)})
	}
	if ec.ReplyToAddress != nil {
		rows = append(rows, []string{"reply_to", *ec.ReplyToAddress})
	}
	return MarkdownTable([]string{"Field", "Value"}, rows)
}

// FormatRoutingRequest builds the user message shared by the routing prompts.
func FormatRoutingRequest(input string, ec *EmailContext) string {
	sections := []string{
		fmt.Sprintf("# Current Date:\n%s", time.Now().Format(time.RFC3339)),
		fmt.Sprintf("# User Request:\n%s", input),
	}
	if ec == nil || ec.EmailID == "" {
		sections = append(sections, "# Email Context:\nnone")
	} else {
		state := "id only, not loaded"
		if ec.Loaded() {
			state = "loaded"
		}
		sections = append(sections, fmt.Sprintf("# Email Context (%s):\n%s", state, formatEmailContextTable(ec)))
	}
	return strings.Join(sections, "\n\n")
}
