package oracle

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"

	"github.com/tbxark/voiceform/types"
)

const maskedValue = "********"

func formatFieldsSection(fields []types.FieldDefinition) string {
	if len(fields) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("# Form fields:\n")
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Name", "Kind", "Label", "Required", "Options", "Description")
	for _, f := range fields {
		_ = table.Append(f.Name, string(f.Kind), f.Label,
			strconv.FormatBool(f.Required), strings.Join(f.Options, ", "), f.Description)
	}
	_ = table.Render()
	return buf.String()
}

func formatStatesSection(req *Request) string {
	if len(req.States) == 0 {
		return ""
	}
	masked := make(map[string]bool, len(req.Fields))
	for _, f := range req.Fields {
		masked[f.Name] = f.Kind == types.KindPassword
	}
	var buf strings.Builder
	buf.WriteString("# Field states:\n")
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Field", "Status", "Value", "Attempts")
	for _, f := range req.Fields {
		st, found := req.States[f.Name]
		if !found {
			continue
		}
		value := ""
		if st.Value != nil {
			value = *st.Value
			if masked[f.Name] {
				value = maskedValue
			}
		}
		_ = table.Append(f.Name, string(st.Status), value, strconv.Itoa(st.Attempts))
	}
	_ = table.Render()
	return buf.String()
}

func formatHistorySection(history []types.Message) string {
	if len(history) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("# Recent conversation:\n")
	for _, m := range history {
		fmt.Fprintf(&buf, "- %s: %s\n", m.Role, m.Content)
	}
	return buf.String()
}

// FormatRequest renders the context bundle as the markdown document the
// oracle reads.
func FormatRequest(req *Request) string {
	sections := []string{
		fmt.Sprintf("# Current Date:\n%s", time.Now().Format(time.RFC3339)),
	}
	if s := formatFieldsSection(req.Fields); s != "" {
		sections = append(sections, s)
	}
	if s := formatStatesSection(req); s != "" {
		sections = append(sections, s)
	}
	if req.CurrentField != "" {
		sections = append(sections, fmt.Sprintf("# Current field:\n%s", req.CurrentField))
	}
	sections = append(sections, fmt.Sprintf("# Completion:\n%d of %d required fields collected (%.0f%% overall)",
		req.Completion.CompletedRequired, req.Completion.TotalRequired, req.Completion.Percentage))
	if s := formatHistorySection(req.History); s != "" {
		sections = append(sections, s)
	}
	if req.UserIntent != "" {
		sections = append(sections, fmt.Sprintf("# Detected intent:\n%s", req.UserIntent))
	}
	sections = append(sections, fmt.Sprintf("# User said:\n%s", req.UserText))
	return strings.Join(sections, "\n\n")
}
