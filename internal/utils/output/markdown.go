package output

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// SaveMarkdown writes a human-readable markdown report of the result
// document: a summary of the record counts found, then the full document
// in a fenced block.
func SaveMarkdown(v any, filepath string) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString("# Extraction report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", time.Now().Format(time.RFC1123)))

	if doc, ok := v.(map[string]any); ok {
		for _, key := range []string{"reviews", "questions", "trends"} {
			if items, ok := doc[key].([]any); ok {
				sb.WriteString(fmt.Sprintf("- %s: %d\n", key, len(items)))
			}
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Result document\n\n")
	sb.WriteString("```json\n")
	sb.Write(raw)
	sb.WriteString("\n```\n")

	return os.WriteFile(filepath, []byte(sb.String()), 0644)
}
