package pipeline

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// ReportMarkdown renders a batch summary as Markdown.
func ReportMarkdown(outcomes []Outcome) string {
	var sb strings.Builder

	passed := 0
	for _, o := range outcomes {
		if o.Success {
			passed++
		}
	}

	sb.WriteString("# Batch report\n\n")
	fmt.Fprintf(&sb, "%d of %d jobs succeeded.\n\n", passed, len(outcomes))

	sb.WriteString("| Job | Status | In | Out | Time |\n")
	sb.WriteString("|-----|--------|----:|----:|-----:|\n")
	for _, o := range outcomes {
		status := "ok"
		if !o.Success {
			status = "FAILED"
		}
		fmt.Fprintf(&sb, "| %s | %s | %d | %d | %s |\n",
			o.Job, status, o.OriginalSize, o.TransformedSize, o.Duration.Round(time.Microsecond))
	}

	failures := false
	for _, o := range outcomes {
		if o.Success {
			continue
		}
		if !failures {
			sb.WriteString("\n## Failures\n\n")
			failures = true
		}
		fmt.Fprintf(&sb, "- **%s**: %s\n", o.Job, o.Err.String())
	}

	return sb.String()
}

// ReportHTML renders a batch summary as a standalone HTML fragment.
func ReportHTML(outcomes []Outcome) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	var buf bytes.Buffer
	if err := md.Convert([]byte(ReportMarkdown(outcomes)), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
