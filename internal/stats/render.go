package stats

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
)

type CountItem struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// sortedCounts orders by count descending, then key.
func sortedCounts(counts map[string]int64) []CountItem {
	items := make([]CountItem, 0, len(counts))
	for key, count := range counts {
		items = append(items, CountItem{Key: key, Count: count})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count == items[j].Count {
			return items[i].Key < items[j].Key
		}
		return items[i].Count > items[j].Count
	})
	return items
}

func windowLabel(s Summary) string {
	until := "now"
	if s.Until != nil {
		until = s.Until.Format(time.RFC3339)
	}
	return fmt.Sprintf("%s .. %s", s.Since.Format(time.RFC3339), until)
}

func RenderText(summary Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Window: %s\n", windowLabel(summary))
	fmt.Fprintf(&b, "Total: %d\n", summary.Total())
	fmt.Fprintf(&b, "Blocked: %d\n", summary.BlockedCount)
	fmt.Fprintf(&b, "Logged: %d\n", summary.LoggedCount)

	writeCounts(&b, "By threat type", sortedCounts(summary.ByThreatType))
	writeCounts(&b, "By severity", sortedCounts(summary.BySeverity))

	return b.String()
}

func RenderMarkdown(summary Summary) string {
	var b strings.Builder
	b.WriteString("# SafeGo WAF Report\n\n")
	fmt.Fprintf(&b, "Window: %s\n\n", windowLabel(summary))
	b.WriteString("## Totals\n\n")
	fmt.Fprintf(&b, "- Total: %d\n", summary.Total())
	fmt.Fprintf(&b, "- Blocked: %d\n", summary.BlockedCount)
	fmt.Fprintf(&b, "- Logged: %d\n\n", summary.LoggedCount)

	writeCountsMarkdown(&b, "By threat type", sortedCounts(summary.ByThreatType))
	writeCountsMarkdown(&b, "By severity", sortedCounts(summary.BySeverity))

	return b.String()
}

func RenderJSON(summary Summary) ([]byte, error) {
	return json.MarshalIndent(summary, "", "  ")
}

func writeCounts(b *strings.Builder, title string, items []CountItem) {
	if len(items) == 0 {
		fmt.Fprintf(b, "%s: none\n", title)
		return
	}
	fmt.Fprintf(b, "%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s: %d\n", item.Key, item.Count)
	}
}

func writeCountsMarkdown(b *strings.Builder, title string, items []CountItem) {
	b.WriteString("## ")
	b.WriteString(title)
	b.WriteString("\n\n")
	if len(items) == 0 {
		b.WriteString("- none\n\n")
		return
	}
	b.WriteString("| Key | Count |\n|---|---|\n")
	for _, item := range items {
		fmt.Fprintf(b, "| %s | %d |\n", item.Key, item.Count)
	}
	b.WriteString("\n")
}

func WriteOutput(path string, content []byte) error {
	if path == "" {
		_, err := io.Copy(os.Stdout, bytes.NewReader(content))
		return err
	}
	return os.WriteFile(path, content, 0o600)
}
