// Package cli formats command output for the storybook CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/petya0111/ai-agent-story-book/internal/models"
	"github.com/petya0111/ai-agent-story-book/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const rule = "─────────────────────────────────────────────────────────"

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("invalid output format %q (use text or json)", s)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteAnswer writes an answer with its citations.
func WriteAnswer(w io.Writer, resp *models.AskResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "\n%s\n\n", resp.Answer)
	if len(resp.Citations) > 0 {
		fmt.Fprintln(w, "Citations:")
		for i, c := range resp.Citations {
			fmt.Fprintf(w, "  [%d] %s: %s\n", i+1, c.ID, c.Preview)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "(provider: %s)\n", resp.Provider)
	return nil
}

// WritePassages writes hybrid passage search results.
func WritePassages(w io.Writer, resp *models.PassageResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "\nFound %d passages in %dms\n\n", resp.Total, resp.QueryTime)
	for _, p := range resp.Passages {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "Rank: %d | Score: %.4f (Keyword: %.4f, Semantic: %.4f)\n",
			p.Rank, p.Score, p.KeywordScore, p.SemanticScore)
		fmt.Fprintf(w, "ID: %s", p.ID)
		if start, ok := p.Metadata["page_start"]; ok {
			fmt.Fprintf(w, " (pp. %s-%s)", start, p.Metadata["page_end"])
		}
		fmt.Fprintf(w, "\n\n%s\n\n", TruncateWords(utils.Flatten(p.Text), 60))
	}
	return nil
}

// WriteIngest writes an ingestion report.
func WriteIngest(w io.Writer, resp *models.IngestResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "Ingested book %s: %d chunks (format %s, embeddings %s)\n",
		resp.BookID, resp.Chunks, resp.Format, resp.Mode)
	return nil
}

// WriteStatus writes the service status.
func WriteStatus(w io.Writer, resp *models.StatusResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "Books:        %d\n", resp.Books)
	fmt.Fprintf(w, "Chunks:       %d\n", resp.Chunks)
	fmt.Fprintf(w, "Vectors:      %d\n", resp.Vectors)
	fmt.Fprintf(w, "Keyword docs: %d\n", resp.KeywordDocs)
	fmt.Fprintf(w, "Embeddings:   %s\n", resp.EmbeddingProvider)
	fmt.Fprintf(w, "LLM:          %s\n", resp.LLMProvider)
	if resp.ActiveBook != nil {
		fmt.Fprintf(w, "Active book:  %s (%s)\n", resp.ActiveBook.Title, resp.ActiveBook.ID)
	} else {
		fmt.Fprintln(w, "Active book:  none")
	}
	fmt.Fprintf(w, "Disk usage:   %s\n", FormatBytes(resp.DiskUsageBytes))
	labels := make([]string, 0, len(resp.DiskUsage))
	for label := range resp.DiskUsage {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		fmt.Fprintf(w, "  %-14s %s\n", label+":", FormatBytes(resp.DiskUsage[label]))
	}
	for _, dir := range resp.WatchedDirs {
		fmt.Fprintf(w, "Watching:     %s\n", dir)
	}
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
