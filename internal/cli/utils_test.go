package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/petya0111/ai-agent-story-book/internal/models"
)

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWriteAnswer_JSON(t *testing.T) {
	resp := &models.AskResponse{
		Answer:    "Aric was born in the north.",
		Citations: []models.Citation{{ID: "pdfchunk-0", Preview: "Aric was born (pp. 1-2)"}},
		Provider:  "local",
	}
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, resp, OutputJSON); err != nil {
		t.Fatalf("WriteAnswer(json): %v", err)
	}
	var decoded models.AskResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Answer != resp.Answer || len(decoded.Citations) != 1 || decoded.Citations[0].ID != "pdfchunk-0" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteAnswer_Text(t *testing.T) {
	resp := &models.AskResponse{
		Answer:    "Aric was born in the north.",
		Citations: []models.Citation{{ID: "chunk-0", Preview: "Aric was born"}},
		Provider:  "openai",
	}
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Aric was born in the north.", "[1] chunk-0: Aric was born", "(provider: openai)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWritePassages_Text(t *testing.T) {
	resp := &models.PassageResponse{
		Query:     "dragon",
		Total:     1,
		QueryTime: 3,
		Passages: []*models.Passage{{
			ID:       "pdfchunk-2",
			Text:     "The dragon\nslept.",
			Score:    0.9,
			Rank:     1,
			Metadata: map[string]string{"page_start": "5", "page_end": "6"},
		}},
	}
	var buf bytes.Buffer
	if err := WritePassages(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Found 1 passages in 3ms", "Rank: 1", "ID: pdfchunk-2 (pp. 5-6)", "The dragon slept."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWritePassages_JSON_empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePassages(&buf, &models.PassageResponse{Query: "q", Passages: []*models.Passage{}}, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"passages": []`) {
		t.Errorf("expected empty passages array: %s", buf.String())
	}
}

func TestWriteIngest(t *testing.T) {
	var buf bytes.Buffer
	resp := &models.IngestResponse{BookID: "book-1", Chunks: 12, Mode: "local", Format: "pdf"}
	if err := WriteIngest(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "book-1: 12 chunks (format pdf, embeddings local)") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestWriteStatus_Text(t *testing.T) {
	resp := &models.StatusResponse{
		Books:             1,
		Chunks:            12,
		Vectors:           12,
		EmbeddingProvider: "local",
		LLMProvider:       "local",
		ActiveBook:        &models.Book{ID: "book-1", Title: "Saga"},
		DiskUsageBytes:    2048,
		DiskUsage:         map[string]int64{"database": 2048},
	}
	var buf bytes.Buffer
	if err := WriteStatus(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Books:        1", "Active book:  Saga (book-1)", "Disk usage:   2.0 KiB", "database:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.n); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestTruncateWords(t *testing.T) {
	if got := TruncateWords("a b c d", 2); got != "a b..." {
		t.Errorf("TruncateWords = %q", got)
	}
	if got := TruncateWords("a b", 5); got != "a b" {
		t.Errorf("TruncateWords = %q", got)
	}
}
