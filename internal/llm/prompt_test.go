package llm

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/agrilab/agrichat/internal/models"
)

func TestBuildPrompt_fullContext(t *testing.T) {
	history := []models.Message{
		{Role: models.RoleUser, Content: "what does the report say about rainfall?"},
		{Role: models.RoleAssistant, Content: "it covers monsoon season patterns"},
	}
	snippets := []Snippet{
		{Filename: "rain.txt", Content: "rainfall patterns in monsoon season", Similarity: 0.42},
	}
	docs := []*models.DocumentInfo{
		{Filename: "rain.txt", FileType: models.FileTypeText},
	}

	prompt := BuildPrompt(history, snippets, docs)

	for _, want := range []string{
		"=== SYSTEM INSTRUCTIONS ===",
		"1. rain.txt (Type: text)",
		"Document 1 (Relevance: 0.42):",
		"File: rain.txt",
		"Human: what does the report say about rainfall?",
		"Assistant: it covers monsoon season patterns",
		"[IMPORTANT:",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildPrompt_noDocuments(t *testing.T) {
	history := []models.Message{{Role: models.RoleUser, Content: "hello"}}
	prompt := BuildPrompt(history, nil, nil)

	if strings.Contains(prompt, "AVAILABLE DOCUMENTS") {
		t.Error("document list should be absent without thread documents")
	}
	if strings.Contains(prompt, "RELEVANT DOCUMENT CONTENT") {
		t.Error("snippet block should be absent without search hits")
	}
	if strings.Contains(prompt, "[IMPORTANT:") {
		t.Error("grounding reminder should be absent without any document context")
	}
	if !strings.Contains(prompt, "Human: hello") {
		t.Error("history turn missing")
	}
}

func TestBuildPrompt_snippetBudget(t *testing.T) {
	long := strings.Repeat("x", snippetBudget+500)
	prompt := BuildPrompt(nil, []Snippet{{Filename: "big.txt", Content: long, Similarity: 0.9}}, nil)

	if strings.Contains(prompt, strings.Repeat("x", snippetBudget+1)) {
		t.Error("snippet content not capped")
	}
	if !strings.Contains(prompt, strings.Repeat("x", snippetBudget)+"...") {
		t.Error("capped snippet should keep its ellipsis")
	}
}

func TestBuildPrompt_snippetBudgetRuneBoundary(t *testing.T) {
	// A two-byte rune straddles the budget edge; the cut must back up to the
	// rune boundary instead of emitting a split sequence.
	content := strings.Repeat("a", snippetBudget-1) + "é" + "tail"
	prompt := BuildPrompt(nil, []Snippet{{Filename: "notes.txt", Content: content, Similarity: 0.5}}, nil)

	if !utf8.ValidString(prompt) {
		t.Fatal("prompt contains a split rune")
	}
	if !strings.Contains(prompt, strings.Repeat("a", snippetBudget-1)+"...") {
		t.Error("capped snippet should end at the rune boundary")
	}
}

func TestBuildPrompt_skipsEmptyTurns(t *testing.T) {
	history := []models.Message{
		{Role: models.RoleUser, Content: ""},
		{Role: models.RoleUser, Content: "real question"},
	}
	prompt := BuildPrompt(history, nil, nil)
	if strings.Contains(prompt, "Human: \n") {
		t.Error("empty turn leaked into the prompt")
	}
	if !strings.Contains(prompt, "Human: real question") {
		t.Error("non-empty turn missing")
	}
}
