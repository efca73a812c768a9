package llm

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/agrilab/agrichat/internal/models"
)

// snippetBudget caps how much of each retrieved document enters the prompt.
const snippetBudget = 2000

// BuildPrompt flattens system instructions, the thread's document list, the
// retrieval snippets, and the recent conversation into a single prompt string.
// The grounding reminder at the end appears only when any document context is
// present.
func BuildPrompt(history []models.Message, snippets []Snippet, threadDocs []*models.DocumentInfo) string {
	var parts []string

	parts = append(parts,
		"=== SYSTEM INSTRUCTIONS ===",
		"You are an AI assistant with access to uploaded documents. When users ask about documents, refer to the provided context below.",
		"Always acknowledge what documents are available and use them to answer questions.",
		"=== END SYSTEM INSTRUCTIONS ===\n",
	)

	if len(threadDocs) > 0 {
		parts = append(parts, "=== AVAILABLE DOCUMENTS IN THIS CONVERSATION ===")
		for i, doc := range threadDocs {
			parts = append(parts, fmt.Sprintf("%d. %s (Type: %s)", i+1, doc.Filename, doc.FileType))
		}
		parts = append(parts, "=== END DOCUMENT LIST ===\n")
	}

	if len(snippets) > 0 {
		parts = append(parts, "=== RELEVANT DOCUMENT CONTENT ===")
		for i, sn := range snippets {
			content := sn.Content
			if len(content) > snippetBudget {
				cut := snippetBudget
				for cut > 0 && !utf8.RuneStart(content[cut]) {
					cut--
				}
				content = content[:cut]
			}
			parts = append(parts,
				fmt.Sprintf("Document %d (Relevance: %.2f):", i+1, sn.Similarity),
				fmt.Sprintf("File: %s", sn.Filename),
				fmt.Sprintf("Content: %s...", content),
				"---",
			)
		}
		parts = append(parts, "=== END RELEVANT CONTENT ===\n")
	}

	for _, msg := range history {
		if msg.Content == "" {
			continue
		}
		prefix := "Assistant: "
		if msg.Role == models.RoleUser {
			prefix = "Human: "
		}
		parts = append(parts, prefix+msg.Content)
	}

	if len(threadDocs) > 0 || len(snippets) > 0 {
		parts = append(parts, "\n[IMPORTANT: Use the document information provided above to answer questions. Be specific about which documents you're referencing.]")
	}

	return strings.Join(parts, "\n")
}
