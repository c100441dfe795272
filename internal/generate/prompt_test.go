package generate

import (
	"strings"
	"testing"

	"github.com/searchive/searchive/internal/models"
)

func TestBuildPromptOrder(t *testing.T) {
	req := &Request{
		Passages: []models.ContextPassage{
			{DocumentID: "doc-1", Filename: "budget.txt", Excerpt: "the budget grew"},
			{DocumentID: "doc-2", Filename: "plan.txt", Excerpt: "next year's plan"},
		},
		History: []*models.Message{
			{Role: models.RoleUser, Content: "earlier question"},
			{Role: models.RoleAssistant, Content: "earlier answer"},
		},
		Question: "what changed?",
	}
	prompt := BuildPrompt(req)

	positions := []int{
		strings.Index(prompt, DefaultInstructions),
		strings.Index(prompt, "Document 1 (budget.txt)"),
		strings.Index(prompt, "Document 2 (plan.txt)"),
		strings.Index(prompt, "User: earlier question"),
		strings.Index(prompt, "Assistant: earlier answer"),
		strings.Index(prompt, "User: what changed?"),
	}
	for i, pos := range positions {
		if pos < 0 {
			t.Fatalf("section %d missing from prompt:\n%s", i, prompt)
		}
		if i > 0 && pos <= positions[i-1] {
			t.Fatalf("section %d out of order (at %d, previous at %d)", i, pos, positions[i-1])
		}
	}
	if !strings.HasSuffix(prompt, "Assistant:") {
		t.Error("prompt should end with the assistant cue")
	}
}

func TestBuildPromptDeterministic(t *testing.T) {
	req := &Request{Question: "hello"}
	if BuildPrompt(req) != BuildPrompt(req) {
		t.Error("same request should produce identical prompts")
	}
}

func TestBuildPromptNoPassages(t *testing.T) {
	prompt := BuildPrompt(&Request{Question: "anything here?"})
	if !strings.Contains(prompt, "No relevant document content was found") {
		t.Errorf("prompt should state that no content was found:\n%s", prompt)
	}
	if strings.Contains(prompt, "Document excerpts") {
		t.Error("prompt should not carry an empty excerpts section")
	}
}

func TestBuildPromptCustomInstructions(t *testing.T) {
	prompt := BuildPrompt(&Request{Instructions: "Be terse.", Question: "hi"})
	if !strings.HasPrefix(prompt, "Be terse.") {
		t.Errorf("custom instructions should lead the prompt:\n%s", prompt)
	}
	if strings.Contains(prompt, DefaultInstructions) {
		t.Error("default instructions should be replaced, not appended")
	}
}
