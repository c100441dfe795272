package embedding

import (
	"context"
	"testing"

	"github.com/searchive/searchive/pkg/utils"
)

func TestMockEmbedderDeterministic(t *testing.T) {
	e := NewMockEmbedder(64)
	a, err := e.Embed(context.Background(), "machine learning")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	b, err := e.Embed(context.Background(), "machine learning")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if utils.CosineSimilarity(a, b) < 0.9999 {
		t.Error("same text should embed identically")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 dimensions, got %d", len(a))
	}
}

func TestMockEmbedderWordOverlap(t *testing.T) {
	e := NewMockEmbedder(128)
	ctx := context.Background()
	doc, _ := e.Embed(ctx, "machine learning neural network")
	related, _ := e.Embed(ctx, "machine learning")
	unrelated, _ := e.Embed(ctx, "banana bread recipe")

	if utils.CosineSimilarity(doc, related) <= utils.CosineSimilarity(doc, unrelated) {
		t.Error("texts sharing words should score higher similarity")
	}
}

func TestTokenizePadding(t *testing.T) {
	tok := &HashTokenizer{}
	inputIDs, attentionMask, tokenTypeIDs := tok.Tokenize("hello world", 8)
	if len(inputIDs) != 8 || len(attentionMask) != 8 || len(tokenTypeIDs) != 8 {
		t.Fatalf("expected length 8 outputs, got %d %d %d", len(inputIDs), len(attentionMask), len(tokenTypeIDs))
	}
	if inputIDs[0] != clsTokenID {
		t.Errorf("expected [CLS] at position 0, got %d", inputIDs[0])
	}
	// [CLS] hello world [SEP] are attended; the rest is padding.
	var attended int64
	for _, m := range attentionMask {
		attended += m
	}
	if attended != 4 {
		t.Errorf("expected 4 attended positions, got %d", attended)
	}
}
