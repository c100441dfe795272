// Package generate produces assistant replies from a grounded prompt via a
// local text generation backend.
package generate

import (
	"context"
	"errors"

	"github.com/searchive/searchive/internal/models"
)

// ErrUnavailable indicates the generation backend could not produce a reply.
// There is no degraded fallback; callers surface the failure.
var ErrUnavailable = errors.New("generation backend unavailable")

// Request carries everything needed to build one prompt.
type Request struct {
	Instructions string
	Passages     []models.ContextPassage
	History      []*models.Message
	Question     string
}

// Generator produces an assistant reply for a request.
type Generator interface {
	Generate(ctx context.Context, req *Request) (string, error)
}

// DefaultInstructions is the standing system prompt: answer from the provided
// documents, say so when they don't cover the question.
const DefaultInstructions = "You are a helpful assistant that answers questions about the user's documents. " +
	"Base your answers on the document excerpts provided below. " +
	"If the excerpts do not contain the information needed, say so instead of guessing. " +
	"Answer in the same language as the question."
