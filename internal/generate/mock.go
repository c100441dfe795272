package generate

import (
	"context"
	"fmt"
)

// MockGenerator is a canned-reply generator for tests. When Err is set,
// Generate fails with it instead.
type MockGenerator struct {
	Reply string
	Err   error
	// LastRequest records the most recent request for assertions.
	LastRequest *Request
}

// Generate returns the canned reply, defaulting to a summary of the request.
func (g *MockGenerator) Generate(ctx context.Context, req *Request) (string, error) {
	g.LastRequest = req
	if g.Err != nil {
		return "", g.Err
	}
	if g.Reply != "" {
		return g.Reply, nil
	}
	return fmt.Sprintf("reply to %q with %d passages", req.Question, len(req.Passages)), nil
}
