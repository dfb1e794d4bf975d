package outreach_test

import (
	"context"
	"sync"

	"github.com/trytheo/outreach/internal/llm"
)

// stubGen is the test double for the text-generation capability. It records
// every prompt so tests can assert on what the pipeline actually sent.
type stubGen struct {
	mu      sync.Mutex
	prompts []string
	fn      func(req llm.Request) (llm.Response, error)
}

func (s *stubGen) GenerateText(_ context.Context, req llm.Request) (llm.Response, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, req.Prompt)
	s.mu.Unlock()
	return s.fn(req)
}

func (s *stubGen) recordedPrompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.prompts))
	copy(out, s.prompts)
	return out
}

func textResponse(text string) func(llm.Request) (llm.Response, error) {
	return func(llm.Request) (llm.Response, error) {
		return llm.Response{Text: text}, nil
	}
}
