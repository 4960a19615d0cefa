package codec

import (
	"context"
	"sync"
)

// #region scripted
// Scripted replays canned answers in order, repeating the last one once the
// script runs out. It backs offline runs and tests.
type Scripted struct {
	mu        sync.Mutex
	responses []string
	next      int
	prompts   []string
}

// NewScripted returns a backend that answers with responses in order.
func NewScripted(responses ...string) *Scripted {
	return &Scripted{responses: responses}
}

// Generate returns the next scripted answer.
func (s *Scripted) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	if len(s.responses) == 0 {
		return "", nil
	}
	i := min(s.next, len(s.responses)-1)
	s.next++
	return s.responses[i], nil
}

// Prompts returns every prompt received so far.
func (s *Scripted) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

// #endregion scripted
