package llm

import (
	"context"
	"errors"
	"sync"
)

// ErrScriptExhausted is returned by Scripted once every reply has been used.
var ErrScriptExhausted = errors.New("scripted provider has no replies left")

// Reply is one scripted provider outcome.
type Reply struct {
	Text string
	Err  error
}

// Scripted is an in-memory Provider that replays canned replies in order.
// It records every request it receives.
type Scripted struct {
	mu       sync.Mutex
	replies  []Reply
	requests []Request
	Fallback *Reply
}

func NewScripted(replies ...Reply) *Scripted {
	return &Scripted{replies: replies}
}

// Texts is a shorthand for a script of successful replies.
func Texts(texts ...string) *Scripted {
	replies := make([]Reply, len(texts))
	for i, t := range texts {
		replies[i] = Reply{Text: t}
	}
	return NewScripted(replies...)
}

func (s *Scripted) Complete(ctx context.Context, req Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(s.replies) == 0 {
		if s.Fallback != nil {
			return s.Fallback.Text, s.Fallback.Err
		}
		return "", ErrScriptExhausted
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r.Text, r.Err
}

// Calls returns how many completions were requested.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Requests returns a copy of every request received so far.
func (s *Scripted) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}
