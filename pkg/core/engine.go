// Package core holds the conversation engine and the canonical error type
// shared by every gateway component.
package core

import (
	"context"
	"errors"
	"strings"
)

// Completer is a single request/response language-completion capability:
// text in, text out. Implementations live under pkg/core/providers.
type Completer interface {
	// Name returns the backend identifier.
	Name() string

	// Complete sends one prompt and returns the reply text.
	Complete(ctx context.Context, prompt string) (string, error)
}

// Engine wraps exactly one round-trip to the completion backend per turn.
// It is stateless: no conversation history is attached, each turn stands
// alone, and a failure is returned to the caller rather than retried.
type Engine struct {
	completer Completer
}

// NewEngine creates an Engine over the given backend.
func NewEngine(completer Completer) *Engine {
	return &Engine{completer: completer}
}

// Complete runs one turn. The caller owns the context deadline; when it
// expires the in-flight backend request is abandoned and the deadline error
// comes back wrapped as a completion error.
func (e *Engine) Complete(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", NewMissingInputError("prompt")
	}

	reply, err := e.completer.Complete(ctx, prompt)
	if err != nil {
		if KindOf(err) == ErrCompletion {
			return "", err
		}
		return "", NewCompletionError(err)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", NewCompletionError(errors.New("backend returned an empty reply"))
	}
	return reply, nil
}
