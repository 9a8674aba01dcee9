package providers

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyCompletion is returned when the model answers with only whitespace.
var ErrEmptyCompletion = errors.New("empty completion")

// Complete runs a single system+user exchange and returns the trimmed text.
func Complete(ctx context.Context, p Provider, system, user string, opts map[string]interface{}) (string, error) {
	msgs := make([]Message, 0, 2)
	if system != "" {
		msgs = append(msgs, Message{Role: "system", Content: system})
	}
	msgs = append(msgs, Message{Role: "user", Content: user})

	resp, err := p.Chat(ctx, ChatRequest{Messages: msgs, Options: opts})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
