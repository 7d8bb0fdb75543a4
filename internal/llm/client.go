// Package llm provides the generative-completion capability consumed by the
// answer synthesizer and the SQL generator. Every call can fail (quota,
// network, auth); callers must degrade, never propagate provider errors to
// users.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Client is the completion capability.
type Client interface {
	// Complete sends a prompt and returns the completion
	Complete(ctx context.Context, prompt string) (string, error)

	// CompleteWithSystem sends a prompt with a system message
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// CompleteJSON runs a completion and decodes the reply into out. The reply
// may be bare JSON or wrapped in a markdown fence; anything that does not
// decode is an error for the caller to degrade on.
func CompleteJSON(ctx context.Context, c Client, systemPrompt, userPrompt string, out interface{}) error {
	if c == nil {
		return fmt.Errorf("completion client not configured")
	}
	reply, err := c.CompleteWithSystem(ctx, systemPrompt, userPrompt)
	if err != nil {
		return err
	}
	payload := ExtractJSON(reply)
	if payload == "" {
		return fmt.Errorf("no JSON object in completion: %q", truncate(reply, 120))
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("failed to decode completion JSON: %w", err)
	}
	return nil
}

// ExtractJSON pulls the first JSON object out of a completion, stripping
// markdown fences when present. Returns "" if no object is found.
func ExtractJSON(s string) string {
	s = strings.TrimSpace(s)

	// Strip a ```json ... ``` fence if the reply is wrapped in one.
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}

	// Scan for the matching close brace, respecting strings.
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
