package llm

import (
	"context"
	"errors"
	"testing"
)

type fakeClient struct {
	reply string
	err   error
}

func (f *fakeClient) Complete(ctx context.Context, prompt string) (string, error) {
	return f.CompleteWithSystem(ctx, "", prompt)
}

func (f *fakeClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f.reply, f.err
}

func TestExtractJSONBare(t *testing.T) {
	got := ExtractJSON(`{"sql": "select 1"}`)
	if got != `{"sql": "select 1"}` {
		t.Errorf("ExtractJSON = %q", got)
	}
}

func TestExtractJSONFenced(t *testing.T) {
	reply := "```json\n{\"answer\": \"yes\"}\n```"
	if got := ExtractJSON(reply); got != `{"answer": "yes"}` {
		t.Errorf("ExtractJSON = %q", got)
	}
}

func TestExtractJSONSurroundingProse(t *testing.T) {
	reply := `Sure, here you go: {"a": {"b": 1}} hope that helps`
	if got := ExtractJSON(reply); got != `{"a": {"b": 1}}` {
		t.Errorf("ExtractJSON = %q", got)
	}
}

func TestExtractJSONBracesInStrings(t *testing.T) {
	reply := `{"text": "closing } brace and \"quote\""}`
	if got := ExtractJSON(reply); got != reply {
		t.Errorf("ExtractJSON = %q", got)
	}
}

func TestExtractJSONNone(t *testing.T) {
	if got := ExtractJSON("no json here"); got != "" {
		t.Errorf("ExtractJSON = %q, want empty", got)
	}
}

func TestCompleteJSONDecodes(t *testing.T) {
	var out struct {
		SQL string `json:"sql"`
	}
	c := &fakeClient{reply: "```json\n{\"sql\": \"SELECT 1\"}\n```"}
	if err := CompleteJSON(context.Background(), c, "sys", "user", &out); err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if out.SQL != "SELECT 1" {
		t.Errorf("sql = %q", out.SQL)
	}
}

func TestCompleteJSONNilClient(t *testing.T) {
	var out map[string]any
	if err := CompleteJSON(context.Background(), nil, "", "", &out); err == nil {
		t.Error("nil client should error")
	}
}

func TestCompleteJSONProviderError(t *testing.T) {
	var out map[string]any
	c := &fakeClient{err: errors.New("quota")}
	if err := CompleteJSON(context.Background(), c, "", "", &out); err == nil {
		t.Error("provider error should propagate to the caller for degrading")
	}
}

func TestCompleteJSONMalformed(t *testing.T) {
	var out map[string]any
	c := &fakeClient{reply: "{not json"}
	if err := CompleteJSON(context.Background(), c, "", "", &out); err == nil {
		t.Error("malformed reply should error")
	}
}
