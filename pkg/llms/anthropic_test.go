package llms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sift-dev/sift/pkg/config"
)

func newTestAnthropic(t *testing.T, handler http.HandlerFunc) (*AnthropicProvider, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)

	cfg := &config.LLMProviderConfig{
		Type:   "anthropic",
		Model:  "claude-sonnet-4-20250514",
		APIKey: "test-key",
		Host:   server.URL,
	}
	cfg.SetDefaults()
	cfg.Host = server.URL

	provider, err := NewAnthropicProvider(cfg)
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	return provider, server
}

func TestAnthropicGenerateText(t *testing.T) {
	provider, server := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("expected api key header, got %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got == "" {
			t.Error("missing anthropic-version header")
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":   "msg_1",
			"type": "message",
			"role": "assistant",
			"content": []map[string]any{
				{"type": "text", "text": "hello there"},
			},
			"stop_reason": "end_turn",
			"usage":       map[string]int{"input_tokens": 10, "output_tokens": 5},
		})
	})
	defer server.Close()

	resp, err := provider.Generate(context.Background(), []Message{
		{Role: "user", Content: "hi"},
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Text != "hello there" {
		t.Errorf("expected text %q, got %q", "hello there", resp.Text)
	}
	if resp.StopReason != "end_turn" {
		t.Errorf("expected stop reason end_turn, got %q", resp.StopReason)
	}
	if resp.TokensUsed != 15 {
		t.Errorf("expected 15 tokens, got %d", resp.TokensUsed)
	}
	if len(resp.ToolCalls) != 0 {
		t.Errorf("expected no tool calls, got %d", len(resp.ToolCalls))
	}
}

func TestAnthropicGenerateToolUse(t *testing.T) {
	provider, server := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if len(req.Tools) != 1 || req.Tools[0].Name != "getPageContent" {
			t.Errorf("expected getPageContent tool in request, got %+v", req.Tools)
		}
		if req.System == "" {
			t.Error("expected system prompt in dedicated field")
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":   "msg_2",
			"type": "message",
			"role": "assistant",
			"content": []map[string]any{
				{"type": "text", "text": "looking it up"},
				{
					"type":  "tool_use",
					"id":    "toolu_1",
					"name":  "getPageContent",
					"input": map[string]any{"url": "https://example.com"},
				},
			},
			"stop_reason": "tool_use",
			"usage":       map[string]int{"input_tokens": 20, "output_tokens": 8},
		})
	})
	defer server.Close()

	resp, err := provider.Generate(context.Background(), []Message{
		{Role: "system", Content: "you are a research agent"},
		{Role: "user", Content: "fetch the page"},
	}, []ToolDefinition{
		{
			Name:        "getPageContent",
			Description: "Load a web page",
			Parameters:  map[string]any{"type": "object"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(resp.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(resp.ToolCalls))
	}
	call := resp.ToolCalls[0]
	if call.ID != "toolu_1" || call.Name != "getPageContent" {
		t.Errorf("unexpected tool call: %+v", call)
	}
	if call.Arguments["url"] != "https://example.com" {
		t.Errorf("unexpected arguments: %v", call.Arguments)
	}
	if resp.StopReason != "tool_use" {
		t.Errorf("expected stop reason tool_use, got %q", resp.StopReason)
	}
}

func TestAnthropicToolResultsBecomeUserMessages(t *testing.T) {
	provider, server := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}

		// assistant tool_use turn + tool result as user turn
		if len(req.Messages) != 3 {
			t.Fatalf("expected 3 messages, got %d", len(req.Messages))
		}
		if req.Messages[2].Role != "user" {
			t.Errorf("expected tool result as user message, got role %q", req.Messages[2].Role)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"content":     []map[string]any{{"type": "text", "text": "done"}},
			"stop_reason": "end_turn",
			"usage":       map[string]int{"input_tokens": 5, "output_tokens": 2},
		})
	})
	defer server.Close()

	_, err := provider.Generate(context.Background(), []Message{
		{Role: "user", Content: "fetch it"},
		{Role: "assistant", ToolCalls: []ToolCall{{
			ID:        "toolu_1",
			Name:      "getPageContent",
			Arguments: map[string]any{"url": "https://example.com"},
		}}},
		{Role: "tool", ToolCallID: "toolu_1", Content: "page text"},
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAnthropicAPIError(t *testing.T) {
	provider, server := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"type": "error",
			"error": map[string]string{
				"type":    "invalid_request_error",
				"message": "model not found",
			},
		})
	})
	defer server.Close()

	_, err := provider.Generate(context.Background(), []Message{
		{Role: "user", Content: "hi"},
	}, nil)
	if err == nil {
		t.Fatal("expected an API error")
	}
}
