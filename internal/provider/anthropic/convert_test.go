package anthropic

import (
	"encoding/json"
	"testing"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"

	"github.com/yengalvez/a-movies/internal/provider"
)

func TestSplitSystemMessages_LeadingSystem(t *testing.T) {
	msgs := []provider.LLMMessage{
		{Role: provider.MessageRoleSystem, Content: "You remember movies."},
		{Role: provider.MessageRoleUser, Content: "Hello"},
	}

	system, rest := splitSystemMessages(msgs)

	if len(system) != 1 {
		t.Fatalf("expected 1 system block, got %d", len(system))
	}
	if system[0].Text != "You remember movies." {
		t.Errorf("system text = %q", system[0].Text)
	}
	if len(rest) != 1 || rest[0].Role != provider.MessageRoleUser {
		t.Errorf("rest = %+v", rest)
	}
}

func TestSplitSystemMessages_NoSystem(t *testing.T) {
	msgs := []provider.LLMMessage{
		{Role: provider.MessageRoleUser, Content: "Hello"},
	}

	system, rest := splitSystemMessages(msgs)

	if len(system) != 0 {
		t.Fatalf("expected 0 system blocks, got %d", len(system))
	}
	if len(rest) != 1 {
		t.Fatalf("expected 1 remaining message, got %d", len(rest))
	}
}

func TestConvertMessages_ToolResultGrouping(t *testing.T) {
	msgs := []provider.LLMMessage{
		{Role: provider.MessageRoleUser, Content: "Use tools"},
		{Role: provider.MessageRoleAssistant, Content: "Sure", ToolCalls: []provider.ToolCall{
			{ID: "tc1", Name: "memory_search", Arguments: json.RawMessage(`{"query":"heat"}`)},
			{ID: "tc2", Name: "memory_write", Arguments: json.RawMessage(`{"kind":"movie_seen"}`)},
		}},
		{Role: provider.MessageRoleTool, ToolID: "tc1", Content: "result_a"},
		{Role: provider.MessageRoleTool, ToolID: "tc2", Content: "result_b", IsError: true},
	}

	result := convertMessages(msgs, nil)

	// user + assistant + one grouped user message carrying both tool results
	if len(result) != 3 {
		t.Fatalf("expected 3 messages (tool results grouped), got %d", len(result))
	}
	last := result[2]
	if last.Role != sdkanthropic.MessageParamRoleUser {
		t.Errorf("grouped tool result role = %q", last.Role)
	}
	if len(last.Content) != 2 {
		t.Fatalf("expected 2 content blocks in grouped tool result, got %d", len(last.Content))
	}
}

func TestConvertMessages_DropsMidConversationSystem(t *testing.T) {
	msgs := []provider.LLMMessage{
		{Role: provider.MessageRoleUser, Content: "Hello"},
		{Role: provider.MessageRoleSystem, Content: "should vanish"},
		{Role: provider.MessageRoleAssistant, Content: "Hi"},
	}

	result := convertMessages(msgs, nil)

	if len(result) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(result))
	}
}

func TestConvertRequest_MaxTokensOverride(t *testing.T) {
	cfg := Config{Model: "claude-sonnet-4-5-20250929", MaxTokens: 4096}

	params := convertRequest(provider.CompletionRequest{
		Messages:  []provider.LLMMessage{{Role: provider.MessageRoleUser, Content: "hi"}},
		MaxTokens: 512,
	}, &cfg, nil)

	if params.MaxTokens != 512 {
		t.Errorf("MaxTokens = %d, want 512 (request override)", params.MaxTokens)
	}

	params = convertRequest(provider.CompletionRequest{
		Messages: []provider.LLMMessage{{Role: provider.MessageRoleUser, Content: "hi"}},
	}, &cfg, nil)

	if params.MaxTokens != 4096 {
		t.Errorf("MaxTokens = %d, want 4096 (config default)", params.MaxTokens)
	}
}

func TestConvertInputSchema_PreservesExtraFields(t *testing.T) {
	raw := json.RawMessage(`{
		"type": "object",
		"properties": {"method": {"type": "string", "enum": ["GET", "POST"]}},
		"required": ["method"],
		"additionalProperties": false
	}`)

	param := convertInputSchema(raw)

	if param.Properties == nil {
		t.Fatal("properties not carried over")
	}
	if len(param.Required) != 1 || param.Required[0] != "method" {
		t.Errorf("required = %v", param.Required)
	}
	if _, ok := param.ExtraFields["additionalProperties"]; !ok {
		t.Errorf("additionalProperties dropped: %v", param.ExtraFields)
	}
}

func TestConvertStopReason(t *testing.T) {
	cases := []struct {
		in   sdkanthropic.StopReason
		want provider.FinishReason
	}{
		{sdkanthropic.StopReasonEndTurn, provider.FinishReasonStop},
		{sdkanthropic.StopReasonMaxTokens, provider.FinishReasonLength},
		{sdkanthropic.StopReasonToolUse, provider.FinishReasonToolUse},
		{sdkanthropic.StopReasonRefusal, provider.FinishReasonFiltering},
		{sdkanthropic.StopReason("something_new"), provider.FinishReasonStop},
	}
	for _, tc := range cases {
		if got := convertStopReason(tc.in); got != tc.want {
			t.Errorf("convertStopReason(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDefaults(t *testing.T) {
	var cfg Config
	cfg.defaults()

	if cfg.Model != defaultModel {
		t.Errorf("model = %q", cfg.Model)
	}
	if cfg.MaxTokens != 4096 {
		t.Errorf("max tokens = %d", cfg.MaxTokens)
	}
	if cfg.contextWindowForModel() != defaultContextWindow {
		t.Errorf("context window = %d", cfg.contextWindowForModel())
	}

	cfg.ContextWindow = 1_000_000
	if cfg.contextWindowForModel() != 1_000_000 {
		t.Errorf("explicit context window not honored")
	}
}
