package agent

import (
	"reflect"
	"strings"
	"testing"

	"github.com/sift-dev/sift/pkg/entity"
)

func pageCall(id, url, output string) CompletedToolCall {
	return CompletedToolCall{
		ToolCall: ToolCall{
			ID:        id,
			Name:      ToolGetPageContent,
			Arguments: map[string]any{"url": url},
		},
		Output: output,
	}
}

func TestRedactionElidesEarlierFetchOfReprocessedPage(t *testing.T) {
	rounds := []Round{
		{Calls: []CompletedToolCall{pageCall("c1", "https://example.com/a", "big page body")}},
		{Calls: []CompletedToolCall{pageCall("c2", "https://example.com/a", "big page body again")}},
	}

	redacted := RedactRounds(rounds)

	if redacted[0].Calls[0].Output == "big page body" {
		t.Error("earlier fetch of a reprocessed page must be elided")
	}
	if redacted[1].Calls[0].Output != "big page body again" {
		t.Error("latest fetch must keep its output")
	}

	// Stored state is untouched.
	if rounds[0].Calls[0].Output != "big page body" {
		t.Error("redaction must not mutate stored rounds")
	}
}

func TestRedactionIgnoresFailedRefetches(t *testing.T) {
	failed := pageCall("c2", "https://example.com/a", "fetch timed out")
	failed.IsError = true
	rounds := []Round{
		{Calls: []CompletedToolCall{pageCall("c1", "https://example.com/a", "big page body")}},
		{Calls: []CompletedToolCall{failed}},
	}

	redacted := RedactRounds(rounds)

	// The page was never actually reprocessed, so the original content is
	// still the only copy the model has.
	if redacted[0].Calls[0].Output != "big page body" {
		t.Error("a failed re-fetch must not elide the earlier successful fetch")
	}
}

func TestRedactionIsIdempotent(t *testing.T) {
	rounds := []Round{
		{Calls: []CompletedToolCall{pageCall("c1", "https://example.com/a", "body")}},
		{Calls: []CompletedToolCall{pageCall("c2", "https://example.com/b", "other")}},
		{Calls: []CompletedToolCall{pageCall("c3", "https://example.com/a", "body v2")}},
	}

	once := RedactRounds(rounds)
	twice := RedactRounds(once)
	if !reflect.DeepEqual(once, twice) {
		t.Error("redacting twice must equal redacting once")
	}
}

func TestRedactionLeavesUnrepeatedPagesAlone(t *testing.T) {
	rounds := []Round{
		{Calls: []CompletedToolCall{pageCall("c1", "https://example.com/a", "body a")}},
		{Calls: []CompletedToolCall{pageCall("c2", "https://example.com/b", "body b")}},
	}

	redacted := RedactRounds(rounds)
	if redacted[0].Calls[0].Output != "body a" || redacted[1].Calls[0].Output != "body b" {
		t.Error("distinct pages must not be redacted")
	}
}

func TestBuildSystemMessageCarriesPlanAndDigests(t *testing.T) {
	state := NewState(nil)
	state.SetPlan("1. visit the page\n2. extract entities")
	state.MarkVisited("https://example.com/a")
	ids := state.MergeProposed([]entity.ProposedEntity{
		{EntityTypeID: "type-a", Summary: "an entity"},
	})
	if err := state.Submit(ids); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	task := &Task{
		Prompt: "find companies",
		TypeConstraints: []entity.TypeConstraint{
			{EntityTypeID: "type-a", Title: "Company"},
		},
	}

	a := NewAssembler(nil, 0)
	messages := a.Build(state, task, "")

	if messages[0].Role != "system" {
		t.Fatalf("first message must be system, got %s", messages[0].Role)
	}
	system := messages[0].Content
	for _, want := range []string{"visit the page", "https://example.com/a", "entity-1", "Company"} {
		if !strings.Contains(system, want) {
			t.Errorf("system message missing %q", want)
		}
	}

	if messages[1].Role != "user" || !strings.Contains(messages[1].Content, "find companies") {
		t.Errorf("second message must carry the task prompt: %+v", messages[1])
	}
}

func TestBuildMapsRoundsToAssistantToolPairs(t *testing.T) {
	state := NewState(nil)
	state.AppendRound(Round{
		Text:  "fetching the page",
		Calls: []CompletedToolCall{pageCall("c1", "https://example.com/a", "page text")},
	})

	a := NewAssembler(nil, 0)
	messages := a.Build(state, &Task{Prompt: "p"}, "")

	// system, task, assistant, tool result
	if len(messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(messages))
	}
	assistant := messages[2]
	if assistant.Role != "assistant" || len(assistant.ToolCalls) != 1 || assistant.ToolCalls[0].ID != "c1" {
		t.Errorf("unexpected assistant message: %+v", assistant)
	}
	toolMsg := messages[3]
	if toolMsg.Role != "tool" || toolMsg.ToolCallID != "c1" || toolMsg.Content != "page text" {
		t.Errorf("unexpected tool message: %+v", toolMsg)
	}
}

func TestBuildMarksErrorOutputs(t *testing.T) {
	state := NewState(nil)
	call := pageCall("c1", "https://example.com/a", "it broke")
	call.IsError = true
	state.AppendRound(Round{Calls: []CompletedToolCall{call}})

	a := NewAssembler(nil, 0)
	messages := a.Build(state, &Task{Prompt: "p"}, "")
	last := messages[len(messages)-1]
	if !strings.HasPrefix(last.Content, "ERROR:") {
		t.Errorf("error results must be marked: %q", last.Content)
	}
}

func TestBuildAppendsNudge(t *testing.T) {
	a := NewAssembler(nil, 0)
	messages := a.Build(NewState(nil), &Task{Prompt: "p"}, "call a tool")
	last := messages[len(messages)-1]
	if last.Role != "user" || last.Content != "call a tool" {
		t.Errorf("nudge must be the trailing user message: %+v", last)
	}
}
