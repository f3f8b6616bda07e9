package agent

import (
	"fmt"
	"strings"

	"github.com/sift-dev/sift/pkg/llms"
	"github.com/sift-dev/sift/pkg/utils"
)

const redactedNotice = "[page content elided: this page was processed in a later round; call getPageContent again if you need it]"

// Assembler builds the message sequence sent to the completion provider
// for the next round.
type Assembler struct {
	counter      *utils.TokenCounter
	contextLimit int
}

// NewAssembler creates an assembler. contextLimit bounds the token size of
// assembled conversations; zero disables truncation.
func NewAssembler(counter *utils.TokenCounter, contextLimit int) *Assembler {
	return &Assembler{counter: counter, contextLimit: contextLimit}
}

// Build assembles the conversation for the next acting round. nudge, when
// non-empty, is appended as a trailing corrective user message; it is never
// persisted in state.
func (a *Assembler) Build(state *State, task *Task, nudge string) []llms.Message {
	messages := []llms.Message{
		{Role: "system", Content: a.systemMessage(state, task)},
		{Role: "user", Content: taskMessage(task)},
	}

	rounds := RedactRounds(state.Rounds())
	for _, round := range rounds {
		if len(round.Calls) == 0 {
			continue
		}

		assistant := llms.Message{Role: "assistant", Content: round.Text}
		for _, call := range round.Calls {
			assistant.ToolCalls = append(assistant.ToolCalls, llms.ToolCall{
				ID:        call.ID,
				Name:      call.Name,
				Arguments: call.Arguments,
				RawArgs:   call.RawArgs,
			})
		}
		messages = append(messages, assistant)

		for _, call := range round.Calls {
			output := call.Output
			if call.IsError {
				output = "ERROR: " + output
			}
			messages = append(messages, llms.Message{
				Role:       "tool",
				ToolCallID: call.ID,
				Content:    output,
			})
		}
	}

	if nudge != "" {
		messages = append(messages, llms.Message{Role: "user", Content: nudge})
	}

	return a.fitBudget(messages)
}

// systemMessage carries role framing, the plan, and compact digests of
// visited resources and submitted entities. Digests stay one line per item
// so per-round overhead is bounded regardless of task length.
func (a *Assembler) systemMessage(state *State, task *Task) string {
	var b strings.Builder
	b.WriteString("You are a research agent extracting structured entities from web pages and documents.\n")
	b.WriteString("Work through your plan using the available tools. Propose entities with inferEntitiesFromContent, ")
	b.WriteString("submit the ones that answer the task with submitProposedEntities, then call complete. ")
	b.WriteString("If the task cannot be done with the available tools, call terminate with an explanation.\n")

	if plan := state.Plan(); plan != "" {
		b.WriteString("\nCurrent plan:\n")
		b.WriteString(plan)
		b.WriteString("\n")
	}

	if visited := state.VisitedList(); len(visited) > 0 {
		b.WriteString("\nAlready visited resources:\n")
		for _, url := range visited {
			b.WriteString("- " + url + "\n")
		}
	}

	if digest := state.EntityDigest(); len(digest) > 0 {
		b.WriteString("\nAlready submitted entities:\n")
		for _, line := range digest {
			b.WriteString("- " + line + "\n")
		}
	}

	if len(task.TypeConstraints) > 0 {
		b.WriteString("\nAllowed entity types:\n")
		for _, tc := range task.TypeConstraints {
			line := fmt.Sprintf("- %s (%s)", tc.Title, tc.EntityTypeID)
			if tc.Description != "" {
				line += ": " + tc.Description
			}
			b.WriteString(line + "\n")
		}
	}

	return b.String()
}

func taskMessage(task *Task) string {
	var b strings.Builder
	b.WriteString("Research task: ")
	b.WriteString(task.Prompt)
	if task.ResourceURL != "" {
		b.WriteString("\nStart from this resource: ")
		b.WriteString(task.ResourceURL)
	}
	return b.String()
}

// RedactRounds is a pure projection over round history: the stored rounds
// are never mutated, and applying it twice equals applying it once. A
// getPageContent output is elided when a later round processed the same
// URL again.
func RedactRounds(rounds []Round) []Round {
	// URL -> index of the last round that processed it. Errored calls do not
	// count: a failed re-fetch never replaced the earlier content.
	lastTouched := make(map[string]int)
	for i, round := range rounds {
		for _, call := range round.Calls {
			if call.IsError {
				continue
			}
			if url := callURL(call); url != "" {
				lastTouched[url] = i
			}
		}
	}

	out := make([]Round, len(rounds))
	for i, round := range rounds {
		outRound := Round{Text: round.Text, Calls: make([]CompletedToolCall, len(round.Calls))}
		copy(outRound.Calls, round.Calls)

		for j, call := range outRound.Calls {
			if call.Name != ToolGetPageContent || call.IsError {
				continue
			}
			url := callURL(call)
			if url == "" {
				continue
			}
			if last, ok := lastTouched[url]; ok && last > i {
				outRound.Calls[j].Output = redactedNotice
			}
		}
		out[i] = outRound
	}
	return out
}

// callURL extracts the resource URL a call operated on, if any.
func callURL(call CompletedToolCall) string {
	for _, key := range []string{"url", "fileUrl"} {
		if v, ok := call.Arguments[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// fitBudget drops the oldest round pairs until the conversation fits the
// context limit. The system message, task message, and the latest round
// always stay.
func (a *Assembler) fitBudget(messages []llms.Message) []llms.Message {
	if a.contextLimit <= 0 || a.counter == nil {
		return messages
	}

	total := func(msgs []llms.Message) int {
		tokens := 0
		for _, m := range msgs {
			tokens += a.counter.Count(m.Content) + 4
		}
		return tokens
	}

	// prefix holds the system and task messages; body holds round pairs.
	prefix, body := messages[:2], messages[2:]
	dropped := false

	for total(prefix)+total(body) > a.contextLimit {
		// Find the end of the oldest assistant+tool-results group.
		cut := 1
		for cut < len(body) && body[cut].Role == "tool" {
			cut++
		}
		if cut >= len(body) {
			break // only one round left, keep it
		}
		body = body[cut:]
		dropped = true
	}

	if !dropped {
		return messages
	}

	out := make([]llms.Message, 0, len(prefix)+1+len(body))
	out = append(out, prefix...)
	out = append(out, llms.Message{
		Role:    "user",
		Content: "[older rounds elided to fit the context window]",
	})
	return append(out, body...)
}
