// Package infer turns source content into proposed entities with a single
// structured LLM call. Each allowed entity type is exposed to the model as
// its own function accepting an array of candidate entities, plus an
// explicit abstain function for when the content holds nothing relevant.
package infer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/sift-dev/sift/pkg/entity"
	"github.com/sift-dev/sift/pkg/llms"
)

const abstainTool = "could_not_infer_entities"

// Request carries one inference job.
type Request struct {
	// Content is the source text entities are inferred from.
	Content string

	// SourceURL is recorded in each entity's provenance.
	SourceURL string

	// Prompt is caller guidance on which entities are relevant.
	Prompt string

	// ValidAt, when set, asks for property values as of that time.
	ValidAt time.Time

	// Constraints lists the entity types the model may propose.
	Constraints []entity.TypeConstraint
}

// Inferrer extracts proposed entities from content.
type Inferrer interface {
	Infer(ctx context.Context, req *Request) ([]entity.ProposedEntity, error)
}

// LLMInferrer implements Inferrer on top of an llms.Provider.
type LLMInferrer struct {
	provider llms.Provider
}

// NewLLMInferrer creates an inferrer backed by the given provider.
func NewLLMInferrer(provider llms.Provider) *LLMInferrer {
	return &LLMInferrer{provider: provider}
}

// Infer runs one structured extraction call. Returned entities carry empty
// local ids; the caller assigns them.
func (inf *LLMInferrer) Infer(ctx context.Context, req *Request) ([]entity.ProposedEntity, error) {
	if len(req.Constraints) == 0 {
		return nil, fmt.Errorf("no entity type constraints provided")
	}

	tools, toolToType := buildTools(req.Constraints)

	resp, err := inf.provider.Generate(ctx, []llms.Message{
		{Role: "system", Content: systemPrompt(req)},
		{Role: "user", Content: req.Content},
	}, tools)
	if err != nil {
		return nil, fmt.Errorf("inference call failed: %w", err)
	}

	loadedAt := time.Now().UTC()
	var proposed []entity.ProposedEntity

	for _, call := range resp.ToolCalls {
		if call.Name == abstainTool {
			slog.Debug("model abstained from inference",
				"url", req.SourceURL,
				"explanation", stringArg(call.Arguments, "explanation"))
			continue
		}

		constraint, ok := toolToType[call.Name]
		if !ok {
			slog.Warn("model called unknown inference function", "name", call.Name)
			continue
		}

		entities, err := decodeEntities(call, constraint, req.SourceURL, loadedAt)
		if err != nil {
			slog.Warn("failed to decode inferred entities",
				"type", constraint.EntityTypeID,
				"error", err)
			continue
		}
		proposed = append(proposed, entities...)
	}

	return proposed, nil
}

// buildTools makes one function per type constraint plus the abstain
// function, and returns the tool-name-to-constraint mapping.
func buildTools(constraints []entity.TypeConstraint) ([]llms.ToolDefinition, map[string]entity.TypeConstraint) {
	tools := make([]llms.ToolDefinition, 0, len(constraints)+1)
	toolToType := make(map[string]entity.TypeConstraint, len(constraints))

	for _, constraint := range constraints {
		name := "propose_" + Slug(constraint.Title)
		toolToType[name] = constraint

		properties := map[string]any{}
		for k, v := range constraint.Properties {
			properties[k] = v
		}
		properties["summary"] = map[string]any{
			"type":        "string",
			"description": "One sentence describing this entity.",
		}

		description := fmt.Sprintf("Propose entities of type %q found in the content.", constraint.Title)
		if constraint.Description != "" {
			description += " " + constraint.Description
		}

		tools = append(tools, llms.ToolDefinition{
			Name:        name,
			Description: description,
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"entities": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type":       "object",
							"properties": properties,
							"required":   constraint.Required,
						},
					},
				},
				"required": []string{"entities"},
			},
		})
	}

	tools = append(tools, llms.ToolDefinition{
		Name:        abstainTool,
		Description: "Call this when the content contains no entities of the allowed types.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"explanation": map[string]any{
					"type":        "string",
					"description": "Why no entities could be inferred.",
				},
			},
			"required": []string{"explanation"},
		},
	})

	return tools, toolToType
}

func systemPrompt(req *Request) string {
	var b strings.Builder
	b.WriteString("You are an entity extraction system. Read the provided content and propose structured entities using the available functions.\n")
	b.WriteString("Only propose entities of the allowed types, with property values taken from the content. Do not invent values.\n")
	b.WriteString("If the content has no relevant entities, call could_not_infer_entities.\n")

	if req.Prompt != "" {
		b.WriteString("\nRelevance guidance: ")
		b.WriteString(req.Prompt)
		b.WriteString("\n")
	}
	if !req.ValidAt.IsZero() {
		fmt.Fprintf(&b, "\nReport property values as they were at %s.\n", req.ValidAt.Format(time.RFC3339))
	}
	return b.String()
}

// decodeEntities converts one tool call's entities array into proposals.
func decodeEntities(call llms.ToolCall, constraint entity.TypeConstraint, sourceURL string, loadedAt time.Time) ([]entity.ProposedEntity, error) {
	raw, ok := call.Arguments["entities"]
	if !ok {
		return nil, fmt.Errorf("missing entities array")
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to re-marshal entities: %w", err)
	}
	var items []map[string]any
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("entities is not an array of objects: %w", err)
	}

	proposed := make([]entity.ProposedEntity, 0, len(items))
	for _, item := range items {
		summary, _ := item["summary"].(string)
		delete(item, "summary")

		proposed = append(proposed, entity.ProposedEntity{
			EntityTypeID: constraint.EntityTypeID,
			Properties:   item,
			Summary:      summary,
			Provenance: entity.Provenance{
				SourceURL: sourceURL,
				LoadedAt:  loadedAt,
			},
		})
	}
	return proposed, nil
}

// Slug lowercases a title and joins its words with underscores, producing a
// valid function name fragment.
func Slug(title string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
			lastUnderscore = false
		} else if !lastUnderscore {
			b.WriteRune('_')
			lastUnderscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

var _ Inferrer = (*LLMInferrer)(nil)
