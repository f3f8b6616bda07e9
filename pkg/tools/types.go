// Package tools implements the fixed tool catalogue the research agent can
// call, and the dispatcher that validates and executes requested calls.
package tools

import (
	"encoding/json"
	"fmt"
)

// GetPageContentArgs loads a web page through the headless renderer.
type GetPageContentArgs struct {
	URL string `json:"url" jsonschema:"required,description=The URL of the web page to load"`
}

// InferEntitiesArgs runs entity inference over content. Content can come
// from three places: inline text, a previously fetched page URL, or a
// document query described by Query against FileURL.
type InferEntitiesArgs struct {
	URL           string   `json:"url,omitempty" jsonschema:"description=URL of the web page the content came from"`
	FileURL       string   `json:"fileUrl,omitempty" jsonschema:"description=URL of a document to query for relevant content"`
	Content       string   `json:"content,omitempty" jsonschema:"description=The text to infer entities from"`
	Query         string   `json:"query,omitempty" jsonschema:"description=When fileUrl is set: what to look for in the document"`
	ExpectedCount int      `json:"expectedCount,omitempty" jsonschema:"description=How many entities you expect to be inferred,minimum=1"`
	ValidAt       string   `json:"validAt,omitempty" jsonschema:"description=RFC 3339 timestamp the property values should reflect"`
	Prompt        string   `json:"prompt" jsonschema:"required,description=Guidance on which entities are relevant"`
	EntityTypeIDs []string `json:"entityTypeIds" jsonschema:"required,description=The entity type ids to infer (must be from the allowed set)"`
}

// QueryDocumentArgs retrieves the passages of an indexed document most
// relevant to a description.
type QueryDocumentArgs struct {
	FileURL     string `json:"fileUrl" jsonschema:"required,description=URL of the document (must have been probed as a document first)"`
	Description string `json:"description" jsonschema:"required,description=What information you are looking for"`
	ExampleText string `json:"exampleText,omitempty" jsonschema:"description=Example of the text you expect to find"`
}

// SubmitArgs flags proposed entities as final output.
type SubmitArgs struct {
	EntityIDs []string `json:"entityIds" jsonschema:"required,description=Local ids of the proposed entities to submit"`
}

// UpdatePlanArgs replaces the research plan.
type UpdatePlanArgs struct {
	Plan string `json:"plan" jsonschema:"required,description=The revised step-by-step plan"`
}

// CompleteArgs finishes the task. Submitted entities become the answer.
type CompleteArgs struct{}

// TerminateArgs aborts the task.
type TerminateArgs struct {
	Explanation string `json:"explanation" jsonschema:"required,description=Why the task cannot be completed"`
}

// decodeArgs round-trips a loosely typed argument map into a typed struct.
func decodeArgs(args map[string]any, target any) error {
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("failed to marshal arguments: %w", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("arguments do not match the tool schema: %w", err)
	}
	return nil
}
