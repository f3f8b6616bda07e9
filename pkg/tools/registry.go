package tools

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/sift-dev/sift/pkg/agent"
	"github.com/sift-dev/sift/pkg/llms"
)

// The catalogue is fixed and versionless: the same definitions are declared
// to the model verbatim every round.
var (
	definitionsOnce sync.Once
	definitions     []llms.ToolDefinition
)

// Definitions returns the tool declarations for the completion provider.
func Definitions() []llms.ToolDefinition {
	definitionsOnce.Do(func() {
		definitions = []llms.ToolDefinition{
			{
				Name:        agent.ToolGetPageContent,
				Description: "Load a web page and return its readable text content. For non-HTML documents (PDF, Word, Excel) use queryDocument instead.",
				Parameters:  mustSchema[GetPageContentArgs](),
			},
			{
				Name:        agent.ToolInferEntities,
				Description: "Infer structured entities of the allowed types from content: inline text, a fetched page, or passages retrieved from a document.",
				Parameters:  mustSchema[InferEntitiesArgs](),
			},
			{
				Name:        agent.ToolQueryDocument,
				Description: "Search an indexed document (PDF, Word, Excel) for the passages most relevant to a description.",
				Parameters:  mustSchema[QueryDocumentArgs](),
			},
			{
				Name:        agent.ToolSubmitEntities,
				Description: "Flag proposed entities as part of the final answer. Ids must come from earlier inferEntitiesFromContent results.",
				Parameters:  mustSchema[SubmitArgs](),
			},
			{
				Name:        agent.ToolUpdatePlan,
				Description: "Replace the current research plan with a revised one.",
				Parameters:  mustSchema[UpdatePlanArgs](),
			},
			{
				Name:        agent.ToolComplete,
				Description: "Finish the task. The entities submitted so far become the answer.",
				Parameters:  mustSchema[CompleteArgs](),
			},
			{
				Name:        agent.ToolTerminate,
				Description: "Abort the task because it cannot be completed with the available tools.",
				Parameters:  mustSchema[TerminateArgs](),
			},
		}
	})
	return definitions
}

// mustSchema reflects a JSON schema from an argument struct. The catalogue
// is static, so a reflection failure is a programming error.
func mustSchema[T any]() map[string]any {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}

	schema := reflector.Reflect(new(T))
	data, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("failed to marshal tool schema: %v", err))
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		panic(fmt.Sprintf("failed to unmarshal tool schema: %v", err))
	}

	delete(result, "$schema")
	delete(result, "$id")
	if _, ok := result["type"]; !ok {
		result["type"] = "object"
	}
	if _, ok := result["properties"]; !ok {
		result["properties"] = map[string]any{}
	}
	return result
}
