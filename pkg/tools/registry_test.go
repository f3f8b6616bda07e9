package tools

import (
	"testing"

	"github.com/sift-dev/sift/pkg/agent"
)

func TestDefinitionsCoverTheCatalogue(t *testing.T) {
	defs := Definitions()
	if len(defs) != 7 {
		t.Fatalf("expected 7 tool definitions, got %d", len(defs))
	}

	byName := map[string]bool{}
	for _, def := range defs {
		byName[def.Name] = true
		if def.Description == "" {
			t.Errorf("tool %s has no description", def.Name)
		}
		if def.Parameters["type"] != "object" {
			t.Errorf("tool %s schema is not an object: %v", def.Name, def.Parameters["type"])
		}
		if _, ok := def.Parameters["properties"]; !ok {
			t.Errorf("tool %s schema has no properties", def.Name)
		}
		if _, ok := def.Parameters["$schema"]; ok {
			t.Errorf("tool %s schema leaks $schema", def.Name)
		}
	}

	for _, name := range []string{
		agent.ToolGetPageContent,
		agent.ToolInferEntities,
		agent.ToolQueryDocument,
		agent.ToolSubmitEntities,
		agent.ToolUpdatePlan,
		agent.ToolComplete,
		agent.ToolTerminate,
	} {
		if !byName[name] {
			t.Errorf("missing tool definition for %s", name)
		}
	}
}

func TestDefinitionsMarkRequiredFields(t *testing.T) {
	defs := Definitions()

	required := map[string][]string{
		agent.ToolGetPageContent: {"url"},
		agent.ToolInferEntities:  {"prompt", "entityTypeIds"},
		agent.ToolQueryDocument:  {"fileUrl", "description"},
		agent.ToolSubmitEntities: {"entityIds"},
		agent.ToolUpdatePlan:     {"plan"},
		agent.ToolTerminate:      {"explanation"},
	}

	for _, def := range defs {
		want, ok := required[def.Name]
		if !ok {
			continue
		}
		raw, _ := def.Parameters["required"].([]any)
		got := map[string]bool{}
		for _, r := range raw {
			if s, ok := r.(string); ok {
				got[s] = true
			}
		}
		for _, field := range want {
			if !got[field] {
				t.Errorf("tool %s must require %q, got %v", def.Name, field, raw)
			}
		}
	}
}

func TestDefinitionsAreStableAcrossCalls(t *testing.T) {
	first := Definitions()
	second := Definitions()
	if len(first) != len(second) {
		t.Fatalf("definition count changed: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Name != second[i].Name {
			t.Errorf("definition %d changed name: %s vs %s", i, first[i].Name, second[i].Name)
		}
	}
}
