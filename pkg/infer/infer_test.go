package infer

import (
	"context"
	"testing"

	"github.com/sift-dev/sift/pkg/entity"
	"github.com/sift-dev/sift/pkg/llms"
)

// fakeProvider returns a canned response and records the last request.
type fakeProvider struct {
	response *llms.Response
	err      error

	lastMessages []llms.Message
	lastTools    []llms.ToolDefinition
}

func (f *fakeProvider) Generate(ctx context.Context, messages []llms.Message, tools []llms.ToolDefinition) (*llms.Response, error) {
	f.lastMessages = messages
	f.lastTools = tools
	return f.response, f.err
}

func (f *fakeProvider) ModelName() string { return "fake" }
func (f *fakeProvider) Close() error      { return nil }

var companyConstraint = entity.TypeConstraint{
	EntityTypeID: "https://example.com/types/company/v/1",
	Title:        "Company",
	Properties: map[string]any{
		"name":    map[string]any{"type": "string"},
		"revenue": map[string]any{"type": "number"},
	},
	Required: []string{"name"},
}

func TestInferProposesEntities(t *testing.T) {
	provider := &fakeProvider{
		response: &llms.Response{
			ToolCalls: []llms.ToolCall{{
				ID:   "call_1",
				Name: "propose_company",
				Arguments: map[string]any{
					"entities": []any{
						map[string]any{
							"name":    "Acme Corp",
							"revenue": float64(1000000),
							"summary": "A manufacturer.",
						},
					},
				},
			}},
		},
	}

	inf := NewLLMInferrer(provider)
	proposed, err := inf.Infer(context.Background(), &Request{
		Content:     "Acme Corp reported revenue of one million dollars.",
		SourceURL:   "https://example.com/report",
		Constraints: []entity.TypeConstraint{companyConstraint},
	})
	if err != nil {
		t.Fatalf("infer failed: %v", err)
	}

	if len(proposed) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(proposed))
	}
	got := proposed[0]
	if got.EntityTypeID != companyConstraint.EntityTypeID {
		t.Errorf("unexpected type id: %s", got.EntityTypeID)
	}
	if got.Properties["name"] != "Acme Corp" {
		t.Errorf("unexpected properties: %v", got.Properties)
	}
	if got.Summary != "A manufacturer." {
		t.Errorf("unexpected summary: %q", got.Summary)
	}
	if _, stillThere := got.Properties["summary"]; stillThere {
		t.Error("summary should be lifted out of properties")
	}
	if got.LocalEntityID != "" {
		t.Error("inferrer must not assign local ids")
	}
	if got.Provenance.SourceURL != "https://example.com/report" {
		t.Errorf("unexpected provenance: %v", got.Provenance)
	}
}

func TestInferOffersOneFunctionPerTypePlusAbstain(t *testing.T) {
	provider := &fakeProvider{response: &llms.Response{}}
	inf := NewLLMInferrer(provider)

	person := entity.TypeConstraint{
		EntityTypeID: "https://example.com/types/person/v/1",
		Title:        "Person",
	}
	_, err := inf.Infer(context.Background(), &Request{
		Content:     "nothing here",
		Constraints: []entity.TypeConstraint{companyConstraint, person},
	})
	if err != nil {
		t.Fatalf("infer failed: %v", err)
	}

	names := map[string]bool{}
	for _, tool := range provider.lastTools {
		names[tool.Name] = true
	}
	for _, want := range []string{"propose_company", "propose_person", "could_not_infer_entities"} {
		if !names[want] {
			t.Errorf("missing tool %s, got %v", want, names)
		}
	}
}

func TestInferAbstainYieldsNoEntities(t *testing.T) {
	provider := &fakeProvider{
		response: &llms.Response{
			ToolCalls: []llms.ToolCall{{
				ID:        "call_1",
				Name:      "could_not_infer_entities",
				Arguments: map[string]any{"explanation": "content is a cookie banner"},
			}},
		},
	}

	inf := NewLLMInferrer(provider)
	proposed, err := inf.Infer(context.Background(), &Request{
		Content:     "Accept all cookies",
		Constraints: []entity.TypeConstraint{companyConstraint},
	})
	if err != nil {
		t.Fatalf("infer failed: %v", err)
	}
	if len(proposed) != 0 {
		t.Errorf("expected no entities after abstain, got %d", len(proposed))
	}
}

func TestInferRequiresConstraints(t *testing.T) {
	inf := NewLLMInferrer(&fakeProvider{response: &llms.Response{}})
	if _, err := inf.Infer(context.Background(), &Request{Content: "text"}); err == nil {
		t.Fatal("expected error for empty constraints")
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Company", "company"},
		{"Graphics Card", "graphics_card"},
		{"GPU (Discrete)", "gpu_discrete"},
		{"  Multi  Space  ", "multi_space"},
	}
	for _, tt := range tests {
		if got := Slug(tt.in); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
