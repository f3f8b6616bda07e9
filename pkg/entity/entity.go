// Package entity defines the data model shared between the research
// controller, the tool handlers, and the inference collaborator: proposed
// entities, their provenance, and the type constraints a task is scoped to.
package entity

import (
	"fmt"
	"time"
)

// TypeConstraint describes one entity type the model is allowed to propose
// entities for. The property schema is carried as a raw JSON Schema fragment;
// the full ontology language lives outside this module.
type TypeConstraint struct {
	EntityTypeID string         `json:"entityTypeId"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	Properties   map[string]any `json:"properties,omitempty"`
	Required     []string       `json:"required,omitempty"`
}

// Validate checks the fields the orchestration loop relies on.
func (tc *TypeConstraint) Validate() error {
	if tc.EntityTypeID == "" {
		return fmt.Errorf("type constraint is missing entityTypeId")
	}
	if tc.Title == "" {
		return fmt.Errorf("type constraint %s is missing a title", tc.EntityTypeID)
	}
	return nil
}

// Provenance records where a proposed entity's source content was loaded from.
type Provenance struct {
	SourceURL string    `json:"sourceUrl"`
	LoadedAt  time.Time `json:"loadedAt"`
}

// ProposedEntity is a candidate structured record inferred from source
// content. It is not confirmed output until its id is submitted.
type ProposedEntity struct {
	LocalEntityID string         `json:"localEntityId"`
	EntityTypeID  string         `json:"entityTypeId"`
	Properties    map[string]any `json:"properties"`
	Summary       string         `json:"summary,omitempty"`
	Provenance    Provenance     `json:"provenance"`
}

// AccessedRemoteFile is a provenance record for a remote resource consulted
// while researching entities of a given type.
type AccessedRemoteFile struct {
	URL          string    `json:"url"`
	EntityTypeID string    `json:"entityTypeId,omitempty"`
	LoadedAt     time.Time `json:"loadedAt"`
}
