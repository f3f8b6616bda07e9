// Package agent implements the research loop: a controller that alternates
// between asking a completion provider to plan, dispatching the tool calls
// it requests, folding results into task state, and deciding when the task
// is complete, aborted, or failed.
package agent

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sift-dev/sift/pkg/entity"
)

// Tool names form a fixed, versionless catalogue declared to the model
// verbatim every round.
const (
	ToolGetPageContent = "getPageContent"
	ToolInferEntities  = "inferEntitiesFromContent"
	ToolQueryDocument  = "queryDocument"
	ToolSubmitEntities = "submitProposedEntities"
	ToolUpdatePlan     = "updatePlan"
	ToolComplete       = "complete"
	ToolTerminate      = "terminate"
)

// ToolCall is one model-requested invocation. Immutable once received.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	RawArgs   string         `json:"rawArgs,omitempty"`
}

// CompletedToolCall extends ToolCall with its result.
type CompletedToolCall struct {
	ToolCall
	Output  string `json:"output"`
	IsError bool   `json:"isError"`
}

// Round is one completed cycle of requested and dispatched tool calls.
type Round struct {
	Text  string              `json:"text,omitempty"`
	Calls []CompletedToolCall `json:"calls"`
}

// Task describes one research job.
type Task struct {
	Prompt           string                  `json:"prompt"`
	ResourceURL      string                  `json:"resourceUrl"`
	TypeConstraints  []entity.TypeConstraint `json:"typeConstraints"`
	ExistingEntities []entity.ProposedEntity `json:"existingEntities,omitempty"`
}

// Validate checks the task fields the loop depends on.
func (t *Task) Validate() error {
	if t.Prompt == "" {
		return fmt.Errorf("task prompt is required")
	}
	if len(t.TypeConstraints) == 0 {
		return fmt.Errorf("at least one type constraint is required")
	}
	for i := range t.TypeConstraints {
		if err := t.TypeConstraints[i].Validate(); err != nil {
			return fmt.Errorf("type constraint %d: %w", i, err)
		}
	}
	return nil
}

// State is the accumulated state of one controller invocation. Handlers run
// concurrently within a round, so all mutation goes through the mutex.
type State struct {
	mu sync.Mutex

	CurrentPlan        string                           `json:"currentPlan"`
	PreviousRounds     []Round                          `json:"previousRounds"`
	ProposedEntities   map[string]entity.ProposedEntity `json:"proposedEntities"`
	SubmittedEntityIDs map[string]bool                  `json:"submittedEntityIds"`
	VisitedURLs        map[string]bool                  `json:"visitedUrls"`
	DocumentURLs       map[string]bool                  `json:"documentUrls"`
	FilesQueried       []entity.AccessedRemoteFile      `json:"filesQueried"`
	FilesUsed          []entity.AccessedRemoteFile      `json:"filesUsedToProposeEntities"`
	IDCounter          int                              `json:"idCounter"`
}

// NewState creates an empty state, seeding any pre-existing entities.
func NewState(existing []entity.ProposedEntity) *State {
	s := &State{
		ProposedEntities:   make(map[string]entity.ProposedEntity),
		SubmittedEntityIDs: make(map[string]bool),
		VisitedURLs:        make(map[string]bool),
		DocumentURLs:       make(map[string]bool),
	}
	for _, e := range existing {
		if e.LocalEntityID == "" {
			e.LocalEntityID = s.nextEntityIDLocked()
		}
		s.ProposedEntities[e.LocalEntityID] = e
	}
	return s
}

func (s *State) nextEntityIDLocked() string {
	s.IDCounter++
	return fmt.Sprintf("entity-%d", s.IDCounter)
}

// SetPlan replaces the current plan.
func (s *State) SetPlan(plan string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CurrentPlan = plan
}

// Plan returns the current plan.
func (s *State) Plan() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CurrentPlan
}

// MergeProposed assigns local ids to entities and adds them to the proposed
// set. Returns the assigned ids in input order.
func (s *State) MergeProposed(entities []entity.ProposedEntity) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(entities))
	for _, e := range entities {
		if e.LocalEntityID == "" {
			e.LocalEntityID = s.nextEntityIDLocked()
		}
		s.ProposedEntities[e.LocalEntityID] = e
		ids = append(ids, e.LocalEntityID)
	}
	return ids
}

// Proposed looks up one proposed entity by local id.
func (s *State) Proposed(id string) (entity.ProposedEntity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.ProposedEntities[id]
	return e, ok
}

// Submit unions ids into the submitted set. Every id must reference a
// proposed entity; on violation nothing is submitted and the offending ids
// are returned in the error.
func (s *State) Submit(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var missing []string
	for _, id := range ids {
		if _, ok := s.ProposedEntities[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("unknown entity ids: %v", missing)
	}

	for _, id := range ids {
		s.SubmittedEntityIDs[id] = true
	}
	return nil
}

// SubmittedEntities returns the proposed entities flagged as final output,
// ordered by local id for determinism.
func (s *State) SubmittedEntities() []entity.ProposedEntity {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.SubmittedEntityIDs))
	for id := range s.SubmittedEntityIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]entity.ProposedEntity, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.ProposedEntities[id])
	}
	return out
}

// MarkVisited records a processed resource URL.
func (s *State) MarkVisited(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.VisitedURLs[url] = true
}

// Visited reports whether a URL has been processed.
func (s *State) Visited(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.VisitedURLs[url]
}

// VisitedList returns visited URLs sorted.
func (s *State) VisitedList() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	urls := make([]string, 0, len(s.VisitedURLs))
	for u := range s.VisitedURLs {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// MarkDocument records that a URL was probed as a non-HTML document.
func (s *State) MarkDocument(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DocumentURLs[url] = true
}

// IsDocument reports whether a URL was probed as a document.
func (s *State) IsDocument(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.DocumentURLs[url]
}

// RecordFileQueried appends a provenance record for a document query.
func (s *State) RecordFileQueried(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FilesQueried = append(s.FilesQueried, entity.AccessedRemoteFile{
		URL:      url,
		LoadedAt: time.Now().UTC(),
	})
}

// RecordFileUsed appends a provenance record for content that produced
// entities of a given type.
func (s *State) RecordFileUsed(url, entityTypeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FilesUsed = append(s.FilesUsed, entity.AccessedRemoteFile{
		URL:          url,
		EntityTypeID: entityTypeID,
		LoadedAt:     time.Now().UTC(),
	})
}

// Provenance returns the files used to propose entities.
func (s *State) Provenance() []entity.AccessedRemoteFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.AccessedRemoteFile, len(s.FilesUsed))
	copy(out, s.FilesUsed)
	return out
}

// AppendRound appends a completed round to history.
func (s *State) AppendRound(round Round) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PreviousRounds = append(s.PreviousRounds, round)
}

// Rounds returns a copy of the round history.
func (s *State) Rounds() []Round {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Round, len(s.PreviousRounds))
	copy(out, s.PreviousRounds)
	return out
}

// EntityDigest returns one line per submitted entity: id, type, summary.
// Full property payloads never enter the system prompt.
func (s *State) EntityDigest() []string {
	entities := s.SubmittedEntities()
	lines := make([]string, 0, len(entities))
	for _, e := range entities {
		line := fmt.Sprintf("%s (%s)", e.LocalEntityID, e.EntityTypeID)
		if e.Summary != "" {
			line += ": " + e.Summary
		}
		lines = append(lines, line)
	}
	return lines
}
