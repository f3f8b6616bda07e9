package vector

import (
	"testing"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

func TestPointUUIDAcceptsArbitraryStringIDs(t *testing.T) {
	// Passage-style ids are not UUIDs; the derived point id must be.
	id := pointUUID("a1b2c3d4e5f6-0003")
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("derived point id is not a valid UUID: %q (%v)", id, err)
	}

	if pointUUID("a1b2c3d4e5f6-0003") != id {
		t.Error("derived point id must be deterministic")
	}
	if pointUUID("a1b2c3d4e5f6-0004") == id {
		t.Error("distinct ids must not collide")
	}
}

func TestConvertQdrantResultsRestoresStringID(t *testing.T) {
	stringID := "a1b2c3d4e5f6-0003"
	points := []*qdrant.ScoredPoint{
		{
			Id:    qdrant.NewID(pointUUID(stringID)),
			Score: 0.9,
			Payload: map[string]*qdrant.Value{
				"id":      qdrant.NewValueString(stringID),
				"content": qdrant.NewValueString("passage text"),
				"index":   qdrant.NewValueInt(3),
			},
		},
	}

	results := convertQdrantResults(points)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].ID != stringID {
		t.Errorf("expected original string id %q, got %q", stringID, results[0].ID)
	}
	if results[0].Content != "passage text" {
		t.Errorf("unexpected content: %q", results[0].Content)
	}
	if _, ok := results[0].Metadata["id"]; ok {
		t.Error("id must not leak into metadata")
	}
	if results[0].Metadata["index"] != int64(3) {
		t.Errorf("unexpected index metadata: %v", results[0].Metadata["index"])
	}
}
