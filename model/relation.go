package model

import (
	"time"

	"github.com/google/uuid"
)

// Relation is a weighted, evidence backed edge between two entities
type Relation struct {
	ID              uuid.UUID `json:"id"`
	SourceEntityID  uuid.UUID `json:"source_entity_id"`
	TargetEntityID  uuid.UUID `json:"target_entity_id"`
	RelationType    string    `json:"relation_type"`
	Weight          float64   `json:"weight"`
	Bidirectional   bool      `json:"bidirectional"`
	EvidenceFactIDs []int64   `json:"evidence_fact_ids,omitempty"`
	Metadata        Metadata  `json:"metadata,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Other returns the entity on the other side of the relation when walking from id.
// ok is false if the relation cannot be walked from id.
func (r *Relation) Other(id uuid.UUID) (uuid.UUID, bool) {
	if r.SourceEntityID == id {
		return r.TargetEntityID, true
	}
	if r.Bidirectional && r.TargetEntityID == id {
		return r.SourceEntityID, true
	}
	return uuid.Nil, false
}
