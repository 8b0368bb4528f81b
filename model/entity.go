package model

import (
	"time"

	"github.com/google/uuid"
)

// Entity represents a graph node (person, organization, concept, ...)
type Entity struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"entity_type"`
	Aliases   []string  `json:"aliases,omitempty"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	// Results
	MatchedMention string  `json:"matched_mention,omitempty"`
	MatchScore     float64 `json:"match_score,omitempty"`
}
