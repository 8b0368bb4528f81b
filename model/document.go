package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Document represents a source document (article) evidence is cited from
type Document struct {
	ID        int64     `json:"id"`
	RID       uuid.UUID `json:"rid"`
	Title     string    `json:"title"`
	Source    string    `json:"source,omitempty"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentLabel renders the citation label for a position inside a document.
// The title is preferred, the numeric id is used when no title is known.
func DocumentLabel(documentID int64, title string, position int) string {
	name := title
	if name == "" {
		name = fmt.Sprintf("doc %d", documentID)
	}
	return fmt.Sprintf("%s, pos %d", name, position)
}
