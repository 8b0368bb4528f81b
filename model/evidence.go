package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EvidenceKind is the variant of an evidence unit
type EvidenceKind string

const (
	EvidenceTextFragment EvidenceKind = "text_fragment"
	EvidenceFact         EvidenceKind = "fact"
	EvidenceGraphPath    EvidenceKind = "graph_path"
)

// Strategy returns the retrieval strategy producing this kind of evidence.
func (k EvidenceKind) Strategy() PolicyType {
	switch k {
	case EvidenceTextFragment:
		return PolicyText
	case EvidenceFact:
		return PolicyFact
	case EvidenceGraphPath:
		return PolicyGraph
	}
	return ""
}

// EvidenceUnit is a read-only view over one retrieved piece of evidence.
// Exactly one of Fragment, Fact and Path is set, matching Kind.
type EvidenceUnit struct {
	Kind       EvidenceKind `json:"kind"`
	SourceID   string       `json:"source_id"`
	DocumentID int64        `json:"document_id,omitempty"`
	Position   int          `json:"position"`
	Score      float64      `json:"score"`
	Label      string       `json:"label"`

	Fragment *TextFragment `json:"fragment,omitempty"`
	Fact     *Fact         `json:"fact,omitempty"`
	Path     *GraphPath    `json:"path,omitempty"`
}

// CitationKey identifies the underlying source record across strategies.
func (u *EvidenceUnit) CitationKey() string {
	return string(u.Kind) + ":" + u.SourceID
}

// Text renders the unit content as it is shown to the language model.
func (u *EvidenceUnit) Text() string {
	switch u.Kind {
	case EvidenceTextFragment:
		if u.Fragment != nil {
			return u.Fragment.Content
		}
	case EvidenceFact:
		if u.Fact != nil {
			return u.Fact.Statement()
		}
	case EvidenceGraphPath:
		if u.Path != nil {
			return u.Path.Render()
		}
	}
	return ""
}

// TextFragment is a chunk of a source document found by vector search
type TextFragment struct {
	ID            int64     `json:"id"`
	DocumentID    int64     `json:"document_id"`
	DocumentRID   uuid.UUID `json:"document_rid"`
	DocumentTitle string    `json:"document_title,omitempty"`
	Content       string    `json:"content"`
	Position      int       `json:"position"`
	Embedding     []float32 `json:"embedding,omitempty"`
	Metadata      Metadata  `json:"metadata,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	// Results
	Similarity float64 `json:"similarity,omitempty"`
}

// NewFragmentUnit wraps a fragment, its similarity is the unit score.
func NewFragmentUnit(f *TextFragment) *EvidenceUnit {
	return &EvidenceUnit{
		Kind:       EvidenceTextFragment,
		SourceID:   fmt.Sprintf("%d", f.ID),
		DocumentID: f.DocumentID,
		Position:   f.Position,
		Score:      clamp01(f.Similarity),
		Label:      DocumentLabel(f.DocumentID, f.DocumentTitle, f.Position),
		Fragment:   f,
	}
}

// Fact is a subject-relation-object triple extracted from a source document
type Fact struct {
	ID               int64     `json:"id"`
	Subject          string    `json:"subject"`
	Relation         string    `json:"relation"`
	Object           string    `json:"object"`
	Confidence       float64   `json:"confidence"`
	SourceFragmentID *int64    `json:"source_fragment_id,omitempty"`
	DocumentID       *int64    `json:"document_id,omitempty"`
	ObservedAt       time.Time `json:"observed_at"`
	Metadata         Metadata  `json:"metadata,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	// Results
	Similarity    float64 `json:"similarity,omitempty"`
	MatchStrength float64 `json:"match_strength,omitempty"`
}

// Statement renders the triple as a sentence.
func (f *Fact) Statement() string {
	return strings.TrimSpace(f.Subject + " " + f.Relation + " " + f.Object)
}

// NewFactUnit wraps a fact with its composite retrieval score.
func NewFactUnit(f *Fact, score float64) *EvidenceUnit {
	u := &EvidenceUnit{
		Kind:     EvidenceFact,
		SourceID: fmt.Sprintf("%d", f.ID),
		Score:    clamp01(score),
		Fact:     f,
	}
	if f.DocumentID != nil {
		u.DocumentID = *f.DocumentID
	}
	u.Label = fmt.Sprintf("fact %d", f.ID)
	if u.DocumentID != 0 {
		u.Label = fmt.Sprintf("fact %d (doc %d)", f.ID, u.DocumentID)
	}
	return u
}

// Hop is one entity -> relation -> entity step of a graph path
type Hop struct {
	From        uuid.UUID `json:"from"`
	FromName    string    `json:"from_name"`
	Relation    string    `json:"relation"`
	To          uuid.UUID `json:"to"`
	ToName      string    `json:"to_name"`
	Weight      float64   `json:"weight"`
	EvidenceIDs []int64   `json:"evidence_ids,omitempty"`
}

// GraphPath is an ordered chain of hops connecting two resolved entities
type GraphPath struct {
	Hops []Hop `json:"hops"`
	// AggregateWeight is the mean effective hop weight
	AggregateWeight float64 `json:"aggregate_weight"`
}

// Length is the number of hops.
func (p *GraphPath) Length() int { return len(p.Hops) }

// SupportingFacts counts the evidence ids over all hops.
func (p *GraphPath) SupportingFacts() int {
	n := 0
	for _, h := range p.Hops {
		n += len(h.EvidenceIDs)
	}
	return n
}

// NodeKey is the ordered node id chain, unique per path.
func (p *GraphPath) NodeKey() string {
	if len(p.Hops) == 0 {
		return ""
	}
	parts := make([]string, 0, len(p.Hops)+1)
	parts = append(parts, p.Hops[0].From.String())
	for _, h := range p.Hops {
		parts = append(parts, h.To.String())
	}
	return strings.Join(parts, ">")
}

// Render writes the path as "A relation B relation C".
func (p *GraphPath) Render() string {
	if len(p.Hops) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(p.Hops[0].FromName)
	for _, h := range p.Hops {
		b.WriteString(" ")
		b.WriteString(h.Relation)
		b.WriteString(" ")
		b.WriteString(h.ToName)
	}
	return b.String()
}

// NewPathUnit wraps a graph path. Shorter and heavier paths score higher.
func NewPathUnit(p *GraphPath) *EvidenceUnit {
	score := 0.0
	if p.Length() > 0 {
		score = clamp01(p.AggregateWeight) / float64(p.Length())
	}
	names := make([]string, 0, len(p.Hops)+1)
	if len(p.Hops) > 0 {
		names = append(names, p.Hops[0].FromName)
	}
	for _, h := range p.Hops {
		names = append(names, h.ToName)
	}
	return &EvidenceUnit{
		Kind:     EvidenceGraphPath,
		SourceID: p.NodeKey(),
		Score:    score,
		Label:    "path " + strings.Join(names, " -> "),
		Path:     p,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
