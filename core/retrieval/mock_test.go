package retrieval

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/grounder/model"
)

type mockIndex struct {
	fragments []*model.TextFragment
	err       error
	gotK      int
	gotMin    float64
}

func (m *mockIndex) SearchFragments(ctx context.Context, embedding []float32, k int, minScore float64) ([]*model.TextFragment, error) {
	m.gotK, m.gotMin = k, minScore
	if m.err != nil {
		return nil, m.err
	}
	return m.fragments, nil
}

type mockFactStore struct {
	facts    []*model.Fact
	err      error
	gotKW    []string
	gotSince *time.Time
}

func (m *mockFactStore) FindFacts(ctx context.Context, keywords []string, minConfidence float64, since *time.Time, limit int) ([]*model.Fact, error) {
	m.gotKW, m.gotSince = keywords, since
	if m.err != nil {
		return nil, m.err
	}
	return m.facts, nil
}

type mockGraphStore struct {
	entities  map[string]*model.Entity
	byID      map[uuid.UUID]*model.Entity
	relations map[uuid.UUID][]*model.Relation
	err       error
	gotNames  []string
}

func newMockGraphStore() *mockGraphStore {
	return &mockGraphStore{
		entities:  map[string]*model.Entity{},
		byID:      map[uuid.UUID]*model.Entity{},
		relations: map[uuid.UUID][]*model.Relation{},
	}
}

func (m *mockGraphStore) add(name string) uuid.UUID {
	e := &model.Entity{ID: uuid.New(), Name: name}
	m.entities[name] = e
	m.byID[e.ID] = e
	return e.ID
}

func (m *mockGraphStore) relate(from, to uuid.UUID, relationType string, weight float64) {
	m.relations[from] = append(m.relations[from], &model.Relation{
		ID: uuid.New(), SourceEntityID: from, TargetEntityID: to, RelationType: relationType, Weight: weight,
	})
}

func (m *mockGraphStore) ResolveEntities(ctx context.Context, names []string, minSimilarity float64) ([]*model.Entity, error) {
	m.gotNames = names
	if m.err != nil {
		return nil, m.err
	}
	var out []*model.Entity
	for _, n := range names {
		if e, ok := m.entities[n]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockGraphStore) SelectEntity(ctx context.Context, id uuid.UUID) (*model.Entity, error) {
	e, ok := m.byID[id]
	if !ok {
		return nil, model.ErrSourceUnavailable
	}
	return e, nil
}

func (m *mockGraphStore) SelectRelationsFromEntity(ctx context.Context, entityID uuid.UUID) ([]*model.Relation, error) {
	return m.relations[entityID], nil
}

// slowRetriever blocks until its context is done
type slowRetriever struct{}

func (slowRetriever) Strategy() model.PolicyType { return model.PolicyGraph }

func (slowRetriever) Retrieve(ctx context.Context, query model.Query, config model.Config) (*model.RetrievalResult, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func fixedEmbedder(text string) ([]float32, error) { return []float32{1, 0, 0}, nil }

func mustQuery(text string, opts ...model.QueryOption) model.Query {
	q, err := model.NewQuery(text, opts...)
	if err != nil {
		panic(err)
	}
	return q
}
