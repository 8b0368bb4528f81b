package graph

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/siherrmann/grounder/helper"
	"github.com/siherrmann/grounder/model"
)

// EvidenceBonus is added to a hop weight per supporting fact
const EvidenceBonus = 0.1

// GraphDB defines the interface for graph operations
type GraphDB interface {
	SelectEntity(ctx context.Context, id uuid.UUID) (*model.Entity, error)
	SelectRelationsFromEntity(ctx context.Context, entityID uuid.UUID) ([]*model.Relation, error)
}

// Limits bound the search. Zero or negative values disable the search.
type Limits struct {
	MaxDepth  int
	MaxPaths  int
	MaxFanOut int
}

// partial is a path under construction
type partial struct {
	nodes []uuid.UUID
	hops  []*model.Relation
}

func (p partial) visits(id uuid.UUID) bool {
	for _, n := range p.nodes {
		if n == id {
			return true
		}
	}
	return false
}

// BoundedPaths performs a breadth-first search from every source towards any target
// and returns at most limits.MaxPaths simple paths of at most limits.MaxDepth hops.
// Each node expands at most limits.MaxFanOut relations, heaviest first.
// Paths are ranked by length, then aggregate weight, then supporting facts.
func BoundedPaths(ctx context.Context, db GraphDB, sourceIDs, targetIDs []uuid.UUID, limits Limits) ([]*model.GraphPath, error) {
	if limits.MaxDepth <= 0 || limits.MaxPaths <= 0 || limits.MaxFanOut <= 0 {
		return []*model.GraphPath{}, nil
	}

	targets := make(map[uuid.UUID]bool, len(targetIDs))
	for _, id := range targetIDs {
		targets[id] = true
	}

	relationsCache := make(map[uuid.UUID][]*model.Relation)
	neighbors := func(id uuid.UUID) ([]*model.Relation, error) {
		if rels, ok := relationsCache[id]; ok {
			return rels, nil
		}
		rels, err := db.SelectRelationsFromEntity(ctx, id)
		if err != nil {
			return nil, helper.NewError("select relations", err)
		}
		if len(rels) > limits.MaxFanOut {
			rels = rels[:limits.MaxFanOut]
		}
		relationsCache[id] = rels
		return rels, nil
	}

	seen := make(map[string]bool)
	var found []partial

	queue := make([]partial, 0, len(sourceIDs))
	for _, id := range uniqueSorted(sourceIDs) {
		queue = append(queue, partial{nodes: []uuid.UUID{id}})
	}

	for depth := 1; depth <= limits.MaxDepth && len(queue) > 0; depth++ {
		var next []partial
		for _, current := range queue {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			last := current.nodes[len(current.nodes)-1]
			rels, err := neighbors(last)
			if err != nil {
				return nil, err
			}

			for _, rel := range rels {
				other, ok := rel.Other(last)
				if !ok || current.visits(other) {
					continue
				}

				extended := partial{
					nodes: append(append(make([]uuid.UUID, 0, len(current.nodes)+1), current.nodes...), other),
					hops:  append(append(make([]*model.Relation, 0, len(current.hops)+1), current.hops...), rel),
				}

				if targets[other] && other != current.nodes[0] {
					key := relationKey(extended.hops)
					if !seen[key] {
						seen[key] = true
						found = append(found, extended)
					}
					continue
				}
				next = append(next, extended)
			}
		}

		// Shorter paths always rank first, deeper levels cannot displace them.
		if len(found) >= limits.MaxPaths {
			break
		}
		queue = next
	}

	paths := make([]*model.GraphPath, 0, len(found))
	names := newNameCache(db)
	for _, p := range found {
		path, err := buildPath(ctx, p, names)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	RankPaths(paths)
	if len(paths) > limits.MaxPaths {
		paths = paths[:limits.MaxPaths]
	}

	return paths, nil
}

// RankPaths sorts paths by shorter length, higher aggregate weight,
// more supporting facts and finally node key.
func RankPaths(paths []*model.GraphPath) {
	sort.SliceStable(paths, func(i, j int) bool {
		a, b := paths[i], paths[j]
		if a.Length() != b.Length() {
			return a.Length() < b.Length()
		}
		if a.AggregateWeight != b.AggregateWeight {
			return a.AggregateWeight > b.AggregateWeight
		}
		if a.SupportingFacts() != b.SupportingFacts() {
			return a.SupportingFacts() > b.SupportingFacts()
		}
		return a.NodeKey() < b.NodeKey()
	})
}

// EffectiveWeight is the relation weight plus a bonus per evidence fact.
func EffectiveWeight(rel *model.Relation) float64 {
	return rel.Weight + EvidenceBonus*float64(len(rel.EvidenceFactIDs))
}

func buildPath(ctx context.Context, p partial, names *nameCache) (*model.GraphPath, error) {
	path := &model.GraphPath{Hops: make([]model.Hop, 0, len(p.hops))}
	total := 0.0
	for i, rel := range p.hops {
		from, to := p.nodes[i], p.nodes[i+1]
		fromName, err := names.get(ctx, from)
		if err != nil {
			return nil, err
		}
		toName, err := names.get(ctx, to)
		if err != nil {
			return nil, err
		}
		path.Hops = append(path.Hops, model.Hop{
			From:        from,
			FromName:    fromName,
			Relation:    rel.RelationType,
			To:          to,
			ToName:      toName,
			Weight:      rel.Weight,
			EvidenceIDs: rel.EvidenceFactIDs,
		})
		total += EffectiveWeight(rel)
	}
	if len(p.hops) > 0 {
		path.AggregateWeight = total / float64(len(p.hops))
	}
	return path, nil
}

// relationKey identifies a path by its relations regardless of walking direction.
func relationKey(hops []*model.Relation) string {
	ids := make([]string, len(hops))
	for i, rel := range hops {
		ids[i] = rel.ID.String()
	}
	forward := strings.Join(ids, ",")
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	backward := strings.Join(ids, ",")
	if backward < forward {
		return backward
	}
	return forward
}

func uniqueSorted(ids []uuid.UUID) []uuid.UUID {
	set := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !set[id] {
			set[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

type nameCache struct {
	db    GraphDB
	names map[uuid.UUID]string
}

func newNameCache(db GraphDB) *nameCache {
	return &nameCache{db: db, names: make(map[uuid.UUID]string)}
}

func (c *nameCache) get(ctx context.Context, id uuid.UUID) (string, error) {
	if name, ok := c.names[id]; ok {
		return name, nil
	}
	entity, err := c.db.SelectEntity(ctx, id)
	if err != nil {
		return "", helper.NewError("select entity", err)
	}
	c.names[id] = entity.Name
	return entity.Name, nil
}
