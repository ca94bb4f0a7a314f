package services

import (
	"context"

	"scz-inmuebles/models"
	"scz-inmuebles/utils"
)

// Dedup scopes: compare every pair, or only pairs from the same provider.
const (
	ScopeAll      = "all"
	ScopeProvider = "provider"
)

// DedupResult is the outcome of a deduplication run.
type DedupResult struct {
	Properties []*models.Property
	Canonical  []*models.Property
	Groups     []models.DuplicateGroup
	Edges      []models.SimilarityEdge

	ExactMerges     int
	PairsCompared   int
	DuplicateGroups int
}

// Deduplicator resolves probable duplicates into groups and marks the
// canonical record of each.
type Deduplicator struct {
	scorer *DuplicateScorer
	scope  string
	logger *utils.Logger
}

// NewDeduplicator creates a Deduplicator. An unknown scope compares all pairs.
func NewDeduplicator(scorer *DuplicateScorer, scope string, logger *utils.Logger) *Deduplicator {
	if scorer == nil {
		scorer = NewDuplicateScorer(DefaultDuplicateConfig())
	}
	if scope != ScopeProvider {
		scope = ScopeAll
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Deduplicator{scorer: scorer, scope: scope, logger: logger}
}

// Resolve groups props in place. Identity keys join exact matches first; the
// remaining pairs are scored. Properties with an empty id are ignored.
func (d *Deduplicator) Resolve(ctx context.Context, props []*models.Property) (*DedupResult, error) {
	list := make([]*models.Property, 0, len(props))
	byID := make(map[string]*models.Property, len(props))
	for _, p := range props {
		if p == nil || p.ID == "" {
			continue
		}
		if _, dup := byID[p.ID]; dup {
			continue
		}
		byID[p.ID] = p
		list = append(list, p)
	}

	res := &DedupResult{Properties: list}
	ids := make([]string, len(list))
	for i, p := range list {
		ids[i] = p.ID
	}
	ds := NewDisjointSet(ids)

	owners := make(map[string]string, len(list))
	for _, p := range list {
		key := IdentityKey(p)
		owner, seen := owners[key]
		if !seen {
			owners[key] = p.ID
			continue
		}
		if ds.Union(owner, p.ID) {
			res.ExactMerges++
			res.Edges = append(res.Edges, models.SimilarityEdge{
				A: owner, B: p.ID, Score: 1, Reason: "misma clave " + keyKind(key),
			})
		}
	}

	for i := 0; i < len(list); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a := list[i]
		for j := i + 1; j < len(list); j++ {
			b := list[j]
			if d.scope == ScopeProvider && normalizeProvider(a.Provider) != normalizeProvider(b.Provider) {
				continue
			}
			if ds.Connected(a.ID, b.ID) {
				continue
			}
			res.PairsCompared++

			sim := d.scorer.cheap(a, b)
			if !d.scorer.mayMatch(sim) {
				continue
			}
			sim.Title = TitleSimilarity(a.Title, b.Title)
			sim.Score = d.scorer.weighted(sim)
			dup, reason := d.scorer.decide(sim)
			if !dup {
				continue
			}
			ds.Union(a.ID, b.ID)
			res.Edges = append(res.Edges, models.SimilarityEdge{A: a.ID, B: b.ID, Score: sim.Score, Reason: reason})
			d.logger.Debug("[dedup] %s ~ %s (%.2f, %s)", a.ID, b.ID, sim.Score, reason)
		}
	}

	res.Groups = GroupDuplicates(list, res.Edges)
	for _, g := range res.Groups {
		ApplyCanonical(g, byID)
		if g.Size() > 1 {
			res.DuplicateGroups++
		}
	}
	for _, p := range list {
		if p.CanonicalID == p.ID {
			res.Canonical = append(res.Canonical, p)
		}
	}

	d.logger.Info("[dedup] %d properties → %d canonical (%d groups with duplicates, %d exact merges)",
		len(list), len(res.Canonical), res.DuplicateGroups, res.ExactMerges)
	return res, nil
}
