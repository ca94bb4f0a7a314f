package services

import (
	"sort"

	"scz-inmuebles/models"
)

// DisjointSet is a union-find over string ids with path compression and union
// by rank.
type DisjointSet struct {
	parent map[string]string
	rank   map[string]int
	order  []string
}

// NewDisjointSet creates a set with each id in its own component.
func NewDisjointSet(ids []string) *DisjointSet {
	ds := &DisjointSet{
		parent: make(map[string]string, len(ids)),
		rank:   make(map[string]int, len(ids)),
	}
	for _, id := range ids {
		ds.Add(id)
	}
	return ds
}

// Add inserts id as a singleton. Known ids are left untouched.
func (ds *DisjointSet) Add(id string) {
	if _, ok := ds.parent[id]; ok {
		return
	}
	ds.parent[id] = id
	ds.order = append(ds.order, id)
}

// Has reports whether id is in the set.
func (ds *DisjointSet) Has(id string) bool {
	_, ok := ds.parent[id]
	return ok
}

// Find returns the representative of id's component.
func (ds *DisjointSet) Find(id string) string {
	root := id
	for ds.parent[root] != root {
		root = ds.parent[root]
	}
	for id != root {
		next := ds.parent[id]
		ds.parent[id] = root
		id = next
	}
	return root
}

// Union merges the components of a and b. It returns false when they were
// already joined.
func (ds *DisjointSet) Union(a, b string) bool {
	ra, rb := ds.Find(a), ds.Find(b)
	if ra == rb {
		return false
	}
	switch {
	case ds.rank[ra] < ds.rank[rb]:
		ds.parent[ra] = rb
	case ds.rank[ra] > ds.rank[rb]:
		ds.parent[rb] = ra
	default:
		ds.parent[rb] = ra
		ds.rank[ra]++
	}
	return true
}

// Connected reports whether a and b are in the same component.
func (ds *DisjointSet) Connected(a, b string) bool {
	return ds.Find(a) == ds.Find(b)
}

// Components returns every component, ordered by its first inserted member.
// Members keep insertion order.
func (ds *DisjointSet) Components() [][]string {
	index := make(map[string]int)
	var out [][]string
	for _, id := range ds.order {
		root := ds.Find(id)
		i, ok := index[root]
		if !ok {
			i = len(out)
			index[root] = i
			out = append(out, nil)
		}
		out[i] = append(out[i], id)
	}
	return out
}

// GroupDuplicates partitions props into connected components of edges. Every
// property ends up in exactly one group; singletons form their own group.
// Edges naming unknown ids are ignored.
func GroupDuplicates(props []*models.Property, edges []models.SimilarityEdge) []models.DuplicateGroup {
	byID := make(map[string]*models.Property, len(props))
	ids := make([]string, 0, len(props))
	for _, p := range props {
		if _, dup := byID[p.ID]; dup {
			continue
		}
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	ds := NewDisjointSet(ids)
	for _, e := range edges {
		if ds.Has(e.A) && ds.Has(e.B) {
			ds.Union(e.A, e.B)
		}
	}

	comps := ds.Components()
	groups := make([]models.DuplicateGroup, 0, len(comps))
	for i, members := range comps {
		list := make([]*models.Property, len(members))
		for j, id := range members {
			list[j] = byID[id]
		}
		groups = append(groups, models.DuplicateGroup{
			ID:        i + 1,
			Members:   members,
			Canonical: SelectCanonical(list).ID,
		})
	}
	return groups
}

// SelectCanonical returns the most recent member: latest snapshot date, then
// source file, then id.
func SelectCanonical(members []*models.Property) *models.Property {
	if len(members) == 0 {
		return nil
	}
	sorted := byRecency(members)
	return sorted[len(sorted)-1]
}

// byRecency returns a copy of members sorted oldest first.
func byRecency(members []*models.Property) []*models.Property {
	sorted := make([]*models.Property, len(members))
	copy(sorted, members)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.SnapshotDate.Equal(b.SnapshotDate) {
			return a.SnapshotDate.Before(b.SnapshotDate)
		}
		if a.SourceFile != b.SourceFile {
			return a.SourceFile < b.SourceFile
		}
		return a.ID < b.ID
	})
	return sorted
}

// ApplyCanonical records the group outcome on its members: every member points
// to the canonical id, and the canonical carries the version count, its last
// update date and the fields only older versions had.
func ApplyCanonical(g models.DuplicateGroup, byID map[string]*models.Property) {
	members := make([]*models.Property, 0, len(g.Members))
	for _, id := range g.Members {
		if p, ok := byID[id]; ok {
			members = append(members, p)
		}
	}
	canon, ok := byID[g.Canonical]
	if !ok {
		return
	}

	for _, p := range members {
		p.CanonicalID = canon.ID
		if p != canon {
			p.PreviousVersions = 0
			p.LastUpdated = nil
		}
	}

	canon.PreviousVersions = len(members) - 1
	canon.LastUpdated = nil
	if len(members) > 1 && !canon.SnapshotDate.IsZero() {
		last := canon.SnapshotDate
		canon.LastUpdated = &last
	}

	older := byRecency(members)
	for i := len(older) - 1; i >= 0; i-- {
		if older[i] != canon {
			fillGaps(canon, older[i])
		}
	}
}

// fillGaps copies into dst the fields it lacks and src has.
func fillGaps(dst, src *models.Property) {
	if dst.Price == nil && src.Price != nil {
		dst.Price = src.Price
		dst.Currency = src.Currency
		dst.CurrencyGuess = src.CurrencyGuess
	}
	if dst.Bedrooms == nil {
		dst.Bedrooms = src.Bedrooms
	}
	if dst.Bathrooms == nil {
		dst.Bathrooms = src.Bathrooms
	}
	if dst.Garages == nil {
		dst.Garages = src.Garages
	}
	if dst.LotArea == nil {
		dst.LotArea = src.LotArea
	}
	if dst.BuiltArea == nil {
		dst.BuiltArea = src.BuiltArea
	}
	if dst.TotalArea == nil {
		dst.TotalArea = src.TotalArea
	}
	if dst.Zone == "" {
		dst.Zone = src.Zone
	}
	if dst.PropertyType == "" {
		dst.PropertyType = src.PropertyType
	}
	if len(dst.Amenities) == 0 && len(src.Amenities) > 0 {
		dst.Amenities = append([]string(nil), src.Amenities...)
	}
	if !dst.HasCoordinates() && src.HasCoordinates() {
		dst.Latitude, dst.Longitude = src.Latitude, src.Longitude
	}
	if dst.URL == "" {
		dst.URL = src.URL
	}
	if dst.Description == "" {
		dst.Description = src.Description
	}
}
