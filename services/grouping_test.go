package services

import (
	"fmt"
	"math/rand"
	"testing"

	"scz-inmuebles/models"
)

func TestDisjointSet(t *testing.T) {
	ds := NewDisjointSet([]string{"a", "b", "c", "d"})
	if !ds.Union("a", "b") {
		t.Error("Union(a, b) should merge")
	}
	if ds.Union("b", "a") {
		t.Error("second Union(b, a) should report no change")
	}
	ds.Union("c", "d")
	if ds.Connected("a", "c") {
		t.Error("a and c must not be connected yet")
	}
	ds.Union("b", "d")
	if !ds.Connected("a", "c") {
		t.Error("a and c should be connected through b-d")
	}
	if got := len(ds.Components()); got != 1 {
		t.Errorf("Components() = %d; want 1", got)
	}
}

// referenceComponents labels components by depth-first search.
func referenceComponents(ids []string, edges []models.SimilarityEdge) map[string]int {
	adj := make(map[string][]string)
	for _, e := range edges {
		adj[e.A] = append(adj[e.A], e.B)
		adj[e.B] = append(adj[e.B], e.A)
	}
	label := make(map[string]int)
	next := 0
	for _, id := range ids {
		if _, ok := label[id]; ok {
			continue
		}
		stack := []string{id}
		label[id] = next
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, n := range adj[cur] {
				if _, ok := label[n]; !ok {
					label[n] = next
					stack = append(stack, n)
				}
			}
		}
		next++
	}
	return label
}

func TestGroupDuplicatesIsPartition(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for round := 0; round < 20; round++ {
		n := 5 + r.Intn(40)
		props := make([]*models.Property, n)
		ids := make([]string, n)
		for i := range props {
			ids[i] = fmt.Sprintf("p%02d", i)
			props[i] = &models.Property{ID: ids[i]}
		}
		var edges []models.SimilarityEdge
		for k := r.Intn(n); k > 0; k-- {
			edges = append(edges, models.SimilarityEdge{A: ids[r.Intn(n)], B: ids[r.Intn(n)]})
		}

		groups := GroupDuplicates(props, edges)
		want := referenceComponents(ids, edges)

		seen := make(map[string]int)
		for gi, g := range groups {
			for _, id := range g.Members {
				if _, dup := seen[id]; dup {
					t.Fatalf("round %d: %s in two groups", round, id)
				}
				seen[id] = gi
			}
		}
		if len(seen) != n {
			t.Fatalf("round %d: groups cover %d of %d ids", round, len(seen), n)
		}
		for _, e := range edges {
			if seen[e.A] != seen[e.B] {
				t.Fatalf("round %d: edge %s-%s split across groups", round, e.A, e.B)
			}
		}
		for _, a := range ids {
			for _, b := range ids {
				if (want[a] == want[b]) != (seen[a] == seen[b]) {
					t.Fatalf("round %d: %s/%s grouping differs from reference", round, a, b)
				}
			}
		}
	}
}

func TestGroupDuplicatesIgnoresUnknownIDs(t *testing.T) {
	props := []*models.Property{{ID: "a"}, {ID: "b"}}
	groups := GroupDuplicates(props, []models.SimilarityEdge{{A: "a", B: "zzz"}})
	if len(groups) != 2 {
		t.Errorf("GroupDuplicates() = %+v; want two singletons", groups)
	}
}

func TestCanonicalIsLatestSnapshot(t *testing.T) {
	mk := func(id, date string) *models.Property {
		return &models.Property{ID: id, SnapshotDate: day(date), SourceFile: "c21_" + date + ".xlsx"}
	}
	props := []*models.Property{mk("x", "2025-08-15"), mk("z", "2025-08-29"), mk("y", "2025-08-17")}
	edges := []models.SimilarityEdge{{A: "x", B: "y"}, {A: "y", B: "z"}}

	groups := GroupDuplicates(props, edges)
	if len(groups) != 1 || groups[0].Canonical != "z" {
		t.Fatalf("GroupDuplicates() = %+v; want one group with canonical z", groups)
	}
	byID := map[string]*models.Property{"x": props[0], "z": props[1], "y": props[2]}
	ApplyCanonical(groups[0], byID)

	canon := byID["z"]
	if canon.PreviousVersions != 2 {
		t.Errorf("PreviousVersions = %d; want 2", canon.PreviousVersions)
	}
	if canon.LastUpdated == nil || !canon.LastUpdated.Equal(day("2025-08-29")) {
		t.Errorf("LastUpdated = %v; want 2025-08-29", canon.LastUpdated)
	}
	for _, id := range []string{"x", "y"} {
		if byID[id].CanonicalID != "z" || byID[id].PreviousVersions != 0 {
			t.Errorf("%s = %q/%d; want pointer to z", id, byID[id].CanonicalID, byID[id].PreviousVersions)
		}
	}
}

func TestSelectCanonicalTieBreak(t *testing.T) {
	d := day("2025-08-15")
	members := []*models.Property{
		{ID: "b", SnapshotDate: d, SourceFile: "c21_a.xlsx"},
		{ID: "a", SnapshotDate: d, SourceFile: "c21_b.xlsx"},
		{ID: "c", SnapshotDate: d, SourceFile: "c21_a.xlsx"},
	}
	if got := SelectCanonical(members).ID; got != "a" {
		t.Errorf("SelectCanonical() = %q; want a (later source file)", got)
	}
	members[1].SourceFile = "c21_a.xlsx"
	if got := SelectCanonical(members).ID; got != "c" {
		t.Errorf("SelectCanonical() = %q; want c (highest id)", got)
	}
	if SelectCanonical(nil) != nil {
		t.Error("SelectCanonical(nil) should be nil")
	}
}

func TestApplyCanonicalFillsGapsFromNewestFirst(t *testing.T) {
	oldest := &models.Property{ID: "o", SnapshotDate: day("2025-08-01")}
	oldest.Zone, oldest.Bedrooms = "Sirari", iptr(2)
	middle := &models.Property{ID: "m", SnapshotDate: day("2025-08-10")}
	middle.Bedrooms = iptr(3)
	newest := &models.Property{ID: "n", SnapshotDate: day("2025-08-20")}

	g := models.DuplicateGroup{ID: 1, Members: []string{"o", "m", "n"}, Canonical: "n"}
	ApplyCanonical(g, map[string]*models.Property{"o": oldest, "m": middle, "n": newest})

	if newest.Bedrooms == nil || *newest.Bedrooms != 3 {
		t.Errorf("Bedrooms = %v; want 3 from the newer version", newest.Bedrooms)
	}
	if newest.Zone != "Sirari" {
		t.Errorf("Zone = %q; want Sirari", newest.Zone)
	}

	for _, p := range []*models.Property{oldest, middle, newest} {
		if p.CanonicalID != "n" {
			t.Errorf("%s.CanonicalID = %q; want n", p.ID, p.CanonicalID)
		}
	}
}
