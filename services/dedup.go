package services

import (
	"math"
	"strings"

	"scz-inmuebles/extractor"
	"scz-inmuebles/models"
)

// metersPerDegree is the length of one degree of latitude.
const metersPerDegree = 111320.0

// DuplicateWeights are the component weights of the duplicate score.
type DuplicateWeights struct {
	Title     float64
	Price     float64
	Coords    float64
	Structure float64
	Zone      float64
}

// DefaultWeights returns the production weights.
func DefaultWeights() DuplicateWeights {
	return DuplicateWeights{Title: 0.7, Price: 0.6, Coords: 0.8, Structure: 0.5, Zone: 0.4}
}

func (w DuplicateWeights) sum() float64 {
	return w.Title + w.Price + w.Coords + w.Structure + w.Zone
}

// DistanceTier maps a distance bound in meters to a coordinate similarity.
type DistanceTier struct {
	MaxMeters float64
	Score     float64
}

// DuplicateThresholds are the bounds of the duplicate decision rules.
type DuplicateThresholds struct {
	TitleWithPrice  float64 // title part of the title+price rule
	PriceWithTitle  float64
	TitleWithCoords float64 // title part of the title+coordinates rule
	CoordsWithTitle float64
	Score           float64
	SameLocation    float64
	SamePrice       float64
	AreaTolerance   float64
}

// DuplicateConfig holds everything the scorer needs.
type DuplicateConfig struct {
	Weights       DuplicateWeights
	Thresholds    DuplicateThresholds
	DistanceTiers []DistanceTier
	BOBPerUSD     float64
}

// DefaultDuplicateConfig returns the production configuration.
func DefaultDuplicateConfig() DuplicateConfig {
	return DuplicateConfig{
		Weights: DefaultWeights(),
		Thresholds: DuplicateThresholds{
			TitleWithPrice:  0.8,
			PriceWithTitle:  0.9,
			TitleWithCoords: 0.6,
			CoordsWithTitle: 0.8,
			Score:           0.75,
			SameLocation:    0.9,
			SamePrice:       0.95,
			AreaTolerance:   0.10,
		},
		DistanceTiers: []DistanceTier{
			{MaxMeters: 100, Score: 1.0},
			{MaxMeters: 500, Score: 0.8},
			{MaxMeters: 1000, Score: 0.5},
		},
		BOBPerUSD: 6.96,
	}
}

// Similarity is the per-component breakdown of a pair comparison.
type Similarity struct {
	Title     float64
	Price     float64
	Coords    float64
	Structure float64
	Zone      float64
	Score     float64
}

// DuplicateScorer compares two properties. Every component is symmetric, so
// Score(a, b) equals Score(b, a).
type DuplicateScorer struct {
	cfg DuplicateConfig
}

// NewDuplicateScorer creates a scorer. Missing tiers or rate fall back to the
// defaults.
func NewDuplicateScorer(cfg DuplicateConfig) *DuplicateScorer {
	def := DefaultDuplicateConfig()
	if len(cfg.DistanceTiers) == 0 {
		cfg.DistanceTiers = def.DistanceTiers
	}
	if cfg.BOBPerUSD <= 0 {
		cfg.BOBPerUSD = def.BOBPerUSD
	}
	if cfg.Weights.sum() <= 0 {
		cfg.Weights = def.Weights
	}
	return &DuplicateScorer{cfg: cfg}
}

// Config returns the scorer configuration.
func (s *DuplicateScorer) Config() DuplicateConfig { return s.cfg }

// Score computes all components and the weighted average.
func (s *DuplicateScorer) Score(a, b *models.Property) Similarity {
	sim := s.cheap(a, b)
	sim.Title = TitleSimilarity(a.Title, b.Title)
	sim.Score = s.weighted(sim)
	return sim
}

// cheap fills every component except the title.
func (s *DuplicateScorer) cheap(a, b *models.Property) Similarity {
	return Similarity{
		Price:     s.priceSimilarity(a, b),
		Coords:    s.coordSimilarity(a, b),
		Structure: s.structureSimilarity(a, b),
		Zone:      zoneSimilarity(a.Zone, b.Zone),
	}
}

func (s *DuplicateScorer) weighted(sim Similarity) float64 {
	w := s.cfg.Weights
	total := w.Title*sim.Title + w.Price*sim.Price + w.Coords*sim.Coords +
		w.Structure*sim.Structure + w.Zone*sim.Zone
	return total / w.sum()
}

// IsProbableDuplicate applies the decision rules to the pair.
func (s *DuplicateScorer) IsProbableDuplicate(a, b *models.Property) (bool, float64) {
	dup, sim, _ := s.Evaluate(a, b)
	return dup, sim.Score
}

// Evaluate scores the pair and returns the decision with a reason. The reason
// is empty when the pair is not a duplicate.
func (s *DuplicateScorer) Evaluate(a, b *models.Property) (bool, Similarity, string) {
	sim := s.Score(a, b)
	dup, reason := s.decide(sim)
	return dup, sim, reason
}

func (s *DuplicateScorer) decide(sim Similarity) (bool, string) {
	th := s.cfg.Thresholds
	titlePrice := sim.Title > th.TitleWithPrice && sim.Price > th.PriceWithTitle
	titleCoords := sim.Title > th.TitleWithCoords && sim.Coords > th.CoordsWithTitle
	byScore := sim.Score > th.Score

	switch {
	case titlePrice:
		return true, "titulo y precio similares"
	case titleCoords:
		return true, "titulo similar y ubicacion cercana"
	case !byScore:
		return false, ""
	case sim.Coords > th.SameLocation:
		return true, "misma ubicacion"
	case sim.Price > th.SamePrice:
		return true, "mismo precio"
	default:
		return true, "multiples atributos similares"
	}
}

// mayMatch reports whether a pair could still pass a rule once its title is
// scored, assuming a perfect title. It lets callers skip the costly title
// comparison without changing any decision.
func (s *DuplicateScorer) mayMatch(sim Similarity) bool {
	th := s.cfg.Thresholds
	if sim.Price > th.PriceWithTitle || sim.Coords > th.CoordsWithTitle {
		return true
	}
	best := sim
	best.Title = 1
	return s.weighted(best) > th.Score
}

func (s *DuplicateScorer) priceSimilarity(a, b *models.Property) float64 {
	pa, ok := s.priceUSD(&a.ExtractedFields)
	if !ok {
		return 0
	}
	pb, ok := s.priceUSD(&b.ExtractedFields)
	if !ok {
		return 0
	}
	avg := (pa + pb) / 2
	return math.Max(0, 1-math.Abs(pa-pb)/avg)
}

func (s *DuplicateScorer) priceUSD(f *models.ExtractedFields) (float64, bool) {
	if f.Price == nil || *f.Price <= 0 {
		return 0, false
	}
	if f.Currency == models.BOB {
		return *f.Price / s.cfg.BOBPerUSD, true
	}
	return *f.Price, true
}

func (s *DuplicateScorer) coordSimilarity(a, b *models.Property) float64 {
	if !a.HasCoordinates() || !b.HasCoordinates() {
		return 0
	}
	d := DistanceMeters(*a.Latitude, *a.Longitude, *b.Latitude, *b.Longitude)
	for _, tier := range s.cfg.DistanceTiers {
		if d < tier.MaxMeters {
			return tier.Score
		}
	}
	return 0
}

// DistanceMeters is the equirectangular distance between two points, accurate
// at city scale.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	meanLat := (lat1 + lat2) / 2 * math.Pi / 180
	dy := (lat2 - lat1) * metersPerDegree
	dx := (lon2 - lon1) * metersPerDegree * math.Cos(meanLat)
	return math.Hypot(dx, dy)
}

func (s *DuplicateScorer) structureSimilarity(a, b *models.Property) float64 {
	holds := 0
	if a.Bedrooms != nil && b.Bedrooms != nil && *a.Bedrooms == *b.Bedrooms {
		holds++
	}
	if a.Bathrooms != nil && b.Bathrooms != nil && *a.Bathrooms == *b.Bathrooms {
		holds++
	}
	if areaA, areaB := a.Area(), b.Area(); areaA != nil && areaB != nil {
		hi := math.Max(*areaA, *areaB)
		if hi > 0 && math.Abs(*areaA-*areaB)/hi <= s.cfg.Thresholds.AreaTolerance {
			holds++
		}
	}
	return float64(holds) / 3
}

func zoneSimilarity(a, b string) float64 {
	a, b = extractor.NormalizeKey(a), extractor.NormalizeKey(b)
	if a == "" || b == "" || a != b {
		return 0
	}
	return 1
}

// TitleSimilarity is the Ratcliff/Obershelp ratio of the normalized titles.
// The shorter key is always passed first so the result does not depend on
// argument order.
func TitleSimilarity(a, b string) float64 {
	ka, kb := extractor.NormalizeKey(a), extractor.NormalizeKey(b)
	if ka == "" || kb == "" {
		return 0
	}
	if len(kb) < len(ka) || (len(kb) == len(ka) && kb < ka) {
		ka, kb = kb, ka
	}
	return ratcliffRatio([]rune(ka), []rune(kb))
}

func ratcliffRatio(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingRunes(a, b)) / float64(total)
}

// matchingRunes counts the runes of the longest common block plus, recursively,
// the matches to its left and right.
func matchingRunes(a, b []rune) int {
	i, j, k := longestBlock(a, b)
	if k == 0 {
		return 0
	}
	return k + matchingRunes(a[:i], b[:j]) + matchingRunes(a[i+k:], b[j+k:])
}

// longestBlock returns the earliest longest common substring of a and b.
func longestBlock(a, b []rune) (int, int, int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}
	bestI, bestJ, bestK := 0, 0, 0
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > bestK {
					bestI, bestJ, bestK = i-cur[j], j-cur[j], cur[j]
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return bestI, bestJ, bestK
}

func normalizeProvider(p string) string {
	return strings.ToLower(strings.TrimSpace(p))
}
