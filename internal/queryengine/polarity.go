package queryengine

import (
	"context"
	"math"

	"github.com/kgraph/kgraph/internal/apperr"
	"github.com/kgraph/kgraph/internal/graphstore"
	"github.com/kgraph/kgraph/internal/vecmath"
)

// subtractFloat64 returns a - b element-wise over already-widened vectors;
// vecmath only exposes Sub for []float32 inputs, so polarity math (which
// works entirely in float64 after the initial widen) needs its own.
func subtractFloat64(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}

const weakAxisMagnitude = 0.1

// Direction classifies a candidate's position along a polarity axis.
type Direction string

const (
	DirectionPositive Direction = "positive"
	DirectionNegative Direction = "negative"
	DirectionNeutral  Direction = "neutral"
)

// CorrelationStrength buckets |r| per spec §4.11 step 6.
type CorrelationStrength string

const (
	CorrelationStrong   CorrelationStrength = "strong"
	CorrelationModerate CorrelationStrength = "moderate"
	CorrelationWeak     CorrelationStrength = "weak"
)

// Projection is one candidate's position relative to a polarity axis.
type Projection struct {
	ConceptID    string
	Position     float64
	AxisDistance float64
	Direction    Direction
	Grounding    *float64
}

// PolarityOptions configures one axis-projection request.
type PolarityOptions struct {
	PositivePoleID string
	NegativePoleID string
	CandidateIDs   []string // if empty, auto-discovered within MaxHops of either pole
	MaxHops        int      // default 2, used only for auto-discovery
	WithGrounding  bool
	WithPaths      bool
}

// PolarityResult is the full output of an axis projection.
type PolarityResult struct {
	AxisMagnitude       float64
	WeakAxis            bool
	Projections         []Projection
	CorrelationR        float64
	CorrelationP        float64
	CorrelationStrength CorrelationStrength
	Paths               []ScoredPath
}

// ScoredPath is one pole-to-pole path annotated with coherence and
// curvature metrics (spec §4.11 step 7).
type ScoredPath struct {
	ConceptIDs []string
	Coherence  float64
	Curvature  float64
}

// Polarity computes axis projections, grounding-correlation, and (optionally)
// scored pole-to-pole paths, per spec §4.11.
type Polarity struct {
	store     graphstore.Store
	grounding *GroundingCalculator
	pathf     *Pathfinder
}

func NewPolarity(store graphstore.Store, grounding *GroundingCalculator, pathf *Pathfinder) *Polarity {
	return &Polarity{store: store, grounding: grounding, pathf: pathf}
}

func (pz *Polarity) Project(ctx context.Context, opt PolarityOptions) (PolarityResult, error) {
	if opt.MaxHops <= 0 {
		opt.MaxHops = 2
	}

	posPole, ok, err := pz.store.GetConcept(ctx, opt.PositivePoleID)
	if err != nil {
		return PolarityResult{}, err
	}
	if !ok {
		return PolarityResult{}, apperr.NotFound("positive pole concept %s not found", opt.PositivePoleID)
	}
	negPole, ok, err := pz.store.GetConcept(ctx, opt.NegativePoleID)
	if err != nil {
		return PolarityResult{}, err
	}
	if !ok {
		return PolarityResult{}, apperr.NotFound("negative pole concept %s not found", opt.NegativePoleID)
	}

	axis := vecmath.Sub(posPole.Embedding, negPole.Embedding) // []float64
	magnitude := vecmath.Norm64(axis)

	candidateIDs := opt.CandidateIDs
	if len(candidateIDs) == 0 {
		candidateIDs, err = pz.discoverCandidates(ctx, opt.PositivePoleID, opt.NegativePoleID, opt.MaxHops)
		if err != nil {
			return PolarityResult{}, err
		}
	}

	midpoint := vecmath.Scale64(vecmath.Add64(vecmath.ToFloat64(posPole.Embedding), vecmath.ToFloat64(negPole.Embedding)), 0.5)
	axisSq := magnitude * magnitude

	var groundings map[string]float64
	if opt.WithGrounding {
		groundings, err = pz.grounding.GroundingBatch(ctx, candidateIDs)
		if err != nil {
			return PolarityResult{}, err
		}
	}

	var positions, groundingValues []float64
	projections := make([]Projection, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		c, ok, err := pz.store.GetConcept(ctx, id)
		if err != nil {
			return PolarityResult{}, err
		}
		if !ok || len(c.Embedding) == 0 {
			continue
		}
		relative := subtractFloat64(vecmath.ToFloat64(c.Embedding), midpoint)

		var t float64
		if axisSq > 0 {
			t = vecmath.Dot64(relative, axis) / axisSq
		}
		position := clamp(2*t, -1, 1)

		projAlongAxis := vecmath.Scale64(axis, t)
		orthogonal := subtractFloat64(relative, projAlongAxis)
		axisDistance := vecmath.Norm64(orthogonal)

		dir := DirectionNeutral
		switch {
		case position > 0.3:
			dir = DirectionPositive
		case position < -0.3:
			dir = DirectionNegative
		}

		p := Projection{ConceptID: id, Position: position, AxisDistance: axisDistance, Direction: dir}
		if opt.WithGrounding {
			g := groundings[id]
			p.Grounding = &g
			positions = append(positions, position)
			groundingValues = append(groundingValues, g)
		}
		projections = append(projections, p)
	}

	result := PolarityResult{
		AxisMagnitude: magnitude,
		WeakAxis:      magnitude < weakAxisMagnitude,
		Projections:   projections,
	}

	if opt.WithGrounding && len(positions) >= 2 {
		r, p := vecmath.Pearson(positions, groundingValues)
		result.CorrelationR = r
		result.CorrelationP = p
		result.CorrelationStrength = correlationStrength(r)
	}

	if opt.WithPaths {
		path, err := pz.pathf.ShortestPath(ctx, opt.PositivePoleID, opt.NegativePoleID, PathOptions{})
		if err != nil {
			return PolarityResult{}, err
		}
		if len(path.ConceptIDs) > 1 {
			scored, err := pz.scorePath(ctx, path, midpoint)
			if err != nil {
				return PolarityResult{}, err
			}
			result.Paths = []ScoredPath{scored}
		}
	}

	return result, nil
}

// discoverCandidates expands up to maxHops hops from both poles via batched
// neighbor queries, per spec §4.11 step 3.
func (pz *Polarity) discoverCandidates(ctx context.Context, posID, negID string, maxHops int) ([]string, error) {
	seen := map[string]bool{posID: true, negID: true}
	frontier := []string{posID, negID}
	var all []string

	for hop := 0; hop < maxHops; hop++ {
		if len(frontier) == 0 {
			break
		}
		neighbors, err := pz.store.Neighbors(ctx, frontier, nil, graphstore.DirectionBoth)
		if err != nil {
			return nil, err
		}
		var next []string
		for _, edges := range neighbors {
			for _, e := range edges {
				if seen[e.OtherConceptID] {
					continue
				}
				seen[e.OtherConceptID] = true
				next = append(next, e.OtherConceptID)
				all = append(all, e.OtherConceptID)
			}
		}
		frontier = next
	}
	return all, nil
}

// scorePath computes coherence (1 - variance(step sizes)/mean(step sizes))
// and mean angular curvature along a path's position-vector sequence (spec
// §4.11 step 7).
func (pz *Polarity) scorePath(ctx context.Context, path Path, midpoint []float64) (ScoredPath, error) {
	positions := make([][]float64, 0, len(path.ConceptIDs))
	for _, id := range path.ConceptIDs {
		c, ok, err := pz.store.GetConcept(ctx, id)
		if err != nil {
			return ScoredPath{}, err
		}
		if !ok || len(c.Embedding) == 0 {
			continue
		}
		positions = append(positions, subtractFloat64(vecmath.ToFloat64(c.Embedding), midpoint))
	}

	stepSizes := make([]float64, 0, len(positions)-1)
	for i := 1; i < len(positions); i++ {
		stepSizes = append(stepSizes, vecmath.Norm64(subtractFloat64(positions[i], positions[i-1])))
	}
	coherence := 1.0
	if len(stepSizes) > 0 {
		mean := meanOf(stepSizes)
		variance := varianceOf(stepSizes, mean)
		if mean > 0 {
			coherence = 1 - variance/mean
		}
	}

	var curvature float64
	if len(positions) >= 3 {
		var total float64
		count := 0
		for i := 1; i < len(positions)-1; i++ {
			a := subtractFloat64(positions[i], positions[i-1])
			b := subtractFloat64(positions[i+1], positions[i])
			total += angleBetween(a, b)
			count++
		}
		if count > 0 {
			curvature = total / float64(count)
		}
	}

	return ScoredPath{ConceptIDs: path.ConceptIDs, Coherence: coherence, Curvature: curvature}, nil
}

func correlationStrength(r float64) CorrelationStrength {
	abs := math.Abs(r)
	switch {
	case abs >= 0.7:
		return CorrelationStrong
	case abs >= 0.4:
		return CorrelationModerate
	default:
		return CorrelationWeak
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func meanOf(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func varianceOf(xs []float64, mean float64) float64 {
	var sum float64
	for _, x := range xs {
		d := x - mean
		sum += d * d
	}
	return sum / float64(len(xs))
}

func angleBetween(a, b []float64) float64 {
	na, nb := vecmath.Norm64(a), vecmath.Norm64(b)
	if na == 0 || nb == 0 {
		return 0
	}
	cos := clamp(vecmath.Dot64(a, b)/(na*nb), -1, 1)
	return math.Acos(cos)
}
