package scoring

import (
	"errors"
	"fmt"
)

// ─── TYPES ────────────────────────────────────────────────────────────────────

// RiskTier is the four-bucket classification. String values deliberately match
// the Postgres enum so they can be persisted without conversion.
type RiskTier string

const (
	TierLow      RiskTier = "low"
	TierMedium   RiskTier = "medium"
	TierHigh     RiskTier = "high"
	TierCritical RiskTier = "critical"
)

// rank orders tiers for comparison. Higher is worse.
func (t RiskTier) rank() int {
	switch t {
	case TierLow:
		return 0
	case TierMedium:
		return 1
	case TierHigh:
		return 2
	case TierCritical:
		return 3
	}
	return -1
}

// AtLeast reports whether t is as severe as other or worse.
func (t RiskTier) AtLeast(other RiskTier) bool {
	return t.rank() >= other.rank()
}

// Question is one questionnaire item. Field types are plain Go types so the
// package stays usable without importing db; callers map db rows into this.
type Question struct {
	ID       string // matches questions.id (uuid rendered as string)
	Category string // free-form label, e.g. "Exigências do Trabalho"
	Weight   int    // positive multiplier; 1 for unweighted items
}

// Template is the slice of a questionnaire template the aggregator needs:
// the answer scale and the questions in declaration order. Category order for
// tie-breaking is derived from the order categories first appear here.
type Template struct {
	ScaleMax  int
	Questions []Question
}

// CategoryScore pairs a category label with its normalized score in [0,100].
// AggregateScores returns these in template-declaration order — never rely on
// map iteration for the dominant-category tie-break.
type CategoryScore struct {
	Category string `json:"category"`
	Score    int    `json:"score"`
}

// Classification is the full output of Classify for one response set.
type Classification struct {
	// OverallScore is the maximum category score: the worst category wins,
	// flagging the most acute dimension rather than averaging it away.
	OverallScore int

	// Tier is the risk tier derived from OverallScore and the config.
	Tier RiskTier

	// DominantCategory is the highest-scoring category; ties resolve to the
	// category declared first in the template.
	DominantCategory string
}

// ─── ERRORS ───────────────────────────────────────────────────────────────────

// ErrIncompleteResponse is returned when at least one template question has no
// answer. A partial response never yields partial scores.
var ErrIncompleteResponse = errors.New("scoring: incomplete response")

// ErrNoCategories is returned by Classify when the score slice is empty,
// which means the template had no questions — a data problem, not a response
// problem.
var ErrNoCategories = errors.New("scoring: no category scores to classify")

// ErrInvalidAnswer is returned when an answer falls outside [1, ScaleMax].
// Distinct from ErrIncompleteResponse so callers can report bad input versus
// missing input separately.
var ErrInvalidAnswer = errors.New("scoring: answer out of scale")

// ─── RESPONSE AGGREGATOR ──────────────────────────────────────────────────────

// AggregateScores reduces a complete answer set into per-category normalized
// scores. For each category:
//
//	score = round( Σ(answer×weight) / (Σweight × ScaleMax) × 100 )
//
// which reduces to the plain sum/(count×max) form when all weights are 1.
//
// Every question in the template must have an answer in [1, ScaleMax].
// A missing answer yields ErrIncompleteResponse (wrapped with the question
// id); an out-of-range answer is a validation error. Pure function — no side
// effects, safe for concurrent use.
func AggregateScores(tpl Template, answers map[string]int) ([]CategoryScore, error) {
	if tpl.ScaleMax < 2 {
		return nil, fmt.Errorf("scoring: template scale max %d is not a valid ordinal scale", tpl.ScaleMax)
	}

	// Accumulate per category, preserving first-appearance order.
	type acc struct {
		sum    int // Σ answer×weight
		weight int // Σ weight
	}
	order := make([]string, 0, 8)
	byCategory := make(map[string]*acc, 8)

	for _, q := range tpl.Questions {
		if q.Weight <= 0 {
			return nil, fmt.Errorf("scoring: question %q has non-positive weight %d", q.ID, q.Weight)
		}

		answer, ok := answers[q.ID]
		if !ok {
			return nil, fmt.Errorf("question %q has no answer: %w", q.ID, ErrIncompleteResponse)
		}
		if answer < 1 || answer > tpl.ScaleMax {
			return nil, fmt.Errorf("question %q answer %d out of scale [1,%d]: %w", q.ID, answer, tpl.ScaleMax, ErrInvalidAnswer)
		}

		a, ok := byCategory[q.Category]
		if !ok {
			a = &acc{}
			byCategory[q.Category] = a
			order = append(order, q.Category)
		}
		a.sum += answer * q.Weight
		a.weight += q.Weight
	}

	scores := make([]CategoryScore, 0, len(order))
	for _, category := range order {
		a := byCategory[category]
		normalized := float64(a.sum) / float64(a.weight*tpl.ScaleMax) * 100
		scores = append(scores, CategoryScore{
			Category: category,
			Score:    int(normalized + 0.5),
		})
	}

	return scores, nil
}

// ─── RISK CLASSIFIER ──────────────────────────────────────────────────────────

// TierFor maps an overall score to a tier using the ordered rule:
//
//	score > 80               → Critical
//	score > MediumThreshold  → High
//	score > LowThreshold     → Medium
//	else                     → Low
//
// All comparisons are strict, so a score sitting exactly on a boundary
// resolves to the lower tier. The config must already be validated; use
// RiskConfig.Sanitize at the load boundary.
func TierFor(score int, cfg RiskConfig) RiskTier {
	switch {
	case score > criticalThreshold:
		return TierCritical
	case score > cfg.MediumThreshold:
		return TierHigh
	case score > cfg.LowThreshold:
		return TierMedium
	default:
		return TierLow
	}
}

// Classify computes the overall score, tier, and dominant category for a
// response. scores must come from AggregateScores so the slice order matches
// template-declaration order — the first category at the maximum score wins
// ties deterministically.
func Classify(scores []CategoryScore, cfg RiskConfig) (Classification, error) {
	if len(scores) == 0 {
		return Classification{}, ErrNoCategories
	}

	dominant := scores[0]
	for _, cs := range scores[1:] {
		// Strictly greater: the first-declared category keeps the tie.
		if cs.Score > dominant.Score {
			dominant = cs
		}
	}

	return Classification{
		OverallScore:     dominant.Score,
		Tier:             TierFor(dominant.Score, cfg),
		DominantCategory: dominant.Category,
	}, nil
}
