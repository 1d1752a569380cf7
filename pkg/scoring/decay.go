// Package scoring implements the decay-score formula, intent
// classification, the per-intent edge-weight matrix, and seed
// selection that the retrieval layer composes into a traversal.
package scoring

import (
	"math"
	"time"

	"github.com/ctxatlas/atlas/pkg/config"
	"github.com/ctxatlas/atlas/pkg/domain"
	"github.com/ctxatlas/atlas/pkg/embedding"
)

// SessionProximity classifies how close a node's owning session is to
// the session making the current retrieval request.
type SessionProximity int

const (
	ProximityOther   SessionProximity = iota // different user, no SIMILAR_TO bridge
	ProximityOlder                           // same user, session older than the recent window
	ProximityRecent                          // same user, within the recent window
	ProximityCurrent                         // the requesting session itself
)

// Input is the set of per-node facts the decay formula needs. The
// retrieval layer fills this in per candidate node; it is deliberately
// flat rather than keyed off a specific node struct, since Event,
// Preference, Entity, and the rest all contribute different subsets of
// these fields.
type Input struct {
	OccurredAt     time.Time
	LastAccessedAt *time.Time
	Accessed       bool // true if this node was touched by an access since OccurredAt

	ImportanceScore int // 1-10, 0 when the node kind carries no importance_score

	Embedding    []float32
	QueryVector  []float32 // nil when the query carries no embeddable text

	Proximity           SessionProximity
	RetrievalRecurrence float64 // access_count within the current session's prior retrievals, pre-normalized to [0,1]
	EntityOverlap       float64 // |shared_entities| / max(|user_entities|, |node_entities|)

	// HalfLifeCategory selects which per-category half-life override
	// applies (Preference categories); empty uses EventHalfLife.
	HalfLifeCategory string
}

// Score computes score(node, q, user, now) from §4.H: a weighted sum of
// recency, importance, relevance, and user affinity.
func Score(cfg *config.ScoringConfig, in Input, now time.Time) float64 {
	return cfg.WeightRecency*recency(cfg, in, now) +
		cfg.WeightImportance*importance(in) +
		cfg.WeightRelevance*relevance(in) +
		cfg.WeightUserAffinity*userAffinity(cfg, in)
}

func recency(cfg *config.ScoringConfig, in Input, now time.Time) float64 {
	last := in.OccurredAt
	if in.LastAccessedAt != nil && in.LastAccessedAt.After(last) {
		last = *in.LastAccessedAt
	}
	elapsed := now.Sub(last).Hours()
	if elapsed < 0 {
		elapsed = 0
	}

	half := halfLife(cfg, in.HalfLifeCategory)
	if in.Accessed {
		half += cfg.AccessBoost
	}
	s := half.Hours()
	if s <= 0 {
		return 0
	}
	return math.Exp(-elapsed / s)
}

func halfLife(cfg *config.ScoringConfig, category string) time.Duration {
	if category == "" {
		return cfg.EventHalfLife
	}
	if h, ok := cfg.PreferenceHalfLives[category]; ok {
		return h
	}
	return cfg.DefaultPreferenceHalfLife
}

func importance(in Input) float64 {
	return float64(in.ImportanceScore) / 10
}

func relevance(in Input) float64 {
	if len(in.QueryVector) == 0 || len(in.Embedding) == 0 {
		return 0.5
	}
	return embedding.CosineSimilarity(in.Embedding, in.QueryVector)
}

func userAffinity(cfg *config.ScoringConfig, in Input) float64 {
	proximity := proximityScore(cfg, in.Proximity)
	terms := []float64{proximity, in.RetrievalRecurrence, in.EntityOverlap}
	var sum float64
	for _, t := range terms {
		sum += t
	}
	return sum / float64(len(terms))
}

func proximityScore(cfg *config.ScoringConfig, p SessionProximity) float64 {
	switch p {
	case ProximityCurrent:
		return cfg.SessionProximityCurrent
	case ProximityRecent:
		return cfg.SessionProximityRecent
	case ProximityOlder:
		return cfg.SessionProximityOlder
	default:
		return 0
	}
}

// ClassifyProximity buckets a node's session against the requesting
// session using the recent-window config, implementing the {1.0, 0.7,
// 0.3, 0.0} table directly rather than leaving it to the caller.
func ClassifyProximity(cfg *config.ScoringConfig, sessionID, requestSessionID, requestUserID, nodeUserID string, sessionStartedAt, now time.Time, bridgedBySimilarTo bool) SessionProximity {
	if sessionID == requestSessionID {
		return ProximityCurrent
	}
	if nodeUserID != requestUserID && !bridgedBySimilarTo {
		return ProximityOther
	}
	if now.Sub(sessionStartedAt) <= cfg.SessionProximityRecentWindow {
		return ProximityRecent
	}
	return ProximityOlder
}

// HalfLifeCategoryFor maps a Preference's category to the half-life
// lookup key; every other node kind passes "" (event half-life).
func HalfLifeCategoryFor(category domain.PreferenceCategory) string {
	return string(category)
}
