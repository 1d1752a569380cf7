package scoring

import "github.com/ctxatlas/atlas/pkg/domain"

// Intent aliases the domain-level query intent so scoring code reads
// naturally without importing domain everywhere it mentions one.
type Intent = domain.Intent

const (
	IntentWhy         = domain.IntentWhy
	IntentWhen        = domain.IntentWhen
	IntentWhat        = domain.IntentWhat
	IntentRelated     = domain.IntentRelated
	IntentGeneral     = domain.IntentGeneral
	IntentWhoIs       = domain.IntentWhoIs
	IntentHowDoes     = domain.IntentHowDoes
	IntentPersonalize = domain.IntentPersonalize
)

// AllIntents lists every intent the classifier can assign confidence to.
var AllIntents = domain.AllIntents

// defaultEdgeWeight is the effective weight for an edge type an
// intent's row doesn't list explicitly.
const defaultEdgeWeight = 1.0

// intentWeights is the representative INTENT_WEIGHTS table: traversal
// priority per (intent, edge_type) pair, favoring the edges that best
// answer that intent's question over the others.
var intentWeights = map[Intent]map[domain.EdgeType]float64{
	IntentWhy: {
		domain.EdgeCausedBy: 5, domain.EdgeFollows: 1, domain.EdgeSimilarTo: 1.5,
		domain.EdgeReferences: 2, domain.EdgeSummarizes: 1,
	},
	IntentWhen: {
		domain.EdgeCausedBy: 1, domain.EdgeFollows: 5, domain.EdgeSimilarTo: 0.5,
		domain.EdgeReferences: 1, domain.EdgeSummarizes: 0.5,
	},
	IntentWhat: {
		domain.EdgeCausedBy: 2, domain.EdgeFollows: 1, domain.EdgeSimilarTo: 2,
		domain.EdgeReferences: 5, domain.EdgeSummarizes: 2,
	},
	IntentRelated: {
		domain.EdgeCausedBy: 1.5, domain.EdgeFollows: 0.5, domain.EdgeSimilarTo: 5,
		domain.EdgeReferences: 2, domain.EdgeSummarizes: 1.5,
	},
	IntentGeneral: {}, // every edge type falls through to defaultEdgeWeight
	IntentWhoIs: {
		domain.EdgeReferences: 3, domain.EdgeHasProfile: 5, domain.EdgeHasPreference: 5,
		domain.EdgeHasSkill: 5, domain.EdgeExhibitsPattern: 4, domain.EdgeInterestedIn: 4,
		domain.EdgeAbout: 3, domain.EdgeSameAs: 4, domain.EdgeRelatedTo: 3,
	},
	IntentHowDoes: {
		domain.EdgeFollows: 3, domain.EdgeCausedBy: 2, domain.EdgeExhibitsPattern: 5,
		domain.EdgeAbstractedFrom: 4, domain.EdgeHasSkill: 3,
	},
	IntentPersonalize: {
		domain.EdgeHasProfile: 4, domain.EdgeHasPreference: 5, domain.EdgeHasSkill: 4,
		domain.EdgeExhibitsPattern: 3, domain.EdgeInterestedIn: 4, domain.EdgeDerivedFrom: 3,
	},
}

// EdgeWeight returns the effective traversal weight for an edge type
// under a given intent, applying any configured override first.
func EdgeWeight(cfg map[string]map[string]float64, intent Intent, edgeType domain.EdgeType) float64 {
	if row, ok := cfg[string(intent)]; ok {
		if w, ok := row[string(edgeType)]; ok {
			return w
		}
	}
	if w, ok := intentWeights[intent][edgeType]; ok {
		return w
	}
	return defaultEdgeWeight
}

// WeightsForIntent materializes the full edge-weight row for one
// intent, config overrides applied, for a traversal call that needs a
// plain map rather than per-edge lookups.
func WeightsForIntent(cfg map[string]map[string]float64, intent Intent) map[domain.EdgeType]float64 {
	out := make(map[domain.EdgeType]float64, len(domain.AllEdgeTypes))
	for _, et := range domain.AllEdgeTypes {
		out[et] = EdgeWeight(cfg, intent, et)
	}
	return out
}
