// Package retrieval assembles multi-intent traversal, working-memory
// (context) retrieval, and lineage queries on top of the Graph Store's
// subgraph traversal and the scoring package's decay formula.
package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/ctxatlas/atlas/pkg/config"
	"github.com/ctxatlas/atlas/pkg/domain"
	"github.com/ctxatlas/atlas/pkg/embedding"
	"github.com/ctxatlas/atlas/pkg/eventstore"
	"github.com/ctxatlas/atlas/pkg/graphstore"
	"github.com/ctxatlas/atlas/pkg/llm"
	"github.com/ctxatlas/atlas/pkg/scoring"
)

// intentClassifier is the narrow LLM dependency retrieval needs: a
// fallback called only when keyword matching in pkg/scoring doesn't
// clear the decomposition threshold.
type intentClassifier interface {
	ClassifyIntent(ctx context.Context, query string) (*llm.IntentScores, error)
}

// Service wires the Graph Store, Event Store, embedding client, and
// intent classifier together into the retrieval operations the API
// layer calls.
type Service struct {
	graph  *graphstore.Store
	events *eventstore.Store
	embed  *embedding.Client
	llm    intentClassifier
	access *AccessUpdater

	scoringCfg *config.ScoringConfig
	intentCfg  *config.IntentConfig
	graphCfg   *config.GraphStoreConfig
}

// NewService builds a retrieval Service. access may be nil, in which
// case responses are assembled without recording access hits.
func NewService(graph *graphstore.Store, events *eventstore.Store, embed *embedding.Client, llmClient intentClassifier, access *AccessUpdater, scoringCfg *config.ScoringConfig, intentCfg *config.IntentConfig, graphCfg *config.GraphStoreConfig) *Service {
	return &Service{graph: graph, events: events, embed: embed, llm: llmClient, access: access, scoringCfg: scoringCfg, intentCfg: intentCfg, graphCfg: graphCfg}
}

// Request is one retrieve-context call: query plus the session/agent
// scoping it's made from, with optional caller overrides for every
// internally-computed step.
type Request struct {
	Query     string
	SessionID string
	AgentID   string
	UserID    string

	IntentOverride *scoring.Intent
	SeedOverride   []graphstore.SeedRef

	MaxDepth  int
	MaxNodes  int
	TimeoutMs int
}

// Candidate is one node surviving traversal and decay scoring, prior to
// attaching its full body and provenance in response assembly.
type Candidate struct {
	ID              string
	Kind            domain.NodeKind
	CombinedScore   float64
	MatchedIntents  map[scoring.Intent]float64
	RetrievalReason domain.RetrievalReason
}

// Result is the raw output of Traverse, before response.go shapes it
// into the wire format.
type Result struct {
	Candidates      []Candidate
	Edges           []graphstore.EdgeRef
	InferredIntents map[scoring.Intent]float64
	IntentOverride  bool
	SeedNodeIDs     []string
	Truncated       bool
	MaxNodes        int
	MaxDepth        int
	ProactiveCount  int
	QueryVector     []float32
}

const multiSignalBoostDefault = 0.2

// Traverse runs the full multi-intent traversal: classify intent,
// traverse once per intent above threshold with that intent's edge
// weights, merge by multi-signal boost, decay-score, and truncate.
func (s *Service) Traverse(ctx context.Context, req Request) (*Result, error) {
	timeout := s.graphCfg.DefaultTraversalTimeout
	if req.TimeoutMs > 0 {
		timeout = time.Duration(req.TimeoutMs) * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	intents, overridden := s.resolveIntents(ctx, req)

	seeds, err := s.SelectSeeds(ctx, req)
	if err != nil {
		return nil, err
	}
	seedIDs := make([]string, len(seeds))
	for i, sd := range seeds {
		seedIDs[i] = sd.ID
	}

	maxDepth := req.MaxDepth
	if maxDepth <= 0 {
		maxDepth = s.intentCfg.DefaultMaxDepth
	}
	if maxDepth > s.intentCfg.DefaultMaxDepthCap {
		maxDepth = s.intentCfg.DefaultMaxDepthCap
	}
	maxNodes := req.MaxNodes
	if maxNodes <= 0 {
		maxNodes = s.graphCfg.MaxTraversalNodes
	}

	perIntentScores := make(map[string]map[scoring.Intent]float64)
	kindByID := make(map[string]domain.NodeKind)
	var edges []graphstore.EdgeRef
	truncated := false

	for intent, confidence := range intents {
		weights := scoring.WeightsForIntent(s.intentCfg.EdgeWeightOverrides, intent)
		sub, err := s.graph.GetSubgraph(ctx, seeds, weights, maxDepth, maxNodes)
		if err != nil {
			if ctx.Err() != nil {
				truncated = true
				continue
			}
			return nil, err
		}
		edges = append(edges, sub.Edges...)
		for kind, ids := range sub.NodeIDs {
			for _, id := range ids {
				kindByID[id] = kind
				if perIntentScores[id] == nil {
					perIntentScores[id] = make(map[scoring.Intent]float64)
				}
				perIntentScores[id][intent] = confidence
			}
		}
	}

	seedSet := make(map[string]bool, len(seedIDs))
	for _, id := range seedIDs {
		seedSet[id] = true
	}
	candidates := mergeCandidates(perIntentScores, kindByID, seedSet, s.intentCfg.MultiSignalBoost)

	queryVector := s.queryVector(ctx, req.Query)
	candidates, truncatedByScore, err := s.rankByDecayScore(ctx, candidates, queryVector, maxNodes)
	if err != nil {
		return nil, err
	}
	truncated = truncated || truncatedByScore

	proactive := s.addProactiveNodes(ctx, candidates)
	candidates = append(candidates, proactive...)

	return &Result{
		Candidates:      candidates,
		Edges:           edges,
		InferredIntents: intents,
		IntentOverride:  overridden,
		SeedNodeIDs:     seedIDs,
		Truncated:       truncated,
		MaxNodes:        maxNodes,
		MaxDepth:        maxDepth,
		ProactiveCount:  len(proactive),
		QueryVector:     queryVector,
	}, nil
}

const (
	proactiveSeedCap = 5  // only the best-scoring candidates anchor the proactive expansion
	proactiveNodeCap = 10 // hard ceiling on how many proactive nodes a response carries
)

// proactiveEdgeWeights restricts the expansion to SIMILAR_TO
// (recurring-pattern hits) and ABOUT (entity context), zeroing every
// other edge type so GetSubgraph's BFS doesn't wander into unrelated
// territory under the guise of "optional" nodes.
func proactiveEdgeWeights() map[domain.EdgeType]float64 {
	out := make(map[domain.EdgeType]float64, len(domain.AllEdgeTypes))
	for _, et := range domain.AllEdgeTypes {
		out[et] = 0
	}
	out[domain.EdgeSimilarTo] = 5
	out[domain.EdgeAbout] = 4
	return out
}

// addProactiveNodes implements the traversal's optional sixth step:
// a shallow, narrowly-weighted expansion from the already-ranked
// candidates to surface recurring-pattern similarity hits and the
// entities they're about, tagged retrieval_reason="proactive" and
// excluded from the max_nodes budget accounting.
func (s *Service) addProactiveNodes(ctx context.Context, candidates []Candidate) []Candidate {
	if len(candidates) == 0 {
		return nil
	}
	anchorCount := proactiveSeedCap
	if anchorCount > len(candidates) {
		anchorCount = len(candidates)
	}

	existing := make(map[string]bool, len(candidates))
	seeds := make([]graphstore.SeedRef, 0, anchorCount)
	for _, c := range candidates {
		existing[c.ID] = true
	}
	for _, c := range candidates[:anchorCount] {
		seeds = append(seeds, graphstore.SeedRef{ID: c.ID, Kind: c.Kind})
	}

	sub, err := s.graph.GetSubgraph(ctx, seeds, proactiveEdgeWeights(), 1, proactiveNodeCap)
	if err != nil {
		slog.Warn("retrieval: proactive node expansion failed, continuing without it", "error", err)
		return nil
	}

	var out []Candidate
	for kind, ids := range sub.NodeIDs {
		for _, id := range ids {
			if existing[id] {
				continue
			}
			existing[id] = true
			out = append(out, Candidate{ID: id, Kind: kind, RetrievalReason: domain.ReasonProactive})
			if len(out) >= proactiveNodeCap {
				return out
			}
		}
	}
	return out
}

func (s *Service) resolveIntents(ctx context.Context, req Request) (map[scoring.Intent]float64, bool) {
	if req.IntentOverride != nil {
		return map[scoring.Intent]float64{*req.IntentOverride: 1.0}, true
	}

	kw := scoring.ClassifyByKeywords(req.Query)
	above := scoring.AboveThreshold(kw, s.intentCfg.DecompositionThreshold)
	if len(above) > 1 || above[scoring.IntentGeneral] != 1.0 {
		return above, false
	}

	if s.llm == nil {
		return above, false
	}
	llmScores, err := s.llm.ClassifyIntent(ctx, req.Query)
	if err != nil {
		slog.Warn("retrieval: llm intent classification failed, using keyword fallback", "error", err)
		return above, false
	}
	return scoring.AboveThreshold(intentMapFromLLM(llmScores), s.intentCfg.DecompositionThreshold), false
}

func intentMapFromLLM(scores *llm.IntentScores) map[scoring.Intent]float64 {
	return map[scoring.Intent]float64{
		scoring.IntentWhy:         scores.Why,
		scoring.IntentWhen:        scores.When,
		scoring.IntentWhat:        scores.What,
		scoring.IntentRelated:     scores.Related,
		scoring.IntentGeneral:     scores.General,
		scoring.IntentWhoIs:       scores.WhoIs,
		scoring.IntentHowDoes:     scores.HowDoes,
		scoring.IntentPersonalize: scores.Personalize,
	}
}

// rankByDecayScore hydrates every merged candidate's body, computes its
// decay-weighted composite score the same way assembleNodesAndEdges
// later reports it, and truncates to maxNodes keyed on that composite —
// not on mergeCandidates' pre-decay CombinedScore. This mirrors the
// hydrate/score/sort/truncate order AssembleContext already uses for
// the working-memory path, so a recent but single-intent node can't be
// dropped in favor of an older multi-intent match just because
// truncation ran before decay was ever computed.
func (s *Service) rankByDecayScore(ctx context.Context, candidates []Candidate, queryVector []float32, maxNodes int) ([]Candidate, bool, error) {
	byKind := make(map[domain.NodeKind][]string)
	for _, c := range candidates {
		byKind[c.Kind] = append(byKind[c.Kind], c.ID)
	}
	bodies, err := s.hydrateBodies(ctx, byKind)
	if err != nil {
		return nil, false, err
	}

	now := time.Now()
	type scoredCandidate struct {
		candidate Candidate
		composite float64
	}
	ranked := make([]scoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		body, ok := bodies[c.ID]
		if !ok {
			// Hydration couldn't find the row (deleted between traversal
			// and here); assembleNodesAndEdges would drop it too, so
			// there's nothing to score or truncate.
			continue
		}
		in := scoringInputFor(c.Kind, body, queryVector, now)
		ranked = append(ranked, scoredCandidate{candidate: c, composite: scoring.Score(s.scoringCfg, in, now)})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].composite > ranked[j].composite })

	truncated := len(ranked) > maxNodes
	if truncated {
		ranked = ranked[:maxNodes]
	}
	out := make([]Candidate, len(ranked))
	for i, r := range ranked {
		out[i] = r.candidate
	}
	return out, truncated, nil
}

// mergeCandidates implements the multi-signal boost: a node's combined
// score is the max across intents plus boost times the sum of the other
// intents' scores, so a node two intents agree on outranks one only a
// single intent reached.
func mergeCandidates(perIntentScores map[string]map[scoring.Intent]float64, kinds map[string]domain.NodeKind, seedSet map[string]bool, boost float64) []Candidate {
	if boost <= 0 {
		boost = multiSignalBoostDefault
	}

	out := make([]Candidate, 0, len(perIntentScores))
	for id, scores := range perIntentScores {
		var max, sum float64
		for _, sc := range scores {
			if sc > max {
				max = sc
			}
			sum += sc
		}
		combined := max + boost*(sum-max)
		reason := domain.ReasonTraversal
		if seedSet[id] {
			reason = domain.ReasonSeed
		}
		out = append(out, Candidate{
			ID: id, Kind: kinds[id], CombinedScore: combined,
			MatchedIntents: scores, RetrievalReason: reason,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CombinedScore > out[j].CombinedScore })
	return out
}
