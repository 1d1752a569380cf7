package graphstore

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/ctxatlas/atlas/pkg/domain"
)

// collectIDs scans a single-column string result set, invoking fn for
// each row. It always closes rows.
func collectIDs(rows pgx.Rows, fn func(id string)) error {
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		fn(id)
	}
	return rows.Err()
}

// SeedRef identifies a node to start a traversal from.
type SeedRef struct {
	ID   string
	Kind domain.NodeKind
}

// EdgeRef is a lightweight edge reference surfaced by a traversal; the
// retrieval layer resolves full node bodies and scores separately.
type EdgeRef struct {
	Type domain.EdgeType
	From string
	To   string
}

// SubgraphResult is the raw output of a bounded breadth-first traversal:
// every node visited, grouped by kind, and every edge crossed to reach
// it.
type SubgraphResult struct {
	NodeIDs map[domain.NodeKind][]string
	Edges   []EdgeRef
}

type frontierNode struct {
	SeedRef
	depth int
}

// GetSubgraph performs a bounded BFS from seeds, following edges whose
// type carries a non-zero weight in edgeWeights (nil means "follow
// everything"). Depth and node counts are clamped to the store's
// configured hard caps regardless of what the caller requests.
func (s *Store) GetSubgraph(ctx context.Context, seeds []SeedRef, edgeWeights map[domain.EdgeType]float64, maxDepth, maxNodes int) (*SubgraphResult, error) {
	maxDepth = clampDepth(maxDepth, s.cfg.MaxTraversalDepth)
	maxNodes = clampLimit(maxNodes, s.cfg.MaxTraversalNodes)

	visited := make(map[string]bool, maxNodes)
	result := &SubgraphResult{NodeIDs: make(map[domain.NodeKind][]string)}

	queue := make([]frontierNode, 0, len(seeds))
	for _, seed := range seeds {
		if !visited[seed.ID] {
			visited[seed.ID] = true
			result.NodeIDs[seed.Kind] = append(result.NodeIDs[seed.Kind], seed.ID)
			queue = append(queue, frontierNode{SeedRef: seed, depth: 0})
		}
	}

	for len(queue) > 0 && len(visited) < maxNodes {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}

		nbrs, err := s.neighbors(ctx, cur.ID, cur.Kind)
		if err != nil {
			return nil, wrapf("get subgraph", err)
		}

		for _, n := range nbrs {
			if edgeWeights != nil {
				if w, ok := edgeWeights[n.edge.Type]; ok && w <= 0 {
					continue
				}
			}
			result.Edges = append(result.Edges, n.edge)
			if visited[n.node.ID] || len(visited) >= maxNodes {
				continue
			}
			visited[n.node.ID] = true
			result.NodeIDs[n.node.Kind] = append(result.NodeIDs[n.node.Kind], n.node.ID)
			queue = append(queue, frontierNode{SeedRef: n.node, depth: cur.depth + 1})
		}
	}

	return result, nil
}

type neighborEdge struct {
	node SeedRef
	edge EdgeRef
}

// neighbors dispatches to the edge tables relevant to a node's kind. It
// is the relational stand-in for a native graph engine's adjacency
// lookup: each node kind only participates in a fixed subset of the 16
// edge types, so each case below only needs to query the tables that
// edge actually touches.
func (s *Store) neighbors(ctx context.Context, id string, kind domain.NodeKind) ([]neighborEdge, error) {
	switch kind {
	case domain.NodeKindEvent:
		return s.eventNeighbors(ctx, id)
	case domain.NodeKindEntity:
		return s.entityNeighbors(ctx, id)
	case domain.NodeKindSummary:
		return s.summaryNeighbors(ctx, id)
	case domain.NodeKindPreference:
		return s.preferenceNeighbors(ctx, id)
	case domain.NodeKindSkill:
		return s.skillNeighbors(ctx, id)
	case domain.NodeKindWorkflow:
		return s.workflowNeighbors(ctx, id)
	case domain.NodeKindBehavioralPattern:
		return s.patternNeighbors(ctx, id)
	case domain.NodeKindUserProfile:
		return s.profileNeighbors(ctx, id)
	default:
		return nil, nil
	}
}

func (s *Store) eventNeighbors(ctx context.Context, eventID string) ([]neighborEdge, error) {
	var out []neighborEdge

	rows, err := s.pool.Query(ctx, `SELECT to_event_id FROM follows_edges WHERE from_event_id = $1`, eventID)
	if err != nil {
		return nil, err
	}
	if err := collectIDs(rows, func(to string) {
		out = append(out, neighborEdge{SeedRef{to, domain.NodeKindEvent}, EdgeRef{domain.EdgeFollows, eventID, to}})
	}); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `SELECT to_event_id FROM caused_by_edges WHERE from_event_id = $1
		UNION SELECT from_event_id FROM caused_by_edges WHERE to_event_id = $1`, eventID)
	if err != nil {
		return nil, err
	}
	if err := collectIDs(rows, func(to string) {
		out = append(out, neighborEdge{SeedRef{to, domain.NodeKindEvent}, EdgeRef{domain.EdgeCausedBy, eventID, to}})
	}); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `SELECT to_event_id FROM similar_to_edges WHERE from_event_id = $1
		UNION SELECT from_event_id FROM similar_to_edges WHERE to_event_id = $1`, eventID)
	if err != nil {
		return nil, err
	}
	if err := collectIDs(rows, func(to string) {
		out = append(out, neighborEdge{SeedRef{to, domain.NodeKindEvent}, EdgeRef{domain.EdgeSimilarTo, eventID, to}})
	}); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `SELECT entity_id FROM references_edges WHERE event_id = $1`, eventID)
	if err != nil {
		return nil, err
	}
	if err := collectIDs(rows, func(to string) {
		out = append(out, neighborEdge{SeedRef{to, domain.NodeKindEntity}, EdgeRef{domain.EdgeReferences, eventID, to}})
	}); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `SELECT source_node_id, source_kind FROM derived_from_edges WHERE event_id = $1`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var sourceID, sourceKind string
		if err := rows.Scan(&sourceID, &sourceKind); err != nil {
			return nil, err
		}
		out = append(out, neighborEdge{SeedRef{sourceID, domain.NodeKind(sourceKind)}, EdgeRef{domain.EdgeDerivedFrom, sourceID, eventID}})
	}
	return out, rows.Err()
}

func (s *Store) entityNeighbors(ctx context.Context, entityID string) ([]neighborEdge, error) {
	var out []neighborEdge

	rows, err := s.pool.Query(ctx, `SELECT event_id FROM references_edges WHERE entity_id = $1`, entityID)
	if err != nil {
		return nil, err
	}
	if err := collectIDs(rows, func(eid string) {
		out = append(out, neighborEdge{SeedRef{eid, domain.NodeKindEvent}, EdgeRef{domain.EdgeReferences, eid, entityID}})
	}); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `SELECT to_entity_id FROM same_as_edges WHERE from_entity_id = $1
		UNION SELECT from_entity_id FROM same_as_edges WHERE to_entity_id = $1`, entityID)
	if err != nil {
		return nil, err
	}
	if err := collectIDs(rows, func(to string) {
		out = append(out, neighborEdge{SeedRef{to, domain.NodeKindEntity}, EdgeRef{domain.EdgeSameAs, entityID, to}})
	}); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `SELECT to_entity_id FROM related_to_edges WHERE from_entity_id = $1
		UNION SELECT from_entity_id FROM related_to_edges WHERE to_entity_id = $1`, entityID)
	if err != nil {
		return nil, err
	}
	if err := collectIDs(rows, func(to string) {
		out = append(out, neighborEdge{SeedRef{to, domain.NodeKindEntity}, EdgeRef{domain.EdgeRelatedTo, entityID, to}})
	}); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `SELECT profile_id FROM has_profile_edges WHERE user_entity_id = $1`, entityID)
	if err != nil {
		return nil, err
	}
	if err := collectIDs(rows, func(to string) {
		out = append(out, neighborEdge{SeedRef{to, domain.NodeKindUserProfile}, EdgeRef{domain.EdgeHasProfile, entityID, to}})
	}); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `SELECT preference_id FROM has_preference_edges WHERE user_entity_id = $1`, entityID)
	if err != nil {
		return nil, err
	}
	if err := collectIDs(rows, func(to string) {
		out = append(out, neighborEdge{SeedRef{to, domain.NodeKindPreference}, EdgeRef{domain.EdgeHasPreference, entityID, to}})
	}); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `SELECT skill_id FROM has_skill_edges WHERE user_entity_id = $1`, entityID)
	if err != nil {
		return nil, err
	}
	if err := collectIDs(rows, func(to string) {
		out = append(out, neighborEdge{SeedRef{to, domain.NodeKindSkill}, EdgeRef{domain.EdgeHasSkill, entityID, to}})
	}); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `SELECT pattern_id FROM exhibits_pattern_edges WHERE user_entity_id = $1`, entityID)
	if err != nil {
		return nil, err
	}
	if err := collectIDs(rows, func(to string) {
		out = append(out, neighborEdge{SeedRef{to, domain.NodeKindBehavioralPattern}, EdgeRef{domain.EdgeExhibitsPattern, entityID, to}})
	}); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `SELECT concept_entity_id FROM interested_in_edges WHERE user_entity_id = $1`, entityID)
	if err != nil {
		return nil, err
	}
	if err := collectIDs(rows, func(to string) {
		out = append(out, neighborEdge{SeedRef{to, domain.NodeKindEntity}, EdgeRef{domain.EdgeInterestedIn, entityID, to}})
	}); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `SELECT preference_id FROM about_edges WHERE entity_id = $1`, entityID)
	if err != nil {
		return nil, err
	}
	if err := collectIDs(rows, func(to string) {
		out = append(out, neighborEdge{SeedRef{to, domain.NodeKindPreference}, EdgeRef{domain.EdgeAbout, to, entityID}})
	}); err != nil {
		return nil, err
	}

	return out, nil
}

func (s *Store) summaryNeighbors(ctx context.Context, summaryID string) ([]neighborEdge, error) {
	rows, err := s.pool.Query(ctx, `SELECT target_id, target_kind FROM summarizes_edges WHERE summary_id = $1`, summaryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []neighborEdge
	for rows.Next() {
		var targetID, targetKind string
		if err := rows.Scan(&targetID, &targetKind); err != nil {
			return nil, err
		}
		out = append(out, neighborEdge{SeedRef{targetID, domain.NodeKind(targetKind)}, EdgeRef{domain.EdgeSummarizes, summaryID, targetID}})
	}
	return out, rows.Err()
}

func (s *Store) preferenceNeighbors(ctx context.Context, preferenceID string) ([]neighborEdge, error) {
	var out []neighborEdge

	rows, err := s.pool.Query(ctx, `SELECT user_entity_id FROM has_preference_edges WHERE preference_id = $1`, preferenceID)
	if err != nil {
		return nil, err
	}
	if err := collectIDs(rows, func(uid string) {
		out = append(out, neighborEdge{SeedRef{uid, domain.NodeKindEntity}, EdgeRef{domain.EdgeHasPreference, uid, preferenceID}})
	}); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `SELECT entity_id FROM about_edges WHERE preference_id = $1`, preferenceID)
	if err != nil {
		return nil, err
	}
	if err := collectIDs(rows, func(eid string) {
		out = append(out, neighborEdge{SeedRef{eid, domain.NodeKindEntity}, EdgeRef{domain.EdgeAbout, preferenceID, eid}})
	}); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `SELECT event_id FROM derived_from_edges WHERE source_node_id = $1 AND source_kind = 'preference'`, preferenceID)
	if err != nil {
		return nil, err
	}
	if err := collectIDs(rows, func(eid string) {
		out = append(out, neighborEdge{SeedRef{eid, domain.NodeKindEvent}, EdgeRef{domain.EdgeDerivedFrom, preferenceID, eid}})
	}); err != nil {
		return nil, err
	}

	return out, nil
}

func (s *Store) skillNeighbors(ctx context.Context, skillID string) ([]neighborEdge, error) {
	var out []neighborEdge

	rows, err := s.pool.Query(ctx, `SELECT user_entity_id FROM has_skill_edges WHERE skill_id = $1`, skillID)
	if err != nil {
		return nil, err
	}
	if err := collectIDs(rows, func(uid string) {
		out = append(out, neighborEdge{SeedRef{uid, domain.NodeKindEntity}, EdgeRef{domain.EdgeHasSkill, uid, skillID}})
	}); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `SELECT to_skill_id FROM parent_skill_edges WHERE from_skill_id = $1
		UNION SELECT from_skill_id FROM parent_skill_edges WHERE to_skill_id = $1`, skillID)
	if err != nil {
		return nil, err
	}
	if err := collectIDs(rows, func(to string) {
		out = append(out, neighborEdge{SeedRef{to, domain.NodeKindSkill}, EdgeRef{domain.EdgeParentSkill, skillID, to}})
	}); err != nil {
		return nil, err
	}

	return out, nil
}

func (s *Store) workflowNeighbors(ctx context.Context, workflowID string) ([]neighborEdge, error) {
	var out []neighborEdge

	rows, err := s.pool.Query(ctx, `SELECT to_workflow_id FROM abstracted_from_edges WHERE from_workflow_id = $1
		UNION SELECT from_workflow_id FROM abstracted_from_edges WHERE to_workflow_id = $1`, workflowID)
	if err != nil {
		return nil, err
	}
	if err := collectIDs(rows, func(to string) {
		out = append(out, neighborEdge{SeedRef{to, domain.NodeKindWorkflow}, EdgeRef{domain.EdgeAbstractedFrom, workflowID, to}})
	}); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `SELECT event_id FROM derived_from_edges WHERE source_node_id = $1 AND source_kind = 'workflow'`, workflowID)
	if err != nil {
		return nil, err
	}
	if err := collectIDs(rows, func(eid string) {
		out = append(out, neighborEdge{SeedRef{eid, domain.NodeKindEvent}, EdgeRef{domain.EdgeDerivedFrom, workflowID, eid}})
	}); err != nil {
		return nil, err
	}

	return out, nil
}

func (s *Store) patternNeighbors(ctx context.Context, patternID string) ([]neighborEdge, error) {
	var out []neighborEdge

	rows, err := s.pool.Query(ctx, `SELECT user_entity_id FROM exhibits_pattern_edges WHERE pattern_id = $1`, patternID)
	if err != nil {
		return nil, err
	}
	if err := collectIDs(rows, func(uid string) {
		out = append(out, neighborEdge{SeedRef{uid, domain.NodeKindEntity}, EdgeRef{domain.EdgeExhibitsPattern, uid, patternID}})
	}); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `SELECT event_id FROM derived_from_edges WHERE source_node_id = $1 AND source_kind = 'behavioral_pattern'`, patternID)
	if err != nil {
		return nil, err
	}
	if err := collectIDs(rows, func(eid string) {
		out = append(out, neighborEdge{SeedRef{eid, domain.NodeKindEvent}, EdgeRef{domain.EdgeDerivedFrom, patternID, eid}})
	}); err != nil {
		return nil, err
	}

	return out, nil
}

func (s *Store) profileNeighbors(ctx context.Context, profileID string) ([]neighborEdge, error) {
	rows, err := s.pool.Query(ctx, `SELECT user_entity_id FROM has_profile_edges WHERE profile_id = $1`, profileID)
	if err != nil {
		return nil, err
	}
	var out []neighborEdge
	if err := collectIDs(rows, func(uid string) {
		out = append(out, neighborEdge{SeedRef{uid, domain.NodeKindEntity}, EdgeRef{domain.EdgeHasProfile, uid, profileID}})
	}); err != nil {
		return nil, err
	}
	return out, nil
}
