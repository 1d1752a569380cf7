package graphstore

import (
	"context"

	"github.com/ctxatlas/atlas/pkg/domain"
)

// nodeTableByKind is the node-kind-to-table mapping CountNodesByKind
// walks; Event's table lives in the Event Store, not here, since the
// events table doubles as the Event node table (see eventstore's
// package doc) and this Graph Store pool has no connection to count it
// from — callers that need graph_nodes_total{kind="event"} get it from
// eventstore.Store directly.
var nodeTableByKind = map[domain.NodeKind]string{
	domain.NodeKindEntity:            "entities",
	domain.NodeKindSummary:           "summaries",
	domain.NodeKindUserProfile:       "user_profiles",
	domain.NodeKindPreference:        "preferences",
	domain.NodeKindSkill:             "skills",
	domain.NodeKindWorkflow:          "workflows",
	domain.NodeKindBehavioralPattern: "behavioral_patterns",
}

// CountNodesByKind returns the current row count of every Graph-Store-
// resident node table, feeding the graph_nodes_total metric.
func (s *Store) CountNodesByKind(ctx context.Context) (map[domain.NodeKind]int, error) {
	out := make(map[domain.NodeKind]int, len(nodeTableByKind))
	for kind, table := range nodeTableByKind {
		var n int
		if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM "+table).Scan(&n); err != nil {
			return nil, wrapf("count nodes by kind: "+table, err)
		}
		out[kind] = n
	}
	return out, nil
}
