package domain

import "time"

// Provenance is the back-pointer every returned node carries to the
// Event(s) it traces to.
type Provenance struct {
	EventID        string    `json:"event_id"`
	GlobalPosition string    `json:"global_position"`
	Source         string    `json:"source"`
	OccurredAt     time.Time `json:"occurred_at"`
	SessionID      string    `json:"session_id"`
	AgentID        string    `json:"agent_id"`
	TraceID        string    `json:"trace_id"`
}

// Scores carries the decay-scoring breakdown for one node in a response,
// so callers can see why a node ranked where it did.
type Scores struct {
	Recency      float64 `json:"recency"`
	Importance   float64 `json:"importance"`
	Relevance    float64 `json:"relevance"`
	UserAffinity float64 `json:"user_affinity"`
	Composite    float64 `json:"composite"`
}

// RetrievalReason explains why a node is present in a response.
type RetrievalReason string

const (
	ReasonSeed      RetrievalReason = "seed"
	ReasonTraversal RetrievalReason = "traversal"
	ReasonProactive RetrievalReason = "proactive"
)

// AtlasNode is one entry in an Atlas response's node map.
type AtlasNode struct {
	ID              string          `json:"id"`
	Type            NodeKind        `json:"type"`
	Attributes      interface{}     `json:"attributes"`
	Provenance      []Provenance    `json:"provenance"`
	Scores          Scores          `json:"scores"`
	RetrievalReason RetrievalReason `json:"retrieval_reason"`
}

// AtlasEdge is one entry in an Atlas response's edge list.
type AtlasEdge struct {
	Source     string      `json:"source"`
	Target     string      `json:"target"`
	Type       EdgeType    `json:"type"`
	Properties interface{} `json:"properties,omitempty"`
}

// Episode groups nodes that share a trace_id, used by the working-memory
// assembly path when chunking a session by episode.
type Episode struct {
	TraceID   string    `json:"trace_id"`
	NodeIDs   []string  `json:"node_ids"`
	Summary   string    `json:"summary,omitempty"`
	TimeStart time.Time `json:"time_start"`
	TimeEnd   time.Time `json:"time_end"`
}

// Capacity reports the bounds a traversal was run under and how much of
// that budget it used, for the response's meta block.
type Capacity struct {
	MaxNodes  int `json:"max_nodes"`
	UsedNodes int `json:"used_nodes"`
	MaxDepth  int `json:"max_depth"`
}

// Meta is the Atlas response's metadata block.
type Meta struct {
	QueryMs            int64              `json:"query_ms"`
	NodesReturned       int               `json:"nodes_returned"`
	Truncated           bool              `json:"truncated"`
	InferredIntents     map[Intent]float64 `json:"inferred_intents,omitempty"`
	IntentOverride      *Intent           `json:"intent_override,omitempty"`
	SeedNodes           []string          `json:"seed_nodes"`
	ProactiveNodesCount int               `json:"proactive_nodes_count"`
	ScoringWeights      ScoringWeights    `json:"scoring_weights"`
	Capacity            Capacity          `json:"capacity"`
}

// ScoringWeights are the w_r/w_i/w_v/w_u weights applied to this response,
// echoed back for caller transparency.
type ScoringWeights struct {
	Recency      float64 `json:"recency"`
	Importance   float64 `json:"importance"`
	Relevance    float64 `json:"relevance"`
	UserAffinity float64 `json:"user_affinity"`
}

// Pagination carries an opaque continuation cursor.
type Pagination struct {
	Cursor string `json:"cursor"`
}

// AtlasResponse is the canonical graph-query response shape: nodes,
// edges, optional episodes, meta, and an optional pagination cursor.
type AtlasResponse struct {
	Nodes      map[string]AtlasNode `json:"nodes"`
	Edges      []AtlasEdge          `json:"edges"`
	Episodes   []Episode            `json:"episodes,omitempty"`
	Meta       Meta                 `json:"meta"`
	Pagination *Pagination          `json:"pagination,omitempty"`
}

// EmptyAtlasResponse returns the canonical shape for an unknown/empty
// session.
func EmptyAtlasResponse() AtlasResponse {
	return AtlasResponse{
		Nodes: map[string]AtlasNode{},
		Edges: []AtlasEdge{},
		Meta: Meta{
			NodesReturned: 0,
			SeedNodes:     []string{},
		},
	}
}
