package config

import "time"

// GraphStoreConfig configures the pgx-backed relational emulation of the
// property graph store.
type GraphStoreConfig struct {
	// MaxTraversalDepth is the hard cap a caller's max_depth is clamped
	// to, regardless of what the request asks for.
	MaxTraversalDepth int `yaml:"max_traversal_depth"`

	// MaxTraversalNodes is the hard cap on nodes returned by a single
	// traversal.
	MaxTraversalNodes int `yaml:"max_traversal_nodes"`

	// DefaultTraversalTimeout bounds get_subgraph/get_lineage/get_context
	// calls that don't specify timeout_ms.
	DefaultTraversalTimeout time.Duration `yaml:"default_traversal_timeout"`

	// AccessUpdateBufferSize is the size of the async update_access
	// queue; writes are fire-and-forget and never block a read response.
	AccessUpdateBufferSize int `yaml:"access_update_buffer_size"`
}

// DefaultGraphStoreConfig returns the built-in Graph Store defaults.
func DefaultGraphStoreConfig() *GraphStoreConfig {
	return &GraphStoreConfig{
		MaxTraversalDepth:       10,
		MaxTraversalNodes:       500,
		DefaultTraversalTimeout: 2 * time.Second,
		AccessUpdateBufferSize:  1024,
	}
}
