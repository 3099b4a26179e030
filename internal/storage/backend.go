// Package storage persists Graphol diagrams.
package storage

import (
	"context"
	"time"

	"github.com/Benny93/graphol-go/internal/graph"
)

// StorageBackend defines the interface for diagram storage.
type StorageBackend interface {
	// Initialize opens or creates the store at path.
	Initialize(path string, readOnly bool) error

	// Close releases all resources held by the backend.
	Close() error

	// BulkLoad replaces the entire store with the contents of the diagram.
	BulkLoad(ctx context.Context, d *graph.Diagram) error

	// Load rebuilds the stored diagram, identities and argument order
	// included. It returns ErrEmpty when nothing has been saved yet.
	Load(ctx context.Context) (*graph.Diagram, error)

	// Meta returns the metadata written by the last BulkLoad.
	Meta(ctx context.Context) (*Meta, error)

	// GetNode retrieves a single node by ID. The node is detached from any
	// diagram. It returns nil when the node does not exist.
	GetNode(ctx context.Context, id graph.NodeID) (*graph.Node, error)

	// GetNodesByKind returns every stored node of the given kind.
	GetNodesByKind(ctx context.Context, kind graph.NodeKind) ([]*graph.Node, error)

	// Traverse returns the nodes reachable from start within depth hops,
	// following edges in both directions, in breadth-first order.
	Traverse(ctx context.Context, start graph.NodeID, depth int) ([]*graph.Node, error)

	// SearchLabels ranks nodes by how many label tokens match the query.
	SearchLabels(ctx context.Context, query string, limit int) ([]SearchResult, error)

	// NodeCount returns the number of stored nodes.
	NodeCount() int

	// EdgeCount returns the number of stored edges.
	EdgeCount() int
}

// Meta describes a stored diagram.
type Meta struct {
	DiagramID string    `json:"diagram_id"`
	NextNode  int       `json:"next_node"`
	NextEdge  int       `json:"next_edge"`
	Nodes     int       `json:"nodes"`
	Edges     int       `json:"edges"`
	SavedAt   time.Time `json:"saved_at"`
}

// SearchResult represents a label search hit.
type SearchResult struct {
	NodeID graph.NodeID   `json:"node_id"`
	Kind   graph.NodeKind `json:"kind"`
	Label  string         `json:"label"`
	Score  float64        `json:"score"`
}

// maxTraverseDepth caps Traverse regardless of the requested depth.
const maxTraverseDepth = 10
