package storage

import (
	"context"
	"sync"
	"time"

	"github.com/Benny93/graphol-go/internal/graph"
)

// MemoryBackend is an in-memory implementation of StorageBackend for testing.
// It keeps records rather than live nodes, so a loaded diagram never shares
// state with the one that was saved.
type MemoryBackend struct {
	mu     sync.RWMutex
	meta   *Meta
	nodes  map[graph.NodeID]*nodeRecord
	edges  []*edgeRecord
	labels labelIndex
}

// NewMemoryBackend creates a new in-memory storage backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		nodes:  make(map[graph.NodeID]*nodeRecord),
		labels: make(labelIndex),
	}
}

// Initialize implements StorageBackend.
func (m *MemoryBackend) Initialize(path string, readOnly bool) error {
	return nil
}

// Close implements StorageBackend.
func (m *MemoryBackend) Close() error {
	return nil
}

// BulkLoad implements StorageBackend.
func (m *MemoryBackend) BulkLoad(ctx context.Context, d *graph.Diagram) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	meta, nodes, edges := snapshot(d)
	meta.SavedAt = time.Now().UTC()

	m.meta = meta
	m.nodes = make(map[graph.NodeID]*nodeRecord, len(nodes))
	m.labels = make(labelIndex)
	for _, rec := range nodes {
		m.nodes[rec.ID] = rec
		m.labels.add(rec.ID, rec.Label)
	}
	m.edges = edges
	return nil
}

// Load implements StorageBackend.
func (m *MemoryBackend) Load(ctx context.Context) (*graph.Diagram, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.meta == nil {
		return nil, ErrEmpty
	}
	nodes := make([]*nodeRecord, 0, len(m.nodes))
	for _, rec := range m.nodes {
		nodes = append(nodes, rec)
	}
	edges := make([]*edgeRecord, len(m.edges))
	copy(edges, m.edges)
	meta := *m.meta
	return assemble(&meta, nodes, edges)
}

// Meta implements StorageBackend.
func (m *MemoryBackend) Meta(ctx context.Context) (*Meta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.meta == nil {
		return nil, ErrEmpty
	}
	meta := *m.meta
	return &meta, nil
}

// GetNode implements StorageBackend.
func (m *MemoryBackend) GetNode(ctx context.Context, id graph.NodeID) (*graph.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.nodes[id]
	if !ok {
		return nil, nil
	}
	return rec.node(), nil
}

// GetNodesByKind implements StorageBackend.
func (m *MemoryBackend) GetNodesByKind(ctx context.Context, kind graph.NodeKind) ([]*graph.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]*nodeRecord, 0, len(m.nodes))
	for _, rec := range m.nodes {
		records = append(records, rec)
	}
	return filterKind(records, kind), nil
}

// Traverse implements StorageBackend.
func (m *MemoryBackend) Traverse(ctx context.Context, start graph.NodeID, depth int) ([]*graph.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	adjacency := make(map[graph.NodeID][]graph.NodeID)
	for _, e := range m.edges {
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
		adjacency[e.Target] = append(adjacency[e.Target], e.Source)
	}

	depth = min(depth, maxTraverseDepth)
	visited := map[graph.NodeID]bool{start: true}
	frontier := []graph.NodeID{start}
	var result []*graph.Node

	for level := 0; level < depth && len(frontier) > 0; level++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var next []graph.NodeID
		for _, id := range frontier {
			for _, other := range adjacency[id] {
				if visited[other] {
					continue
				}
				visited[other] = true
				if rec, ok := m.nodes[other]; ok {
					result = append(result, rec.node())
					next = append(next, other)
				}
			}
		}
		frontier = next
	}
	return result, nil
}

// SearchLabels implements StorageBackend.
func (m *MemoryBackend) SearchLabels(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := []SearchResult{}
	for _, h := range m.labels.search(query, limit) {
		rec, ok := m.nodes[h.id]
		if !ok {
			continue
		}
		results = append(results, SearchResult{
			NodeID: rec.ID,
			Kind:   rec.Kind,
			Label:  rec.Label,
			Score:  float64(h.score),
		})
	}
	return results, nil
}

// NodeCount implements StorageBackend.
func (m *MemoryBackend) NodeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes)
}

// EdgeCount implements StorageBackend.
func (m *MemoryBackend) EdgeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.edges)
}
