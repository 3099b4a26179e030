package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/Benny93/graphol-go/internal/graph"
)

// Key prefixes for different data types
const (
	prefixNode     = "n:"     // node records
	prefixEdge     = "e:"     // edge records
	prefixIndex    = "i:"     // adjacency entries
	prefixIncoming = "i:in:"  // i:in:<target>\x00<kind>\x00<edge> -> source
	prefixOutgoing = "i:out:" // i:out:<source>\x00<kind>\x00<edge> -> target
	keyMeta        = "m:meta" // diagram metadata

	keySep = "\x00"
)

// BadgerBackend is a BadgerDB-backed storage implementation.
type BadgerBackend struct {
	db          *badger.DB
	initialized bool
	mu          sync.RWMutex
	nodeCount   int
	edgeCount   int
	labels      labelIndex
}

// NewBadgerBackend creates a new BadgerDB backend.
func NewBadgerBackend() *BadgerBackend {
	return &BadgerBackend{}
}

// Initialize opens or creates the BadgerDB database at the given path.
func (b *BadgerBackend) Initialize(path string, readOnly bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	opts := badger.DefaultOptions(path).
		WithNumCompactors(2).
		WithNumMemtables(5).
		WithLoggingLevel(badger.ERROR) // Suppress INFO/WARNING logs

	if readOnly {
		opts = opts.WithReadOnly(true)
	}

	var err error
	b.db, err = badger.Open(opts)
	if err != nil {
		return fmt.Errorf("opening badger DB: %w", err)
	}

	b.initialized = true
	return b.rebuildIndex()
}

// rebuildIndex recounts the stored records and rebuilds the label index.
func (b *BadgerBackend) rebuildIndex() error {
	b.labels = make(labelIndex)
	b.nodeCount = 0
	b.edgeCount = 0

	return b.db.View(func(txn *badger.Txn) error {
		nodes, err := scan[nodeRecord](txn, prefixNode)
		if err != nil {
			return err
		}
		for _, rec := range nodes {
			b.labels.add(rec.ID, rec.Label)
		}
		b.nodeCount = len(nodes)

		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixEdge)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			b.edgeCount++
		}
		return nil
	})
}

// Close releases all resources held by the backend.
func (b *BadgerBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}

	err := b.db.Close()
	b.db = nil
	b.initialized = false
	return err
}

// BulkLoad replaces the entire store with the contents of the diagram. The
// old records are deleted and the new ones written in a single transaction,
// so a failed or cancelled save leaves the previous diagram in place.
func (b *BadgerBackend) BulkLoad(ctx context.Context, d *graph.Diagram) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return fmt.Errorf("backend not initialized")
	}

	meta, nodes, edges := snapshot(d)
	meta.SavedAt = time.Now().UTC()
	labels := make(labelIndex)

	err := b.db.Update(func(txn *badger.Txn) error {
		for _, prefix := range []string{prefixNode, prefixEdge, prefixIndex} {
			if err := deletePrefix(txn, prefix); err != nil {
				return fmt.Errorf("clearing %s records: %w", prefix, err)
			}
		}

		for _, rec := range nodes {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := setJSON(txn, nodeKey(rec.ID), rec); err != nil {
				return fmt.Errorf("writing node %s: %w", rec.ID, err)
			}
			labels.add(rec.ID, rec.Label)
		}

		for _, rec := range edges {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := setJSON(txn, edgeKey(rec.ID), rec); err != nil {
				return fmt.Errorf("writing edge %s: %w", rec.ID, err)
			}
			if err := indexEdge(txn, rec); err != nil {
				return fmt.Errorf("indexing edge %s: %w", rec.ID, err)
			}
		}

		if err := setJSON(txn, []byte(keyMeta), meta); err != nil {
			return fmt.Errorf("writing metadata: %w", err)
		}
		return ctx.Err()
	})
	if err != nil {
		return fmt.Errorf("saving diagram: %w", err)
	}

	b.labels = labels
	b.nodeCount = len(nodes)
	b.edgeCount = len(edges)
	return nil
}

// deletePrefix removes every key under prefix.
func deletePrefix(txn *badger.Txn, prefix string) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)

	var keys [][]byte
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, k := range keys {
		if err := txn.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// adjacencyKey builds an index key. Parts are NUL-separated because node and
// edge IDs are free-form and may contain any printable separator.
func adjacencyKey(prefix string, parts ...string) []byte {
	return []byte(prefix + strings.Join(parts, keySep))
}

// indexEdge writes the adjacency entries of an edge. Each entry's value is
// the node at the other end, so traversal never decodes edge records.
func indexEdge(txn *badger.Txn, rec *edgeRecord) error {
	out := adjacencyKey(prefixOutgoing, string(rec.Source), string(rec.Kind), string(rec.ID))
	if err := txn.Set(out, []byte(rec.Target)); err != nil {
		return err
	}
	in := adjacencyKey(prefixIncoming, string(rec.Target), string(rec.Kind), string(rec.ID))
	return txn.Set(in, []byte(rec.Source))
}

// Load rebuilds the stored diagram.
func (b *BadgerBackend) Load(ctx context.Context) (*graph.Diagram, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var (
		meta  Meta
		nodes []*nodeRecord
		edges []*edgeRecord
	)
	err := b.db.View(func(txn *badger.Txn) error {
		if err := getJSON(txn, []byte(keyMeta), &meta); err != nil {
			return err
		}
		var err error
		if nodes, err = scan[nodeRecord](txn, prefixNode); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		edges, err = scan[edgeRecord](txn, prefixEdge)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("loading diagram: %w", err)
	}

	return assemble(&meta, nodes, edges)
}

// Meta returns the metadata written by the last BulkLoad.
func (b *BadgerBackend) Meta(ctx context.Context) (*Meta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var meta Meta
	err := b.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte(keyMeta), &meta)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}
	return &meta, nil
}

// GetNode retrieves a single node by ID.
func (b *BadgerBackend) GetNode(ctx context.Context, id graph.NodeID) (*graph.Node, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var node *graph.Node
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		node, err = getNode(txn, id)
		return err
	})
	return node, err
}

// GetNodesByKind returns every stored node of the given kind in diagram
// order.
func (b *BadgerBackend) GetNodesByKind(ctx context.Context, kind graph.NodeKind) ([]*graph.Node, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var records []*nodeRecord
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		records, err = scan[nodeRecord](txn, prefixNode)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning nodes: %w", err)
	}
	return filterKind(records, kind), nil
}

// Traverse performs a breadth-first walk over the adjacency indexes.
func (b *BadgerBackend) Traverse(ctx context.Context, start graph.NodeID, depth int) ([]*graph.Node, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	depth = min(depth, maxTraverseDepth)

	var result []*graph.Node
	err := b.db.View(func(txn *badger.Txn) error {
		visited := map[graph.NodeID]bool{start: true}
		frontier := []graph.NodeID{start}

		for level := 0; level < depth && len(frontier) > 0; level++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			var next []graph.NodeID
			for _, id := range frontier {
				others, err := adjacent(txn, id)
				if err != nil {
					return err
				}
				for _, other := range others {
					if visited[other] {
						continue
					}
					visited[other] = true
					node, err := getNode(txn, other)
					if err != nil {
						return err
					}
					if node == nil {
						continue
					}
					result = append(result, node)
					next = append(next, other)
				}
			}
			frontier = next
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("traversing from %s: %w", start, err)
	}
	return result, nil
}

// adjacent lists the nodes one edge away from id, outgoing before incoming.
func adjacent(txn *badger.Txn, id graph.NodeID) ([]graph.NodeID, error) {
	var ids []graph.NodeID
	for _, prefix := range []string{prefixOutgoing, prefixIncoming} {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = adjacencyKey(prefix, string(id), "")
		it := txn.NewIterator(opts)
		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				ids = append(ids, graph.NodeID(val))
				return nil
			})
			if err != nil {
				it.Close()
				return nil, fmt.Errorf("reading adjacency of %s: %w", id, err)
			}
		}
		it.Close()
	}
	return ids, nil
}

// SearchLabels ranks stored nodes by label token matches.
func (b *BadgerBackend) SearchLabels(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.labels == nil {
		return []SearchResult{}, nil
	}

	hits := b.labels.search(query, limit)
	results := make([]SearchResult, 0, len(hits))
	err := b.db.View(func(txn *badger.Txn) error {
		for _, h := range hits {
			node, err := getNode(txn, h.id)
			if err != nil {
				return err
			}
			if node == nil {
				continue
			}
			results = append(results, SearchResult{
				NodeID: node.ID,
				Kind:   node.Kind,
				Label:  node.Label,
				Score:  float64(h.score),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("searching labels: %w", err)
	}
	return results, nil
}

// NodeCount returns the number of stored nodes.
func (b *BadgerBackend) NodeCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nodeCount
}

// EdgeCount returns the number of stored edges.
func (b *BadgerBackend) EdgeCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.edgeCount
}

func nodeKey(id graph.NodeID) []byte {
	return []byte(prefixNode + string(id))
}

func edgeKey(id graph.EdgeID) []byte {
	return []byte(prefixEdge + string(id))
}

func getNode(txn *badger.Txn, id graph.NodeID) (*graph.Node, error) {
	var rec nodeRecord
	err := getJSON(txn, nodeKey(id), &rec)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading node %s: %w", id, err)
	}
	return rec.node(), nil
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling: %w", err)
	}
	return txn.Set(key, data)
}

// scan decodes every value under prefix.
func scan[T any](txn *badger.Txn, prefix string) ([]*T, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	var out []*T
	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		v := new(T)
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		}); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", item.Key(), err)
		}
		out = append(out, v)
	}
	return out, nil
}

// filterKind returns the records of the given kind as nodes, in diagram
// order.
func filterKind(records []*nodeRecord, kind graph.NodeKind) []*graph.Node {
	sortBySeq(records)
	nodes := make([]*graph.Node, 0)
	for _, rec := range records {
		if rec.Kind == kind {
			nodes = append(nodes, rec.node())
		}
	}
	return nodes
}
