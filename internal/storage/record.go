package storage

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/Benny93/graphol-go/internal/graph"
)

// ErrEmpty is returned by Load when no diagram has been stored.
var ErrEmpty = errors.New("no diagram stored")

// nodeRecord is the stored form of a node. Seq preserves diagram insertion
// order, which key iteration does not.
type nodeRecord struct {
	Seq         int               `json:"seq"`
	ID          graph.NodeID      `json:"id"`
	Kind        graph.NodeKind    `json:"kind"`
	Label       string            `json:"label,omitempty"`
	Identity    graph.Identity    `json:"identity"`
	Restriction graph.Restriction `json:"restriction,omitempty"`
	Cardinality graph.Cardinality `json:"cardinality"`
	Special     graph.Special     `json:"special,omitempty"`
	Inputs      []graph.EdgeID    `json:"inputs,omitempty"`
}

type edgeRecord struct {
	Seq        int            `json:"seq"`
	ID         graph.EdgeID   `json:"id"`
	Kind       graph.EdgeKind `json:"kind"`
	Source     graph.NodeID   `json:"source"`
	Target     graph.NodeID   `json:"target"`
	Complete   bool           `json:"complete,omitempty"`
	Functional bool           `json:"functional,omitempty"`
}

func newNodeRecord(seq int, n *graph.Node) *nodeRecord {
	rec := &nodeRecord{
		Seq:         seq,
		ID:          n.ID,
		Kind:        n.Kind,
		Label:       n.Label,
		Identity:    n.Identity(),
		Restriction: n.Restriction,
		Cardinality: n.Cardinality,
		Special:     n.Special,
	}
	if n.Inputs != nil {
		rec.Inputs = n.Inputs.IDs()
	}
	return rec
}

// node returns a detached node. Ordered inputs are restored by assemble once
// the edges exist.
func (r *nodeRecord) node() *graph.Node {
	n := graph.NewNode(r.ID, r.Kind)
	n.Label = r.Label
	n.SetIdentity(r.Identity)
	if r.Restriction != "" {
		n.Restriction = r.Restriction
	}
	n.Cardinality = r.Cardinality
	n.Special = r.Special
	return n
}

func newEdgeRecord(seq int, e *graph.Edge) *edgeRecord {
	return &edgeRecord{
		Seq:        seq,
		ID:         e.ID,
		Kind:       e.Kind,
		Source:     e.Source,
		Target:     e.Target,
		Complete:   e.Complete,
		Functional: e.Functional,
	}
}

func (r *edgeRecord) edge() *graph.Edge {
	return &graph.Edge{
		ID:         r.ID,
		Kind:       r.Kind,
		Source:     r.Source,
		Target:     r.Target,
		Complete:   r.Complete,
		Functional: r.Functional,
	}
}

// snapshot flattens d into records. A diagram without an ID is given one.
func snapshot(d *graph.Diagram) (*Meta, []*nodeRecord, []*edgeRecord) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}

	nodes := make([]*nodeRecord, 0, d.NodeCount())
	for i, n := range d.Nodes() {
		nodes = append(nodes, newNodeRecord(i, n))
	}
	edges := make([]*edgeRecord, 0, d.EdgeCount())
	for i, e := range d.AllEdges() {
		edges = append(edges, newEdgeRecord(i, e))
	}

	nextNode, nextEdge := d.Counters()
	meta := &Meta{
		DiagramID: d.ID,
		NextNode:  nextNode,
		NextEdge:  nextEdge,
		Nodes:     len(nodes),
		Edges:     len(edges),
	}
	return meta, nodes, edges
}

// assemble rebuilds a diagram from stored records.
func assemble(meta *Meta, nodes []*nodeRecord, edges []*edgeRecord) (*graph.Diagram, error) {
	sortBySeq(nodes)
	sort.Slice(edges, func(i, j int) bool { return edges[i].Seq < edges[j].Seq })

	d := graph.NewDiagram(meta.DiagramID)
	for _, rec := range nodes {
		if err := d.AddNode(rec.node()); err != nil {
			return nil, fmt.Errorf("restoring node %s: %w", rec.ID, err)
		}
	}
	for _, rec := range edges {
		if err := d.AddEdge(rec.edge()); err != nil {
			return nil, fmt.Errorf("restoring edge %s: %w", rec.ID, err)
		}
	}
	for _, rec := range nodes {
		restoreInputs(d.GetNode(rec.ID), rec.Inputs)
	}
	d.SetCounters(meta.NextNode, meta.NextEdge)
	return d, nil
}

// restoreInputs reorders n's inputs to the stored argument order. Inputs
// that were recorded but no longer exist are dropped; inputs the record does
// not know keep their relative order at the end.
func restoreInputs(n *graph.Node, stored []graph.EdgeID) {
	if n == nil || n.Inputs == nil {
		return
	}
	current := n.Inputs
	ordered := graph.NewInputs()
	for _, id := range stored {
		if current.Contains(id) {
			ordered.Append(id)
		}
	}
	for _, id := range current.IDs() {
		ordered.Append(id)
	}
	n.Inputs = ordered
}

func sortBySeq(nodes []*nodeRecord) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Seq < nodes[j].Seq })
}
