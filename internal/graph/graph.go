package graph

import (
	"fmt"
	"strconv"
	"strings"
)

// Diagram is the container owning every node and edge of a Graphol diagram.
//
// Nodes and edges are kept in flat maps keyed by ID; adjacency is stored as
// per-node lists of incident edge IDs in insertion order, so iteration and
// therefore traversal order are deterministic. Removing a node cascades to
// every edge where the node appears as source or target.
//
// A Diagram is not safe for concurrent mutation. Callers serialise edits.
type Diagram struct {
	// ID identifies the diagram in storage.
	ID string

	nodes     map[NodeID]*Node
	edges     map[EdgeID]*Edge
	nodeOrder []NodeID
	edgeOrder []EdgeID

	// Secondary indexes, kept in sync by the add/remove helpers.
	byKind   map[NodeKind]map[NodeID]*Node
	incident map[NodeID][]EdgeID

	nextNode int
	nextEdge int
}

// NewDiagram creates a new empty diagram.
func NewDiagram(id string) *Diagram {
	return &Diagram{
		ID:       id,
		nodes:    make(map[NodeID]*Node),
		edges:    make(map[EdgeID]*Edge),
		byKind:   make(map[NodeKind]map[NodeID]*Node),
		incident: make(map[NodeID][]EdgeID),
	}
}

// NodeCount returns the number of nodes.
func (d *Diagram) NodeCount() int {
	return len(d.nodes)
}

// EdgeCount returns the number of edges.
func (d *Diagram) EdgeCount() int {
	return len(d.edges)
}

// CountNodesByKind returns the number of nodes of the given kind.
func (d *Diagram) CountNodesByKind(kind NodeKind) int {
	return len(d.byKind[kind])
}

// NextNodeID returns an unused node ID of the form "n<k>".
func (d *Diagram) NextNodeID() NodeID {
	for {
		id := NodeID("n" + strconv.Itoa(d.nextNode))
		d.nextNode++
		if _, taken := d.nodes[id]; !taken {
			return id
		}
	}
}

// NextEdgeID returns an unused edge ID of the form "e<k>".
func (d *Diagram) NextEdgeID() EdgeID {
	for {
		id := EdgeID("e" + strconv.Itoa(d.nextEdge))
		d.nextEdge++
		if _, taken := d.edges[id]; !taken {
			return id
		}
	}
}

// Counters returns the ID generator state, for persistence.
func (d *Diagram) Counters() (nextNode, nextEdge int) {
	return d.nextNode, d.nextEdge
}

// SetCounters restores the ID generator state. Values lower than the current
// counters are ignored.
func (d *Diagram) SetCounters(nextNode, nextEdge int) {
	d.nextNode = max(d.nextNode, nextNode)
	d.nextEdge = max(d.nextEdge, nextEdge)
}

// AddNode adds a node to the diagram. It fails when the ID is empty or taken.
func (d *Diagram) AddNode(node *Node) error {
	if node.ID == "" {
		return fmt.Errorf("node has no ID")
	}
	if strings.ContainsRune(string(node.ID), 0) {
		return fmt.Errorf("node ID %q contains a NUL byte", node.ID)
	}
	if _, ok := d.nodes[node.ID]; ok {
		return fmt.Errorf("node %s already exists", node.ID)
	}

	d.nodes[node.ID] = node
	d.nodeOrder = append(d.nodeOrder, node.ID)

	if d.byKind[node.Kind] == nil {
		d.byKind[node.Kind] = make(map[NodeID]*Node)
	}
	d.byKind[node.Kind][node.ID] = node

	d.nextNode = bumpCounter(string(node.ID), "n", d.nextNode)
	return nil
}

// GetNode returns the node with the given ID, or nil if it does not exist.
func (d *Diagram) GetNode(id NodeID) *Node {
	return d.nodes[id]
}

// Nodes returns all nodes in insertion order.
func (d *Diagram) Nodes() []*Node {
	result := make([]*Node, 0, len(d.nodeOrder))
	for _, id := range d.nodeOrder {
		result = append(result, d.nodes[id])
	}
	return result
}

// GetNodesByKind returns all nodes of the given kind in insertion order.
func (d *Diagram) GetNodesByKind(kind NodeKind) []*Node {
	nodes, ok := d.byKind[kind]
	if !ok {
		return nil
	}

	result := make([]*Node, 0, len(nodes))
	for _, id := range d.nodeOrder {
		if n, ok := nodes[id]; ok {
			result = append(result, n)
		}
	}
	return result
}

// RemoveNode removes a node and cascade-deletes its incident edges.
// Returns the removed edges, and false if the node did not exist.
func (d *Diagram) RemoveNode(id NodeID) ([]*Edge, bool) {
	node, ok := d.nodes[id]
	if !ok {
		return nil, false
	}

	var removed []*Edge
	for _, eid := range append([]EdgeID(nil), d.incident[id]...) {
		if e, ok := d.RemoveEdge(eid); ok {
			removed = append(removed, e)
		}
	}

	delete(d.nodes, id)
	delete(d.byKind[node.Kind], id)
	delete(d.incident, id)
	d.nodeOrder = removeID(d.nodeOrder, id)
	return removed, true
}

// AddEdge adds an edge between two existing nodes. Input edges targeting a
// node with ordered inputs are appended to that node's Inputs.
func (d *Diagram) AddEdge(edge *Edge) error {
	if edge.ID == "" {
		return fmt.Errorf("edge has no ID")
	}
	if _, ok := d.edges[edge.ID]; ok {
		return fmt.Errorf("edge %s already exists", edge.ID)
	}
	if _, ok := d.nodes[edge.Source]; !ok {
		return fmt.Errorf("edge %s: source node %s not found", edge.ID, edge.Source)
	}
	target, ok := d.nodes[edge.Target]
	if !ok {
		return fmt.Errorf("edge %s: target node %s not found", edge.ID, edge.Target)
	}

	d.edges[edge.ID] = edge
	d.edgeOrder = append(d.edgeOrder, edge.ID)
	d.incident[edge.Source] = append(d.incident[edge.Source], edge.ID)
	if edge.Target != edge.Source {
		d.incident[edge.Target] = append(d.incident[edge.Target], edge.ID)
	}

	if edge.Kind == EdgeInput && target.Inputs != nil {
		target.Inputs.Append(edge.ID)
	}

	d.nextEdge = bumpCounter(string(edge.ID), "e", d.nextEdge)
	return nil
}

// GetEdge returns the edge with the given ID, or nil if it does not exist.
func (d *Diagram) GetEdge(id EdgeID) *Edge {
	return d.edges[id]
}

// AllEdges returns all edges in insertion order.
func (d *Diagram) AllEdges() []*Edge {
	result := make([]*Edge, 0, len(d.edgeOrder))
	for _, id := range d.edgeOrder {
		result = append(result, d.edges[id])
	}
	return result
}

// RemoveEdge removes an edge and drops it from the target's Inputs.
func (d *Diagram) RemoveEdge(id EdgeID) (*Edge, bool) {
	edge, ok := d.edges[id]
	if !ok {
		return nil, false
	}

	delete(d.edges, id)
	d.edgeOrder = removeID(d.edgeOrder, id)
	d.incident[edge.Source] = removeID(d.incident[edge.Source], id)
	d.incident[edge.Target] = removeID(d.incident[edge.Target], id)

	if target, ok := d.nodes[edge.Target]; ok && target.Inputs != nil {
		target.Inputs.Remove(id)
	}
	return edge, true
}

// Edges returns the edges incident to the node in insertion order.
func (d *Diagram) Edges(id NodeID) []*Edge {
	ids := d.incident[id]
	result := make([]*Edge, 0, len(ids))
	for _, eid := range ids {
		result = append(result, d.edges[eid])
	}
	return result
}

// Other returns the endpoint of the edge opposite to id.
func (d *Diagram) Other(edge *Edge, id NodeID) NodeID {
	return edge.Other(id)
}

// GetIncoming returns edges targeting the node.
// If kind is provided, only edges of that kind are returned.
func (d *Diagram) GetIncoming(id NodeID, kind ...EdgeKind) []*Edge {
	return d.filterIncident(id, func(e *Edge) bool { return e.Target == id }, kind)
}

// GetOutgoing returns edges originating from the node.
// If kind is provided, only edges of that kind are returned.
func (d *Diagram) GetOutgoing(id NodeID, kind ...EdgeKind) []*Edge {
	return d.filterIncident(id, func(e *Edge) bool { return e.Source == id }, kind)
}

// InputNodes returns the source nodes of Input edges targeting id, skipping
// the edge being edited (if any).
func (d *Diagram) InputNodes(id NodeID, except EdgeID) []*Node {
	var result []*Node
	for _, e := range d.GetIncoming(id, EdgeInput) {
		if e.ID == except {
			continue
		}
		if n := d.nodes[e.Source]; n != nil {
			result = append(result, n)
		}
	}
	return result
}

// Neighbours returns the distinct nodes adjacent to id.
func (d *Diagram) Neighbours(id NodeID) []*Node {
	seen := make(map[NodeID]bool)
	var result []*Node
	for _, e := range d.Edges(id) {
		other := e.Other(id)
		if other == id || seen[other] {
			continue
		}
		seen[other] = true
		if n := d.nodes[other]; n != nil {
			result = append(result, n)
		}
	}
	return result
}

// Stats returns a summary of diagram size.
func (d *Diagram) Stats() map[string]int {
	return map[string]int{
		"nodes": len(d.nodes),
		"edges": len(d.edges),
	}
}

func (d *Diagram) filterIncident(id NodeID, side func(*Edge) bool, kind []EdgeKind) []*Edge {
	var result []*Edge
	for _, eid := range d.incident[id] {
		e := d.edges[eid]
		if !side(e) {
			continue
		}
		if len(kind) > 0 && kind[0] != "" && e.Kind != kind[0] {
			continue
		}
		result = append(result, e)
	}
	return result
}

func removeID[T comparable](ids []T, id T) []T {
	for i, x := range ids {
		if x == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// bumpCounter keeps a generator counter ahead of explicitly supplied IDs.
func bumpCounter(id, prefix string, next int) int {
	if !strings.HasPrefix(id, prefix) {
		return next
	}
	k, err := strconv.Atoi(id[len(prefix):])
	if err != nil || k < next {
		return next
	}
	return k + 1
}
