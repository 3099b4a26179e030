// Package identity computes the identity of context-dependent diagram nodes.
//
// Resolve collects the identity region around a changed node: everything
// reachable through Inclusion and Input edges, expanding only through weak
// nodes (kinds that can be Neutral). Strong nodes in the region vote; weak
// nodes take the single agreed value, Neutral when nobody votes, Unknown on
// any disagreement. Enumeration, range restriction and domain restriction
// nodes first derive their own identity from their inputs and, once
// identified, vote in place of the inputs they consumed.
package identity

import (
	"github.com/Benny93/graphol-go/internal/graph"
)

// Change records one identity update performed by Resolve.
type Change struct {
	Node graph.NodeID
	From graph.Identity
	To   graph.Identity
}

// Result summarises a resolution pass.
type Result struct {
	// Region is the identity region in visit order.
	Region []graph.NodeID

	// Value is the aggregate identity assigned to the remaining weak nodes.
	Value graph.Identity

	// Changes lists the nodes whose identity differs from before the pass.
	Changes []Change
}

// Resolve recomputes the identity of every weak node in the identity region
// of changed. An unknown node yields an empty result.
func Resolve(g *graph.Diagram, changed graph.NodeID) Result {
	region := Region(g, changed)
	if len(region) == 0 {
		return Result{Value: graph.IdentityNeutral}
	}

	before := make(map[graph.NodeID]graph.Identity, len(region))
	strong := newNodeSet()
	weak := newNodeSet()
	for _, n := range region {
		before[n.ID] = n.Identity()
		if n.Weak() {
			weak.add(n)
		} else {
			strong.add(n)
		}
	}

	for _, n := range weak.list() {
		identify, ok := identifiers[n.Kind]
		if !ok {
			continue
		}
		computed, consumed := identify(g, n)
		n.SetIdentity(computed)
		if n.Identity() == graph.IdentityNeutral {
			continue
		}
		weak.remove(n.ID)
		strong.add(n)
		for _, c := range consumed {
			strong.remove(c.ID)
		}
	}

	value := aggregate(strong.list())
	for _, n := range weak.list() {
		n.SetIdentity(value)
	}

	result := Result{Region: graph.IDs(region), Value: value}
	for _, n := range region {
		if n.Identity() != before[n.ID] {
			result.Changes = append(result.Changes, Change{Node: n.ID, From: before[n.ID], To: n.Identity()})
		}
	}
	return result
}

// Region returns the identity region of the node in breadth-first order.
func Region(g *graph.Diagram, id graph.NodeID) []*graph.Node {
	return graph.BFS(g, id,
		graph.WithEdgeFilter(func(e *graph.Edge) bool { return propagates(g, e) }),
		graph.WithVisitFilter(func(n *graph.Node) bool { return n.Weak() }),
	)
}

// propagates reports whether identity flows along e. Inputs of domain and
// range restrictions are evidence read by the restriction's identifier, not
// identities the restriction inherits.
func propagates(g *graph.Diagram, e *graph.Edge) bool {
	if !graph.Propagates(e.Kind) {
		return false
	}
	if e.Kind == graph.EdgeInput {
		if target := g.GetNode(e.Target); target != nil && graph.IsRestriction(target.Kind) {
			return false
		}
	}
	return true
}

// aggregate returns the single identity shared by nodes, Neutral for none and
// Unknown on disagreement.
func aggregate(nodes []*graph.Node) graph.Identity {
	if len(nodes) == 0 {
		return graph.IdentityNeutral
	}
	v := nodes[0].Identity()
	for _, n := range nodes[1:] {
		if n.Identity() != v {
			return graph.IdentityUnknown
		}
	}
	return v
}

// nodeSet is an insertion-ordered set of nodes.
type nodeSet struct {
	order []graph.NodeID
	nodes map[graph.NodeID]*graph.Node
}

func newNodeSet() *nodeSet {
	return &nodeSet{nodes: make(map[graph.NodeID]*graph.Node)}
}

func (s *nodeSet) add(n *graph.Node) {
	if _, ok := s.nodes[n.ID]; ok {
		return
	}
	s.nodes[n.ID] = n
	s.order = append(s.order, n.ID)
}

func (s *nodeSet) remove(id graph.NodeID) {
	delete(s.nodes, id)
}

func (s *nodeSet) list() []*graph.Node {
	result := make([]*graph.Node, 0, len(s.nodes))
	listed := make(map[graph.NodeID]bool, len(s.nodes))
	for _, id := range s.order {
		if n, ok := s.nodes[id]; ok && !listed[id] {
			listed[id] = true
			result = append(result, n)
		}
	}
	return result
}
