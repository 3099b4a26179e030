package graph

// Adjacency is the read-only view of a diagram that traversal needs.
type Adjacency interface {
	// GetNode returns the node with the given ID, or nil.
	GetNode(id NodeID) *Node

	// Edges returns the edges incident to the node, in a stable order.
	Edges(id NodeID) []*Edge
}

// EdgeFilter decides whether traversal may cross an edge.
type EdgeFilter func(*Edge) bool

// NodeFilter decides whether a node is admitted or expanded.
type NodeFilter func(*Node) bool

type traverseOptions struct {
	edges EdgeFilter
	nodes NodeFilter
	visit NodeFilter
}

// TraverseOption configures BFS and DFS.
type TraverseOption func(*traverseOptions)

// WithEdgeFilter restricts the edges traversal may cross.
func WithEdgeFilter(f EdgeFilter) TraverseOption {
	return func(o *traverseOptions) { o.edges = f }
}

// WithNodeFilter restricts the nodes admitted into the result. A rejected
// node is neither collected nor expanded.
func WithNodeFilter(f NodeFilter) TraverseOption {
	return func(o *traverseOptions) { o.nodes = f }
}

// WithVisitFilter restricts the nodes whose neighbours are explored. A
// rejected node is still collected.
func WithVisitFilter(f NodeFilter) TraverseOption {
	return func(o *traverseOptions) { o.visit = f }
}

func buildOptions(opts []TraverseOption) traverseOptions {
	o := traverseOptions{
		edges: func(*Edge) bool { return true },
		nodes: func(*Node) bool { return true },
		visit: func(*Node) bool { return true },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// BFS returns the nodes reachable from source in breadth-first visit order.
// The source is always first and no node appears twice. An unknown source
// yields nil.
func BFS(g Adjacency, source NodeID, opts ...TraverseOption) []*Node {
	start := g.GetNode(source)
	if start == nil {
		return nil
	}
	o := buildOptions(opts)

	queue := []*Node{start}
	seen := map[NodeID]bool{source: true}
	var ordered []*Node

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		ordered = append(ordered, node)

		if !o.visit(node) {
			continue
		}
		for _, next := range neighbours(g, node, &o, seen) {
			seen[next.ID] = true
			queue = append(queue, next)
		}
	}

	return ordered
}

// DFS returns the nodes reachable from source in depth-first visit order,
// using the same filter semantics as BFS.
func DFS(g Adjacency, source NodeID, opts ...TraverseOption) []*Node {
	start := g.GetNode(source)
	if start == nil {
		return nil
	}
	o := buildOptions(opts)

	stack := []*Node{start}
	visited := make(map[NodeID]bool)
	var ordered []*Node

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[node.ID] {
			continue
		}
		visited[node.ID] = true
		ordered = append(ordered, node)

		if !o.visit(node) {
			continue
		}
		next := neighbours(g, node, &o, visited)
		// Push in reverse so the first incident edge is explored first.
		for i := len(next) - 1; i >= 0; i-- {
			stack = append(stack, next[i])
		}
	}

	return ordered
}

// neighbours returns the admissible, not yet seen neighbours of node.
func neighbours(g Adjacency, node *Node, o *traverseOptions, seen map[NodeID]bool) []*Node {
	var result []*Node
	local := make(map[NodeID]bool)
	for _, e := range g.Edges(node.ID) {
		if !o.edges(e) {
			continue
		}
		id := e.Other(node.ID)
		if seen[id] || local[id] {
			continue
		}
		other := g.GetNode(id)
		if other == nil || !o.nodes(other) {
			continue
		}
		local[id] = true
		result = append(result, other)
	}
	return result
}

// IDs returns the IDs of nodes, preserving order.
func IDs(nodes []*Node) []NodeID {
	ids := make([]NodeID, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}
