// Package editor is the structural edit layer of a Graphol diagram.
//
// Every mutation of a diagram goes through an Editor: edges are checked by
// the validity rules before they are committed, and identity resolution runs
// on the affected endpoints after every edit, so the diagram is always left
// fully resolved.
package editor

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/Benny93/graphol-go/internal/graph"
	"github.com/Benny93/graphol-go/internal/identity"
	"github.com/Benny93/graphol-go/internal/validity"
)

// Operation names, used as metric labels and edit-script ops.
const (
	OpAddNode        = "add-node"
	OpConnect        = "connect"
	OpDisconnect     = "disconnect"
	OpRemoveNode     = "remove-node"
	OpSwap           = "swap"
	OpRestrict       = "restrict"
	OpIndividualKind = "individual-kind"
	OpMoveInput      = "move-input"
)

// Editor applies structural edits to a diagram. It is not safe for
// concurrent use.
type Editor struct {
	diagram     *graph.Diagram
	logger      *log.Logger
	metrics     *Metrics
	changes     []identity.Change
	restriction graph.Restriction
	profile     validity.Profile
}

// Option configures an Editor.
type Option func(*Editor)

// WithLogger sets the logger used for edit traces.
func WithLogger(l *log.Logger) Option {
	return func(e *Editor) { e.logger = l }
}

// WithMetrics sets the collectors updated by every edit.
func WithMetrics(m *Metrics) Option {
	return func(e *Editor) { e.metrics = m }
}

// WithDefaultRestriction sets the quantifier given to new domain and range
// restriction nodes that do not specify one.
func WithDefaultRestriction(r graph.Restriction) Option {
	return func(e *Editor) { e.restriction = r }
}

// WithProfile restricts edits to an OWL 2 profile. Nodes and edges outside
// it are rejected.
func WithProfile(p validity.Profile) Option {
	return func(e *Editor) { e.profile = p }
}

// New returns an editor over d.
func New(d *graph.Diagram, opts ...Option) *Editor {
	e := &Editor{diagram: d}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.Default()
	}
	return e
}

// Diagram returns the edited diagram.
func (e *Editor) Diagram() *graph.Diagram {
	return e.diagram
}

// TakeChanges returns the identity changes made since the previous call.
func (e *Editor) TakeChanges() []identity.Change {
	changes := e.changes
	e.changes = nil
	return changes
}

// NodeOption configures a node created by AddNode.
type NodeOption func(*graph.Node)

// WithNodeID assigns an explicit ID instead of the next generated one.
func WithNodeID(id graph.NodeID) NodeOption {
	return func(n *graph.Node) { n.ID = id }
}

// WithLabel sets the node label.
func WithLabel(label string) NodeOption {
	return func(n *graph.Node) { n.Label = label }
}

// AsLiteral creates an Individual node denoting a literal value.
func AsLiteral() NodeOption {
	return func(n *graph.Node) {
		if n.Kind == graph.KindIndividual {
			n.SetIdentity(graph.IdentityLiteral)
		}
	}
}

// WithRestriction sets the quantifier of a domain or range restriction.
func WithRestriction(r graph.Restriction) NodeOption {
	return func(n *graph.Node) {
		if graph.IsRestriction(n.Kind) {
			n.Restriction = r
		}
	}
}

// WithSpecial marks a predicate node as Top or Bottom.
func WithSpecial(s graph.Special) NodeOption {
	return func(n *graph.Node) { n.Special = s }
}

// AddNode creates a node of the given kind.
func (e *Editor) AddNode(kind graph.NodeKind, opts ...NodeOption) (*graph.Node, error) {
	kind, err := graph.ParseNodeKind(string(kind))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownKind, err)
	}

	n := graph.NewNode("", kind)
	if e.restriction != "" && graph.IsRestriction(kind) {
		n.Restriction = e.restriction
	}
	for _, opt := range opts {
		opt(n)
	}
	if v := e.profile.CheckNode(n); !v.Valid {
		return nil, fmt.Errorf("%w: %s", ErrOutsideProfile, v.Reason)
	}
	if n.ID == "" {
		n.ID = e.diagram.NextNodeID()
	}
	if err := e.diagram.AddNode(n); err != nil {
		return nil, fmt.Errorf("adding node: %w", err)
	}

	e.metrics.edit(OpAddNode)
	e.logger.Debug("node added", "node", n)
	return n, nil
}

// EdgeOption configures an edge created by Connect.
type EdgeOption func(*graph.Edge)

// WithEdgeID assigns an explicit ID instead of the next generated one.
func WithEdgeID(id graph.EdgeID) EdgeOption {
	return func(ed *graph.Edge) { ed.ID = id }
}

// Complete marks an inclusion edge as complete.
func Complete() EdgeOption {
	return func(ed *graph.Edge) { ed.Complete = true }
}

// Functional marks an input edge as functional.
func Functional() EdgeOption {
	return func(ed *graph.Edge) { ed.Functional = true }
}

// Check evaluates the validity rules for a prospective edge without
// changing the diagram.
func (e *Editor) Check(kind graph.EdgeKind, source, target graph.NodeID) validity.Verdict {
	return e.profile.CheckEdge(e.diagram, kind, source, target, "")
}

// Connect validates and commits an edge, then resolves identity on both
// endpoints. A refused edge yields a *RejectedError.
func (e *Editor) Connect(kind graph.EdgeKind, source, target graph.NodeID, opts ...EdgeOption) (*graph.Edge, error) {
	kind, err := graph.ParseEdgeKind(string(kind))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownKind, err)
	}
	if err := e.requireNodes(source, target); err != nil {
		return nil, err
	}

	if v := e.profile.CheckEdge(e.diagram, kind, source, target, ""); !v.Valid {
		return nil, e.reject(kind, source, target, v)
	}

	ed := &graph.Edge{Kind: kind, Source: source, Target: target}
	for _, opt := range opts {
		opt(ed)
	}
	if ed.ID == "" {
		ed.ID = e.diagram.NextEdgeID()
	}
	if err := e.diagram.AddEdge(ed); err != nil {
		return nil, fmt.Errorf("adding edge: %w", err)
	}

	e.metrics.edit(OpConnect)
	e.logger.Debug("edge added", "edge", ed)
	e.resolve(target, source)
	return ed, nil
}

// Disconnect removes an edge and resolves identity on its former endpoints.
func (e *Editor) Disconnect(id graph.EdgeID) error {
	ed, ok := e.diagram.RemoveEdge(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrEdgeNotFound, id)
	}

	e.metrics.edit(OpDisconnect)
	e.logger.Debug("edge removed", "edge", ed)
	e.resolve(ed.Target, ed.Source)
	return nil
}

// RemoveNode removes a node with its edges and resolves identity on every
// former neighbour.
func (e *Editor) RemoveNode(id graph.NodeID) error {
	removed, ok := e.diagram.RemoveNode(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	e.metrics.edit(OpRemoveNode)
	e.logger.Debug("node removed", "node", id, "edges", len(removed))

	neighbours := make([]graph.NodeID, 0, len(removed))
	for _, ed := range removed {
		neighbours = append(neighbours, ed.Other(id))
	}
	e.resolve(neighbours...)
	return nil
}

// SwapEdge reverses an edge after re-validating it in the new direction.
func (e *Editor) SwapEdge(id graph.EdgeID) (*graph.Edge, error) {
	ed := e.diagram.GetEdge(id)
	if ed == nil {
		return nil, fmt.Errorf("%w: %s", ErrEdgeNotFound, id)
	}

	if v := e.profile.CheckEdge(e.diagram, ed.Kind, ed.Target, ed.Source, id); !v.Valid {
		return nil, e.reject(ed.Kind, ed.Target, ed.Source, v)
	}

	e.diagram.RemoveEdge(id)
	swapped := *ed
	swapped.Source, swapped.Target = ed.Target, ed.Source
	if err := e.diagram.AddEdge(&swapped); err != nil {
		return nil, fmt.Errorf("re-adding swapped edge: %w", err)
	}

	e.metrics.edit(OpSwap)
	e.logger.Debug("edge swapped", "edge", &swapped)
	e.resolve(swapped.Target, swapped.Source)
	return &swapped, nil
}

// SetRestriction changes the quantifier of a domain or range restriction.
// Cardinality bounds apply only to RestrictionCardinality and are cleared
// otherwise.
func (e *Editor) SetRestriction(id graph.NodeID, r graph.Restriction, minCard, maxCard *int) error {
	n := e.diagram.GetNode(id)
	if n == nil {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if !graph.IsRestriction(n.Kind) {
		return fmt.Errorf("%w: %s is not a restriction", ErrUnsupported, n)
	}
	r, err := graph.ParseRestriction(string(r))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnknownKind, err)
	}

	card := graph.Cardinality{}
	if r == graph.RestrictionCardinality {
		if minCard != nil && *minCard < 0 || maxCard != nil && *maxCard < 0 {
			return fmt.Errorf("cardinality bounds must be non-negative")
		}
		if minCard != nil && maxCard != nil && *minCard > *maxCard {
			return fmt.Errorf("cardinality min %d exceeds max %d", *minCard, *maxCard)
		}
		card = graph.Cardinality{Min: minCard, Max: maxCard}
	}

	n.Restriction = r
	n.Cardinality = card
	e.metrics.edit(OpRestrict)
	e.logger.Debug("restriction set", "node", n, "restriction", r)
	return nil
}

// SetIndividualKind switches an Individual node between denoting an
// individual and a literal, then resolves the nodes it feeds.
func (e *Editor) SetIndividualKind(id graph.NodeID, literal bool) error {
	n := e.diagram.GetNode(id)
	if n == nil {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if n.Kind != graph.KindIndividual {
		return fmt.Errorf("%w: %s is not an individual", ErrUnsupported, n)
	}

	value := graph.IdentityIndividual
	if literal {
		value = graph.IdentityLiteral
	}
	if n.Identity() != value {
		e.changes = append(e.changes, identity.Change{Node: id, From: n.Identity(), To: value})
		n.SetIdentity(value)
	}

	e.metrics.edit(OpIndividualKind)
	e.resolve(graph.IDs(e.diagram.Neighbours(id))...)
	return nil
}

// MoveInput moves an input edge of a role chain or property assertion to
// index in the node's argument order.
func (e *Editor) MoveInput(id graph.NodeID, edge graph.EdgeID, index int) error {
	n := e.diagram.GetNode(id)
	if n == nil {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if n.Inputs == nil {
		return fmt.Errorf("%w: %s has no ordered inputs", ErrUnsupported, n)
	}
	if !n.Inputs.Move(edge, index) {
		return fmt.Errorf("%w: %s is not an input of %s", ErrEdgeNotFound, edge, id)
	}

	e.metrics.edit(OpMoveInput)
	e.logger.Debug("input moved", "node", n, "edge", edge, "index", n.Inputs.Index(edge))
	return nil
}

func (e *Editor) requireNodes(ids ...graph.NodeID) error {
	for _, id := range ids {
		if e.diagram.GetNode(id) == nil {
			return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
		}
	}
	return nil
}

func (e *Editor) reject(kind graph.EdgeKind, source, target graph.NodeID, v validity.Verdict) error {
	e.metrics.rejected(v.Rule)
	e.logger.Debug("edge rejected", "kind", kind, "source", source, "target", target, "rule", v.Rule, "reason", v.Reason)
	return &RejectedError{Kind: kind, Source: source, Target: target, Verdict: v}
}

// resolve runs identity resolution from each surviving node once, in order.
func (e *Editor) resolve(ids ...graph.NodeID) {
	seen := make(map[graph.NodeID]bool, len(ids))
	for _, id := range ids {
		if seen[id] || e.diagram.GetNode(id) == nil {
			continue
		}
		seen[id] = true

		res := identity.Resolve(e.diagram, id)
		e.metrics.resolved(res)
		for _, c := range res.Changes {
			e.logger.Debug("identity changed", "node", c.Node, "from", c.From, "to", c.To)
		}
		e.changes = append(e.changes, res.Changes...)
	}
}
