// Package graph provides the Graphol diagram data model.
//
// It defines the closed node, edge and identity enumerations, the per-kind
// identity tables and the Node/Edge records stored in a Diagram. Nodes and
// edges reference each other by ID only; the Diagram owns both.
package graph

import (
	"fmt"
	"strings"
)

// NodeID identifies a node inside a Diagram.
type NodeID string

// EdgeID identifies an edge inside a Diagram.
type EdgeID string

// NodeKind represents the Graphol construct a node stands for.
type NodeKind string

const (
	KindConcept             NodeKind = "concept"
	KindRole                NodeKind = "role"
	KindAttribute           NodeKind = "attribute"
	KindIndividual          NodeKind = "individual"
	KindComplement          NodeKind = "complement"
	KindUnion               NodeKind = "union"
	KindIntersection        NodeKind = "intersection"
	KindEnumeration         NodeKind = "enumeration"
	KindDisjointUnion       NodeKind = "disjoint-union"
	KindDomainRestriction   NodeKind = "domain-restriction"
	KindRangeRestriction    NodeKind = "range-restriction"
	KindRoleChain           NodeKind = "role-chain"
	KindRoleInverse         NodeKind = "role-inverse"
	KindDatatypeRestriction NodeKind = "datatype-restriction"
	KindPropertyAssertion   NodeKind = "property-assertion"
	KindValueDomain         NodeKind = "value-domain"
	KindValueRestriction    NodeKind = "value-restriction"
	KindFacet               NodeKind = "facet"
)

// NodeKinds lists every node kind in palette order.
var NodeKinds = []NodeKind{
	KindConcept,
	KindRole,
	KindAttribute,
	KindIndividual,
	KindComplement,
	KindUnion,
	KindIntersection,
	KindEnumeration,
	KindDisjointUnion,
	KindDomainRestriction,
	KindRangeRestriction,
	KindRoleChain,
	KindRoleInverse,
	KindDatatypeRestriction,
	KindPropertyAssertion,
	KindValueDomain,
	KindValueRestriction,
	KindFacet,
}

// ParseNodeKind returns the kind with the given name.
func ParseNodeKind(name string) (NodeKind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, k := range NodeKinds {
		if string(k) == name {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown node kind %q", name)
}

// EdgeKind represents the type of a diagram edge.
type EdgeKind string

const (
	EdgeInclusion   EdgeKind = "inclusion"
	EdgeInput       EdgeKind = "input"
	EdgeEquivalence EdgeKind = "equivalence"
	EdgeMembership  EdgeKind = "membership"
)

// EdgeKinds lists every edge kind.
var EdgeKinds = []EdgeKind{EdgeInclusion, EdgeInput, EdgeEquivalence, EdgeMembership}

// ParseEdgeKind returns the edge kind with the given name. "instance-of" is
// accepted as an alias for membership.
func ParseEdgeKind(name string) (EdgeKind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "instance-of" {
		return EdgeMembership, nil
	}
	for _, k := range EdgeKinds {
		if string(k) == name {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown edge kind %q", name)
}

// Identity is the description-logic category a node currently denotes.
type Identity string

const (
	IdentityConcept    Identity = "concept"
	IdentityRole       Identity = "role"
	IdentityAttribute  Identity = "attribute"
	IdentityIndividual Identity = "individual"
	IdentityLiteral    Identity = "literal"
	IdentityDataRange  Identity = "data-range"
	IdentityNeutral    Identity = "neutral"
	IdentityUnknown    Identity = "unknown"
	IdentityLink       Identity = "link"
)

// Restriction is the quantifier carried by domain and range restriction nodes.
type Restriction string

const (
	RestrictionExists      Restriction = "exists"
	RestrictionForall      Restriction = "forall"
	RestrictionCardinality Restriction = "cardinality"
	RestrictionSelf        Restriction = "self"
)

// ParseRestriction returns the restriction with the given name.
func ParseRestriction(name string) (Restriction, error) {
	switch r := Restriction(strings.ToLower(strings.TrimSpace(name))); r {
	case RestrictionExists, RestrictionForall, RestrictionCardinality, RestrictionSelf:
		return r, nil
	}
	return "", fmt.Errorf("unknown restriction %q", name)
}

// Special marks predicate nodes standing for Top or Bottom.
type Special string

const (
	SpecialNone   Special = ""
	SpecialTop    Special = "top"
	SpecialBottom Special = "bottom"
)

// Cardinality holds the optional bounds of a cardinality restriction.
type Cardinality struct {
	Min *int `json:"min,omitempty"`
	Max *int `json:"max,omitempty"`
}

// Node is a diagram vertex.
type Node struct {
	// ID is the unique identifier for the node within its diagram.
	ID NodeID

	// Kind is the Graphol construct of the node.
	Kind NodeKind

	// Label is the user-visible text (predicate name, literal value, ...).
	Label string

	// Restriction applies to domain and range restriction nodes only.
	Restriction Restriction

	// Cardinality holds the bounds when Restriction is cardinality.
	Cardinality Cardinality

	// Special marks Top/Bottom predicates.
	Special Special

	// Inputs records argument order for role chains and property assertions.
	// Nil for every other kind.
	Inputs *Inputs

	identity Identity
}

// NewNode returns a node of the given kind in its initial identity.
func NewNode(id NodeID, kind NodeKind) *Node {
	n := &Node{ID: id, Kind: kind, identity: InitialIdentity(kind)}
	if IsRestriction(kind) {
		n.Restriction = RestrictionExists
	}
	if HasOrderedInputs(kind) {
		n.Inputs = NewInputs()
	}
	return n
}

// Identity returns the node's current identity.
func (n *Node) Identity() Identity {
	return n.identity
}

// SetIdentity stores identity, or Unknown when the kind cannot assume it.
func (n *Node) SetIdentity(identity Identity) {
	if !Admits(n.Kind, identity) {
		identity = IdentityUnknown
	}
	n.identity = identity
}

// Identities returns the identity set declared by the node's kind.
func (n *Node) Identities() []Identity {
	return Identities(n.Kind)
}

// Weak reports whether the node's identity is computed from its neighbours.
func (n *Node) Weak() bool {
	return IsWeak(n.Kind)
}

// String implements fmt.Stringer.
func (n *Node) String() string {
	if n.Label != "" {
		return fmt.Sprintf("%s(%s %q)", n.ID, n.Kind, n.Label)
	}
	return fmt.Sprintf("%s(%s)", n.ID, n.Kind)
}

// Edge is a directed diagram connection.
type Edge struct {
	// ID is the unique identifier for the edge within its diagram.
	ID EdgeID

	// Kind is the edge type.
	Kind EdgeKind

	// Source is the ID of the tail node.
	Source NodeID

	// Target is the ID of the head node.
	Target NodeID

	// Complete marks a complete inclusion (equivalence shorthand).
	Complete bool

	// Functional marks a functional input.
	Functional bool
}

// Other returns the endpoint of e opposite to id.
func (e *Edge) Other(id NodeID) NodeID {
	if e.Source == id {
		return e.Target
	}
	return e.Source
}

// String implements fmt.Stringer.
func (e *Edge) String() string {
	return fmt.Sprintf("%s(%s %s->%s)", e.ID, e.Kind, e.Source, e.Target)
}
