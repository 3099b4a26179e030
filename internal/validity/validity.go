// Package validity holds the legality rules checked before an edge is
// committed to a diagram.
//
// Checks are pure reads over the current graph. A violated rule is reported
// as a Verdict with Valid set to false, naming the rule and the reason; no
// check ever returns an error.
package validity

import (
	"fmt"
	"slices"

	"github.com/Benny93/graphol-go/internal/graph"
)

// Graph is the read-only view of a diagram the rules consult.
type Graph interface {
	GetNode(id graph.NodeID) *graph.Node
	InputNodes(id graph.NodeID, except graph.EdgeID) []*graph.Node
	GetIncoming(id graph.NodeID, kind ...graph.EdgeKind) []*graph.Edge
	GetOutgoing(id graph.NodeID, kind ...graph.EdgeKind) []*graph.Edge
}

// Verdict is the outcome of a validity check.
type Verdict struct {
	// Valid is true when every rule passed.
	Valid bool `json:"valid"`

	// Rule names the first rule that failed.
	Rule string `json:"rule,omitempty"`

	// Reason is a human-readable explanation of the failure.
	Reason string `json:"reason,omitempty"`
}

// String implements fmt.Stringer.
func (v Verdict) String() string {
	if v.Valid {
		return "valid"
	}
	return fmt.Sprintf("invalid (%s): %s", v.Rule, v.Reason)
}

var accepted = Verdict{Valid: true}

func rejected(rule, format string, args ...any) Verdict {
	return Verdict{Rule: rule, Reason: fmt.Sprintf(format, args...)}
}

// CheckEdge validates an edge of the given kind between source and target.
// editing names an existing edge being re-validated, which is then left out
// of arity counts; pass "" for a new edge.
func CheckEdge(g Graph, kind graph.EdgeKind, source, target graph.NodeID, editing graph.EdgeID) Verdict {
	switch kind {
	case graph.EdgeInput:
		return CheckInputEdge(g, source, target, editing)
	case graph.EdgeInclusion:
		return CheckInclusionEdge(g, source, target)
	case graph.EdgeEquivalence:
		return CheckEquivalenceEdge(g, source, target)
	case graph.EdgeMembership:
		return CheckMembershipEdge(g, source, target)
	}
	return rejected("edge-kind", "unknown edge kind %q", kind)
}

// lookup resolves both endpoints and applies the self-loop rule shared by
// every edge kind.
func lookup(g Graph, source, target graph.NodeID) (*graph.Node, *graph.Node, Verdict) {
	if source == target {
		return nil, nil, rejected("self-loop", "%s cannot connect to itself", source)
	}
	src := g.GetNode(source)
	if src == nil {
		return nil, nil, rejected("missing-node", "source %s does not exist", source)
	}
	dst := g.GetNode(target)
	if dst == nil {
		return nil, nil, rejected("missing-node", "target %s does not exist", target)
	}
	return src, dst, accepted
}

// CheckInclusionEdge validates an inclusion (ISA) edge: both endpoints must
// denote the same identity unless one of them is still Neutral.
func CheckInclusionEdge(g Graph, source, target graph.NodeID) Verdict {
	src, dst, v := lookup(g, source, target)
	if !v.Valid {
		return v
	}
	if identityMismatch(src.Identity(), dst.Identity()) {
		return rejected("inclusion-identity", "cannot include %s %s in %s %s", src.Identity(), src, dst.Identity(), dst)
	}
	return accepted
}

// CheckEquivalenceEdge validates an equivalence edge. It follows the
// inclusion rule in both directions.
func CheckEquivalenceEdge(g Graph, source, target graph.NodeID) Verdict {
	v := CheckInclusionEdge(g, source, target)
	if !v.Valid && v.Rule == "inclusion-identity" {
		v.Rule = "equivalence-identity"
	}
	return v
}

// CheckMembershipEdge validates an instance-of edge. Individuals assert
// membership of a concept expression; property assertions instantiate a role
// or attribute.
func CheckMembershipEdge(g Graph, source, target graph.NodeID) Verdict {
	src, dst, v := lookup(g, source, target)
	if !v.Valid {
		return v
	}

	switch src.Kind {
	case graph.KindIndividual:
		if !slices.Contains(dst.Identities(), graph.IdentityConcept) {
			return rejected("membership-concept", "%s is not a concept expression", dst)
		}
		return accepted
	case graph.KindPropertyAssertion:
		return checkAssertionTarget(g, src, dst)
	}
	return rejected("membership-source", "%s cannot be an instance of anything", src)
}

func checkAssertionTarget(g Graph, pa, target *graph.Node) Verdict {
	if target.Kind == graph.KindRoleChain {
		return rejected("membership-property", "role chains have no instances")
	}
	ids := target.Identities()
	if !slices.Contains(ids, graph.IdentityRole) && !slices.Contains(ids, graph.IdentityAttribute) {
		return rejected("membership-property", "%s is neither a role nor an attribute expression", target)
	}
	switch target.Identity() {
	case graph.IdentityRole, graph.IdentityAttribute, graph.IdentityNeutral:
	default:
		return rejected("membership-property", "%s currently denotes %s", target, target.Identity())
	}

	var individuals, literals int
	for _, in := range g.InputNodes(pa.ID, "") {
		switch in.Identity() {
		case graph.IdentityIndividual:
			individuals++
		case graph.IdentityLiteral:
			literals++
		}
	}
	if literals > 0 && (target.Kind == graph.KindRole || target.Kind == graph.KindRoleInverse) {
		return rejected("membership-object-assertion", "object property assertions admit no literals")
	}
	if individuals > 1 && target.Kind == graph.KindAttribute {
		return rejected("membership-data-assertion", "data property assertions admit a single individual")
	}
	return accepted
}

func identityMismatch(a, b graph.Identity) bool {
	return a != graph.IdentityNeutral && b != graph.IdentityNeutral && a != b
}
