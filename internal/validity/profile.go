package validity

import (
	"fmt"
	"slices"

	"github.com/Benny93/graphol-go/internal/graph"
)

// Profile selects the OWL 2 fragment a diagram must stay within. The
// OWL2QL and OWL2RL profiles add rules on top of the base edge rules.
type Profile string

const (
	ProfileOWL2   Profile = "owl2"
	ProfileOWL2QL Profile = "owl2ql"
	ProfileOWL2RL Profile = "owl2rl"
)

// Profiles lists every supported profile.
var Profiles = []Profile{ProfileOWL2, ProfileOWL2QL, ProfileOWL2RL}

// ParseProfile parses a profile name. The empty string selects OWL2.
func ParseProfile(s string) (Profile, error) {
	if s == "" {
		return ProfileOWL2, nil
	}
	p := Profile(s)
	if !slices.Contains(Profiles, p) {
		return "", fmt.Errorf("unknown profile %q", s)
	}
	return p, nil
}

// nodeRule rejects a node kind or flavour outside a profile.
type nodeRule struct {
	name  string
	check func(n *graph.Node) string
}

// edgeRule rejects an edge shape outside a profile. It only runs after the
// base rules accepted the edge.
type edgeRule struct {
	name  string
	check func(g Graph, src, dst *graph.Node) string
}

type profileRules struct {
	nodes []nodeRule
	edges map[graph.EdgeKind][]edgeRule
}

var rulesByProfile = map[Profile]profileRules{
	ProfileOWL2QL: {
		nodes: []nodeRule{
			unsupportedOperators("OWL 2 QL", graph.KindUnion, graph.KindDisjointUnion, graph.KindDatatypeRestriction,
				graph.KindFacet, graph.KindEnumeration, graph.KindRoleChain),
		},
		edges: map[graph.EdgeKind][]edgeRule{
			graph.EdgeInput:       {qlRestrictionFiller, qlComplementDataRange, qlIntersectionDataRange},
			graph.EdgeInclusion:   {qlInclusionExpression},
			graph.EdgeEquivalence: {qlEquivalenceExpression},
			graph.EdgeMembership:  {qlNegativeAssertion},
		},
	},
	ProfileOWL2RL: {
		nodes: []nodeRule{
			unsupportedOperators("OWL 2 RL", graph.KindDatatypeRestriction, graph.KindFacet),
			rlSpecialProperty,
		},
		edges: map[graph.EdgeKind][]edgeRule{
			graph.EdgeInput:     {rlEnumerationLiteral, rlUnionDataRange},
			graph.EdgeInclusion: {rlInclusionExpression},
		},
	},
}

// CheckNode reports whether a node may appear in a diagram of profile p.
func (p Profile) CheckNode(n *graph.Node) Verdict {
	for _, r := range rulesByProfile[p].nodes {
		if reason := r.check(n); reason != "" {
			return Verdict{Rule: r.name, Reason: reason}
		}
	}
	return accepted
}

// CheckEdge runs the base rules of CheckEdge and then the rules p adds. Both
// endpoints must also pass CheckNode.
func (p Profile) CheckEdge(g Graph, kind graph.EdgeKind, source, target graph.NodeID, editing graph.EdgeID) Verdict {
	if v := CheckEdge(g, kind, source, target, editing); !v.Valid {
		return v
	}
	rules, ok := rulesByProfile[p]
	if !ok {
		return accepted
	}

	src, dst := g.GetNode(source), g.GetNode(target)
	for _, n := range []*graph.Node{src, dst} {
		if v := p.CheckNode(n); !v.Valid {
			return v
		}
	}
	for _, r := range rules.edges[kind] {
		if reason := r.check(g, src, dst); reason != "" {
			return Verdict{Rule: r.name, Reason: reason}
		}
	}
	return accepted
}

func unsupportedOperators(profile string, kinds ...graph.NodeKind) nodeRule {
	return nodeRule{"profile-operator", func(n *graph.Node) string {
		if slices.Contains(kinds, n.Kind) {
			return fmt.Sprintf("%s operator is forbidden in %s", n.Kind, profile)
		}
		return ""
	}}
}

var rlSpecialProperty = nodeRule{"rl-special-property", func(n *graph.Node) string {
	if (n.Kind == graph.KindRole || n.Kind == graph.KindAttribute) && n.Special != graph.SpecialNone {
		return fmt.Sprintf("%s %s is forbidden in OWL 2 RL", n.Special, n.Kind)
	}
	return ""
}}

// conceptAxiom reports whether an inclusion or equivalence between the two
// nodes may denote a concept axiom, the only kind the profile expression
// rules constrain.
func conceptAxiom(src, dst *graph.Node) bool {
	for _, n := range []*graph.Node{src, dst} {
		switch n.Identity() {
		case graph.IdentityRole, graph.IdentityAttribute, graph.IdentityUnknown:
			return false
		}
	}
	return true
}

// qualified reports whether a restriction has a concept filler other than
// Top.
func qualified(g Graph, n *graph.Node) bool {
	for _, in := range g.InputNodes(n.ID, "") {
		if in.Identity() == graph.IdentityConcept && !isTop(in) {
			return true
		}
	}
	return false
}

func isTop(n *graph.Node) bool {
	return n.Kind == graph.KindConcept && n.Special == graph.SpecialTop
}

// qlExpression returns why n cannot appear on the given side of a QL concept
// axiom, or "".
func qlExpression(g Graph, n *graph.Node, axiom string) string {
	switch {
	case n.Kind == graph.KindIntersection:
		return axiom + " involving an intersection is forbidden in OWL 2 QL"
	case n.Kind == graph.KindComplement:
		return axiom + " involving a concept complement is forbidden in OWL 2 QL"
	case graph.IsRestriction(n.Kind) && qualified(g, n):
		return fmt.Sprintf("%s involving a qualified %s is forbidden in OWL 2 QL", axiom, n.Kind)
	case graph.IsRestriction(n.Kind) && n.Restriction != graph.RestrictionExists:
		return fmt.Sprintf("%s involving a %s %s is forbidden in OWL 2 QL", axiom, n.Restriction, n.Kind)
	}
	return ""
}

var qlInclusionExpression = edgeRule{"ql-inclusion-expression", func(g Graph, src, dst *graph.Node) string {
	if !conceptAxiom(src, dst) {
		return ""
	}
	if reason := qlExpression(g, src, "inclusion source"); reason != "" {
		return reason
	}
	if graph.IsRestriction(dst.Kind) && dst.Restriction != graph.RestrictionExists {
		return fmt.Sprintf("inclusion target %s %s is forbidden in OWL 2 QL", dst.Restriction, dst.Kind)
	}
	return ""
}}

var qlEquivalenceExpression = edgeRule{"ql-equivalence-expression", func(g Graph, src, dst *graph.Node) string {
	if !conceptAxiom(src, dst) {
		return ""
	}
	for _, n := range []*graph.Node{src, dst} {
		if reason := qlExpression(g, n, "equivalence"); reason != "" {
			return reason
		}
	}
	return ""
}}

var qlRestrictionFiller = edgeRule{"ql-restriction-filler", func(g Graph, src, dst *graph.Node) string {
	if !graph.IsRestriction(dst.Kind) || src.Identity() != graph.IdentityConcept {
		return ""
	}
	if src.Kind != graph.KindConcept {
		return fmt.Sprintf("OWL 2 QL admits only an atomic concept as filler of a %s", dst.Kind)
	}
	if isTop(src) {
		return ""
	}
	if len(g.GetOutgoing(dst.ID, graph.EdgeInclusion)) > 0 {
		return fmt.Sprintf("%s is the source of an inclusion and cannot be qualified in OWL 2 QL", dst)
	}
	if len(g.GetOutgoing(dst.ID, graph.EdgeEquivalence))+len(g.GetIncoming(dst.ID, graph.EdgeEquivalence)) > 0 {
		return fmt.Sprintf("%s is in an equivalence and cannot be qualified in OWL 2 QL", dst)
	}
	return ""
}}

var qlComplementDataRange = edgeRule{"ql-complement-data-range", func(g Graph, src, dst *graph.Node) string {
	if dst.Kind == graph.KindComplement && src.Identity() == graph.IdentityDataRange {
		return "complement of a data range is forbidden in OWL 2 QL"
	}
	return ""
}}

// qlIntersectionDataRange rejects a data range input to an intersection that
// feeds a complement, which would turn the complement into a data range.
var qlIntersectionDataRange = edgeRule{"ql-intersection-data-range", func(g Graph, src, dst *graph.Node) string {
	if dst.Kind != graph.KindIntersection || src.Identity() != graph.IdentityDataRange {
		return ""
	}
	seen := map[graph.NodeID]bool{dst.ID: true}
	queue := []*graph.Node{dst}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n.Kind == graph.KindComplement {
			return "complement of a data range is forbidden in OWL 2 QL"
		}
		for _, e := range g.GetOutgoing(n.ID) {
			if !graph.Propagates(e.Kind) && e.Kind != graph.EdgeEquivalence {
				continue
			}
			next := g.GetNode(e.Target)
			if next == nil || seen[next.ID] || !graph.IsWeak(next.Kind) {
				continue
			}
			seen[next.ID] = true
			queue = append(queue, next)
		}
	}
	return ""
}}

var qlNegativeAssertion = edgeRule{"ql-negative-assertion", func(g Graph, src, dst *graph.Node) string {
	if src.Kind == graph.KindPropertyAssertion && dst.Kind == graph.KindComplement {
		return "negative property assertions are forbidden in OWL 2 QL"
	}
	return ""
}}

var rlInclusionExpression = edgeRule{"rl-inclusion-expression", func(g Graph, src, dst *graph.Node) string {
	if !conceptAxiom(src, dst) {
		return ""
	}

	switch {
	case isTop(src):
		return "inclusion with Top as source is forbidden in OWL 2 RL"
	case src.Kind == graph.KindComplement:
		return "inclusion with a concept complement as source is forbidden in OWL 2 RL"
	case graph.IsRestriction(src.Kind) && src.Restriction != graph.RestrictionExists:
		return fmt.Sprintf("inclusion with a %s %s as source is forbidden in OWL 2 RL", src.Restriction, src.Kind)
	}

	switch {
	case isTop(dst):
		return "inclusion with Top as target is forbidden in OWL 2 RL"
	case dst.Kind == graph.KindEnumeration:
		return "inclusion with an enumeration as target is forbidden in OWL 2 RL"
	case dst.Kind == graph.KindUnion || dst.Kind == graph.KindDisjointUnion:
		return "inclusion with a union as target is forbidden in OWL 2 RL"
	case graph.IsRestriction(dst.Kind) && dst.Restriction == graph.RestrictionExists:
		for _, in := range g.InputNodes(dst.ID, "") {
			if in.Kind == graph.KindEnumeration {
				return ""
			}
		}
		return fmt.Sprintf("existential %s needs an enumeration filler as inclusion target in OWL 2 RL", dst.Kind)
	case graph.IsRestriction(dst.Kind) && dst.Restriction == graph.RestrictionCardinality:
		if dst.Cardinality.Max == nil || *dst.Cardinality.Max > 1 {
			return fmt.Sprintf("cardinality %s needs a max of 0 or 1 as inclusion target in OWL 2 RL", dst.Kind)
		}
	}
	return ""
}}

var rlEnumerationLiteral = edgeRule{"rl-enumeration-literal", func(g Graph, src, dst *graph.Node) string {
	if dst.Kind == graph.KindEnumeration && src.Identity() == graph.IdentityLiteral {
		return "enumeration of literals is forbidden in OWL 2 RL"
	}
	return ""
}}

var rlUnionDataRange = edgeRule{"rl-union-data-range", func(g Graph, src, dst *graph.Node) string {
	if dst.Kind != graph.KindUnion && dst.Kind != graph.KindDisjointUnion {
		return ""
	}
	if src.Identity() == graph.IdentityDataRange || dst.Identity() == graph.IdentityDataRange {
		return "union of data ranges is forbidden in OWL 2 RL"
	}
	return ""
}}
