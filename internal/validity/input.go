package validity

import (
	"slices"

	"github.com/Benny93/graphol-go/internal/graph"
)

// candidate is an Input edge under evaluation.
type candidate struct {
	g       Graph
	source  *graph.Node
	target  *graph.Node
	editing graph.EdgeID
}

// others returns the target's current input nodes, leaving out the edge
// being edited.
func (c *candidate) others() []*graph.Node {
	return c.g.InputNodes(c.target.ID, c.editing)
}

// rule checks one constraint and returns the reason it fails, or "" when it
// holds.
type rule struct {
	name  string
	check func(c *candidate) string
}

var setOperatorRules = []rule{
	{"identity-compatible", func(c *candidate) string {
		if !slices.Contains(c.target.Identities(), c.source.Identity()) {
			return string(c.target.Kind) + " cannot take a " + string(c.source.Identity()) + " input"
		}
		return ""
	}},
	{"no-value-restriction", func(c *candidate) string {
		if c.source.Kind == graph.KindValueRestriction {
			return "value restrictions only feed datatype restrictions"
		}
		return ""
	}},
	{"identity-match", func(c *candidate) string {
		if identityMismatch(c.source.Identity(), c.target.Identity()) {
			return string(c.source.Identity()) + " input into a " + string(c.target.Identity()) + " expression"
		}
		return ""
	}},
}

var complementRules = append(slices.Clone(setOperatorRules),
	rule{"complement-arity", func(c *candidate) string {
		if len(c.others()) > 0 {
			return "complement takes a single input"
		}
		return ""
	}},
	rule{"complement-role-nesting", func(c *candidate) string {
		if isRoleExpression(c.source) && len(c.g.GetOutgoing(c.target.ID, graph.EdgeInput)) > 0 {
			return "a role complement cannot be the input of another operator"
		}
		return ""
	}},
)

var enumerationRules = []rule{
	{"enumeration-source", func(c *candidate) string {
		if c.source.Kind != graph.KindIndividual {
			return "enumeration takes individuals or literals only"
		}
		return ""
	}},
	{"enumeration-unknown", func(c *candidate) string {
		if c.target.Identity() == graph.IdentityUnknown {
			return "enumeration has conflicting inputs; fix them first"
		}
		return ""
	}},
	{"enumeration-identity", func(c *candidate) string {
		src, dst := c.source.Identity(), c.target.Identity()
		if src == graph.IdentityIndividual && dst == graph.IdentityDataRange ||
			src == graph.IdentityLiteral && dst == graph.IdentityConcept {
			return "cannot mix individuals and literals in one enumeration"
		}
		return ""
	}},
}

var roleInverseRules = []rule{
	{"role-inverse-source", func(c *candidate) string {
		if c.source.Kind != graph.KindRole {
			return "role inverse takes a role only"
		}
		return ""
	}},
	{"role-inverse-arity", func(c *candidate) string {
		if len(c.others()) > 0 {
			return "role inverse takes a single input"
		}
		return ""
	}},
}

var roleChainRules = []rule{
	{"role-chain-source", func(c *candidate) string {
		if !isRoleExpression(c.source) {
			return "role chain takes roles and role inverses only"
		}
		return ""
	}},
}

var datatypeRestrictionRules = []rule{
	{"datatype-restriction-source", func(c *candidate) string {
		if c.source.Kind != graph.KindValueDomain && c.source.Kind != graph.KindValueRestriction {
			return "datatype restriction takes a value domain and value restrictions"
		}
		return ""
	}},
	{"datatype-restriction-domain", func(c *candidate) string {
		if c.source.Kind != graph.KindValueDomain {
			return ""
		}
		for _, n := range c.others() {
			if n.Kind == graph.KindValueDomain {
				return "datatype restriction already has a value domain"
			}
		}
		return ""
	}},
}

var propertyAssertionRules = []rule{
	{"property-assertion-source", func(c *candidate) string {
		if c.source.Kind != graph.KindIndividual {
			return "property assertion takes individuals or literals only"
		}
		return ""
	}},
	{"property-assertion-arity", func(c *candidate) string {
		if len(c.others()) >= 2 {
			return "property assertion takes at most two inputs"
		}
		return ""
	}},
	{"property-assertion-literal", func(c *candidate) string {
		if c.source.Identity() == graph.IdentityLiteral && countIdentity(c.others(), graph.IdentityLiteral) > 0 {
			return "property assertion takes at most one literal"
		}
		return ""
	}},
	{"property-assertion-instance", func(c *candidate) string {
		property := assertedProperty(c)
		if property == nil {
			return ""
		}
		if isRoleExpression(property) && c.source.Identity() == graph.IdentityLiteral {
			return "object property assertions admit no literals"
		}
		if property.Kind == graph.KindAttribute && c.source.Identity() == graph.IdentityIndividual &&
			countIdentity(c.others(), graph.IdentityIndividual) > 0 {
			return "data property assertions admit a single individual"
		}
		return ""
	}},
}

var domainRestrictionRules = []rule{
	{"domain-restriction-arity", func(c *candidate) string {
		if len(c.others()) >= 2 {
			return "domain restriction takes at most two inputs"
		}
		return ""
	}},
	{"domain-restriction-identity", func(c *candidate) string {
		switch c.source.Identity() {
		case graph.IdentityNeutral, graph.IdentityConcept, graph.IdentityAttribute, graph.IdentityRole:
			return ""
		}
		return "domain restriction cannot take a " + string(c.source.Identity()) + " input"
	}},
	{"domain-restriction-source", func(c *candidate) string {
		switch c.source.Kind {
		case graph.KindDomainRestriction, graph.KindRangeRestriction, graph.KindRoleChain:
			return string(c.source.Kind) + " is not a property or class expression"
		}
		return ""
	}},
	{"domain-restriction-shape", func(c *candidate) string {
		others := c.others()
		switch c.source.Identity() {
		case graph.IdentityConcept, graph.IdentityNeutral:
			if r := c.target.Restriction; r != graph.RestrictionExists && r != graph.RestrictionForall {
				return "a filler needs an existential or universal restriction"
			}
			if len(others) > 0 && others[0].Identity() != graph.IdentityRole {
				return "a filler pairs with a role only"
			}
		case graph.IdentityRole:
			if len(others) > 0 && (others[0].Identity() != graph.IdentityConcept || c.target.Restriction != graph.RestrictionExists) {
				return "a role pairs with a concept in an existential restriction only"
			}
		case graph.IdentityAttribute:
			if len(others) > 0 {
				return "an attribute domain takes no other input"
			}
		}
		return ""
	}},
}

var rangeRestrictionRules = []rule{
	{"range-restriction-identity", func(c *candidate) string {
		switch c.source.Identity() {
		case graph.IdentityNeutral, graph.IdentityAttribute, graph.IdentityRole:
			return ""
		}
		return "range restriction cannot take a " + string(c.source.Identity()) + " input"
	}},
	{"range-restriction-source", func(c *candidate) string {
		if c.source.Kind == graph.KindRoleChain {
			return "role chains have no range"
		}
		return ""
	}},
	{"range-restriction-identity-match", func(c *candidate) string {
		switch c.target.Identity() {
		case graph.IdentityConcept:
			if c.source.Kind == graph.KindAttribute {
				return "an attribute range is a data range, not a concept"
			}
		case graph.IdentityDataRange:
			if c.source.Kind == graph.KindRole || c.source.Kind == graph.KindRoleChain {
				return "a role range is a concept, not a data range"
			}
		}
		return ""
	}},
}

// inputRules maps a constructor kind to its rule family, in evaluation order.
var inputRules = map[graph.NodeKind][]rule{
	graph.KindComplement:          complementRules,
	graph.KindUnion:               setOperatorRules,
	graph.KindIntersection:        setOperatorRules,
	graph.KindDisjointUnion:       setOperatorRules,
	graph.KindEnumeration:         enumerationRules,
	graph.KindRoleInverse:         roleInverseRules,
	graph.KindRoleChain:           roleChainRules,
	graph.KindDatatypeRestriction: datatypeRestrictionRules,
	graph.KindPropertyAssertion:   propertyAssertionRules,
	graph.KindDomainRestriction:   domainRestrictionRules,
	graph.KindRangeRestriction:    rangeRestrictionRules,
}

// CheckInputEdge validates an Input edge from source to target. editing names
// an existing edge being re-validated, which is left out of arity counts;
// pass "" for a new edge.
func CheckInputEdge(g Graph, source, target graph.NodeID, editing graph.EdgeID) Verdict {
	src, dst, v := lookup(g, source, target)
	if !v.Valid {
		return v
	}
	if !graph.IsConstructor(dst.Kind) {
		return rejected("constructor-target", "%s takes no inputs", dst)
	}

	c := &candidate{g: g, source: src, target: dst, editing: editing}
	for _, r := range inputRules[dst.Kind] {
		if reason := r.check(c); reason != "" {
			return Verdict{Rule: r.name, Reason: reason}
		}
	}
	return accepted
}

// IsValidInputEdge reports whether CheckInputEdge accepts the edge.
func IsValidInputEdge(g Graph, source, target graph.NodeID, editing graph.EdgeID) bool {
	return CheckInputEdge(g, source, target, editing).Valid
}

// assertedProperty returns the role or attribute a property assertion is
// declared an instance of, if any.
func assertedProperty(c *candidate) *graph.Node {
	for _, e := range c.g.GetOutgoing(c.target.ID, graph.EdgeMembership) {
		if n := c.g.GetNode(e.Target); n != nil {
			return n
		}
	}
	return nil
}

func isRoleExpression(n *graph.Node) bool {
	return n.Kind == graph.KindRole || n.Kind == graph.KindRoleInverse
}

func countIdentity(nodes []*graph.Node, identity graph.Identity) int {
	count := 0
	for _, n := range nodes {
		if n.Identity() == identity {
			count++
		}
	}
	return count
}
