package identity

import (
	"github.com/Benny93/graphol-go/internal/graph"
)

// identifier derives a node's identity from its own inputs. It returns the
// computed identity and the input nodes consumed as evidence; when the
// identity is not Neutral the consumed nodes stop voting in the region.
type identifier func(g *graph.Diagram, n *graph.Node) (graph.Identity, []*graph.Node)

var identifiers = map[graph.NodeKind]identifier{
	graph.KindEnumeration:       identifyEnumeration,
	graph.KindRangeRestriction:  identifyRangeRestriction,
	graph.KindDomainRestriction: identifyDomainRestriction,
}

// identifyEnumeration: a oneOf over individuals is a Concept, over literals a
// DataRange.
func identifyEnumeration(g *graph.Diagram, n *graph.Node) (graph.Identity, []*graph.Node) {
	var individuals []*graph.Node
	for _, in := range g.InputNodes(n.ID, "") {
		if in.Kind == graph.KindIndividual {
			individuals = append(individuals, in)
		}
	}
	computed := unanimous(individuals, map[graph.Identity]graph.Identity{
		graph.IdentityIndividual: graph.IdentityConcept,
		graph.IdentityLiteral:    graph.IdentityDataRange,
	})
	return computed, individuals
}

// identifyRangeRestriction: the range of a role is a Concept, the range of an
// attribute a DataRange. Inputs that are themselves context-dependent are not
// evidence.
func identifyRangeRestriction(g *graph.Diagram, n *graph.Node) (graph.Identity, []*graph.Node) {
	var mixed []*graph.Node
	for _, in := range g.InputNodes(n.ID, "") {
		if in.Weak() {
			continue
		}
		if id := in.Identity(); id == graph.IdentityRole || id == graph.IdentityAttribute {
			mixed = append(mixed, in)
		}
	}
	computed := unanimous(mixed, map[graph.Identity]graph.Identity{
		graph.IdentityRole:      graph.IdentityConcept,
		graph.IdentityAttribute: graph.IdentityDataRange,
	})
	return computed, mixed
}

// identifyDomainRestriction: any domain restriction with an input denotes a
// Concept. Role and attribute inputs are consumed.
func identifyDomainRestriction(g *graph.Diagram, n *graph.Node) (graph.Identity, []*graph.Node) {
	inputs := g.InputNodes(n.ID, "")
	if len(inputs) == 0 {
		return graph.IdentityNeutral, nil
	}
	var consumed []*graph.Node
	for _, in := range inputs {
		if id := in.Identity(); id == graph.IdentityRole || id == graph.IdentityAttribute {
			consumed = append(consumed, in)
		}
	}
	return graph.IdentityConcept, consumed
}

// unanimous maps the shared identity of nodes through table. No nodes yields
// Neutral; disagreement or an unmapped identity yields Unknown.
func unanimous(nodes []*graph.Node, table map[graph.Identity]graph.Identity) graph.Identity {
	if len(nodes) == 0 {
		return graph.IdentityNeutral
	}
	first := nodes[0].Identity()
	for _, n := range nodes[1:] {
		if n.Identity() != first {
			return graph.IdentityUnknown
		}
	}
	if mapped, ok := table[first]; ok {
		return mapped
	}
	return graph.IdentityUnknown
}
