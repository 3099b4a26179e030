package graph

// kindInfo is the static description of a node kind.
type kindInfo struct {
	identities  []Identity
	initial     Identity
	constructor bool
}

var kindTable = map[NodeKind]kindInfo{
	KindConcept:    {identities: []Identity{IdentityConcept}, initial: IdentityConcept},
	KindRole:       {identities: []Identity{IdentityRole}, initial: IdentityRole},
	KindAttribute:  {identities: []Identity{IdentityAttribute}, initial: IdentityAttribute},
	KindIndividual: {identities: []Identity{IdentityIndividual, IdentityLiteral}, initial: IdentityIndividual},

	KindValueDomain:      {identities: []Identity{IdentityDataRange}, initial: IdentityDataRange},
	KindValueRestriction: {identities: []Identity{IdentityDataRange}, initial: IdentityDataRange},
	KindFacet:            {identities: []Identity{IdentityDataRange}, initial: IdentityDataRange},

	KindPropertyAssertion: {identities: []Identity{IdentityLink}, initial: IdentityLink, constructor: true},

	KindComplement: {
		identities:  []Identity{IdentityConcept, IdentityRole, IdentityAttribute, IdentityDataRange, IdentityNeutral},
		initial:     IdentityNeutral,
		constructor: true,
	},
	KindUnion:            {identities: setOperatorIdentities, initial: IdentityNeutral, constructor: true},
	KindIntersection:     {identities: setOperatorIdentities, initial: IdentityNeutral, constructor: true},
	KindDisjointUnion:    {identities: setOperatorIdentities, initial: IdentityNeutral, constructor: true},
	KindEnumeration:      {identities: setOperatorIdentities, initial: IdentityNeutral, constructor: true},
	KindRangeRestriction: {identities: setOperatorIdentities, initial: IdentityNeutral, constructor: true},
	KindDomainRestriction: {
		identities:  []Identity{IdentityConcept, IdentityNeutral},
		initial:     IdentityNeutral,
		constructor: true,
	},
	KindRoleChain:   {identities: []Identity{IdentityRole, IdentityNeutral}, initial: IdentityNeutral, constructor: true},
	KindRoleInverse: {identities: []Identity{IdentityRole, IdentityNeutral}, initial: IdentityNeutral, constructor: true},
	KindDatatypeRestriction: {
		identities:  []Identity{IdentityDataRange, IdentityNeutral},
		initial:     IdentityNeutral,
		constructor: true,
	},
}

var setOperatorIdentities = []Identity{IdentityConcept, IdentityDataRange, IdentityNeutral}

// Identities returns the identity set declared for kind. The returned slice
// must not be modified.
func Identities(kind NodeKind) []Identity {
	return kindTable[kind].identities
}

// Admits reports whether a node of the given kind may hold identity.
// Unknown is always admitted.
func Admits(kind NodeKind, identity Identity) bool {
	if identity == IdentityUnknown {
		return true
	}
	for _, i := range kindTable[kind].identities {
		if i == identity {
			return true
		}
	}
	return false
}

// IsWeak reports whether nodes of kind derive their identity from context.
func IsWeak(kind NodeKind) bool {
	for _, i := range kindTable[kind].identities {
		if i == IdentityNeutral {
			return true
		}
	}
	return false
}

// InitialIdentity returns the identity a freshly created node of kind holds.
func InitialIdentity(kind NodeKind) Identity {
	if info, ok := kindTable[kind]; ok {
		return info.initial
	}
	return IdentityUnknown
}

// IsConstructor reports whether nodes of kind accept Input edges.
func IsConstructor(kind NodeKind) bool {
	return kindTable[kind].constructor
}

// IsRestriction reports whether kind is a domain or range restriction.
func IsRestriction(kind NodeKind) bool {
	return kind == KindDomainRestriction || kind == KindRangeRestriction
}

// HasOrderedInputs reports whether the argument order of kind's inputs matters.
func HasOrderedInputs(kind NodeKind) bool {
	return kind == KindRoleChain || kind == KindPropertyAssertion
}

// Propagates reports whether identity may flow along edges of kind.
func Propagates(kind EdgeKind) bool {
	return kind == EdgeInclusion || kind == EdgeInput
}
