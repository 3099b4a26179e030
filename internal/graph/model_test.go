package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNodeKind(t *testing.T) {
	t.Parallel()

	for _, kind := range NodeKinds {
		t.Run(string(kind), func(t *testing.T) {
			t.Parallel()
			got, err := ParseNodeKind(string(kind))
			require.NoError(t, err)
			assert.Equal(t, kind, got)
		})
	}

	t.Run("CaseInsensitive", func(t *testing.T) {
		t.Parallel()
		got, err := ParseNodeKind("  Role-Chain ")
		require.NoError(t, err)
		assert.Equal(t, KindRoleChain, got)
	})

	t.Run("Unknown", func(t *testing.T) {
		t.Parallel()
		_, err := ParseNodeKind("hexagon")
		assert.Error(t, err)
	})
}

func TestParseEdgeKind(t *testing.T) {
	t.Parallel()

	got, err := ParseEdgeKind("instance-of")
	require.NoError(t, err)
	assert.Equal(t, EdgeMembership, got)

	got, err = ParseEdgeKind("INPUT")
	require.NoError(t, err)
	assert.Equal(t, EdgeInput, got)

	_, err = ParseEdgeKind("arrow")
	assert.Error(t, err)
}

func TestParseRestriction(t *testing.T) {
	t.Parallel()

	got, err := ParseRestriction("forall")
	require.NoError(t, err)
	assert.Equal(t, RestrictionForall, got)

	_, err = ParseRestriction("some")
	assert.Error(t, err)
}

func TestKindTable(t *testing.T) {
	t.Parallel()

	t.Run("EveryKindDeclaresIdentities", func(t *testing.T) {
		t.Parallel()
		for _, kind := range NodeKinds {
			assert.NotEmpty(t, Identities(kind), "kind %s", kind)
			assert.True(t, Admits(kind, InitialIdentity(kind)), "kind %s", kind)
		}
	})

	t.Run("WeakKinds", func(t *testing.T) {
		t.Parallel()
		weak := []NodeKind{
			KindComplement, KindUnion, KindIntersection, KindEnumeration, KindDisjointUnion,
			KindDomainRestriction, KindRangeRestriction, KindRoleChain, KindRoleInverse,
			KindDatatypeRestriction,
		}
		for _, kind := range weak {
			assert.True(t, IsWeak(kind), "kind %s", kind)
			assert.Equal(t, IdentityNeutral, InitialIdentity(kind))
		}
	})

	t.Run("StrongKinds", func(t *testing.T) {
		t.Parallel()
		strong := []NodeKind{
			KindConcept, KindRole, KindAttribute, KindIndividual, KindPropertyAssertion,
			KindValueDomain, KindValueRestriction, KindFacet,
		}
		for _, kind := range strong {
			assert.False(t, IsWeak(kind), "kind %s", kind)
		}
	})

	t.Run("Constructors", func(t *testing.T) {
		t.Parallel()
		assert.True(t, IsConstructor(KindPropertyAssertion))
		assert.True(t, IsConstructor(KindRoleChain))
		assert.False(t, IsConstructor(KindConcept))
		assert.False(t, IsConstructor(KindIndividual))
	})
}

func TestNode_SetIdentity(t *testing.T) {
	t.Parallel()

	t.Run("AdmittedIdentity", func(t *testing.T) {
		t.Parallel()
		n := NewNode("n0", KindUnion)
		n.SetIdentity(IdentityConcept)
		assert.Equal(t, IdentityConcept, n.Identity())
	})

	t.Run("ForeignIdentityBecomesUnknown", func(t *testing.T) {
		t.Parallel()
		n := NewNode("n0", KindUnion)
		n.SetIdentity(IdentityRole)
		assert.Equal(t, IdentityUnknown, n.Identity())
	})

	t.Run("UnknownAlwaysAdmitted", func(t *testing.T) {
		t.Parallel()
		n := NewNode("n0", KindConcept)
		n.SetIdentity(IdentityUnknown)
		assert.Equal(t, IdentityUnknown, n.Identity())
	})
}

func TestNewNode(t *testing.T) {
	t.Parallel()

	restriction := NewNode("n0", KindDomainRestriction)
	assert.Equal(t, RestrictionExists, restriction.Restriction)
	assert.Nil(t, restriction.Inputs)

	chain := NewNode("n1", KindRoleChain)
	require.NotNil(t, chain.Inputs)
	assert.Equal(t, 0, chain.Inputs.Len())

	concept := NewNode("n2", KindConcept)
	concept.Label = "Person"
	assert.Equal(t, `n2(concept "Person")`, concept.String())
}

func TestEdge_Other(t *testing.T) {
	t.Parallel()

	e := &Edge{ID: "e0", Kind: EdgeInput, Source: "a", Target: "b"}
	assert.Equal(t, NodeID("b"), e.Other("a"))
	assert.Equal(t, NodeID("a"), e.Other("b"))
}
