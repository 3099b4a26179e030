package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/graphol-go/internal/graph"
)

func intPtr(v int) *int { return &v }

// fixtureDiagram builds:
//
//	r(role hasChild) --input--> dr(domain-restriction, forall) <--input-- c(concept Person)
//	dr --inclusion(complete)--> c
//	r --input(in3)--> ch(role-chain) <--input(in4)-- r2(role hasParent), argument order [in4 in3]
//	rr(range-restriction, cardinality 1..3), isolated
func fixtureDiagram(t *testing.T) *graph.Diagram {
	t.Helper()

	d := graph.NewDiagram("fixture")
	add := func(id graph.NodeID, kind graph.NodeKind, label string) *graph.Node {
		n := graph.NewNode(id, kind)
		n.Label = label
		require.NoError(t, d.AddNode(n))
		return n
	}
	connect := func(id graph.EdgeID, kind graph.EdgeKind, source, target graph.NodeID) *graph.Edge {
		e := &graph.Edge{ID: id, Kind: kind, Source: source, Target: target}
		require.NoError(t, d.AddEdge(e))
		return e
	}

	add("r", graph.KindRole, "hasChild")
	add("c", graph.KindConcept, "Person")
	dr := add("dr", graph.KindDomainRestriction, "")
	dr.Restriction = graph.RestrictionForall
	dr.SetIdentity(graph.IdentityConcept)
	ch := add("ch", graph.KindRoleChain, "")
	add("r2", graph.KindRole, "hasParent")
	rr := add("rr", graph.KindRangeRestriction, "")
	rr.Restriction = graph.RestrictionCardinality
	rr.Cardinality = graph.Cardinality{Min: intPtr(1), Max: intPtr(3)}

	connect("in1", graph.EdgeInput, "r", "dr")
	connect("in2", graph.EdgeInput, "c", "dr")
	connect("isa", graph.EdgeInclusion, "dr", "c").Complete = true
	connect("in3", graph.EdgeInput, "r", "ch")
	connect("in4", graph.EdgeInput, "r2", "ch").Functional = true
	require.True(t, ch.Inputs.Move("in4", 0))
	d.SetCounters(10, 10)
	return d
}

// backends returns a fresh instance of every backend implementation.
func backends(t *testing.T) map[string]StorageBackend {
	t.Helper()

	badgerBackend := NewBadgerBackend()
	require.NoError(t, badgerBackend.Initialize(filepath.Join(t.TempDir(), "badger"), false))
	t.Cleanup(func() { _ = badgerBackend.Close() })

	memory := NewMemoryBackend()
	require.NoError(t, memory.Initialize("", false))

	return map[string]StorageBackend{
		"Badger": badgerBackend,
		"Memory": memory,
	}
}

func TestBackend_RoundTrip(t *testing.T) {
	t.Parallel()

	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			saved := fixtureDiagram(t)
			require.NoError(t, backend.BulkLoad(ctx, saved))

			d, err := backend.Load(ctx)
			require.NoError(t, err)

			assert.Equal(t, "fixture", d.ID)
			assert.Equal(t, saved.NodeCount(), d.NodeCount())
			assert.Equal(t, saved.EdgeCount(), d.EdgeCount())
			assert.Equal(t, graph.IDs(saved.Nodes()), graph.IDs(d.Nodes()))
			for _, n := range saved.Nodes() {
				assert.Equal(t, n.Identity(), d.GetNode(n.ID).Identity(), "identity of %s", n.ID)
			}

			assert.Equal(t, []graph.EdgeID{"in4", "in3"}, d.GetNode("ch").Inputs.IDs())
			assert.Equal(t, graph.RestrictionForall, d.GetNode("dr").Restriction)
			rr := d.GetNode("rr")
			require.NotNil(t, rr.Cardinality.Min)
			require.NotNil(t, rr.Cardinality.Max)
			assert.Equal(t, 1, *rr.Cardinality.Min)
			assert.Equal(t, 3, *rr.Cardinality.Max)
			assert.True(t, d.GetEdge("isa").Complete)
			assert.True(t, d.GetEdge("in4").Functional)
			assert.Equal(t, graph.NodeID("r2"), d.GetEdge("in4").Source)

			nextNode, nextEdge := d.Counters()
			assert.Equal(t, 10, nextNode)
			assert.Equal(t, 10, nextEdge)
		})
	}
}

func TestBackend_LoadDetached(t *testing.T) {
	t.Parallel()

	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			saved := fixtureDiagram(t)
			require.NoError(t, backend.BulkLoad(ctx, saved))

			saved.GetNode("c").Label = "Changed"
			d, err := backend.Load(ctx)
			require.NoError(t, err)

			assert.Equal(t, "Person", d.GetNode("c").Label)
		})
	}
}

func TestBackend_LoadEmpty(t *testing.T) {
	t.Parallel()

	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := backend.Load(ctx)
			assert.ErrorIs(t, err, ErrEmpty)

			_, err = backend.Meta(ctx)
			assert.ErrorIs(t, err, ErrEmpty)
		})
	}
}

func TestBackend_BulkLoadReplaces(t *testing.T) {
	t.Parallel()

	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, backend.BulkLoad(ctx, fixtureDiagram(t)))

			small := graph.NewDiagram("small")
			require.NoError(t, small.AddNode(graph.NewNode("x", graph.KindConcept)))
			require.NoError(t, backend.BulkLoad(ctx, small))

			assert.Equal(t, 1, backend.NodeCount())
			assert.Equal(t, 0, backend.EdgeCount())
			gone, err := backend.GetNode(ctx, "r")
			require.NoError(t, err)
			assert.Nil(t, gone)

			results, err := backend.SearchLabels(ctx, "hasChild", 10)
			require.NoError(t, err)
			assert.Empty(t, results)
		})
	}
}

func TestBackend_Meta(t *testing.T) {
	t.Parallel()

	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, backend.BulkLoad(ctx, fixtureDiagram(t)))

			meta, err := backend.Meta(ctx)
			require.NoError(t, err)

			assert.Equal(t, "fixture", meta.DiagramID)
			assert.Equal(t, 6, meta.Nodes)
			assert.Equal(t, 5, meta.Edges)
			assert.Equal(t, 10, meta.NextNode)
			assert.False(t, meta.SavedAt.IsZero())
		})
	}

	t.Run("GeneratedID", func(t *testing.T) {
		t.Parallel()
		backend := NewMemoryBackend()
		d := graph.NewDiagram("")

		require.NoError(t, backend.BulkLoad(context.Background(), d))

		meta, err := backend.Meta(context.Background())
		require.NoError(t, err)
		assert.Len(t, meta.DiagramID, 36)
		assert.Equal(t, meta.DiagramID, d.ID)
	})
}

func TestBackend_GetNode(t *testing.T) {
	t.Parallel()

	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, backend.BulkLoad(ctx, fixtureDiagram(t)))

			node, err := backend.GetNode(ctx, "dr")
			require.NoError(t, err)
			require.NotNil(t, node)
			assert.Equal(t, graph.KindDomainRestriction, node.Kind)
			assert.Equal(t, graph.IdentityConcept, node.Identity())

			missing, err := backend.GetNode(ctx, "nonexistent")
			assert.NoError(t, err)
			assert.Nil(t, missing)
		})
	}
}

func TestBackend_GetNodesByKind(t *testing.T) {
	t.Parallel()

	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, backend.BulkLoad(ctx, fixtureDiagram(t)))

			roles, err := backend.GetNodesByKind(ctx, graph.KindRole)
			require.NoError(t, err)
			assert.Equal(t, []graph.NodeID{"r", "r2"}, graph.IDs(roles))

			facets, err := backend.GetNodesByKind(ctx, graph.KindFacet)
			require.NoError(t, err)
			assert.Empty(t, facets)
		})
	}
}

func TestBackend_Traverse(t *testing.T) {
	t.Parallel()

	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, backend.BulkLoad(ctx, fixtureDiagram(t)))

			tests := []struct {
				name  string
				start graph.NodeID
				depth int
				want  []graph.NodeID
			}{
				{"OneHop", "c", 1, []graph.NodeID{"dr"}},
				{"TwoHops", "c", 2, []graph.NodeID{"dr", "r"}},
				{"FollowsIncoming", "r2", 2, []graph.NodeID{"ch", "r"}},
				{"DepthCapped", "c", 100, []graph.NodeID{"dr", "r", "ch", "r2"}},
				{"Isolated", "rr", 3, nil},
				{"UnknownStart", "missing", 3, nil},
				{"ZeroDepth", "c", 0, nil},
			}

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					nodes, err := backend.Traverse(ctx, tt.start, tt.depth)

					require.NoError(t, err)
					assert.ElementsMatch(t, tt.want, graph.IDs(nodes))
				})
			}
		})
	}
}

func TestBackend_SearchLabels(t *testing.T) {
	t.Parallel()

	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, backend.BulkLoad(ctx, fixtureDiagram(t)))

			results, err := backend.SearchLabels(ctx, "hasChild", 10)
			require.NoError(t, err)
			require.Len(t, results, 2)
			assert.Equal(t, graph.NodeID("r"), results[0].NodeID)
			assert.Equal(t, graph.KindRole, results[0].Kind)
			assert.Equal(t, 3.0, results[0].Score)
			assert.Equal(t, graph.NodeID("r2"), results[1].NodeID)

			limited, err := backend.SearchLabels(ctx, "has", 1)
			require.NoError(t, err)
			assert.Len(t, limited, 1)

			none, err := backend.SearchLabels(ctx, "", 10)
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestTokenize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"CamelCase", "hasChild", []string{"child", "has", "haschild"}},
		{"Prefixed", "ex:Person", []string{"ex", "ex:person", "person"}},
		{"Spaces", "  Big  Cat ", []string{"big", "big  cat", "cat"}},
		{"Empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tokenize(tt.in))
		})
	}
}
