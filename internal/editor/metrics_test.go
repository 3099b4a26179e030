package editor

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/graphol-go/internal/graph"
)

func TestMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	e := New(graph.NewDiagram("test"), WithLogger(log.New(io.Discard)), WithMetrics(m))

	mustAdd(t, e, "a", graph.KindConcept)
	mustAdd(t, e, "u", graph.KindUnion)
	mustAdd(t, e, "c1", graph.KindRoleChain)
	mustConnect(t, e, graph.EdgeInput, "a", "u")
	_, err := e.Connect(graph.EdgeInput, "a", "c1")
	require.ErrorIs(t, err, ErrRejected)
	_, err = e.Connect(graph.EdgeInput, "u", "u")
	require.ErrorIs(t, err, ErrRejected)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.EditsTotal.WithLabelValues(OpAddNode)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EditsTotal.WithLabelValues(OpConnect)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EdgesRejectedTotal.WithLabelValues("role-chain-source")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EdgesRejectedTotal.WithLabelValues("self-loop")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IdentityChangesTotal))

	count, err := testutil.GatherAndCount(reg, "graphol_identity_region_size")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()

	e := newTestEditor(t)
	mustAdd(t, e, "a", graph.KindConcept)
	mustAdd(t, e, "u", graph.KindUnion)

	assert.NotPanics(t, func() { mustConnect(t, e, graph.EdgeInput, "a", "u") })
}
