package cmd

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// connectSpy records whether a server was started on the transport.
type connectSpy struct {
	sdk.Transport
	connected atomic.Bool
}

func (s *connectSpy) Connect(ctx context.Context) (sdk.Connection, error) {
	s.connected.Store(true)
	return s.Transport.Connect(ctx)
}

func TestServeCmd_serve(t *testing.T) {
	t.Parallel()

	t.Run("WatcherFailureStartsNothing", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		env := newTestEnv(t)
		ws, logger, err := env.g.open(ctx)
		require.NoError(t, err)
		defer ws.Close()
		ws.Config.Watch.Pattern = "[unclosed"
		_, serverTransport := sdk.NewInMemoryTransports()
		spy := &connectSpy{Transport: serverTransport}

		err = (&ServeCmd{Watch: true}).serve(ctx, ws, logger, prometheus.NewRegistry(), spy)

		assert.ErrorContains(t, err, "invalid watch pattern")
		assert.False(t, spy.connected.Load())
	})

	t.Run("ServesUntilClientDisconnects", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		env := newTestEnv(t)
		env.personUnion()
		ws, logger, err := env.g.open(ctx)
		require.NoError(t, err)
		defer ws.Close()
		clientTransport, serverTransport := sdk.NewInMemoryTransports()

		done := make(chan error, 1)
		go func() {
			done <- (&ServeCmd{}).serve(ctx, ws, logger, prometheus.NewRegistry(), serverTransport)
		}()

		client := sdk.NewClient(&sdk.Implementation{Name: "test", Version: "v0.0.1"}, nil)
		session, err := client.Connect(ctx, clientTransport, nil)
		require.NoError(t, err)

		res, err := session.CallTool(ctx, &sdk.CallToolParams{
			Name:      "graphol_search",
			Arguments: map[string]any{"query": "person"},
		})
		require.NoError(t, err)
		require.Len(t, res.Content, 1)
		text, ok := res.Content[0].(*sdk.TextContent)
		require.True(t, ok)
		assert.Contains(t, text.Text, "**Person** (concept) id=c")

		require.NoError(t, session.Close())
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("serve did not return after the client disconnected")
		}
	})
}
