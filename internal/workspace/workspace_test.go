package workspace

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/graphol-go/internal/config"
	"github.com/Benny93/graphol-go/internal/editor"
	"github.com/Benny93/graphol-go/internal/graph"
	"github.com/Benny93/graphol-go/internal/storage"
)

func quiet() Option {
	return WithLogger(log.New(io.Discard))
}

func TestInitOpen(t *testing.T) {
	t.Parallel()

	t.Run("Badger", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		root := t.TempDir()

		ws, err := Init(ctx, root, nil, quiet())
		require.NoError(t, err)
		require.NoError(t, ws.Update(ctx, func(ed *editor.Editor) error {
			_, err := ed.AddNode(graph.KindConcept, editor.WithNodeID("a"), editor.WithLabel("Person"))
			return err
		}))
		require.NoError(t, ws.Close())

		reopened, err := Open(ctx, root, quiet())
		require.NoError(t, err)
		defer reopened.Close()

		assert.FileExists(t, config.Path(root))
		require.NoError(t, reopened.View(func(ed *editor.Editor) error {
			a := ed.Diagram().GetNode("a")
			require.NotNil(t, a)
			assert.Equal(t, "Person", a.Label)
			assert.Len(t, ed.Diagram().ID, 36)
			return nil
		}))
	})

	t.Run("InitTwice", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		root := t.TempDir()
		ws, err := Init(ctx, root, nil, WithBackend(storage.NewMemoryBackend()), quiet())
		require.NoError(t, err)
		defer ws.Close()

		_, err = Init(ctx, root, nil, WithBackend(storage.NewMemoryBackend()), quiet())

		assert.ErrorContains(t, err, "already initialized")
	})

	t.Run("OpenUninitialized", func(t *testing.T) {
		t.Parallel()

		_, err := Open(context.Background(), t.TempDir(), quiet())

		assert.ErrorIs(t, err, ErrNotInitialized)
	})

	t.Run("OpenEmptyStore", func(t *testing.T) {
		t.Parallel()

		_, err := Open(context.Background(), t.TempDir(), WithBackend(storage.NewMemoryBackend()), quiet())

		assert.ErrorIs(t, err, ErrNotInitialized)
	})

	t.Run("DefaultRestrictionFromConfig", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		cfg := config.Default()
		cfg.DefaultRestriction = "forall"

		ws, err := Init(ctx, t.TempDir(), cfg, WithBackend(storage.NewMemoryBackend()), quiet())
		require.NoError(t, err)
		defer ws.Close()

		require.NoError(t, ws.Update(ctx, func(ed *editor.Editor) error {
			n, err := ed.AddNode(graph.KindDomainRestriction)
			if err == nil {
				assert.Equal(t, graph.RestrictionForall, n.Restriction)
			}
			return err
		}))
	})
}

func TestWorkspace_ProfileFromConfig(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := config.Default()
	cfg.Profile = "owl2rl"
	ws, err := Init(ctx, t.TempDir(), cfg, WithBackend(storage.NewMemoryBackend()), quiet())
	require.NoError(t, err)
	defer ws.Close()

	err = ws.Update(ctx, func(ed *editor.Editor) error {
		_, err := ed.AddNode(graph.KindFacet)
		return err
	})

	assert.ErrorIs(t, err, editor.ErrOutsideProfile)
}

func TestWorkspace_Update(t *testing.T) {
	t.Parallel()

	t.Run("SavesOnSuccess", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		backend := storage.NewMemoryBackend()
		ws, err := Init(ctx, t.TempDir(), nil, WithBackend(backend), quiet())
		require.NoError(t, err)

		require.NoError(t, ws.Update(ctx, func(ed *editor.Editor) error {
			_, err := ed.AddNode(graph.KindRole)
			return err
		}))

		assert.Equal(t, 1, backend.NodeCount())
	})

	t.Run("SavesAfterCancel", func(t *testing.T) {
		t.Parallel()
		backend := storage.NewMemoryBackend()
		ws, err := Init(context.Background(), t.TempDir(), nil, WithBackend(backend), quiet())
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())

		require.NoError(t, ws.Update(ctx, func(ed *editor.Editor) error {
			cancel()
			_, err := ed.AddNode(graph.KindRole)
			return err
		}))

		assert.Equal(t, 1, backend.NodeCount())
	})

	t.Run("SkipsSaveOnError", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		backend := storage.NewMemoryBackend()
		ws, err := Init(ctx, t.TempDir(), nil, WithBackend(backend), quiet())
		require.NoError(t, err)
		boom := errors.New("boom")

		err = ws.Update(ctx, func(ed *editor.Editor) error {
			_, _ = ed.AddNode(graph.KindRole)
			return boom
		})

		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 0, backend.NodeCount())
	})

	t.Run("ReadOnly", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		root := t.TempDir()
		backend := storage.NewMemoryBackend()
		ws, err := Init(ctx, root, nil, WithBackend(backend), quiet())
		require.NoError(t, err)
		require.NoError(t, ws.Close())

		ro, err := Open(ctx, root, WithBackend(backend), ReadOnly(), quiet())
		require.NoError(t, err)

		err = ro.Update(ctx, func(*editor.Editor) error { return nil })

		assert.ErrorContains(t, err, "read-only")
	})
}
