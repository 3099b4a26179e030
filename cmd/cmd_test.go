package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/graphol-go/internal/config"
	"github.com/Benny93/graphol-go/internal/editor"
)

// testEnv is an initialised workspace with captured output.
type testEnv struct {
	t   *testing.T
	g   *Globals
	out *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	out := &bytes.Buffer{}
	env := &testEnv{t: t, g: &Globals{Dir: t.TempDir(), out: out, errOut: io.Discard}, out: out}
	require.NoError(t, (&InitCmd{DefaultRestriction: "exists"}).Run(env.g))
	out.Reset()
	return env
}

// run executes c and returns what it printed.
func (e *testEnv) run(c interface{ Run(*Globals) error }) (string, error) {
	e.t.Helper()
	e.out.Reset()
	err := c.Run(e.g)
	return e.out.String(), err
}

func (e *testEnv) mustRun(c interface{ Run(*Globals) error }) string {
	e.t.Helper()
	out, err := e.run(c)
	require.NoError(e.t, err)
	return out
}

// personUnion adds Person and Agent concepts feeding a union u through
// input edges i1 and i2.
func (e *testEnv) personUnion() {
	e.t.Helper()
	e.mustRun(&AddNodeCmd{Kind: "concept", ID: "c", Label: "Person"})
	e.mustRun(&AddNodeCmd{Kind: "concept", ID: "d", Label: "Agent"})
	e.mustRun(&AddNodeCmd{Kind: "union", ID: "u"})
	e.mustRun(&ConnectCmd{Kind: "input", Source: "c", Target: "u", ID: "i1"})
	e.mustRun(&ConnectCmd{Kind: "input", Source: "d", Target: "u", ID: "i2"})
}

func TestInitCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("CreatesWorkspace", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		var out bytes.Buffer

		err := (&InitCmd{DefaultRestriction: "forall"}).Run(&Globals{Dir: dir, out: &out, errOut: io.Discard})

		require.NoError(t, err)
		assert.Contains(t, out.String(), "Initialized graphol workspace")
		cfg, err := config.Load(dir)
		require.NoError(t, err)
		assert.Equal(t, "forall", cfg.DefaultRestriction)
		assert.DirExists(t, cfg.ResolveStorePath(dir))
	})

	t.Run("CustomStorePath", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()

		err := (&InitCmd{StorePath: "db"}).Run(&Globals{Dir: dir, out: io.Discard, errOut: io.Discard})

		require.NoError(t, err)
		assert.DirExists(t, filepath.Join(dir, "db"))
	})

	t.Run("Profile", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		g := &Globals{Dir: dir, out: io.Discard, errOut: io.Discard}

		require.NoError(t, (&InitCmd{Profile: "owl2ql"}).Run(g))
		cfg, err := config.Load(dir)
		require.NoError(t, err)
		assert.Equal(t, "owl2ql", cfg.Profile)

		require.NoError(t, (&AddNodeCmd{Kind: "concept", ID: "c"}).Run(g))
		err = (&AddNodeCmd{Kind: "union", ID: "u"}).Run(g)
		assert.ErrorIs(t, err, editor.ErrOutsideProfile)
	})

	t.Run("Twice", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		_, err := env.run(&InitCmd{})

		assert.ErrorContains(t, err, "already initialized")
	})
}

func TestEditCommands(t *testing.T) {
	t.Parallel()

	t.Run("WithoutWorkspace", func(t *testing.T) {
		t.Parallel()
		err := (&AddNodeCmd{Kind: "concept"}).Run(&Globals{Dir: t.TempDir(), out: io.Discard, errOut: io.Discard})

		assert.ErrorContains(t, err, "graphol init")
	})

	t.Run("AddNode", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		out := env.mustRun(&AddNodeCmd{Kind: "concept", Label: "Person"})
		assert.Contains(t, out, `Added n0(concept "Person"): concept`)

		out = env.mustRun(&AddNodeCmd{Kind: "individual", ID: "v", Label: "42", Literal: true})
		assert.Contains(t, out, "literal")

		out = env.mustRun(&AddNodeCmd{Kind: "domain-restriction", ID: "dr"})
		assert.Contains(t, out, "dr(domain-restriction)")
	})

	t.Run("AddNodeErrors", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		_, err := env.run(&AddNodeCmd{Kind: "rectangle"})
		assert.ErrorIs(t, err, editor.ErrUnknownKind)

		_, err = env.run(&AddNodeCmd{Kind: "concept", Special: "middle"})
		assert.ErrorContains(t, err, "top or bottom")

		_, err = env.run(&AddNodeCmd{Kind: "domain-restriction", Restriction: "sometimes"})
		assert.Error(t, err)
	})

	t.Run("ConnectPrintsIdentityChanges", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.mustRun(&AddNodeCmd{Kind: "concept", ID: "c"})
		env.mustRun(&AddNodeCmd{Kind: "union", ID: "u"})

		out := env.mustRun(&ConnectCmd{Kind: "input", Source: "c", Target: "u"})

		assert.Contains(t, out, "Connected e0(input c->u)")
		assert.Contains(t, out, "u: neutral -> concept")
	})

	t.Run("ConnectRejected", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.personUnion()

		_, err := env.run(&ConnectCmd{Kind: "membership", Source: "c", Target: "d"})

		var rejected *editor.RejectedError
		require.ErrorAs(t, err, &rejected)
		assert.Equal(t, "membership-source", rejected.Verdict.Rule)

		out := env.mustRun(&StatusCmd{})
		assert.Contains(t, out, "Edges:    2")
	})

	t.Run("EditsPersist", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.personUnion()

		env.mustRun(&DisconnectCmd{Edge: "i1"})
		out := env.mustRun(&RemoveNodeCmd{Node: "d"})

		assert.Contains(t, out, "Removed node d")
		assert.Contains(t, out, "u: concept -> neutral")

		out = env.mustRun(&IdentitiesCmd{JSON: true})
		var ids map[string]string
		require.NoError(t, json.Unmarshal([]byte(out), &ids))
		assert.Equal(t, map[string]string{"c": "concept", "u": "neutral"}, ids)
	})

	t.Run("Swap", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.mustRun(&AddNodeCmd{Kind: "concept", ID: "a"})
		env.mustRun(&AddNodeCmd{Kind: "concept", ID: "b"})
		env.mustRun(&ConnectCmd{Kind: "inclusion", Source: "a", Target: "b", ID: "isa"})

		out := env.mustRun(&SwapCmd{Edge: "isa"})

		assert.Contains(t, out, "Swapped isa(inclusion b->a)")
	})

	t.Run("MoveInput", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.mustRun(&AddNodeCmd{Kind: "role", ID: "r1"})
		env.mustRun(&AddNodeCmd{Kind: "role", ID: "r2"})
		env.mustRun(&AddNodeCmd{Kind: "role-chain", ID: "ch"})
		env.mustRun(&ConnectCmd{Kind: "input", Source: "r1", Target: "ch", ID: "x"})
		env.mustRun(&ConnectCmd{Kind: "input", Source: "r2", Target: "ch", ID: "y"})

		out := env.mustRun(&MoveInputCmd{Node: "ch", Edge: "y", Index: 0})

		assert.Contains(t, out, "Inputs of ch: [y x]")
	})

	t.Run("Restrict", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.mustRun(&AddNodeCmd{Kind: "domain-restriction", ID: "dr"})

		env.mustRun(&RestrictCmd{Node: "dr", Restriction: "cardinality", Min: 1, Max: 3})
		_, err := env.run(&RestrictCmd{Node: "dr", Restriction: "cardinality", Min: 4, Max: 2})

		assert.Error(t, err)
	})

	t.Run("IndividualKind", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.mustRun(&AddNodeCmd{Kind: "individual", ID: "i"})

		out := env.mustRun(&IndividualKindCmd{Node: "i", Literal: true})

		assert.Contains(t, out, "is now literal")
	})
}

func TestQueryCommands(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.personUnion()

	t.Run("CheckValid", func(t *testing.T) {
		out := env.mustRun(&CheckCmd{Kind: "inclusion", Source: "c", Target: "d"})

		assert.Contains(t, out, "inclusion c -> d is valid")
	})

	t.Run("CheckInvalid", func(t *testing.T) {
		out := env.mustRun(&CheckCmd{Kind: "membership", Source: "c", Target: "d"})

		assert.Contains(t, out, "invalid (membership-source)")
	})

	t.Run("Identities", func(t *testing.T) {
		out := env.mustRun(&IdentitiesCmd{})

		assert.Contains(t, out, `c(concept "Person")`)
		assert.Contains(t, out, "u(union)")
	})

	t.Run("IdentityRegion", func(t *testing.T) {
		out := env.mustRun(&IdentitiesCmd{Node: "u"})

		assert.Contains(t, out, "u(union)")
		assert.Contains(t, out, `d(concept "Agent")`)
	})

	t.Run("IdentityRegionUnknownNode", func(t *testing.T) {
		_, err := env.run(&IdentitiesCmd{Node: "zz"})

		assert.ErrorIs(t, err, editor.ErrNodeNotFound)
	})

	t.Run("Traverse", func(t *testing.T) {
		out := env.mustRun(&TraverseCmd{Node: "c"})

		assert.Contains(t, out, `1. c(concept "Person")`)
		assert.Contains(t, out, "2. u(union)")
		assert.Contains(t, out, `3. d(concept "Agent")`)
	})

	t.Run("TraverseFiltered", func(t *testing.T) {
		out := env.mustRun(&TraverseCmd{Node: "c", DFS: true, Edges: []string{"inclusion"}})

		assert.NotContains(t, out, "u(union)")
	})

	t.Run("TraverseUnknownEdgeKind", func(t *testing.T) {
		_, err := env.run(&TraverseCmd{Node: "c", Edges: []string{"arrow"}})

		assert.Error(t, err)
	})

	t.Run("Neighbours", func(t *testing.T) {
		out := env.mustRun(&NeighboursCmd{Node: "c", Depth: 1})

		assert.Contains(t, out, "u(union)")
		assert.NotContains(t, out, "Agent")
	})

	t.Run("Search", func(t *testing.T) {
		out := env.mustRun(&SearchCmd{Query: "agent", Limit: 5})

		assert.Contains(t, out, "1. Agent (concept) d")
	})

	t.Run("SearchNoResults", func(t *testing.T) {
		out := env.mustRun(&SearchCmd{Query: "vehicle", Limit: 5})

		assert.Contains(t, out, "No results found")
	})

	t.Run("Status", func(t *testing.T) {
		out := env.mustRun(&StatusCmd{})

		assert.Contains(t, out, "Nodes:    3")
		assert.Contains(t, out, "Edges:    2")
		assert.Contains(t, out, "concept")
	})
}

const qualifiedExistential = `name: qualified existential
steps:
  - {op: add-node, id: r, kind: role, label: hasChild}
  - {op: add-node, id: c, kind: concept, label: Person}
  - {op: add-node, id: dr, kind: domain-restriction}
  - {op: connect, kind: input, source: r, target: dr}
  - {op: connect, kind: input, source: c, target: dr}
  - {op: connect, kind: input, source: dr, target: dr, expect: reject}
`

func writeScript(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReplayCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("Applies", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		script := writeScript(t, t.TempDir(), "qe.yaml", qualifiedExistential)

		out := env.mustRun(&ReplayCmd{Script: script})

		assert.Contains(t, out, "✓ step 1 add-node: accepted")
		assert.Contains(t, out, "✓ step 6 connect: rejected")

		out = env.mustRun(&IdentitiesCmd{JSON: true})
		assert.Contains(t, out, `"dr": "concept"`)
	})

	t.Run("DryRun", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		script := writeScript(t, t.TempDir(), "qe.yaml", qualifiedExistential)

		env.mustRun(&ReplayCmd{Script: script, DryRun: true})

		out := env.mustRun(&StatusCmd{})
		assert.Contains(t, out, "Nodes:    0")
	})

	t.Run("Mismatch", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		script := writeScript(t, t.TempDir(), "bad.yaml", `steps:
  - {op: add-node, id: a, kind: concept}
  - {op: add-node, id: a, kind: concept}
`)

		out, err := env.run(&ReplayCmd{Script: script})

		assert.ErrorContains(t, err, "1 of 2 steps")
		assert.Contains(t, out, "✗ step 2 add-node: rejected, expected accept")
	})

	t.Run("JSON", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		script := writeScript(t, t.TempDir(), "qe.yaml", qualifiedExistential)

		out := env.mustRun(&ReplayCmd{Script: script, JSON: true})

		var report editor.Report
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		assert.Equal(t, "qualified existential", report.Name)
		assert.Len(t, report.Steps, 6)
		assert.True(t, report.OK())
	})

	t.Run("InvalidScript", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		script := writeScript(t, t.TempDir(), "bad.yaml", "steps:\n  - {op: paint}\n")

		_, err := env.run(&ReplayCmd{Script: script})

		assert.ErrorContains(t, err, "unknown op")
	})
}

func TestCleanCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("Force", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		out := env.mustRun(&CleanCmd{Force: true})

		assert.Contains(t, out, "Deleted")
		assert.NoDirExists(t, filepath.Join(env.g.Dir, config.Dir))
	})

	t.Run("NothingToClean", func(t *testing.T) {
		t.Parallel()
		err := (&CleanCmd{Force: true}).Run(&Globals{Dir: t.TempDir(), out: io.Discard})

		assert.ErrorContains(t, err, "Nothing to clean")
	})
}

func TestCLI_Execute(t *testing.T) {
	t.Parallel()

	t.Run("UnknownCommand", func(t *testing.T) {
		t.Parallel()
		err := NewCLI().Execute([]string{"paint"})

		assert.Error(t, err)
	})

	t.Run("InitAndStatus", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()

		require.NoError(t, NewCLI().Execute([]string{"-q", "-C", dir, "init"}))

		assert.FileExists(t, config.Path(dir))
	})
}

func TestBound(t *testing.T) {
	t.Parallel()

	assert.Nil(t, bound(-1))
	require.NotNil(t, bound(0))
	assert.Equal(t, 3, *bound(3))
}
