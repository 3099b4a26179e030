// Package cmd provides CLI command implementations for graphol.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/fatih/color"

	"github.com/Benny93/graphol-go/internal/config"
	"github.com/Benny93/graphol-go/internal/editor"
	"github.com/Benny93/graphol-go/internal/graph"
	"github.com/Benny93/graphol-go/internal/identity"
	"github.com/Benny93/graphol-go/internal/workspace"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
)

// Globals are the flags shared by every command.
type Globals struct {
	Verbose bool   `short:"v" help:"Enable verbose output"`
	Quiet   bool   `short:"q" help:"Suppress non-essential output"`
	Dir     string `short:"C" default:"." type:"path" help:"Workspace directory"`

	out    io.Writer
	errOut io.Writer
}

func (g *Globals) stdout() io.Writer {
	if g.out != nil {
		return g.out
	}
	return color.Output
}

func (g *Globals) stderr() io.Writer {
	if g.errOut != nil {
		return g.errOut
	}
	return os.Stderr
}

func (g *Globals) root() string {
	if g.Dir == "" {
		return "."
	}
	return g.Dir
}

func (g *Globals) logger() *log.Logger {
	level, _ := flagLevel(g.Verbose, g.Quiet)
	return newLogger(g.stderr(), level)
}

// open opens the workspace and switches the logger to the configured level.
func (g *Globals) open(ctx context.Context, opts ...workspace.Option) (*workspace.Workspace, *log.Logger, error) {
	logger := g.logger()
	ws, err := workspace.Open(ctx, g.root(), append([]workspace.Option{workspace.WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, nil, err
	}
	applyConfigLevel(logger, ws.Config.LogLevel, g.Verbose, g.Quiet)
	return ws, logger, nil
}

// edit applies fn to the stored diagram, saves it and prints the identity
// changes fn caused.
func (g *Globals) edit(fn func(ed *editor.Editor) error) error {
	ctx := context.Background()
	ws, _, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	return ws.Update(ctx, func(ed *editor.Editor) error {
		if err := fn(ed); err != nil {
			return err
		}
		g.printChanges(ed.TakeChanges())
		return nil
	})
}

func (g *Globals) printChanges(changes []identity.Change) {
	if g.Quiet || len(changes) == 0 {
		return
	}
	w := g.stdout()
	for _, c := range changes {
		_, _ = yellow.Fprintf(w, "  %s: %s -> %s\n", c.Node, c.From, c.To)
	}
}

// InitCmd creates a workspace.
type InitCmd struct {
	StorePath          string `help:"Store location, relative to the workspace"`
	DefaultRestriction string `enum:"exists,forall,cardinality,self" default:"exists" help:"Restriction given to new restriction nodes"`
	Profile            string `enum:"owl2,owl2ql,owl2rl" default:"owl2" help:"OWL 2 profile edits must stay within"`
}

// Run executes the init command.
func (c *InitCmd) Run(g *Globals) error {
	cfg := config.Default()
	if c.StorePath != "" {
		cfg.StorePath = c.StorePath
	}
	if c.DefaultRestriction != "" {
		cfg.DefaultRestriction = c.DefaultRestriction
	}
	if c.Profile != "" {
		cfg.Profile = c.Profile
	}

	root := g.root()
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("creating workspace directory: %w", err)
	}
	ws, err := workspace.Init(context.Background(), root, cfg, workspace.WithLogger(g.logger()))
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	_, _ = green.Fprintf(g.stdout(), "Initialized graphol workspace at %s\n", root)
	return nil
}

// AddNodeCmd adds a node to the diagram.
type AddNodeCmd struct {
	Kind        string `arg:"" help:"Node kind (concept, role, union, domain-restriction, ...)"`
	ID          string `help:"Node ID (generated when empty)"`
	Label       string `short:"l" help:"Node label"`
	Literal     bool   `help:"Create an individual as a literal"`
	Restriction string `help:"Restriction of a domain or range restriction node"`
	Special     string `help:"Mark a predicate as top or bottom"`
}

// Run executes the add-node command.
func (c *AddNodeCmd) Run(g *Globals) error {
	opts := []editor.NodeOption{editor.WithLabel(c.Label)}
	if c.ID != "" {
		opts = append(opts, editor.WithNodeID(graph.NodeID(c.ID)))
	}
	if c.Literal {
		opts = append(opts, editor.AsLiteral())
	}
	if c.Restriction != "" {
		r, err := graph.ParseRestriction(c.Restriction)
		if err != nil {
			return err
		}
		opts = append(opts, editor.WithRestriction(r))
	}
	switch special := graph.Special(c.Special); special {
	case graph.SpecialNone:
	case graph.SpecialTop, graph.SpecialBottom:
		opts = append(opts, editor.WithSpecial(special))
	default:
		return fmt.Errorf("special must be top or bottom, got %q", c.Special)
	}

	return g.edit(func(ed *editor.Editor) error {
		n, err := ed.AddNode(graph.NodeKind(c.Kind), opts...)
		if err != nil {
			return err
		}
		_, _ = green.Fprintf(g.stdout(), "Added %s: %s\n", n, n.Identity())
		return nil
	})
}

// ConnectCmd draws an edge between two nodes.
type ConnectCmd struct {
	Kind       string `arg:"" help:"Edge kind (inclusion, input, equivalence, membership)"`
	Source     string `arg:"" help:"Source node ID"`
	Target     string `arg:"" help:"Target node ID"`
	ID         string `help:"Edge ID (generated when empty)"`
	Complete   bool   `help:"Mark an inclusion as complete"`
	Functional bool   `help:"Mark an input as functional"`
}

// Run executes the connect command.
func (c *ConnectCmd) Run(g *Globals) error {
	var opts []editor.EdgeOption
	if c.ID != "" {
		opts = append(opts, editor.WithEdgeID(graph.EdgeID(c.ID)))
	}
	if c.Complete {
		opts = append(opts, editor.Complete())
	}
	if c.Functional {
		opts = append(opts, editor.Functional())
	}

	return g.edit(func(ed *editor.Editor) error {
		e, err := ed.Connect(graph.EdgeKind(c.Kind), graph.NodeID(c.Source), graph.NodeID(c.Target), opts...)
		if err != nil {
			return err
		}
		_, _ = green.Fprintf(g.stdout(), "Connected %s\n", e)
		return nil
	})
}

// DisconnectCmd removes an edge.
type DisconnectCmd struct {
	Edge string `arg:"" help:"Edge ID"`
}

// Run executes the disconnect command.
func (c *DisconnectCmd) Run(g *Globals) error {
	return g.edit(func(ed *editor.Editor) error {
		if err := ed.Disconnect(graph.EdgeID(c.Edge)); err != nil {
			return err
		}
		_, _ = green.Fprintf(g.stdout(), "Removed edge %s\n", c.Edge)
		return nil
	})
}

// RemoveNodeCmd removes a node and its edges.
type RemoveNodeCmd struct {
	Node string `arg:"" help:"Node ID"`
}

// Run executes the remove-node command.
func (c *RemoveNodeCmd) Run(g *Globals) error {
	return g.edit(func(ed *editor.Editor) error {
		if err := ed.RemoveNode(graph.NodeID(c.Node)); err != nil {
			return err
		}
		_, _ = green.Fprintf(g.stdout(), "Removed node %s\n", c.Node)
		return nil
	})
}

// SwapCmd reverses an edge.
type SwapCmd struct {
	Edge string `arg:"" help:"Edge ID"`
}

// Run executes the swap command.
func (c *SwapCmd) Run(g *Globals) error {
	return g.edit(func(ed *editor.Editor) error {
		e, err := ed.SwapEdge(graph.EdgeID(c.Edge))
		if err != nil {
			return err
		}
		_, _ = green.Fprintf(g.stdout(), "Swapped %s\n", e)
		return nil
	})
}

// MoveInputCmd reorders the inputs of a role chain or property assertion.
type MoveInputCmd struct {
	Node  string `arg:"" help:"Role chain or property assertion node ID"`
	Edge  string `arg:"" help:"Input edge ID"`
	Index int    `arg:"" help:"New zero-based position"`
}

// Run executes the move-input command.
func (c *MoveInputCmd) Run(g *Globals) error {
	return g.edit(func(ed *editor.Editor) error {
		if err := ed.MoveInput(graph.NodeID(c.Node), graph.EdgeID(c.Edge), c.Index); err != nil {
			return err
		}
		n := ed.Diagram().GetNode(graph.NodeID(c.Node))
		_, _ = green.Fprintf(g.stdout(), "Inputs of %s: %s\n", c.Node, joinEdgeIDs(n.Inputs.IDs()))
		return nil
	})
}

// RestrictCmd changes the restriction of a domain or range restriction.
type RestrictCmd struct {
	Node        string `arg:"" help:"Restriction node ID"`
	Restriction string `arg:"" enum:"exists,forall,cardinality,self" help:"exists, forall, cardinality or self"`
	Min         int    `default:"-1" help:"Minimum cardinality (-1 for none)"`
	Max         int    `default:"-1" help:"Maximum cardinality (-1 for none)"`
}

// Run executes the restrict command.
func (c *RestrictCmd) Run(g *Globals) error {
	return g.edit(func(ed *editor.Editor) error {
		if err := ed.SetRestriction(graph.NodeID(c.Node), graph.Restriction(c.Restriction), bound(c.Min), bound(c.Max)); err != nil {
			return err
		}
		n := ed.Diagram().GetNode(graph.NodeID(c.Node))
		_, _ = green.Fprintf(g.stdout(), "Restricted %s: %s\n", n, n.Identity())
		return nil
	})
}

// IndividualKindCmd switches an individual between individual and literal.
type IndividualKindCmd struct {
	Node    string `arg:"" help:"Individual node ID"`
	Literal bool   `help:"Make the node a literal"`
}

// Run executes the individual-kind command.
func (c *IndividualKindCmd) Run(g *Globals) error {
	return g.edit(func(ed *editor.Editor) error {
		if err := ed.SetIndividualKind(graph.NodeID(c.Node), c.Literal); err != nil {
			return err
		}
		n := ed.Diagram().GetNode(graph.NodeID(c.Node))
		_, _ = green.Fprintf(g.stdout(), "%s is now %s\n", n, n.Identity())
		return nil
	})
}

// CheckCmd tells whether an edge could be drawn, without drawing it.
type CheckCmd struct {
	Kind   string `arg:"" help:"Edge kind"`
	Source string `arg:"" help:"Source node ID"`
	Target string `arg:"" help:"Target node ID"`
}

// Run executes the check command.
func (c *CheckCmd) Run(g *Globals) error {
	ctx := context.Background()
	ws, _, err := g.open(ctx, workspace.ReadOnly())
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	return ws.View(func(ed *editor.Editor) error {
		v := ed.Check(graph.EdgeKind(c.Kind), graph.NodeID(c.Source), graph.NodeID(c.Target))
		if v.Valid {
			_, _ = green.Fprintf(g.stdout(), "✓ %s %s -> %s is valid\n", c.Kind, c.Source, c.Target)
			return nil
		}
		_, _ = red.Fprintf(g.stdout(), "✗ %s %s -> %s is %s\n", c.Kind, c.Source, c.Target, v)
		return nil
	})
}

// IdentitiesCmd lists node identities.
type IdentitiesCmd struct {
	Node string `help:"Show the identity region of this node"`
	JSON bool   `help:"Output as JSON"`
}

// Run executes the identities command.
func (c *IdentitiesCmd) Run(g *Globals) error {
	ctx := context.Background()
	ws, _, err := g.open(ctx, workspace.ReadOnly())
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	return ws.View(func(ed *editor.Editor) error {
		d := ed.Diagram()
		nodes := d.Nodes()
		if c.Node != "" {
			if d.GetNode(graph.NodeID(c.Node)) == nil {
				return fmt.Errorf("%w: %s", editor.ErrNodeNotFound, c.Node)
			}
			nodes = identity.Region(d, graph.NodeID(c.Node))
		}

		if c.JSON {
			ids := make(map[graph.NodeID]graph.Identity, len(nodes))
			for _, n := range nodes {
				ids[n.ID] = n.Identity()
			}
			fmt.Fprintln(g.stdout(), toJSON(ids))
			return nil
		}

		if len(nodes) == 0 {
			fmt.Fprintln(g.stdout(), "The diagram is empty")
			return nil
		}
		w := g.stdout()
		for _, n := range nodes {
			fmt.Fprintf(w, "%-30s %s\n", n, n.Identity())
		}
		return nil
	})
}

// TraverseCmd walks the diagram from a node.
type TraverseCmd struct {
	Node  string   `arg:"" help:"Start node ID"`
	DFS   bool     `help:"Depth-first instead of breadth-first"`
	Edges []string `help:"Only cross edges of these kinds"`
}

// Run executes the traverse command.
func (c *TraverseCmd) Run(g *Globals) error {
	var opts []graph.TraverseOption
	if len(c.Edges) > 0 {
		allowed := make(map[graph.EdgeKind]bool, len(c.Edges))
		for _, name := range c.Edges {
			kind, err := graph.ParseEdgeKind(name)
			if err != nil {
				return err
			}
			allowed[kind] = true
		}
		opts = append(opts, graph.WithEdgeFilter(func(e *graph.Edge) bool { return allowed[e.Kind] }))
	}

	ctx := context.Background()
	ws, _, err := g.open(ctx, workspace.ReadOnly())
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	return ws.View(func(ed *editor.Editor) error {
		walk := graph.BFS
		if c.DFS {
			walk = graph.DFS
		}
		nodes := walk(ed.Diagram(), graph.NodeID(c.Node), opts...)
		if len(nodes) == 0 {
			return fmt.Errorf("%w: %s", editor.ErrNodeNotFound, c.Node)
		}
		for i, n := range nodes {
			fmt.Fprintf(g.stdout(), "%d. %s\n", i+1, n)
		}
		return nil
	})
}

// NeighboursCmd lists the stored nodes within a number of hops of a node.
type NeighboursCmd struct {
	Node  string `arg:"" help:"Start node ID"`
	Depth int    `short:"d" default:"1" help:"Maximum number of hops"`
}

// Run executes the neighbours command.
func (c *NeighboursCmd) Run(g *Globals) error {
	ctx := context.Background()
	ws, _, err := g.open(ctx, workspace.ReadOnly())
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	nodes, err := ws.Store().Traverse(ctx, graph.NodeID(c.Node), c.Depth)
	if err != nil {
		return fmt.Errorf("traversing: %w", err)
	}
	if len(nodes) == 0 {
		fmt.Fprintln(g.stdout(), "No neighbours found")
		return nil
	}
	for _, n := range nodes {
		fmt.Fprintf(g.stdout(), "%-30s %s\n", n, n.Identity())
	}
	return nil
}

// SearchCmd searches node labels.
type SearchCmd struct {
	Query string `arg:"" help:"Search query"`
	Limit int    `short:"n" default:"20" help:"Maximum results"`
}

// Run executes the search command.
func (c *SearchCmd) Run(g *Globals) error {
	ctx := context.Background()
	ws, _, err := g.open(ctx, workspace.ReadOnly())
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	results, err := ws.Store().SearchLabels(ctx, c.Query, c.Limit)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}
	if len(results) == 0 {
		fmt.Fprintln(g.stdout(), "No results found")
		return nil
	}
	for i, r := range results {
		fmt.Fprintf(g.stdout(), "%d. %s (%s) %s\n", i+1, r.Label, r.Kind, r.NodeID)
	}
	return nil
}

// ReplayCmd applies an edit script to the diagram.
type ReplayCmd struct {
	Script string `arg:"" type:"existingfile" help:"Path to a YAML edit script"`
	DryRun bool   `help:"Report the outcome without saving the diagram"`
	JSON   bool   `help:"Output the report as JSON"`
}

// Run executes the replay command.
func (c *ReplayCmd) Run(g *Globals) error {
	script, err := editor.LoadScript(c.Script)
	if err != nil {
		return err
	}
	if script.Name == "" {
		script.Name = filepath.Base(c.Script)
	}

	ctx := context.Background()
	ws, logger, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	var report *editor.Report
	replay := func(ed *editor.Editor) error {
		report = ed.Replay(script)
		ed.TakeChanges()
		return nil
	}
	p := newProgress(logger)
	if c.DryRun {
		err = ws.View(replay)
	} else {
		err = ws.Update(ctx, replay)
	}
	if err != nil {
		return err
	}
	p.done(fmt.Sprintf("Replayed %d steps of %s", len(report.Steps), report.Name))

	if c.JSON {
		fmt.Fprintln(g.stdout(), toJSON(report))
	} else {
		printReport(g.stdout(), report)
	}
	if !report.OK() {
		return fmt.Errorf("%d of %d steps did not match their expectation", report.Failures, len(report.Steps))
	}
	return nil
}

func printReport(w io.Writer, report *editor.Report) {
	for _, s := range report.Steps {
		outcome := "accepted"
		if !s.Accepted {
			outcome = "rejected"
			if s.Rule != "" {
				outcome += " (" + s.Rule + ")"
			}
		}
		if s.Failed {
			_, _ = red.Fprintf(w, "✗ step %d %s: %s, expected %s\n", s.Index, s.Op, outcome, s.Expected)
			continue
		}
		_, _ = green.Fprintf(w, "✓ step %d %s: %s\n", s.Index, s.Op, outcome)
	}
}

// StatusCmd shows the state of the workspace.
type StatusCmd struct{}

// Run executes the status command.
func (c *StatusCmd) Run(g *Globals) error {
	ctx := context.Background()
	ws, _, err := g.open(ctx, workspace.ReadOnly())
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	meta, err := ws.Store().Meta(ctx)
	if err != nil {
		return fmt.Errorf("reading metadata: %w", err)
	}

	w := g.stdout()
	_, _ = green.Fprintf(w, "Workspace: %s\n", ws.Root)
	fmt.Fprintf(w, "  Diagram:  %s\n", meta.DiagramID)
	fmt.Fprintf(w, "  Saved:    %s\n", meta.SavedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  Nodes:    %d\n", ws.Store().NodeCount())
	fmt.Fprintf(w, "  Edges:    %d\n", ws.Store().EdgeCount())

	return ws.View(func(ed *editor.Editor) error {
		d := ed.Diagram()
		for _, k := range graph.NodeKinds {
			if n := d.CountNodesByKind(k); n > 0 {
				fmt.Fprintf(w, "    %-22s %d\n", k, n)
			}
		}
		return nil
	})
}

// CleanCmd deletes the workspace's configuration and store.
type CleanCmd struct {
	Force bool `short:"f" help:"Skip confirmation"`
}

// Run executes the clean command.
func (c *CleanCmd) Run(g *Globals) error {
	dir := filepath.Join(g.root(), config.Dir)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("no workspace found at %s. Nothing to clean", g.root())
	}

	if !c.Force {
		fmt.Fprintf(g.stdout(), "Delete workspace at %s? [y/N] ", dir)
		var response string
		_, _ = fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(g.stdout(), "Aborted")
			return nil
		}
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("deleting workspace: %w", err)
	}

	_, _ = green.Fprintf(g.stdout(), "Deleted %s\n", dir)
	return nil
}

// Helper functions

// bound maps the -1 flag default to an unset cardinality bound.
func bound(v int) *int {
	if v < 0 {
		return nil
	}
	return &v
}

func joinEdgeIDs(ids []graph.EdgeID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func toJSON(v any) string {
	bytes, _ := json.MarshalIndent(v, "", "  ")
	return string(bytes)
}

// CLI is the root Kong command structure.
type CLI struct {
	Globals

	Version kong.VersionFlag `help:"Show version information"`

	// Commands
	Init           InitCmd           `cmd:"" help:"Create a workspace in the current directory"`
	AddNode        AddNodeCmd        `cmd:"" help:"Add a node to the diagram"`
	Connect        ConnectCmd        `cmd:"" help:"Draw an edge between two nodes"`
	Disconnect     DisconnectCmd     `cmd:"" help:"Remove an edge"`
	RemoveNode     RemoveNodeCmd     `cmd:"" help:"Remove a node and its edges"`
	Swap           SwapCmd           `cmd:"" help:"Reverse an edge"`
	MoveInput      MoveInputCmd      `cmd:"" help:"Reorder the inputs of a role chain or property assertion"`
	Restrict       RestrictCmd       `cmd:"" help:"Change the restriction of a restriction node"`
	IndividualKind IndividualKindCmd `cmd:"" help:"Switch an individual between individual and literal"`
	Check          CheckCmd          `cmd:"" help:"Tell whether an edge could be drawn, and why not"`
	Identities     IdentitiesCmd     `cmd:"" help:"List node identities"`
	Traverse       TraverseCmd       `cmd:"" help:"Walk the diagram from a node"`
	Neighbours     NeighboursCmd     `cmd:"" help:"List stored nodes near a node"`
	Search         SearchCmd         `cmd:"" help:"Search node labels"`
	Replay         ReplayCmd         `cmd:"" help:"Apply an edit script"`
	Watch          WatchCmd          `cmd:"" help:"Replay edit scripts as they change"`
	Status         StatusCmd         `cmd:"" help:"Show workspace status"`
	MCP            MCPCmd            `cmd:"" help:"Start MCP server (stdio transport)"`
	Serve          ServeCmd          `cmd:"" help:"Start MCP server with optional watch mode and metrics"`
	Clean          CleanCmd          `cmd:"" help:"Delete the workspace"`
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{}
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	parser, err := kong.New(c,
		kong.Name("graphol"),
		kong.Description("Structural editing core for Graphol ontology diagrams"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)
	if err != nil {
		return err
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	return kongCtx.Run(&c.Globals)
}
