// Package mcp provides the MCP (Model Context Protocol) server for graphol.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Benny93/graphol-go/internal/editor"
	"github.com/Benny93/graphol-go/internal/graph"
	"github.com/Benny93/graphol-go/internal/identity"
	"github.com/Benny93/graphol-go/internal/storage"
)

// Version is reported in the initialize handshake.
var Version = "0.1.0"

// Server represents the MCP server.
type Server struct {
	session Session
	server  *mcp.Server
}

// Session gives the server guarded access to the diagram being edited and
// to its store. *workspace.Workspace implements it.
type Session interface {
	View(fn func(ed *editor.Editor) error) error
	Store() storage.StorageBackend
}

// Tool represents an MCP tool.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Resource represents an MCP resource.
type Resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
}

// NewServer creates an MCP server exposing the graphol tools and resources
// over session.
func NewServer(session Session) *Server {
	s := &Server{session: session}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "graphol",
		Version: Version,
	}, nil)

	for _, tool := range s.ListTools() {
		s.server.AddTool(&mcp.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}, s.toolHandler(tool.Name))
	}
	for _, res := range s.ListResources() {
		s.server.AddResource(&mcp.Resource{
			URI:         res.URI,
			Name:        res.Name,
			Description: res.Description,
			MIMEType:    res.MimeType,
		}, s.readResource)
	}
	return s
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []Tool {
	edgeKinds := make([]any, len(graph.EdgeKinds))
	for i, k := range graph.EdgeKinds {
		edgeKinds[i] = string(k)
	}

	return []Tool{
		{
			Name:        "graphol_check_edge",
			Description: "Check whether an edge may be drawn between two nodes. Returns the verdict with the violated rule and reason.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"kind":   {Type: "string", Description: "Edge kind", Enum: edgeKinds},
					"source": {Type: "string", Description: "Source node ID"},
					"target": {Type: "string", Description: "Target node ID"},
				},
				Required: []string{"kind", "source", "target"},
			},
		},
		{
			Name:        "graphol_identity",
			Description: "Show the identity of a node with its identity region, or of every node when no node is given.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"node": {Type: "string", Description: "Node ID"},
				},
			},
		},
		{
			Name:        "graphol_traverse",
			Description: "List the nodes reachable from a node in breadth-first or depth-first order.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"node":  {Type: "string", Description: "Start node ID"},
					"order": {Type: "string", Description: "bfs or dfs", Enum: []any{"bfs", "dfs"}},
					"edge_kinds": {
						Type:        "array",
						Description: "Only cross edges of these kinds",
						Items:       &jsonschema.Schema{Type: "string"},
					},
				},
				Required: []string{"node"},
			},
		},
		{
			Name:        "graphol_search",
			Description: "Search the saved diagram by node label.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"query": {Type: "string", Description: "Label text"},
					"limit": {Type: "integer", Description: "Maximum number of results"},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        "graphol_neighbours",
			Description: "List the saved nodes within a number of hops of a node, ignoring edge direction.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"node":  {Type: "string", Description: "Start node ID"},
					"depth": {Type: "integer", Description: "Maximum number of hops"},
				},
				Required: []string{"node"},
			},
		},
	}
}

// ListResources returns all registered resources.
func (s *Server) ListResources() []Resource {
	return []Resource{
		{
			URI:         "graphol://overview",
			Name:        "Diagram Overview",
			Description: "Node and edge counts of the diagram",
			MimeType:    "text/plain",
		},
		{
			URI:         "graphol://schema",
			Name:        "Graphol Schema",
			Description: "Node kinds with the identities they admit, and edge kinds",
			MimeType:    "text/plain",
		},
	}
}

// CallTool executes a tool with the given arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case "graphol_check_edge":
		kind, _ := args["kind"].(string)
		source, _ := args["source"].(string)
		target, _ := args["target"].(string)
		return s.handleCheckEdge(kind, graph.NodeID(source), graph.NodeID(target))
	case "graphol_identity":
		node, _ := args["node"].(string)
		return s.handleIdentity(graph.NodeID(node))
	case "graphol_traverse":
		node, _ := args["node"].(string)
		order, _ := args["order"].(string)
		kindsArg, _ := args["edge_kinds"].([]any)
		kinds := make([]string, 0, len(kindsArg))
		for _, k := range kindsArg {
			if kind, ok := k.(string); ok {
				kinds = append(kinds, kind)
			}
		}
		return s.handleTraverse(graph.NodeID(node), order, kinds)
	case "graphol_search":
		query, _ := args["query"].(string)
		limit, _ := args["limit"].(float64)
		if limit == 0 {
			limit = 20
		}
		return s.handleSearch(ctx, query, int(limit))
	case "graphol_neighbours":
		node, _ := args["node"].(string)
		depth, _ := args["depth"].(float64)
		if depth == 0 {
			depth = 1
		}
		return s.handleNeighbours(ctx, graph.NodeID(node), int(depth))
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// ReadResource reads a resource by URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (string, error) {
	switch uri {
	case "graphol://overview":
		return s.getOverview()
	case "graphol://schema":
		return getSchema(), nil
	default:
		return "", fmt.Errorf("unknown resource: %s", uri)
	}
}

// Run serves MCP over stdin and stdout until the client disconnects or ctx
// is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, &mcp.StdioTransport{})
}

// Serve serves MCP over t.
func (s *Server) Serve(ctx context.Context, t mcp.Transport) error {
	return s.server.Run(ctx, t)
}

// toolHandler adapts CallTool to the SDK. Tool failures are reported to the
// client as error results rather than protocol errors.
func (s *Server) toolHandler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args map[string]any
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return nil, fmt.Errorf("decoding %s arguments: %w", name, err)
			}
		}

		text, err := s.CallTool(ctx, name, args)
		if err != nil {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
			}, nil
		}
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}, nil
	}
}

func (s *Server) readResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	text, err := s.ReadResource(ctx, req.Params.URI)
	if err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: req.Params.URI, MIMEType: "text/plain", Text: text}},
	}, nil
}

// Tool Handlers

func (s *Server) handleCheckEdge(kind string, source, target graph.NodeID) (string, error) {
	if kind == "" || source == "" || target == "" {
		return "", fmt.Errorf("kind, source and target are required")
	}
	edgeKind, err := graph.ParseEdgeKind(kind)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	err = s.session.View(func(ed *editor.Editor) error {
		v := ed.Check(edgeKind, source, target)
		fmt.Fprintf(&sb, "## Edge check\n\n")
		fmt.Fprintf(&sb, "%s %s -> %s: **%s**\n", edgeKind, source, target, v)
		return nil
	})
	return sb.String(), err
}

func (s *Server) handleIdentity(id graph.NodeID) (string, error) {
	var sb strings.Builder
	err := s.session.View(func(ed *editor.Editor) error {
		d := ed.Diagram()
		if id == "" {
			sb.WriteString("## Identities\n\n")
			if d.NodeCount() == 0 {
				sb.WriteString("The diagram is empty.\n")
				return nil
			}
			sb.WriteString("| Node | Kind | Label | Identity |\n")
			sb.WriteString("|------|------|-------|----------|\n")
			for _, n := range d.Nodes() {
				fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", n.ID, n.Kind, n.Label, n.Identity())
			}
			return nil
		}

		n := d.GetNode(id)
		if n == nil {
			return fmt.Errorf("node %s not found", id)
		}
		fmt.Fprintf(&sb, "## Identity of %s\n\n", n)
		fmt.Fprintf(&sb, "**Identity:** %s\n", n.Identity())
		fmt.Fprintf(&sb, "**Admits:** %s\n", joinIdentities(n.Identities()))
		if n.Weak() {
			sb.WriteString("**Computed:** yes (weak node)\n")
		}
		region := identity.Region(d, id)
		fmt.Fprintf(&sb, "\n### Identity region (%d nodes)\n\n", len(region))
		for _, m := range region {
			fmt.Fprintf(&sb, "- %s: %s\n", m, m.Identity())
		}
		return nil
	})
	return sb.String(), err
}

func (s *Server) handleTraverse(id graph.NodeID, order string, kinds []string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("node is required")
	}

	var opts []graph.TraverseOption
	if len(kinds) > 0 {
		allowed := make(map[graph.EdgeKind]bool, len(kinds))
		for _, k := range kinds {
			kind, err := graph.ParseEdgeKind(k)
			if err != nil {
				return "", err
			}
			allowed[kind] = true
		}
		opts = append(opts, graph.WithEdgeFilter(func(e *graph.Edge) bool { return allowed[e.Kind] }))
	}

	walk := graph.BFS
	switch order {
	case "", "bfs":
		order = "bfs"
	case "dfs":
		walk = graph.DFS
	default:
		return "", fmt.Errorf("order must be bfs or dfs, got %q", order)
	}

	var sb strings.Builder
	err := s.session.View(func(ed *editor.Editor) error {
		nodes := walk(ed.Diagram(), id, opts...)
		if len(nodes) == 0 {
			return fmt.Errorf("node %s not found", id)
		}
		fmt.Fprintf(&sb, "## Traversal from %s (%s)\n\n", id, order)
		for i, n := range nodes {
			fmt.Fprintf(&sb, "%d. %s: %s\n", i+1, n, n.Identity())
		}
		return nil
	})
	return sb.String(), err
}

func (s *Server) handleSearch(ctx context.Context, query string, limit int) (string, error) {
	if query == "" {
		return "Please provide a search query.", nil
	}

	results, err := s.session.Store().SearchLabels(ctx, query, limit)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return fmt.Sprintf("No nodes found matching '%s'.", query), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search Results for: %s\n\n", query)
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. **%s** (%s) id=%s score=%.0f\n", i+1, r.Label, r.Kind, r.NodeID, r.Score)
	}
	return sb.String(), nil
}

func (s *Server) handleNeighbours(ctx context.Context, id graph.NodeID, depth int) (string, error) {
	if id == "" {
		return "", fmt.Errorf("node is required")
	}

	nodes, err := s.session.Store().Traverse(ctx, id, depth)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Neighbours of %s (depth %d)\n\n", id, depth)
	if len(nodes) == 0 {
		sb.WriteString("None.\n")
		return sb.String(), nil
	}
	for _, n := range nodes {
		fmt.Fprintf(&sb, "- %s: %s\n", n, n.Identity())
	}
	return sb.String(), nil
}

// Resource Handlers

func (s *Server) getOverview() (string, error) {
	var sb strings.Builder
	err := s.session.View(func(ed *editor.Editor) error {
		d := ed.Diagram()
		sb.WriteString("# Graphol Diagram Overview\n\n")
		fmt.Fprintf(&sb, "**Diagram:** %s\n", d.ID)
		fmt.Fprintf(&sb, "**Nodes:** %d\n", d.NodeCount())
		fmt.Fprintf(&sb, "**Edges:** %d\n", d.EdgeCount())
		sb.WriteString("\n## Nodes by kind\n\n")
		for _, k := range graph.NodeKinds {
			if c := d.CountNodesByKind(k); c > 0 {
				fmt.Fprintf(&sb, "- %s: %d\n", k, c)
			}
		}
		return nil
	})
	return sb.String(), err
}

func getSchema() string {
	var sb strings.Builder
	sb.WriteString("# Graphol Schema\n\n")
	sb.WriteString("## Node kinds\n\n")
	sb.WriteString("| Kind | Identities | Computed |\n")
	sb.WriteString("|------|------------|----------|\n")
	for _, k := range graph.NodeKinds {
		computed := "no"
		if graph.IsWeak(k) {
			computed = "yes"
		}
		fmt.Fprintf(&sb, "| `%s` | %s | %s |\n", k, joinIdentities(graph.Identities(k)), computed)
	}
	sb.WriteString("\n## Edge kinds\n\n")
	for _, k := range graph.EdgeKinds {
		propagates := ""
		if graph.Propagates(k) {
			propagates = " (propagates identity)"
		}
		fmt.Fprintf(&sb, "- `%s`%s\n", k, propagates)
	}
	return sb.String()
}

// Helper functions

func joinIdentities(ids []graph.Identity) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ", ")
}
