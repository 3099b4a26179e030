package editor

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Benny93/graphol-go/internal/graph"
)

// Expectations a script step may declare.
const (
	ExpectAccept = "accept"
	ExpectReject = "reject"
)

// Script is a named sequence of structural edits.
//
//	name: qualified existential
//	steps:
//	  - {op: add-node, id: r, kind: role, label: hasChild}
//	  - {op: add-node, id: c, kind: concept, label: Person}
//	  - {op: add-node, id: dr, kind: domain-restriction}
//	  - {op: connect, kind: input, source: r, target: dr}
//	  - {op: connect, kind: input, source: c, target: dr}
//	  - {op: connect, kind: input, source: dr, target: dr, expect: reject}
type Script struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step is one edit of a script. Which fields apply depends on Op.
type Step struct {
	Op          string `yaml:"op"`
	ID          string `yaml:"id,omitempty"`
	Kind        string `yaml:"kind,omitempty"`
	Label       string `yaml:"label,omitempty"`
	Source      string `yaml:"source,omitempty"`
	Target      string `yaml:"target,omitempty"`
	Edge        string `yaml:"edge,omitempty"`
	Literal     bool   `yaml:"literal,omitempty"`
	Restriction string `yaml:"restriction,omitempty"`
	Min         *int   `yaml:"min,omitempty"`
	Max         *int   `yaml:"max,omitempty"`
	Index       int    `yaml:"index,omitempty"`
	Expect      string `yaml:"expect,omitempty"`
}

var knownOps = map[string]bool{
	OpAddNode:        true,
	OpConnect:        true,
	OpDisconnect:     true,
	OpRemoveNode:     true,
	OpSwap:           true,
	OpRestrict:       true,
	OpIndividualKind: true,
	OpMoveInput:      true,
}

// ParseScript decodes and checks a YAML edit script.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing script: %w", err)
	}
	for i, step := range s.Steps {
		if !knownOps[step.Op] {
			return nil, fmt.Errorf("step %d: unknown op %q", i+1, step.Op)
		}
		switch step.Expect {
		case "", ExpectAccept, ExpectReject:
		default:
			return nil, fmt.Errorf("step %d: expect must be %q or %q, got %q", i+1, ExpectAccept, ExpectReject, step.Expect)
		}
	}
	return &s, nil
}

// LoadScript reads and parses the script at path.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	s, err := ParseScript(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// StepResult is the outcome of one replayed step.
type StepResult struct {
	Index    int    `json:"index"`
	Op       string `json:"op"`
	Accepted bool   `json:"accepted"`
	Rule     string `json:"rule,omitempty"`
	Error    string `json:"error,omitempty"`
	Expected string `json:"expected"`
	Failed   bool   `json:"failed"`
}

// Report summarises a replay.
type Report struct {
	Name       string                          `json:"name"`
	Steps      []StepResult                    `json:"steps"`
	Failures   int                             `json:"failures"`
	Identities map[graph.NodeID]graph.Identity `json:"identities"`
}

// OK reports whether every step matched its expectation.
func (r *Report) OK() bool {
	return r.Failures == 0
}

// Replay applies every step of s in order. A step that errors counts as
// rejected; steps without an explicit expectation are expected to be
// accepted. Replay never stops early.
func (e *Editor) Replay(s *Script) *Report {
	report := &Report{Name: s.Name}
	for i, step := range s.Steps {
		res := StepResult{Index: i + 1, Op: step.Op, Expected: step.Expect}
		if res.Expected == "" {
			res.Expected = ExpectAccept
		}

		err := e.apply(step)
		res.Accepted = err == nil
		if err != nil {
			res.Error = err.Error()
			var rejected *RejectedError
			if errors.As(err, &rejected) {
				res.Rule = rejected.Verdict.Rule
			}
		}
		res.Failed = res.Accepted != (res.Expected == ExpectAccept)
		if res.Failed {
			report.Failures++
			e.logger.Warn("step did not match expectation", "script", s.Name, "step", res.Index, "op", step.Op, "expected", res.Expected, "error", res.Error)
		}
		report.Steps = append(report.Steps, res)
	}

	report.Identities = make(map[graph.NodeID]graph.Identity, e.diagram.NodeCount())
	for _, n := range e.diagram.Nodes() {
		report.Identities[n.ID] = n.Identity()
	}
	return report
}

func (e *Editor) apply(step Step) error {
	switch step.Op {
	case OpAddNode:
		opts := []NodeOption{WithLabel(step.Label)}
		if step.ID != "" {
			opts = append(opts, WithNodeID(graph.NodeID(step.ID)))
		}
		if step.Literal {
			opts = append(opts, AsLiteral())
		}
		if step.Restriction != "" {
			r, err := graph.ParseRestriction(step.Restriction)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrUnknownKind, err)
			}
			opts = append(opts, WithRestriction(r))
		}
		_, err := e.AddNode(graph.NodeKind(step.Kind), opts...)
		return err

	case OpConnect:
		var opts []EdgeOption
		if step.ID != "" {
			opts = append(opts, WithEdgeID(graph.EdgeID(step.ID)))
		}
		_, err := e.Connect(graph.EdgeKind(step.Kind), graph.NodeID(step.Source), graph.NodeID(step.Target), opts...)
		return err

	case OpDisconnect:
		return e.Disconnect(graph.EdgeID(step.Edge))

	case OpRemoveNode:
		return e.RemoveNode(graph.NodeID(step.ID))

	case OpSwap:
		_, err := e.SwapEdge(graph.EdgeID(step.Edge))
		return err

	case OpRestrict:
		return e.SetRestriction(graph.NodeID(step.ID), graph.Restriction(step.Restriction), step.Min, step.Max)

	case OpIndividualKind:
		return e.SetIndividualKind(graph.NodeID(step.ID), step.Literal)

	case OpMoveInput:
		return e.MoveInput(graph.NodeID(step.ID), graph.EdgeID(step.Edge), step.Index)
	}
	return fmt.Errorf("unknown op %q", step.Op)
}
