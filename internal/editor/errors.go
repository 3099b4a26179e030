package editor

import (
	"errors"
	"fmt"

	"github.com/Benny93/graphol-go/internal/graph"
	"github.com/Benny93/graphol-go/internal/validity"
)

var (
	// ErrNodeNotFound is returned when an edit names a node that does not exist.
	ErrNodeNotFound = errors.New("node not found")

	// ErrEdgeNotFound is returned when an edit names an edge that does not exist.
	ErrEdgeNotFound = errors.New("edge not found")

	// ErrUnknownKind is returned for node or edge kinds outside the closed set.
	ErrUnknownKind = errors.New("unknown kind")

	// ErrUnsupported is returned when an edit does not apply to the node's kind.
	ErrUnsupported = errors.New("operation not supported")

	// ErrOutsideProfile is returned when a new node is not allowed by the
	// editor's profile.
	ErrOutsideProfile = errors.New("outside profile")

	// ErrRejected is wrapped by every RejectedError.
	ErrRejected = errors.New("edge rejected")
)

// RejectedError reports an edge refused by the validity rules.
type RejectedError struct {
	Kind    graph.EdgeKind
	Source  graph.NodeID
	Target  graph.NodeID
	Verdict validity.Verdict
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s edge %s->%s rejected by %s: %s", e.Kind, e.Source, e.Target, e.Verdict.Rule, e.Verdict.Reason)
}

func (e *RejectedError) Unwrap() error {
	return ErrRejected
}
