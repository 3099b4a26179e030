// Graphol - structural editing core for Graphol ontology diagrams.
//
// graphol keeps a diagram in a local workspace, validates every edge
// against the Graphol construction rules and recomputes the identity of
// context-dependent nodes as the diagram is edited.
package main

import (
	"fmt"
	"os"

	"github.com/Benny93/graphol-go/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
