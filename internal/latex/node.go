// Package latex loads LaTeX project sources into a read-only tree of typed
// nodes: verbatim text runs, command invocations, and named environments with
// nested children. The tree is built once at load time; translation stages
// only traverse it and reconstruct source text from it.
package latex

import "strings"

// NodeKind discriminates the node variants.
type NodeKind int

const (
	// NodeText is a verbatim run of source text (including comments and
	// whitespace) between markup constructs.
	NodeText NodeKind = iota
	// NodeCommand is a single command invocation such as \input{file} or
	// an escaped character such as \%.
	NodeCommand
	// NodeEnv is a \begin{name}...\end{name} environment with parsed
	// children.
	NodeEnv
)

func (k NodeKind) String() string {
	switch k {
	case NodeText:
		return "text"
	case NodeCommand:
		return "command"
	case NodeEnv:
		return "environment"
	default:
		return "unknown"
	}
}

// Node is one element of a parsed source tree.
type Node struct {
	Kind NodeKind
	// Name is the command or environment name; empty for text nodes.
	Name string
	// Raw is the exact source span of the node, markers included.
	Raw string
	// Args holds the brace-group arguments of a command, inner braces
	// stripped. Empty for text and environment nodes.
	Args []string
	// Children is the parsed inner sequence of an environment.
	Children []Node
}

// Verbatim returns the exact source text of the node.
func (n *Node) Verbatim() string {
	return n.Raw
}

// Flatten reconstructs literal source text from a node sequence.
func Flatten(nodes []Node) string {
	var b strings.Builder
	for i := range nodes {
		b.WriteString(nodes[i].Raw)
	}
	return b.String()
}

// FindEnv searches a node sequence (depth-first, in order) for the first
// environment with the given name. Returns nil when absent.
func FindEnv(nodes []Node, name string) *Node {
	for i := range nodes {
		if nodes[i].Kind == NodeEnv {
			if nodes[i].Name == name {
				return &nodes[i]
			}
			if found := FindEnv(nodes[i].Children, name); found != nil {
				return found
			}
		}
	}
	return nil
}
