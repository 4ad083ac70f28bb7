package latex

import (
	"fmt"
	"strings"
)

// Parse builds a node sequence from raw LaTeX source. The parser covers the
// subset of LaTeX this tool needs to traverse: text runs, command invocations
// with bracket/brace arguments, and nested environments. Everything it does
// not model stays inside verbatim text spans, so Flatten(Parse(src)) == src.
func Parse(src string) ([]Node, error) {
	p := &parser{src: src}
	nodes, err := p.parseSequence("")
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

type parser struct {
	src string
	pos int
}

const (
	beginMarker = `\begin{`
	endMarker   = `\end{`
)

// parseSequence consumes nodes until the end of input, or until
// \end{closing} when closing is non-empty. The closing marker itself is
// consumed but not emitted.
func (p *parser) parseSequence(closing string) ([]Node, error) {
	var nodes []Node
	textStart := p.pos

	flushText := func(end int) {
		if end > textStart {
			nodes = append(nodes, Node{Kind: NodeText, Raw: p.src[textStart:end]})
		}
	}

	for p.pos < len(p.src) {
		if p.src[p.pos] != '\\' {
			p.pos++
			continue
		}

		if name, ok := p.peekMarkerName(endMarker); ok {
			if closing == "" || name != closing {
				return nil, fmt.Errorf("unexpected \\end{%s} at offset %d", name, p.pos)
			}
			flushText(p.pos)
			p.pos += len(endMarker) + len(name) + 1
			return nodes, nil
		}

		if name, ok := p.peekMarkerName(beginMarker); ok {
			flushText(p.pos)
			start := p.pos
			p.pos += len(beginMarker) + len(name) + 1
			children, err := p.parseSequence(name)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, Node{
				Kind:     NodeEnv,
				Name:     name,
				Raw:      p.src[start:p.pos],
				Children: children,
			})
			textStart = p.pos
			continue
		}

		flushText(p.pos)
		node, err := p.parseCommand()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
		textStart = p.pos
	}

	if closing != "" {
		return nil, fmt.Errorf("missing \\end{%s}", closing)
	}
	flushText(p.pos)
	return nodes, nil
}

// peekMarkerName reports whether the input at the current position starts
// with marker followed by a brace-delimited name, returning that name.
func (p *parser) peekMarkerName(marker string) (string, bool) {
	if !strings.HasPrefix(p.src[p.pos:], marker) {
		return "", false
	}
	rest := p.src[p.pos+len(marker):]
	close := strings.IndexByte(rest, '}')
	if close < 0 {
		return "", false
	}
	return rest[:close], true
}

// parseCommand consumes a command invocation starting at a backslash:
// the name (letters plus optional star, or a single escaped character),
// an optional [...] option group, and any number of balanced {...} groups.
func (p *parser) parseCommand() (Node, error) {
	start := p.pos
	p.pos++ // backslash
	if p.pos >= len(p.src) {
		return Node{Kind: NodeText, Raw: p.src[start:]}, nil
	}

	nameStart := p.pos
	for p.pos < len(p.src) && isCommandLetter(p.src[p.pos]) {
		p.pos++
	}
	name := p.src[nameStart:p.pos]
	if name == "" {
		// Escaped character or line break: \%, \{, \\ ...
		name = string(p.src[p.pos])
		p.pos++
		return Node{Kind: NodeCommand, Name: name, Raw: p.src[start:p.pos]}, nil
	}
	if p.pos < len(p.src) && p.src[p.pos] == '*' {
		name += "*"
		p.pos++
	}

	var args []string
	if p.pos < len(p.src) && p.src[p.pos] == '[' {
		if _, err := p.consumeGroup('[', ']'); err != nil {
			return Node{}, err
		}
	}
	for p.pos < len(p.src) && p.src[p.pos] == '{' {
		arg, err := p.consumeGroup('{', '}')
		if err != nil {
			return Node{}, err
		}
		args = append(args, arg)
	}

	return Node{Kind: NodeCommand, Name: name, Raw: p.src[start:p.pos], Args: args}, nil
}

// consumeGroup consumes a balanced open...close group and returns its inner
// content. Escaped delimiters inside the group are skipped over.
func (p *parser) consumeGroup(open, close byte) (string, error) {
	groupStart := p.pos
	depth := 0
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case '\\':
			p.pos++ // skip escaped character
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				inner := p.src[groupStart+1 : p.pos]
				p.pos++
				return inner, nil
			}
		}
		p.pos++
	}
	return "", fmt.Errorf("unbalanced %q group at offset %d", string(open), groupStart)
}

func isCommandLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
