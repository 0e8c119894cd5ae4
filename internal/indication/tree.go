package indication

import (
	"log/slog"
	"strings"
	"unicode"
)

// Separator divides segments in an indication dump.
const Separator = "-----------------------------------------"

// RootField names the synthetic root node.
const RootField = "root"

const childrenOpen = "children are {"

// Node is one indication element.
type Node struct {
	Field    string
	Value    string
	Parent   *Node
	Children []*Node
}

// Child returns the first child with the given field name.
func (n *Node) Child(field string) *Node {
	for _, c := range n.Children {
		if c.Field == field {
			return c
		}
	}
	return nil
}

// Tree is a parsed indication dump.
type Tree struct {
	Root *Node
}

// Node walks path from the root, matching child field names.
func (t *Tree) Node(path ...string) *Node {
	if t == nil || t.Root == nil || t.Root.Field != RootField {
		return nil
	}
	cur := t.Root
	for _, field := range path {
		cur = cur.Child(field)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Lookup returns the value at path.
func (t *Tree) Lookup(path ...string) (string, bool) {
	n := t.Node(path...)
	if n == nil {
		return "", false
	}
	return n.Value, true
}

// Walk visits every node depth-first, root first. Returning false from fn
// stops the walk.
func (t *Tree) Walk(fn func(n *Node, depth int) bool) {
	if t == nil || t.Root == nil {
		return
	}
	walk(t.Root, 0, fn)
}

func walk(n *Node, depth int, fn func(*Node, int) bool) bool {
	if !fn(n, depth) {
		return false
	}
	for _, c := range n.Children {
		if !walk(c, depth+1, fn) {
			return false
		}
	}
	return true
}

// Logger is the logging surface the parser needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Parser builds trees from dumps, reporting malformed input to its logger.
type Parser struct {
	logger Logger
}

// NewParser creates a Parser. A nil logger discards output.
func NewParser(logger Logger) *Parser {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Parser{logger: logger}
}

var defaultParser = NewParser(nil)

// Parse parses dump with a silent parser.
func Parse(dump string) *Tree {
	return defaultParser.Parse(dump)
}

// Parse builds the tree for dump. A blank dump yields nil.
func (p *Parser) Parse(dump string) *Tree {
	if strings.TrimSpace(dump) == "" {
		return nil
	}

	root := &Node{Field: RootField}
	cur := root
	segments := strings.Split(dump, Separator)
	p.logger.Debug("parsing indication", "segments", len(segments))

	// The dump opens with a separator, so the first element is empty.
	for _, segment := range segments[1:] {
		field, value, depth, ok := parseSegment(segment)
		if !ok {
			p.logger.Warn("malformed indication segment", "segment", segment)
			continue
		}

		node := &Node{Field: field, Value: value, Parent: cur}
		cur.Children = append(cur.Children, node)

		if depth > 0 {
			cur = node
			continue
		}
		for i := 0; i < -depth; i++ {
			if cur.Parent == nil {
				p.logger.Warn("indication closes more groups than it opened", "field", field)
				break
			}
			cur = cur.Parent
		}
	}
	return &Tree{Root: root}
}

func parseSegment(segment string) (field, value string, depth int, ok bool) {
	lines := strings.Split(strings.TrimLeftFunc(segment, unicode.IsSpace), "\n")
	if len(lines) < 2 {
		return "", "", 0, false
	}
	for _, line := range lines[2:] {
		if strings.HasPrefix(line, childrenOpen) {
			depth++
			continue
		}
		depth -= strings.Count(line, "}")
	}
	return lines[0], lines[1], depth, true
}
