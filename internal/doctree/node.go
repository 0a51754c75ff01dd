// Package doctree holds the structured contract document and its
// transactional editing engine. The review pipeline only talks to it
// through block ids and absolute positions.
//
// Position scheme: depth-first over the tree, every structural node
// occupies exactly one position (its start), a text run occupies one
// position per rune. This is why a character index inside a block's
// extracted text is not a document position in general.
package doctree

import (
	"unicode/utf8"

	"github.com/google/uuid"

	"contract-review/internal/models"
)

// NodeKind is the closed set of document node kinds. Adding a kind is a
// compile-time decision; every switch over NodeKind lists all cases.
type NodeKind int

const (
	KindDocument NodeKind = iota
	KindSection
	KindParagraph
	KindRun
	KindTable
	KindField
)

func (k NodeKind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindSection:
		return "section"
	case KindParagraph:
		return "paragraph"
	case KindRun:
		return "run"
	case KindTable:
		return "table"
	case KindField:
		return "field"
	}
	return "unknown"
}

// IsLeaf reports whether the kind carries text instead of children.
func (k NodeKind) IsLeaf() bool {
	switch k {
	case KindRun:
		return true
	case KindDocument, KindSection, KindParagraph, KindTable, KindField:
		return false
	}
	return false
}

type Node struct {
	Kind     NodeKind
	ID       string // stable block id, paragraphs only
	Status   models.BlockStatus
	Risk     string
	Text     string // runs only
	Children []*Node
}

func NewRun(text string) *Node {
	return &Node{Kind: KindRun, Text: text}
}

// NewParagraph creates a reviewable block with a fresh stable id.
func NewParagraph(children ...*Node) *Node {
	return &Node{
		Kind:     KindParagraph,
		ID:       uuid.NewString(),
		Status:   models.StatusOriginal,
		Children: children,
	}
}

func NewSection(children ...*Node) *Node {
	return &Node{Kind: KindSection, Children: children}
}

func NewTable(children ...*Node) *Node {
	return &Node{Kind: KindTable, Children: children}
}

// NewField is a non-text inline node (page field, cross reference, ...).
// It occupies one document position and contributes no extracted text.
func NewField() *Node {
	return &Node{Kind: KindField}
}

func (n *Node) Append(children ...*Node) {
	n.Children = append(n.Children, children...)
}

// width is the number of positions the node and its subtree occupy.
func (n *Node) width() int {
	if n.Kind.IsLeaf() {
		return utf8.RuneCountInString(n.Text)
	}
	w := 1
	for _, c := range n.Children {
		w += c.width()
	}
	return w
}

func (n *Node) clone() *Node {
	cp := *n
	cp.Children = make([]*Node, len(n.Children))
	for i, c := range n.Children {
		cp.Children[i] = c.clone()
	}
	return &cp
}

// Document owns the tree. All mutation goes through transactions.
type Document struct {
	root *Node
}

func NewDocument() *Document {
	return &Document{root: &Node{Kind: KindDocument}}
}

func (d *Document) Root() *Node {
	return d.root
}

// Locate finds a block by id and returns its absolute position and
// subtree. Positions are only valid against the current document state.
func (d *Document) Locate(id string) (pos int, node *Node, ok bool) {
	cursor := 0
	var walk func(n *Node) (*Node, int)
	walk = func(n *Node) (*Node, int) {
		start := cursor
		if n.Kind.IsLeaf() {
			cursor += utf8.RuneCountInString(n.Text)
			return nil, 0
		}
		cursor++
		if n.Kind == KindParagraph && n.ID == id {
			return n, start
		}
		for _, c := range n.Children {
			if found, p := walk(c); found != nil {
				return found, p
			}
		}
		return nil, 0
	}
	found, p := walk(d.root)
	if found == nil {
		return 0, nil, false
	}
	return p, found, true
}

// ExtractText concatenates the text runs of a subtree in document order.
func ExtractText(n *Node) string {
	text := ""
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.Kind.IsLeaf() {
			text += n.Text
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(n)
	return text
}

// WalkRuns visits every text run under n in document order, passing the
// absolute position of the run's first character. start is the absolute
// position of n itself.
func WalkRuns(n *Node, start int, fn func(run *Node, runStart int)) {
	cursor := start
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.Kind.IsLeaf() {
			fn(n, cursor)
			cursor += utf8.RuneCountInString(n.Text)
			return
		}
		cursor++
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(n)
}

// Blocks returns a by-value snapshot of every reviewable block in
// document order.
func (d *Document) Blocks() []models.Block {
	var out []models.Block
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.Kind.IsLeaf() {
			return
		}
		if n.Kind == KindParagraph {
			out = append(out, models.Block{
				ID:     n.ID,
				Text:   ExtractText(n),
				Risk:   n.Risk,
				Status: n.Status,
			})
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(d.root)
	return out
}
