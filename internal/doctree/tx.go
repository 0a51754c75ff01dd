package doctree

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"contract-review/internal/models"
)

var (
	ErrBlockNotFound = errors.New("doctree: block not found")
	ErrBadPosition   = errors.New("doctree: position not addressable")
	ErrTxDone        = errors.New("doctree: transaction already committed")
)

type opKind int

const (
	opDelete opKind = iota
	opInsert
	opStatus
)

type editOp struct {
	kind   opKind
	from   int
	to     int
	pos    int
	text   string
	id     string
	status models.BlockStatus
}

// Tx is an ordered batch of edit operations applied atomically: Commit
// applies every op against a working copy of the tree and only then swaps
// it in, so a failing op leaves the document untouched.
type Tx struct {
	d    *Document
	ops  []editOp
	done bool
}

func (d *Document) Begin() *Tx {
	return &Tx{d: d}
}

// Delete removes the text-run characters whose positions fall in
// [from, to). Structural nodes inside the range keep their positions.
func (tx *Tx) Delete(from, to int) {
	tx.ops = append(tx.ops, editOp{kind: opDelete, from: from, to: to})
}

// InsertText inserts text at an absolute position inside or at the
// boundary of a text run.
func (tx *Tx) InsertText(pos int, text string) {
	tx.ops = append(tx.ops, editOp{kind: opInsert, pos: pos, text: text})
}

// SetBlockStatus locates the block by identity, not position, so it stays
// correct after edits earlier in the same transaction shifted positions.
func (tx *Tx) SetBlockStatus(id string, status models.BlockStatus) {
	tx.ops = append(tx.ops, editOp{kind: opStatus, id: id, status: status})
}

func (tx *Tx) Commit() error {
	if tx.done {
		return ErrTxDone
	}
	tx.done = true
	if len(tx.ops) == 0 {
		return nil
	}
	work := tx.d.root.clone()
	for i, op := range tx.ops {
		var err error
		switch op.kind {
		case opDelete:
			err = deleteRange(work, op.from, op.to)
		case opInsert:
			err = insertAt(work, op.pos, op.text)
		case opStatus:
			err = setStatus(work, op.id, op.status)
		}
		if err != nil {
			return fmt.Errorf("doctree: op %d: %w", i, err)
		}
	}
	tx.d.root = work
	return nil
}

func deleteRange(root *Node, from, to int) error {
	if from >= to {
		return nil
	}
	if to > root.width() {
		return fmt.Errorf("%w: delete [%d,%d) past end %d", ErrBadPosition, from, to, root.width())
	}
	deleted := false
	WalkRuns(root, 0, func(run *Node, start int) {
		n := utf8.RuneCountInString(run.Text)
		lo, hi := from-start, to-start
		if lo < 0 {
			lo = 0
		}
		if hi > n {
			hi = n
		}
		if lo >= n || hi <= 0 || lo >= hi {
			return
		}
		r := []rune(run.Text)
		run.Text = string(r[:lo]) + string(r[hi:])
		deleted = true
	})
	if !deleted {
		return fmt.Errorf("%w: delete [%d,%d) covers no text", ErrBadPosition, from, to)
	}
	return nil
}

func insertAt(root *Node, pos int, text string) error {
	if text == "" {
		return nil
	}
	done := false
	WalkRuns(root, 0, func(run *Node, start int) {
		if done {
			return
		}
		n := utf8.RuneCountInString(run.Text)
		if pos < start || pos > start+n {
			return
		}
		r := []rune(run.Text)
		at := pos - start
		run.Text = string(r[:at]) + text + string(r[at:])
		done = true
	})
	if !done {
		return fmt.Errorf("%w: insert at %d", ErrBadPosition, pos)
	}
	return nil
}

func setStatus(root *Node, id string, status models.BlockStatus) error {
	var find func(n *Node) *Node
	find = func(n *Node) *Node {
		if n.Kind == KindParagraph && n.ID == id {
			return n
		}
		for _, c := range n.Children {
			if f := find(c); f != nil {
				return f
			}
		}
		return nil
	}
	blk := find(root)
	if blk == nil {
		return fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	blk.Status = status
	return nil
}
