package patch

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Op is a diff segment kind.
type Op int

const (
	OpEqual Op = iota
	OpDelete
	OpInsert
)

// Segment is one step of the transformation from original to proposed
// text. Concatenating every non-DELETE token reproduces the proposed
// text; concatenating every non-INSERT token reproduces the original.
type Segment struct {
	Op   Op
	Text string
}

// DiffSegments runs the diff primitive over the two texts. Semantic
// cleanup keeps clause-level edits as one delete plus one insert instead
// of a scatter of single-character segments.
func DiffSegments(original, proposed string) []Segment {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(original, proposed, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	segs := make([]Segment, 0, len(diffs))
	for _, d := range diffs {
		if d.Text == "" {
			continue
		}
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			segs = append(segs, Segment{Op: OpEqual, Text: d.Text})
		case diffmatchpatch.DiffDelete:
			segs = append(segs, Segment{Op: OpDelete, Text: d.Text})
		case diffmatchpatch.DiffInsert:
			segs = append(segs, Segment{Op: OpInsert, Text: d.Text})
		}
	}
	return segs
}
