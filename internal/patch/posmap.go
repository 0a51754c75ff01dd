package patch

import (
	"contract-review/internal/doctree"
)

// PositionMap gives the absolute document position of every character of
// a block's extracted text. It is built fresh before each patch and is
// invalid the moment the document mutates.
type PositionMap struct {
	Text      string
	Positions []int // one entry per rune of Text
}

func (pm PositionMap) Empty() bool {
	return len(pm.Positions) == 0
}

// BuildPositionMap walks the block subtree depth-first. Text runs
// contribute one table entry per character; structural nodes are skipped
// transparently, which is why consecutive entries are not necessarily
// consecutive positions. blockPos is the block's absolute position as
// returned by Document.Locate.
func BuildPositionMap(blockPos int, block *doctree.Node) PositionMap {
	var pm PositionMap
	doctree.WalkRuns(block, blockPos, func(run *doctree.Node, start int) {
		pm.Text += run.Text
		i := 0
		for range run.Text {
			pm.Positions = append(pm.Positions, start+i)
			i++
		}
	})
	return pm
}
