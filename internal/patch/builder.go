package patch

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

var (
	// ErrNoText means the block has no text leaves; callers treat this as
	// "nothing to patch", not a failure.
	ErrNoText = errors.New("patch: no text to patch")
	// ErrDesync means the diff and the position map disagree about the
	// original text. The transaction must not be committed.
	ErrDesync = errors.New("patch: diff/position-map desynchronization")
)

// Editor is the slice of the editing engine the builder needs. Ops are
// recorded in order and applied atomically on commit.
type Editor interface {
	Delete(from, to int)
	InsertText(pos int, text string)
}

// Build translates the diff between original and proposed into ordered
// edit ops against tx. All positions come from the original table and are
// corrected by the running net-length offset of the ops issued so far, so
// the tree is never re-walked mid-transaction and everything lands in one
// atomic commit. Returns the number of ops issued; zero when the texts
// are equal.
func Build(tx Editor, original, proposed string, pm PositionMap) (int, error) {
	if pm.Empty() {
		return 0, ErrNoText
	}
	if original == proposed {
		return 0, nil
	}
	if original != pm.Text {
		// a length mismatch also trips the cursor checks below, but an
		// equal-length mismatch would patch silently without this
		log.Warn().
			Int("caller_runes", utf8.RuneCountInString(original)).
			Int("mapped_runes", len(pm.Positions)).
			Msg("patch integrity: caller text differs from mapped block text")
	}

	segs := DiffSegments(original, proposed)
	textIndex := 0 // rune cursor within original / the table
	offset := 0    // net length delta of ops issued so far
	ops := 0
	for _, s := range segs {
		n := utf8.RuneCountInString(s.Text)
		switch s.Op {
		case OpEqual:
			textIndex += n
		case OpDelete:
			if textIndex+n > len(pm.Positions) {
				return ops, fmt.Errorf("%w: delete of %d runes at index %d exceeds table length %d",
					ErrDesync, n, textIndex, len(pm.Positions))
			}
			from := pm.Positions[textIndex]
			to := pm.Positions[textIndex+n-1] + 1
			tx.Delete(from+offset, to+offset)
			ops++
			offset -= n
			textIndex += n
		case OpInsert:
			at := 0
			if textIndex < len(pm.Positions) {
				at = pm.Positions[textIndex]
			} else {
				at = pm.Positions[len(pm.Positions)-1] + 1
			}
			tx.InsertText(at+offset, s.Text)
			ops++
			offset += n
			// inserted text has no counterpart in the original
		}
	}
	if textIndex != len(pm.Positions) {
		// the caller's original text and the block's mapped text disagree
		log.Warn().
			Int("text_index", textIndex).
			Int("table_len", len(pm.Positions)).
			Msg("patch integrity: diff cursor did not land on position table length")
	}
	return ops, nil
}
