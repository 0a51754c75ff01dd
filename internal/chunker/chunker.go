// Package chunker partitions a document's blocks into bounded batches
// for dispatch. Bounds are joint: a serialized character budget and a
// block-count ceiling sized to the document's content density.
package chunker

import (
	"fmt"
	"strings"

	"contract-review/internal/models"
)

const (
	// ceiling = clamp(countScale / averageBlockLength, min, max): short
	// blocks serialize cheaply so more of them fit per call, long blocks
	// push the ceiling down to bound total tokens.
	countScale        = 4096
	minBlocksPerBatch = 4
	maxBlocksPerBatch = 64
)

// Serialize wraps one block in the markers the prompt and the IR format
// share, so the model can address it by id.
func Serialize(b models.Block) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, models.BlockStartFormat, b.ID)
	sb.WriteString("\n")
	sb.WriteString(b.Text)
	sb.WriteString("\n")
	sb.WriteString(models.BlockEndMarker)
	sb.WriteString("\n")
	return sb.String()
}

// Chunk splits blocks into batches of at most charBudget serialized
// characters and at most the derived block count. A block that would
// overflow the current batch flushes it first; a block is never split, so
// a single oversized block still gets a batch of its own. Input order is
// preserved across the concatenation of all batches.
func Chunk(blocks []models.Block, charBudget int) []models.BatchJob {
	var reviewable []models.Block
	total := 0
	for _, b := range blocks {
		if strings.TrimSpace(b.Text) == "" {
			continue
		}
		reviewable = append(reviewable, b)
		total += len(b.Text)
	}
	if len(reviewable) == 0 {
		return nil
	}

	maxBlocks := maxBlocksPerBatch
	if avg := total / len(reviewable); avg > 0 {
		maxBlocks = countScale / avg
		if maxBlocks < minBlocksPerBatch {
			maxBlocks = minBlocksPerBatch
		}
		if maxBlocks > maxBlocksPerBatch {
			maxBlocks = maxBlocksPerBatch
		}
	}

	var jobs []models.BatchJob
	var cur []models.Block
	var buf strings.Builder
	flush := func() {
		if len(cur) == 0 {
			return
		}
		jobs = append(jobs, models.BatchJob{
			Blocks:         append([]models.Block(nil), cur...),
			SerializedText: buf.String(),
		})
		cur = cur[:0]
		buf.Reset()
	}

	for _, b := range reviewable {
		s := Serialize(b)
		if len(cur) > 0 && (buf.Len()+len(s) > charBudget || len(cur)+1 > maxBlocks) {
			flush()
		}
		cur = append(cur, b)
		buf.WriteString(s)
	}
	flush()
	return jobs
}
