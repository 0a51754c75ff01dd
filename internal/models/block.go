package models

// BlockStatus tracks where a reviewable clause is in its review lifecycle.
type BlockStatus string

const (
	StatusOriginal BlockStatus = "original"
	StatusPending  BlockStatus = "pending"
	StatusResolved BlockStatus = "resolved"
)

// Block is a snapshot of one reviewable unit of document content. The
// document tree owns the real node; the pipeline only ever holds these
// by-value copies keyed by the stable id.
type Block struct {
	ID     string      `json:"id"`
	Text   string      `json:"text"`
	Risk   string      `json:"risk,omitempty"`
	Status BlockStatus `json:"status"`
}

// BatchJob is one bounded group of blocks serialized for a single remote
// call. Immutable after the chunker creates it.
type BatchJob struct {
	Blocks         []Block
	SerializedText string
}
