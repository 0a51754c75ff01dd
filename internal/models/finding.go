package models

import (
	"strconv"
	"strings"
	"unicode"
)

// RecordKind distinguishes the two IR record flavours.
type RecordKind string

const (
	KindClause RecordKind = "CLAUSE"
	KindUpdate RecordKind = "UPDATE"
)

// IRRecord is one delimited record extracted from generated text.
// Recovered marks records salvaged from a truncated or malformed end
// marker; consumers must surface that instead of trusting them silently.
type IRRecord struct {
	ID        string
	Kind      RecordKind
	Fields    map[string]string
	Recovered bool
}

// Finding is a deduplicated review result keyed by the target block id.
type Finding struct {
	TargetID     string `json:"target_id"`
	OriginalText string `json:"original_text"`
	ProposedText string `json:"proposed_text"`
	Risk         string `json:"risk"`
	Reasoning    string `json:"reasoning"`
	Recovered    bool   `json:"recovered,omitempty"`
}

const fingerprintPrefixLen = 64

// Fingerprint returns the cross-batch dedup key for a finding: the
// whitespace-collapsed lowercase prefix of the original text plus its
// length. Two genuinely distinct clauses can collide on this; that is an
// accepted false-positive risk, callers log it and move on.
func (f Finding) Fingerprint() string {
	return ContentFingerprint(f.OriginalText)
}

func ContentFingerprint(text string) string {
	norm := strings.ToLower(strings.Join(strings.FieldsFunc(text, unicode.IsSpace), " "))
	runes := []rune(norm)
	prefix := norm
	if len(runes) > fingerprintPrefixLen {
		prefix = string(runes[:fingerprintPrefixLen])
	}
	return prefix + "|" + strconv.Itoa(len(runes))
}
