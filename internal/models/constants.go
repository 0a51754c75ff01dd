package models

const (
	// IR wire format: one record per reviewed clause. TAG literals are fixed,
	// the id attribute is mandatory. No escaping is defined for "<<" or "["
	// inside field values; a value containing a [WORD]-shaped line can
	// mis-terminate a field. Known gap, do not invent escaping here.
	RecordStartRegex = `<<(CLAUSE|UPDATE)(?:\s+id="([^"]*)")?\s*>>`
	FieldLabelRegex  = `(?m)^\[(ORIGINAL_TEXT|PROPOSED_TEXT|RISK|REASONING)\]`

	ClauseEndMarker = "<<END_CLAUSE>>"
	UpdateEndMarker = "<<END_UPDATE>>"

	FieldOriginalText = "ORIGINAL_TEXT"
	FieldProposedText = "PROPOSED_TEXT"
	FieldRisk         = "RISK"
	FieldReasoning    = "REASONING"

	DefaultReasoning = "No reasoning provided."
	DefaultRisk      = "unspecified"

	// Batch serialization markers, mirrored in the prompt so the model can
	// reference blocks by id.
	BlockStartFormat = `<<BLOCK id="%s">>`
	BlockEndMarker   = "<<END_BLOCK>>"
)

var ReviewSystemPrompt = `You are a contract review assistant. You are given contract clauses, each wrapped in <<BLOCK id="...">> ... <<END_BLOCK>> markers.
For every clause that carries legal risk, emit exactly one record:
<<CLAUSE id="BLOCK_ID">>
[ORIGINAL_TEXT]
the clause text exactly as given
[PROPOSED_TEXT]
your proposed replacement text
[RISK]
one short risk label
[REASONING]
one or two sentences
<<END_CLAUSE>>
Use the block id from the markers. Emit nothing for clauses without risk. Do not emit anything outside records.`

var ReviewPromptTemplate = `Review the following contract clauses:

%s
`
