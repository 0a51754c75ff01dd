// Package extractor parses the delimited records a generation model was
// asked to emit. Model output is hostile input: streams get cut off
// mid-record, end markers go missing, fields are skipped. The parser
// salvages what it can per record and only drops a record when its
// identifier is unrecoverable.
package extractor

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"contract-review/internal/models"
)

var (
	startRe = regexp.MustCompile(models.RecordStartRegex)
	fieldRe = regexp.MustCompile(models.FieldLabelRegex)
)

// Extract scans raw generated text and returns the records found, in
// source order. Zero, one or many records are all fine.
func Extract(raw string) []models.IRRecord {
	starts := startRe.FindAllStringSubmatchIndex(raw, -1)
	if len(starts) == 0 {
		return nil
	}

	var records []models.IRRecord
	for i, m := range starts {
		kind := models.RecordKind(raw[m[2]:m[3]])
		id := ""
		if m[4] >= 0 {
			id = strings.TrimSpace(raw[m[4]:m[5]])
		}

		bodyStart := m[1]
		limit := len(raw)
		if i+1 < len(starts) {
			// a new start marker implicitly terminates a record whose end
			// marker went missing
			limit = starts[i+1][0]
		}

		endMarker := models.ClauseEndMarker
		if kind == models.KindUpdate {
			endMarker = models.UpdateEndMarker
		}
		bodyEnd := limit
		recovered := true
		if idx := strings.Index(raw[bodyStart:limit], endMarker); idx >= 0 {
			bodyEnd = bodyStart + idx
			recovered = false
		}

		if id == "" {
			// without an identifier the record cannot be merged downstream
			log.Warn().Str("kind", string(kind)).Msg("dropping record with missing identifier")
			continue
		}

		fields := parseFields(raw[bodyStart:bodyEnd])
		if kind == models.KindClause {
			applyClauseDefaults(fields)
		}
		// UPDATE records carry only the fields actually present; nothing
		// is fabricated for the ones the model did not emit.

		if recovered {
			log.Warn().Str("id", id).Str("kind", string(kind)).
				Msg("record end marker missing, recovered by implicit termination")
		}
		records = append(records, models.IRRecord{
			ID:        id,
			Kind:      kind,
			Fields:    fields,
			Recovered: recovered,
		})
	}
	return records
}

// parseFields splits a record body on [FIELD] labels. A value runs from
// its label to the next recognized label or the end of the body. A field
// value containing a line that itself looks like a label mis-terminates
// the value; the wire format defines no escaping for that.
func parseFields(body string) map[string]string {
	labels := fieldRe.FindAllStringSubmatchIndex(body, -1)
	fields := make(map[string]string, len(labels))
	for j, lm := range labels {
		name := body[lm[2]:lm[3]]
		valStart := lm[1]
		valEnd := len(body)
		if j+1 < len(labels) {
			valEnd = labels[j+1][0]
		}
		fields[name] = strings.TrimSpace(body[valStart:valEnd])
	}
	return fields
}

func applyClauseDefaults(fields map[string]string) {
	if fields[models.FieldReasoning] == "" {
		fields[models.FieldReasoning] = models.DefaultReasoning
	}
	if fields[models.FieldRisk] == "" {
		fields[models.FieldRisk] = models.DefaultRisk
	}
}
