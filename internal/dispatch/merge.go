package dispatch

import (
	"github.com/rs/zerolog/log"

	"contract-review/internal/models"
)

// resultSet is the cross-batch deduplicated finding store. Two checks, in
// order: (1) identifier already accepted from an earlier batch; (2) a
// content fingerprint of the original text already accepted under a
// different identifier (the service naming the same clause twice).
// Rejections are logged, never fatal.
type resultSet struct {
	byID  map[string]*models.Finding
	byFP  map[string]string // fingerprint -> accepted target id
	order []string
}

func newResultSet() *resultSet {
	return &resultSet{
		byID: make(map[string]*models.Finding),
		byFP: make(map[string]string),
	}
}

// merge folds one batch's records in, in source order, and returns how
// many were rejected as duplicates.
func (s *resultSet) merge(records []models.IRRecord) int {
	rejected := 0
	for _, rec := range records {
		switch rec.Kind {
		case models.KindUpdate:
			s.applyUpdate(rec)
		case models.KindClause:
			if !s.accept(rec) {
				rejected++
			}
		default:
			log.Warn().Str("kind", string(rec.Kind)).Str("id", rec.ID).Msg("unknown record kind, dropped")
		}
	}
	return rejected
}

func (s *resultSet) accept(rec models.IRRecord) bool {
	if _, dup := s.byID[rec.ID]; dup {
		log.Warn().Str("id", rec.ID).Msg("duplicate identifier across batches, first wins")
		return false
	}
	fp := models.ContentFingerprint(rec.Fields[models.FieldOriginalText])
	if prev, dup := s.byFP[fp]; dup {
		// can false-positive on genuinely distinct but similar clauses;
		// accepted risk, do not change the fingerprint without sign-off
		log.Warn().Str("id", rec.ID).Str("accepted_id", prev).
			Msg("content fingerprint collision, first wins")
		return false
	}

	f := &models.Finding{
		TargetID:     rec.ID,
		OriginalText: rec.Fields[models.FieldOriginalText],
		ProposedText: rec.Fields[models.FieldProposedText],
		Risk:         rec.Fields[models.FieldRisk],
		Reasoning:    rec.Fields[models.FieldReasoning],
		Recovered:    rec.Recovered,
	}
	s.byID[rec.ID] = f
	s.byFP[fp] = rec.ID
	s.order = append(s.order, rec.ID)
	return true
}

// applyUpdate refines an already-accepted finding with only the fields
// the update record actually carried; everything else keeps its value.
func (s *resultSet) applyUpdate(rec models.IRRecord) {
	f, ok := s.byID[rec.ID]
	if !ok {
		log.Warn().Str("id", rec.ID).Msg("update record for unknown finding, dropped")
		return
	}
	if v, ok := rec.Fields[models.FieldOriginalText]; ok {
		f.OriginalText = v
	}
	if v, ok := rec.Fields[models.FieldProposedText]; ok {
		f.ProposedText = v
	}
	if v, ok := rec.Fields[models.FieldRisk]; ok {
		f.Risk = v
	}
	if v, ok := rec.Fields[models.FieldReasoning]; ok {
		f.Reasoning = v
	}
	if rec.Recovered {
		f.Recovered = true
	}
}

func (s *resultSet) findings() []models.Finding {
	out := make([]models.Finding, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.byID[id])
	}
	return out
}
