// Package review ties the pipeline together behind one explicit session
// handle: document in, findings out, accepted findings patched back into
// the tree. Nothing here reaches into ambient globals; every entry point
// goes through the Session the caller was given.
package review

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"contract-review/internal/chunker"
	"contract-review/internal/config"
	"contract-review/internal/dispatch"
	"contract-review/internal/doctree"
	"contract-review/internal/models"
	"contract-review/internal/patch"
)

var (
	ErrUnknownFinding = errors.New("review: unknown finding")
	ErrAbandoned      = errors.New("review: run abandoned")
)

// Session owns one document's review lifecycle. Patch building and
// document mutation serialize through the session mutex: a transaction is
// built from a freshly taken position map and committed before any other
// mutation can start.
type Session struct {
	mu       sync.Mutex
	doc      *doctree.Document
	cfg      *config.Config
	gen      dispatch.Generator
	findings map[string]models.Finding
	order    []string

	// bumped by Reset; results of a run started under an older generation
	// are discarded instead of merged
	generation atomic.Int64
}

func NewSession(doc *doctree.Document, cfg *config.Config, gen dispatch.Generator) *Session {
	return &Session{
		doc:      doc,
		cfg:      cfg,
		gen:      gen,
		findings: make(map[string]models.Finding),
	}
}

func (s *Session) Document() *doctree.Document {
	return s.doc
}

// Run chunks the document, dispatches the batches and stores the merged
// findings. A Reset during the run discards its results.
func (s *Session) Run(ctx context.Context) (dispatch.Summary, error) {
	startGen := s.generation.Load()

	s.mu.Lock()
	blocks := s.doc.Blocks()
	s.mu.Unlock()

	jobs := chunker.Chunk(blocks, s.cfg.Review.BatchCharBudget)
	log.Info().Int("blocks", len(blocks)).Int("batches", len(jobs)).Msg("starting review run")

	sum, err := dispatch.Run(ctx, s.gen, jobs, dispatch.Options{
		Concurrency:        s.cfg.Review.Concurrency,
		MaxRetries:         s.cfg.Review.MaxRetries,
		BackoffBase:        s.cfg.Review.BackoffBase(),
		BackoffJitter:      s.cfg.Review.BackoffJitter,
		CallTimeout:        s.cfg.LLM.Timeout(),
		Temperature:        s.cfg.LLM.Temperature,
		RelevanceThreshold: s.cfg.Review.RelevanceThreshold,
		RelevanceRules:     s.cfg.Review.RelevanceRules,
		Alive:              func() bool { return s.generation.Load() == startGen },
	})
	if err != nil {
		return sum, err
	}
	if err := s.store(startGen, sum.Findings); err != nil {
		return sum, err
	}
	return sum, nil
}

// store merges a run's findings. The generation re-check happens under
// the same lock Reset clears under, so a Reset cannot slip between the
// check and the merge and leave an abandoned run's findings behind.
func (s *Session) store(startGen int64, findings []models.Finding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation.Load() != startGen {
		log.Warn().Msg("session reset during run, results discarded")
		return ErrAbandoned
	}
	for _, f := range findings {
		if _, seen := s.findings[f.TargetID]; !seen {
			s.order = append(s.order, f.TargetID)
		}
		s.findings[f.TargetID] = f
	}
	return nil
}

// Findings returns the merged findings in acceptance order.
func (s *Session) Findings() []models.Finding {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Finding, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.findings[id])
	}
	return out
}

// Accept applies a finding's proposed text to its block: one atomic edit
// transaction built from a fresh position map, then a separate status
// transaction locating the block by identity since positions just
// shifted.
func (s *Session) Accept(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.findings[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFinding, id)
	}
	pos, node, ok := s.doc.Locate(f.TargetID)
	if !ok {
		// block no longer exists: nothing to do, not fatal
		return fmt.Errorf("%w: %s", doctree.ErrBlockNotFound, f.TargetID)
	}
	pm := patch.BuildPositionMap(pos, node)
	if pm.Empty() {
		return patch.ErrNoText
	}

	tx := s.doc.Begin()
	ops, err := patch.Build(tx, f.OriginalText, f.ProposedText, pm)
	if err != nil {
		return fmt.Errorf("building patch for %s: %w", f.TargetID, err)
	}
	if ops == 0 {
		log.Debug().Str("id", f.TargetID).Msg("proposed text equals original, nothing to patch")
		return nil
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("applying patch for %s: %w", f.TargetID, err)
	}

	stx := s.doc.Begin()
	stx.SetBlockStatus(f.TargetID, models.StatusPending)
	if err := stx.Commit(); err != nil {
		return fmt.Errorf("marking %s pending: %w", f.TargetID, err)
	}
	log.Info().Str("id", f.TargetID).Int("ops", ops).Msg("finding accepted")
	return nil
}

// Resolve marks a previously patched block as resolved.
func (s *Session) Resolve(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := s.doc.Begin()
	tx.SetBlockStatus(id, models.StatusResolved)
	return tx.Commit()
}

// Reset abandons the current run: in-flight remote calls may complete but
// their results are discarded before merging.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation.Add(1)
	s.findings = make(map[string]models.Finding)
	s.order = nil
}
