package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contract-review/internal/config"
	"contract-review/internal/models"
)

// fakeGenerator answers by block id: any serialized block whose id has a
// scripted record gets that record emitted.
type fakeGenerator struct {
	mu        sync.Mutex
	calls     int
	responses map[string]string // block id -> IR record text
	failFirst int               // number of leading calls failing transiently
	failErr   error
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt, system string, temperature float64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.failFirst > 0 {
		g.failFirst--
		if g.failErr != nil {
			return "", g.failErr
		}
		return "", errors.New("API returned unexpected status code: 429")
	}
	var sb strings.Builder
	for id, rec := range g.responses {
		if strings.Contains(prompt, fmt.Sprintf(`<<BLOCK id="%s">>`, id)) {
			sb.WriteString(rec)
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func clauseIR(id, original, proposed string) string {
	return fmt.Sprintf(`<<CLAUSE id="%s">>
[ORIGINAL_TEXT]
%s
[PROPOSED_TEXT]
%s
[RISK]
high
[REASONING]
test
<<END_CLAUSE>>`, id, original, proposed)
}

func job(ids ...string) models.BatchJob {
	var blocks []models.Block
	var sb strings.Builder
	for _, id := range ids {
		text := "Liability clause for " + id
		blocks = append(blocks, models.Block{ID: id, Text: text})
		fmt.Fprintf(&sb, "<<BLOCK id=\"%s\">>\n%s\n<<END_BLOCK>>\n", id, text)
	}
	return models.BatchJob{Blocks: blocks, SerializedText: sb.String()}
}

func baseOpts() Options {
	return Options{
		Concurrency: 2,
		MaxRetries:  3,
		BackoffBase: time.Millisecond,
		CallTimeout: time.Second,
	}
}

func TestRunSingleBatchSingleCall(t *testing.T) {
	gen := &fakeGenerator{responses: map[string]string{
		"blk-1": clauseIR("blk-1", "old text", "new text"),
	}}
	sum, err := Run(context.Background(), gen, []models.BatchJob{job("blk-1", "blk-2")}, baseOpts())
	require.NoError(t, err)

	assert.Equal(t, 1, gen.callCount(), "one batch means exactly one remote call")
	require.Len(t, sum.Findings, 1)
	assert.Equal(t, "blk-1", sum.Findings[0].TargetID)
	assert.Equal(t, "new text", sum.Findings[0].ProposedText)
	assert.Zero(t, sum.Failed)
}

func TestRunDuplicateIdentifierFirstWins(t *testing.T) {
	// both batches report the same identifier
	gen := &fakeGenerator{responses: map[string]string{
		"blk-1": clauseIR("blk-1", "first original", "first proposed"),
	}}
	jobs := []models.BatchJob{job("blk-1"), job("blk-1")}

	opts := baseOpts()
	opts.Concurrency = 1
	sum, err := Run(context.Background(), gen, jobs, opts)
	require.NoError(t, err)

	require.Len(t, sum.Findings, 1)
	assert.Equal(t, 1, sum.Rejected)
	assert.Equal(t, "first proposed", sum.Findings[0].ProposedText)
}

func TestRunFingerprintDedupAcrossIdentifiers(t *testing.T) {
	// two different identifiers, same original text: the service named
	// one clause twice
	gen := &fakeGenerator{responses: map[string]string{
		"blk-1": clauseIR("blk-1", "The SAME   clause text.", "fix one"),
		"blk-2": clauseIR("blk-2", "the same clause text.", "fix two"),
	}}
	jobs := []models.BatchJob{job("blk-1"), job("blk-2")}

	opts := baseOpts()
	opts.Concurrency = 1
	sum, err := Run(context.Background(), gen, jobs, opts)
	require.NoError(t, err)

	require.Len(t, sum.Findings, 1)
	assert.Equal(t, 1, sum.Rejected)
}

func TestRunRetriesTransientFailure(t *testing.T) {
	gen := &fakeGenerator{
		failFirst: 2,
		responses: map[string]string{"blk-1": clauseIR("blk-1", "o", "p")},
	}
	sum, err := Run(context.Background(), gen, []models.BatchJob{job("blk-1")}, baseOpts())
	require.NoError(t, err)

	assert.Equal(t, 3, gen.callCount())
	assert.Zero(t, sum.Failed)
	require.Len(t, sum.Findings, 1)
}

func TestRunFailedBatchDoesNotFailRun(t *testing.T) {
	gen := &fakeGenerator{
		failFirst: 100, // transient forever, exhausts the retry ceiling
		responses: map[string]string{},
	}
	opts := baseOpts()
	opts.MaxRetries = 1
	sum, err := Run(context.Background(), gen, []models.BatchJob{job("blk-1")}, opts)
	require.NoError(t, err, "a failed batch is counted, not fatal")
	assert.Equal(t, 1, sum.Failed)
	assert.Empty(t, sum.Findings)
}

func TestRunPermanentErrorNotRetried(t *testing.T) {
	gen := &fakeGenerator{
		failFirst: 100,
		failErr:   errors.New("API returned unexpected status code: 400"),
	}
	sum, err := Run(context.Background(), gen, []models.BatchJob{job("blk-1")}, baseOpts())
	require.NoError(t, err)
	assert.Equal(t, 1, gen.callCount(), "4xx other than 429 is permanent")
	assert.Equal(t, 1, sum.Failed)
}

func TestRunAbandonedRunDiscardsResults(t *testing.T) {
	gen := &fakeGenerator{responses: map[string]string{
		"blk-1": clauseIR("blk-1", "o", "p"),
	}}
	opts := baseOpts()
	opts.Alive = func() bool { return false }
	sum, err := Run(context.Background(), gen, []models.BatchJob{job("blk-1")}, opts)
	require.NoError(t, err)

	assert.Empty(t, sum.Findings)
	assert.Equal(t, 1, sum.Discarded)
}

func TestRunRelevancePrefilterSkipsBatch(t *testing.T) {
	gen := &fakeGenerator{}
	opts := baseOpts()
	opts.RelevanceThreshold = 0.5
	opts.RelevanceRules = []config.RelevanceRule{{Keyword: "indemnification", Weight: 1}}

	// the serialized text never mentions indemnification
	sum, err := Run(context.Background(), gen, []models.BatchJob{job("blk-1")}, opts)
	require.NoError(t, err)

	assert.Zero(t, gen.callCount(), "skipped batch must not reach the service")
	assert.Equal(t, 1, sum.Skipped)
	assert.Zero(t, sum.Batches)
}

func TestRunUpdateRecordRefinesExistingFinding(t *testing.T) {
	raw := clauseIR("blk-1", "orig", "prop") + "\n" + `<<UPDATE id="blk-1">>
[RISK]
low
<<END_UPDATE>>`
	gen := &fakeGenerator{responses: map[string]string{"blk-1": raw}}
	sum, err := Run(context.Background(), gen, []models.BatchJob{job("blk-1")}, baseOpts())
	require.NoError(t, err)

	require.Len(t, sum.Findings, 1)
	f := sum.Findings[0]
	assert.Equal(t, "low", f.Risk, "update overrides the field it carries")
	assert.Equal(t, "prop", f.ProposedText, "fields absent from the update stay untouched")
	assert.Equal(t, "orig", f.OriginalText)
}

func TestRunRecoveredRecordSurfaced(t *testing.T) {
	truncated := `<<CLAUSE id="blk-1">>
[ORIGINAL_TEXT]
orig
[PROPOSED_TEXT]
prop`
	gen := &fakeGenerator{responses: map[string]string{"blk-1": truncated}}
	sum, err := Run(context.Background(), gen, []models.BatchJob{job("blk-1")}, baseOpts())
	require.NoError(t, err)

	require.Len(t, sum.Findings, 1)
	assert.True(t, sum.Findings[0].Recovered)
	assert.Equal(t, 1, sum.Recovered)
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := &fakeGenerator{responses: map[string]string{}}
	_, err := Run(ctx, gen, []models.BatchJob{job("blk-1")}, baseOpts())
	assert.Error(t, err)
}

func TestRelevanceScore(t *testing.T) {
	rules := []config.RelevanceRule{
		{Keyword: "liability", Weight: 1},
		{Keyword: "indemn", Weight: 1},
	}
	j := job("blk-1") // text mentions "Liability clause for blk-1"
	assert.InDelta(t, 1.0, RelevanceScore(j, rules), 0.001)
	assert.Zero(t, RelevanceScore(models.BatchJob{}, rules))
}
