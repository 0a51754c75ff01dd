// Package dispatch fans batches out to the generation service under a
// fixed concurrency limit, retries transient failures with exponential
// backoff, and merges extracted records into a deduplicated result set.
// A failed batch never fails the run; other batches continue.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"contract-review/internal/config"
	"contract-review/internal/extractor"
	"contract-review/internal/llmservice"
	"contract-review/internal/models"
)

// Generator is the generation service boundary: one synchronous call,
// may fail with retryable rate-limit or server errors.
type Generator interface {
	Generate(ctx context.Context, prompt, system string, temperature float64) (string, error)
}

type Options struct {
	Concurrency        int
	MaxRetries         int
	BackoffBase        time.Duration
	BackoffJitter      float64
	CallTimeout        time.Duration
	Temperature        float64
	RelevanceThreshold float64
	RelevanceRules     []config.RelevanceRule

	// Retryable classifies call errors; defaults to llmservice.IsRetryable.
	Retryable func(error) bool
	// Alive is the run-scoped guard: checked before every merge so results
	// of an abandoned run are discarded, not merged. Nil means always live.
	Alive func() bool
}

// Summary is the outcome of one dispatch run.
type Summary struct {
	Findings  []models.Finding
	Batches   int
	Skipped   int
	Failed    int
	Rejected  int // records dropped by id or fingerprint dedup
	Recovered int // findings salvaged from malformed records
	Discarded int // batches completed after the run was abandoned
}

// Run dispatches every batch and returns the merged findings. Returns an
// error only when ctx is done; per-batch failures are counted in the
// summary instead.
func Run(ctx context.Context, gen Generator, jobs []models.BatchJob, opts Options) (Summary, error) {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Retryable == nil {
		opts.Retryable = llmservice.IsRetryable
	}

	sum := Summary{}
	var survivors []models.BatchJob
	for _, j := range jobs {
		if opts.RelevanceThreshold > 0 {
			if score := RelevanceScore(j, opts.RelevanceRules); score < opts.RelevanceThreshold {
				log.Debug().Float64("score", score).Int("blocks", len(j.Blocks)).
					Msg("batch below relevance threshold, skipped")
				sum.Skipped++
				continue
			}
		}
		survivors = append(survivors, j)
	}
	sum.Batches = len(survivors)
	if len(survivors) == 0 {
		return sum, nil
	}

	type result struct {
		records []models.IRRecord
		err     error
	}

	inCh := make(chan models.BatchJob)
	outCh := make(chan result, opts.Concurrency)

	var wg sync.WaitGroup
	wg.Add(opts.Concurrency)
	for i := 0; i < opts.Concurrency; i++ {
		go func() {
			defer wg.Done()
			for job := range inCh {
				raw, err := callWithRetry(ctx, gen, job, opts)
				if err != nil {
					outCh <- result{err: err}
					continue
				}
				outCh <- result{records: extractor.Extract(raw)}
			}
		}()
	}

	go func() {
		defer close(inCh)
		for _, j := range survivors {
			select {
			case <-ctx.Done():
				return
			case inCh <- j:
			}
		}
	}()
	go func() {
		wg.Wait()
		close(outCh)
	}()

	// single-writer merge: workers complete in any order, only this loop
	// touches the result set
	set := newResultSet()
	for r := range outCh {
		if r.err != nil {
			log.Error().Err(r.err).Msg("batch failed after retries")
			sum.Failed++
			continue
		}
		if opts.Alive != nil && !opts.Alive() {
			log.Warn().Int("records", len(r.records)).Msg("run abandoned, discarding batch result")
			sum.Discarded++
			continue
		}
		sum.Rejected += set.merge(r.records)
	}

	sum.Findings = set.findings()
	for _, f := range sum.Findings {
		if f.Recovered {
			sum.Recovered++
		}
	}
	if err := ctx.Err(); err != nil {
		return sum, err
	}
	return sum, nil
}

func callWithRetry(ctx context.Context, gen Generator, job models.BatchJob, opts Options) (string, error) {
	policy := backoff.NewExponentialBackOff()
	if opts.BackoffBase > 0 {
		policy.InitialInterval = opts.BackoffBase
	}
	if opts.BackoffJitter > 0 {
		policy.RandomizationFactor = opts.BackoffJitter
	}
	policy.MaxInterval = 30 * time.Second

	prompt := fmt.Sprintf(models.ReviewPromptTemplate, job.SerializedText)
	attempt := 0
	operation := func() (string, error) {
		attempt++
		callCtx := ctx
		if opts.CallTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, opts.CallTimeout)
			defer cancel()
		}

		raw, err := gen.Generate(callCtx, prompt, models.ReviewSystemPrompt, opts.Temperature)
		if err == nil {
			return raw, nil
		}
		if ctx.Err() != nil {
			return "", backoff.Permanent(ctx.Err())
		}
		if !opts.Retryable(err) {
			return "", backoff.Permanent(err)
		}
		log.Warn().Err(err).Int("attempt", attempt).Int("blocks", len(job.Blocks)).
			Msg("transient generation failure, backing off")
		return "", err
	}
	return backoff.RetryWithData(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(opts.MaxRetries)), ctx))
}
