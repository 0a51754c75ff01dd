package dispatch

import (
	"strings"

	"contract-review/internal/config"
	"contract-review/internal/models"
)

// RelevanceScore is the local pre-filter: sum of the weights of the rule
// keywords present in the serialized batch, normalized by block count.
// Batches scoring under the threshold are skipped without a remote call.
// This is an optimization only; a threshold of zero disables it.
func RelevanceScore(job models.BatchJob, rules []config.RelevanceRule) float64 {
	if len(job.Blocks) == 0 {
		return 0
	}
	text := strings.ToLower(job.SerializedText)
	score := 0.0
	for _, r := range rules {
		if r.Keyword == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(r.Keyword)) {
			score += r.Weight
		}
	}
	return score / float64(len(job.Blocks))
}
