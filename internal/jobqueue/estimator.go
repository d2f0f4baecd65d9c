package jobqueue

import (
	"context"

	"github.com/kgraph/kgraph/internal/chunker"
	"github.com/kgraph/kgraph/internal/config"
	"github.com/kgraph/kgraph/internal/model"
	"github.com/kgraph/kgraph/internal/util"
)

// estimatedOutputTokensPerChunk and the per-token cost multipliers are rough
// but stable enough to gate the auto-approve threshold; actual cost is
// tracked from real provider usage once a job runs (spec §4.7's
// CostEstimate vs ActualCost distinction). Input tokens are counted per
// chunk rather than assumed flat, since chunk size varies with
// TargetWords/OverlapWords and with how a document actually splits.
const (
	estimatedOutputTokensPerChunk = 400
	costPerInputToken             = 0.000003
	costPerOutputToken            = 0.000015
)

// ChunkEstimator prices a job by chunking its text up front and costing the
// expected extraction token usage per chunk.
type ChunkEstimator struct {
	cfg config.ChunkerConfig
}

func NewChunkEstimator(cfg config.ChunkerConfig) *ChunkEstimator {
	return &ChunkEstimator{cfg: cfg}
}

func (e *ChunkEstimator) Estimate(_ context.Context, params model.JobParams) (float64, error) {
	opt := chunker.Options{TargetWords: e.cfg.TargetWords, OverlapWords: e.cfg.OverlapWords}
	if params.TargetWords > 0 {
		opt.TargetWords = params.TargetWords
	}
	if params.OverlapWords > 0 {
		opt.OverlapWords = params.OverlapWords
	}

	if params.Text == "" {
		return estimatedOutputTokensPerChunk*costPerOutputToken + float64(util.CountTokens(""))*costPerInputToken, nil
	}

	var cost float64
	for _, c := range chunker.Split(params.Text, opt) {
		inputTokens := util.CountTokens(c.Text)
		cost += float64(inputTokens)*costPerInputToken + estimatedOutputTokensPerChunk*costPerOutputToken
	}
	return cost, nil
}
