package pipeline

import (
	"context"

	"github.com/corvid-labs/magpie/pkg/common"
)

// BatchItemError describes one failed unit within a batch.
type BatchItemError struct {
	Index      int    `json:"index"`
	SourceType string `json:"source_type"`
	Error      string `json:"error"`
}

// BatchSummary counts batch outcomes.
type BatchSummary struct {
	Total           int `json:"total"`
	SuccessfulCount int `json:"successful_count"`
	FailedCount     int `json:"failed_count"`
}

// BatchResult aggregates a batch run. Callers inspect Failed for partial
// failures; batch processing never raises an individual item's error.
type BatchResult struct {
	Successful []*Result        `json:"successful"`
	Failed     []BatchItemError `json:"failed"`
	Summary    BatchSummary     `json:"summary"`
}

// ProcessBatch runs units sequentially. A failing unit is recorded in the
// result and the batch continues; per-unit ledger semantics are identical
// to Process.
func (p *Pipeline) ProcessBatch(ctx context.Context, units []common.ContentUnit) BatchResult {
	result := BatchResult{
		Successful: make([]*Result, 0, len(units)),
		Failed:     []BatchItemError{},
	}

	for i, unit := range units {
		res, err := p.Process(ctx, unit)
		if err != nil {
			result.Failed = append(result.Failed, BatchItemError{
				Index:      i,
				SourceType: unit.SourceType(),
				Error:      err.Error(),
			})
			continue
		}
		result.Successful = append(result.Successful, res)
	}

	result.Summary = BatchSummary{
		Total:           len(units),
		SuccessfulCount: len(result.Successful),
		FailedCount:     len(result.Failed),
	}

	p.log.Info("[Pipeline] Batch finished",
		"total", result.Summary.Total,
		"successful", result.Summary.SuccessfulCount,
		"failed", result.Summary.FailedCount)
	return result
}
