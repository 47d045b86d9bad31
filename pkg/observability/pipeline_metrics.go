package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricFilesWalkedTotal = "probe_pipeline_files_walked_total"
	metricBlocksTotal      = "probe_pipeline_blocks_total"
	metricStageDuration    = "probe_pipeline_stage_duration_seconds"

	attrStage = "stage"
)

// PipelineMetrics holds OTel instruments for the search/query/extract
// pipeline stages (walk, expand, rank, select).
type PipelineMetrics struct {
	filesWalkedTotal metric.Int64Counter
	blocksTotal      metric.Int64Counter
	stageDuration    metric.Float64Histogram
}

// PipelineStats holds the statistics for a single request's pass through
// the walk/expand/rank/select pipeline.
type PipelineStats struct {
	FilesWalked    int64
	Blocks         int
	StageDurations map[string]time.Duration
}

// NewPipelineMetrics creates pipeline metric instruments from the given meter.
func NewPipelineMetrics(mt metric.Meter) (*PipelineMetrics, error) {
	filesWalked, err := mt.Int64Counter(metricFilesWalkedTotal,
		metric.WithDescription("Total files visited by the walker"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFilesWalkedTotal, err)
	}

	blocks, err := mt.Int64Counter(metricBlocksTotal,
		metric.WithDescription("Total candidate blocks produced"),
		metric.WithUnit("{block}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricBlocksTotal, err)
	}

	stageDur, err := mt.Float64Histogram(metricStageDuration,
		metric.WithDescription("Per-stage processing duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricStageDuration, err)
	}

	return &PipelineMetrics{
		filesWalkedTotal: filesWalked,
		blocksTotal:      blocks,
		stageDuration:    stageDur,
	}, nil
}

// RecordRun records pipeline statistics for a completed request.
// Safe to call on a nil receiver (no-op).
func (pm *PipelineMetrics) RecordRun(ctx context.Context, stats PipelineStats) {
	if pm == nil {
		return
	}

	pm.filesWalkedTotal.Add(ctx, stats.FilesWalked)
	pm.blocksTotal.Add(ctx, int64(stats.Blocks))

	for stage, d := range stats.StageDurations {
		pm.stageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String(attrStage, stage)))
	}
}
