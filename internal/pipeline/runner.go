// Package pipeline sequences the batch stages: ingest, attachment
// extraction, analysis, calendar dispatch, reply dispatch. Each stage
// is optional; a nil component is skipped so deployments can run a
// subset.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
)

type Stage string

const (
	StageIngest      Stage = "ingest"
	StageAttachments Stage = "attachments"
	StageAnalyze     Stage = "analyze"
	StageCalendar    Stage = "calendar"
	StageReplies     Stage = "replies"
)

// Stages lists all stages in execution order.
var Stages = []Stage{StageIngest, StageAttachments, StageAnalyze, StageCalendar, StageReplies}

// BatchRunner is one pipeline stage: process up to limit items.
type BatchRunner interface {
	Run(ctx context.Context, limit int) error
}

// Runner executes the stages sequentially. A failing stage is logged
// and the remaining stages still run; stages are independent batch
// consumers of the store.
type Runner struct {
	stages    map[Stage]BatchRunner
	batchSize int
}

func NewRunner(batchSize int) *Runner {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Runner{
		stages:    make(map[Stage]BatchRunner),
		batchSize: batchSize,
	}
}

// Register wires a stage. Passing a nil runner leaves the stage
// disabled.
func (r *Runner) Register(stage Stage, runner BatchRunner) {
	if runner != nil {
		r.stages[stage] = runner
	}
}

// RunStage executes one stage by name.
func (r *Runner) RunStage(ctx context.Context, stage Stage) error {
	runner, ok := r.stages[stage]
	if !ok {
		return fmt.Errorf("stage %s is not configured", stage)
	}
	slog.Info("running pipeline stage", "stage", stage)
	if err := runner.Run(ctx, r.batchSize); err != nil {
		return fmt.Errorf("stage %s: %w", stage, err)
	}
	return nil
}

// RunAll executes every configured stage in order, logging failures
// and continuing.
func (r *Runner) RunAll(ctx context.Context) {
	for _, stage := range Stages {
		if _, ok := r.stages[stage]; !ok {
			slog.Debug("pipeline stage not configured, skipping", "stage", stage)
			continue
		}
		if err := r.RunStage(ctx, stage); err != nil {
			slog.Error("pipeline stage failed", "stage", stage, "error", err)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// Configured reports whether the stage has a runner.
func (r *Runner) Configured(stage Stage) bool {
	_, ok := r.stages[stage]
	return ok
}
