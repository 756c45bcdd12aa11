package pipeline

import (
	"context"
	"errors"
	"testing"
)

type countingRunner struct {
	runs int
	err  error
}

func (c *countingRunner) Run(_ context.Context, _ int) error {
	c.runs++
	return c.err
}

func TestRunStage(t *testing.T) {
	ingest := &countingRunner{}
	r := NewRunner(10)
	r.Register(StageIngest, ingest)

	if err := r.RunStage(context.Background(), StageIngest); err != nil {
		t.Fatalf("RunStage failed: %v", err)
	}
	if ingest.runs != 1 {
		t.Errorf("expected 1 run, got %d", ingest.runs)
	}
}

func TestRunStageUnconfigured(t *testing.T) {
	r := NewRunner(10)
	if err := r.RunStage(context.Background(), StageCalendar); err == nil {
		t.Fatal("expected error for unconfigured stage")
	}
}

func TestRunAllContinuesPastFailures(t *testing.T) {
	ingest := &countingRunner{err: errors.New("fetch failed")}
	analyze := &countingRunner{}

	r := NewRunner(10)
	r.Register(StageIngest, ingest)
	r.Register(StageAnalyze, analyze)

	r.RunAll(context.Background())

	if ingest.runs != 1 {
		t.Errorf("expected ingest to run once, got %d", ingest.runs)
	}
	if analyze.runs != 1 {
		t.Errorf("a failed stage must not stop later stages, got %d runs", analyze.runs)
	}
}

func TestRunAllSkipsNilStages(t *testing.T) {
	analyze := &countingRunner{}
	r := NewRunner(10)
	r.Register(StageAnalyze, analyze)
	r.Register(StageReplies, nil)

	r.RunAll(context.Background())

	if analyze.runs != 1 {
		t.Errorf("expected analyze to run, got %d", analyze.runs)
	}
	if r.Configured(StageReplies) {
		t.Error("nil stage must stay unconfigured")
	}
}

func TestRunAllStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	first := &countingRunner{}
	second := &countingRunner{}
	r := NewRunner(10)
	r.Register(StageIngest, first)
	r.Register(StageAnalyze, second)

	r.RunAll(ctx)

	// The first stage runs, then the cancelled context stops the loop.
	if first.runs != 1 {
		t.Errorf("expected first stage to run, got %d", first.runs)
	}
	if second.runs != 0 {
		t.Errorf("expected later stages skipped after cancel, got %d", second.runs)
	}
}
