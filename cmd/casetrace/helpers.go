package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/casetrace/casetrace-go/internal/analyze"
	"github.com/casetrace/casetrace-go/internal/correlation"
	"github.com/casetrace/casetrace-go/internal/detect"
	"github.com/casetrace/casetrace-go/internal/index"
	"github.com/casetrace/casetrace-go/internal/llm"
	"github.com/casetrace/casetrace-go/internal/output"
	"github.com/casetrace/casetrace-go/internal/packaging"
	"github.com/casetrace/casetrace-go/internal/pipeline"
	"github.com/casetrace/casetrace-go/internal/store"
	"github.com/casetrace/casetrace-go/internal/summary"
)

// signalContext cancels on SIGINT/SIGTERM so in-flight work settles cleanly.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func openStore() (*store.Store, error) {
	return store.Open(cfg.Storage.Root, detect.New())
}

// openIndex opens the SQLite case index. The index is regenerable; a failure
// here degrades to store-only operation rather than aborting.
func openIndex() *index.Index {
	idx, err := index.Open(cfg.Storage.IndexPath)
	if err != nil {
		logger.WithError(err).Warn("Case index unavailable, continuing without it")
		return nil
	}
	return idx
}

func newLLMClient(ctx context.Context) (*llm.Client, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	return llm.NewClient(ctx, cfg)
}

// buildOrchestrator wires the full pipeline from configuration.
func buildOrchestrator(ctx context.Context, st *store.Store, idx *index.Index, force bool) (*pipeline.Orchestrator, *llm.Client, error) {
	client, err := newLLMClient(ctx)
	if err != nil {
		return nil, nil, err
	}

	dispatcher := analyze.NewDispatcher(st, detect.New(), client, nil, nil)
	engine := correlation.NewEngine(st, client, correlation.Options{
		AIResolve:         cfg.Correlate.AIResolve,
		AIResolveMaxCalls: cfg.Correlate.AIResolveMaxCalls,
		GapThresholdDays:  cfg.Correlate.GapThresholdDays,
		LegalPatterns:     cfg.Summary.LegalPatterns,
	})
	generator := summary.NewGenerator(st, client, engine, summary.Options{
		CaseType:       cfg.Summary.CaseType,
		ChunkThreshold: cfg.Summary.ChunkThreshold,
		ChunkSize:      cfg.Summary.ChunkSize,
	})
	builder := packaging.NewBuilder(st, packaging.Options{
		IncludeRaw: cfg.Package.IncludeRaw,
		Format:     cfg.Package.Format,
		OutputDir:  cfg.Package.OutputDir,
		Actor:      actor(),
	})

	orch := pipeline.NewOrchestrator(st, dispatcher, generator, builder, idx, output.NewConsole(), pipeline.Options{
		MaxConcurrency: cfg.Analyze.MaxConcurrency,
		Force:          force || cfg.Analyze.Force,
		Actor:          actor(),
	})
	return orch, client, nil
}

// pipelineReport wraps a status list for exit-code mapping.
func pipelineReport(caseID string, statuses []pipeline.ItemStatus) *pipeline.RunReport {
	return &pipeline.RunReport{CaseID: caseID, Items: statuses}
}

func actor() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "casetrace"
}
