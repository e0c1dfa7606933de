// Package pipeline drives the ingest, analyze, summarize and package stages
// for a case.
package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/casetrace/casetrace-go/internal/analyze"
	caseerr "github.com/casetrace/casetrace-go/internal/errors"
	"github.com/casetrace/casetrace-go/internal/index"
	"github.com/casetrace/casetrace-go/internal/models"
	"github.com/casetrace/casetrace-go/internal/output"
	"github.com/casetrace/casetrace-go/internal/packaging"
	"github.com/casetrace/casetrace-go/internal/store"
	"github.com/casetrace/casetrace-go/internal/summary"
)

// Options configures a pipeline run.
type Options struct {
	// MaxConcurrency bounds the analyze worker pool.
	MaxConcurrency int
	// Force re-analyzes evidence that already has a stored analysis.
	Force bool
	// Actor is recorded in chain-of-custody events.
	Actor string
}

// ItemStatus is the per-artifact outcome of one stage.
type ItemStatus struct {
	SHA256 string
	Name   string
	Stage  output.Stage
	State  output.State
	Err    error
}

// RunReport aggregates per-item statuses for a full pipeline run.
type RunReport struct {
	CaseID      string
	Items       []ItemStatus
	PackagePath string
	Cancelled   bool
}

// Failed counts items that ended in failure.
func (r *RunReport) Failed() int {
	n := 0
	for _, it := range r.Items {
		if it.State == output.StateFailed {
			n++
		}
	}
	return n
}

// Attempted counts items that reached a terminal state other than skipped.
func (r *RunReport) Attempted() int {
	n := 0
	for _, it := range r.Items {
		if it.State == output.StateFailed || it.State == output.StateSucceeded {
			n++
		}
	}
	return n
}

// Err maps the report to the process-level error taxonomy: nil when clean,
// cancelled when interrupted, all-failed or partial-failure otherwise.
func (r *RunReport) Err() error {
	if r.Cancelled {
		return caseerr.Cancelled("pipeline interrupted")
	}
	failed := r.Failed()
	if failed == 0 {
		return nil
	}
	if failed == r.Attempted() {
		return caseerr.AllFailed(failed)
	}
	return caseerr.PartialFailure(failed, r.Attempted())
}

// Orchestrator wires the stages together over one store.
type Orchestrator struct {
	store      *store.Store
	dispatcher *analyze.Dispatcher
	generator  *summary.Generator
	builder    *packaging.Builder
	idx        *index.Index
	sink       output.Sink
	opts       Options
	log        *logrus.Logger
}

// NewOrchestrator builds the orchestrator. idx may be nil to skip index
// maintenance; sink may be nil to discard progress.
func NewOrchestrator(st *store.Store, dispatcher *analyze.Dispatcher, generator *summary.Generator, builder *packaging.Builder, idx *index.Index, sink output.Sink, opts Options) *Orchestrator {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 5
	}
	if opts.Actor == "" {
		opts.Actor = "pipeline"
	}
	if sink == nil {
		sink = output.Discard
	}
	return &Orchestrator{
		store:      st,
		dispatcher: dispatcher,
		generator:  generator,
		builder:    builder,
		idx:        idx,
		sink:       sink,
		opts:       opts,
		log:        logrus.StandardLogger(),
	}
}

// enumerateFiles lists regular files under dir recursively, skipping hidden
// files and directories. Order is deterministic.
func enumerateFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, caseerr.IngestError(err, "enumerating "+dir)
	}
	sort.Strings(files)
	return files, nil
}

// Ingest walks dir and ingests every regular file into the case.
func (o *Orchestrator) Ingest(ctx context.Context, dir, caseID string) ([]ItemStatus, error) {
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return nil, caseerr.ConfigErrorf("evidence directory %s not accessible", dir)
	}
	files, err := enumerateFiles(dir)
	if err != nil {
		return nil, err
	}

	o.log.WithFields(logrus.Fields{
		"case":  caseID,
		"files": len(files),
	}).Info("ingest stage started")

	statuses := make([]ItemStatus, 0, len(files))
	for _, path := range files {
		if ctx.Err() != nil {
			return statuses, caseerr.Cancelled("ingest interrupted")
		}
		name := filepath.Base(path)
		o.sink.Emit(output.Event{Stage: output.StageIngest, Item: name, State: output.StateStarted})

		res, err := o.store.Ingest(ctx, path, caseID, o.opts.Actor)
		st := ItemStatus{Name: name, Stage: output.StageIngest}
		switch {
		case err != nil:
			st.State = output.StateFailed
			st.Err = err
			o.sink.Emit(output.Event{Stage: output.StageIngest, Item: name, State: output.StateFailed, Err: err})
		case res.Status == models.IngestDuplicate:
			st.SHA256 = res.SHA256
			st.State = output.StateSucceeded
			o.sink.Emit(output.Event{Stage: output.StageIngest, Item: name, State: output.StateSucceeded, Detail: "duplicate, linked"})
		default:
			st.SHA256 = res.SHA256
			st.State = output.StateSucceeded
			o.sink.Emit(output.Event{Stage: output.StageIngest, Item: name, State: output.StateSucceeded, Detail: string(res.EvidenceType)})
		}
		statuses = append(statuses, st)

		if err == nil && o.idx != nil {
			o.indexIngest(caseID, res)
		}
	}
	return statuses, nil
}

func (o *Orchestrator) indexIngest(caseID string, res *models.IngestionResult) {
	row := index.EvidenceRow{
		SHA256:       res.SHA256,
		Filename:     res.Metadata.Filename,
		SizeBytes:    res.Metadata.SizeBytes,
		EvidenceType: string(res.EvidenceType),
	}
	if err := o.idx.Upsert(row); err != nil {
		o.log.WithError(err).Warn("index upsert failed")
		return
	}
	if err := o.idx.Link(caseID, res.SHA256); err != nil {
		o.log.WithError(err).Warn("index link failed")
	}
}

// AnalyzeCase analyzes every artifact in the case with a bounded worker
// pool. Per-item failures never abort the batch; cancellation stops new
// work and lets in-flight analyses settle.
func (o *Orchestrator) AnalyzeCase(ctx context.Context, caseID string) ([]ItemStatus, error) {
	shas, err := o.store.ListCase(caseID)
	if err != nil {
		return nil, err
	}
	sort.Strings(shas)

	o.log.WithFields(logrus.Fields{
		"case":    caseID,
		"items":   len(shas),
		"workers": o.opts.MaxConcurrency,
	}).Info("analyze stage started")

	statuses := make([]ItemStatus, len(shas))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.MaxConcurrency)

	for i, sha := range shas {
		// Stop scheduling once cancelled. In-flight workers observe the
		// context themselves; atomic writes in the store mean they end
		// either fully saved or cleanly rolled back.
		if ctx.Err() != nil {
			statuses[i] = ItemStatus{SHA256: sha, Stage: output.StageAnalyze, State: output.StateSkipped, Err: ctx.Err()}
			continue
		}
		i, sha := i, sha
		g.Go(func() error {
			statuses[i] = o.analyzeOne(gctx, caseID, sha)
			return nil
		})
	}
	g.Wait()
	if ctx.Err() != nil {
		return statuses, caseerr.Cancelled("analyze interrupted")
	}
	return statuses, nil
}

func (o *Orchestrator) analyzeOne(ctx context.Context, caseID, sha string) ItemStatus {
	name := models.ShortSHA(sha)
	if meta, err := o.store.LoadMetadata(sha); err == nil {
		name = meta.Filename
	}
	o.sink.Emit(output.Event{Stage: output.StageAnalyze, Item: name, State: output.StateStarted})

	st := ItemStatus{SHA256: sha, Name: name, Stage: output.StageAnalyze}
	analysis, err := o.dispatcher.Analyze(ctx, sha, analyze.Options{
		Force:  o.opts.Force,
		CaseID: caseID,
		Actor:  o.opts.Actor,
	})
	if err != nil {
		if caseerr.IsKind(err, caseerr.KindTypeDetect) || errors.Is(err, analyze.ErrNotAnalyzable) {
			st.State = output.StateSkipped
			o.sink.Emit(output.Event{Stage: output.StageAnalyze, Item: name, State: output.StateSkipped, Detail: "not analyzable"})
			return st
		}
		if caseerr.IsKind(err, caseerr.KindCancelled) || errors.Is(err, context.Canceled) {
			st.State = output.StateSkipped
			st.Err = err
			o.sink.Emit(output.Event{Stage: output.StageAnalyze, Item: name, State: output.StateSkipped, Detail: "cancelled"})
			return st
		}
		st.State = output.StateFailed
		st.Err = err
		o.sink.Emit(output.Event{Stage: output.StageAnalyze, Item: name, State: output.StateFailed, Err: err})
		o.log.WithError(err).WithField("sha256", sha).Error("analysis failed")
		return st
	}

	st.State = output.StateSucceeded
	o.sink.Emit(output.Event{Stage: output.StageAnalyze, Item: name, State: output.StateSucceeded, Detail: string(analysis.Significance())})
	if o.idx != nil {
		sig := string(analysis.Significance())
		conf := analysis.Confidence()
		row := index.EvidenceRow{
			SHA256:       sha,
			Filename:     name,
			EvidenceType: string(analysis.EvidenceType),
			Analyzed:     true,
			Significance: &sig,
			Confidence:   &conf,
		}
		if meta, err := o.store.LoadMetadata(sha); err == nil {
			row.SizeBytes = meta.SizeBytes
		}
		if err := o.idx.Upsert(row); err != nil {
			o.log.WithError(err).Warn("index upsert failed")
		}
	}
	return st
}

// ProcessCase runs the full pipeline: ingest the directory, analyze the
// case, generate the summary and build the package.
func (o *Orchestrator) ProcessCase(ctx context.Context, dir, caseID string) (*RunReport, error) {
	report := &RunReport{CaseID: caseID}

	ingested, err := o.Ingest(ctx, dir, caseID)
	report.Items = append(report.Items, ingested...)
	if err != nil {
		if caseerr.IsKind(err, caseerr.KindCancelled) {
			report.Cancelled = true
			return report, report.Err()
		}
		return report, err
	}

	analyzed, err := o.AnalyzeCase(ctx, caseID)
	report.Items = append(report.Items, analyzed...)
	if err != nil {
		if caseerr.IsKind(err, caseerr.KindCancelled) {
			report.Cancelled = true
			return report, report.Err()
		}
		return report, err
	}

	o.sink.Emit(output.Event{Stage: output.StageSummarize, Item: caseID, State: output.StateStarted})
	caseSummary, err := o.generator.Generate(ctx, caseID)
	if err != nil {
		o.sink.Emit(output.Event{Stage: output.StageSummarize, Item: caseID, State: output.StateFailed, Err: err})
		if caseerr.IsKind(err, caseerr.KindCancelled) {
			report.Cancelled = true
			return report, report.Err()
		}
		return report, err
	}
	o.sink.Emit(output.Event{Stage: output.StageSummarize, Item: caseID, State: output.StateSucceeded})

	o.sink.Emit(output.Event{Stage: output.StagePackage, Item: caseID, State: output.StateStarted})
	result, err := o.builder.Build(ctx, caseSummary)
	if err != nil {
		o.sink.Emit(output.Event{Stage: output.StagePackage, Item: caseID, State: output.StateFailed, Err: err})
		if caseerr.IsKind(err, caseerr.KindCancelled) {
			report.Cancelled = true
			return report, report.Err()
		}
		return report, err
	}
	report.PackagePath = result.Path
	o.sink.Emit(output.Event{Stage: output.StagePackage, Item: caseID, State: output.StateSucceeded, Detail: result.Path})

	return report, report.Err()
}
