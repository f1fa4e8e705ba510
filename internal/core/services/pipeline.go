package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/chunkvec/internal/core/domain"
	"github.com/custodia-labs/chunkvec/internal/core/ports/driven"
	"github.com/custodia-labs/chunkvec/internal/core/ports/driving"
	"github.com/custodia-labs/chunkvec/internal/logger"
)

// Ensure Pipeline implements the interface.
var _ driving.IndexPipeline = (*Pipeline)(nil)

// Pipeline reads a document, splits it into segments, embeds each segment
// and stores the vectors. All collaborators are passed in; the pipeline
// holds no connection between runs.
type Pipeline struct {
	source    driven.DocumentSource
	segmenter driven.Segmenter
	embedder  driven.EmbeddingService
	stores    driven.EmbeddingStoreFactory

	// sleep waits between retry attempts. Replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewPipeline creates a pipeline over the given collaborators.
func NewPipeline(
	source driven.DocumentSource,
	segmenter driven.Segmenter,
	embedder driven.EmbeddingService,
	stores driven.EmbeddingStoreFactory,
) *Pipeline {
	return &Pipeline{
		source:    source,
		segmenter: segmenter,
		embedder:  embedder,
		stores:    stores,
		sleep:     sleepContext,
		now:       time.Now,
	}
}

// Run executes one pipeline run.
//
// Configuration problems (bad settings, unreadable source, missing
// collaborators) are returned with a nil report before any segment is
// processed. Once processing starts the report is always returned. Under
// fail-fast the first segment failure aborts the run and is returned as a
// *domain.SegmentError; under continue-on-error failures are only listed
// in the report and err is nil unless the run was cancelled or the store
// could not be opened.
func (p *Pipeline) Run(ctx context.Context, req driving.RunRequest) (report *domain.PipelineReport, err error) {
	settings := req.Settings
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if err := p.checkDependencies(); err != nil {
		return nil, err
	}

	doc, err := p.source.Read(ctx, req.Source)
	if err != nil {
		return nil, err
	}

	segments := p.segmenter.Segment(doc.Content, settings.ChunkSize)

	report = &domain.PipelineReport{
		RunID:     uuid.New().String(),
		Source:    req.Source,
		ChunkSize: settings.ChunkSize,
		Policy:    settings.Policy,
		Total:     len(segments),
		StartedAt: p.now(),
	}
	defer func() {
		report.FinishedAt = p.now()
	}()

	logger.Section("Index " + req.Source)
	logger.Info("Run %s: %d characters, %d segments of up to %d (%s, model %s, store %s)",
		report.RunID, doc.Length(), len(segments), settings.ChunkSize,
		settings.Policy, p.embedder.ModelName(), p.stores.Backend())

	store, err := p.stores.Open(ctx)
	if err != nil {
		report.Abort(err)
		logger.Error("Opening %s store: %v", p.stores.Backend(), err)
		return report, err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Warn("Closing %s store: %v", p.stores.Backend(), closeErr)
			if err == nil {
				err = &domain.StorageError{Backend: p.stores.Backend(), Op: "close", Err: closeErr}
				report.Abort(err)
			}
		}
	}()

	r := &run{
		pipeline: p,
		store:    store,
		settings: settings,
		segments: segments,
		report:   report,
		progress: req.Progress,
		states:   make([]domain.SegmentState, len(segments)),
	}
	for i := range r.states {
		r.states[i] = domain.SegmentPending
	}

	if settings.Concurrency > 1 && len(segments) > 1 {
		err = r.executeConcurrent(ctx)
	} else {
		err = r.executeSequential(ctx)
	}

	logger.Info("Run %s finished: %d stored, %d already present, %d failed of %d",
		report.RunID, report.Stored, report.AlreadyPresent, report.Failed, report.Total)
	return report, err
}

func (p *Pipeline) checkDependencies() error {
	switch {
	case p.source == nil:
		return domain.ConfigError("document source not configured")
	case p.segmenter == nil:
		return domain.ConfigError("segmenter not configured")
	case p.embedder == nil:
		return domain.ConfigError("embedding service not configured")
	case p.stores == nil:
		return domain.ConfigError("embedding store not configured")
	}
	return nil
}

// embed calls the embedding service, retrying retryable service errors
// with exponential backoff. A server Retry-After hint longer than the
// computed backoff wins.
func (p *Pipeline) embed(ctx context.Context, seg domain.Segment, settings domain.PipelineSettings) ([]float32, error) {
	backoff := settings.RetryBackoff
	for attempt := 0; ; attempt++ {
		vector, err := p.embedder.Embed(ctx, seg.Text)
		if err == nil {
			return vector, nil
		}

		var svcErr *domain.ServiceError
		if attempt >= settings.Retries || !errors.As(err, &svcErr) || !svcErr.Retryable() || ctx.Err() != nil {
			return nil, err
		}

		wait := backoff
		if svcErr.RetryAfter > wait {
			wait = svcErr.RetryAfter
		}
		logger.Debug("Segment %d: retrying after %s (attempt %d/%d): %v",
			seg.Index, wait, attempt+1, settings.Retries, err)
		if err := p.sleep(ctx, wait); err != nil {
			return nil, err
		}
		backoff *= 2
	}
}

// embedResult carries one segment's embedding from a worker to the writer.
type embedResult struct {
	vector []float32
	err    error
}

// run holds the state of one Pipeline.Run invocation.
type run struct {
	pipeline *Pipeline
	store    driven.EmbeddingStore
	settings domain.PipelineSettings
	segments []domain.Segment
	report   *domain.PipelineReport
	progress driving.ProgressFunc
	states   []domain.SegmentState
}

// executeSequential embeds and stores one segment at a time in index order.
func (r *run) executeSequential(ctx context.Context) error {
	for i, seg := range r.segments {
		if err := ctx.Err(); err != nil {
			return r.cancelled(err)
		}

		r.advance(i, domain.SegmentEmbedding)
		vector, err := r.pipeline.embed(ctx, seg, r.settings)
		if stop, err := r.apply(ctx, i, vector, err); stop {
			return err
		}
	}
	return nil
}

// executeConcurrent fans embedding out to a bounded worker pool while a
// single writer (this goroutine) stores results in ascending index order.
// After a fail-fast abort at segment k, later segments may already have
// been embedded but none of them is stored.
func (r *run) executeConcurrent(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]chan embedResult, len(r.segments))
	for i := range results {
		results[i] = make(chan embedResult, 1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.settings.Concurrency)

	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		for i, seg := range r.segments {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					results[i] <- embedResult{err: err}
					return nil
				}
				vector, err := r.pipeline.embed(gctx, seg, r.settings)
				results[i] <- embedResult{vector: vector, err: err}
				return nil
			})
		}
	}()

	defer func() {
		cancel()
		<-dispatched
		_ = g.Wait()
	}()

	for i := range r.segments {
		if err := ctx.Err(); err != nil {
			return r.cancelled(err)
		}

		r.advance(i, domain.SegmentEmbedding)
		var res embedResult
		select {
		case res = <-results[i]:
		case <-ctx.Done():
			return r.cancelled(ctx.Err())
		}
		if stop, err := r.apply(ctx, i, res.vector, res.err); stop {
			return err
		}
	}
	return nil
}

// apply stores the embedding of segment i, or records the embedding
// failure. It returns stop=true when the run must end, with the error to
// return from Run.
func (r *run) apply(ctx context.Context, i int, vector []float32, embedErr error) (bool, error) {
	seg := r.segments[i]

	if embedErr != nil {
		return r.fail(ctx, seg, domain.SegmentEmbedding, embedErr)
	}
	r.advance(i, domain.SegmentEmbedded)

	r.advance(i, domain.SegmentStoring)
	outcome, err := r.store.Store(ctx, seg.Index, vector)
	if err != nil {
		return r.fail(ctx, seg, domain.SegmentStoring, err)
	}

	if outcome == domain.OutcomeAlreadyPresent {
		r.advance(i, domain.SegmentAlreadyPresent)
	} else {
		r.advance(i, domain.SegmentStored)
	}
	r.report.RecordOutcome(outcome)
	r.notify()
	return false, nil
}

// fail records a segment failure and decides whether the run continues.
func (r *run) fail(ctx context.Context, seg domain.Segment, stage domain.SegmentState, cause error) (bool, error) {
	segErr := &domain.SegmentError{
		Index:  seg.Index,
		Offset: seg.Offset,
		Stage:  stage,
		Err:    cause,
	}
	r.advance(seg.Index, domain.SegmentFailed)
	r.report.RecordFailure(segErr)
	r.notify()
	logger.Warn("%v", segErr)

	if ctx.Err() != nil {
		r.report.Abort(segErr)
		return true, segErr
	}
	if r.settings.Policy == domain.PolicyFailFast {
		r.report.Abort(segErr)
		logger.Info("Aborting run at segment %d (fail fast)", seg.Index)
		return true, segErr
	}
	return false, nil
}

// cancelled aborts the run because ctx ended between segments.
func (r *run) cancelled(cause error) error {
	err := fmt.Errorf("run cancelled after %d of %d segments: %w", r.report.Processed(), r.report.Total, cause)
	r.report.Abort(err)
	logger.Warn("%v", err)
	return err
}

// advance moves segment i to next, logging the transition.
func (r *run) advance(i int, next domain.SegmentState) {
	current := r.states[i]
	if !current.CanTransition(next) {
		logger.Warn("Segment %d: unexpected transition %s -> %s", i, current, next)
	}
	r.states[i] = next
	logger.Debug("Segment %d: %s -> %s", i, current, next)
}

func (r *run) notify() {
	if r.progress != nil {
		r.progress(r.report.Processed(), r.report.Total)
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
