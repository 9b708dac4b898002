// Package runtime drives the fixed ingest→cartograph→verify→critique→draft→save
// stage DAG over a bounded worker pool, interpolating per-stage progress and
// coalescing progress writes so the job store isn't hammered on every tick.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/WessleyAI/wessley-mvp/engine/domain"
	"github.com/WessleyAI/wessley-mvp/engine/graph"
	"github.com/WessleyAI/wessley-mvp/engine/jobstore"
	"github.com/WessleyAI/wessley-mvp/engine/semantic"
	"github.com/WessleyAI/wessley-mvp/pkg/metrics"
	"github.com/WessleyAI/wessley-mvp/pkg/transport"
	"github.com/nats-io/nats.go"
)

// StageWindow maps a stage's internal completion (0-100) onto the job's
// overall progress percentage via linear interpolation.
type StageWindow struct {
	Low, High int
}

func (w StageWindow) interpolate(pct int) int {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return w.Low + (w.High-w.Low)*pct/100
}

// ToneMode controls how the drafter stage reacts to hard-banned terms.
type ToneMode string

const (
	// ToneModePreserve leaves flagged language in place for a human editor.
	ToneModePreserve ToneMode = "preserve"
	// ToneModeRewrite has the drafter itself soften hard-banned language,
	// gated to conservative-rigor projects.
	ToneModeRewrite ToneMode = "rewrite"
)

// Deps bundles every external client a stage might need.
type Deps struct {
	Logic        *transport.LogicClient
	Draft        *transport.DraftClient
	Embed        *transport.EmbedClient
	Graph        *graph.GraphStore
	Vector       *semantic.VectorStore
	Nats         *nats.Conn
	Metrics      *metrics.Registry
	ArtifactRoot string
	DefaultRigor domain.RigorLevel
	ToneMode     ToneMode
}

// StageContext is the mutable state bag threaded through every stage.
type StageContext struct {
	JobID       string
	IngestionID string
	Project     domain.ProjectSnapshot
	Request     domain.SubmitRequest
	DocText     string
	Claims      []domain.Claim
	Blocks      []domain.Block
	Manifest    *domain.ArtifactManifest
	Deadline    time.Time
	Logger      *slog.Logger
	Deps        Deps
	cancelled   *atomic.Bool
	onProgress  func(pct int)
}

// Cancelled reports whether the job has been asked to stop.
func (sc *StageContext) Cancelled() bool {
	return sc.cancelled != nil && sc.cancelled.Load()
}

// ReportProgress records fine-grained progress within the current stage
// (0-100); the runtime interpolates it into the job's overall percentage.
func (sc *StageContext) ReportProgress(pct int) {
	if sc.onProgress != nil {
		sc.onProgress(pct)
	}
}

// StageFunc executes one pipeline stage against the shared context.
type StageFunc func(ctx context.Context, sc *StageContext) error

// Stage is one named, windowed step of the DAG.
type Stage struct {
	Name   string
	Window StageWindow
	Run    StageFunc
}

// minProgressInterval bounds how often a throttled progress write may land,
// keeping per-job writes to the job store at roughly 4 per second.
const minProgressInterval = 250 * time.Millisecond

// Runtime executes the fixed stage DAG over a bounded pool of workers.
type Runtime struct {
	stages  []Stage
	store   *jobstore.Store
	deps    Deps
	logger  *slog.Logger
	queue   chan string
	workers int

	cancelMu sync.Mutex
	cancels  map[string]*atomic.Bool
}

// New creates a Runtime. queueCap bounds the number of jobs that may be
// waiting for a free worker; Submit returns ServiceBusyError past that point.
func New(deps Deps, stages []Stage, store *jobstore.Store, workers, queueCap int, logger *slog.Logger) *Runtime {
	if workers <= 0 {
		workers = 4
	}
	if queueCap <= 0 {
		queueCap = 256
	}
	return &Runtime{
		stages:  stages,
		store:   store,
		deps:    deps,
		logger:  logger,
		queue:   make(chan string, queueCap),
		workers: workers,
		cancels: make(map[string]*atomic.Bool),
	}
}

// Start launches the worker pool. It returns once ctx is cancelled and every
// in-flight worker has drained.
func (r *Runtime) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.worker(ctx)
		}()
	}
	<-ctx.Done()
	wg.Wait()
}

func (r *Runtime) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case jobID, ok := <-r.queue:
			if !ok {
				return
			}
			r.runJob(ctx, jobID)
		}
	}
}

// Submit transitions a job to QUEUED and enqueues it for execution, failing
// fast if the queue is full.
func (r *Runtime) Submit(jobID string) error {
	ctx := context.Background()
	if _, err := r.store.CompareAndSwap(ctx, jobID, domain.JobPending, func(j *domain.Job) {
		j.Status = domain.JobQueued
	}); err != nil {
		r.logger.Warn("runtime: could not transition to queued", "job_id", jobID, "err", err)
	}

	select {
	case r.queue <- jobID:
		return nil
	default:
		return &domain.ServiceBusyError{Reason: "submission queue is full"}
	}
}

// Cancel marks a running job for cooperative cancellation at the next
// stage boundary.
func (r *Runtime) Cancel(jobID string) {
	r.cancelFlag(jobID).Store(true)
}

func (r *Runtime) cancelFlag(jobID string) *atomic.Bool {
	r.cancelMu.Lock()
	defer r.cancelMu.Unlock()
	flag, ok := r.cancels[jobID]
	if !ok {
		flag = &atomic.Bool{}
		r.cancels[jobID] = flag
	}
	return flag
}

func (r *Runtime) runJob(ctx context.Context, jobID string) {
	job, err := r.store.Get(ctx, jobID)
	if err != nil {
		r.logger.Error("runtime: job not found", "job_id", jobID, "err", err)
		return
	}

	deadline := time.Now().Add(24 * time.Hour)
	if job.InitialState.Request.DeadlineSec > 0 {
		deadline = job.CreatedAt.Add(time.Duration(job.InitialState.Request.DeadlineSec) * time.Second)
	}

	flag := r.cancelFlag(jobID)
	sc := &StageContext{
		JobID:       jobID,
		IngestionID: job.IngestionID,
		Project:     job.InitialState.ProjectContext,
		Request:     job.InitialState.Request,
		DocText:     job.InitialState.Request.Text,
		Deadline:    deadline,
		Logger:      r.logger.With("job_id", jobID),
		Deps:        r.deps,
		cancelled:   flag,
	}

	if _, err := r.store.CompareAndSwap(ctx, jobID, domain.JobQueued, func(j *domain.Job) {
		now := time.Now()
		j.Status = domain.JobRunning
		j.StartedAt = &now
		if len(r.stages) > 0 {
			j.CurrentStage = r.stages[0].Name
		}
	}); err != nil {
		// Already running or otherwise not Queued; another worker may have
		// picked it up, or this is a resumed job already past Queued.
		if job.Status != domain.JobRunning {
			r.logger.Warn("runtime: could not transition to running", "job_id", jobID, "err", err)
		}
	}

	for _, stage := range r.stages {
		if sc.Cancelled() {
			r.finishCancelled(ctx, jobID)
			return
		}
		if !sc.Deadline.IsZero() && time.Now().After(sc.Deadline) {
			r.finishFailed(ctx, jobID, &domain.StageFailedError{Stage: stage.Name, Cause: fmt.Errorf("job deadline exceeded")})
			return
		}

		lastWrite := time.Time{}
		sc.onProgress = func(pct int) {
			if time.Since(lastWrite) < minProgressInterval {
				return
			}
			lastWrite = time.Now()
			overall := stage.Window.interpolate(pct)
			_, _ = r.store.CompareAndSwap(ctx, jobID, domain.JobRunning, func(j *domain.Job) {
				j.CurrentStage = stage.Name
				j.ProgressPct = overall
			})
		}

		if err := stage.Run(ctx, sc); err != nil {
			r.finishFailed(ctx, jobID, &domain.StageFailedError{Stage: stage.Name, Cause: err})
			return
		}

		_, _ = r.store.CompareAndSwap(ctx, jobID, domain.JobRunning, func(j *domain.Job) {
			j.CurrentStage = stage.Name
			j.ProgressPct = stage.Window.High
		})
	}

	r.finishSucceeded(ctx, jobID, sc)
}

func (r *Runtime) finishSucceeded(ctx context.Context, jobID string, sc *StageContext) {
	_, err := r.store.CompareAndSwap(ctx, jobID, domain.JobRunning, func(j *domain.Job) {
		now := time.Now()
		j.Status = domain.JobSucceeded
		j.FinishedAt = &now
		j.ProgressPct = 100
		j.Result = &domain.JobResult{
			ExtractedJSON:    domain.ExtractedJSON{Triples: sc.Claims},
			ArtifactManifest: sc.Manifest,
		}
	})
	if err != nil {
		r.logger.Error("runtime: finish succeeded", "job_id", jobID, "err", err)
	}
}

func (r *Runtime) finishFailed(ctx context.Context, jobID string, cause error) {
	_, err := r.store.CompareAndSwap(ctx, jobID, domain.JobRunning, func(j *domain.Job) {
		now := time.Now()
		j.Status = domain.JobFailed
		j.FinishedAt = &now
		j.Error = cause.Error()
	})
	if err != nil {
		r.logger.Error("runtime: finish failed", "job_id", jobID, "err", err)
	}
}

func (r *Runtime) finishCancelled(ctx context.Context, jobID string) {
	_, err := r.store.CompareAndSwap(ctx, jobID, domain.JobRunning, func(j *domain.Job) {
		now := time.Now()
		j.Status = domain.JobCancelled
		j.FinishedAt = &now
	})
	if err != nil {
		r.logger.Error("runtime: finish cancelled", "job_id", jobID, "err", err)
	}
}
