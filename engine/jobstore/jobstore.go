// Package jobstore implements the durable, CAS-guarded job state machine.
// Every mutation is written through to Neo4j before it is considered
// committed; a per-job broadcast channel set (backed by NATS for
// cross-process visibility) lets callers stream status updates.
package jobstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/WessleyAI/wessley-mvp/engine/domain"
	"github.com/WessleyAI/wessley-mvp/engine/graph"
	"github.com/WessleyAI/wessley-mvp/pkg/natsutil"
	"github.com/nats-io/nats.go"
)

// eventsSubject is the NATS subject template every job's updates publish to.
const eventsSubject = "jobs.%s.events"

// jobRecord is the in-process guard around a single job's mutable state.
type jobRecord struct {
	mu   sync.Mutex
	job  domain.Job
	subs map[int]chan domain.Job
	next int
}

// Store is the job state machine. Safe for concurrent use.
type Store struct {
	graph *graph.GraphStore
	nc    *nats.Conn

	recMu   sync.Mutex
	records map[string]*jobRecord
}

// New creates a Store. nc may be nil, in which case updates only fan out
// in-process (useful for tests and for single-instance deployments).
func New(store *graph.GraphStore, nc *nats.Conn) *Store {
	return &Store{
		graph:   store,
		nc:      nc,
		records: make(map[string]*jobRecord),
	}
}

func (s *Store) record(id string) *jobRecord {
	s.recMu.Lock()
	defer s.recMu.Unlock()
	r, ok := s.records[id]
	if !ok {
		r = &jobRecord{subs: make(map[int]chan domain.Job)}
		s.records[id] = r
	}
	return r
}

// Create persists a new job and seeds its in-process record.
func (s *Store) Create(ctx context.Context, job domain.Job) (domain.Job, error) {
	created, err := s.graph.Jobs.Create(ctx, job)
	if err != nil {
		return domain.Job{}, fmt.Errorf("jobstore: create: %w", err)
	}
	r := s.record(created.ID)
	r.mu.Lock()
	r.job = created
	r.mu.Unlock()
	return created, nil
}

// Get returns the current state of a job, preferring the in-process record
// (which always reflects the latest committed write) over a fresh read.
func (s *Store) Get(ctx context.Context, id string) (domain.Job, error) {
	s.recMu.Lock()
	r, ok := s.records[id]
	s.recMu.Unlock()
	if ok {
		r.mu.Lock()
		job := r.job
		r.mu.Unlock()
		if job.ID != "" {
			return job, nil
		}
	}

	job, err := s.graph.Jobs.Get(ctx, id)
	if err != nil {
		return domain.Job{}, domain.NewNotFoundError("job", id)
	}
	return job, nil
}

// CompareAndSwap applies mutate to the job only if its current status
// matches from, persists the result, and broadcasts it to every subscriber.
// It returns domain.ErrInvalidClaimTransition-shaped behavior via a plain
// error when the precondition fails, since job status transitions are
// enforced by the stage runtime rather than the claim ontology.
func (s *Store) CompareAndSwap(ctx context.Context, id string, from domain.JobStatus, mutate func(*domain.Job)) (domain.Job, error) {
	r := s.record(id)
	r.mu.Lock()

	if r.job.ID == "" {
		r.mu.Unlock()
		current, err := s.graph.Jobs.Get(ctx, id)
		if err != nil {
			return domain.Job{}, domain.NewNotFoundError("job", id)
		}
		r.mu.Lock()
		r.job = current
	}

	if r.job.Status != from {
		got := r.job.Status
		r.mu.Unlock()
		return domain.Job{}, fmt.Errorf("jobstore: cas on %s expected status %s, found %s", id, from, got)
	}

	prev := r.job
	mutate(&r.job)
	updated, err := s.graph.Jobs.Update(ctx, r.job)
	if err != nil {
		r.job = prev
		r.mu.Unlock()
		return domain.Job{}, fmt.Errorf("jobstore: persist %s: %w", id, err)
	}
	r.job = updated
	r.mu.Unlock()

	s.broadcast(ctx, updated)
	return updated, nil
}

func (s *Store) broadcast(ctx context.Context, job domain.Job) {
	r := s.record(job.ID)
	r.mu.Lock()
	for _, ch := range r.subs {
		select {
		case ch <- job:
		default:
		}
	}
	r.mu.Unlock()

	if s.nc != nil {
		_ = natsutil.Publish(ctx, s.nc, fmt.Sprintf(eventsSubject, job.ID), job)
	}
}

// StreamUpdates registers a subscriber for job updates. The returned cancel
// function must be called when the caller stops listening.
func (s *Store) StreamUpdates(jobID string) (<-chan domain.Job, func()) {
	r := s.record(jobID)
	ch := make(chan domain.Job, 8)

	r.mu.Lock()
	id := r.next
	r.next++
	r.subs[id] = ch
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
		close(ch)
	}
	return ch, cancel
}
