package generate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/stockreport/internal/store"
)

// JobStatus is the state of a queued generation.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusGenerating JobStatus = "generating"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// ErrQueueFull is returned by Submit when no slot is free.
var ErrQueueFull = errors.New("generation queue is full")

// Job tracks one report generation.
type Job struct {
	mu sync.Mutex

	ID        string
	StockCode string
	CreatedAt time.Time

	status    JobStatus
	err       string
	position  string
	date      time.Time
	updatedAt time.Time
}

func newJob(code string) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		StockCode: store.NormalizeCode(code),
		CreatedAt: now,
		status:    StatusQueued,
		updatedAt: now,
	}
}

func (j *Job) setStatus(s JobStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = s
	j.updatedAt = time.Now()
}

func (j *Job) finish(r *store.Report, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.updatedAt = time.Now()
	if err != nil {
		j.status = StatusFailed
		j.err = err.Error()
		return
	}
	j.status = StatusCompleted
	j.position = r.Position
	j.date = r.Date
}

// JobSnapshot is a JSON-safe copy of a job.
type JobSnapshot struct {
	ID        string    `json:"job_id"`
	StockCode string    `json:"stock_code"`
	Status    JobStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
	Position  string    `json:"sentiment_position,omitempty"`
	Date      string    `json:"report_date,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	snap := JobSnapshot{
		ID:        j.ID,
		StockCode: j.StockCode,
		Status:    j.status,
		Error:     j.err,
		Position:  j.position,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.updatedAt,
	}
	if !j.date.IsZero() {
		snap.Date = j.date.Format("2006-01-02")
	}
	return snap
}

// Queue runs generations on a fixed worker pool and remembers recent
// jobs for ttl after their last update.
type Queue struct {
	gen     *Generator
	log     *slog.Logger
	workers int
	ttl     time.Duration
	pending chan *Job

	mu   sync.Mutex
	jobs map[string]*Job

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewQueue(gen *Generator, log *slog.Logger, workers, size int, ttl time.Duration) *Queue {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Queue{
		gen:     gen,
		log:     log,
		workers: max(workers, 1),
		ttl:     ttl,
		pending: make(chan *Job, max(size, 1)),
		jobs:    make(map[string]*Job),
	}
}

// Start launches the workers and the expiry loop.
func (q *Queue) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel

	for range q.workers {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-q.pending:
					if !ok {
						return
					}
					q.process(workerCtx, job)
				}
			}
		}()
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				q.Cleanup()
			}
		}
	}()
}

// Stop cancels running generations and waits for the workers.
func (q *Queue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}
	close(q.pending)
	q.wg.Wait()
}

// Submit queues a generation for code.
func (q *Queue) Submit(code string) (*Job, error) {
	job := newJob(code)
	q.mu.Lock()
	q.jobs[job.ID] = job
	q.mu.Unlock()

	select {
	case q.pending <- job:
		q.log.Info("generation queued", "job_id", job.ID, "stock_code", job.StockCode)
		return job, nil
	default:
		job.finish(nil, ErrQueueFull)
		return job, ErrQueueFull
	}
}

// Job returns a job by id, or nil.
func (q *Queue) Job(id string) *Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.jobs[id]
}

// Depth is the number of jobs waiting for a worker.
func (q *Queue) Depth() int {
	return len(q.pending)
}

// Cleanup forgets finished jobs not updated within ttl.
func (q *Queue) Cleanup() {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := time.Now()
	for id, job := range q.jobs {
		snap := job.Snapshot()
		if snap.Status != StatusCompleted && snap.Status != StatusFailed {
			continue
		}
		if now.Sub(snap.UpdatedAt) > q.ttl {
			delete(q.jobs, id)
		}
	}
}

func (q *Queue) process(ctx context.Context, job *Job) {
	log := q.log.With("job_id", job.ID, "stock_code", job.StockCode)
	job.setStatus(StatusGenerating)
	r, err := q.gen.Generate(ctx, job.StockCode)
	if err != nil {
		log.Error("generation failed", "error", err)
	}
	job.finish(r, err)
}
