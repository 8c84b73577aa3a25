package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Job is a unit of asynchronous work routed to a registered handler by type.
type Job struct {
	ID       string
	Type     string
	Payload  map[string]interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a single job. Returning an error triggers a retry while
// attempts remain.
type Handler func(ctx context.Context, job Job) error

// QueueConfig tunes the in-process worker pool.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Queue is an in-process job queue with a fixed worker pool.
type Queue struct {
	cfg      QueueConfig
	jobs     chan Job
	handlers map[string]Handler
	mu       sync.RWMutex
	wg       sync.WaitGroup
	cancel   context.CancelFunc
	log      *zap.Logger
}

// ErrQueueFull is returned when the buffer cannot accept more jobs.
var ErrQueueFull = errors.New("job queue is full")

// NewQueue builds a queue. Start must be called before enqueueing.
func NewQueue(cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 64
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Queue{
		cfg:      cfg,
		jobs:     make(chan Job, cfg.BufferSize),
		handlers: make(map[string]Handler),
		log:      log,
	}
}

// Register binds a handler to a job type.
func (q *Queue) Register(jobType string, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[jobType] = h
}

// Start launches the worker pool.
func (q *Queue) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
}

// Stop signals workers to finish and waits for them to drain.
func (q *Queue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}
	q.wg.Wait()
}

// Enqueue submits a job. The ID is assigned when empty.
func (q *Queue) Enqueue(job Job) (string, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Enqueued = time.Now().UTC()

	select {
	case q.jobs <- job:
		return job.ID, nil
	default:
		return "", ErrQueueFull
	}
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.jobs:
			q.process(ctx, job)
		}
	}
}

func (q *Queue) process(ctx context.Context, job Job) {
	q.mu.RLock()
	handler, ok := q.handlers[job.Type]
	q.mu.RUnlock()
	if !ok {
		q.log.Error("no handler registered for job type",
			zap.String("job_id", job.ID),
			zap.String("job_type", job.Type))
		return
	}

	if err := handler(ctx, job); err != nil {
		q.handleFailure(ctx, job, err)
	}
}

func (q *Queue) handleFailure(ctx context.Context, job Job, err error) {
	if job.Attempt >= q.cfg.MaxRetries {
		q.log.Error("job failed permanently",
			zap.String("job_id", job.ID),
			zap.String("job_type", job.Type),
			zap.Int("attempts", job.Attempt+1),
			zap.Error(err))
		return
	}

	job.Attempt++
	q.log.Warn("job failed, scheduling retry",
		zap.String("job_id", job.ID),
		zap.String("job_type", job.Type),
		zap.Int("attempt", job.Attempt),
		zap.Error(err))

	go func() {
		select {
		case <-ctx.Done():
		case <-time.After(q.cfg.RetryDelay):
			select {
			case q.jobs <- job:
			default:
				q.log.Error("retry dropped, queue full", zap.String("job_id", job.ID))
			}
		}
	}()
}
