// Package scheduler runs the daily background jobs: the missed-commitment
// sweep and dealer health scoring.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobStatus represents the status of a scheduled job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// Task is the work a job performs for a given as-of time
type Task func(ctx context.Context, asOf time.Time) error

// Job is one execution of a named task
type Job struct {
	ID          uuid.UUID
	Name        string
	AsOf        time.Time
	Status      JobStatus
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	Attempts    int

	task Task
}

// NewJob creates a pending job
func NewJob(name string, asOf time.Time, task Task) *Job {
	return &Job{
		ID:     uuid.New(),
		Name:   name,
		AsOf:   asOf,
		Status: JobStatusPending,
		task:   task,
	}
}

func (j *Job) start(now time.Time) {
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Error = ""
	j.Attempts++
}

func (j *Job) finish(now time.Time, err error) {
	j.CompletedAt = &now
	if err != nil {
		j.Status = JobStatusFailed
		j.Error = err.Error()
		return
	}
	j.Status = JobStatusSuccess
}

// Config holds scheduler configuration
type Config struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
	// MaxAttempts counts the first run; 1 disables retries
	MaxAttempts int
	RetryDelay  time.Duration
}

// DefaultConfig returns the defaults used when config leaves fields unset
func DefaultConfig() Config {
	return Config{
		Workers:     2,
		QueueSize:   16,
		JobTimeout:  30 * time.Minute,
		MaxAttempts: 3,
		RetryDelay:  time.Minute,
	}
}

func (c Config) validate() error {
	if c.Workers < 1 || c.QueueSize < 1 || c.MaxAttempts < 1 {
		return fmt.Errorf("%w: workers=%d queue=%d attempts=%d",
			ErrInvalidConfig, c.Workers, c.QueueSize, c.MaxAttempts)
	}
	return nil
}

// JobObserver is told about every finished job. Optional.
type JobObserver interface {
	JobFinished(ctx context.Context, job *Job, elapsed time.Duration)
}

// Scheduler is a fixed worker pool draining a bounded job queue
type Scheduler struct {
	config   Config
	logger   *zap.Logger
	observer JobObserver

	jobs    chan *Job
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// New creates a scheduler
func New(cfg Config, logger *zap.Logger) (*Scheduler, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Scheduler{
		config: cfg,
		logger: logger.Named("scheduler"),
		jobs:   make(chan *Job, cfg.QueueSize),
	}, nil
}

// SetObserver installs a job observer. Call before Start.
func (s *Scheduler) SetObserver(o JobObserver) {
	s.observer = o
}

// Start launches the workers
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.running = true

	ctx, s.cancel = context.WithCancel(ctx)
	for i := range s.config.Workers {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("Scheduler started",
		zap.Int("workers", s.config.Workers),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop cancels running jobs and waits for the workers, bounded by ctx
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// Submit queues a job without blocking
func (s *Scheduler) Submit(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrSchedulerNotRunning
	}

	select {
	case s.jobs <- job:
		s.logger.Debug("Job submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("job", job.Name),
		)
		return nil
	default:
		return ErrJobQueueFull
	}
}

func (s *Scheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.jobs:
			s.run(ctx, job, workerID)
		}
	}
}

// run executes a job, retrying in place after RetryDelay until MaxAttempts
func (s *Scheduler) run(ctx context.Context, job *Job, workerID int) {
	log := s.logger.With(
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("job", job.Name),
	)

	for {
		started := time.Now()
		job.start(started)
		log.Info("Running job", zap.Int("attempt", job.Attempts))

		err := s.execute(ctx, job)
		job.finish(time.Now(), err)
		if s.observer != nil {
			s.observer.JobFinished(ctx, job, time.Since(started))
		}
		if err == nil {
			log.Info("Job completed", zap.Duration("elapsed", time.Since(started)))
			return
		}

		log.Error("Job failed", zap.Int("attempt", job.Attempts), zap.Error(err))
		if job.Attempts >= s.config.MaxAttempts {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.config.RetryDelay):
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, job *Job) (err error) {
	if s.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.JobTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job.task(ctx, job.AsOf)
}
