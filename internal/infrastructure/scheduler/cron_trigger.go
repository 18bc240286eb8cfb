package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DailyJob is a task fired once per UTC day at Hour:Minute
type DailyJob struct {
	Name   string
	Hour   int
	Minute int
	Task   Task
}

// DailyTrigger submits each registered job to the scheduler when the clock
// reaches its time of day. A job fires at most once per date.
type DailyTrigger struct {
	scheduler     *Scheduler
	checkInterval time.Duration
	now           func() time.Time
	logger        *zap.Logger

	mu      sync.Mutex
	jobs    []DailyJob
	lastRun map[string]string
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewDailyTrigger creates a trigger polling every checkInterval
func NewDailyTrigger(s *Scheduler, checkInterval time.Duration, logger *zap.Logger) *DailyTrigger {
	if checkInterval <= 0 {
		checkInterval = time.Minute
	}
	return &DailyTrigger{
		scheduler:     s,
		checkInterval: checkInterval,
		now:           func() time.Time { return time.Now().UTC() },
		logger:        logger.Named("daily_trigger"),
		lastRun:       make(map[string]string),
	}
}

// Register adds a job. Names must be unique.
func (t *DailyTrigger) Register(job DailyJob) error {
	if job.Hour < 0 || job.Hour > 23 || job.Minute < 0 || job.Minute > 59 {
		return fmt.Errorf("%w: %s at %02d:%02d", ErrInvalidConfig, job.Name, job.Hour, job.Minute)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, j := range t.jobs {
		if j.Name == job.Name {
			return fmt.Errorf("%w: duplicate job %s", ErrInvalidConfig, job.Name)
		}
	}
	t.jobs = append(t.jobs, job)
	return nil
}

// Start begins polling
func (t *DailyTrigger) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return
	}
	ctx, t.cancel = context.WithCancel(ctx)
	t.wg.Add(1)
	go t.loop(ctx)
	t.logger.Info("Daily trigger started", zap.Int("jobs", len(t.jobs)))
}

// Stop ends polling and waits for the loop to exit
func (t *DailyTrigger) Stop() {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	t.wg.Wait()
}

func (t *DailyTrigger) loop(ctx context.Context) {
	defer t.wg.Done()
	ticker := time.NewTicker(t.checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.tick(t.now())
		}
	}
}

// tick fires every job whose time has come today and has not yet run today.
// A job missed because the process was down fires on the next tick past
// its time.
func (t *DailyTrigger) tick(now time.Time) {
	date := now.Format(time.DateOnly)

	t.mu.Lock()
	var due []DailyJob
	for _, job := range t.jobs {
		if t.lastRun[job.Name] == date {
			continue
		}
		at := time.Date(now.Year(), now.Month(), now.Day(), job.Hour, job.Minute, 0, 0, now.Location())
		if now.Before(at) {
			continue
		}
		t.lastRun[job.Name] = date
		due = append(due, job)
	}
	t.mu.Unlock()

	for _, job := range due {
		if err := t.scheduler.Submit(NewJob(job.Name, now, job.Task)); err != nil {
			t.logger.Error("Failed to submit daily job", zap.String("job", job.Name), zap.Error(err))
			continue
		}
		t.logger.Info("Daily job triggered", zap.String("job", job.Name), zap.String("date", date))
	}
}

// RunNow submits a registered job immediately, outside the daily cadence
func (t *DailyTrigger) RunNow(name string, asOf time.Time) error {
	t.mu.Lock()
	var found *DailyJob
	for i := range t.jobs {
		if t.jobs[i].Name == name {
			found = &t.jobs[i]
			break
		}
	}
	t.mu.Unlock()
	if found == nil {
		return fmt.Errorf("unknown job %q", name)
	}
	return t.scheduler.Submit(NewJob(found.Name, asOf, found.Task))
}
