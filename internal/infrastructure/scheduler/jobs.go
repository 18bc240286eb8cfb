package scheduler

import "github.com/dealerops/backend/internal/infrastructure/config"

const (
	JobMissedSweep    = "commitment_missed_sweep"
	JobHealthScoring  = "dealer_health_scoring"
	defaultMaxRetries = 3
)

// ConfigFrom maps the scheduler section of the service config, keeping
// defaults for unset fields
func ConfigFrom(cfg config.SchedulerConfig) Config {
	out := DefaultConfig()
	if cfg.Workers > 0 {
		out.Workers = cfg.Workers
	}
	if cfg.QueueSize > 0 {
		out.QueueSize = cfg.QueueSize
	}
	if cfg.JobTimeout > 0 {
		out.JobTimeout = cfg.JobTimeout
	}
	out.MaxAttempts = defaultMaxRetries
	return out
}

// DailyJobs builds the sweep and scoring jobs at their configured times
func DailyJobs(cfg config.SchedulerConfig, sweep, score Task) []DailyJob {
	return []DailyJob{
		{Name: JobMissedSweep, Hour: cfg.SweepHour, Minute: cfg.SweepMinute, Task: sweep},
		{Name: JobHealthScoring, Hour: cfg.HealthHour, Minute: cfg.HealthMinute, Task: score},
	}
}
