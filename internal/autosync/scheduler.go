package autosync

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trading-analytics-go/internal/config"
	"trading-analytics-go/internal/export"
	"trading-analytics-go/internal/models"
)

// Runner executes one export job to completion.
type Runner interface {
	Run(ctx context.Context, req export.Request) (*models.ExportJob, error)
}

// Status is the externally visible state of one schedule.
type Status struct {
	Platform  export.PlatformID `json:"platform"`
	Enabled   bool              `json:"enabled"`
	Frequency Frequency         `json:"frequency"`
	LastSync  *time.Time        `json:"last_sync,omitempty"`
	NextSync  *time.Time        `json:"next_sync,omitempty"`
	LastJob   string            `json:"last_job,omitempty"`
	Result    models.JobStatus  `json:"result,omitempty"`
}

type entry struct {
	schedule Schedule
	next     time.Time
	last     *time.Time
	lastJob  string
	result   models.JobStatus
}

// Scheduler fires exports for every enabled schedule when due.
type Scheduler struct {
	UUID      string
	Name      string
	StartTime time.Time

	logger   *zap.Logger
	runner   Runner
	account  string
	loc      *time.Location
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	entries map[export.PlatformID]*entry
}

// NewScheduler parses the configured schedules. Disabled schedules are kept
// so they show up in the status report.
func NewScheduler(runner Runner, cfg config.Sync, account string, loc *time.Location, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		UUID:      uuid.NewString(),
		Name:      "autosync",
		StartTime: time.Now(),
		logger:    logger.Named("autosync"),
		runner:    runner,
		account:   account,
		loc:       loc,
		interval:  time.Duration(cfg.TickInterval) * time.Second,
		now:       time.Now,
		entries:   make(map[export.PlatformID]*entry),
	}
	if s.interval <= 0 {
		s.interval = time.Minute
	}

	for platform, sc := range cfg.Schedules {
		parsed, err := ParseSchedule(platform, sc)
		if err != nil {
			return nil, err
		}
		s.entries[parsed.Platform] = &entry{schedule: parsed}
	}
	return s, nil
}

// Run starts the scheduler's main loop and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	s.start()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Starting sync loop", zap.Duration("interval", s.interval), zap.String("account", s.account))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping sync loop...")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// start plans the first firing of every enabled schedule.
func (s *Scheduler) start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().In(s.loc)
	for _, e := range s.entries {
		if e.schedule.Enabled {
			e.next = e.schedule.Next(now)
		}
	}
}

// Tick runs every export that is due. Exports run one after another.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now().In(s.loc)
	for _, e := range s.due(now) {
		logger := s.logger.With(zap.String("platform", string(e.schedule.Platform)))
		platform, err := export.LookupPlatform(e.schedule.Platform)
		if err != nil {
			logger.Error("Unknown platform in schedule", zap.Error(err))
			continue
		}

		logger.Info("Running scheduled export")
		job, err := s.runner.Run(ctx, export.Request{
			Account:  s.account,
			Platform: platform.ID,
			Config:   platform.Defaults,
		})

		s.mu.Lock()
		ran := now
		e.last = &ran
		e.next = e.schedule.Next(now)
		next := e.next
		if err != nil {
			e.lastJob, e.result = "", models.JobFailed
		} else {
			e.lastJob, e.result = job.JobID, job.Status
		}
		s.mu.Unlock()

		if err != nil {
			logger.Error("Scheduled export rejected", zap.Error(err))
			continue
		}
		logger.Info("Scheduled export finished",
			zap.String("job_id", job.JobID), zap.String("status", string(job.Status)), zap.Time("next", next))
	}
}

func (s *Scheduler) due(now time.Time) []*entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entry
	for _, e := range s.entries {
		if e.schedule.Enabled && !e.next.IsZero() && !now.Before(e.next) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].schedule.Platform < out[j].schedule.Platform })
	return out
}

// Status reports every schedule, ordered by platform.
func (s *Scheduler) Status() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Status, 0, len(s.entries))
	for _, e := range s.entries {
		st := Status{
			Platform:  e.schedule.Platform,
			Enabled:   e.schedule.Enabled,
			Frequency: e.schedule.Frequency,
			LastSync:  e.last,
			LastJob:   e.lastJob,
			Result:    e.result,
		}
		if !e.next.IsZero() {
			next := e.next
			st.NextSync = &next
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Platform < out[j].Platform })
	return out
}
