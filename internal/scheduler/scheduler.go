package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	jobdomain "maildigest/internal/job/domain"
	jobrepo "maildigest/internal/job/repository"
)

// JobRunner executes one job configuration. The scheduler materializes the
// latest configuration before every run; the runner only has to dispatch.
type JobRunner interface {
	Run(ctx context.Context, job jobdomain.JobConfig) error
}

// entry is the in-memory cache of one scheduled job. The authoritative next
// execution time is persisted on the job config; this map only exists so a
// tick does not hit the database for due-ness checks.
type entry struct {
	jobID    string
	next     time.Time
	inFlight bool
}

// Scheduler maintains the due-time-ordered job set and executes due jobs in
// bounded parallel batches on a fixed tick.
type Scheduler struct {
	jobs     jobrepo.JobConfigRepository
	runner   JobRunner
	interval time.Duration
	limit    int

	mu      sync.Mutex
	entries map[string]*entry

	stopChan chan struct{}
	started  bool
}

// New creates a new scheduler
func New(jobs jobrepo.JobConfigRepository, runner JobRunner, interval time.Duration, limit int) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if limit <= 0 {
		limit = 3
	}
	return &Scheduler{
		jobs:     jobs,
		runner:   runner,
		interval: interval,
		limit:    limit,
		entries:  make(map[string]*entry),
		stopChan: make(chan struct{}),
	}
}

// Start rehydrates the job set from storage and begins the tick loop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	if err := s.Rehydrate(); err != nil {
		log.Printf("[Scheduler] Failed to rehydrate job set: %v", err)
	}

	log.Printf("[Scheduler] Starting (tick: %s, concurrency: %d)", s.interval, s.limit)

	go func() {
		// Run immediately on start
		s.Tick(time.Now())

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.Tick(time.Now())
			case <-s.stopChan:
				log.Println("[Scheduler] Stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the tick loop. In-flight jobs finish on their own.
func (s *Scheduler) Stop() {
	close(s.stopChan)
}

// Rehydrate loads all active job configs and (re)schedules them. Persisted
// next execution times are kept when still in the future, so a restart does
// not reset every schedule.
func (s *Scheduler) Rehydrate() error {
	jobs, err := s.jobs.GetActive()
	if err != nil {
		return err
	}
	for i := range jobs {
		job := jobs[i]
		if job.NextExecution != nil && job.NextExecution.After(time.Now()) {
			s.mu.Lock()
			s.entries[job.ID] = &entry{jobID: job.ID, next: *job.NextExecution}
			s.mu.Unlock()
			continue
		}
		s.Schedule(&job)
	}
	log.Printf("[Scheduler] Rehydrated %d jobs", len(jobs))
	return nil
}

// Schedule computes the next execution for a job config and inserts or
// updates its entry. Inactive configs and configs without a schedule are a
// no-op; an unparseable schedule unschedules the job with a warning.
func (s *Scheduler) Schedule(job *jobdomain.JobConfig) {
	if !job.Active || job.Schedule == "" {
		return
	}

	next, ok := NextExecution(job.Schedule, time.Now())
	if !ok {
		log.Printf("[Scheduler] Unsupported schedule %q for job %s, unscheduling", job.Schedule, job.ID)
		s.Unschedule(job.ID)
		return
	}

	s.mu.Lock()
	if e, exists := s.entries[job.ID]; exists {
		e.next = next
	} else {
		s.entries[job.ID] = &entry{jobID: job.ID, next: next}
	}
	s.mu.Unlock()

	if err := s.jobs.UpdateNextExecution(job.ID, &next); err != nil {
		log.Printf("[Scheduler] Failed to persist next execution for job %s: %v", job.ID, err)
	}
}

// Unschedule removes a job from the set; idempotent.
func (s *Scheduler) Unschedule(jobID string) {
	s.mu.Lock()
	delete(s.entries, jobID)
	s.mu.Unlock()

	if err := s.jobs.UpdateNextExecution(jobID, nil); err != nil {
		log.Printf("[Scheduler] Failed to clear next execution for job %s: %v", jobID, err)
	}
}

// Tick collects due jobs and executes them in batches of the concurrency
// limit. Each batch runs fully in parallel and the next batch only starts
// after the previous one has settled, so no more than limit jobs are ever
// in flight. A job already in flight from a previous tick is skipped: the
// interval design alone would re-select a slow job on every tick.
func (s *Scheduler) Tick(now time.Time) {
	due := s.collectDue(now)
	if len(due) == 0 {
		return
	}

	log.Printf("[Scheduler] %d jobs due", len(due))

	for start := 0; start < len(due); start += s.limit {
		end := start + s.limit
		if end > len(due) {
			end = len(due)
		}
		batch := due[start:end]

		var wg sync.WaitGroup
		for _, jobID := range batch {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				s.execute(id)
			}(jobID)
		}
		wg.Wait()
	}
}

// collectDue marks every due, not-in-flight job as in flight and returns its
// id. The in-flight flag is only cleared after the job has been rescheduled,
// which makes a second concurrent execution of the same config impossible.
func (s *Scheduler) collectDue(now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []string
	for _, e := range s.entries {
		if e.inFlight || e.next.After(now) {
			continue
		}
		e.inFlight = true
		due = append(due, e.jobID)
	}
	return due
}

// execute runs one job against the latest persisted configuration and
// reschedules it relative to completion time. Missed deadlines are skipped,
// not replayed: a job that was due three times while blocked still runs once.
func (s *Scheduler) execute(jobID string) {
	defer s.clearInFlight(jobID)

	job, err := s.jobs.GetByID(jobID)
	if err != nil {
		log.Printf("[Scheduler] Failed to load job %s: %v", jobID, err)
		return
	}
	if job == nil || !job.Active {
		// Deactivated or deleted since it was scheduled
		s.Unschedule(jobID)
		return
	}

	started := time.Now()
	if err := s.runner.Run(context.Background(), *job); err != nil {
		log.Printf("[Scheduler] Job %s (%s) failed: %v", job.ID, job.JobType, err)
	} else {
		log.Printf("[Scheduler] Job %s (%s) completed in %s", job.ID, job.JobType, time.Since(started).Round(time.Millisecond))
	}

	if err := s.jobs.MarkRan(job.ID, time.Now()); err != nil {
		log.Printf("[Scheduler] Failed to record run for job %s: %v", job.ID, err)
	}

	s.Schedule(job)
}

func (s *Scheduler) clearInFlight(jobID string) {
	s.mu.Lock()
	if e, ok := s.entries[jobID]; ok {
		e.inFlight = false
	}
	s.mu.Unlock()
}
