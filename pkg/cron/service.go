package cron

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Service runs in-process jobs on cron schedules
type Service struct {
	jobs    map[string]*Job
	timers  map[string]*time.Timer
	options ServiceOptions
	mu      sync.RWMutex
	wg      sync.WaitGroup
	stopped bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewService creates a cron service
func NewService(opts ServiceOptions) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Service{
		jobs:    make(map[string]*Job),
		timers:  make(map[string]*time.Timer),
		options: opts,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// AddJob validates and schedules a job
func (s *Service) AddJob(params AddParams) (*Job, error) {
	if params.Name == "" {
		return nil, fmt.Errorf("job name is required")
	}
	if params.Run == nil {
		return nil, fmt.Errorf("job function is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil, fmt.Errorf("service is stopped")
	}

	next, err := NextRun(params.Schedule, s.options.Now())
	if err != nil {
		return nil, fmt.Errorf("invalid schedule: %w", err)
	}

	job := &Job{
		ID:       uuid.New().String(),
		Name:     params.Name,
		Schedule: params.Schedule,
		State:    JobState{NextRunAt: next},
		run:      params.Run,
	}
	s.jobs[job.ID] = job
	s.scheduleJobLocked(job)

	log.Info().
		Str("jobId", job.ID).
		Str("name", job.Name).
		Str("schedule", job.Schedule).
		Time("nextRun", next).
		Msg("Cron job added")

	s.emit(Event{Action: EventActionAdded, JobID: job.ID, Name: job.Name, NextRunAt: next})

	return snapshot(job), nil
}

// RemoveJob cancels and forgets a job
func (s *Service) RemoveJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	s.cancelJobLocked(id)
	delete(s.jobs, id)

	s.emit(Event{Action: EventActionRemoved, JobID: id, Name: job.Name})
	return nil
}

// RunJob runs a job now, outside its schedule, and waits for it
func (s *Service) RunJob(id string) error {
	s.mu.RLock()
	job, exists := s.jobs[id]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	return s.executeJob(job, false)
}

// ListJobs returns job snapshots ordered by next run
func (s *Service) ListJobs() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, snapshot(job))
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].State.NextRunAt.Before(jobs[j].State.NextRunAt)
	})
	return jobs
}

// GetJob returns a job snapshot, or nil
func (s *Service) GetJob(id string) *Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[id]
	if !exists {
		return nil
	}
	return snapshot(job)
}

// Stop cancels every timer and waits for running jobs
func (s *Service) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.cancel()
	for id := range s.timers {
		s.cancelJobLocked(id)
	}
	s.mu.Unlock()

	s.wg.Wait()
	log.Info().Msg("Cron service stopped")

	return nil
}

// scheduleJobLocked arms the job's timer (must hold lock)
func (s *Service) scheduleJobLocked(job *Job) {
	delay := job.State.NextRunAt.Sub(s.options.Now())
	if delay < 0 {
		delay = 0
	}

	s.timers[job.ID] = time.AfterFunc(delay, func() {
		_ = s.executeJob(job, true)
	})

	log.Debug().
		Str("jobId", job.ID).
		Dur("delay", delay).
		Time("nextRun", job.State.NextRunAt).
		Msg("Job scheduled")
}

// cancelJobLocked stops a job's timer (must hold lock)
func (s *Service) cancelJobLocked(id string) {
	if timer, exists := s.timers[id]; exists {
		timer.Stop()
		delete(s.timers, id)
	}
}

// executeJob runs a job once. Scheduled runs re-arm the timer afterwards.
func (s *Service) executeJob(job *Job, scheduled bool) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("service is stopped")
	}
	if _, exists := s.jobs[job.ID]; !exists {
		s.mu.Unlock()
		return fmt.Errorf("job not found: %s", job.ID)
	}
	if job.State.RunningSince != nil {
		s.mu.Unlock()
		log.Debug().Str("jobId", job.ID).Msg("Job already running, skipping execution")
		return fmt.Errorf("job %s is already running", job.Name)
	}
	start := s.options.Now()
	job.State.RunningSince = &start
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	ctx := s.ctx
	if s.options.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.options.JobTimeout)
		defer cancel()
	}

	log.Info().Str("jobId", job.ID).Str("name", job.Name).Msg("Executing job")
	err := job.run(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	duration := s.options.Now().Sub(start)
	job.State.RunningSince = nil
	job.State.LastRunAt = &start
	job.State.LastDuration = duration
	job.State.Runs++

	if err != nil {
		job.State.LastStatus = "error"
		job.State.LastError = err.Error()
		job.State.ConsecutiveErrors++
		log.Error().
			Str("jobId", job.ID).
			Str("name", job.Name).
			Err(err).
			Int("consecutiveErrors", job.State.ConsecutiveErrors).
			Msg("Job execution failed")
	} else {
		job.State.LastStatus = "ok"
		job.State.LastError = ""
		job.State.ConsecutiveErrors = 0
		log.Info().
			Str("jobId", job.ID).
			Str("name", job.Name).
			Dur("duration", duration).
			Msg("Job execution completed")
	}

	if scheduled && !s.stopped {
		if _, exists := s.jobs[job.ID]; exists {
			// from the previous slot so a slow run cannot fire twice in one minute
			from := job.State.NextRunAt
			if now := s.options.Now(); now.After(from) {
				from = now
			}
			next, calcErr := NextRun(job.Schedule, from)
			if calcErr != nil {
				log.Error().Str("jobId", job.ID).Err(calcErr).Msg("Failed to calculate next run")
			} else {
				job.State.NextRunAt = next
				s.scheduleJobLocked(job)
			}
		}
	}

	s.emit(Event{
		Action:    EventActionFinished,
		JobID:     job.ID,
		Name:      job.Name,
		Status:    job.State.LastStatus,
		Error:     job.State.LastError,
		Duration:  duration,
		NextRunAt: job.State.NextRunAt,
	})

	return err
}

func (s *Service) emit(event Event) {
	if s.options.OnEvent != nil {
		s.options.OnEvent(event)
	}
}

func snapshot(job *Job) *Job {
	cp := *job
	cp.run = nil
	return &cp
}
