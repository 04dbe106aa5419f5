package cron

import (
	"context"
	"time"
)

// JobFunc is the work a job performs on each run
type JobFunc func(ctx context.Context) error

// JobState tracks a job's runtime state
type JobState struct {
	NextRunAt         time.Time     `json:"next_run_at"`
	RunningSince      *time.Time    `json:"running_since,omitempty"`
	LastRunAt         *time.Time    `json:"last_run_at,omitempty"`
	LastDuration      time.Duration `json:"last_duration,omitempty"`
	LastStatus        string        `json:"last_status,omitempty"` // "ok" or "error"
	LastError         string        `json:"last_error,omitempty"`
	ConsecutiveErrors int           `json:"consecutive_errors"`
	Runs              int           `json:"runs"`
}

// Job is a recurring job on a cron expression
type Job struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Schedule string   `json:"schedule"`
	State    JobState `json:"state"`
	run      JobFunc
}

// AddParams describes a job to add
type AddParams struct {
	Name     string
	Schedule string // standard five-field cron expression, optionally prefixed with CRON_TZ=
	Run      JobFunc
}

// EventAction is what happened to a job
type EventAction string

const (
	EventActionAdded    EventAction = "added"
	EventActionFinished EventAction = "finished"
	EventActionRemoved  EventAction = "removed"
)

// Event is emitted on job lifecycle changes
type Event struct {
	Action    EventAction
	JobID     string
	Name      string
	Status    string
	Error     string
	Duration  time.Duration
	NextRunAt time.Time
}

// ServiceOptions configures the service
type ServiceOptions struct {
	// Now overrides the clock, mostly for tests
	Now func() time.Time
	// JobTimeout bounds a single run. Zero means no bound.
	JobTimeout time.Duration
	// OnEvent is called after lifecycle changes, with the service lock held.
	// It must not call back into the service.
	OnEvent func(Event)
}
