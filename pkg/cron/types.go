package cron

import "time"

// ScheduleKind represents the type of schedule
type ScheduleKind string

const (
	ScheduleKindAt    ScheduleKind = "at"
	ScheduleKindEvery ScheduleKind = "every"
	ScheduleKindCron  ScheduleKind = "cron"
)

// Schedule describes when recipe runs are due
type Schedule struct {
	Kind ScheduleKind `json:"kind"`

	// For "at" schedule
	At time.Time `json:"at,omitempty"`

	// For "every" schedule
	Every  time.Duration `json:"every,omitempty"`
	Anchor *time.Time    `json:"anchor,omitempty"` // Optional alignment point

	// For "cron" schedule
	Expr string `json:"expr,omitempty"` // 5-field expression or @descriptor
	TZ   string `json:"tz,omitempty"`
}

// RunStatus is the outcome of one scheduled run.
type RunStatus string

const (
	StatusOK    RunStatus = "ok"
	StatusError RunStatus = "error"
)

// JobState tracks runtime state of a scheduled job
type JobState struct {
	Runs              int           `json:"runs"`
	NextRunAt         *time.Time    `json:"nextRunAt,omitempty"`
	LastRunAt         *time.Time    `json:"lastRunAt,omitempty"`
	LastStatus        RunStatus     `json:"lastStatus,omitempty"`
	LastError         string        `json:"lastError,omitempty"`
	LastDuration      time.Duration `json:"lastDuration,omitempty"`
	ConsecutiveErrors int           `json:"consecutiveErrors,omitempty"`
}

// Event is emitted after every run.
type Event struct {
	Run       int           `json:"run"`
	Status    RunStatus     `json:"status"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	NextRunAt *time.Time    `json:"nextRunAt,omitempty"`
}

func timePtr(t time.Time) *time.Time {
	return &t
}
