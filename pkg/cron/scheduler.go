package cron

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule reads a command-line schedule: "@every <duration>", an RFC 3339
// timestamp, a descriptor such as "@hourly", or a 5-field cron expression.
func ParseSchedule(spec string) (Schedule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Schedule{}, fmt.Errorf("empty schedule")
	}

	if rest, ok := strings.CutPrefix(spec, "@every "); ok {
		every, err := time.ParseDuration(strings.TrimSpace(rest))
		if err != nil {
			return Schedule{}, fmt.Errorf("invalid interval: %w", err)
		}
		schedule := Schedule{Kind: ScheduleKindEvery, Every: every}
		return schedule, schedule.Validate()
	}

	if at, err := time.Parse(time.RFC3339, spec); err == nil {
		return Schedule{Kind: ScheduleKindAt, At: at}, nil
	}

	schedule := Schedule{Kind: ScheduleKindCron, Expr: spec}
	return schedule, schedule.Validate()
}

// Validate reports whether the schedule can produce a run time.
func (s Schedule) Validate() error {
	switch s.Kind {
	case ScheduleKindAt:
		if s.At.IsZero() {
			return fmt.Errorf("'at' schedule requires a timestamp")
		}
	case ScheduleKindEvery:
		if s.Every <= 0 {
			return fmt.Errorf("'every' schedule requires a positive interval")
		}
	case ScheduleKindCron:
		if s.Expr == "" {
			return fmt.Errorf("'cron' schedule requires an expression")
		}
		if _, err := cronParser.Parse(s.Expr); err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		if _, err := s.location(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown schedule kind: %s", s.Kind)
	}
	return nil
}

// Next calculates the first run time strictly after now. An "at" schedule always
// returns its timestamp; the caller decides whether it already ran.
func (s Schedule) Next(now time.Time) (time.Time, error) {
	switch s.Kind {
	case ScheduleKindAt:
		if s.At.IsZero() {
			return time.Time{}, fmt.Errorf("'at' schedule requires a timestamp")
		}
		return s.At, nil
	case ScheduleKindEvery:
		return s.nextEvery(now)
	case ScheduleKindCron:
		return s.nextCron(now)
	default:
		return time.Time{}, fmt.Errorf("unknown schedule kind: %s", s.Kind)
	}
}

func (s Schedule) nextEvery(now time.Time) (time.Time, error) {
	if s.Every <= 0 {
		return time.Time{}, fmt.Errorf("'every' schedule requires a positive interval")
	}

	if s.Anchor == nil {
		return now.Add(s.Every), nil
	}

	anchor := *s.Anchor
	elapsed := now.Sub(anchor)
	if elapsed < 0 {
		return anchor, nil
	}

	periods := elapsed / s.Every
	return anchor.Add((periods + 1) * s.Every), nil
}

func (s Schedule) nextCron(now time.Time) (time.Time, error) {
	sched, err := cronParser.Parse(s.Expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression: %w", err)
	}

	loc, err := s.location()
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(now.In(loc)), nil
}

func (s Schedule) location() (*time.Location, error) {
	if s.TZ == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(s.TZ)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}
	return loc, nil
}
