package activity

import (
	"time"

	"github.com/coreplane/activityd/internal/shared/types"
)

// Schedule is the wall-clock moment at which an activity becomes eligible,
// with an optional repeat interval applied on restart.
type Schedule struct {
	start    time.Time
	interval time.Duration
}

// ParseSchedule builds a schedule from its definition. Start accepts
// RFC 3339; Relative is a duration offset from now. Both empty means
// eligible immediately once the interval, if any, anchors at now.
func ParseSchedule(def *types.ScheduleDef, now time.Time) (*Schedule, error) {
	s := &Schedule{}

	if def.Start != "" {
		start, err := time.Parse(time.RFC3339, def.Start)
		if err != nil {
			return nil, types.InvalidArg("schedule start must be RFC 3339: %v", err)
		}
		s.start = start
	} else if def.Relative != "" {
		d, err := time.ParseDuration(def.Relative)
		if err != nil || d < 0 {
			return nil, types.InvalidArg("schedule relative must be a non-negative duration")
		}
		s.start = now.Add(d)
	} else {
		s.start = now
	}

	if def.Interval != "" {
		d, err := time.ParseDuration(def.Interval)
		if err != nil || d <= 0 {
			return nil, types.InvalidArg("schedule interval must be a positive duration")
		}
		s.interval = d
	}

	return s, nil
}

// Reached reports whether the start moment has passed.
func (s *Schedule) Reached(now time.Time) bool {
	return !s.start.After(now)
}

// Start returns the scheduled start moment.
func (s *Schedule) Start() time.Time {
	return s.start
}

// Interval returns the repeat interval, zero if none.
func (s *Schedule) Interval() time.Duration {
	return s.interval
}

// Advance moves the start moment to the first interval boundary after now.
// Returns false if the schedule has no interval.
func (s *Schedule) Advance(now time.Time) bool {
	if s.interval <= 0 {
		return false
	}
	for !s.start.After(now) {
		s.start = s.start.Add(s.interval)
	}
	return true
}

// Definition renders the schedule back to its definition form.
func (s *Schedule) Definition() *types.ScheduleDef {
	def := &types.ScheduleDef{Start: s.start.Format(time.RFC3339)}
	if s.interval > 0 {
		def.Interval = s.interval.String()
	}
	return def
}
