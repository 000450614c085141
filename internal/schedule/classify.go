// Package schedule derives entry lifecycle status and validates candidate
// window updates against the rest of a container. All functions are pure:
// "now" is always a parameter, never read from the clock.
package schedule

import (
	"time"

	"overdesk/internal/model"
	"overdesk/internal/timewindow"
)

// Classification is the derived read-time state of an entry. Status is the
// four-state lifecycle label; Live is the independent "in force right now"
// boolean used by dashboards. The label conflates live and boundary cases,
// so both are exposed.
type Classification struct {
	Status model.Status `json:"status"`
	Live   bool         `json:"live"`
}

// Classify derives the lifecycle state of a window relative to now.
func Classify(engaged bool, start, end, now time.Time) Classification {
	if !engaged {
		return Classification{Status: model.StatusDisengaged}
	}
	switch {
	case now.Before(start):
		return Classification{Status: model.StatusPending}
	case now.After(end):
		return Classification{Status: model.StatusElapsed}
	default:
		return Classification{
			Status: model.StatusEngagedNow,
			Live:   timewindow.IsWithin(now, start, end),
		}
	}
}

// ClassifyEntry classifies an entry from its wire-format timestamps.
// Malformed timestamps degrade to disengaged/not-live so display paths never
// abort on bad vendor data; callers log the condition if they care.
func ClassifyEntry(e model.Entry, now time.Time) Classification {
	start, err := timewindow.ParseInstant(e.Start)
	if err != nil {
		return Classification{Status: model.StatusDisengaged}
	}
	end, err := timewindow.ParseInstant(e.End)
	if err != nil {
		return Classification{Status: model.StatusDisengaged}
	}
	return Classify(e.Engaged, start, end, now)
}
