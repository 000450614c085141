package schedule

import (
	"fmt"
	"time"

	"overdesk/internal/model"
	"overdesk/internal/timewindow"
)

// Field tags surfaced to the operator console so the UI can attach each
// violation to the right form control.
const (
	FieldDateTime      = "dateTime"
	FieldStartDateTime = "startDateTime"
	FieldEndDateTime   = "endDateTime"
	FieldSchedule      = "schedule"
)

// FieldError is one business-rule violation, tagged with the form field it
// belongs to and the entry being edited. ConflictsWith names the other
// engaged entry for schedule conflicts.
type FieldError struct {
	Field         string `json:"field"`
	Entry         string `json:"entry"`
	Message       string `json:"message"`
	ConflictsWith string `json:"conflictsWith,omitempty"`
}

// Result carries every violation found so the operator can fix all issues in
// one round trip.
type Result struct {
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors,omitempty"`
}

// Validate checks a candidate update for targetName against the other entries
// of the same container. Violations accumulate rather than short-circuit,
// with two exceptions: an unparsable date skips the date-dependent checks,
// and the conflict scan stops at the first conflicting entry (the operator
// can only resolve one conflict at a time anyway).
//
// Only engaged entries participate in the conflict scan: a disengaged entry
// is a schedule that exists but is not in force, so it may overlap freely.
func Validate(entries []model.Entry, targetName string, cand model.CandidateUpdate, now time.Time) Result {
	var errs []FieldError

	start, startErr := timewindow.ParseInstant(cand.Start)
	end, endErr := timewindow.ParseInstant(cand.End)
	if startErr != nil || endErr != nil {
		errs = append(errs, FieldError{
			Field:   FieldDateTime,
			Entry:   targetName,
			Message: "start and end must be valid timestamps",
		})
		return Result{Valid: false, Errors: errs}
	}

	if !start.Before(end) {
		errs = append(errs, FieldError{
			Field:   FieldStartDateTime,
			Entry:   targetName,
			Message: "start must precede end",
		})
	}
	if end.Before(now) {
		errs = append(errs, FieldError{
			Field:   FieldEndDateTime,
			Entry:   targetName,
			Message: "cannot end in the past",
		})
	}

	if cand.Engaged {
		if conflict := findConflict(entries, targetName, start, end); conflict != nil {
			errs = append(errs, *conflict)
		}
	}

	return Result{Valid: len(errs) == 0, Errors: errs}
}

// findConflict returns the first engaged entry whose window overlaps the
// candidate window, or nil. Entries with unparsable windows are skipped;
// they cannot be meaningfully compared and display already degrades them to
// disengaged.
func findConflict(entries []model.Entry, targetName string, start, end time.Time) *FieldError {
	for _, other := range entries {
		if other.Name == targetName || !other.Engaged {
			continue
		}
		otherStart, err := timewindow.ParseInstant(other.Start)
		if err != nil {
			continue
		}
		otherEnd, err := timewindow.ParseInstant(other.End)
		if err != nil {
			continue
		}
		if timewindow.Overlaps(start, end, otherStart, otherEnd) {
			return &FieldError{
				Field:         FieldSchedule,
				Entry:         targetName,
				Message:       fmt.Sprintf("schedule conflicts with engaged entry %q", other.Name),
				ConflictsWith: other.Name,
			}
		}
	}
	return nil
}
