// Package overrides implements the container update workflow against the
// vendor API. The vendor only supports whole-container replacement, so every
// entry edit is read-modify-write over the entire entry collection.
package overrides

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"overdesk/internal/metrics"
	"overdesk/internal/model"
	"overdesk/internal/schedule"
	"overdesk/internal/timewindow"
)

// ContainerAPI is the vendor client surface the service needs.
type ContainerAPI interface {
	ListContainers(ctx context.Context) ([]model.ContainerSummary, error)
	GetContainer(ctx context.Context, id string) (*model.Container, error)
	ReplaceContainer(ctx context.Context, id string, payload *model.Container) (*model.Container, error)
}

// MappingReader supplies display names for entry decoration. The mapping
// table is owned by the db package; the service only reads it.
type MappingReader interface {
	ListMappings(ctx context.Context) ([]model.NameMapping, error)
}

// AuditRecorder persists the local trail of successful updates. Failures are
// logged and swallowed; the vendor write already happened and is the system
// of record.
type AuditRecorder interface {
	RecordEntryUpdate(ctx context.Context, rec model.AuditRecord) error
}

// ContainerView is a full container with entries decorated for the console.
type ContainerView struct {
	model.ContainerSummary
	OrgID   string              `json:"orgId,omitempty"`
	Entries []model.EntryStatus `json:"overrides"`
}

// Service orchestrates reads and updates of override containers.
type Service struct {
	api      ContainerAPI
	mappings MappingReader
	audit    AuditRecorder
	now      func() time.Time
	logger   zerolog.Logger
}

// NewService wires the orchestrator. now is injected so validation and
// classification stay deterministic in tests; nil falls back to time.Now.
// mappings and audit may be nil (decoration and trail are then skipped).
func NewService(api ContainerAPI, mappings MappingReader, audit AuditRecorder, now func() time.Time, logger zerolog.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		api:      api,
		mappings: mappings,
		audit:    audit,
		now:      now,
		logger:   logger.With().Str("component", "overrides").Logger(),
	}
}

// ListContainers returns the shallow container list.
func (s *Service) ListContainers(ctx context.Context) ([]model.ContainerSummary, error) {
	containers, err := s.api.ListContainers(ctx)
	if err != nil {
		metrics.IncVendorRequest("list", "error")
		return nil, &UpstreamError{Op: OpRead, Err: err}
	}
	metrics.IncVendorRequest("list", "ok")
	return containers, nil
}

// GetContainer returns one container with every entry decorated with its
// derived status, live flag and operator display name.
func (s *Service) GetContainer(ctx context.Context, id string) (*ContainerView, error) {
	container, err := s.api.GetContainer(ctx, id)
	if err != nil {
		metrics.IncVendorRequest("get", "error")
		return nil, &UpstreamError{Op: OpRead, Err: err}
	}
	metrics.IncVendorRequest("get", "ok")

	names := s.displayNames(ctx)
	now := s.now()

	view := &ContainerView{
		ContainerSummary: container.ContainerSummary,
		OrgID:            container.OrgID,
		Entries:          make([]model.EntryStatus, 0, len(container.Entries)),
	}
	for _, e := range container.Entries {
		c := schedule.ClassifyEntry(e, now)
		if c.Status == model.StatusDisengaged && e.Engaged {
			// Engaged entry degraded because its window did not parse.
			s.logger.Warn().Str("container", id).Str("entry", e.Name).Msg("entry window unparsable, shown as disengaged")
		}
		view.Entries = append(view.Entries, model.EntryStatus{
			Entry:       e,
			DisplayName: names[e.Name],
			Status:      c.Status,
			Live:        c.Live,
		})
	}
	return view, nil
}

// UpdateEntry applies a candidate update to one entry of a container via
// whole-container replacement:
//
//  1. fetch the full container,
//  2. locate the entry by exact name,
//  3. validate the candidate against the rest of the entries,
//  4. overlay engaged/start/end, normalize to wire format, splice in place,
//  5. resubmit the complete payload and return the server's copy of the entry.
//
// Concurrent updates to two entries of the same container race on step 1;
// acceptable at operator volume, not serialized here.
func (s *Service) UpdateEntry(ctx context.Context, containerID, entryName string, cand model.CandidateUpdate) (model.Entry, error) {
	container, err := s.api.GetContainer(ctx, containerID)
	if err != nil {
		metrics.IncVendorRequest("get", "error")
		metrics.IncEntryUpdate("upstream_read_failed")
		return model.Entry{}, &UpstreamError{Op: OpRead, Err: err}
	}
	metrics.IncVendorRequest("get", "ok")

	idx := -1
	for i, e := range container.Entries {
		if e.Name == entryName {
			idx = i
			break
		}
	}
	if idx < 0 {
		metrics.IncEntryUpdate("not_found")
		return model.Entry{}, ErrEntryNotFound
	}
	previous := container.Entries[idx]

	result := schedule.Validate(container.Entries, entryName, cand, s.now())
	if !result.Valid {
		metrics.IncEntryUpdate("validation_failed")
		s.logger.Info().Str("container", containerID).Str("entry", entryName).
			Int("violations", len(result.Errors)).Msg("update rejected by validation")
		return model.Entry{}, &ValidationError{Result: result}
	}

	updated, err := normalizeEntry(previous, cand)
	if err != nil {
		// Unreachable after validation, kept as a guard.
		metrics.IncEntryUpdate("validation_failed")
		return model.Entry{}, &ValidationError{Result: schedule.Result{Errors: []schedule.FieldError{{
			Field:   schedule.FieldDateTime,
			Entry:   entryName,
			Message: err.Error(),
		}}}}
	}

	payload := buildPayload(container, idx, updated, cand.Version, s.now())

	replaced, err := s.api.ReplaceContainer(ctx, containerID, payload)
	if err != nil {
		metrics.IncVendorRequest("replace", "error")
		metrics.IncEntryUpdate("upstream_write_failed")
		return model.Entry{}, &UpstreamError{Op: OpWrite, Err: err}
	}
	metrics.IncVendorRequest("replace", "ok")

	// The server's materialized state wins over the locally built entry.
	for _, e := range replaced.Entries {
		if e.Name == entryName {
			metrics.IncEntryUpdate("ok")
			s.recordAudit(ctx, containerID, previous, e)
			return e, nil
		}
	}
	metrics.IncEntryUpdate("upstream_write_failed")
	return model.Entry{}, &UpstreamError{Op: OpWrite, Err: errEntryMissingFromResponse}
}

// CheckEngage validates flipping the locally tracked engaged flag of an
// entry to true, using the entry's stored window as the candidate. Invoked
// by the mapping collaborator before it persists the flip.
func (s *Service) CheckEngage(ctx context.Context, containerID, entryName string) error {
	container, err := s.api.GetContainer(ctx, containerID)
	if err != nil {
		return &UpstreamError{Op: OpRead, Err: err}
	}

	var target *model.Entry
	for i := range container.Entries {
		if container.Entries[i].Name == entryName {
			target = &container.Entries[i]
			break
		}
	}
	if target == nil {
		return ErrEntryNotFound
	}

	cand := model.CandidateUpdate{Engaged: true, Start: target.Start, End: target.End}
	result := schedule.Validate(container.Entries, entryName, cand, s.now())
	if !result.Valid {
		return &ValidationError{Result: result}
	}
	return nil
}

// normalizeEntry overlays the candidate onto the existing entry, keeping the
// name and reformatting both timestamps to the vendor wire form.
func normalizeEntry(existing model.Entry, cand model.CandidateUpdate) (model.Entry, error) {
	start, err := timewindow.ParseInstant(cand.Start)
	if err != nil {
		return model.Entry{}, err
	}
	end, err := timewindow.ParseInstant(cand.End)
	if err != nil {
		return model.Entry{}, err
	}
	return model.Entry{
		Name:    existing.Name,
		Engaged: cand.Engaged,
		Start:   timewindow.FormatWire(start),
		End:     timewindow.FormatWire(end),
	}, nil
}

// buildPayload reconstructs the complete container object the vendor write
// endpoint requires: identity and metadata unchanged, the updated entry
// spliced at its original position, a fresh wire-format modified stamp, and
// the caller's last-known version when supplied (the vendor increments it
// server-side).
func buildPayload(container *model.Container, idx int, updated model.Entry, version int, now time.Time) *model.Container {
	entries := make([]model.Entry, len(container.Entries))
	copy(entries, container.Entries)
	entries[idx] = updated

	payload := &model.Container{
		ContainerSummary: container.ContainerSummary,
		OrgID:            container.OrgID,
		Entries:          entries,
	}
	if version > 0 {
		payload.Version = version
	}
	payload.ModifiedAt = timewindow.FormatWire(now)
	return payload
}

func (s *Service) recordAudit(ctx context.Context, containerID string, previous, current model.Entry) {
	if s.audit == nil {
		return
	}
	rec := model.AuditRecord{
		ContainerID: containerID,
		EntryName:   current.Name,
		OldStart:    previous.Start,
		OldEnd:      previous.End,
		NewStart:    current.Start,
		NewEnd:      current.End,
		OldEngaged:  previous.Engaged,
		NewEngaged:  current.Engaged,
	}
	if err := s.audit.RecordEntryUpdate(ctx, rec); err != nil {
		s.logger.Error().Err(err).Str("container", containerID).Str("entry", current.Name).Msg("audit record failed")
	}
}

func (s *Service) displayNames(ctx context.Context) map[string]string {
	if s.mappings == nil {
		return nil
	}
	mappings, err := s.mappings.ListMappings(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("mapping lookup failed, entries shown without display names")
		return nil
	}
	names := make(map[string]string, len(mappings))
	for _, m := range mappings {
		names[m.VendorName] = m.DisplayName
	}
	return names
}
