package overrides

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"overdesk/internal/model"
	"overdesk/internal/schedule"
)

var testNow = time.Date(2026, time.January, 15, 6, 0, 0, 0, time.UTC)

// fakeAPI is an in-memory vendor that mimics the whole-container replace
// contract: it stores the submitted payload, bumps the version and returns
// the stored state.
type fakeAPI struct {
	container          *model.Container
	getErr             error
	replaceErr         error
	replaceCalls       int
	lastPayload        *model.Container
	dropEntryOnReplace string
}

func (f *fakeAPI) ListContainers(ctx context.Context) ([]model.ContainerSummary, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return []model.ContainerSummary{f.container.ContainerSummary}, nil
}

func (f *fakeAPI) GetContainer(ctx context.Context, id string) (*model.Container, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	copied := *f.container
	copied.Entries = append([]model.Entry(nil), f.container.Entries...)
	return &copied, nil
}

func (f *fakeAPI) ReplaceContainer(ctx context.Context, id string, payload *model.Container) (*model.Container, error) {
	f.replaceCalls++
	f.lastPayload = payload
	if f.replaceErr != nil {
		return nil, f.replaceErr
	}
	stored := *payload
	stored.Entries = append([]model.Entry(nil), payload.Entries...)
	if f.dropEntryOnReplace != "" {
		kept := stored.Entries[:0]
		for _, e := range stored.Entries {
			if e.Name != f.dropEntryOnReplace {
				kept = append(kept, e)
			}
		}
		stored.Entries = kept
	}
	stored.Version++
	f.container = &stored
	return &stored, nil
}

type fakeMappings struct {
	mappings []model.NameMapping
	err      error
}

func (f *fakeMappings) ListMappings(ctx context.Context) ([]model.NameMapping, error) {
	return f.mappings, f.err
}

type recordedAudit struct {
	records []model.AuditRecord
}

func (r *recordedAudit) RecordEntryUpdate(ctx context.Context, rec model.AuditRecord) error {
	r.records = append(r.records, rec)
	return nil
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		container: &model.Container{
			ContainerSummary: model.ContainerSummary{
				ID:         "c-1",
				Name:       "weekday coverage",
				Version:    3,
				Timezone:   "UTC",
				CreatedAt:  "2025-11-01T09:00",
				ModifiedAt: "2026-01-10T09:00",
			},
			OrgID: "org-9",
			Entries: []model.Entry{
				{Name: "agent-a", Engaged: true, Start: "2026-01-15T08:00", End: "2026-01-15T12:00"},
				{Name: "agent-b", Engaged: false, Start: "2026-01-15T09:00", End: "2026-01-15T17:00"},
				{Name: "agent-c", Engaged: true, Start: "2026-01-15T18:00", End: "2026-01-15T22:00"},
			},
		},
	}
}

func newService(api *fakeAPI, audit AuditRecorder) *Service {
	return NewService(api, nil, audit, func() time.Time { return testNow }, zerolog.Nop())
}

func TestUpdateEntry_Success(t *testing.T) {
	api := newFakeAPI()
	audit := &recordedAudit{}
	svc := newService(api, audit)

	cand := model.CandidateUpdate{Engaged: true, Start: "2026-01-15T13:00:00Z", End: "2026-01-15T17:30:00Z"}
	entry, err := svc.UpdateEntry(context.Background(), "c-1", "agent-b", cand)
	require.NoError(t, err)

	assert.Equal(t, "agent-b", entry.Name)
	assert.True(t, entry.Engaged)
	// Caller-supplied RFC3339 timestamps come back wire-normalized.
	assert.Equal(t, "2026-01-15T13:00", entry.Start)
	assert.Equal(t, "2026-01-15T17:30", entry.End)

	require.NotNil(t, api.lastPayload)
	assert.Equal(t, "org-9", api.lastPayload.OrgID)
	assert.Equal(t, "2025-11-01T09:00", api.lastPayload.CreatedAt)
	assert.Equal(t, "2026-01-15T06:00", api.lastPayload.ModifiedAt)
	// Entry replaced in place, order preserved.
	require.Len(t, api.lastPayload.Entries, 3)
	assert.Equal(t, "agent-a", api.lastPayload.Entries[0].Name)
	assert.Equal(t, "agent-b", api.lastPayload.Entries[1].Name)
	assert.Equal(t, "agent-c", api.lastPayload.Entries[2].Name)

	require.Len(t, audit.records, 1)
	assert.Equal(t, "c-1", audit.records[0].ContainerID)
	assert.Equal(t, "2026-01-15T09:00", audit.records[0].OldStart)
	assert.Equal(t, "2026-01-15T13:00", audit.records[0].NewStart)
	assert.False(t, audit.records[0].OldEngaged)
	assert.True(t, audit.records[0].NewEngaged)
}

func TestUpdateEntry_Idempotent(t *testing.T) {
	api := newFakeAPI()
	svc := newService(api, nil)

	cand := model.CandidateUpdate{Engaged: true, Start: "2026-01-15T13:00", End: "2026-01-15T17:30"}
	first, err := svc.UpdateEntry(context.Background(), "c-1", "agent-b", cand)
	require.NoError(t, err)
	second, err := svc.UpdateEntry(context.Background(), "c-1", "agent-b", cand)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestUpdateEntry_VersionForwarding(t *testing.T) {
	api := newFakeAPI()
	svc := newService(api, nil)

	cand := model.CandidateUpdate{Start: "2026-01-15T13:00", End: "2026-01-15T17:30", Version: 7}
	_, err := svc.UpdateEntry(context.Background(), "c-1", "agent-b", cand)
	require.NoError(t, err)
	assert.Equal(t, 7, api.lastPayload.Version)

	// Without a caller version the fetched container's version is forwarded.
	cand.Version = 0
	_, err = svc.UpdateEntry(context.Background(), "c-1", "agent-b", cand)
	require.NoError(t, err)
	assert.Equal(t, 8, api.lastPayload.Version)
}

func TestUpdateEntry_NotFound(t *testing.T) {
	api := newFakeAPI()
	svc := newService(api, nil)

	cand := model.CandidateUpdate{Start: "2026-01-15T13:00", End: "2026-01-15T17:30"}
	_, err := svc.UpdateEntry(context.Background(), "c-1", "agent-x", cand)
	require.ErrorIs(t, err, ErrEntryNotFound)
	assert.Zero(t, api.replaceCalls, "no write attempted")
}

func TestUpdateEntry_ConflictWithEngagedEntry(t *testing.T) {
	api := newFakeAPI()
	svc := newService(api, nil)

	// Overlaps agent-a's engaged 08:00-12:00 window.
	cand := model.CandidateUpdate{Engaged: true, Start: "2026-01-15T10:00", End: "2026-01-15T14:00"}
	_, err := svc.UpdateEntry(context.Background(), "c-1", "agent-b", cand)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	require.Len(t, valErr.Result.Errors, 1)
	assert.Equal(t, schedule.FieldSchedule, valErr.Result.Errors[0].Field)
	assert.Equal(t, "agent-a", valErr.Result.Errors[0].ConflictsWith)
	assert.Zero(t, api.replaceCalls, "no write attempted")
}

func TestUpdateEntry_EndBeforeStart(t *testing.T) {
	api := newFakeAPI()
	svc := newService(api, nil)

	cand := model.CandidateUpdate{Start: "2024-01-01T12:00", End: "2024-01-01T10:00"}
	_, err := svc.UpdateEntry(context.Background(), "c-1", "agent-b", cand)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := make([]string, 0, len(valErr.Result.Errors))
	for _, fe := range valErr.Result.Errors {
		fields = append(fields, fe.Field)
	}
	assert.Contains(t, fields, schedule.FieldStartDateTime)
}

func TestUpdateEntry_UpstreamReadFailure(t *testing.T) {
	api := newFakeAPI()
	api.getErr = errors.New("connection refused")
	svc := newService(api, nil)

	cand := model.CandidateUpdate{Start: "2026-01-15T13:00", End: "2026-01-15T17:30"}
	_, err := svc.UpdateEntry(context.Background(), "c-1", "agent-b", cand)

	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, OpRead, upErr.Op)
}

func TestUpdateEntry_UpstreamWriteFailure(t *testing.T) {
	api := newFakeAPI()
	api.replaceErr = errors.New("http 503")
	svc := newService(api, nil)

	cand := model.CandidateUpdate{Start: "2026-01-15T13:00", End: "2026-01-15T17:30"}
	_, err := svc.UpdateEntry(context.Background(), "c-1", "agent-b", cand)

	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, OpWrite, upErr.Op)
	assert.Equal(t, 1, api.replaceCalls, "write not retried")
}

func TestUpdateEntry_ResponseMissingEntry(t *testing.T) {
	api := newFakeAPI()
	api.dropEntryOnReplace = "agent-b"
	svc := newService(api, nil)

	cand := model.CandidateUpdate{Start: "2026-01-15T13:00", End: "2026-01-15T17:30"}
	_, err := svc.UpdateEntry(context.Background(), "c-1", "agent-b", cand)

	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, OpWrite, upErr.Op)
}

func TestGetContainer_DecoratesEntries(t *testing.T) {
	api := newFakeAPI()
	mappings := &fakeMappings{mappings: []model.NameMapping{
		{VendorName: "agent-a", DisplayName: "Alice", Engaged: true},
	}}
	svc := NewService(api, mappings, nil, func() time.Time { return testNow.Add(4 * time.Hour) }, zerolog.Nop())

	view, err := svc.GetContainer(context.Background(), "c-1")
	require.NoError(t, err)
	require.Len(t, view.Entries, 3)

	// now = 10:00; agent-a engaged 08:00-12:00 is live.
	assert.Equal(t, "Alice", view.Entries[0].DisplayName)
	assert.Equal(t, model.StatusEngagedNow, view.Entries[0].Status)
	assert.True(t, view.Entries[0].Live)

	assert.Equal(t, model.StatusDisengaged, view.Entries[1].Status)
	assert.Empty(t, view.Entries[1].DisplayName)

	// agent-c engaged 18:00-22:00 is still ahead.
	assert.Equal(t, model.StatusPending, view.Entries[2].Status)
	assert.False(t, view.Entries[2].Live)
}

func TestGetContainer_MappingFailureDegrades(t *testing.T) {
	api := newFakeAPI()
	mappings := &fakeMappings{err: errors.New("db locked")}
	svc := NewService(api, mappings, nil, func() time.Time { return testNow }, zerolog.Nop())

	view, err := svc.GetContainer(context.Background(), "c-1")
	require.NoError(t, err)
	for _, e := range view.Entries {
		assert.Empty(t, e.DisplayName)
	}
}

func TestCheckEngage_ConflictRejected(t *testing.T) {
	api := newFakeAPI()
	// agent-b's stored window 09:00-17:00 overlaps agent-a's engaged window.
	svc := newService(api, nil)

	err := svc.CheckEngage(context.Background(), "c-1", "agent-b")
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "agent-a", valErr.Result.Errors[0].ConflictsWith)
}

func TestCheckEngage_DisjointWindowAllowed(t *testing.T) {
	api := newFakeAPI()
	api.container.Entries[1].Start = "2026-01-15T12:00"
	api.container.Entries[1].End = "2026-01-15T17:00"
	svc := newService(api, nil)

	require.NoError(t, svc.CheckEngage(context.Background(), "c-1", "agent-b"))
}

func TestCheckEngage_UnknownEntry(t *testing.T) {
	api := newFakeAPI()
	svc := newService(api, nil)

	err := svc.CheckEngage(context.Background(), "c-1", "agent-x")
	require.ErrorIs(t, err, ErrEntryNotFound)
}
