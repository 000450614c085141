package model

import "time"

// ContainerSummary is the shallow container representation returned by the
// vendor's list endpoint: no entries, just identity and bookkeeping fields.
// Timestamps stay in the vendor's wire form (strings); only entry windows
// are ever parsed.
type ContainerSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Version     int    `json:"version"`
	Timezone    string `json:"timezone,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
	ModifiedAt  string `json:"modifiedAt,omitempty"`
}

// Container is the full vendor container including its override entries.
// The vendor only supports whole-object replacement, so this is both the
// read shape and the write payload.
type Container struct {
	ContainerSummary
	OrgID   string  `json:"orgId,omitempty"`
	Entries []Entry `json:"overrides"`
}

// Entry is one named override rule inside a container. Name is the unique
// key within the container and is not necessarily a human identity; the
// engaged flag keeps the vendor's historical "workingHours" wire name.
// Start/End carry the vendor wire format (YYYY-MM-DDTHH:mm, implicit UTC).
type Entry struct {
	Name    string `json:"name"`
	Engaged bool   `json:"workingHours"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// CandidateUpdate is the caller-supplied change for a single entry. Version
// is the last-known container version; when zero the version from the
// freshly fetched container is forwarded instead.
type CandidateUpdate struct {
	Engaged bool   `json:"engaged"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Version int    `json:"version,omitempty"`
}

// Status is the derived lifecycle label of an entry. It is computed at read
// time and never persisted.
type Status string

const (
	StatusDisengaged Status = "disengaged"
	StatusPending    Status = "pending"
	StatusElapsed    Status = "elapsed"
	StatusEngagedNow Status = "engaged-now"
)

// EntryStatus decorates an entry with its derived status, the independent
// "live right now" flag and the operator-chosen display name, for the
// console read paths.
type EntryStatus struct {
	Entry
	DisplayName string `json:"displayName,omitempty"`
	Status      Status `json:"status"`
	Live        bool   `json:"live"`
}

// NameMapping associates a vendor entry name with an operator-chosen display
// name and a locally tracked engaged flag. Stored in the local lookup table.
type NameMapping struct {
	ID          int64     `json:"id"`
	VendorName  string    `json:"vendor_name"`
	DisplayName string    `json:"display_name"`
	Engaged     bool      `json:"engaged"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AuditRecord captures one successful entry update for the local audit trail.
type AuditRecord struct {
	ID          int64     `json:"id"`
	ContainerID string    `json:"container_id"`
	EntryName   string    `json:"entry_name"`
	OldStart    string    `json:"old_start"`
	OldEnd      string    `json:"old_end"`
	NewStart    string    `json:"new_start"`
	NewEnd      string    `json:"new_end"`
	OldEngaged  bool      `json:"old_engaged"`
	NewEngaged  bool      `json:"new_engaged"`
	Actor       string    `json:"actor,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
