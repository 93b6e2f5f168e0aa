package domain

import "time"

// SyncKind names the identity provider write that failed.
type SyncKind string

const (
	SyncGroup SyncKind = "group" // group membership follows Profile.Role
	SyncName  SyncKind = "name"  // "name" attribute follows Profile.Name
)

// SyncFailure describes a provider write that was skipped after the local
// profile had already been saved.
type SyncFailure struct {
	ProfileID string
	Username  string // provider username, the email address
	Kind      SyncKind
	Value     string
	Err       error

	// Op is the provider call that failed, e.g. "remove_from_group".
	Op string
}

// PendingSync is a queued SyncFailure awaiting reconciliation. There is at most
// one per (ProfileID, Kind); a newer failure replaces the value and bumps
// Version, so a worker holding an older copy cannot settle the newer one.
type PendingSync struct {
	ProfileID string
	Username  string
	Kind      SyncKind
	Value     string
	Attempts  int
	LastError string
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}
