package models

import "time"

// PackageVersion is one observed version of a package for a specific
// architecture and repository source.
//
// Invariant: for a fixed (PackageID, ArchitectureID, RepositorySourceID) at
// most one row has IsLatest=true, and that row must also have Active=true.
// The schema backs this with a partial unique index; the importer maintains
// it logically.
type PackageVersion struct {
	ID                 int64
	PackageID          int64
	SupplementID       int64 // denormalized from the owning package on load
	ArchitectureID     int64
	RepositorySourceID int64
	Coordinate         VersionCoordinate
	Active             bool
	IsLatest           bool
	PayloadLength      *int64
	ViewCounter        int64
	// ModStamp is the optimistic-concurrency stamp; every guarded update
	// increments it and fails with ErrVersionConflict when the persisted
	// stamp moved.
	ModStamp        int64
	ImportTimestamp *time.Time
}

// VersionURL is a (url, name) pair attached to a version; currently only the
// home-page kind exists.
type VersionURL struct {
	URL  string
	Name string
}
