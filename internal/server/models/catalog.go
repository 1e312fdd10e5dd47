package models

import (
	"strings"
	"time"
)

// Package is one named package in the catalog. The Active flag is the
// soft-delete mechanism; packages are never hard-deleted once observed.
type Package struct {
	ID              int64
	Name            string
	Active          bool
	IsDesktopApp    bool
	IsNativeDesktop bool
	SupplementID    int64
	ModifyTimestamp time.Time
}

// PackageSupplement is the unit shared across name-suffix variants of one
// logical package ("genesiod" and "genesiod_devel" share one supplement).
// It owns icons, screenshots and package-level localizations.
type PackageSupplement struct {
	ID              int64
	BaseName        string
	ModifyTimestamp time.Time
}

// SupplementModification is one append-only, human-readable entry in a
// supplement's modification log.
type SupplementModification struct {
	ID              int64
	SupplementID    int64
	Content         string
	CreateTimestamp time.Time
}

// subordinateSuffixes are package-name suffixes whose packages share the
// supplement of their base package rather than owning one of their own.
var subordinateSuffixes = []string{"_devel", "_debuginfo", "_source", "_x86"}

// SupplementBaseName derives the shared supplement key for a package name by
// stripping one known subordinate suffix, if present.
func SupplementBaseName(name string) string {
	for _, suffix := range subordinateSuffixes {
		if strings.HasSuffix(name, suffix) && len(name) > len(suffix) {
			return name[:len(name)-len(suffix)]
		}
	}
	return name
}

// IsSubordinateName reports whether the package name carries one of the
// subordinate suffixes. Subordinate packages skip payload enrichment.
func IsSubordinateName(name string) bool {
	return SupplementBaseName(name) != name
}
