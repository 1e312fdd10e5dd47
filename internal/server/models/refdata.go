package models

import (
	"fmt"
	"strings"
)

// Architecture is a target CPU/ABI classifier, plus the pseudo-architectures
// "source" and "any".
type Architecture struct {
	ID   int64
	Code string
}

// NaturalLanguage is a localization locale usable as a Localization key.
type NaturalLanguage struct {
	ID   int64
	Code string
	Name string
}

// Repository is one upstream package repository; RepositorySource is one of
// its feeds (one architecture's package index).
type Repository struct {
	ID     int64
	Code   string
	Name   string
	Active bool
}

type RepositorySource struct {
	ID           int64
	RepositoryID int64
	Code         string
	Active       bool
	// BaseURL is the primary mirror base; supports http(s) and s3 schemes.
	BaseURL string
}

// PackageURL builds the artifact URL for one package version under this
// source, following the packages/<name>-<version>-<arch>.hpkg convention.
func (s *RepositorySource) PackageURL(name string, coordinate VersionCoordinate, archCode string) string {
	return fmt.Sprintf("%s/packages/%s-%s-%s.hpkg",
		strings.TrimRight(s.BaseURL, "/"), name, coordinate.String(), archCode)
}
