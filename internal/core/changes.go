package core

import (
	"path"
	"strings"
)

// RepositoryChanges is the normalized description of what an event changed.
// File lists keep provider order and duplicates; ConfigurationChanges and
// DependencyChanges are classified subsets of the added and modified lists.
// A RepositoryChanges value is created once per event and never mutated.
type RepositoryChanges struct {
	AddedFiles           []string
	ModifiedFiles        []string
	DeletedFiles         []string
	ConfigurationChanges []string
	DependencyChanges    []string
}

// Empty reports whether the change set carries no work at all.
func (c RepositoryChanges) Empty() bool {
	return len(c.AddedFiles) == 0 && len(c.ModifiedFiles) == 0 && len(c.DeletedFiles) == 0
}

// TouchedFiles is the total number of paths across all three lists,
// duplicates included. Used as the change-magnitude input for rules.
func (c RepositoryChanges) TouchedFiles() int {
	return len(c.AddedFiles) + len(c.ModifiedFiles) + len(c.DeletedFiles)
}

// configFileNames are exact basenames treated as configuration files.
var configFileNames = map[string]struct{}{
	"package.json":       {},
	"pyproject.toml":     {},
	"setup.py":           {},
	"go.mod":             {},
	"Cargo.toml":         {},
	"pom.xml":            {},
	"build.gradle":       {},
	"Dockerfile":         {},
	"docker-compose.yml": {},
	"Makefile":           {},
	".env.example":       {},
	"tsconfig.json":      {},
}

// dependencyFileNames are exact basenames treated as dependency manifests
// or lockfiles.
var dependencyFileNames = map[string]struct{}{
	"package.json":      {},
	"package-lock.json": {},
	"yarn.lock":         {},
	"pnpm-lock.yaml":    {},
	"requirements.txt":  {},
	"Pipfile":           {},
	"Pipfile.lock":      {},
	"poetry.lock":       {},
	"go.mod":            {},
	"go.sum":            {},
	"Cargo.toml":        {},
	"Cargo.lock":        {},
	"Gemfile":           {},
	"Gemfile.lock":      {},
	"composer.json":     {},
	"composer.lock":     {},
}

// IsConfigurationFile reports whether the path names a known configuration
// file, matched on its basename.
func IsConfigurationFile(p string) bool {
	base := path.Base(strings.TrimPrefix(p, "./"))
	if _, ok := configFileNames[base]; ok {
		return true
	}
	return strings.HasSuffix(base, ".config.js") || strings.HasSuffix(base, ".config.ts")
}

// IsDependencyFile reports whether the path names a dependency manifest or
// lockfile, matched on its basename.
func IsDependencyFile(p string) bool {
	base := path.Base(strings.TrimPrefix(p, "./"))
	if _, ok := dependencyFileNames[base]; ok {
		return true
	}
	return strings.HasSuffix(base, ".lock")
}
