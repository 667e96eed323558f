// Package events implements the pure transformation from webhook events
// to normalized repository change descriptions.
package events

import (
	"log/slog"

	"github.com/sevigo/hook-warden/internal/core"
)

// Processor merges commit file lists into a RepositoryChanges and
// classifies configuration and dependency files. It holds no state and
// performs no I/O; Process is a pure function of its input.
type Processor struct {
	logger *slog.Logger
}

// NewProcessor creates a Processor.
func NewProcessor(logger *slog.Logger) *Processor {
	return &Processor{logger: logger}
}

// Process concatenates every commit's added, modified, and removed lists
// in provider order, keeping duplicates, then classifies the added and
// modified paths. An event without commits yields empty change sets, not
// an error; Process cannot fail for a well-formed event.
func (p *Processor) Process(event *core.WebhookEvent) (core.RepositoryChanges, error) {
	var changes core.RepositoryChanges

	for _, commit := range event.Commits {
		changes.AddedFiles = append(changes.AddedFiles, commit.Added...)
		changes.ModifiedFiles = append(changes.ModifiedFiles, commit.Modified...)
		changes.DeletedFiles = append(changes.DeletedFiles, commit.Removed...)
	}

	classify(&changes, changes.AddedFiles)
	classify(&changes, changes.ModifiedFiles)

	p.logger.Debug("processed webhook event",
		"repo", event.Repository.FullName,
		"added", len(changes.AddedFiles),
		"modified", len(changes.ModifiedFiles),
		"deleted", len(changes.DeletedFiles),
		"config_changes", len(changes.ConfigurationChanges),
		"dependency_changes", len(changes.DependencyChanges),
	)
	return changes, nil
}

// classify appends configuration and dependency paths from the given
// list. Every classified path therefore also appears in AddedFiles or
// ModifiedFiles, which the engine relies on.
func classify(changes *core.RepositoryChanges, paths []string) {
	for _, path := range paths {
		if core.IsConfigurationFile(path) {
			changes.ConfigurationChanges = append(changes.ConfigurationChanges, path)
		}
		if core.IsDependencyFile(path) {
			changes.DependencyChanges = append(changes.DependencyChanges, path)
		}
	}
}
