package events

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/hook-warden/internal/core"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEvent(commits ...core.Commit) *core.WebhookEvent {
	return &core.WebhookEvent{
		Type:       core.EventPush,
		Repository: core.RepositoryInfo{Owner: "sevigo", Name: "demo", FullName: "sevigo/demo"},
		Commits:    commits,
		Timestamp:  time.Now().UTC(),
		Priority:   core.PriorityMedium,
	}
}

func TestProcess_MergesCommitsInOrder(t *testing.T) {
	p := NewProcessor(testLogger())

	event := testEvent(
		core.Commit{Added: []string{"a.go"}, Modified: []string{"b.go"}, Removed: []string{"c.go"}},
		core.Commit{Added: []string{"d.go"}, Modified: []string{"b.go"}, Removed: []string{"e.go"}},
	)

	changes, err := p.Process(event)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.go", "d.go"}, changes.AddedFiles)
	// Duplicates across commits are preserved, in provider order.
	assert.Equal(t, []string{"b.go", "b.go"}, changes.ModifiedFiles)
	assert.Equal(t, []string{"c.go", "e.go"}, changes.DeletedFiles)
}

func TestProcess_ClassifiesConfigurationAndDependencies(t *testing.T) {
	p := NewProcessor(testLogger())

	tests := []struct {
		name     string
		commit   core.Commit
		wantCfg  []string
		wantDeps []string
	}{
		{
			name:     "package manifest is both config and dependency",
			commit:   core.Commit{Modified: []string{"package.json"}},
			wantCfg:  []string{"package.json"},
			wantDeps: []string{"package.json"},
		},
		{
			name:     "lockfile suffix",
			commit:   core.Commit{Modified: []string{"frontend/yarn.lock", "vendor/custom.lock"}},
			wantDeps: []string{"frontend/yarn.lock", "vendor/custom.lock"},
		},
		{
			name:     "requirements file",
			commit:   core.Commit{Added: []string{"requirements.txt"}},
			wantDeps: []string{"requirements.txt"},
		},
		{
			name:    "dockerfile is configuration only",
			commit:  core.Commit{Modified: []string{"Dockerfile"}},
			wantCfg: []string{"Dockerfile"},
		},
		{
			name:   "plain source files are neither",
			commit: core.Commit{Modified: []string{"main.go", "pkg/util.go"}},
		},
		{
			name:   "removed files are never classified",
			commit: core.Commit{Removed: []string{"package.json"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changes, err := p.Process(testEvent(tt.commit))
			require.NoError(t, err)
			assert.Equal(t, tt.wantCfg, changes.ConfigurationChanges)
			assert.Equal(t, tt.wantDeps, changes.DependencyChanges)
		})
	}
}

func TestProcess_ClassifiedPathsAppearInSourceLists(t *testing.T) {
	p := NewProcessor(testLogger())

	changes, err := p.Process(testEvent(core.Commit{
		Added:    []string{"go.mod", "cmd/main.go"},
		Modified: []string{"go.sum", "package.json"},
	}))
	require.NoError(t, err)

	sources := make(map[string]struct{})
	for _, f := range changes.AddedFiles {
		sources[f] = struct{}{}
	}
	for _, f := range changes.ModifiedFiles {
		sources[f] = struct{}{}
	}
	for _, f := range append(changes.ConfigurationChanges, changes.DependencyChanges...) {
		assert.Contains(t, sources, f)
	}
}

func TestProcess_NoCommitsYieldsEmptyChanges(t *testing.T) {
	p := NewProcessor(testLogger())

	changes, err := p.Process(testEvent())
	require.NoError(t, err)
	assert.True(t, changes.Empty())
	assert.Empty(t, changes.ConfigurationChanges)
	assert.Empty(t, changes.DependencyChanges)
}

func TestProcess_IsDeterministic(t *testing.T) {
	p := NewProcessor(testLogger())
	event := testEvent(
		core.Commit{Added: []string{"a.go", "package.json"}, Modified: []string{"go.sum"}},
		core.Commit{Removed: []string{"old.txt"}},
	)

	first, err := p.Process(event)
	require.NoError(t, err)
	second, err := p.Process(event)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
