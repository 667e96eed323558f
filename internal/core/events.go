// Package core defines the essential data structures and interfaces that form
// the backbone of the hook pipeline. These components are deliberately free of
// I/O so that every stage of the pipeline can be tested in isolation.
package core

import (
	"fmt"
	"time"

	"github.com/google/go-github/v68/github"
)

// EventType identifies the kind of repository activity a webhook describes.
type EventType string

const (
	EventPush        EventType = "push"
	EventPullRequest EventType = "pull_request"
	EventRelease     EventType = "release"
)

// KnownEventType reports whether t is one of the event types the pipeline
// accepts at the ingestion boundary.
func KnownEventType(t EventType) bool {
	switch t {
	case EventPush, EventPullRequest, EventRelease:
		return true
	}
	return false
}

// Priority is the band used to order queued work.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Rank maps a priority band to its ordering weight; lower ranks first.
// Unknown bands rank below low so a bad value can never jump the queue.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// Valid reports whether p is one of the four recognized bands.
func (p Priority) Valid() bool {
	return p.Rank() < 4
}

// RepositoryInfo identifies the repository an event originates from.
type RepositoryInfo struct {
	Owner         string
	Name          string
	FullName      string
	DefaultBranch string
}

// Commit carries the per-commit file lists from the provider payload,
// in provider order.
type Commit struct {
	Message  string
	Added    []string
	Modified []string
	Removed  []string
}

// WebhookEvent is the immutable, normalized input unit of the pipeline.
// It is created once at the ingestion boundary and never mutated; the
// queue's Job wraps it by reference.
type WebhookEvent struct {
	ID         string // provider delivery id, set at the ingestion boundary
	Type       EventType
	Repository RepositoryInfo
	Commits    []Commit
	Ref        string
	Timestamp  time.Time
	Priority   Priority
}

// EventFromPush transforms a raw GitHub push payload into the internal
// WebhookEvent representation. It acts as an anti-corruption layer: the
// provider-shaped payload is validated here, and nothing downstream ever
// touches go-github types.
func EventFromPush(event *github.PushEvent) (*WebhookEvent, error) {
	repo, err := repositoryFromPush(event.GetRepo())
	if err != nil {
		return nil, err
	}

	commits := make([]Commit, 0, len(event.Commits))
	for _, c := range event.Commits {
		commits = append(commits, Commit{
			Message:  c.GetMessage(),
			Added:    c.Added,
			Modified: c.Modified,
			Removed:  c.Removed,
		})
	}

	return &WebhookEvent{
		Type:       EventPush,
		Repository: repo,
		Commits:    commits,
		Ref:        event.GetRef(),
		Timestamp:  time.Now().UTC(),
		Priority:   derivePushPriority(event.GetRef(), repo.DefaultBranch, commits),
	}, nil
}

// EventFromPullRequest transforms a raw GitHub pull request payload.
// Only opened and synchronized pull requests carry work for the pipeline.
func EventFromPullRequest(event *github.PullRequestEvent) (*WebhookEvent, error) {
	switch event.GetAction() {
	case "opened", "synchronize", "reopened":
	default:
		return nil, fmt.Errorf("pull request action %q: %w", event.GetAction(), ErrEventIgnored)
	}

	repo, err := repositoryFromFull(event.GetRepo())
	if err != nil {
		return nil, err
	}

	return &WebhookEvent{
		Type:       EventPullRequest,
		Repository: repo,
		Ref:        event.GetPullRequest().GetHead().GetRef(),
		Timestamp:  time.Now().UTC(),
		Priority:   PriorityMedium,
	}, nil
}

// EventFromRelease transforms a raw GitHub release payload. Releases are
// treated as high priority: they usually gate deploy automation.
func EventFromRelease(event *github.ReleaseEvent) (*WebhookEvent, error) {
	repo, err := repositoryFromFull(event.GetRepo())
	if err != nil {
		return nil, err
	}

	return &WebhookEvent{
		Type:       EventRelease,
		Repository: repo,
		Ref:        event.GetRelease().GetTagName(),
		Timestamp:  time.Now().UTC(),
		Priority:   PriorityHigh,
	}, nil
}

func repositoryFromPush(repo *github.PushEventRepository) (RepositoryInfo, error) {
	if repo == nil || repo.GetOwner().GetLogin() == "" || repo.GetName() == "" {
		return RepositoryInfo{}, fmt.Errorf("repository or owner information is missing from the event")
	}
	return RepositoryInfo{
		Owner:         repo.GetOwner().GetLogin(),
		Name:          repo.GetName(),
		FullName:      repo.GetFullName(),
		DefaultBranch: repo.GetDefaultBranch(),
	}, nil
}

func repositoryFromFull(repo *github.Repository) (RepositoryInfo, error) {
	if repo == nil || repo.GetOwner().GetLogin() == "" || repo.GetName() == "" {
		return RepositoryInfo{}, fmt.Errorf("repository or owner information is missing from the event")
	}
	return RepositoryInfo{
		Owner:         repo.GetOwner().GetLogin(),
		Name:          repo.GetName(),
		FullName:      repo.GetFullName(),
		DefaultBranch: repo.GetDefaultBranch(),
	}, nil
}

// derivePushPriority assigns a band when the submitter did not set one.
// Pushes to the default branch that touch dependency manifests are more
// urgent than ordinary branch pushes.
func derivePushPriority(ref, defaultBranch string, commits []Commit) Priority {
	if defaultBranch == "" || ref != "refs/heads/"+defaultBranch {
		return PriorityMedium
	}
	for _, c := range commits {
		for _, path := range c.Modified {
			if IsDependencyFile(path) {
				return PriorityHigh
			}
		}
		for _, path := range c.Added {
			if IsDependencyFile(path) {
				return PriorityHigh
			}
		}
	}
	return PriorityMedium
}
