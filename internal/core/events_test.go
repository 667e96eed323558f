package core

import (
	"testing"

	"github.com/google/go-github/v68/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pushPayload(ref string, commits ...*github.HeadCommit) *github.PushEvent {
	return &github.PushEvent{
		Ref: github.Ptr(ref),
		Repo: &github.PushEventRepository{
			Name:          github.Ptr("demo"),
			FullName:      github.Ptr("sevigo/demo"),
			DefaultBranch: github.Ptr("main"),
			Owner:         &github.User{Login: github.Ptr("sevigo")},
		},
		Commits: commits,
	}
}

func TestEventFromPush_DerivesPriority(t *testing.T) {
	tests := []struct {
		name  string
		event *github.PushEvent
		want  Priority
	}{
		{
			name: "default-branch push touching a dependency manifest",
			event: pushPayload("refs/heads/main",
				&github.HeadCommit{Modified: []string{"go.mod", "main.go"}}),
			want: PriorityHigh,
		},
		{
			name: "default-branch push adding a lockfile",
			event: pushPayload("refs/heads/main",
				&github.HeadCommit{Added: []string{"yarn.lock"}}),
			want: PriorityHigh,
		},
		{
			name: "dependency change on a feature branch",
			event: pushPayload("refs/heads/feature/deps",
				&github.HeadCommit{Modified: []string{"go.mod"}}),
			want: PriorityMedium,
		},
		{
			name: "plain default-branch push",
			event: pushPayload("refs/heads/main",
				&github.HeadCommit{Modified: []string{"main.go", "util.go"}}),
			want: PriorityMedium,
		},
		{
			name:  "default-branch push without commits",
			event: pushPayload("refs/heads/main"),
			want:  PriorityMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := EventFromPush(tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.want, event.Priority)
		})
	}
}

func TestEventFromPush_RejectsMissingRepository(t *testing.T) {
	_, err := EventFromPush(&github.PushEvent{Ref: github.Ptr("refs/heads/main")})
	assert.Error(t, err)
}

func TestEventFromPullRequest_IgnoresNonActionableActions(t *testing.T) {
	event := &github.PullRequestEvent{
		Action: github.Ptr("labeled"),
		Repo: &github.Repository{
			Name:  github.Ptr("demo"),
			Owner: &github.User{Login: github.Ptr("sevigo")},
		},
	}

	_, err := EventFromPullRequest(event)
	assert.ErrorIs(t, err, ErrEventIgnored)
}

func TestEventFromRelease_IsHighPriority(t *testing.T) {
	event := &github.ReleaseEvent{
		Repo: &github.Repository{
			Name:     github.Ptr("demo"),
			FullName: github.Ptr("sevigo/demo"),
			Owner:    &github.User{Login: github.Ptr("sevigo")},
		},
		Release: &github.RepositoryRelease{TagName: github.Ptr("v1.2.0")},
	}

	out, err := EventFromRelease(event)
	require.NoError(t, err)
	assert.Equal(t, PriorityHigh, out.Priority)
	assert.Equal(t, "v1.2.0", out.Ref)
}
