package model

type EventKind string

const (
	EventPush        EventKind = "push"
	EventPullRequest EventKind = "pull_request"
)

const shortCommitLength = 7

type Event struct {
	Commit string
	Ref    string
	Kind   EventKind
}

func (e Event) ShortCommit() string {
	if len(e.Commit) <= shortCommitLength {
		return e.Commit
	}
	return e.Commit[:shortCommitLength]
}

type Trigger struct {
	Branches     []string
	PullRequests bool
}
