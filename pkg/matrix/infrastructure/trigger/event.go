package trigger

import (
	"context"
	"fmt"

	applogger "github.com/tss-calculator/go-lib/pkg/application/logger"

	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/model"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/infrastructure/provider"
)

const (
	detachedHead = "HEAD"

	envCommit = "GITHUB_SHA"
	envRef    = "GITHUB_REF"
	envEvent  = "GITHUB_EVENT_NAME"
)

// Flags are the explicit values given on the command line; empty fields fall back to env and git.
type Flags struct {
	Commit string
	Ref    string
	Kind   string
}

func ParseEventKind(s string) (model.EventKind, error) {
	switch s {
	case "", "push", "workflow_dispatch":
		return model.EventPush, nil
	case "pull_request", "pull_request_target":
		return model.EventPullRequest, nil
	default:
		return "", fmt.Errorf("unsupported event kind %q", s)
	}
}

func LoadEvent(
	ctx context.Context,
	flags Flags,
	getenv func(string) string,
	revisions provider.RevisionProvider,
	logger applogger.Logger,
) (model.Event, error) {
	kind, err := ParseEventKind(firstNonEmpty(flags.Kind, getenv(envEvent)))
	if err != nil {
		return model.Event{}, err
	}
	event := model.Event{
		Commit: firstNonEmpty(flags.Commit, getenv(envCommit)),
		Ref:    firstNonEmpty(flags.Ref, getenv(envRef)),
		Kind:   kind,
	}
	if event.Commit == "" {
		event.Commit, err = revisions.Hash(ctx)
		if err != nil {
			return model.Event{}, err
		}
	}
	if event.Ref == "" {
		branch, err := revisions.BranchName(ctx)
		if err != nil {
			return model.Event{}, err
		}
		if branch == "" || branch == detachedHead {
			// ref stays unknown; only an unfiltered push trigger matches it
			logger.Info(fmt.Sprintf("checkout at %v is a detached HEAD and %v is not set, event ref is unknown; pass --ref to match branch triggers", event.ShortCommit(), envRef))
			return event, nil
		}
		event.Ref = "refs/heads/" + branch
	}
	return event, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
