package service

import (
	"path"
	"strings"

	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/model"
)

const branchRefPrefix = "refs/heads/"

func ShouldRun(trigger model.Trigger, event model.Event) bool {
	switch event.Kind {
	case model.EventPullRequest:
		return trigger.PullRequests
	case model.EventPush:
		if len(trigger.Branches) == 0 {
			return true
		}
		branch := strings.TrimPrefix(event.Ref, branchRefPrefix)
		for _, pattern := range trigger.Branches {
			if matched, err := path.Match(pattern, branch); err == nil && matched {
				return true
			}
		}
		return false
	default:
		return false
	}
}
