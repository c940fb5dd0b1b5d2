package service

import (
	"context"
	"errors"

	applogger "github.com/tss-calculator/go-lib/pkg/application/logger"

	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/model"
)

var ErrKeyNotFound = errors.New("storage key not found")

// JobContext is everything a single job step needs to know about its job.
type JobContext struct {
	RunID  string
	Target model.TargetDescriptor
	// StorageKey is where the job's artifacts are stored, scoped to the event commit.
	StorageKey string
	WorkDir    string
	Logger     applogger.Logger
}

type Workspace interface {
	Acquire(ctx context.Context, event model.Event, target model.TargetDescriptor) (string, error)
	Release(ctx context.Context, dir string) error
}

type EnvironmentPreparer interface {
	Prepare(ctx context.Context, job JobContext) error
}

type BuildExecutor interface {
	Execute(ctx context.Context, job JobContext) error
}

type ArtifactCollector interface {
	Collect(ctx context.Context, job JobContext) ([]model.Artifact, error)
}

type ArtifactStore interface {
	Upload(ctx context.Context, key string, files []string) ([]model.Artifact, error)
	Download(ctx context.Context, key, dir string) ([]string, error)
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Delete removes every artifact under key; a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

type ReleasePublisher interface {
	Publish(ctx context.Context, release model.Release) error
}

type JobObserver interface {
	Observe(job *model.BuildJob)
}
