package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	applogger "github.com/tss-calculator/go-lib/pkg/application/logger"
	"golang.org/x/sync/errgroup"

	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/model"
)

type Report struct {
	RunID      string
	Jobs       []*model.BuildJob
	Release    *model.Release
	PublishErr error
}

// Succeeded is true only when every job produced artifacts and the release was published.
func (r Report) Succeeded() bool {
	if r.Release == nil || r.PublishErr != nil {
		return false
	}
	for _, job := range r.Jobs {
		if job.Status != model.JobSucceeded {
			return false
		}
	}
	return true
}

func (r Report) Failed() []*model.BuildJob {
	var failed []*model.BuildJob
	for _, job := range r.Jobs {
		if job.Status == model.JobFailed {
			failed = append(failed, job)
		}
	}
	return failed
}

type Matrix interface {
	Run(ctx context.Context, event model.Event, targets []model.TargetDescriptor) (Report, error)
	BuildTarget(ctx context.Context, event model.Event, target model.TargetDescriptor) *model.BuildJob
	Publish(ctx context.Context, event model.Event) (model.Release, error)
}

func NewMatrixService(
	config model.Matrix,
	logger applogger.Logger,
	workspace Workspace,
	preparer EnvironmentPreparer,
	executor BuildExecutor,
	collector ArtifactCollector,
	store ArtifactStore,
	aggregator ReleaseAggregator,
	observer JobObserver,
) Matrix {
	return &matrix{
		config:     config,
		logger:     logger,
		workspace:  workspace,
		preparer:   preparer,
		executor:   executor,
		collector:  collector,
		store:      store,
		aggregator: aggregator,
		observer:   observer,
	}
}

type matrix struct {
	config model.Matrix

	logger     applogger.Logger
	workspace  Workspace
	preparer   EnvironmentPreparer
	executor   BuildExecutor
	collector  ArtifactCollector
	store      ArtifactStore
	aggregator ReleaseAggregator
	observer   JobObserver
}

func (service matrix) Run(ctx context.Context, event model.Event, targets []model.TargetDescriptor) (Report, error) {
	report := Report{RunID: uuid.NewString()}
	if !ShouldRun(service.config.Trigger, event) {
		if event.Ref == "" && event.Kind == model.EventPush {
			service.logger.Info(fmt.Sprintf("skip run: %v event has an unknown ref and the trigger only matches branches %v", event.Kind, service.config.Trigger.Branches))
		} else {
			service.logger.Info(fmt.Sprintf("skip run: %v event on \"%v\" is not a trigger", event.Kind, event.Ref))
		}
		return report, model.ErrSkipped
	}

	report.Jobs = make([]*model.BuildJob, 0, len(targets))
	for _, target := range targets {
		report.Jobs = append(report.Jobs, model.NewBuildJob(target))
	}
	service.logger.Info(fmt.Sprintf("start run %v with %v jobs for commit %v...", report.RunID, len(report.Jobs), event.ShortCommit()))
	start := time.Now()
	service.runJobs(ctx, report.RunID, event, report.Jobs)
	service.logger.Info(fmt.Sprintf("all jobs finished in %v", time.Since(start).String()))

	if ctx.Err() != nil {
		return report, fmt.Errorf("%w: %v", model.ErrRunAborted, ctx.Err())
	}

	var result *multierror.Error
	var keys []string
	for _, job := range report.Jobs {
		if job.Status != model.JobSucceeded {
			result = multierror.Append(result, job.Err)
			continue
		}
		keys = append(keys, job.Target.StorageKey(event.Commit))
	}

	if service.config.Policy.Publish == model.PublishAllSucceeded && len(report.Failed()) > 0 {
		service.logger.Info(fmt.Sprintf("skip publish: %v of %v jobs failed", len(report.Failed()), len(report.Jobs)))
		return report, result.ErrorOrNil()
	}

	release, err := service.aggregator.Aggregate(ctx, event, keys)
	if err != nil {
		report.PublishErr = err
		result = multierror.Append(result, err)
		return report, result.ErrorOrNil()
	}
	report.Release = &release
	return report, result.ErrorOrNil()
}

func (service matrix) BuildTarget(ctx context.Context, event model.Event, target model.TargetDescriptor) *model.BuildJob {
	job := model.NewBuildJob(target)
	service.runJob(ctx, uuid.NewString(), event, job)
	return job
}

func (service matrix) Publish(ctx context.Context, event model.Event) (model.Release, error) {
	keys, err := service.store.Keys(ctx, model.StorageKeyPrefix(event.Commit))
	if err != nil {
		return model.Release{}, err
	}
	return service.aggregator.Aggregate(ctx, event, keys)
}

// runJobs returns once every job is terminal. Job goroutines never return an
// error so a failing target does not cancel its siblings.
func (service matrix) runJobs(ctx context.Context, runID string, event model.Event, jobs []*model.BuildJob) {
	var group errgroup.Group
	if service.config.Policy.Parallelism > 0 {
		group.SetLimit(service.config.Policy.Parallelism)
	}
	for _, job := range jobs {
		job := job
		group.Go(func() error {
			service.runJob(ctx, runID, event, job)
			return nil
		})
	}
	_ = group.Wait()
}

func (service matrix) runJob(ctx context.Context, runID string, event model.Event, job *model.BuildJob) {
	logger := service.logger.WithField("target", job.Target.Name)
	if service.config.Policy.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, service.config.Policy.JobTimeout)
		defer cancel()
	}

	job.Start(time.Now())
	logger.Info(fmt.Sprintf("start job \"%v\" in %v...", job.Target.Name, job.Target.ExecutionMode()))
	artifacts, err := service.executeJob(ctx, runID, event, job.Target, logger)
	job.Finish(time.Now(), artifacts, err)
	if service.observer != nil {
		service.observer.Observe(job)
	}
	if job.Status == model.JobFailed {
		logger.Error(job.Err, fmt.Sprintf("job \"%v\" failed after %v", job.Target.Name, job.Duration().String()))
		return
	}
	logger.Info(fmt.Sprintf("done in %v", job.Duration().String()))
}

func (service matrix) executeJob(
	ctx context.Context,
	runID string,
	event model.Event,
	target model.TargetDescriptor,
	logger applogger.Logger,
) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, &model.BuildError{Target: target.Name, Err: err}
	}
	workDir, err := service.workspace.Acquire(ctx, event, target)
	if err != nil {
		return nil, &model.EnvironmentSetupError{Target: target.Name, Step: "workspace", Err: err}
	}
	defer func() {
		if releaseErr := service.workspace.Release(context.WithoutCancel(ctx), workDir); releaseErr != nil {
			logger.Warning(releaseErr, fmt.Sprintf("failed to release workspace %v", workDir))
		}
	}()

	job := JobContext{
		RunID:      runID,
		Target:     target,
		StorageKey: target.StorageKey(event.Commit),
		WorkDir:    workDir,
		Logger:     logger,
	}

	// drop what an earlier run of this commit left under the key
	if err = service.store.Delete(ctx, job.StorageKey); err != nil {
		return nil, &model.EnvironmentSetupError{Target: target.Name, Step: "reset artifacts", Err: err}
	}

	if _, containerized := target.ExecutionMode().(model.ContainerExecution); containerized {
		logger.Debug("skip environment preparation: container image carries the toolchain")
	} else if err = service.preparer.Prepare(ctx, job); err != nil {
		var setupErr *model.EnvironmentSetupError
		if !stderrors.As(err, &setupErr) {
			err = &model.EnvironmentSetupError{Target: target.Name, Err: err}
		}
		return nil, err
	}

	if err = service.executor.Execute(ctx, job); err != nil {
		var buildErr *model.BuildError
		if !stderrors.As(err, &buildErr) {
			err = &model.BuildError{Target: target.Name, Err: err}
		}
		return nil, err
	}

	artifacts, err := service.collector.Collect(ctx, job)
	if err != nil {
		return nil, err
	}
	produced := make([]string, 0, len(artifacts))
	for _, artifact := range artifacts {
		produced = append(produced, artifact.Name)
	}
	return produced, nil
}
