package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tss-calculator/go-lib/pkg/common/maybe"

	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/model"
)

func testKey(name model.TargetName) string {
	return model.TargetDescriptor{Name: name}.StorageKey(testEvent.Commit)
}

var testEvent = model.Event{
	Commit: "0123456789abcdef0123456789abcdef01234567",
	Ref:    "refs/heads/main",
	Kind:   model.EventPush,
}

func testMatrixConfig() model.Matrix {
	return model.Matrix{
		AppName:           "ds-tex",
		ArtifactExtension: "node",
		Targets: []model.TargetDescriptor{
			{Name: "a", HostPlatform: model.HostLinux, TargetTriple: "x86_64-unknown-linux-gnu", BuildCommand: "yarn build"},
			{Name: "b", HostPlatform: model.HostMacOS, TargetTriple: "aarch64-apple-darwin", BuildCommand: "yarn build"},
			{
				Name:           "c",
				HostPlatform:   model.HostLinux,
				TargetTriple:   "aarch64-unknown-linux-musl",
				BuildCommand:   "yarn build",
				ContainerImage: maybe.New("ghcr.io/napi-rs/napi-rs/nodejs-rust:lts-alpine"),
			},
		},
		Policy: model.Policy{Publish: model.PublishAlways, JobTimeout: time.Minute},
	}
}

type testDeps struct {
	preparer   *fakePreparer
	executor   *fakeExecutor
	collector  fakeCollector
	store      *fakeStore
	aggregator *fakeAggregator
}

func newTestDeps() *testDeps {
	return &testDeps{
		preparer:   &fakePreparer{failures: map[model.TargetName]error{}},
		executor:   &fakeExecutor{builds: map[model.TargetName]func(ctx context.Context) error{}},
		collector:  fakeCollector{empty: map[model.TargetName]bool{}},
		store:      &fakeStore{},
		aggregator: &fakeAggregator{},
	}
}

func (d *testDeps) service(t *testing.T, config model.Matrix) Matrix {
	return NewMatrixService(
		config,
		testLogger,
		fakeWorkspace{root: t.TempDir()},
		d.preparer,
		d.executor,
		d.collector,
		d.store,
		d.aggregator,
		nil,
	)
}

func jobByName(report Report, name model.TargetName) *model.BuildJob {
	for _, job := range report.Jobs {
		if job.Target.Name == name {
			return job
		}
	}
	return nil
}

func TestMatrixRun(t *testing.T) {
	t.Run("AggregatorWaitsForSlowestJob", func(t *testing.T) {
		deps := newTestDeps()
		var slowDone atomic.Bool
		deps.executor.builds["b"] = func(ctx context.Context) error {
			err := sleepOrCancel(ctx, 200*time.Millisecond)
			slowDone.Store(true)
			return err
		}
		var doneAtAggregation bool
		deps.aggregator.onCall = func() {
			doneAtAggregation = slowDone.Load()
		}
		config := testMatrixConfig()

		// act
		report, err := deps.service(t, config).Run(context.Background(), testEvent, config.Targets)

		assert.Nil(t, err)
		assert.Equal(t, 1, deps.aggregator.calls)
		assert.True(t, doneAtAggregation)
		for _, job := range report.Jobs {
			assert.Equal(t, model.JobSucceeded, job.Status, job.Target.Name)
		}
		assert.Equal(t, []string{testKey("a"), testKey("b"), testKey("c")}, deps.aggregator.keys)
		assert.True(t, report.Succeeded())
	})

	t.Run("FailedJobDoesNotCancelSiblings", func(t *testing.T) {
		deps := newTestDeps()
		deps.executor.builds["a"] = func(context.Context) error {
			return errors.New("exit status 101")
		}
		deps.executor.builds["b"] = func(ctx context.Context) error {
			return sleepOrCancel(ctx, 100*time.Millisecond)
		}
		config := testMatrixConfig()

		// act
		report, err := deps.service(t, config).Run(context.Background(), testEvent, config.Targets)

		assert.Error(t, err)
		var buildErr *model.BuildError
		assert.True(t, errors.As(err, &buildErr))
		assert.Equal(t, model.JobFailed, jobByName(report, "a").Status)
		assert.Equal(t, model.JobSucceeded, jobByName(report, "b").Status)
		assert.Equal(t, model.JobSucceeded, jobByName(report, "c").Status)
		assert.Equal(t, []string{testKey("b"), testKey("c")}, deps.aggregator.keys)
		assert.NotNil(t, report.Release)
		assert.False(t, report.Succeeded())
	})

	t.Run("JobWithoutArtifactsFails", func(t *testing.T) {
		deps := newTestDeps()
		deps.collector.empty["b"] = true
		config := testMatrixConfig()

		// act
		report, err := deps.service(t, config).Run(context.Background(), testEvent, config.Targets)

		assert.Error(t, err)
		job := jobByName(report, "b")
		assert.Equal(t, model.JobFailed, job.Status)
		var missing *model.ArtifactMissingError
		assert.True(t, errors.As(job.Err, &missing))
		assert.NotContains(t, deps.aggregator.keys, testKey("b"))
	})

	t.Run("ContainerTargetSkipsPreparer", func(t *testing.T) {
		deps := newTestDeps()
		config := testMatrixConfig()

		// act
		_, err := deps.service(t, config).Run(context.Background(), testEvent, config.Targets)

		assert.Nil(t, err)
		assert.ElementsMatch(t, []model.TargetName{"a", "b"}, deps.preparer.prepared)
		assert.True(t, deps.executor.wasExecuted("c"))
	})

	t.Run("SetupFailureStopsOnlyThatTarget", func(t *testing.T) {
		deps := newTestDeps()
		deps.preparer.failures["b"] = errors.New("rustup: network unreachable")
		config := testMatrixConfig()

		// act
		report, err := deps.service(t, config).Run(context.Background(), testEvent, config.Targets)

		assert.Error(t, err)
		var setupErr *model.EnvironmentSetupError
		assert.True(t, errors.As(jobByName(report, "b").Err, &setupErr))
		assert.Equal(t, "b", setupErr.Target)
		assert.False(t, deps.executor.wasExecuted("b"))
		assert.Equal(t, model.JobSucceeded, jobByName(report, "a").Status)
	})

	t.Run("CancelledRunSkipsAggregator", func(t *testing.T) {
		deps := newTestDeps()
		config := testMatrixConfig()
		ctx, cancel := context.WithCancel(context.Background())
		deps.executor.builds["a"] = func(ctx context.Context) error {
			cancel()
			return ctx.Err()
		}
		deps.executor.builds["b"] = func(ctx context.Context) error {
			return sleepOrCancel(ctx, 10*time.Second)
		}

		// act
		report, err := deps.service(t, config).Run(ctx, testEvent, config.Targets)

		assert.True(t, errors.Is(err, model.ErrRunAborted))
		assert.Equal(t, 0, deps.aggregator.calls)
		assert.Nil(t, report.Release)
		for _, job := range report.Jobs {
			assert.True(t, job.Status.Terminal(), job.Target.Name)
		}
	})

	t.Run("AllSucceededPolicySkipsPublishOnFailure", func(t *testing.T) {
		deps := newTestDeps()
		deps.executor.builds["c"] = func(context.Context) error {
			return errors.New("container exited with 1")
		}
		config := testMatrixConfig()
		config.Policy.Publish = model.PublishAllSucceeded

		// act
		report, err := deps.service(t, config).Run(context.Background(), testEvent, config.Targets)

		assert.Error(t, err)
		assert.Equal(t, 0, deps.aggregator.calls)
		assert.Nil(t, report.Release)
	})

	t.Run("UntriggeredEventIsSkipped", func(t *testing.T) {
		deps := newTestDeps()
		config := testMatrixConfig()
		config.Trigger = model.Trigger{Branches: []string{"main"}}
		event := testEvent
		event.Kind = model.EventPullRequest

		// act
		report, err := deps.service(t, config).Run(context.Background(), event, config.Targets)

		assert.True(t, errors.Is(err, model.ErrSkipped))
		assert.Empty(t, report.Jobs)
		assert.False(t, deps.executor.wasExecuted("a"))
	})

	t.Run("PublishFailureIsReported", func(t *testing.T) {
		deps := newTestDeps()
		deps.aggregator.err = &model.PublishError{Tag: testEvent.Commit, Err: errors.New("422 already_exists")}
		config := testMatrixConfig()

		// act
		report, err := deps.service(t, config).Run(context.Background(), testEvent, config.Targets)

		assert.Error(t, err)
		var publishErr *model.PublishError
		assert.True(t, errors.As(report.PublishErr, &publishErr))
		assert.Nil(t, report.Release)
		assert.False(t, report.Succeeded())
	})

	t.Run("ParallelismLimitsConcurrentJobs", func(t *testing.T) {
		deps := newTestDeps()
		var running, peak atomic.Int32
		build := func(ctx context.Context) error {
			n := running.Add(1)
			defer running.Add(-1)
			for {
				current := peak.Load()
				if n <= current || peak.CompareAndSwap(current, n) {
					break
				}
			}
			return sleepOrCancel(ctx, 50*time.Millisecond)
		}
		for _, name := range []model.TargetName{"a", "b", "c"} {
			deps.executor.builds[name] = build
		}
		config := testMatrixConfig()
		config.Policy.Parallelism = 1

		// act
		_, err := deps.service(t, config).Run(context.Background(), testEvent, config.Targets)

		assert.Nil(t, err)
		assert.Equal(t, int32(1), peak.Load())
	})
}

func TestMatrixPublish(t *testing.T) {
	t.Run("AggregatesEveryStoredBindingsKey", func(t *testing.T) {
		deps := newTestDeps()
		deps.store.sets = map[string][]string{
			testKey("a"): {"ds-tex.x86_64-unknown-linux-gnu.node"},
			testEvent.Commit + "/cache-a": {"registry.tar"},
		}
		config := testMatrixConfig()

		// act
		release, err := deps.service(t, config).Publish(context.Background(), testEvent)

		assert.Nil(t, err)
		assert.Equal(t, testEvent.Commit, release.Tag)
		assert.Equal(t, []string{testKey("a")}, deps.aggregator.keys)
	})

	t.Run("IgnoresArtifactsOfOtherCommits", func(t *testing.T) {
		deps := newTestDeps()
		deps.store.sets = map[string][]string{
			model.TargetDescriptor{Name: "a"}.StorageKey("fedcba9876543210"): {"ds-tex.x86_64-unknown-linux-gnu.node"},
			testKey("b"): {"ds-tex.aarch64-apple-darwin.node"},
		}
		config := testMatrixConfig()

		// act
		_, err := deps.service(t, config).Publish(context.Background(), testEvent)

		assert.Nil(t, err)
		assert.Equal(t, []string{testKey("b")}, deps.aggregator.keys)
	})

	t.Run("FailedRebuildDropsEarlierArtifactsOfSameCommit", func(t *testing.T) {
		deps := newTestDeps()
		deps.store.sets = map[string][]string{
			testKey("a"): {"ds-tex.x86_64-unknown-linux-gnu.node"},
			testKey("b"): {"ds-tex.aarch64-apple-darwin.node"},
		}
		deps.executor.builds["a"] = func(context.Context) error {
			return errors.New("error[E0425]: cannot find value")
		}
		config := testMatrixConfig()
		matrix := deps.service(t, config)

		job := matrix.BuildTarget(context.Background(), testEvent, config.Targets[0])
		assert.Equal(t, model.JobFailed, job.Status)

		// act
		_, err := matrix.Publish(context.Background(), testEvent)

		assert.Nil(t, err)
		assert.Equal(t, []string{testKey("b")}, deps.aggregator.keys)
		assert.Equal(t, []string{testKey("a")}, deps.store.deleted)
	})
}

func TestMatrixBuildTarget(t *testing.T) {
	t.Run("RunsSingleJob", func(t *testing.T) {
		deps := newTestDeps()
		config := testMatrixConfig()

		// act
		job := deps.service(t, config).BuildTarget(context.Background(), testEvent, config.Targets[0])

		assert.Equal(t, model.JobSucceeded, job.Status)
		assert.Equal(t, []string{"ds-tex.x86_64-unknown-linux-gnu.node"}, job.ProducedArtifacts)
		assert.Equal(t, 0, deps.aggregator.calls)
	})

	t.Run("FailsWhenStoredArtifactsCanNotBeReset", func(t *testing.T) {
		deps := newTestDeps()
		deps.store.err = errors.New("permission denied")
		config := testMatrixConfig()

		// act
		job := deps.service(t, config).BuildTarget(context.Background(), testEvent, config.Targets[0])

		assert.Equal(t, model.JobFailed, job.Status)
		var setupErr *model.EnvironmentSetupError
		assert.True(t, errors.As(job.Err, &setupErr))
		assert.False(t, deps.executor.wasExecuted("a"))
	})
}
