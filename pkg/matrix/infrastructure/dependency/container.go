package dependency

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	gcs "cloud.google.com/go/storage"
	pkgerrors "github.com/pkg/errors"
	applogger "github.com/tss-calculator/go-lib/pkg/application/logger"

	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/model"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/service"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/infrastructure/collector"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/infrastructure/command"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/infrastructure/config/matrixconfig"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/infrastructure/environment"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/infrastructure/executor"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/infrastructure/provider"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/infrastructure/publisher"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/infrastructure/storage"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/infrastructure/telemetry"
)

var dependencyContainer = struct{}{}

const (
	worktreeDir = ".matrixbuild/worktrees"
	artifactDir = "artifacts"
)

type Options struct {
	WorkDir string
	// Worktrees isolates every job in its own git worktree; otherwise jobs build in WorkDir.
	Worktrees bool
}

type Container interface {
	Matrix() service.Matrix
	Logger() applogger.Logger
	Settings() matrixconfig.Settings
	RevisionProvider() provider.RevisionProvider
	Close() error
}

func NewDependencyContainer(
	ctx context.Context,
	logger applogger.Logger,
	settings matrixconfig.Settings,
	options Options,
) (Container, error) {
	config := settings.Matrix
	config.CacheRoot = resolve(options.WorkDir, config.CacheRoot)

	runner := command.NewCommandRunner(logger)
	revisionProvider := provider.NewRevisionProvider(options.WorkDir, runner)

	workspace := provider.NewInPlaceWorkspace(options.WorkDir)
	if options.Worktrees {
		workspace = provider.NewWorktreeWorkspace(options.WorkDir, filepath.Join(options.WorkDir, worktreeDir), runner)
	}

	dockerRunner, err := executor.NewDockerRunnerFromEnv(config.CacheRoot, config.Caches)
	if err != nil {
		return nil, err
	}
	buildExecutor := executor.NewBuildExecutor(
		config.AppName,
		config.Toolchains,
		executor.NewHostRunner(config.Environment.Shell, runner),
		dockerRunner,
	)
	preparer := environment.NewEnvironmentPreparer(config.AppName, config.Environment, model.CurrentHostPlatform(), runner)

	var gcsClient *gcs.Client
	var artifactStore service.ArtifactStore
	switch settings.Storage.Backend {
	case matrixconfig.StorageGCS:
		gcsClient, err = gcs.NewClient(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "failed to create gcs client")
		}
		artifactStore = storage.NewGCSStore(gcsClient, settings.Storage.Bucket, settings.Storage.Prefix)
	default:
		artifactStore = storage.NewFilesystemStore(resolve(options.WorkDir, settings.Storage.Path))
	}
	artifactStore = storage.NewLoggingStore(artifactStore, logger)
	artifactStore = storage.NewMetricsStore(
		artifactStore,
		telemetry.NewRequestCounter("artifact_store"),
		telemetry.NewRequestHistogram("artifact_store"),
	)

	var releasePublisher service.ReleasePublisher
	switch settings.Release.Publisher {
	case matrixconfig.PublisherGithub:
		releasePublisher = publisher.NewGithubPublisher(ctx, publisher.GithubConfig{
			APIURL:     settings.Release.APIURL,
			Repository: settings.Release.Repository,
			Token:      os.Getenv("GITHUB_TOKEN"),
		})
	default:
		releasePublisher = publisher.NewDirectoryPublisher(resolve(options.WorkDir, settings.Release.Directory), settings.Release.Overwrite)
	}
	releasePublisher = publisher.NewLoggingPublisher(releasePublisher, logger)
	releasePublisher = publisher.NewMetricsPublisher(
		releasePublisher,
		telemetry.NewRequestCounter("release_publisher"),
		telemetry.NewRequestHistogram("release_publisher"),
	)

	aggregator := service.NewReleaseAggregator(config, filepath.Join(options.WorkDir, artifactDir), logger, artifactStore, releasePublisher)
	matrixService := service.NewMatrixService(
		config,
		logger,
		workspace,
		preparer,
		buildExecutor,
		collector.NewArtifactCollector(config.AppName, config.ArtifactExtension, artifactStore),
		artifactStore,
		aggregator,
		telemetry.NewJobObserver(),
	)

	return &container{
		matrix:           matrixService,
		logger:           logger,
		settings:         settings,
		revisionProvider: revisionProvider,
		gcsClient:        gcsClient,
	}, nil
}

type container struct {
	matrix           service.Matrix
	logger           applogger.Logger
	settings         matrixconfig.Settings
	revisionProvider provider.RevisionProvider
	gcsClient        *gcs.Client
}

func (c *container) Matrix() service.Matrix {
	return c.matrix
}

func (c *container) Logger() applogger.Logger {
	return c.logger
}

func (c *container) Settings() matrixconfig.Settings {
	return c.settings
}

func (c *container) RevisionProvider() provider.RevisionProvider {
	return c.revisionProvider
}

func (c *container) Close() error {
	if c.gcsClient == nil {
		return nil
	}
	return c.gcsClient.Close()
}

func ContainerFromContext(ctx context.Context) (Container, error) {
	v := ctx.Value(dependencyContainer)
	if c, ok := v.(Container); ok {
		return c, nil
	}
	return nil, errors.New("dependency container not found")
}

func ContainerToContext(ctx context.Context, c Container) context.Context {
	return context.WithValue(ctx, dependencyContainer, c)
}

func resolve(workDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workDir, path)
}
