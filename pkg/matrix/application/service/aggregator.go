package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
	applogger "github.com/tss-calculator/go-lib/pkg/application/logger"

	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/model"
)

type ReleaseAggregator interface {
	Aggregate(ctx context.Context, event model.Event, keys []string) (model.Release, error)
}

func NewReleaseAggregator(
	config model.Matrix,
	artifactRoot string,
	logger applogger.Logger,
	store ArtifactStore,
	publisher ReleasePublisher,
) ReleaseAggregator {
	return &aggregator{
		config:       config,
		artifactRoot: artifactRoot,
		logger:       logger,
		store:        store,
		publisher:    publisher,
	}
}

type aggregator struct {
	config       model.Matrix
	artifactRoot string

	logger    applogger.Logger
	store     ArtifactStore
	publisher ReleasePublisher
}

func (a aggregator) Aggregate(ctx context.Context, event model.Event, keys []string) (model.Release, error) {
	release, err := NameRelease(a.config.AppName, a.config.Release, event)
	if err != nil {
		return model.Release{}, &model.PublishError{Err: err}
	}
	a.logger.Info(fmt.Sprintf("start aggregate release \"%v\" from %v artifact sets...", release.Tag, len(keys)))
	start := time.Now()
	defer func() {
		a.logger.Info(fmt.Sprintf("done in %v", time.Since(start).String()))
	}()

	assets, err := a.download(ctx, keys)
	if err != nil {
		return model.Release{}, &model.PublishError{Tag: release.Tag, Err: err}
	}
	if len(assets) == 0 {
		return model.Release{}, &model.PublishError{Tag: release.Tag, Err: model.ErrNoArtifacts}
	}
	release.Assets = assets

	err = a.publisher.Publish(ctx, release)
	if err != nil {
		return model.Release{}, &model.PublishError{Tag: release.Tag, Err: err}
	}
	a.logger.Info(fmt.Sprintf("published release \"%v\" with %v assets", release.Tag, len(release.Assets)))
	return release, nil
}

func (a aggregator) download(ctx context.Context, keys []string) ([]string, error) {
	err := os.RemoveAll(a.artifactRoot)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to clean artifact root %v", a.artifactRoot)
	}
	err = os.MkdirAll(a.artifactRoot, 0o755)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create artifact root %v", a.artifactRoot)
	}
	for _, key := range keys {
		_, err = a.store.Download(ctx, key, filepath.Join(a.artifactRoot, key))
		if stderrors.Is(err, ErrKeyNotFound) {
			a.logger.Warning(err, fmt.Sprintf("skip missing artifact set \"%v\"", key))
			continue
		}
		if err != nil {
			return nil, err
		}
	}

	matches, err := doublestar.Glob(os.DirFS(a.artifactRoot), "**/*."+a.config.ArtifactExtension, doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.Wrap(err, "failed to match release assets")
	}
	assets := make([]string, 0, len(matches))
	for _, match := range matches {
		assets = append(assets, filepath.Join(a.artifactRoot, filepath.FromSlash(match)))
	}
	sort.Strings(assets)
	return assets, nil
}
