package collector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"

	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/model"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/service"
)

func NewArtifactCollector(appName, extension string, store service.ArtifactStore) service.ArtifactCollector {
	return &collector{
		appName:   appName,
		extension: extension,
		store:     store,
	}
}

type collector struct {
	appName   string
	extension string
	store     service.ArtifactStore
}

func (c collector) Collect(ctx context.Context, job service.JobContext) ([]model.Artifact, error) {
	pattern := job.Target.ArtifactPattern(c.appName, c.extension)
	matches, err := doublestar.Glob(os.DirFS(job.WorkDir), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to match %v in %v", pattern, job.WorkDir)
	}
	if len(matches) == 0 {
		return nil, &model.ArtifactMissingError{Target: job.Target.Name, Pattern: pattern}
	}
	files := make([]string, 0, len(matches))
	for _, match := range matches {
		files = append(files, filepath.Join(job.WorkDir, filepath.FromSlash(match)))
	}

	key := job.StorageKey
	artifacts, err := c.store.Upload(ctx, key, files)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to store artifacts of target %v", job.Target.Name)
	}
	for i := range artifacts {
		artifacts[i].Target = job.Target.Name
	}
	job.Logger.Info(fmt.Sprintf("stored %v artifacts under \"%v\"", len(artifacts), key))
	return artifacts, nil
}
