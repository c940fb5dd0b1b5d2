package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/model"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/service"
)

const releaseManifest = "release.json"

type manifest struct {
	Tag    string   `json:"tag"`
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Commit string   `json:"commit,omitempty"`
	Assets []string `json:"assets"`
}

// NewDirectoryPublisher publishes a release as <root>/<tag>/ with a release.json manifest.
func NewDirectoryPublisher(root string, overwrite bool) service.ReleasePublisher {
	return &directoryPublisher{
		root:      root,
		overwrite: overwrite,
	}
}

type directoryPublisher struct {
	root      string
	overwrite bool
}

func (p directoryPublisher) Publish(ctx context.Context, release model.Release) error {
	releaseDir := filepath.Join(p.root, release.Tag)
	_, err := os.Stat(releaseDir)
	if err == nil && !p.overwrite {
		return fmt.Errorf("release %v already exists in %v", release.Tag, p.root)
	}
	if err = os.RemoveAll(releaseDir); err != nil {
		return errors.Wrapf(err, "failed to reset %v", releaseDir)
	}
	if err = os.MkdirAll(releaseDir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create %v", releaseDir)
	}

	names := make([]string, 0, len(release.Assets))
	for _, asset := range release.Assets {
		if err = ctx.Err(); err != nil {
			return err
		}
		name := filepath.Base(asset)
		if err = copyAsset(asset, filepath.Join(releaseDir, name)); err != nil {
			return err
		}
		names = append(names, name)
	}

	body, err := json.MarshalIndent(manifest{
		Tag:    release.Tag,
		Title:  release.Title,
		Body:   release.Body,
		Commit: release.Commit,
		Assets: names,
	}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal release manifest")
	}
	return errors.Wrap(os.WriteFile(filepath.Join(releaseDir, releaseManifest), body, 0o644), "failed to write release manifest")
}

func copyAsset(source, destination string) error {
	in, err := os.Open(source)
	if err != nil {
		return errors.Wrapf(err, "failed to open asset %v", source)
	}
	defer in.Close()
	out, err := os.Create(destination)
	if err != nil {
		return errors.Wrapf(err, "failed to create %v", destination)
	}
	_, err = io.Copy(out, in)
	closeErr := out.Close()
	if err != nil {
		return errors.Wrapf(err, "failed to copy asset %v", source)
	}
	return errors.Wrapf(closeErr, "failed to close %v", destination)
}
