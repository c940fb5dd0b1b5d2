package storage

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/model"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/service"
)

// NewFilesystemStore keeps every key as a directory <root>/<key>; keys may contain "/".
func NewFilesystemStore(root string) service.ArtifactStore {
	return &filesystemStore{root: root}
}

type filesystemStore struct {
	root string
}

func (s filesystemStore) Upload(ctx context.Context, key string, files []string) ([]model.Artifact, error) {
	keyDir := filepath.Join(s.root, filepath.FromSlash(key))
	err := os.RemoveAll(keyDir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to reset key %v", key)
	}
	err = os.MkdirAll(keyDir, 0o755)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create key %v", key)
	}
	artifacts := make([]model.Artifact, 0, len(files))
	for _, file := range files {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		name := filepath.Base(file)
		destination := filepath.Join(keyDir, name)
		if err = copyFile(file, destination); err != nil {
			return nil, err
		}
		artifacts = append(artifacts, model.Artifact{
			Key:  key,
			Name: name,
			Path: destination,
		})
	}
	return artifacts, nil
}

func (s filesystemStore) Download(ctx context.Context, key, dir string) ([]string, error) {
	keyDir := filepath.Join(s.root, filepath.FromSlash(key))
	entries, err := os.ReadDir(keyDir)
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(service.ErrKeyNotFound, "key %v", key)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list key %v", key)
	}
	err = os.MkdirAll(dir, 0o755)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %v", dir)
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		destination := filepath.Join(dir, entry.Name())
		if err = copyFile(filepath.Join(keyDir, entry.Name()), destination); err != nil {
			return nil, err
		}
		files = append(files, destination)
	}
	return files, nil
}

// Keys lists key directories; a prefix may name a scope directory, as in <commit>/bindings-.
func (s filesystemStore) Keys(_ context.Context, prefix string) ([]string, error) {
	scope, namePrefix := path.Split(prefix)
	scopeDir := filepath.Join(s.root, filepath.FromSlash(scope))
	entries, err := os.ReadDir(scopeDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %v", scopeDir)
	}
	var keys []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), namePrefix) {
			keys = append(keys, scope+entry.Name())
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s filesystemStore) Delete(_ context.Context, key string) error {
	keyDir := filepath.Join(s.root, filepath.FromSlash(key))
	return errors.Wrapf(os.RemoveAll(keyDir), "failed to delete key %v", key)
}

func copyFile(source, destination string) error {
	in, err := os.Open(source)
	if err != nil {
		return errors.Wrapf(err, "failed to open %v", source)
	}
	defer in.Close()
	out, err := os.Create(destination)
	if err != nil {
		return errors.Wrapf(err, "failed to create %v", destination)
	}
	_, err = io.Copy(out, in)
	closeErr := out.Close()
	if err != nil {
		return errors.Wrapf(err, "failed to copy %v", source)
	}
	return errors.Wrapf(closeErr, "failed to close %v", destination)
}
