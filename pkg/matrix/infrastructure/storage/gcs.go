package storage

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"

	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/model"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/service"
)

// NewGCSStore keeps every key as objects under <prefix>/<key>/ in bucket.
func NewGCSStore(client *storage.Client, bucket, prefix string) service.ArtifactStore {
	return &gcsStore{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

type gcsStore struct {
	client *storage.Client
	bucket string
	prefix string
}

func (s gcsStore) Upload(ctx context.Context, key string, files []string) ([]model.Artifact, error) {
	if err := s.Delete(ctx, key); err != nil {
		return nil, err
	}
	bucket := s.client.Bucket(s.bucket)
	artifacts := make([]model.Artifact, 0, len(files))
	for _, file := range files {
		name := filepath.Base(file)
		objectName := s.objectName(key, name)
		err := upload(ctx, bucket.Object(objectName), file)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to upload %v to gs://%v/%v", file, s.bucket, objectName)
		}
		artifacts = append(artifacts, model.Artifact{
			Key:  key,
			Name: name,
			Path: "gs://" + s.bucket + "/" + objectName,
		})
	}
	return artifacts, nil
}

func (s gcsStore) Download(ctx context.Context, key, dir string) ([]string, error) {
	bucket := s.client.Bucket(s.bucket)
	it := bucket.Objects(ctx, &storage.Query{Prefix: s.objectName(key, "")})
	var files []string
	for {
		attrs, err := it.Next()
		if stderrors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list key %v", key)
		}
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "failed to create %v", dir)
		}
		destination := filepath.Join(dir, path.Base(attrs.Name))
		if err = download(ctx, bucket.Object(attrs.Name), destination); err != nil {
			return nil, errors.Wrapf(err, "failed to download gs://%v/%v", s.bucket, attrs.Name)
		}
		files = append(files, destination)
	}
	if len(files) == 0 {
		return nil, errors.Wrapf(service.ErrKeyNotFound, "key %v", key)
	}
	return files, nil
}

func (s gcsStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	base := s.objectName("", "")
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{
		Prefix:    base + prefix,
		Delimiter: "/",
	})
	var keys []string
	for {
		attrs, err := it.Next()
		if stderrors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list keys with prefix %v", prefix)
		}
		if attrs.Prefix == "" {
			continue
		}
		keys = append(keys, strings.TrimSuffix(strings.TrimPrefix(attrs.Prefix, base), "/"))
	}
	sort.Strings(keys)
	return keys, nil
}

func (s gcsStore) Delete(ctx context.Context, key string) error {
	bucket := s.client.Bucket(s.bucket)
	it := bucket.Objects(ctx, &storage.Query{Prefix: s.objectName(key, "")})
	for {
		attrs, err := it.Next()
		if stderrors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "failed to list key %v", key)
		}
		err = bucket.Object(attrs.Name).Delete(ctx)
		if err != nil && !stderrors.Is(err, storage.ErrObjectNotExist) {
			return errors.Wrapf(err, "failed to delete gs://%v/%v", s.bucket, attrs.Name)
		}
	}
}

// objectName joins prefix, key and name; an empty name yields the key directory with a trailing slash.
func (s gcsStore) objectName(key, name string) string {
	var parts []string
	if s.prefix != "" {
		parts = append(parts, s.prefix)
	}
	if key != "" {
		parts = append(parts, key)
	}
	if name == "" {
		if len(parts) == 0 {
			return ""
		}
		return strings.Join(parts, "/") + "/"
	}
	return strings.Join(append(parts, name), "/")
}

func upload(ctx context.Context, object *storage.ObjectHandle, file string) error {
	in, err := os.Open(file)
	if err != nil {
		return err
	}
	defer in.Close()
	writer := object.NewWriter(ctx)
	writer.ContentType = "application/octet-stream"
	if _, err = io.Copy(writer, in); err != nil {
		_ = writer.Close()
		return err
	}
	return writer.Close()
}

func download(ctx context.Context, object *storage.ObjectHandle, destination string) error {
	reader, err := object.NewReader(ctx)
	if err != nil {
		return err
	}
	defer reader.Close()
	out, err := os.Create(destination)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, reader)
	closeErr := out.Close()
	if err != nil {
		return err
	}
	return closeErr
}
