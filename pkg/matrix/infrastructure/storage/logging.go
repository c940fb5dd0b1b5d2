package storage

import (
	"context"

	applogger "github.com/tss-calculator/go-lib/pkg/application/logger"

	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/model"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/service"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/infrastructure/telemetry"
)

func NewLoggingStore(s service.ArtifactStore, logger applogger.Logger) service.ArtifactStore {
	return &loggingStore{s, logger, "storage"}
}

type loggingStore struct {
	Store  service.ArtifactStore
	logger applogger.Logger
	prefix string
}

func (s *loggingStore) Upload(ctx context.Context, key string, files []string) (artifacts []model.Artifact, err error) {
	defer func() { telemetry.HandleLogError(s.logger, s.prefix, "ArtifactStore", "Upload", err) }()

	return s.Store.Upload(ctx, key, files)
}

func (s *loggingStore) Download(ctx context.Context, key, dir string) (files []string, err error) {
	defer func() { telemetry.HandleLogError(s.logger, s.prefix, "ArtifactStore", "Download", err) }()

	return s.Store.Download(ctx, key, dir)
}

func (s *loggingStore) Keys(ctx context.Context, prefix string) (keys []string, err error) {
	defer func() { telemetry.HandleLogError(s.logger, s.prefix, "ArtifactStore", "Keys", err) }()

	return s.Store.Keys(ctx, prefix)
}

func (s *loggingStore) Delete(ctx context.Context, key string) (err error) {
	defer func() { telemetry.HandleLogError(s.logger, s.prefix, "ArtifactStore", "Delete", err) }()

	return s.Store.Delete(ctx, key)
}
