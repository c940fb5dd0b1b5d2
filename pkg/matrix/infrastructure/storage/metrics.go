package storage

import (
	"context"
	"time"

	"github.com/go-kit/kit/metrics"

	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/model"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/service"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/infrastructure/telemetry"
)

func NewMetricsStore(s service.ArtifactStore, requestCount metrics.Counter, requestLatency metrics.Histogram) service.ArtifactStore {
	return &metricsStore{s, requestCount, requestLatency}
}

type metricsStore struct {
	Store          service.ArtifactStore
	requestCount   metrics.Counter
	requestLatency metrics.Histogram
}

func (s *metricsStore) Upload(ctx context.Context, key string, files []string) ([]model.Artifact, error) {
	defer func(begin time.Time) {
		telemetry.UpdateMetrics(s.requestCount, s.requestLatency, "Upload", begin)
	}(time.Now())

	return s.Store.Upload(ctx, key, files)
}

func (s *metricsStore) Download(ctx context.Context, key, dir string) ([]string, error) {
	defer func(begin time.Time) {
		telemetry.UpdateMetrics(s.requestCount, s.requestLatency, "Download", begin)
	}(time.Now())

	return s.Store.Download(ctx, key, dir)
}

func (s *metricsStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	defer func(begin time.Time) { telemetry.UpdateMetrics(s.requestCount, s.requestLatency, "Keys", begin) }(time.Now())

	return s.Store.Keys(ctx, prefix)
}

func (s *metricsStore) Delete(ctx context.Context, key string) error {
	defer func(begin time.Time) { telemetry.UpdateMetrics(s.requestCount, s.requestLatency, "Delete", begin) }(time.Now())

	return s.Store.Delete(ctx, key)
}
