package publisher

import (
	"context"
	"time"

	"github.com/go-kit/kit/metrics"

	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/model"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/service"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/infrastructure/telemetry"
)

func NewMetricsPublisher(p service.ReleasePublisher, requestCount metrics.Counter, requestLatency metrics.Histogram) service.ReleasePublisher {
	return &metricsPublisher{p, requestCount, requestLatency}
}

type metricsPublisher struct {
	Publisher      service.ReleasePublisher
	requestCount   metrics.Counter
	requestLatency metrics.Histogram
}

func (p *metricsPublisher) Publish(ctx context.Context, release model.Release) error {
	defer func(begin time.Time) {
		telemetry.UpdateMetrics(p.requestCount, p.requestLatency, "Publish", begin)
	}(time.Now())

	return p.Publisher.Publish(ctx, release)
}
