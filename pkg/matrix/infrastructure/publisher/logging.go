package publisher

import (
	"context"

	applogger "github.com/tss-calculator/go-lib/pkg/application/logger"

	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/model"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/service"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/infrastructure/telemetry"
)

func NewLoggingPublisher(p service.ReleasePublisher, logger applogger.Logger) service.ReleasePublisher {
	return &loggingPublisher{p, logger, "publisher"}
}

type loggingPublisher struct {
	Publisher service.ReleasePublisher
	logger    applogger.Logger
	prefix    string
}

func (p *loggingPublisher) Publish(ctx context.Context, release model.Release) (err error) {
	defer func() { telemetry.HandleLogError(p.logger, p.prefix, "ReleasePublisher", "Publish", err) }()

	return p.Publisher.Publish(ctx, release)
}
