package main

import (
	stdcontext "context"
	"errors"
	"fmt"
	"os"

	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/model"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/infrastructure/dependency"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/infrastructure/telemetry"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/infrastructure/trigger"
)

func run(ctx stdcontext.Context, flags trigger.Flags, targets []string, metricsTextfile string) error {
	dependencyContainer, err := dependency.ContainerFromContext(ctx)
	if err != nil {
		return err
	}
	event, err := trigger.LoadEvent(ctx, flags, os.Getenv, dependencyContainer.RevisionProvider(), dependencyContainer.Logger())
	if err != nil {
		return err
	}
	selected, err := dependencyContainer.Settings().Matrix.Select(targets)
	if err != nil {
		return err
	}

	report, err := dependencyContainer.Matrix().Run(ctx, event, selected)
	if errors.Is(err, model.ErrSkipped) {
		return nil
	}
	logger := dependencyContainer.Logger()
	for _, job := range report.Jobs {
		logger.Info(fmt.Sprintf("%v: %v in %v", job.Target.Name, job.Status, job.Duration().String()))
	}
	if report.Release != nil {
		logger.Info(fmt.Sprintf("published release %v with %v assets", report.Release.Tag, len(report.Release.Assets)))
	}
	if writeErr := telemetry.WriteTextfile(metricsTextfile); writeErr != nil {
		logger.Warning(writeErr, "failed to export metrics")
	}
	return err
}
