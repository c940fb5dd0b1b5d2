package main

import (
	stdcontext "context"
	"fmt"
	"os"

	"github.com/tss-calculator/matrixbuild/pkg/matrix/infrastructure/dependency"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/infrastructure/trigger"
)

func build(ctx stdcontext.Context, flags trigger.Flags, target string) error {
	dependencyContainer, err := dependency.ContainerFromContext(ctx)
	if err != nil {
		return err
	}
	event, err := trigger.LoadEvent(ctx, flags, os.Getenv, dependencyContainer.RevisionProvider(), dependencyContainer.Logger())
	if err != nil {
		return err
	}
	selected, err := dependencyContainer.Settings().Matrix.Select([]string{target})
	if err != nil {
		return err
	}
	job := dependencyContainer.Matrix().BuildTarget(ctx, event, selected[0])
	if job.Err != nil {
		return job.Err
	}
	dependencyContainer.Logger().Info(fmt.Sprintf("stored %v under %v", job.ProducedArtifacts, job.Target.StorageKey(event.Commit)))
	return nil
}
