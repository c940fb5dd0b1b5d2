package main

import (
	stdcontext "context"
	"fmt"
	"os"

	"github.com/tss-calculator/matrixbuild/pkg/matrix/infrastructure/dependency"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/infrastructure/trigger"
)

func publish(ctx stdcontext.Context, flags trigger.Flags) error {
	dependencyContainer, err := dependency.ContainerFromContext(ctx)
	if err != nil {
		return err
	}
	event, err := trigger.LoadEvent(ctx, flags, os.Getenv, dependencyContainer.RevisionProvider(), dependencyContainer.Logger())
	if err != nil {
		return err
	}
	release, err := dependencyContainer.Matrix().Publish(ctx, event)
	if err != nil {
		return err
	}
	dependencyContainer.Logger().Info(fmt.Sprintf("published release %v with %v assets", release.Tag, len(release.Assets)))
	return nil
}
