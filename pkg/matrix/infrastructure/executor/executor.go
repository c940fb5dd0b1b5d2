package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/model"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/service"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/infrastructure/script"
)

type HostRunner interface {
	Run(ctx context.Context, job service.JobContext, body string) error
}

type ContainerRunner interface {
	Run(ctx context.Context, job service.JobContext, image, body string) error
}

func NewBuildExecutor(
	appName string,
	toolchains model.ToolchainTable,
	host HostRunner,
	container ContainerRunner,
) service.BuildExecutor {
	return &executor{
		appName:    appName,
		toolchains: toolchains,
		host:       host,
		container:  container,
	}
}

type executor struct {
	appName    string
	toolchains model.ToolchainTable

	host      HostRunner
	container ContainerRunner
}

func (e executor) Execute(ctx context.Context, job service.JobContext) error {
	body, err := BuildScript(e.appName, e.toolchains, job.Target)
	if err != nil {
		return &model.BuildError{Target: job.Target.Name, Err: err}
	}

	job.Logger.Info(fmt.Sprintf("start build \"%v\" in %v...", job.Target.TargetTriple, job.Target.ExecutionMode()))
	start := time.Now()
	defer func() {
		job.Logger.Info(fmt.Sprintf("done in %v", time.Since(start).String()))
	}()

	switch mode := job.Target.ExecutionMode().(type) {
	case model.ContainerExecution:
		if e.container == nil {
			err = fmt.Errorf("container execution is not available")
			break
		}
		err = e.container.Run(ctx, job, mode.Image, body)
	case model.HostExecution:
		err = e.host.Run(ctx, job, body)
	default:
		err = fmt.Errorf("unsupported execution mode %v", mode)
	}
	if err != nil {
		return &model.BuildError{Target: job.Target.Name, Err: err}
	}
	return nil
}

// BuildScript prepends the rendered toolchain steps matching the target triple
// to the rendered build command.
func BuildScript(appName string, toolchains model.ToolchainTable, target model.TargetDescriptor) (string, error) {
	toolchainSteps, err := toolchains.StepsFor(target.TargetTriple)
	if err != nil {
		return "", err
	}
	variables := script.VariablesFor(appName, target)
	lines := make([]string, 0, len(toolchainSteps)+1)
	for _, toolchainStep := range toolchainSteps {
		line, err := script.Render("toolchain step", toolchainStep, variables)
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
	}
	buildCommand, err := script.Render("build command", target.BuildCommand, variables)
	if err != nil {
		return "", err
	}
	lines = append(lines, buildCommand)
	return script.Join(lines...), nil
}
