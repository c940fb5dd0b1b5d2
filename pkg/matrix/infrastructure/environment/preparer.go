package environment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tss-calculator/go-lib/pkg/common/maybe"

	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/model"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/service"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/infrastructure/command"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/infrastructure/script"
)

func NewEnvironmentPreparer(
	appName string,
	config model.Environment,
	hostPlatform model.HostPlatform,
	runner command.Runner,
) service.EnvironmentPreparer {
	return &preparer{
		appName:      appName,
		config:       config,
		hostPlatform: hostPlatform,
		runner:       runner,
	}
}

type preparer struct {
	appName      string
	config       model.Environment
	hostPlatform model.HostPlatform
	runner       command.Runner
}

type step struct {
	name string
	body string
}

func (p preparer) Prepare(ctx context.Context, job service.JobContext) error {
	target := job.Target
	if target.HostPlatform != p.hostPlatform {
		return &model.EnvironmentSetupError{
			Target: target.Name,
			Step:   "host platform",
			Err:    fmt.Errorf("target requires %v host, running on %v", target.HostPlatform, p.hostPlatform),
		}
	}
	steps, err := p.steps(target)
	if err != nil {
		return &model.EnvironmentSetupError{Target: target.Name, Step: "render", Err: err}
	}

	job.Logger.Info(fmt.Sprintf("start prepare environment for \"%v\"...", target.TargetTriple))
	start := time.Now()
	defer func() {
		job.Logger.Info(fmt.Sprintf("done in %v", time.Since(start).String()))
	}()
	for i, s := range steps {
		job.Logger.Debug(fmt.Sprintf("setup step %v/%v: %v", i+1, len(steps), s.name))
		_, err = script.Run(ctx, p.runner, p.config.Shell, job.WorkDir, "setup", script.Join(s.body))
		if err != nil {
			return &model.EnvironmentSetupError{Target: target.Name, Step: s.name, Err: err}
		}
	}
	return nil
}

// steps lists toolchain install, architecture configuration and the target's
// own setup steps, in that order.
func (p preparer) steps(target model.TargetDescriptor) ([]step, error) {
	variables := script.VariablesFor(p.appName, target)
	var steps []step
	if strings.TrimSpace(p.config.ToolchainInstall) != "" {
		body, err := script.Render("toolchain install", p.config.ToolchainInstall, variables)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step{name: "toolchain install", body: body})
	}
	if _, ok := maybe.Just(target.ArchitectureOverride); ok && strings.TrimSpace(p.config.ArchitectureConfig) != "" {
		body, err := script.Render("architecture config", p.config.ArchitectureConfig, variables)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step{name: "architecture config", body: body})
	}
	for _, setupStep := range target.SetupSteps {
		steps = append(steps, step{name: setupStep, body: setupStep})
	}
	return steps, nil
}
