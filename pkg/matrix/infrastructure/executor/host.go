package executor

import (
	"context"

	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/service"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/infrastructure/command"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/infrastructure/script"
)

func NewHostRunner(shell string, runner command.Runner) HostRunner {
	return &hostRunner{
		shell:  shell,
		runner: runner,
	}
}

type hostRunner struct {
	shell  string
	runner command.Runner
}

func (r hostRunner) Run(ctx context.Context, job service.JobContext, body string) error {
	_, err := script.Run(ctx, r.runner, r.shell, job.WorkDir, "build", body)
	return err
}
