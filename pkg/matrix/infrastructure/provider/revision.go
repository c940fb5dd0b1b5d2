package provider

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/tss-calculator/matrixbuild/pkg/matrix/infrastructure/command"
)

type RevisionProvider interface {
	Hash(ctx context.Context) (string, error)
	BranchName(ctx context.Context) (string, error)
}

func NewRevisionProvider(repoDir string, runner command.Runner) RevisionProvider {
	return &revisionProvider{
		repoDir: repoDir,
		runner:  runner,
	}
}

type revisionProvider struct {
	repoDir string
	runner  command.Runner
}

func (provider revisionProvider) Hash(ctx context.Context) (string, error) {
	output, err := provider.runner.Execute(ctx, command.Command{
		WorkDir:    provider.repoDir,
		Executable: "git",
		Args:       []string{"rev-parse", "HEAD"},
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve HEAD of %v", provider.repoDir)
	}
	return strings.TrimSpace(output), nil
}

func (provider revisionProvider) BranchName(ctx context.Context) (string, error) {
	output, err := provider.runner.Execute(ctx, command.Command{
		WorkDir:    provider.repoDir,
		Executable: "git",
		Args:       []string{"rev-parse", "--abbrev-ref", "HEAD"},
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve branch of %v", provider.repoDir)
	}
	return strings.TrimSpace(output), nil
}
