package provider

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/model"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/service"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/infrastructure/command"
)

// NewWorktreeWorkspace gives every job its own detached git worktree of the event commit.
func NewWorktreeWorkspace(
	repoDir string,
	worktreeRoot string,
	runner command.Runner,
) service.Workspace {
	return &worktreeWorkspace{
		repoDir:      repoDir,
		worktreeRoot: worktreeRoot,
		runner:       runner,
	}
}

type worktreeWorkspace struct {
	repoDir      string
	worktreeRoot string
	runner       command.Runner

	// git worktree bookkeeping in .git is shared by all jobs
	mu sync.Mutex
}

func (w *worktreeWorkspace) Acquire(ctx context.Context, event model.Event, target model.TargetDescriptor) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	root, err := filepath.Abs(w.worktreeRoot)
	if err != nil {
		return "", err
	}
	path := filepath.Join(root, target.Name)
	if filepath.Dir(path) != root {
		return "", errors.Errorf("target name %q does not resolve to a directory under %v", target.Name, root)
	}
	if _, err = os.Stat(path); err == nil {
		err = w.remove(ctx, path)
		if err != nil {
			// leftover directory that git no longer tracks
			if err = os.RemoveAll(path); err != nil {
				return "", errors.Wrapf(err, "failed to clean %v", path)
			}
			if err = w.prune(ctx); err != nil {
				return "", err
			}
		}
	}
	revision := event.Commit
	if revision == "" {
		revision = "HEAD"
	}
	_, err = w.runner.Execute(ctx, command.Command{
		WorkDir:    w.repoDir,
		Executable: "git",
		Args:       []string{"worktree", "add", "--detach", path, revision},
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to add worktree for target %v at %v", target.Name, revision)
	}
	return path, nil
}

func (w *worktreeWorkspace) Release(ctx context.Context, dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.remove(ctx, dir)
}

func (w *worktreeWorkspace) remove(ctx context.Context, path string) error {
	_, err := w.runner.Execute(ctx, command.Command{
		WorkDir:    w.repoDir,
		Executable: "git",
		Args:       []string{"worktree", "remove", "--force", path},
	})
	return errors.Wrapf(err, "failed to remove worktree %v", path)
}

func (w *worktreeWorkspace) prune(ctx context.Context) error {
	_, err := w.runner.Execute(ctx, command.Command{
		WorkDir:    w.repoDir,
		Executable: "git",
		Args:       []string{"worktree", "prune"},
	})
	return errors.Wrap(err, "failed to prune worktrees")
}

// NewInPlaceWorkspace runs jobs directly in dir.
func NewInPlaceWorkspace(dir string) service.Workspace {
	return inPlaceWorkspace{dir: dir}
}

type inPlaceWorkspace struct {
	dir string
}

func (w inPlaceWorkspace) Acquire(context.Context, model.Event, model.TargetDescriptor) (string, error) {
	return w.dir, nil
}

func (w inPlaceWorkspace) Release(context.Context, string) error {
	return nil
}
