package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tss-calculator/go-lib/pkg/infrastructure/logger"

	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/model"
)

var testLogger = logger.NewTextLogger()

type fakeWorkspace struct {
	root string
}

func (w fakeWorkspace) Acquire(_ context.Context, _ model.Event, target model.TargetDescriptor) (string, error) {
	dir := filepath.Join(w.root, target.Name)
	return dir, os.MkdirAll(dir, 0o755)
}

func (w fakeWorkspace) Release(context.Context, string) error {
	return nil
}

type fakePreparer struct {
	mu       sync.Mutex
	failures map[model.TargetName]error
	prepared []model.TargetName
}

func (p *fakePreparer) Prepare(_ context.Context, job JobContext) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prepared = append(p.prepared, job.Target.Name)
	return p.failures[job.Target.Name]
}

type fakeExecutor struct {
	mu       sync.Mutex
	builds   map[model.TargetName]func(ctx context.Context) error
	executed []model.TargetName
}

func (e *fakeExecutor) Execute(ctx context.Context, job JobContext) error {
	e.mu.Lock()
	e.executed = append(e.executed, job.Target.Name)
	build := e.builds[job.Target.Name]
	e.mu.Unlock()
	if build == nil {
		return nil
	}
	return build(ctx)
}

func (e *fakeExecutor) wasExecuted(name model.TargetName) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, executed := range e.executed {
		if executed == name {
			return true
		}
	}
	return false
}

type fakeCollector struct {
	empty map[model.TargetName]bool
}

func (c fakeCollector) Collect(_ context.Context, job JobContext) ([]model.Artifact, error) {
	if c.empty[job.Target.Name] {
		return nil, nil
	}
	name := job.Target.ArtifactPattern("ds-tex", "node")
	return []model.Artifact{{
		Target: job.Target.Name,
		Key:    job.StorageKey,
		Name:   name,
		Path:   filepath.Join(job.WorkDir, name),
	}}, nil
}

type fakeStore struct {
	mu      sync.Mutex
	sets    map[string][]string
	deleted []string
	err     error
}

func (s *fakeStore) Upload(_ context.Context, key string, files []string) ([]model.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sets == nil {
		s.sets = make(map[string][]string)
	}
	s.sets[key] = files
	return nil, nil
}

// Download writes empty files with the stored names into dir.
func (s *fakeStore) Download(_ context.Context, key, dir string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names, ok := s.sets[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (s *fakeStore) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for key := range s.sets {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	delete(s.sets, key)
	s.deleted = append(s.deleted, key)
	return nil
}

type fakeAggregator struct {
	calls   int
	keys    []string
	onCall  func()
	release model.Release
	err     error
}

func (a *fakeAggregator) Aggregate(_ context.Context, event model.Event, keys []string) (model.Release, error) {
	a.calls++
	a.keys = keys
	if a.onCall != nil {
		a.onCall()
	}
	if a.err != nil {
		return model.Release{}, a.err
	}
	release := a.release
	release.Tag = event.Commit
	return release, nil
}

type fakePublisher struct {
	published []model.Release
	err       error
}

func (p *fakePublisher) Publish(_ context.Context, release model.Release) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, release)
	return nil
}

func sleepOrCancel(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
