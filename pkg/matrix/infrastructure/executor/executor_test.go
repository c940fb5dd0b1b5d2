package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tss-calculator/go-lib/pkg/common/maybe"
	"github.com/tss-calculator/go-lib/pkg/infrastructure/logger"

	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/model"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/service"
)

type fakeHostRunner struct {
	body string
	err  error
}

func (r *fakeHostRunner) Run(_ context.Context, _ service.JobContext, body string) error {
	r.body = body
	return r.err
}

type fakeContainerRunner struct {
	image string
	body  string
}

func (r *fakeContainerRunner) Run(_ context.Context, _ service.JobContext, image, body string) error {
	r.image = image
	r.body = body
	return nil
}

var toolchains = model.ToolchainTable{
	{Pattern: "armv7-*", Steps: []string{"sudo apt-get install -y gcc-arm-linux-gnueabihf"}},
	{Pattern: "*-musl", Steps: []string{"rustup target add {{.TargetTriple}}"}},
}

func TestBuildScript(t *testing.T) {
	t.Run("PrependsMatchingToolchainSteps", func(t *testing.T) {
		target := model.TargetDescriptor{
			Name:         "linux-arm-gnueabihf",
			TargetTriple: "armv7-unknown-linux-gnueabihf",
			BuildCommand: "yarn build --target {{.TargetTriple}}",
		}

		// act
		body, err := BuildScript("ds-tex", toolchains, target)

		assert.Nil(t, err)
		assert.Equal(t, "set -e\nsudo apt-get install -y gcc-arm-linux-gnueabihf\nyarn build --target armv7-unknown-linux-gnueabihf\n", body)
	})

	t.Run("UsesBuildCommandAloneWithoutMatch", func(t *testing.T) {
		target := model.TargetDescriptor{
			Name:         "darwin-x64",
			TargetTriple: "x86_64-apple-darwin",
			BuildCommand: "yarn build",
		}

		// act
		body, err := BuildScript("ds-tex", toolchains, target)

		assert.Nil(t, err)
		assert.Equal(t, "set -e\nyarn build\n", body)
	})
}

func TestExecute(t *testing.T) {
	job := func(target model.TargetDescriptor) service.JobContext {
		return service.JobContext{RunID: "run", Target: target, WorkDir: t.TempDir(), Logger: logger.NewTextLogger()}
	}

	t.Run("RunsHostTargetOnHost", func(t *testing.T) {
		host, container := &fakeHostRunner{}, &fakeContainerRunner{}
		target := model.TargetDescriptor{Name: "darwin-x64", HostPlatform: model.HostMacOS, TargetTriple: "x86_64-apple-darwin", BuildCommand: "yarn build"}

		// act
		err := NewBuildExecutor("ds-tex", nil, host, container).Execute(context.Background(), job(target))

		assert.Nil(t, err)
		assert.Equal(t, "set -e\nyarn build\n", host.body)
		assert.Empty(t, container.body)
	})

	t.Run("RunsContainerTargetInImage", func(t *testing.T) {
		host, container := &fakeHostRunner{}, &fakeContainerRunner{}
		target := model.TargetDescriptor{
			Name:           "linux-arm64-musl",
			HostPlatform:   model.HostLinux,
			TargetTriple:   "aarch64-unknown-linux-musl",
			BuildCommand:   "yarn build",
			ContainerImage: maybe.New("ghcr.io/napi-rs/napi-rs/nodejs-rust:lts-alpine"),
		}

		// act
		err := NewBuildExecutor("ds-tex", toolchains, host, container).Execute(context.Background(), job(target))

		assert.Nil(t, err)
		assert.Equal(t, "ghcr.io/napi-rs/napi-rs/nodejs-rust:lts-alpine", container.image)
		assert.Equal(t, "set -e\nrustup target add aarch64-unknown-linux-musl\nyarn build\n", container.body)
		assert.Empty(t, host.body)
	})

	t.Run("WrapsFailureIntoBuildError", func(t *testing.T) {
		cause := errors.New("exit status 101")
		target := model.TargetDescriptor{Name: "win32-x64", HostPlatform: model.HostWindows, TargetTriple: "x86_64-pc-windows-msvc", BuildCommand: "yarn build"}

		// act
		err := NewBuildExecutor("ds-tex", nil, &fakeHostRunner{err: cause}, nil).Execute(context.Background(), job(target))

		var buildErr *model.BuildError
		assert.True(t, errors.As(err, &buildErr))
		assert.Equal(t, "win32-x64", buildErr.Target)
		assert.True(t, errors.Is(err, cause))
	})
}
