package executor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/pkg/errors"

	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/model"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/service"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/infrastructure/command"
)

const (
	containerWorkDir = "/build"
	// root inside the container avoids uid mismatches on the bind-mounted workdir
	containerUser = "0:0"
)

var invalidContainerNameChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// NewDockerRunner runs build scripts inside containers through the Docker Engine API.
func NewDockerRunner(cli client.APIClient, cacheRoot string, caches []model.CacheMount) ContainerRunner {
	return &dockerRunner{
		client:    cli,
		cacheRoot: cacheRoot,
		caches:    caches,
	}
}

func NewDockerRunnerFromEnv(cacheRoot string, caches []model.CacheMount) (ContainerRunner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, errors.Wrap(err, "failed to create docker client")
	}
	return NewDockerRunner(cli, cacheRoot, caches), nil
}

type dockerRunner struct {
	client    client.APIClient
	cacheRoot string
	caches    []model.CacheMount
}

type containerSpec struct {
	name       string
	config     *container.Config
	hostConfig *container.HostConfig
}

func (d *dockerRunner) Run(ctx context.Context, job service.JobContext, imageName, body string) error {
	spec, err := d.containerSpec(job, imageName, body)
	if err != nil {
		return err
	}
	for _, m := range spec.hostConfig.Mounts {
		if err = os.MkdirAll(m.Source, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create mount source %v", m.Source)
		}
	}

	job.Logger.Info(fmt.Sprintf("pulling image \"%v\"...", imageName))
	pullReader, err := d.client.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		return errors.Wrapf(err, "failed to pull image %v", imageName)
	}
	_, err = io.Copy(io.Discard, pullReader)
	pullReader.Close()
	if err != nil {
		return errors.Wrapf(err, "failed to read pull output of image %v", imageName)
	}

	resp, err := d.client.ContainerCreate(ctx, spec.config, spec.hostConfig, nil, nil, spec.name)
	if err != nil {
		return errors.Wrapf(err, "failed to create container %v", spec.name)
	}
	containerID := resp.ID
	defer func() {
		removeErr := d.client.ContainerRemove(context.Background(), containerID, container.RemoveOptions{Force: true})
		if removeErr != nil {
			job.Logger.Warning(removeErr, fmt.Sprintf("failed to remove container %v", spec.name))
		}
	}()

	err = d.client.ContainerStart(ctx, containerID, container.StartOptions{})
	if err != nil {
		return errors.Wrapf(err, "failed to start container %v", spec.name)
	}
	job.Logger.Debug(fmt.Sprintf("container %v started", spec.name))

	logReader, err := d.client.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to attach to container %v logs", spec.name)
	}
	defer logReader.Close()
	stdout := command.NewLineWriter(job.Logger.Info)
	stderr := command.NewLineWriter(job.Logger.Info)
	_, err = stdcopy.StdCopy(stdout, stderr, logReader)
	stdout.Flush()
	stderr.Flush()
	if err != nil && ctx.Err() == nil {
		return errors.Wrapf(err, "failed to read container %v logs", spec.name)
	}

	statusCh, errCh := d.client.ContainerWait(ctx, containerID, container.WaitConditionNotRunning)
	select {
	case err = <-errCh:
		if err != nil {
			return errors.Wrapf(err, "failed to wait for container %v", spec.name)
		}
	case result := <-statusCh:
		if result.StatusCode != 0 {
			return fmt.Errorf("container %v exited with status %d", spec.name, result.StatusCode)
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (d *dockerRunner) containerSpec(job service.JobContext, imageName, body string) (containerSpec, error) {
	workDir, err := filepath.Abs(job.WorkDir)
	if err != nil {
		return containerSpec{}, errors.Wrapf(err, "failed to resolve work dir %v", job.WorkDir)
	}
	cacheRoot, err := filepath.Abs(d.cacheRoot)
	if err != nil {
		return containerSpec{}, errors.Wrapf(err, "failed to resolve cache root %v", d.cacheRoot)
	}
	mounts := []mount.Mount{{
		Type:   mount.TypeBind,
		Source: workDir,
		Target: containerWorkDir,
	}}
	mounts = append(mounts, cacheMounts(cacheRoot, job.Target.Name, d.caches)...)
	return containerSpec{
		name: ContainerName(job.RunID, job.Target.Name),
		config: &container.Config{
			Image:      imageName,
			User:       containerUser,
			WorkingDir: containerWorkDir,
			Entrypoint: []string{"/bin/sh", "-c", body},
		},
		hostConfig: &container.HostConfig{
			Mounts: mounts,
		},
	}, nil
}

func ContainerName(runID string, target model.TargetName) string {
	if len(runID) > 8 {
		runID = runID[:8]
	}
	return "matrixbuild-" + runID + "-" + invalidContainerNameChars.ReplaceAllString(target, "_")
}
