package matrixconfig

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tss-calculator/go-lib/pkg/common/maybe"
	"gopkg.in/yaml.v3"

	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/model"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/infrastructure/executor"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/infrastructure/script"
)

const (
	StorageFilesystem = "filesystem"
	StorageGCS        = "gcs"

	PublisherGithub    = "github"
	PublisherDirectory = "directory"
)

const (
	defaultArtifactExtension  = "node"
	defaultToolchainInstall   = "rustup target add {{.TargetTriple}}"
	defaultArchitectureConfig = `yarn config set supportedArchitectures.cpu "{{.Architecture}}"`
	defaultCacheRoot          = ".matrixbuild/cache"
	defaultStoragePath        = ".matrixbuild/store"
	defaultReleaseDirectory   = ".matrixbuild/releases"
	defaultReleaseTag         = "{{.Commit}}"
	defaultReleaseTitle       = "Release {{.ShortCommit}}"
	defaultReleaseBody        = "Native bindings of {{.AppName}} built from {{.Commit}}."
	defaultJobTimeout         = 60 * time.Minute
)

// Settings is the loaded matrix plus the backends it is wired to.
type Settings struct {
	Matrix  model.Matrix
	Storage Storage
	Release Release
}

// Load reads a matrix file; the format is chosen by extension (.json, .yaml/.yml, .hcl).
// getenv supplies APP_NAME and GITHUB_REPOSITORY overrides.
func Load(path string, getenv func(string) string) (Settings, error) {
	configBody, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, errors.Wrapf(err, "failed to read config file: %v", path)
	}
	config, err := decode(path, configBody)
	if err != nil {
		return Settings{}, err
	}
	if getenv != nil {
		applyEnv(&config, getenv)
	}
	settings, err := mapInfraConfigToAppConfig(config)
	if err != nil {
		return Settings{}, errors.Wrapf(err, "invalid config %v", path)
	}
	if err = settings.Matrix.Validate(); err != nil {
		return Settings{}, errors.Wrapf(err, "invalid config %v", path)
	}
	return settings, nil
}

func decode(path string, body []byte) (Config, error) {
	var config Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(body, &config); err != nil {
			return Config{}, errors.Wrap(err, "failed to unmarshal yaml config")
		}
	case ".hcl":
		return decodeHCL(path, body)
	default:
		if err := json.Unmarshal(body, &config); err != nil {
			return Config{}, errors.Wrap(err, "failed to unmarshal config")
		}
	}
	return config, nil
}

func applyEnv(config *Config, getenv func(string) string) {
	if appName := getenv("APP_NAME"); appName != "" {
		config.AppName = appName
	}
	if config.Release.Repository == "" {
		config.Release.Repository = getenv("GITHUB_REPOSITORY")
	}
}

func mapInfraConfigToAppConfig(config Config) (Settings, error) {
	targets := make([]model.TargetDescriptor, 0, len(config.Targets))
	for _, target := range config.Targets {
		host, err := model.ParseHostPlatform(target.Host)
		if err != nil {
			return Settings{}, errors.Wrapf(err, "target %v", target.Name)
		}
		targets = append(targets, model.TargetDescriptor{
			Name:                 target.Name,
			HostPlatform:         host,
			TargetTriple:         target.Triple,
			BuildCommand:         target.Build,
			ContainerImage:       toOptString(target.Docker),
			SetupSteps:           target.Setup,
			ArchitectureOverride: toOptString(target.Architecture),
		})
	}

	toolchains := make(model.ToolchainTable, 0, len(config.Toolchains))
	for _, toolchain := range config.Toolchains {
		toolchains = append(toolchains, model.ToolchainRule{Pattern: toolchain.Pattern, Steps: toolchain.Steps})
	}

	caches := executor.DefaultCaches
	if config.Cache.Mounts != nil {
		caches = make([]model.CacheMount, 0, len(config.Cache.Mounts))
		for _, cache := range config.Cache.Mounts {
			caches = append(caches, model.CacheMount{Name: cache.Name, ContainerPath: cache.ContainerPath})
		}
	}

	jobTimeout := defaultJobTimeout
	if config.Policy.JobTimeout != "" {
		var err error
		jobTimeout, err = time.ParseDuration(config.Policy.JobTimeout)
		if err != nil {
			return Settings{}, errors.Wrap(err, "invalid policy job timeout")
		}
	}
	publish := model.PublishAlways
	if config.Policy.Publish != "" {
		publish = model.PublishPolicy(config.Policy.Publish)
	}

	storage := config.Storage
	storage.Backend = orDefault(storage.Backend, StorageFilesystem)
	if storage.Backend != StorageFilesystem && storage.Backend != StorageGCS {
		return Settings{}, errors.Errorf("unknown storage backend %q", storage.Backend)
	}
	storage.Path = orDefault(storage.Path, defaultStoragePath)

	release := config.Release
	release.Publisher = orDefault(release.Publisher, PublisherDirectory)
	if release.Publisher != PublisherDirectory && release.Publisher != PublisherGithub {
		return Settings{}, errors.Errorf("unknown release publisher %q", release.Publisher)
	}
	release.Directory = orDefault(release.Directory, defaultReleaseDirectory)

	return Settings{
		Matrix: model.Matrix{
			AppName:           config.AppName,
			ArtifactExtension: orDefault(config.ArtifactExtension, defaultArtifactExtension),
			Targets:           targets,
			Toolchains:        toolchains,
			Environment: model.Environment{
				ToolchainInstall:   orDefaultPtr(config.Environment.ToolchainInstall, defaultToolchainInstall),
				ArchitectureConfig: orDefaultPtr(config.Environment.ArchitectureConfig, defaultArchitectureConfig),
				Shell:              orDefault(config.Environment.Shell, script.DefaultShell),
			},
			CacheRoot: orDefault(config.Cache.Root, defaultCacheRoot),
			Caches:    caches,
			Release: model.ReleaseTemplate{
				Tag:   orDefault(release.Tag, defaultReleaseTag),
				Title: orDefault(release.Title, defaultReleaseTitle),
				Body:  orDefault(release.Body, defaultReleaseBody),
			},
			Trigger: model.Trigger{
				Branches:     config.Trigger.Branches,
				PullRequests: config.Trigger.PullRequests,
			},
			Policy: model.Policy{
				Publish:     publish,
				JobTimeout:  jobTimeout,
				Parallelism: config.Policy.Parallelism,
			},
		},
		Storage: storage,
		Release: release,
	}, nil
}

func toOptString(v string) maybe.Maybe[string] {
	if v == "" {
		return maybe.None[string]()
	}
	return maybe.New(v)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// orDefaultPtr keeps an explicitly empty template, which disables the step.
func orDefaultPtr(v *string, def string) string {
	if v == nil {
		return def
	}
	return *v
}
