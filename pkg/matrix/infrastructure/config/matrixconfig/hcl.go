package matrixconfig

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

type hclTarget struct {
	Name         string   `hcl:"name,label"`
	Host         string   `hcl:"host"`
	Triple       string   `hcl:"triple"`
	Build        string   `hcl:"build"`
	Docker       string   `hcl:"docker,optional"`
	Setup        []string `hcl:"setup,optional"`
	Architecture string   `hcl:"architecture,optional"`
}

type hclToolchain struct {
	Pattern string   `hcl:"pattern,label"`
	Steps   []string `hcl:"steps"`
}

type hclEnvironment struct {
	ToolchainInstall   *string `hcl:"toolchain_install,optional"`
	ArchitectureConfig *string `hcl:"architecture_config,optional"`
	Shell              string  `hcl:"shell,optional"`
}

type hclCacheMount struct {
	Name          string `hcl:"name,label"`
	ContainerPath string `hcl:"container_path"`
}

type hclCache struct {
	Root   string          `hcl:"root,optional"`
	Mounts []hclCacheMount `hcl:"mount,block"`
}

type hclStorage struct {
	Backend string `hcl:"backend,optional"`
	Path    string `hcl:"path,optional"`
	Bucket  string `hcl:"bucket,optional"`
	Prefix  string `hcl:"prefix,optional"`
}

type hclRelease struct {
	Publisher  string `hcl:"publisher,optional"`
	Repository string `hcl:"repository,optional"`
	APIURL     string `hcl:"api_url,optional"`
	Directory  string `hcl:"directory,optional"`
	Overwrite  bool   `hcl:"overwrite,optional"`
	Tag        string `hcl:"tag,optional"`
	Title      string `hcl:"title,optional"`
	Body       string `hcl:"body,optional"`
}

type hclTrigger struct {
	Branches     []string `hcl:"branches,optional"`
	PullRequests bool     `hcl:"pull_requests,optional"`
}

type hclPolicy struct {
	Publish     string `hcl:"publish,optional"`
	JobTimeout  string `hcl:"job_timeout,optional"`
	Parallelism int    `hcl:"parallelism,optional"`
}

type hclFile struct {
	AppName           string          `hcl:"app_name"`
	ArtifactExtension string          `hcl:"artifact_extension,optional"`
	Targets           []hclTarget     `hcl:"target,block"`
	Toolchains        []hclToolchain  `hcl:"toolchain,block"`
	Environment       *hclEnvironment `hcl:"environment,block"`
	Cache             *hclCache       `hcl:"cache,block"`
	Storage           *hclStorage     `hcl:"storage,block"`
	Release           *hclRelease     `hcl:"release,block"`
	Trigger           *hclTrigger     `hcl:"trigger,block"`
	Policy            *hclPolicy      `hcl:"policy,block"`
}

func decodeHCL(path string, body []byte) (Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(body, path)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to parse HCL file %v: %w", path, diags)
	}
	var parsed hclFile
	diags = gohcl.DecodeBody(file.Body, nil, &parsed)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to decode HCL file %v: %w", path, diags)
	}
	return parsed.toConfig(), nil
}

func (f hclFile) toConfig() Config {
	config := Config{
		AppName:           f.AppName,
		ArtifactExtension: f.ArtifactExtension,
	}
	for _, t := range f.Targets {
		config.Targets = append(config.Targets, Target{
			Name:         t.Name,
			Host:         t.Host,
			Triple:       t.Triple,
			Build:        t.Build,
			Docker:       t.Docker,
			Setup:        t.Setup,
			Architecture: t.Architecture,
		})
	}
	for _, t := range f.Toolchains {
		config.Toolchains = append(config.Toolchains, Toolchain{Pattern: t.Pattern, Steps: t.Steps})
	}
	if f.Environment != nil {
		config.Environment = Environment{
			ToolchainInstall:   f.Environment.ToolchainInstall,
			ArchitectureConfig: f.Environment.ArchitectureConfig,
			Shell:              f.Environment.Shell,
		}
	}
	if f.Cache != nil {
		config.Cache.Root = f.Cache.Root
		for _, m := range f.Cache.Mounts {
			config.Cache.Mounts = append(config.Cache.Mounts, CacheMount{Name: m.Name, ContainerPath: m.ContainerPath})
		}
	}
	if f.Storage != nil {
		config.Storage = Storage(*f.Storage)
	}
	if f.Release != nil {
		config.Release = Release(*f.Release)
	}
	if f.Trigger != nil {
		config.Trigger = Trigger(*f.Trigger)
	}
	if f.Policy != nil {
		config.Policy = Policy(*f.Policy)
	}
	return config
}
