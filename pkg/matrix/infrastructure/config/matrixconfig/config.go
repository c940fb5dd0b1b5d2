package matrixconfig

type Target struct {
	Name         string   `json:"name" yaml:"name"`
	Host         string   `json:"host" yaml:"host"`
	Triple       string   `json:"target" yaml:"target"`
	Build        string   `json:"build" yaml:"build"`
	Docker       string   `json:"docker,omitempty" yaml:"docker,omitempty"`
	Setup        []string `json:"setup,omitempty" yaml:"setup,omitempty"`
	Architecture string   `json:"architecture,omitempty" yaml:"architecture,omitempty"`
}

type Toolchain struct {
	Pattern string   `json:"pattern" yaml:"pattern"`
	Steps   []string `json:"steps" yaml:"steps"`
}

type Environment struct {
	ToolchainInstall   *string `json:"toolchainInstall,omitempty" yaml:"toolchainInstall,omitempty"`
	ArchitectureConfig *string `json:"architectureConfig,omitempty" yaml:"architectureConfig,omitempty"`
	Shell              string  `json:"shell,omitempty" yaml:"shell,omitempty"`
}

type CacheMount struct {
	Name          string `json:"name" yaml:"name"`
	ContainerPath string `json:"containerPath" yaml:"containerPath"`
}

type Cache struct {
	Root   string       `json:"root,omitempty" yaml:"root,omitempty"`
	Mounts []CacheMount `json:"mounts,omitempty" yaml:"mounts,omitempty"`
}

type Storage struct {
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
	Bucket  string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Prefix  string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
}

type Release struct {
	Publisher  string `json:"publisher,omitempty" yaml:"publisher,omitempty"`
	Repository string `json:"repository,omitempty" yaml:"repository,omitempty"`
	APIURL     string `json:"apiUrl,omitempty" yaml:"apiUrl,omitempty"`
	Directory  string `json:"directory,omitempty" yaml:"directory,omitempty"`
	Overwrite  bool   `json:"overwrite,omitempty" yaml:"overwrite,omitempty"`
	Tag        string `json:"tag,omitempty" yaml:"tag,omitempty"`
	Title      string `json:"title,omitempty" yaml:"title,omitempty"`
	Body       string `json:"body,omitempty" yaml:"body,omitempty"`
}

type Trigger struct {
	Branches     []string `json:"branches,omitempty" yaml:"branches,omitempty"`
	PullRequests bool     `json:"pullRequests,omitempty" yaml:"pullRequests,omitempty"`
}

type Policy struct {
	Publish     string `json:"publish,omitempty" yaml:"publish,omitempty"`
	JobTimeout  string `json:"jobTimeout,omitempty" yaml:"jobTimeout,omitempty"`
	Parallelism int    `json:"parallelism,omitempty" yaml:"parallelism,omitempty"`
}

type Config struct {
	AppName           string      `json:"appName" yaml:"appName"`
	ArtifactExtension string      `json:"artifactExtension,omitempty" yaml:"artifactExtension,omitempty"`
	Targets           []Target    `json:"targets" yaml:"targets"`
	Toolchains        []Toolchain `json:"toolchains,omitempty" yaml:"toolchains,omitempty"`
	Environment       Environment `json:"environment,omitempty" yaml:"environment,omitempty"`
	Cache             Cache       `json:"cache,omitempty" yaml:"cache,omitempty"`
	Storage           Storage     `json:"storage,omitempty" yaml:"storage,omitempty"`
	Release           Release     `json:"release,omitempty" yaml:"release,omitempty"`
	Trigger           Trigger     `json:"trigger,omitempty" yaml:"trigger,omitempty"`
	Policy            Policy      `json:"policy,omitempty" yaml:"policy,omitempty"`
}
