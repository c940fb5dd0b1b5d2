package model

import (
	"fmt"
	"regexp"
	"runtime"
	"strings"

	"github.com/tss-calculator/go-lib/pkg/common/maybe"
)

const (
	storageKeyPrefix = "bindings-"
	unversionedScope = "unversioned"
)

// target names become worktree, cache and store path segments
var (
	validTargetName  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)
	unsafeScopeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)
)

type TargetName = string

type HostPlatform string

const (
	HostLinux   HostPlatform = "linux"
	HostMacOS   HostPlatform = "macos"
	HostWindows HostPlatform = "windows"
)

var hostPlatformAliases = map[string]HostPlatform{
	"linux":          HostLinux,
	"ubuntu":         HostLinux,
	"ubuntu-latest":  HostLinux,
	"macos":          HostMacOS,
	"darwin":         HostMacOS,
	"macos-latest":   HostMacOS,
	"windows":        HostWindows,
	"windows-latest": HostWindows,
}

func ParseHostPlatform(s string) (HostPlatform, error) {
	platform, ok := hostPlatformAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unknown host platform %q", s)
	}
	return platform, nil
}

// CurrentHostPlatform reports the platform the orchestrator itself runs on.
func CurrentHostPlatform() HostPlatform {
	switch runtime.GOOS {
	case "darwin":
		return HostMacOS
	case "windows":
		return HostWindows
	default:
		return HostLinux
	}
}

// ExecutionMode is either HostExecution or ContainerExecution.
type ExecutionMode interface {
	executionMode()
	String() string
}

type HostExecution struct {
	Platform HostPlatform
}

func (HostExecution) executionMode() {}

func (m HostExecution) String() string {
	return "host(" + string(m.Platform) + ")"
}

type ContainerExecution struct {
	Image string
}

func (ContainerExecution) executionMode() {}

func (m ContainerExecution) String() string {
	return "container(" + m.Image + ")"
}

type TargetDescriptor struct {
	Name                 TargetName
	HostPlatform         HostPlatform
	TargetTriple         string
	BuildCommand         string
	ContainerImage       maybe.Maybe[string]
	SetupSteps           []string
	ArchitectureOverride maybe.Maybe[string]
}

// ExecutionMode is decided by ContainerImage alone.
func (t TargetDescriptor) ExecutionMode() ExecutionMode {
	if image, ok := maybe.Just(t.ContainerImage); ok {
		return ContainerExecution{Image: image}
	}
	return HostExecution{Platform: t.HostPlatform}
}

// StorageName is the key of the target within one commit scope.
func (t TargetDescriptor) StorageName() string {
	return storageKeyPrefix + t.Name
}

// StorageKey is <commit>/bindings-<target>. Keys of other commits are never published.
func (t TargetDescriptor) StorageKey(commit string) string {
	return StorageKeyPrefix(commit) + t.Name
}

func StorageKeyPrefix(commit string) string {
	return storageScope(commit) + "/" + storageKeyPrefix
}

func storageScope(commit string) string {
	scope := unsafeScopeChars.ReplaceAllString(commit, "_")
	if strings.Trim(scope, ".") == "" {
		return unversionedScope
	}
	return scope
}

// ArtifactPattern is the fixed output naming convention <app>.<triple>.<ext>.
func (t TargetDescriptor) ArtifactPattern(appName, extension string) string {
	return fmt.Sprintf("%v.%v.%v", appName, t.TargetTriple, extension)
}

func (t TargetDescriptor) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("target name is empty")
	}
	if !validTargetName.MatchString(t.Name) {
		return fmt.Errorf("target name %q must start with a letter or digit and contain only letters, digits, '.', '_' or '-'", t.Name)
	}
	if t.TargetTriple == "" {
		return fmt.Errorf("target %v has empty target triple", t.Name)
	}
	if strings.TrimSpace(t.BuildCommand) == "" {
		return fmt.Errorf("target %v has empty build command", t.Name)
	}
	if _, ok := t.ExecutionMode().(ContainerExecution); ok && t.HostPlatform != HostLinux {
		return fmt.Errorf("target %v runs in a container and must use host platform %v, got %v", t.Name, HostLinux, t.HostPlatform)
	}
	return nil
}
