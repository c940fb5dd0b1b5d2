package model

import (
	"fmt"
	"time"
)

type CacheMount struct {
	Name          string
	ContainerPath string
}

type Environment struct {
	ToolchainInstall   string
	ArchitectureConfig string
	Shell              string
}

type Policy struct {
	Publish     PublishPolicy
	JobTimeout  time.Duration
	Parallelism int
}

type Matrix struct {
	AppName           string
	ArtifactExtension string
	Targets           []TargetDescriptor
	Toolchains        ToolchainTable
	Environment       Environment
	CacheRoot         string
	Caches            []CacheMount
	Release           ReleaseTemplate
	Trigger           Trigger
	Policy            Policy
}

func (m Matrix) Validate() error {
	if m.AppName == "" {
		return fmt.Errorf("app name is empty")
	}
	if m.ArtifactExtension == "" {
		return fmt.Errorf("artifact extension is empty")
	}
	if len(m.Targets) == 0 {
		return fmt.Errorf("matrix has no targets")
	}
	names := make(map[TargetName]struct{}, len(m.Targets))
	for _, target := range m.Targets {
		if err := target.Validate(); err != nil {
			return err
		}
		if _, ok := names[target.Name]; ok {
			return fmt.Errorf("duplicate target %v", target.Name)
		}
		names[target.Name] = struct{}{}
	}
	switch m.Policy.Publish {
	case PublishAlways, PublishAllSucceeded:
	default:
		return fmt.Errorf("unknown publish policy %q", m.Policy.Publish)
	}
	return nil
}

// Select keeps the targets with the given names, preserving matrix order.
func (m Matrix) Select(names []TargetName) ([]TargetDescriptor, error) {
	if len(names) == 0 {
		return m.Targets, nil
	}
	byName := make(map[TargetName]TargetDescriptor, len(m.Targets))
	for _, target := range m.Targets {
		byName[target.Name] = target
	}
	wanted := make(map[TargetName]struct{}, len(names))
	for _, name := range names {
		if _, ok := byName[name]; !ok {
			return nil, fmt.Errorf("target %v not found", name)
		}
		wanted[name] = struct{}{}
	}
	selected := make([]TargetDescriptor, 0, len(names))
	for _, target := range m.Targets {
		if _, ok := wanted[target.Name]; ok {
			selected = append(selected, target)
		}
	}
	return selected, nil
}
