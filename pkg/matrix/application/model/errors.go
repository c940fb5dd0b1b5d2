package model

import (
	"errors"
	"fmt"
)

var (
	ErrNoArtifacts = errors.New("no artifacts to publish")
	ErrRunAborted  = errors.New("run aborted")
	ErrSkipped     = errors.New("event does not trigger the pipeline")
)

type EnvironmentSetupError struct {
	Target TargetName
	Step   string
	Err    error
}

func (e *EnvironmentSetupError) Error() string {
	return fmt.Sprintf("environment setup for target %v failed at %q: %v", e.Target, e.Step, e.Err)
}

func (e *EnvironmentSetupError) Unwrap() error {
	return e.Err
}

type BuildError struct {
	Target TargetName
	Err    error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build of target %v failed: %v", e.Target, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

type ArtifactMissingError struct {
	Target  TargetName
	Pattern string
}

func (e *ArtifactMissingError) Error() string {
	if e.Pattern == "" {
		return fmt.Sprintf("target %v produced no artifacts", e.Target)
	}
	return fmt.Sprintf("target %v produced no file matching %v", e.Target, e.Pattern)
}

type PublishError struct {
	Tag string
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish of release %v failed: %v", e.Tag, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}
