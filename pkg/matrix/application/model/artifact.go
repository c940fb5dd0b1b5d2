package model

// Artifact is one stored file, addressed by the storage key of the target that produced it.
type Artifact struct {
	Target TargetName
	Key    string
	Name   string
	Path   string
}
