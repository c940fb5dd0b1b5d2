package model

import "time"

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

func (s JobStatus) Terminal() bool {
	return s == JobSucceeded || s == JobFailed
}

type BuildJob struct {
	Target            TargetDescriptor
	Status            JobStatus
	ProducedArtifacts []string
	Err               error
	StartedAt         time.Time
	FinishedAt        time.Time
}

func NewBuildJob(target TargetDescriptor) *BuildJob {
	return &BuildJob{
		Target: target,
		Status: JobPending,
	}
}

func (j *BuildJob) Start(now time.Time) {
	j.Status = JobRunning
	j.StartedAt = now
}

// Finish moves the job to its terminal status. A job without produced
// artifacts never reaches JobSucceeded.
func (j *BuildJob) Finish(now time.Time, artifacts []string, err error) {
	j.FinishedAt = now
	j.ProducedArtifacts = artifacts
	j.Err = err
	if err == nil && len(artifacts) == 0 {
		j.Err = &ArtifactMissingError{Target: j.Target.Name}
	}
	if j.Err != nil {
		j.Status = JobFailed
		return
	}
	j.Status = JobSucceeded
}

func (j *BuildJob) Duration() time.Duration {
	if j.StartedAt.IsZero() || j.FinishedAt.IsZero() {
		return 0
	}
	return j.FinishedAt.Sub(j.StartedAt)
}
