package telemetry

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/model"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/service"
)

var (
	registerOnce sync.Once

	jobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_total",
		Help:      "Build jobs by terminal status.",
	}, []string{"status"})

	jobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "job_duration_seconds",
		Help:      "Duration of build jobs in seconds.",
		Buckets:   []float64{30, 60, 120, 300, 600, 1200, 1800, 3600},
	}, []string{"target"})
)

// NewJobObserver records terminal job states into the default Prometheus registry.
func NewJobObserver() service.JobObserver {
	registerOnce.Do(func() {
		prometheus.MustRegister(jobsTotal, jobDuration)
	})
	return &jobObserver{}
}

type jobObserver struct{}

func (jobObserver) Observe(job *model.BuildJob) {
	jobsTotal.WithLabelValues(string(job.Status)).Inc()
	jobDuration.WithLabelValues(job.Target.Name).Observe(job.Duration().Seconds())
}

// WriteTextfile exports the default registry for the node exporter textfile collector.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return errors.Wrapf(prometheus.WriteToTextfile(path, prometheus.DefaultGatherer), "failed to write metrics to %v", path)
}
