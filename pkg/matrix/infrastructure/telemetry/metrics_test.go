package telemetry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/model"
)

func TestToLowerSnakeCase(t *testing.T) {
	assert.Equal(t, "upload", toLowerSnakeCase("Upload"))
	assert.Equal(t, "create_release", toLowerSnakeCase("CreateRelease"))
}

func TestRequestMetrics(t *testing.T) {
	t.Run("ReusesCollectorsPerSubsystem", func(t *testing.T) {
		assert.Same(t, NewRequestCounter("test_store"), NewRequestCounter("test_store"))
		assert.Same(t, NewRequestHistogram("test_store"), NewRequestHistogram("test_store"))
	})
}

func TestJobObserver(t *testing.T) {
	t.Run("ExportsJobMetricsToTextfile", func(t *testing.T) {
		observer := NewJobObserver()
		job := model.NewBuildJob(model.TargetDescriptor{Name: "linux-x64-gnu"})
		start := time.Now()
		job.Start(start)
		job.Finish(start.Add(2*time.Second), []string{"ds-tex.x86_64-unknown-linux-gnu.node"}, nil)
		path := filepath.Join(t.TempDir(), "matrixbuild.prom")

		// act
		observer.Observe(job)
		err := WriteTextfile(path)

		require.Nil(t, err)
		content, err := os.ReadFile(path)
		require.Nil(t, err)
		assert.Contains(t, string(content), `matrixbuild_jobs_total{status="succeeded"}`)
		assert.Contains(t, string(content), `matrixbuild_job_duration_seconds_count{target="linux-x64-gnu"}`)
	})

	t.Run("EmptyPathIsNoop", func(t *testing.T) {
		assert.Nil(t, WriteTextfile(""))
	})
}
