package command

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tss-calculator/go-lib/pkg/infrastructure/logger"
)

func TestLineWriter(t *testing.T) {
	t.Run("EmitsCompleteLines", func(t *testing.T) {
		var lines []string
		writer := NewLineWriter(func(args ...interface{}) {
			lines = append(lines, fmt.Sprint(args...))
		})

		// act
		_, _ = writer.Write([]byte("Compiling ds-tex v0.1.0\r\nFinished rel"))
		_, _ = writer.Write([]byte("ease\npartial"))

		assert.Equal(t, []string{"Compiling ds-tex v0.1.0", "Finished release"}, lines)

		writer.Flush()
		assert.Equal(t, "partial", lines[len(lines)-1])
	})

	t.Run("FlushWithoutPendingOutputEmitsNothing", func(t *testing.T) {
		calls := 0
		writer := NewLineWriter(func(...interface{}) { calls++ })

		// act
		writer.Flush()

		assert.Equal(t, 0, calls)
	})
}

func TestRunner(t *testing.T) {
	t.Run("RejectsEmptyExecutable", func(t *testing.T) {
		_, err := NewCommandRunner(logger.NewTextLogger()).Execute(context.Background(), Command{})

		assert.Error(t, err)
	})

	t.Run("ReturnsCombinedOutput", func(t *testing.T) {
		if _, err := exec.LookPath("sh"); err != nil {
			t.Skip("sh is not available")
		}

		// act
		output, err := NewCommandRunner(logger.NewTextLogger()).Execute(context.Background(), Command{
			Executable: "sh",
			Args:       []string{"-c", "echo out; echo err >&2"},
			Verbose:    true,
		})

		assert.Nil(t, err)
		assert.Contains(t, output, "out\n")
		assert.Contains(t, output, "err\n")
	})

	t.Run("KillsChildProcessesWhenContextExpires", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("process groups are unix only")
		}
		if _, err := exec.LookPath("sh"); err != nil {
			t.Skip("sh is not available")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		start := time.Now()

		// act
		output, err := NewCommandRunner(logger.NewTextLogger()).Execute(ctx, Command{
			Executable: "sh",
			Args:       []string{"-c", "sleep 5; echo done"},
			Verbose:    true,
		})

		assert.Error(t, err)
		assert.True(t, time.Since(start) < 3*time.Second, "returned after %v", time.Since(start))
		assert.NotContains(t, output, "done")
	})
}
