package command

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	applogger "github.com/tss-calculator/go-lib/pkg/application/logger"
)

// waitDelay bounds how long Execute waits for output pipes after the process group is killed.
const waitDelay = 5 * time.Second

type Command struct {
	WorkDir    string
	Executable string
	Args       []string
	Env        []string
	// Verbose streams every output line to the logger while the command runs.
	Verbose bool
}

type Runner interface {
	Execute(ctx context.Context, command Command) (string, error)
}

func NewCommandRunner(logger applogger.Logger) Runner {
	return &runner{
		logger: logger,
	}
}

type runner struct {
	logger applogger.Logger
}

func (r runner) Execute(ctx context.Context, command Command) (string, error) {
	if command.Executable == "" {
		return "", errors.New("command executable can not be empty")
	}
	// nolint:gosec
	cmd := exec.CommandContext(ctx, command.Executable, command.Args...)
	cmd.Dir = command.WorkDir
	killProcessGroupOnCancel(cmd)
	cmd.WaitDelay = waitDelay
	if len(command.Env) > 0 {
		cmd.Env = append(os.Environ(), command.Env...)
	}
	r.logger.Debug(cmd.String())

	var output bytes.Buffer
	if !command.Verbose {
		cmd.Stdout = &output
		cmd.Stderr = &output
		err := cmd.Run()
		return output.String(), err
	}

	lines := NewLineWriter(r.logger.Info)
	defer lines.Flush()
	writer := io.MultiWriter(&output, lines)
	cmd.Stdout = writer
	cmd.Stderr = writer
	err := cmd.Run()
	return output.String(), err
}

// NewLineWriter calls emit once per complete line written to it.
func NewLineWriter(emit func(...interface{})) *LineWriter {
	return &LineWriter{emit: emit}
}

type LineWriter struct {
	mu   sync.Mutex
	emit func(...interface{})
	buf  []byte
}

func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.emit(strings.TrimRight(string(w.buf[:i]), "\r"))
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

func (w *LineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) == 0 {
		return
	}
	w.emit(string(w.buf))
	w.buf = nil
}
