package script

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/pkg/errors"
	"github.com/tss-calculator/go-lib/pkg/common/maybe"

	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/model"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/infrastructure/command"
)

const (
	DefaultShell = "bash"
	scriptDir    = ".matrixbuild"
)

type Variables struct {
	AppName      string
	Target       string
	TargetTriple string
	Architecture string
}

func VariablesFor(appName string, target model.TargetDescriptor) Variables {
	architecture, _ := maybe.Just(target.ArchitectureOverride)
	return Variables{
		AppName:      appName,
		Target:       target.Name,
		TargetTriple: target.TargetTriple,
		Architecture: architecture,
	}
}

func Render(name, text string, variables Variables) (string, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", errors.Wrapf(err, "failed to parse %v template", name)
	}
	var out bytes.Buffer
	err = t.Execute(&out, variables)
	if err != nil {
		return "", errors.Wrapf(err, "failed to execute %v template", name)
	}
	return out.String(), nil
}

// Join builds a script that stops at the first failing line.
func Join(lines ...string) string {
	nonEmpty := make([]string, 0, len(lines)+1)
	nonEmpty = append(nonEmpty, "set -e")
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			nonEmpty = append(nonEmpty, line)
		}
	}
	return strings.Join(nonEmpty, "\n") + "\n"
}

// Run writes body into a temporary script under workDir and runs it with shell.
func Run(ctx context.Context, runner command.Runner, shell, workDir, name, body string) (string, error) {
	if shell == "" {
		shell = DefaultShell
	}
	dir := filepath.Join(workDir, scriptDir)
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return "", errors.Wrapf(err, "failed to create script directory %v", dir)
	}
	scriptFile, err := os.CreateTemp(dir, name+"-*.sh")
	if err != nil {
		return "", errors.Wrapf(err, "failed to create temporary file for %v script", name)
	}
	defer os.Remove(scriptFile.Name())
	_, err = scriptFile.WriteString(body)
	closeErr := scriptFile.Close()
	if err != nil {
		return "", errors.Wrapf(err, "failed to write %v script", name)
	}
	if closeErr != nil {
		return "", errors.Wrapf(closeErr, "failed to write %v script", name)
	}
	return runner.Execute(ctx, command.Command{
		WorkDir:    workDir,
		Executable: shell,
		Args:       []string{scriptFile.Name()},
		Verbose:    true,
	})
}
