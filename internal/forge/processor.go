package forge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mcx/internal/extract"
	"github.com/desertthunder/mcx/internal/models"
	"github.com/desertthunder/mcx/internal/shared"
	"github.com/desertthunder/mcx/internal/tasks"
)

// Command is one child process invocation.
type Command struct {
	Path   string
	Args   []string
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// CommandRunner runs a command to completion.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner runs commands with os/exec. A non-zero exit is reported as [shared.ProcessError].
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, c Command) error {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &shared.ProcessError{Cmd: filepath.Base(c.Path), Code: exitErr.ExitCode()}
	}
	return err
}

var tokenPattern = regexp.MustCompile(`\{(\w+)\}`)

// Substitute replaces every {TOKEN} of s found in vars. Unknown tokens stay literal.
func Substitute(s string, vars map[string]string) string {
	return tokenPattern.ReplaceAllStringFunc(s, func(m string) string {
		if v, ok := vars[m[1:len(m)-1]]; ok {
			return v
		}
		return m
	})
}

// isCoordinate reports whether s is a bracketed maven coordinate such as [net.minecraftforge:forge:1.0:client].
func isCoordinate(s string) bool {
	return len(s) > 2 && s[0] == '[' && s[len(s)-1] == ']'
}

// isLiteral reports whether s is a quoted literal such as 'abc'.
func isLiteral(s string) bool {
	return len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\''
}

// ResolveArg expands one processor argument: coordinates become library paths, then tokens are substituted.
func ResolveArg(arg, root string, vars map[string]string) (string, error) {
	if isCoordinate(arg) {
		coord, err := models.ParseCoordinate(arg)
		if err != nil {
			return "", err
		}
		return coord.LibraryPath(root), nil
	}
	return Substitute(arg, vars), nil
}

// processorTask runs one install processor.
type processorTask struct {
	tasks.Base
	installer *Installer
	proc      Processor
	java      string
	root      string
	vars      map[string]string
}

func (t *processorTask) Run(ctx context.Context) (any, error) {
	return nil, t.installer.runProcessor(ctx, t.java, t.root, t.proc, t.vars)
}

// runProcessor runs proc with `java -cp <classpath> <main> <args>`.
//
// A processor whose declared outputs already exist with the expected hashes is skipped.
func (i *Installer) runProcessor(ctx context.Context, java, root string, proc Processor, vars map[string]string) error {
	jarCoord, err := models.ParseCoordinate(proc.Jar)
	if err != nil {
		return err
	}
	jar := jarCoord.LibraryPath(root)

	if done, err := outputsMatch(proc, root, vars); err == nil && done {
		i.logger.Debug("Processor outputs up to date", "jar", proc.Jar)
		return nil
	}

	archive, err := extract.Open(jar, i.logger)
	if err != nil {
		return fmt.Errorf("processor %s: %w", proc.Jar, err)
	}
	mainClass, err := archive.MainClass()
	archive.Close()
	if err != nil {
		return fmt.Errorf("processor %s: %w", proc.Jar, err)
	}

	classpath := make([]string, 0, len(proc.Classpath)+1)
	for _, c := range proc.Classpath {
		coord, err := models.ParseCoordinate(c)
		if err != nil {
			return err
		}
		classpath = append(classpath, coord.LibraryPath(root))
	}
	classpath = append(classpath, jar)

	args := []string{"-cp", strings.Join(classpath, string(os.PathListSeparator)), mainClass}
	for _, a := range proc.Args {
		resolved, err := ResolveArg(a, root, vars)
		if err != nil {
			return err
		}
		args = append(args, resolved)
	}

	name := jarCoord.Artifact
	stdout := shared.NewLogWriter(i.logger, log.InfoLevel, "processor", name)
	stderr := shared.NewLogWriter(i.logger, log.ErrorLevel, "processor", name)
	defer stdout.Flush()
	defer stderr.Flush()

	i.logger.Info("Running processor", "jar", proc.Jar, "main", mainClass)
	err = i.commands.Run(ctx, Command{Path: java, Args: args, Dir: root, Stdout: stdout, Stderr: stderr})
	if err != nil {
		return fmt.Errorf("processor %s: %w", proc.Jar, err)
	}

	if len(proc.Outputs) > 0 {
		if ok, err := outputsMatch(proc, root, vars); err != nil || !ok {
			return fmt.Errorf("%w: processor %s produced unexpected outputs: %v", shared.ErrProcessorFailed, proc.Jar, err)
		}
	}
	return nil
}

// outputsMatch reports whether every declared output exists with its expected sha1.
func outputsMatch(proc Processor, root string, vars map[string]string) (bool, error) {
	if len(proc.Outputs) == 0 {
		return false, nil
	}
	for file, sum := range proc.Outputs {
		path, err := ResolveArg(file, root, vars)
		if err != nil {
			return false, err
		}
		want := strings.Trim(Substitute(sum, vars), "'")

		got, err := shared.HashFile(path)
		if err != nil {
			return false, err
		}
		if !strings.EqualFold(got, want) {
			return false, &shared.HashMismatchError{Path: path, Expected: want, Actual: got}
		}
	}
	return true, nil
}
