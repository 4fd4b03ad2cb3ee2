package launch

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mcx/internal/shared"
)

// GameEventKind is the lifecycle stage of a spawned game.
type GameEventKind int

const (
	GameLaunched GameEventKind = iota
	GameExited
)

func (k GameEventKind) String() string {
	if k == GameExited {
		return "exited"
	}
	return "launched"
}

// GameEvent reports a game process starting or ending. Err is set when waiting on the process failed
// for a reason other than a non-zero exit.
type GameEvent struct {
	Kind     GameEventKind
	PID      int
	ExitCode int
	Err      error
}

// Spawn starts java with args in the instance directory, detached from the launcher's process group.
//
// The returned channel receives [GameLaunched] immediately and [GameExited] once the process ends, then
// closes. Game output goes to out, or is discarded when out is nil.
func Spawn(lc *LaunchContext, args []string, out io.Writer, logger *log.Logger) (<-chan GameEvent, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := lc.Account.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAccountInvalid, err)
	}
	if lc.JavaPath == "" || !shared.FileExists(lc.JavaPath) {
		return nil, fmt.Errorf("%w: %q", shared.ErrJavaNotFound, lc.JavaPath)
	}

	dir := lc.GameDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create game directory: %w", err)
	}

	cmd := exec.Command(lc.JavaPath, args...)
	cmd.Dir = dir
	if out != nil {
		cmd.Stdout = out
		cmd.Stderr = out
	}
	detach(cmd)

	logger.Info("Launching instance", "instance", lc.Instance.ID, "java", filepath.Base(lc.JavaPath))
	logger.Debug("Command line", "args", Redact(args, lc.Account))
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start game: %w", err)
	}

	pid := cmd.Process.Pid
	events := make(chan GameEvent, 2)
	events <- GameEvent{Kind: GameLaunched, PID: pid}

	go func() {
		defer close(events)
		err := cmd.Wait()
		ev := GameEvent{Kind: GameExited, PID: pid, ExitCode: cmd.ProcessState.ExitCode()}

		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			ev.Err = err
		}
		logger.Info("Game exited", "instance", lc.Instance.ID, "pid", pid, "code", ev.ExitCode)
		events <- ev
	}()
	return events, nil
}
