package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mcx/internal/launch"
	"github.com/desertthunder/mcx/internal/shared"
)

// Install downloads everything an instance needs without starting the game.
func (r *Runner) Install(ctx context.Context, cmd *cli.Command) error {
	inst, err := r.store().Find(cmd.StringArg("instance"))
	if err != nil {
		return err
	}

	stop := make(chan struct{})
	done := r.followProgress(stop)
	lc, err := r.pipeline().Install(ctx, inst)
	close(stop)
	<-done
	if err != nil {
		return err
	}

	r.writePlainln("✓ Installed %s", inst.Title)
	r.writePlain("Java: %s\n", lc.JavaPath)
	r.writePlain("Classpath entries: %d\n", lc.Classpath.Len())
	return nil
}

// Launch installs an instance and runs the game, waiting for it to exit.
func (r *Runner) Launch(ctx context.Context, cmd *cli.Command) error {
	inst, err := r.store().Find(cmd.StringArg("instance"))
	if err != nil {
		return err
	}

	p := r.pipeline()
	if cmd.Bool("verbose") {
		p.WithOutput(shared.NewLogWriter(r.logger, log.InfoLevel, "instance", inst.Title))
	}

	stop := make(chan struct{})
	done := r.followProgress(stop)
	events, err := p.Launch(ctx, inst)
	close(stop)
	<-done
	if err != nil {
		return err
	}

	var exit launch.GameEvent
	for ev := range events {
		switch ev.Kind {
		case launch.GameLaunched:
			r.writePlain("✓ Launched %s (pid %d)\n", inst.Title, ev.PID)
			if cmd.Bool("detach") {
				return nil
			}
		case launch.GameExited:
			exit = ev
		}
	}

	if exit.Err != nil {
		return fmt.Errorf("game failed: %w", exit.Err)
	}
	if exit.ExitCode != 0 {
		return r.writePlain("Game exited with code %d\n", exit.ExitCode)
	}
	return r.writePlain("✓ Game exited normally\n")
}
