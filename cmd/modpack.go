package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mcx/internal/shared"
)

// ModPackInstall creates an instance from a catalog mod pack.
func (r *Runner) ModPackInstall(ctx context.Context, cmd *cli.Command) error {
	packID := cmd.Int("pack")
	if packID <= 0 {
		return fmt.Errorf("%w: --pack", shared.ErrMissingArgument)
	}

	stop := make(chan struct{})
	done := r.followProgress(stop)
	inst, err := r.modEngine().InstallModPack(ctx, r.store(), packID, cmd.Int("file"))
	close(stop)
	<-done
	if err != nil {
		return err
	}
	return r.writePlainln("✓ Created %s (%s) from mod pack %d", inst.Title, inst.ID, packID)
}

// ModPackUpdate moves a mod pack instance to another pack file, touching only the mods that changed.
func (r *Runner) ModPackUpdate(ctx context.Context, cmd *cli.Command) error {
	store := r.store()
	inst, err := store.Find(cmd.StringArg("instance"))
	if err != nil {
		return err
	}

	stop := make(chan struct{})
	done := r.followProgress(stop)
	err = r.modEngine().UpdateModPack(ctx, store, inst, cmd.Int("file"))
	close(stop)
	<-done
	if err != nil {
		return err
	}
	r.drainModEvents()
	return r.writePlainln("✓ %s is at %s", inst.Title, inst.Versions.Self)
}
