package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mcx/internal/instances"
	"github.com/desertthunder/mcx/internal/models"
	"github.com/desertthunder/mcx/internal/rules"
	"github.com/desertthunder/mcx/internal/shared"
)

// InstanceCreate creates an instance from a title, a game version and an optional loader.
func (r *Runner) InstanceCreate(ctx context.Context, cmd *cli.Command) error {
	title := cmd.StringArg("title")
	if title == "" {
		return fmt.Errorf("%w: title", shared.ErrMissingArgument)
	}

	loader, version := models.ParseModLoader(cmd.String("loader"))
	if cmd.String("loader") != "" && loader == models.LoaderNone {
		return fmt.Errorf("%w: unknown loader %q", shared.ErrInvalidArgument, cmd.String("loader"))
	}
	if v := cmd.String("loader-version"); v != "" {
		version = v
	}

	side := rules.Side(cmd.String("side"))
	if side != rules.Client && side != rules.Server {
		return fmt.Errorf("%w: side must be client or server", shared.ErrInvalidArgument)
	}

	inst, err := r.store().Create(instances.CreateOptions{
		Title:         title,
		Minecraft:     cmd.String("minecraft"),
		Side:          side,
		Loader:        loader,
		LoaderVersion: version,
		Memory:        cmd.String("memory"),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(inst, true)
	}
	return r.writePlain("✓ Created %s (%s)\n", inst.Title, inst.ID)
}

// InstanceList prints every instance, oldest first.
func (r *Runner) InstanceList(ctx context.Context, cmd *cli.Command) error {
	list, err := r.store().List()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(list, cmd.Bool("pretty"))
	}

	if len(list) == 0 {
		return r.writePlain("No instances. Create one with 'mcx instance create'.\n")
	}
	r.writePlainHeader(fmt.Sprintf("Instances (%d)", len(list)))
	for _, inst := range list {
		r.writePlain("%s  %-24s %s\n", inst.ID[:8], inst.Title, describe(inst))
	}
	return nil
}

// InstanceShow prints one instance and its installed mods.
func (r *Runner) InstanceShow(ctx context.Context, cmd *cli.Command) error {
	inst, err := r.store().Find(cmd.StringArg("instance"))
	if err != nil {
		return err
	}

	ledger, err := r.modEngine().Ledger(inst)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(struct {
			*models.InstanceSettings
			Mods []*models.Mod `json:"mods"`
		}{inst, ledger.All()}, true)
	}

	r.writePlainHeader(inst.Title)
	r.writePlain("ID: %s\n", inst.ID)
	r.writePlain("Version: %s\n", describe(inst))
	r.writePlain("Side: %s\n", inst.InstallSide)
	r.writePlain("Directory: %s\n", inst.Dir(r.root()))
	if inst.Memory != "" {
		r.writePlain("Memory: %s\n", inst.Memory)
	}
	if p := inst.ModPack; p != nil {
		r.writePlain("Mod pack: %s (%d, file %d)\n", p.Name, p.ID, p.InstalledFileID)
	}
	r.writePlain("Mods: %d\n", ledger.Len())
	return nil
}

// InstanceDelete removes an instance directory with its mods and saves.
func (r *Runner) InstanceDelete(ctx context.Context, cmd *cli.Command) error {
	store := r.store()
	inst, err := store.Find(cmd.StringArg("instance"))
	if err != nil {
		return err
	}
	if err := store.Delete(inst.ID); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted %s\n", inst.Title)
}

func describe(inst *models.InstanceSettings) string {
	desc := "Minecraft " + inst.Versions.Minecraft
	if v := inst.LoaderVersionName(); v != "" {
		desc = v
	}
	return desc
}
