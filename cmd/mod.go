package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mcx/internal/catalog"
	"github.com/desertthunder/mcx/internal/formatter"
	"github.com/desertthunder/mcx/internal/models"
	"github.com/desertthunder/mcx/internal/mods"
	"github.com/desertthunder/mcx/internal/shared"
)

// searcher is implemented by catalogs that support free-text search.
type searcher interface {
	Search(ctx context.Context, q catalog.SearchQuery) ([]models.Mod, error)
}

func (r *Runner) modArgs(cmd *cli.Command) (*models.InstanceSettings, int, error) {
	inst, err := r.store().Find(cmd.StringArg("instance"))
	if err != nil {
		return nil, 0, err
	}
	modID := cmd.Int("mod")
	if modID <= 0 {
		return nil, 0, fmt.Errorf("%w: --mod", shared.ErrMissingArgument)
	}
	return inst, modID, nil
}

// ModInstall installs a mod and its required dependencies into an instance.
func (r *Runner) ModInstall(ctx context.Context, cmd *cli.Command) error {
	inst, modID, err := r.modArgs(cmd)
	if err != nil {
		return err
	}

	m, err := r.modEngine().Install(ctx, inst, mods.InstallRef{
		ModID:              modID,
		FileID:             cmd.Int("file"),
		IgnoreDependencies: cmd.Bool("no-deps"),
	})
	if err != nil {
		return err
	}
	r.drainModEvents()
	return r.writePlain("✓ Installed %s (%s)\n", m.Name, m.FileName)
}

// ModUninstall removes a mod and, unless --no-cascade is set, dependencies nothing else needs.
func (r *Runner) ModUninstall(ctx context.Context, cmd *cli.Command) error {
	inst, modID, err := r.modArgs(cmd)
	if err != nil {
		return err
	}

	if err := r.modEngine().Uninstall(ctx, inst, modID, !cmd.Bool("no-cascade")); err != nil {
		return err
	}
	r.drainModEvents()
	return nil
}

// ModUpdate moves a mod to a pinned file, or to the newest compatible one.
func (r *Runner) ModUpdate(ctx context.Context, cmd *cli.Command) error {
	inst, modID, err := r.modArgs(cmd)
	if err != nil {
		return err
	}

	m, err := r.modEngine().Update(ctx, inst, modID, cmd.Int("file"))
	if err != nil {
		return err
	}
	r.drainModEvents()
	return r.writePlain("✓ Updated %s to %s\n", m.Name, m.FileName)
}

// ModList prints the ledger of an instance.
func (r *Runner) ModList(ctx context.Context, cmd *cli.Command) error {
	inst, err := r.store().Find(cmd.StringArg("instance"))
	if err != nil {
		return err
	}
	ledger, err := r.modEngine().Ledger(inst)
	if err != nil {
		return err
	}

	all := ledger.All()
	if cmd.Bool("json") {
		return r.writeJSON(all, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("%s: %d mods", inst.Title, len(all)))
	for _, m := range all {
		marker := ""
		if m.RelationType == models.RelationRequired {
			marker = " (dependency)"
		}
		r.writePlain("%-8d %-32s %s%s\n", m.ID, m.Name, m.FileName, marker)
	}
	return nil
}

// ModExport writes the mod list of an instance as CSV, Markdown or text.
func (r *Runner) ModExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	inst, err := r.store().Find(cmd.StringArg("instance"))
	if err != nil {
		return err
	}
	ledger, err := r.modEngine().Ledger(inst)
	if err != nil {
		return err
	}

	path, err := formatter.WriteExport(&formatter.ModList{Instance: inst, Mods: ledger.All()}, format, cmd.String("output"))
	if err != nil {
		return err
	}
	return r.writePlain("✓ Exported %d mods to %s\n", ledger.Len(), path)
}

// ModSearch searches the catalog for mods or mod packs.
func (r *Runner) ModSearch(ctx context.Context, cmd *cli.Command) error {
	s, ok := r.catalog.(searcher)
	if !ok {
		return fmt.Errorf("%w: catalog search", shared.ErrNotImplemented)
	}

	loader, _ := models.ParseModLoader(cmd.String("loader"))
	found, err := s.Search(ctx, catalog.SearchQuery{
		Filter:      cmd.StringArg("query"),
		GameVersion: cmd.String("minecraft"),
		Loader:      loader,
		ModPacks:    cmd.Bool("modpacks"),
		PageSize:    cmd.Int("limit"),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(found, cmd.Bool("pretty"))
	}
	for _, m := range found {
		r.writePlain("%-8d %-32s %s\n", m.ID, m.Name, m.Summary)
	}
	return nil
}

// drainModEvents prints the add and remove events of the last operation.
func (r *Runner) drainModEvents() {
	events := r.modEngine().Events()
	for {
		select {
		case ev := <-events:
			sign := "+"
			if ev.Kind == mods.ModRemoved {
				sign = "-"
			}
			r.writePlain("  %s %s\n", sign, ev.Mod.Name)
		default:
			return
		}
	}
}
