package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mcx/internal/catalog"
	"github.com/desertthunder/mcx/internal/models"
	"github.com/desertthunder/mcx/internal/resolver"
)

// VersionsList prints the game versions published by Mojang, releases only unless --all is set.
func (r *Runner) VersionsList(ctx context.Context, cmd *cli.Command) error {
	list, err := r.resolver().VersionList(ctx)
	if err != nil {
		return err
	}

	var ids []string
	if cmd.Bool("all") {
		for _, v := range list.Versions {
			ids = append(ids, v.ID)
		}
	} else {
		ids = resolver.Releases(list)
	}
	if limit := cmd.Int("limit"); limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(ids, false)
	}
	r.writePlain("Latest release: %s\n", list.Latest.Release)
	for _, id := range ids {
		r.writePlain("%s\n", id)
	}
	return nil
}

// VersionsLoaders prints the mod loader builds the catalog knows for a game version.
func (r *Runner) VersionsLoaders(ctx context.Context, cmd *cli.Command) error {
	loader, _ := models.ParseModLoader(cmd.String("loader"))
	versions, err := r.catalog.SearchVersions(ctx, cmd.String("minecraft"), loader)
	if err != nil {
		return err
	}
	catalog.SortVersions(versions)

	if cmd.Bool("json") {
		return r.writeJSON(versions, cmd.Bool("pretty"))
	}
	for _, v := range versions {
		tags := ""
		if v.Recommended {
			tags += " recommended"
		}
		if v.Latest {
			tags += " latest"
		}
		r.writePlain("%-28s %s%s\n", v.ID, v.GameVersion, tags)
	}
	if len(versions) == 0 {
		return r.writePlain("No loader builds for %q\n", cmd.String("minecraft"))
	}
	return nil
}
