package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mcx/internal/repositories"
	"github.com/desertthunder/mcx/internal/shared"
)

func (r *Runner) blobs() (*repositories.BlobRepository, error) {
	db, err := r.database()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	return repositories.NewBlobRepository(db), nil
}

// CacheList prints the indexed downloads, optionally of one kind.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.blobs()
	if err != nil {
		return err
	}

	blobs, err := repo.List(map[string]any{"kind": cmd.String("kind")})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		type row struct {
			Kind string `json:"kind"`
			Path string `json:"path"`
			SHA1 string `json:"sha1"`
			Size int64  `json:"size"`
		}
		rows := make([]row, len(blobs))
		for i, b := range blobs {
			rows[i] = row{b.Kind().String(), b.Path(), b.SHA1(), b.Size()}
		}
		return r.writeJSON(rows, cmd.Bool("pretty"))
	}

	for _, b := range blobs {
		r.writePlain("%-12s %10d  %s\n", b.Kind(), b.Size(), b.Path())
	}
	count, size, err := repo.Stats()
	if err != nil {
		return err
	}
	return r.writePlainln("%d files, %.1f MiB indexed", count, float64(size)/(1<<20))
}

// CachePrune drops index rows of files deleted from disk.
func (r *Runner) CachePrune(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.blobs()
	if err != nil {
		return err
	}

	removed, err := repo.Prune(ctx)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Pruned %d stale entries\n", removed)
}

// CacheHistory prints the recent launches of an instance.
func (r *Runner) CacheHistory(ctx context.Context, cmd *cli.Command) error {
	inst, err := r.store().Find(cmd.StringArg("instance"))
	if err != nil {
		return err
	}
	db, err := r.database()
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}

	launches, err := repositories.NewLaunchRepository(db).ListByInstance(inst.ID, cmd.Int("limit"))
	if err != nil {
		return err
	}

	r.writePlainHeader(fmt.Sprintf("%s: %d launches", inst.Title, len(launches)))
	for _, l := range launches {
		status := "running"
		if code := l.ExitCode(); code != nil {
			status = fmt.Sprintf("exit %d", *code)
		}
		if msg := l.ErrorMessage(); msg != "" {
			status += ": " + msg
		}
		r.writePlain("%s  %-24s pid %-7d %s\n", l.StartedAt().Local().Format("2006-01-02 15:04:05"), l.Version(), l.PID(), status)
	}
	return nil
}
