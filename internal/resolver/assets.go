package resolver

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/desertthunder/mcx/internal/download"
	"github.com/desertthunder/mcx/internal/launch"
	"github.com/desertthunder/mcx/internal/models"
	"github.com/desertthunder/mcx/internal/shared"
	"github.com/desertthunder/mcx/internal/tasks"
)

// AssetArtifact returns the object stored for resource name.
//
// Hashed layout: assets/objects/<h[0:2]>/<h>. Legacy layout: assets/virtual/legacy/<name>.
func AssetArtifact(name string, obj models.AssetObject, legacy bool, resourcesURL string) *models.Artifact {
	prefix := obj.Hash[:2]
	a := &models.Artifact{
		Kind: models.KindAsset,
		URL:  strings.TrimSuffix(resourcesURL, "/") + "/" + prefix + "/" + obj.Hash,
		SHA1: obj.Hash,
		Size: obj.Size,
	}

	if legacy {
		a.SubPath = path.Join("virtual", "legacy", path.Dir(name))
		a.SetFileName(path.Base(name))
		return a
	}

	a.SubPath = path.Join("objects", prefix)
	a.Name = obj.Hash
	return a
}

// AssetIndex downloads the asset index of m to assets/indexes/<id>.json and decodes it.
func (r *Resolver) AssetIndex(ctx context.Context, lc *launch.LaunchContext, m *models.VersionManifest) (*models.AssetIndex, error) {
	if m.AssetIndex == nil {
		return nil, fmt.Errorf("%w: %s has no asset index", shared.ErrInvalidManifest, m.ID)
	}

	ref := m.AssetIndex
	a := models.NewArtifact(models.KindAssetIndex, ref.URL)
	a.SubPath = "indexes"
	a.SetFileName(ref.ID + ".json")
	a.SHA1 = ref.SHA1
	a.Size = ref.Size

	if err := r.downloads.Download(ctx, download.NewRequest(a)); err != nil && !shared.IsSignal(err) {
		return nil, err
	}

	var index models.AssetIndex
	if err := shared.ReadJSON(a.Path(lc.Root), &index); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrInvalidManifest, err)
	}
	return &index, nil
}

// Assets downloads every object of m's asset index. Each asset fails on its own.
func (r *Resolver) Assets(ctx context.Context, lc *launch.LaunchContext, m *models.VersionManifest) error {
	index, err := r.AssetIndex(ctx, lc, m)
	if err != nil {
		return err
	}

	legacy := index.Legacy()
	work := make([]tasks.Task, 0, len(index.Objects))
	for name, obj := range index.Objects {
		if len(obj.Hash) < 2 {
			r.logger.Warn("Skipping asset with invalid hash", "asset", name)
			continue
		}
		a := AssetArtifact(name, obj, legacy, r.endpoints.Resources)
		work = append(work, download.NewTask(r.downloads, download.NewRequest(a)))
	}

	r.logger.Info("Checking assets", "index", m.AssetIndex.ID, "count", len(work), "legacy", legacy)
	return r.run(ctx, false, work)
}
