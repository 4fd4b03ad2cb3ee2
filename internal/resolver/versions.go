package resolver

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/desertthunder/mcx/internal/download"
	"github.com/desertthunder/mcx/internal/launch"
	"github.com/desertthunder/mcx/internal/models"
	"github.com/desertthunder/mcx/internal/rules"
	"github.com/desertthunder/mcx/internal/shared"
)

// VersionList fetches the Mojang version index.
func (r *Resolver) VersionList(ctx context.Context) (*models.VersionList, error) {
	var list models.VersionList
	if err := r.downloads.GetJSON(ctx, r.endpoints.VersionList, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// Releases returns the ids of release versions, newest first.
func Releases(list *models.VersionList) []string {
	var ids []string
	for _, v := range list.Versions {
		if v.Type == "release" {
			ids = append(ids, v.ID)
		}
	}
	SortVersions(ids)
	return ids
}

// SortVersions orders dotted game versions newest first. Non-numeric ids sort last in input order.
func SortVersions(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := canonical(ids[i]), canonical(ids[j])
		switch {
		case a == "" && b == "":
			return false
		case a == "":
			return false
		case b == "":
			return true
		}
		return semver.Compare(a, b) > 0
	})
}

// canonical maps "1.20.1" to "v1.20.1"; semver rejects anything else.
func canonical(id string) string {
	v := "v" + strings.TrimPrefix(id, "v")
	if !semver.IsValid(v) {
		return ""
	}
	return v
}

// ManifestPath returns the location of the version JSON named id.
func ManifestPath(root, id string) string {
	return filepath.Join(root, models.VersionsPath, id, id+".json")
}

// LoadManifest reads the version JSON named id from disk.
func LoadManifest(root, id string) (*models.VersionManifest, error) {
	var m models.VersionManifest
	if err := shared.ReadJSON(ManifestPath(root, id), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Manifest returns the base game manifest of the context's instance and stores it on lc.
//
// A manifest already on disk is used as is; otherwise it is located in the version list and downloaded
// to versions/<id>/<id>.json.
func (r *Resolver) Manifest(ctx context.Context, lc *launch.LaunchContext) (*models.VersionManifest, error) {
	id := lc.Instance.Versions.Minecraft

	m, err := LoadManifest(lc.Root, id)
	if err == nil {
		lc.Base = m
		return m, nil
	}
	if !errors.Is(err, shared.ErrFileNotFound) {
		r.logger.Warn("Stored version manifest unreadable, fetching again", "version", id, "error", err)
	}

	list, err := r.VersionList(ctx)
	if err != nil {
		return nil, err
	}

	ref, ok := list.Find(id)
	if !ok {
		return nil, fmt.Errorf("%w: minecraft version %s", shared.ErrArtifactNotFound, id)
	}

	a := models.NewArtifact(models.KindVersion, ref.URL)
	a.SubPath = id
	a.SetFileName(id + ".json")
	a.SHA1 = ref.SHA1

	if err := r.downloads.Download(ctx, download.NewRequest(a)); err != nil && !shared.IsSignal(err) {
		return nil, err
	}

	m, err = LoadManifest(lc.Root, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrInvalidManifest, err)
	}
	lc.Base = m
	return m, nil
}

// ClientJar downloads versions/<id>/<id>.jar for client instances and records it on lc.
func (r *Resolver) ClientJar(ctx context.Context, lc *launch.LaunchContext, m *models.VersionManifest) error {
	if lc.Side() != rules.Client {
		return nil
	}
	if m.Downloads == nil || m.Downloads.Client == nil {
		return fmt.Errorf("%w: client jar of %s", shared.ErrArtifactNotFound, m.ID)
	}

	info := m.Downloads.Client
	a := models.NewArtifact(models.KindVersion, info.URL)
	a.SubPath = m.ID
	a.SetFileName(m.ID + ".jar")
	a.SHA1 = info.SHA1
	a.Size = info.Size

	if err := r.downloads.Download(ctx, download.NewRequest(a)); err != nil && !shared.IsSignal(err) {
		return err
	}
	lc.ClientJar = a.Path(lc.Root)
	return nil
}
