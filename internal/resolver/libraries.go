package resolver

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/desertthunder/mcx/internal/download"
	"github.com/desertthunder/mcx/internal/extract"
	"github.com/desertthunder/mcx/internal/launch"
	"github.com/desertthunder/mcx/internal/models"
	"github.com/desertthunder/mcx/internal/rules"
	"github.com/desertthunder/mcx/internal/shared"
	"github.com/desertthunder/mcx/internal/tasks"
)

// LibraryArtifact returns the main artifact of lib.
//
// Modern entries use downloads.artifact; legacy entries derive the repository path from the Maven
// coordinate and the library url, or baseURL when it has none. A library carrying only natives returns nil.
func LibraryArtifact(lib models.Library, baseURL string) (*models.Artifact, error) {
	if lib.Downloads != nil {
		if lib.Downloads.Artifact != nil {
			return fromDownloadInfo(lib.Name, *lib.Downloads.Artifact)
		}
		if len(lib.Downloads.Classifiers) > 0 {
			return nil, nil
		}
	}
	if len(lib.Natives) > 0 && lib.Downloads == nil {
		return nil, nil
	}

	coord, err := models.ParseCoordinate(lib.Name)
	if err != nil {
		return nil, err
	}
	base := lib.URL
	if base == "" {
		base = baseURL
	}
	a := coord.Library(base)
	if len(lib.Checksums) > 0 {
		a.SHA1 = lib.Checksums[0]
	}
	return a, nil
}

// NativeArtifact returns the natives classifier of lib for p, or nil when lib has none for p's OS.
func NativeArtifact(lib models.Library, p rules.Platform, baseURL string) (*models.Artifact, error) {
	classifier, ok := lib.Natives[p.OS]
	if !ok {
		return nil, nil
	}

	bits := "32"
	if p.Is64Bit() {
		bits = "64"
	}
	classifier = strings.ReplaceAll(classifier, "${arch}", bits)

	if lib.Downloads != nil && lib.Downloads.Classifiers != nil {
		info, ok := lib.Downloads.Classifiers[classifier]
		if !ok {
			return nil, fmt.Errorf("%w: classifier %s of %s", shared.ErrArtifactNotFound, classifier, lib.Name)
		}
		coord, err := models.ParseCoordinate(lib.Name)
		if err == nil {
			return fromDownloadInfo(coord.WithClassifier(classifier).String(), info)
		}
		return fromDownloadInfo("", info)
	}

	coord, err := models.ParseCoordinate(lib.Name)
	if err != nil {
		return nil, err
	}
	base := lib.URL
	if base == "" {
		base = baseURL
	}
	return coord.WithClassifier(classifier).Library(base), nil
}

// fromDownloadInfo builds a library artifact from a manifest download entry. The repository path comes
// from info.Path, or from the coordinate name when the entry has none.
func fromDownloadInfo(name string, info models.DownloadInfo) (*models.Artifact, error) {
	var a *models.Artifact
	switch {
	case info.Path != "":
		a = &models.Artifact{Kind: models.KindLibrary, SubPath: path.Dir(info.Path)}
		a.SetFileName(path.Base(info.Path))
	case name != "":
		coord, err := models.ParseCoordinate(name)
		if err != nil {
			return nil, err
		}
		a = coord.Library("")
	default:
		return nil, fmt.Errorf("%w: library entry without path or name", shared.ErrInvalidManifest)
	}

	a.URL = info.URL
	a.SHA1 = info.SHA1
	a.Size = info.Size
	return a, nil
}

// SideAllowed applies the legacy clientreq/serverreq flags. Entries without either flag apply to both sides.
func SideAllowed(lib models.Library, side rules.Side) bool {
	if lib.ClientReq == nil && lib.ServerReq == nil {
		return true
	}
	switch {
	case side == rules.Client && lib.ClientReq != nil:
		return *lib.ClientReq
	case side == rules.Server && lib.ServerReq != nil:
		return *lib.ServerReq
	default:
		return false
	}
}

// NativesDir returns versions/<id>/natives.
func NativesDir(root, id string) string {
	return filepath.Join(root, models.VersionsPath, id, "natives")
}

// LibraryTasks appends the classpath entries of libs to lc and returns the downloads they need.
//
// Entries excluded by rules or side are skipped entirely. Entries without a url are expected on disk
// (installer output) and only join the classpath. Natives are downloaded then unpacked into lc.NativesDir.
func (r *Resolver) LibraryTasks(lc *launch.LaunchContext, libs []models.Library) ([]tasks.Task, error) {
	if lc.NativesDir == "" {
		lc.NativesDir = NativesDir(lc.Root, lc.Instance.Versions.Minecraft)
	}

	var work []tasks.Task
	for _, lib := range libs {
		if !SideAllowed(lib, lc.Side()) || !rules.Valid(lib.Rules, lc.Platform) {
			r.logger.Debug("Skipping library", "library", lib.Name)
			continue
		}

		a, err := LibraryArtifact(lib, r.endpoints.Libraries)
		if err != nil {
			return nil, err
		}
		if a != nil {
			lc.Classpath.Add(a.Path(lc.Root))
			if a.URL != "" {
				work = append(work, download.NewTask(r.downloads, download.NewRequest(a)))
			}
		}

		native, err := NativeArtifact(lib, lc.Platform, r.endpoints.Libraries)
		if err != nil {
			r.logger.Warn("No natives for platform", "library", lib.Name, "os", lc.Platform.OS, "arch", lc.Platform.Arch)
			continue
		}
		if native == nil {
			continue
		}

		var exclude []string
		if lib.Extract != nil {
			exclude = lib.Extract.Exclude
		}
		work = append(work, download.NewTask(r.downloads, download.NewRequest(native)).
			Then(r.unpackNatives(lc.Root, lc.NativesDir, exclude)))
	}
	return work, nil
}

func (r *Resolver) unpackNatives(root, dest string, exclude []string) download.AfterFunc {
	return func(ctx context.Context, a *models.Artifact) error {
		archive, err := extract.Open(a.Path(root), r.logger)
		if err != nil {
			return err
		}
		defer archive.Close()

		_, err = archive.ExtractAll(dest, exclude)
		return err
	}
}

// Libraries resolves libs onto lc's classpath and downloads them.
func (r *Resolver) Libraries(ctx context.Context, lc *launch.LaunchContext, libs []models.Library) error {
	work, err := r.LibraryTasks(lc, libs)
	if err != nil {
		return err
	}
	r.logger.Info("Checking libraries", "count", len(libs), "downloads", len(work))
	return r.run(ctx, true, work)
}
