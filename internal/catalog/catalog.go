// Package catalog reads mod, modpack and loader metadata from remote catalogs.
package catalog

import (
	"context"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/desertthunder/mcx/internal/models"
)

// Catalog is the remote catalog capability the installers consume.
type Catalog interface {
	// SearchVersions lists loader versions for gameVersion, or the game versions when gameVersion is empty.
	SearchVersions(ctx context.Context, gameVersion string, loader models.ModLoader) ([]models.CatalogVersion, error)
	// GetItemByID returns a mod or modpack project.
	GetItemByID(ctx context.Context, id int) (*models.Mod, error)
	// GetFileByID returns one release of a project.
	GetFileByID(ctx context.Context, modID, fileID int) (*models.ModFile, error)
	// GetFiles lists the releases of a project compatible with gameVersion and loader, newest first.
	GetFiles(ctx context.Context, modID int, gameVersion string, loader models.ModLoader) ([]models.ModFile, error)
}

// CurseForge file CDN
const CurseForgeCDN = "https://media.forgecdn.net/files"

// CurseForgeMirrors are tried in order when the CDN answers 404.
var CurseForgeMirrors = []string{
	"https://mediafilez.forgecdn.net/files",
	"https://edge.forgecdn.net/files",
}

// CDNURL returns the CDN location of a file: <base>/<id/1000>/<id%1000>/<name>.
func CDNURL(base string, fileID int, fileName string) string {
	return strings.TrimSuffix(base, "/") + "/" +
		strconv.Itoa(fileID/1000) + "/" +
		strconv.Itoa(fileID%1000) + "/" +
		url.PathEscape(fileName)
}

// DownloadURL returns the file's download url, falling back to the CDN template when the catalog
// withholds it.
func DownloadURL(f *models.ModFile) string {
	if f.DownloadURL != "" {
		return f.DownloadURL
	}
	return CDNURL(CurseForgeCDN, f.ID, f.FileName)
}

// Latest returns the most recent file, or nil when files is empty.
func Latest(files []models.ModFile) *models.ModFile {
	if len(files) == 0 {
		return nil
	}
	latest := files[0]
	for _, f := range files[1:] {
		if f.FileDate.After(latest.FileDate) {
			latest = f
		}
	}
	return &latest
}

// CompareVersions orders dotted version strings. Semantic versions compare by semver; others segment by
// segment numerically, falling back to string order.
func CompareVersions(a, b string) int {
	va, vb := "v"+strings.TrimPrefix(a, "v"), "v"+strings.TrimPrefix(b, "v")
	if semver.IsValid(va) && semver.IsValid(vb) {
		return semver.Compare(va, vb)
	}

	pa, pb := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(pa) && i < len(pb); i++ {
		na, errA := strconv.Atoi(pa[i])
		nb, errB := strconv.Atoi(pb[i])
		switch {
		case errA == nil && errB == nil && na != nb:
			if na < nb {
				return -1
			}
			return 1
		case (errA != nil || errB != nil) && pa[i] != pb[i]:
			return strings.Compare(pa[i], pb[i])
		}
	}
	switch {
	case len(pa) < len(pb):
		return -1
	case len(pa) > len(pb):
		return 1
	}
	return 0
}

// LoaderVersion strips the loader prefix of a catalog id ("forge-47.2.0" -> "47.2.0").
func LoaderVersion(id string) string {
	if _, v := models.ParseModLoader(id); v != "" {
		return v
	}
	return id
}

// SortVersions orders versions newest first.
func SortVersions(versions []models.CatalogVersion) {
	slices.SortStableFunc(versions, func(a, b models.CatalogVersion) int {
		return CompareVersions(LoaderVersion(b.ID), LoaderVersion(a.ID))
	})
}
