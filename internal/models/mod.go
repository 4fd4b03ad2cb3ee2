package models

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"
)

// APIType identifies the catalog a mod or pack comes from.
type APIType int

const (
	APICurseForge APIType = iota + 1
	APIFeedTheBeast
)

func (a APIType) String() string {
	switch a {
	case APICurseForge:
		return "curseforge"
	case APIFeedTheBeast:
		return "feedthebeast"
	default:
		return "unknown"
	}
}

// RelationType classifies a dependency edge using the CurseForge numbering.
type RelationType int

const (
	RelationEmbeddedLibrary RelationType = iota + 1
	RelationOptional
	RelationRequired
	RelationTool
	RelationIncompatible
	RelationInclude
)

// Dependency is an edge from a mod file to another mod.
type Dependency struct {
	ModID        int          `json:"modId"`
	RelationType RelationType `json:"relationType"`
}

// Required reports whether the dependent mod cannot run without this one.
func (d Dependency) Required() bool {
	return d.RelationType == RelationRequired
}

// Mod is a catalog project and, once installed, its ledger record.
type Mod struct {
	ID                int          `json:"id"`
	Name              string       `json:"name"`
	Slug              string       `json:"slug,omitempty"`
	Summary           string       `json:"summary,omitempty"`
	IconURL           string       `json:"iconUrl,omitempty"`
	APIType           APIType      `json:"apiType"`
	RelationType      RelationType `json:"relationType,omitempty"`
	InstalledFileID   int          `json:"installedFileId,omitempty"`
	InstalledFileDate time.Time    `json:"installedFileDate,omitempty"`
	FileName          string       `json:"fileName,omitempty"`
	Hash              string       `json:"hash,omitempty"`
	URL               string       `json:"url,omitempty"`
	Dependencies      []Dependency `json:"dependencies,omitempty"`
	LatestFileIDs     []int        `json:"-"`
}

// Key returns the ledger key of the mod.
func (m *Mod) Key() string {
	return strconv.Itoa(m.ID)
}

// RequiredDependencies returns the ids of mods this one cannot run without.
func (m *Mod) RequiredDependencies() []int {
	var ids []int
	for _, d := range m.Dependencies {
		if d.Required() {
			ids = append(ids, d.ModID)
		}
	}
	return ids
}

// DependsOn reports whether m requires the mod with id.
func (m *Mod) DependsOn(id int) bool {
	for _, d := range m.Dependencies {
		if d.Required() && d.ModID == id {
			return true
		}
	}
	return false
}

// Artifact returns the mod's jar inside the mods directory of instance.
func (m *Mod) Artifact(instance *InstanceSettings) *Artifact {
	a := &Artifact{
		Kind:         KindMod,
		URL:          m.URL,
		SHA1:         m.Hash,
		RelativePath: instance.RelativeDir(),
		InstallSide:  instance.InstallSide,
	}
	a.SetFileName(m.FileName)
	return a
}

// FileHash is a catalog file checksum; Algo 1 is SHA-1 and 2 is MD5.
type FileHash struct {
	Value string `json:"value"`
	Algo  int    `json:"algo"`
}

// ModFile is a downloadable release of a mod or pack.
type ModFile struct {
	ID           int          `json:"id"`
	ModID        int          `json:"modId"`
	DisplayName  string       `json:"displayName"`
	FileName     string       `json:"fileName"`
	FileDate     time.Time    `json:"fileDate"`
	FileLength   int64        `json:"fileLength"`
	DownloadURL  string       `json:"downloadUrl,omitempty"`
	Hashes       []FileHash   `json:"hashes,omitempty"`
	Dependencies []Dependency `json:"dependencies,omitempty"`
	GameVersions []string     `json:"gameVersions,omitempty"`
}

// SHA1 returns the file's SHA-1 checksum, or "" when the catalog has none.
func (f *ModFile) SHA1() string {
	for _, h := range f.Hashes {
		if h.Algo == 1 {
			return h.Value
		}
	}
	return ""
}

// ModPack is a catalog pack project.
type ModPack struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	Slug          string  `json:"slug,omitempty"`
	Summary       string  `json:"summary,omitempty"`
	APIType       APIType `json:"apiType"`
	LatestFileIDs []int   `json:"-"`
}

// ModPackManifest is the manifest.json at the root of a pack archive.
type ModPackManifest struct {
	Minecraft struct {
		Version    string `json:"version"`
		ModLoaders []struct {
			ID      string `json:"id"`
			Primary bool   `json:"primary"`
		} `json:"modLoaders"`
	} `json:"minecraft"`
	ManifestType    string         `json:"manifestType"`
	ManifestVersion int            `json:"manifestVersion"`
	Name            string         `json:"name"`
	Version         string         `json:"version"`
	Author          string         `json:"author"`
	Files           []ManifestFile `json:"files"`
	Overrides       string         `json:"overrides"`
}

// ManifestFile is one pinned mod of a pack.
type ManifestFile struct {
	ProjectID int  `json:"projectID"`
	FileID    int  `json:"fileID"`
	Required  bool `json:"required"`
}

// Loader returns the primary mod loader and its version declared by the manifest.
func (m *ModPackManifest) Loader() (ModLoader, string) {
	for _, l := range m.Minecraft.ModLoaders {
		if l.Primary || len(m.Minecraft.ModLoaders) == 1 {
			return ParseModLoader(l.ID)
		}
	}
	return LoaderNone, ""
}

// OverridesDir returns the archive folder copied over the instance directory.
func (m *ModPackManifest) OverridesDir() string {
	if m.Overrides == "" {
		return "overrides"
	}
	return filepath.ToSlash(m.Overrides)
}

// Account is the authenticated player profile needed to launch.
type Account struct {
	Username    string `json:"username"`
	UUID        string `json:"uuid"`
	AccessToken string `json:"accessToken"`
}

// Validate checks that every launch token of the account is present.
func (a *Account) Validate() error {
	if a == nil || a.Username == "" || a.UUID == "" || a.AccessToken == "" {
		return fmt.Errorf("incomplete account profile")
	}
	return nil
}

// CatalogVersion is a game or mod loader version known to a catalog.
//
// Loader entries carry an ID such as "forge-47.2.0"; game entries use the game version as ID.
type CatalogVersion struct {
	ID          string `json:"id"`
	GameVersion string `json:"gameVersion"`
	Latest      bool   `json:"latest,omitempty"`
	Recommended bool   `json:"recommended,omitempty"`
}
