package models

import (
	"github.com/desertthunder/mcx/internal/rules"
)

// VersionList is the Mojang version index (version_manifest_v2.json).
type VersionList struct {
	Latest struct {
		Release  string `json:"release"`
		Snapshot string `json:"snapshot"`
	} `json:"latest"`
	Versions []VersionRef `json:"versions"`
}

// VersionRef points at one version manifest.
type VersionRef struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	SHA1        string `json:"sha1"`
	Time        string `json:"time"`
	ReleaseTime string `json:"releaseTime"`
}

// Find returns the reference with the given id.
func (l *VersionList) Find(id string) (VersionRef, bool) {
	for _, v := range l.Versions {
		if v.ID == id {
			return v, true
		}
	}
	return VersionRef{}, false
}

// VersionManifest is a game or mod-loader version descriptor (<name>.json).
//
// Modern manifests carry structured Arguments; legacy ones a single MinecraftArguments string.
type VersionManifest struct {
	ID                 string          `json:"id"`
	InheritsFrom       string          `json:"inheritsFrom,omitempty"`
	Type               string          `json:"type,omitempty"`
	MainClass          string          `json:"mainClass"`
	MinecraftArguments string          `json:"minecraftArguments,omitempty"`
	Arguments          *Arguments      `json:"arguments,omitempty"`
	Assets             string          `json:"assets,omitempty"`
	AssetIndex         *AssetIndexRef  `json:"assetIndex,omitempty"`
	Downloads          *VersionFiles   `json:"downloads,omitempty"`
	Libraries          []Library       `json:"libraries"`
	JavaVersion        *JavaVersionReq `json:"javaVersion,omitempty"`
	Logging            *Logging        `json:"logging,omitempty"`
	ReleaseTime        string          `json:"releaseTime,omitempty"`
	Time               string          `json:"time,omitempty"`
}

// Arguments holds rule-gated launch arguments.
type Arguments struct {
	Game []rules.Argument `json:"game,omitempty"`
	JVM  []rules.Argument `json:"jvm,omitempty"`
}

// VersionFiles lists the base game jars of a version.
type VersionFiles struct {
	Client *DownloadInfo `json:"client,omitempty"`
	Server *DownloadInfo `json:"server,omitempty"`
}

// DownloadInfo is a remote file reference with its expected hash.
type DownloadInfo struct {
	ID   string `json:"id,omitempty"`
	Path string `json:"path,omitempty"`
	SHA1 string `json:"sha1"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

// Library is one classpath entry. Name is a Maven coordinate.
//
// ClientReq and ServerReq come from legacy Forge profiles and gate the entry per install side.
type Library struct {
	Name      string            `json:"name"`
	URL       string            `json:"url,omitempty"`
	Downloads *LibraryDownloads `json:"downloads,omitempty"`
	Rules     []rules.Rule      `json:"rules,omitempty"`
	Natives   map[string]string `json:"natives,omitempty"`
	Extract   *ExtractRule      `json:"extract,omitempty"`
	ClientReq *bool             `json:"clientreq,omitempty"`
	ServerReq *bool             `json:"serverreq,omitempty"`
	Checksums []string          `json:"checksums,omitempty"`
}

// LibraryDownloads is the modern library shape: a main artifact plus per-platform classifiers.
type LibraryDownloads struct {
	Artifact    *DownloadInfo           `json:"artifact,omitempty"`
	Classifiers map[string]DownloadInfo `json:"classifiers,omitempty"`
}

// ExtractRule lists archive paths skipped when unpacking natives.
type ExtractRule struct {
	Exclude []string `json:"exclude,omitempty"`
}

// AssetIndexRef points at an asset index document.
type AssetIndexRef struct {
	ID        string `json:"id"`
	SHA1      string `json:"sha1"`
	Size      int64  `json:"size"`
	TotalSize int64  `json:"totalSize,omitempty"`
	URL       string `json:"url"`
}

// AssetIndex maps resource paths to content hashes.
type AssetIndex struct {
	Objects        map[string]AssetObject `json:"objects"`
	Virtual        bool                   `json:"virtual,omitempty"`
	MapToResources bool                   `json:"map_to_resources,omitempty"`
}

// Legacy reports whether assets use the virtual/legacy path-named layout.
func (i *AssetIndex) Legacy() bool {
	return i.Virtual || i.MapToResources
}

// AssetObject is one entry of an asset index.
type AssetObject struct {
	Hash string `json:"hash"`
	Size int64  `json:"size"`
}

// JavaVersionReq names the runtime component a version needs.
type JavaVersionReq struct {
	Component    string `json:"component"`
	MajorVersion int    `json:"majorVersion"`
}

// Logging describes the log4j configuration handed to the game.
type Logging struct {
	Client *LoggingConfig `json:"client,omitempty"`
}

// LoggingConfig is the client logging argument with its config file.
type LoggingConfig struct {
	Argument string       `json:"argument"`
	File     DownloadInfo `json:"file"`
	Type     string       `json:"type,omitempty"`
}

// JavaRuntimeFiles is the file listing of one Java runtime manifest.
type JavaRuntimeFiles struct {
	Files map[string]JavaRuntimeFile `json:"files"`
}

// JavaRuntimeFile is one entry of a runtime listing; directories and links carry no downloads.
type JavaRuntimeFile struct {
	Type       string `json:"type"`
	Executable bool   `json:"executable,omitempty"`
	Downloads  *struct {
		Raw  *DownloadInfo `json:"raw,omitempty"`
		LZMA *DownloadInfo `json:"lzma,omitempty"`
	} `json:"downloads,omitempty"`
}
