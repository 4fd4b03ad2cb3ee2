package models

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/desertthunder/mcx/internal/rules"
	"github.com/desertthunder/mcx/internal/shared"
)

// Kind is the closed set of artifact categories. Each kind owns one storage root.
type Kind int

const (
	KindLibrary Kind = iota
	KindAsset
	KindAssetIndex
	KindLogConfig
	KindMod
	KindModPack
	KindVersion
	KindJavaRuntime
	KindCachedBlob
)

func (k Kind) String() string {
	switch k {
	case KindLibrary:
		return "library"
	case KindAsset:
		return "asset"
	case KindAssetIndex:
		return "asset_index"
	case KindLogConfig:
		return "log_config"
	case KindMod:
		return "mod"
	case KindModPack:
		return "modpack"
	case KindVersion:
		return "version"
	case KindJavaRuntime:
		return "java_runtime"
	case KindCachedBlob:
		return "cached_blob"
	default:
		return ""
	}
}

// Storage roots relative to the application directory
const (
	LibrariesPath  = "libraries"
	AssetsPath     = "assets"
	LogConfigsPath = "assets/log_configs"
	ModsPath       = "mods"
	ModPacksPath   = "modpacks"
	VersionsPath   = "versions"
	RuntimesPath   = "runtimes"
	CachesPath     = "caches"
	InstancesPath  = "instances"
)

// MainPath returns the storage root of an artifact kind.
func MainPath(k Kind) string {
	switch k {
	case KindLibrary:
		return LibrariesPath
	case KindAsset, KindAssetIndex:
		return AssetsPath
	case KindLogConfig:
		return LogConfigsPath
	case KindMod:
		return ModsPath
	case KindModPack:
		return ModPacksPath
	case KindVersion:
		return VersionsPath
	case KindJavaRuntime:
		return RuntimesPath
	case KindCachedBlob:
		return CachesPath
	default:
		panic(fmt.Sprintf("models: unknown artifact kind %d", int(k)))
	}
}

// Artifact is a downloadable file that knows where it lives on disk.
//
// The on-disk location is root/FullPath()/FileName(). Derived fields (Name, Extension, CurrentHash) are
// filled while resolving and verifying; nothing changes once a download has completed.
type Artifact struct {
	Kind         Kind
	URL          string
	SHA1         string
	CurrentHash  string
	Size         int64
	Name         string
	Extension    string
	SubPath      string
	RelativePath string
	InstallSide  rules.Side
	Content      []byte // inline content, written without a network fetch
	Executable   bool
}

// NewArtifact creates an artifact of kind whose name and extension come from the last URL segment.
func NewArtifact(kind Kind, rawURL string) *Artifact {
	a := &Artifact{Kind: kind, URL: rawURL}
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		a.SetFileName(path.Base(u.Path))
	}
	return a
}

// SetFileName splits name into Name and Extension.
func (a *Artifact) SetFileName(name string) {
	ext := path.Ext(name)
	a.Name = strings.TrimSuffix(name, ext)
	a.Extension = ext
}

// FileName returns Name + Extension.
func (a *Artifact) FileName() string {
	return a.Name + a.Extension
}

// FullPath returns the directory of the artifact relative to the application root.
func (a *Artifact) FullPath() string {
	return filepath.Join(a.RelativePath, MainPath(a.Kind), filepath.FromSlash(a.SubPath))
}

// Path returns the absolute file location under root.
func (a *Artifact) Path(root string) string {
	return filepath.Join(root, a.FullPath(), a.FileName())
}

// Verified reports whether the last observed hash equals the expected one.
func (a *Artifact) Verified() bool {
	return a.SHA1 != "" && strings.EqualFold(a.CurrentHash, a.SHA1)
}

// Coordinate is a Maven coordinate group:artifact:version[:classifier][@extension].
type Coordinate struct {
	Group      string
	Artifact   string
	Version    string
	Classifier string
	Extension  string
}

// ParseCoordinate parses a Maven coordinate. The extension defaults to jar.
func ParseCoordinate(s string) (Coordinate, error) {
	s = strings.Trim(strings.TrimSpace(s), "[]")
	ext := "jar"
	if i := strings.LastIndex(s, "@"); i >= 0 {
		ext = s[i+1:]
		s = s[:i]
	}

	parts := strings.Split(s, ":")
	if len(parts) < 3 || len(parts) > 4 {
		return Coordinate{}, fmt.Errorf("%w: maven coordinate %q", shared.ErrInvalidInput, s)
	}
	for _, p := range parts {
		if p == "" {
			return Coordinate{}, fmt.Errorf("%w: maven coordinate %q", shared.ErrInvalidInput, s)
		}
	}

	c := Coordinate{Group: parts[0], Artifact: parts[1], Version: parts[2], Extension: ext}
	if len(parts) == 4 {
		c.Classifier = parts[3]
	}
	return c, nil
}

func (c Coordinate) String() string {
	s := strings.Join([]string{c.Group, c.Artifact, c.Version}, ":")
	if c.Classifier != "" {
		s += ":" + c.Classifier
	}
	if c.Extension != "" && c.Extension != "jar" {
		s += "@" + c.Extension
	}
	return s
}

// Dir returns the repository directory, group dots turned into slashes.
func (c Coordinate) Dir() string {
	return path.Join(strings.ReplaceAll(c.Group, ".", "/"), c.Artifact, c.Version)
}

// FileName returns artifact-version[-classifier].extension.
func (c Coordinate) FileName() string {
	name := c.Artifact + "-" + c.Version
	if c.Classifier != "" {
		name += "-" + c.Classifier
	}
	ext := c.Extension
	if ext == "" {
		ext = "jar"
	}
	return name + "." + ext
}

// WithClassifier returns a copy of c with classifier set.
func (c Coordinate) WithClassifier(classifier string) Coordinate {
	c.Classifier = classifier
	return c
}

// Library returns the library artifact stored at the coordinate's repository path, fetched from baseURL.
func (c Coordinate) Library(baseURL string) *Artifact {
	a := &Artifact{Kind: KindLibrary, SubPath: c.Dir()}
	a.SetFileName(c.FileName())
	if baseURL != "" {
		a.URL = strings.TrimSuffix(baseURL, "/") + "/" + c.Dir() + "/" + c.FileName()
	}
	return a
}

// LibraryPath returns the absolute location of the coordinate's file under root.
func (c Coordinate) LibraryPath(root string) string {
	return c.Library("").Path(root)
}

// ParseKind is the inverse of [Kind.String].
func ParseKind(s string) (Kind, error) {
	for k := KindLibrary; k <= KindCachedBlob; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown artifact kind %q", shared.ErrInvalidArgument, s)
}
