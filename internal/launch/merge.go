package launch

import (
	"fmt"
	"strings"

	"github.com/desertthunder/mcx/internal/models"
	"github.com/desertthunder/mcx/internal/rules"
	"github.com/desertthunder/mcx/internal/shared"
)

// MergedManifest is the launch view of a base game manifest with mod-loader manifests layered on top.
//
// Precedence, applied per loader in order:
//   - ID, MainClass, Type, Assets and Logging: the loader's value when set.
//   - JVM and Game arguments: base first, then the loader's appended.
//   - MinecraftArguments: a loader's string replaces the base one, since legacy loaders ship the full line.
//   - Libraries: loader entries first; a base entry with the same group, artifact and classifier as a
//     loader entry is dropped, so the loader's pinned version wins.
type MergedManifest struct {
	ID                 string
	MainClass          string
	Type               string
	Assets             string
	JVM                []rules.Argument
	Game               []rules.Argument
	MinecraftArguments string
	Libraries          []models.Library
	Logging            *models.Logging
}

// Legacy reports whether the game takes its arguments from the single MinecraftArguments string.
func (m *MergedManifest) Legacy() bool {
	return len(m.JVM) == 0 && len(m.Game) == 0
}

// Merge layers loaders over base. Nil loaders are skipped.
func Merge(base *models.VersionManifest, loaders ...*models.VersionManifest) (*MergedManifest, error) {
	if base == nil {
		return nil, fmt.Errorf("%w: no base manifest to launch", shared.ErrInvalidManifest)
	}

	m := &MergedManifest{
		ID:                 base.ID,
		MainClass:          base.MainClass,
		Type:               base.Type,
		Assets:             assetsID(base),
		MinecraftArguments: base.MinecraftArguments,
		Logging:            base.Logging,
	}
	if base.Arguments != nil {
		m.JVM = append(m.JVM, base.Arguments.JVM...)
		m.Game = append(m.Game, base.Arguments.Game...)
	}

	var layers [][]models.Library
	for _, l := range loaders {
		if l == nil {
			continue
		}
		if l.ID != "" {
			m.ID = l.ID
		}
		if l.MainClass != "" {
			m.MainClass = l.MainClass
		}
		if l.Type != "" {
			m.Type = l.Type
		}
		if a := assetsID(l); a != "" {
			m.Assets = a
		}
		if l.Logging != nil && l.Logging.Client != nil {
			m.Logging = l.Logging
		}
		if l.MinecraftArguments != "" {
			m.MinecraftArguments = l.MinecraftArguments
		}
		if l.Arguments != nil {
			m.JVM = append(m.JVM, l.Arguments.JVM...)
			m.Game = append(m.Game, l.Arguments.Game...)
		}
		layers = append([][]models.Library{l.Libraries}, layers...)
	}
	layers = append(layers, base.Libraries)

	// Within one manifest the same library may appear once per platform with different versions, so
	// version-less keys only shadow entries of later layers.
	shadowed := make(map[string]struct{})
	for _, libs := range layers {
		names := make(map[string]struct{})
		keys := make(map[string]struct{})
		for _, lib := range libs {
			if _, dup := shadowed[libraryKey(lib.Name)]; dup {
				continue
			}
			if _, dup := names[lib.Name]; dup {
				continue
			}
			names[lib.Name] = struct{}{}
			keys[libraryKey(lib.Name)] = struct{}{}
			m.Libraries = append(m.Libraries, lib)
		}
		for k := range keys {
			shadowed[k] = struct{}{}
		}
	}

	if m.MainClass == "" {
		return nil, fmt.Errorf("%w: %s", shared.ErrMainClassNotFound, m.ID)
	}
	if m.Legacy() && m.MinecraftArguments == "" {
		return nil, fmt.Errorf("%w: %s declares no game arguments", shared.ErrInvalidManifest, m.ID)
	}
	return m, nil
}

func assetsID(v *models.VersionManifest) string {
	if v.Assets != "" {
		return v.Assets
	}
	if v.AssetIndex != nil {
		return v.AssetIndex.ID
	}
	return ""
}

// libraryKey identifies a library regardless of version. Natives with a classifier are distinct entries.
func libraryKey(name string) string {
	c, err := models.ParseCoordinate(name)
	if err != nil {
		return name
	}
	return strings.Join([]string{c.Group, c.Artifact, c.Classifier}, ":")
}
