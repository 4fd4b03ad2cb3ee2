package models

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/mcx/internal/rules"
	"github.com/desertthunder/mcx/internal/shared"
)

// ModLoader identifies the mod loader an instance runs.
type ModLoader string

const (
	LoaderNone   ModLoader = ""
	LoaderForge  ModLoader = "forge"
	LoaderFabric ModLoader = "fabric"
	LoaderQuilt  ModLoader = "quilt"
)

// ParseModLoader accepts loader names in any case, including catalog ids such as "forge-47.2.0".
func ParseModLoader(s string) (ModLoader, string) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, l := range []ModLoader{LoaderForge, LoaderFabric, LoaderQuilt} {
		if s == string(l) {
			return l, ""
		}
		if v, ok := strings.CutPrefix(s, string(l)+"-"); ok {
			return l, v
		}
	}
	return LoaderNone, ""
}

// Versions pins the game, loader and pack versions of an instance.
type Versions struct {
	Minecraft string `json:"minecraft"`
	Forge     string `json:"forge,omitempty"`
	Fabric    string `json:"fabric,omitempty"`
	Quilt     string `json:"quilt,omitempty"`
	Self      string `json:"self,omitempty"`
}

// ModPackRef links an instance to the catalog pack it was created from.
type ModPackRef struct {
	ID                int       `json:"id"`
	Name              string    `json:"name,omitempty"`
	APIType           APIType   `json:"apiType"`
	InstalledFileID   int       `json:"installedFileId"`
	InstalledFileDate time.Time `json:"installedFileDate,omitempty"`
}

// InstanceSettings is the persisted definition of one game instance (instance.json).
type InstanceSettings struct {
	ID                string      `json:"id"`
	Title             string      `json:"title"`
	InstallSide       rules.Side  `json:"installSide"`
	ModLoader         ModLoader   `json:"modLoader,omitempty"`
	Versions          Versions    `json:"versions"`
	ModPack           *ModPackRef `json:"modPack,omitempty"`
	Memory            string      `json:"memory,omitempty"`
	AdditionalJVMArgs string      `json:"additionalJvmArgs,omitempty"`
	IconName          string      `json:"iconName,omitempty"`
	CreatedAt         time.Time   `json:"createdAt"`
}

// NewInstance creates client-side settings with a generated id.
func NewInstance(title, minecraft string) *InstanceSettings {
	return &InstanceSettings{
		ID:          shared.GenerateID(),
		Title:       title,
		InstallSide: rules.Client,
		Versions:    Versions{Minecraft: minecraft},
		CreatedAt:   time.Now().UTC(),
	}
}

// Validate checks that the instance can be installed.
func (i *InstanceSettings) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("%w: instance id is empty", shared.ErrInvalidInput)
	}
	if i.Versions.Minecraft == "" {
		return fmt.Errorf("%w: instance %s has no minecraft version", shared.ErrInvalidInput, i.ID)
	}
	switch i.InstallSide {
	case rules.Client, rules.Server:
	default:
		return fmt.Errorf("%w: install side %q", shared.ErrInvalidInput, i.InstallSide)
	}
	if i.ModLoader == LoaderForge && i.Versions.Forge == "" {
		return fmt.Errorf("%w: forge instance %s has no forge version", shared.ErrInvalidInput, i.ID)
	}
	return nil
}

// Dir returns the instance's game directory under root.
func (i *InstanceSettings) Dir(root string) string {
	return filepath.Join(root, InstancesPath, i.ID)
}

// RelativeDir returns the instance directory relative to root; mods use it as their RelativePath.
func (i *InstanceSettings) RelativeDir() string {
	return filepath.Join(InstancesPath, i.ID)
}

// LoaderVersionName returns the version directory name of the installed loader, or "" when vanilla.
func (i *InstanceSettings) LoaderVersionName() string {
	if i.ModLoader == LoaderForge && i.Versions.Forge != "" {
		return ForgeVersionName(i.Versions.Minecraft, i.Versions.Forge)
	}
	return ""
}

// ForgeVersionName returns the version directory of a Forge build ("1.20.1-forge-47.2.0").
func ForgeVersionName(minecraft, forge string) string {
	return minecraft + "-forge-" + strings.TrimPrefix(forge, "forge-")
}
