package forge

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/tidwall/gjson"

	"github.com/desertthunder/mcx/internal/models"
	"github.com/desertthunder/mcx/internal/rules"
	"github.com/desertthunder/mcx/internal/shared"
)

// InstallProfile is the installer's install_profile.json.
//
// Legacy installers (1.12 and older) embed the version JSON as versionInfo and ship the universal jar at
// install.filePath. Modern installers list libraries, data values and processors that patch the game jar.
type InstallProfile struct {
	Spec        int                  `json:"spec,omitempty"`
	Profile     string               `json:"profile,omitempty"`
	Version     string               `json:"version,omitempty"`
	Minecraft   string               `json:"minecraft,omitempty"`
	JSON        string               `json:"json,omitempty"`
	Path        string               `json:"path,omitempty"`
	Data        map[string]DataEntry `json:"data,omitempty"`
	Processors  []Processor          `json:"processors,omitempty"`
	Libraries   []models.Library     `json:"libraries,omitempty"`
	Install     *LegacyInstall       `json:"install,omitempty"`
	VersionInfo json.RawMessage      `json:"versionInfo,omitempty"`

	legacy bool
}

// LegacyInstall locates the universal jar inside a legacy installer.
type LegacyInstall struct {
	ProfileName string `json:"profileName"`
	Target      string `json:"target"`
	Path        string `json:"path"`
	Version     string `json:"version"`
	FilePath    string `json:"filePath"`
	Minecraft   string `json:"minecraft"`
}

// DataEntry is a processor variable with a value per side.
type DataEntry struct {
	Client string `json:"client"`
	Server string `json:"server"`
}

// For returns the value for side.
func (d DataEntry) For(side rules.Side) string {
	if side == rules.Server {
		return d.Server
	}
	return d.Client
}

// Processor is one installer step run as a Java program.
type Processor struct {
	Jar       string            `json:"jar"`
	Classpath []string          `json:"classpath"`
	Args      []string          `json:"args"`
	Sides     []string          `json:"sides,omitempty"`
	Outputs   map[string]string `json:"outputs,omitempty"`
}

// AppliesTo reports whether the processor runs for side. Processors without sides run for both.
func (p Processor) AppliesTo(side rules.Side) bool {
	return len(p.Sides) == 0 || slices.Contains(p.Sides, string(side))
}

// ParseProfile decodes install_profile.json.
func ParseProfile(data []byte) (*InstallProfile, error) {
	var p InstallProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: install_profile.json: %w", shared.ErrInvalidManifest, err)
	}
	p.legacy = IsLegacyProfile(data)

	if p.Legacy() && (p.Install == nil || p.Install.FilePath == "" || p.Install.Path == "") {
		return nil, fmt.Errorf("%w: legacy install profile without install.filePath", shared.ErrInvalidManifest)
	}
	return &p, nil
}

// IsLegacyProfile reports whether raw profile data has the legacy versionInfo layout.
func IsLegacyProfile(data []byte) bool {
	return gjson.GetBytes(data, "versionInfo").IsObject()
}

// Legacy reports whether the parsed profile had the legacy versionInfo layout.
func (p *InstallProfile) Legacy() bool { return p.legacy }

// LegacyManifest decodes the embedded versionInfo.
func (p *InstallProfile) LegacyManifest() (*models.VersionManifest, error) {
	var m models.VersionManifest
	if err := json.Unmarshal(p.VersionInfo, &m); err != nil {
		return nil, fmt.Errorf("%w: versionInfo: %w", shared.ErrInvalidManifest, err)
	}
	return &m, nil
}
