package launch

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/desertthunder/mcx/internal/models"
	"github.com/desertthunder/mcx/internal/rules"
	"github.com/desertthunder/mcx/internal/shared"
)

// ClasspathBuilder collects classpath entries in declaration order, dropping exact duplicates.
type ClasspathBuilder struct {
	mu      sync.Mutex
	entries []string
	seen    map[string]struct{}
}

// NewClasspathBuilder creates an empty classpath.
func NewClasspathBuilder() *ClasspathBuilder {
	return &ClasspathBuilder{seen: make(map[string]struct{})}
}

// Add appends paths not already present.
func (c *ClasspathBuilder) Add(paths ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, ok := c.seen[p]; ok {
			continue
		}
		c.seen[p] = struct{}{}
		c.entries = append(c.entries, p)
	}
}

// Contains reports whether p was added.
func (c *ClasspathBuilder) Contains(p string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.seen[p]
	return ok
}

// Entries returns a copy of the entries.
func (c *ClasspathBuilder) Entries() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.entries...)
}

// Len returns the number of entries.
func (c *ClasspathBuilder) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// String joins the entries with the host path list separator.
func (c *ClasspathBuilder) String() string {
	return strings.Join(c.Entries(), string(os.PathListSeparator))
}

// LaunchContext carries everything one install or launch of an instance resolves along the way.
//
// A context is created per launch and never shared between launches.
type LaunchContext struct {
	Root        string
	Instance    *models.InstanceSettings
	Platform    rules.Platform
	Launcher    shared.LauncherConfig
	Classpath   *ClasspathBuilder
	Base        *models.VersionManifest
	Loader      *models.VersionManifest
	ClientJar   string
	JavaPath    string
	LoggingPath string
	NativesDir  string
	Account     *models.Account
}

// NewLaunchContext creates a context for instance under root on the host platform.
func NewLaunchContext(root string, instance *models.InstanceSettings, launcher shared.LauncherConfig) *LaunchContext {
	return &LaunchContext{
		Root:      root,
		Instance:  instance,
		Platform:  rules.Current().WithSide(instance.InstallSide),
		Launcher:  launcher,
		Classpath: NewClasspathBuilder(),
	}
}

// Side returns the install side of the instance.
func (c *LaunchContext) Side() rules.Side {
	return c.Instance.InstallSide
}

// GameDir returns the instance directory used as the game's working directory.
func (c *LaunchContext) GameDir() string {
	return c.Instance.Dir(c.Root)
}

// VersionDir returns the directory of the version named id.
func (c *LaunchContext) VersionDir(id string) string {
	return filepath.Join(c.Root, models.VersionsPath, id)
}

// LibrariesDir returns the shared library repository.
func (c *LaunchContext) LibrariesDir() string {
	return filepath.Join(c.Root, models.LibrariesPath)
}

// AssetsDir returns the shared assets root.
func (c *LaunchContext) AssetsDir() string {
	return filepath.Join(c.Root, models.AssetsPath)
}

// VersionName returns the version the game is launched as: the loader's when present.
func (c *LaunchContext) VersionName() string {
	if c.Loader != nil && c.Loader.ID != "" {
		return c.Loader.ID
	}
	if name := c.Instance.LoaderVersionName(); name != "" {
		return name
	}
	return c.Instance.Versions.Minecraft
}
