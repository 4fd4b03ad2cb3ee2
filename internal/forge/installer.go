// Package forge installs Forge mod loader builds: it downloads the installer jar, extracts the version
// JSON and install profile, resolves the loader libraries and runs the install processors.
package forge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mcx/internal/download"
	"github.com/desertthunder/mcx/internal/extract"
	"github.com/desertthunder/mcx/internal/launch"
	"github.com/desertthunder/mcx/internal/models"
	"github.com/desertthunder/mcx/internal/resolver"
	"github.com/desertthunder/mcx/internal/shared"
	"github.com/desertthunder/mcx/internal/tasks"
)

const (
	MavenURL     = "https://maven.minecraftforge.net/"
	SentinelName = ".installed"
)

// State is the position of an installation.
type State int

const (
	NotInstalled State = iota
	InstallerDownloaded
	ProfileExtracted
	LibrariesQueued
	ProcessorsRun
	Installed
)

func (s State) String() string {
	switch s {
	case NotInstalled:
		return "not_installed"
	case InstallerDownloaded:
		return "installer_downloaded"
	case ProfileExtracted:
		return "profile_extracted"
	case LibrariesQueued:
		return "libraries_queued"
	case ProcessorsRun:
		return "processors_run"
	case Installed:
		return "installed"
	default:
		return ""
	}
}

// InstallerCoordinate returns the maven coordinate of the installer jar.
func InstallerCoordinate(minecraft, forge string) models.Coordinate {
	return models.Coordinate{
		Group:      "net.minecraftforge",
		Artifact:   "forge",
		Version:    minecraft + "-" + strings.TrimPrefix(forge, "forge-"),
		Classifier: "installer",
		Extension:  "jar",
	}
}

// InstallerURL returns the installer download location under the maven base url.
func InstallerURL(base, minecraft, forge string) string {
	return InstallerCoordinate(minecraft, forge).Library(base).URL
}

// Installer installs Forge into the shared versions and libraries directories.
type Installer struct {
	resolver *resolver.Resolver
	commands CommandRunner
	mavenURL string
	bus      *tasks.Bus
	logger   *log.Logger
}

// New creates an installer resolving libraries through r.
func New(r *resolver.Resolver, bus *tasks.Bus, logger *log.Logger) *Installer {
	if logger == nil {
		logger = log.Default()
	}
	return &Installer{
		resolver: r,
		commands: ExecRunner{},
		mavenURL: MavenURL,
		bus:      bus,
		logger:   shared.WithLogger(logger, "component", "forge"),
	}
}

// WithCommandRunner replaces the process runner used for processors.
func (i *Installer) WithCommandRunner(c CommandRunner) *Installer {
	i.commands = c
	return i
}

// WithMavenURL overrides the Forge maven location.
func (i *Installer) WithMavenURL(u string) *Installer {
	i.mavenURL = u
	return i
}

func (i *Installer) report(s State, message string) {
	i.bus.PublishUpdate(tasks.StageUpdate(tasks.InstallLoader, int(s), int(Installed), message))
}

// IsInstalled reports whether the version directory of the build carries the sentinel.
func IsInstalled(root, minecraft, forge string) bool {
	name := models.ForgeVersionName(minecraft, forge)
	return shared.FileExists(filepath.Join(root, models.VersionsPath, name, SentinelName))
}

// Install installs the Forge build of lc's instance and sets lc.Loader.
//
// An installed build only re-declares its libraries on the classpath.
func (i *Installer) Install(ctx context.Context, lc *launch.LaunchContext) error {
	v := lc.Instance.Versions
	if v.Forge == "" {
		return fmt.Errorf("%w: instance %s has no forge version", shared.ErrInvalidInput, lc.Instance.ID)
	}

	name := models.ForgeVersionName(v.Minecraft, v.Forge)
	versionDir := lc.VersionDir(name)

	if IsInstalled(lc.Root, v.Minecraft, v.Forge) {
		m, err := resolver.LoadManifest(lc.Root, name)
		if err == nil {
			lc.Loader = m
			if _, err := i.resolver.LibraryTasks(lc, m.Libraries); err != nil {
				return err
			}
			i.report(Installed, fmt.Sprintf("Forge %s already installed", v.Forge))
			return nil
		}
		i.logger.Warn("Installed forge has no readable version JSON, reinstalling", "version", name, "error", err)
	}

	i.report(NotInstalled, fmt.Sprintf("Installing forge %s...", v.Forge))

	installer := InstallerCoordinate(v.Minecraft, v.Forge).Library(i.mavenURL)
	err := i.resolver.Downloads().Download(ctx, download.NewRequest(installer))
	if err != nil && !shared.IsSignal(err) {
		return fmt.Errorf("forge installer %s: %w", v.Forge, err)
	}
	installerPath := installer.Path(lc.Root)
	i.report(InstallerDownloaded, "Installer downloaded")

	archive, err := extract.Open(installerPath, i.logger)
	if err != nil {
		return err
	}
	defer archive.Close()

	data, err := archive.ReadFile("install_profile.json")
	if err != nil {
		return fmt.Errorf("%w: installer has no install_profile.json", shared.ErrInvalidManifest)
	}
	profile, err := ParseProfile(data)
	if err != nil {
		return err
	}

	manifest, err := i.versionManifest(archive, profile)
	if err != nil {
		return err
	}
	if err := shared.WriteJSON(filepath.Join(versionDir, name+".json"), manifest); err != nil {
		return err
	}
	lc.Loader = manifest
	i.report(ProfileExtracted, "Install profile extracted")

	if profile.Legacy() {
		err = i.installLegacy(ctx, lc, archive, profile, manifest)
	} else {
		err = i.installModern(ctx, lc, archive, installerPath, profile, manifest)
	}
	if err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(versionDir, SentinelName), nil, 0644); err != nil {
		return err
	}
	i.report(Installed, fmt.Sprintf("Forge %s installed", v.Forge))
	return nil
}

// versionManifest returns the loader's version JSON: versionInfo for legacy profiles, version.json otherwise.
func (i *Installer) versionManifest(archive *extract.Archive, profile *InstallProfile) (*models.VersionManifest, error) {
	if profile.Legacy() {
		return profile.LegacyManifest()
	}

	entry := "version.json"
	if profile.JSON != "" {
		entry = strings.TrimPrefix(profile.JSON, "/")
	}
	data, err := archive.ReadFile(entry)
	if err != nil {
		return nil, fmt.Errorf("%w: installer has no %s", shared.ErrInvalidManifest, entry)
	}

	var m models.VersionManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", shared.ErrInvalidManifest, entry, err)
	}
	return &m, nil
}

// installLegacy extracts the universal jar to its library path and resolves the versionInfo libraries.
func (i *Installer) installLegacy(ctx context.Context, lc *launch.LaunchContext, archive *extract.Archive, profile *InstallProfile, m *models.VersionManifest) error {
	coord, err := models.ParseCoordinate(profile.Install.Path)
	if err != nil {
		return err
	}
	if err := archive.ExtractFile(profile.Install.FilePath, coord.LibraryPath(lc.Root)); err != nil {
		return err
	}

	i.report(LibrariesQueued, fmt.Sprintf("Resolving %d libraries", len(m.Libraries)))
	if err := i.resolver.Libraries(ctx, lc, m.Libraries); err != nil {
		return err
	}
	i.report(ProcessorsRun, "No processors to run")
	return nil
}

// installModern unpacks the bundled maven repository, resolves the profile and version libraries, then
// runs the processors of lc's side.
//
// Profile libraries are only needed by processors and go on a throwaway classpath.
func (i *Installer) installModern(ctx context.Context, lc *launch.LaunchContext, archive *extract.Archive, installerPath string, profile *InstallProfile, m *models.VersionManifest) error {
	if _, err := archive.ExtractDir("maven/", lc.LibrariesDir()); err != nil {
		return err
	}

	i.report(LibrariesQueued, fmt.Sprintf("Resolving %d libraries", len(profile.Libraries)+len(m.Libraries)))
	scratch := *lc
	scratch.Classpath = launch.NewClasspathBuilder()
	if err := i.resolver.Libraries(ctx, &scratch, profile.Libraries); err != nil {
		return err
	}
	if err := i.resolver.Libraries(ctx, lc, m.Libraries); err != nil {
		return err
	}

	if err := i.runProcessors(ctx, lc, archive, installerPath, profile); err != nil {
		return err
	}
	i.report(ProcessorsRun, "Processors complete")
	return nil
}

// runProcessors resolves the data variables and runs every processor of lc's side in declaration order.
func (i *Installer) runProcessors(ctx context.Context, lc *launch.LaunchContext, archive *extract.Archive, installerPath string, profile *InstallProfile) error {
	var selected []Processor
	for _, p := range profile.Processors {
		if p.AppliesTo(lc.Side()) {
			selected = append(selected, p)
		}
	}
	if len(selected) == 0 {
		return nil
	}
	if lc.JavaPath == "" {
		return fmt.Errorf("%w: forge processors need a java runtime", shared.ErrJavaNotFound)
	}

	cacheDir := filepath.Join(lc.Root, models.CachesPath, "forge", models.ForgeVersionName(lc.Instance.Versions.Minecraft, lc.Instance.Versions.Forge))
	defer func() {
		if err := os.RemoveAll(cacheDir); err != nil {
			i.logger.Warn("Failed to remove processor cache", "dir", cacheDir, "error", err)
		}
	}()

	vars, err := i.variables(lc, archive, installerPath, cacheDir, profile)
	if err != nil {
		return err
	}

	runner := tasks.NewRunner(i.bus.Child(), i.logger, tasks.DefaultOptions())
	for _, p := range selected {
		runner.Add(&processorTask{
			Base:      tasks.NewBase(fmt.Sprintf("Installing forge processor %s...", p.Jar)),
			installer: i,
			proc:      p,
			java:      lc.JavaPath,
			root:      lc.Root,
			vars:      vars,
		})
	}
	return runner.Process(ctx)
}

// variables builds the token table of the processors.
//
// Data values are read for lc's side: [coord] becomes the library path, 'literal' its content and /path
// an installer entry extracted under cacheDir. The synthetic tokens always win over data values.
func (i *Installer) variables(lc *launch.LaunchContext, archive *extract.Archive, installerPath, cacheDir string, profile *InstallProfile) (map[string]string, error) {
	vars := make(map[string]string, len(profile.Data)+7)
	for key, entry := range profile.Data {
		value := entry.For(lc.Side())
		switch {
		case isCoordinate(value):
			coord, err := models.ParseCoordinate(value)
			if err != nil {
				return nil, err
			}
			vars[key] = coord.LibraryPath(lc.Root)
		case isLiteral(value):
			vars[key] = value[1 : len(value)-1]
		case strings.HasPrefix(value, "/"):
			entry := strings.TrimPrefix(path.Clean(value), "/")
			dest, err := extract.SafeJoin(cacheDir, entry)
			if err != nil {
				return nil, err
			}
			if err := archive.ExtractFile(entry, dest); err != nil {
				return nil, err
			}
			vars[key] = dest
		default:
			vars[key] = value
		}
	}

	mc := lc.Instance.Versions.Minecraft
	vars["SIDE"] = string(lc.Side())
	vars["ROOT"] = lc.Root
	vars["INSTALLER"] = installerPath
	vars["LIBRARY_DIR"] = lc.LibrariesDir()
	vars["MINECRAFT_VERSION"] = mc
	vars["MINECRAFT_JAR"] = filepath.Join(lc.VersionDir(mc), mc+".jar")
	if lc.ClientJar != "" {
		vars["MINECRAFT_JAR"] = lc.ClientJar
	}

	if _, ok := vars["BINPATCH"]; !ok {
		entry := "data/" + string(lc.Side()) + ".lzma"
		if archive.Has(entry) {
			dest := filepath.Join(cacheDir, "data", string(lc.Side())+".lzma")
			if err := archive.ExtractFile(entry, dest); err != nil {
				return nil, err
			}
			vars["BINPATCH"] = dest
		}
	}
	return vars, nil
}
