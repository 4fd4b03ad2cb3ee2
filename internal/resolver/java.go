package resolver

import (
	"context"
	"fmt"
	"path"
	"path/filepath"

	"github.com/tidwall/gjson"

	"github.com/desertthunder/mcx/internal/download"
	"github.com/desertthunder/mcx/internal/launch"
	"github.com/desertthunder/mcx/internal/models"
	"github.com/desertthunder/mcx/internal/rules"
	"github.com/desertthunder/mcx/internal/shared"
	"github.com/desertthunder/mcx/internal/tasks"
)

// DefaultJavaComponent is used by manifests that predate the javaVersion block.
const DefaultJavaComponent = "jre-legacy"

// RuntimeOS returns the runtime catalog name of a manifest OS name.
func RuntimeOS(osName string) string {
	switch osName {
	case "osx":
		return "mac-os"
	case "windows":
		return "windows"
	default:
		return "linux"
	}
}

// RuntimeArch returns the runtime catalog suffix of a manifest arch name.
func RuntimeArch(osName, arch string) string {
	switch arch {
	case "x86_64":
		return "x64"
	case "x86":
		if osName == "linux" {
			return "i386"
		}
		return "x86"
	case "arm64":
		return "arm64"
	default:
		return arch
	}
}

// RuntimeKeys returns the catalog keys tried for p: "<os>-<arch>" first, then "<os>".
func RuntimeKeys(p rules.Platform) []string {
	osName := RuntimeOS(p.OS)
	return []string{osName + "-" + RuntimeArch(p.OS, p.Arch), osName}
}

// JavaExecutable returns the java binary inside a runtime directory.
func JavaExecutable(runtimeDir, osName string) string {
	switch osName {
	case "windows":
		return filepath.Join(runtimeDir, "bin", "javaw.exe")
	case "osx":
		return filepath.Join(runtimeDir, "jre.bundle", "Contents", "Home", "bin", "java")
	default:
		return filepath.Join(runtimeDir, "bin", "java")
	}
}

// RuntimeManifestURL finds the file listing url of component for p in the all.json catalog.
func RuntimeManifestURL(catalog []byte, component string, p rules.Platform) (string, error) {
	for _, key := range RuntimeKeys(p) {
		entry := gjson.GetBytes(catalog, gjson.Escape(key)+"."+gjson.Escape(component)+".0.manifest.url")
		if entry.Exists() && entry.String() != "" {
			return entry.String(), nil
		}
	}
	return "", fmt.Errorf("%w: runtime %s for %s/%s", shared.ErrJavaNotFound, component, p.OS, p.Arch)
}

// Java downloads the runtime component m requires into runtimes/<component> and sets lc.JavaPath.
func (r *Resolver) Java(ctx context.Context, lc *launch.LaunchContext, m *models.VersionManifest) error {
	component := DefaultJavaComponent
	if m.JavaVersion != nil && m.JavaVersion.Component != "" {
		component = m.JavaVersion.Component
	}

	catalog, err := r.downloads.GetBytes(ctx, r.endpoints.JavaRuntimes)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrJavaNotFound, err)
	}

	manifestURL, err := RuntimeManifestURL(catalog, component, lc.Platform)
	if err != nil {
		return err
	}

	var files models.JavaRuntimeFiles
	if err := r.downloads.GetJSON(ctx, manifestURL, &files); err != nil {
		return err
	}
	if len(files.Files) == 0 {
		return fmt.Errorf("%w: no files listed for %s", shared.ErrJavaNotFound, component)
	}

	var work []tasks.Task
	for name, f := range files.Files {
		if f.Downloads == nil || f.Downloads.Raw == nil {
			continue
		}
		raw := f.Downloads.Raw
		a := &models.Artifact{
			Kind:       models.KindJavaRuntime,
			URL:        raw.URL,
			SHA1:       raw.SHA1,
			Size:       raw.Size,
			SubPath:    path.Join(component, path.Dir(name)),
			Executable: f.Executable,
		}
		a.SetFileName(path.Base(name))
		work = append(work, download.NewTask(r.downloads, download.NewRequest(a)))
	}

	r.logger.Info("Checking java runtime", "component", component, "files", len(work))
	if err := r.run(ctx, true, work); err != nil {
		return err
	}

	lc.JavaPath = JavaExecutable(filepath.Join(lc.Root, models.RuntimesPath, component), lc.Platform.OS)
	if !shared.FileExists(lc.JavaPath) {
		return fmt.Errorf("%w: %s", shared.ErrJavaNotFound, lc.JavaPath)
	}
	return nil
}

// LogConfig downloads the client log4j configuration into assets/log_configs and sets lc.LoggingPath.
func (r *Resolver) LogConfig(ctx context.Context, lc *launch.LaunchContext, m *models.VersionManifest) error {
	if m.Logging == nil || m.Logging.Client == nil || m.Logging.Client.File.URL == "" {
		return nil
	}

	file := m.Logging.Client.File
	a := models.NewArtifact(models.KindLogConfig, file.URL)
	if file.ID != "" {
		a.SetFileName(file.ID)
	}
	a.SHA1 = file.SHA1
	a.Size = file.Size

	if err := r.downloads.Download(ctx, download.NewRequest(a)); err != nil && !shared.IsSignal(err) {
		return err
	}
	lc.LoggingPath = a.Path(lc.Root)
	return nil
}
