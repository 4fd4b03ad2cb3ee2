package mods

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/mcx/internal/catalog"
	"github.com/desertthunder/mcx/internal/download"
	"github.com/desertthunder/mcx/internal/extract"
	"github.com/desertthunder/mcx/internal/models"
	"github.com/desertthunder/mcx/internal/shared"
	"github.com/desertthunder/mcx/internal/tasks"
)

// PackManifestFile is the manifest at the root of a pack archive.
const PackManifestFile = "manifest.json"

// InstanceStore persists the settings of instances created or changed by a pack.
type InstanceStore interface {
	Save(instance *models.InstanceSettings) error
	UpdateModPack(id, self string, fileID int, fileDate time.Time) error
}

const packSteps = 4

func (e *Engine) packStage(step int, msg string) {
	e.bus.PublishUpdate(tasks.StageUpdate(tasks.InstallModPack, step, packSteps, msg))
}

// InstallModPack creates a new instance from a catalog pack: it downloads the pack archive, pins the
// game and loader versions from its manifest, installs every required file and copies the overrides
// into the instance directory. A zero fileID installs the newest release.
func (e *Engine) InstallModPack(ctx context.Context, store InstanceStore, packID, fileID int) (inst *models.InstanceSettings, err error) {
	pack, err := e.catalog.GetItemByID(ctx, packID)
	if err != nil {
		return nil, err
	}
	file, err := e.packFile(ctx, packID, fileID)
	if err != nil {
		return nil, err
	}

	e.packStage(1, fmt.Sprintf("Downloading %s %s...", pack.Name, file.DisplayName))
	archive, manifest, err := e.fetchPack(ctx, packID, file)
	if err != nil {
		return nil, err
	}
	defer archive.Close()

	inst = models.NewInstance(pack.Name, manifest.Minecraft.Version)
	inst.Versions.Self = manifest.Version
	inst.ModPack = &models.ModPackRef{
		ID:                pack.ID,
		Name:              pack.Name,
		APIType:           pack.APIType,
		InstalledFileID:   file.ID,
		InstalledFileDate: file.FileDate,
	}
	if err := e.pinLoader(ctx, inst, manifest); err != nil {
		return nil, err
	}
	if err := store.Save(inst); err != nil {
		return nil, err
	}

	l, err := e.Ledger(inst)
	if err != nil {
		return nil, err
	}
	defer e.flush(l, &err)

	e.packStage(2, fmt.Sprintf("Installing %d mods...", len(manifest.Files)))
	if err := e.installPackFiles(ctx, inst, l, manifest.Files); err != nil {
		return inst, err
	}

	e.packStage(3, "Copying overrides...")
	if err := e.extractOverrides(archive, manifest, inst); err != nil {
		return inst, err
	}

	e.packStage(packSteps, fmt.Sprintf("Created instance %s", inst.Title))
	e.logger.Info("Installed modpack", "pack", pack.Name, "version", manifest.Version, "instance", inst.ID)
	return inst, nil
}

// UpdateModPack moves a pack instance to another release. Mods the new manifest no longer lists are
// uninstalled, new or changed ones are installed, and untouched files stay as they are.
func (e *Engine) UpdateModPack(ctx context.Context, store InstanceStore, inst *models.InstanceSettings, fileID int) (err error) {
	if inst.ModPack == nil {
		return fmt.Errorf("%w: instance %s was not created from a modpack", shared.ErrInvalidInput, inst.ID)
	}
	if inst.ModLoader == models.LoaderNone {
		return fmt.Errorf("%w: instance %s has no mod loader", shared.ErrInvalidInput, inst.ID)
	}

	file, err := e.packFile(ctx, inst.ModPack.ID, fileID)
	if err != nil {
		return err
	}
	if file.ID == inst.ModPack.InstalledFileID {
		e.logger.Info("Modpack is up to date", "pack", inst.ModPack.Name, "file", file.ID)
		return nil
	}

	e.packStage(1, fmt.Sprintf("Downloading %s %s...", inst.ModPack.Name, file.DisplayName))
	archive, manifest, err := e.fetchPack(ctx, inst.ModPack.ID, file)
	if err != nil {
		return err
	}
	defer archive.Close()

	l, err := e.Ledger(inst)
	if err != nil {
		return err
	}
	defer e.flush(l, &err)

	wanted := make(map[int]int, len(manifest.Files))
	for _, f := range manifest.Files {
		if f.Required {
			wanted[f.ProjectID] = f.FileID
		}
	}

	for _, m := range l.All() {
		if _, ok := wanted[m.ID]; ok {
			continue
		}
		if err := e.uninstall(ctx, inst, l, m.ID, false); err != nil {
			return err
		}
	}

	var changed []models.ManifestFile
	for _, f := range manifest.Files {
		if !f.Required {
			continue
		}
		if m, ok := l.Get(f.ProjectID); !ok || m.InstalledFileID != f.FileID {
			changed = append(changed, f)
		}
	}

	e.packStage(2, fmt.Sprintf("Updating %d mods...", len(changed)))
	if err := e.installPackFiles(ctx, inst, l, changed); err != nil {
		return err
	}

	e.packStage(3, "Copying overrides...")
	if err := e.extractOverrides(archive, manifest, inst); err != nil {
		return err
	}

	if err := store.UpdateModPack(inst.ID, manifest.Version, file.ID, file.FileDate); err != nil {
		return err
	}
	inst.Versions.Self = manifest.Version
	inst.ModPack.InstalledFileID = file.ID
	inst.ModPack.InstalledFileDate = file.FileDate

	e.packStage(packSteps, fmt.Sprintf("Updated %s to %s", inst.Title, manifest.Version))
	return nil
}

func (e *Engine) packFile(ctx context.Context, packID, fileID int) (*models.ModFile, error) {
	if fileID != 0 {
		return e.catalog.GetFileByID(ctx, packID, fileID)
	}
	files, err := e.catalog.GetFiles(ctx, packID, "", models.LoaderNone)
	if err != nil {
		return nil, err
	}
	latest := catalog.Latest(files)
	if latest == nil {
		return nil, fmt.Errorf("%w: modpack %d has no files", shared.ErrNoCatalogMatch, packID)
	}
	return latest, nil
}

// fetchPack downloads the pack archive into modpacks/<packID>/ and reads its manifest.
func (e *Engine) fetchPack(ctx context.Context, packID int, file *models.ModFile) (*extract.Archive, *models.ModPackManifest, error) {
	a := &models.Artifact{
		Kind:    models.KindModPack,
		URL:     catalog.DownloadURL(file),
		SHA1:    file.SHA1(),
		SubPath: strconv.Itoa(packID),
	}
	a.SetFileName(file.FileName)

	req := download.NewRequest(a, catalog.CurseForgeMirrors...)
	if _, err := tasks.Execute(ctx, download.NewTask(e.downloads, req), e.bus); err != nil {
		return nil, nil, err
	}

	archive, err := extract.Open(a.Path(e.downloads.Root()), e.logger)
	if err != nil {
		return nil, nil, err
	}
	data, err := archive.ReadFile(PackManifestFile)
	if err != nil {
		archive.Close()
		return nil, nil, fmt.Errorf("%w: %w", shared.ErrInvalidManifest, err)
	}

	var manifest models.ModPackManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		archive.Close()
		return nil, nil, fmt.Errorf("%w: %s: %v", shared.ErrInvalidManifest, PackManifestFile, err)
	}
	if manifest.Minecraft.Version == "" {
		archive.Close()
		return nil, nil, fmt.Errorf("%w: %s has no minecraft version", shared.ErrInvalidManifest, PackManifestFile)
	}
	return archive, &manifest, nil
}

// pinLoader sets the instance loader from the manifest after checking the catalog knows the version.
func (e *Engine) pinLoader(ctx context.Context, inst *models.InstanceSettings, manifest *models.ModPackManifest) error {
	loader, version := manifest.Loader()
	if loader == models.LoaderNone {
		return nil
	}

	versions, err := e.catalog.SearchVersions(ctx, manifest.Minecraft.Version, loader)
	if err != nil {
		return err
	}
	want := string(loader) + "-" + version
	found := false
	for _, v := range versions {
		if v.ID == want {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %s for %s", shared.ErrNoCatalogMatch, want, manifest.Minecraft.Version)
	}

	inst.ModLoader = loader
	switch loader {
	case models.LoaderForge:
		inst.Versions.Forge = version
	case models.LoaderFabric:
		inst.Versions.Fabric = version
	case models.LoaderQuilt:
		inst.Versions.Quilt = version
	}
	return nil
}

// installPackFiles installs the required files of a pack in parallel. Packs pin every file they need, so
// dependencies are not followed.
func (e *Engine) installPackFiles(ctx context.Context, inst *models.InstanceSettings, l *Ledger, files []models.ManifestFile) error {
	runner := tasks.NewRunner(e.bus.Child(), e.logger, tasks.ParallelOptions(e.chunk))
	for _, f := range files {
		if !f.Required {
			continue
		}
		ref := InstallRef{ModID: f.ProjectID, FileID: f.FileID, IgnoreDependencies: true}
		runner.Add(tasks.NewFunc(fmt.Sprintf("Installing mod %d", f.ProjectID), func(ctx context.Context) (any, error) {
			return e.installOne(ctx, inst, l, e.bus, ref, false)
		}))
	}
	return runner.Process(ctx)
}

func (e *Engine) extractOverrides(archive *extract.Archive, manifest *models.ModPackManifest, inst *models.InstanceSettings) error {
	files, err := archive.ExtractDir(manifest.OverridesDir(), inst.Dir(e.downloads.Root()))
	if err != nil {
		return fmt.Errorf("failed to extract overrides: %w", err)
	}
	e.logger.Debug("Extracted overrides", "files", len(files), "instance", inst.ID)
	return nil
}
