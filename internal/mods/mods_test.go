package mods

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mcx/internal/download"
	"github.com/desertthunder/mcx/internal/instances"
	"github.com/desertthunder/mcx/internal/models"
	"github.com/desertthunder/mcx/internal/shared"
	"github.com/desertthunder/mcx/internal/tasks"
	tu "github.com/desertthunder/mcx/internal/testing"
)

var baseDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	root    string
	fs      *tu.FileServer
	catalog *tu.MockCatalog
	engine  *Engine
	inst    *models.InstanceSettings
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	logger := log.New(io.Discard)
	cat := tu.NewMockCatalog()
	d := download.NewService(root, shared.DownloadConfig{Retries: 1}, logger)

	inst := models.NewInstance("Test", "1.20.1")
	inst.ModLoader = models.LoaderForge
	inst.Versions.Forge = "47.2.0"

	return &fixture{
		root:    root,
		fs:      tu.NewFileServer(t),
		catalog: cat,
		engine:  NewEngine(cat, d, tasks.NewBus(256), logger),
		inst:    inst,
	}
}

func required(ids ...int) []models.Dependency {
	deps := make([]models.Dependency, 0, len(ids))
	for _, id := range ids {
		deps = append(deps, models.Dependency{ModID: id, RelationType: models.RelationRequired})
	}
	return deps
}

// release serves a jar for the mod and returns its catalog file.
func (f *fixture) release(id, fileID int, deps ...models.Dependency) models.ModFile {
	name := fmt.Sprintf("mod%d-%d.jar", id, fileID)
	body := []byte("jar " + name)
	return models.ModFile{
		ID:           fileID,
		DisplayName:  name,
		FileName:     name,
		FileDate:     baseDate.Add(time.Duration(fileID) * time.Hour),
		DownloadURL:  f.fs.Put("/files/"+name, body),
		Hashes:       []models.FileHash{{Value: shared.HashBytes(body), Algo: 1}},
		Dependencies: deps,
	}
}

func (f *fixture) addMod(id int, files ...models.ModFile) {
	f.catalog.AddMod(models.Mod{ID: id, Name: fmt.Sprintf("Mod %d", id), Slug: fmt.Sprintf("mod-%d", id)}, files...)
}

func (f *fixture) modPath(name string) string {
	return filepath.Join(f.inst.Dir(f.root), models.ModsPath, name)
}

func (f *fixture) saved(t *testing.T) *Ledger {
	t.Helper()
	l, err := LoadLedger(LedgerPath(f.root, f.inst))
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func drainEvents(e *Engine) []ModEvent {
	var out []ModEvent
	for {
		select {
		case ev := <-e.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestLedger(t *testing.T) {
	t.Run("missing file is an empty ledger", func(t *testing.T) {
		l, err := LoadLedger(filepath.Join(t.TempDir(), LedgerFile))
		if err != nil {
			t.Fatal(err)
		}
		if l.Len() != 0 {
			t.Errorf("expected empty ledger, got %d entries", l.Len())
		}
	})

	t.Run("save and load", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), LedgerFile)
		l := NewLedger(path)
		l.Put(&models.Mod{ID: 2, Name: "B", Dependencies: required(1)})
		l.Put(&models.Mod{ID: 1, Name: "A"})
		if err := l.Save(); err != nil {
			t.Fatal(err)
		}

		raw := tu.MustReadFile(t, path)
		var doc map[string]map[string]json.RawMessage
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			t.Fatal(err)
		}
		if _, ok := doc["mods"]["1"]; !ok {
			t.Errorf("expected entries keyed by mod id under \"mods\", got %s", raw)
		}

		loaded, err := LoadLedger(path)
		if err != nil {
			t.Fatal(err)
		}
		all := loaded.All()
		if len(all) != 2 || all[0].ID != 1 || all[1].ID != 2 {
			t.Errorf("unexpected entries %+v", all)
		}
		if deps := loaded.Dependents(1); len(deps) != 1 || deps[0].ID != 2 {
			t.Errorf("expected mod 2 to depend on mod 1, got %+v", deps)
		}
	})

	t.Run("Flush writes only pending changes", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), LedgerFile)
		l := NewLedger(path)
		if err := l.Flush(); err != nil {
			t.Fatal(err)
		}
		if shared.FileExists(path) {
			t.Error("clean ledger should not be written")
		}

		l.Put(&models.Mod{ID: 1})
		if err := l.Flush(); err != nil {
			t.Fatal(err)
		}
		tu.AssertFileExists(t, path)

		if l.Delete(42) {
			t.Error("deleting an unknown id should report false")
		}
	})
}

func TestInstall(t *testing.T) {
	t.Run("installs required dependencies transitively", func(t *testing.T) {
		f := newFixture(t)
		optional := models.Dependency{ModID: 4, RelationType: models.RelationOptional}
		f.addMod(1, f.release(1, 10, append(required(2), optional)...))
		f.addMod(2, f.release(2, 20, required(3)...))
		f.addMod(3, f.release(3, 30))
		f.addMod(4, f.release(4, 40))

		mod, err := f.engine.Install(context.Background(), f.inst, InstallRef{ModID: 1})
		if err != nil {
			t.Fatalf("Install failed: %v", err)
		}
		if mod.InstalledFileID != 10 || mod.RelationType != 0 {
			t.Errorf("unexpected root entry %+v", mod)
		}

		for _, name := range []string{"mod1-10.jar", "mod2-20.jar", "mod3-30.jar"} {
			tu.AssertFileExists(t, f.modPath(name))
		}
		if shared.FileExists(f.modPath("mod4-40.jar")) {
			t.Error("optional dependency should not be installed")
		}

		l := f.saved(t)
		if l.Len() != 3 {
			t.Fatalf("expected 3 ledger entries, got %d", l.Len())
		}
		if dep, _ := l.Get(3); dep.RelationType != models.RelationRequired {
			t.Errorf("expected transitive dependency to be marked required, got %d", dep.RelationType)
		}

		events := drainEvents(f.engine)
		if len(events) != 3 || events[0].Kind != ModAdded || events[0].Mod.ID != 1 {
			t.Errorf("unexpected events %+v", events)
		}
	})

	t.Run("second install is a no-op", func(t *testing.T) {
		f := newFixture(t)
		f.addMod(1, f.release(1, 10, required(2)...))
		f.addMod(2, f.release(2, 20))

		ctx := context.Background()
		if _, err := f.engine.Install(ctx, f.inst, InstallRef{ModID: 1}); err != nil {
			t.Fatal(err)
		}
		items := f.catalog.Calls("GetItemByID")

		if _, err := f.engine.Install(ctx, f.inst, InstallRef{ModID: 1}); err != nil {
			t.Fatal(err)
		}
		if f.catalog.Calls("GetItemByID") != items {
			t.Error("expected no catalog lookups for an installed mod")
		}
		if hits := f.fs.Hits("/files/mod1-10.jar"); hits != 1 {
			t.Errorf("expected one download, got %d", hits)
		}
		if f.saved(t).Len() != 2 {
			t.Error("ledger changed on reinstall")
		}
	})

	t.Run("corrupt file is downloaded again", func(t *testing.T) {
		f := newFixture(t)
		f.addMod(1, f.release(1, 10))
		ctx := context.Background()
		f.engine.Install(ctx, f.inst, InstallRef{ModID: 1})

		os.WriteFile(f.modPath("mod1-10.jar"), []byte("tampered"), 0644)
		if _, err := f.engine.Install(ctx, f.inst, InstallRef{ModID: 1}); err != nil {
			t.Fatal(err)
		}
		if hits := f.fs.Hits("/files/mod1-10.jar"); hits != 2 {
			t.Errorf("expected a second download, got %d", hits)
		}
	})

	t.Run("upper-case catalog hash is not fetched again", func(t *testing.T) {
		f := newFixture(t)
		file := f.release(1, 10)
		file.Hashes[0].Value = strings.ToUpper(file.Hashes[0].Value)
		f.addMod(1, file)
		ctx := context.Background()
		if _, err := f.engine.Install(ctx, f.inst, InstallRef{ModID: 1}); err != nil {
			t.Fatal(err)
		}
		if _, err := f.engine.Install(ctx, f.inst, InstallRef{ModID: 1}); err != nil {
			t.Fatal(err)
		}
		if hits := f.fs.Hits("/files/mod1-10.jar"); hits != 1 {
			t.Errorf("expected one download, got %d", hits)
		}
	})

	t.Run("explicit install of a dependency copies the entry", func(t *testing.T) {
		f := newFixture(t)
		f.addMod(1, f.release(1, 10, required(2)...))
		f.addMod(2, f.release(2, 20))
		ctx := context.Background()
		if _, err := f.engine.Install(ctx, f.inst, InstallRef{ModID: 1}); err != nil {
			t.Fatal(err)
		}
		l, err := f.engine.Ledger(f.inst)
		if err != nil {
			t.Fatal(err)
		}
		before, _ := l.Get(2)

		m, err := f.engine.Install(ctx, f.inst, InstallRef{ModID: 2})
		if err != nil {
			t.Fatal(err)
		}
		if m.RelationType != 0 {
			t.Errorf("expected explicit install to clear the relation, got %d", m.RelationType)
		}
		if before.RelationType != models.RelationRequired {
			t.Error("previously returned entry was mutated")
		}
		if got, _ := f.saved(t).Get(2); got.RelationType != 0 {
			t.Errorf("ledger relation not cleared: %d", got.RelationType)
		}
	})

	t.Run("failed dependency does not block", func(t *testing.T) {
		f := newFixture(t)
		f.addMod(1, f.release(1, 10, required(99)...))

		if _, err := f.engine.Install(context.Background(), f.inst, InstallRef{ModID: 1}); err != nil {
			t.Fatalf("expected dependency failure to be tolerated, got %v", err)
		}
		if _, ok := f.saved(t).Get(1); !ok {
			t.Error("expected root mod in ledger")
		}
	})

	t.Run("dependency cycle terminates", func(t *testing.T) {
		f := newFixture(t)
		f.addMod(1, f.release(1, 10, required(2)...))
		f.addMod(2, f.release(2, 20, required(1)...))

		if _, err := f.engine.Install(context.Background(), f.inst, InstallRef{ModID: 1}); err != nil {
			t.Fatal(err)
		}
		if f.saved(t).Len() != 2 {
			t.Error("expected both mods installed once")
		}
	})

	t.Run("IgnoreDependencies", func(t *testing.T) {
		f := newFixture(t)
		f.addMod(1, f.release(1, 10, required(2)...))
		f.addMod(2, f.release(2, 20))

		if _, err := f.engine.Install(context.Background(), f.inst, InstallRef{ModID: 1, IgnoreDependencies: true}); err != nil {
			t.Fatal(err)
		}
		if f.saved(t).Len() != 1 {
			t.Error("expected only the requested mod")
		}
	})

	t.Run("pinned file", func(t *testing.T) {
		f := newFixture(t)
		f.addMod(1, f.release(1, 10), f.release(1, 11))

		mod, err := f.engine.Install(context.Background(), f.inst, InstallRef{ModID: 1, FileID: 10})
		if err != nil {
			t.Fatal(err)
		}
		if mod.InstalledFileID != 10 {
			t.Errorf("expected pinned file 10, got %d", mod.InstalledFileID)
		}
	})

	t.Run("newest file when unpinned", func(t *testing.T) {
		f := newFixture(t)
		f.addMod(1, f.release(1, 10), f.release(1, 12), f.release(1, 11))

		mod, err := f.engine.Install(context.Background(), f.inst, InstallRef{ModID: 1})
		if err != nil {
			t.Fatal(err)
		}
		if mod.InstalledFileID != 12 {
			t.Errorf("expected newest file 12, got %d", mod.InstalledFileID)
		}
	})

	t.Run("unknown mod", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.Install(context.Background(), f.inst, InstallRef{ModID: 7})
		if !errors.Is(err, shared.ErrNoCatalogMatch) {
			t.Errorf("expected ErrNoCatalogMatch, got %v", err)
		}
		if shared.FileExists(LedgerPath(f.root, f.inst)) {
			t.Error("ledger written for a failed install")
		}
	})

	t.Run("download failure leaves no ledger entry", func(t *testing.T) {
		f := newFixture(t)
		file := f.release(1, 10)
		file.DownloadURL = f.fs.URL + "/files/missing.jar"
		f.addMod(1, file)

		if _, err := f.engine.Install(context.Background(), f.inst, InstallRef{ModID: 1}); !errors.Is(err, shared.ErrDownloadFailed) {
			t.Errorf("expected ErrDownloadFailed, got %v", err)
		}
		if _, ok := f.saved(t).Get(1); ok {
			t.Error("failed mod recorded in ledger")
		}
	})
}

func TestUninstall(t *testing.T) {
	setup := func(t *testing.T) *fixture {
		f := newFixture(t)
		f.addMod(1, f.release(1, 10, required(3)...))
		f.addMod(2, f.release(2, 20, required(3)...))
		f.addMod(3, f.release(3, 30))
		ctx := context.Background()
		for _, id := range []int{1, 2} {
			if _, err := f.engine.Install(ctx, f.inst, InstallRef{ModID: id}); err != nil {
				t.Fatal(err)
			}
		}
		drainEvents(f.engine)
		return f
	}

	t.Run("shared dependency is kept until its last dependent goes", func(t *testing.T) {
		f := setup(t)
		ctx := context.Background()

		if err := f.engine.Uninstall(ctx, f.inst, 1, true); err != nil {
			t.Fatal(err)
		}
		l := f.saved(t)
		if _, ok := l.Get(3); !ok {
			t.Fatal("dependency removed while still required by mod 2")
		}
		if shared.FileExists(f.modPath("mod1-10.jar")) {
			t.Error("expected mod 1 file removed")
		}

		if err := f.engine.Uninstall(ctx, f.inst, 2, true); err != nil {
			t.Fatal(err)
		}
		if f.saved(t).Len() != 0 {
			t.Errorf("expected empty ledger, got %d", f.saved(t).Len())
		}
		if shared.FileExists(f.modPath("mod3-30.jar")) {
			t.Error("expected orphaned dependency file removed")
		}

		removed := 0
		for _, ev := range drainEvents(f.engine) {
			if ev.Kind == ModRemoved {
				removed++
			}
		}
		if removed != 3 {
			t.Errorf("expected 3 removal events, got %d", removed)
		}
	})

	t.Run("without cascade dependencies stay", func(t *testing.T) {
		f := setup(t)
		ctx := context.Background()
		f.engine.Uninstall(ctx, f.inst, 1, false)
		f.engine.Uninstall(ctx, f.inst, 2, false)
		if _, ok := f.saved(t).Get(3); !ok {
			t.Error("dependency removed without cascade")
		}
	})

	t.Run("explicitly installed dependency survives cascade", func(t *testing.T) {
		f := newFixture(t)
		f.addMod(1, f.release(1, 10, required(3)...))
		f.addMod(3, f.release(3, 30))
		ctx := context.Background()
		f.engine.Install(ctx, f.inst, InstallRef{ModID: 3})
		f.engine.Install(ctx, f.inst, InstallRef{ModID: 1})

		if err := f.engine.Uninstall(ctx, f.inst, 1, true); err != nil {
			t.Fatal(err)
		}
		if _, ok := f.saved(t).Get(3); !ok {
			t.Error("user-installed mod removed by cascade")
		}
	})

	t.Run("unknown mod is a no-op", func(t *testing.T) {
		f := setup(t)
		if err := f.engine.Uninstall(context.Background(), f.inst, 42, true); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		if f.saved(t).Len() != 3 {
			t.Error("ledger changed")
		}
	})

	t.Run("missing file is tolerated", func(t *testing.T) {
		f := setup(t)
		os.Remove(f.modPath("mod1-10.jar"))
		if err := f.engine.Uninstall(context.Background(), f.inst, 1, false); err != nil {
			t.Fatalf("expected missing file to be tolerated, got %v", err)
		}
		if _, ok := f.saved(t).Get(1); ok {
			t.Error("expected entry removed")
		}
	})
}

func TestUpdate(t *testing.T) {
	t.Run("replaces the file and keeps dependents", func(t *testing.T) {
		f := newFixture(t)
		f.addMod(1, f.release(1, 10), f.release(1, 11))
		f.addMod(2, f.release(2, 20, required(1)...))
		ctx := context.Background()
		if _, err := f.engine.Install(ctx, f.inst, InstallRef{ModID: 1, FileID: 10}); err != nil {
			t.Fatal(err)
		}
		if _, err := f.engine.Install(ctx, f.inst, InstallRef{ModID: 2}); err != nil {
			t.Fatal(err)
		}

		mod, err := f.engine.Update(ctx, f.inst, 1, 11)
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if mod.InstalledFileID != 11 {
			t.Errorf("expected file 11, got %d", mod.InstalledFileID)
		}
		if shared.FileExists(f.modPath("mod1-10.jar")) {
			t.Error("old file still present")
		}
		tu.AssertFileExists(t, f.modPath("mod1-11.jar"))

		l := f.saved(t)
		if m, _ := l.Get(1); m == nil || m.InstalledFileID != 11 {
			t.Errorf("ledger not updated: %+v", m)
		}
		if _, ok := l.Get(2); !ok {
			t.Error("dependent mod lost")
		}
		if hits := f.fs.Hits("/files/mod2-20.jar"); hits != 1 {
			t.Errorf("dependent should be verified, not downloaded again; got %d hits", hits)
		}
	})

	t.Run("unknown file keeps the installed mod", func(t *testing.T) {
		f := newFixture(t)
		f.addMod(1, f.release(1, 10))
		ctx := context.Background()
		if _, err := f.engine.Install(ctx, f.inst, InstallRef{ModID: 1, FileID: 10}); err != nil {
			t.Fatal(err)
		}

		if _, err := f.engine.Update(ctx, f.inst, 1, 99); !errors.Is(err, shared.ErrNoCatalogMatch) {
			t.Fatalf("expected ErrNoCatalogMatch, got %v", err)
		}
		tu.AssertFileExists(t, f.modPath("mod1-10.jar"))
		m, ok := f.saved(t).Get(1)
		if !ok || m.InstalledFileID != 10 {
			t.Errorf("ledger entry lost or changed: %+v", m)
		}
	})

	t.Run("failed download keeps the installed mod", func(t *testing.T) {
		f := newFixture(t)
		next := f.release(1, 11)
		next.DownloadURL = f.fs.URL + "/files/missing.jar"
		f.addMod(1, f.release(1, 10), next)
		ctx := context.Background()
		if _, err := f.engine.Install(ctx, f.inst, InstallRef{ModID: 1, FileID: 10}); err != nil {
			t.Fatal(err)
		}

		if _, err := f.engine.Update(ctx, f.inst, 1, 11); err == nil {
			t.Fatal("expected the update to fail")
		}
		tu.AssertFileExists(t, f.modPath("mod1-10.jar"))
		if m, _ := f.saved(t).Get(1); m == nil || m.InstalledFileID != 10 {
			t.Errorf("ledger entry lost or changed: %+v", m)
		}
	})

	t.Run("required relation survives", func(t *testing.T) {
		f := newFixture(t)
		f.addMod(1, f.release(1, 10, required(2)...))
		f.addMod(2, f.release(2, 20), f.release(2, 21))
		ctx := context.Background()
		if _, err := f.engine.Install(ctx, f.inst, InstallRef{ModID: 1}); err != nil {
			t.Fatal(err)
		}

		m, err := f.engine.Update(ctx, f.inst, 2, 21)
		if err != nil {
			t.Fatal(err)
		}
		if m.RelationType != models.RelationRequired {
			t.Errorf("expected required relation, got %d", m.RelationType)
		}
		if got, _ := f.saved(t).Get(2); got.RelationType != models.RelationRequired {
			t.Errorf("ledger relation changed: %d", got.RelationType)
		}
	})

	t.Run("latest release", func(t *testing.T) {
		f := newFixture(t)
		f.addMod(1, f.release(1, 10), f.release(1, 11))
		ctx := context.Background()
		f.engine.Install(ctx, f.inst, InstallRef{ModID: 1, FileID: 10})

		mod, err := f.engine.Update(ctx, f.inst, 1, 0)
		if err != nil {
			t.Fatal(err)
		}
		if mod.InstalledFileID != 11 {
			t.Errorf("expected latest file 11, got %d", mod.InstalledFileID)
		}
	})

	t.Run("not installed", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.engine.Update(context.Background(), f.inst, 1, 0); !errors.Is(err, shared.ErrModNotFound) {
			t.Errorf("expected ErrModNotFound, got %v", err)
		}
	})
}

func TestSync(t *testing.T) {
	f := newFixture(t)
	f.addMod(1, f.release(1, 10))
	f.addMod(2, f.release(2, 20))
	ctx := context.Background()
	f.engine.Install(ctx, f.inst, InstallRef{ModID: 1})
	f.engine.Install(ctx, f.inst, InstallRef{ModID: 2})
	os.Remove(f.modPath("mod2-20.jar"))
	items := f.catalog.Calls("GetItemByID")

	if err := f.engine.Sync(ctx, f.inst); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	tu.AssertFileExists(t, f.modPath("mod2-20.jar"))
	if f.fs.Hits("/files/mod1-10.jar") != 1 || f.fs.Hits("/files/mod2-20.jar") != 2 {
		t.Error("expected only the missing mod to be downloaded")
	}
	if f.catalog.Calls("GetItemByID") != items {
		t.Error("Sync should not query the catalog")
	}
}

const packID = 500

func packManifest(version string, files ...models.ManifestFile) map[string]any {
	return map[string]any{
		"minecraft": map[string]any{
			"version":    "1.20.1",
			"modLoaders": []map[string]any{{"id": "forge-47.2.0", "primary": true}},
		},
		"manifestType":    "minecraftModpack",
		"manifestVersion": 1,
		"name":            "Test Pack",
		"version":         version,
		"files":           files,
		"overrides":       "overrides",
	}
}

// packRelease serves a pack archive and returns its catalog file.
func (f *fixture) packRelease(t *testing.T, fileID int, manifest map[string]any, overrides map[string]string) models.ModFile {
	t.Helper()
	data, err := json.Marshal(manifest)
	if err != nil {
		t.Fatal(err)
	}
	entries := map[string]string{PackManifestFile: string(data)}
	for name, content := range overrides {
		entries["overrides/"+name] = content
	}
	body := tu.ZipBytes(t, entries)
	name := fmt.Sprintf("pack-%d.zip", fileID)
	return models.ModFile{
		ID:          fileID,
		DisplayName: name,
		FileName:    name,
		FileDate:    baseDate.Add(time.Duration(fileID) * time.Hour),
		DownloadURL: f.fs.Put("/packs/"+name, body),
		Hashes:      []models.FileHash{{Value: shared.HashBytes(body), Algo: 1}},
	}
}

func TestModPack(t *testing.T) {
	setup := func(t *testing.T) (*fixture, *instances.Store) {
		f := newFixture(t)
		f.catalog.Versions = []models.CatalogVersion{{ID: "forge-47.2.0", GameVersion: "1.20.1"}}
		f.addMod(10, f.release(10, 100))
		f.addMod(11, f.release(11, 110))
		f.addMod(12, f.release(12, 120))
		f.addMod(13, f.release(13, 130))
		f.addMod(14, f.release(14, 140), f.release(14, 141))

		v1 := f.packRelease(t, 1, packManifest("1.0.0",
			models.ManifestFile{ProjectID: 10, FileID: 100, Required: true},
			models.ManifestFile{ProjectID: 11, FileID: 110, Required: false},
			models.ManifestFile{ProjectID: 12, FileID: 120, Required: true},
			models.ManifestFile{ProjectID: 14, FileID: 140, Required: true},
		), map[string]string{"config/a.cfg": "v1"})
		v2 := f.packRelease(t, 2, packManifest("1.1.0",
			models.ManifestFile{ProjectID: 10, FileID: 100, Required: true},
			models.ManifestFile{ProjectID: 13, FileID: 130, Required: true},
			models.ManifestFile{ProjectID: 14, FileID: 141, Required: true},
		), map[string]string{"config/a.cfg": "v2"})
		f.catalog.AddMod(models.Mod{ID: packID, Name: "Test Pack", APIType: models.APICurseForge}, v1, v2)

		return f, instances.NewStore(f.root, log.New(io.Discard))
	}

	t.Run("install creates the instance", func(t *testing.T) {
		f, store := setup(t)
		inst, err := f.engine.InstallModPack(context.Background(), store, packID, 1)
		if err != nil {
			t.Fatalf("InstallModPack failed: %v", err)
		}
		f.inst = inst

		if inst.Title != "Test Pack" || inst.ModLoader != models.LoaderForge || inst.Versions.Forge != "47.2.0" {
			t.Errorf("unexpected instance %+v", inst)
		}
		if inst.Versions.Self != "1.0.0" || inst.ModPack == nil || inst.ModPack.InstalledFileID != 1 {
			t.Errorf("unexpected pack reference %+v %+v", inst.Versions, inst.ModPack)
		}
		if _, err := store.Load(inst.ID); err != nil {
			t.Errorf("instance not saved: %v", err)
		}

		l := f.saved(t)
		if l.Len() != 3 {
			t.Errorf("expected 3 required mods, got %d", l.Len())
		}
		if _, ok := l.Get(11); ok {
			t.Error("optional pack file installed")
		}
		if got := tu.MustReadFile(t, filepath.Join(inst.Dir(f.root), "config", "a.cfg")); got != "v1" {
			t.Errorf("expected overrides extracted, got %q", got)
		}
		tu.AssertFileExists(t, filepath.Join(f.root, models.ModPacksPath, "500", "pack-1.zip"))
	})

	t.Run("install with an unknown loader version", func(t *testing.T) {
		f, store := setup(t)
		f.catalog.Versions = nil
		if _, err := f.engine.InstallModPack(context.Background(), store, packID, 1); !errors.Is(err, shared.ErrNoCatalogMatch) {
			t.Errorf("expected ErrNoCatalogMatch, got %v", err)
		}
	})

	t.Run("update touches only changed files", func(t *testing.T) {
		f, store := setup(t)
		ctx := context.Background()
		inst, err := f.engine.InstallModPack(ctx, store, packID, 1)
		if err != nil {
			t.Fatal(err)
		}
		f.inst = inst

		if err := f.engine.UpdateModPack(ctx, store, inst, 0); err != nil {
			t.Fatalf("UpdateModPack failed: %v", err)
		}

		l := f.saved(t)
		if _, ok := l.Get(12); ok {
			t.Error("removed mod still in ledger")
		}
		if shared.FileExists(f.modPath("mod12-120.jar")) {
			t.Error("removed mod file still present")
		}
		if m, _ := l.Get(14); m == nil || m.InstalledFileID != 141 {
			t.Errorf("changed mod not updated: %+v", m)
		}
		if shared.FileExists(f.modPath("mod14-140.jar")) {
			t.Error("old file of changed mod still present")
		}
		if _, ok := l.Get(13); !ok {
			t.Error("added mod missing")
		}
		if hits := f.fs.Hits("/files/mod10-100.jar"); hits != 1 {
			t.Errorf("unchanged mod downloaded %d times", hits)
		}
		if got := tu.MustReadFile(t, filepath.Join(inst.Dir(f.root), "config", "a.cfg")); got != "v2" {
			t.Errorf("expected overrides refreshed, got %q", got)
		}

		saved, err := store.Load(inst.ID)
		if err != nil {
			t.Fatal(err)
		}
		if saved.Versions.Self != "1.1.0" || saved.ModPack.InstalledFileID != 2 {
			t.Errorf("instance not updated: %+v %+v", saved.Versions, saved.ModPack)
		}
	})

	t.Run("update to the installed release is a no-op", func(t *testing.T) {
		f, store := setup(t)
		ctx := context.Background()
		inst, _ := f.engine.InstallModPack(ctx, store, packID, 2)
		if err := f.engine.UpdateModPack(ctx, store, inst, 2); err != nil {
			t.Fatal(err)
		}
		if hits := f.fs.Hits("/packs/pack-2.zip"); hits != 1 {
			t.Errorf("expected no second pack download, got %d", hits)
		}
	})

	t.Run("update requires a pack instance", func(t *testing.T) {
		f, store := setup(t)
		if err := f.engine.UpdateModPack(context.Background(), store, f.inst, 0); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}
