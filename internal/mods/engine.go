// Package mods installs, removes and updates catalog mods and modpacks inside an instance.
//
// Every instance keeps a ledger (mods.json) of what is installed. The engine only records a mod after its
// file is on disk and only forgets one after its file is gone, so the ledger never claims more than the
// mods directory holds.
package mods

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mcx/internal/catalog"
	"github.com/desertthunder/mcx/internal/download"
	"github.com/desertthunder/mcx/internal/models"
	"github.com/desertthunder/mcx/internal/shared"
	"github.com/desertthunder/mcx/internal/tasks"
)

// EventKind tells whether a mod entered or left an instance.
type EventKind int

const (
	ModAdded EventKind = iota
	ModRemoved
)

func (k EventKind) String() string {
	if k == ModRemoved {
		return "removed"
	}
	return "added"
}

// ModEvent reports a ledger change.
type ModEvent struct {
	Kind       EventKind
	InstanceID string
	Mod        *models.Mod
}

// InstallRef selects the mod to install. A zero FileID picks the installed file, or the newest release
// compatible with the instance when the mod is not installed yet.
type InstallRef struct {
	ModID              int
	FileID             int
	IgnoreDependencies bool
}

// Engine resolves mods through a catalog and downloads them into instances.
type Engine struct {
	catalog   catalog.Catalog
	downloads *download.Service
	bus       *tasks.Bus
	chunk     int
	events    chan ModEvent
	mu        sync.Mutex
	ledgers   map[string]*Ledger
	logger    *log.Logger
}

// NewEngine creates an engine publishing task progress to bus.
func NewEngine(c catalog.Catalog, d *download.Service, bus *tasks.Bus, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		catalog:   c,
		downloads: d,
		bus:       bus,
		chunk:     tasks.DefaultChunkSize,
		events:    make(chan ModEvent, 64),
		ledgers:   make(map[string]*Ledger),
		logger:    shared.WithLogger(logger, "component", "mods"),
	}
}

// WithChunkSize sets how many mods are fetched at once when installing a pack or verifying a ledger.
func (e *Engine) WithChunkSize(n int) *Engine {
	if n > 0 {
		e.chunk = n
	}
	return e
}

// Events returns the ledger change stream. Events are dropped when nobody drains it.
func (e *Engine) Events() <-chan ModEvent { return e.events }

func (e *Engine) emit(kind EventKind, instance *models.InstanceSettings, m *models.Mod) {
	select {
	case e.events <- ModEvent{Kind: kind, InstanceID: instance.ID, Mod: m}:
	default:
	}
}

// Ledger returns the ledger of instance, loading it on first use.
func (e *Engine) Ledger(instance *models.InstanceSettings) (*Ledger, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if l, ok := e.ledgers[instance.ID]; ok {
		return l, nil
	}
	l, err := LoadLedger(LedgerPath(e.downloads.Root(), instance))
	if err != nil {
		return nil, err
	}
	e.ledgers[instance.ID] = l
	return l, nil
}

// Flush writes every ledger with pending changes.
func (e *Engine) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	for _, l := range e.ledgers {
		errs = append(errs, l.Flush())
	}
	return errors.Join(errs...)
}

func (e *Engine) flush(l *Ledger, err *error) {
	if ferr := l.Flush(); ferr != nil {
		*err = errors.Join(*err, ferr)
	}
}

// Install downloads the mod and, unless ref.IgnoreDependencies is set, every required dependency
// reachable from it. A dependency that fails is logged and skipped.
func (e *Engine) Install(ctx context.Context, instance *models.InstanceSettings, ref InstallRef) (m *models.Mod, err error) {
	l, err := e.Ledger(instance)
	if err != nil {
		return nil, err
	}
	defer e.flush(l, &err)

	return e.install(ctx, instance, l, e.bus, ref)
}

func (e *Engine) install(ctx context.Context, instance *models.InstanceSettings, l *Ledger, bus *tasks.Bus, ref InstallRef) (*models.Mod, error) {
	root, err := e.installOne(ctx, instance, l, bus, ref, false)
	if err != nil {
		return nil, err
	}
	if ref.IgnoreDependencies {
		return root, nil
	}

	frontier := tasks.NewFrontier(root.RequiredDependencies()...)
	frontier.Visit(root.ID)
	for id, ok := frontier.Pop(); ok; id, ok = frontier.Pop() {
		dep, err := e.installOne(ctx, instance, l, bus, InstallRef{ModID: id}, true)
		if err != nil {
			if ctx.Err() != nil {
				return root, ctx.Err()
			}
			e.logger.Warn("Failed to install dependency", "mod", root.Name, "dependency", id, "error", err)
			continue
		}
		frontier.Push(dep.RequiredDependencies()...)
	}
	return root, nil
}

// installOne installs a single mod. Mods pulled in as dependencies are marked with
// [models.RelationRequired] so a cascading uninstall may remove them again.
func (e *Engine) installOne(ctx context.Context, instance *models.InstanceSettings, l *Ledger, bus *tasks.Bus, ref InstallRef, dependency bool) (*models.Mod, error) {
	existing, installed := l.Get(ref.ModID)

	fileID := ref.FileID
	if fileID == 0 && installed {
		fileID = existing.InstalledFileID
	}

	if installed && existing.InstalledFileID == fileID && e.present(instance, existing) {
		e.logger.Debug("Mod already installed", "mod", existing.Name, "file", existing.FileName)
		if !dependency && existing.RelationType == models.RelationRequired {
			m := *existing
			m.RelationType = 0
			l.Put(&m)
			return &m, nil
		}
		return existing, nil
	}

	file, err := e.resolveFile(ctx, instance, ref.ModID, fileID)
	if err != nil {
		return nil, err
	}
	info, err := e.catalog.GetItemByID(ctx, ref.ModID)
	if err != nil {
		return nil, err
	}

	mod := &models.Mod{
		ID:                info.ID,
		Name:              info.Name,
		Slug:              info.Slug,
		Summary:           info.Summary,
		IconURL:           info.IconURL,
		APIType:           info.APIType,
		InstalledFileID:   file.ID,
		InstalledFileDate: file.FileDate,
		FileName:          file.FileName,
		Hash:              file.SHA1(),
		URL:               catalog.DownloadURL(file),
		Dependencies:      file.Dependencies,
	}
	if mod.ID == 0 {
		mod.ID = ref.ModID
	}
	if dependency && (!installed || existing.RelationType == models.RelationRequired) {
		mod.RelationType = models.RelationRequired
	}

	if err := e.fetch(ctx, instance, bus, mod); err != nil {
		return nil, err
	}
	if installed && existing.FileName != "" && existing.FileName != mod.FileName {
		if err := e.removeFile(instance, existing); err != nil {
			return nil, err
		}
	}

	l.Put(mod)
	e.emit(ModAdded, instance, mod)
	e.logger.Info("Installed mod", "mod", mod.Name, "file", mod.FileName, "instance", instance.ID)
	return mod, nil
}

// resolveFile returns the pinned file, or the newest compatible release when fileID is 0.
func (e *Engine) resolveFile(ctx context.Context, instance *models.InstanceSettings, modID, fileID int) (*models.ModFile, error) {
	if fileID != 0 {
		return e.catalog.GetFileByID(ctx, modID, fileID)
	}

	files, err := e.catalog.GetFiles(ctx, modID, instance.Versions.Minecraft, instance.ModLoader)
	if err != nil {
		return nil, err
	}
	latest := catalog.Latest(files)
	if latest == nil {
		return nil, fmt.Errorf("%w: mod %d has no files for %s", shared.ErrNoCatalogMatch, modID, instance.Versions.Minecraft)
	}
	return latest, nil
}

func mirrorsFor(m *models.Mod) []string {
	if m.APIType == models.APICurseForge {
		return catalog.CurseForgeMirrors
	}
	return nil
}

func (e *Engine) request(instance *models.InstanceSettings, m *models.Mod) *download.Request {
	return download.NewRequest(m.Artifact(instance), mirrorsFor(m)...)
}

func (e *Engine) fetch(ctx context.Context, instance *models.InstanceSettings, bus *tasks.Bus, m *models.Mod) error {
	_, err := tasks.Execute(ctx, download.NewTask(e.downloads, e.request(instance, m)), bus)
	return err
}

// present reports whether the mod's file is on disk with the recorded hash.
func (e *Engine) present(instance *models.InstanceSettings, m *models.Mod) bool {
	if m.FileName == "" {
		return false
	}
	path := m.Artifact(instance).Path(e.downloads.Root())
	if m.Hash == "" {
		return shared.FileExists(path)
	}
	hash, err := shared.HashFile(path)
	return err == nil && strings.EqualFold(hash, m.Hash)
}

func (e *Engine) removeFile(instance *models.InstanceSettings, m *models.Mod) error {
	err := shared.RemoveFile(m.Artifact(instance).Path(e.downloads.Root()))
	if errors.Is(err, shared.ErrFileNotFound) {
		e.logger.Warn("Mod file already gone", "mod", m.Name, "file", m.FileName)
		return nil
	}
	return err
}

// Uninstall removes the mod from instance. With cascade, required dependencies that were pulled in
// automatically and that no remaining mod requires are removed too. Unknown mods are ignored.
func (e *Engine) Uninstall(ctx context.Context, instance *models.InstanceSettings, modID int, cascade bool) (err error) {
	l, err := e.Ledger(instance)
	if err != nil {
		return err
	}
	defer e.flush(l, &err)

	if _, ok := l.Get(modID); !ok {
		e.logger.Warn("Mod is not installed", "mod", modID, "instance", instance.ID)
		return nil
	}
	return e.uninstall(ctx, instance, l, modID, cascade)
}

func (e *Engine) uninstall(ctx context.Context, instance *models.InstanceSettings, l *Ledger, modID int, cascade bool) error {
	frontier := tasks.NewFrontier(modID)
	for id, ok := frontier.Pop(); ok; id, ok = frontier.Pop() {
		if err := ctx.Err(); err != nil {
			return err
		}
		m, ok := l.Get(id)
		if !ok {
			continue
		}

		if err := e.removeFile(instance, m); err != nil {
			return err
		}
		l.Delete(id)
		e.emit(ModRemoved, instance, m)
		e.logger.Info("Removed mod", "mod", m.Name, "instance", instance.ID)

		if !cascade {
			continue
		}
		for _, dep := range m.RequiredDependencies() {
			d, ok := l.Get(dep)
			if !ok || d.RelationType != models.RelationRequired {
				continue
			}
			if others := l.Dependents(dep); len(others) > 0 {
				e.logger.Debug("Keeping dependency", "mod", d.Name, "required_by", others[0].Name)
				continue
			}
			frontier.Push(dep)
		}
	}
	return nil
}

// Update replaces the installed file of modID with fileID, or with the newest compatible release when
// fileID is 0, then re-verifies every mod that depends on it. The target is resolved and downloaded
// before the old file is removed, so a failed update leaves the installed mod untouched.
func (e *Engine) Update(ctx context.Context, instance *models.InstanceSettings, modID, fileID int) (m *models.Mod, err error) {
	l, err := e.Ledger(instance)
	if err != nil {
		return nil, err
	}
	defer e.flush(l, &err)

	prev, ok := l.Get(modID)
	if !ok {
		return nil, fmt.Errorf("%w: %d is not installed in %s", shared.ErrModNotFound, modID, instance.ID)
	}
	relation := prev.RelationType
	dependents := l.Dependents(modID)

	file, err := e.resolveFile(ctx, instance, modID, fileID)
	if err != nil {
		return nil, err
	}

	m, err = e.install(ctx, instance, l, e.bus.Isolated(), InstallRef{ModID: modID, FileID: file.ID})
	if err != nil {
		return nil, err
	}
	if m.RelationType != relation {
		updated := *m
		updated.RelationType = relation
		l.Put(&updated)
		m = &updated
	}

	for _, d := range dependents {
		ref := InstallRef{ModID: d.ID, FileID: d.InstalledFileID, IgnoreDependencies: true}
		if _, err := e.installOne(ctx, instance, l, e.bus, ref, d.RelationType == models.RelationRequired); err != nil {
			e.logger.Warn("Failed to reinstall dependent mod", "mod", d.Name, "error", err)
		}
	}
	return m, nil
}

// Sync verifies every ledger mod of instance against its recorded hash and downloads the ones that
// are missing or corrupt. It needs no catalog access.
func (e *Engine) Sync(ctx context.Context, instance *models.InstanceSettings) error {
	l, err := e.Ledger(instance)
	if err != nil {
		return err
	}

	all := l.All()
	if len(all) == 0 {
		return nil
	}

	runner := tasks.NewRunner(e.bus.Child(), e.logger, tasks.ParallelOptions(e.chunk))
	for _, m := range all {
		runner.Add(download.NewTask(e.downloads, e.request(instance, m)))
	}
	return runner.Process(ctx)
}
