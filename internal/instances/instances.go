// Package instances persists instance settings as instances/<id>/instance.json under the application root.
package instances

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/buger/jsonparser"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/mcx/internal/models"
	"github.com/desertthunder/mcx/internal/rules"
	"github.com/desertthunder/mcx/internal/shared"
)

// SettingsFile is the name of the settings document inside an instance directory.
const SettingsFile = "instance.json"

// Store reads and writes instance settings.
type Store struct {
	root   string
	logger *log.Logger
}

// NewStore creates a store over the application directory root.
func NewStore(root string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{root: root, logger: shared.WithLogger(logger, "component", "instances")}
}

// Root returns the application directory.
func (s *Store) Root() string { return s.root }

// Path returns the settings file of the instance with id.
func (s *Store) Path(id string) string {
	return filepath.Join(s.root, models.InstancesPath, id, SettingsFile)
}

// CreateOptions describes a new instance.
type CreateOptions struct {
	Title         string
	Minecraft     string
	Side          rules.Side
	Loader        models.ModLoader
	LoaderVersion string
	Memory        string
}

// Create validates and saves a new instance with a generated id.
func (s *Store) Create(opts CreateOptions) (*models.InstanceSettings, error) {
	if strings.TrimSpace(opts.Title) == "" {
		return nil, fmt.Errorf("%w: instance title", shared.ErrMissingArgument)
	}

	inst := models.NewInstance(opts.Title, opts.Minecraft)
	if opts.Side != "" {
		inst.InstallSide = opts.Side
	}
	inst.ModLoader = opts.Loader
	inst.Memory = opts.Memory
	switch opts.Loader {
	case models.LoaderForge:
		inst.Versions.Forge = opts.LoaderVersion
	case models.LoaderFabric:
		inst.Versions.Fabric = opts.LoaderVersion
	case models.LoaderQuilt:
		inst.Versions.Quilt = opts.LoaderVersion
	}

	if err := s.Save(inst); err != nil {
		return nil, err
	}
	s.logger.Info("Created instance", "id", inst.ID, "title", inst.Title, "minecraft", inst.Versions.Minecraft)
	return inst, nil
}

// Save validates inst and writes its settings.
func (s *Store) Save(inst *models.InstanceSettings) error {
	if err := inst.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(inst.Dir(s.root), models.ModsPath), 0755); err != nil {
		return fmt.Errorf("failed to create instance directory: %w", err)
	}
	return shared.WriteJSON(s.Path(inst.ID), inst)
}

// Load reads the settings of the instance with id.
func (s *Store) Load(id string) (*models.InstanceSettings, error) {
	var inst models.InstanceSettings
	if err := shared.ReadJSON(s.Path(id), &inst); err != nil {
		if errors.Is(err, shared.ErrFileNotFound) {
			return nil, fmt.Errorf("%w: %s", shared.ErrInstanceNotFound, id)
		}
		return nil, err
	}
	if inst.ID == "" {
		inst.ID = id
	}
	return &inst, nil
}

// List returns every readable instance, oldest first. Unreadable settings are logged and skipped.
func (s *Store) List() ([]*models.InstanceSettings, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, models.InstancesPath))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}

	var out []*models.InstanceSettings
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		inst, err := s.Load(e.Name())
		if err != nil {
			s.logger.Warn("Skipping unreadable instance", "id", e.Name(), "error", err)
			continue
		}
		out = append(out, inst)
	}
	slices.SortFunc(out, func(a, b *models.InstanceSettings) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

// Find returns the instance whose id or title matches ref. Titles match case-insensitively and must be
// unambiguous.
func (s *Store) Find(ref string) (*models.InstanceSettings, error) {
	if inst, err := s.Load(ref); err == nil {
		return inst, nil
	} else if !errors.Is(err, shared.ErrInstanceNotFound) {
		return nil, err
	}

	all, err := s.List()
	if err != nil {
		return nil, err
	}
	var match *models.InstanceSettings
	for _, inst := range all {
		if !strings.EqualFold(inst.Title, ref) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("%w: more than one instance is titled %q, use its id", shared.ErrInvalidArgument, ref)
		}
		match = inst
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrInstanceNotFound, ref)
	}
	return match, nil
}

// Delete removes the instance directory with its mods and saves.
func (s *Store) Delete(id string) error {
	if !shared.FileExists(s.Path(id)) {
		return fmt.Errorf("%w: %s", shared.ErrInstanceNotFound, id)
	}
	if err := os.RemoveAll(filepath.Join(s.root, models.InstancesPath, id)); err != nil {
		return fmt.Errorf("failed to delete instance %s: %w", id, err)
	}
	s.logger.Info("Deleted instance", "id", id)
	return nil
}

// UpdateModPack records a pack update in place: versions.self, modPack.installedFileId and
// modPack.installedFileDate change while every other member of the document is kept as written.
func (s *Store) UpdateModPack(id, self string, fileID int, fileDate time.Time) error {
	path := s.Path(id)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", shared.ErrInstanceNotFound, id)
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if _, _, _, err := jsonparser.Get(data, "modPack"); err != nil {
		return fmt.Errorf("%w: instance %s was not created from a modpack", shared.ErrInvalidInput, id)
	}

	selfJSON, _ := json.Marshal(self)
	dateJSON, _ := json.Marshal(fileDate.UTC())
	edits := []struct {
		value []byte
		keys  []string
	}{
		{selfJSON, []string{"versions", "self"}},
		{[]byte(strconv.Itoa(fileID)), []string{"modPack", "installedFileId"}},
		{dateJSON, []string{"modPack", "installedFileDate"}},
	}
	for _, e := range edits {
		if data, err = jsonparser.Set(data, e.value, e.keys...); err != nil {
			return fmt.Errorf("failed to set %s in %s: %w", strings.Join(e.keys, "."), SettingsFile, err)
		}
	}
	return shared.WriteFileAtomic(path, data, 0644)
}
