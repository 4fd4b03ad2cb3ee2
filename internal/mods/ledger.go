package mods

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"github.com/desertthunder/mcx/internal/models"
	"github.com/desertthunder/mcx/internal/shared"
)

// LedgerFile is the name of the per-instance mod ledger.
const LedgerFile = "mods.json"

// LedgerPath returns the ledger location of instance under root.
func LedgerPath(root string, instance *models.InstanceSettings) string {
	return filepath.Join(instance.Dir(root), LedgerFile)
}

type ledgerDocument struct {
	Mods map[string]*models.Mod `json:"mods"`
}

// Ledger is the set of mods installed into one instance, keyed by mod id.
//
// Mutations mark the ledger dirty; [Ledger.Save] writes it and [Ledger.Flush] writes it only when a
// mutation is pending. Callers record a mod only after its file operation succeeded.
type Ledger struct {
	mu    sync.Mutex
	path  string
	mods  map[string]*models.Mod
	dirty bool
}

// NewLedger creates an empty ledger stored at path.
func NewLedger(path string) *Ledger {
	return &Ledger{path: path, mods: make(map[string]*models.Mod)}
}

// LoadLedger reads the ledger at path. A missing file yields an empty ledger.
func LoadLedger(path string) (*Ledger, error) {
	l := NewLedger(path)

	var doc ledgerDocument
	if err := shared.ReadJSON(path, &doc); err != nil {
		if errors.Is(err, shared.ErrFileNotFound) {
			return l, nil
		}
		return nil, fmt.Errorf("failed to load mod ledger: %w", err)
	}
	for k, m := range doc.Mods {
		if m != nil {
			l.mods[k] = m
		}
	}
	return l, nil
}

// Path returns the ledger file location.
func (l *Ledger) Path() string { return l.path }

// Get returns the entry for id.
func (l *Ledger) Get(id int) (*models.Mod, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.mods[strconv.Itoa(id)]
	return m, ok
}

// Put records m, replacing any previous entry with the same id.
func (l *Ledger) Put(m *models.Mod) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mods[m.Key()] = m
	l.dirty = true
}

// Delete removes the entry for id and reports whether it existed.
func (l *Ledger) Delete(id int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := strconv.Itoa(id)
	if _, ok := l.mods[key]; !ok {
		return false
	}
	delete(l.mods, key)
	l.dirty = true
	return true
}

// All returns the entries ordered by id.
func (l *Ledger) All() []*models.Mod {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*models.Mod, 0, len(l.mods))
	for _, m := range l.mods {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b *models.Mod) int { return a.ID - b.ID })
	return out
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.mods)
}

// Dependents returns the entries other than id that require id.
func (l *Ledger) Dependents(id int) []*models.Mod {
	var out []*models.Mod
	for _, m := range l.All() {
		if m.ID != id && m.DependsOn(id) {
			out = append(out, m)
		}
	}
	return out
}

// Save writes the ledger.
func (l *Ledger) Save() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := shared.WriteJSON(l.path, ledgerDocument{Mods: l.mods}); err != nil {
		return fmt.Errorf("failed to save mod ledger: %w", err)
	}
	l.dirty = false
	return nil
}

// Flush writes the ledger if a mutation is pending.
func (l *Ledger) Flush() error {
	l.mu.Lock()
	dirty := l.dirty
	l.mu.Unlock()

	if !dirty {
		return nil
	}
	return l.Save()
}
