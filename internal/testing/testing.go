// package testing contains shared testing utilities
package testing

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"slices"
	"sync"
	"testing"

	"github.com/desertthunder/mcx/internal/models"
	"github.com/desertthunder/mcx/internal/shared"
)

// MockCatalog is an in-memory mod catalog. Files are listed newest first per mod.
type MockCatalog struct {
	mu       sync.Mutex
	mods     map[int]*models.Mod
	files    map[int][]models.ModFile
	calls    map[string]int
	Versions []models.CatalogVersion
	Err      error
}

func NewMockCatalog() *MockCatalog {
	return &MockCatalog{
		mods:  make(map[int]*models.Mod),
		files: make(map[int][]models.ModFile),
		calls: make(map[string]int),
	}
}

// AddMod registers mod and its files.
func (m *MockCatalog) AddMod(mod models.Mod, files ...models.ModFile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range files {
		files[i].ModID = mod.ID
		mod.LatestFileIDs = append(mod.LatestFileIDs, files[i].ID)
	}
	m.mods[mod.ID] = &mod
	m.files[mod.ID] = append(m.files[mod.ID], files...)
}

// Calls returns how many times method was called.
func (m *MockCatalog) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *MockCatalog) record(method string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[method]++
	return m.Err
}

func (m *MockCatalog) SearchVersions(ctx context.Context, gameVersion string, loader models.ModLoader) ([]models.CatalogVersion, error) {
	if err := m.record("SearchVersions"); err != nil {
		return nil, err
	}
	var out []models.CatalogVersion
	for _, v := range m.Versions {
		if gameVersion == "" || v.GameVersion == gameVersion {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *MockCatalog) GetItemByID(ctx context.Context, id int) (*models.Mod, error) {
	if err := m.record("GetItemByID"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	mod, ok := m.mods[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", shared.ErrModNotFound, id)
	}
	cp := *mod
	return &cp, nil
}

func (m *MockCatalog) GetFileByID(ctx context.Context, modID, fileID int) (*models.ModFile, error) {
	if err := m.record("GetFileByID"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.files[modID] {
		if f.ID == fileID {
			cp := f
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: file %d of mod %d", shared.ErrNoCatalogMatch, fileID, modID)
}

func (m *MockCatalog) GetFiles(ctx context.Context, modID int, gameVersion string, loader models.ModLoader) ([]models.ModFile, error) {
	if err := m.record("GetFiles"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ModFile
	for _, f := range m.files[modID] {
		if gameVersion == "" || len(f.GameVersions) == 0 || slices.Contains(f.GameVersions, gameVersion) {
			out = append(out, f)
		}
	}
	return out, nil
}

// MockProvider returns a fixed account.
type MockProvider struct {
	Account *models.Account
	Err     error
}

func (m *MockProvider) GetProfile(ctx context.Context) (*models.Account, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Account == nil {
		return nil, shared.ErrNotAuthenticated
	}
	return m.Account, nil
}

// FileServer serves fixed bodies by path and counts hits.
type FileServer struct {
	*httptest.Server
	mu    sync.Mutex
	files map[string][]byte
	hits  map[string]int
}

func NewFileServer(t *testing.T) *FileServer {
	t.Helper()
	fs := &FileServer{files: map[string][]byte{}, hits: map[string]int{}}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		body, ok := fs.files[r.URL.Path]
		fs.hits[r.URL.Path]++
		fs.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(body)
	}))
	t.Cleanup(fs.Close)
	return fs
}

// Put serves body at path and returns its url.
func (fs *FileServer) Put(path string, body []byte) string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.files[path] = body
	return fs.URL + path
}

// PutJSON serves v encoded as JSON at path.
func (fs *FileServer) PutJSON(t *testing.T, path string, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return fs.Put(path, data)
}

// Hits returns how many requests path received.
func (fs *FileServer) Hits(path string) int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.hits[path]
}

// ZipBytes builds an in-memory zip archive.
func ZipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
