// Package extract reads and unpacks jar and zip archives: natives, installer payloads and modpack overrides.
package extract

import (
	"archive/zip"
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mcx/internal/shared"
)

// ManifestPath is the location of the jar manifest.
const ManifestPath = "META-INF/MANIFEST.MF"

// Archive is an open zip or jar file.
type Archive struct {
	path   string
	reader *zip.ReadCloser
	logger *log.Logger
}

// Open opens the archive at path.
func Open(path string, logger *log.Logger) (*Archive, error) {
	if logger == nil {
		logger = log.Default()
	}

	reader, err := zip.OpenReader(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", shared.ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to open archive %s: %w", path, err)
	}
	return &Archive{path: path, reader: reader, logger: logger}, nil
}

// Close releases the archive.
func (a *Archive) Close() error {
	return a.reader.Close()
}

// Path returns the archive location.
func (a *Archive) Path() string { return a.path }

func (a *Archive) find(name string) *zip.File {
	name = strings.TrimPrefix(name, "/")
	for _, f := range a.reader.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Has reports whether the archive contains name.
func (a *Archive) Has(name string) bool {
	return a.find(name) != nil
}

// ReadFile returns the contents of entry name.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	f := a.find(name)
	if f == nil {
		return nil, fmt.Errorf("%w: %s in %s", shared.ErrFileNotFound, name, filepath.Base(a.path))
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s in archive: %w", name, err)
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// ExtractFile writes entry name to dest.
func (a *Archive) ExtractFile(name, dest string) error {
	f := a.find(name)
	if f == nil {
		return fmt.Errorf("%w: %s in %s", shared.ErrFileNotFound, name, filepath.Base(a.path))
	}
	return writeEntry(f, dest)
}

// ExtractAll unpacks every file whose name does not start with one of exclude into dest.
func (a *Archive) ExtractAll(dest string, exclude []string) ([]string, error) {
	return a.extract("", dest, exclude)
}

// ExtractDir unpacks the entries under prefix into dest with prefix stripped.
func (a *Archive) ExtractDir(prefix, dest string) ([]string, error) {
	prefix = strings.TrimSuffix(strings.TrimPrefix(prefix, "/"), "/") + "/"
	return a.extract(prefix, dest, nil)
}

func (a *Archive) extract(prefix, dest string, exclude []string) ([]string, error) {
	a.logger.Debug("Extracting archive", "archive", filepath.Base(a.path), "prefix", prefix, "dest", dest)

	if err := os.MkdirAll(dest, 0755); err != nil {
		return nil, fmt.Errorf("failed to create destination directory: %w", err)
	}

	var extracted []string
	for _, f := range a.reader.File {
		if f.FileInfo().IsDir() || !strings.HasPrefix(f.Name, prefix) {
			continue
		}
		if excluded(f.Name, exclude) {
			continue
		}

		rel := strings.TrimPrefix(f.Name, prefix)
		target, err := SafeJoin(dest, rel)
		if err != nil {
			a.logger.Warn("Skipping file with potentially dangerous name", "file", f.Name)
			continue
		}

		if err := writeEntry(f, target); err != nil {
			return extracted, err
		}
		extracted = append(extracted, target)
	}

	a.logger.Debug("Extraction completed", "archive", filepath.Base(a.path), "files", len(extracted))
	return extracted, nil
}

// MainClass returns the Main-Class attribute of the jar manifest.
func (a *Archive) MainClass() (string, error) {
	data, err := a.ReadFile(ManifestPath)
	if err != nil {
		return "", fmt.Errorf("%w: %s", shared.ErrMainClassNotFound, filepath.Base(a.path))
	}

	if main := ParseMainClass(data); main != "" {
		return main, nil
	}
	return "", fmt.Errorf("%w: %s", shared.ErrMainClassNotFound, filepath.Base(a.path))
}

// ParseMainClass reads the Main-Class attribute from manifest data.
func ParseMainClass(data []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if ok && strings.TrimSpace(key) == "Main-Class" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// SafeJoin joins name onto dest, rejecting names that escape dest.
func SafeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) || filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: archive entry %q escapes destination", shared.ErrInvalidInput, name)
	}
	return target, nil
}

func excluded(name string, exclude []string) bool {
	for _, prefix := range exclude {
		if prefix != "" && strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func writeEntry(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open file in archive: %w", err)
	}
	defer rc.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", dest, err)
	}

	mode := f.FileInfo().Mode().Perm()
	if mode == 0 {
		mode = 0644
	}

	w, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer w.Close()

	if _, err := io.Copy(w, rc); err != nil {
		return fmt.Errorf("failed to copy file contents: %w", err)
	}
	return nil
}
