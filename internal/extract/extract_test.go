package extract

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mcx/internal/shared"
	tu "github.com/desertthunder/mcx/internal/testing"
)

func createZip(t *testing.T, files map[string]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.jar")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func openZip(t *testing.T, files map[string]string) *Archive {
	t.Helper()
	a, err := Open(createZip(t, files), log.New(io.Discard))
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestOpen(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.jar"), nil)
	if !errors.Is(err, shared.ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound, got %v", err)
	}
}

func TestExtractAll(t *testing.T) {
	a := openZip(t, map[string]string{
		"liblwjgl.so":          "native",
		"sub/libopenal.so":     "native",
		"META-INF/MANIFEST.MF": "Manifest-Version: 1.0",
		"META-INF/LWJGL.SF":    "sig",
	})

	dest := t.TempDir()
	files, err := a.ExtractAll(dest, []string{"META-INF/"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("expected 2 files, got %v", files)
	}

	tu.AssertFileExists(t, filepath.Join(dest, "liblwjgl.so"))
	tu.AssertFileExists(t, filepath.Join(dest, "sub", "libopenal.so"))
	if shared.FileExists(filepath.Join(dest, "META-INF")) {
		t.Error("expected META-INF to be excluded")
	}
}

func TestExtractDir(t *testing.T) {
	a := openZip(t, map[string]string{
		"maven/net/minecraftforge/forge/1.0/forge-1.0.jar": "jar",
		"maven/com/example/lib/2.0/lib-2.0.jar":            "jar",
		"install_profile.json":                             "{}",
	})

	dest := t.TempDir()
	files, err := a.ExtractDir("maven/", dest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("expected 2 files, got %v", files)
	}
	tu.AssertFileExists(t, filepath.Join(dest, "net", "minecraftforge", "forge", "1.0", "forge-1.0.jar"))
	if shared.FileExists(filepath.Join(dest, "install_profile.json")) {
		t.Error("expected files outside prefix to be skipped")
	}
}

func TestExtractFile(t *testing.T) {
	a := openZip(t, map[string]string{"version.json": `{"id":"x"}`})

	dest := filepath.Join(t.TempDir(), "versions", "x", "x.json")
	if err := a.ExtractFile("version.json", dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, _ := os.ReadFile(dest)
	if string(data) != `{"id":"x"}` {
		t.Errorf("unexpected content %q", data)
	}

	if err := a.ExtractFile("/data/client.lzma", dest); !errors.Is(err, shared.ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound, got %v", err)
	}
}

func TestMainClass(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		a := openZip(t, map[string]string{
			ManifestPath: "Manifest-Version: 1.0\r\nMain-Class: net.minecraftforge.installertools.ConsoleTool\r\n",
		})
		main, err := a.MainClass()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if main != "net.minecraftforge.installertools.ConsoleTool" {
			t.Errorf("unexpected main class %q", main)
		}
	})

	t.Run("missing attribute", func(t *testing.T) {
		a := openZip(t, map[string]string{ManifestPath: "Manifest-Version: 1.0\n"})
		if _, err := a.MainClass(); !errors.Is(err, shared.ErrMainClassNotFound) {
			t.Errorf("expected ErrMainClassNotFound, got %v", err)
		}
	})

	t.Run("missing manifest", func(t *testing.T) {
		a := openZip(t, map[string]string{"a.class": ""})
		if _, err := a.MainClass(); !errors.Is(err, shared.ErrMainClassNotFound) {
			t.Errorf("expected ErrMainClassNotFound, got %v", err)
		}
	})
}

func TestSafeJoin(t *testing.T) {
	dest := t.TempDir()

	tests := []struct {
		name    string
		entry   string
		wantErr bool
	}{
		{"plain", "a/b.txt", false},
		{"dot segments inside", "a/../b.txt", false},
		{"escape", "../evil.txt", true},
		{"nested escape", "a/../../evil.txt", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SafeJoin(dest, tt.entry)
			if (err != nil) != tt.wantErr {
				t.Errorf("SafeJoin(%q) error = %v, wantErr %v", tt.entry, err, tt.wantErr)
			}
		})
	}
}
