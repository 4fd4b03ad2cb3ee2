package resolver

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mcx/internal/download"
	"github.com/desertthunder/mcx/internal/launch"
	"github.com/desertthunder/mcx/internal/models"
	"github.com/desertthunder/mcx/internal/rules"
	"github.com/desertthunder/mcx/internal/shared"
	"github.com/desertthunder/mcx/internal/tasks"
	tu "github.com/desertthunder/mcx/internal/testing"
)

// fileServer serves fixed bodies by path and counts hits.
type fileServer struct {
	*httptest.Server
	mu    sync.Mutex
	files map[string][]byte
	hits  map[string]int
}

func newFileServer(t *testing.T) *fileServer {
	t.Helper()
	fs := &fileServer{files: map[string][]byte{}, hits: map[string]int{}}
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

func (fs *fileServer) put(path string, body []byte) string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.files[path] = body
	return fs.URL + path
}

func (fs *fileServer) putJSON(t *testing.T, path string, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return fs.put(path, data)
}

func (fs *fileServer) count(path string) int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.hits[path]
}

func zipBytes(t *testing.T, files map[string]string) []byte {
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

func newTestResolver(t *testing.T, fs *fileServer) (*Resolver, *launch.LaunchContext) {
	t.Helper()
	root := t.TempDir()
	logger := log.New(io.Discard)

	d := download.NewService(root, shared.DownloadConfig{Retries: 1}, logger)
	r := New(d, tasks.NewBus(64), logger).WithEndpoints(Endpoints{
		VersionList:  fs.URL + "/mc/game/version_manifest_v2.json",
		Libraries:    fs.URL + "/maven/",
		Resources:    fs.URL + "/resources",
		JavaRuntimes: fs.URL + "/java/all.json",
	})

	instance := models.NewInstance("test", "1.20.1")
	lc := launch.NewLaunchContext(root, instance, shared.LauncherConfig{Name: "mcx", Version: "test"})
	lc.Platform = rules.Platform{OS: "linux", Arch: "x86_64", Side: rules.Client}
	return r, lc
}

func TestManifest(t *testing.T) {
	fs := newFileServer(t)
	r, lc := newTestResolver(t, fs)

	manifest := models.VersionManifest{ID: "1.20.1", MainClass: "net.minecraft.client.main.Main"}
	data, _ := json.Marshal(manifest)
	url := fs.put("/v1/packages/1.20.1.json", data)

	fs.putJSON(t, "/mc/game/version_manifest_v2.json", models.VersionList{
		Versions: []models.VersionRef{
			{ID: "1.20.1", Type: "release", URL: url, SHA1: shared.HashBytes(data)},
		},
	})

	m, err := r.Manifest(context.Background(), lc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.MainClass != manifest.MainClass || lc.Base != m {
		t.Errorf("unexpected manifest %+v", m)
	}
	tu.AssertFileExists(t, ManifestPath(lc.Root, "1.20.1"))

	if _, err := r.Manifest(context.Background(), lc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fs.count("/mc/game/version_manifest_v2.json") != 1 {
		t.Error("expected stored manifest to be reused")
	}

	t.Run("unknown version", func(t *testing.T) {
		lc.Instance.Versions.Minecraft = "0.0.1"
		if _, err := r.Manifest(context.Background(), lc); !errors.Is(err, shared.ErrArtifactNotFound) {
			t.Errorf("expected ErrArtifactNotFound, got %v", err)
		}
	})
}

func TestClientJar(t *testing.T) {
	fs := newFileServer(t)
	r, lc := newTestResolver(t, fs)

	url := fs.put("/client.jar", []byte("client"))
	m := &models.VersionManifest{
		ID:        "1.20.1",
		Downloads: &models.VersionFiles{Client: &models.DownloadInfo{URL: url, SHA1: shared.HashBytes([]byte("client"))}},
	}

	if err := r.ClientJar(context.Background(), lc, m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := filepath.Join(lc.Root, "versions", "1.20.1", "1.20.1.jar")
	if lc.ClientJar != want {
		t.Errorf("expected %s, got %s", want, lc.ClientJar)
	}
	tu.AssertFileExists(t, want)

	lc.Instance.InstallSide = rules.Server
	lc.ClientJar = ""
	if err := r.ClientJar(context.Background(), lc, m); err != nil || lc.ClientJar != "" {
		t.Errorf("expected server instance to skip client jar, got %q (%v)", lc.ClientJar, err)
	}
}

func TestLibraryArtifact(t *testing.T) {
	t.Run("modern", func(t *testing.T) {
		lib := models.Library{
			Name: "com.mojang:brigadier:1.1.8",
			Downloads: &models.LibraryDownloads{Artifact: &models.DownloadInfo{
				Path: "com/mojang/brigadier/1.1.8/brigadier-1.1.8.jar",
				SHA1: "abc",
				URL:  "https://libraries.minecraft.net/com/mojang/brigadier/1.1.8/brigadier-1.1.8.jar",
			}},
		}
		a, err := LibraryArtifact(lib, LibrariesURL)
		if err != nil {
			t.Fatal(err)
		}
		if a.SubPath != "com/mojang/brigadier/1.1.8" || a.FileName() != "brigadier-1.1.8.jar" || a.SHA1 != "abc" {
			t.Errorf("unexpected artifact %+v", a)
		}
	})

	t.Run("legacy default repository", func(t *testing.T) {
		a, err := LibraryArtifact(models.Library{Name: "net.sf.jopt-simple:jopt-simple:5.0.3"}, LibrariesURL)
		if err != nil {
			t.Fatal(err)
		}
		want := "https://libraries.minecraft.net/net/sf/jopt-simple/jopt-simple/5.0.3/jopt-simple-5.0.3.jar"
		if a.URL != want {
			t.Errorf("expected %s, got %s", want, a.URL)
		}
	})

	t.Run("legacy custom repository", func(t *testing.T) {
		lib := models.Library{Name: "net.minecraftforge:forge:1.12.2-14.23.5.2860", URL: "https://maven.minecraftforge.net/"}
		a, err := LibraryArtifact(lib, LibrariesURL)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(a.URL, "https://maven.minecraftforge.net/net/minecraftforge/forge/") {
			t.Errorf("unexpected url %s", a.URL)
		}
	})

	t.Run("natives only", func(t *testing.T) {
		lib := models.Library{Name: "org.lwjgl.lwjgl:lwjgl-platform:2.9.4", Natives: map[string]string{"linux": "natives-linux"}}
		a, err := LibraryArtifact(lib, LibrariesURL)
		if err != nil || a != nil {
			t.Errorf("expected no main artifact, got %+v (%v)", a, err)
		}
	})
}

func TestNativeArtifact(t *testing.T) {
	lib := models.Library{
		Name:    "tv.twitch:twitch-platform:5.16",
		Natives: map[string]string{"windows": "natives-windows-${arch}", "linux": "natives-linux"},
	}

	a, err := NativeArtifact(lib, rules.Platform{OS: "windows", Arch: "x86"}, LibrariesURL)
	if err != nil {
		t.Fatal(err)
	}
	if a.FileName() != "twitch-platform-5.16-natives-windows-32.jar" {
		t.Errorf("unexpected file %s", a.FileName())
	}

	a, err = NativeArtifact(lib, rules.Platform{OS: "windows", Arch: "x86_64"}, LibrariesURL)
	if err != nil || a.FileName() != "twitch-platform-5.16-natives-windows-64.jar" {
		t.Errorf("unexpected artifact %+v (%v)", a, err)
	}

	a, err = NativeArtifact(lib, rules.Platform{OS: "osx", Arch: "arm64"}, LibrariesURL)
	if err != nil || a != nil {
		t.Errorf("expected no natives for osx, got %+v (%v)", a, err)
	}

	lib.Downloads = &models.LibraryDownloads{Classifiers: map[string]models.DownloadInfo{}}
	if _, err := NativeArtifact(lib, rules.Platform{OS: "linux"}, LibrariesURL); !errors.Is(err, shared.ErrArtifactNotFound) {
		t.Errorf("expected ErrArtifactNotFound, got %v", err)
	}
}

func TestSideAllowed(t *testing.T) {
	yes, no := true, false

	tests := []struct {
		name string
		lib  models.Library
		side rules.Side
		want bool
	}{
		{"no flags", models.Library{}, rules.Client, true},
		{"client required", models.Library{ClientReq: &yes}, rules.Client, true},
		{"client excluded", models.Library{ClientReq: &no, ServerReq: &yes}, rules.Client, false},
		{"server only flag on client", models.Library{ServerReq: &yes}, rules.Client, false},
		{"server required", models.Library{ServerReq: &yes}, rules.Server, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SideAllowed(tt.lib, tt.side); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestLibraries(t *testing.T) {
	fs := newFileServer(t)
	r, lc := newTestResolver(t, fs)

	jar := []byte("library")
	natives := zipBytes(t, map[string]string{
		"liblwjgl.so":          "so",
		"META-INF/MANIFEST.MF": "Manifest-Version: 1.0",
	})

	libURL := fs.put("/maven/org/example/lib/1.0/lib-1.0.jar", jar)
	nativeURL := fs.put("/maven/org/lwjgl/lwjgl/3.3.1/lwjgl-3.3.1-natives-linux.jar", natives)

	libs := []models.Library{
		{
			Name: "org.example:lib:1.0",
			Downloads: &models.LibraryDownloads{Artifact: &models.DownloadInfo{
				Path: "org/example/lib/1.0/lib-1.0.jar", URL: libURL, SHA1: shared.HashBytes(jar),
			}},
		},
		{
			Name: "org.example:lib:1.0",
			Downloads: &models.LibraryDownloads{Artifact: &models.DownloadInfo{
				Path: "org/example/lib/1.0/lib-1.0.jar", URL: libURL, SHA1: shared.HashBytes(jar),
			}},
		},
		{
			Name:  "org.example:mac-only:1.0",
			Rules: []rules.Rule{{Action: rules.Allow, OS: &rules.OSRule{Name: "osx"}}},
		},
		{
			Name: "net.minecraftforge:forge:1.20.1-47.2.0:universal",
			Downloads: &models.LibraryDownloads{Artifact: &models.DownloadInfo{
				Path: "net/minecraftforge/forge/1.20.1-47.2.0/forge-1.20.1-47.2.0-universal.jar",
			}},
		},
		{
			Name:    "org.lwjgl:lwjgl:3.3.1",
			Natives: map[string]string{"linux": "natives-linux"},
			Extract: &models.ExtractRule{Exclude: []string{"META-INF/"}},
			Downloads: &models.LibraryDownloads{Classifiers: map[string]models.DownloadInfo{
				"natives-linux": {
					Path: "org/lwjgl/lwjgl/3.3.1/lwjgl-3.3.1-natives-linux.jar",
					URL:  nativeURL,
					SHA1: shared.HashBytes(natives),
				},
			}},
		},
	}

	if err := r.Libraries(context.Background(), lc, libs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := lc.Classpath.Entries()
	want := []string{
		filepath.Join(lc.Root, "libraries", "org", "example", "lib", "1.0", "lib-1.0.jar"),
		filepath.Join(lc.Root, "libraries", "net", "minecraftforge", "forge", "1.20.1-47.2.0", "forge-1.20.1-47.2.0-universal.jar"),
	}
	if len(entries) != len(want) {
		t.Fatalf("expected classpath %v, got %v", want, entries)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("classpath[%d]: expected %s, got %s", i, want[i], entries[i])
		}
	}

	tu.AssertFileExists(t, want[0])
	tu.AssertFileExists(t, filepath.Join(lc.NativesDir, "liblwjgl.so"))
	if shared.FileExists(filepath.Join(lc.NativesDir, "META-INF")) {
		t.Error("expected META-INF to be excluded from natives")
	}
	if lc.NativesDir != NativesDir(lc.Root, "1.20.1") {
		t.Errorf("unexpected natives dir %s", lc.NativesDir)
	}
}

func TestAssetArtifact(t *testing.T) {
	obj := models.AssetObject{Hash: "bdf48ef6b5d0d23bbb02e17d04865216179f510a", Size: 10}

	a := AssetArtifact("minecraft/sounds/a.ogg", obj, false, ResourcesURL)
	if a.SubPath != "objects/bd" || a.FileName() != obj.Hash {
		t.Errorf("unexpected hashed layout %s/%s", a.SubPath, a.FileName())
	}
	if a.URL != ResourcesURL+"/bd/"+obj.Hash {
		t.Errorf("unexpected url %s", a.URL)
	}

	a = AssetArtifact("sounds/random/click.ogg", obj, true, ResourcesURL)
	if a.SubPath != "virtual/legacy/sounds/random" || a.FileName() != "click.ogg" {
		t.Errorf("unexpected legacy layout %s/%s", a.SubPath, a.FileName())
	}
}

func TestAssets(t *testing.T) {
	fs := newFileServer(t)
	r, lc := newTestResolver(t, fs)

	good := []byte("sound")
	goodHash := shared.HashBytes(good)
	fs.put("/resources/"+goodHash[:2]+"/"+goodHash, good)

	index := models.AssetIndex{Objects: map[string]models.AssetObject{
		"minecraft/sounds/good.ogg":    {Hash: goodHash, Size: int64(len(good))},
		"minecraft/sounds/missing.ogg": {Hash: "ffffffffffffffffffffffffffffffffffffffff", Size: 1},
	}}
	data, _ := json.Marshal(index)
	indexURL := fs.put("/indexes/5.json", data)

	m := &models.VersionManifest{
		ID:         "1.20.1",
		AssetIndex: &models.AssetIndexRef{ID: "5", URL: indexURL, SHA1: shared.HashBytes(data)},
	}

	if err := r.Assets(context.Background(), lc, m); err != nil {
		t.Fatalf("expected missing asset to fail alone, got %v", err)
	}
	tu.AssertFileExists(t, filepath.Join(lc.Root, "assets", "indexes", "5.json"))
	tu.AssertFileExists(t, filepath.Join(lc.Root, "assets", "objects", goodHash[:2], goodHash))
}

func TestJavaRuntime(t *testing.T) {
	t.Run("keys", func(t *testing.T) {
		tests := []struct {
			p    rules.Platform
			want string
		}{
			{rules.Platform{OS: "linux", Arch: "x86_64"}, "linux-x64"},
			{rules.Platform{OS: "linux", Arch: "x86"}, "linux-i386"},
			{rules.Platform{OS: "osx", Arch: "arm64"}, "mac-os-arm64"},
			{rules.Platform{OS: "windows", Arch: "x86"}, "windows-x86"},
		}
		for _, tt := range tests {
			if got := RuntimeKeys(tt.p)[0]; got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		}
	})

	t.Run("executable", func(t *testing.T) {
		if got := JavaExecutable("/r", "windows"); got != filepath.Join("/r", "bin", "javaw.exe") {
			t.Errorf("unexpected windows path %s", got)
		}
		if got := JavaExecutable("/r", "osx"); got != filepath.Join("/r", "jre.bundle", "Contents", "Home", "bin", "java") {
			t.Errorf("unexpected osx path %s", got)
		}
		if got := JavaExecutable("/r", "linux"); got != filepath.Join("/r", "bin", "java") {
			t.Errorf("unexpected linux path %s", got)
		}
	})

	t.Run("catalog lookup falls back to os", func(t *testing.T) {
		catalog := []byte(`{"linux":{"java-runtime-gamma":[{"manifest":{"url":"https://x/linux.json"}}]}}`)
		url, err := RuntimeManifestURL(catalog, "java-runtime-gamma", rules.Platform{OS: "linux", Arch: "x86_64"})
		if err != nil || url != "https://x/linux.json" {
			t.Errorf("unexpected url %q (%v)", url, err)
		}

		if _, err := RuntimeManifestURL(catalog, "jre-legacy", rules.Platform{OS: "linux"}); !errors.Is(err, shared.ErrJavaNotFound) {
			t.Errorf("expected ErrJavaNotFound, got %v", err)
		}
	})

	t.Run("downloads runtime", func(t *testing.T) {
		fs := newFileServer(t)
		r, lc := newTestResolver(t, fs)

		java := []byte("#!/bin/sh")
		javaURL := fs.put("/java/files/java", java)
		fs.putJSON(t, "/java/gamma.json", map[string]any{
			"files": map[string]any{
				"bin":      map[string]any{"type": "directory"},
				"bin/java": map[string]any{"type": "file", "executable": true, "downloads": map[string]any{"raw": map[string]any{"url": javaURL, "sha1": shared.HashBytes(java), "size": len(java)}}},
			},
		})
		fs.putJSON(t, "/java/all.json", map[string]any{
			"linux": map[string]any{"java-runtime-gamma": []any{map[string]any{"manifest": map[string]any{"url": fs.URL + "/java/gamma.json"}}}},
		})

		m := &models.VersionManifest{ID: "1.20.1", JavaVersion: &models.JavaVersionReq{Component: "java-runtime-gamma", MajorVersion: 17}}
		if err := r.Java(context.Background(), lc, m); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := filepath.Join(lc.Root, "runtimes", "java-runtime-gamma", "bin", "java")
		if lc.JavaPath != want {
			t.Errorf("expected %s, got %s", want, lc.JavaPath)
		}
		tu.AssertFileExists(t, want)
	})
}

func TestLogConfig(t *testing.T) {
	fs := newFileServer(t)
	r, lc := newTestResolver(t, fs)

	body := []byte("<Configuration/>")
	url := fs.put("/log/client-1.12.xml", body)
	m := &models.VersionManifest{Logging: &models.Logging{Client: &models.LoggingConfig{
		Argument: "-Dlog4j.configurationFile=${path}",
		File:     models.DownloadInfo{ID: "client-1.12.xml", URL: url, SHA1: shared.HashBytes(body)},
	}}}

	if err := r.LogConfig(context.Background(), lc, m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := filepath.Join(lc.Root, "assets", "log_configs", "client-1.12.xml")
	if lc.LoggingPath != want {
		t.Errorf("expected %s, got %s", want, lc.LoggingPath)
	}
}

func TestSortVersions(t *testing.T) {
	ids := []string{"1.8.9", "23w13a", "1.20.1", "1.20", "1.12.2"}
	SortVersions(ids)

	want := []string{"1.20.1", "1.20", "1.12.2", "1.8.9", "23w13a"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, ids)
		}
	}
}
