package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mcx/internal/download"
	"github.com/desertthunder/mcx/internal/forge"
	"github.com/desertthunder/mcx/internal/launch"
	"github.com/desertthunder/mcx/internal/models"
	"github.com/desertthunder/mcx/internal/mods"
	"github.com/desertthunder/mcx/internal/resolver"
	"github.com/desertthunder/mcx/internal/rules"
	"github.com/desertthunder/mcx/internal/shared"
	"github.com/desertthunder/mcx/internal/tasks"
	tu "github.com/desertthunder/mcx/internal/testing"
)

const javaScript = "#!/bin/sh\nfor a in \"$@\"; do echo \"$a\"; done > args.txt\nexit 7\n"

type fakeHistory struct {
	mu      sync.Mutex
	started []string
	exits   []int
}

func (h *fakeHistory) Started(ctx context.Context, instanceID, version string, pid int) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.started = append(h.started, version)
	return fmt.Sprintf("launch-%d", len(h.started)), nil
}

func (h *fakeHistory) Exited(ctx context.Context, id string, code int, err error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exits = append(h.exits, code)
	return nil
}

type fixture struct {
	root     string
	fs       *tu.FileServer
	bus      *tasks.Bus
	history  *fakeHistory
	pipeline *Pipeline
	account  *tu.MockProvider
}

// newFixture serves a vanilla 1.20.1 version with one library, one asset and a java runtime.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	fs := tu.NewFileServer(t)
	root := t.TempDir()
	logger := log.New(io.Discard)

	java := []byte(javaScript)
	javaURL := fs.Put("/java/files/java", java)
	rel, _ := filepath.Rel("/r", resolver.JavaExecutable("/r", rules.Current().OS))
	fs.PutJSON(t, "/java/gamma.json", map[string]any{
		"files": map[string]any{
			filepath.ToSlash(rel): map[string]any{
				"type": "file", "executable": true,
				"downloads": map[string]any{"raw": map[string]any{"url": javaURL, "sha1": shared.HashBytes(java), "size": len(java)}},
			},
		},
	})
	runtimes := map[string]any{}
	for _, key := range resolver.RuntimeKeys(rules.Current()) {
		runtimes[key] = map[string]any{"java-runtime-gamma": []any{map[string]any{"manifest": map[string]any{"url": fs.URL + "/java/gamma.json"}}}}
	}
	fs.PutJSON(t, "/java/all.json", runtimes)

	client := []byte("client jar")
	clientURL := fs.Put("/v1/packages/client.jar", client)

	asset := []byte("icon")
	hash := shared.HashBytes(asset)
	fs.Put("/resources/"+hash[:2]+"/"+hash, asset)
	index := []byte(fmt.Sprintf(`{"objects":{"icons/icon.png":{"hash":%q,"size":%d}}}`, hash, len(asset)))
	indexURL := fs.Put("/v1/packages/5.json", index)

	lib := []byte("library")
	libURL := fs.Put("/maven/org/example/lib/1.0/lib-1.0.jar", lib)

	manifest := []byte(fmt.Sprintf(`{
		"id": "1.20.1",
		"type": "release",
		"mainClass": "net.minecraft.client.main.Main",
		"arguments": {
			"jvm": ["-Djava.library.path=${natives_directory}", "-cp", "${classpath}"],
			"game": ["--username", "${auth_player_name}", "--version", "${version_name}", "--accessToken", "${auth_access_token}",
				{"rules": [{"action": "allow", "features": {"is_demo_user": true}}], "value": "--demo"}]
		},
		"assetIndex": {"id": "5", "url": %q, "sha1": %q, "size": %d},
		"downloads": {"client": {"url": %q, "sha1": %q, "size": %d}},
		"javaVersion": {"component": "java-runtime-gamma", "majorVersion": 17},
		"libraries": [{"name": "org.example:lib:1.0", "downloads": {"artifact": {"path": "org/example/lib/1.0/lib-1.0.jar", "url": %q, "sha1": %q}}}]
	}`, indexURL, shared.HashBytes(index), len(index), clientURL, shared.HashBytes(client), len(client), libURL, shared.HashBytes(lib)))
	manifestURL := fs.Put("/v1/packages/1.20.1.json", manifest)
	fs.PutJSON(t, "/mc/game/version_manifest_v2.json", models.VersionList{
		Versions: []models.VersionRef{{ID: "1.20.1", Type: "release", URL: manifestURL, SHA1: shared.HashBytes(manifest)}},
	})

	bus := tasks.NewBus(1024)
	d := download.NewService(root, shared.DownloadConfig{Retries: 1}, logger)
	r := resolver.New(d, bus, logger).WithEndpoints(resolver.Endpoints{
		VersionList:  fs.URL + "/mc/game/version_manifest_v2.json",
		Libraries:    fs.URL + "/maven/",
		Resources:    fs.URL + "/resources",
		JavaRuntimes: fs.URL + "/java/all.json",
	})
	engine := mods.NewEngine(tu.NewMockCatalog(), d, bus, logger)
	account := &tu.MockProvider{Account: &models.Account{Username: "Steve", UUID: "uuid-1", AccessToken: "secret-token"}}
	history := &fakeHistory{}

	p := New(root, shared.LauncherConfig{Name: "mcx", Version: "test"}, r, forge.New(r, bus, logger), engine, account, bus, logger).
		WithHistory(history)
	return &fixture{root: root, fs: fs, bus: bus, history: history, pipeline: p, account: account}
}

// phases drains the stage updates published so far.
func (f *fixture) phases() []tasks.Phase {
	var out []tasks.Phase
	for {
		select {
		case u := <-f.bus.Updates():
			if u.Total > 0 && u.Data == nil {
				out = append(out, u.Phase)
			}
		default:
			return out
		}
	}
}

func TestInstall(t *testing.T) {
	t.Run("vanilla", func(t *testing.T) {
		f := newFixture(t)
		inst := models.NewInstance("Vanilla", "1.20.1")

		lc, err := f.pipeline.Install(context.Background(), inst)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []tasks.Phase{
			tasks.FetchManifest, tasks.FetchJava, tasks.FetchClient, tasks.FetchAssets,
			tasks.InstallLoader, tasks.InstallMods, tasks.FetchLibraries, tasks.FetchLogConfig,
		}
		if got := f.phases(); !slices.Equal(got, want) {
			t.Errorf("expected stages %v, got %v", want, got)
		}

		tu.AssertFileExists(t, lc.ClientJar)
		tu.AssertFileExists(t, lc.JavaPath)
		if !lc.Classpath.Contains(filepath.Join(f.root, "libraries", "org", "example", "lib", "1.0", "lib-1.0.jar")) {
			t.Errorf("expected library on classpath, got %v", lc.Classpath.Entries())
		}
		if lc.Loader != nil {
			t.Error("vanilla instance should have no loader manifest")
		}
		if n := f.fs.Hits("/v1/packages/client.jar"); n != 1 {
			t.Errorf("expected one client jar fetch, got %d", n)
		}

		if _, err := f.pipeline.Install(context.Background(), inst); err != nil {
			t.Fatalf("unexpected error on reinstall: %v", err)
		}
		if n := f.fs.Hits("/v1/packages/client.jar"); n != 1 {
			t.Errorf("expected reinstall to reuse the client jar, got %d fetches", n)
		}
	})

	t.Run("unsupported loader", func(t *testing.T) {
		f := newFixture(t)
		inst := models.NewInstance("Fabric", "1.20.1")
		inst.ModLoader = models.LoaderFabric

		if _, err := f.pipeline.Install(context.Background(), inst); !errors.Is(err, shared.ErrNotImplemented) {
			t.Errorf("expected ErrNotImplemented, got %v", err)
		}
	})

	t.Run("invalid instance", func(t *testing.T) {
		f := newFixture(t)
		inst := models.NewInstance("Broken", "")

		if _, err := f.pipeline.Install(context.Background(), inst); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if n := f.fs.Hits("/mc/game/version_manifest_v2.json"); n != 0 {
			t.Errorf("expected no network access, got %d", n)
		}
	})
}

func TestLaunch(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("launch test uses a shell script as java")
	}

	t.Run("vanilla", func(t *testing.T) {
		f := newFixture(t)
		inst := models.NewInstance("Vanilla", "1.20.1")

		events, err := f.pipeline.Launch(context.Background(), inst)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got []launch.GameEvent
		timeout := time.After(10 * time.Second)
	loop:
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					break loop
				}
				got = append(got, ev)
			case <-timeout:
				t.Fatal("timed out waiting for the game to exit")
			}
		}
		if len(got) != 2 || got[0].Kind != launch.GameLaunched || got[1].Kind != launch.GameExited {
			t.Fatalf("expected launched then exited, got %+v", got)
		}
		if got[1].ExitCode != 7 {
			t.Errorf("expected exit code 7, got %d", got[1].ExitCode)
		}

		phases := f.phases()
		if len(phases) == 0 || phases[len(phases)-1] != tasks.LaunchGame {
			t.Errorf("expected launch to be the last stage, got %v", phases)
		}

		args := strings.Split(strings.TrimSpace(tu.MustReadFile(t, filepath.Join(inst.Dir(f.root), "args.txt"))), "\n")
		main := slices.Index(args, "net.minecraft.client.main.Main")
		if main < 0 {
			t.Fatalf("main class missing from %v", args)
		}
		cp := slices.Index(args, "-cp")
		if cp < 0 || cp > main {
			t.Fatalf("expected -cp before the main class in %v", args)
		}
		classpath := filepath.SplitList(args[cp+1])
		if classpath[len(classpath)-1] != filepath.Join(f.root, "versions", "1.20.1", "1.20.1.jar") {
			t.Errorf("expected client jar last on classpath, got %v", classpath)
		}
		if i := slices.Index(args, "--username"); i < 0 || args[i+1] != "Steve" {
			t.Errorf("expected username to be substituted, got %v", args)
		}
		if slices.Contains(args, "--demo") {
			t.Error("feature-gated argument should be filtered")
		}
		for _, a := range args {
			if strings.Contains(a, "${") {
				t.Errorf("unsubstituted token in %q", a)
			}
		}

		f.history.mu.Lock()
		defer f.history.mu.Unlock()
		if !slices.Equal(f.history.started, []string{"1.20.1"}) || !slices.Equal(f.history.exits, []int{7}) {
			t.Errorf("unexpected history: started=%v exits=%v", f.history.started, f.history.exits)
		}
	})

	t.Run("account required", func(t *testing.T) {
		f := newFixture(t)
		f.account.Account = nil

		_, err := f.pipeline.Launch(context.Background(), models.NewInstance("Vanilla", "1.20.1"))
		if !errors.Is(err, shared.ErrAccountInvalid) {
			t.Errorf("expected ErrAccountInvalid, got %v", err)
		}
		if n := f.fs.Hits("/mc/game/version_manifest_v2.json"); n != 0 {
			t.Errorf("expected no stage to run, got %d manifest fetches", n)
		}
		if _, err := os.Stat(filepath.Join(f.root, "versions")); err == nil {
			t.Error("expected nothing to be installed")
		}
	})
}
