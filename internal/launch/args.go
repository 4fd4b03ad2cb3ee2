package launch

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/desertthunder/mcx/internal/models"
	"github.com/desertthunder/mcx/internal/rules"
	"github.com/desertthunder/mcx/internal/shared"
)

// Default window size handed to versions that request a custom resolution.
const (
	DefaultWidth  = "854"
	DefaultHeight = "480"
)

var (
	// legacyJVMArgs precede the main class when a manifest has no structured arguments.
	legacyJVMArgs = []string{
		"-Djava.library.path=${natives_directory}",
		"-Djna.tmpdir=${natives_directory}",
		"-cp",
		"${classpath}",
	}

	brandArgs = []string{
		"-Dminecraft.launcher.brand=${launcher_name}",
		"-Dminecraft.launcher.version=${launcher_version}",
	}

	tokenPattern = regexp.MustCompile(`\$\{(\w+)\}`)
)

// ClasspathWithClient returns the classpath with the client jar appended last.
func (c *LaunchContext) ClasspathWithClient() string {
	entries := c.Classpath.Entries()
	if c.ClientJar != "" && !c.Classpath.Contains(c.ClientJar) {
		entries = append(entries, c.ClientJar)
	}
	return strings.Join(entries, string(os.PathListSeparator))
}

// Natives returns the natives directory, versions/<minecraft>/natives unless the resolver chose another.
func (c *LaunchContext) Natives() string {
	if c.NativesDir != "" {
		return c.NativesDir
	}
	return filepath.Join(c.VersionDir(c.Instance.Versions.Minecraft), "natives")
}

// Tokens returns the ${token} values substituted into launch arguments.
func Tokens(lc *LaunchContext, m *MergedManifest) map[string]string {
	t := map[string]string{
		"natives_directory":   lc.Natives(),
		"library_directory":   lc.LibrariesDir(),
		"launcher_name":       lc.Launcher.Name,
		"launcher_version":    lc.Launcher.Version,
		"version_name":        m.ID,
		"game_directory":      lc.GameDir(),
		"game_assets":         filepath.Join(lc.AssetsDir(), "virtual", "legacy"),
		"assets_root":         lc.AssetsDir(),
		"assets_index_name":   m.Assets,
		"user_type":           "msa",
		"version_type":        m.Type,
		"user_properties":     "{}",
		"classpath":           lc.ClasspathWithClient(),
		"classpath_separator": string(os.PathListSeparator),
		"path":                lc.LoggingPath,
		"clientid":            "",
		"auth_xuid":           "",
		"resolution_width":    DefaultWidth,
		"resolution_height":   DefaultHeight,
	}
	if a := lc.Account; a != nil {
		t["auth_player_name"] = a.Username
		t["auth_uuid"] = a.UUID
		t["auth_access_token"] = a.AccessToken
	}
	return t
}

// Substitute replaces every ${token} of s found in tokens. Unknown tokens are left as written.
func Substitute(s string, tokens map[string]string) string {
	return tokenPattern.ReplaceAllStringFunc(s, func(match string) string {
		if v, ok := tokens[match[2:len(match)-1]]; ok {
			return v
		}
		return match
	})
}

// BuildArgs assembles the game command line: JVM arguments, the main class, then game arguments.
//
// JVM arguments are, in order: the instance memory (-Xms/-Xmx), its additional JVM arguments, the
// manifest's JVM arguments (preceded by the logging argument when a log config was fetched, or the
// legacy defaults for manifests without structured arguments) and the launcher brand properties unless
// the manifest already declares them.
func BuildArgs(lc *LaunchContext, m *MergedManifest) ([]string, error) {
	if err := lc.Account.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAccountInvalid, err)
	}

	inst := lc.Instance
	var jvm, game []string
	if inst.Memory != "" {
		jvm = append(jvm, "-Xms"+inst.Memory, "-Xmx"+inst.Memory)
	}
	jvm = append(jvm, strings.Fields(inst.AdditionalJVMArgs)...)

	if m.Legacy() {
		jvm = append(jvm, legacyJVMArgs...)
		game = strings.Fields(m.MinecraftArguments)
	} else {
		if arg := loggingArgument(m.Logging); arg != "" && lc.LoggingPath != "" {
			jvm = append(jvm, arg)
		}
		jvm = append(jvm, rules.Flatten(m.JVM, lc.Platform)...)
		game = rules.Flatten(m.Game, lc.Platform)
	}
	for _, b := range brandArgs {
		if !slices.Contains(jvm, b) {
			jvm = append(jvm, b)
		}
	}

	args := make([]string, 0, len(jvm)+1+len(game))
	args = append(args, jvm...)
	args = append(args, m.MainClass)
	args = append(args, game...)

	tokens := Tokens(lc, m)
	for i, a := range args {
		args[i] = Substitute(a, tokens)
	}
	return args, nil
}

func loggingArgument(l *models.Logging) string {
	if l == nil || l.Client == nil {
		return ""
	}
	return l.Client.Argument
}

// Redact hides the access token in a command line meant for logs.
func Redact(args []string, account *models.Account) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if account != nil && account.AccessToken != "" {
			a = strings.ReplaceAll(a, account.AccessToken, "********")
		}
		out[i] = a
	}
	return out
}
