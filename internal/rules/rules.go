package rules

import (
	"encoding/json"
	"fmt"
	"regexp"
	"runtime"
	"strings"
	"sync"
)

// Action is the effect of a matching rule.
type Action string

const (
	Allow    Action = "allow"
	Disallow Action = "disallow"
)

// Side is the install side a rule or artifact applies to.
type Side string

const (
	Client Side = "client"
	Server Side = "server"
	Common Side = "common"
)

// OSRule restricts a rule to an operating system, an optional version pattern and architecture.
type OSRule struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
	Arch    string `json:"arch,omitempty"`
}

// Rule is a single platform predicate from a version manifest.
type Rule struct {
	Action   Action          `json:"action"`
	OS       *OSRule         `json:"os,omitempty"`
	Side     Side            `json:"side,omitempty"`
	Features map[string]bool `json:"features,omitempty"`
}

// Platform describes the host a rule is evaluated against.
type Platform struct {
	OS       string          // manifest spelling: windows, osx, linux
	Arch     string          // manifest spelling: x86, x86_64, arm64, arm32
	Version  string          // kernel or OS release string
	Side     Side            // empty means any side
	Features map[string]bool // launcher feature flags, all false when nil
}

var (
	currentOnce sync.Once
	current     Platform
)

// Current returns the host platform with no install side set.
func Current() Platform {
	currentOnce.Do(func() {
		current = Platform{
			OS:      OSName(runtime.GOOS),
			Arch:    ArchName(runtime.GOARCH),
			Version: osVersion(),
		}
	})
	return current
}

// WithSide returns a copy of p restricted to side.
func (p Platform) WithSide(side Side) Platform {
	p.Side = side
	return p
}

// Is64Bit reports whether the platform architecture is 64-bit.
func (p Platform) Is64Bit() bool {
	switch p.Arch {
	case "x86", "arm32":
		return false
	default:
		return true
	}
}

// OSName maps a GOOS value to the name used by version manifests.
func OSName(goos string) string {
	switch goos {
	case "darwin":
		return "osx"
	case "windows":
		return "windows"
	default:
		return goos
	}
}

// ArchName maps a GOARCH value to the name used by version manifests.
func ArchName(goarch string) string {
	switch goarch {
	case "386":
		return "x86"
	case "amd64":
		return "x86_64"
	case "arm":
		return "arm32"
	default:
		return goarch
	}
}

// normalizeArch folds the aliases found across manifest revisions.
func normalizeArch(arch string) string {
	switch strings.ToLower(arch) {
	case "x64", "amd64", "x86_64":
		return "x86_64"
	case "i386", "386", "x86":
		return "x86"
	case "aarch64", "arm64":
		return "arm64"
	default:
		return strings.ToLower(arch)
	}
}

var (
	patternMu    sync.Mutex
	patternCache = map[string]*regexp.Regexp{}
)

func compile(pattern string) (*regexp.Regexp, error) {
	patternMu.Lock()
	defer patternMu.Unlock()

	if re, ok := patternCache[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid os version pattern %q: %w", pattern, err)
	}
	patternCache[pattern] = re
	return re, nil
}

// matches reports whether every condition of the rule holds on p, ignoring the action.
func (r Rule) matches(p Platform) bool {
	for name, want := range r.Features {
		if p.Features[name] != want {
			return false
		}
	}

	if r.OS != nil {
		if r.OS.Name != "" && r.OS.Name != p.OS {
			return false
		}
		if r.OS.Version != "" {
			re, err := compile(r.OS.Version)
			if err != nil || !re.MatchString(p.Version) {
				return false
			}
		}
		if r.OS.Arch != "" && normalizeArch(r.OS.Arch) != normalizeArch(p.Arch) {
			return false
		}
	}

	if r.Side != "" && p.Side != "" && r.Side != p.Side {
		return false
	}
	return true
}

// Evaluate returns the rule's verdict on p.
func (r Rule) Evaluate(p Platform) bool {
	switch r.Action {
	case Allow:
		return r.matches(p)
	case Disallow:
		return !r.matches(p)
	default:
		return false
	}
}

// Valid reports whether every rule in list holds on p. An empty list is valid.
func Valid(list []Rule, p Platform) bool {
	for _, r := range list {
		if !r.Evaluate(p) {
			return false
		}
	}
	return true
}

// Argument is a launch argument entry: either a plain string or a value gated by rules.
type Argument struct {
	Rules  []Rule
	Values []string
}

// UnmarshalJSON accepts "arg", {"rules": [...], "value": "arg"} and {"rules": [...], "value": ["a", "b"]}.
func (a *Argument) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		a.Values = []string{plain}
		a.Rules = nil
		return nil
	}

	var gated struct {
		Rules []Rule          `json:"rules"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &gated); err != nil {
		return fmt.Errorf("invalid argument entry: %w", err)
	}
	a.Rules = gated.Rules

	var single string
	if err := json.Unmarshal(gated.Value, &single); err == nil {
		a.Values = []string{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(gated.Value, &many); err != nil {
		return fmt.Errorf("invalid argument value: %w", err)
	}
	a.Values = many
	return nil
}

// MarshalJSON writes plain arguments back as strings.
func (a Argument) MarshalJSON() ([]byte, error) {
	if len(a.Rules) == 0 && len(a.Values) == 1 {
		return json.Marshal(a.Values[0])
	}
	return json.Marshal(struct {
		Rules []Rule   `json:"rules,omitempty"`
		Value []string `json:"value"`
	}{a.Rules, a.Values})
}

// Plain wraps literal strings as ungated arguments.
func Plain(values ...string) []Argument {
	out := make([]Argument, 0, len(values))
	for _, v := range values {
		out = append(out, Argument{Values: []string{v}})
	}
	return out
}

// Flatten expands the arguments whose rules hold on p, preserving order.
func Flatten(args []Argument, p Platform) []string {
	var out []string
	for _, a := range args {
		if !Valid(a.Rules, p) {
			continue
		}
		out = append(out, a.Values...)
	}
	return out
}
