package download

import (
	"github.com/desertthunder/mcx/internal/models"
	"github.com/desertthunder/mcx/internal/rules"
	"github.com/desertthunder/mcx/internal/shared"
)

// Request pairs an artifact with the rules gating it and optional mirror base URLs.
type Request struct {
	Artifact *models.Artifact
	Rules    []rules.Rule
	Platform rules.Platform
	Mirrors  []string
}

// NewRequest creates a request for a, evaluated against the current host.
func NewRequest(a *models.Artifact, mirrors ...string) *Request {
	return &Request{Artifact: a, Platform: rules.Current(), Mirrors: mirrors}
}

// WithRules gates the request behind list evaluated on p.
func (r *Request) WithRules(list []rules.Rule, p rules.Platform) *Request {
	r.Rules = list
	r.Platform = p
	return r
}

// RulesValid reports whether the artifact applies to the request platform and side.
func (r *Request) RulesValid() bool {
	if !rules.Valid(r.Rules, r.Platform) {
		return false
	}
	side := r.Artifact.InstallSide
	if side == "" || side == rules.Common || r.Platform.Side == "" || r.Platform.Side == rules.Common {
		return true
	}
	return side == r.Platform.Side
}

// NeedDownload reports whether the file at dest must be fetched.
//
// With an expected hash the file is fetched unless its current hash matches. Without one only a
// missing file is fetched.
func (r *Request) NeedDownload(dest string) bool {
	a := r.Artifact
	if a.SHA1 == "" {
		return !shared.FileExists(dest)
	}
	return !a.Verified()
}
