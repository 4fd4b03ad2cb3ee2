// Package resolver turns version manifests into download work: the client jar, libraries and natives,
// assets, the Java runtime and the log configuration.
package resolver

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mcx/internal/download"
	"github.com/desertthunder/mcx/internal/tasks"
)

// Mojang endpoints
const (
	VersionListURL  = "https://piston-meta.mojang.com/mc/game/version_manifest_v2.json"
	LibrariesURL    = "https://libraries.minecraft.net/"
	ResourcesURL    = "https://resources.download.minecraft.net"
	JavaRuntimesURL = "https://launchermeta.mojang.com/v1/products/java-runtime/2ec0cc96c44e5a76b9c8b7c39df7210883d12871/all.json"
)

// Endpoints are the remote locations the resolver reads from.
type Endpoints struct {
	VersionList  string
	Libraries    string
	Resources    string
	JavaRuntimes string
}

// DefaultEndpoints returns the Mojang endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		VersionList:  VersionListURL,
		Libraries:    LibrariesURL,
		Resources:    ResourcesURL,
		JavaRuntimes: JavaRuntimesURL,
	}
}

// Resolver queues and runs the downloads a version needs.
type Resolver struct {
	downloads *download.Service
	endpoints Endpoints
	bus       *tasks.Bus
	chunk     int
	logger    *log.Logger
}

// New creates a resolver downloading through d and publishing progress on bus.
func New(d *download.Service, bus *tasks.Bus, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{
		downloads: d,
		endpoints: DefaultEndpoints(),
		bus:       bus,
		chunk:     tasks.DefaultChunkSize,
		logger:    logger,
	}
}

// WithEndpoints overrides the remote locations.
func (r *Resolver) WithEndpoints(e Endpoints) *Resolver {
	r.endpoints = e
	return r
}

// WithChunkSize sets how many downloads run concurrently.
func (r *Resolver) WithChunkSize(n int) *Resolver {
	if n > 0 {
		r.chunk = n
	}
	return r
}

func (r *Resolver) Downloads() *download.Service { return r.downloads }
func (r *Resolver) Endpoints() Endpoints         { return r.endpoints }

// run drains work on a parallel runner forwarding to the resolver's bus.
func (r *Resolver) run(ctx context.Context, propagate bool, work []tasks.Task) error {
	if len(work) == 0 {
		return nil
	}

	opts := tasks.ParallelOptions(r.chunk)
	opts.PropagateError = propagate

	runner := tasks.NewRunner(r.bus.Child(), r.logger, opts)
	runner.Add(work...)
	return runner.Process(ctx)
}
