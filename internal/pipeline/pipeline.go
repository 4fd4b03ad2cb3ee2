// Package pipeline runs the staged install and launch flow of an instance.
//
// Stages run strictly in order because each one reads what the previous wrote to the per-launch
// [launch.LaunchContext]: manifest, java runtime, client jar, assets, mod loader, mods, libraries, log
// configuration and finally the game process. Downloads inside a stage run in parallel.
package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mcx/internal/auth"
	"github.com/desertthunder/mcx/internal/forge"
	"github.com/desertthunder/mcx/internal/launch"
	"github.com/desertthunder/mcx/internal/models"
	"github.com/desertthunder/mcx/internal/mods"
	"github.com/desertthunder/mcx/internal/resolver"
	"github.com/desertthunder/mcx/internal/shared"
	"github.com/desertthunder/mcx/internal/tasks"
)

// History records spawned games. [repositories.LaunchRepository] satisfies it.
type History interface {
	Started(ctx context.Context, instanceID, version string, pid int) (string, error)
	Exited(ctx context.Context, id string, code int, err error) error
}

// Pipeline wires the resolver, loader installer, mod engine and account provider into the launch flow.
type Pipeline struct {
	root     string
	launcher shared.LauncherConfig
	resolver *resolver.Resolver
	forge    *forge.Installer
	mods     *mods.Engine
	accounts auth.Provider
	history  History
	bus      *tasks.Bus
	output   io.Writer
	logger   *log.Logger
}

// New creates a pipeline. history and bus may be nil.
func New(root string, launcher shared.LauncherConfig, r *resolver.Resolver, f *forge.Installer, m *mods.Engine, accounts auth.Provider, bus *tasks.Bus, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{
		root:     root,
		launcher: launcher,
		resolver: r,
		forge:    f,
		mods:     m,
		accounts: accounts,
		bus:      bus,
		logger:   shared.WithLogger(logger, "component", "pipeline"),
	}
}

// WithHistory records every launch in h.
func (p *Pipeline) WithHistory(h History) *Pipeline {
	p.history = h
	return p
}

// WithOutput sends the game's stdout and stderr to w.
func (p *Pipeline) WithOutput(w io.Writer) *Pipeline {
	p.output = w
	return p
}

type stage struct {
	phase   tasks.Phase
	message string
	run     func(ctx context.Context, lc *launch.LaunchContext) error
}

func (p *Pipeline) stages() []stage {
	return []stage{
		{tasks.FetchManifest, "Fetching version manifest", func(ctx context.Context, lc *launch.LaunchContext) error {
			_, err := p.resolver.Manifest(ctx, lc)
			return err
		}},
		{tasks.FetchJava, "Checking java runtime", func(ctx context.Context, lc *launch.LaunchContext) error {
			return p.resolver.Java(ctx, lc, lc.Base)
		}},
		{tasks.FetchClient, "Fetching client jar", func(ctx context.Context, lc *launch.LaunchContext) error {
			return p.resolver.ClientJar(ctx, lc, lc.Base)
		}},
		{tasks.FetchAssets, "Fetching assets", func(ctx context.Context, lc *launch.LaunchContext) error {
			return p.resolver.Assets(ctx, lc, lc.Base)
		}},
		{tasks.InstallLoader, "Installing mod loader", p.installLoader},
		{tasks.InstallMods, "Syncing mods", func(ctx context.Context, lc *launch.LaunchContext) error {
			return p.mods.Sync(ctx, lc.Instance)
		}},
		{tasks.FetchLibraries, "Fetching libraries", func(ctx context.Context, lc *launch.LaunchContext) error {
			merged, err := launch.Merge(lc.Base, lc.Loader)
			if err != nil {
				return err
			}
			return p.resolver.Libraries(ctx, lc, merged.Libraries)
		}},
		{tasks.FetchLogConfig, "Fetching log configuration", func(ctx context.Context, lc *launch.LaunchContext) error {
			return p.resolver.LogConfig(ctx, lc, lc.Base)
		}},
	}
}

func (p *Pipeline) installLoader(ctx context.Context, lc *launch.LaunchContext) error {
	switch lc.Instance.ModLoader {
	case models.LoaderNone:
		return nil
	case models.LoaderForge:
		return p.forge.Install(ctx, lc)
	default:
		return fmt.Errorf("%w: %s loader", shared.ErrNotImplemented, lc.Instance.ModLoader)
	}
}

// Install runs every stage except spawning the game and returns the populated context.
func (p *Pipeline) Install(ctx context.Context, instance *models.InstanceSettings) (*launch.LaunchContext, error) {
	lc := launch.NewLaunchContext(p.root, instance, p.launcher)
	if err := p.install(ctx, lc, 0); err != nil {
		return lc, err
	}
	p.bus.PublishUpdate(tasks.DoneUpdate(fmt.Sprintf("Installed %s", instance.Title)))
	return lc, nil
}

// install runs the stages, numbering them after extra trailing steps.
func (p *Pipeline) install(ctx context.Context, lc *launch.LaunchContext, extra int) error {
	if err := lc.Instance.Validate(); err != nil {
		return err
	}

	stages := p.stages()
	total := len(stages) + extra
	logger := p.logger.With("instance", lc.Instance.ID)
	for i, s := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.bus.PublishUpdate(tasks.StageUpdate(s.phase, i+1, total, s.message))
		logger.Debug("Stage started", "phase", s.phase)
		if err := s.run(ctx, lc); err != nil {
			logger.Error("Stage failed", "phase", s.phase, "error", err)
			return fmt.Errorf("%s: %w", s.phase, err)
		}
	}
	return nil
}

// Launch resolves the account, installs the instance and spawns the game.
//
// The returned channel carries the game's lifecycle events and closes after [launch.GameExited].
func (p *Pipeline) Launch(ctx context.Context, instance *models.InstanceSettings) (<-chan launch.GameEvent, error) {
	account, err := p.accounts.GetProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAccountInvalid, err)
	}

	lc := launch.NewLaunchContext(p.root, instance, p.launcher)
	lc.Account = account
	if err := p.install(ctx, lc, 1); err != nil {
		return nil, err
	}

	merged, err := launch.Merge(lc.Base, lc.Loader)
	if err != nil {
		return nil, err
	}
	args, err := launch.BuildArgs(lc, merged)
	if err != nil {
		return nil, err
	}

	total := len(p.stages()) + 1
	p.bus.PublishUpdate(tasks.StageUpdate(tasks.LaunchGame, total, total, "Launching "+merged.ID))
	events, err := launch.Spawn(lc, args, p.output, p.logger)
	if err != nil {
		return nil, err
	}

	out := make(chan launch.GameEvent, 2)
	go p.track(ctx, instance, merged.ID, events, out)
	return out, nil
}

// track forwards game events to out and records them in the history.
func (p *Pipeline) track(ctx context.Context, instance *models.InstanceSettings, version string, in <-chan launch.GameEvent, out chan<- launch.GameEvent) {
	defer close(out)
	ctx = context.WithoutCancel(ctx)

	var launchID string
	for ev := range in {
		switch ev.Kind {
		case launch.GameLaunched:
			if p.history != nil {
				id, err := p.history.Started(ctx, instance.ID, version, ev.PID)
				if err != nil {
					p.logger.Warn("Failed to record launch", "error", err)
				}
				launchID = id
			}
		case launch.GameExited:
			if p.history != nil && launchID != "" {
				if err := p.history.Exited(ctx, launchID, ev.ExitCode, ev.Err); err != nil {
					p.logger.Warn("Failed to record exit", "error", err)
				}
			}
			p.bus.PublishUpdate(tasks.DoneUpdate(fmt.Sprintf("%s exited with code %d", instance.Title, ev.ExitCode)))
		}
		out <- ev
	}
}
