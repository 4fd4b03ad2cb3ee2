package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mcx/internal/auth"
	"github.com/desertthunder/mcx/internal/catalog"
	"github.com/desertthunder/mcx/internal/download"
	"github.com/desertthunder/mcx/internal/forge"
	"github.com/desertthunder/mcx/internal/instances"
	"github.com/desertthunder/mcx/internal/mods"
	"github.com/desertthunder/mcx/internal/pipeline"
	"github.com/desertthunder/mcx/internal/repositories"
	"github.com/desertthunder/mcx/internal/resolver"
	"github.com/desertthunder/mcx/internal/shared"
	"github.com/desertthunder/mcx/internal/tasks"
)

// SessionManager stores and serves the signed-in player. [auth.KeyringProvider] satisfies it.
type SessionManager interface {
	auth.Provider
	Login(s *auth.Session) error
	Logout() error
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database and the services built on the download layer are created on first use so commands
// that only read instance files never touch them.
type Runner struct {
	config     *shared.Config
	configPath string
	catalog    catalog.Catalog
	sessions   SessionManager
	endpoints  *resolver.Endpoints
	logger     *log.Logger
	output     io.Writer
	bus        *tasks.Bus

	once      sync.Once
	db        *sql.DB
	dbErr     error
	downloads *download.Service
	engine    *mods.Engine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Catalog    catalog.Catalog
	Sessions   SessionManager
	Endpoints  *resolver.Endpoints
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Catalog == nil {
		opts.Catalog = catalog.NewCurseForge(opts.Config.Catalog.CurseForge, opts.Logger)
	}
	if opts.Sessions == nil {
		store := auth.NewKeyringStore(opts.Config.Auth.KeyringService)
		opts.Sessions = auth.NewKeyringProvider(opts.Config.Auth, store, opts.Logger)
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		catalog:    opts.Catalog,
		sessions:   opts.Sessions,
		endpoints:  opts.Endpoints,
		logger:     opts.Logger,
		output:     opts.Output,
		bus:        tasks.NewBus(256),
	}
}

// SetLogger replaces the logger of the runner and the services it builds afterwards.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, instanceCommand, installCommand, launchCommand, modCommand, modpackCommand,
		versionsCommand, authCommand, cacheCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) root() string {
	return r.config.RootDir()
}

func (r *Runner) store() *instances.Store {
	return instances.NewStore(r.root(), r.logger)
}

// database opens the configured database once. A failure is logged and leaves the cache index off.
func (r *Runner) database() (*sql.DB, error) {
	r.once.Do(func() {
		r.db, r.dbErr = shared.OpenDatabase(r.config.Database)
		if r.dbErr != nil {
			r.logger.Warn("Database unavailable, cache index disabled", "error", r.dbErr)
		}
	})
	return r.db, r.dbErr
}

// Close releases the database, flushing pending ledger writes first.
func (r *Runner) Close() error {
	if r.engine != nil {
		if err := r.engine.Flush(); err != nil {
			r.logger.Error("Failed to flush mod ledgers", "error", err)
		}
	}
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Runner) downloadService() *download.Service {
	if r.downloads != nil {
		return r.downloads
	}
	r.downloads = download.NewService(r.root(), r.config.Download, shared.WithLogger(r.logger, "component", "download"))
	if db, err := r.database(); err == nil {
		r.downloads.WithIndex(repositories.NewBlobRepository(db))
	}
	return r.downloads
}

func (r *Runner) resolver() *resolver.Resolver {
	res := resolver.New(r.downloadService(), r.bus, shared.WithLogger(r.logger, "component", "resolver")).
		WithChunkSize(r.config.Download.ParallelChunk)
	if r.endpoints != nil {
		res.WithEndpoints(*r.endpoints)
	}
	return res
}

func (r *Runner) modEngine() *mods.Engine {
	if r.engine == nil {
		r.engine = mods.NewEngine(r.catalog, r.downloadService(), r.bus, r.logger).
			WithChunkSize(r.config.Download.ParallelChunk)
	}
	return r.engine
}

func (r *Runner) pipeline() *pipeline.Pipeline {
	res := r.resolver()
	installer := forge.New(res, r.bus, r.logger)
	p := pipeline.New(r.root(), r.config.Launcher, res, installer, r.modEngine(), r.sessions, r.bus, r.logger)
	if db, err := r.database(); err == nil {
		p.WithHistory(repositories.NewLaunchRepository(db))
	}
	return p
}

// followProgress prints stage updates until stop is closed.
func (r *Runner) followProgress(stop <-chan struct{}) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			case u := <-r.bus.Updates():
				if u.Data == nil && u.Total > 0 {
					r.writePlain("[%d/%d] %s\n", u.Step, u.Total, u.Message)
				}
			}
		}
	}()
	return done
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
