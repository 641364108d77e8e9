// Package cli implements the skillindex command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"runtime/debug"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/matzehuels/skillindex/pkg/buildinfo"
	"github.com/matzehuels/skillindex/pkg/cache"
	"github.com/matzehuels/skillindex/pkg/config"
	"github.com/matzehuels/skillindex/pkg/discover"
	"github.com/matzehuels/skillindex/pkg/errors"
	"github.com/matzehuels/skillindex/pkg/integrations/github"
	"github.com/matzehuels/skillindex/pkg/observability"
	"github.com/matzehuels/skillindex/pkg/pipeline"
	"github.com/matzehuels/skillindex/pkg/skill"
	"github.com/matzehuels/skillindex/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "skillindex"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	env config.Env
	out io.Writer
}

// New creates a new CLI instance with a default logger reading the process
// environment.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		env:    config.OSEnv{},
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "skillindex discovers, validates and indexes agent skill packages on GitHub",
		Long: `skillindex searches GitHub for agent skill packages (repositories or
directories carrying a SKILL.md descriptor), validates them, scores them and
synchronizes the results into a persistent index.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			observability.NewLogging(c.Logger).Register()
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.runCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.publishersCommand())
	root.AddCommand(c.dbCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// Execute runs root. A panic becomes a generic internal error; the stack is
// logged under the correlation id the error carries.
func (c *CLI) Execute(ctx context.Context, root *cobra.Command) (err error) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		id := uuid.NewString()
		c.Logger.Error("panic", "correlation_id", id, "panic", rec, "stack", string(debug.Stack()))
		err = errors.New(errors.ErrCodeInternal, "internal error (correlation_id=%s)", id)
	}()
	return root.ExecuteContext(ctx)
}

// stdout returns the writer for command results.
func (c *CLI) stdout(cmd *cobra.Command) io.Writer {
	if c.out != nil {
		return c.out
	}
	return cmd.OutOrStdout()
}

// =============================================================================
// Dependency Wiring
// =============================================================================

// depOptions selects what a command needs from the environment.
type depOptions struct {
	noCache    bool
	publishers string // explicit publisher file, overrides SKILLINDEX_PUBLISHERS
	store      bool
}

// deps holds the collaborators of one command invocation.
type deps struct {
	cfg        *config.Config
	cache      cache.Cache
	github     *github.Client
	store      store.Store
	publishers []skill.Publisher
}

// Close releases the store and the cache.
func (d *deps) Close() {
	if d.store != nil {
		d.store.Close()
	}
	if d.cache != nil {
		d.cache.Close()
	}
}

// openDeps loads the configuration and builds the gateway, cache, store and
// publisher list.
func (c *CLI) openDeps(ctx context.Context, opts depOptions) (*deps, error) {
	cfg, err := config.Load(c.env)
	if err != nil {
		return nil, err
	}
	d := &deps{cfg: cfg}

	d.cache, err = c.newCache(ctx, cfg, opts.noCache)
	if err != nil {
		return nil, err
	}

	creds := github.NewCredentialManager(cfg.Credentials(c.Logger))
	ghOpts := cfg.GitHubOptions()
	ghOpts.Credentials = creds
	ghOpts.Cache = d.cache
	d.github = github.NewClient(ghOpts)
	c.Logger.Debug("github credentials", "mode", creds.Mode())

	path := opts.publishers
	if path == "" {
		path = cfg.PublishersPath
	}
	pubs, source, err := discover.LoadPublishers(path)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.publishers = pubs
	c.Logger.Debug("publishers loaded", "count", len(pubs), "source", source)

	if opts.store {
		if cfg.DatabaseURL == "" {
			c.Logger.Warn("DATABASE_URL not set, using an in-memory store")
		}
		d.store, err = store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("open store %s: %w", store.Redact(cfg.DatabaseURL), err)
		}
	}
	return d, nil
}

// runner builds a pipeline runner from the wired dependencies.
func (c *CLI) runner(d *deps, batchSize int) *pipeline.Runner {
	r := pipeline.NewRunner(d.github, d.store, d.publishers, d.cfg.ScoringFormula, c.Logger)
	r.BatchSize = batchSize
	return r
}

// newCache returns the repository metadata cache: none when disabled, redis
// when REDIS_URL is set, the XDG cache directory otherwise.
func (c *CLI) newCache(ctx context.Context, cfg *config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return rc, nil
	}
	fc, err := cache.NewFileCache(cacheDir())
	if err != nil {
		c.Logger.Warn("file cache unavailable", "err", err)
		return cache.NewNullCache(), nil
	}
	return fc, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using the XDG base directory
// (~/.cache/skillindex/ on Linux).
func cacheDir() string {
	return filepath.Join(xdg.CacheHome, appName)
}
