// Package cli implements the photoaffix command-line interface.
//
// The CLI is built with cobra and logs through charmbracelet/log. Commands
// share one CLI value that carries the logger and the persistent flags.
//
// # Commands
//
//   - affix: stack photos into one image
//   - plan: print the layout an affix run would use
//   - inspect: print the display bounds of photos
//   - scan: list the photos in a directory, newest first
//   - cache: manage the bounds cache
//   - completion: generate shell completion scripts
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/photoaffix/pkg/budget"
	"github.com/matzehuels/photoaffix/pkg/buildinfo"
	"github.com/matzehuels/photoaffix/pkg/cache"
	"github.com/matzehuels/photoaffix/pkg/config"
	"github.com/matzehuels/photoaffix/pkg/observability"
	"github.com/matzehuels/photoaffix/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "photoaffix"

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

	// Persistent flags.
	configPath string
	noCache    bool
	memory     string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level. At debug level the pipeline hooks
// are routed to the logger as well.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
	if level <= log.DebugLevel {
		hooks := observability.NewLogHooks(c.Logger)
		observability.SetAffixHooks(hooks)
		observability.SetCacheHooks(hooks)
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Photoaffix stacks photos into a single image",
		Long:          `Photoaffix stacks two or more photos vertically or horizontally into one image, scaling the result down when it would not fit in memory.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/photoaffix/config.toml)")
	flags.BoolVar(&c.noCache, "no-cache", false, "disable the bounds cache")
	flags.StringVar(&c.memory, "memory", "", "memory ceiling, e.g. 512MiB (default: runtime limit)")

	root.AddCommand(c.affixCommand())
	root.AddCommand(c.planCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.scanCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

// loadConfig reads the config file named by --config, or the default one,
// and applies --memory on top.
func (c *CLI) loadConfig() (*config.Config, error) {
	path := c.configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			c.Logger.Debug("no config directory", "err", err)
			return c.withFlags(config.Default())
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("config loaded", "path", path)
	return c.withFlags(cfg)
}

func (c *CLI) withFlags(cfg *config.Config) (*config.Config, error) {
	if c.memory != "" {
		cfg.MemoryCeiling = c.memory
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(cfg *config.Config) (*pipeline.Runner, error) {
	store, err := newCache(c.noCache)
	if err != nil {
		return nil, err
	}
	runner := pipeline.NewRunner(store, cache.NewScopedKeyer(cache.NewDefaultKeyer(), buildinfo.CacheScope()), c.Logger)
	est, err := cfg.Estimator()
	if err != nil {
		runner.Close()
		return nil, err
	}
	runner.Estimator = est
	return runner, nil
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// ceiling returns the hard cap for the composition ledger.
func ceiling(cfg *config.Config) int64 {
	n, err := cfg.Ceiling()
	if err != nil || n <= 0 {
		return budget.Unlimited
	}
	return n
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/photoaffix/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
