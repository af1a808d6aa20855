package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/i18nsync/internal/config"
	"github.com/standardbeagle/i18nsync/internal/debug"
	"github.com/standardbeagle/i18nsync/internal/indexing"
	"github.com/standardbeagle/i18nsync/internal/mcp"
	"github.com/standardbeagle/i18nsync/internal/version"
)

var Version = version.Version

// loadConfigWithOverrides loads configuration and applies CLI flag overrides
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	root := c.String("root")
	if root == "" {
		// Walk up to the nearest project; fall back to the working directory
		if detected, marker, err := indexing.GetProjectRoot(""); err == nil {
			debug.LogIndex("project root %s (found %s)\n", detected, marker)
			root = detected
		}
	} else {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve root path %q: %w", root, err)
		}
		root = absRoot
	}

	cfg, err := config.LoadWithRoot(c.String("config"), root)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if dir := c.String("dir"); dir != "" {
		cfg.Translations.Dir = dir
	}
	if lang := c.String("base-language"); lang != "" {
		cfg.Translations.BaseLanguage = lang
	}
	if c.Bool("no-watch") {
		cfg.Watch.Enabled = false
	}
	if c.Bool("no-auto-sync") {
		cfg.AutoSync.Enabled = false
	}
	if c.IsSet("debounce") {
		cfg.AutoSync.DebounceMs = c.Int("debounce")
	}
	if c.IsSet("metrics-addr") {
		cfg.Metrics.Addr = c.String("metrics-addr")
	}

	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newApp() *cli.App {
	return &cli.App{
		Name:                   "i18nsync",
		Usage:                  "In-memory translation index kept in sync with JSON language files",
		Version:                Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path (.kdl or .toml); default: .i18nsync.kdl or .i18nsync.toml in the project root",
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root directory (default: detected from the working directory)",
			},
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Translations directory, relative to the project root (overrides config)",
				EnvVars: []string{config.EnvDir},
			},
			&cli.StringFlag{
				Name:    "base-language",
				Aliases: []string{"b"},
				Usage:   "Reference language for validation",
				EnvVars: []string{config.EnvBaseLanguage},
			},
			&cli.BoolFlag{
				Name:  "no-watch",
				Usage: "Do not watch the translations directory for changes",
			},
			&cli.BoolFlag{
				Name:  "no-auto-sync",
				Usage: "Do not write in-memory changes back to the language files",
			},
			&cli.IntFlag{
				Name:  "debounce",
				Usage: "Auto-sync delay in milliseconds",
				Value: config.DefaultSyncDebounceMs,
			},
			&cli.StringFlag{
				Name:  "debug",
				Usage: "Trace components (all, or a list like watch,sync); mcp traces go to a temp log file",
			},
			&cli.StringFlag{
				Name:    "metrics-addr",
				Usage:   "Serve Prometheus metrics on this address (e.g. :9464)",
				EnvVars: []string{config.EnvMetricsAddr},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "mcp",
				Usage:  "Start MCP (Model Context Protocol) server with stdio transport",
				Action: mcpCommand,
			},
			{
				Name:      "get",
				Aliases:   []string{"g"},
				Usage:     "Print a key's translations",
				ArgsUsage: "<key>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "lang",
						Aliases: []string{"l"},
						Usage:   "Only this language",
					},
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output as JSON",
					},
				},
				Action: getCommand,
			},
			{
				Name:      "search",
				Aliases:   []string{"s"},
				Usage:     "Search keys and values",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "scope",
						Usage: "keys, values or both",
						Value: "both",
					},
					&cli.StringSliceFlag{
						Name:    "lang",
						Aliases: []string{"l"},
						Usage:   "Only match values in these languages",
					},
					&cli.IntFlag{
						Name:    "max",
						Aliases: []string{"n"},
						Usage:   "Max number of results",
						Value:   config.DefaultMaxResults,
					},
					&cli.BoolFlag{
						Name:    "case-sensitive",
						Aliases: []string{"s"},
						Usage:   "Match case exactly",
					},
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output as JSON",
					},
				},
				Action: searchCommand,
			},
			{
				Name:  "validate",
				Usage: "Compare every language against the base language",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "base",
						Usage: "Base language (default: configured base language)",
					},
					&cli.BoolFlag{
						Name:  "fix",
						Usage: "Add missing keys with [MISSING: ...] placeholders and write the files",
					},
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output as JSON",
					},
				},
				Action: validateCommand,
			},
			{
				Name:    "stats",
				Aliases: []string{"st"},
				Usage:   "Show index statistics",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output as JSON",
					},
				},
				Action: statsCommand,
			},
			{
				Name:  "keys",
				Usage: "List key paths",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "prefix",
						Aliases: []string{"p"},
						Usage:   "Only keys starting with this prefix",
					},
				},
				Action: keysCommand,
			},
		},
		Before: setupDebug,
		After: func(c *cli.Context) error {
			return debug.CloseDebugLog()
		},
		Action: mcpCommand,
	}
}

// setupDebug routes trace output: stderr for one-shot commands, a log file for
// the MCP server whose stdout is the transport
func setupDebug(c *cli.Context) error {
	if spec := c.String("debug"); spec != "" {
		debug.Enable(spec)
	} else if os.Getenv(debug.EnvDebug) == "" && os.Getenv("DEBUG") == "" && debug.EnableDebug != "true" {
		return nil
	}

	if cmd := c.Args().First(); cmd == "" || cmd == "mcp" {
		path, err := debug.InitDebugLogFile()
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.ErrWriter, "debug log: %s\n", path)
		return nil
	}
	debug.SetDebugOutput(c.App.ErrWriter)
	return nil
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func mcpCommand(c *cli.Context) error {
	// stdout is the transport; trace output may only go to a log file
	debug.SetMCPMode(true)

	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return debug.Fatal("failed to load config: %v\n", err)
	}

	server, err := mcp.NewServer(nil, cfg)
	if err != nil {
		return debug.Fatal("failed to create MCP server: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	debug.LogMCP("Starting MCP server with stdio transport...\n")
	runErr := server.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		debug.LogMCP("Shutdown error: %v\n", err)
	}

	if runErr != nil && ctx.Err() == nil {
		return debug.Fatal("MCP server error: %v\n", runErr)
	}
	return nil
}
