package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/dshills/questionbank/internal/config"
	"github.com/dshills/questionbank/internal/logging"
	"github.com/dshills/questionbank/internal/manager"
	"github.com/dshills/questionbank/internal/mcp"
	"github.com/dshills/questionbank/internal/storage"
	"github.com/dshills/questionbank/pkg/types"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "questionbank",
		Usage:   "Question bank content storage",
		Version: fmt.Sprintf("%s (built %s, %s build, driver %s)", version, buildTime, storage.BuildMode, storage.DriverName),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{"QBANK_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "storage",
				Usage: "Storage backend (file, database)",
			},
			&cli.StringFlag{
				Name:  "data-path",
				Usage: "Directory holding the file backend document",
			},
			&cli.StringFlag{
				Name:  "dsn",
				Usage: "Database DSN for the database backend",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the question bank as MCP tools on stdio",
				Action: serveCommand,
			},
			{
				Name:   "migrate",
				Usage:  "Copy file backend content into the database backend",
				Action: migrateCommand,
			},
			{
				Name:   "sync",
				Usage:  "Check backend health, drop cached reads and print statistics",
				Action: syncCommand,
			},
			{
				Name:   "stats",
				Usage:  "Print content statistics",
				Action: statsCommand,
			},
			{
				Name:   "health",
				Usage:  "Print the backend health report",
				Action: healthCommand,
			},
			{
				Name:   "export",
				Usage:  "Export all content as a JSON document",
				Action: exportCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file (defaults to stdout)",
					},
				},
			},
			{
				Name:      "import",
				Usage:     "Replace all content with a JSON document",
				ArgsUsage: "<file>",
				Action:    importCommand,
			},
		},
	}
}

// loadConfig reads the configuration and applies command line overrides
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if v := c.String("storage"); v != "" {
		cfg.Storage.Type = v
	}
	if v := c.String("data-path"); v != "" {
		cfg.Storage.DataPath = v
	}
	if v := c.String("dsn"); v != "" {
		cfg.Storage.DatabaseDSN = v
	}
	if v := c.String("log-level"); v != "" {
		cfg.LogLevel = v
	}
	return cfg, cfg.Validate()
}

// openManager loads configuration, builds the logger and initializes storage.
// The caller closes the returned manager and syncs the logger.
func openManager(ctx context.Context, c *cli.Context) (*manager.Manager, *zap.Logger, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.Storage.Environment)
	if err != nil {
		return nil, nil, err
	}

	m := manager.New(cfg.Storage, manager.WithLogger(logger))
	if err := m.Initialize(ctx); err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return m, logger, nil
}

func withManager(c *cli.Context, fn func(ctx context.Context, m *manager.Manager, logger *zap.Logger) error) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, logger, err := openManager(ctx, c)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	defer func() {
		if err := m.Close(); err != nil {
			logger.Warn("failed to close storage", zap.Error(err))
		}
	}()

	return fn(ctx, m, logger)
}

func serveCommand(c *cli.Context) error {
	return withManager(c, func(ctx context.Context, m *manager.Manager, logger *zap.Logger) error {
		logger.Info("questionbank starting",
			zap.String("version", version),
			zap.String("backend", string(m.ActiveBackend())),
			zap.String("build_mode", storage.BuildMode),
			zap.String("driver", storage.DriverName))

		server := mcp.NewServer(m, logger)
		if err := server.Serve(ctx); err != nil {
			return err
		}
		logger.Info("shutting down")
		return nil
	})
}

func migrateCommand(c *cli.Context) error {
	return withManager(c, func(ctx context.Context, m *manager.Manager, logger *zap.Logger) error {
		report, err := m.MigrateFromFileToDatabase(ctx)
		if err != nil {
			return err
		}
		logger.Info("migration finished",
			zap.Int("categories", report.Categories.Created),
			zap.Int("questions", report.Questions.Created),
			zap.Int("tags", report.Tags.Created),
			zap.Int("failed", report.Categories.Failed+report.Questions.Failed+report.Tags.Failed))
		return writeJSON(c.App.Writer, report)
	})
}

func syncCommand(c *cli.Context) error {
	return withManager(c, func(ctx context.Context, m *manager.Manager, _ *zap.Logger) error {
		stats, err := m.SyncData(ctx)
		if err != nil {
			return err
		}
		return writeJSON(c.App.Writer, stats)
	})
}

func statsCommand(c *cli.Context) error {
	return withManager(c, func(ctx context.Context, m *manager.Manager, _ *zap.Logger) error {
		stats, err := m.GetStatistics(ctx)
		if err != nil {
			return err
		}
		return writeJSON(c.App.Writer, stats)
	})
}

func healthCommand(c *cli.Context) error {
	return withManager(c, func(ctx context.Context, m *manager.Manager, _ *zap.Logger) error {
		health := m.HealthCheck(ctx)
		if err := writeJSON(c.App.Writer, health); err != nil {
			return err
		}
		if !health.Healthy() {
			return fmt.Errorf("storage backend is unhealthy: %s", health.Error)
		}
		return nil
	})
}

func exportCommand(c *cli.Context) error {
	return withManager(c, func(ctx context.Context, m *manager.Manager, logger *zap.Logger) error {
		doc, err := m.ExportData(ctx)
		if err != nil {
			return err
		}

		path := c.String("output")
		if path == "" {
			return writeJSON(c.App.Writer, doc)
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer func() { _ = f.Close() }()
		if err := writeJSON(f, doc); err != nil {
			return err
		}
		logger.Info("content exported",
			zap.String("path", path),
			zap.Int("categories", len(doc.Categories)),
			zap.Int("questions", doc.QuestionCount()))
		return f.Close()
	})
}

func importCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("import requires a file argument")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	var doc types.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return withManager(c, func(ctx context.Context, m *manager.Manager, logger *zap.Logger) error {
		if err := m.ImportData(ctx, &doc); err != nil {
			return err
		}
		logger.Info("content imported",
			zap.String("path", path),
			zap.Int("categories", len(doc.Categories)),
			zap.Int("questions", doc.QuestionCount()))
		return nil
	})
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
