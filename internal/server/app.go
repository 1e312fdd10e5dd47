// Package server wires the catalog engine together: database, repositories,
// payload transfer, icon rendering and the engine services. The process has
// no request surface of its own; job and controller collaborators drive the
// services it exposes.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkgdepot/pkgdepot/internal/filex"
	"github.com/pkgdepot/pkgdepot/internal/logging"
	"github.com/pkgdepot/pkgdepot/internal/server/config"
	"github.com/pkgdepot/pkgdepot/internal/server/graphics"
	"github.com/pkgdepot/pkgdepot/internal/server/repositories/repomanager"
	"github.com/pkgdepot/pkgdepot/internal/server/services"
	"github.com/pkgdepot/pkgdepot/internal/server/transfer"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	repomanager repomanager.RepositoryManager

	Importer      *services.ImporterService
	Counters      *services.CounterService
	Localizations *services.LocalizationService
	Icons         *services.IconRenderService
	Media         *services.MediaService
}

func NewApp(cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	tempDir, err := filex.EnsureDir(cfg.TempDir)
	if err != nil {
		return nil, err
	}

	rm := repomanager.NewPostgresRepositoryManager()

	dispatcher := transfer.NewDispatcher()
	httpTransfer := transfer.NewHTTPTransfer(cfg.TransferTimeout)
	dispatcher.Register("http", httpTransfer)
	dispatcher.Register("https", httpTransfer)
	dispatcher.Register("s3", transfer.NewS3Transfer(transfer.S3Options{
		Region:       cfg.S3Region,
		AccessKey:    cfg.S3AccessKey,
		SecretKey:    cfg.S3SecretKey,
		BaseEndpoint: cfg.S3BaseEndpoint,
	}))

	var optimizer graphics.Optimizer = graphics.NopOptimizer{}
	if cfg.PngOptimizerPath != "" {
		optimizer = &graphics.ExecOptimizer{ToolPath: cfg.PngOptimizerPath}
	}

	iconOpts := services.DefaultIconCacheOptions()
	iconOpts.SupplementCapacity = cfg.IconCacheEntries
	iconOpts.SupplementTTL = cfg.IconCacheTTL

	icons := services.NewIconRenderService(db, rm,
		&graphics.ExecRasterizer{ToolPath: cfg.HvifToolPath}, optimizer, logger, iconOpts)

	return &App{
		config:      cfg,
		logger:      logger,
		db:          db,
		repomanager: rm,

		Importer: services.NewImporterService(db, rm, dispatcher,
			services.NopInspector{}, icons, tempDir, logger),
		Counters:      services.NewCounterService(db, rm, logger),
		Localizations: services.NewLocalizationService(db, rm, logger),
		Icons:         icons,
		Media:         services.NewMediaService(db, rm, icons, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run migrates the schema and keeps the process alive until a shutdown
// signal arrives.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}

	app.initSignalHandler(cancelFunc)

	<-ctx.Done()

	app.logger.Info(ctx, "Shutting down...")
	return app.db.Close()
}
