// Package app builds the process-wide dependencies once and exposes them to
// whichever runtime the process was started in.
//
// Both runtimes share one *gorm.DB, one archiver and one route table. The
// gin engine is only built when the server runtime asks for it.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-user-records/internal/archive"
	"github.com/tbourn/go-user-records/internal/config"
	httpapi "github.com/tbourn/go-user-records/internal/http"
	"github.com/tbourn/go-user-records/internal/http/handlers"
	"github.com/tbourn/go-user-records/internal/invoke"
	"github.com/tbourn/go-user-records/internal/repo"
	"github.com/tbourn/go-user-records/internal/services"
)

// App holds the initialized dependencies.
type App struct {
	Config   config.Config
	DB       *gorm.DB
	Archiver *archive.Archiver
	Handlers *handlers.Handlers
}

// New opens the database, creates the schema, connects the archiver and
// builds the handlers. The seed of the user generator is random.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := repo.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("migrate: %w", err)
	}

	arch, err := archive.FromConfig(ctx, cfg.S3, cfg.Runtime.Degraded)
	if err != nil {
		closeDB(db)
		return nil, fmt.Errorf("archive: %w", err)
	}

	h := httpapi.NewHandlers(db, arch, services.NewFakeGenerator(0), cfg.Runtime.Mode)

	for _, rt := range h.Router().Routes() {
		log.Debug().Str("method", rt.Method).Str("pattern", rt.Pattern).Msg("route registered")
	}
	log.Info().
		Str("runtime", string(cfg.Runtime.Mode)).
		Str("db_driver", cfg.Database.Driver).
		Str("bucket", cfg.S3.Bucket).
		Bool("archive_degraded", arch.Degraded()).
		Msg("application initialized")

	return &App{Config: cfg, DB: db, Archiver: arch, Handlers: h}, nil
}

// Engine returns a gin engine with the full middleware stack and every API
// route mounted.
func (a *App) Engine() *gin.Engine {
	gin.SetMode(a.Config.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, a.Handlers, a.Config)
	return r
}

// Lambda returns the API Gateway event handler. Replies carry the same
// security headers as server responses; gateway traffic is always HTTPS.
func (a *App) Lambda() *invoke.LambdaHandler {
	return invoke.NewLambdaHandler(a.Handlers.Router(), a.Config.APIBasePath).
		WithHeaders(httpapi.SecurityOptions(a.Config).Headers(true))
}

// Close releases the connection pool.
func (a *App) Close() error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
