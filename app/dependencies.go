package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/upb/publish-guard/config"
	"github.com/upb/publish-guard/internal/auth"
	"github.com/upb/publish-guard/internal/i18n"
	"github.com/upb/publish-guard/internal/observability"
	"github.com/upb/publish-guard/middleware"
	"github.com/upb/publish-guard/repositories"
	"github.com/upb/publish-guard/repositories/sqlstore"
	"github.com/upb/publish-guard/services/audit"
	"github.com/upb/publish-guard/services/content"
	"github.com/upb/publish-guard/services/guard"
	"github.com/upb/publish-guard/services/settings"
)

// auditStopTimeout bounds how long Close waits for queued audit records
const auditStopTimeout = 5 * time.Second

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config   *config.Config
	DB       *sqlstore.DB
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Metrics  *observability.Metrics

	// Repository Factory
	RepoFactory *sqlstore.RepositoryFactory

	// Repositories
	Content     repositories.ContentRepository
	Attachments repositories.AttachmentRepository
	Options     repositories.OptionRepository
	AuditLogs   repositories.AuditRepository
	TxManager   repositories.TransactionManager

	// Services
	Settings *settings.Service
	Audit    *audit.AuditService
	Guard    *guard.Service
	Items    *content.Service

	// Auth
	Tokens         middleware.TokenValidator
	AuthMiddleware *middleware.AuthMiddleware

	DefaultLocale language.Tag
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	factory, err := sqlstore.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create repository factory: %w", err)
	}
	return NewDependenciesFromFactory(ctx, cfg, factory, logger)
}

// NewDependenciesFromFactory wires everything over an already opened store
func NewDependenciesFromFactory(ctx context.Context, cfg *config.Config, factory *sqlstore.RepositoryFactory, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:      cfg,
		Logger:      logger,
		RepoFactory: factory,
		DB:          factory.GetDB(),
	}

	if err := deps.initDatabase(ctx); err != nil {
		_ = factory.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()
	deps.initMetrics()

	if err := deps.initServices(ctx); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	deps.initAuth()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase verifies the connection and creates the schema
func (d *Dependencies) initDatabase(ctx context.Context) error {
	if err := d.DB.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := d.DB.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	repos := d.RepoFactory.NewRepositories()

	d.Content = repos.Content
	d.Attachments = repos.Attachments
	d.Options = repos.Options
	d.AuditLogs = repos.AuditLogs
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
}

func (d *Dependencies) initMetrics() {
	d.Registry = prometheus.NewRegistry()
	if !d.Config.Observability.MetricsEnabled {
		return
	}
	d.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	d.Metrics = observability.NewMetrics(d.Registry)
}

func (d *Dependencies) initServices(ctx context.Context) error {
	guardCfg := d.Config.Guard

	tag, ok := i18n.ParseTag(guardCfg.DefaultLocale)
	if !ok {
		d.Logger.Warn("unsupported default locale, using built-in default",
			zap.String("locale", guardCfg.DefaultLocale))
		tag = i18n.DefaultTag()
	}
	d.DefaultLocale = tag

	d.Settings = settings.NewService(
		d.Options,
		d.TxManager,
		settings.NewSnapshotCache(guardCfg.SettingsCacheTTL),
		d.Metrics,
		d.Logger.Named("settings"),
		guardCfg.AvailablePostTypes,
	)

	d.Audit = audit.NewAuditService(d.AuditLogs, d.Metrics, d.Logger.Named("audit"), audit.Config{
		BufferSize:  guardCfg.AuditBufferSize,
		WorkerCount: guardCfg.AuditWorkers,
	})
	if err := d.Audit.Start(); err != nil {
		return fmt.Errorf("failed to start audit service: %w", err)
	}

	d.Guard = guard.NewService(d.Settings, d.Content, d.Attachments, d.Audit, d.Metrics, d.Logger.Named("guard"))
	d.Items = content.NewService(d.Content, d.Attachments, d.TxManager, d.Guard, d.Logger.Named("content"))

	if guardCfg.ActivateOnStart {
		if _, err := d.Settings.Activate(ctx); err != nil {
			return err
		}
	}

	d.Logger.Info("services initialized",
		zap.Bool("activated", guardCfg.ActivateOnStart),
		zap.String("default_locale", tag.String()))
	return nil
}

func (d *Dependencies) initAuth() {
	if d.Config.Auth.JWTSecret == "" {
		d.Logger.Warn("auth secret not configured, API routes will reject every request")
		// Use reject-all validator so protected routes return 401
		d.Tokens = rejectAllValidator{}
	} else {
		d.Tokens = auth.NewValidator(auth.Config{
			Secret:   d.Config.Auth.JWTSecret,
			Issuer:   d.Config.Auth.Issuer,
			Audience: d.Config.Auth.Audience,
		})
	}
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Tokens, d.Logger.Named("auth"))
}

// rejectAllValidator rejects all tokens (used when no secret is configured)
type rejectAllValidator struct{}

func (rejectAllValidator) ValidateToken(context.Context, string) (*auth.ParsedClaims, error) {
	return nil, auth.ErrNotConfigured
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	// Drain queued audit records before the database goes away
	if d.Audit != nil && d.Audit.GetStats().Started {
		if err := d.Audit.Stop(auditStopTimeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
	}

	// Close database connection
	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
