package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/statmill/statmill/internal/logger"
	"github.com/statmill/statmill/internal/server"
	"github.com/statmill/statmill/internal/store"
	memorystore "github.com/statmill/statmill/internal/store/memory"
	postgresstore "github.com/statmill/statmill/internal/store/postgres"
	"github.com/statmill/statmill/internal/telemetry"
	"gopkg.in/yaml.v3"
)

type ServerCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:4000" env:"STATMILL_LISTEN"`
	Config string `help:"YAML config file overlaying flag defaults" env:"STATMILL_CONFIG"`

	// CORS configuration: beacons arrive cross-origin from instrumented pages
	CORSOrigins []string `help:"allowed CORS origins for tracking requests" default:"*" env:"STATMILL_CORS_ORIGINS"`

	// Operational modes
	Telemetry bool `help:"enable OTLP metrics export" default:"false" env:"STATMILL_TELEMETRY"`

	// Store configuration
	StoreType     string             `help:"store type (memory or postgres)" default:"memory" env:"STATMILL_STORE_TYPE" enum:"memory,postgres"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
	Retention     RetentionFlags     `embed:"" prefix:"retention-"`
}

type PostgresStoreFlags struct {
	// Connection Configuration
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns        int32 `help:"maximum number of connections in pool" default:"20"`
	MinConns        int32 `help:"minimum number of connections in pool" default:"5"`
	MaxConnLifetime int32 `help:"maximum connection lifetime in seconds" default:"3600"`
	MaxConnIdleTime int32 `help:"maximum connection idle time in seconds" default:"1800"`

	// Query Configuration
	QueryTimeout int32 `help:"query timeout in seconds" default:"10"`

	// Migration Configuration
	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"STATMILL_POSTGRES_AUTO_MIGRATE"`
}

// RetentionFlags configures how long events are retained in the store.
type RetentionFlags struct {
	Days          int32         `help:"days to retain events, 0 disables expiry" default:"180" env:"STATMILL_RETENTION_DAYS"`
	SweepInterval time.Duration `help:"interval between retention sweeps" default:"1h" env:"STATMILL_RETENTION_SWEEP_INTERVAL"`
}

// fileConfig is the YAML overlay for ServerCmd. Only set fields override
// the flag/env values.
type fileConfig struct {
	Listen        string   `yaml:"listen"`
	CORSOrigins   []string `yaml:"corsOrigins"`
	StoreType     string   `yaml:"storeType"`
	ConnString    string   `yaml:"connString"`
	RetentionDays *int32   `yaml:"retentionDays"`
}

func (c *ServerCmd) loadConfigFile() error {
	data, err := os.ReadFile(c.Config)
	if err != nil {
		return err
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Listen != "" {
		c.Listen = cfg.Listen
	}
	if len(cfg.CORSOrigins) > 0 {
		c.CORSOrigins = cfg.CORSOrigins
	}
	if cfg.StoreType != "" {
		c.StoreType = cfg.StoreType
	}
	if cfg.ConnString != "" {
		c.PostgresStore.ConnString = cfg.ConnString
	}
	if cfg.RetentionDays != nil {
		c.Retention.Days = *cfg.RetentionDays
	}

	return nil
}

func (c *ServerCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	// Load config file overlay if provided
	if c.Config != "" {
		if err := c.loadConfigFile(); err != nil {
			return fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Setup telemetry if enabled
	if c.Telemetry {
		log.Info().Msg("Telemetry is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, "statmill", globals.Version)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	// Create the event store based on store type
	var eventStore store.EventStore

	switch c.StoreType {
	case "postgres":
		if c.PostgresStore.ConnString == "" {
			return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
		}

		poolCfg := &postgresstore.PoolConfig{
			ConnString:      c.PostgresStore.ConnString,
			MaxConns:        c.PostgresStore.MaxConns,
			MinConns:        c.PostgresStore.MinConns,
			MaxConnLifetime: c.PostgresStore.MaxConnLifetime,
			MaxConnIdleTime: c.PostgresStore.MaxConnIdleTime,
		}
		// Storage initialization failure is fatal: the service must not
		// accept traffic against a missing schema.
		pool, err := postgresstore.NewPool(ctx, poolCfg)
		if err != nil {
			return fmt.Errorf("failed to create connection pool: %w", err)
		}
		defer pool.Close()

		if c.PostgresStore.AutoMigrate {
			if err := postgresstore.RunMigrations(ctx, pool); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info().Msg("Database migrations completed")
		}

		pgStore := postgresstore.NewEventStore(pool, &postgresstore.EventStoreConfig{
			RetentionDays:       c.Retention.Days,
			QueryTimeoutSeconds: c.PostgresStore.QueryTimeout,
		})
		eventStore = pgStore

		if c.Retention.Days > 0 {
			retention := time.Duration(c.Retention.Days) * 24 * time.Hour
			sweeper := postgresstore.NewRetentionSweeper(ctx, pgStore, retention, c.Retention.SweepInterval)
			defer sweeper.Stop()
			log.Info().
				Int32("days", c.Retention.Days).
				Dur("sweep_interval", c.Retention.SweepInterval).
				Msg("Retention sweeper started")
		}

		log.Info().Msg("Using PostgreSQL event store")

	default:
		eventStore = memorystore.NewEventStore()
		log.Info().Msg("Using in-memory event store")
	}

	// Build the handler with CORS for cross-origin beacons
	srv := server.NewServer(eventStore)
	handler := withCORS(c.CORSOrigins, srv.Handler(log))

	httpServer := configureHTTPServer(c.Listen, handler)

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", c.Listen).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("Server exited")
	return nil
}

// withCORS adds CORS support for tracking beacons sent from instrumented pages.
func withCORS(allowedOrigins []string, h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Content-Encoding"},
	})
	return middleware.Handler(h)
}
