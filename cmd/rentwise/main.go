// Rentwise Core - rental listing identity and request service
//
// This is the main entry point for the Rentwise Core application. It
// serves the authentication endpoints, the request gatekeeper and the
// rent-request workflow over HTTP, and pushes live notifications to
// property owners over WebSocket.
//
// Optional integrations (each off unless enabled in config):
//   - MQTT: domain events are published for other services
//   - InfluxDB: event counters for dashboards
//   - Redis: WebSocket tickets shared between replicas
//   - Google: sign-in with a Google ID token
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/nerrad567/rentwise-core/internal/api"
	"github.com/nerrad567/rentwise-core/internal/audit"
	"github.com/nerrad567/rentwise-core/internal/auth"
	"github.com/nerrad567/rentwise-core/internal/events"
	"github.com/nerrad567/rentwise-core/internal/infrastructure/cache"
	"github.com/nerrad567/rentwise-core/internal/infrastructure/config"
	"github.com/nerrad567/rentwise-core/internal/infrastructure/database"
	"github.com/nerrad567/rentwise-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/rentwise-core/internal/infrastructure/logging"
	"github.com/nerrad567/rentwise-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/rentwise-core/internal/property"
	"github.com/nerrad567/rentwise-core/internal/rental"
	"github.com/nerrad567/rentwise-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// defaultEnvFile is loaded before config when present.
const defaultEnvFile = ".env"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Rentwise Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Secrets such as RENTWISE_JWT_SECRET may come from a local .env file.
	// Variables already set in the environment win.
	if err := loadEnvFile(defaultEnvFile); err != nil {
		return fmt.Errorf("loading %s: %w", defaultEnvFile, err)
	}

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Identity stores
	users := auth.NewUserRepository(db.DB)
	admins := auth.NewAdminRepository(db.DB)
	hasher := auth.NewArgon2Hasher(auth.DefaultArgon2Params)

	if _, seedErr := auth.SeedAdmin(ctx, admins, hasher, cfg.Security.BootstrapAdmin, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding bootstrap admin: %w", seedErr)
	}

	integrations, err := connectIntegrations(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer integrations.close(log)

	auditRepo := audit.NewSQLiteRepository(db.DB)
	hub := api.NewHub(withHubDefaults(cfg.WebSocket), log)

	publisher := events.NewPublisher(events.PublisherDeps{
		Broker:   integrations.broker(),
		Metrics:  integrations.metrics(),
		Notifier: hub,
		Audit:    auditRepo,
		Logger:   log.Logger,
	})
	go publisher.Run(ctx)
	go hub.Run(ctx)

	var verifier auth.FederatedVerifier
	if cfg.Security.Google.Enabled {
		google, verifierErr := auth.NewGoogleVerifier(ctx, cfg.Security.Google.ClientID)
		if verifierErr != nil {
			return fmt.Errorf("initialising google verifier: %w", verifierErr)
		}
		verifier = google
		log.Info("google sign-in enabled")
	}

	codec := auth.NewTokenCodec(cfg.Security.JWT.Secret, cfg.Security.JWT.AccessTTL(), cfg.Security.JWT.RefreshTTL())
	gateway := auth.NewGateway(auth.GatewayDeps{
		Resolver: auth.NewResolver(admins, users),
		Ledger:   auth.NewRefreshLedger(db.DB),
		Users:    users,
		Admins:   admins,
		Hasher:   hasher,
		Codec:    codec,
		Verifier: verifier,
		Events:   publisher,
		Logger:   log.Logger,
	})

	properties := property.NewSQLiteRepository(db.DB)
	machine := rental.NewMachine(db.DB, users, properties, publisher, log.Logger)

	apiServer, err := api.New(api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Logger:     log,
		Gateway:    gateway,
		Codec:      codec,
		Users:      users,
		Properties: properties,
		Rentals:    machine,
		Audit:      auditRepo,
		Events:     publisher,
		Hub:        hub,
		Tickets:    integrations.tickets(),
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, integrations); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. API server
	// 2. Redis, InfluxDB, MQTT (whichever are enabled)
	// 3. Database
	log.Info("Rentwise Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses RENTWISE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("RENTWISE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadEnvFile loads path into the environment. A missing file is not an error.
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("parsing env file: %w", err)
	}
	return nil
}

// withHubDefaults mirrors the API server's WebSocket defaults for a hub
// created outside it.
func withHubDefaults(cfg config.WebSocketConfig) config.WebSocketConfig {
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 4096
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = 10
	}
	return cfg
}

// integrations holds the optional external connections. A nil field means
// the integration is disabled.
type integrations struct {
	mqtt   *mqtt.Client
	influx *influxdb.Client
	redis  *cache.Client
}

// connectIntegrations dials every enabled integration. On error, anything
// already connected is closed.
func connectIntegrations(ctx context.Context, cfg *config.Config, log *logging.Logger) (*integrations, error) {
	in := &integrations{}

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	switch {
	case errors.Is(err, mqtt.ErrDisabled):
		log.Info("MQTT disabled")
	case err != nil:
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	default:
		mqttClient.SetLogger(log)
		in.mqtt = mqttClient
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	}

	influxClient, err := influxdb.Connect(ctx, cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		in.close(log)
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		in.influx = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	}

	redisClient, err := cache.Connect(ctx, cfg.Redis)
	switch {
	case errors.Is(err, cache.ErrDisabled):
		log.Info("Redis disabled, websocket tickets kept in process")
	case err != nil:
		in.close(log)
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	default:
		in.redis = redisClient
		log.Info("Redis connected", "host", cfg.Redis.Host, "db", cfg.Redis.DB)
	}

	return in, nil
}

// broker returns the MQTT client as a publisher sink, or nil. Returning a
// typed nil pointer would make the interface non-nil.
func (in *integrations) broker() events.BrokerPublisher {
	if in.mqtt == nil {
		return nil
	}
	return in.mqtt
}

func (in *integrations) metrics() events.MetricsWriter {
	if in.influx == nil {
		return nil
	}
	return in.influx
}

// tickets returns a Redis-backed ticket store, or nil for the in-process default.
func (in *integrations) tickets() api.TicketStore {
	if in.redis == nil {
		return nil
	}
	return api.NewRedisTicketStore(in.redis)
}

func (in *integrations) close(log *logging.Logger) {
	if in.redis != nil {
		log.Info("closing Redis connection")
		if err := in.redis.Close(); err != nil {
			log.Error("error closing Redis", "error", err)
		}
	}
	if in.influx != nil {
		log.Info("closing InfluxDB connection")
		if err := in.influx.Close(); err != nil {
			log.Error("error closing InfluxDB", "error", err)
		}
	}
	if in.mqtt != nil {
		log.Info("disconnecting from MQTT")
		if err := in.mqtt.Close(); err != nil {
			log.Error("error closing MQTT", "error", err)
		}
	}
}

// healthCheck verifies the database and every enabled integration.
// It returns the first failure.
func healthCheck(ctx context.Context, db *database.DB, in *integrations) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if in.mqtt != nil {
		if err := in.mqtt.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if in.influx != nil {
		if err := in.influx.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	if in.redis != nil {
		if err := in.redis.HealthCheck(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}
