// Command db-resolver resolves database connection settings and prints them
// to stdout for the process that starts next.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"db-bootstrap/pkg/db/mongodb"
	"db-bootstrap/pkg/db/postgres"
	"db-bootstrap/pkg/dbconfig"
	"db-bootstrap/pkg/discovery"
	"db-bootstrap/pkg/env"
	"db-bootstrap/pkg/logger"
	"db-bootstrap/pkg/resolver"
	"db-bootstrap/pkg/secrets"
	"db-bootstrap/pkg/telemetry"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

const serviceName = "db-resolver"

// Backend names accepted in DB_DISCOVERY_BACKEND and DB_SECRET_BACKEND.
const (
	backendNone           = "none"
	backendRDS            = "rds"
	backendKubernetes     = "kubernetes"
	backendSecretsManager = "secretsmanager"
	backendBao            = "bao"
)

// App holds dependencies for the db-resolver service. A nil DiscoveryFn or
// SecretsFn is chosen from the environment during Run.
type App struct {
	DiscoveryFn resolver.DiscoveryFn
	SecretsFn   resolver.SecretsFn
	VerifyFn    func(ctx context.Context, kind string, s dbconfig.Settings) error
	Out         io.Writer
}

func main() {
	app := &App{
		VerifyFn: verify,
		Out:      os.Stdout,
	}

	if err := app.Run(context.Background()); err != nil {
		slog.Error("db_resolver_failed", "error", err)
		os.Exit(1)
	}
}

// Run resolves the settings once, writes them to Out and optionally checks
// that they open a working connection.
func (a *App) Run(ctx context.Context) error {
	loaded := env.Load()
	logger.Setup(os.Stderr, serviceName)
	if len(loaded) > 0 {
		slog.Info("env_files_loaded", "files", loaded)
	}

	shutdown, err := telemetry.Init(ctx, serviceName)
	if err != nil {
		slog.Warn("otel_init_failed, continuing without full observability", "error", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Error("otel_shutdown_failed", "error", err)
		}
	}()

	discoveryFn := a.DiscoveryFn
	if discoveryFn == nil {
		discoveryFn = discoveryBackend(env.Get("DB_DISCOVERY_BACKEND", backendRDS))
	}
	secretsFn := a.SecretsFn
	if secretsFn == nil {
		secretsFn = secretBackend(env.Get("DB_SECRET_BACKEND", backendSecretsManager))
	}

	settings := resolver.New(discoveryFn, secretsFn).Resolve(ctx)

	out := a.Out
	if out == nil {
		out = os.Stdout
	}
	if err := dbconfig.Encode(out, os.Getenv("DB_RESOLVER_FORMAT"), settings); err != nil {
		return fmt.Errorf("settings_encode_failed: %w", err)
	}

	kind := strings.ToLower(strings.TrimSpace(os.Getenv("DB_VERIFY")))
	if kind == "" || a.VerifyFn == nil {
		return nil
	}
	if err := a.VerifyFn(ctx, kind, settings); err != nil {
		return fmt.Errorf("db_verify_failed: %w", err)
	}
	return nil
}

func discoveryBackend(name string) resolver.DiscoveryFn {
	switch strings.ToLower(name) {
	case backendNone:
		return nil
	case backendRDS:
		return func(ctx context.Context, region string) (discovery.DatabaseDiscovery, error) {
			cfg, err := loadAWSConfig(ctx, region)
			if err != nil {
				return nil, err
			}
			return discovery.NewRDSDiscovery(cfg, os.Getenv("DB_INSTANCE_IDENTIFIER")), nil
		}
	case backendKubernetes:
		return func(ctx context.Context, region string) (discovery.DatabaseDiscovery, error) {
			d, err := discovery.NewKubernetesDiscoveryFromEnvironment(
				os.Getenv("DB_DISCOVERY_NAMESPACE"),
				os.Getenv("DB_DISCOVERY_SELECTOR"),
			)
			if err != nil {
				return nil, err
			}
			return d, nil
		}
	default:
		slog.Warn("unknown_discovery_backend", "backend", name)
		return nil
	}
}

func secretBackend(name string) resolver.SecretsFn {
	switch strings.ToLower(name) {
	case backendNone:
		return nil
	case backendSecretsManager:
		return func(ctx context.Context, region string) (secrets.SecretStore, error) {
			cfg, err := loadAWSConfig(ctx, region)
			if err != nil {
				return nil, err
			}
			return secrets.NewSecretsManagerStore(cfg), nil
		}
	case backendBao:
		return func(ctx context.Context, region string) (secrets.SecretStore, error) {
			p, err := secrets.NewBaoProvider()
			if err != nil {
				return nil, err
			}
			return p, nil
		}
	default:
		slog.Warn("unknown_secret_backend", "backend", name)
		return nil
	}
}

func loadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}
	return cfg, nil
}

// verify opens a connection of the requested kind with s and closes it again.
func verify(ctx context.Context, kind string, s dbconfig.Settings) error {
	switch kind {
	case "postgres":
		db, err := postgres.ConnectPostgres(ctx, "postgres", s)
		if err != nil {
			return err
		}
		defer db.Close()
		version, err := postgres.ServerVersion(ctx, db)
		if err != nil {
			return err
		}
		slog.Info("db_verified", "kind", kind, "endpoint", s.Endpoint, "server_version", version)
	case "mongodb":
		client, err := mongodb.ConnectMongo(ctx, s)
		if err != nil {
			return err
		}
		defer closeMongo(client)
		slog.Info("db_verified", "kind", kind, "endpoint", s.Endpoint)
	default:
		return fmt.Errorf("unknown DB_VERIFY value %q", kind)
	}
	return nil
}

func closeMongo(client *mongo.Client) {
	if err := client.Disconnect(context.Background()); err != nil {
		slog.Error("mongo_disconnect_failed", "error", err)
	}
}
