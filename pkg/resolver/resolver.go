// Package resolver works out database connection settings at process start.
//
// It tries the remote path first: the first database instance reported by a
// discovery backend supplies the endpoint and a secret store supplies the
// credentials. If anything on that path fails the whole remote result is
// discarded and environment variables or literal defaults are used instead.
// Resolve never returns an error.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	"db-bootstrap/pkg/dbconfig"
	"db-bootstrap/pkg/discovery"
	"db-bootstrap/pkg/env"
	"db-bootstrap/pkg/secrets"
	"db-bootstrap/pkg/telemetry"
)

// Result sources reported in logs and metrics.
const (
	SourceRemote   = "remote"
	SourceFallback = "fallback"
)

// DiscoveryFn builds a discovery backend for region.
type DiscoveryFn func(ctx context.Context, region string) (discovery.DatabaseDiscovery, error)

// SecretsFn builds a secret store for region.
type SecretsFn func(ctx context.Context, region string) (secrets.SecretStore, error)

var (
	metricsOnce sync.Once
	ready       bool
	resolutions telemetry.Int64Counter
)

func ensureMetrics() {
	metricsOnce.Do(func() {
		meter := telemetry.GetMeter("db.resolver")
		var err error
		resolutions, err = telemetry.NewInt64Counter(meter, "db_resolver.resolutions", "Settings resolutions by source")
		ready = err == nil
	})
}

// Resolver holds the capabilities and defaults for one resolution. A nil
// DiscoveryFn or SecretsFn means that capability is absent.
type Resolver struct {
	DiscoveryFn DiscoveryFn
	SecretsFn   SecretsFn
	Getenv      env.Lookup
	Defaults    Defaults
}

// New returns a Resolver reading the process environment with the built-in
// defaults.
func New(discoveryFn DiscoveryFn, secretsFn SecretsFn) *Resolver {
	return &Resolver{
		DiscoveryFn: discoveryFn,
		SecretsFn:   secretsFn,
		Getenv:      os.Getenv,
		Defaults:    DefaultConfig(),
	}
}

func (r *Resolver) lookup() env.Lookup {
	if r.Getenv == nil {
		return os.Getenv
	}
	return r.Getenv
}

// ResolveRegion returns AWS_REGION, then AWS_DEFAULT_REGION, then the default.
func (r *Resolver) ResolveRegion() string {
	return env.FirstNonEmpty(r.lookup(), r.Defaults.Region, "AWS_REGION", "AWS_DEFAULT_REGION")
}

// ResolveSecretID returns DB_SECRET_ARN or the default identifier.
func (r *Resolver) ResolveSecretID() string {
	return env.FirstNonEmpty(r.lookup(), r.Defaults.SecretID, "DB_SECRET_ARN")
}

// Resolve produces the settings record. Failures on the remote path are
// absorbed and turned into fallback values.
func (r *Resolver) Resolve(ctx context.Context) dbconfig.Settings {
	ensureMetrics()

	ctx, span := telemetry.GetTracer("db.resolver").Start(ctx, "db_resolver.resolve")
	defer span.End()

	region := r.ResolveRegion()
	secretID := r.ResolveSecretID()
	slog.InfoContext(ctx, "db_credentials_resolving", "region", region, "secret_id", secretID)

	source := SourceRemote
	creds, err := r.resolveRemote(ctx, region, secretID)
	var failure *RemoteResolutionError
	if errors.As(err, &failure) {
		source = SourceFallback
		creds = r.fallback()
		span.RecordError(failure)
	}

	settings := dbconfig.Settings{
		Region:   region,
		SecretID: secretID,
		Endpoint: creds.Endpoint,
		Database: creds.Database,
		Username: creds.Username,
		Password: creds.Password,
	}

	attrs := []any{
		"settings", settings,
		"source", source,
	}
	if failure != nil {
		attrs = append(attrs, "fallback_stage", failure.Stage, "fallback_reason", failure.Err.Error())
	}
	slog.InfoContext(ctx, "db_settings_resolved", attrs...)

	span.SetAttributes(telemetry.StringAttribute("db.resolver.source", source))
	if ready {
		telemetry.AddInt64Counter(ctx, resolutions, 1, telemetry.StringAttribute("source", source))
	}

	return settings
}

// resolveRemote runs the remote path. Any error it returns is a
// *RemoteResolutionError and no partial result accompanies it.
func (r *Resolver) resolveRemote(ctx context.Context, region, secretID string) (Credentials, error) {
	if r.DiscoveryFn == nil || r.SecretsFn == nil {
		return Credentials{}, failAt(StageCapability, ErrCapabilityMissing)
	}

	disc, err := r.DiscoveryFn(ctx, region)
	if err != nil {
		return Credentials{}, failAt(StageCapability, err)
	}
	if disc == nil {
		return Credentials{}, failAt(StageCapability, ErrCapabilityMissing)
	}

	store, err := r.SecretsFn(ctx, region)
	if err != nil {
		return Credentials{}, failAt(StageCapability, err)
	}
	if store == nil {
		return Credentials{}, failAt(StageCapability, ErrCapabilityMissing)
	}
	defer store.Close()

	instances, err := disc.ListInstances(ctx)
	if err != nil {
		return Credentials{}, failAt(StageDiscovery, err)
	}
	instance, err := discovery.First(instances)
	if err != nil {
		return Credentials{}, failAt(StageDiscovery, err)
	}

	payload, err := store.GetSecretValue(ctx, secretID)
	if err != nil {
		return Credentials{}, failAt(StageSecret, err)
	}
	fields, err := secrets.DecodeCredentials(payload)
	if err != nil {
		return Credentials{}, failAt(StagePayload, err)
	}

	return Credentials{
		Endpoint: instance.Address,
		Database: secrets.StringOr(fields.DBName, r.Defaults.Secret.Database),
		Username: secrets.StringOr(fields.Username, r.Defaults.Secret.Username),
		Password: secrets.StringOr(fields.Password, r.Defaults.Secret.Password),
	}, nil
}

// fallback copies Defaults.Fallback with non-empty DB_* variables applied.
func (r *Resolver) fallback() Credentials {
	get := r.lookup()
	d := r.Defaults.Fallback
	return Credentials{
		Endpoint: env.FirstNonEmpty(get, d.Endpoint, "DB_HOST"),
		Database: env.FirstNonEmpty(get, d.Database, "DB_NAME"),
		Username: env.FirstNonEmpty(get, d.Username, "DB_USER"),
		Password: env.FirstNonEmpty(get, d.Password, "DB_PASSWORD"),
	}
}
