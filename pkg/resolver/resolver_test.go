package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"db-bootstrap/pkg/dbconfig"
	"db-bootstrap/pkg/discovery"
	"db-bootstrap/pkg/secrets"
)

type mockDiscovery struct {
	instances []discovery.Instance
	err       error
}

func (m *mockDiscovery) ListInstances(ctx context.Context) ([]discovery.Instance, error) {
	return m.instances, m.err
}

type mockSecretStore struct {
	payloads map[string]string
	err      error
	closed   bool
	asked    string
}

func (m *mockSecretStore) GetSecretValue(ctx context.Context, secretID string) (string, error) {
	m.asked = secretID
	if m.err != nil {
		return "", m.err
	}
	p, ok := m.payloads[secretID]
	if !ok {
		return "", &secrets.NotFoundError{Backend: "mock", SecretID: secretID}
	}
	return p, nil
}

func (m *mockSecretStore) Close() error {
	m.closed = true
	return nil
}

func envFrom(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func discoveryOf(d discovery.DatabaseDiscovery) DiscoveryFn {
	return func(ctx context.Context, region string) (discovery.DatabaseDiscovery, error) { return d, nil }
}

func secretsOf(s secrets.SecretStore) SecretsFn {
	return func(ctx context.Context, region string) (secrets.SecretStore, error) { return s, nil }
}

const testSecretID = "arn:aws:secretsmanager:eu-west-1:123456789012:secret:app-db"

var oneInstance = []discovery.Instance{
	{Identifier: "app-db", Address: "app-db.abc.eu-west-1.rds.amazonaws.com", Port: 3306},
	{Identifier: "other-db", Address: "other-db.abc.eu-west-1.rds.amazonaws.com", Port: 3306},
}

var fullEnv = map[string]string{
	"DB_SECRET_ARN": testSecretID,
	"DB_HOST":       "env-host",
	"DB_NAME":       "env_db",
	"DB_USER":       "env_user",
	"DB_PASSWORD":   "env_password",
}

func TestResolver_Resolve(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		discoveryFn DiscoveryFn
		secretsFn   SecretsFn
		want        Credentials
	}{
		{
			name: "Capabilities absent, no env",
			want: Credentials{Endpoint: "localhost", Database: "mydb", Username: "webapp_user", Password: "your_password"},
		},
		{
			name: "Capabilities absent, env overrides",
			env:  fullEnv,
			want: Credentials{Endpoint: "env-host", Database: "env_db", Username: "env_user", Password: "env_password"},
		},
		{
			name:        "Only discovery present",
			env:         fullEnv,
			discoveryFn: discoveryOf(&mockDiscovery{instances: oneInstance}),
			want:        Credentials{Endpoint: "env-host", Database: "env_db", Username: "env_user", Password: "env_password"},
		},
		{
			name:        "Remote success ignores env",
			env:         fullEnv,
			discoveryFn: discoveryOf(&mockDiscovery{instances: oneInstance}),
			secretsFn: secretsOf(&mockSecretStore{payloads: map[string]string{
				testSecretID: `{"username":"rds_admin","password":"rds-pw","dbname":"orders"}`,
			}}),
			want: Credentials{Endpoint: "app-db.abc.eu-west-1.rds.amazonaws.com", Database: "orders", Username: "rds_admin", Password: "rds-pw"},
		},
		{
			name:        "Missing payload keys use secret defaults, not env",
			env:         fullEnv,
			discoveryFn: discoveryOf(&mockDiscovery{instances: oneInstance}),
			secretsFn: secretsOf(&mockSecretStore{payloads: map[string]string{
				testSecretID: `{"engine":"mysql"}`,
			}}),
			want: Credentials{Endpoint: "app-db.abc.eu-west-1.rds.amazonaws.com", Database: "mydb", Username: "admin", Password: ""},
		},
		{
			name:        "Empty instance list falls back fully",
			env:         fullEnv,
			discoveryFn: discoveryOf(&mockDiscovery{}),
			secretsFn: secretsOf(&mockSecretStore{payloads: map[string]string{
				testSecretID: `{"username":"rds_admin","password":"rds-pw","dbname":"orders"}`,
			}}),
			want: Credentials{Endpoint: "env-host", Database: "env_db", Username: "env_user", Password: "env_password"},
		},
		{
			name:        "Empty instance list without env",
			discoveryFn: discoveryOf(&mockDiscovery{}),
			secretsFn:   secretsOf(&mockSecretStore{}),
			want:        Credentials{Endpoint: "localhost", Database: "mydb", Username: "webapp_user", Password: "your_password"},
		},
		{
			name:        "Discovery error",
			env:         fullEnv,
			discoveryFn: discoveryOf(&mockDiscovery{err: errors.New("AccessDenied")}),
			secretsFn:   secretsOf(&mockSecretStore{}),
			want:        Credentials{Endpoint: "env-host", Database: "env_db", Username: "env_user", Password: "env_password"},
		},
		{
			name:        "Secret not found",
			env:         fullEnv,
			discoveryFn: discoveryOf(&mockDiscovery{instances: oneInstance}),
			secretsFn:   secretsOf(&mockSecretStore{payloads: map[string]string{}}),
			want:        Credentials{Endpoint: "env-host", Database: "env_db", Username: "env_user", Password: "env_password"},
		},
		{
			name:        "Malformed payload",
			env:         fullEnv,
			discoveryFn: discoveryOf(&mockDiscovery{instances: oneInstance}),
			secretsFn: secretsOf(&mockSecretStore{payloads: map[string]string{
				testSecretID: `not json`,
			}}),
			want: Credentials{Endpoint: "env-host", Database: "env_db", Username: "env_user", Password: "env_password"},
		},
		{
			name:        "First instance has no endpoint",
			env:         fullEnv,
			discoveryFn: discoveryOf(&mockDiscovery{instances: []discovery.Instance{{Identifier: "creating"}, oneInstance[0]}}),
			secretsFn: secretsOf(&mockSecretStore{payloads: map[string]string{
				testSecretID: `{"username":"rds_admin"}`,
			}}),
			want: Credentials{Endpoint: "env-host", Database: "env_db", Username: "env_user", Password: "env_password"},
		},
		{
			name: "Capability constructor fails",
			env:  fullEnv,
			discoveryFn: func(ctx context.Context, region string) (discovery.DatabaseDiscovery, error) {
				return nil, errors.New("failed to load AWS config")
			},
			secretsFn: secretsOf(&mockSecretStore{}),
			want:      Credentials{Endpoint: "env-host", Database: "env_db", Username: "env_user", Password: "env_password"},
		},
		{
			name: "Capability constructor returns nothing",
			discoveryFn: func(ctx context.Context, region string) (discovery.DatabaseDiscovery, error) {
				return nil, nil
			},
			secretsFn: secretsOf(&mockSecretStore{}),
			want:      Credentials{Endpoint: "localhost", Database: "mydb", Username: "webapp_user", Password: "your_password"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Resolver{
				DiscoveryFn: tt.discoveryFn,
				SecretsFn:   tt.secretsFn,
				Getenv:      envFrom(tt.env),
				Defaults:    DefaultConfig(),
			}

			got := r.Resolve(context.Background())
			want := dbconfig.Settings{
				Region:   "us-east-1",
				SecretID: r.ResolveSecretID(),
				Endpoint: tt.want.Endpoint,
				Database: tt.want.Database,
				Username: tt.want.Username,
				Password: tt.want.Password,
			}
			if got != want {
				t.Errorf("Resolve() = %+v, want %+v", got, want)
			}
		})
	}
}

func TestResolver_FallbackNeverEmpty(t *testing.T) {
	envs := []map[string]string{
		nil,
		{"DB_HOST": "", "DB_NAME": "", "DB_USER": "", "DB_PASSWORD": ""},
		{"DB_HOST": "h"},
		{"AWS_REGION": "", "AWS_DEFAULT_REGION": "", "DB_SECRET_ARN": ""},
		fullEnv,
	}
	for _, vars := range envs {
		r := &Resolver{Getenv: envFrom(vars), Defaults: DefaultConfig()}
		s := r.Resolve(context.Background())
		for field, v := range map[string]string{
			"region": s.Region, "secret_id": s.SecretID, "endpoint": s.Endpoint,
			"database": s.Database, "username": s.Username, "password": s.Password,
		} {
			if v == "" {
				t.Errorf("env %v: %s is empty", vars, field)
			}
		}
	}
}

func TestResolver_ResolveRegion(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "AWS_REGION", env: map[string]string{"AWS_REGION": "eu-west-1"}, want: "eu-west-1"},
		{name: "AWS_REGION wins", env: map[string]string{"AWS_REGION": "eu-west-1", "AWS_DEFAULT_REGION": "us-west-2"}, want: "eu-west-1"},
		{name: "AWS_DEFAULT_REGION", env: map[string]string{"AWS_DEFAULT_REGION": "us-west-2"}, want: "us-west-2"},
		{name: "Default", want: "us-east-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Resolver{Getenv: envFrom(tt.env), Defaults: DefaultConfig()}
			if got := r.ResolveRegion(); got != tt.want {
				t.Errorf("ResolveRegion() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolver_RegionReachesRemoteConstruction(t *testing.T) {
	var discoveryRegion, secretsRegion string
	store := &mockSecretStore{payloads: map[string]string{
		DefaultConfig().SecretID: `{"username":"u","password":"p","dbname":"d"}`,
	}}

	r := &Resolver{
		DiscoveryFn: func(ctx context.Context, region string) (discovery.DatabaseDiscovery, error) {
			discoveryRegion = region
			return &mockDiscovery{instances: oneInstance}, nil
		},
		SecretsFn: func(ctx context.Context, region string) (secrets.SecretStore, error) {
			secretsRegion = region
			return store, nil
		},
		Getenv:   envFrom(map[string]string{"AWS_REGION": "eu-west-1"}),
		Defaults: DefaultConfig(),
	}

	got := r.Resolve(context.Background())
	if discoveryRegion != "eu-west-1" || secretsRegion != "eu-west-1" {
		t.Errorf("regions passed to constructors = %q, %q; want eu-west-1", discoveryRegion, secretsRegion)
	}
	if got.Region != "eu-west-1" {
		t.Errorf("Settings.Region = %q, want eu-west-1", got.Region)
	}
	if store.asked != DefaultConfig().SecretID {
		t.Errorf("secret asked = %q, want default id", store.asked)
	}
	if !store.closed {
		t.Error("secret store was not closed")
	}
}

func TestResolver_ResolveRemoteErrors(t *testing.T) {
	tests := []struct {
		name      string
		r         *Resolver
		wantStage string
		wantErr   error
	}{
		{
			name:      "Missing capability",
			r:         &Resolver{Defaults: DefaultConfig()},
			wantStage: StageCapability,
			wantErr:   ErrCapabilityMissing,
		},
		{
			name: "Empty instances",
			r: &Resolver{
				DiscoveryFn: discoveryOf(&mockDiscovery{}),
				SecretsFn:   secretsOf(&mockSecretStore{}),
				Defaults:    DefaultConfig(),
			},
			wantStage: StageDiscovery,
			wantErr:   discovery.ErrNoInstances,
		},
		{
			name: "Malformed payload",
			r: &Resolver{
				DiscoveryFn: discoveryOf(&mockDiscovery{instances: oneInstance}),
				SecretsFn:   secretsOf(&mockSecretStore{payloads: map[string]string{testSecretID: `[]`}}),
				Defaults:    DefaultConfig(),
			},
			wantStage: StagePayload,
			wantErr:   secrets.ErrMalformedPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.r.resolveRemote(context.Background(), "us-east-1", testSecretID)
			var rre *RemoteResolutionError
			if !errors.As(err, &rre) {
				t.Fatalf("resolveRemote() error = %v, want *RemoteResolutionError", err)
			}
			if rre.Stage != tt.wantStage {
				t.Errorf("Stage = %q, want %q", rre.Stage, tt.wantStage)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if got != (Credentials{}) {
				t.Errorf("partial result returned with error: %+v", got)
			}
		})
	}
}

func TestResolver_DiagnosticsNeverLogPassword(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))

	r := &Resolver{
		DiscoveryFn: discoveryOf(&mockDiscovery{instances: oneInstance}),
		SecretsFn: secretsOf(&mockSecretStore{payloads: map[string]string{
			testSecretID: `{"username":"rds_admin","password":"very-secret-pw","dbname":"orders"}`,
		}}),
		Getenv:   envFrom(map[string]string{"DB_SECRET_ARN": testSecretID}),
		Defaults: DefaultConfig(),
	}
	r.Resolve(context.Background())

	if strings.Contains(buf.String(), "very-secret-pw") {
		t.Fatalf("password leaked into diagnostics: %s", buf.String())
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 diagnostic records, got %d: %s", len(lines), buf.String())
	}

	var end map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &end); err != nil {
		t.Fatalf("bad log JSON: %v", err)
	}
	if end["msg"] != "db_settings_resolved" {
		t.Errorf("msg = %v", end["msg"])
	}
	if end["source"] != SourceRemote {
		t.Errorf("source = %v, want %q", end["source"], SourceRemote)
	}
	settings, ok := end["settings"].(map[string]any)
	if !ok {
		t.Fatalf("settings group missing: %s", lines[1])
	}
	if _, ok := settings["password"]; ok {
		t.Errorf("settings group carries a password key: %v", settings)
	}
	for k, want := range map[string]string{
		"region":   "us-east-1",
		"endpoint": "app-db.abc.eu-west-1.rds.amazonaws.com",
		"database": "orders",
		"username": "rds_admin",
	} {
		if settings[k] != want {
			t.Errorf("settings.%s = %v, want %q", k, settings[k], want)
		}
	}
}

func TestResolver_FallbackDiagnosticCarriesReason(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))

	r := &Resolver{Getenv: envFrom(fullEnv), Defaults: DefaultConfig()}
	r.Resolve(context.Background())

	out := buf.String()
	if strings.Contains(out, "env_password") {
		t.Fatalf("fallback password leaked into diagnostics: %s", out)
	}
	if !strings.Contains(out, `"source":"fallback"`) || !strings.Contains(out, `"fallback_stage":"capability"`) {
		t.Errorf("fallback record missing source or stage: %s", out)
	}
}

func TestNew(t *testing.T) {
	t.Setenv("AWS_REGION", "ap-southeast-2")
	r := New(nil, nil)
	if r.ResolveRegion() != "ap-southeast-2" {
		t.Errorf("New() resolver does not read the process environment")
	}
	if r.Defaults != DefaultConfig() {
		t.Errorf("New() defaults = %+v", r.Defaults)
	}
}
