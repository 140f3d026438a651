package resolver

// Credentials is the connection part of the settings: where to connect and
// as whom.
type Credentials struct {
	Endpoint string
	Database string
	Username string
	Password string
}

// SecretDefaults fill payload keys missing from an otherwise valid secret.
type SecretDefaults struct {
	Username string
	Password string
	Database string
}

// Defaults collects every literal the resolver can fall back to.
type Defaults struct {
	Region   string
	SecretID string

	// Fallback is used as a whole whenever remote resolution fails, after
	// the DB_* environment overrides.
	Fallback Credentials

	// Secret applies per key when the secret omits it. The environment is
	// not consulted on that path.
	Secret SecretDefaults
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Defaults {
	return Defaults{
		Region:   "us-east-1",
		SecretID: "arn:aws:secretsmanager:us-east-1:000000000000:secret:db-credentials",
		Fallback: Credentials{
			Endpoint: "localhost",
			Database: "mydb",
			Username: "webapp_user",
			Password: "your_password",
		},
		Secret: SecretDefaults{
			Username: "admin",
			Password: "",
			Database: "mydb",
		},
	}
}
