// Package dbconfig holds the resolved database connection settings and the
// renderings other processes consume them in.
package dbconfig

import "log/slog"

// Settings is the connection record produced once per process start.
type Settings struct {
	Region   string `json:"region" yaml:"region"`
	SecretID string `json:"secret_id" yaml:"secret_id"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
	Database string `json:"database" yaml:"database"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
}

// LogValue keeps the password out of every slog record.
func (s Settings) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("region", s.Region),
		slog.String("endpoint", s.Endpoint),
		slog.String("database", s.Database),
		slog.String("username", s.Username),
	)
}
