package mongodb

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"db-bootstrap/pkg/dbconfig"
	"db-bootstrap/pkg/env"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Internal variables for testing
var (
	mongoConnect = mongo.Connect
)

const connectTimeout = 10 * time.Second

// ConnectMongo establishes a connection to MongoDB with the resolved
// settings and verifies it with a Ping.
func ConnectMongo(ctx context.Context, s dbconfig.Settings) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongoConnect(options.Client().ApplyURI(URI(s)))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Test connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return client, nil
}

// URI renders s as a mongodb:// connection string. The port comes from
// MONGO_PORT.
func URI(s dbconfig.Settings) string {
	u := url.URL{
		Scheme: "mongodb",
		Host:   net.JoinHostPort(s.Endpoint, env.Get("MONGO_PORT", "27017")),
		Path:   "/" + s.Database,
	}
	if s.Username != "" {
		u.User = url.UserPassword(s.Username, s.Password)
	}
	return u.String()
}
