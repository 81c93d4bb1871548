package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo connects to MongoDB and verifies the connection.
func ConnectMongo(uri, dbName string) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return client.Database(dbName), nil
}

// MongoPinger adapts a Mongo database to the readiness probe.
type MongoPinger struct {
	db *mongo.Database
}

// NewMongoPinger wraps the database for health checks.
func NewMongoPinger(db *mongo.Database) MongoPinger {
	return MongoPinger{db: db}
}

func (p MongoPinger) Ping(ctx context.Context) error {
	return p.db.Client().Ping(ctx, nil)
}
