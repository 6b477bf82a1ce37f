package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/adrecipro/adquiz/internal/core/domain"
)

const defaultTimeout = 10 * time.Second

const (
	collectionUsers       = "users"
	collectionAds         = "advertisements"
	collectionResolutions = "resolutions"
)

// writeConflictCode is the server code for a write that lost an optimistic
// concurrency race.
const writeConflictCode = 112

// fieldAppliedOps holds a record's recent operation keys, newest last.
const fieldAppliedOps = "applied_ops"

// onceFilter matches the record only while opKey is not in its window.
func onceFilter(id, opKey string) bson.M {
	return bson.M{"_id": id, fieldAppliedOps: bson.M{"$ne": opKey}}
}

// pushApplied appends opKey to the window and trims it to the newest entries.
func pushApplied(opKey string) bson.M {
	return bson.M{fieldAppliedOps: bson.M{
		"$each":  bson.A{opKey},
		"$slice": -domain.AppliedOpsWindow,
	}}
}

// Config captures the minimal settings required to establish a MongoDB connection.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Connect establishes a MongoDB client, verifies connectivity with a ping, and
// returns both the client and the selected database. A default timeout is
// applied when none is provided.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(cfg.Database)
	return client, db, nil
}

// EnsureIndexes creates the indexes of every collection the service uses.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	if err := NewUserRepository(db).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("user indexes: %w", err)
	}
	if err := NewAdRepository(db).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ad indexes: %w", err)
	}
	return nil
}

// classify maps driver errors the services act on to domain errors.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorCode(writeConflictCode) {
		return fmt.Errorf("%w: %v", domain.ErrWriteConflict, err)
	}
	return err
}
