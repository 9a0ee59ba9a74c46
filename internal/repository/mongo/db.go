package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/multierr"

	"alcyxob/gym-app/internal/repository"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

// Collection names
const (
	userCollectionName         = "users"
	programCollectionName      = "programs"
	enrollmentCollectionName   = "enrollments"
	ratingCollectionName       = "program_ratings"
	statsHistoryCollectionName = "stats_history"
)

// ConnectDB establishes a connection to MongoDB using the provided URI.
// It returns the mongo.Client which can be used to access databases and collections.
func ConnectDB(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	// Ping the primary node to verify the connection.
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()

	if err = client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, err
	}

	return client, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes of every collection. The unique compound
// indexes on enrollments and ratings are what enforces the one-per-pair rules
// under concurrent writes, so a failure here should not be ignored.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	return multierr.Combine(
		EnsureUserIndexes(ctx, db.Collection(userCollectionName)),
		EnsureProgramIndexes(ctx, db.Collection(programCollectionName)),
		EnsureEnrollmentIndexes(ctx, db.Collection(enrollmentCollectionName)),
		EnsureRatingIndexes(ctx, db.Collection(ratingCollectionName)),
		EnsureStatsHistoryIndexes(ctx, db.Collection(statsHistoryCollectionName)),
	)
}

// NewRepositories creates all repositories over the given database.
func NewRepositories(db *mongo.Database) *repository.Set {
	return &repository.Set{
		Users:        NewMongoUserRepository(db),
		Programs:     NewMongoProgramRepository(db),
		Enrollments:  NewMongoEnrollmentRepository(db),
		Ratings:      NewMongoRatingRepository(db),
		StatsHistory: NewMongoStatsHistoryRepository(db),
	}
}

// notFoundOr maps mongo.ErrNoDocuments to repository.ErrNotFound.
func notFoundOr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	return err
}

// duplicateOr maps duplicate key errors to repository.ErrDuplicate.
func duplicateOr(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return repository.ErrDuplicate
	}
	return err
}
