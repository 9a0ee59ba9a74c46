package mongo

import (
	"alcyxob/gym-app/internal/domain"
	"alcyxob/gym-app/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoStatsHistoryRepository struct {
	collection *mongo.Collection
}

// NewMongoStatsHistoryRepository creates the append-only stats history repository.
func NewMongoStatsHistoryRepository(db *mongo.Database) repository.StatsHistoryRepository {
	return &mongoStatsHistoryRepository{
		collection: db.Collection(statsHistoryCollectionName),
	}
}

// Append stores a new snapshot. Entries are never updated.
func (r *mongoStatsHistoryRepository) Append(ctx context.Context, entry *domain.StatsHistory) (primitive.ObjectID, error) {
	if entry.UserID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("stats history entry requires userId")
	}
	entry.ID = primitive.NewObjectID()
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}

	result, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted stats history ID")
	}
	return insertedID, nil
}

// ListByUser returns a user's snapshots ordered by recordedAt.
func (r *mongoStatsHistoryRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, query repository.StatsQuery) ([]domain.StatsHistory, error) {
	filter := bson.M{"userId": userID}
	if query.Since != nil {
		filter["recordedAt"] = bson.M{"$gte": *query.Since}
	}

	direction := 1
	if query.NewestFirst {
		direction = -1
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "recordedAt", Value: direction}})
	if query.Limit > 0 {
		findOptions.SetLimit(int64(query.Limit))
	}

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	history := []domain.StatsHistory{}
	if err = cursor.All(ctx, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// EnsureStatsHistoryIndexes creates indexes for the stats_history collection.
func EnsureStatsHistoryIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "recordedAt", Value: -1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
