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

type mongoRatingRepository struct {
	collection *mongo.Collection
}

// NewMongoRatingRepository creates a new program rating repository.
func NewMongoRatingRepository(db *mongo.Database) repository.RatingRepository {
	return &mongoRatingRepository{
		collection: db.Collection(ratingCollectionName),
	}
}

// Upsert inserts or overwrites the rating of (programId, userId) in a single
// atomic operation and returns the stored document.
func (r *mongoRatingRepository) Upsert(ctx context.Context, rating *domain.ProgramRating) (*domain.ProgramRating, error) {
	if rating.ProgramID == primitive.NilObjectID || rating.UserID == primitive.NilObjectID {
		return nil, errors.New("rating requires programId and userId")
	}
	now := time.Now().UTC()
	filter := bson.M{"programId": rating.ProgramID, "userId": rating.UserID}
	update := bson.M{
		"$set": bson.M{
			"rating":    rating.Rating,
			"review":    rating.Review,
			"updatedAt": now,
		},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var stored domain.ProgramRating
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored)
	if err != nil {
		// Two first-time upserts racing on the unique index; the loser retries as an update.
		if mongo.IsDuplicateKeyError(err) {
			err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored)
		}
		if err != nil {
			return nil, err
		}
	}
	return &stored, nil
}

// ListByProgram returns a program's ratings, most recently updated first.
func (r *mongoRatingRepository) ListByProgram(ctx context.Context, programID primitive.ObjectID) ([]domain.ProgramRating, error) {
	return r.find(ctx, bson.M{"programId": programID})
}

func (r *mongoRatingRepository) ListByPrograms(ctx context.Context, programIDs []primitive.ObjectID) ([]domain.ProgramRating, error) {
	if len(programIDs) == 0 {
		return []domain.ProgramRating{}, nil
	}
	return r.find(ctx, bson.M{"programId": bson.M{"$in": programIDs}})
}

func (r *mongoRatingRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.ProgramRating, error) {
	return r.find(ctx, bson.M{"userId": userID})
}

func (r *mongoRatingRepository) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"userId": userID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (r *mongoRatingRepository) DeleteByPrograms(ctx context.Context, programIDs []primitive.ObjectID) (int64, error) {
	if len(programIDs) == 0 {
		return 0, nil
	}
	result, err := r.collection.DeleteMany(ctx, bson.M{"programId": bson.M{"$in": programIDs}})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// Summary averages every rating in the system.
func (r *mongoRatingRepository) Summary(ctx context.Context) (domain.RatingSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":          nil,
			"avgRating":    bson.M{"$avg": "$rating"},
			"totalRatings": bson.M{"$sum": 1},
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return domain.RatingSummary{}, err
	}
	defer cursor.Close(ctx)

	var rows []domain.RatingSummary
	if err = cursor.All(ctx, &rows); err != nil {
		return domain.RatingSummary{}, err
	}
	if len(rows) == 0 {
		return domain.RatingSummary{}, nil
	}
	return rows[0], nil
}

func (r *mongoRatingRepository) find(ctx context.Context, filter bson.M) ([]domain.ProgramRating, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	ratings := []domain.ProgramRating{}
	if err = cursor.All(ctx, &ratings); err != nil {
		return nil, err
	}
	return ratings, nil
}

// EnsureRatingIndexes creates indexes for the program_ratings collection.
func EnsureRatingIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// One rating per user and program
			Keys:    bson.D{{Key: "programId", Value: 1}, {Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
