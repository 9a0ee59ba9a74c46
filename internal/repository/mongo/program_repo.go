package mongo

import (
	"alcyxob/gym-app/internal/domain"
	"alcyxob/gym-app/internal/repository"
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoProgramRepository implements repository.ProgramRepository
type mongoProgramRepository struct {
	collection *mongo.Collection
}

// NewMongoProgramRepository creates a new Program repository.
func NewMongoProgramRepository(db *mongo.Database) repository.ProgramRepository {
	return &mongoProgramRepository{
		collection: db.Collection(programCollectionName),
	}
}

// Create inserts a new program. Aggregates always start at zero.
func (r *mongoProgramRepository) Create(ctx context.Context, program *domain.Program) (primitive.ObjectID, error) {
	if program.CoachID == primitive.NilObjectID || program.Title == "" {
		return primitive.NilObjectID, errors.New("program requires coachId and title")
	}
	program.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	program.CreatedAt = now
	program.UpdatedAt = now
	program.TotalEnrollments = 0
	program.AverageRating = 0
	if program.Exercises == nil {
		program.Exercises = []domain.Exercise{}
	}

	result, err := r.collection.InsertOne(ctx, program)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted program ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single program by its ID.
func (r *mongoProgramRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Program, error) {
	var program domain.Program
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&program); err != nil {
		return nil, notFoundOr(err)
	}
	return &program, nil
}

// GetByIDs retrieves the programs with the given IDs. Missing IDs are skipped.
func (r *mongoProgramRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Program, error) {
	if len(ids) == 0 {
		return []domain.Program{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, nil)
}

// List returns programs matching the filter, newest first.
func (r *mongoProgramRepository) List(ctx context.Context, filter repository.ProgramFilter) ([]domain.Program, error) {
	query := bson.M{}
	if filter.Query != "" {
		// User input is matched literally, case-insensitive
		query["title"] = primitive.Regex{Pattern: regexp.QuoteMeta(filter.Query), Options: "i"}
	}
	if filter.Level != "" {
		query["level"] = filter.Level
	}
	if filter.CoachID != nil {
		query["coachId"] = *filter.CoachID
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return r.find(ctx, query, findOptions)
}

// Update overwrites the editable fields of a program. Coach and aggregates are kept.
func (r *mongoProgramRepository) Update(ctx context.Context, program *domain.Program) error {
	program.UpdatedAt = time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"title":       program.Title,
			"description": program.Description,
			"level":       program.Level,
			"image":       program.Image,
			"exercises":   program.Exercises,
			"tags":        program.Tags,
			"updatedAt":   program.UpdatedAt,
		},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": program.ID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a program document.
func (r *mongoProgramRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// IncrementEnrollments atomically adds delta to the enrollment counter.
func (r *mongoProgramRepository) IncrementEnrollments(ctx context.Context, id primitive.ObjectID, delta int64) error {
	update := bson.M{"$inc": bson.M{"totalEnrollments": delta}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetAverageRating stores a freshly recomputed mean rating.
func (r *mongoProgramRepository) SetAverageRating(ctx context.Context, id primitive.ObjectID, avg float64) error {
	update := bson.M{"$set": bson.M{"averageRating": avg}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoProgramRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}

// TopByEnrollments returns the programs with the highest stored enrollment counters.
func (r *mongoProgramRepository) TopByEnrollments(ctx context.Context, limit int) ([]domain.Program, error) {
	findOptions := options.Find().
		SetSort(bson.D{{Key: "totalEnrollments", Value: -1}, {Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))
	return r.find(ctx, bson.M{}, findOptions)
}

// CountByCoach groups programs by coach and joins the coach's name.
func (r *mongoProgramRepository) CountByCoach(ctx context.Context, limit int) ([]domain.CoachProgramCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$coachId", "programCount": bson.M{"$sum": 1}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         userCollectionName,
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "coach",
		}}},
		{{Key: "$unwind", Value: "$coach"}},
		{{Key: "$project", Value: bson.M{"_id": 1, "programCount": 1, "name": "$coach.name"}}},
		{{Key: "$sort", Value: bson.D{{Key: "programCount", Value: -1}, {Key: "name", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	rows := []domain.CoachProgramCount{}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *mongoProgramRepository) find(ctx context.Context, filter bson.M, findOptions *options.FindOptions) ([]domain.Program, error) {
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	programs := []domain.Program{}
	if err = cursor.All(ctx, &programs); err != nil {
		return nil, err
	}
	return programs, nil
}

// EnsureProgramIndexes creates indexes for the programs collection.
func EnsureProgramIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "coachId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "level", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "totalEnrollments", Value: -1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
