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

// mongoEnrollmentRepository implements repository.EnrollmentRepository
type mongoEnrollmentRepository struct {
	collection *mongo.Collection
}

// NewMongoEnrollmentRepository creates a new enrollment repository.
func NewMongoEnrollmentRepository(db *mongo.Database) repository.EnrollmentRepository {
	return &mongoEnrollmentRepository{
		collection: db.Collection(enrollmentCollectionName),
	}
}

// Create inserts a new enrollment. The unique (studentId, programId) index
// turns a concurrent second enroll into repository.ErrDuplicate.
func (r *mongoEnrollmentRepository) Create(ctx context.Context, enrollment *domain.Enrollment) (primitive.ObjectID, error) {
	if enrollment.StudentID == primitive.NilObjectID || enrollment.ProgramID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("enrollment requires studentId and programId")
	}

	enrollment.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	if enrollment.JoinedAt.IsZero() {
		enrollment.JoinedAt = now
	}
	if enrollment.Status == "" {
		enrollment.Status = domain.EnrollmentActive
	}
	if enrollment.CompletedExercises == nil {
		enrollment.CompletedExercises = []string{}
	}
	enrollment.CreatedAt = now
	enrollment.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, enrollment)
	if err != nil {
		return primitive.NilObjectID, duplicateOr(err)
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted enrollment ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single enrollment by its ID.
func (r *mongoEnrollmentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Enrollment, error) {
	var enrollment domain.Enrollment
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&enrollment); err != nil {
		return nil, notFoundOr(err)
	}
	return &enrollment, nil
}

// GetByStudentAndProgram retrieves the enrollment of a student in a program.
func (r *mongoEnrollmentRepository) GetByStudentAndProgram(ctx context.Context, studentID, programID primitive.ObjectID) (*domain.Enrollment, error) {
	var enrollment domain.Enrollment
	filter := bson.M{"studentId": studentID, "programId": programID}
	if err := r.collection.FindOne(ctx, filter).Decode(&enrollment); err != nil {
		return nil, notFoundOr(err)
	}
	return &enrollment, nil
}

// List returns matching enrollments, newest first by the chosen timestamp.
func (r *mongoEnrollmentRepository) List(ctx context.Context, filter repository.EnrollmentFilter, sortBy repository.EnrollmentSort) ([]domain.Enrollment, error) {
	if matchesNothing(filter) {
		return []domain.Enrollment{}, nil
	}
	if sortBy == "" {
		sortBy = repository.SortByJoinedAt
	}
	findOptions := options.Find().SetSort(bson.D{{Key: string(sortBy), Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := r.collection.Find(ctx, enrollmentQuery(filter), findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	enrollments := []domain.Enrollment{}
	if err = cursor.All(ctx, &enrollments); err != nil {
		return nil, err
	}
	return enrollments, nil
}

// ApplyProgress writes a progress update. Only the fields carried by the update are set.
func (r *mongoEnrollmentRepository) ApplyProgress(ctx context.Context, id primitive.ObjectID, upd domain.ProgressUpdate) error {
	set := bson.M{
		"progress":         upd.Progress,
		"lastActivityDate": upd.At,
		"updatedAt":        upd.At,
	}
	if upd.CompletedExercises != nil {
		set["completedExercises"] = *upd.CompletedExercises
	}
	if upd.Status != nil {
		set["status"] = *upd.Status
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a single enrollment.
func (r *mongoEnrollmentRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteMany removes every enrollment matching the filter.
func (r *mongoEnrollmentRepository) DeleteMany(ctx context.Context, filter repository.EnrollmentFilter) (int64, error) {
	if matchesNothing(filter) {
		return 0, nil
	}
	query := enrollmentQuery(filter)
	if len(query) == 0 {
		return 0, errors.New("refusing to delete enrollments without a filter")
	}
	result, err := r.collection.DeleteMany(ctx, query)
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (r *mongoEnrollmentRepository) Count(ctx context.Context, filter repository.EnrollmentFilter) (int64, error) {
	if matchesNothing(filter) {
		return 0, nil
	}
	return r.collection.CountDocuments(ctx, enrollmentQuery(filter))
}

// CountByProgram counts enrollment records per program. Programs without
// enrollments are present with a zero count.
func (r *mongoEnrollmentRepository) CountByProgram(ctx context.Context, programIDs []primitive.ObjectID) (map[primitive.ObjectID]int64, error) {
	counts := make(map[primitive.ObjectID]int64, len(programIDs))
	if len(programIDs) == 0 {
		return counts, nil
	}
	for _, id := range programIDs {
		counts[id] = 0
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"programId": bson.M{"$in": programIDs}}}},
		{{Key: "$group", Value: bson.M{"_id": "$programId", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ProgramID primitive.ObjectID `bson:"_id"`
		Count     int64              `bson:"count"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.ProgramID] = row.Count
	}
	return counts, nil
}

// DistinctStudents returns the distinct student IDs among matching enrollments.
func (r *mongoEnrollmentRepository) DistinctStudents(ctx context.Context, filter repository.EnrollmentFilter) ([]primitive.ObjectID, error) {
	if matchesNothing(filter) {
		return []primitive.ObjectID{}, nil
	}
	values, err := r.collection.Distinct(ctx, "studentId", enrollmentQuery(filter))
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(values))
	for _, v := range values {
		if id, ok := v.(primitive.ObjectID); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// matchesNothing reports whether the filter restricts to an empty program set.
func matchesNothing(filter repository.EnrollmentFilter) bool {
	return filter.ProgramIDs != nil && len(filter.ProgramIDs) == 0
}

func enrollmentQuery(filter repository.EnrollmentFilter) bson.M {
	query := bson.M{}
	if filter.StudentID != nil {
		query["studentId"] = *filter.StudentID
	}
	if filter.ProgramIDs != nil {
		query["programId"] = bson.M{"$in": filter.ProgramIDs}
	}
	if filter.Status != nil {
		query["status"] = *filter.Status
	}
	return query
}

// EnsureEnrollmentIndexes creates indexes for the enrollments collection.
func EnsureEnrollmentIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// One enrollment per student and program
			Keys:    bson.D{{Key: "studentId", Value: 1}, {Key: "programId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "programId", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "studentId", Value: 1}, {Key: "joinedAt", Value: -1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
