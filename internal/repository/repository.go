package repository

import (
	"alcyxob/gym-app/internal/domain" // Import our defined domain models
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive" // For using ObjectIDs
)

// Error constants for repository layer
var (
	ErrNotFound  = RepositoryError("not found")
	ErrDuplicate = RepositoryError("duplicate key")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// Set bundles one implementation of every repository.
type Set struct {
	Users        UserRepository
	Programs     ProgramRepository
	Enrollments  EnrollmentRepository
	Ratings      RatingRepository
	StatsHistory StatsHistoryRepository
}

// UserFilter narrows user listings. Zero value lists everyone.
type UserFilter struct {
	Role       *domain.Role
	ActiveOnly bool
}

// UserProfileUpdate holds the profile fields a user may change. Nil fields are left untouched.
type UserProfileUpdate struct {
	Name  *string
	Image *string
	Age   *int
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, upd UserProfileUpdate) error
	SetActive(ctx context.Context, id primitive.ObjectID, active bool) error
	SetPhysicalStats(ctx context.Context, id primitive.ObjectID, stats domain.PhysicalStats) error
	Delete(ctx context.Context, id primitive.ObjectID) error

	// Analytics
	CountActiveByRole(ctx context.Context) (map[domain.Role]int64, error)
	ListRecentActive(ctx context.Context, limit int) ([]domain.User, error)
}

// ProgramFilter narrows program listings. Query is a case-insensitive title search.
type ProgramFilter struct {
	Query   string
	Level   domain.Level
	CoachID *primitive.ObjectID
}

// ProgramRepository defines the interface for interacting with program data.
type ProgramRepository interface {
	Create(ctx context.Context, program *domain.Program) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Program, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Program, error)
	List(ctx context.Context, filter ProgramFilter) ([]domain.Program, error)
	Update(ctx context.Context, program *domain.Program) error
	Delete(ctx context.Context, id primitive.ObjectID) error

	// Denormalized aggregates
	IncrementEnrollments(ctx context.Context, id primitive.ObjectID, delta int64) error
	SetAverageRating(ctx context.Context, id primitive.ObjectID, avg float64) error

	// Analytics
	Count(ctx context.Context) (int64, error)
	TopByEnrollments(ctx context.Context, limit int) ([]domain.Program, error)
	CountByCoach(ctx context.Context, limit int) ([]domain.CoachProgramCount, error)
}

// EnrollmentFilter narrows enrollment queries. A nil ProgramIDs means any
// program; a non-nil empty slice matches nothing.
type EnrollmentFilter struct {
	StudentID  *primitive.ObjectID
	ProgramIDs []primitive.ObjectID
	Status     *domain.EnrollmentStatus
}

// EnrollmentRepository defines the interface for interacting with enrollment data.
type EnrollmentRepository interface {
	// Create fails with ErrDuplicate when the (student, program) pair already exists.
	Create(ctx context.Context, enrollment *domain.Enrollment) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Enrollment, error)
	GetByStudentAndProgram(ctx context.Context, studentID, programID primitive.ObjectID) (*domain.Enrollment, error)
	// List returns matching enrollments sorted by the given field, newest first.
	List(ctx context.Context, filter EnrollmentFilter, sortBy EnrollmentSort) ([]domain.Enrollment, error)
	ApplyProgress(ctx context.Context, id primitive.ObjectID, upd domain.ProgressUpdate) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteMany(ctx context.Context, filter EnrollmentFilter) (int64, error)

	// Analytics
	Count(ctx context.Context, filter EnrollmentFilter) (int64, error)
	CountByProgram(ctx context.Context, programIDs []primitive.ObjectID) (map[primitive.ObjectID]int64, error)
	DistinctStudents(ctx context.Context, filter EnrollmentFilter) ([]primitive.ObjectID, error)
}

// EnrollmentSort selects the timestamp enrollment listings are ordered by.
type EnrollmentSort string

const (
	SortByJoinedAt     EnrollmentSort = "joinedAt"
	SortByCreatedAt    EnrollmentSort = "createdAt"
	SortByLastActivity EnrollmentSort = "lastActivityDate"
)

// RatingRepository defines the interface for interacting with program ratings.
type RatingRepository interface {
	// Upsert inserts or overwrites the rating keyed by (ProgramID, UserID).
	Upsert(ctx context.Context, rating *domain.ProgramRating) (*domain.ProgramRating, error)
	// ListByProgram returns a program's ratings, most recently updated first.
	ListByProgram(ctx context.Context, programID primitive.ObjectID) ([]domain.ProgramRating, error)
	ListByPrograms(ctx context.Context, programIDs []primitive.ObjectID) ([]domain.ProgramRating, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.ProgramRating, error)
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error)
	DeleteByPrograms(ctx context.Context, programIDs []primitive.ObjectID) (int64, error)

	// Analytics
	Summary(ctx context.Context) (domain.RatingSummary, error)
}

// StatsQuery narrows a user's stats history. Zero Limit means no limit.
type StatsQuery struct {
	Since       *time.Time
	Limit       int
	NewestFirst bool
}

// StatsHistoryRepository defines the interface for the append-only stats history.
type StatsHistoryRepository interface {
	Append(ctx context.Context, entry *domain.StatsHistory) (primitive.ObjectID, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID, query StatsQuery) ([]domain.StatsHistory, error)
}
