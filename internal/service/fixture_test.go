package service

import (
	"alcyxob/gym-app/internal/domain"
	"alcyxob/gym-app/internal/repository"
	"alcyxob/gym-app/internal/repository/memory"
	"alcyxob/gym-app/internal/storage"
	"alcyxob/gym-app/internal/telemetry/metrics"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/goleak"
)

// TestMain will run goleak after all tests have been run in the package
// to detect any goroutine leaks
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testJWTSecret = "test-secret"

// setClock pins the package clock to at until the test ends.
func setClock(t *testing.T, at time.Time) {
	t.Helper()
	previous := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = previous })
}

type fixture struct {
	ctx     context.Context
	store   *memory.Store
	metrics *metrics.Manager

	users       repository.UserRepository
	programs    repository.ProgramRepository
	enrollments repository.EnrollmentRepository
	ratings     repository.RatingRepository
	history     repository.StatsHistoryRepository

	auth       AuthService
	userSvc    UserService
	programSvc ProgramService
	enrollSvc  EnrollmentService
	progress   ProgressService
	ratingSvc  RatingService
	stats      StatsService
	analytics  AnalyticsService
}

// newFixture wires every service over a fresh in-memory store. fileStorage
// may be nil to run with uploads disabled.
func newFixture(t *testing.T, fileStorage storage.FileStorage) *fixture {
	t.Helper()
	store := memory.NewStore()
	f := &fixture{
		ctx:         context.Background(),
		store:       store,
		metrics:     metrics.NewTestManager(),
		users:       store.Users(),
		programs:    store.Programs(),
		enrollments: store.Enrollments(),
		ratings:     store.Ratings(),
		history:     store.StatsHistory(),
	}
	f.auth = NewAuthService(f.users, testJWTSecret, time.Hour)
	f.userSvc = NewUserService(f.users, f.programs, f.enrollments, f.ratings, fileStorage)
	f.programSvc = NewProgramService(f.users, f.programs, f.enrollments, f.ratings, fileStorage)
	f.enrollSvc = NewEnrollmentService(f.users, f.programs, f.enrollments, f.metrics)
	f.progress = NewProgressService(f.programs, f.enrollments)
	f.ratingSvc = NewRatingService(f.users, f.programs, f.ratings, f.metrics)
	f.stats = NewStatsService(f.users, f.history, DefaultStatsWindow)
	f.analytics = NewAnalyticsService(f.users, f.programs, f.enrollments, f.ratings, DefaultAnalyticsLimits)
	return f
}

// newUser stores an active user directly, skipping password hashing.
func (f *fixture) newUser(t *testing.T, role domain.Role, name string) domain.Identity {
	t.Helper()
	user := &domain.User{
		Name:         name,
		Email:        strings.ToLower(name) + "-" + primitive.NewObjectID().Hex() + "@example.com",
		PasswordHash: "not-a-real-hash",
		Role:         role,
		IsActive:     true,
	}
	_, err := f.users.Create(f.ctx, user)
	require.NoError(t, err)
	return domain.Identity{UserID: user.ID, Role: role}
}

func (f *fixture) newProgram(t *testing.T, coach domain.Identity, title string, exercises ...string) *domain.Program {
	t.Helper()
	in := ProgramInput{Title: title, Level: string(domain.LevelBeginner)}
	for _, name := range exercises {
		in.Exercises = append(in.Exercises, ExerciseInput{Name: name, Sets: 3, Reps: 10})
	}
	program, err := f.programSvc.Create(f.ctx, coach, in)
	require.NoError(t, err)
	return program
}

func (f *fixture) enroll(t *testing.T, student domain.Identity, program *domain.Program) *domain.Enrollment {
	t.Helper()
	enrollment, err := f.enrollSvc.Enroll(f.ctx, student, student.UserID, program.ID)
	require.NoError(t, err)
	return enrollment
}

func (f *fixture) reloadProgram(t *testing.T, id primitive.ObjectID) *domain.Program {
	t.Helper()
	program, err := f.programs.GetByID(f.ctx, id)
	require.NoError(t, err)
	return program
}

func admin() domain.Identity {
	return domain.Identity{UserID: primitive.NewObjectID(), Role: domain.RoleAdmin}
}

func floatPtr(v float64) *float64 {
	return &v
}
