//go:build integration

package mongo

import (
	"alcyxob/gym-app/internal/domain"
	"alcyxob/gym-app/internal/repository"
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var testClient *mongo.Client

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("could not create dockertest pool: %s", err)
	}
	if err = pool.Client.Ping(); err != nil {
		log.Fatalf("could not ping docker: %s", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mongo",
		Tag:        "7.0",
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("could not start mongo: %s", err)
	}

	uri := fmt.Sprintf("mongodb://localhost:%s", resource.GetPort("27017/tcp"))
	pool.MaxWait = time.Minute
	if err = pool.Retry(func() error {
		testClient, err = ConnectDB(uri)
		return err
	}); err != nil {
		_ = pool.Purge(resource)
		log.Fatalf("could not connect to mongo: %s", err)
	}

	code := m.Run()

	_ = DisconnectDB(testClient)
	if err = pool.Purge(resource); err != nil {
		log.Printf("could not purge mongo: %s", err)
	}
	os.Exit(code)
}

// newTestRepos returns repositories over a fresh database with indexes.
func newTestRepos(t *testing.T) *repository.Set {
	t.Helper()
	db := testClient.Database("gym_test_" + primitive.NewObjectID().Hex())
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
	})
	require.NoError(t, EnsureIndexes(context.Background(), db))
	// Running twice must be harmless
	require.NoError(t, EnsureIndexes(context.Background(), db))
	return NewRepositories(db)
}

func fakeUser(faker *gofakeit.Faker, role domain.Role) *domain.User {
	return &domain.User{
		Name:         faker.Name(),
		Email:        faker.Email(),
		PasswordHash: faker.Password(true, true, true, false, false, 20),
		Role:         role,
		IsActive:     true,
	}
}

func fakeProgram(faker *gofakeit.Faker, coachID primitive.ObjectID, level domain.Level) *domain.Program {
	return &domain.Program{
		Title:       faker.Sentence(3),
		Description: faker.Sentence(10),
		Level:       level,
		CoachID:     coachID,
		Exercises: []domain.Exercise{
			{ID: faker.UUID(), Name: faker.Noun(), Sets: 3, Reps: 10},
			{ID: faker.UUID(), Name: faker.Noun(), Sets: 4, Reps: 8},
		},
	}
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	faker := gofakeit.New(1)

	coach := fakeUser(faker, domain.RoleCoach)
	coachID, err := repos.Users.Create(ctx, coach)
	require.NoError(t, err)

	dup := fakeUser(faker, domain.RoleClient)
	dup.Email = coach.Email
	_, err = repos.Users.Create(ctx, dup)
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	client := fakeUser(faker, domain.RoleClient)
	clientID, err := repos.Users.Create(ctx, client)
	require.NoError(t, err)

	got, err := repos.Users.GetByEmail(ctx, coach.Email)
	require.NoError(t, err)
	assert.Equal(t, coachID, got.ID)

	name := "Renamed"
	require.NoError(t, repos.Users.UpdateProfile(ctx, clientID, repository.UserProfileUpdate{Name: &name}))
	require.NoError(t, repos.Users.SetActive(ctx, coachID, false))

	counts, err := repos.Users.CountActiveByRole(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), counts[domain.RoleCoach])
	assert.Equal(t, int64(1), counts[domain.RoleClient])

	role := domain.RoleClient
	clients, err := repos.Users.List(ctx, repository.UserFilter{Role: &role})
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "Renamed", clients[0].Name)

	require.NoError(t, repos.Users.Delete(ctx, clientID))
	_, err = repos.Users.GetByID(ctx, clientID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, repos.Users.Delete(ctx, clientID), repository.ErrNotFound)
}

func TestProgramsAndEnrollments(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	faker := gofakeit.New(2)

	coach := fakeUser(faker, domain.RoleCoach)
	coachID, err := repos.Users.Create(ctx, coach)
	require.NoError(t, err)

	program := fakeProgram(faker, coachID, domain.LevelAdvanced)
	program.Title = "Morning Yoga Flow"
	programID, err := repos.Programs.Create(ctx, program)
	require.NoError(t, err)
	otherID, err := repos.Programs.Create(ctx, fakeProgram(faker, coachID, domain.LevelBeginner))
	require.NoError(t, err)

	found, err := repos.Programs.List(ctx, repository.ProgramFilter{Query: "yoga"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, programID, found[0].ID)

	byCoach, err := repos.Programs.CountByCoach(ctx, 10)
	require.NoError(t, err)
	require.Len(t, byCoach, 1)
	assert.Equal(t, int64(2), byCoach[0].ProgramCount)
	assert.Equal(t, coach.Name, byCoach[0].Name)

	studentID, err := repos.Users.Create(ctx, fakeUser(faker, domain.RoleClient))
	require.NoError(t, err)

	enrollment := &domain.Enrollment{StudentID: studentID, ProgramID: programID, Status: domain.EnrollmentActive}
	enrollmentID, err := repos.Enrollments.Create(ctx, enrollment)
	require.NoError(t, err)
	_, err = repos.Enrollments.Create(ctx, &domain.Enrollment{StudentID: studentID, ProgramID: programID, Status: domain.EnrollmentActive})
	assert.ErrorIs(t, err, repository.ErrDuplicate, "unique index on (studentId, programId)")
	require.NoError(t, repos.Programs.IncrementEnrollments(ctx, programID, 1))

	completed := []string{program.Exercises[0].ID}
	require.NoError(t, repos.Enrollments.ApplyProgress(ctx, enrollmentID, domain.NewProgressUpdate(100, &completed, time.Now())))
	stored, err := repos.Enrollments.GetByStudentAndProgram(ctx, studentID, programID)
	require.NoError(t, err)
	assert.Equal(t, domain.EnrollmentCompleted, stored.Status)
	assert.Equal(t, completed, stored.CompletedExercises)
	assert.NotNil(t, stored.LastActivityDate)

	none, err := repos.Enrollments.List(ctx, repository.EnrollmentFilter{ProgramIDs: []primitive.ObjectID{}}, repository.SortByJoinedAt)
	require.NoError(t, err)
	assert.Empty(t, none)

	perProgram, err := repos.Enrollments.CountByProgram(ctx, []primitive.ObjectID{programID, otherID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), perProgram[programID])
	assert.Zero(t, perProgram[otherID])

	top, err := repos.Programs.TopByEnrollments(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, programID, top[0].ID)
	assert.Equal(t, int64(1), top[0].TotalEnrollments)

	_, err = repos.Enrollments.DeleteMany(ctx, repository.EnrollmentFilter{})
	assert.Error(t, err, "an empty filter never wipes the collection")
	deleted, err := repos.Enrollments.DeleteMany(ctx, repository.EnrollmentFilter{ProgramIDs: []primitive.ObjectID{programID}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestRatingsAndStatsHistory(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	faker := gofakeit.New(3)

	programID := primitive.NewObjectID()
	userA, userB := primitive.NewObjectID(), primitive.NewObjectID()

	first, err := repos.Ratings.Upsert(ctx, &domain.ProgramRating{ProgramID: programID, UserID: userA, Rating: 2})
	require.NoError(t, err)
	again, err := repos.Ratings.Upsert(ctx, &domain.ProgramRating{ProgramID: programID, UserID: userA, Rating: 4, Review: faker.Sentence(5)})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, first.CreatedAt.Unix(), again.CreatedAt.Unix())
	_, err = repos.Ratings.Upsert(ctx, &domain.ProgramRating{ProgramID: programID, UserID: userB, Rating: 5})
	require.NoError(t, err)

	ratings, err := repos.Ratings.ListByProgram(ctx, programID)
	require.NoError(t, err)
	require.Len(t, ratings, 2)
	assert.InDelta(t, 4.5, domain.MeanRating(ratings), 0.001)

	summary, err := repos.Ratings.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Count)
	assert.InDelta(t, 4.5, summary.Average, 0.001)

	removed, err := repos.Ratings.DeleteByUser(ctx, userA)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	start := time.Now().Add(-10 * 24 * time.Hour)
	for i := 0; i < 5; i++ {
		weight := faker.Float64Range(60, 90)
		_, err = repos.StatsHistory.Append(ctx, &domain.StatsHistory{
			UserID:     userA,
			Weight:     &weight,
			RecordedAt: start.Add(time.Duration(i) * 48 * time.Hour),
		})
		require.NoError(t, err)
	}
	since := time.Now().Add(-5 * 24 * time.Hour)
	recent, err := repos.StatsHistory.ListByUser(ctx, userA, repository.StatsQuery{Since: &since})
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	newest, err := repos.StatsHistory.ListByUser(ctx, userA, repository.StatsQuery{Limit: 1, NewestFirst: true})
	require.NoError(t, err)
	require.Len(t, newest, 1)
	assert.True(t, newest[0].RecordedAt.After(since))
}
