package memory

import (
	"alcyxob/gym-app/internal/domain"
	"alcyxob/gym-app/internal/repository"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeClock advances by one minute on every read.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

func newTestStore() *Store {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return NewStore().WithClock(clock.now)
}

func TestUsers_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	users := newTestStore().Users()

	age := 30
	user := &domain.User{Name: "Ann", Email: "ann@example.com", PasswordHash: "h", Role: domain.RoleClient, Age: &age, IsActive: true}
	id, err := users.Create(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	_, err = users.Create(ctx, &domain.User{Email: "ann@example.com", PasswordHash: "h", Role: domain.RoleCoach})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
	_, err = users.Create(ctx, &domain.User{Email: "x@example.com", Role: domain.RoleCoach})
	assert.Error(t, err)

	got, err := users.GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)

	// Returned values are copies
	*got.Age = 99
	again, err := users.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 30, *again.Age)

	_, err = users.GetByID(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, users.SetActive(ctx, primitive.NewObjectID(), true), repository.ErrNotFound)

	byIDs, err := users.GetByIDs(ctx, []primitive.ObjectID{id, id, primitive.NewObjectID()})
	require.NoError(t, err)
	assert.Len(t, byIDs, 1)
}

func TestUsers_ListAndCounts(t *testing.T) {
	ctx := context.Background()
	users := newTestStore().Users()

	mk := func(email string, role domain.Role, active bool) primitive.ObjectID {
		id, err := users.Create(ctx, &domain.User{Email: email, PasswordHash: "h", Role: role, IsActive: active})
		require.NoError(t, err)
		return id
	}
	first := mk("a@example.com", domain.RoleCoach, true)
	mk("b@example.com", domain.RoleCoach, false)
	last := mk("c@example.com", domain.RoleClient, true)

	coach := domain.RoleCoach
	coaches, err := users.List(ctx, repository.UserFilter{Role: &coach})
	require.NoError(t, err)
	assert.Len(t, coaches, 2)

	active, err := users.List(ctx, repository.UserFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, last, active[0].ID)
	assert.Equal(t, first, active[1].ID)

	counts, err := users.CountActiveByRole(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[domain.RoleCoach])
	assert.Equal(t, int64(1), counts[domain.RoleClient])
	assert.Equal(t, int64(0), counts[domain.RoleAdmin])

	recent, err := users.ListRecentActive(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, last, recent[0].ID)
}

func TestPrograms_AggregatesAndCountByCoach(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	users, programs := store.Users(), store.Programs()

	coachID, err := users.Create(ctx, &domain.User{Name: "Coach", Email: "c@example.com", PasswordHash: "h", Role: domain.RoleCoach})
	require.NoError(t, err)
	ghostID := primitive.NewObjectID()

	mk := func(coach primitive.ObjectID, title string) primitive.ObjectID {
		id, err := programs.Create(ctx, &domain.Program{CoachID: coach, Title: title, TotalEnrollments: 50})
		require.NoError(t, err)
		return id
	}
	a := mk(coachID, "A")
	b := mk(coachID, "B")
	mk(ghostID, "Orphan")

	created, err := programs.GetByID(ctx, a)
	require.NoError(t, err)
	assert.Zero(t, created.TotalEnrollments, "counters start at zero")

	require.NoError(t, programs.IncrementEnrollments(ctx, b, 2))
	require.NoError(t, programs.SetAverageRating(ctx, b, 4.5))
	assert.ErrorIs(t, programs.IncrementEnrollments(ctx, primitive.NewObjectID(), 1), repository.ErrNotFound)

	top, err := programs.TopByEnrollments(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, b, top[0].ID)
	assert.Equal(t, 4.5, top[0].AverageRating)

	// Update leaves the aggregates alone
	top[0].Title = "B2"
	top[0].TotalEnrollments = 0
	require.NoError(t, programs.Update(ctx, &top[0]))
	reloaded, err := programs.GetByID(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, "B2", reloaded.Title)
	assert.Equal(t, int64(2), reloaded.TotalEnrollments)

	rows, err := programs.CountByCoach(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.CoachProgramCount{CoachID: coachID, Name: "Coach", ProgramCount: 2}, rows[0])

	count, err := programs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestEnrollments_UniqueAndFilters(t *testing.T) {
	ctx := context.Background()
	enrollments := newTestStore().Enrollments()
	student, other := primitive.NewObjectID(), primitive.NewObjectID()
	p1, p2 := primitive.NewObjectID(), primitive.NewObjectID()

	e1 := &domain.Enrollment{StudentID: student, ProgramID: p1}
	_, err := enrollments.Create(ctx, e1)
	require.NoError(t, err)
	assert.Equal(t, domain.EnrollmentActive, e1.Status)
	assert.NotNil(t, e1.CompletedExercises)

	_, err = enrollments.Create(ctx, &domain.Enrollment{StudentID: student, ProgramID: p1})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	_, err = enrollments.Create(ctx, &domain.Enrollment{StudentID: student, ProgramID: p2})
	require.NoError(t, err)
	_, err = enrollments.Create(ctx, &domain.Enrollment{StudentID: other, ProgramID: p1})
	require.NoError(t, err)

	count, err := enrollments.Count(ctx, repository.EnrollmentFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	count, err = enrollments.Count(ctx, repository.EnrollmentFilter{ProgramIDs: []primitive.ObjectID{}})
	require.NoError(t, err)
	assert.Zero(t, count, "empty program list matches nothing")

	byProgram, err := enrollments.CountByProgram(ctx, []primitive.ObjectID{p1, p2, primitive.NewObjectID()})
	require.NoError(t, err)
	assert.Equal(t, int64(2), byProgram[p1])
	assert.Equal(t, int64(1), byProgram[p2])
	assert.Len(t, byProgram, 3)

	students, err := enrollments.DistinctStudents(ctx, repository.EnrollmentFilter{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []primitive.ObjectID{student, other}, students)

	_, err = enrollments.DeleteMany(ctx, repository.EnrollmentFilter{})
	assert.Error(t, err)
	removed, err := enrollments.DeleteMany(ctx, repository.EnrollmentFilter{StudentID: &student})
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
}

func TestEnrollments_ProgressAndSort(t *testing.T) {
	ctx := context.Background()
	enrollments := newTestStore().Enrollments()
	student := primitive.NewObjectID()

	first := &domain.Enrollment{StudentID: student, ProgramID: primitive.NewObjectID()}
	second := &domain.Enrollment{StudentID: student, ProgramID: primitive.NewObjectID()}
	_, err := enrollments.Create(ctx, first)
	require.NoError(t, err)
	_, err = enrollments.Create(ctx, second)
	require.NoError(t, err)

	byJoined, err := enrollments.List(ctx, repository.EnrollmentFilter{StudentID: &student}, repository.SortByJoinedAt)
	require.NoError(t, err)
	require.Len(t, byJoined, 2)
	assert.Equal(t, second.ID, byJoined[0].ID)

	completed := []string{"a"}
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, enrollments.ApplyProgress(ctx, first.ID, domain.NewProgressUpdate(100, &completed, at)))

	byActivity, err := enrollments.List(ctx, repository.EnrollmentFilter{StudentID: &student}, repository.SortByLastActivity)
	require.NoError(t, err)
	assert.Equal(t, first.ID, byActivity[0].ID, "never-active enrollments sort last")
	assert.Equal(t, domain.EnrollmentCompleted, byActivity[0].Status)
	assert.Equal(t, []string{"a"}, byActivity[0].CompletedExercises)

	status := domain.EnrollmentCompleted
	done, err := enrollments.Count(ctx, repository.EnrollmentFilter{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, int64(1), done)

	assert.ErrorIs(t, enrollments.ApplyProgress(ctx, primitive.NewObjectID(), domain.ProgressUpdate{}), repository.ErrNotFound)
	assert.ErrorIs(t, enrollments.Delete(ctx, primitive.NewObjectID()), repository.ErrNotFound)
}

func TestRatings_UpsertAndSummary(t *testing.T) {
	ctx := context.Background()
	ratings := newTestStore().Ratings()
	program := primitive.NewObjectID()
	ann, ben := primitive.NewObjectID(), primitive.NewObjectID()

	firstAnn, err := ratings.Upsert(ctx, &domain.ProgramRating{ProgramID: program, UserID: ann, Rating: 2})
	require.NoError(t, err)
	_, err = ratings.Upsert(ctx, &domain.ProgramRating{ProgramID: program, UserID: ben, Rating: 5})
	require.NoError(t, err)
	updated, err := ratings.Upsert(ctx, &domain.ProgramRating{ProgramID: program, UserID: ann, Rating: 4, Review: "ok"})
	require.NoError(t, err)
	assert.Equal(t, firstAnn.ID, updated.ID)
	assert.Equal(t, firstAnn.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(firstAnn.UpdatedAt))

	list, err := ratings.ListByProgram(ctx, program)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, ann, list[0].UserID)

	summary, err := ratings.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.RatingSummary{Average: 4.5, Count: 2}, summary)

	removed, err := ratings.DeleteByUser(ctx, ann)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	removed, err = ratings.DeleteByPrograms(ctx, []primitive.ObjectID{program})
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestStatsHistory_Query(t *testing.T) {
	ctx := context.Background()
	history := newTestStore().StatsHistory()
	user := primitive.NewObjectID()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, w := range []float64{70, 72, 74} {
		weight := w
		_, err := history.Append(ctx, &domain.StatsHistory{UserID: user, Weight: &weight, RecordedAt: base.AddDate(0, 0, i)})
		require.NoError(t, err)
	}
	_, err := history.Append(ctx, &domain.StatsHistory{UserID: primitive.NewObjectID()})
	require.NoError(t, err)

	all, err := history.ListByUser(ctx, user, repository.StatsQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 70.0, *all[0].Weight)

	since := base.AddDate(0, 0, 1)
	recent, err := history.ListByUser(ctx, user, repository.StatsQuery{Since: &since})
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	newest, err := history.ListByUser(ctx, user, repository.StatsQuery{Limit: 2, NewestFirst: true})
	require.NoError(t, err)
	require.Len(t, newest, 2)
	assert.Equal(t, 74.0, *newest[0].Weight)
	assert.Equal(t, 72.0, *newest[1].Weight)
}
