package service

import (
	"alcyxob/gym-app/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAdminOverview_Empty(t *testing.T) {
	f := newFixture(t, nil)

	overview, err := f.analytics.AdminOverview(f.ctx, admin())
	require.NoError(t, err)
	assert.Equal(t, domain.AdminTotals{}, overview.Overview)
	assert.Empty(t, overview.TopPrograms)
	assert.Empty(t, overview.CoachPrograms)
	assert.Empty(t, overview.RecentUsers)
	for _, role := range domain.Roles {
		assert.Zero(t, overview.UsersByRole[role])
	}
}

func TestAdminOverview(t *testing.T) {
	f := newFixture(t, nil)
	adminUser := f.newUser(t, domain.RoleAdmin, "Root")
	coach := f.newUser(t, domain.RoleCoach, "Coach")
	busy := f.newUser(t, domain.RoleCoach, "Busy")
	ann := f.newUser(t, domain.RoleClient, "Ann")
	ben := f.newUser(t, domain.RoleClient, "Ben")
	gone := f.newUser(t, domain.RoleClient, "Gone")
	_, err := f.userSvc.ToggleStatus(f.ctx, adminUser, gone.UserID)
	require.NoError(t, err)

	small := f.newProgram(t, coach, "Small")
	popular := f.newProgram(t, busy, "Popular")
	f.newProgram(t, busy, "Other")
	f.enroll(t, ann, popular)
	f.enroll(t, ben, popular)
	annSmall := f.enroll(t, ann, small)
	_, err = f.progress.MarkComplete(f.ctx, ann, annSmall.ID)
	require.NoError(t, err)
	// Leaving keeps the stored counter, so the recount differs
	require.NoError(t, f.enrollSvc.Leave(f.ctx, ben, mustEnrollment(t, f, ben, popular).ID))

	_, err = f.ratingSvc.Rate(f.ctx, popular.ID, ann.UserID, 5, "")
	require.NoError(t, err)
	_, err = f.ratingSvc.Rate(f.ctx, small.ID, ann.UserID, 2, "")
	require.NoError(t, err)

	overview, err := f.analytics.AdminOverview(f.ctx, adminUser)
	require.NoError(t, err)

	assert.Equal(t, int64(5), overview.Overview.TotalUsers)
	assert.Equal(t, int64(2), overview.Overview.TotalCoaches)
	assert.Equal(t, int64(2), overview.Overview.TotalClients)
	assert.Equal(t, int64(1), overview.UsersByRole[domain.RoleAdmin])
	assert.Equal(t, int64(3), overview.Overview.TotalPrograms)
	assert.Equal(t, int64(2), overview.Overview.TotalEnrollments)
	assert.Equal(t, int64(1), overview.Overview.ActiveEnrollments)
	assert.Equal(t, 3.5, overview.Overview.AvgSystemRating)
	assert.Equal(t, int64(2), overview.Overview.TotalRatings)

	require.NotEmpty(t, overview.TopPrograms)
	top := overview.TopPrograms[0]
	assert.Equal(t, popular.ID, top.Program.ID)
	assert.Equal(t, int64(2), top.Program.TotalEnrollments)
	assert.Equal(t, int64(1), top.CountedEnrollments)
	require.NotNil(t, top.Coach)
	assert.Equal(t, "Busy", top.Coach.Name)

	require.Len(t, overview.CoachPrograms, 2)
	assert.Equal(t, "Busy", overview.CoachPrograms[0].Name)
	assert.Equal(t, int64(2), overview.CoachPrograms[0].ProgramCount)

	assert.Len(t, overview.RecentUsers, 5)
	for _, u := range overview.RecentUsers {
		assert.NotEqual(t, gone.UserID, u.ID)
	}

	_, err = f.analytics.AdminOverview(f.ctx, coach)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func mustEnrollment(t *testing.T, f *fixture, student domain.Identity, program *domain.Program) *domain.Enrollment {
	t.Helper()
	e, err := f.enrollments.GetByStudentAndProgram(f.ctx, student.UserID, program.ID)
	require.NoError(t, err)
	return e
}

func TestCoachOverview(t *testing.T) {
	f := newFixture(t, nil)
	coach := f.newUser(t, domain.RoleCoach, "Coach")
	ann := f.newUser(t, domain.RoleClient, "Ann")
	ben := f.newUser(t, domain.RoleClient, "Ben")
	strength := f.newProgram(t, coach, "Strength")
	cardio := f.newProgram(t, coach, "Cardio")
	f.newProgram(t, f.newUser(t, domain.RoleCoach, "Other"), "Not counted")

	f.enroll(t, ann, strength)
	f.enroll(t, ben, strength)
	annCardio := f.enroll(t, ann, cardio)
	_, err := f.progress.MarkComplete(f.ctx, ann, annCardio.ID)
	require.NoError(t, err)

	_, err = f.ratingSvc.Rate(f.ctx, strength.ID, ann.UserID, 4, "")
	require.NoError(t, err)

	overview, err := f.analytics.CoachOverview(f.ctx, coach, coach.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), overview.Overview.TotalPrograms)
	assert.Equal(t, int64(3), overview.Overview.TotalEnrollments)
	assert.Equal(t, int64(2), overview.Overview.TotalActiveStudents)
	// mean of 4.0 and 0 (unrated)
	assert.Equal(t, 2.0, overview.Overview.AvgRating)

	counts := map[primitive.ObjectID]int64{}
	for _, p := range overview.Programs {
		counts[p.ID] = p.StudentCount
	}
	assert.Equal(t, int64(2), counts[strength.ID])
	assert.Equal(t, int64(1), counts[cardio.ID])

	require.Len(t, overview.Ratings, 1)
	assert.Equal(t, "Ann", overview.Ratings[0].User.Name)

	_, err = f.analytics.CoachOverview(f.ctx, ann, coach.UserID)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestCoachOverview_NoPrograms(t *testing.T) {
	f := newFixture(t, nil)
	coach := f.newUser(t, domain.RoleCoach, "Coach")

	overview, err := f.analytics.CoachOverview(f.ctx, coach, coach.UserID)
	require.NoError(t, err)
	assert.Equal(t, domain.CoachTotals{}, overview.Overview)
	assert.Empty(t, overview.Programs)
	assert.Empty(t, overview.Ratings)
}

func TestClientOverview(t *testing.T) {
	f := newFixture(t, nil)
	coach := f.newUser(t, domain.RoleCoach, "Coach")
	ann := f.newUser(t, domain.RoleClient, "Ann")
	first := f.enroll(t, ann, f.newProgram(t, coach, "One"))
	second := f.enroll(t, ann, f.newProgram(t, coach, "Two"))

	_, err := f.progress.UpdateProgress(f.ctx, ann, first.ID, 50, nil)
	require.NoError(t, err)
	_, err = f.progress.MarkComplete(f.ctx, ann, second.ID)
	require.NoError(t, err)

	overview, err := f.analytics.ClientOverview(f.ctx, ann, ann.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), overview.TotalPrograms)
	assert.Equal(t, int64(1), overview.CompletedPrograms)
	assert.Equal(t, int64(1), overview.ActivePrograms)
	assert.Equal(t, 75.0, overview.AvgProgress)
	require.Len(t, overview.Enrollments, 2)
	assert.NotNil(t, overview.Enrollments[0].Program)
}

func TestClientOverview_EmptyAndMissing(t *testing.T) {
	f := newFixture(t, nil)
	ann := f.newUser(t, domain.RoleClient, "Ann")

	overview, err := f.analytics.ClientOverview(f.ctx, ann, ann.UserID)
	require.NoError(t, err)
	assert.Zero(t, overview.TotalPrograms)
	assert.Zero(t, overview.AvgProgress)
	assert.Empty(t, overview.Enrollments)

	_, err = f.analytics.ClientOverview(f.ctx, admin(), primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrUserNotFound)
}
