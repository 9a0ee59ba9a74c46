package service

import (
	"alcyxob/gym-app/internal/domain"
	"alcyxob/gym-app/internal/repository"
	"alcyxob/gym-app/internal/storage"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestDeleteUser_CoachCascade(t *testing.T) {
	ctrl := gomock.NewController(t)
	fileStorage := storage.NewMockFileStorage(ctrl)
	f := newFixture(t, fileStorage)

	root := f.newUser(t, domain.RoleAdmin, "Root")
	coach := f.newUser(t, domain.RoleCoach, "Coach")
	keeper := f.newUser(t, domain.RoleCoach, "Keeper")
	ann := f.newUser(t, domain.RoleClient, "Ann")

	imageURL := "https://cdn.example.com/images/programs/x.png"
	doomed, err := f.programSvc.Create(f.ctx, coach, ProgramInput{Title: "Doomed", Image: imageURL})
	require.NoError(t, err)
	kept := f.newProgram(t, keeper, "Kept")
	f.enroll(t, ann, doomed)
	f.enroll(t, ann, kept)
	_, err = f.ratingSvc.Rate(f.ctx, doomed.ID, ann.UserID, 5, "")
	require.NoError(t, err)

	fileStorage.EXPECT().KeyFromURL(imageURL).Return("images/programs/x.png", true)
	fileStorage.EXPECT().DeleteObject(gomock.Any(), "images/programs/x.png").Return(nil)

	require.NoError(t, f.userSvc.DeleteUser(f.ctx, root, coach.UserID))

	_, err = f.users.GetByID(f.ctx, coach.UserID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = f.programs.GetByID(f.ctx, doomed.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	remaining, err := f.enrollments.List(f.ctx, repository.EnrollmentFilter{StudentID: &ann.UserID}, repository.SortByJoinedAt)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, kept.ID, remaining[0].ProgramID)

	ratings, err := f.ratings.ListByProgram(f.ctx, doomed.ID)
	require.NoError(t, err)
	assert.Empty(t, ratings)
}

func TestDeleteUser_ClientRecomputesAverages(t *testing.T) {
	f := newFixture(t, nil)
	root := f.newUser(t, domain.RoleAdmin, "Root")
	coach := f.newUser(t, domain.RoleCoach, "Coach")
	ann := f.newUser(t, domain.RoleClient, "Ann")
	ben := f.newUser(t, domain.RoleClient, "Ben")
	program := f.newProgram(t, coach, "Strength")
	f.enroll(t, ann, program)

	_, err := f.ratingSvc.Rate(f.ctx, program.ID, ann.UserID, 1, "")
	require.NoError(t, err)
	_, err = f.ratingSvc.Rate(f.ctx, program.ID, ben.UserID, 5, "")
	require.NoError(t, err)
	assert.Equal(t, 3.0, f.reloadProgram(t, program.ID).AverageRating)

	require.NoError(t, f.userSvc.DeleteUser(f.ctx, root, ann.UserID))

	assert.Equal(t, 5.0, f.reloadProgram(t, program.ID).AverageRating)
	count, err := f.enrollments.Count(f.ctx, repository.EnrollmentFilter{StudentID: &ann.UserID})
	require.NoError(t, err)
	assert.Zero(t, count)
	// The stored counter is historical and survives the cascade
	assert.Equal(t, int64(1), f.reloadProgram(t, program.ID).TotalEnrollments)
}

func TestDeleteUser_Rejections(t *testing.T) {
	f := newFixture(t, nil)
	root := f.newUser(t, domain.RoleAdmin, "Root")
	coach := f.newUser(t, domain.RoleCoach, "Coach")

	assert.ErrorIs(t, f.userSvc.DeleteUser(f.ctx, coach, root.UserID), ErrAccessDenied)
	assert.ErrorIs(t, f.userSvc.DeleteUser(f.ctx, root, root.UserID), ErrValidation)
	assert.ErrorIs(t, f.userSvc.DeleteUser(f.ctx, root, admin().UserID), ErrUserNotFound)
}

func TestToggleStatus(t *testing.T) {
	f := newFixture(t, nil)
	root := f.newUser(t, domain.RoleAdmin, "Root")
	ann := f.newUser(t, domain.RoleClient, "Ann")

	user, err := f.userSvc.ToggleStatus(f.ctx, root, ann.UserID)
	require.NoError(t, err)
	assert.False(t, user.IsActive)
	assert.Empty(t, user.PasswordHash)

	user, err = f.userSvc.ToggleStatus(f.ctx, root, ann.UserID)
	require.NoError(t, err)
	assert.True(t, user.IsActive)

	_, err = f.userSvc.ToggleStatus(f.ctx, root, root.UserID)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.userSvc.ToggleStatus(f.ctx, ann, root.UserID)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t, nil)
	ann := f.newUser(t, domain.RoleClient, "Ann")
	ben := f.newUser(t, domain.RoleClient, "Ben")

	name := "  Annie "
	age := 31
	user, err := f.userSvc.UpdateProfile(f.ctx, ann, ann.UserID, ProfileUpdate{Name: &name, Age: &age})
	require.NoError(t, err)
	assert.Equal(t, "Annie", user.Name)
	require.NotNil(t, user.Age)
	assert.Equal(t, 31, *user.Age)
	assert.Equal(t, domain.RoleClient, user.Role)

	badAge := 400
	_, err = f.userSvc.UpdateProfile(f.ctx, ann, ann.UserID, ProfileUpdate{Age: &badAge})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.userSvc.UpdateProfile(f.ctx, ben, ann.UserID, ProfileUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestCreateCoachAndListCoaches(t *testing.T) {
	f := newFixture(t, nil)
	root := f.newUser(t, domain.RoleAdmin, "Root")
	ann := f.newUser(t, domain.RoleClient, "Ann")

	in := CreateCoachInput{Name: "Carl", Email: "Carl@Example.com", Password: "secret1"}
	_, err := f.userSvc.CreateCoach(f.ctx, ann, in)
	assert.ErrorIs(t, err, ErrAccessDenied)

	coach, err := f.userSvc.CreateCoach(f.ctx, root, in)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCoach, coach.Role)
	assert.Equal(t, "carl@example.com", coach.Email)

	_, err = f.userSvc.CreateCoach(f.ctx, root, in)
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	coaches, err := f.userSvc.ListCoaches(f.ctx)
	require.NoError(t, err)
	require.Len(t, coaches, 1)
	assert.Equal(t, "Carl", coaches[0].Name)
	assert.Empty(t, coaches[0].PasswordHash)

	users, err := f.userSvc.ListUsers(f.ctx, root)
	require.NoError(t, err)
	assert.Len(t, users, 3)
}
