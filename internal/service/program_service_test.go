package service

import (
	"alcyxob/gym-app/internal/domain"
	"alcyxob/gym-app/internal/repository"
	"alcyxob/gym-app/internal/storage"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"
)

func TestCreateProgram(t *testing.T) {
	f := newFixture(t, nil)
	coach := f.newUser(t, domain.RoleCoach, "Coach")
	client := f.newUser(t, domain.RoleClient, "Ann")

	program, err := f.programSvc.Create(f.ctx, coach, ProgramInput{
		Title: "  Strength 101 ",
		Level: "Advanced",
		Exercises: []ExerciseInput{
			{Name: "Squat", Sets: 5, Reps: 5},
			{ID: "bench", Name: "Bench", Sets: 3, Reps: 8},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Strength 101", program.Title)
	assert.Equal(t, domain.LevelAdvanced, program.Level)
	assert.Equal(t, coach.UserID, program.CoachID)
	require.Len(t, program.Exercises, 2)
	assert.NotEmpty(t, program.Exercises[0].ID)
	assert.Equal(t, "bench", program.Exercises[1].ID)
	assert.Zero(t, program.TotalEnrollments)

	defaulted := f.newProgram(t, coach, "No level")
	assert.Equal(t, domain.LevelBeginner, defaulted.Level)

	_, err = f.programSvc.Create(f.ctx, client, ProgramInput{Title: "Nope"})
	assert.ErrorIs(t, err, ErrAccessDenied)
	_, err = f.programSvc.Create(f.ctx, admin(), ProgramInput{Title: "Nope"})
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestCreateProgram_Validation(t *testing.T) {
	f := newFixture(t, nil)
	coach := f.newUser(t, domain.RoleCoach, "Coach")

	cases := map[string]ProgramInput{
		"blank title":      {Title: "   "},
		"unknown level":    {Title: "T", Level: "Expert"},
		"unnamed exercise": {Title: "T", Exercises: []ExerciseInput{{Sets: 1}}},
		"duplicate exercise id": {Title: "T", Exercises: []ExerciseInput{
			{ID: "a", Name: "One"}, {ID: "a", Name: "Two"},
		}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.programSvc.Create(f.ctx, coach, in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestListPrograms(t *testing.T) {
	f := newFixture(t, nil)
	coach := f.newUser(t, domain.RoleCoach, "Coach")
	_, err := f.programSvc.Create(f.ctx, coach, ProgramInput{Title: "Morning Yoga", Level: "Beginner"})
	require.NoError(t, err)
	_, err = f.programSvc.Create(f.ctx, coach, ProgramInput{Title: "Power Lifting", Level: "Advanced"})
	require.NoError(t, err)

	all, err := f.programSvc.List(f.ctx, ProgramQuery{Level: LevelAll})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	require.NotNil(t, all[0].Coach)
	assert.Equal(t, "Coach", all[0].Coach.Name)

	advanced, err := f.programSvc.List(f.ctx, ProgramQuery{Level: "Advanced"})
	require.NoError(t, err)
	require.Len(t, advanced, 1)
	assert.Equal(t, "Power Lifting", advanced[0].Title)

	found, err := f.programSvc.List(f.ctx, ProgramQuery{Query: "yoga"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Morning Yoga", found[0].Title)

	_, err = f.programSvc.List(f.ctx, ProgramQuery{Level: "Expert"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetProgram(t *testing.T) {
	f := newFixture(t, nil)
	coach := f.newUser(t, domain.RoleCoach, "Coach")
	program := f.newProgram(t, coach, "Strength")

	got, err := f.programSvc.Get(f.ctx, program.ID)
	require.NoError(t, err)
	assert.Equal(t, program.ID, got.ID)
	require.NotNil(t, got.Coach)
	assert.Equal(t, coach.UserID, got.Coach.ID)

	_, err = f.programSvc.Get(f.ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrProgramNotFound)
}

func TestUpdateProgram(t *testing.T) {
	ctrl := gomock.NewController(t)
	fileStorage := storage.NewMockFileStorage(ctrl)
	f := newFixture(t, fileStorage)
	coach := f.newUser(t, domain.RoleCoach, "Coach")
	other := f.newUser(t, domain.RoleCoach, "Other")

	oldImage := "https://cdn.example.com/images/programs/old.png"
	program, err := f.programSvc.Create(f.ctx, coach, ProgramInput{Title: "Strength", Image: oldImage})
	require.NoError(t, err)

	_, err = f.programSvc.Update(f.ctx, other, program.ID, ProgramInput{Title: "Hijacked"})
	assert.ErrorIs(t, err, ErrAccessDenied)
	_, err = f.programSvc.Update(f.ctx, admin(), program.ID, ProgramInput{Title: "Hijacked"})
	assert.ErrorIs(t, err, ErrAccessDenied)

	fileStorage.EXPECT().KeyFromURL(oldImage).Return("images/programs/old.png", true)
	fileStorage.EXPECT().DeleteObject(gomock.Any(), "images/programs/old.png").Return(errors.New("boom"))

	newImage := "https://cdn.example.com/images/programs/new.png"
	updated, err := f.programSvc.Update(f.ctx, coach, program.ID, ProgramInput{Title: "Strength II", Level: "Intermediate", Image: newImage})
	require.NoError(t, err)
	assert.Equal(t, "Strength II", updated.Title)
	assert.Equal(t, newImage, f.reloadProgram(t, program.ID).Image)

	// Same image: no storage calls expected
	_, err = f.programSvc.Update(f.ctx, coach, program.ID, ProgramInput{Title: "Strength III", Image: newImage})
	require.NoError(t, err)
}

func TestDeleteProgram_Cascade(t *testing.T) {
	ctrl := gomock.NewController(t)
	fileStorage := storage.NewMockFileStorage(ctrl)
	f := newFixture(t, fileStorage)
	coach := f.newUser(t, domain.RoleCoach, "Coach")
	ann := f.newUser(t, domain.RoleClient, "Ann")

	externalImage := "https://elsewhere.example.org/pic.png"
	program, err := f.programSvc.Create(f.ctx, coach, ProgramInput{Title: "Strength", Image: externalImage})
	require.NoError(t, err)
	f.enroll(t, ann, program)
	_, err = f.ratingSvc.Rate(f.ctx, program.ID, ann.UserID, 4, "")
	require.NoError(t, err)

	assert.ErrorIs(t, f.programSvc.Delete(f.ctx, ann, program.ID), ErrAccessDenied)

	// Images outside our bucket are left alone
	fileStorage.EXPECT().KeyFromURL(externalImage).Return("", false)

	require.NoError(t, f.programSvc.Delete(f.ctx, coach, program.ID))

	_, err = f.programs.GetByID(f.ctx, program.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	count, err := f.enrollments.Count(f.ctx, repository.EnrollmentFilter{ProgramIDs: []primitive.ObjectID{program.ID}})
	require.NoError(t, err)
	assert.Zero(t, count)
	ratings, err := f.ratings.ListByProgram(f.ctx, program.ID)
	require.NoError(t, err)
	assert.Empty(t, ratings)

	assert.ErrorIs(t, f.programSvc.Delete(f.ctx, coach, program.ID), ErrProgramNotFound)
}

func TestDeleteProgram_Admin(t *testing.T) {
	f := newFixture(t, nil)
	coach := f.newUser(t, domain.RoleCoach, "Coach")
	program := f.newProgram(t, coach, "Strength")

	require.NoError(t, f.programSvc.Delete(f.ctx, admin(), program.ID))

	left, err := f.programSvc.ListByCoach(f.ctx, coach.UserID)
	require.NoError(t, err)
	assert.Empty(t, left)
}
