package main

import (
	"alcyxob/gym-app/internal/config"
	"alcyxob/gym-app/internal/domain"
	"alcyxob/gym-app/internal/repository"
	"alcyxob/gym-app/internal/repository/memory"
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testConfig() config.Config {
	var cfg config.Config
	cfg.JWT.Secret = "seed-test"
	cfg.JWT.Expiration = time.Hour
	cfg.Metrics.Namespace = "gym"
	cfg.Analytics.StatsWindow = 30
	return cfg
}

func TestSeeder_Run(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewStore().Set()
	s := newSeeder(repos, testConfig(), gofakeit.New(42))

	require.NoError(t, s.run(ctx, "admin@gym.local", 2, 5, 2))

	counts, err := repos.Users.CountActiveByRole(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[domain.RoleAdmin])
	assert.Equal(t, int64(2), counts[domain.RoleCoach])
	assert.Equal(t, int64(5), counts[domain.RoleClient])

	programs, err := repos.Programs.List(ctx, repository.ProgramFilter{})
	require.NoError(t, err)
	require.Len(t, programs, 4)
	for _, p := range programs {
		assert.NotEmpty(t, p.Exercises)
		enrolled, err := repos.Enrollments.Count(ctx, repository.EnrollmentFilter{ProgramIDs: []primitive.ObjectID{p.ID}})
		require.NoError(t, err)
		assert.Equal(t, enrolled, p.TotalEnrollments, "counter matches enrollments of %s", p.Title)
	}

	// Running again reuses the admin account
	require.NoError(t, s.run(ctx, "admin@gym.local", 0, 0, 0))
	counts, err = repos.Users.CountActiveByRole(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[domain.RoleAdmin])
}
