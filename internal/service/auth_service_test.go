package service

import (
	"alcyxob/gym-app/internal/domain"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t, nil)

	user, err := f.auth.Register(f.ctx, RegisterInput{Name: "Ann", Email: "Ann@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleClient, user.Role)
	assert.Equal(t, "ann@example.com", user.Email)
	assert.True(t, user.IsActive)
	assert.Empty(t, user.PasswordHash)

	_, err = f.auth.Register(f.ctx, RegisterInput{Name: "Ann", Email: "ANN@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	token, loggedIn, err := f.auth.Login(f.ctx, "ann@EXAMPLE.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)

	claims := &jwtClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.Equal(t, domain.RoleClient, claims.Role)
	assert.Equal(t, jwtIssuer, claims.Issuer)
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t, nil)

	cases := map[string]RegisterInput{
		"missing name":   {Email: "a@example.com", Password: "secret1"},
		"bad email":      {Name: "A", Email: "not-an-email", Password: "secret1"},
		"short password": {Name: "A", Email: "a@example.com", Password: "123"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.auth.Register(f.ctx, in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestLogin_Failures(t *testing.T) {
	f := newFixture(t, nil)
	root := f.newUser(t, domain.RoleAdmin, "Root")
	user, err := f.auth.Register(f.ctx, RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, _, err = f.auth.Login(f.ctx, "ann@example.com", "wrong")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	_, _, err = f.auth.Login(f.ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	_, err = f.userSvc.ToggleStatus(f.ctx, root, user.ID)
	require.NoError(t, err)
	_, _, err = f.auth.Login(f.ctx, "ann@example.com", "secret1")
	assert.ErrorIs(t, err, ErrAccountInactive)
}
