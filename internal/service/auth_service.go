package service

import (
	"alcyxob/gym-app/internal/domain"
	"alcyxob/gym-app/internal/repository"
	"alcyxob/gym-app/internal/telemetry/tracing"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const jwtIssuer = "gym-app"

// RegisterInput carries the fields of a self-service client registration.
type RegisterInput struct {
	Name     string `validate:"required,max=100"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6,max=72"` // bcrypt ignores bytes past 72
	Age      *int   `validate:"omitempty,gte=0,lte=150"`
}

type AuthService interface {
	// Register creates a client account. Coaches are provisioned by admins.
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (token string, user *domain.User, err error)
	GetJWTSecret() string
}

// authService implements the AuthService interface.
type authService struct {
	userRepo      repository.UserRepository
	jwtSecret     string
	jwtExpiration time.Duration
}

// NewAuthService creates a new instance of authService.
func NewAuthService(userRepo repository.UserRepository, jwtSecret string, jwtExpiration time.Duration) AuthService {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty") // Critical configuration
	}
	if jwtExpiration <= 0 {
		jwtExpiration = time.Hour
	}
	return &authService{
		userRepo:      userRepo,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
	}
}

// Register handles new client registration.
func (s *authService) Register(ctx context.Context, in RegisterInput) (_ *domain.User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.auth.register")
	defer tracing.EndSpanWithErrCheck(span, &err)

	if err = validateStruct(in); err != nil {
		return nil, err
	}
	return createAccount(ctx, s.userRepo, accountInput{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
		Age:      in.Age,
		Role:     domain.RoleClient,
	})
}

// Login handles user authentication and JWT generation.
func (s *authService) Login(ctx context.Context, email, password string) (token string, user *domain.User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.auth.login")
	defer tracing.EndSpanWithErrCheck(span, &err)

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", nil, invalid("", "email and password are required")
	}

	user, err = s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		// Unknown email maps to the same failure as a wrong password
		return "", nil, notFoundOr(ErrAuthenticationFailed, "auth.login", nil, err)
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrAuthenticationFailed
	}
	if !user.IsActive {
		return "", nil, ErrAccountInactive
	}

	token, err = s.generateJWT(user)
	if err != nil {
		log.WithField("user_id", user.ID.Hex()).WithError(err).Error("sign jwt")
		return "", nil, ErrTokenGeneration
	}

	user.PasswordHash = ""
	return token, user, nil
}

// --- JWT Helper ---

// jwtClaims defines the structure of the JWT payload.
type jwtClaims struct {
	UserID string      `json:"uid"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// generateJWT creates a new JWT token for the given user.
func (s *authService) generateJWT(user *domain.User) (string, error) {
	now := time.Now()
	claims := &jwtClaims{
		UserID: user.ID.Hex(),
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.Hex(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtExpiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    jwtIssuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// GetJWTSecret returns the JWT secret for middleware authentication
func (s *authService) GetJWTSecret() string {
	return s.jwtSecret
}

// accountInput is the common shape of client registration and coach provisioning.
type accountInput struct {
	Name     string
	Email    string
	Password string
	Age      *int
	Role     domain.Role
}

// createAccount hashes the password and stores a new active user. The email
// check is repeated by the unique index, so a racing duplicate still fails cleanly.
func createAccount(ctx context.Context, userRepo repository.UserRepository, in accountInput) (*domain.User, error) {
	email := normalizeEmail(in.Email)

	_, err := userRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil, ErrUserAlreadyExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, storageFailure("user.create", log.Fields{"email": email}, err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrHashingFailed
	}

	user := &domain.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         in.Role,
		Age:          in.Age,
		IsActive:     true,
	}
	if _, err = userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserAlreadyExists
		}
		return nil, storageFailure("user.create", log.Fields{"email": email}, err)
	}

	log.WithFields(log.Fields{"user_id": user.ID.Hex(), "role": user.Role}).Info("account created")
	user.PasswordHash = ""
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
