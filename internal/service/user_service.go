package service

import (
	"alcyxob/gym-app/internal/domain"
	"alcyxob/gym-app/internal/repository"
	"alcyxob/gym-app/internal/storage"
	"alcyxob/gym-app/internal/telemetry/tracing"
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/multierr"
)

// CreateCoachInput carries the fields an admin provides for a new coach.
type CreateCoachInput struct {
	Name     string `validate:"required,max=100"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6,max=72"`
}

// ProfileUpdate holds the fields a user may change on their own profile.
// Role and password are deliberately absent.
type ProfileUpdate struct {
	Name  *string `validate:"omitempty,min=1,max=100"`
	Image *string `validate:"omitempty,max=2048"`
	Age   *int    `validate:"omitempty,gte=0,lte=150"`
}

type UserService interface {
	GetProfile(ctx context.Context, actor domain.Identity, userID primitive.ObjectID) (*domain.User, error)
	UpdateProfile(ctx context.Context, actor domain.Identity, userID primitive.ObjectID, upd ProfileUpdate) (*domain.User, error)

	// Admin operations
	CreateCoach(ctx context.Context, actor domain.Identity, in CreateCoachInput) (*domain.User, error)
	ListUsers(ctx context.Context, actor domain.Identity) ([]domain.User, error)
	ToggleStatus(ctx context.Context, actor domain.Identity, userID primitive.ObjectID) (*domain.User, error)
	DeleteUser(ctx context.Context, actor domain.Identity, userID primitive.ObjectID) error

	// Public
	ListCoaches(ctx context.Context) ([]domain.User, error)
}

type userService struct {
	userRepo       repository.UserRepository
	programRepo    repository.ProgramRepository
	enrollmentRepo repository.EnrollmentRepository
	ratingRepo     repository.RatingRepository
	fileStorage    storage.FileStorage // nil when uploads are disabled
}

func NewUserService(
	userRepo repository.UserRepository,
	programRepo repository.ProgramRepository,
	enrollmentRepo repository.EnrollmentRepository,
	ratingRepo repository.RatingRepository,
	fileStorage storage.FileStorage,
) UserService {
	return &userService{
		userRepo:       userRepo,
		programRepo:    programRepo,
		enrollmentRepo: enrollmentRepo,
		ratingRepo:     ratingRepo,
		fileStorage:    fileStorage,
	}
}

func (s *userService) GetProfile(ctx context.Context, actor domain.Identity, userID primitive.ObjectID) (_ *domain.User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.user.getProfile")
	defer tracing.EndSpanWithErrCheck(span, &err)

	if err = requireSelfOrAdmin(actor, userID); err != nil {
		return nil, err
	}
	return s.getUser(ctx, "user.getProfile", userID)
}

func (s *userService) UpdateProfile(ctx context.Context, actor domain.Identity, userID primitive.ObjectID, upd ProfileUpdate) (_ *domain.User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.user.updateProfile")
	defer tracing.EndSpanWithErrCheck(span, &err)

	if err = requireSelfOrAdmin(actor, userID); err != nil {
		return nil, err
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		upd.Name = &name
	}
	if err = validateStruct(upd); err != nil {
		return nil, err
	}

	fields := log.Fields{"user_id": userID.Hex()}
	err = s.userRepo.UpdateProfile(ctx, userID, repository.UserProfileUpdate{
		Name:  upd.Name,
		Image: upd.Image,
		Age:   upd.Age,
	})
	if err != nil {
		return nil, notFoundOr(ErrUserNotFound, "user.updateProfile", fields, err)
	}
	return s.getUser(ctx, "user.updateProfile", userID)
}

func (s *userService) CreateCoach(ctx context.Context, actor domain.Identity, in CreateCoachInput) (_ *domain.User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.user.createCoach")
	defer tracing.EndSpanWithErrCheck(span, &err)

	if err = requireAdmin(actor); err != nil {
		return nil, err
	}
	if err = validateStruct(in); err != nil {
		return nil, err
	}
	return createAccount(ctx, s.userRepo, accountInput{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
		Role:     domain.RoleCoach,
	})
}

func (s *userService) ListUsers(ctx context.Context, actor domain.Identity) ([]domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	users, err := s.userRepo.List(ctx, repository.UserFilter{})
	if err != nil {
		return nil, storageFailure("user.list", nil, err)
	}
	return scrubbed(users), nil
}

// ListCoaches returns every coach, active or not, like the public coach directory.
func (s *userService) ListCoaches(ctx context.Context) ([]domain.User, error) {
	role := domain.RoleCoach
	coaches, err := s.userRepo.List(ctx, repository.UserFilter{Role: &role})
	if err != nil {
		return nil, storageFailure("user.listCoaches", nil, err)
	}
	return scrubbed(coaches), nil
}

// ToggleStatus flips a user's active flag. Admins cannot deactivate themselves.
func (s *userService) ToggleStatus(ctx context.Context, actor domain.Identity, userID primitive.ObjectID) (_ *domain.User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.user.toggleStatus")
	defer tracing.EndSpanWithErrCheck(span, &err)

	if err = requireAdmin(actor); err != nil {
		return nil, err
	}
	if actor.Is(userID) {
		return nil, invalid("userId", "cannot change your own status")
	}

	user, err := s.getUser(ctx, "user.toggleStatus", userID)
	if err != nil {
		return nil, err
	}
	fields := log.Fields{"user_id": userID.Hex()}
	if err = s.userRepo.SetActive(ctx, userID, !user.IsActive); err != nil {
		return nil, notFoundOr(ErrUserNotFound, "user.toggleStatus", fields, err)
	}
	user.IsActive = !user.IsActive
	log.WithFields(fields).WithField("active", user.IsActive).Info("user status changed")
	return user, nil
}

// DeleteUser removes an account with everything that depends on it: the
// user's enrollments and ratings, and for coaches their programs along with
// those programs' enrollments and ratings. Programs the user had rated get
// their average recomputed. Stats history is kept.
func (s *userService) DeleteUser(ctx context.Context, actor domain.Identity, userID primitive.ObjectID) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.user.delete")
	defer tracing.EndSpanWithErrCheck(span, &err)

	if err = requireAdmin(actor); err != nil {
		return err
	}
	if actor.Is(userID) {
		return invalid("userId", "cannot delete your own account")
	}

	user, err := s.getUser(ctx, "user.delete", userID)
	if err != nil {
		return err
	}
	fields := log.Fields{"user_id": userID.Hex(), "role": user.Role}

	if user.IsCoach() {
		if err = deleteCoachPrograms(ctx, s.programRepo, s.enrollmentRepo, s.ratingRepo, s.fileStorage, userID); err != nil {
			return storageFailure("user.delete.programs", fields, err)
		}
	}

	if _, err = s.enrollmentRepo.DeleteMany(ctx, repository.EnrollmentFilter{StudentID: &userID}); err != nil {
		return storageFailure("user.delete.enrollments", fields, err)
	}

	rated, err := s.ratingRepo.ListByUser(ctx, userID)
	if err != nil {
		return storageFailure("user.delete.ratings", fields, err)
	}
	if _, err = s.ratingRepo.DeleteByUser(ctx, userID); err != nil {
		return storageFailure("user.delete.ratings", fields, err)
	}
	var recomputeErr error
	for _, r := range rated {
		multierr.AppendInto(&recomputeErr, recomputeAverage(ctx, s.programRepo, s.ratingRepo, r.ProgramID))
	}
	if recomputeErr != nil {
		// Averages of deleted programs are gone already; anything else is logged and left stale.
		log.WithFields(fields).WithError(recomputeErr).Warn("recompute averages after rating removal")
	}

	if err = s.userRepo.Delete(ctx, userID); err != nil {
		return notFoundOr(ErrUserNotFound, "user.delete", fields, err)
	}

	deleteStoredImage(ctx, s.fileStorage, user.Image)
	log.WithFields(fields).Info("user deleted")
	return nil
}

func (s *userService) getUser(ctx context.Context, op string, userID primitive.ObjectID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(ErrUserNotFound, op, log.Fields{"user_id": userID.Hex()}, err)
	}
	user.PasswordHash = ""
	return user, nil
}

// deleteStoredImage removes a profile or program image from our bucket.
// Failures are logged only; the URL is already unreferenced.
func deleteStoredImage(ctx context.Context, fileStorage storage.FileStorage, url string) {
	if fileStorage == nil || url == "" {
		return
	}
	key, ok := fileStorage.KeyFromURL(url)
	if !ok {
		return
	}
	if err := fileStorage.DeleteObject(ctx, key); err != nil {
		log.WithField("key", key).WithError(err).Warn("delete image object")
	}
}

// deleteCoachPrograms removes every program a coach owns with its
// enrollments and ratings.
func deleteCoachPrograms(
	ctx context.Context,
	programRepo repository.ProgramRepository,
	enrollmentRepo repository.EnrollmentRepository,
	ratingRepo repository.RatingRepository,
	fileStorage storage.FileStorage,
	coachID primitive.ObjectID,
) error {
	programs, err := programRepo.List(ctx, repository.ProgramFilter{CoachID: &coachID})
	if err != nil {
		return err
	}
	if len(programs) == 0 {
		return nil
	}
	ids := programIDs(programs)
	if _, err = enrollmentRepo.DeleteMany(ctx, repository.EnrollmentFilter{ProgramIDs: ids}); err != nil {
		return err
	}
	if _, err = ratingRepo.DeleteByPrograms(ctx, ids); err != nil {
		return err
	}
	var errs error
	for _, p := range programs {
		if err = ignoreNotFound(programRepo.Delete(ctx, p.ID)); err != nil {
			multierr.AppendInto(&errs, err)
			continue
		}
		deleteStoredImage(ctx, fileStorage, p.Image)
	}
	return errs
}

// recomputeAverage reloads a program's ratings and stores their mean.
func recomputeAverage(ctx context.Context, programRepo repository.ProgramRepository, ratingRepo repository.RatingRepository, programID primitive.ObjectID) error {
	ratings, err := ratingRepo.ListByProgram(ctx, programID)
	if err != nil {
		return err
	}
	return ignoreNotFound(programRepo.SetAverageRating(ctx, programID, domain.MeanRating(ratings)))
}

func ignoreNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}

func programIDs(programs []domain.Program) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(programs))
	for _, p := range programs {
		ids = append(ids, p.ID)
	}
	return ids
}

func scrubbed(users []domain.User) []domain.User {
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users
}
