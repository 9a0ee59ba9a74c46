package service

import (
	"alcyxob/gym-app/internal/domain"
	"alcyxob/gym-app/internal/repository"
	"alcyxob/gym-app/internal/storage"
	"alcyxob/gym-app/internal/telemetry/tracing"
	"context"
	"strings"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LevelAll is the listing filter value that matches every level.
const LevelAll = "All"

// ExerciseInput is one exercise of a program as submitted by a coach.
// An empty ID gets a generated one.
type ExerciseInput struct {
	ID   string `validate:"omitempty,max=64"`
	Name string `validate:"required,max=200"`
	Sets int    `validate:"gte=0,lte=100"`
	Reps int    `validate:"gte=0,lte=1000"`
}

// ProgramInput carries the editable fields of a program.
type ProgramInput struct {
	Title       string          `validate:"required,max=200"`
	Description string          `validate:"max=5000"`
	Level       string          `validate:"omitempty,oneof=Beginner Intermediate Advanced"`
	Image       string          `validate:"max=2048"`
	Exercises   []ExerciseInput `validate:"dive"`
	Tags        []string        `validate:"max=20,dive,max=50"`
}

// ProgramQuery is a program listing request. Level "All" or empty means any level.
type ProgramQuery struct {
	Query string
	Level string
}

type ProgramService interface {
	Create(ctx context.Context, actor domain.Identity, in ProgramInput) (*domain.Program, error)
	List(ctx context.Context, query ProgramQuery) ([]domain.ProgramWithCoach, error)
	Get(ctx context.Context, programID primitive.ObjectID) (*domain.ProgramWithCoach, error)
	ListByCoach(ctx context.Context, coachID primitive.ObjectID) ([]domain.Program, error)
	Update(ctx context.Context, actor domain.Identity, programID primitive.ObjectID, in ProgramInput) (*domain.Program, error)
	// Delete removes the program with its enrollments and ratings.
	Delete(ctx context.Context, actor domain.Identity, programID primitive.ObjectID) error
}

type programService struct {
	userRepo       repository.UserRepository
	programRepo    repository.ProgramRepository
	enrollmentRepo repository.EnrollmentRepository
	ratingRepo     repository.RatingRepository
	fileStorage    storage.FileStorage
}

func NewProgramService(
	userRepo repository.UserRepository,
	programRepo repository.ProgramRepository,
	enrollmentRepo repository.EnrollmentRepository,
	ratingRepo repository.RatingRepository,
	fileStorage storage.FileStorage,
) ProgramService {
	return &programService{
		userRepo:       userRepo,
		programRepo:    programRepo,
		enrollmentRepo: enrollmentRepo,
		ratingRepo:     ratingRepo,
		fileStorage:    fileStorage,
	}
}

func (s *programService) Create(ctx context.Context, actor domain.Identity, in ProgramInput) (_ *domain.Program, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.program.create")
	defer tracing.EndSpanWithErrCheck(span, &err)

	if actor.Role != domain.RoleCoach {
		return nil, ErrAccessDenied
	}
	program := &domain.Program{CoachID: actor.UserID}
	if err = applyProgramInput(program, in); err != nil {
		return nil, err
	}

	if _, err = s.programRepo.Create(ctx, program); err != nil {
		return nil, storageFailure("program.create", log.Fields{"coach_id": actor.UserID.Hex()}, err)
	}
	log.WithFields(log.Fields{"program_id": program.ID.Hex(), "coach_id": actor.UserID.Hex()}).Info("program created")
	return program, nil
}

func (s *programService) List(ctx context.Context, query ProgramQuery) (_ []domain.ProgramWithCoach, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.program.list")
	defer tracing.EndSpanWithErrCheck(span, &err)

	filter := repository.ProgramFilter{Query: strings.TrimSpace(query.Query)}
	if query.Level != "" && query.Level != LevelAll {
		level, ok := domain.ParseLevel(query.Level)
		if !ok {
			return nil, invalid("level", "must be one of Beginner Intermediate Advanced All")
		}
		filter.Level = level
	}

	programs, err := s.programRepo.List(ctx, filter)
	if err != nil {
		return nil, storageFailure("program.list", nil, err)
	}
	coaches, err := usersByID(ctx, s.userRepo, coachIDs(programs))
	if err != nil {
		return nil, storageFailure("program.list.coaches", nil, err)
	}

	result := make([]domain.ProgramWithCoach, 0, len(programs))
	for _, p := range programs {
		result = append(result, domain.ProgramWithCoach{Program: p, Coach: coaches[p.CoachID].Summary()})
	}
	return result, nil
}

func (s *programService) Get(ctx context.Context, programID primitive.ObjectID) (_ *domain.ProgramWithCoach, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.program.get")
	defer tracing.EndSpanWithErrCheck(span, &err)

	program, err := getProgram(ctx, s.programRepo, "program.get", programID)
	if err != nil {
		return nil, err
	}
	result := &domain.ProgramWithCoach{Program: *program}
	coach, err := s.userRepo.GetByID(ctx, program.CoachID)
	switch {
	case err == nil:
		result.Coach = coach.Summary()
	case !isNotFound(err):
		return nil, storageFailure("program.get.coach", log.Fields{"program_id": programID.Hex()}, err)
	}
	return result, nil
}

func (s *programService) ListByCoach(ctx context.Context, coachID primitive.ObjectID) ([]domain.Program, error) {
	programs, err := s.programRepo.List(ctx, repository.ProgramFilter{CoachID: &coachID})
	if err != nil {
		return nil, storageFailure("program.listByCoach", log.Fields{"coach_id": coachID.Hex()}, err)
	}
	return programs, nil
}

func (s *programService) Update(ctx context.Context, actor domain.Identity, programID primitive.ObjectID, in ProgramInput) (_ *domain.Program, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.program.update")
	defer tracing.EndSpanWithErrCheck(span, &err)

	program, err := getProgram(ctx, s.programRepo, "program.update", programID)
	if err != nil {
		return nil, err
	}
	// Only the owning coach edits a program
	if actor.Role != domain.RoleCoach || !program.OwnedBy(actor.UserID) {
		return nil, ErrAccessDenied
	}

	previousImage := program.Image
	if err = applyProgramInput(program, in); err != nil {
		return nil, err
	}
	if err = s.programRepo.Update(ctx, program); err != nil {
		return nil, notFoundOr(ErrProgramNotFound, "program.update", log.Fields{"program_id": programID.Hex()}, err)
	}
	if previousImage != program.Image {
		deleteStoredImage(ctx, s.fileStorage, previousImage)
	}
	return program, nil
}

func (s *programService) Delete(ctx context.Context, actor domain.Identity, programID primitive.ObjectID) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.program.delete")
	defer tracing.EndSpanWithErrCheck(span, &err)

	program, err := getProgram(ctx, s.programRepo, "program.delete", programID)
	if err != nil {
		return err
	}
	if err = requireProgramOwnerOrAdmin(actor, program); err != nil {
		return err
	}

	fields := log.Fields{"program_id": programID.Hex()}
	ids := []primitive.ObjectID{programID}
	removed, err := s.enrollmentRepo.DeleteMany(ctx, repository.EnrollmentFilter{ProgramIDs: ids})
	if err != nil {
		return storageFailure("program.delete.enrollments", fields, err)
	}
	if _, err = s.ratingRepo.DeleteByPrograms(ctx, ids); err != nil {
		return storageFailure("program.delete.ratings", fields, err)
	}
	if err = s.programRepo.Delete(ctx, programID); err != nil {
		return notFoundOr(ErrProgramNotFound, "program.delete", fields, err)
	}
	deleteStoredImage(ctx, s.fileStorage, program.Image)

	log.WithFields(fields).WithField("enrollments_removed", removed).Info("program deleted")
	return nil
}

// applyProgramInput validates in and copies it onto program.
func applyProgramInput(program *domain.Program, in ProgramInput) error {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateStruct(in); err != nil {
		return err
	}
	level, ok := domain.ParseLevel(in.Level)
	if !ok {
		return invalid("level", "must be one of Beginner Intermediate Advanced")
	}

	exercises := make([]domain.Exercise, 0, len(in.Exercises))
	seen := make(map[string]struct{}, len(in.Exercises))
	for _, e := range in.Exercises {
		id := e.ID
		if id == "" {
			id = primitive.NewObjectID().Hex()
		}
		if _, dup := seen[id]; dup {
			return invalid("exercises", "duplicate exercise id "+id)
		}
		seen[id] = struct{}{}
		exercises = append(exercises, domain.Exercise{ID: id, Name: strings.TrimSpace(e.Name), Sets: e.Sets, Reps: e.Reps})
	}

	program.Title = in.Title
	program.Description = in.Description
	program.Level = level
	program.Image = in.Image
	program.Exercises = exercises
	program.Tags = in.Tags
	return nil
}

func getProgram(ctx context.Context, programRepo repository.ProgramRepository, op string, programID primitive.ObjectID) (*domain.Program, error) {
	program, err := programRepo.GetByID(ctx, programID)
	if err != nil {
		return nil, notFoundOr(ErrProgramNotFound, op, log.Fields{"program_id": programID.Hex()}, err)
	}
	return program, nil
}

// usersByID loads the given users keyed by ID. Missing users are absent from the map.
func usersByID(ctx context.Context, userRepo repository.UserRepository, ids []primitive.ObjectID) (map[primitive.ObjectID]*domain.User, error) {
	users, err := userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]*domain.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}
	return byID, nil
}

// programsByID loads the given programs keyed by ID.
func programsByID(ctx context.Context, programRepo repository.ProgramRepository, ids []primitive.ObjectID) (map[primitive.ObjectID]*domain.Program, error) {
	programs, err := programRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]*domain.Program, len(programs))
	for i := range programs {
		byID[programs[i].ID] = &programs[i]
	}
	return byID, nil
}

func coachIDs(programs []domain.Program) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(programs))
	for _, p := range programs {
		ids = append(ids, p.CoachID)
	}
	return ids
}
