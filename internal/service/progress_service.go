package service

import (
	"alcyxob/gym-app/internal/domain"
	"alcyxob/gym-app/internal/repository"
	"alcyxob/gym-app/internal/telemetry/tracing"
	"context"
	"math"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// now is the clock used for activity timestamps.
var now = func() time.Time { return time.Now().UTC() }

type ProgressService interface {
	// UpdateProgress records a progress report. completedExercises replaces the
	// stored list when non-nil. Reaching 100 completes the enrollment; a
	// completed enrollment stays completed.
	UpdateProgress(ctx context.Context, actor domain.Identity, enrollmentID primitive.ObjectID, progress float64, completedExercises *[]string) (*domain.Enrollment, error)
	MarkComplete(ctx context.Context, actor domain.Identity, enrollmentID primitive.ObjectID) (*domain.Enrollment, error)
}

type progressService struct {
	programRepo    repository.ProgramRepository
	enrollmentRepo repository.EnrollmentRepository
}

func NewProgressService(programRepo repository.ProgramRepository, enrollmentRepo repository.EnrollmentRepository) ProgressService {
	return &progressService{
		programRepo:    programRepo,
		enrollmentRepo: enrollmentRepo,
	}
}

func (s *progressService) UpdateProgress(ctx context.Context, actor domain.Identity, enrollmentID primitive.ObjectID, progress float64, completedExercises *[]string) (_ *domain.Enrollment, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.progress.update")
	defer tracing.EndSpanWithErrCheck(span, &err)

	if math.IsNaN(progress) || progress < 0 || progress > domain.CompletionThreshold {
		return nil, invalid("progress", "must be between 0 and 100")
	}

	enrollment, program, err := s.authorize(ctx, actor, enrollmentID, "progress.update")
	if err != nil {
		return nil, err
	}
	if completedExercises != nil {
		exercises, err := knownExercises(program, *completedExercises)
		if err != nil {
			return nil, err
		}
		completedExercises = &exercises
	}

	return s.apply(ctx, "progress.update", enrollment, domain.NewProgressUpdate(progress, completedExercises, now()))
}

func (s *progressService) MarkComplete(ctx context.Context, actor domain.Identity, enrollmentID primitive.ObjectID) (_ *domain.Enrollment, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.progress.markComplete")
	defer tracing.EndSpanWithErrCheck(span, &err)

	enrollment, _, err := s.authorize(ctx, actor, enrollmentID, "progress.markComplete")
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, "progress.markComplete", enrollment, domain.NewProgressUpdate(domain.CompletionThreshold, nil, now()))
}

// authorize loads the enrollment and its program and checks that the actor is
// the student, the program's coach or an admin.
func (s *progressService) authorize(ctx context.Context, actor domain.Identity, enrollmentID primitive.ObjectID, op string) (*domain.Enrollment, *domain.Program, error) {
	enrollment, err := getEnrollment(ctx, s.enrollmentRepo, op, enrollmentID)
	if err != nil {
		return nil, nil, err
	}
	program, err := getProgram(ctx, s.programRepo, op, enrollment.ProgramID)
	if err != nil {
		return nil, nil, err
	}

	switch {
	case actor.Role == domain.RoleAdmin:
	case actor.Role == domain.RoleClient && actor.Is(enrollment.StudentID):
	case actor.Role == domain.RoleCoach && program.OwnedBy(actor.UserID):
	default:
		return nil, nil, ErrAccessDenied
	}
	return enrollment, program, nil
}

func (s *progressService) apply(ctx context.Context, op string, enrollment *domain.Enrollment, upd domain.ProgressUpdate) (*domain.Enrollment, error) {
	fields := log.Fields{"enrollment_id": enrollment.ID.Hex(), "progress": upd.Progress}
	if err := s.enrollmentRepo.ApplyProgress(ctx, enrollment.ID, upd); err != nil {
		return nil, notFoundOr(ErrEnrollmentNotFound, op, fields, err)
	}
	wasCompleted := enrollment.IsCompleted()
	upd.Apply(enrollment)
	if !wasCompleted && enrollment.IsCompleted() {
		log.WithFields(fields).Info("enrollment completed")
	}
	return enrollment, nil
}

// knownExercises checks that every id names an exercise of the program and
// drops repeats, keeping first-seen order.
func knownExercises(program *domain.Program, ids []string) ([]string, error) {
	valid := make(map[string]struct{}, len(program.Exercises))
	for _, e := range program.Exercises {
		valid[e.ID] = struct{}{}
	}
	result := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := valid[id]; !ok {
			return nil, invalid("completedExercises", "unknown exercise id "+id)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result, nil
}
