package service

import (
	"alcyxob/gym-app/internal/domain"
	"alcyxob/gym-app/internal/repository"
	"alcyxob/gym-app/internal/telemetry/metrics"
	"alcyxob/gym-app/internal/telemetry/tracing"
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EnrollmentService interface {
	// Enroll creates an active enrollment and then increments the program's
	// enrollment counter. A failed increment is logged and counted but does
	// not fail the enrollment.
	Enroll(ctx context.Context, actor domain.Identity, studentID, programID primitive.ObjectID) (*domain.Enrollment, error)
	// Leave and Kick delete the enrollment. Neither decrements the counter.
	Leave(ctx context.Context, actor domain.Identity, enrollmentID primitive.ObjectID) error
	Kick(ctx context.Context, actor domain.Identity, enrollmentID primitive.ObjectID) error

	ListForStudent(ctx context.Context, actor domain.Identity, studentID primitive.ObjectID) ([]domain.EnrollmentWithProgram, error)
	ListForProgram(ctx context.Context, actor domain.Identity, programID primitive.ObjectID) ([]domain.EnrollmentWithStudent, error)
	ListForCoach(ctx context.Context, actor domain.Identity, coachID primitive.ObjectID) ([]domain.EnrollmentWithStudent, error)
	// StudentProgress lists a student's enrollments, optionally for one program, newest first.
	StudentProgress(ctx context.Context, actor domain.Identity, studentID primitive.ObjectID, programID *primitive.ObjectID) ([]domain.EnrollmentWithProgram, error)
}

type enrollmentService struct {
	userRepo       repository.UserRepository
	programRepo    repository.ProgramRepository
	enrollmentRepo repository.EnrollmentRepository
	metrics        *metrics.Manager
}

func NewEnrollmentService(
	userRepo repository.UserRepository,
	programRepo repository.ProgramRepository,
	enrollmentRepo repository.EnrollmentRepository,
	metricsManager *metrics.Manager,
) EnrollmentService {
	return &enrollmentService{
		userRepo:       userRepo,
		programRepo:    programRepo,
		enrollmentRepo: enrollmentRepo,
		metrics:        metricsManager,
	}
}

func (s *enrollmentService) Enroll(ctx context.Context, actor domain.Identity, studentID, programID primitive.ObjectID) (_ *domain.Enrollment, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.enrollment.enroll")
	defer tracing.EndSpanWithErrCheck(span, &err)

	fields := log.Fields{"student_id": studentID.Hex(), "program_id": programID.Hex()}

	switch actor.Role {
	case domain.RoleClient:
		if !actor.Is(studentID) {
			return nil, ErrAccessDenied
		}
	case domain.RoleAdmin:
		if _, err = s.userRepo.GetByID(ctx, studentID); err != nil {
			return nil, notFoundOr(ErrUserNotFound, "enrollment.enroll.student", fields, err)
		}
	default:
		return nil, ErrAccessDenied
	}

	if _, err = getProgram(ctx, s.programRepo, "enrollment.enroll", programID); err != nil {
		return nil, err
	}

	_, err = s.enrollmentRepo.GetByStudentAndProgram(ctx, studentID, programID)
	switch {
	case err == nil:
		s.metrics.CounterDuplicateEnrollments.Inc()
		return nil, ErrDuplicateEnrollment
	case !isNotFound(err):
		return nil, storageFailure("enrollment.enroll.check", fields, err)
	}

	enrollment := &domain.Enrollment{
		StudentID:          studentID,
		ProgramID:          programID,
		Status:             domain.EnrollmentActive,
		Progress:           0,
		CompletedExercises: []string{},
	}
	if _, err = s.enrollmentRepo.Create(ctx, enrollment); err != nil {
		// The unique index catches a concurrent enroll that passed the check above
		if errors.Is(err, repository.ErrDuplicate) {
			s.metrics.CounterDuplicateEnrollments.Inc()
			return nil, ErrDuplicateEnrollment
		}
		return nil, storageFailure("enrollment.enroll.create", fields, err)
	}
	s.metrics.CounterEnrollmentsCreated.Inc()

	if incErr := s.programRepo.IncrementEnrollments(ctx, programID, 1); incErr != nil {
		s.metrics.CounterEnrollmentIncrementFail.Inc()
		log.WithFields(fields).WithField("enrollment_id", enrollment.ID.Hex()).WithError(incErr).
			Error("enrollment created but program counter not incremented")
	}

	log.WithFields(fields).WithField("enrollment_id", enrollment.ID.Hex()).Info("student enrolled")
	return enrollment, nil
}

func (s *enrollmentService) Leave(ctx context.Context, actor domain.Identity, enrollmentID primitive.ObjectID) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.enrollment.leave")
	defer tracing.EndSpanWithErrCheck(span, &err)

	enrollment, err := getEnrollment(ctx, s.enrollmentRepo, "enrollment.leave", enrollmentID)
	if err != nil {
		return err
	}
	if err = requireSelfOrAdmin(actor, enrollment.StudentID); err != nil {
		return err
	}
	return s.delete(ctx, "enrollment.leave", enrollment)
}

func (s *enrollmentService) Kick(ctx context.Context, actor domain.Identity, enrollmentID primitive.ObjectID) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.enrollment.kick")
	defer tracing.EndSpanWithErrCheck(span, &err)

	enrollment, err := getEnrollment(ctx, s.enrollmentRepo, "enrollment.kick", enrollmentID)
	if err != nil {
		return err
	}
	if actor.Role != domain.RoleAdmin {
		program, err := getProgram(ctx, s.programRepo, "enrollment.kick", enrollment.ProgramID)
		if err != nil {
			return err
		}
		if err = requireProgramOwnerOrAdmin(actor, program); err != nil {
			return err
		}
	}
	return s.delete(ctx, "enrollment.kick", enrollment)
}

func (s *enrollmentService) delete(ctx context.Context, op string, enrollment *domain.Enrollment) error {
	fields := log.Fields{
		"enrollment_id": enrollment.ID.Hex(),
		"student_id":    enrollment.StudentID.Hex(),
		"program_id":    enrollment.ProgramID.Hex(),
	}
	if err := s.enrollmentRepo.Delete(ctx, enrollment.ID); err != nil {
		return notFoundOr(ErrEnrollmentNotFound, op, fields, err)
	}
	log.WithFields(fields).WithField("op", op).Info("enrollment removed")
	return nil
}

func (s *enrollmentService) ListForStudent(ctx context.Context, actor domain.Identity, studentID primitive.ObjectID) (_ []domain.EnrollmentWithProgram, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.enrollment.listForStudent")
	defer tracing.EndSpanWithErrCheck(span, &err)

	if err = requireSelfOrAdmin(actor, studentID); err != nil {
		return nil, err
	}
	enrollments, err := s.enrollmentRepo.List(ctx, repository.EnrollmentFilter{StudentID: &studentID}, repository.SortByJoinedAt)
	if err != nil {
		return nil, storageFailure("enrollment.listForStudent", log.Fields{"student_id": studentID.Hex()}, err)
	}
	return joinPrograms(ctx, s.userRepo, s.programRepo, enrollments, true)
}

func (s *enrollmentService) ListForProgram(ctx context.Context, actor domain.Identity, programID primitive.ObjectID) (_ []domain.EnrollmentWithStudent, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.enrollment.listForProgram")
	defer tracing.EndSpanWithErrCheck(span, &err)

	program, err := getProgram(ctx, s.programRepo, "enrollment.listForProgram", programID)
	if err != nil {
		return nil, err
	}
	if err = requireProgramOwnerOrAdmin(actor, program); err != nil {
		return nil, err
	}

	enrollments, err := s.enrollmentRepo.List(ctx, repository.EnrollmentFilter{ProgramIDs: []primitive.ObjectID{programID}}, repository.SortByJoinedAt)
	if err != nil {
		return nil, storageFailure("enrollment.listForProgram", log.Fields{"program_id": programID.Hex()}, err)
	}
	programs := map[primitive.ObjectID]*domain.Program{programID: program}
	return s.joinStudents(ctx, enrollments, programs, false)
}

// ListForCoach returns the roster across all of a coach's programs, most recently active first.
func (s *enrollmentService) ListForCoach(ctx context.Context, actor domain.Identity, coachID primitive.ObjectID) (_ []domain.EnrollmentWithStudent, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.enrollment.listForCoach")
	defer tracing.EndSpanWithErrCheck(span, &err)

	if err = requireSelfOrAdmin(actor, coachID); err != nil {
		return nil, err
	}
	fields := log.Fields{"coach_id": coachID.Hex()}

	programs, err := s.programRepo.List(ctx, repository.ProgramFilter{CoachID: &coachID})
	if err != nil {
		return nil, storageFailure("enrollment.listForCoach.programs", fields, err)
	}
	enrollments, err := s.enrollmentRepo.List(ctx, repository.EnrollmentFilter{ProgramIDs: programIDs(programs)}, repository.SortByLastActivity)
	if err != nil {
		return nil, storageFailure("enrollment.listForCoach", fields, err)
	}

	byID := make(map[primitive.ObjectID]*domain.Program, len(programs))
	for i := range programs {
		byID[programs[i].ID] = &programs[i]
	}
	return s.joinStudents(ctx, enrollments, byID, true)
}

func (s *enrollmentService) StudentProgress(ctx context.Context, actor domain.Identity, studentID primitive.ObjectID, programID *primitive.ObjectID) (_ []domain.EnrollmentWithProgram, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.enrollment.studentProgress")
	defer tracing.EndSpanWithErrCheck(span, &err)

	filter := repository.EnrollmentFilter{StudentID: &studentID}
	if programID != nil {
		filter.ProgramIDs = []primitive.ObjectID{*programID}
	}

	// Coaches may look at a student's progress within one of their own programs
	if actor.Role == domain.RoleCoach && !actor.Is(studentID) {
		if programID == nil {
			return nil, ErrAccessDenied
		}
		program, err := getProgram(ctx, s.programRepo, "enrollment.studentProgress", *programID)
		if err != nil {
			return nil, err
		}
		if !program.OwnedBy(actor.UserID) {
			return nil, ErrAccessDenied
		}
	} else if err = requireSelfOrAdmin(actor, studentID); err != nil {
		return nil, err
	}

	enrollments, err := s.enrollmentRepo.List(ctx, filter, repository.SortByCreatedAt)
	if err != nil {
		return nil, storageFailure("enrollment.studentProgress", log.Fields{"student_id": studentID.Hex()}, err)
	}
	return joinPrograms(ctx, s.userRepo, s.programRepo, enrollments, false)
}

// joinStudents attaches the enrolled students. Program summaries are attached
// when withProgram is set; programs must hold every referenced program.
func (s *enrollmentService) joinStudents(
	ctx context.Context,
	enrollments []domain.Enrollment,
	programs map[primitive.ObjectID]*domain.Program,
	withProgram bool,
) ([]domain.EnrollmentWithStudent, error) {
	ids := make([]primitive.ObjectID, 0, len(enrollments))
	for _, e := range enrollments {
		ids = append(ids, e.StudentID)
	}
	students, err := usersByID(ctx, s.userRepo, ids)
	if err != nil {
		return nil, storageFailure("enrollment.join.students", nil, err)
	}

	result := make([]domain.EnrollmentWithStudent, 0, len(enrollments))
	for _, e := range enrollments {
		row := domain.EnrollmentWithStudent{Enrollment: e, Student: students[e.StudentID].Summary()}
		if withProgram {
			row.Program = programs[e.ProgramID].Summary(false)
		}
		result = append(result, row)
	}
	return result, nil
}

// joinPrograms attaches each enrollment's program and, when withCoach is set,
// the program's coach.
func joinPrograms(
	ctx context.Context,
	userRepo repository.UserRepository,
	programRepo repository.ProgramRepository,
	enrollments []domain.Enrollment,
	withCoach bool,
) ([]domain.EnrollmentWithProgram, error) {
	ids := make([]primitive.ObjectID, 0, len(enrollments))
	for _, e := range enrollments {
		ids = append(ids, e.ProgramID)
	}
	programs, err := programsByID(ctx, programRepo, ids)
	if err != nil {
		return nil, storageFailure("enrollment.join.programs", nil, err)
	}

	var coaches map[primitive.ObjectID]*domain.User
	if withCoach {
		coachIDs := make([]primitive.ObjectID, 0, len(programs))
		for _, p := range programs {
			coachIDs = append(coachIDs, p.CoachID)
		}
		if coaches, err = usersByID(ctx, userRepo, coachIDs); err != nil {
			return nil, storageFailure("enrollment.join.coaches", nil, err)
		}
	}

	result := make([]domain.EnrollmentWithProgram, 0, len(enrollments))
	for _, e := range enrollments {
		row := domain.EnrollmentWithProgram{Enrollment: e, Program: programs[e.ProgramID]}
		if withCoach && row.Program != nil {
			row.Coach = coaches[row.Program.CoachID].Summary()
		}
		result = append(result, row)
	}
	return result, nil
}

func getEnrollment(ctx context.Context, enrollmentRepo repository.EnrollmentRepository, op string, enrollmentID primitive.ObjectID) (*domain.Enrollment, error) {
	enrollment, err := enrollmentRepo.GetByID(ctx, enrollmentID)
	if err != nil {
		return nil, notFoundOr(ErrEnrollmentNotFound, op, log.Fields{"enrollment_id": enrollmentID.Hex()}, err)
	}
	return enrollment, nil
}
