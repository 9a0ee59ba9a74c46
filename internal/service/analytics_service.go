package service

import (
	"alcyxob/gym-app/internal/domain"
	"alcyxob/gym-app/internal/repository"
	"alcyxob/gym-app/internal/telemetry/tracing"
	"context"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AnalyticsLimits sizes the lists returned by the admin overview.
type AnalyticsLimits struct {
	TopPrograms int
	TopCoaches  int
	RecentUsers int
}

var DefaultAnalyticsLimits = AnalyticsLimits{TopPrograms: 5, TopCoaches: 10, RecentUsers: 7}

type AnalyticsService interface {
	AdminOverview(ctx context.Context, actor domain.Identity) (*domain.AdminOverview, error)
	CoachOverview(ctx context.Context, actor domain.Identity, coachID primitive.ObjectID) (*domain.CoachOverview, error)
	ClientOverview(ctx context.Context, actor domain.Identity, clientID primitive.ObjectID) (*domain.ClientOverview, error)
}

type analyticsService struct {
	userRepo       repository.UserRepository
	programRepo    repository.ProgramRepository
	enrollmentRepo repository.EnrollmentRepository
	ratingRepo     repository.RatingRepository
	limits         AnalyticsLimits
}

func NewAnalyticsService(
	userRepo repository.UserRepository,
	programRepo repository.ProgramRepository,
	enrollmentRepo repository.EnrollmentRepository,
	ratingRepo repository.RatingRepository,
	limits AnalyticsLimits,
) AnalyticsService {
	if limits.TopPrograms <= 0 {
		limits.TopPrograms = DefaultAnalyticsLimits.TopPrograms
	}
	if limits.TopCoaches <= 0 {
		limits.TopCoaches = DefaultAnalyticsLimits.TopCoaches
	}
	if limits.RecentUsers <= 0 {
		limits.RecentUsers = DefaultAnalyticsLimits.RecentUsers
	}
	return &analyticsService{
		userRepo:       userRepo,
		programRepo:    programRepo,
		enrollmentRepo: enrollmentRepo,
		ratingRepo:     ratingRepo,
		limits:         limits,
	}
}

func (s *analyticsService) AdminOverview(ctx context.Context, actor domain.Identity) (_ *domain.AdminOverview, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.analytics.admin")
	defer tracing.EndSpanWithErrCheck(span, &err)

	if err = requireAdmin(actor); err != nil {
		return nil, err
	}

	byRole, err := s.userRepo.CountActiveByRole(ctx)
	if err != nil {
		return nil, storageFailure("analytics.admin.users", nil, err)
	}
	result := &domain.AdminOverview{UsersByRole: byRole}
	for _, n := range byRole {
		result.Overview.TotalUsers += n
	}
	result.Overview.TotalCoaches = byRole[domain.RoleCoach]
	result.Overview.TotalClients = byRole[domain.RoleClient]

	if result.Overview.TotalPrograms, err = s.programRepo.Count(ctx); err != nil {
		return nil, storageFailure("analytics.admin.programs", nil, err)
	}
	if result.Overview.TotalEnrollments, err = s.enrollmentRepo.Count(ctx, repository.EnrollmentFilter{}); err != nil {
		return nil, storageFailure("analytics.admin.enrollments", nil, err)
	}
	active := domain.EnrollmentActive
	if result.Overview.ActiveEnrollments, err = s.enrollmentRepo.Count(ctx, repository.EnrollmentFilter{Status: &active}); err != nil {
		return nil, storageFailure("analytics.admin.enrollments", nil, err)
	}

	if result.TopPrograms, err = s.topPrograms(ctx); err != nil {
		return nil, storageFailure("analytics.admin.topPrograms", nil, err)
	}
	if result.CoachPrograms, err = s.programRepo.CountByCoach(ctx, s.limits.TopCoaches); err != nil {
		return nil, storageFailure("analytics.admin.coachPrograms", nil, err)
	}

	summary, err := s.ratingRepo.Summary(ctx)
	if err != nil {
		return nil, storageFailure("analytics.admin.ratings", nil, err)
	}
	result.Overview.AvgSystemRating = summary.Average
	result.Overview.TotalRatings = summary.Count

	recent, err := s.userRepo.ListRecentActive(ctx, s.limits.RecentUsers)
	if err != nil {
		return nil, storageFailure("analytics.admin.recentUsers", nil, err)
	}
	result.RecentUsers = make([]domain.RecentUser, 0, len(recent))
	for _, u := range recent {
		result.RecentUsers = append(result.RecentUsers, domain.RecentUser{ID: u.ID, Role: u.Role, CreatedAt: u.CreatedAt})
	}
	return result, nil
}

// topPrograms ranks by the stored counter and reports a recount next to it,
// so counter drift shows up on the dashboard.
func (s *analyticsService) topPrograms(ctx context.Context) ([]domain.ProgramEnrollments, error) {
	programs, err := s.programRepo.TopByEnrollments(ctx, s.limits.TopPrograms)
	if err != nil {
		return nil, err
	}
	counted, err := s.enrollmentRepo.CountByProgram(ctx, programIDs(programs))
	if err != nil {
		return nil, err
	}
	coaches, err := usersByID(ctx, s.userRepo, coachIDs(programs))
	if err != nil {
		return nil, err
	}

	rows := make([]domain.ProgramEnrollments, 0, len(programs))
	for _, p := range programs {
		row := domain.ProgramEnrollments{Program: p, CountedEnrollments: counted[p.ID]}
		if c := coaches[p.CoachID]; c != nil {
			row.Coach = &domain.UserSummary{ID: c.ID, Name: c.Name}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *analyticsService) CoachOverview(ctx context.Context, actor domain.Identity, coachID primitive.ObjectID) (_ *domain.CoachOverview, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.analytics.coach")
	defer tracing.EndSpanWithErrCheck(span, &err)

	if err = requireSelfOrAdmin(actor, coachID); err != nil {
		return nil, err
	}
	fields := log.Fields{"coach_id": coachID.Hex()}

	programs, err := s.programRepo.List(ctx, repository.ProgramFilter{CoachID: &coachID})
	if err != nil {
		return nil, storageFailure("analytics.coach.programs", fields, err)
	}
	ids := programIDs(programs)

	counts, err := s.enrollmentRepo.CountByProgram(ctx, ids)
	if err != nil {
		return nil, storageFailure("analytics.coach.enrollments", fields, err)
	}
	active := domain.EnrollmentActive
	students, err := s.enrollmentRepo.DistinctStudents(ctx, repository.EnrollmentFilter{ProgramIDs: ids, Status: &active})
	if err != nil {
		return nil, storageFailure("analytics.coach.students", fields, err)
	}
	ratings, err := s.ratingRepo.ListByPrograms(ctx, ids)
	if err != nil {
		return nil, storageFailure("analytics.coach.ratings", fields, err)
	}
	rated, err := joinRaters(ctx, s.userRepo, ratings)
	if err != nil {
		return nil, err
	}

	result := &domain.CoachOverview{
		Overview: domain.CoachTotals{
			TotalPrograms:       int64(len(programs)),
			TotalActiveStudents: int64(len(students)),
		},
		Programs: make([]domain.ProgramStudentCount, 0, len(programs)),
		Ratings:  rated,
	}
	var ratingSum float64
	for _, p := range programs {
		n := counts[p.ID]
		result.Overview.TotalEnrollments += n
		ratingSum += p.AverageRating
		result.Programs = append(result.Programs, domain.ProgramStudentCount{Program: p, StudentCount: n})
	}
	result.Overview.AvgRating = domain.Mean(ratingSum, int64(len(programs)))
	return result, nil
}

func (s *analyticsService) ClientOverview(ctx context.Context, actor domain.Identity, clientID primitive.ObjectID) (_ *domain.ClientOverview, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.analytics.client")
	defer tracing.EndSpanWithErrCheck(span, &err)

	if err = requireSelfOrAdmin(actor, clientID); err != nil {
		return nil, err
	}
	fields := log.Fields{"client_id": clientID.Hex()}
	if _, err = s.userRepo.GetByID(ctx, clientID); err != nil {
		return nil, notFoundOr(ErrUserNotFound, "analytics.client", fields, err)
	}

	enrollments, err := s.enrollmentRepo.List(ctx, repository.EnrollmentFilter{StudentID: &clientID}, repository.SortByJoinedAt)
	if err != nil {
		return nil, storageFailure("analytics.client.enrollments", fields, err)
	}
	joined, err := joinPrograms(ctx, s.userRepo, s.programRepo, enrollments, false)
	if err != nil {
		return nil, err
	}

	result := &domain.ClientOverview{
		TotalPrograms: int64(len(enrollments)),
		Enrollments:   joined,
	}
	var progressSum float64
	for _, e := range enrollments {
		if e.IsCompleted() {
			result.CompletedPrograms++
		}
		progressSum += e.Progress
	}
	result.ActivePrograms = result.TotalPrograms - result.CompletedPrograms
	result.AvgProgress = domain.Mean(progressSum, result.TotalPrograms)
	return result, nil
}
