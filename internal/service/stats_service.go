package service

import (
	"alcyxob/gym-app/internal/domain"
	"alcyxob/gym-app/internal/repository"
	"alcyxob/gym-app/internal/telemetry/tracing"
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultHistoryDays = 30
	DefaultStatsWindow = 30
)

// StatsInput is a physical stats report. Nil fields keep their previous value.
type StatsInput struct {
	Weight *float64 `validate:"omitempty,gte=0,lte=1000"`
	Squat  *float64 `validate:"omitempty,gte=0,lte=2000"`
	Bench  *float64 `validate:"omitempty,gte=0,lte=2000"`
}

type StatsService interface {
	// UpdateStats merges the report into the user's current stats and appends
	// the merged snapshot to the history.
	UpdateStats(ctx context.Context, actor domain.Identity, userID primitive.ObjectID, in StatsInput) (*domain.PhysicalStats, error)
	// History returns the snapshots of the last days days, oldest first.
	History(ctx context.Context, actor domain.Identity, userID primitive.ObjectID, days int) ([]domain.StatsHistory, error)
	Analytics(ctx context.Context, actor domain.Identity, userID primitive.ObjectID) (*domain.StatsAnalytics, error)
}

type statsService struct {
	userRepo    repository.UserRepository
	historyRepo repository.StatsHistoryRepository
	window      int
}

// NewStatsService creates the service. window is the number of latest history
// entries trends are computed over.
func NewStatsService(userRepo repository.UserRepository, historyRepo repository.StatsHistoryRepository, window int) StatsService {
	if window <= 0 {
		window = DefaultStatsWindow
	}
	return &statsService{
		userRepo:    userRepo,
		historyRepo: historyRepo,
		window:      window,
	}
}

func (s *statsService) UpdateStats(ctx context.Context, actor domain.Identity, userID primitive.ObjectID, in StatsInput) (_ *domain.PhysicalStats, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.stats.update")
	defer tracing.EndSpanWithErrCheck(span, &err)

	if err = requireSelfOrAdmin(actor, userID); err != nil {
		return nil, err
	}
	if in.Weight == nil && in.Squat == nil && in.Bench == nil {
		return nil, invalid("", "at least one of weight, squat, bench is required")
	}
	if err = validateStruct(in); err != nil {
		return nil, err
	}

	fields := log.Fields{"user_id": userID.Hex()}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(ErrUserNotFound, "stats.update", fields, err)
	}

	var merged domain.PhysicalStats
	if user.PhysicalStats != nil {
		merged = *user.PhysicalStats
	}
	if in.Weight != nil {
		merged.Weight = in.Weight
	}
	if in.Squat != nil {
		merged.Squat = in.Squat
	}
	if in.Bench != nil {
		merged.Bench = in.Bench
	}

	// History first: a failed append must not leave a snapshot without its entry.
	_, err = s.historyRepo.Append(ctx, &domain.StatsHistory{
		UserID:     userID,
		Weight:     merged.Weight,
		Squat:      merged.Squat,
		Bench:      merged.Bench,
		RecordedAt: now(),
	})
	if err != nil {
		return nil, storageFailure("stats.update.history", fields, err)
	}
	if err = s.userRepo.SetPhysicalStats(ctx, userID, merged); err != nil {
		return nil, notFoundOr(ErrUserNotFound, "stats.update", fields, err)
	}
	return &merged, nil
}

func (s *statsService) History(ctx context.Context, actor domain.Identity, userID primitive.ObjectID, days int) (_ []domain.StatsHistory, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.stats.history")
	defer tracing.EndSpanWithErrCheck(span, &err)

	if err = requireSelfOrAdmin(actor, userID); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = DefaultHistoryDays
	}
	since := now().Add(-time.Duration(days) * 24 * time.Hour)

	history, err := s.historyRepo.ListByUser(ctx, userID, repository.StatsQuery{Since: &since})
	if err != nil {
		return nil, storageFailure("stats.history", log.Fields{"user_id": userID.Hex(), "days": days}, err)
	}
	return history, nil
}

// Analytics returns the current stats and the change of each metric since the
// oldest snapshot within the window.
func (s *statsService) Analytics(ctx context.Context, actor domain.Identity, userID primitive.ObjectID) (_ *domain.StatsAnalytics, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.stats.analytics")
	defer tracing.EndSpanWithErrCheck(span, &err)

	if err = requireSelfOrAdmin(actor, userID); err != nil {
		return nil, err
	}
	fields := log.Fields{"user_id": userID.Hex()}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(ErrUserNotFound, "stats.analytics", fields, err)
	}

	history, err := s.historyRepo.ListByUser(ctx, userID, repository.StatsQuery{Limit: s.window, NewestFirst: true})
	if err != nil {
		return nil, storageFailure("stats.analytics.history", fields, err)
	}

	result := &domain.StatsAnalytics{History: history}
	if user.PhysicalStats != nil {
		result.Current = *user.PhysicalStats
	}
	if len(history) > 0 {
		result.Trends = domain.TrendBetween(result.Current, history[len(history)-1].Stats())
	}
	return result, nil
}
