package service

import (
	"alcyxob/gym-app/internal/domain"
	"alcyxob/gym-app/internal/repository"
	"alcyxob/gym-app/internal/telemetry/metrics"
	"alcyxob/gym-app/internal/telemetry/tracing"
	"context"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxReviewLength = 2000

type RatingService interface {
	// Rate inserts or replaces the user's rating of a program and stores the
	// program's new average.
	Rate(ctx context.Context, programID, userID primitive.ObjectID, rating int, review string) (*domain.ProgramRating, error)
	ListRatings(ctx context.Context, programID primitive.ObjectID) ([]domain.RatingWithUser, error)
}

type ratingService struct {
	userRepo    repository.UserRepository
	programRepo repository.ProgramRepository
	ratingRepo  repository.RatingRepository
	metrics     *metrics.Manager
}

func NewRatingService(
	userRepo repository.UserRepository,
	programRepo repository.ProgramRepository,
	ratingRepo repository.RatingRepository,
	metricsManager *metrics.Manager,
) RatingService {
	return &ratingService{
		userRepo:    userRepo,
		programRepo: programRepo,
		ratingRepo:  ratingRepo,
		metrics:     metricsManager,
	}
}

func (s *ratingService) Rate(ctx context.Context, programID, userID primitive.ObjectID, rating int, review string) (_ *domain.ProgramRating, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.rating.rate")
	defer tracing.EndSpanWithErrCheck(span, &err)

	if rating < domain.MinRating || rating > domain.MaxRating {
		return nil, invalid("rating", "must be between "+strconv.Itoa(domain.MinRating)+" and "+strconv.Itoa(domain.MaxRating))
	}
	review = strings.TrimSpace(review)
	if len(review) > maxReviewLength {
		return nil, invalid("review", "must be at most "+strconv.Itoa(maxReviewLength)+" characters")
	}

	if _, err = getProgram(ctx, s.programRepo, "rating.rate", programID); err != nil {
		return nil, err
	}

	fields := log.Fields{"program_id": programID.Hex(), "user_id": userID.Hex()}
	stored, err := s.ratingRepo.Upsert(ctx, &domain.ProgramRating{
		ProgramID: programID,
		UserID:    userID,
		Rating:    rating,
		Review:    review,
	})
	if err != nil {
		return nil, storageFailure("rating.rate.upsert", fields, err)
	}
	s.metrics.CounterRatingsSubmitted.Inc()

	ratings, err := s.ratingRepo.ListByProgram(ctx, programID)
	if err != nil {
		return nil, storageFailure("rating.rate.reload", fields, err)
	}
	average := domain.MeanRating(ratings)
	if err = s.programRepo.SetAverageRating(ctx, programID, average); err != nil {
		return nil, notFoundOr(ErrProgramNotFound, "rating.rate.average", fields, err)
	}

	log.WithFields(fields).WithField("average", average).Debug("program rated")
	return stored, nil
}

// ListRatings returns the program's ratings with the raters' names, most recently updated first.
func (s *ratingService) ListRatings(ctx context.Context, programID primitive.ObjectID) (_ []domain.RatingWithUser, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.rating.list")
	defer tracing.EndSpanWithErrCheck(span, &err)

	if _, err = getProgram(ctx, s.programRepo, "rating.list", programID); err != nil {
		return nil, err
	}
	ratings, err := s.ratingRepo.ListByProgram(ctx, programID)
	if err != nil {
		return nil, storageFailure("rating.list", log.Fields{"program_id": programID.Hex()}, err)
	}
	return joinRaters(ctx, s.userRepo, ratings)
}

func joinRaters(ctx context.Context, userRepo repository.UserRepository, ratings []domain.ProgramRating) ([]domain.RatingWithUser, error) {
	ids := make([]primitive.ObjectID, 0, len(ratings))
	for _, r := range ratings {
		ids = append(ids, r.UserID)
	}
	users, err := usersByID(ctx, userRepo, ids)
	if err != nil {
		return nil, storageFailure("rating.join.users", nil, err)
	}

	result := make([]domain.RatingWithUser, 0, len(ratings))
	for _, r := range ratings {
		row := domain.RatingWithUser{ProgramRating: r}
		if u := users[r.UserID]; u != nil {
			// Raters are shown by name and picture only
			row.User = &domain.UserSummary{ID: u.ID, Name: u.Name, Image: u.Image}
		}
		result = append(result, row)
	}
	return result, nil
}
