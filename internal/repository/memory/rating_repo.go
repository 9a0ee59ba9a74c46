package memory

import (
	"alcyxob/gym-app/internal/domain"
	"context"
	"errors"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ratingRecord struct {
	rating domain.ProgramRating
	seq    int64
}

type ratingRepository struct {
	s *Store
}

// Upsert overwrites the rating of (ProgramID, UserID), keeping the original CreatedAt.
func (r *ratingRepository) Upsert(_ context.Context, rating *domain.ProgramRating) (*domain.ProgramRating, error) {
	if rating.ProgramID == primitive.NilObjectID || rating.UserID == primitive.NilObjectID {
		return nil, errors.New("rating requires programId and userId")
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	for _, rec := range r.s.ratings {
		if rec.rating.ProgramID == rating.ProgramID && rec.rating.UserID == rating.UserID {
			rec.rating.Rating = rating.Rating
			rec.rating.Review = rating.Review
			rec.rating.UpdatedAt = now
			rec.seq = r.s.nextSeq()
			stored := rec.rating
			return &stored, nil
		}
	}

	stored := domain.ProgramRating{
		ID:        primitive.NewObjectID(),
		ProgramID: rating.ProgramID,
		UserID:    rating.UserID,
		Rating:    rating.Rating,
		Review:    rating.Review,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.s.ratings[stored.ID] = &ratingRecord{rating: stored, seq: r.s.nextSeq()}
	return &stored, nil
}

func (r *ratingRepository) ListByProgram(_ context.Context, programID primitive.ObjectID) ([]domain.ProgramRating, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.listRatings(func(pr *domain.ProgramRating) bool { return pr.ProgramID == programID }), nil
}

func (r *ratingRepository) ListByPrograms(_ context.Context, programIDs []primitive.ObjectID) ([]domain.ProgramRating, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ids := idSet(programIDs)
	return r.s.listRatings(func(pr *domain.ProgramRating) bool {
		_, ok := ids[pr.ProgramID]
		return ok
	}), nil
}

func (r *ratingRepository) ListByUser(_ context.Context, userID primitive.ObjectID) ([]domain.ProgramRating, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.listRatings(func(pr *domain.ProgramRating) bool { return pr.UserID == userID }), nil
}

func (r *ratingRepository) DeleteByUser(_ context.Context, userID primitive.ObjectID) (int64, error) {
	return r.deleteWhere(func(pr *domain.ProgramRating) bool { return pr.UserID == userID }), nil
}

func (r *ratingRepository) DeleteByPrograms(_ context.Context, programIDs []primitive.ObjectID) (int64, error) {
	ids := idSet(programIDs)
	return r.deleteWhere(func(pr *domain.ProgramRating) bool {
		_, ok := ids[pr.ProgramID]
		return ok
	}), nil
}

func (r *ratingRepository) Summary(_ context.Context) (domain.RatingSummary, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var sum float64
	for _, rec := range r.s.ratings {
		sum += float64(rec.rating.Rating)
	}
	n := int64(len(r.s.ratings))
	return domain.RatingSummary{Average: domain.Mean(sum, n), Count: n}, nil
}

func (r *ratingRepository) deleteWhere(match func(pr *domain.ProgramRating) bool) int64 {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var deleted int64
	for id, rec := range r.s.ratings {
		if match(&rec.rating) {
			delete(r.s.ratings, id)
			deleted++
		}
	}
	return deleted
}

// listRatings returns matching ratings, most recently updated first. Callers hold the lock.
func (s *Store) listRatings(match func(pr *domain.ProgramRating) bool) []domain.ProgramRating {
	recs := []*ratingRecord{}
	for _, rec := range s.ratings {
		if match(&rec.rating) {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i].rating.UpdatedAt, recs[j].rating.UpdatedAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return recs[i].seq > recs[j].seq
	})
	ratings := make([]domain.ProgramRating, 0, len(recs))
	for _, rec := range recs {
		ratings = append(ratings, rec.rating)
	}
	return ratings
}

func idSet(ids []primitive.ObjectID) map[primitive.ObjectID]struct{} {
	set := make(map[primitive.ObjectID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
