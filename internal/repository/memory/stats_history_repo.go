package memory

import (
	"alcyxob/gym-app/internal/domain"
	"alcyxob/gym-app/internal/repository"
	"context"
	"errors"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type historyRecord struct {
	entry domain.StatsHistory
	seq   int64
}

type statsHistoryRepository struct {
	s *Store
}

func (r *statsHistoryRepository) Append(_ context.Context, entry *domain.StatsHistory) (primitive.ObjectID, error) {
	if entry.UserID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("stats history entry requires userId")
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	entry.ID = primitive.NewObjectID()
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = r.s.now()
	}
	r.s.history[entry.ID] = &historyRecord{entry: copyHistory(*entry), seq: r.s.nextSeq()}
	return entry.ID, nil
}

func (r *statsHistoryRepository) ListByUser(_ context.Context, userID primitive.ObjectID, query repository.StatsQuery) ([]domain.StatsHistory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	recs := []*historyRecord{}
	for _, rec := range r.s.history {
		if rec.entry.UserID != userID {
			continue
		}
		if query.Since != nil && rec.entry.RecordedAt.Before(*query.Since) {
			continue
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if query.NewestFirst {
			a, b = b, a
		}
		if !a.entry.RecordedAt.Equal(b.entry.RecordedAt) {
			return a.entry.RecordedAt.Before(b.entry.RecordedAt)
		}
		return a.seq < b.seq
	})
	if query.Limit > 0 && len(recs) > query.Limit {
		recs = recs[:query.Limit]
	}

	history := make([]domain.StatsHistory, 0, len(recs))
	for _, rec := range recs {
		history = append(history, copyHistory(rec.entry))
	}
	return history, nil
}

func copyHistory(h domain.StatsHistory) domain.StatsHistory {
	h.Weight = copyFloat(h.Weight)
	h.Squat = copyFloat(h.Squat)
	h.Bench = copyFloat(h.Bench)
	return h
}
