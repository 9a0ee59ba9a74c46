package memory

import (
	"alcyxob/gym-app/internal/domain"
	"alcyxob/gym-app/internal/repository"
	"context"
	"errors"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type programRecord struct {
	program domain.Program
	seq     int64
}

type programRepository struct {
	s *Store
}

func (r *programRepository) Create(_ context.Context, program *domain.Program) (primitive.ObjectID, error) {
	if program.CoachID == primitive.NilObjectID || program.Title == "" {
		return primitive.NilObjectID, errors.New("program requires coachId and title")
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	program.ID = primitive.NewObjectID()
	now := r.s.now()
	program.CreatedAt = now
	program.UpdatedAt = now
	program.TotalEnrollments = 0
	program.AverageRating = 0
	if program.Exercises == nil {
		program.Exercises = []domain.Exercise{}
	}
	r.s.programs[program.ID] = &programRecord{program: copyProgram(*program), seq: r.s.nextSeq()}
	return program.ID, nil
}

func (r *programRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Program, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.programs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p := copyProgram(rec.program)
	return &p, nil
}

func (r *programRepository) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]domain.Program, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	programs := []domain.Program{}
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if rec, ok := r.s.programs[id]; ok {
			programs = append(programs, copyProgram(rec.program))
		}
	}
	return programs, nil
}

func (r *programRepository) List(_ context.Context, filter repository.ProgramFilter) ([]domain.Program, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	query := strings.ToLower(filter.Query)
	recs := make([]*programRecord, 0, len(r.s.programs))
	for _, rec := range r.s.programs {
		p := &rec.program
		if query != "" && !strings.Contains(strings.ToLower(p.Title), query) {
			continue
		}
		if filter.Level != "" && p.Level != filter.Level {
			continue
		}
		if filter.CoachID != nil && p.CoachID != *filter.CoachID {
			continue
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i].program, recs[j].program
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.Hex() > b.ID.Hex()
	})
	return programsOf(recs, 0), nil
}

func (r *programRepository) Update(_ context.Context, program *domain.Program) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.programs[program.ID]
	if !ok {
		return repository.ErrNotFound
	}
	program.UpdatedAt = r.s.now()
	updated := copyProgram(*program)
	rec.program.Title = updated.Title
	rec.program.Description = updated.Description
	rec.program.Level = updated.Level
	rec.program.Image = updated.Image
	rec.program.Exercises = updated.Exercises
	rec.program.Tags = updated.Tags
	rec.program.UpdatedAt = updated.UpdatedAt
	rec.seq = r.s.nextSeq()
	return nil
}

func (r *programRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.programs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.programs, id)
	return nil
}

func (r *programRepository) IncrementEnrollments(_ context.Context, id primitive.ObjectID, delta int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.programs[id]
	if !ok {
		return repository.ErrNotFound
	}
	rec.program.TotalEnrollments += delta
	return nil
}

func (r *programRepository) SetAverageRating(_ context.Context, id primitive.ObjectID, avg float64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.programs[id]
	if !ok {
		return repository.ErrNotFound
	}
	rec.program.AverageRating = avg
	return nil
}

func (r *programRepository) Count(_ context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.programs)), nil
}

func (r *programRepository) TopByEnrollments(_ context.Context, limit int) ([]domain.Program, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	recs := make([]*programRecord, 0, len(r.s.programs))
	for _, rec := range r.s.programs {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i].program, recs[j].program
		if a.TotalEnrollments != b.TotalEnrollments {
			return a.TotalEnrollments > b.TotalEnrollments
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return programsOf(recs, limit), nil
}

// CountByCoach mirrors the $group/$lookup pipeline: coaches missing from the
// users collection are dropped like an $unwind over an empty join.
func (r *programRepository) CountByCoach(_ context.Context, limit int) ([]domain.CoachProgramCount, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := make(map[primitive.ObjectID]int64)
	for _, rec := range r.s.programs {
		counts[rec.program.CoachID]++
	}

	rows := make([]domain.CoachProgramCount, 0, len(counts))
	for coachID, n := range counts {
		coach, ok := r.s.users[coachID]
		if !ok {
			continue
		}
		rows = append(rows, domain.CoachProgramCount{CoachID: coachID, Name: coach.user.Name, ProgramCount: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ProgramCount != rows[j].ProgramCount {
			return rows[i].ProgramCount > rows[j].ProgramCount
		}
		return rows[i].Name < rows[j].Name
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func programsOf(recs []*programRecord, limit int) []domain.Program {
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	programs := make([]domain.Program, 0, len(recs))
	for _, rec := range recs {
		programs = append(programs, copyProgram(rec.program))
	}
	return programs
}

func copyProgram(p domain.Program) domain.Program {
	p.Exercises = append([]domain.Exercise(nil), p.Exercises...)
	if p.Tags != nil {
		p.Tags = append([]string(nil), p.Tags...)
	}
	return p
}
