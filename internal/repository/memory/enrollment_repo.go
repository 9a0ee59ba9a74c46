package memory

import (
	"alcyxob/gym-app/internal/domain"
	"alcyxob/gym-app/internal/repository"
	"context"
	"errors"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type enrollmentRecord struct {
	enrollment domain.Enrollment
	seq        int64
}

type enrollmentRepository struct {
	s *Store
}

func (r *enrollmentRepository) Create(_ context.Context, enrollment *domain.Enrollment) (primitive.ObjectID, error) {
	if enrollment.StudentID == primitive.NilObjectID || enrollment.ProgramID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("enrollment requires studentId and programId")
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, rec := range r.s.enrollments {
		if rec.enrollment.StudentID == enrollment.StudentID && rec.enrollment.ProgramID == enrollment.ProgramID {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}

	enrollment.ID = primitive.NewObjectID()
	now := r.s.now()
	if enrollment.JoinedAt.IsZero() {
		enrollment.JoinedAt = now
	}
	if enrollment.Status == "" {
		enrollment.Status = domain.EnrollmentActive
	}
	if enrollment.CompletedExercises == nil {
		enrollment.CompletedExercises = []string{}
	}
	enrollment.CreatedAt = now
	enrollment.UpdatedAt = now
	r.s.enrollments[enrollment.ID] = &enrollmentRecord{enrollment: copyEnrollment(*enrollment), seq: r.s.nextSeq()}
	return enrollment.ID, nil
}

func (r *enrollmentRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Enrollment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.enrollments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	e := copyEnrollment(rec.enrollment)
	return &e, nil
}

func (r *enrollmentRepository) GetByStudentAndProgram(_ context.Context, studentID, programID primitive.ObjectID) (*domain.Enrollment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, rec := range r.s.enrollments {
		if rec.enrollment.StudentID == studentID && rec.enrollment.ProgramID == programID {
			e := copyEnrollment(rec.enrollment)
			return &e, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *enrollmentRepository) List(_ context.Context, filter repository.EnrollmentFilter, sortBy repository.EnrollmentSort) ([]domain.Enrollment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	recs := r.s.matchEnrollments(filter)
	sort.Slice(recs, func(i, j int) bool {
		a, b := sortKey(&recs[i].enrollment, sortBy), sortKey(&recs[j].enrollment, sortBy)
		if !a.Equal(b) {
			return a.After(b)
		}
		return recs[i].seq > recs[j].seq
	})

	enrollments := make([]domain.Enrollment, 0, len(recs))
	for _, rec := range recs {
		enrollments = append(enrollments, copyEnrollment(rec.enrollment))
	}
	return enrollments, nil
}

func (r *enrollmentRepository) ApplyProgress(_ context.Context, id primitive.ObjectID, upd domain.ProgressUpdate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.enrollments[id]
	if !ok {
		return repository.ErrNotFound
	}
	upd.Apply(&rec.enrollment)
	rec.seq = r.s.nextSeq()
	return nil
}

func (r *enrollmentRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.enrollments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.enrollments, id)
	return nil
}

func (r *enrollmentRepository) DeleteMany(_ context.Context, filter repository.EnrollmentFilter) (int64, error) {
	if filter.StudentID == nil && filter.ProgramIDs == nil && filter.Status == nil {
		return 0, errors.New("refusing to delete enrollments without a filter")
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	recs := r.s.matchEnrollments(filter)
	for _, rec := range recs {
		delete(r.s.enrollments, rec.enrollment.ID)
	}
	return int64(len(recs)), nil
}

func (r *enrollmentRepository) Count(_ context.Context, filter repository.EnrollmentFilter) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.matchEnrollments(filter))), nil
}

func (r *enrollmentRepository) CountByProgram(_ context.Context, programIDs []primitive.ObjectID) (map[primitive.ObjectID]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := make(map[primitive.ObjectID]int64, len(programIDs))
	for _, id := range programIDs {
		counts[id] = 0
	}
	for _, rec := range r.s.enrollments {
		if _, ok := counts[rec.enrollment.ProgramID]; ok {
			counts[rec.enrollment.ProgramID]++
		}
	}
	return counts, nil
}

func (r *enrollmentRepository) DistinctStudents(_ context.Context, filter repository.EnrollmentFilter) ([]primitive.ObjectID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	seen := make(map[primitive.ObjectID]struct{})
	ids := []primitive.ObjectID{}
	for _, rec := range r.s.matchEnrollments(filter) {
		if _, ok := seen[rec.enrollment.StudentID]; ok {
			continue
		}
		seen[rec.enrollment.StudentID] = struct{}{}
		ids = append(ids, rec.enrollment.StudentID)
	}
	return ids, nil
}

// matchEnrollments returns the records matching the filter. Callers hold the lock.
func (s *Store) matchEnrollments(filter repository.EnrollmentFilter) []*enrollmentRecord {
	var programs map[primitive.ObjectID]struct{}
	if filter.ProgramIDs != nil {
		programs = make(map[primitive.ObjectID]struct{}, len(filter.ProgramIDs))
		for _, id := range filter.ProgramIDs {
			programs[id] = struct{}{}
		}
	}

	recs := []*enrollmentRecord{}
	for _, rec := range s.enrollments {
		e := &rec.enrollment
		if filter.StudentID != nil && e.StudentID != *filter.StudentID {
			continue
		}
		if programs != nil {
			if _, ok := programs[e.ProgramID]; !ok {
				continue
			}
		}
		if filter.Status != nil && e.Status != *filter.Status {
			continue
		}
		recs = append(recs, rec)
	}
	return recs
}

func sortKey(e *domain.Enrollment, sortBy repository.EnrollmentSort) time.Time {
	switch sortBy {
	case repository.SortByCreatedAt:
		return e.CreatedAt
	case repository.SortByLastActivity:
		// Never-active enrollments sort last, like a missing field in MongoDB
		if e.LastActivityDate == nil {
			return time.Time{}
		}
		return *e.LastActivityDate
	default:
		return e.JoinedAt
	}
}

func copyEnrollment(e domain.Enrollment) domain.Enrollment {
	e.CompletedExercises = append([]string{}, e.CompletedExercises...)
	if e.LastActivityDate != nil {
		at := *e.LastActivityDate
		e.LastActivityDate = &at
	}
	return e
}
