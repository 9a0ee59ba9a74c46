package memory

import (
	"alcyxob/gym-app/internal/domain"
	"alcyxob/gym-app/internal/repository"
	"context"
	"errors"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type userRecord struct {
	user domain.User
	seq  int64
}

type userRepository struct {
	s *Store
}

func (r *userRepository) Create(_ context.Context, user *domain.User) (primitive.ObjectID, error) {
	if user.Email == "" || user.PasswordHash == "" || user.Role == "" {
		return primitive.NilObjectID, errors.New("user email, password hash, and role are required")
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, rec := range r.s.users {
		if rec.user.Email == user.Email {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}

	user.ID = primitive.NewObjectID()
	now := r.s.now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = &userRecord{user: copyUser(*user), seq: r.s.nextSeq()}
	return user.ID, nil
}

func (r *userRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, rec := range r.s.users {
		if rec.user.Email == email {
			u := copyUser(rec.user)
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u := copyUser(rec.user)
	return &u, nil
}

func (r *userRepository) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	users := []domain.User{}
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if rec, ok := r.s.users[id]; ok {
			users = append(users, copyUser(rec.user))
		}
	}
	return users, nil
}

func (r *userRepository) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.listUsers(func(u *domain.User) bool {
		if filter.Role != nil && u.Role != *filter.Role {
			return false
		}
		if filter.ActiveOnly && !u.IsActive {
			return false
		}
		return true
	}, 0), nil
}

func (r *userRepository) UpdateProfile(_ context.Context, id primitive.ObjectID, upd repository.UserProfileUpdate) error {
	return r.update(id, func(u *domain.User) {
		if upd.Name != nil {
			u.Name = *upd.Name
		}
		if upd.Image != nil {
			u.Image = *upd.Image
		}
		if upd.Age != nil {
			age := *upd.Age
			u.Age = &age
		}
	})
}

func (r *userRepository) SetActive(_ context.Context, id primitive.ObjectID, active bool) error {
	return r.update(id, func(u *domain.User) {
		u.IsActive = active
	})
}

func (r *userRepository) SetPhysicalStats(_ context.Context, id primitive.ObjectID, stats domain.PhysicalStats) error {
	return r.update(id, func(u *domain.User) {
		cp := copyStats(stats)
		u.PhysicalStats = &cp
	})
}

func (r *userRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.users, id)
	return nil
}

func (r *userRepository) CountActiveByRole(_ context.Context) (map[domain.Role]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := make(map[domain.Role]int64, len(domain.Roles))
	for _, role := range domain.Roles {
		counts[role] = 0
	}
	for _, rec := range r.s.users {
		if !rec.user.IsActive {
			continue
		}
		if _, ok := domain.ParseRole(string(rec.user.Role)); ok {
			counts[rec.user.Role]++
		}
	}
	return counts, nil
}

func (r *userRepository) ListRecentActive(_ context.Context, limit int) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.listUsers(func(u *domain.User) bool { return u.IsActive }, limit), nil
}

func (r *userRepository) update(id primitive.ObjectID, fn func(u *domain.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&rec.user)
	rec.user.UpdatedAt = r.s.now()
	rec.seq = r.s.nextSeq()
	return nil
}

// listUsers returns matching users, newest first. Callers hold the lock.
func (s *Store) listUsers(match func(u *domain.User) bool, limit int) []domain.User {
	recs := make([]*userRecord, 0, len(s.users))
	for _, rec := range s.users {
		if match(&rec.user) {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i].user, recs[j].user
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.Hex() > b.ID.Hex()
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	users := make([]domain.User, 0, len(recs))
	for _, rec := range recs {
		users = append(users, copyUser(rec.user))
	}
	return users
}

func copyUser(u domain.User) domain.User {
	if u.Age != nil {
		age := *u.Age
		u.Age = &age
	}
	if u.PhysicalStats != nil {
		stats := copyStats(*u.PhysicalStats)
		u.PhysicalStats = &stats
	}
	return u
}

func copyStats(s domain.PhysicalStats) domain.PhysicalStats {
	return domain.PhysicalStats{
		Weight: copyFloat(s.Weight),
		Squat:  copyFloat(s.Squat),
		Bench:  copyFloat(s.Bench),
	}
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
