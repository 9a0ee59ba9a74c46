// Package memory provides in-process implementations of the repository
// interfaces. They back the "memory" database driver and the service tests,
// and enforce the same uniqueness rules as the MongoDB indexes.
package memory

import (
	"alcyxob/gym-app/internal/repository"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store holds every collection behind one lock, so cross-collection reads
// (such as the coach name join) see a consistent state.
type Store struct {
	mu  sync.RWMutex
	seq int64
	now func() time.Time

	users       map[primitive.ObjectID]*userRecord
	programs    map[primitive.ObjectID]*programRecord
	enrollments map[primitive.ObjectID]*enrollmentRecord
	ratings     map[primitive.ObjectID]*ratingRecord
	history     map[primitive.ObjectID]*historyRecord
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		now:         func() time.Time { return time.Now().UTC() },
		users:       make(map[primitive.ObjectID]*userRecord),
		programs:    make(map[primitive.ObjectID]*programRecord),
		enrollments: make(map[primitive.ObjectID]*enrollmentRecord),
		ratings:     make(map[primitive.ObjectID]*ratingRecord),
		history:     make(map[primitive.ObjectID]*historyRecord),
	}
}

// WithClock replaces the store's time source. Used by tests that need
// deterministic timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

// nextSeq returns a monotonically increasing write sequence. It breaks ties
// between records written within the same clock tick. Callers hold the lock.
func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

func (s *Store) Users() repository.UserRepository {
	return &userRepository{s: s}
}

func (s *Store) Programs() repository.ProgramRepository {
	return &programRepository{s: s}
}

func (s *Store) Enrollments() repository.EnrollmentRepository {
	return &enrollmentRepository{s: s}
}

func (s *Store) Ratings() repository.RatingRepository {
	return &ratingRepository{s: s}
}

func (s *Store) StatsHistory() repository.StatsHistoryRepository {
	return &statsHistoryRepository{s: s}
}

// Set returns every repository backed by this store.
func (s *Store) Set() *repository.Set {
	return &repository.Set{
		Users:        s.Users(),
		Programs:     s.Programs(),
		Enrollments:  s.Enrollments(),
		Ratings:      s.Ratings(),
		StatsHistory: s.StatsHistory(),
	}
}
