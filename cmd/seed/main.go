// Command seed fills a database with fake coaches, clients, programs,
// enrollments, ratings and stats. Everything except the admin account goes
// through the services, so the seeded data obeys the same rules as the API.
package main

import (
	"alcyxob/gym-app/internal/config"
	"alcyxob/gym-app/internal/domain"
	"alcyxob/gym-app/internal/logging"
	"alcyxob/gym-app/internal/repository"
	"alcyxob/gym-app/internal/repository/mongo"
	"alcyxob/gym-app/internal/service"
	"alcyxob/gym-app/internal/telemetry/metrics"
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const seedPassword = "password123"

var levels = []string{string(domain.LevelBeginner), string(domain.LevelIntermediate), string(domain.LevelAdvanced)}

func main() {
	coaches := flag.Int("coaches", 3, "number of coaches")
	clients := flag.Int("clients", 20, "number of clients")
	programsPerCoach := flag.Int("programs", 3, "programs per coach")
	seed := flag.Int64("seed", 0, "random seed, 0 picks one from the clock")
	adminEmail := flag.String("admin-email", "admin@gym.local", "email of the admin account")
	flag.Parse()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}
	logging.Setup(logging.LoggerSetupParams{LogToStdout: true, LogLevel: cfg.Log.Level})
	if cfg.Database.Driver != config.DriverMongo {
		log.Fatal("seeding needs database.driver=mongo, the in-memory store does not outlive this process")
	}

	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("could not connect to MongoDB: %v", err)
	}
	defer func() {
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.WithError(err).Error("disconnect MongoDB")
		}
	}()
	db := dbClient.Database(cfg.Database.Name)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if err := mongo.EnsureIndexes(ctx, db); err != nil {
		log.Fatalf("ensure indexes: %v", err)
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	s := newSeeder(mongo.NewRepositories(db), cfg, gofakeit.New(*seed))
	if err := s.run(ctx, *adminEmail, *coaches, *clients, *programsPerCoach); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
	log.WithFields(log.Fields{
		"seed":     *seed,
		"admin":    *adminEmail,
		"password": seedPassword,
	}).Info("database seeded")
}

type seeder struct {
	faker *gofakeit.Faker
	repos *repository.Set

	auth       service.AuthService
	users      service.UserService
	programs   service.ProgramService
	enrollment service.EnrollmentService
	progress   service.ProgressService
	ratings    service.RatingService
	stats      service.StatsService
}

func newSeeder(repos *repository.Set, cfg config.Config, faker *gofakeit.Faker) *seeder {
	// Seeding metrics are not exported anywhere
	metricsManager := metrics.NewManager(cfg.Metrics.Namespace, "seed", prometheus.NewRegistry())
	return &seeder{
		faker:      faker,
		repos:      repos,
		auth:       service.NewAuthService(repos.Users, cfg.JWT.Secret, cfg.JWT.Expiration),
		users:      service.NewUserService(repos.Users, repos.Programs, repos.Enrollments, repos.Ratings, nil),
		programs:   service.NewProgramService(repos.Users, repos.Programs, repos.Enrollments, repos.Ratings, nil),
		enrollment: service.NewEnrollmentService(repos.Users, repos.Programs, repos.Enrollments, metricsManager),
		progress:   service.NewProgressService(repos.Programs, repos.Enrollments),
		ratings:    service.NewRatingService(repos.Users, repos.Programs, repos.Ratings, metricsManager),
		stats:      service.NewStatsService(repos.Users, repos.StatsHistory, cfg.Analytics.StatsWindow),
	}
}

func (s *seeder) run(ctx context.Context, adminEmail string, coachCount, clientCount, programsPerCoach int) error {
	admin, err := s.ensureAdmin(ctx, adminEmail)
	if err != nil {
		return fmt.Errorf("admin: %w", err)
	}

	var programs []*domain.Program
	for i := 0; i < coachCount; i++ {
		coach, err := s.users.CreateCoach(ctx, admin, service.CreateCoachInput{
			Name:     s.faker.Name(),
			Email:    s.uniqueEmail("coach", i),
			Password: seedPassword,
		})
		if err != nil {
			return fmt.Errorf("coach %d: %w", i, err)
		}
		coachID := domain.Identity{UserID: coach.ID, Role: coach.Role}
		for j := 0; j < programsPerCoach; j++ {
			program, err := s.programs.Create(ctx, coachID, s.fakeProgram())
			if err != nil {
				return fmt.Errorf("program %d of coach %d: %w", j, i, err)
			}
			programs = append(programs, program)
		}
	}
	log.WithFields(log.Fields{"coaches": coachCount, "programs": len(programs)}).Info("coaches and programs created")

	for i := 0; i < clientCount; i++ {
		age := s.faker.Number(16, 70)
		client, err := s.auth.Register(ctx, service.RegisterInput{
			Name:     s.faker.Name(),
			Email:    s.uniqueEmail("client", i),
			Password: seedPassword,
			Age:      &age,
		})
		if err != nil {
			return fmt.Errorf("client %d: %w", i, err)
		}
		identity := domain.Identity{UserID: client.ID, Role: client.Role}
		if err := s.seedStats(ctx, identity); err != nil {
			return fmt.Errorf("stats of client %d: %w", i, err)
		}
		if err := s.seedEnrollments(ctx, identity, programs); err != nil {
			return fmt.Errorf("enrollments of client %d: %w", i, err)
		}
	}
	log.WithField("clients", clientCount).Info("clients, enrollments and ratings created")
	return nil
}

// ensureAdmin stores the admin account directly; no API creates admins.
func (s *seeder) ensureAdmin(ctx context.Context, email string) (domain.Identity, error) {
	existing, err := s.repos.Users.GetByEmail(ctx, email)
	if err == nil {
		return domain.Identity{UserID: existing.ID, Role: existing.Role}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.Identity{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		return domain.Identity{}, err
	}
	admin := &domain.User{
		Name:         "Administrator",
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		IsActive:     true,
	}
	if _, err = s.repos.Users.Create(ctx, admin); err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{UserID: admin.ID, Role: admin.Role}, nil
}

func (s *seeder) fakeProgram() service.ProgramInput {
	in := service.ProgramInput{
		Title:       s.faker.Adjective() + " " + s.faker.Noun() + " program",
		Description: s.faker.Sentence(12),
		Level:       s.faker.RandomString(levels),
		Tags:        []string{s.faker.Noun(), s.faker.Noun()},
	}
	for i, n := 0, s.faker.Number(3, 8); i < n; i++ {
		in.Exercises = append(in.Exercises, service.ExerciseInput{
			Name: s.faker.Verb() + " " + s.faker.Noun(),
			Sets: s.faker.Number(2, 5),
			Reps: s.faker.Number(5, 15),
		})
	}
	return in
}

// seedEnrollments enrolls the client in a few programs, reports progress on
// each and rates some of them.
func (s *seeder) seedEnrollments(ctx context.Context, client domain.Identity, programs []*domain.Program) error {
	if len(programs) == 0 {
		return nil
	}
	picked := map[int]struct{}{}
	for i, n := 0, s.faker.Number(0, min(3, len(programs))); i < n; i++ {
		idx := s.faker.Number(0, len(programs)-1)
		if _, dup := picked[idx]; dup {
			continue
		}
		picked[idx] = struct{}{}
		program := programs[idx]

		enrollment, err := s.enrollment.Enroll(ctx, client, client.UserID, program.ID)
		if err != nil {
			return err
		}

		var done []string
		for _, e := range program.Exercises {
			if s.faker.Bool() {
				done = append(done, e.ID)
			}
		}
		progress := float64(100 * len(done) / max(1, len(program.Exercises)))
		if _, err = s.progress.UpdateProgress(ctx, client, enrollment.ID, progress, &done); err != nil {
			return err
		}

		if s.faker.Bool() {
			if _, err = s.ratings.Rate(ctx, program.ID, client.UserID, s.faker.Number(domain.MinRating, domain.MaxRating), s.faker.Sentence(8)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *seeder) seedStats(ctx context.Context, client domain.Identity) error {
	weight := s.faker.Float64Range(55, 110)
	squat := s.faker.Float64Range(40, 180)
	bench := s.faker.Float64Range(30, 140)
	for i, n := 0, s.faker.Number(1, 4); i < n; i++ {
		weight += s.faker.Float64Range(-2, 2)
		squat += s.faker.Float64Range(0, 5)
		bench += s.faker.Float64Range(0, 3)
		w, sq, b := round1(weight), round1(squat), round1(bench)
		if _, err := s.stats.UpdateStats(ctx, client, client.UserID, service.StatsInput{Weight: &w, Squat: &sq, Bench: &b}); err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) uniqueEmail(kind string, i int) string {
	return fmt.Sprintf("%s%d.%s@gym.local", kind, i, strings.ToLower(s.faker.LetterN(6)))
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
