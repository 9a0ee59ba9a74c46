package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Level is the difficulty of a program.
type Level string

const (
	LevelBeginner     Level = "Beginner"
	LevelIntermediate Level = "Intermediate"
	LevelAdvanced     Level = "Advanced"
)

// ParseLevel accepts the three known levels. An empty string defaults to Beginner.
func ParseLevel(raw string) (Level, bool) {
	switch Level(raw) {
	case "", LevelBeginner:
		return LevelBeginner, true
	case LevelIntermediate:
		return LevelIntermediate, true
	case LevelAdvanced:
		return LevelAdvanced, true
	default:
		return "", false
	}
}

// Exercise is one entry of a program's ordered exercise list.
type Exercise struct {
	ID   string `bson:"id" json:"id"` // Referenced by Enrollment.CompletedExercises
	Name string `bson:"name" json:"name"`
	Sets int    `bson:"sets" json:"sets"`
	Reps int    `bson:"reps" json:"reps"`
}

// Program is a workout program created and owned by a coach.
type Program struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Level       Level              `bson:"level" json:"level"`
	CoachID     primitive.ObjectID `bson:"coachId" json:"coachId"`
	Image       string             `bson:"image,omitempty" json:"image,omitempty"`
	Exercises   []Exercise         `bson:"exercises" json:"exercises"`
	Tags        []string           `bson:"tags,omitempty" json:"tags,omitempty"`

	// Denormalized aggregates. TotalEnrollments is incremented on enroll and
	// never decremented; AverageRating is recomputed on every rating upsert.
	TotalEnrollments int64   `bson:"totalEnrollments" json:"totalEnrollments"`
	AverageRating    float64 `bson:"averageRating" json:"averageRating"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// OwnedBy reports whether the coach owns the program.
func (p *Program) OwnedBy(coachID primitive.ObjectID) bool {
	return p.CoachID == coachID
}

// Summary projects a program into a ProgramSummary.
func (p *Program) Summary(withExercises bool) *ProgramSummary {
	if p == nil {
		return nil
	}
	s := &ProgramSummary{ID: p.ID, Title: p.Title, Level: p.Level}
	if withExercises {
		s.Exercises = p.Exercises
	}
	return s
}

// ProgramWithCoach is a program joined with its coach's public identity.
type ProgramWithCoach struct {
	Program
	Coach *UserSummary `json:"coach,omitempty"`
}
