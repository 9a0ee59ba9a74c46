package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EnrollmentStatus is the lifecycle state of an enrollment.
// The only transition is active -> completed.
type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
)

// CompletionThreshold is the progress at which an enrollment becomes completed.
const CompletionThreshold = 100

// Enrollment links one student to one program. At most one exists per
// (StudentID, ProgramID) pair.
type Enrollment struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	StudentID          primitive.ObjectID `bson:"studentId" json:"studentId"`
	ProgramID          primitive.ObjectID `bson:"programId" json:"programId"`
	Status             EnrollmentStatus   `bson:"status" json:"status"`
	Progress           float64            `bson:"progress" json:"progress"` // 0..100
	CompletedExercises []string           `bson:"completedExercises" json:"completedExercises"`
	JoinedAt           time.Time          `bson:"joinedAt" json:"joinedAt"`
	LastActivityDate   *time.Time         `bson:"lastActivityDate,omitempty" json:"lastActivityDate,omitempty"`
	CreatedAt          time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (e *Enrollment) IsCompleted() bool {
	return e.Status == EnrollmentCompleted
}

// ProgressUpdate is a partial update of an enrollment's progress fields.
// CompletedExercises is only written when non-nil.
type ProgressUpdate struct {
	Progress           float64
	CompletedExercises *[]string
	Status             *EnrollmentStatus
	At                 time.Time
}

// NewProgressUpdate builds the update for a progress report, flipping the
// status to completed once the threshold is reached.
func NewProgressUpdate(progress float64, completed *[]string, at time.Time) ProgressUpdate {
	upd := ProgressUpdate{
		Progress:           progress,
		CompletedExercises: completed,
		At:                 at,
	}
	if progress >= CompletionThreshold {
		status := EnrollmentCompleted
		upd.Status = &status
	}
	return upd
}

// Apply writes the update onto an in-memory enrollment.
func (u ProgressUpdate) Apply(e *Enrollment) {
	e.Progress = u.Progress
	at := u.At
	e.LastActivityDate = &at
	e.UpdatedAt = u.At
	if u.CompletedExercises != nil {
		e.CompletedExercises = append([]string(nil), (*u.CompletedExercises)...)
	}
	if u.Status != nil {
		e.Status = *u.Status
	}
}

// EnrollmentWithProgram is an enrollment joined with its program and the
// program's coach, used by student dashboards.
type EnrollmentWithProgram struct {
	Enrollment
	Program *Program     `json:"program"`
	Coach   *UserSummary `json:"coach,omitempty"`
}

// EnrollmentWithStudent is an enrollment joined with the enrolled student,
// used by coach roster views.
type EnrollmentWithStudent struct {
	Enrollment
	Student *UserSummary    `json:"student"`
	Program *ProgramSummary `json:"program,omitempty"`
}

// UserSummary is the public projection of a user used in joins.
type UserSummary struct {
	ID            primitive.ObjectID `json:"id"`
	Name          string             `json:"name"`
	Email         string             `json:"email,omitempty"`
	Image         string             `json:"image,omitempty"`
	Age           *int               `json:"age,omitempty"`
	PhysicalStats *PhysicalStats     `json:"physicalStats,omitempty"`
}

// Summary projects a user into a UserSummary.
func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Image:         u.Image,
		Age:           u.Age,
		PhysicalStats: u.PhysicalStats,
	}
}

// ProgramSummary is the short projection of a program used in joins.
type ProgramSummary struct {
	ID        primitive.ObjectID `json:"id"`
	Title     string             `json:"title"`
	Level     Level              `json:"level"`
	Exercises []Exercise         `json:"exercises,omitempty"`
}
