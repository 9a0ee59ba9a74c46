package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Read-only rollups served to the dashboards. Every mean or ratio in here is 0
// when computed over an empty set.

type AdminOverview struct {
	Overview      AdminTotals          `json:"overview"`
	UsersByRole   map[Role]int64       `json:"usersByRole"`
	TopPrograms   []ProgramEnrollments `json:"topPrograms"`
	CoachPrograms []CoachProgramCount  `json:"coachPrograms"`
	RecentUsers   []RecentUser         `json:"recentUsers"`
}

type AdminTotals struct {
	TotalUsers        int64   `json:"totalUsers"`
	TotalCoaches      int64   `json:"totalCoaches"`
	TotalClients      int64   `json:"totalClients"`
	TotalPrograms     int64   `json:"totalPrograms"`
	TotalEnrollments  int64   `json:"totalEnrollments"`
	ActiveEnrollments int64   `json:"activeEnrollments"`
	AvgSystemRating   float64 `json:"avgSystemRating"`
	TotalRatings      int64   `json:"totalRatings"`
}

// ProgramEnrollments pairs a program's stored counter with an independent
// count of its enrollment records.
type ProgramEnrollments struct {
	Program            Program      `json:"program"`
	Coach              *UserSummary `json:"coach,omitempty"`
	CountedEnrollments int64        `json:"countedEnrollments"`
}

// CoachProgramCount is one row of the programs-per-coach grouping.
type CoachProgramCount struct {
	CoachID      primitive.ObjectID `bson:"_id" json:"coachId"`
	Name         string             `bson:"name" json:"name"`
	ProgramCount int64              `bson:"programCount" json:"programCount"`
}

type RecentUser struct {
	ID        primitive.ObjectID `json:"id"`
	Role      Role               `json:"role"`
	CreatedAt time.Time          `json:"createdAt"`
}

// RatingSummary is the result of a grouped average over ratings.
type RatingSummary struct {
	Average float64 `bson:"avgRating" json:"average"`
	Count   int64   `bson:"totalRatings" json:"count"`
}

type CoachOverview struct {
	Overview CoachTotals           `json:"overview"`
	Programs []ProgramStudentCount `json:"programs"`
	Ratings  []RatingWithUser      `json:"ratings"`
}

type CoachTotals struct {
	TotalPrograms       int64   `json:"totalPrograms"`
	TotalEnrollments    int64   `json:"totalEnrollments"`
	TotalActiveStudents int64   `json:"totalActiveStudents"`
	AvgRating           float64 `json:"avgRating"`
}

type ProgramStudentCount struct {
	Program
	StudentCount int64 `json:"studentCount"`
}

type ClientOverview struct {
	TotalPrograms     int64                   `json:"totalPrograms"`
	CompletedPrograms int64                   `json:"completedPrograms"`
	ActivePrograms    int64                   `json:"activePrograms"`
	AvgProgress       float64                 `json:"avgProgress"`
	Enrollments       []EnrollmentWithProgram `json:"enrollments"`
}

type StatsAnalytics struct {
	Current PhysicalStats  `json:"current"`
	Trends  StatsTrend     `json:"trends"`
	History []StatsHistory `json:"history"`
}

// Mean returns sum/n, or 0 when n is 0.
func Mean(sum float64, n int64) float64 {
	if n <= 0 {
		return 0
	}
	return sum / float64(n)
}
