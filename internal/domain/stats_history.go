package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StatsHistory is an append-only snapshot of a user's physical stats.
type StatsHistory struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID `bson:"userId" json:"userId"`
	Weight     *float64           `bson:"weight,omitempty" json:"weight,omitempty"`
	Squat      *float64           `bson:"squat,omitempty" json:"squat,omitempty"`
	Bench      *float64           `bson:"bench,omitempty" json:"bench,omitempty"`
	RecordedAt time.Time          `bson:"recordedAt" json:"recordedAt"`
}

// Stats returns the snapshot as PhysicalStats.
func (h StatsHistory) Stats() PhysicalStats {
	return PhysicalStats{Weight: h.Weight, Squat: h.Squat, Bench: h.Bench}
}

// StatsTrend is the change per metric between the oldest retained snapshot
// and the current stats.
type StatsTrend struct {
	Weight float64 `json:"weight"`
	Squat  float64 `json:"squat"`
	Bench  float64 `json:"bench"`
}

// TrendBetween computes current - oldest per metric. A metric that is missing
// or zero on either side has a trend of 0.
func TrendBetween(current, oldest PhysicalStats) StatsTrend {
	return StatsTrend{
		Weight: delta(current.Weight, oldest.Weight),
		Squat:  delta(current.Squat, oldest.Squat),
		Bench:  delta(current.Bench, oldest.Bench),
	}
}

func delta(current, oldest *float64) float64 {
	if current == nil || oldest == nil || *current == 0 || *oldest == 0 {
		return 0
	}
	return *current - *oldest
}
