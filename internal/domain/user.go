package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is the closed set of user roles. Use ParseRole at the boundary where
// identity is established; everything past that point switches on the enum.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleCoach  Role = "coach"
	RoleClient Role = "client"
)

// Roles lists every valid role, in display order.
var Roles = []Role{RoleAdmin, RoleCoach, RoleClient}

// ParseRole converts a raw string (token claim, query param) into a Role.
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleCoach:
		return RoleCoach, true
	case RoleClient:
		return RoleClient, true
	default:
		return "", false
	}
}

// PhysicalStats is the latest snapshot of a user's body and lift numbers.
// Nil fields were never reported.
type PhysicalStats struct {
	Weight *float64 `bson:"weight,omitempty" json:"weight,omitempty"`
	Squat  *float64 `bson:"squat,omitempty" json:"squat,omitempty"`
	Bench  *float64 `bson:"bench,omitempty" json:"bench,omitempty"`
}

// User represents an account in the gym (admin, coach or client).
type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"`
	Email         string             `bson:"email" json:"email"`    // Unique
	PasswordHash  string             `bson:"passwordHash" json:"-"` // Never expose this via JSON
	Role          Role               `bson:"role" json:"role"`
	Image         string             `bson:"image,omitempty" json:"image,omitempty"` // Opaque URL from the upload flow
	Age           *int               `bson:"age,omitempty" json:"age,omitempty"`
	IsActive      bool               `bson:"isActive" json:"isActive"`
	PhysicalStats *PhysicalStats     `bson:"physicalStats,omitempty" json:"physicalStats,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsCoach() bool {
	return u.Role == RoleCoach
}

func (u *User) IsClient() bool {
	return u.Role == RoleClient
}

// Identity is the already-authenticated caller of a service operation.
type Identity struct {
	UserID primitive.ObjectID
	Role   Role
}

// Is reports whether the identity belongs to the given user.
func (i Identity) Is(userID primitive.ObjectID) bool {
	return i.UserID == userID
}
