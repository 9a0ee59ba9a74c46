package service

import (
	"alcyxob/gym-app/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Authorization policy: users act on themselves, coaches act on programs
// they own, admins act globally.

func requireAdmin(actor domain.Identity) error {
	if actor.Role != domain.RoleAdmin {
		return ErrAccessDenied
	}
	return nil
}

func requireSelfOrAdmin(actor domain.Identity, userID primitive.ObjectID) error {
	switch actor.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleCoach, domain.RoleClient:
		if actor.Is(userID) {
			return nil
		}
	}
	return ErrAccessDenied
}

func requireProgramOwnerOrAdmin(actor domain.Identity, program *domain.Program) error {
	switch actor.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleCoach:
		if program.OwnedBy(actor.UserID) {
			return nil
		}
	}
	return ErrAccessDenied
}
