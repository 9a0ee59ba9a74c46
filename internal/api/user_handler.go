package api

import (
	"alcyxob/gym-app/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService  service.UserService
	statsService service.StatsService
}

func NewUserHandler(userService service.UserService, statsService service.StatsService) *UserHandler {
	return &UserHandler{
		userService:  userService,
		statsService: statsService,
	}
}

type UpdateProfileRequest struct {
	Name  *string `json:"name" binding:"omitempty,min=1"`
	Image *string `json:"image"`
	Age   *int    `json:"age" binding:"omitempty,gte=0,lte=150"`
}

type CreateCoachRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type UpdateStatsRequest struct {
	Weight *float64 `json:"weight" binding:"omitempty,gte=0"`
	Squat  *float64 `json:"squat" binding:"omitempty,gte=0"`
	Bench  *float64 `json:"bench" binding:"omitempty,gte=0"`
}

type StatsHistoryQuery struct {
	Days int `form:"days" binding:"omitempty,gte=1,lte=3650"`
}

// GetProfile godoc
// @Summary Get a user profile
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param userId path string true "User ID"
// @Success 200 {object} UserResponse
// @Failure 403 {object} gin.H "Not your profile"
// @Failure 404 {object} gin.H "User not found"
// @Router /users/{userId} [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}

	user, err := h.userService.GetProfile(c.Request.Context(), identity, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapUserToResponse(user))
}

// UpdateProfile godoc
// @Summary Update name, image or age of a user
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userId path string true "User ID"
// @Param profile body UpdateProfileRequest true "Fields to change"
// @Success 200 {object} UserResponse
// @Router /users/{userId} [patch]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), identity, userID, service.ProfileUpdate{
		Name:  req.Name,
		Image: req.Image,
		Age:   req.Age,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapUserToResponse(user))
}

func (h *UserHandler) ListCoaches(c *gin.Context) {
	coaches, err := h.userService.ListCoaches(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapUsersToResponse(coaches))
}

// --- Admin ---

// CreateCoach godoc
// @Summary Create a coach account
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param coach body CreateCoachRequest true "Coach details"
// @Success 201 {object} UserResponse
// @Failure 409 {object} gin.H "Email already exists"
// @Router /admin/coaches [post]
func (h *UserHandler) CreateCoach(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	var req CreateCoachRequest
	if !bindJSON(c, &req) {
		return
	}

	coach, err := h.userService.CreateCoach(c.Request.Context(), identity, service.CreateCoachInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, MapUserToResponse(coach))
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	users, err := h.userService.ListUsers(c.Request.Context(), identity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapUsersToResponse(users))
}

func (h *UserHandler) ToggleStatus(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	user, err := h.userService.ToggleStatus(c.Request.Context(), identity, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapUserToResponse(user))
}

// DeleteUser godoc
// @Summary Delete an account with its enrollments, ratings and, for coaches, programs
// @Tags Admin
// @Security BearerAuth
// @Param userId path string true "User ID"
// @Success 204
// @Failure 404 {object} gin.H "User not found"
// @Router /admin/users/{userId} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	if err := h.userService.DeleteUser(c.Request.Context(), identity, userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Physical stats ---

func (h *UserHandler) UpdateStats(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	var req UpdateStatsRequest
	if !bindJSON(c, &req) {
		return
	}

	stats, err := h.statsService.UpdateStats(c.Request.Context(), identity, userID, service.StatsInput{
		Weight: req.Weight,
		Squat:  req.Squat,
		Bench:  req.Bench,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// StatsHistory returns the snapshots of the last `days` days (default 30), oldest first.
func (h *UserHandler) StatsHistory(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	var query StatsHistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	history, err := h.statsService.History(c.Request.Context(), identity, userID, query.Days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *UserHandler) StatsAnalytics(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	analytics, err := h.statsService.Analytics(c.Request.Context(), identity, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, analytics)
}
