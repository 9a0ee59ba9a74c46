package api

import (
	"alcyxob/gym-app/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

type ProgramHandler struct {
	programService    service.ProgramService
	ratingService     service.RatingService
	enrollmentService service.EnrollmentService
}

func NewProgramHandler(
	programService service.ProgramService,
	ratingService service.RatingService,
	enrollmentService service.EnrollmentService,
) *ProgramHandler {
	return &ProgramHandler{
		programService:    programService,
		ratingService:     ratingService,
		enrollmentService: enrollmentService,
	}
}

// --- DTOs ---

type ExerciseRequest struct {
	ID   string `json:"id"`
	Name string `json:"name" binding:"required"`
	Sets int    `json:"sets" binding:"gte=0"`
	Reps int    `json:"reps" binding:"gte=0"`
}

type ProgramRequest struct {
	Title       string            `json:"title" binding:"required"`
	Description string            `json:"description"`
	Level       string            `json:"level" binding:"omitempty,oneof=Beginner Intermediate Advanced"`
	Image       string            `json:"image"`
	Exercises   []ExerciseRequest `json:"exercises" binding:"dive"`
	Tags        []string          `json:"tags"`
}

func (r ProgramRequest) toInput() service.ProgramInput {
	in := service.ProgramInput{
		Title:       r.Title,
		Description: r.Description,
		Level:       r.Level,
		Image:       r.Image,
		Exercises:   make([]service.ExerciseInput, 0, len(r.Exercises)),
		Tags:        r.Tags,
	}
	for _, e := range r.Exercises {
		in.Exercises = append(in.Exercises, service.ExerciseInput{ID: e.ID, Name: e.Name, Sets: e.Sets, Reps: e.Reps})
	}
	return in
}

type ProgramListQuery struct {
	Query string `form:"q"`
	Level string `form:"level"`
}

type RateRequest struct {
	Rating int    `json:"rating" binding:"required,gte=1,lte=5"`
	Review string `json:"review"`
}

type EnrollRequest struct {
	// StudentID lets an admin enroll someone else; students omit it.
	StudentID string `json:"studentId"`
}

// --- Programs ---

// ListPrograms godoc
// @Summary Search programs
// @Description Case-insensitive title search with an optional level filter ("All" matches every level).
// @Tags Programs
// @Produce json
// @Param q query string false "Title search"
// @Param level query string false "Beginner, Intermediate, Advanced or All"
// @Success 200 {array} domain.ProgramWithCoach
// @Router /programs [get]
func (h *ProgramHandler) ListPrograms(c *gin.Context) {
	var query ProgramListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	programs, err := h.programService.List(c.Request.Context(), service.ProgramQuery{Query: query.Query, Level: query.Level})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, programs)
}

func (h *ProgramHandler) GetProgram(c *gin.Context) {
	programID, ok := idParam(c, "programId")
	if !ok {
		return
	}
	program, err := h.programService.Get(c.Request.Context(), programID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, program)
}

func (h *ProgramHandler) ListCoachPrograms(c *gin.Context) {
	coachID, ok := idParam(c, "coachId")
	if !ok {
		return
	}
	programs, err := h.programService.ListByCoach(c.Request.Context(), coachID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, programs)
}

// CreateProgram godoc
// @Summary Create a program owned by the authenticated coach
// @Tags Programs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param program body ProgramRequest true "Program"
// @Success 201 {object} domain.Program
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 403 {object} gin.H "Not a coach"
// @Router /programs [post]
func (h *ProgramHandler) CreateProgram(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	var req ProgramRequest
	if !bindJSON(c, &req) {
		return
	}
	program, err := h.programService.Create(c.Request.Context(), identity, req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, program)
}

func (h *ProgramHandler) UpdateProgram(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	programID, ok := idParam(c, "programId")
	if !ok {
		return
	}
	var req ProgramRequest
	if !bindJSON(c, &req) {
		return
	}
	program, err := h.programService.Update(c.Request.Context(), identity, programID, req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, program)
}

func (h *ProgramHandler) DeleteProgram(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	programID, ok := idParam(c, "programId")
	if !ok {
		return
	}
	if err := h.programService.Delete(c.Request.Context(), identity, programID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Ratings ---

// RateProgram godoc
// @Summary Rate a program (1-5), replacing the caller's previous rating
// @Tags Ratings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param programId path string true "Program ID"
// @Param rating body RateRequest true "Rating"
// @Success 200 {object} domain.ProgramRating
// @Failure 400 {object} gin.H "Rating out of range"
// @Failure 404 {object} gin.H "Program not found"
// @Router /programs/{programId}/ratings [put]
func (h *ProgramHandler) RateProgram(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	programID, ok := idParam(c, "programId")
	if !ok {
		return
	}
	var req RateRequest
	if !bindJSON(c, &req) {
		return
	}
	rating, err := h.ratingService.Rate(c.Request.Context(), programID, identity.UserID, req.Rating, req.Review)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rating)
}

func (h *ProgramHandler) ListRatings(c *gin.Context) {
	programID, ok := idParam(c, "programId")
	if !ok {
		return
	}
	ratings, err := h.ratingService.ListRatings(c.Request.Context(), programID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ratings)
}

// --- Enrollment ---

// Enroll godoc
// @Summary Enroll in a program
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param programId path string true "Program ID"
// @Param body body EnrollRequest false "Admins may name the student"
// @Success 201 {object} domain.Enrollment
// @Failure 404 {object} gin.H "Program not found"
// @Failure 409 {object} gin.H "Already enrolled"
// @Router /programs/{programId}/enroll [post]
func (h *ProgramHandler) Enroll(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	programID, ok := idParam(c, "programId")
	if !ok {
		return
	}

	studentID := identity.UserID
	var req EnrollRequest
	if c.Request.ContentLength > 0 {
		if !bindJSON(c, &req) {
			return
		}
	}
	if req.StudentID != "" {
		id, ok := parseHexID(c, "studentId", req.StudentID)
		if !ok {
			return
		}
		studentID = id
	}

	enrollment, err := h.enrollmentService.Enroll(c.Request.Context(), identity, studentID, programID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, enrollment)
}

// ListProgramEnrollments returns the program's roster to its coach or an admin.
func (h *ProgramHandler) ListProgramEnrollments(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	programID, ok := idParam(c, "programId")
	if !ok {
		return
	}
	enrollments, err := h.enrollmentService.ListForProgram(c.Request.Context(), identity, programID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, enrollments)
}
