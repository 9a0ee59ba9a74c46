package api

import (
	"alcyxob/gym-app/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EnrollmentHandler struct {
	enrollmentService service.EnrollmentService
	progressService   service.ProgressService
}

func NewEnrollmentHandler(enrollmentService service.EnrollmentService, progressService service.ProgressService) *EnrollmentHandler {
	return &EnrollmentHandler{
		enrollmentService: enrollmentService,
		progressService:   progressService,
	}
}

type UpdateProgressRequest struct {
	Progress           *float64  `json:"progress" binding:"required,gte=0,lte=100"`
	CompletedExercises *[]string `json:"completedExercises"`
}

type StudentProgressQuery struct {
	ProgramID string `form:"programId"`
}

// Leave godoc
// @Summary Leave a program
// @Description The enrolled student (or an admin) deletes the enrollment.
// @Tags Enrollments
// @Security BearerAuth
// @Param enrollmentId path string true "Enrollment ID"
// @Success 204
// @Router /enrollments/{enrollmentId} [delete]
func (h *EnrollmentHandler) Leave(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	enrollmentID, ok := idParam(c, "enrollmentId")
	if !ok {
		return
	}
	if err := h.enrollmentService.Leave(c.Request.Context(), identity, enrollmentID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Kick godoc
// @Summary Remove a student from a program
// @Description The coach owning the program (or an admin) deletes the enrollment.
// @Tags Enrollments
// @Security BearerAuth
// @Param enrollmentId path string true "Enrollment ID"
// @Success 204
// @Router /enrollments/{enrollmentId}/kick [post]
func (h *EnrollmentHandler) Kick(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	enrollmentID, ok := idParam(c, "enrollmentId")
	if !ok {
		return
	}
	if err := h.enrollmentService.Kick(c.Request.Context(), identity, enrollmentID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateProgress godoc
// @Summary Report progress on an enrollment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param enrollmentId path string true "Enrollment ID"
// @Param progress body UpdateProgressRequest true "Progress 0-100"
// @Success 200 {object} domain.Enrollment
// @Failure 400 {object} gin.H "Progress out of range"
// @Router /enrollments/{enrollmentId}/progress [patch]
func (h *EnrollmentHandler) UpdateProgress(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	enrollmentID, ok := idParam(c, "enrollmentId")
	if !ok {
		return
	}
	var req UpdateProgressRequest
	if !bindJSON(c, &req) {
		return
	}

	enrollment, err := h.progressService.UpdateProgress(c.Request.Context(), identity, enrollmentID, *req.Progress, req.CompletedExercises)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, enrollment)
}

func (h *EnrollmentHandler) MarkComplete(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	enrollmentID, ok := idParam(c, "enrollmentId")
	if !ok {
		return
	}
	enrollment, err := h.progressService.MarkComplete(c.Request.Context(), identity, enrollmentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, enrollment)
}

// ListStudentEnrollments returns a student's enrollments with program and coach.
func (h *EnrollmentHandler) ListStudentEnrollments(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	studentID, ok := idParam(c, "studentId")
	if !ok {
		return
	}
	enrollments, err := h.enrollmentService.ListForStudent(c.Request.Context(), identity, studentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, enrollments)
}

func (h *EnrollmentHandler) StudentProgress(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	studentID, ok := idParam(c, "studentId")
	if !ok {
		return
	}
	var query StudentProgressQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	var programID *primitive.ObjectID
	if query.ProgramID != "" {
		id, ok := parseHexID(c, "programId", query.ProgramID)
		if !ok {
			return
		}
		programID = &id
	}

	enrollments, err := h.enrollmentService.StudentProgress(c.Request.Context(), identity, studentID, programID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, enrollments)
}

// ListCoachStudents returns every enrollment across the coach's programs, most recently active first.
func (h *EnrollmentHandler) ListCoachStudents(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	coachID, ok := idParam(c, "coachId")
	if !ok {
		return
	}
	enrollments, err := h.enrollmentService.ListForCoach(c.Request.Context(), identity, coachID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, enrollments)
}
