package api

import (
	"alcyxob/gym-app/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

type AnalyticsHandler struct {
	analyticsService service.AnalyticsService
}

func NewAnalyticsHandler(analyticsService service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// AdminOverview godoc
// @Summary System-wide dashboard
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.AdminOverview
// @Failure 403 {object} gin.H "Not an admin"
// @Router /analytics/admin [get]
func (h *AnalyticsHandler) AdminOverview(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	overview, err := h.analyticsService.AdminOverview(c.Request.Context(), identity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

func (h *AnalyticsHandler) CoachOverview(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	coachID, ok := idParam(c, "coachId")
	if !ok {
		return
	}
	overview, err := h.analyticsService.CoachOverview(c.Request.Context(), identity, coachID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

func (h *AnalyticsHandler) ClientOverview(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	clientID, ok := idParam(c, "clientId")
	if !ok {
		return
	}
	overview, err := h.analyticsService.ClientOverview(c.Request.Context(), identity, clientID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}
