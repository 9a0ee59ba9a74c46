package api

import (
	"alcyxob/gym-app/internal/service"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// respondError maps a service error onto a status code. Anything unexpected
// becomes a 500 with a generic message; the cause was logged by the service.
func respondError(c *gin.Context, err error) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": validationErr.Error(), "field": validationErr.Field})
	case errors.Is(err, service.ErrAuthenticationFailed):
		abortWithError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrAccessDenied), errors.Is(err, service.ErrAccountInactive):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrDuplicateEnrollment), errors.Is(err, service.ErrUserAlreadyExists):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrUploadsDisabled):
		abortWithError(c, http.StatusServiceUnavailable, err.Error())
	default:
		log.WithField("path", c.FullPath()).WithError(err).Error("request failed")
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}

// bindJSON binds the request body, answering 400 on failure.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return false
	}
	return true
}

// idParam parses a hex ObjectID path parameter, answering 400 when malformed.
func idParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	return parseHexID(c, name, c.Param(name))
}

func parseHexID(c *gin.Context, name, raw string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid "+name+" format")
		return primitive.NilObjectID, false
	}
	return id, true
}
