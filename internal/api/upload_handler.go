package api

import (
	"alcyxob/gym-app/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

type UploadHandler struct {
	imageService service.ImageService
}

func NewUploadHandler(imageService service.ImageService) *UploadHandler {
	return &UploadHandler{imageService: imageService}
}

type ImageUploadRequest struct {
	Kind        string `json:"kind" binding:"required,oneof=program profile"`
	ContentType string `json:"contentType" binding:"required"`
}

var imageKinds = map[string]service.ImageKind{
	"program": service.ImageProgram,
	"profile": service.ImageProfile,
}

// RequestImageUpload godoc
// @Summary Get a presigned URL for uploading a program or profile image
// @Description The returned publicUrl is what clients store in the program or profile afterwards.
// @Tags Uploads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ImageUploadRequest true "Image kind and content type"
// @Success 200 {object} service.UploadURLResponse
// @Failure 400 {object} gin.H "Unsupported content type"
// @Failure 503 {object} gin.H "Uploads not configured"
// @Router /uploads/images [post]
func (h *UploadHandler) RequestImageUpload(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	var req ImageUploadRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.imageService.RequestUploadURL(c.Request.Context(), identity, imageKinds[req.Kind], req.ContentType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
