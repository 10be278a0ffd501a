package handler

import (
	"net/http"

	"weddingplanner/pkg/apperrors"
	"weddingplanner/pkg/response"

	"github.com/gin-gonic/gin"
)

// writeError maps a service error onto the response envelope. Validation and
// not-found errors carry their message to the client; storage and upload
// failures get a generic message so internals never leak.
func writeError(c *gin.Context, err error) {
	switch {
	case apperrors.IsValidation(err):
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
	case apperrors.IsNotFound(err):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
	case apperrors.IsUpload(err):
		c.JSON(http.StatusBadGateway, response.Error(http.StatusBadGateway, "Document upload failed"))
	default:
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Internal server error"))
	}
}
