package handler

import (
	"net/http"
	"strconv"

	"weddingplanner/internal/middleware"
	"weddingplanner/internal/model"
	"weddingplanner/internal/service"
	"weddingplanner/pkg/pagination"
	"weddingplanner/pkg/response"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type DocumentHandler struct {
	documentService service.DocumentService
}

// NewDocumentHandler sets up the routing dependencies for document registry endpoints
func NewDocumentHandler(documentService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *DocumentHandler) RegisterRoutes(router *gin.RouterGroup) {
	documents := router.Group("/documents")
	{
		documents.GET("", middleware.RequireRole(model.RolePlanner, model.RoleClient, model.RoleAdmin), h.ListDocuments)
		documents.POST("/import-preview", middleware.RequireRole(model.RolePlanner, model.RoleAdmin), h.ImportPreview)
	}
}

// ListDocuments handles GET /documents with type/client filters
// @Summary      List documents
// @Description  Lists registry entries: devis, factures, bons de commande, contrats
// @Tags         documents
// @Produce      json
// @Security     BearerAuth
// @Param        type       query     string  false  "Filter by document type"
// @Param        client_id  query     string  false  "Filter by client"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Number of items per page (default 10)"
// @Success      200        {object}  response.Response{data=object}
// @Failure      500        {object}  response.Response
// @Router       /documents [get]
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	p := pagination.Parse(c)

	filter := service.DocumentFilter{
		Type:  c.Query("type"),
		Page:  p.Page,
		Limit: p.Limit,
	}
	if raw := c.Query("client_id"); raw != "" {
		clientID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid client_id"))
			return
		}
		filter.ClientID = clientID
	}

	documents, total, err := h.documentService.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"documents": documents,
		"total":     total,
		"page":      p.Page,
		"limit":     p.Limit,
	}))
}

// ImportPreview handles POST /documents/import-preview. The dashboard
// captures its styled preview as one tall image and uploads it here; the
// server slices it into A4 pages and files the resulting PDF.
// @Summary      Import a rendered preview
// @Tags         documents
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        image             formData  file    true   "Preview image (PNG or JPEG)"
// @Param        client_id         formData  string  true   "Client ID"
// @Param        name              formData  string  true   "Document name"
// @Param        type              formData  string  false  "Document type (default autre)"
// @Param        pixels_per_point  formData  number  false  "Capture scale (default 96/72)"
// @Success      201               {object}  response.Response{data=service.DocumentResponse}
// @Failure      400               {object}  response.Response
// @Failure      502               {object}  response.Response
// @Router       /documents/import-preview [post]
func (h *DocumentHandler) ImportPreview(c *gin.Context) {
	plannerID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User ID not found in context"))
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Missing image file"))
		return
	}
	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Cannot read image file"))
		return
	}
	defer src.Close()

	surface, err := imaging.Decode(src)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid image file"))
		return
	}

	req := service.ImportPreviewRequest{
		ClientID: c.PostForm("client_id"),
		Name:     c.PostForm("name"),
		Type:     c.PostForm("type"),
		Surface:  surface,
	}
	if raw := c.PostForm("pixels_per_point"); raw != "" {
		ppp, err := strconv.ParseFloat(raw, 64)
		if err != nil || ppp <= 0 {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid pixels_per_point"))
			return
		}
		req.PixelsPerPoint = ppp
	}

	doc, err := h.documentService.ImportPreview(c.Request.Context(), plannerID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, doc))
}
