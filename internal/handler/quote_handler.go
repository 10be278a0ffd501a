package handler

import (
	"net/http"

	"weddingplanner/internal/middleware"
	"weddingplanner/internal/model"
	"weddingplanner/internal/service"
	"weddingplanner/pkg/pagination"
	"weddingplanner/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type QuoteHandler struct {
	quoteService service.QuoteService
	poService    service.PurchaseOrderService
}

// NewQuoteHandler sets up the routing dependencies for quote endpoints
func NewQuoteHandler(quoteService service.QuoteService, poService service.PurchaseOrderService) *QuoteHandler {
	return &QuoteHandler{quoteService: quoteService, poService: poService}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *QuoteHandler) RegisterRoutes(router *gin.RouterGroup) {
	quotes := router.Group("/quotes")
	{
		quotes.POST("", middleware.RequireRole(model.RolePlanner, model.RoleAdmin), h.CreateQuote)
		quotes.GET("", middleware.RequireRole(model.RolePlanner, model.RoleAdmin), h.ListQuotes)
		quotes.GET("/:id", middleware.RequireRole(model.RolePlanner, model.RoleClient, model.RoleAdmin), h.GetQuote)
		quotes.PATCH("/:id", middleware.RequireRole(model.RolePlanner, model.RoleAdmin), h.UpdateQuote)
		quotes.DELETE("/:id", middleware.RequireRole(model.RolePlanner, model.RoleAdmin), h.DeleteQuote)
		quotes.POST("/:id/send", middleware.RequireRole(model.RolePlanner, model.RoleAdmin), h.SendQuote)
		quotes.POST("/:id/accept", middleware.RequireRole(model.RolePlanner, model.RoleClient, model.RoleAdmin), h.AcceptQuote)
		quotes.POST("/:id/reject", middleware.RequireRole(model.RolePlanner, model.RoleClient, model.RoleAdmin), h.RejectQuote)
		quotes.GET("/:id/pdf", middleware.RequireRole(model.RolePlanner, model.RoleClient, model.RoleAdmin), h.DownloadQuotePDF)
		quotes.POST("/:id/purchase-orders", middleware.RequireRole(model.RolePlanner, model.RoleAdmin), h.GeneratePurchaseOrder)
	}
}

// CreateQuote handles POST /quotes
// @Summary      Create a quote
// @Description  Creates a devis with its line items, renders the PDF and files it in the document registry
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateQuoteRequest  true  "Create Quote Payload"
// @Success      201      {object}  response.Response{data=service.QuoteResponse}
// @Failure      400      {object}  response.Response
// @Failure      502      {object}  response.Response
// @Router       /quotes [post]
func (h *QuoteHandler) CreateQuote(c *gin.Context) {
	plannerID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User ID not found in context"))
		return
	}

	var req service.CreateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	quote, err := h.quoteService.Create(c.Request.Context(), plannerID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, quote))
}

// ListQuotes handles GET /quotes with status/client filters and pagination
// @Summary      List quotes
// @Tags         quotes
// @Produce      json
// @Security     BearerAuth
// @Param        status     query     string  false  "Filter by status"
// @Param        client_id  query     string  false  "Filter by client"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Number of items per page (default 10)"
// @Success      200        {object}  response.Response{data=object}
// @Failure      500        {object}  response.Response
// @Router       /quotes [get]
func (h *QuoteHandler) ListQuotes(c *gin.Context) {
	plannerID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User ID not found in context"))
		return
	}

	p := pagination.Parse(c)

	filter := service.QuoteFilter{
		PlannerID: plannerID,
		Status:    c.Query("status"),
		Page:      p.Page,
		Limit:     p.Limit,
	}
	if raw := c.Query("client_id"); raw != "" {
		clientID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid client_id"))
			return
		}
		filter.ClientID = clientID
	}

	quotes, total, err := h.quoteService.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"quotes": quotes,
		"total":  total,
		"page":   p.Page,
		"limit":  p.Limit,
	}))
}

// GetQuote handles GET /quotes/:id
// @Summary      Get quote by ID
// @Tags         quotes
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Quote ID"
// @Success      200  {object}  response.Response{data=service.QuoteResponse}
// @Failure      404  {object}  response.Response
// @Router       /quotes/{id} [get]
func (h *QuoteHandler) GetQuote(c *gin.Context) {
	quote, err := h.quoteService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, quote))
}

// UpdateQuote handles PATCH /quotes/:id — only validity date and description
// can change, line items and the rendered PDF are immutable once created.
// @Summary      Update quote
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                      true  "Quote ID"
// @Param        payload  body      service.UpdateQuoteRequest  true  "Update Quote Payload"
// @Success      200      {object}  response.Response{data=service.QuoteResponse}
// @Failure      400      {object}  response.Response
// @Router       /quotes/{id} [patch]
func (h *QuoteHandler) UpdateQuote(c *gin.Context) {
	var req service.UpdateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}

	quote, err := h.quoteService.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, quote))
}

// DeleteQuote handles DELETE /quotes/:id
// @Summary      Delete quote
// @Description  Removes the quote and its registry entries
// @Tags         quotes
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Quote ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /quotes/{id} [delete]
func (h *QuoteHandler) DeleteQuote(c *gin.Context) {
	if err := h.quoteService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Quote deleted successfully"))
}

// SendQuote handles POST /quotes/:id/send
// @Summary      Send quote to client
// @Description  Marks a draft quote as sent and notifies the client
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                    true   "Quote ID"
// @Param        payload  body      service.SendQuoteRequest  false  "Send options"
// @Success      200      {object}  response.Response{data=service.QuoteResponse}
// @Failure      400      {object}  response.Response
// @Router       /quotes/{id}/send [post]
func (h *QuoteHandler) SendQuote(c *gin.Context) {
	var req service.SendQuoteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
			return
		}
	}

	quote, err := h.quoteService.Send(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, quote))
}

// AcceptQuote handles POST /quotes/:id/accept
// @Summary      Accept quote
// @Description  Accepts a sent quote and creates the matching invoice
// @Tags         quotes
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Quote ID"
// @Success      200  {object}  response.Response{data=service.QuoteResponse}
// @Failure      400  {object}  response.Response
// @Router       /quotes/{id}/accept [post]
func (h *QuoteHandler) AcceptQuote(c *gin.Context) {
	quote, err := h.quoteService.Accept(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, quote))
}

// RejectQuote handles POST /quotes/:id/reject
// @Summary      Reject quote
// @Tags         quotes
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Quote ID"
// @Success      200  {object}  response.Response{data=service.QuoteResponse}
// @Failure      400  {object}  response.Response
// @Router       /quotes/{id}/reject [post]
func (h *QuoteHandler) RejectQuote(c *gin.Context) {
	quote, err := h.quoteService.Reject(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, quote))
}

// DownloadQuotePDF handles GET /quotes/:id/pdf. Quotes filed with an
// uploaded artifact redirect to object storage; drafts are rendered on the
// fly without persisting.
// @Summary      Download quote PDF
// @Tags         quotes
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        id   path      string  true  "Quote ID"
// @Success      200  {file}    binary
// @Failure      404  {object}  response.Response
// @Router       /quotes/{id}/pdf [get]
func (h *QuoteHandler) DownloadQuotePDF(c *gin.Context) {
	result, err := h.quoteService.DownloadPDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if result.URL != "" {
		c.Redirect(http.StatusFound, result.URL)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+result.FileName+`"`)
	c.Data(http.StatusOK, "application/pdf", result.Data)
}

// GeneratePurchaseOrder handles POST /quotes/:id/purchase-orders
// @Summary      Generate purchase order
// @Description  Generates (or returns the existing) bon de commande for a vendor from an accepted quote
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                                true  "Quote ID"
// @Param        payload  body      service.GeneratePurchaseOrderRequest  true  "Vendor selection"
// @Success      200      {object}  response.Response{data=service.PurchaseOrderResponse}
// @Failure      400      {object}  response.Response
// @Failure      502      {object}  response.Response
// @Router       /quotes/{id}/purchase-orders [post]
func (h *QuoteHandler) GeneratePurchaseOrder(c *gin.Context) {
	plannerID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User ID not found in context"))
		return
	}

	var req service.GeneratePurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.poService.Generate(c.Request.Context(), plannerID, c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusCreated
	if order.Reused {
		status = http.StatusOK
	}
	c.JSON(status, response.Success(status, order))
}
